package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Ning0612/prscatalog/internal/domain"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for configuration problems and 1 for everything else
func exitCode(err error) int {
	if errors.Is(err, domain.ErrConfigInvalid) || errors.Is(err, domain.ErrConfigNotFound) {
		return 2
	}
	return 1
}
