package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// SlogLogger writes records through log/slog to the console and,
// optionally, a lumberjack-rotated file
type SlogLogger struct {
	slogLogger
	file *lumberjack.Logger
}

// slogLogger adapts *slog.Logger to Logger. Children made by With share
// the parent's writers and never close them.
type slogLogger struct {
	l *slog.Logger
}

// New creates a logger from config
func New(config Config) (*SlogLogger, error) {
	console := config.Console
	if console == nil {
		console = os.Stderr
	}

	out := console
	var file *lumberjack.Logger
	if config.File.Path != "" {
		var err error
		if file, err = openFile(config.File); err != nil {
			return nil, err
		}
		out = io.MultiWriter(console, file)
	}

	opts := &slog.HandlerOptions{Level: config.Level}
	var handler slog.Handler = slog.NewTextHandler(out, opts)
	if config.JSON {
		handler = slog.NewJSONHandler(out, opts)
	}

	return &SlogLogger{
		slogLogger: slogLogger{l: slog.New(handler)},
		file:       file,
	}, nil
}

// openFile 建立 lumberjack 輪替檔案
func openFile(config FileConfig) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	maxSize := config.MaxSizeMB
	if maxSize <= 0 {
		maxSize = DefaultMaxSizeMB
	}

	return &lumberjack.Logger{
		Filename:   config.Path,
		MaxSize:    maxSize,
		MaxAge:     config.MaxAgeDays,
		MaxBackups: config.MaxBackups,
		Compress:   config.Compress,
	}, nil
}

func (s slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

func (s slogLogger) With(args ...any) Logger {
	return slogLogger{l: s.l.With(args...)}
}

func (s slogLogger) Shutdown() error { return nil }

// Shutdown closes the log file, if any
func (l *SlogLogger) Shutdown() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
