package logger

import (
	"fmt"
	"sync"
)

var (
	mu      sync.RWMutex
	current Logger = Nop{}

	// owner is the logger created by Init; it holds the open file
	owner *SlogLogger
)

// Init 初始化全域 logger
func Init(config Config) error {
	mu.Lock()
	defer mu.Unlock()

	if owner != nil {
		return fmt.Errorf("logger already initialized; call Shutdown() before re-initializing")
	}

	l, err := New(config)
	if err != nil {
		return err
	}
	owner = l
	current = l
	return nil
}

// Get 取得全域 logger；未初始化時回傳 Nop
func Get() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// With 建立帶 context 的子 logger
func With(args ...any) Logger {
	return Get().With(args...)
}

// Shutdown closes the log file and falls back to Nop. Safe to call when
// Init was never called.
func Shutdown() error {
	mu.Lock()
	l := owner
	owner = nil
	current = Nop{}
	mu.Unlock()

	if l == nil {
		return nil
	}
	return l.Shutdown()
}

// Nop discards everything
type Nop struct{}

func (Nop) Debug(msg string, args ...any) {}
func (Nop) Info(msg string, args ...any)  {}
func (Nop) Warn(msg string, args ...any)  {}
func (Nop) Error(msg string, args ...any) {}
func (n Nop) With(args ...any) Logger     { return n }
func (Nop) Shutdown() error               { return nil }
