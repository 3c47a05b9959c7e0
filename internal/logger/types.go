package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Logger 統一日誌介面
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	Shutdown() error // 關閉檔案輸出
}

// Config 日誌配置
type Config struct {
	Level slog.Level
	JSON  bool

	// Console receives every record; nil means stderr
	Console io.Writer

	// File adds a rotated log file when Path is set
	File FileConfig
}

// FileConfig 檔案日誌配置
type FileConfig struct {
	Path       string
	MaxSizeMB  int // 單位：MB
	MaxAgeDays int // 保留天數
	MaxBackups int // 保留備份數
	Compress   bool
}

// Rotation defaults for the log file
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxAgeDays = 30
	DefaultMaxBackups = 5
)

// ParseLevel accepts debug, info, warn (or warning) and error in any case.
// An empty string is info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level: %q", s)
}

// ParseFormat reports whether s selects JSON output. Text is the default.
func ParseFormat(s string) (json bool, err error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return false, nil
	case "json":
		return true, nil
	}
	return false, fmt.Errorf("unknown log format: %q", s)
}

// FromSettings builds a Config from the log section of the configuration
func FromSettings(level, format, file string) (Config, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return Config{}, err
	}
	json, err := ParseFormat(format)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{Level: lvl, JSON: json}
	if file != "" {
		cfg.File = FileConfig{
			Path:       file,
			MaxSizeMB:  DefaultMaxSizeMB,
			MaxAgeDays: DefaultMaxAgeDays,
			MaxBackups: DefaultMaxBackups,
		}
	}
	return cfg, nil
}
