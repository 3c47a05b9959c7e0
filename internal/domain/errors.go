package domain

import (
	"errors"
	"fmt"
)

// Filesystem errors - 檔案系統層錯誤
var (
	// ErrNotFound indicates the requested file or directory does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrPermissionDenied indicates insufficient permissions or a path escaping its root
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotDirectory indicates expected a directory but got a file
	ErrNotDirectory = errors.New("not a directory")

	// ErrNotFile indicates expected a file but got a directory
	ErrNotFile = errors.New("not a file")
)

// Catalog errors - 目錄資料庫錯誤
var (
	// ErrParse indicates a catalog file is missing or malformed
	ErrParse = errors.New("catalog parse error")

	// ErrUnknownFileType indicates a file extension with no known MIME type
	ErrUnknownFileType = errors.New("unknown file type")

	// ErrUnmappedReference indicates a playlist member with no identifier mapping
	ErrUnmappedReference = errors.New("unmapped playlist reference")
)

// Config errors - 設定錯誤
var (
	// ErrConfigNotFound indicates config file not found
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigInvalid indicates missing or malformed configuration
	ErrConfigInvalid = errors.New("invalid config")
)

// ParseError reports why a catalog file could not be loaded
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrParse, e.Path, e.Err)
}

// Unwrap lets errors.Is match both ErrParse and the underlying cause
func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

// UnmappedReferenceError names the playlist and member id that had no mapping
type UnmappedReferenceError struct {
	Playlist string
	ID       string
}

func (e *UnmappedReferenceError) Error() string {
	return fmt.Sprintf("%s: playlist %q references id %q", ErrUnmappedReference, e.Playlist, e.ID)
}

func (e *UnmappedReferenceError) Unwrap() error {
	return ErrUnmappedReference
}
