package adapter

import (
	"context"
	"io"

	"github.com/Ning0612/prscatalog/internal/domain"
)

// Adapter gives rooted access to one directory tree: a partition or the
// external sync source. All paths are slash-separated and relative to the
// adapter root, and errors are domain-level for consistent handling.
type Adapter interface {
	// List returns the entries directly under path
	// Returns domain.ErrNotFound if path doesn't exist
	// Returns domain.ErrNotDirectory if path is a file
	List(ctx context.Context, path string) ([]domain.FileInfo, error)

	// Read opens a file for reading
	// Caller is responsible for closing the reader
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write creates or overwrites a file, creating parent directories
	Write(ctx context.Context, path string, r io.Reader) error

	// Stat returns metadata for a single path without following symlinks
	Stat(ctx context.Context, path string) (domain.FileInfo, error)

	// Exists checks if a path exists
	Exists(ctx context.Context, path string) (bool, error)
}
