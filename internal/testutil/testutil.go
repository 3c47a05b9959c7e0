package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
)

// FixedTime is the modification time given to fixture files
var FixedTime = time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)

// WriteFile creates a file and its parent directories on fs
func WriteFile(t *testing.T, fs afero.Fs, path string, content []byte) string {
	t.Helper()

	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create parent dir: %v", err)
	}
	if err := afero.WriteFile(fs, path, content, 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	if err := fs.Chtimes(path, FixedTime, FixedTime); err != nil {
		t.Fatalf("failed to set test file time: %v", err)
	}
	return path
}

// WriteFiles creates every file in the map below root. Keys are
// slash-separated relative paths, values are file contents.
func WriteFiles(t *testing.T, fs afero.Fs, root string, files map[string]string) {
	t.Helper()

	for rel, content := range files {
		WriteFile(t, fs, filepath.Join(root, filepath.FromSlash(rel)), []byte(content))
	}
}

// ReadFile returns the content of a file on fs
func ReadFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

// Exists reports whether path exists on fs
func Exists(t *testing.T, fs afero.Fs, path string) bool {
	t.Helper()

	ok, err := afero.Exists(fs, path)
	if err != nil {
		t.Fatalf("failed to stat %s: %v", path, err)
	}
	return ok
}
