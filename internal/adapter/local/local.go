package local

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/Ning0612/prscatalog/internal/domain"
)

// Adapter implements adapter.Adapter on top of an afero filesystem
type Adapter struct {
	fs   afero.Fs
	root string
}

// New creates an adapter rooted at root, which must be an existing directory
func New(fsys afero.Fs, root string) (*Adapter, error) {
	if _, isOS := fsys.(*afero.OsFs); isOS {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		root = abs
	}
	root = filepath.Clean(root)

	info, err := fsys.Stat(root)
	if err != nil {
		return nil, mapError(err)
	}
	if !info.IsDir() {
		return nil, domain.ErrNotDirectory
	}

	return &Adapter{fs: fsys, root: root}, nil
}

// resolvePath safely resolves a relative path to a host path within root
// Returns error if path attempts to escape root directory
func (a *Adapter) resolvePath(relPath string) (string, error) {
	if relPath == "" || relPath == "." {
		return a.root, nil
	}

	relPath = path.Clean(filepath.ToSlash(relPath))
	if path.IsAbs(relPath) || relPath == ".." || strings.HasPrefix(relPath, "../") {
		return "", domain.ErrPermissionDenied
	}

	return filepath.Join(a.root, filepath.FromSlash(relPath)), nil
}

// List returns the entries directly under the given path, sorted by name
func (a *Adapter) List(ctx context.Context, dir string) ([]domain.FileInfo, error) {
	fullPath, err := a.resolvePath(dir)
	if err != nil {
		return nil, err
	}

	info, err := a.lstat(fullPath)
	if err != nil {
		return nil, mapError(err)
	}
	if !info.IsDir() {
		return nil, domain.ErrNotDirectory
	}

	// afero.ReadDir sorts by name and reports symlinks via their own mode
	entries, err := afero.ReadDir(a.fs, fullPath)
	if err != nil {
		return nil, mapError(err)
	}

	result := make([]domain.FileInfo, 0, len(entries))
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		entryPath := path.Join(filepath.ToSlash(dir), entry.Name())
		result = append(result, fileInfoFromOS(entryPath, entry))
	}

	return result, nil
}

// Read opens a file for reading
func (a *Adapter) Read(ctx context.Context, p string) (io.ReadCloser, error) {
	fullPath, err := a.resolvePath(p)
	if err != nil {
		return nil, err
	}

	info, err := a.fs.Stat(fullPath)
	if err != nil {
		return nil, mapError(err)
	}
	if info.IsDir() {
		return nil, domain.ErrNotFile
	}

	file, err := a.fs.Open(fullPath)
	if err != nil {
		return nil, mapError(err)
	}
	return file, nil
}

// Write creates or overwrites a file through a temp file and rename
func (a *Adapter) Write(ctx context.Context, p string, r io.Reader) error {
	fullPath, err := a.resolvePath(p)
	if err != nil {
		return err
	}

	if err := a.fs.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return mapError(err)
	}

	tempPath := fullPath + ".prscatalog.tmp"
	file, err := a.fs.Create(tempPath)
	if err != nil {
		return mapError(err)
	}

	_, copyErr := io.Copy(file, r)
	closeErr := file.Close()

	if copyErr != nil {
		a.fs.Remove(tempPath)
		return copyErr
	}
	if closeErr != nil {
		a.fs.Remove(tempPath)
		return closeErr
	}

	if err := a.fs.Rename(tempPath, fullPath); err != nil {
		a.fs.Remove(tempPath)
		return mapError(err)
	}
	return nil
}

// Stat returns metadata for a single path
func (a *Adapter) Stat(ctx context.Context, p string) (domain.FileInfo, error) {
	fullPath, err := a.resolvePath(p)
	if err != nil {
		return domain.FileInfo{}, err
	}

	info, err := a.lstat(fullPath)
	if err != nil {
		return domain.FileInfo{}, mapError(err)
	}
	return fileInfoFromOS(path.Clean(filepath.ToSlash(p)), info), nil
}

// Exists checks if a path exists
func (a *Adapter) Exists(ctx context.Context, p string) (bool, error) {
	fullPath, err := a.resolvePath(p)
	if err != nil {
		return false, err
	}

	_, err = a.lstat(fullPath)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, mapError(err)
}

// lstat avoids following symlinks when the filesystem supports it
func (a *Adapter) lstat(fullPath string) (os.FileInfo, error) {
	if l, ok := a.fs.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(fullPath)
		return info, err
	}
	return a.fs.Stat(fullPath)
}

// fileInfoFromOS converts os.FileInfo to domain.FileInfo
func fileInfoFromOS(p string, info os.FileInfo) domain.FileInfo {
	fileType := domain.FileTypeRegular
	switch {
	case info.IsDir():
		fileType = domain.FileTypeDirectory
	case info.Mode()&fs.ModeSymlink != 0:
		fileType = domain.FileTypeSymlink
	}

	return domain.FileInfo{
		Path:    p,
		Type:    fileType,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
}

// mapError converts OS errors to domain errors
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return domain.ErrNotFound
	}
	if errors.Is(err, os.ErrPermission) {
		return domain.ErrPermissionDenied
	}
	return err
}
