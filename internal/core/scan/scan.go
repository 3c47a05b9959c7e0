package scan

import (
	"context"
	"path"
	"sort"

	"github.com/Ning0612/prscatalog/internal/adapter"
	"github.com/Ning0612/prscatalog/internal/domain"
)

// Files returns every regular file below dir, recursively, sorted by path.
// Paths are relative to the adapter root and lexically cleaned. Directories
// and symlinks are descended into or skipped, never returned.
func Files(ctx context.Context, adp adapter.Adapter, dir string) ([]domain.FileInfo, error) {
	files, err := walk(ctx, adp, dir)
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return files, nil
}

func walk(ctx context.Context, adp adapter.Adapter, dir string) ([]domain.FileInfo, error) {
	var files []domain.FileInfo

	items, err := adp.List(ctx, dir)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		// Check context cancellation
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		switch item.Type {
		case domain.FileTypeDirectory:
			sub, err := walk(ctx, adp, item.Path)
			if err != nil {
				return nil, err
			}
			files = append(files, sub...)
		case domain.FileTypeRegular:
			item.Path = path.Clean(item.Path)
			files = append(files, item)
		}
	}

	return files, nil
}
