package diff

import (
	"path"
	"strings"

	"github.com/Ning0612/prscatalog/internal/core/meta"
	"github.com/Ning0612/prscatalog/internal/domain"
)

// Result is the difference between the catalog and the partition contents
type Result struct {
	// Added are files on disk with no catalog entry, in path order
	Added []domain.FileInfo

	// Removed are catalogued paths with no file on disk, in catalog order
	Removed []string
}

// Under reports whether the cleaned path p lies below dir. A dir of "."
// contains every relative path that does not climb out of the root.
func Under(p, dir string) bool {
	if dir == "." || dir == "" {
		return p != ".." && !strings.HasPrefix(p, "../")
	}
	return p == dir || strings.HasPrefix(p, dir+"/")
}

// CataloguedPaths returns the cleaned, de-duplicated paths of items lying
// under dest, in catalog order
func CataloguedPaths(cat *domain.Catalog, dest string) []string {
	seen := make(map[string]bool, len(cat.Items))
	var paths []string
	for _, item := range cat.Items {
		if item.Path == "" {
			continue
		}
		p := path.Clean(item.Path)
		if !Under(p, dest) || seen[p] {
			continue
		}
		seen[p] = true
		paths = append(paths, p)
	}
	return paths
}

// Compute compares catalogued paths with observed files. Membership is by
// path only; size and date play no part.
func Compute(catalogued []string, observed []domain.FileInfo) Result {
	known := make(map[string]bool, len(catalogued))
	for _, p := range catalogued {
		known[p] = true
	}

	var result Result
	found := make(map[string]bool, len(observed))
	for _, f := range observed {
		p := path.Clean(f.Path)
		found[p] = true
		if !known[p] {
			f.Path = p
			result.Added = append(result.Added, f)
		}
	}

	for _, p := range catalogued {
		if !found[p] {
			result.Removed = append(result.Removed, p)
		}
	}

	return result
}

// Apply appends an item for every added file and drops every item whose
// path was removed. It returns the number of items removed, which exceeds
// len(Removed) when several entries shared a path.
func Apply(cat *domain.Catalog, result Result) (int, error) {
	for _, f := range result.Added {
		item, err := meta.NewItem(f)
		if err != nil {
			return 0, err
		}
		cat.Items = append(cat.Items, item)
	}

	removed := 0
	for _, p := range result.Removed {
		removed += cat.RemoveItemsWithPath(p)
	}
	return removed, nil
}
