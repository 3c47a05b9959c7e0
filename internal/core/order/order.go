package order

import (
	"path"
	"sort"

	"github.com/Ning0612/prscatalog/internal/core/meta"
	"github.com/Ning0612/prscatalog/internal/domain"
)

// SortKey is the value items are ordered by
func SortKey(item domain.Item) string {
	return item.Author + "/" + item.Title
}

// ByAuthorTitle reorders items by "author/title". Equal keys keep their
// relative order. Identifiers are untouched.
func ByAuthorTitle(cat *domain.Catalog) {
	sort.SliceStable(cat.Items, func(i, j int) bool {
		return SortKey(cat.Items[i]) < SortKey(cat.Items[j])
	})
}

// FixTitles rewrites author and title from the file name of every item
// named "[Author] Title.ext" and returns how many items matched
func FixTitles(cat *domain.Catalog) int {
	fixed := 0
	for i := range cat.Items {
		item := &cat.Items[i]
		if item.Path == "" {
			continue
		}
		author, title, ok := meta.FromFilename(path.Base(item.Path))
		if !ok {
			continue
		}
		item.Author = author
		item.Title = title
		fixed++
	}
	return fixed
}
