package playlist

import (
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/Ning0612/prscatalog/internal/core/diff"
	"github.com/Ning0612/prscatalog/internal/domain"
)

// RemoveAuto drops every playlist without a uuid marker and returns how
// many were removed. User playlists keep their relative order.
func RemoveAuto(cat *domain.Catalog) int {
	kept := cat.Playlists[:0]
	removed := 0
	for _, pl := range cat.Playlists {
		if pl.IsAuto() {
			removed++
			continue
		}
		kept = append(kept, pl)
	}
	cat.Playlists = kept
	return removed
}

// Group is the set of items sharing one directory below the destination
type Group struct {
	// Name is the directory relative to the destination; "" is the
	// destination itself
	Name string

	// Members are item identifiers in catalog order
	Members []string
}

// GroupName returns the group of an item path, or ok=false when the item's
// directory does not lie under dest
func GroupName(itemPath, dest string) (string, bool) {
	dir := path.Dir(path.Clean(itemPath))
	if !diff.Under(dir, dest) {
		return "", false
	}
	if dest == "." || dest == "" {
		if dir == "." {
			return "", true
		}
		return dir, true
	}
	if dir == dest {
		return "", true
	}
	return strings.TrimPrefix(dir, dest+"/"), true
}

// Groups collects items under dest by their directory, sorted by name
func Groups(cat *domain.Catalog, dest string) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, item := range cat.Items {
		if item.Path == "" || item.ID == "" {
			continue
		}
		name, ok := GroupName(item.Path, dest)
		if !ok {
			continue
		}
		i, seen := index[name]
		if !seen {
			i = len(groups)
			index[name] = i
			groups = append(groups, Group{Name: name})
		}
		groups[i].Members = append(groups[i].Members, item.ID)
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Name < groups[j].Name
	})
	return groups
}

// Synthesize appends one auto playlist per directory group. Identifiers
// continue from lastID; the returned value is the highest one used, or
// lastID when no playlist was created.
func Synthesize(cat *domain.Catalog, dest string, sourceID, lastID int) (int, []domain.Playlist) {
	groups := Groups(cat, dest)
	created := make([]domain.Playlist, 0, len(groups))

	next := lastID + 1
	source := strconv.Itoa(sourceID)
	for _, g := range groups {
		pl := domain.Playlist{
			Title:    g.Name,
			SourceID: source,
			ID:       strconv.Itoa(next),
			Members:  g.Members,
		}
		cat.Playlists = append(cat.Playlists, pl)
		created = append(created, pl)
		lastID = next
		next++
	}

	return lastID, created
}
