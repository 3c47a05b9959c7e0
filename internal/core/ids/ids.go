// Package ids renumbers a partition's catalog so identifiers never collide
// across the three catalogs of one device.
package ids

import (
	"strconv"

	"github.com/Ning0612/prscatalog/internal/domain"
)

const (
	// FirstBase is where numbering starts on the first partition
	FirstBase = 0

	// FirstSourceID is the source identifier of the first partition
	FirstSourceID = 1
)

// Allocation is the outcome of renumbering one catalog
type Allocation struct {
	// Base is the first identifier assigned
	Base int

	// SourceID is the partition's reserved source identifier, written
	// to the playlists it synthesizes
	SourceID int

	// LastID is the highest identifier assigned to any entry, records and
	// user playlists included, not only items. The next partition starts
	// after it, so identifiers stay unique across the device. When nothing
	// was numbered it equals SourceID so the reservation still carries
	// forward.
	LastID int

	// Assigned counts numbered entries
	Assigned int

	// Map translates old identifiers to new ones
	Map map[string]int
}

// Range returns the base and source identifier for a partition given the
// highest identifier used by the previous one. prev is nil for the first
// partition.
func Range(prev *int) (base, sourceID int) {
	if prev == nil {
		return FirstBase, FirstSourceID
	}
	return *prev + 2, *prev + 1
}

// Allocate assigns sequential identifiers starting at the partition base
// and rewrites every playlist member through the resulting map.
//
// Numbering follows serialization order: items in their current order,
// then other id-carrying records, then playlists. Items therefore occupy
// exactly [Base, Base+len(Items)).
func Allocate(cat *domain.Catalog, prev *int) (*Allocation, error) {
	base, sourceID := Range(prev)
	alloc := &Allocation{
		Base:     base,
		SourceID: sourceID,
		LastID:   sourceID,
		Map:      make(map[string]int, len(cat.Items)+len(cat.Playlists)),
	}

	next := base
	assign := func(old string) string {
		if old != "" {
			alloc.Map[old] = next
		}
		alloc.LastID = next
		alloc.Assigned++
		next++
		return strconv.Itoa(alloc.LastID)
	}

	for i := range cat.Items {
		cat.Items[i].ID = assign(cat.Items[i].ID)
	}
	for i := range cat.Records {
		if old, ok := cat.Records[i].ID(); ok {
			cat.Records[i].SetID(assign(old))
		}
	}
	for i := range cat.Playlists {
		cat.Playlists[i].ID = assign(cat.Playlists[i].ID)
	}

	if err := Remap(cat, alloc.Map); err != nil {
		return nil, err
	}
	return alloc, nil
}

// Remap rewrites playlist members through m. A member with no entry is a
// referential integrity failure and leaves the catalog partially rewritten.
func Remap(cat *domain.Catalog, m map[string]int) error {
	for i := range cat.Playlists {
		pl := &cat.Playlists[i]
		for j, old := range pl.Members {
			id, ok := m[old]
			if !ok {
				return &domain.UnmappedReferenceError{Playlist: pl.Title, ID: old}
			}
			pl.Members[j] = strconv.Itoa(id)
		}
	}
	return nil
}
