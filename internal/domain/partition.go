package domain

import (
	"fmt"
	"path"
	"path/filepath"
)

// Role identifies one of the three storage locations of the reader
type Role string

const (
	RoleBody        Role = "body"
	RoleMemoryStick Role = "ms"
	RoleSD          Role = "sd"
)

// Roles lists the partitions in processing order
var Roles = []Role{RoleBody, RoleMemoryStick, RoleSD}

// IsValid checks if the role is a known value
func (r Role) IsValid() bool {
	switch r {
	case RoleBody, RoleMemoryStick, RoleSD:
		return true
	}
	return false
}

// ParseRole accepts the short role names plus a few long aliases
func ParseRole(s string) (Role, error) {
	switch s {
	case "body":
		return RoleBody, nil
	case "ms", "memory-stick", "memorystick":
		return RoleMemoryStick, nil
	case "sd":
		return RoleSD, nil
	}
	return "", fmt.Errorf("%w: unknown partition: %s", ErrConfigInvalid, s)
}

// Vocabulary names the XML elements of one catalog schema variant.
// Both variants share attribute names; only element naming differs.
type Vocabulary struct {
	// Root is the document element
	Root string

	// Container holds the records. Empty means records sit directly under Root.
	Container string

	Item     string
	Playlist string
	Member   string
}

var (
	// BodyVocabulary is the namespaced schema used by the internal memory catalog
	BodyVocabulary = Vocabulary{
		Root:      "xdbLite",
		Container: "records",
		Item:      "cache:text",
		Playlist:  "cache:playlist",
		Member:    "cache:item",
	}

	// MediaVocabulary is the plain schema used by removable media catalogs
	MediaVocabulary = Vocabulary{
		Root:     "cache",
		Item:     "text",
		Playlist: "playlist",
		Member:   "item",
	}
)

// Vocabulary returns the schema variant used by this role
func (r Role) Vocabulary() Vocabulary {
	if r == RoleBody {
		return BodyVocabulary
	}
	return MediaVocabulary
}

// CatalogPath returns the catalog location relative to the partition root
func (r Role) CatalogPath() string {
	if r == RoleBody {
		return "database/cache/media.xml"
	}
	return "Sony Reader/database/cache.xml"
}

// Partition is one storage location with everything needed to reconcile it
type Partition struct {
	Role Role

	// Root is the mount point of the partition on the host
	Root string

	// Dest is the slash-separated subpath under Root where synced media lives
	Dest string

	// Vocab is resolved once from Role
	Vocab Vocabulary

	// Source is an optional host directory copied into Dest before the
	// catalog is reconciled
	Source string
}

// NewPartition builds a partition with a cleaned destination subpath
func NewPartition(role Role, root, dest string) Partition {
	return Partition{
		Role:  role,
		Root:  root,
		Dest:  path.Clean(filepath.ToSlash(dest)),
		Vocab: role.Vocabulary(),
	}
}

// CatalogFile returns the host path of the partition's catalog
func (p Partition) CatalogFile() string {
	return filepath.Join(p.Root, filepath.FromSlash(p.Role.CatalogPath()))
}
