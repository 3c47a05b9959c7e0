package domain

import "path"

// Attr is one XML attribute kept in document order
type Attr struct {
	Name  string
	Value string
}

// Attribute names shared by both schema variants
const (
	AttrID       = "id"
	AttrAuthor   = "author"
	AttrPath     = "path"
	AttrTitle    = "title"
	AttrDate     = "date"
	AttrMIME     = "mime"
	AttrSize     = "size"
	AttrSourceID = "sourceid"
	AttrUUID     = "uuid"
)

// Item is one catalogued book or document
type Item struct {
	// ID is the identifier as stored in the catalog. Empty for items
	// that have not been numbered yet.
	ID string

	// Path is partition-root-relative with forward slashes
	Path   string
	Author string
	Title  string

	// Date is the modification time formatted as "Mon, 02 Jan 2006 15:04:05 UTC"
	Date string
	MIME string
	Size int64

	// Extra holds attributes this tool does not interpret
	Extra []Attr

	// Order is the attribute order seen on load, replayed on save. Empty
	// for items created during synchronization.
	Order []string

	// Inner is the raw content between the start and end tags, if any
	Inner []byte
}

// Playlist is a named ordered list of item identifiers
type Playlist struct {
	ID       string
	Title    string
	SourceID string

	// UUID marks playlists created on the device by the user. HasUUID
	// distinguishes an empty marker from an absent one.
	UUID    string
	HasUUID bool

	// Members are item identifiers in playlist order
	Members []string

	// Children are the non-member elements found inside the playlist
	Children []PlaylistChild

	Extra []Attr
	Order []string
}

// PlaylistChild is an element inside a playlist other than a member
// reference. At is the number of members that precede it.
type PlaylistChild struct {
	Record
	At int
}

// IsAuto reports whether the playlist was generated by this tool
func (p Playlist) IsAuto() bool {
	return !p.HasUUID
}

// Record is any other element found among the catalog records. It is
// written back unchanged apart from its id attribute.
type Record struct {
	Name  string
	Attrs []Attr

	// Inner is the raw serialized content between the start and end tags
	Inner []byte
}

// ID returns the record's id attribute, if any
func (r Record) ID() (string, bool) {
	for _, a := range r.Attrs {
		if a.Name == AttrID {
			return a.Value, true
		}
	}
	return "", false
}

// SetID replaces the record's id attribute
func (r *Record) SetID(id string) {
	for i := range r.Attrs {
		if r.Attrs[i].Name == AttrID {
			r.Attrs[i].Value = id
			return
		}
	}
}

// Catalog is the in-memory library database of one partition
type Catalog struct {
	Vocab Vocabulary

	// Prolog holds the raw XML declaration and anything before the root
	Prolog []byte

	RootAttrs      []Attr
	ContainerAttrs []Attr

	// Outer holds root children other than the container (body schema only)
	Outer []Record

	Items     []Item
	Records   []Record
	Playlists []Playlist
}

// RemoveItemsWithPath drops every item whose cleaned path equals p and
// returns how many were removed
func (c *Catalog) RemoveItemsWithPath(p string) int {
	kept := c.Items[:0]
	removed := 0
	for _, it := range c.Items {
		if path.Clean(it.Path) == p {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	c.Items = kept
	return removed
}
