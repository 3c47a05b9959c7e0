package playlist

import (
	"reflect"
	"testing"

	"github.com/Ning0612/prscatalog/internal/domain"
)

func TestRemoveAuto(t *testing.T) {
	cat := &domain.Catalog{Playlists: []domain.Playlist{
		{Title: "auto1"},
		{Title: "user", HasUUID: true, UUID: "x"},
		{Title: "empty marker", HasUUID: true},
		{Title: "auto2"},
	}}

	if removed := RemoveAuto(cat); removed != 2 {
		t.Errorf("RemoveAuto() = %d, want 2", removed)
	}
	if len(cat.Playlists) != 2 || cat.Playlists[0].Title != "user" || cat.Playlists[1].Title != "empty marker" {
		t.Errorf("unexpected playlists: %+v", cat.Playlists)
	}
}

func TestGroupName(t *testing.T) {
	tests := []struct {
		path, dest string
		want       string
		ok         bool
	}{
		{"docs/x.epub", "docs", "", true},
		{"docs/sub/z.epub", "docs", "sub", true},
		{"docs/a/b/c.pdf", "docs", "a/b", true},
		{"other/x.epub", "docs", "", false},
		{"x.epub", ".", "", true},
		{"a/x.epub", ".", "a", true},
	}
	for _, tt := range tests {
		got, ok := GroupName(tt.path, tt.dest)
		if got != tt.want || ok != tt.ok {
			t.Errorf("GroupName(%q, %q) = %q, %v; want %q, %v", tt.path, tt.dest, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSynthesize_GroupsByDirectory(t *testing.T) {
	cat := &domain.Catalog{Items: []domain.Item{
		{ID: "0", Path: "docs/sub/z.epub"},
		{ID: "1", Path: "docs/x.epub"},
		{ID: "2", Path: "elsewhere/w.epub"},
		{ID: "3", Path: "docs/y.epub"},
	}}

	last, created := Synthesize(cat, "docs", 1, 3)

	if last != 5 {
		t.Errorf("last id = %d, want 5", last)
	}
	if len(created) != 2 || len(cat.Playlists) != 2 {
		t.Fatalf("expected 2 playlists, got %+v", cat.Playlists)
	}

	root, sub := cat.Playlists[0], cat.Playlists[1]
	if root.Title != "" || root.ID != "4" || root.SourceID != "1" || !reflect.DeepEqual(root.Members, []string{"1", "3"}) {
		t.Errorf("unexpected root playlist: %+v", root)
	}
	if sub.Title != "sub" || sub.ID != "5" || !reflect.DeepEqual(sub.Members, []string{"0"}) {
		t.Errorf("unexpected sub playlist: %+v", sub)
	}
	if !root.IsAuto() || !sub.IsAuto() {
		t.Error("synthesized playlists must not carry a uuid marker")
	}
}

func TestSynthesize_NoGroups(t *testing.T) {
	cat := &domain.Catalog{Items: []domain.Item{{ID: "0", Path: "other/a.pdf"}}}

	last, created := Synthesize(cat, "docs", 1, 9)
	if last != 9 || len(created) != 0 {
		t.Errorf("expected nothing created and last unchanged, got %d, %+v", last, created)
	}
}

func TestGroups_SortedByName(t *testing.T) {
	cat := &domain.Catalog{Items: []domain.Item{
		{ID: "0", Path: "d/b/1.pdf"},
		{ID: "1", Path: "d/B/2.pdf"},
		{ID: "2", Path: "d/a/3.pdf"},
		{ID: "", Path: "d/c/unnumbered.pdf"},
	}}

	var names []string
	for _, g := range Groups(cat, "d") {
		names = append(names, g.Name)
	}
	if !reflect.DeepEqual(names, []string{"B", "a", "b"}) {
		t.Errorf("group order = %v, want byte order [B a b]", names)
	}
}
