package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/Ning0612/prscatalog/internal/catalog"
	"github.com/Ning0612/prscatalog/internal/domain"
	"github.com/Ning0612/prscatalog/internal/state"
	"github.com/Ning0612/prscatalog/internal/testutil"
)

const (
	bodyCatalog = "/body/database/cache/media.xml"
	msCatalog   = "/ms/Sony Reader/database/cache.xml"
	sdCatalog   = "/sd/Sony Reader/database/cache.xml"
)

const bodyXML = `<?xml version="1.0" encoding="UTF-8"?>
<xdbLite xmlns:cache="http://www.kinoma.com/FskCache/1">
  <records>
    <cache:text id="5" author="Zed" path="books/a.epub" title="A" date="Mon, 01 Jan 2024 00:00:00 UTC" mime="application/epub+zip" size="1"/>
    <cache:text id="6" author="" path="books/gone.pdf" title="gone" date="Mon, 01 Jan 2024 00:00:00 UTC" mime="application/pdf" size="1"/>
    <cache:playlist title="mine" sourceid="1" id="7" uuid="u-1">
      <cache:item id="5"/>
    </cache:playlist>
    <cache:playlist title="old" sourceid="1" id="8">
      <cache:item id="6"/>
    </cache:playlist>
  </records>
</xdbLite>
`

const emptyMediaXML = `<?xml version="1.0" encoding="UTF-8"?>
<cache>
</cache>
`

func setupDevice(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()

	testutil.WriteFile(t, fs, bodyCatalog, []byte(bodyXML))
	testutil.WriteFile(t, fs, msCatalog, []byte(emptyMediaXML))
	testutil.WriteFile(t, fs, sdCatalog, []byte(emptyMediaXML))

	testutil.WriteFiles(t, fs, "/body", map[string]string{
		"books/a.epub":                  "a",
		"books/[Jane Doe] New Book.pdf": "new book",
		"books/sub/c.lrf":               "c",
	})
	testutil.WriteFiles(t, fs, "/ms", map[string]string{"books/x.epub": "x"})
	testutil.WriteFiles(t, fs, "/sd", map[string]string{"books/y.pdf": "y"})
	return fs
}

func defaultOptions() Options {
	return Options{
		Partitions: map[domain.Role]string{
			domain.RoleBody:        "/body",
			domain.RoleMemoryStick: "/ms",
			domain.RoleSD:          "/sd",
		},
		Root: "books",
		Ops:  domain.NewOpSet(domain.DefaultOperations...),
	}
}

func load(t *testing.T, fs afero.Fs, path string, vocab domain.Vocabulary) *domain.Catalog {
	t.Helper()
	cat, err := catalog.Load(fs, path, vocab)
	if err != nil {
		t.Fatalf("catalog.Load(%s) error = %v", path, err)
	}
	return cat
}

func TestRun_FullPipeline(t *testing.T) {
	fs := setupDevice(t)
	svc := New(fs)

	result, err := svc.Run(context.Background(), defaultOptions())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.RunID == "" || len(result.Partitions) != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}

	body := result.Partitions[0]
	if body.Added != 2 || body.Removed != 1 || body.StaleRemoved != 1 {
		t.Errorf("body counts = added %d removed %d stale %d", body.Added, body.Removed, body.StaleRemoved)
	}
	if body.SourceID != 1 || body.LastID != 5 {
		t.Errorf("body source/last = %d/%d, want 1/5", body.SourceID, body.LastID)
	}

	cat := load(t, fs, bodyCatalog, domain.BodyVocabulary)
	wantItems := []struct{ id, path, author, title string }{
		{"0", "books/sub/c.lrf", "", ""},
		{"1", "books/[Jane Doe] New Book.pdf", "Jane Doe", "New Book"},
		{"2", "books/a.epub", "Zed", "A"},
	}
	if len(cat.Items) != len(wantItems) {
		t.Fatalf("body items = %+v", cat.Items)
	}
	for i, want := range wantItems {
		got := cat.Items[i]
		if got.ID != want.id || got.Path != want.path || got.Author != want.author || got.Title != want.title {
			t.Errorf("item %d = %+v, want %+v", i, got, want)
		}
	}

	wantPlaylists := []struct {
		id, title, source string
		members           string
	}{
		{"3", "mine", "1", "2"},
		{"4", "", "1", "1,2"},
		{"5", "sub", "1", "0"},
	}
	if len(cat.Playlists) != len(wantPlaylists) {
		t.Fatalf("body playlists = %+v", cat.Playlists)
	}
	for i, want := range wantPlaylists {
		got := cat.Playlists[i]
		if got.ID != want.id || got.Title != want.title || got.SourceID != want.source ||
			strings.Join(got.Members, ",") != want.members {
			t.Errorf("playlist %d = %+v, want %+v", i, got, want)
		}
	}

	ms := result.Partitions[1]
	if ms.SourceID != 6 || ms.LastID != 8 {
		t.Errorf("ms source/last = %d/%d, want 6/8", ms.SourceID, ms.LastID)
	}
	msCat := load(t, fs, msCatalog, domain.MediaVocabulary)
	if len(msCat.Items) != 1 || msCat.Items[0].ID != "7" {
		t.Errorf("ms items = %+v", msCat.Items)
	}
	if len(msCat.Playlists) != 1 || msCat.Playlists[0].SourceID != "6" || msCat.Playlists[0].ID != "8" {
		t.Errorf("ms playlists = %+v", msCat.Playlists)
	}

	sd := result.Partitions[2]
	if sd.SourceID != 9 || sd.LastID != 11 || result.LastID() != 11 {
		t.Errorf("sd source/last = %d/%d, want 9/11", sd.SourceID, sd.LastID)
	}

	if !testutil.Exists(t, fs, "/body/database/cache/media.unk") {
		t.Error("expected body backup to be written")
	}
}

func TestRun_Idempotent(t *testing.T) {
	fs := setupDevice(t)
	svc := New(fs)
	ctx := context.Background()

	if _, err := svc.Run(ctx, defaultOptions()); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	first := map[string]string{}
	for _, p := range []string{bodyCatalog, msCatalog, sdCatalog} {
		first[p] = testutil.ReadFile(t, fs, p)
	}

	result, err := svc.Run(ctx, defaultOptions())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	for p, want := range first {
		if got := testutil.ReadFile(t, fs, p); got != want {
			t.Errorf("%s changed on second run:\n%s\n---\n%s", p, want, got)
		}
		if got := testutil.ReadFile(t, fs, catalog.BackupPath(p)); got != want {
			t.Errorf("backup of %s should hold the first run output", p)
		}
	}
	if body := result.Partitions[0]; body.Added != 0 || body.Removed != 0 {
		t.Errorf("second run should find nothing to sync, got %+v", body)
	}
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	fs := setupDevice(t)
	testutil.WriteFiles(t, fs, "/incoming", map[string]string{"ms/[Ann Lee] Fresh.epub": "fresh"})
	opts := defaultOptions()
	opts.SyncFrom = "/incoming"
	opts.Ops = opts.Ops.Without(domain.OpSave, domain.OpCopy)

	result, err := New(fs).Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := testutil.ReadFile(t, fs, bodyCatalog); got != bodyXML {
		t.Errorf("body catalog was modified:\n%s", got)
	}
	if testutil.Exists(t, fs, "/body/database/cache/media.unk") {
		t.Error("dry run must not create a backup")
	}
	if testutil.Exists(t, fs, "/ms/books/[Ann Lee] Fresh.epub") {
		t.Error("dry run must not copy files onto the partition")
	}
	if ms := result.Partitions[1]; ms.Copied != 0 {
		t.Errorf("ms copied %d, want 0", ms.Copied)
	}
	if result.LastID() != 11 {
		t.Errorf("identifier threading should match a real run, got %d", result.LastID())
	}
}

func TestRun_DanglingPlaylistReferenceIsFatal(t *testing.T) {
	fs := setupDevice(t)
	dangling := strings.Replace(bodyXML, `<cache:item id="5"/>`, `<cache:item id="99"/>`, 1)
	testutil.WriteFile(t, fs, bodyCatalog, []byte(dangling))

	result, err := New(fs).Run(context.Background(), defaultOptions())
	if !errors.Is(err, domain.ErrUnmappedReference) {
		t.Fatalf("Run() error = %v, want ErrUnmappedReference", err)
	}
	var unmapped *domain.UnmappedReferenceError
	if !errors.As(err, &unmapped) || unmapped.ID != "99" || unmapped.Playlist != "mine" {
		t.Errorf("unexpected error detail: %v", err)
	}
	if len(result.Partitions) != 0 {
		t.Errorf("no partition should have completed, got %d", len(result.Partitions))
	}
	if got := testutil.ReadFile(t, fs, bodyCatalog); got != dangling {
		t.Error("catalog must not be written after an integrity failure")
	}
}

func TestRun_MissingCatalogIsParseError(t *testing.T) {
	fs := setupDevice(t)
	if err := fs.Remove(msCatalog); err != nil {
		t.Fatal(err)
	}

	_, err := New(fs).Run(context.Background(), defaultOptions())
	if !errors.Is(err, domain.ErrParse) {
		t.Errorf("Run() error = %v, want ErrParse", err)
	}
}

func TestRun_UnknownFileTypeIsFatal(t *testing.T) {
	fs := setupDevice(t)
	testutil.WriteFile(t, fs, "/sd/books/notes.txt", []byte("?"))

	_, err := New(fs).Run(context.Background(), defaultOptions())
	if !errors.Is(err, domain.ErrUnknownFileType) {
		t.Errorf("Run() error = %v, want ErrUnknownFileType", err)
	}
}

func TestRun_MissingPartitionPath(t *testing.T) {
	opts := defaultOptions()
	delete(opts.Partitions, domain.RoleSD)

	_, err := New(afero.NewMemMapFs()).Run(context.Background(), opts)
	if !errors.Is(err, domain.ErrConfigInvalid) {
		t.Errorf("Run() error = %v, want ErrConfigInvalid", err)
	}
}

func TestRun_GatedPartitionStillThreadsIdentifiers(t *testing.T) {
	fs := setupDevice(t)
	opts := defaultOptions()
	opts.Ops = opts.Ops.Without(domain.Operation(domain.RoleBody))

	result, err := New(fs).Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := testutil.ReadFile(t, fs, bodyCatalog); got != bodyXML {
		t.Error("a partition outside the set must not be written")
	}

	// body keeps its two items and its user playlist: ids 0..2
	body := result.Partitions[0]
	if body.Added != 0 || body.LastID != 2 {
		t.Errorf("body = %+v, want no sync and last id 2", body)
	}
	if ms := result.Partitions[1]; ms.SourceID != 3 {
		t.Errorf("ms source id = %d, want 3", ms.SourceID)
	}
}

func TestRun_WithoutRenumberReadsLastIDFromFile(t *testing.T) {
	fs := setupDevice(t)
	opts := defaultOptions()
	opts.Ops = domain.NewOpSet(domain.OpSort, domain.Operation(domain.RoleBody))

	result, err := New(fs).Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	body := result.Partitions[0]
	if body.Renumbered || body.LastID != 8 {
		t.Errorf("body = %+v, want last id 8 from file", body)
	}
	if len(body.Playlists) != 0 {
		t.Error("no playlists may be synthesized without renumbering")
	}
	if ms := result.Partitions[1]; ms.SourceID != 9 {
		t.Errorf("ms source id = %d, want 9", ms.SourceID)
	}
}

func TestRun_CopyBeforeSynchronize(t *testing.T) {
	fs := setupDevice(t)
	testutil.WriteFiles(t, fs, "/incoming", map[string]string{
		"ms/[Ann Lee] Fresh.epub": "fresh",
		"ms/x.epub":               "x",
	})
	opts := defaultOptions()
	opts.SyncFrom = "/incoming"

	result, err := New(fs).Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	ms := result.Partitions[1]
	if ms.Copied != 1 || ms.Added != 2 {
		t.Errorf("ms copied %d added %d, want 1 and 2", ms.Copied, ms.Added)
	}
	if got := testutil.ReadFile(t, fs, "/ms/books/[Ann Lee] Fresh.epub"); got != "fresh" {
		t.Errorf("copied content = %q", got)
	}
	if body := result.Partitions[0]; body.Copied != 0 {
		t.Errorf("missing body source should be skipped, copied %d", body.Copied)
	}
}

func TestRun_Cancelled(t *testing.T) {
	fs := setupDevice(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(fs).Run(ctx, defaultOptions())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRun_RecordsHistory(t *testing.T) {
	fs := setupDevice(t)
	history, err := state.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("state.NewManager() error = %v", err)
	}
	defer history.Close()

	svc := New(fs)
	svc.SetHistory(history)

	opts := defaultOptions()
	opts.Ops = opts.Ops.Without(domain.Operation(domain.RoleSD))
	result, err := svc.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	records, err := history.GetRun(result.RunID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].Partition != "body" || records[0].Added != 2 || records[0].LastID != 5 {
		t.Errorf("unexpected body record: %+v", records[0])
	}
	if records[2].Status != state.StatusSkipped {
		t.Errorf("sd status = %s, want skipped", records[2].Status)
	}

	again, err := svc.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	for i, want := range []string{result.RunID, result.RunID, ""} {
		if got := again.Partitions[i].PreviousRun; got != want {
			t.Errorf("partition %d previous run = %q, want %q", i, got, want)
		}
	}
}
