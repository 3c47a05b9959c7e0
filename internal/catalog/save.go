package catalog

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/spf13/afero"

	"github.com/Ning0612/prscatalog/internal/domain"
)

// BackupExt replaces the catalog's extension when it is backed up
const BackupExt = ".unk"

const indent = "  "

var extPattern = regexp.MustCompile(`\.\w+$`)

// BackupPath returns the name the previous catalog is moved to before a save
func BackupPath(path string) string {
	if extPattern.MatchString(path) {
		return extPattern.ReplaceAllString(path, BackupExt)
	}
	return path + BackupExt
}

// Backup moves the file at path to its backup name, replacing any older
// backup. A missing file is not an error.
func Backup(fs afero.Fs, path string) error {
	if _, err := fs.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	backup := BackupPath(path)
	if err := fs.Remove(backup); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove old backup %s: %w", backup, err)
	}
	if err := fs.Rename(path, backup); err != nil {
		return fmt.Errorf("failed to back up %s: %w", path, err)
	}
	return nil
}

// Save serializes the catalog, backs up the existing file and writes the
// new content in its place
func Save(fs afero.Fs, cat *domain.Catalog, path string) error {
	var buf bytes.Buffer
	if err := Encode(&buf, cat); err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}

	if err := Backup(fs, path); err != nil {
		return err
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create catalog dir: %w", err)
	}
	if err := afero.WriteFile(fs, path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write catalog %s: %w", path, err)
	}
	return nil
}

// Encode writes the catalog as indented XML. Output is a pure function of
// the catalog so unchanged catalogs serialize to identical bytes.
func Encode(w io.Writer, cat *domain.Catalog) error {
	e := &encoder{w: w}
	vocab := cat.Vocab

	if len(cat.Prolog) > 0 {
		e.raw(cat.Prolog)
		e.str("\n")
	}

	e.open(0, vocab.Root, cat.RootAttrs)
	level := 1
	if vocab.Container != "" {
		for _, rec := range cat.Outer {
			e.record(1, rec)
		}
		e.open(1, vocab.Container, cat.ContainerAttrs)
		level = 2
	}

	for _, item := range cat.Items {
		e.record(level, domain.Record{Name: vocab.Item, Attrs: itemAttrs(item), Inner: item.Inner})
	}
	for _, rec := range cat.Records {
		e.record(level, rec)
	}
	for _, pl := range cat.Playlists {
		e.playlist(level, vocab, pl)
	}

	if vocab.Container != "" {
		e.close(1, vocab.Container)
	}
	e.close(0, vocab.Root)
	return e.err
}

// itemAttrs replays the loaded attribute order. A loaded item only gains a
// standard attribute it lacked when that attribute now has a value; a new
// item gets the full set.
func itemAttrs(item domain.Item) []domain.Attr {
	known := map[string]string{
		domain.AttrID:     item.ID,
		domain.AttrAuthor: item.Author,
		domain.AttrPath:   item.Path,
		domain.AttrTitle:  item.Title,
		domain.AttrDate:   item.Date,
		domain.AttrMIME:   item.MIME,
		domain.AttrSize:   strconv.FormatInt(item.Size, 10),
	}
	canonical := []string{
		domain.AttrID, domain.AttrAuthor, domain.AttrPath, domain.AttrTitle,
		domain.AttrDate, domain.AttrMIME, domain.AttrSize,
	}
	if len(item.Order) > 0 && item.Size == 0 && !contains(item.Order, domain.AttrSize) {
		delete(known, domain.AttrSize)
	}
	return orderedAttrs(item.Order, canonical, known, item.Extra)
}

func playlistAttrs(pl domain.Playlist) []domain.Attr {
	known := map[string]string{
		domain.AttrTitle:    pl.Title,
		domain.AttrSourceID: pl.SourceID,
		domain.AttrID:       pl.ID,
	}
	canonical := []string{domain.AttrTitle, domain.AttrSourceID, domain.AttrID}
	if pl.HasUUID {
		known[domain.AttrUUID] = pl.UUID
		canonical = append(canonical, domain.AttrUUID)
	}
	return orderedAttrs(pl.Order, canonical, known, pl.Extra)
}

func orderedAttrs(order, canonical []string, known map[string]string, extra []domain.Attr) []domain.Attr {
	extras := make(map[string]string, len(extra))
	for _, a := range extra {
		extras[a.Name] = a.Value
	}

	out := make([]domain.Attr, 0, len(canonical)+len(extra))
	done := make(map[string]bool, len(order))
	for _, name := range order {
		if done[name] {
			continue
		}
		if v, ok := extras[name]; ok {
			out = append(out, domain.Attr{Name: name, Value: v})
			done[name] = true
		} else if v, ok := known[name]; ok {
			out = append(out, domain.Attr{Name: name, Value: v})
			done[name] = true
		}
	}
	loaded := len(order) > 0
	for _, name := range canonical {
		v, ok := known[name]
		if done[name] || !ok || (loaded && v == "") {
			continue
		}
		out = append(out, domain.Attr{Name: name, Value: v})
		done[name] = true
	}
	for _, a := range extra {
		if !done[a.Name] {
			out = append(out, a)
			done[a.Name] = true
		}
	}
	return out
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// encoder writes indented XML and remembers the first error
type encoder struct {
	w   io.Writer
	err error
}

func (e *encoder) str(s string) {
	if e.err == nil {
		_, e.err = io.WriteString(e.w, s)
	}
}

func (e *encoder) raw(b []byte) {
	if e.err == nil {
		_, e.err = e.w.Write(b)
	}
}

func (e *encoder) pad(level int) {
	for i := 0; i < level; i++ {
		e.str(indent)
	}
}

func (e *encoder) tag(name string, attrs []domain.Attr) {
	e.str("<")
	e.str(name)
	for _, a := range attrs {
		e.str(" ")
		e.str(a.Name)
		e.str(`="`)
		if e.err == nil {
			e.err = xml.EscapeText(e.w, []byte(a.Value))
		}
		e.str(`"`)
	}
}

func (e *encoder) open(level int, name string, attrs []domain.Attr) {
	e.pad(level)
	e.tag(name, attrs)
	e.str(">\n")
}

func (e *encoder) empty(level int, name string, attrs []domain.Attr) {
	e.pad(level)
	e.tag(name, attrs)
	e.str("/>\n")
}

func (e *encoder) close(level int, name string) {
	e.pad(level)
	e.str("</")
	e.str(name)
	e.str(">\n")
}

// playlist writes members and the other children in their loaded order
func (e *encoder) playlist(level int, vocab domain.Vocabulary, pl domain.Playlist) {
	attrs := playlistAttrs(pl)
	if len(pl.Members) == 0 && len(pl.Children) == 0 {
		e.empty(level, vocab.Playlist, attrs)
		return
	}

	e.open(level, vocab.Playlist, attrs)
	next := 0
	children := func(upTo int) {
		for next < len(pl.Children) && pl.Children[next].At <= upTo {
			e.record(level+1, pl.Children[next].Record)
			next++
		}
	}
	for i, id := range pl.Members {
		children(i)
		e.empty(level+1, vocab.Member, []domain.Attr{{Name: domain.AttrID, Value: id}})
	}
	children(len(pl.Members))
	e.close(level, vocab.Playlist)
}

func (e *encoder) record(level int, rec domain.Record) {
	if len(rec.Inner) == 0 {
		e.empty(level, rec.Name, rec.Attrs)
		return
	}
	e.pad(level)
	e.tag(rec.Name, rec.Attrs)
	e.str(">")
	e.raw(rec.Inner)
	e.str("</")
	e.str(rec.Name)
	e.str(">\n")
}
