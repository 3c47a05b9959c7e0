package meta

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/Ning0612/prscatalog/internal/domain"
)

// DateLayout is the catalog's modification date format, always in UTC
const DateLayout = "Mon, 02 Jan 2006 15:04:05 UTC"

var (
	// authorTitle matches "[Author] Title"
	authorTitle = regexp.MustCompile(`^\[([^\]]+)\]\s*(.+)$`)

	// titleExt is the extension stripped from titles by the normalization phase
	titleExt = regexp.MustCompile(`\.\w{3,4}$`)
)

var mimeTypes = map[string]string{
	"pdf":  "application/pdf",
	"lrf":  "application/x-sony-bbeb",
	"epub": "application/epub+zip",
}

// MIMEType maps a file extension to the catalog's MIME type
func MIMEType(p string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
	if mime, ok := mimeTypes[ext]; ok {
		return mime, nil
	}
	return "", fmt.Errorf("%w: %s", domain.ErrUnknownFileType, p)
}

// AuthorTitle extracts author and title from a "[Author] Title" name.
// ok is false when the name does not follow the pattern.
func AuthorTitle(name string) (author, title string, ok bool) {
	m := authorTitle.FindStringSubmatch(name)
	if m == nil {
		return "", "", false
	}
	return norm.NFC.String(m[1]), norm.NFC.String(m[2]), true
}

// FromFilename derives author and title from the base name of p with the
// extension removed from the title
func FromFilename(p string) (author, title string, ok bool) {
	author, title, ok = AuthorTitle(path.Base(p))
	if !ok {
		return "", "", false
	}
	return author, titleExt.ReplaceAllString(title, ""), true
}

// FormatDate renders a modification time in the catalog format
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// NewItem builds a catalog entry for a file found on the partition.
// path is the partition-relative path of the file.
func NewItem(info domain.FileInfo) (domain.Item, error) {
	mime, err := MIMEType(info.Path)
	if err != nil {
		return domain.Item{}, err
	}
	author, title, _ := FromFilename(info.Path)
	return domain.Item{
		Path:   info.Path,
		Author: author,
		Title:  title,
		Date:   FormatDate(info.ModTime),
		MIME:   mime,
		Size:   info.Size,
	}, nil
}
