// Package catalog reads and writes the reader's XML library database.
//
// Decoding works on raw tokens so that namespace prefixes such as
// "cache:text" survive a round trip unchanged. Elements the package does not
// model are kept as raw bytes and written back verbatim.
package catalog

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/afero"

	"github.com/Ning0612/prscatalog/internal/domain"
)

// Load reads and parses the catalog at path using the given vocabulary
func Load(fs afero.Fs, path string, vocab domain.Vocabulary) (*domain.Catalog, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &domain.ParseError{Path: path, Err: domain.ErrNotFound}
		}
		return nil, &domain.ParseError{Path: path, Err: err}
	}

	cat, err := Parse(data, vocab)
	if err != nil {
		return nil, &domain.ParseError{Path: path, Err: err}
	}
	return cat, nil
}

// Parse decodes catalog XML
func Parse(data []byte, vocab domain.Vocabulary) (*domain.Catalog, error) {
	p := &parser{
		data: data,
		dec:  xml.NewDecoder(bytes.NewReader(data)),
	}
	cat := &domain.Catalog{Vocab: vocab}

	root, off, err := p.nextStart()
	if err != nil {
		if err == io.EOF {
			return nil, errors.New("no root element")
		}
		return nil, err
	}
	cat.Prolog = bytes.TrimSpace(data[:off])

	if qname(root.Name) != vocab.Root {
		return nil, fmt.Errorf("unexpected root element <%s>, want <%s>", qname(root.Name), vocab.Root)
	}
	cat.RootAttrs = convertAttrs(root.Attr)

	if vocab.Container == "" {
		if err := p.records(cat, vocab.Root); err != nil {
			return nil, err
		}
	} else {
		if err := p.rootChildren(cat); err != nil {
			return nil, err
		}
	}

	// Only whitespace, comments and processing instructions may follow the root
	for {
		tok, err := p.dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return nil, fmt.Errorf("unexpected element <%s> after root", qname(t.Name))
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return nil, errors.New("unexpected text after root")
			}
		}
	}

	return cat, nil
}

type parser struct {
	data []byte
	dec  *xml.Decoder
}

// nextStart returns the next start element and the input offset where it began
func (p *parser) nextStart() (xml.StartElement, int64, error) {
	for {
		off := p.dec.InputOffset()
		tok, err := p.dec.RawToken()
		if err != nil {
			return xml.StartElement{}, 0, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return t.Copy(), off, nil
		case xml.EndElement:
			return xml.StartElement{}, 0, fmt.Errorf("unexpected </%s>", qname(t.Name))
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return xml.StartElement{}, 0, errors.New("unexpected text before root")
			}
		}
	}
}

// rootChildren handles the body schema where records live in a container
func (p *parser) rootChildren(cat *domain.Catalog) error {
	vocab := cat.Vocab
	seen := false
	for {
		tok, err := p.dec.RawToken()
		if err != nil {
			return unexpectedEOF(err, vocab.Root)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if qname(t.Name) == vocab.Container && !seen {
				seen = true
				cat.ContainerAttrs = convertAttrs(t.Attr)
				if err := p.records(cat, vocab.Container); err != nil {
					return err
				}
				continue
			}
			rec, err := p.record(t)
			if err != nil {
				return err
			}
			cat.Outer = append(cat.Outer, rec)
		case xml.EndElement:
			if qname(t.Name) != vocab.Root {
				return fmt.Errorf("mismatched </%s>, want </%s>", qname(t.Name), vocab.Root)
			}
			if !seen {
				return fmt.Errorf("missing <%s> element", vocab.Container)
			}
			return nil
		}
	}
}

// records reads item, playlist and other children until the end of parent
func (p *parser) records(cat *domain.Catalog, parent string) error {
	vocab := cat.Vocab
	for {
		tok, err := p.dec.RawToken()
		if err != nil {
			return unexpectedEOF(err, parent)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch qname(t.Name) {
			case vocab.Item:
				item, err := parseItem(t)
				if err != nil {
					return err
				}
				if item.Inner, err = p.inner(vocab.Item); err != nil {
					return err
				}
				cat.Items = append(cat.Items, item)
			case vocab.Playlist:
				pl, err := p.playlist(t, vocab)
				if err != nil {
					return err
				}
				cat.Playlists = append(cat.Playlists, pl)
			default:
				rec, err := p.record(t)
				if err != nil {
					return err
				}
				cat.Records = append(cat.Records, rec)
			}
		case xml.EndElement:
			if qname(t.Name) != parent {
				return fmt.Errorf("mismatched </%s>, want </%s>", qname(t.Name), parent)
			}
			return nil
		}
	}
}

func parseItem(start xml.StartElement) (domain.Item, error) {
	var item domain.Item
	for _, a := range start.Attr {
		name := qname(a.Name)
		item.Order = append(item.Order, name)
		switch name {
		case domain.AttrID:
			item.ID = a.Value
		case domain.AttrAuthor:
			item.Author = a.Value
		case domain.AttrPath:
			item.Path = a.Value
		case domain.AttrTitle:
			item.Title = a.Value
		case domain.AttrDate:
			item.Date = a.Value
		case domain.AttrMIME:
			item.MIME = a.Value
		case domain.AttrSize:
			if a.Value == "" {
				item.Extra = append(item.Extra, domain.Attr{Name: name, Value: a.Value})
				continue
			}
			size, err := strconv.ParseInt(a.Value, 10, 64)
			if err != nil {
				return item, fmt.Errorf("item %q: invalid size %q", item.Path, a.Value)
			}
			item.Size = size
		default:
			item.Extra = append(item.Extra, domain.Attr{Name: name, Value: a.Value})
		}
	}
	return item, nil
}

func (p *parser) playlist(start xml.StartElement, vocab domain.Vocabulary) (domain.Playlist, error) {
	var pl domain.Playlist
	for _, a := range start.Attr {
		name := qname(a.Name)
		pl.Order = append(pl.Order, name)
		switch name {
		case domain.AttrID:
			pl.ID = a.Value
		case domain.AttrTitle:
			pl.Title = a.Value
		case domain.AttrSourceID:
			pl.SourceID = a.Value
		case domain.AttrUUID:
			pl.UUID = a.Value
			pl.HasUUID = true
		default:
			pl.Extra = append(pl.Extra, domain.Attr{Name: name, Value: a.Value})
		}
	}

	for {
		tok, err := p.dec.RawToken()
		if err != nil {
			return pl, unexpectedEOF(err, vocab.Playlist)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if qname(t.Name) != vocab.Member {
				rec, err := p.record(t)
				if err != nil {
					return pl, err
				}
				pl.Children = append(pl.Children, domain.PlaylistChild{Record: rec, At: len(pl.Members)})
				continue
			}
			for _, a := range t.Attr {
				if qname(a.Name) == domain.AttrID {
					pl.Members = append(pl.Members, a.Value)
				}
			}
			if _, err := p.inner(vocab.Member); err != nil {
				return pl, err
			}
		case xml.EndElement:
			if qname(t.Name) != vocab.Playlist {
				return pl, fmt.Errorf("mismatched </%s>, want </%s>", qname(t.Name), vocab.Playlist)
			}
			return pl, nil
		}
	}
}

// record captures an unmodelled element with its raw content
func (p *parser) record(start xml.StartElement) (domain.Record, error) {
	name := qname(start.Name)
	rec := domain.Record{Name: name, Attrs: convertAttrs(start.Attr)}

	inner, err := p.inner(name)
	if err != nil {
		return rec, err
	}
	rec.Inner = inner
	return rec, nil
}

// inner consumes tokens up to and including the end tag of name and returns
// the raw bytes between the start and end tags. Whitespace-only content is
// dropped.
func (p *parser) inner(name string) ([]byte, error) {
	innerStart := p.dec.InputOffset()
	depth := []string{name}
	for {
		off := p.dec.InputOffset()
		tok, err := p.dec.RawToken()
		if err != nil {
			return nil, unexpectedEOF(err, name)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth = append(depth, qname(t.Name))
		case xml.EndElement:
			top := depth[len(depth)-1]
			if qname(t.Name) != top {
				return nil, fmt.Errorf("mismatched </%s>, want </%s>", qname(t.Name), top)
			}
			depth = depth[:len(depth)-1]
			if len(depth) == 0 {
				raw := p.data[innerStart:off]
				if len(bytes.TrimSpace(raw)) == 0 {
					return nil, nil
				}
				return bytes.Clone(raw), nil
			}
		}
	}
}

// MaxID returns the largest numeric id attribute anywhere in the file.
// ok is false when the file carries no numeric id at all.
func MaxID(fs afero.Fs, path string) (maxID int, ok bool, err error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return 0, false, &domain.ParseError{Path: path, Err: err}
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			return maxID, ok, nil
		}
		if err != nil {
			return 0, false, &domain.ParseError{Path: path, Err: err}
		}
		start, isStart := tok.(xml.StartElement)
		if !isStart {
			continue
		}
		for _, a := range start.Attr {
			if qname(a.Name) != domain.AttrID {
				continue
			}
			id, convErr := strconv.Atoi(a.Value)
			if convErr != nil {
				continue
			}
			if !ok || id > maxID {
				maxID, ok = id, true
			}
		}
	}
}

func qname(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

func convertAttrs(attrs []xml.Attr) []domain.Attr {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]domain.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = domain.Attr{Name: qname(a.Name), Value: a.Value}
	}
	return out
}

func unexpectedEOF(err error, open string) error {
	if err == io.EOF {
		return fmt.Errorf("unexpected end of document inside <%s>", open)
	}
	return err
}
