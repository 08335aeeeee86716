// Package markup implements the read-only HTML table codec. The document is
// parsed with golang.org/x/net/html and the rows of one <table> element are
// returned, with the text of every cell whitespace-collapsed.
package markup

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/NeoOrigin/flint-sub000/internal/codec"
	"github.com/NeoOrigin/flint-sub000/internal/table"
)

// Name is the registry name of the codec.
const Name = "markup"

// Format returns the registry entry for the codec. It has no writer.
func Format() codec.Format {
	return codec.Format{
		Name:    Name,
		Aliases: []string{"html"},
		Keys:    []string{codec.KeyTable, codec.KeyColumns},
		NewReader: func(r io.Reader, s codec.Settings) (codec.Reader, error) {
			return NewReader(r, s)
		},
	}
}

// Reader serves the rows of one table of a parsed document.
type Reader struct {
	s       codec.Settings
	columns []string
	rows    table.Table
	pos     int
}

// NewReader parses the whole document from r and selects a table. The
// "table" setting is either a zero-based index over all tables in document
// order or the id attribute of the table. The first row becomes the column
// names when it is made of <th> cells only, or when the header flag is set.
func NewReader(r io.Reader, s codec.Settings) (*Reader, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	sel := strings.TrimSpace(s.String(codec.KeyTable, "0"))
	tbl := findTable(doc, sel)
	if tbl == nil {
		return nil, fmt.Errorf("table %q not found", sel)
	}

	rd := &Reader{s: s}
	for i, tr := range rowsOf(tbl) {
		row, allTH := cellsOf(tr)
		if i == 0 && (allTH || s.Bool(codec.KeyHeader, false)) {
			rd.columns = make([]string, len(row))
			for j, c := range row {
				rd.columns[j] = codec.NormalizeName(c)
			}
			continue
		}
		rd.rows = append(rd.rows, row)
	}
	if cols := s.List(codec.KeyColumns); len(cols) > 0 {
		rd.columns = cols
	}
	return rd, nil
}

func (r *Reader) Columns() []string        { return r.columns }
func (r *Reader) Settings() codec.Settings { return r.s }
func (r *Reader) Close() error             { return nil }

func (r *Reader) Read() (table.Row, error) {
	if r.pos >= len(r.rows) {
		return nil, io.EOF
	}
	row := r.rows[r.pos]
	r.pos++
	return row, nil
}

// findTable walks the tree in document order.
func findTable(doc *html.Node, sel string) *html.Node {
	idx, err := strconv.Atoi(sel)
	byIndex := err == nil
	n := 0
	var found *html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if found != nil {
			return
		}
		if node.Type == html.ElementNode && node.DataAtom == atom.Table {
			if byIndex && n == idx || !byIndex && attr(node, "id") == sel {
				found = node
				return
			}
			n++
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return found
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// rowsOf returns the <tr> elements that belong to tbl itself, looking
// through thead/tbody/tfoot but not into nested tables.
func rowsOf(tbl *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Tr:
				out = append(out, c)
			case atom.Thead, atom.Tbody, atom.Tfoot:
				walk(c)
			}
		}
	}
	walk(tbl)
	return out
}

// cellsOf extracts the text of each td/th of tr and reports whether every
// cell was a th.
func cellsOf(tr *html.Node) (table.Row, bool) {
	var row table.Row
	allTH := true
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.DataAtom != atom.Td && c.DataAtom != atom.Th) {
			continue
		}
		if c.DataAtom != atom.Th {
			allTH = false
		}
		var b strings.Builder
		text(c, &b)
		row = append(row, collapseSpace(b.String()))
	}
	return row, allTH && len(row) > 0
}

// text gathers the text below n, skipping nested tables.
func text(n *html.Node, b *strings.Builder) {
	switch {
	case n.Type == html.TextNode:
		b.WriteString(n.Data)
	case n.Type == html.ElementNode && n.DataAtom == atom.Br:
		b.WriteByte(' ')
	case n.Type == html.ElementNode && n.DataAtom == atom.Table:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		text(c, b)
	}
}

// collapseSpace replaces runs of whitespace (including no-break spaces)
// with one ASCII space and trims both ends.
func collapseSpace(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	seenSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !seenSpace {
				b.WriteByte(' ')
				seenSpace = true
			}
			continue
		}
		b.WriteRune(r)
		seenSpace = false
	}
	return strings.TrimSpace(b.String())
}
