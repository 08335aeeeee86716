// Package prefixed implements the key=value codec used for control files
// and parameter dumps. Each line holds one [name, value] row; blank lines
// and lines starting with '#' are ignored. An optional prefix selects the
// lines that belong to the stream and is stripped from the key.
package prefixed

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/NeoOrigin/flint-sub000/internal/codec"
	"github.com/NeoOrigin/flint-sub000/internal/table"
)

// Name is the registry name of the codec.
const Name = "prefixed"

// Columns are the fixed column names of the codec.
var Columns = []string{"name", "value"}

// Format returns the registry entry for the codec.
func Format() codec.Format {
	return codec.Format{
		Name:    Name,
		Aliases: []string{"key-value", "properties"},
		Keys:    []string{codec.KeyPrefix},
		NewReader: func(r io.Reader, s codec.Settings) (codec.Reader, error) {
			return NewReader(r, s)
		},
		NewWriter: func(w io.Writer, s codec.Settings) (codec.Writer, error) {
			return NewWriter(w, s)
		},
	}
}

type options struct {
	prefix string
	delim  string
}

func optionsFrom(s codec.Settings) (options, error) {
	o := options{
		prefix: s.String(codec.KeyPrefix, ""),
		delim:  s.Text(codec.KeyDelimiter, "="),
	}
	if o.delim == "" || strings.ContainsAny(o.delim, "\r\n") {
		return o, fmt.Errorf("invalid delimiter %q", o.delim)
	}
	return o, nil
}

// Reader decodes key=value lines.
type Reader struct {
	br  *bufio.Reader
	s   codec.Settings
	opt options
}

// NewReader builds a Reader over r.
func NewReader(r io.Reader, s codec.Settings) (*Reader, error) {
	opt, err := optionsFrom(s)
	if err != nil {
		return nil, err
	}
	return &Reader{br: bufio.NewReader(r), s: s, opt: opt}, nil
}

func (r *Reader) Columns() []string        { return Columns }
func (r *Reader) Settings() codec.Settings { return r.s }
func (r *Reader) Close() error             { return nil }

// Read returns the next [name, value] row. A line without the delimiter
// yields an empty value. Prefix matching ignores case.
func (r *Reader) Read() (table.Row, error) {
	for {
		line, err := r.br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		if err == io.EOF && line == "" {
			return nil, io.EOF
		}
		line = strings.TrimLeft(strings.TrimRight(line, "\r\n"), " \t")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if p := r.opt.prefix; p != "" {
			if len(line) < len(p) || !strings.EqualFold(line[:len(p)], p) {
				continue
			}
			line = line[len(p):]
		}
		key, value, _ := strings.Cut(line, r.opt.delim)
		return table.Row{strings.TrimSpace(key), value}, nil
	}
}

// Writer encodes rows as key=value lines.
type Writer struct {
	bw  *bufio.Writer
	opt options
}

// NewWriter builds a Writer over w.
func NewWriter(w io.Writer, s codec.Settings) (*Writer, error) {
	opt, err := optionsFrom(s)
	if err != nil {
		return nil, err
	}
	return &Writer{bw: bufio.NewWriter(w), opt: opt}, nil
}

// SetColumns is a no-op: the column names are fixed.
func (w *Writer) SetColumns([]string) {}

// Write encodes a row of at most two cells.
func (w *Writer) Write(row table.Row) error {
	if len(row) > 2 {
		return fmt.Errorf("%w: prefixed rows hold a name and a value, got %d cells", codec.ErrRowWidth, len(row))
	}
	key, value := row.Cell(0), row.Cell(1)
	switch {
	case key != strings.TrimSpace(key),
		strings.Contains(key, w.opt.delim),
		strings.HasPrefix(key, "#"),
		strings.ContainsAny(key, "\r\n"):
		return fmt.Errorf("prefixed: key %q cannot be encoded", key)
	case strings.ContainsAny(value, "\r\n"):
		return fmt.Errorf("prefixed: value of %q spans lines", key)
	}
	_, err := w.bw.WriteString(w.opt.prefix + key + w.opt.delim + value + "\n")
	return err
}

func (w *Writer) Close() error { return w.bw.Flush() }
