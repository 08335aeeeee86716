// Package raw implements the single-field codec: every physical line is a
// row with one cell.
package raw

import (
	"bufio"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/NeoOrigin/flint-sub000/internal/codec"
	"github.com/NeoOrigin/flint-sub000/internal/table"
)

// Name is the registry name of the codec.
const Name = "raw"

// DefaultColumn names the single column when neither a header nor a
// "columns" setting provides one.
const DefaultColumn = "raw"

// LineEnding is the platform line terminator used when writing.
func LineEnding() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}
	return "\n"
}

// Format returns the registry entry for the codec.
func Format() codec.Format {
	return codec.Format{
		Name:     Name,
		Aliases:  []string{"lines", "single-field"},
		Defaults: codec.Settings{codec.KeyHeader: "false"},
		Keys:     []string{codec.KeyColumns},
		NewReader: func(r io.Reader, s codec.Settings) (codec.Reader, error) {
			return NewReader(r, s)
		},
		NewWriter: func(w io.Writer, s codec.Settings) (codec.Writer, error) {
			return NewWriter(w, s)
		},
	}
}

func columnOf(s codec.Settings) []string {
	if cols := s.List(codec.KeyColumns); len(cols) > 0 {
		return cols[:1]
	}
	return []string{DefaultColumn}
}

// Reader yields one single-cell row per line. A trailing "\r" is dropped.
type Reader struct {
	br      *bufio.Reader
	s       codec.Settings
	columns []string
}

// NewReader builds a Reader over r, consuming the header line when the
// header flag is set.
func NewReader(r io.Reader, s codec.Settings) (*Reader, error) {
	rd := &Reader{br: bufio.NewReader(r), s: s, columns: columnOf(s)}
	if s.Bool(codec.KeyHeader, false) {
		line, err := rd.line()
		switch {
		case err == io.EOF:
		case err != nil:
			return nil, err
		default:
			if !s.Has(codec.KeyColumns) {
				if n := codec.NormalizeName(line); n != "" {
					rd.columns = []string{n}
				}
			}
		}
	}
	return rd, nil
}

func (r *Reader) line() (string, error) {
	line, err := r.br.ReadString('\n')
	if err == io.EOF && line == "" {
		return "", io.EOF
	}
	if err != nil && err != io.EOF {
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}

func (r *Reader) Columns() []string        { return r.columns }
func (r *Reader) Settings() codec.Settings { return r.s }
func (r *Reader) Close() error             { return nil }

func (r *Reader) Read() (table.Row, error) {
	line, err := r.line()
	if err != nil {
		return nil, err
	}
	return table.Row{line}, nil
}

// Writer writes the single cell of each row followed by the platform line
// ending.
type Writer struct {
	bw      *bufio.Writer
	header  bool
	eol     string
	columns []string
	started bool
}

// NewWriter builds a Writer over w.
func NewWriter(w io.Writer, s codec.Settings) (*Writer, error) {
	return &Writer{
		bw:      bufio.NewWriter(w),
		header:  s.Bool(codec.KeyHeader, false),
		eol:     LineEnding(),
		columns: columnOf(s),
	}, nil
}

func (w *Writer) SetColumns(names []string) {
	if len(names) > 0 {
		w.columns = names[:1]
	}
}

func (w *Writer) start() error {
	if w.started {
		return nil
	}
	w.started = true
	if !w.header {
		return nil
	}
	return w.line(w.columns[0])
}

func (w *Writer) line(v string) error {
	if strings.ContainsAny(v, "\r\n") {
		return fmt.Errorf("raw: cell %q spans lines", v)
	}
	_, err := w.bw.WriteString(v + w.eol)
	return err
}

// Write writes row, which must hold at most one cell; an empty row is
// written as an empty line.
func (w *Writer) Write(row table.Row) error {
	if len(row) > 1 {
		return fmt.Errorf("%w: raw rows hold one cell, got %d", codec.ErrRowWidth, len(row))
	}
	if err := w.start(); err != nil {
		return err
	}
	return w.line(row.Cell(0))
}

func (w *Writer) Close() error {
	if err := w.start(); err != nil {
		return err
	}
	return w.bw.Flush()
}
