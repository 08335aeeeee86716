package delimited

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/NeoOrigin/flint-sub000/internal/codec"
	"github.com/NeoOrigin/flint-sub000/internal/table"
)

// Writer encodes delimited text.
type Writer struct {
	opt     Options
	bw      *bufio.Writer
	cw      *csv.Writer // nil on the custom path
	columns []string
	started bool
}

// NewWriter builds a Writer over w.
func NewWriter(w io.Writer, s codec.Settings) (*Writer, error) {
	opt, err := OptionsFrom(s)
	if err != nil {
		return nil, err
	}
	wr := &Writer{opt: opt, bw: bufio.NewWriter(w), columns: opt.Columns}
	// csv.Writer rewrites line breaks inside quoted fields when UseCRLF is
	// set, so CRLF records take the custom path.
	if opt.standard() && opt.Separator == "\n" {
		wr.cw = csv.NewWriter(wr.bw)
		wr.cw.Comma = opt.Comma
	}
	return wr, nil
}

// SetColumns sets the header names when no "columns" setting was given.
func (w *Writer) SetColumns(names []string) {
	if len(w.opt.Columns) == 0 {
		w.columns = append([]string(nil), names...)
	}
}

// header writes the header record once. Without known names, generated ones
// matching the width of the first row are used so that a reader with the
// same settings does not mistake that row for a header.
func (w *Writer) header(width int) error {
	if w.started {
		return nil
	}
	w.started = true
	if !w.opt.HasHeader {
		return nil
	}
	names := w.columns
	if len(names) == 0 {
		if width == 0 {
			return nil
		}
		names = make([]string, width)
		for i := range names {
			names[i] = codec.GeneratedColumnPrefix + strconv.Itoa(i+1)
		}
	}
	return w.record(names)
}

// Write encodes one row.
func (w *Writer) Write(row table.Row) error {
	if err := w.header(len(row)); err != nil {
		return err
	}
	return w.record(row)
}

func (w *Writer) record(rec []string) error {
	if w.cw == nil {
		return w.custom(rec)
	}
	// encoding/csv writes a lone empty field as a blank line, which
	// readers skip.
	if len(rec) == 1 && rec[0] == "" {
		w.cw.Flush()
		if err := w.cw.Error(); err != nil {
			return err
		}
		_, err := w.bw.WriteString(`""` + w.opt.Separator)
		return err
	}
	return w.cw.Write(rec)
}

func (w *Writer) custom(rec []string) error {
	for i, f := range rec {
		if i > 0 {
			if _, err := w.bw.WriteRune(w.opt.Comma); err != nil {
				return err
			}
		}
		enc, err := w.field(f, len(rec) == 1)
		if err != nil {
			return err
		}
		if _, err := w.bw.WriteString(enc); err != nil {
			return err
		}
	}
	_, err := w.bw.WriteString(w.opt.Separator)
	return err
}

// field renders one field, quoting or escaping it when needed.
func (w *Writer) field(f string, only bool) (string, error) {
	if !w.needsQuotes(f, only) {
		return f, nil
	}
	o := w.opt
	if o.Quote == 0 {
		if o.Escape == 0 || f == "" || (o.TrimSpace && hasEdgeSpace(f)) {
			return "", fmt.Errorf("field %q cannot be written without a quote or escape character", f)
		}
		var b strings.Builder
		for _, r := range f {
			if r == o.Comma || r == o.Escape || r == '\r' || r == '\n' || strings.ContainsRune(o.Separator, r) {
				b.WriteRune(o.Escape)
			}
			b.WriteRune(r)
		}
		return b.String(), nil
	}

	var b strings.Builder
	b.WriteRune(o.Quote)
	for _, r := range f {
		switch {
		case o.Escape != 0 && (r == o.Quote || r == o.Escape):
			b.WriteRune(o.Escape)
		case o.Escape == 0 && r == o.Quote:
			b.WriteRune(o.Quote)
		}
		b.WriteRune(r)
	}
	b.WriteRune(o.Quote)
	return b.String(), nil
}

func (w *Writer) needsQuotes(f string, only bool) bool {
	o := w.opt
	if f == "" {
		return only
	}
	if o.TrimSpace && hasEdgeSpace(f) {
		return true
	}
	for _, r := range f {
		if r == o.Comma || r == o.Quote || r == '\r' || r == '\n' ||
			(o.Escape != 0 && r == o.Escape) || strings.ContainsRune(o.Separator, r) {
			return true
		}
	}
	return false
}

func hasEdgeSpace(f string) bool {
	first, last := []rune(f)[0], []rune(f)[len([]rune(f))-1]
	return unicode.IsSpace(first) || unicode.IsSpace(last)
}

// Close writes a pending header and flushes. It does not close the
// underlying stream.
func (w *Writer) Close() error {
	if err := w.header(0); err != nil {
		return err
	}
	if w.cw != nil {
		w.cw.Flush()
		if err := w.cw.Error(); err != nil {
			return err
		}
	}
	return w.bw.Flush()
}
