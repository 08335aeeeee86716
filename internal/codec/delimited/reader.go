package delimited

import (
	"io"
	"strconv"

	"github.com/NeoOrigin/flint-sub000/internal/codec"
	"github.com/NeoOrigin/flint-sub000/internal/table"
)

// Reader decodes delimited text.
type Reader struct {
	opt     Options
	s       codec.Settings
	columns []string
	next    func() ([]string, error)
}

// NewReader builds a Reader over r. When the header flag is set the first
// record is consumed immediately and becomes the column names; an explicit
// "columns" setting takes precedence over the header.
func NewReader(r io.Reader, s codec.Settings) (*Reader, error) {
	opt, err := OptionsFrom(s)
	if err != nil {
		return nil, err
	}
	rd := &Reader{opt: opt, s: s, next: newLexer(r, opt).read}

	if opt.HasHeader {
		head, err := rd.next()
		switch {
		case err == io.EOF:
		case err != nil:
			return nil, err
		default:
			rd.columns = headerNames(head)
		}
	}
	if len(opt.Columns) > 0 {
		rd.columns = append([]string(nil), opt.Columns...)
	}
	return rd, nil
}

// headerNames normalizes a header record; blank names are replaced with
// generated ones.
func headerNames(rec []string) []string {
	out := make([]string, len(rec))
	for i, h := range rec {
		out[i] = codec.NormalizeName(h)
		if out[i] == "" {
			out[i] = codec.GeneratedColumnPrefix + strconv.Itoa(i+1)
		}
	}
	return out
}

func (r *Reader) Columns() []string        { return r.columns }
func (r *Reader) Settings() codec.Settings { return r.s }
func (r *Reader) Close() error             { return nil }

// Read returns the next record. Blank lines are skipped.
func (r *Reader) Read() (table.Row, error) {
	rec, err := r.next()
	if err != nil {
		return nil, err
	}
	return table.Row(rec), nil
}
