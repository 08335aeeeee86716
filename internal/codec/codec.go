// Package codec defines the pluggable tabular formats used on both sides of
// the process boundary.
//
// A Reader produces rows until io.EOF; a Writer accepts rows and must be
// closed before the underlying file is considered complete. Formats are
// looked up by name in a Registry, which resolves settings (presets, text
// encoding) before handing the stream to the format's factory.
//
// The package also hosts the column aligner used to reconcile loosely
// shaped rows with declared column names.
package codec

import (
	"errors"
	"io"
	"strconv"

	"github.com/NeoOrigin/flint-sub000/internal/table"
)

var (
	// ErrUnknownFormat is returned for a format name nobody registered.
	ErrUnknownFormat = errors.New("codec: unknown format")
	// ErrReadOnly is returned when a writer is requested from a format that
	// can only be read.
	ErrReadOnly = errors.New("codec: format is read-only")
	// ErrWriteOnly is returned when a reader is requested from a format that
	// can only be written.
	ErrWriteOnly = errors.New("codec: format is write-only")
	// ErrRegistrySealed is returned by Register after Seal.
	ErrRegistrySealed = errors.New("codec: registry is sealed")
	// ErrUnknownPreset is returned for an unknown "format" settings value.
	ErrUnknownPreset = errors.New("codec: unknown preset")
	// ErrColumnNotFound is returned by Align when a declared column has no
	// matching value.
	ErrColumnNotFound = errors.New("codec: column not found")
	// ErrRowWidth is returned by writers that cannot encode a row's width.
	ErrRowWidth = errors.New("codec: unsupported row width")
)

// Reader decodes rows from a stream.
type Reader interface {
	// Columns returns the declared column names. For formats with a header
	// flag they are known once the first Read (or construction) has consumed
	// the header row.
	Columns() []string
	// Settings returns the resolved settings the reader was built with.
	Settings() Settings
	// Read returns the next row, or io.EOF at the end of the stream.
	Read() (table.Row, error)
	Close() error
}

// Writer encodes rows to a stream.
type Writer interface {
	// SetColumns suggests column names; formats with a header flag emit
	// them before the first row.
	SetColumns(names []string)
	Write(row table.Row) error
	// Close flushes buffered output. Bytes are complete only after Close.
	Close() error
}

// GeneratedColumnPrefix prefixes names synthesized for unnamed columns.
const GeneratedColumnPrefix = "column_"

// Field is one named, nullable value of a Record.
type Field struct {
	Name  string
	Value *string
}

// Record is the name-mapped view of a row, in column order.
type Record []Field

// Get finds the value stored under name.
func (r Record) Get(name string) (*string, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Names returns the field names in order.
func (r Record) Names() []string {
	out := make([]string, len(r))
	for i, f := range r {
		out[i] = f.Name
	}
	return out
}

// Values returns the field values in order.
func (r Record) Values() []*string {
	out := make([]*string, len(r))
	for i, f := range r {
		out[i] = f.Value
	}
	return out
}

// MakeRecord maps row onto columns. Column names are padded with generated
// names when the row is wider; missing cells become nil. A cell equal to
// the null marker (when hasNull) becomes nil. No value is ever dropped.
func MakeRecord(columns []string, row table.Row, null string, hasNull bool) Record {
	names := MatchLengthOf(columns, len(row), GeneratedColumnPrefix, true, false)
	rec := make(Record, len(names))
	for i, n := range names {
		rec[i].Name = n
		if i >= len(row) {
			continue
		}
		if hasNull && row[i] == null {
			continue
		}
		v := row[i]
		rec[i].Value = &v
	}
	return rec
}

// NextRecord reads one row from r and returns it together with its
// name-mapped view.
func NextRecord(r Reader) (table.Row, Record, error) {
	row, err := r.Read()
	if err != nil {
		return nil, nil, err
	}
	null, hasNull := r.Settings().Get(KeyNull)
	return row, MakeRecord(r.Columns(), row, null, hasNull), nil
}

// ReadAll drains r. Rows read before an error are returned with it.
func ReadAll(r Reader) (table.Table, error) {
	var out table.Table
	for {
		row, err := r.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, row)
	}
}

// WriteAll suggests columns to w and writes every row. It does not close w.
func WriteAll(w Writer, columns []string, rows table.Table) error {
	if len(columns) > 0 {
		w.SetColumns(columns)
	}
	for i, row := range rows {
		if err := w.Write(row); err != nil {
			return &RowError{Row: i, Err: err}
		}
	}
	return nil
}

// RowError attaches a zero-based row index to a codec error.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string { return "row " + strconv.Itoa(e.Row) + ": " + e.Err.Error() }

func (e *RowError) Unwrap() error { return e.Err }
