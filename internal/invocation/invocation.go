// Package invocation defines the channel-based request and response objects
// exchanged with an invoked process.
//
// An Input carries one table per named channel. Channels are never absent,
// only empty, and Channels always reports them in the same order. An Output
// is built by the invoker from the files the process wrote.
package invocation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/NeoOrigin/flint-sub000/internal/codec"
	"github.com/NeoOrigin/flint-sub000/internal/table"
)

// Channel names an Input or Output channel.
type Channel string

// Input channels, in their fixed order.
const (
	ChannelData          Channel = "data"
	ChannelDataStatus    Channel = "data_status"
	ChannelControl       Channel = "control"
	ChannelInherited     Channel = "inherited"
	ChannelDeclared      Channel = "declared"
	ChannelOptions       Channel = "options"
	ChannelTypeDefs      Channel = "type_definitions"
	ChannelTypeOverrides Channel = "type_overrides"
	ChannelArguments     Channel = "arguments"
)

// Output channels.
const (
	ChannelOutput     Channel = "output"
	ChannelStatus     Channel = "status"
	ChannelError      Channel = "error"
	ChannelReturnCode Channel = "return_code"
)

var inputOrder = []Channel{
	ChannelData,
	ChannelDataStatus,
	ChannelControl,
	ChannelInherited,
	ChannelDeclared,
	ChannelOptions,
	ChannelTypeDefs,
	ChannelTypeOverrides,
	ChannelArguments,
}

// Input is the request side of one invocation.
//
// Data holds the data rows and Columns the names declared for them.
// DataStatus holds statuses the caller already has for those rows, one
// [code, row, column, message] row each (see ParseStatus). Every other
// channel is a parameter channel whose rows are read as [name, value]
// pairs.
type Input struct {
	Columns       []string
	Data          table.Table
	DataStatus    table.Table
	Control       table.Table
	Inherited     table.Table
	Declared      table.Table
	Options       table.Table
	TypeDefs      table.Table
	TypeOverrides table.Table
	Arguments     table.Table
}

// NamedTable pairs a channel name with its rows.
type NamedTable struct {
	Name Channel
	Rows table.Table
}

// Channels returns every input channel in fixed order. Empty channels are
// included.
func (in *Input) Channels() []NamedTable {
	out := make([]NamedTable, 0, len(inputOrder))
	for _, c := range inputOrder {
		out = append(out, NamedTable{Name: c, Rows: in.Channel(c)})
	}
	return out
}

// Channel returns the rows of the named channel; unknown names yield nil.
func (in *Input) Channel(c Channel) table.Table {
	switch c {
	case ChannelData:
		return in.Data
	case ChannelDataStatus:
		return in.DataStatus
	case ChannelControl:
		return in.Control
	case ChannelInherited:
		return in.Inherited
	case ChannelDeclared:
		return in.Declared
	case ChannelOptions:
		return in.Options
	case ChannelTypeDefs:
		return in.TypeDefs
	case ChannelTypeOverrides:
		return in.TypeOverrides
	case ChannelArguments:
		return in.Arguments
	}
	return nil
}

// SetParam appends a [name, value] row to a parameter channel.
func (in *Input) SetParam(c Channel, name, value string) error {
	row := table.Row{name, value}
	switch c {
	case ChannelControl:
		in.Control = append(in.Control, row)
	case ChannelInherited:
		in.Inherited = append(in.Inherited, row)
	case ChannelDeclared:
		in.Declared = append(in.Declared, row)
	case ChannelOptions:
		in.Options = append(in.Options, row)
	case ChannelTypeDefs:
		in.TypeDefs = append(in.TypeDefs, row)
	case ChannelTypeOverrides:
		in.TypeOverrides = append(in.TypeOverrides, row)
	case ChannelArguments:
		in.Arguments = append(in.Arguments, row)
	default:
		return fmt.Errorf("invocation: %q is not a parameter channel", c)
	}
	return nil
}

// StatusCode classifies a cell status.
type StatusCode string

const (
	StatusOK      StatusCode = "ok"
	StatusSkipped StatusCode = "skipped"
	StatusError   StatusCode = "error"
)

// CellStatus reports the state of one cell, one row, or (when both
// coordinates are nil) the whole table.
type CellStatus struct {
	Code    StatusCode
	Row     *int
	Column  *int
	Message string
}

// WholeTable reports whether the status has no coordinate.
func (s CellStatus) WholeTable() bool { return s.Row == nil && s.Column == nil }

func (s CellStatus) String() string {
	switch {
	case s.WholeTable():
		return fmt.Sprintf("%s: %s", s.Code, s.Message)
	case s.Column == nil:
		return fmt.Sprintf("%s at row %d: %s", s.Code, *s.Row, s.Message)
	default:
		return fmt.Sprintf("%s at row %d col %d: %s", s.Code, deref(s.Row), *s.Column, s.Message)
	}
}

func deref(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}

// TableStatus builds a whole-table status.
func TableStatus(code StatusCode, msg string) CellStatus {
	return CellStatus{Code: code, Message: msg}
}

// RowStatus builds a status for one row.
func RowStatus(code StatusCode, row int, msg string) CellStatus {
	return CellStatus{Code: code, Row: &row, Message: msg}
}

// ParseStatus reads a data-status row laid out as [code, row, column,
// message]. Empty or missing coordinates are nil; the code is matched
// case-insensitively.
func ParseStatus(r table.Row) (CellStatus, error) {
	cell := func(i int) string {
		if i < len(r) {
			return strings.TrimSpace(r[i])
		}
		return ""
	}
	var s CellStatus
	switch code := StatusCode(strings.ToLower(cell(0))); code {
	case StatusOK, StatusSkipped, StatusError:
		s.Code = code
	default:
		return s, fmt.Errorf("invocation: unknown status code %q", cell(0))
	}
	for i, dst := range []**int{&s.Row, &s.Column} {
		v := cell(i + 1)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return s, fmt.Errorf("invocation: bad status coordinate %q", v)
		}
		*dst = &n
	}
	if len(r) > 3 {
		s.Message = r[3]
	}
	return s, nil
}

// Stream describes how one output stream was decoded.
type Stream struct {
	Format      string
	Compression string
	Path        string
}

// Output is the response side of one invocation.
type Output struct {
	Columns []string
	Data    table.Table
	// Records is Data keyed by column name. Cells equal to the output
	// codec's null marker are nil and cells past the header get generated
	// names.
	Records      []codec.Record
	Statuses     []CellStatus
	ErrorColumns []string
	Errors       table.Table
	ReturnCode   table.Table

	// Stdout and Stderr hold the captured process streams.
	Stdout string
	Stderr string

	OutputStream Stream
	ErrorStream  Stream
}

// NewOutput returns an Output whose return-code channel holds exit.
func NewOutput(exit int) *Output {
	return &Output{ReturnCode: table.Table{{strconv.Itoa(exit)}}}
}

// ExitCode parses the return-code channel. It returns -1 when the channel
// is empty or not numeric.
func (o *Output) ExitCode() int {
	if len(o.ReturnCode) == 0 || len(o.ReturnCode[0]) == 0 {
		return -1
	}
	n, err := strconv.Atoi(o.ReturnCode[0][0])
	if err != nil {
		return -1
	}
	return n
}

// AddStatus appends a cell status.
func (o *Output) AddStatus(s CellStatus) { o.Statuses = append(o.Statuses, s) }

// ColumnIndex finds name among the decoded output columns.
func (o *Output) ColumnIndex(name string) int {
	for i, c := range o.Columns {
		if c == name {
			return i
		}
	}
	return -1
}
