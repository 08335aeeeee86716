package aggregate

import (
	"fmt"

	"github.com/NeoOrigin/flint-sub000/internal/codec"
)

// Diagnostic records a value that was not accepted.
type Diagnostic struct {
	Row     int
	Outcome Outcome
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("row %d: %s: %s", d.Row, d.Outcome.Status, d.Outcome.Reason)
}

// Report is the result of running an aggregator over a column.
type Report struct {
	Name        string
	Result      *string
	Accepted    int
	Diagnostics []Diagnostic
}

// Column feeds values to agg in order and collects a diagnostic for every
// skipped value and for the value that invalidated the accumulator. Values
// arriving after invalidation are not reported individually. The
// aggregator is not reset first.
func Column(agg Aggregator, values []*string) Report {
	rep := Report{Name: agg.Name()}
	invalid := false
	for i, v := range values {
		out := agg.Aggregate(v)
		switch out.Status {
		case Accepted:
			rep.Accepted++
		case Skipped:
			rep.Diagnostics = append(rep.Diagnostics, Diagnostic{Row: i, Outcome: out})
		case Invalidated:
			if !invalid {
				rep.Diagnostics = append(rep.Diagnostics, Diagnostic{Row: i, Outcome: out})
				invalid = true
			}
		}
	}
	rep.Result = agg.Result()
	return rep
}

// Values extracts column from records. A field the record lacks or one
// the reader mapped to null becomes nil.
func Values(records []codec.Record, column string) []*string {
	out := make([]*string, len(records))
	for i, rec := range records {
		out[i], _ = rec.Get(column)
	}
	return out
}
