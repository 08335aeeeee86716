// Package table holds the positional row primitives shared by codecs, the
// invocation channels and the output sink.
package table

// Row is an ordered sequence of string cells.
type Row []string

// Table is an ordered sequence of rows. A nil Table is a valid empty table.
type Table []Row

// Pair is a row read as a [name, value] parameter.
type Pair struct {
	Name  string
	Value string
}

// Clone returns a copy of r that shares no backing array with it.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// Cell returns the cell at idx, or "" when idx is out of range.
func (r Row) Cell(idx int) string {
	if idx < 0 || idx >= len(r) {
		return ""
	}
	return r[idx]
}

// Len reports the number of rows.
func (t Table) Len() int { return len(t) }

// Empty reports whether t has no rows.
func (t Table) Empty() bool { return len(t) == 0 }

// Width returns the length of the widest row.
func (t Table) Width() int {
	w := 0
	for _, r := range t {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// Clone deep-copies t.
func (t Table) Clone() Table {
	if t == nil {
		return nil
	}
	out := make(Table, len(t))
	for i, r := range t {
		out[i] = r.Clone()
	}
	return out
}

// Column extracts the cells at idx from every row. Rows that are too short
// contribute "".
func (t Table) Column(idx int) []string {
	out := make([]string, len(t))
	for i, r := range t {
		out[i] = r.Cell(idx)
	}
	return out
}

// Pairs reads every row as a [name, value] pair. Empty rows are skipped; a
// single-cell row yields an empty value and cells past the second are
// ignored.
func (t Table) Pairs() []Pair {
	out := make([]Pair, 0, len(t))
	for _, r := range t {
		if len(r) == 0 {
			continue
		}
		out = append(out, Pair{Name: r[0], Value: r.Cell(1)})
	}
	return out
}

// FromPairs builds a two-column table from pairs.
func FromPairs(pairs ...Pair) Table {
	out := make(Table, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, Row{p.Name, p.Value})
	}
	return out
}

// FromMap builds a two-column table from m following the order of keys.
// Keys missing from m are skipped.
func FromMap(m map[string]string, keys []string) Table {
	out := make(Table, 0, len(keys))
	for _, k := range keys {
		if v, ok := m[k]; ok {
			out = append(out, Row{k, v})
		}
	}
	return out
}
