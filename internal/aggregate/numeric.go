package aggregate

import (
	"strings"

	"github.com/shopspring/decimal"
)

func parseNumber(v string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Sum adds numeric values. A null counts as zero when null-ignoring is on.
type Sum struct {
	base
	total decimal.Decimal
}

// NewSum returns an initialised Sum.
func NewSum(name string, nullIgnored bool) *Sum {
	s := &Sum{base: base{name: name, nullIgnored: nullIgnored}}
	s.Initialise()
	return s
}

func (s *Sum) Initialise() { s.Reset() }

func (s *Sum) Reset() {
	s.clear()
	s.total = decimal.Zero
}

func (s *Sum) Aggregate(v *string) Outcome {
	if out, done := s.admit(v); done {
		return out
	}
	if v == nil {
		return accepted()
	}
	d, ok := parseNumber(*v)
	if !ok {
		return skipped("not a number: %q", *v)
	}
	s.total = s.total.Add(d)
	return accepted()
}

func (s *Sum) Result() *string {
	return s.result(func() *string { return strPtr(s.total.String()) })
}

// Average divides the total by max(count, 1). A null ignored as zero still
// counts toward the divisor.
type Average struct {
	base
	total decimal.Decimal
	count int64
}

// NewAverage returns an initialised Average.
func NewAverage(name string, nullIgnored bool) *Average {
	a := &Average{base: base{name: name, nullIgnored: nullIgnored}}
	a.Initialise()
	return a
}

func (a *Average) Initialise() { a.Reset() }

func (a *Average) Reset() {
	a.clear()
	a.total = decimal.Zero
	a.count = 0
}

func (a *Average) Aggregate(v *string) Outcome {
	if out, done := a.admit(v); done {
		return out
	}
	if v == nil {
		a.count++
		return accepted()
	}
	d, ok := parseNumber(*v)
	if !ok {
		return skipped("not a number: %q", *v)
	}
	a.total = a.total.Add(d)
	a.count++
	return accepted()
}

func (a *Average) Result() *string {
	return a.result(func() *string {
		n := a.count
		if n < 1 {
			n = 1
		}
		return strPtr(a.total.Div(decimal.NewFromInt(n)).String())
	})
}

// extreme implements Min and Max. The first numeric value seeds it; the
// original text of the winning value is returned.
type extreme struct {
	base
	cur  *decimal.Decimal
	text string
	// keep reports whether candidate d should replace the current value.
	keep func(d, cur decimal.Decimal) bool
}

func (e *extreme) Initialise() { e.Reset() }

func (e *extreme) Reset() {
	e.clear()
	e.cur = nil
	e.text = ""
}

func (e *extreme) Aggregate(v *string) Outcome {
	if out, done := e.admit(v); done {
		return out
	}
	if v == nil {
		return skipped("null value ignored")
	}
	d, ok := parseNumber(*v)
	if !ok {
		return skipped("not a number: %q", *v)
	}
	if e.cur == nil || e.keep(d, *e.cur) {
		e.cur = &d
		e.text = strings.TrimSpace(*v)
	}
	return accepted()
}

func (e *extreme) Result() *string {
	return e.result(func() *string {
		if e.cur == nil {
			return nil
		}
		return strPtr(e.text)
	})
}

// Min keeps the smallest numeric value.
type Min struct{ extreme }

// NewMin returns an initialised Min.
func NewMin(name string, nullIgnored bool) *Min {
	m := &Min{extreme{
		base: base{name: name, nullIgnored: nullIgnored},
		keep: func(d, cur decimal.Decimal) bool { return d.LessThan(cur) },
	}}
	m.Initialise()
	return m
}

// Max keeps the largest numeric value.
type Max struct{ extreme }

// NewMax returns an initialised Max.
func NewMax(name string, nullIgnored bool) *Max {
	m := &Max{extreme{
		base: base{name: name, nullIgnored: nullIgnored},
		keep: func(d, cur decimal.Decimal) bool { return d.GreaterThan(cur) },
	}}
	m.Initialise()
	return m
}

// Count counts values. It increments for every non-null value and, when
// null-ignoring is on, for null values too. Unlike the other kinds a null
// never invalidates it: with null-ignoring off a null is simply not
// counted.
type Count struct {
	base
	n int64
}

// NewCount returns an initialised Count.
func NewCount(name string, nullIgnored bool) *Count {
	c := &Count{base: base{name: name, nullIgnored: nullIgnored}}
	c.Initialise()
	return c
}

func (c *Count) Initialise() { c.Reset() }

func (c *Count) Reset() {
	c.clear()
	c.n = 0
}

func (c *Count) Aggregate(v *string) Outcome {
	if c.invalid {
		return invalidated("accumulator is null")
	}
	if v != nil || c.nullIgnored {
		c.n++
		return accepted()
	}
	return skipped("null value not counted")
}

func (c *Count) Result() *string {
	return c.result(func() *string { return strPtr(decimal.NewFromInt(c.n).String()) })
}
