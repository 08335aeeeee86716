// Package aggregate provides stateful reducers over a column of nullable
// cell values: sum, average, min, max, count, concatenate, digest and a
// pass-through "value" kind.
//
// Every aggregator shares the same null policy. With null-ignoring off, a
// nil input invalidates the accumulator permanently and Result returns nil
// until Reset. Count is the exception (see Count).
//
// Numeric kinds use exact decimal arithmetic; input that does not parse as
// a number is skipped and leaves the accumulator unchanged.
package aggregate

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownKind is returned by New for an unregistered aggregator kind.
var ErrUnknownKind = errors.New("aggregate: unknown kind")

// Status classifies what Aggregate did with one value.
type Status int

const (
	// Accepted means the value changed (or was folded into) the accumulator.
	Accepted Status = iota
	// Skipped means the value was ignored, e.g. non-numeric input.
	Skipped
	// Invalidated means the accumulator is null from now on.
	Invalidated
)

func (s Status) String() string {
	switch s {
	case Accepted:
		return "accepted"
	case Skipped:
		return "skipped"
	case Invalidated:
		return "invalidated"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Outcome is the per-value result of Aggregate.
type Outcome struct {
	Status Status
	Reason string
}

func accepted() Outcome { return Outcome{Status: Accepted} }

func skipped(format string, args ...any) Outcome {
	return Outcome{Status: Skipped, Reason: fmt.Sprintf(format, args...)}
}

func invalidated(reason string) Outcome { return Outcome{Status: Invalidated, Reason: reason} }

// Aggregator reduces a sequence of nullable values to one result.
type Aggregator interface {
	Name() string
	NullIgnored() bool
	// Initialise prepares the accumulator for a first run.
	Initialise()
	// Reset returns the accumulator to its initial state.
	Reset()
	// Aggregate folds one value (nil = null) into the accumulator.
	Aggregate(v *string) Outcome
	// Result returns the current result, nil when null.
	Result() *string
	// SetResult overrides the result explicitly. The override is latched:
	// later Aggregate calls still fold into the accumulator, but Result
	// returns v until Reset or Initialise clears it.
	SetResult(v *string)
}

// Option tunes an aggregator built by New.
type Option func(*options)

type options struct {
	nullIgnored bool
	separator   string
	algorithm   string
}

// NullIgnored sets the null-ignore flag.
func NullIgnored(on bool) Option { return func(o *options) { o.nullIgnored = on } }

// Separator sets the text placed between values by concatenate.
func Separator(sep string) Option { return func(o *options) { o.separator = sep } }

// Algorithm selects the digest hash (see Algorithms).
func Algorithm(name string) Option { return func(o *options) { o.algorithm = name } }

type factory func(name string, o options) (Aggregator, error)

var kinds = map[string]factory{
	"sum":         func(n string, o options) (Aggregator, error) { return NewSum(n, o.nullIgnored), nil },
	"average":     func(n string, o options) (Aggregator, error) { return NewAverage(n, o.nullIgnored), nil },
	"min":         func(n string, o options) (Aggregator, error) { return NewMin(n, o.nullIgnored), nil },
	"max":         func(n string, o options) (Aggregator, error) { return NewMax(n, o.nullIgnored), nil },
	"count":       func(n string, o options) (Aggregator, error) { return NewCount(n, o.nullIgnored), nil },
	"concatenate": func(n string, o options) (Aggregator, error) { return NewConcat(n, o.nullIgnored, o.separator), nil },
	"digest": func(n string, o options) (Aggregator, error) {
		return NewDigest(n, o.nullIgnored, o.algorithm)
	},
	"value": func(n string, o options) (Aggregator, error) { return NewValue(n, o.nullIgnored), nil },
}

var kindAliases = map[string]string{
	"avg":    "average",
	"mean":   "average",
	"concat": "concatenate",
	"hash":   "digest",
	"noop":   "value",
	"no-op":  "value",
}

// Kinds lists the canonical aggregator kinds.
func Kinds() []string {
	out := make([]string, 0, len(kinds))
	for k := range kinds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New builds an aggregator of the given kind (case-insensitive, aliases
// accepted) and calls Initialise on it.
func New(kind, name string, opts ...Option) (Aggregator, error) {
	k := strings.ToLower(strings.TrimSpace(kind))
	if a, ok := kindAliases[k]; ok {
		k = a
	}
	f, ok := kinds[k]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	agg, err := f(name, o)
	if err != nil {
		return nil, err
	}
	agg.Initialise()
	return agg, nil
}

// base carries the fields and null policy shared by every kind.
type base struct {
	name        string
	nullIgnored bool
	invalid     bool
	// explicit holds a SetResult override; set marks it present.
	explicit *string
	set      bool
}

func (b *base) Name() string      { return b.name }
func (b *base) NullIgnored() bool { return b.nullIgnored }

func (b *base) clear() {
	b.invalid = false
	b.explicit = nil
	b.set = false
}

func (b *base) SetResult(v *string) {
	b.explicit = copyStr(v)
	b.set = true
}

// admit applies the shared checks before a value reaches the accumulator.
// It reports done when the caller must return out without folding v.
func (b *base) admit(v *string) (out Outcome, done bool) {
	if b.invalid {
		return invalidated("accumulator is null"), true
	}
	if v == nil && !b.nullIgnored {
		b.invalid = true
		return invalidated("null value"), true
	}
	return Outcome{}, false
}

// result applies the SetResult override and the null state to computed.
func (b *base) result(computed func() *string) *string {
	if b.set {
		return copyStr(b.explicit)
	}
	if b.invalid {
		return nil
	}
	return computed()
}

func copyStr(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

func strPtr(s string) *string { return &s }
