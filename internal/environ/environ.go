// Package environ composes the environment of an invoked process from
// named key/value layers and resolves $NAME references in the result.
//
// Layers apply in a fixed order, lowest first: the parent process
// environment, the base configuration, control parameters, declared
// parameters, host options, type definitions, type overrides and call
// arguments. A later layer overwrites an earlier one on a key collision.
package environ

import (
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/NeoOrigin/flint-sub000/internal/codec"
	"github.com/NeoOrigin/flint-sub000/internal/table"
)

// Kind identifies a layer and fixes its precedence.
type Kind int

const (
	Parent Kind = iota
	Base
	Control
	Declared
	Options
	TypeDefinitions
	TypeOverrides
	Arguments
)

var kindNames = [...]string{"parent", "base", "control", "declared", "options", "type_definitions", "type_overrides", "arguments"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// InheritKey is the host option that, set to a false value, drops the
// parent environment.
const InheritKey = "INHERIT_ENVIRONMENT"

// Layer is one named source of variables.
type Layer struct {
	Kind   Kind
	Prefix string
	Pairs  []table.Pair
	// KeepCase stores keys as given instead of upper-casing them. The
	// parent environment always keeps its case.
	KeepCase bool
}

// key renders the stored form of name for l.
func (l Layer) key(name string) string {
	k := l.Prefix + strings.TrimSpace(name)
	if l.KeepCase || l.Kind == Parent {
		return k
	}
	return strings.ToUpper(k)
}

// FromTable builds a layer from a parameter channel.
func FromTable(kind Kind, prefix string, t table.Table) Layer {
	return Layer{Kind: kind, Prefix: prefix, Pairs: t.Pairs()}
}

// FromMap builds a layer from m with keys in sorted order.
func FromMap(kind Kind, prefix string, m map[string]string) Layer {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]table.Pair, len(keys))
	for i, k := range keys {
		pairs[i] = table.Pair{Name: k, Value: m[k]}
	}
	return Layer{Kind: kind, Prefix: prefix, Pairs: pairs}
}

// ParentLayer returns the current process environment as a layer.
func ParentLayer() Layer {
	return ParentFrom(os.Environ())
}

// ParentFrom builds the parent layer from "KEY=value" entries.
func ParentFrom(env []string) Layer {
	l := Layer{Kind: Parent, KeepCase: true}
	for _, kv := range env {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		l.Pairs = append(l.Pairs, table.Pair{Name: k, Value: v})
	}
	return l
}

// Composer merges layers. Inherit controls whether the Parent layer is
// applied; a host option INHERIT_ENVIRONMENT set to a false value turns it
// off for one composition.
type Composer struct {
	Inherit bool
}

// Compose merges layers by precedence (ties keep argument order) and then
// interpolates every value.
func (c Composer) Compose(layers ...Layer) *Map {
	sorted := append([]Layer(nil), layers...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Kind < sorted[j].Kind })

	inherit := c.Inherit && !inheritDisabled(sorted)
	m := NewMap()
	for _, l := range sorted {
		if l.Kind == Parent && !inherit {
			continue
		}
		for _, p := range l.Pairs {
			if strings.TrimSpace(p.Name) == "" {
				continue
			}
			m.Set(l.key(p.Name), p.Value)
		}
	}
	return Interpolate(m)
}

func inheritDisabled(layers []Layer) bool {
	for _, l := range layers {
		if l.Kind != Options {
			continue
		}
		for _, p := range l.Pairs {
			if !strings.EqualFold(strings.TrimSpace(p.Name), InheritKey) {
				continue
			}
			on, err := codec.ParseFlag(p.Value)
			if err == nil && !on {
				return true
			}
		}
	}
	return false
}

var reference = regexp.MustCompile(`\$([A-Za-z0-9._]+)`)

// Interpolate returns a copy of m where every $NAME in a value is replaced
// by the value of NAME in m as it was before interpolation. Each value is
// scanned once; substituted text is not scanned again. Unknown names stay
// as written. A name is looked up as written, then upper-cased.
func Interpolate(m *Map) *Map {
	snapshot := m.Clone()
	out := m.Clone()
	for _, k := range m.keys {
		v := m.vals[k]
		if !strings.Contains(v, "$") {
			continue
		}
		out.vals[k] = reference.ReplaceAllStringFunc(v, func(ref string) string {
			name := ref[1:]
			if r, ok := snapshot.Get(name); ok {
				return r
			}
			if r, ok := snapshot.Get(strings.ToUpper(name)); ok {
				return r
			}
			return ref
		})
	}
	return out
}
