package codec

import (
	"fmt"
	"strconv"
	"strings"
)

// AlignOptions tunes Align.
type AlignOptions struct {
	// CaseInsensitive matches names with strings.EqualFold.
	CaseInsensitive bool
	// Strict pads short fields with generated names instead of the
	// declared names they lack, so every declared name must be present.
	Strict bool
}

// MatchLengthOf returns a copy of src resized to n. Missing slots are
// filled with def, followed by the one-based slot number when suffix is set
// (e.g. "column_3"). A longer src is cut down to n only when truncate is
// set; otherwise it is returned unchanged in length.
func MatchLengthOf(src []string, n int, def string, suffix, truncate bool) []string {
	size := len(src)
	if n > size {
		size = n
	}
	if truncate && n < len(src) {
		size = n
	}
	out := make([]string, size)
	copy(out, src)
	for i := len(src); i < size; i++ {
		if suffix {
			out[i] = def + strconv.Itoa(i+1)
		} else {
			out[i] = def
		}
	}
	return out
}

// Align reorders the values of fields to follow declared.
//
// The field names and declared are first brought to the same length: when
// there are fewer fields, the declared names they lack are appended (in
// declared order) with nil values, or generated names when opt.Strict is
// set; when there are fewer declared names,
// generated names are appended to the declared list. A single in-place pass
// then swaps, for each declared position, the first matching field into
// that position. A declared name without a match fails with
// ErrColumnNotFound.
func Align(fields Record, declared []string, opt AlignOptions) ([]*string, error) {
	eq := func(a, b string) bool { return a == b }
	if opt.CaseInsensitive {
		eq = strings.EqualFold
	}

	keys := make([]string, len(fields))
	vals := make([]*string, len(fields))
	for i, f := range fields {
		keys[i] = f.Name
		vals[i] = f.Value
	}

	if opt.Strict {
		for i := len(keys); i < len(declared); i++ {
			keys = append(keys, GeneratedColumnPrefix+strconv.Itoa(i+1))
			vals = append(vals, nil)
		}
	} else if len(keys) < len(declared) {
		for _, d := range declared {
			if len(keys) == len(declared) {
				break
			}
			if indexOf(keys, d, eq) < 0 {
				keys = append(keys, d)
				vals = append(vals, nil)
			}
		}
	}
	names := MatchLengthOf(declared, len(keys), GeneratedColumnPrefix, true, false)

	for i, d := range names {
		found := false
		for j := i; j < len(keys); j++ {
			if eq(keys[j], d) {
				keys[i], keys[j] = keys[j], keys[i]
				vals[i], vals[j] = vals[j], vals[i]
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, d)
		}
	}
	return vals, nil
}

func indexOf(keys []string, name string, eq func(a, b string) bool) int {
	for i, k := range keys {
		if eq(k, name) {
			return i
		}
	}
	return -1
}
