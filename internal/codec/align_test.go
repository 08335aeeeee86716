package codec

import (
	"errors"
	"reflect"
	"testing"
)

func str(s string) *string { return &s }

func deref(vals []*string) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		if v == nil {
			out[i] = nil
			continue
		}
		out[i] = *v
	}
	return out
}

func TestAlign_PadsMissingDeclaredWithNull(t *testing.T) {
	fields := Record{{Name: "B", Value: str("2")}, {Name: "A", Value: str("1")}}
	got, err := Align(fields, []string{"A", "B", "C"}, AlignOptions{})
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	want := []any{"1", "2", nil}
	if !reflect.DeepEqual(deref(got), want) {
		t.Fatalf("Align = %v; want %v", deref(got), want)
	}
}

func TestAlign_CaseSensitivity(t *testing.T) {
	fields := Record{{Name: "name", Value: str("x")}, {Name: "AGE", Value: str("3")}}

	if _, err := Align(fields, []string{"Age", "Name"}, AlignOptions{}); !errors.Is(err, ErrColumnNotFound) {
		t.Fatalf("case-sensitive Align err = %v; want ErrColumnNotFound", err)
	}

	got, err := Align(fields, []string{"Age", "Name"}, AlignOptions{CaseInsensitive: true})
	if err != nil {
		t.Fatalf("case-insensitive Align: %v", err)
	}
	if want := []any{"3", "x"}; !reflect.DeepEqual(deref(got), want) {
		t.Fatalf("Align = %v; want %v", deref(got), want)
	}
}

func TestAlign_ColumnNotFoundNamesColumn(t *testing.T) {
	fields := Record{{Name: "X", Value: str("1")}}
	_, err := Align(fields, []string{"A", "B"}, AlignOptions{})
	if !errors.Is(err, ErrColumnNotFound) {
		t.Fatalf("err = %v; want ErrColumnNotFound", err)
	}
	if got := err.Error(); got != `codec: column not found: "B"` {
		t.Fatalf("err = %q", got)
	}
}

func TestAlign_ExtraValuesNeedGeneratedNames(t *testing.T) {
	fields := Record{
		{Name: "column_2", Value: str("b")},
		{Name: "A", Value: str("a")},
	}
	got, err := Align(fields, []string{"A"}, AlignOptions{})
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if want := []any{"a", "b"}; !reflect.DeepEqual(deref(got), want) {
		t.Fatalf("Align = %v; want %v", deref(got), want)
	}
}

func TestAlign_StrictRequiresEveryDeclaredName(t *testing.T) {
	fields := Record{{Name: "B", Value: str("2")}, {Name: "A", Value: str("1")}}

	_, err := Align(fields, []string{"A", "C", "B"}, AlignOptions{Strict: true})
	if !errors.Is(err, ErrColumnNotFound) || err.Error() != `codec: column not found: "C"` {
		t.Fatalf("err = %v; want column not found for C", err)
	}

	got, err := Align(fields, []string{"A", "B"}, AlignOptions{Strict: true})
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if want := []any{"1", "2"}; !reflect.DeepEqual(deref(got), want) {
		t.Fatalf("Align = %v; want %v", deref(got), want)
	}
}

func TestMatchLengthOf(t *testing.T) {
	tests := []struct {
		name     string
		src      []string
		n        int
		suffix   bool
		truncate bool
		want     []string
	}{
		{"pad plain", []string{"a"}, 3, false, false, []string{"a", "x", "x"}},
		{"pad suffixed", []string{"a"}, 3, true, false, []string{"a", "x2", "x3"}},
		{"longer kept", []string{"a", "b", "c"}, 2, false, false, []string{"a", "b", "c"}},
		{"longer truncated", []string{"a", "b", "c"}, 2, false, true, []string{"a", "b"}},
		{"equal", []string{"a"}, 1, true, true, []string{"a"}},
		{"nil src", nil, 2, true, false, []string{"x1", "x2"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := MatchLengthOf(tc.src, tc.n, "x", tc.suffix, tc.truncate)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("MatchLengthOf = %v; want %v", got, tc.want)
			}
		})
	}
}

func TestMakeRecord(t *testing.T) {
	rec := MakeRecord([]string{"a", "b", "c"}, []string{"1", "NULL"}, "NULL", true)
	if got, want := rec.Names(), []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("names = %v; want %v", got, want)
	}
	if want := []any{"1", nil, nil}; !reflect.DeepEqual(deref(rec.Values()), want) {
		t.Fatalf("values = %v; want %v", deref(rec.Values()), want)
	}

	wide := MakeRecord([]string{"a"}, []string{"1", "2"}, "", false)
	if got, want := wide.Names(), []string{"a", "column_2"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("wide names = %v; want %v", got, want)
	}
	if v, ok := wide.Get("column_2"); !ok || *v != "2" {
		t.Fatalf("Get(column_2) = %v, %v", v, ok)
	}
}
