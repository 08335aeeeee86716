package markup

import (
	"reflect"
	"strings"
	"testing"

	"github.com/NeoOrigin/flint-sub000/internal/codec"
	"github.com/NeoOrigin/flint-sub000/internal/table"
)

const page = `<html><body>
<p>intro</p>
<table id="first">
  <thead><tr><th> Name </th><th>Qty</th></tr></thead>
  <tbody>
    <tr><td>  apple
        pie </td><td>2</td></tr>
    <tr><td>pear<br>tart</td><td>&nbsp;5&nbsp;</td></tr>
  </tbody>
</table>
<table id="second">
  <tr><td>k</td><td>v<table><tr><td>nested</td></tr></table></td></tr>
  <tr><td>x</td><td>y</td></tr>
</table>
</body></html>`

func TestReader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		settings map[string]string
		cols     []string
		rows     table.Table
	}{
		{
			name: "first table with th header",
			cols: []string{"Name", "Qty"},
			rows: table.Table{{"apple pie", "2"}, {"pear tart", "5"}},
		},
		{
			name:     "second table by index",
			settings: map[string]string{"table": "1"},
			rows:     table.Table{{"k", "v"}, {"x", "y"}},
		},
		{
			name:     "second table by id with header flag",
			settings: map[string]string{"table": "second", "header": "true"},
			cols:     []string{"k", "v"},
			rows:     table.Table{{"x", "y"}},
		},
		{
			name:     "nested table by index",
			settings: map[string]string{"table": "2"},
			rows:     table.Table{{"nested"}},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rd, err := NewReader(strings.NewReader(page), codec.NewSettings(tc.settings))
			if err != nil {
				t.Fatalf("NewReader: %v", err)
			}
			rows, err := codec.ReadAll(rd)
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if !reflect.DeepEqual(rd.Columns(), tc.cols) {
				t.Fatalf("columns = %q; want %q", rd.Columns(), tc.cols)
			}
			if !reflect.DeepEqual(rows, tc.rows) {
				t.Fatalf("rows = %q; want %q", rows, tc.rows)
			}
		})
	}
}

func TestMissingTable(t *testing.T) {
	t.Parallel()
	if _, err := NewReader(strings.NewReader(page), codec.NewSettings(map[string]string{"table": "7"})); err == nil {
		t.Fatalf("expected an error for a missing table")
	}
}

func TestCollapseSpace(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"plain", "plain"},
		{"  a \t\n b  ", "a b"},
		{" x  y ", "x y"},
	}
	for _, tc := range tests {
		if got := collapseSpace(tc.in); got != tc.want {
			t.Errorf("collapseSpace(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatIsReadOnly(t *testing.T) {
	t.Parallel()
	if Format().NewWriter != nil {
		t.Fatalf("markup must not have a writer")
	}
}
