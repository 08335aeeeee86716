package datasource

import (
	"testing"

	"github.com/NeoOrigin/flint-sub000/internal/datasource/file"
	"github.com/NeoOrigin/flint-sub000/internal/datasource/httpds"
)

func TestFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		location string
		wantHTTP bool
	}{
		{"https://example.com/rows.csv", true},
		{"HTTP://example.com/rows.csv", true},
		{"/tmp/rows.csv", false},
		{"-", false},
		{"httpish.csv", false},
	}
	for _, tt := range tests {
		src := For(tt.location, nil)
		switch src.(type) {
		case *httpds.Source:
			if !tt.wantHTTP {
				t.Errorf("For(%q) = http source, want local", tt.location)
			}
		case *file.Local:
			if tt.wantHTTP {
				t.Errorf("For(%q) = local source, want http", tt.location)
			}
		default:
			t.Errorf("For(%q) = %T", tt.location, src)
		}
	}
}
