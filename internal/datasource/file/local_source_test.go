package file

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalOpen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "input.csv")
	if err := os.WriteFile(input, []byte("id,name\n1,ann\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name    string
		path    string
		ctx     context.Context
		want    string
		wantErr error
	}{
		{name: "file", path: input, ctx: context.Background(), want: "id,name\n1,ann\n"},
		{name: "missing", path: filepath.Join(dir, "nope.csv"), ctx: context.Background(), wantErr: os.ErrNotExist},
		{name: "canceled before open", path: input, ctx: canceled, wantErr: context.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rc, err := NewLocal(tt.path).Open(tt.ctx)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) || rc != nil {
					t.Fatalf("Open() = %v, %v; want error %v", rc, err, tt.wantErr)
				}
				if errors.Is(err, os.ErrNotExist) && !strings.Contains(err.Error(), tt.path) {
					t.Fatalf("error %q does not name the path", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open() error: %v", err)
			}
			defer rc.Close()
			got, err := io.ReadAll(rc)
			if err != nil || string(got) != tt.want {
				t.Fatalf("read %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestLocalOpenStdin(t *testing.T) {
	t.Parallel()

	l := NewLocal(Stdin)
	l.stdin = strings.NewReader("a,b\n1,2\n")

	rc, err := l.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if err := rc.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if string(got) != "a,b\n1,2\n" || l.Path() != Stdin {
		t.Fatalf("stdin = %q, path = %q", got, l.Path())
	}
}
