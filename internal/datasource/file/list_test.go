package file

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeTempFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "actions.txt")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestReadList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		contents string
		want     []string
	}{
		{
			name:     "comments and blanks are skipped",
			contents: "\n# setup first\ncreate\n   # indented comment\nupdate # nightly\n   drop  \n",
			want:     []string{"create", "update", "drop"},
		},
		{name: "empty file", contents: "", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ReadList(writeTempFile(t, tt.contents))
			if err != nil {
				t.Fatalf("ReadList error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ReadList = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestReadList_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := ReadList(filepath.Join(t.TempDir(), "missing.txt"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want os.ErrNotExist", err)
	}
}
