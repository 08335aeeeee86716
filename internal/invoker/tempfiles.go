package invoker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/NeoOrigin/flint-sub000/internal/config"
	"github.com/NeoOrigin/flint-sub000/internal/table"
)

// Temp file kinds, in provisioning order.
const (
	KindInput   = "INPUT"
	KindOutput  = "OUTPUT"
	KindError   = "ERROR"
	KindControl = "CONTROL"
)

var kinds = [...]string{KindInput, KindOutput, KindError, KindControl}

// PathKey and IDKey name the control parameters published for a temp file.
func PathKey(kind string) string { return "DATA_" + kind + "_PATH" }
func IDKey(kind string) string   { return "DATA_" + kind + "_UNIQUE_ID" }

// UniqueID derives the stable id published for a temp file: a name-based
// (version 5) UUID of its absolute path.
func UniqueID(path string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+path)).String()
}

type tempFile struct {
	kind    string
	path    string
	id      string
	removed bool
}

// tempSet holds the four files of one invocation. The input file is left
// open for writing; the others are closed right after creation.
type tempSet struct {
	files [len(kinds)]tempFile
	input *os.File
}

func (s *tempSet) get(kind string) *tempFile {
	for i := range s.files {
		if s.files[i].kind == kind {
			return &s.files[i]
		}
	}
	return nil
}

// provision creates the temp files under the configured directory with
// the configured name template and permission.
func provision(t config.Temp) (*tempSet, error) {
	mode, err := t.FileMode()
	if err != nil {
		return nil, err
	}
	s := &tempSet{}
	for i, kind := range kinds {
		pattern := t.Prefix + strings.ToLower(kind) + "-*" + t.Suffix
		f, err := os.CreateTemp(t.Dir, pattern)
		if err != nil {
			s.removeAll()
			return nil, fmt.Errorf("invoker: create %s temp file: %w", strings.ToLower(kind), err)
		}
		abs, err := filepath.Abs(f.Name())
		if err != nil {
			abs = f.Name()
		}
		s.files[i] = tempFile{kind: kind, path: abs, id: UniqueID(abs)}

		if err := f.Chmod(mode); err != nil {
			f.Close()
			s.removeAll()
			return nil, fmt.Errorf("invoker: chmod %s: %w", abs, err)
		}
		if kind == KindInput {
			s.input = f
			continue
		}
		if err := f.Close(); err != nil {
			s.removeAll()
			return nil, err
		}
	}
	return s, nil
}

// params renders the DATA_<KIND>_PATH and DATA_<KIND>_UNIQUE_ID pairs.
func (s *tempSet) params() []table.Pair {
	out := make([]table.Pair, 0, 2*len(s.files))
	for _, f := range s.files {
		out = append(out,
			table.Pair{Name: PathKey(f.kind), Value: f.path},
			table.Pair{Name: IDKey(f.kind), Value: f.id},
		)
	}
	return out
}

// remove deletes the named files. Files already gone are not an error.
func (s *tempSet) remove(kinds ...string) error {
	var errs []error
	for _, k := range kinds {
		f := s.get(k)
		if f == nil || f.removed || f.path == "" {
			continue
		}
		if k == KindInput && s.input != nil {
			s.input.Close()
			s.input = nil
		}
		if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		f.removed = true
	}
	return errors.Join(errs...)
}

func (s *tempSet) removeAll() error { return s.remove(kinds[:]...) }

// kept lists the paths still on disk.
func (s *tempSet) kept() []string {
	var out []string
	for _, f := range s.files {
		if f.path != "" && !f.removed {
			out = append(out, f.path)
		}
	}
	return out
}
