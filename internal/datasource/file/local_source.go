// Package file reads local files and standard input as data sources.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Stdin is the path that selects standard input.
const Stdin = "-"

// Local opens a file from the local disk, or standard input for Stdin.
type Local struct {
	path  string
	stdin io.Reader
}

// NewLocal returns a Local bound to path.
func NewLocal(path string) *Local { return &Local{path: path, stdin: os.Stdin} }

// Path returns the configured path.
func (l *Local) Path() string { return l.path }

// Open returns the context error without touching the filesystem when ctx
// is already done. Filesystem errors are wrapped with the path and still
// match os.ErrNotExist and friends. Closing the reader for Stdin does not
// close the process's standard input.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if l.path == Stdin {
		return io.NopCloser(l.stdin), nil
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}
