package codec

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// ReaderFunc builds a Reader over r. The stream is already decoded to UTF-8
// and s is already resolved.
type ReaderFunc func(r io.Reader, s Settings) (Reader, error)

// WriterFunc builds a Writer over w. Bytes written are encoded by the
// registry according to s.
type WriterFunc func(w io.Writer, s Settings) (Writer, error)

// Format describes one registered tabular format. A nil NewWriter marks a
// read-only format.
type Format struct {
	Name    string
	Aliases []string

	NewReader ReaderFunc
	NewWriter WriterFunc

	// Defaults are applied beneath caller settings.
	Defaults Settings
	// Presets enables the "format" preset expansion (delimited formats).
	Presets bool
	// Keys lists the format's own settings keys beyond the shared ones.
	Keys []string
}

// Accepts reports whether key is a settings key f understands.
func (f *Format) Accepts(key string) bool {
	if Known(key) {
		return true
	}
	k := CanonicalKey(key)
	for _, own := range f.Keys {
		if k == own {
			return true
		}
	}
	return false
}

// Registry maps format names to factories. It is populated at startup,
// sealed, and then only read; lookups are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	formats map[string]*Format
	names   []string
	sealed  bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{formats: map[string]*Format{}}
}

// Register adds f under its name and aliases (case-insensitive). Registering
// an existing name replaces it.
func (r *Registry) Register(f Format) error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("codec: format name must not be empty")
	}
	if f.NewReader == nil && f.NewWriter == nil {
		return fmt.Errorf("codec: format %q has neither reader nor writer", f.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("%w: cannot register %q", ErrRegistrySealed, f.Name)
	}
	ff := f
	name := strings.ToLower(f.Name)
	if _, ok := r.formats[name]; !ok {
		r.names = append(r.names, name)
	}
	r.formats[name] = &ff
	for _, a := range f.Aliases {
		r.formats[strings.ToLower(a)] = &ff
	}
	return nil
}

// Seal freezes the registry.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Names returns the canonical format names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := append([]string(nil), r.names...)
	sort.Strings(out)
	return out
}

// Lookup resolves name or alias to its Format.
func (r *Registry) Lookup(name string) (*Format, error) {
	r.mu.RLock()
	f, ok := r.formats[strings.ToLower(strings.TrimSpace(name))]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
	return f, nil
}

// Canonical returns the canonical name for name or alias.
func (r *Registry) Canonical(name string) (string, error) {
	f, err := r.Lookup(name)
	if err != nil {
		return "", err
	}
	return strings.ToLower(f.Name), nil
}

// ResolveSettings layers the format defaults, the preset (when the format
// uses presets) and s.
func (f *Format) ResolveSettings(s Settings) (Settings, error) {
	merged := NewSettings(f.Defaults).With(s)
	if !f.Presets {
		return merged, nil
	}
	return Resolve(merged)
}

// NewReader instantiates the named format over src.
func (r *Registry) NewReader(name string, src io.Reader, s Settings) (Reader, error) {
	f, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	if f.NewReader == nil {
		return nil, fmt.Errorf("%w: %q", ErrWriteOnly, f.Name)
	}
	rs, err := f.ResolveSettings(s)
	if err != nil {
		return nil, err
	}
	dec, err := Decode(src, rs)
	if err != nil {
		return nil, err
	}
	rd, err := f.NewReader(dec, rs)
	if err != nil {
		return nil, fmt.Errorf("codec: %s reader: %w", f.Name, err)
	}
	return rd, nil
}

// NewWriter instantiates the named format over dst. Closing the returned
// Writer flushes the format and the text encoder; dst itself stays open.
func (r *Registry) NewWriter(name string, dst io.Writer, s Settings) (Writer, error) {
	f, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	if f.NewWriter == nil {
		return nil, fmt.Errorf("%w: %q", ErrReadOnly, f.Name)
	}
	rs, err := f.ResolveSettings(s)
	if err != nil {
		return nil, err
	}
	enc, err := Encode(dst, rs)
	if err != nil {
		return nil, err
	}
	w, err := f.NewWriter(enc, rs)
	if err != nil {
		return nil, fmt.Errorf("codec: %s writer: %w", f.Name, err)
	}
	return &encodedWriter{Writer: w, enc: enc}, nil
}

type encodedWriter struct {
	Writer
	enc io.Closer
}

func (w *encodedWriter) Close() error {
	err := w.Writer.Close()
	if cerr := w.enc.Close(); err == nil {
		err = cerr
	}
	return err
}
