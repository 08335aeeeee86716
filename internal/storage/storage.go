// Package storage defines the backend-agnostic output sink.
//
// Backends register a Factory for their kind from init; importing
// storage/all enables every built-in backend. Callers then open a
// Repository with New and stay independent of the concrete database.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/NeoOrigin/flint-sub000/internal/config"
)

// ErrUnknownKind is returned by New for a kind nobody registered.
var ErrUnknownKind = errors.New("storage: unknown kind")

// DefaultBatchSize is used when Config.BatchSize is zero.
const DefaultBatchSize = 1000

// Config selects and configures a sink backend.
type Config struct {
	Kind            string
	DSN             string
	Table           string
	Columns         []string
	AutoCreateTable bool
	BatchSize       int

	// Engine labels the sink metrics.
	Engine string
}

// FromSink builds a Config from the engine's sink section.
func FromSink(engine string, s config.Sink) Config {
	return Config{
		Kind:            strings.ToLower(strings.TrimSpace(s.Kind)),
		DSN:             s.DSN,
		Table:           s.Table,
		Columns:         append([]string(nil), s.Columns...),
		AutoCreateTable: s.AutoCreateTable,
		BatchSize:       s.BatchSize,
		Engine:          engine,
	}
}

func (c Config) batchSize() int {
	if c.BatchSize > 0 {
		return c.BatchSize
	}
	return DefaultBatchSize
}

// Repository is implemented by every sink backend.
type Repository interface {
	// CopyFrom inserts rows into the configured table and reports how many
	// were written. Values are nil or string.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	// EnsureTable creates the configured table with one text column per
	// name when it does not exist yet.
	EnsureTable(ctx context.Context, columns []string) error
	Close()
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs the factory for kind. Registering a kind twice panics.
func Register(kind string, f Factory) {
	kind = strings.ToLower(kind)
	mu.Lock()
	defer mu.Unlock()
	if f == nil {
		panic("storage: Register factory is nil for " + kind)
	}
	if _, dup := factories[kind]; dup {
		panic("storage: Register called twice for " + kind)
	}
	factories[kind] = f
}

// Kinds lists the registered kinds in sorted order.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New opens a Repository of cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[strings.ToLower(cfg.Kind)]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (registered: %s)", ErrUnknownKind, cfg.Kind, strings.Join(Kinds(), ", "))
	}
	return f(ctx, cfg)
}
