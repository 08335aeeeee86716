// Package builtin assembles the codec registry with every format shipped in
// this module.
package builtin

import (
	"github.com/NeoOrigin/flint-sub000/internal/codec"
	"github.com/NeoOrigin/flint-sub000/internal/codec/delimited"
	"github.com/NeoOrigin/flint-sub000/internal/codec/markup"
	"github.com/NeoOrigin/flint-sub000/internal/codec/prefixed"
	"github.com/NeoOrigin/flint-sub000/internal/codec/raw"
)

// Formats lists the built-in formats in registration order.
func Formats() []codec.Format {
	return []codec.Format{
		delimited.Format(),
		delimited.TabFormat(),
		raw.Format(),
		prefixed.Format(),
		markup.Format(),
	}
}

// NewRegistry returns a sealed registry holding the built-in formats and
// any extra ones.
func NewRegistry(extra ...codec.Format) (*codec.Registry, error) {
	r := codec.NewRegistry()
	for _, f := range append(Formats(), extra...) {
		if err := r.Register(f); err != nil {
			return nil, err
		}
	}
	r.Seal()
	return r, nil
}

// MustRegistry is NewRegistry for package initialization; it panics on a
// registration error.
func MustRegistry(extra ...codec.Format) *codec.Registry {
	r, err := NewRegistry(extra...)
	if err != nil {
		panic(err)
	}
	return r
}
