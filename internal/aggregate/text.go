package aggregate

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"
)

// Concat appends raw values, with an optional separator between them. A
// null becomes the empty string when null-ignoring is on.
type Concat struct {
	base
	sep string
	buf strings.Builder
	n   int
}

// NewConcat returns an initialised Concat.
func NewConcat(name string, nullIgnored bool, sep string) *Concat {
	c := &Concat{base: base{name: name, nullIgnored: nullIgnored}, sep: sep}
	c.Initialise()
	return c
}

func (c *Concat) Initialise() { c.Reset() }

func (c *Concat) Reset() {
	c.clear()
	c.buf.Reset()
	c.n = 0
}

func (c *Concat) Aggregate(v *string) Outcome {
	if out, done := c.admit(v); done {
		return out
	}
	if c.n > 0 {
		c.buf.WriteString(c.sep)
	}
	if v != nil {
		c.buf.WriteString(*v)
	}
	c.n++
	return accepted()
}

func (c *Concat) Result() *string {
	return c.result(func() *string { return strPtr(c.buf.String()) })
}

// Digest algorithms.
const (
	AlgXXH3    = "xxh3"
	AlgXXH3x64 = "xxh3-64"
	AlgSHA256  = "sha256"
	AlgMD5     = "md5"
)

var algorithms = map[string]func() hash.Hash{
	AlgXXH3:    func() hash.Hash { return &xxh3x128{h: xxh3.New()} },
	AlgXXH3x64: func() hash.Hash { return xxh3.New() },
	AlgSHA256:  sha256.New,
	AlgMD5:     md5.New,
}

// Algorithms lists the digest algorithm names.
func Algorithms() []string {
	out := make([]string, 0, len(algorithms))
	for k := range algorithms {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// xxh3x128 exposes the 128-bit XXH3 sum through hash.Hash.
type xxh3x128 struct{ h *xxh3.Hasher }

func (x *xxh3x128) Write(p []byte) (int, error) { return x.h.Write(p) }
func (x *xxh3x128) Reset()                      { x.h.Reset() }
func (x *xxh3x128) Size() int                   { return 16 }
func (x *xxh3x128) BlockSize() int              { return x.h.BlockSize() }
func (x *xxh3x128) Sum(b []byte) []byte {
	s := x.h.Sum128().Bytes()
	return append(b, s[:]...)
}

// Digest feeds the UTF-8 bytes of each value into an incremental hash and
// reports the lower-case hex digest. A null ignored contributes nothing.
type Digest struct {
	base
	alg string
	h   hash.Hash
}

// NewDigest returns an initialised Digest. An empty algorithm selects
// xxh3 (128-bit).
func NewDigest(name string, nullIgnored bool, algorithm string) (*Digest, error) {
	alg := strings.ToLower(strings.TrimSpace(algorithm))
	if alg == "" {
		alg = AlgXXH3
	}
	mk, ok := algorithms[alg]
	if !ok {
		return nil, fmt.Errorf("aggregate: unknown digest algorithm %q", algorithm)
	}
	d := &Digest{base: base{name: name, nullIgnored: nullIgnored}, alg: alg, h: mk()}
	d.Initialise()
	return d, nil
}

// Algorithm returns the digest algorithm name.
func (d *Digest) Algorithm() string { return d.alg }

func (d *Digest) Initialise() { d.Reset() }

func (d *Digest) Reset() {
	d.clear()
	d.h.Reset()
}

func (d *Digest) Aggregate(v *string) Outcome {
	if out, done := d.admit(v); done {
		return out
	}
	if v != nil {
		_, _ = d.h.Write([]byte(*v))
	}
	return accepted()
}

func (d *Digest) Result() *string {
	return d.result(func() *string { return strPtr(hex.EncodeToString(d.h.Sum(nil))) })
}

// Value ignores its input; Result returns what SetResult stored last.
type Value struct{ base }

// NewValue returns an initialised Value.
func NewValue(name string, nullIgnored bool) *Value {
	return &Value{base: base{name: name, nullIgnored: nullIgnored}}
}

func (v *Value) Initialise()               { v.clear() }
func (v *Value) Reset()                    { v.clear() }
func (v *Value) Aggregate(*string) Outcome { return skipped("value ignores input") }
func (v *Value) Result() *string           { return copyStr(v.explicit) }
