package codec

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Settings keys recognized by the built-in codecs.
const (
	KeyDelimiter = "delimiter"
	KeyQuote     = "quote"
	KeyEscape    = "escape"
	KeyNull      = "null"
	KeySeparator = "separator"
	KeyTrim      = "trim"
	KeyHeader    = "header"
	KeyEncoding  = "encoding"
	KeyBOM       = "bom"
	KeyFormat    = "format"

	// Codec-specific keys.
	KeyPrefix  = "prefix"
	KeyTable   = "table"
	KeyColumns = "columns"
)

// keyAliases folds alternative spellings onto their canonical key.
var keyAliases = map[string]string{
	"quotechar": KeyQuote,
	"preset":    KeyFormat,
}

// Settings is a case-insensitive string map of codec settings. Keys are
// stored lower-cased; use the accessors rather than indexing directly.
type Settings map[string]string

// NewSettings copies m into a Settings value, folding key case and aliases.
func NewSettings(m map[string]string) Settings {
	s := make(Settings, len(m))
	for k, v := range m {
		s.Set(k, v)
	}
	return s
}

// CanonicalKey lower-cases key and resolves aliases.
func CanonicalKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	if a, ok := keyAliases[k]; ok {
		return a
	}
	return k
}

// Known reports whether key is one of the shared settings keys.
func Known(key string) bool {
	switch CanonicalKey(key) {
	case KeyDelimiter, KeyQuote, KeyEscape, KeyNull, KeySeparator,
		KeyTrim, KeyHeader, KeyEncoding, KeyBOM, KeyFormat:
		return true
	}
	return false
}

// Set stores v under the canonical form of key.
func (s Settings) Set(key, v string) { s[CanonicalKey(key)] = v }

// Get returns the raw value for key.
func (s Settings) Get(key string) (string, bool) {
	v, ok := s[CanonicalKey(key)]
	return v, ok
}

// Has reports whether key is set.
func (s Settings) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// String returns the value for key or def.
func (s Settings) String(key, def string) string {
	if v, ok := s.Get(key); ok {
		return v
	}
	return def
}

// Bool parses the value for key as a flag. Unparsable values yield def.
func (s Settings) Bool(key string, def bool) bool {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	b, err := ParseFlag(v)
	if err != nil {
		return def
	}
	return b
}

// Int parses the value for key as an integer or returns def.
func (s Settings) Int(key string, def int) int {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

// Rune returns the single character configured for key. Escapes such as
// `\t` and names such as "tab" are understood; "none" or an empty value
// yields 0 (disabled).
func (s Settings) Rune(key string, def rune) rune {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	return parseChar(v)
}

// Text returns the unescaped string for key (e.g. a record separator).
func (s Settings) Text(key, def string) string {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	return unescape(v)
}

// List splits the value for key on commas, trimming each item. Empty
// items are dropped.
func (s Settings) List(key string) []string {
	v, ok := s.Get(key)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Clone copies s.
func (s Settings) Clone() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// With returns a copy of s with every key of o applied on top.
func (s Settings) With(o Settings) Settings {
	out := s.Clone()
	for k, v := range o {
		out.Set(k, v)
	}
	return out
}

// Keys returns the keys in sorted order.
func (s Settings) Keys() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ParseFlag accepts the usual boolean spellings plus yes/no and on/off.
func ParseFlag(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "y", "on":
		return true, nil
	case "no", "n", "off", "":
		return false, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("codec: invalid flag %q", v)
	}
	return b, nil
}

func parseChar(v string) rune {
	switch strings.ToLower(v) {
	case "", "none", "off":
		return 0
	case "tab":
		return '\t'
	case "space":
		return ' '
	case "comma":
		return ','
	case "semicolon":
		return ';'
	case "pipe":
		return '|'
	}
	u := []rune(unescape(v))
	if len(u) == 0 {
		return 0
	}
	return u[0]
}

func unescape(v string) string {
	switch strings.ToLower(v) {
	case "lf":
		return "\n"
	case "crlf":
		return "\r\n"
	case "cr":
		return "\r"
	}
	if !strings.Contains(v, `\`) {
		return v
	}
	r := strings.NewReplacer(`\t`, "\t", `\n`, "\n", `\r`, "\r", `\\`, `\`)
	return r.Replace(v)
}
