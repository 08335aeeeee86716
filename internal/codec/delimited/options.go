// Package delimited implements the delimited-text codec: CSV and its
// relatives (tab-separated, semicolon-separated, custom quote and escape
// characters, custom record separators).
//
// Records are read by a small rune-level tokenizer that keeps quoted
// content byte for byte. Writing goes through encoding/csv when it can
// express the settings (double-quote quoting, no escape character, LF
// records, no trimming) and through the same quoting rules by hand
// otherwise.
package delimited

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/NeoOrigin/flint-sub000/internal/codec"
)

// Name is the registry name of the codec.
const Name = "delimited"

// Options is the resolved form of the codec settings.
type Options struct {
	// Comma separates fields. Defaults to ','.
	Comma rune
	// Quote encloses fields holding special characters; 0 disables quoting.
	Quote rune
	// Escape makes the next character literal; 0 means quotes are escaped
	// by doubling.
	Escape rune
	// Separator ends a record. Defaults to "\n".
	Separator string
	// TrimSpace trims whitespace around unquoted fields.
	TrimSpace bool
	// HasHeader makes the first record the column names.
	HasHeader bool
	// Columns declares names for headerless input.
	Columns []string
}

// OptionsFrom reads Options from resolved settings.
func OptionsFrom(s codec.Settings) (Options, error) {
	o := Options{
		Comma:     s.Rune(codec.KeyDelimiter, ','),
		Quote:     s.Rune(codec.KeyQuote, '"'),
		Escape:    s.Rune(codec.KeyEscape, 0),
		Separator: s.Text(codec.KeySeparator, "\n"),
		TrimSpace: s.Bool(codec.KeyTrim, false),
		HasHeader: s.Bool(codec.KeyHeader, false),
		Columns:   s.List(codec.KeyColumns),
	}
	if o.Escape == o.Quote {
		o.Escape = 0
	}
	switch {
	case o.Comma == 0 || o.Comma == utf8.RuneError:
		return o, fmt.Errorf("invalid delimiter")
	case o.Comma == o.Quote:
		return o, fmt.Errorf("delimiter and quote must differ (both %q)", o.Comma)
	case o.Escape != 0 && o.Escape == o.Comma:
		return o, fmt.Errorf("delimiter and escape must differ (both %q)", o.Comma)
	case o.Separator == "":
		return o, fmt.Errorf("record separator must not be empty")
	}
	for _, r := range o.Separator {
		if r == o.Comma || (o.Quote != 0 && r == o.Quote) {
			return o, fmt.Errorf("record separator %q overlaps delimiter or quote", o.Separator)
		}
	}
	return o, nil
}

// standard reports whether csv.Writer can encode records for o.
func (o Options) standard() bool {
	if o.Quote != '"' || o.Escape != 0 || o.TrimSpace {
		return false
	}
	if o.Separator != "\n" && o.Separator != "\r\n" {
		return false
	}
	return o.Comma != '\r' && o.Comma != '\n' && o.Comma != '\uFEFF' && utf8.ValidRune(o.Comma)
}

// Format returns the registry entry for the codec.
func Format() codec.Format {
	return codec.Format{
		Name:    Name,
		Aliases: []string{"delimited-text", "csv"},
		NewReader: func(r io.Reader, s codec.Settings) (codec.Reader, error) {
			return NewReader(r, s)
		},
		NewWriter: func(w io.Writer, s codec.Settings) (codec.Writer, error) {
			return NewWriter(w, s)
		},
		Presets: true,
		Keys:    []string{codec.KeyColumns},
	}
}

// TabFormat is the "tsv" alias: the delimited codec with the tab-delimited
// preset as its default.
func TabFormat() codec.Format {
	f := Format()
	f.Name = "tsv"
	f.Aliases = []string{"tab-delimited"}
	f.Defaults = codec.Settings{codec.KeyFormat: codec.PresetTabDelimited}
	return f
}
