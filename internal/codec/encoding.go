package codec

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// lookupEncoding resolves an IANA/WHATWG encoding name. Empty means UTF-8.
func lookupEncoding(name string) (encoding.Encoding, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "", "utf-8", "utf8":
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(n)
	if err != nil {
		return nil, fmt.Errorf("codec: unsupported encoding %q: %w", name, err)
	}
	return enc, nil
}

// keepBOM reports whether the "bom" setting asks readers to leave a
// byte-order mark in place.
func keepBOM(s Settings) bool {
	return strings.EqualFold(strings.TrimSpace(s.String(KeyBOM, "strip")), "keep")
}

// writeBOM reports whether the "bom" setting asks writers to emit a
// byte-order mark.
func writeBOM(s Settings) bool {
	if keepBOM(s) {
		return false
	}
	return s.Bool(KeyBOM, false)
}

// Decode wraps r so that it yields UTF-8 according to the "encoding" and
// "bom" settings. A leading byte-order mark is consumed unless bom=keep.
func Decode(r io.Reader, s Settings) (io.Reader, error) {
	enc, err := lookupEncoding(s.String(KeyEncoding, ""))
	if err != nil {
		return nil, err
	}
	dec := enc.NewDecoder()
	if keepBOM(s) {
		if enc == unicode.UTF8 {
			return r, nil
		}
		return transform.NewReader(r, dec), nil
	}
	return transform.NewReader(r, unicode.BOMOverride(dec)), nil
}

// Encode wraps w so that UTF-8 written to it is converted according to the
// "encoding" and "bom" settings. The returned closer must be closed to
// flush the transformer; it does not close w.
func Encode(w io.Writer, s Settings) (io.WriteCloser, error) {
	enc, err := lookupEncoding(s.String(KeyEncoding, ""))
	if err != nil {
		return nil, err
	}
	if enc == unicode.UTF8 {
		if writeBOM(s) {
			return transform.NewWriter(w, unicode.UTF8BOM.NewEncoder()), nil
		}
		return nopWriteCloser{w}, nil
	}
	return transform.NewWriter(w, enc.NewEncoder()), nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// NormalizeName canonicalizes a column name read from a header: surrounding
// whitespace is trimmed and the text is put in Unicode NFC form, so that
// composed and decomposed spellings of the same name compare equal.
func NormalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
