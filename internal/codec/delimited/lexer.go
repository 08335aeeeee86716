package delimited

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// errUnterminated reports a quoted field still open at end of input.
var errUnterminated = errors.New("unterminated quoted field")

// lexer tokenizes delimited records. Quoted content is returned exactly as
// written, carriage returns included.
type lexer struct {
	br  *bufio.Reader
	opt Options
	// sepTail is the separator minus its first rune.
	sepHead rune
	sepTail string
	// lines is set for LF and CRLF separators: either line ending ends a
	// record and a CR before LF is dropped from unquoted fields.
	lines bool
	line  int
}

func newLexer(r io.Reader, opt Options) *lexer {
	l := &lexer{br: bufio.NewReaderSize(r, 64*1024), opt: opt}
	if opt.Separator == "\n" || opt.Separator == "\r\n" {
		l.sepHead, l.lines = '\n', true
		return l
	}
	l.sepHead = []rune(opt.Separator)[0]
	l.sepTail = opt.Separator[len(string(l.sepHead)):]
	return l
}

// atSeparator reports whether r (already consumed) starts the record
// separator, consuming the rest of the separator when it does.
func (l *lexer) atSeparator(r rune) bool {
	if r != l.sepHead {
		return false
	}
	if l.sepTail == "" {
		return true
	}
	peek, err := l.br.Peek(len(l.sepTail))
	if err != nil || string(peek) != l.sepTail {
		return false
	}
	_, _ = l.br.Discard(len(l.sepTail))
	return true
}

// read returns the next non-empty record or io.EOF.
func (l *lexer) read() ([]string, error) {
	for {
		rec, empty, err := l.record()
		if err != nil {
			return nil, err
		}
		if empty {
			continue
		}
		return rec, nil
	}
}

// record reads one record. empty is set for a line holding nothing but
// (trimmed) whitespace.
func (l *lexer) record() (fields []string, empty bool, err error) {
	l.line++
	var (
		b       strings.Builder
		quoted  bool // current field was quoted
		anyQ    bool // some field of the record was quoted
		started bool // any rune consumed for this record
	)
	endField := func() {
		v := b.String()
		if !quoted {
			if l.opt.TrimSpace {
				v = strings.TrimSpace(v)
			} else if l.lines {
				v = strings.TrimSuffix(v, "\r")
			}
		}
		fields = append(fields, v)
		b.Reset()
		quoted = false
	}
	blank := func() bool {
		return !anyQ && len(fields) == 1 && fields[0] == ""
	}

	for {
		r, _, rerr := l.br.ReadRune()
		if rerr == io.EOF {
			if !started {
				return nil, false, io.EOF
			}
			endField()
			if blank() {
				return nil, false, io.EOF
			}
			return fields, false, nil
		}
		if rerr != nil {
			return nil, false, rerr
		}
		started = true

		switch {
		case l.opt.Escape != 0 && r == l.opt.Escape:
			next, _, err := l.br.ReadRune()
			if err != nil {
				b.WriteRune(r)
				continue
			}
			b.WriteRune(next)

		case l.opt.Quote != 0 && r == l.opt.Quote && !quoted && isBlank(b.String(), l.opt.TrimSpace):
			b.Reset()
			if err := l.quotedField(&b); err != nil {
				return nil, false, fmt.Errorf("line %d: %w", l.line, err)
			}
			quoted, anyQ = true, true

		case r == l.opt.Comma:
			endField()

		case l.atSeparator(r):
			endField()
			if blank() {
				return nil, true, nil
			}
			return fields, false, nil

		case quoted && (l.opt.TrimSpace || r == '\r') && unicode.IsSpace(r):
			// whitespace after a closing quote

		default:
			b.WriteRune(r)
		}
	}
}

// quotedField consumes runes after an opening quote up to and including
// the closing quote.
func (l *lexer) quotedField(b *strings.Builder) error {
	for {
		r, _, err := l.br.ReadRune()
		if err == io.EOF {
			return errUnterminated
		}
		if err != nil {
			return err
		}
		switch {
		case l.opt.Escape != 0 && r == l.opt.Escape:
			next, _, err := l.br.ReadRune()
			if err != nil {
				return errUnterminated
			}
			b.WriteRune(next)
		case r == l.opt.Quote:
			next, _, err := l.br.ReadRune()
			if err == nil && next == l.opt.Quote && l.opt.Escape == 0 {
				b.WriteRune(r)
				continue
			}
			if err == nil {
				_ = l.br.UnreadRune()
			}
			return nil
		default:
			b.WriteRune(r)
		}
	}
}

// isBlank reports whether the text before a quote allows the quote to open
// a quoted field: nothing, or only whitespace when trimming.
func isBlank(s string, trim bool) bool {
	if s == "" {
		return true
	}
	if !trim {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}
