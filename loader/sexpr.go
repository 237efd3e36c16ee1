package loader

import (
	"fmt"
	"strings"
)

// sexp is one parsed s-expression: an atom, a quoted string or a list.
type sexp struct {
	atom   string
	quoted bool
	list   []sexp
	isList bool
	pos    int // byte offset in the source
}

func (s sexp) String() string {
	switch {
	case s.quoted:
		return fmt.Sprintf("%q", s.atom)
	case !s.isList:
		return s.atom
	}
	parts := make([]string, len(s.list))
	for i, ch := range s.list {
		parts[i] = ch.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// head returns the leading atom of a list, or "".
func (s sexp) head() string {
	if !s.isList || len(s.list) == 0 || s.list[0].isList || s.list[0].quoted {
		return ""
	}
	return s.list[0].atom
}

// SyntaxError reports malformed s-expression text.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Pos, e.Msg)
}

// parseSexp reads exactly one expression from src. Text after a ';' up to the
// end of the line is a comment.
func parseSexp(src string) (sexp, error) {
	r := &sexpReader{src: src}
	r.skip()
	if r.eof() {
		return sexp{}, &SyntaxError{Pos: 0, Msg: "empty expression"}
	}
	s, err := r.read()
	if err != nil {
		return sexp{}, err
	}
	r.skip()
	if !r.eof() {
		return sexp{}, &SyntaxError{Pos: r.pos, Msg: "unexpected text after expression"}
	}
	return s, nil
}

type sexpReader struct {
	src string
	pos int
}

func (r *sexpReader) eof() bool { return r.pos >= len(r.src) }

func (r *sexpReader) skip() {
	for !r.eof() {
		switch c := r.src[r.pos]; {
		case c == ';':
			for !r.eof() && r.src[r.pos] != '\n' {
				r.pos++
			}
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			r.pos++
		default:
			return
		}
	}
}

func (r *sexpReader) read() (sexp, error) {
	start := r.pos
	switch r.src[r.pos] {
	case '(':
		r.pos++
		out := sexp{isList: true, pos: start}
		for {
			r.skip()
			if r.eof() {
				return sexp{}, &SyntaxError{Pos: start, Msg: "unclosed '('"}
			}
			if r.src[r.pos] == ')' {
				r.pos++
				return out, nil
			}
			ch, err := r.read()
			if err != nil {
				return sexp{}, err
			}
			out.list = append(out.list, ch)
		}
	case ')':
		return sexp{}, &SyntaxError{Pos: start, Msg: "unexpected ')'"}
	case '"':
		return r.readString()
	}
	for !r.eof() {
		c := r.src[r.pos]
		if c == '(' || c == ')' || c == '"' || c == ';' || c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			break
		}
		r.pos++
	}
	return sexp{atom: r.src[start:r.pos], pos: start}, nil
}

func (r *sexpReader) readString() (sexp, error) {
	start := r.pos
	r.pos++ // opening quote
	var b strings.Builder
	for !r.eof() {
		c := r.src[r.pos]
		switch c {
		case '"':
			r.pos++
			return sexp{atom: b.String(), quoted: true, pos: start}, nil
		case '\\':
			r.pos++
			if r.eof() {
				break
			}
			switch e := r.src[r.pos]; e {
			case 'n':
				b.WriteByte('\n')
			case '"', '\\':
				b.WriteByte(e)
			default:
				return sexp{}, &SyntaxError{Pos: r.pos, Msg: fmt.Sprintf("unknown escape \\%c", e)}
			}
			r.pos++
		default:
			b.WriteByte(c)
			r.pos++
		}
	}
	return sexp{}, &SyntaxError{Pos: start, Msg: "unterminated string"}
}
