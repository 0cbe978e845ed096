package script

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokKeyword
	tokNumber
	tokString
	tokPunct
)

type pos struct {
	line, col int
}

func (p pos) String() string {
	return fmt.Sprintf("%d:%d", p.line, p.col)
}

type token struct {
	text string
	num  float64
	kind tokenKind
	at   pos
	// nl is set when a line break precedes the token.
	nl bool
}

var keywords = map[string]bool{
	"var": true, "let": true, "const": true, "function": true, "return": true,
	"if": true, "else": true, "while": true, "do": true, "for": true,
	"break": true, "continue": true, "throw": true, "try": true, "catch": true,
	"finally": true, "new": true, "typeof": true, "instanceof": true, "in": true,
	"delete": true, "void": true, "this": true, "null": true, "true": true,
	"false": true,
}

// Longest first, so "===" wins over "==" and "=".
var punctuators = []string{
	"===", "!==",
	"==", "!=", "<=", ">=", "&&", "||", "++", "--", "+=", "-=", "*=", "/=", "%=",
	"{", "}", "(", ")", "[", "]", ";", ",", ".", "?", ":",
	"+", "-", "*", "/", "%", "<", ">", "!", "=",
}

type lexer struct {
	src  string
	off  int
	line int
	col  int
}

// tokenize splits src into tokens, ending with tokEOF.
func tokenize(src string) ([]token, error) {
	lx := &lexer{src: src, line: 1, col: 1}
	var toks []token
	for {
		nl, err := lx.skipSpace()
		if err != nil {
			return nil, err
		}
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		tok.nl = nl
		toks = append(toks, tok)
		if tok.kind == tokEOF {
			return toks, nil
		}
	}
}

func (lx *lexer) here() pos {
	return pos{line: lx.line, col: lx.col}
}

func (lx *lexer) errorf(at pos, format string, args ...any) error {
	return &SyntaxError{Line: at.line, Column: at.col, Msg: fmt.Sprintf(format, args...)}
}

func (lx *lexer) peekRune() (rune, int) {
	if lx.off >= len(lx.src) {
		return 0, 0
	}
	return utf8.DecodeRuneInString(lx.src[lx.off:])
}

func (lx *lexer) advance(n int) {
	for i := 0; i < n; {
		r, size := utf8.DecodeRuneInString(lx.src[lx.off:])
		lx.off += size
		i += size
		if r == '\n' {
			lx.line++
			lx.col = 1
		} else {
			lx.col++
		}
	}
}

// skipSpace consumes whitespace and comments and reports whether a line
// break was among them.
func (lx *lexer) skipSpace() (bool, error) {
	nl := false
	for lx.off < len(lx.src) {
		rest := lx.src[lx.off:]
		switch {
		case rest[0] == '\n':
			nl = true
			lx.advance(1)
		case rest[0] == ' ' || rest[0] == '\t' || rest[0] == '\r':
			lx.advance(1)
		case strings.HasPrefix(rest, "//"):
			end := strings.IndexByte(rest, '\n')
			if end < 0 {
				end = len(rest)
			}
			lx.advance(end)
		case strings.HasPrefix(rest, "/*"):
			at := lx.here()
			end := strings.Index(rest[2:], "*/")
			if end < 0 {
				return nl, lx.errorf(at, "unterminated comment")
			}
			if strings.Contains(rest[:end+2], "\n") {
				nl = true
			}
			lx.advance(end + 4)
		default:
			r, size := utf8.DecodeRuneInString(rest)
			if !unicode.IsSpace(r) {
				return nl, nil
			}
			if r == '\u2028' || r == '\u2029' {
				nl = true
			}
			lx.advance(size)
		}
	}
	return nl, nil
}

func (lx *lexer) next() (token, error) {
	at := lx.here()
	if lx.off >= len(lx.src) {
		return token{kind: tokEOF, at: at}, nil
	}
	r, _ := lx.peekRune()
	switch {
	case isIdentStart(r):
		start := lx.off
		for lx.off < len(lx.src) {
			r, size := lx.peekRune()
			if !isIdentPart(r) {
				break
			}
			lx.advance(size)
		}
		text := lx.src[start:lx.off]
		kind := tokIdent
		if keywords[text] {
			kind = tokKeyword
		}
		return token{kind: kind, text: text, at: at}, nil
	case r >= '0' && r <= '9', r == '.' && lx.off+1 < len(lx.src) && isDigit(lx.src[lx.off+1]):
		return lx.number(at)
	case r == '"' || r == '\'':
		return lx.string(at, byte(r))
	}
	rest := lx.src[lx.off:]
	for _, p := range punctuators {
		if strings.HasPrefix(rest, p) {
			lx.advance(len(p))
			return token{kind: tokPunct, text: p, at: at}, nil
		}
	}
	return token{}, lx.errorf(at, "unexpected character %q", r)
}

func (lx *lexer) number(at pos) (token, error) {
	start := lx.off
	rest := lx.src[lx.off:]
	if len(rest) > 1 && rest[0] == '0' && (rest[1] == 'x' || rest[1] == 'X') {
		lx.advance(2)
		digits := lx.off
		for lx.off < len(lx.src) && isHexDigit(lx.src[lx.off]) {
			lx.advance(1)
		}
		if digits == lx.off {
			return token{}, lx.errorf(at, "malformed hexadecimal literal")
		}
		n, err := strconv.ParseUint(lx.src[digits:lx.off], 16, 64)
		if err != nil {
			return token{}, lx.errorf(at, "malformed hexadecimal literal")
		}
		return token{kind: tokNumber, num: float64(n), text: lx.src[start:lx.off], at: at}, nil
	}

	lx.digits()
	if lx.off < len(lx.src) && lx.src[lx.off] == '.' {
		lx.advance(1)
		lx.digits()
	}
	if lx.off < len(lx.src) && (lx.src[lx.off] == 'e' || lx.src[lx.off] == 'E') {
		lx.advance(1)
		if lx.off < len(lx.src) && (lx.src[lx.off] == '+' || lx.src[lx.off] == '-') {
			lx.advance(1)
		}
		if lx.off >= len(lx.src) || !isDigit(lx.src[lx.off]) {
			return token{}, lx.errorf(at, "malformed exponent")
		}
		lx.digits()
	}
	text := lx.src[start:lx.off]
	if lx.off < len(lx.src) {
		if r, _ := lx.peekRune(); isIdentStart(r) {
			return token{}, lx.errorf(lx.here(), "identifier starts immediately after numeric literal")
		}
	}
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token{}, lx.errorf(at, "malformed number %q", text)
	}
	return token{kind: tokNumber, num: n, text: text, at: at}, nil
}

func (lx *lexer) digits() {
	for lx.off < len(lx.src) && isDigit(lx.src[lx.off]) {
		lx.advance(1)
	}
}

func (lx *lexer) string(at pos, quote byte) (token, error) {
	lx.advance(1)
	var b strings.Builder
	for {
		if lx.off >= len(lx.src) {
			return token{}, lx.errorf(at, "unterminated string literal")
		}
		c := lx.src[lx.off]
		switch {
		case c == quote:
			lx.advance(1)
			return token{kind: tokString, text: b.String(), at: at}, nil
		case c == '\n':
			return token{}, lx.errorf(at, "unterminated string literal")
		case c == '\\':
			if err := lx.escape(&b); err != nil {
				return token{}, err
			}
		default:
			r, size := lx.peekRune()
			b.WriteRune(r)
			lx.advance(size)
		}
	}
}

func (lx *lexer) escape(b *strings.Builder) error {
	at := lx.here()
	lx.advance(1)
	if lx.off >= len(lx.src) {
		return lx.errorf(at, "unterminated escape sequence")
	}
	c := lx.src[lx.off]
	simple := map[byte]string{'n': "\n", 't': "\t", 'r': "\r", 'b': "\b", 'f': "\f", 'v': "\v", '0': "\x00", '\\': "\\", '\'': "'", '"': "\""}
	if s, ok := simple[c]; ok {
		b.WriteString(s)
		lx.advance(1)
		return nil
	}
	switch c {
	case '\n':
		lx.advance(1)
		return nil
	case 'x', 'u':
		width := 2
		if c == 'u' {
			width = 4
		}
		if lx.off+1+width > len(lx.src) {
			return lx.errorf(at, "malformed escape sequence")
		}
		hex := lx.src[lx.off+1 : lx.off+1+width]
		n, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return lx.errorf(at, "malformed escape sequence")
		}
		b.WriteRune(rune(n))
		lx.advance(1 + width)
		return nil
	}
	r, size := lx.peekRune()
	b.WriteRune(r)
	lx.advance(size)
	return nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}
