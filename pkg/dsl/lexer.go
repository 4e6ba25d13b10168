package dsl

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenIdent
	tokenNumber
	tokenString
	tokenSymbol
)

type token struct {
	typ tokenType
	lit string
	pos int
}

// SyntaxError reports a malformed P-expression.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("pexpr parse: %s at %d", e.Msg, e.Pos)
}

func isIdentRune(r rune, first bool) bool {
	if r == '_' || unicode.IsLetter(r) {
		return true
	}
	if first {
		return false
	}
	return unicode.IsDigit(r) || r == '.' || r == '-'
}

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		r, w := utf8.DecodeRuneInString(src[i:])
		switch {
		case unicode.IsSpace(r):
			i += w
		case r == '#' && i+1 < len(src) && src[i+1] == '#':
			// ## comment until end of line
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case strings.ContainsRune("(),=?${}^#", r):
			toks = append(toks, token{typ: tokenSymbol, lit: string(r), pos: i})
			i += w
		case r == '"' || r == '\'':
			lit, n, err := lexString(src[i:], r)
			if err != nil {
				return nil, &SyntaxError{Pos: i, Msg: err.Error()}
			}
			toks = append(toks, token{typ: tokenString, lit: lit, pos: i})
			i += n
		case unicode.IsDigit(r) || ((r == '-' || r == '+') && i+1 < len(src) && isDigitByte(src[i+1])):
			start := i
			i++
			for i < len(src) && (isDigitByte(src[i]) || strings.IndexByte(".eE", src[i]) >= 0 ||
				((src[i] == '-' || src[i] == '+') && (src[i-1] == 'e' || src[i-1] == 'E'))) {
				i++
			}
			toks = append(toks, token{typ: tokenNumber, lit: src[start:i], pos: start})
		case isIdentRune(r, true):
			start := i
			for i < len(src) {
				r, w := utf8.DecodeRuneInString(src[i:])
				if !isIdentRune(r, false) {
					break
				}
				i += w
			}
			toks = append(toks, token{typ: tokenIdent, lit: src[start:i], pos: start})
		default:
			return nil, &SyntaxError{Pos: i, Msg: fmt.Sprintf("unexpected character %q", r)}
		}
	}
	toks = append(toks, token{typ: tokenEOF, pos: len(src)})
	return toks, nil
}

func isDigitByte(c byte) bool {
	return c >= '0' && c <= '9'
}

// lexString reads a quoted string starting at s[0] and returns the
// unquoted value and the number of bytes consumed.
func lexString(s string, quote rune) (string, int, error) {
	escaped := false
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case rune(c) == quote:
			raw := s[:i+1]
			if quote == '\'' {
				raw = `"` + strings.ReplaceAll(strings.ReplaceAll(raw[1:i], `\'`, `'`), `"`, `\"`) + `"`
			}
			v, err := strconv.Unquote(raw)
			if err != nil {
				return "", 0, fmt.Errorf("invalid string literal %s", s[:i+1])
			}
			return v, i + 1, nil
		}
	}
	return "", 0, fmt.Errorf("unterminated string")
}
