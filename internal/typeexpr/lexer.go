package typeexpr

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokKeyword
	tokInt
	tokStar
	tokAmp
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokLess
	tokGreater
	tokComma
	tokScope
	tokEllipsis
	tokIllegal
)

type token struct {
	kind tokenKind
	text string
	off  int
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", t.text)
}

// keywords are the words with a fixed meaning in a type expression.
var keywords = map[string]bool{
	"const": true, "volatile": true,
	"char": true, "wchar": true, "wchar_t": true, "bool": true, "short": true,
	"int": true, "long": true, "signed": true, "unsigned": true,
	"float": true, "double": true, "void": true,
	"struct": true, "class": true, "union": true, "enum": true, "typename": true,
}

// lex splits a type expression into tokens. '>' is always a single token
// so that "A<B<int>>" closes both argument lists.
func lex(src string) []token {
	var toks []token
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isIdentStart(c):
			j := i + 1
			for j < len(src) && isIdentPart(src[j]) {
				j++
			}
			word := src[i:j]
			kind := tokIdent
			if keywords[word] {
				kind = tokKeyword
			}
			toks = append(toks, token{kind: kind, text: word, off: i})
			i = j
		case unicode.IsDigit(rune(c)) || (c == '-' && i+1 < len(src) && unicode.IsDigit(rune(src[i+1]))):
			j := i + 1
			for j < len(src) && (isIdentPart(src[j])) {
				j++
			}
			toks = append(toks, token{kind: tokInt, text: src[i:j], off: i})
			i = j
		case strings.HasPrefix(src[i:], "::"):
			toks = append(toks, token{kind: tokScope, text: "::", off: i})
			i += 2
		case strings.HasPrefix(src[i:], "..."):
			toks = append(toks, token{kind: tokEllipsis, text: "...", off: i})
			i += 3
		default:
			kind, ok := punctuation[c]
			if !ok {
				kind = tokIllegal
			}
			toks = append(toks, token{kind: kind, text: string(c), off: i})
			i++
		}
	}
	return append(toks, token{kind: tokEOF, off: len(src)})
}

var punctuation = map[byte]tokenKind{
	'*': tokStar,
	'&': tokAmp,
	'(': tokLParen,
	')': tokRParen,
	'[': tokLBracket,
	']': tokRBracket,
	'<': tokLess,
	'>': tokGreater,
	',': tokComma,
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '~' || unicode.IsLetter(rune(c))
}

func isIdentPart(c byte) bool {
	return c == '_' || unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c))
}
