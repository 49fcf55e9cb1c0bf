// Package lexer tokenizes C declarators such as "const char *const *".
package lexer

import (
	"strings"
	"unicode"
)

// whitespace is both the separator the rewrite inserts and the set of
// characters the Splitter treats as delimiters.
const whitespace = " \t\n\r\v\f"

// Lexer tokenizes a declarator
type Lexer struct {
	input    string
	text     string // input with explicit token boundaries inserted
	cols     []int  // cols[i] is the input offset of text[i], -1 for inserted boundaries
	splitter *Splitter
}

// New creates a new Lexer for the given input
func New(input string) *Lexer {
	l := &Lexer{input: input}
	l.rewrite()
	l.splitter = NewSplitter(l.text, whitespace)
	return l
}

// rewrite makes every '*' a token of its own, starts a new token at every
// '[' and ends one after every ']'. Whitespace between brackets is dropped so
// that "[ ]" reads as "[]".
func (l *Lexer) rewrite() {
	var b strings.Builder
	b.Grow(len(l.input) * 3)
	l.cols = make([]int, 0, len(l.input)*3)

	emit := func(ch byte, col int) {
		b.WriteByte(ch)
		l.cols = append(l.cols, col)
	}

	inBracket := false
	for i := 0; i < len(l.input); i++ {
		ch := l.input[i]
		switch {
		case isSpace(ch):
			if !inBracket {
				emit(' ', -1)
			}
		case ch == '*':
			emit(' ', -1)
			emit(ch, i)
			emit(' ', -1)
		case ch == '[':
			emit(' ', -1)
			emit(ch, i)
			inBracket = true
		case ch == ']':
			emit(ch, i)
			emit(' ', -1)
			inBracket = false
		default:
			emit(ch, i)
		}
	}
	l.text = b.String()
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() Token {
	word := l.splitter.Next()
	if word == "" {
		return Token{Type: TokenEOF, Column: len(l.input) + 1}
	}
	return Token{
		Type:    LookupIdent(word),
		Literal: word,
		Column:  l.cols[l.splitter.Offset()] + 1,
	}
}

// Input returns the text the lexer was created with.
func (l *Lexer) Input() string {
	return l.input
}

func isSpace(ch byte) bool {
	return strings.IndexByte(whitespace, ch) >= 0
}

func isLetter(ch byte) bool {
	return unicode.IsLetter(rune(ch)) || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
