// Package parser decomposes C declarators into ctypes.Shape values
package parser

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/raymyers/qualcheck/pkg/ctypes"
	"github.com/raymyers/qualcheck/pkg/invariant"
	"github.com/raymyers/qualcheck/pkg/lexer"
)

// Reasons a declarator is rejected. ParseError wraps exactly one of these.
var (
	ErrMissingBase    = errors.New("missing or unknown base type")
	ErrDuplicateConst = errors.New("duplicate const")
	ErrArrayNotLast   = errors.New("[] must be the last construct")
	ErrUnknownToken   = errors.New("unknown token")
	ErrUnsupported    = errors.New("parenthesized declarators are not supported")
)

// ParseError describes the first problem found in a declarator
type ParseError struct {
	Err        error // one of the Err* reasons above
	Column     int
	Token      string
	Suggestion string
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "col %d: %v", e.Column, e.Err)
	if e.Token != "" {
		fmt.Fprintf(&b, " %q", e.Token)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, " (did you mean %q?)", e.Suggestion)
	}
	return b.String()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parser parses one declarator into a ctypes.Shape
type Parser struct {
	l         *lexer.Lexer
	curToken  lexer.Token
	peekToken lexer.Token
	errors    []string
	err       *ParseError
}

// New creates a new Parser for the given lexer
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	// Read two tokens to initialize curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// Parse decomposes text. Malformed input yields ctypes.Invalid().
func Parse(text string) ctypes.Shape {
	return New(lexer.New(text)).ParseShape()
}

// Decompose is Parse for callers that need to know why text was rejected.
func Decompose(text string) (ctypes.Shape, error) {
	p := New(lexer.New(text))
	shape := p.ParseShape()
	return shape, p.Err()
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

// Errors returns the list of parsing errors
func (p *Parser) Errors() []string {
	return p.errors
}

// Err returns the first parsing error as a *ParseError, or nil
func (p *Parser) Err() error {
	if p.err == nil {
		return nil
	}
	return p.err
}

func (p *Parser) addError(reason error, suggestion string) {
	e := &ParseError{
		Err:        reason,
		Column:     p.curToken.Column,
		Token:      p.curToken.Literal,
		Suggestion: suggestion,
	}
	if p.err == nil {
		p.err = e
	}
	p.errors = append(p.errors, e.Error())
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t lexer.TokenType) bool {
	return p.peekToken.Type == t
}

// ParseShape parses ["const"] "char" {"*" ["const"] | "[]"}.
func (p *Parser) ParseShape() ctypes.Shape {
	// Collected base-first while scanning left to right; reversed at the end.
	quals := []bool{false}
	var levels []ctypes.Level

	if p.curTokenIs(lexer.TokenConst) {
		quals[0] = true
		p.nextToken()
	}

	if !p.curTokenIs(lexer.TokenChar) {
		p.badToken(ErrMissingBase)
		return ctypes.Invalid()
	}
	p.nextToken()

	for !p.curTokenIs(lexer.TokenEOF) {
		last := len(quals) - 1

		switch p.curToken.Type {
		case lexer.TokenStar:
			quals = append(quals, false)
			levels = append(levels, ctypes.PointerTo)

		case lexer.TokenArray:
			// array elements carry the qualifier of the array itself
			quals = append(quals, quals[last])
			levels = append(levels, ctypes.ArrayOf)
			if !p.peekTokenIs(lexer.TokenEOF) {
				p.nextToken()
				p.addError(ErrArrayNotLast, "")
				return ctypes.Invalid()
			}

		case lexer.TokenConst:
			if quals[last] {
				p.addError(ErrDuplicateConst, "")
				return ctypes.Invalid()
			}
			quals[last] = true

		default:
			p.badToken(ErrUnknownToken)
			return ctypes.Invalid()
		}

		p.nextToken()
	}

	invariant.Invariant(len(quals) == len(levels)+1,
		"%d qualifiers collected for %d levels", len(quals), len(levels))

	slices.Reverse(quals)
	slices.Reverse(levels)
	return ctypes.NewShape(ctypes.Char, quals, levels)
}

// badToken records reason for the current token, upgrading it to
// ErrUnsupported for parenthesized declarators.
func (p *Parser) badToken(reason error) {
	lit := p.curToken.Literal
	if strings.ContainsAny(lit, "()") {
		p.addError(ErrUnsupported, "")
		return
	}
	if !p.curTokenIs(lexer.TokenIdent) {
		p.addError(reason, "")
		return
	}
	p.addError(reason, suggest(lit))
}

// suggest returns the keyword closest to word, or "" if nothing is close.
func suggest(word string) string {
	var candidates []string
	for _, kw := range lexer.Keywords() {
		if lexer.LookupIdent(kw) == lexer.TokenConst || lexer.LookupIdent(kw) == lexer.TokenChar {
			candidates = append(candidates, kw)
		}
	}

	ranks := fuzzy.RankFindFold(word, candidates)
	if len(ranks) == 0 {
		// "constchar" and friends: a keyword hidden inside the word
		for _, kw := range candidates {
			if fuzzy.MatchFold(kw, word) {
				return kw
			}
		}
		return ""
	}
	sort.Sort(ranks)
	return ranks[0].Target
}
