package lexer

// TokenType represents the type of a token
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenIllegal

	// Words that are not part of the declarator grammar
	TokenIdent // chr, int, foo

	// Keywords
	TokenConst // const
	TokenChar  // char

	// Declarator operators
	TokenStar  // *
	TokenArray // []
)

var tokenNames = map[TokenType]string{
	TokenEOF:     "EOF",
	TokenIllegal: "ILLEGAL",
	TokenIdent:   "IDENT",
	TokenConst:   "const",
	TokenChar:    "char",
	TokenStar:    "*",
	TokenArray:   "[]",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// Token represents a lexical token
type Token struct {
	Type    TokenType
	Literal string
	Column  int // 1-based column in the original declarator text
}

// keywords maps keyword and operator spellings to token types
var keywords = map[string]TokenType{
	"const": TokenConst,
	"char":  TokenChar,
	"*":     TokenStar,
	"[]":    TokenArray,
}

// Keywords returns every spelling the declarator grammar accepts.
func Keywords() []string {
	return []string{"const", "char", "*", "[]"}
}

// LookupIdent returns the token type for a word (keyword or IDENT)
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	for i := 0; i < len(ident); i++ {
		if !isWordByte(ident[i]) {
			return TokenIllegal
		}
	}
	return TokenIdent
}

func isWordByte(ch byte) bool {
	return isLetter(ch) || isDigit(ch)
}
