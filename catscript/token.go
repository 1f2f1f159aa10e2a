package catscript

// TokenType identifies the lexical category of a token.
type TokenType uint8

const (
	tokenIllegal TokenType = iota
	tokenEOF
	tokenIdent
	tokenInt
	tokenString

	// operators and punctuation
	tokenAssign
	tokenPlus
	tokenMinus
	tokenBang
	tokenAsterisk
	tokenSlash
	tokenLT
	tokenGT
	tokenLTE
	tokenGTE
	tokenEQ
	tokenNotEQ
	tokenComma
	tokenColon
	tokenLParen
	tokenRParen
	tokenLBrace
	tokenRBrace
	tokenLBracket
	tokenRBracket

	// keywords
	tokenElse
	tokenFalse
	tokenFor
	tokenFunction
	tokenIf
	tokenIn
	tokenNull
	tokenPrint
	tokenReturn
	tokenTrue
	tokenVar

	tokenTypeCount
)

// spellings holds the source text of fixed tokens and a label for the rest.
var spellings = [tokenTypeCount]string{
	tokenIllegal: "ILLEGAL",
	tokenEOF:     "EOF",
	tokenIdent:   "IDENT",
	tokenInt:     "INT",
	tokenString:  "STRING",

	tokenAssign: "=", tokenPlus: "+", tokenMinus: "-", tokenBang: "!",
	tokenAsterisk: "*", tokenSlash: "/",
	tokenLT: "<", tokenGT: ">", tokenLTE: "<=", tokenGTE: ">=",
	tokenEQ: "==", tokenNotEQ: "!=",
	tokenComma: ",", tokenColon: ":",
	tokenLParen: "(", tokenRParen: ")",
	tokenLBrace: "{", tokenRBrace: "}",
	tokenLBracket: "[", tokenRBracket: "]",

	tokenElse: "else", tokenFalse: "false", tokenFor: "for", tokenFunction: "function",
	tokenIf: "if", tokenIn: "in", tokenNull: "null", tokenPrint: "print",
	tokenReturn: "return", tokenTrue: "true", tokenVar: "var",
}

func (t TokenType) String() string {
	if t < tokenTypeCount {
		return spellings[t]
	}
	return "?"
}

var keywordTypes = func() map[string]TokenType {
	m := make(map[string]TokenType, tokenVar-tokenElse+1)
	for t := tokenElse; t <= tokenVar; t++ {
		m[spellings[t]] = t
	}
	return m
}()

// Keywords lists the reserved words of the language in source spelling.
var Keywords = func() []string {
	out := make([]string, 0, len(keywordTypes))
	for t := tokenElse; t <= tokenVar; t++ {
		out = append(out, spellings[t])
	}
	return out
}()

// Token captures lexical information for the parser.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}

// IsEOF reports whether the token marks the end of input.
func (t Token) IsEOF() bool { return t.Type == tokenEOF }

// Position is a 1-based line and rune column.
type Position struct {
	Line   int
	Column int
}

// Span covers the tokens a node was parsed from.
type Span struct {
	Start Token
	End   Token
}
