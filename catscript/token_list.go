package catscript

// tokenList is a replayable cursor over a scanned token sequence.
type tokenList struct {
	tokens []Token
	idx    int
}

func newTokenList(tokens []Token) *tokenList {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != tokenEOF {
		tokens = append(tokens, Token{Type: tokenEOF})
	}
	return &tokenList{tokens: tokens}
}

func (tl *tokenList) current() Token {
	return tl.tokens[tl.idx]
}

// consume returns the current token and advances, never moving past EOF.
func (tl *tokenList) consume() Token {
	tok := tl.tokens[tl.idx]
	if tok.Type != tokenEOF {
		tl.idx++
	}
	return tok
}

func (tl *tokenList) match(types ...TokenType) bool {
	cur := tl.current().Type
	for _, tt := range types {
		if cur == tt {
			return true
		}
	}
	return false
}

func (tl *tokenList) hasMoreTokens() bool {
	return tl.current().Type != tokenEOF
}

func (tl *tokenList) previous() Token {
	if tl.idx == 0 {
		return tl.tokens[0]
	}
	return tl.tokens[tl.idx-1]
}

// reset rewinds to the first token for the statement-mode retry.
func (tl *tokenList) reset() { tl.idx = 0 }
