package catscript

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// operatorTypes maps a one-rune operator to its token type and, when the
// operator may be followed by '=', the type of the two-rune form.
var operatorTypes = map[rune][2]TokenType{
	'+': {tokenPlus}, '-': {tokenMinus}, '*': {tokenAsterisk}, '/': {tokenSlash},
	'(': {tokenLParen}, ')': {tokenRParen},
	'{': {tokenLBrace}, '}': {tokenRBrace},
	'[': {tokenLBracket}, ']': {tokenRBracket},
	',': {tokenComma}, ':': {tokenColon},
	'=': {tokenAssign, tokenEQ},
	'!': {tokenBang, tokenNotEQ},
	'<': {tokenLT, tokenLTE},
	'>': {tokenGT, tokenGTE},
}

// scanner walks the source one rune at a time. ch is the rune at start;
// end is the byte offset just past it.
type scanner struct {
	src   string
	start int
	end   int
	ch    rune
	pos   Position
}

const eof rune = -1

// tokenize scans the whole input; the result always ends with an EOF token.
func tokenize(input string) []Token {
	s := &scanner{src: input, pos: Position{Line: 1}}
	s.advance()
	var tokens []Token
	for {
		tok := s.scan()
		tokens = append(tokens, tok)
		if tok.Type == tokenEOF {
			return tokens
		}
	}
}

// advance moves to the next rune. At the end of input the column still moves
// one past the last rune so the EOF token points after it.
func (s *scanner) advance() {
	if s.ch == '\n' {
		s.pos.Line++
		s.pos.Column = 0
	}
	s.start = s.end
	if s.start >= len(s.src) {
		if s.ch != eof {
			s.pos.Column++
		}
		s.ch = eof
		return
	}
	r, w := utf8.DecodeRuneInString(s.src[s.start:])
	s.ch = r
	s.end += w
	s.pos.Column++
}

func (s *scanner) peek() rune {
	if s.end >= len(s.src) {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(s.src[s.end:])
	return r
}

func (s *scanner) scan() Token {
	s.skipBlank()
	at := s.pos

	switch ch := s.ch; {
	case ch == eof:
		return Token{Type: tokenEOF, Pos: at}
	case ch == '"':
		literal, ok := s.scanString()
		if !ok {
			return Token{Type: tokenIllegal, Literal: "unterminated string", Pos: at}
		}
		return Token{Type: tokenString, Literal: literal, Pos: at}
	case unicode.IsLetter(ch) || ch == '_':
		word := s.consume(isIdentifierRune)
		tt, ok := keywordTypes[word]
		if !ok {
			tt = tokenIdent
		}
		return Token{Type: tt, Literal: word, Pos: at}
	case unicode.IsDigit(ch):
		return Token{Type: tokenInt, Literal: s.consume(unicode.IsDigit), Pos: at}
	}

	types, ok := operatorTypes[s.ch]
	if !ok {
		return Token{Type: tokenIllegal, Literal: s.take(), Pos: at}
	}
	if types[1] != tokenIllegal && s.peek() == '=' {
		return Token{Type: types[1], Literal: s.take() + s.take(), Pos: at}
	}
	return Token{Type: types[0], Literal: s.take(), Pos: at}
}

// take returns the current rune as a string and advances past it.
func (s *scanner) take() string {
	text := s.src[s.start:s.end]
	s.advance()
	return text
}

// consume advances over the longest run of runes satisfying keep.
func (s *scanner) consume(keep func(rune) bool) string {
	from := s.start
	for s.ch != eof && keep(s.ch) {
		s.advance()
	}
	return s.src[from:s.start]
}

func (s *scanner) skipBlank() {
	for {
		switch {
		case s.ch == ' ' || s.ch == '\t' || s.ch == '\r' || s.ch == '\n':
			s.advance()
		case s.ch == '/' && s.peek() == '/':
			for s.ch != eof && s.ch != '\n' {
				s.advance()
			}
		default:
			return
		}
	}
}

// scanString reads a double-quoted literal. \n and \t are the only named
// escapes; a backslash before any other rune yields that rune.
func (s *scanner) scanString() (string, bool) {
	var sb strings.Builder
	s.advance()
	for s.ch != '"' {
		switch s.ch {
		case eof:
			return "", false
		case '\\':
			s.advance()
			switch s.ch {
			case eof:
				return "", false
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteRune(s.ch)
			}
		default:
			sb.WriteRune(s.ch)
		}
		s.advance()
	}
	s.advance()
	return sb.String(), true
}

func isIdentifierRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
