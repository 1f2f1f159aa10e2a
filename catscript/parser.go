package catscript

import "fmt"

const defaultMaxNestingDepth = 256

type parser struct {
	tokens  *tokenList
	program *Program
	source  string

	depth    int
	maxDepth int
	tooDeep  bool

	function NodeID
}

func newParser(source string, maxDepth int) *parser {
	if maxDepth <= 0 {
		maxDepth = defaultMaxNestingDepth
	}
	return &parser{
		tokens:   newTokenList(tokenize(source)),
		source:   source,
		maxDepth: maxDepth,
		function: noNode,
	}
}

// Parse builds a Program from source. A source consisting of exactly one
// well-formed expression yields an expression-mode program; anything else is
// parsed as a statement sequence. Syntax problems are recorded as diagnostics
// on the tree; the returned error is reserved for fatal failures.
func Parse(source string) (*Program, error) {
	return newParser(source, defaultMaxNestingDepth).parse()
}

// ParseAsExpression forces expression mode and fails when the source is not a
// single expression.
func ParseAsExpression(source string) (*Program, error) {
	return newParser(source, defaultMaxNestingDepth).parseAsExpression()
}

func (p *parser) parse() (*Program, error) {
	if !p.tokens.hasMoreTokens() {
		p.program = newProgram(p.source)
		p.program.span = Span{Start: p.tokens.current(), End: p.tokens.current()}
		return p.program, nil
	}

	program, err := p.parseAsExpression()
	if err == nil || p.tooDeep {
		return program, err
	}

	p.tokens.reset()
	p.depth = 0
	p.function = noNode
	p.program = newProgram(p.source)
	start := p.tokens.current()
	err = p.catch(func() {
		for p.tokens.hasMoreTokens() {
			stmt := p.parseStatement(true)
			p.program.Statements = append(p.program.Statements, stmt)
			p.program.adopt(p.program, stmt)
		}
	})
	if err != nil {
		return nil, err
	}
	p.program.span = Span{Start: start, End: p.tokens.current()}
	p.program.indexFunctions()
	return p.program, nil
}

func (p *parser) parseAsExpression() (*Program, error) {
	p.program = newProgram(p.source)
	start := p.tokens.current()
	var expr Expression
	if err := p.catch(func() { expr = p.parseExpression() }); err != nil {
		return nil, err
	}
	if p.tokens.hasMoreTokens() {
		offending := p.tokens.current()
		Inspect(expr, func(n Node) bool {
			if bad, ok := n.(*SyntaxErrorExpression); ok {
				offending = bad.Token
				return false
			}
			return true
		})
		return nil, &ParseError{
			Token:   offending,
			Message: fmt.Sprintf("expected a single expression, found %s", tokenLabel(offending)),
			source:  p.source,
		}
	}
	p.program.Expression = expr
	p.program.adopt(p.program, expr)
	p.program.span = Span{Start: start, End: p.tokens.current()}
	return p.program, nil
}

// catch converts a fatal *ParseError raised while parsing into a return value.
func (p *parser) catch(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			perr, ok := r.(*ParseError)
			if !ok {
				panic(r)
			}
			err = perr
		}
	}()
	fn()
	return nil
}

func (p *parser) enter() {
	p.depth++
	if p.depth > p.maxDepth {
		p.tooDeep = true
		panic(&ParseError{
			Token:   p.tokens.current(),
			Message: fmt.Sprintf("nesting exceeds %d levels", p.maxDepth),
			source:  p.source,
		})
	}
}

func (p *parser) leave() { p.depth-- }

// node registers n in the arena and records its first token.
func node[T Node](p *parser, n T, start Token) T {
	p.program.register(n)
	n.info().span.Start = start
	return n
}

// end closes n's span at the last consumed token.
func (p *parser) end(n Node) {
	n.info().span.End = p.tokens.previous()
}

// require consumes a token of the given type or records a diagnostic on
// owner, returning the current token without advancing.
func (p *parser) require(tt TokenType, owner Node) Token {
	return p.requireKind(tt, owner, UnexpectedToken)
}

func (p *parser) requireKind(tt TokenType, owner Node, kind ErrorKind) Token {
	if p.tokens.match(tt) {
		return p.tokens.consume()
	}
	owner.info().addErrorAt(kind, p.tokens.current())
	return p.tokens.current()
}

func tokenLabel(tok Token) string {
	switch tok.Type {
	case tokenEOF:
		return "end of input"
	case tokenIllegal:
		if tok.Literal == "unterminated string" {
			return tok.Literal
		}
		return fmt.Sprintf("invalid token %q", tok.Literal)
	case tokenString:
		return "string"
	case tokenInt:
		return "integer " + tok.Literal
	default:
		return fmt.Sprintf("%q", tok.Literal)
	}
}
