package catscript

import "strconv"

func (p *parser) parseExpression() Expression {
	p.enter()
	defer p.leave()
	return p.parseEqualityExpression()
}

// parseBinary parses one left-associative precedence level.
func (p *parser) parseBinary(next func() Expression, build func(op TokenType, left, right Expression) Expression, ops ...TokenType) Expression {
	expr := next()
	for p.tokens.match(ops...) {
		op := p.tokens.consume()
		rhs := next()
		combined := node(p, build(op.Type, expr, rhs), expr.Span().Start)
		p.end(combined)
		p.program.adopt(combined, expr, rhs)
		expr = combined
	}
	return expr
}

func (p *parser) parseEqualityExpression() Expression {
	return p.parseBinary(p.parseComparisonExpression, func(op TokenType, l, r Expression) Expression {
		return &EqualityExpression{Operator: op, Left: l, Right: r}
	}, tokenEQ, tokenNotEQ)
}

func (p *parser) parseComparisonExpression() Expression {
	return p.parseBinary(p.parseAdditiveExpression, func(op TokenType, l, r Expression) Expression {
		return &ComparisonExpression{Operator: op, Left: l, Right: r}
	}, tokenLT, tokenGT, tokenLTE, tokenGTE)
}

func (p *parser) parseAdditiveExpression() Expression {
	return p.parseBinary(p.parseMultiplicativeExpression, func(op TokenType, l, r Expression) Expression {
		return &AdditiveExpression{Operator: op, Left: l, Right: r}
	}, tokenPlus, tokenMinus)
}

func (p *parser) parseMultiplicativeExpression() Expression {
	return p.parseBinary(p.parseUnaryExpression, func(op TokenType, l, r Expression) Expression {
		return &MultiplicativeExpression{Operator: op, Left: l, Right: r}
	}, tokenAsterisk, tokenSlash)
}

func (p *parser) parseUnaryExpression() Expression {
	if !p.tokens.match(tokenMinus, tokenBang) {
		return p.parsePrimaryExpression()
	}
	p.enter()
	defer p.leave()
	op := p.tokens.consume()
	operand := p.parseUnaryExpression()
	unary := node(p, &UnaryExpression{Operator: op.Type, Operand: operand}, op)
	p.end(unary)
	p.program.adopt(unary, operand)
	return unary
}

func (p *parser) parsePrimaryExpression() Expression {
	tok := p.tokens.current()
	switch tok.Type {
	case tokenLParen:
		p.tokens.consume()
		paren := node(p, &ParenthesizedExpression{}, tok)
		paren.Inner = p.parseExpression()
		p.require(tokenRParen, paren)
		p.end(paren)
		p.program.adopt(paren, paren.Inner)
		return paren
	case tokenLBracket:
		p.tokens.consume()
		list := node(p, &ListLiteral{}, tok)
		list.Elements = p.parseExpressionList(tokenRBracket, list, UnterminatedList)
		p.end(list)
		p.program.adopt(list, expressionNodes(list.Elements)...)
		return list
	case tokenInt:
		p.tokens.consume()
		lit := node(p, &IntegerLiteral{}, tok)
		value, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			lit.addErrorAt(UnexpectedToken, tok)
		}
		lit.Value = value
		p.end(lit)
		return lit
	case tokenString:
		p.tokens.consume()
		lit := node(p, &StringLiteral{Value: tok.Literal}, tok)
		p.end(lit)
		return lit
	case tokenTrue, tokenFalse:
		p.tokens.consume()
		lit := node(p, &BooleanLiteral{Value: tok.Type == tokenTrue}, tok)
		p.end(lit)
		return lit
	case tokenNull:
		p.tokens.consume()
		lit := node(p, &NullLiteral{}, tok)
		p.end(lit)
		return lit
	case tokenIdent:
		p.tokens.consume()
		if !p.tokens.match(tokenLParen) {
			ident := node(p, &Identifier{Name: tok.Literal}, tok)
			p.end(ident)
			return ident
		}
		p.tokens.consume()
		call := node(p, &FunctionCall{Name: tok.Literal}, tok)
		call.Arguments = p.parseExpressionList(tokenRParen, call, UnterminatedArgList)
		p.end(call)
		p.program.adopt(call, expressionNodes(call.Arguments)...)
		return call
	default:
		p.tokens.consume()
		bad := node(p, &SyntaxErrorExpression{Token: tok}, tok)
		bad.addErrorAt(UnexpectedToken, tok)
		p.end(bad)
		return bad
	}
}

// parseExpressionList parses comma separated expressions up to and including
// the closing delimiter. Reaching end of input first records unterminated on owner.
func (p *parser) parseExpressionList(closing TokenType, owner Node, unterminated ErrorKind) []Expression {
	var out []Expression
	for !p.tokens.match(closing) {
		if !p.tokens.hasMoreTokens() {
			owner.info().addErrorAt(unterminated, p.tokens.current())
			return out
		}
		out = append(out, p.parseExpression())
		switch {
		case p.tokens.match(tokenComma):
			p.tokens.consume()
		case p.tokens.match(closing):
		case !p.tokens.hasMoreTokens():
			owner.info().addErrorAt(unterminated, p.tokens.current())
			return out
		default:
			owner.info().addErrorAt(UnexpectedToken, p.tokens.current())
			return out
		}
	}
	p.tokens.consume()
	return out
}

func canStartExpression(tt TokenType) bool {
	switch tt {
	case tokenInt, tokenString, tokenTrue, tokenFalse, tokenNull, tokenIdent,
		tokenLParen, tokenLBracket, tokenMinus, tokenBang:
		return true
	default:
		return false
	}
}
