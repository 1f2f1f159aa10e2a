package catscript

// parseStatement tries each statement form in a fixed order. A token that
// starts none of them is consumed into a SyntaxErrorStatement so the parser
// always makes progress.
func (p *parser) parseStatement(topLevel bool) Statement {
	switch p.tokens.current().Type {
	case tokenPrint:
		return p.parsePrintStatement()
	case tokenFor:
		return p.parseForStatement()
	case tokenIf:
		return p.parseIfStatement()
	case tokenVar:
		return p.parseVariableDeclaration()
	case tokenIdent:
		return p.parseCallOrAssignmentStatement()
	case tokenFunction:
		if topLevel {
			return p.parseFunctionDefinition()
		}
	case tokenReturn:
		return p.parseReturnStatement()
	}

	tok := p.tokens.consume()
	bad := node(p, &SyntaxErrorStatement{Token: tok}, tok)
	bad.addErrorAt(UnexpectedToken, tok)
	p.end(bad)
	return bad
}

func (p *parser) parsePrintStatement() Statement {
	stmt := node(p, &PrintStatement{}, p.tokens.consume())
	p.require(tokenLParen, stmt)
	stmt.Expression = p.parseExpression()
	p.require(tokenRParen, stmt)
	p.end(stmt)
	p.program.adopt(stmt, stmt.Expression)
	return stmt
}

func (p *parser) parseForStatement() Statement {
	stmt := node(p, &ForStatement{}, p.tokens.consume())
	p.require(tokenLParen, stmt)
	if name := p.require(tokenIdent, stmt); name.Type == tokenIdent {
		stmt.Variable, stmt.VariableToken = name.Literal, name
	}
	p.require(tokenIn, stmt)
	stmt.Iterable = p.parseExpression()
	p.require(tokenRParen, stmt)
	stmt.Body = p.parseBlock(stmt)
	p.end(stmt)
	p.program.adopt(stmt, stmt.Iterable)
	p.program.adopt(stmt, statementNodes(stmt.Body)...)
	return stmt
}

func (p *parser) parseIfStatement() Statement {
	stmt := node(p, &IfStatement{}, p.tokens.consume())
	p.require(tokenLParen, stmt)
	stmt.Condition = p.parseExpression()
	p.require(tokenRParen, stmt)
	stmt.Then = p.parseBlock(stmt)
	if p.tokens.match(tokenElse) {
		p.tokens.consume()
		if p.tokens.match(tokenIf) {
			stmt.Else = []Statement{p.parseIfStatement()}
		} else {
			stmt.Else = p.parseBlock(stmt)
		}
	}
	p.end(stmt)
	p.program.adopt(stmt, stmt.Condition)
	p.program.adopt(stmt, statementNodes(stmt.Then)...)
	p.program.adopt(stmt, statementNodes(stmt.Else)...)
	return stmt
}

func (p *parser) parseVariableDeclaration() Statement {
	stmt := node(p, &VariableDeclaration{}, p.tokens.consume())
	if name := p.require(tokenIdent, stmt); name.Type == tokenIdent {
		stmt.Name, stmt.NameToken = name.Literal, name
	}
	if p.tokens.match(tokenColon) {
		p.tokens.consume()
		stmt.ExplicitType = p.parseTypeLiteral(stmt, false)
	}
	p.require(tokenAssign, stmt)
	stmt.Value = p.parseExpression()
	p.end(stmt)
	p.program.adopt(stmt, stmt.Value)
	return stmt
}

// parseCallOrAssignmentStatement parses the primary expression at an
// identifier. A call stands alone; a bare identifier becomes an assignment target.
func (p *parser) parseCallOrAssignmentStatement() Statement {
	start := p.tokens.current()
	target := p.parsePrimaryExpression()
	if call, ok := target.(*FunctionCall); ok {
		stmt := node(p, &FunctionCallStatement{Call: call}, start)
		p.end(stmt)
		p.program.adopt(stmt, call)
		return stmt
	}

	stmt := node(p, &AssignmentStatement{Name: start.Literal}, start)
	p.require(tokenAssign, stmt)
	stmt.Value = p.parseExpression()
	p.end(stmt)
	p.program.adopt(stmt, stmt.Value)
	return stmt
}

func (p *parser) parseFunctionDefinition() Statement {
	fn := node(p, &FunctionDefinition{}, p.tokens.consume())
	if name := p.require(tokenIdent, fn); name.Type == tokenIdent {
		fn.Name = name.Literal
	}
	p.require(tokenLParen, fn)
	// after a comma another parameter is required
	for more := !p.tokens.match(tokenRParen); more; {
		name := p.require(tokenIdent, fn)
		if name.Type != tokenIdent {
			break
		}
		param := Parameter{Name: name.Literal, Type: TypeObject, Token: name}
		if p.tokens.match(tokenColon) {
			p.tokens.consume()
			param.Type = p.parseTypeLiteral(fn, false)
		}
		fn.Parameters = append(fn.Parameters, param)
		if more = p.tokens.match(tokenComma); more {
			p.tokens.consume()
		}
	}
	p.require(tokenRParen, fn)

	fn.ReturnType = TypeObject
	if p.tokens.match(tokenColon) {
		p.tokens.consume()
		fn.ReturnType = p.parseTypeLiteral(fn, true)
	}

	outer := p.function
	p.function = fn.ID()
	fn.Body = p.parseBlock(fn)
	p.function = outer

	p.end(fn)
	p.program.adopt(fn, statementNodes(fn.Body)...)
	return fn
}

// parseReturnStatement binds the return to the function being parsed, if any.
// A return outside a function is left for the validator to report.
func (p *parser) parseReturnStatement() Statement {
	stmt := node(p, &ReturnStatement{function: p.function}, p.tokens.consume())
	if canStartExpression(p.tokens.current().Type) {
		stmt.Value = p.parseExpression()
		p.program.adopt(stmt, stmt.Value)
	}
	p.end(stmt)
	return stmt
}

func (p *parser) parseBlock(owner Node) []Statement {
	p.enter()
	defer p.leave()

	p.require(tokenLBrace, owner)
	var body []Statement
	for !p.tokens.match(tokenRBrace) && p.tokens.hasMoreTokens() {
		body = append(body, p.parseStatement(false))
	}
	p.require(tokenRBrace, owner)
	return body
}
