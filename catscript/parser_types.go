package catscript

// parseTypeLiteral reads int, bool, string, object, list or list<T>. void is
// only accepted where a return type is expected. Unknown names are reported
// on owner and read as object.
func (p *parser) parseTypeLiteral(owner Node, allowVoid bool) *Type {
	tok := p.tokens.current()
	if tok.Type != tokenIdent {
		owner.info().addErrorAt(UnexpectedToken, tok)
		return TypeObject
	}
	p.tokens.consume()

	switch tok.Literal {
	case "int":
		return TypeInt
	case "bool":
		return TypeBoolean
	case "string":
		return TypeString
	case "object":
		return TypeObject
	case "void":
		if allowVoid {
			return TypeVoid
		}
	case "list":
		if !p.tokens.match(tokenLT) {
			return ListOf(TypeObject)
		}
		p.tokens.consume()
		component := p.parseTypeLiteral(owner, false)
		p.require(tokenGT, owner)
		return ListOf(component)
	}

	owner.info().addErrorAt(UnexpectedToken, tok)
	return TypeObject
}
