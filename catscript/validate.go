package catscript

// Validate resolves names, computes the static type of every expression and
// records diagnostics in place. It walks the whole tree even after errors and
// runs at most once per program; inspect Err afterwards.
func (p *Program) Validate() {
	if p.validated {
		return
	}
	symbols := NewSymbolTable(p.functions)
	symbols.PushScope()
	p.validateWith(symbols)
}

func (p *Program) validateWith(symbols *SymbolTable) {
	p.validated = true
	v := &validator{program: p, symbols: symbols}
	if p.Expression != nil {
		v.value(p.Expression)
		return
	}
	v.statements(p.Statements)
}

type validator struct {
	program *Program
	symbols *SymbolTable
}

func (v *validator) statements(stmts []Statement) {
	for _, stmt := range stmts {
		v.statement(stmt)
	}
}

func (v *validator) scoped(stmts []Statement) {
	v.symbols.PushScope()
	v.statements(stmts)
	v.symbols.PopScope()
}

func (v *validator) statement(stmt Statement) {
	switch n := stmt.(type) {
	case *PrintStatement:
		v.value(n.Expression)

	case *VariableDeclaration:
		inferred := v.value(n.Value)
		declared := inferred
		if n.ExplicitType != nil {
			declared = n.ExplicitType
			if !declared.IsAssignableFrom(inferred) && !failed(n.Value) {
				n.addError(IncompatibleTypes)
			}
		} else if inferred == TypeNull || inferred == TypeVoid {
			declared = TypeObject
		}
		n.declared = declared
		if !v.symbols.RegisterSymbol(n.Name, declared) {
			n.addErrorAt(DuplicateName, n.NameToken)
		}

	case *AssignmentStatement:
		assigned := v.value(n.Value)
		target, ok := v.symbols.Lookup(n.Name)
		if !ok {
			n.addError(UnknownName)
			target = TypeObject
		}
		n.target = target
		if !target.IsAssignableFrom(assigned) && !failed(n.Value) {
			n.addError(IncompatibleTypes)
		}

	case *IfStatement:
		if v.expression(n.Condition) != TypeBoolean && !failed(n.Condition) {
			n.Condition.info().addError(IncompatibleTypes)
		}
		v.scoped(n.Then)
		v.scoped(n.Else)

	case *ForStatement:
		// the loop variable may not shadow any visible name
		if _, visible := v.symbols.Lookup(n.Variable); visible {
			n.addErrorAt(DuplicateName, n.VariableToken)
		}
		v.symbols.PushScope()
		iterable := v.expression(n.Iterable)
		n.elemType = TypeObject
		if iterable.IsList() {
			n.elemType = iterable.Component()
		} else if !failed(n.Iterable) {
			n.addError(IncompatibleTypes)
		}
		v.symbols.RegisterSymbol(n.Variable, n.elemType)
		v.statements(n.Body)
		v.symbols.PopScope()

	case *FunctionCallStatement:
		v.expression(n.Call)

	case *FunctionDefinition:
		v.symbols.PushScope()
		for _, param := range n.Parameters {
			if !v.symbols.RegisterSymbol(param.Name, param.Type) {
				n.addErrorAt(DuplicateName, param.Token)
			}
		}
		v.statements(n.Body)
		v.symbols.PopScope()

	case *ReturnStatement:
		fn := v.program.FunctionOf(n)
		if n.Value != nil {
			v.value(n.Value)
		}
		switch {
		case fn == nil:
			n.addError(ReturnOutsideFunction)
		case n.Value == nil:
			if fn.ReturnType != TypeVoid {
				n.addError(IncompatibleTypes)
			}
		case !fn.ReturnType.IsAssignableFrom(n.Value.Type()) && !failed(n.Value):
			n.Value.info().addError(IncompatibleTypes)
		}

	case *SyntaxErrorStatement:
		// carries its own diagnostic
	}
}

// value validates an expression whose result is consumed; void calls cannot
// be used as values.
func (v *validator) value(e Expression) *Type {
	t := v.expression(e)
	if t == TypeVoid {
		e.info().addError(IncompatibleTypes)
	}
	return t
}

func (v *validator) expression(e Expression) *Type {
	switch n := e.(type) {
	case *IntegerLiteral:
		n.typ = TypeInt
	case *StringLiteral:
		n.typ = TypeString
	case *BooleanLiteral:
		n.typ = TypeBoolean
	case *NullLiteral:
		n.typ = TypeNull

	case *ListLiteral:
		var component *Type
		for _, el := range n.Elements {
			t := v.value(el)
			if component == nil {
				component = t
			} else {
				component = unify(component, t)
			}
		}
		if component == nil || component == TypeNull || component == TypeVoid {
			component = TypeObject
		}
		n.typ = ListOf(component)

	case *Identifier:
		t, ok := v.symbols.Lookup(n.Name)
		if !ok {
			n.addError(UnknownName)
			t = TypeObject
		}
		n.typ = t

	case *FunctionCall:
		for _, arg := range n.Arguments {
			v.value(arg)
		}
		fn := v.symbols.Function(n.Name)
		if fn == nil {
			n.addError(UnknownName)
			n.typ = TypeObject
			break
		}
		n.typ = fn.ReturnType
		if len(n.Arguments) != fn.ParameterCount() {
			n.addError(ArgMismatch)
			break
		}
		for i, arg := range n.Arguments {
			if !fn.ParameterType(i).IsAssignableFrom(arg.Type()) && !failed(arg) {
				arg.info().addError(IncompatibleTypes)
			}
		}

	case *UnaryExpression:
		operand := v.expression(n.Operand)
		want := TypeBoolean
		if n.IsNegation() {
			want = TypeInt
		}
		if operand != want && !failed(n.Operand) {
			n.Operand.info().addError(IncompatibleTypes)
		}
		n.typ = want

	case *AdditiveExpression:
		left := v.value(n.Left)
		right := v.value(n.Right)
		if n.IsAdd() && (left == TypeString || right == TypeString) {
			n.typ = TypeString
			break
		}
		requireInt(n.Left)
		requireInt(n.Right)
		n.typ = TypeInt

	case *MultiplicativeExpression:
		v.expression(n.Left)
		v.expression(n.Right)
		requireInt(n.Left)
		requireInt(n.Right)
		n.typ = TypeInt

	case *ComparisonExpression:
		v.expression(n.Left)
		v.expression(n.Right)
		requireInt(n.Left)
		requireInt(n.Right)
		n.typ = TypeBoolean

	case *EqualityExpression:
		left := v.value(n.Left)
		right := v.value(n.Right)
		if !left.IsAssignableFrom(right) && !right.IsAssignableFrom(left) && !failed(n.Left) && !failed(n.Right) {
			n.addError(IncompatibleTypes)
		}
		n.typ = TypeBoolean

	case *ParenthesizedExpression:
		n.typ = v.expression(n.Inner)

	case *SyntaxErrorExpression:
		n.typ = TypeObject
	}
	return e.Type()
}

// requireInt flags an operand whose static type is not exactly int.
func requireInt(e Expression) {
	if e.Type() != TypeInt && !failed(e) {
		e.info().addError(IncompatibleTypes)
	}
}

// failed reports whether e or any of its subexpressions already carries a
// diagnostic, so that follow-on type errors are not stacked on it.
func failed(e Expression) bool {
	found := false
	Inspect(e, func(n Node) bool {
		if len(n.Diagnostics()) > 0 {
			found = true
		}
		return !found
	})
	return found
}

func unify(a, b *Type) *Type {
	switch {
	case a == b, a.IsAssignableFrom(b) && a != TypeObject:
		return a
	case b.IsAssignableFrom(a) && b != TypeObject:
		return b
	default:
		return TypeObject
	}
}
