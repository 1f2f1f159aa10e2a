package catscript

import "fmt"

// Compile translates a validated, diagnostic-free program into asm. Each
// function definition becomes one unit and the top level becomes EntryUnit.
// Top-level var declarations are emitted as globals so function units can
// reach them; every other variable gets a local slot in its unit.
func Compile(program *Program, asm Assembler) error {
	if err := checkRunnable(program); err != nil {
		return err
	}
	c := &compiler{program: program, asm: asm, globals: make(map[string]*Type)}

	for _, stmt := range program.Statements {
		if decl, ok := stmt.(*VariableDeclaration); ok {
			if _, seen := c.globals[decl.Name]; !seen {
				asm.DeclareGlobal(decl.Name, StorageClassOf(decl.DeclaredType()))
			}
			c.globals[decl.Name] = decl.DeclaredType()
		}
	}

	for _, fn := range program.Functions() {
		if err := c.function(fn); err != nil {
			return err
		}
	}
	return c.entry()
}

// checkRunnable rejects programs the backends must not see.
func checkRunnable(program *Program) error {
	if program == nil {
		return fmt.Errorf("nil program")
	}
	if !program.validated {
		return errProgramNotValidated
	}
	return program.Err()
}

type local struct {
	slot int
	typ  *Type
}

type compiler struct {
	program *Program
	asm     Assembler
	globals map[string]*Type

	fn     *FunctionDefinition
	scopes []map[string]local
	slots  int
}

func (c *compiler) beginUnit(name string, desc Descriptor, fn *FunctionDefinition) {
	c.fn = fn
	c.scopes = []map[string]local{{}}
	c.slots = 0
	c.asm.BeginUnit(name, desc)
}

func (c *compiler) pushScope() { c.scopes = append(c.scopes, map[string]local{}) }
func (c *compiler) popScope()  { c.scopes = c.scopes[:len(c.scopes)-1] }

func (c *compiler) declare(name string, t *Type) local {
	l := local{slot: c.slots, typ: t}
	c.slots++
	c.scopes[len(c.scopes)-1][name] = l
	return l
}

func (c *compiler) resolve(name string) (local, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if l, ok := c.scopes[i][name]; ok {
			return l, true
		}
	}
	return local{}, false
}

func (c *compiler) function(fn *FunctionDefinition) error {
	c.beginUnit(fn.Name, fn.Descriptor(), fn)
	for _, param := range fn.Parameters {
		c.declare(param.Name, param.Type)
	}
	if err := c.statements(fn.Body); err != nil {
		return err
	}
	// falling off the end yields the zero value of the return type
	switch fn.ReturnType {
	case TypeVoid:
	case TypeInt:
		c.asm.PushInt(0)
	case TypeBoolean:
		c.asm.PushBool(false)
	default:
		c.asm.PushNull()
	}
	c.asm.Return(StorageClassOf(fn.ReturnType))
	c.asm.EndUnit()
	return nil
}

func (c *compiler) entry() error {
	if c.program.Expression != nil {
		c.beginUnit(EntryUnit, Descriptor{Return: TypeObject}, nil)
		if err := c.expression(c.program.Expression); err != nil {
			return err
		}
		c.box(c.program.Expression.Type())
		c.asm.Return(StorageReference)
		c.asm.EndUnit()
		return nil
	}
	c.beginUnit(EntryUnit, Descriptor{Return: TypeVoid}, nil)
	if err := c.statements(c.program.Statements); err != nil {
		return err
	}
	c.asm.Return(StorageVoid)
	c.asm.EndUnit()
	return nil
}

func (c *compiler) statements(stmts []Statement) error {
	for _, stmt := range stmts {
		if err := c.statement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) scoped(stmts []Statement) error {
	c.pushScope()
	defer c.popScope()
	return c.statements(stmts)
}

func (c *compiler) statement(stmt Statement) error {
	switch s := stmt.(type) {
	case *PrintStatement:
		if err := c.expression(s.Expression); err != nil {
			return err
		}
		c.box(s.Expression.Type())
		c.asm.Intrinsic(IntrinsicPrint)

	case *VariableDeclaration:
		if err := c.coerced(s.Value, s.DeclaredType()); err != nil {
			return err
		}
		if c.program.IsGlobal(s) {
			c.asm.StoreGlobal(StorageClassOf(s.DeclaredType()), s.Name)
			return nil
		}
		l := c.declare(s.Name, s.DeclaredType())
		c.asm.Store(StorageClassOf(l.typ), l.slot)

	case *AssignmentStatement:
		if err := c.coerced(s.Value, s.TargetType()); err != nil {
			return err
		}
		return c.store(s.Name, s.Pos())

	case *IfStatement:
		elseLabel, end := c.asm.NewLabel(), c.asm.NewLabel()
		if err := c.expression(s.Condition); err != nil {
			return err
		}
		c.asm.Branch(CondIfFalse, elseLabel)
		if err := c.scoped(s.Then); err != nil {
			return err
		}
		c.asm.Jump(end)
		c.asm.Mark(elseLabel)
		if err := c.scoped(s.Else); err != nil {
			return err
		}
		c.asm.Mark(end)

	case *ForStatement:
		return c.forLoop(s)

	case *FunctionCallStatement:
		if err := c.expression(s.Call); err != nil {
			return err
		}
		if s.Call.Type() != TypeVoid {
			c.asm.Op(OpPop)
		}

	case *FunctionDefinition:
		// compiled as its own unit

	case *ReturnStatement:
		if c.fn == nil {
			return c.errorAt(s.Pos(), "return outside of a function")
		}
		if s.Value == nil {
			c.asm.Return(StorageVoid)
			return nil
		}
		if err := c.coerced(s.Value, c.fn.ReturnType); err != nil {
			return err
		}
		c.asm.Return(StorageClassOf(c.fn.ReturnType))

	default:
		return c.errorAt(stmt.Pos(), fmt.Sprintf("cannot compile %T", stmt))
	}
	return nil
}

func (c *compiler) forLoop(s *ForStatement) error {
	c.pushScope()
	defer c.popScope()

	if err := c.expression(s.Iterable); err != nil {
		return err
	}
	c.asm.Intrinsic(IntrinsicIterator)
	iter := c.declare("", TypeObject)
	c.asm.Store(StorageReference, iter.slot)
	variable := c.declare(s.Variable, s.ElementType())

	top, end := c.asm.NewLabel(), c.asm.NewLabel()
	c.asm.Mark(top)
	c.asm.Load(StorageReference, iter.slot)
	c.asm.Intrinsic(IntrinsicHasNext)
	c.asm.Branch(CondIfFalse, end)
	c.asm.Load(StorageReference, iter.slot)
	c.asm.Intrinsic(IntrinsicNext)
	switch elem := s.ElementType(); {
	case elem.IsPrimitive():
		c.asm.Unbox(elem)
	case elem != TypeObject:
		c.asm.CheckCast(elem)
	}
	c.asm.Store(StorageClassOf(variable.typ), variable.slot)
	if err := c.statements(s.Body); err != nil {
		return err
	}
	c.asm.Jump(top)
	c.asm.Mark(end)
	return nil
}

func (c *compiler) store(name string, pos Position) error {
	if l, ok := c.resolve(name); ok {
		c.asm.Store(StorageClassOf(l.typ), l.slot)
		return nil
	}
	if t, ok := c.globals[name]; ok {
		c.asm.StoreGlobal(StorageClassOf(t), name)
		return nil
	}
	return c.errorAt(pos, "undefined variable "+name)
}

// coerced compiles e and boxes it when a primitive flows into a reference slot.
func (c *compiler) coerced(e Expression, target *Type) error {
	if err := c.expression(e); err != nil {
		return err
	}
	if target != nil && !target.IsPrimitive() {
		c.box(e.Type())
	}
	return nil
}

func (c *compiler) box(t *Type) {
	if t.IsPrimitive() {
		c.asm.Box(t)
	}
}

func (c *compiler) expression(expr Expression) error {
	switch e := expr.(type) {
	case *IntegerLiteral:
		c.asm.PushInt(e.Value)
	case *StringLiteral:
		c.asm.PushString(e.Value)
	case *BooleanLiteral:
		c.asm.PushBool(e.Value)
	case *NullLiteral:
		c.asm.PushNull()

	case *ListLiteral:
		c.asm.Intrinsic(IntrinsicNewList)
		for _, el := range e.Elements {
			if err := c.expression(el); err != nil {
				return err
			}
			c.box(el.Type())
			c.asm.Intrinsic(IntrinsicListAppend)
		}

	case *Identifier:
		if l, ok := c.resolve(e.Name); ok {
			c.asm.Load(StorageClassOf(l.typ), l.slot)
			return nil
		}
		t, ok := c.globals[e.Name]
		if !ok {
			return c.errorAt(e.Pos(), "undefined variable "+e.Name)
		}
		c.asm.LoadGlobal(StorageClassOf(t), e.Name)

	case *FunctionCall:
		fn := c.program.Function(e.Name)
		if fn == nil {
			return c.errorAt(e.Pos(), "undefined function "+e.Name)
		}
		for i, arg := range e.Arguments {
			if err := c.coerced(arg, fn.ParameterType(i)); err != nil {
				return err
			}
		}
		c.asm.Call(fn.Name, fn.Descriptor())

	case *UnaryExpression:
		if err := c.expression(e.Operand); err != nil {
			return err
		}
		if e.IsNegation() {
			c.asm.Op(OpNeg)
			return nil
		}
		c.asm.PushBool(true)
		c.asm.Op(OpXor)

	case *AdditiveExpression:
		if e.Type() == TypeString {
			if err := c.coerced(e.Left, TypeObject); err != nil {
				return err
			}
			if err := c.coerced(e.Right, TypeObject); err != nil {
				return err
			}
			c.asm.Intrinsic(IntrinsicConcat)
			return nil
		}
		if err := c.binary(e.Left, e.Right); err != nil {
			return err
		}
		if e.IsAdd() {
			c.asm.Op(OpAdd)
		} else {
			c.asm.Op(OpSub)
		}

	case *MultiplicativeExpression:
		if err := c.binary(e.Left, e.Right); err != nil {
			return err
		}
		if e.IsMultiply() {
			c.asm.Op(OpMul)
		} else {
			c.asm.Op(OpDiv)
		}

	case *ComparisonExpression:
		if err := c.binary(e.Left, e.Right); err != nil {
			return err
		}
		c.branchBool(invertComparison(e.Operator))

	case *EqualityExpression:
		if e.Left.Type().IsPrimitive() && e.Right.Type().IsPrimitive() {
			if err := c.binary(e.Left, e.Right); err != nil {
				return err
			}
			if e.IsEqual() {
				c.branchBool(CondIntNE)
			} else {
				c.branchBool(CondIntEQ)
			}
			return nil
		}
		if err := c.coerced(e.Left, TypeObject); err != nil {
			return err
		}
		if err := c.coerced(e.Right, TypeObject); err != nil {
			return err
		}
		c.asm.Intrinsic(IntrinsicEquals)
		if !e.IsEqual() {
			c.asm.PushBool(true)
			c.asm.Op(OpXor)
		}

	case *ParenthesizedExpression:
		return c.expression(e.Inner)

	default:
		return c.errorAt(expr.Pos(), fmt.Sprintf("cannot compile %T", expr))
	}
	return nil
}

func (c *compiler) binary(left, right Expression) error {
	if err := c.expression(left); err != nil {
		return err
	}
	return c.expression(right)
}

// branchBool turns two numeric operands into a bool: it branches to the
// false arm on the inverted condition.
func (c *compiler) branchBool(inverted Cond) {
	falseLabel, end := c.asm.NewLabel(), c.asm.NewLabel()
	c.asm.Branch(inverted, falseLabel)
	c.asm.PushBool(true)
	c.asm.Jump(end)
	c.asm.Mark(falseLabel)
	c.asm.PushBool(false)
	c.asm.Mark(end)
}

// invertComparison returns the branch condition that holds when the
// comparison op is false.
func invertComparison(op TokenType) Cond {
	switch op {
	case tokenLT:
		return CondIntGE
	case tokenGT:
		return CondIntLE
	case tokenLTE:
		return CondIntGT
	default:
		return CondIntLT
	}
}

func (c *compiler) errorAt(pos Position, msg string) error {
	return NewRuntimeError(c.program.source, fmt.Errorf("compile: %s", msg), pos, nil)
}
