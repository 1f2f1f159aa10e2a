package catscript

// Program is the root of a parsed source. It holds either a statement
// sequence or a single expression, never both, and owns the node arena.
type Program struct {
	nodeInfo
	Statements []Statement
	Expression Expression

	source    string
	nodes     []Node
	functions map[string]*FunctionDefinition
	order     []*FunctionDefinition
	validated bool
}

func newProgram(source string) *Program {
	p := &Program{source: source, functions: make(map[string]*FunctionDefinition)}
	p.register(p)
	return p
}

func (p *Program) register(n Node) {
	info := n.info()
	info.id = NodeID(len(p.nodes))
	info.parent = noNode
	p.nodes = append(p.nodes, n)
}

func (p *Program) adopt(parent Node, children ...Node) {
	for _, child := range children {
		if child != nil {
			child.info().parent = parent.ID()
		}
	}
}

// Source returns the text the program was parsed from.
func (p *Program) Source() string { return p.source }

// IsExpression reports whether the program was parsed as a single expression.
func (p *Program) IsExpression() bool { return p.Expression != nil }

// Node resolves an arena handle.
func (p *Program) Node(id NodeID) Node {
	if id < 0 || int(id) >= len(p.nodes) {
		return nil
	}
	return p.nodes[id]
}

// Parent returns the node that owns n, or nil for the program itself.
func (p *Program) Parent(n Node) Node {
	return p.Node(n.info().parent)
}

// EnclosingFunction walks up from n to the nearest function definition.
func (p *Program) EnclosingFunction(n Node) *FunctionDefinition {
	for cur := p.Parent(n); cur != nil; cur = p.Parent(cur) {
		if fn, ok := cur.(*FunctionDefinition); ok {
			return fn
		}
	}
	return nil
}

// FunctionOf returns the function a return statement was bound to while parsing.
func (p *Program) FunctionOf(ret *ReturnStatement) *FunctionDefinition {
	fn, _ := p.Node(ret.function).(*FunctionDefinition)
	return fn
}

// IsGlobal reports whether a declaration sits directly in the program's statement list.
func (p *Program) IsGlobal(decl *VariableDeclaration) bool {
	return decl.info().parent == p.id
}

// Function looks a definition up in the program-wide function table.
func (p *Program) Function(name string) *FunctionDefinition {
	return p.functions[name]
}

// Functions returns every indexed definition in declaration order.
func (p *Program) Functions() []*FunctionDefinition {
	out := make([]*FunctionDefinition, len(p.order))
	copy(out, p.order)
	return out
}

// indexFunctions fills the function table from the top-level statements so
// that calls may refer to functions defined later in the source.
func (p *Program) indexFunctions() {
	for _, stmt := range p.Statements {
		fn, ok := stmt.(*FunctionDefinition)
		if !ok {
			continue
		}
		if _, exists := p.functions[fn.Name]; exists {
			fn.addError(DuplicateName)
			continue
		}
		p.functions[fn.Name] = fn
		p.order = append(p.order, fn)
	}
}

// Diagnostics collects every diagnostic in the tree, ordered by position.
func (p *Program) Diagnostics() []*Diagnostic {
	var out []*Diagnostic
	Inspect(p, func(n Node) bool {
		out = append(out, n.info().diags...)
		return true
	})
	sortDiagnostics(out)
	return out
}

// Err returns a *DiagnosticsError when the tree carries any diagnostic.
func (p *Program) Err() error {
	diags := p.Diagnostics()
	if len(diags) == 0 {
		return nil
	}
	return &DiagnosticsError{Diagnostics: diags, source: p.source}
}

// Inspect traverses the tree depth-first, calling fn for each node. Children
// are skipped when fn returns false.
func Inspect(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, child := range children(n) {
		Inspect(child, fn)
	}
}

func children(n Node) []Node {
	switch n := n.(type) {
	case *Program:
		if n.Expression != nil {
			return []Node{n.Expression}
		}
		return statementNodes(n.Statements)
	case *ListLiteral:
		return expressionNodes(n.Elements)
	case *FunctionCall:
		return expressionNodes(n.Arguments)
	case *UnaryExpression:
		return []Node{n.Operand}
	case *AdditiveExpression:
		return []Node{n.Left, n.Right}
	case *MultiplicativeExpression:
		return []Node{n.Left, n.Right}
	case *ComparisonExpression:
		return []Node{n.Left, n.Right}
	case *EqualityExpression:
		return []Node{n.Left, n.Right}
	case *ParenthesizedExpression:
		return []Node{n.Inner}
	case *PrintStatement:
		return []Node{n.Expression}
	case *VariableDeclaration:
		return []Node{n.Value}
	case *AssignmentStatement:
		return []Node{n.Value}
	case *IfStatement:
		out := []Node{n.Condition}
		out = append(out, statementNodes(n.Then)...)
		return append(out, statementNodes(n.Else)...)
	case *ForStatement:
		return append([]Node{n.Iterable}, statementNodes(n.Body)...)
	case *FunctionCallStatement:
		return []Node{n.Call}
	case *FunctionDefinition:
		return statementNodes(n.Body)
	case *ReturnStatement:
		if n.Value != nil {
			return []Node{n.Value}
		}
		return nil
	default:
		return nil
	}
}

func statementNodes(stmts []Statement) []Node {
	out := make([]Node, len(stmts))
	for i, s := range stmts {
		out[i] = s
	}
	return out
}

func expressionNodes(exprs []Expression) []Node {
	out := make([]Node, len(exprs))
	for i, e := range exprs {
		out[i] = e
	}
	return out
}
