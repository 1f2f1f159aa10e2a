package catscript

// NodeID indexes a node in its Program's arena. Parent links are stored as
// NodeIDs so the tree never holds upward pointers.
type NodeID int32

const noNode NodeID = -1

type Node interface {
	ID() NodeID
	Pos() Position
	Span() Span
	Diagnostics() []*Diagnostic
	info() *nodeInfo
}

type Statement interface {
	Node
	stmtNode()
}

type Expression interface {
	Node
	// Type is the static type computed by validation; it is nil before then.
	Type() *Type
	exprNode()
}

type nodeInfo struct {
	id     NodeID
	parent NodeID
	span   Span
	diags  []*Diagnostic
}

func (n *nodeInfo) info() *nodeInfo            { return n }
func (n *nodeInfo) ID() NodeID                 { return n.id }
func (n *nodeInfo) Pos() Position              { return n.span.Start.Pos }
func (n *nodeInfo) Span() Span                 { return n.span }
func (n *nodeInfo) Diagnostics() []*Diagnostic { return n.diags }

func (n *nodeInfo) addError(kind ErrorKind) {
	n.addErrorAt(kind, n.span.Start)
}

func (n *nodeInfo) addErrorAt(kind ErrorKind, tok Token) {
	n.diags = append(n.diags, &Diagnostic{Kind: kind, Token: tok, Node: n.id})
}

type exprInfo struct {
	nodeInfo
	typ *Type
}

func (e *exprInfo) Type() *Type { return e.typ }
func (e *exprInfo) exprNode()   {}

type stmtInfo struct {
	nodeInfo
}

func (s *stmtInfo) stmtNode() {}

type IntegerLiteral struct {
	exprInfo
	Value int64
}

type StringLiteral struct {
	exprInfo
	Value string
}

type BooleanLiteral struct {
	exprInfo
	Value bool
}

type NullLiteral struct {
	exprInfo
}

type ListLiteral struct {
	exprInfo
	Elements []Expression
}

type Identifier struct {
	exprInfo
	Name string
}

type FunctionCall struct {
	exprInfo
	Name      string
	Arguments []Expression
}

type UnaryExpression struct {
	exprInfo
	Operator TokenType
	Operand  Expression
}

// IsNegation reports whether the operator is arithmetic negation rather than logical not.
func (e *UnaryExpression) IsNegation() bool { return e.Operator == tokenMinus }

type AdditiveExpression struct {
	exprInfo
	Operator TokenType
	Left     Expression
	Right    Expression
}

func (e *AdditiveExpression) IsAdd() bool { return e.Operator == tokenPlus }

type MultiplicativeExpression struct {
	exprInfo
	Operator TokenType
	Left     Expression
	Right    Expression
}

func (e *MultiplicativeExpression) IsMultiply() bool { return e.Operator == tokenAsterisk }

type ComparisonExpression struct {
	exprInfo
	Operator TokenType
	Left     Expression
	Right    Expression
}

type EqualityExpression struct {
	exprInfo
	Operator TokenType
	Left     Expression
	Right    Expression
}

func (e *EqualityExpression) IsEqual() bool { return e.Operator == tokenEQ }

type ParenthesizedExpression struct {
	exprInfo
	Inner Expression
}

// SyntaxErrorExpression stands in for an expression that could not be parsed.
type SyntaxErrorExpression struct {
	exprInfo
	Token Token
}

type PrintStatement struct {
	stmtInfo
	Expression Expression
}

type VariableDeclaration struct {
	stmtInfo
	Name         string
	NameToken    Token
	ExplicitType *Type
	Value        Expression
	declared     *Type
}

// DeclaredType is the explicit type, or the inferred one once validated.
func (s *VariableDeclaration) DeclaredType() *Type {
	if s.ExplicitType != nil {
		return s.ExplicitType
	}
	return s.declared
}

type AssignmentStatement struct {
	stmtInfo
	Name   string
	Value  Expression
	target *Type
}

// TargetType is the declared type of the assigned variable, known after validation.
func (s *AssignmentStatement) TargetType() *Type { return s.target }

type IfStatement struct {
	stmtInfo
	Condition Expression
	Then      []Statement
	Else      []Statement
}

type ForStatement struct {
	stmtInfo
	Variable      string
	VariableToken Token
	Iterable      Expression
	Body          []Statement
	elemType      *Type
}

// ElementType is the loop variable's type, known after validation.
func (s *ForStatement) ElementType() *Type { return s.elemType }

type FunctionCallStatement struct {
	stmtInfo
	Call *FunctionCall
}

type Parameter struct {
	Name  string
	Type  *Type
	Token Token
}

type FunctionDefinition struct {
	stmtInfo
	Name       string
	Parameters []Parameter
	ReturnType *Type
	Body       []Statement
}

func (s *FunctionDefinition) ParameterCount() int { return len(s.Parameters) }

func (s *FunctionDefinition) ParameterType(i int) *Type { return s.Parameters[i].Type }

// Descriptor derives the backend call signature from the parameter and return types.
func (s *FunctionDefinition) Descriptor() Descriptor {
	params := make([]*Type, len(s.Parameters))
	for i, p := range s.Parameters {
		params[i] = p.Type
	}
	return Descriptor{Params: params, Return: s.ReturnType}
}

type ReturnStatement struct {
	stmtInfo
	Value    Expression
	function NodeID
}

// SyntaxErrorStatement holds a token that could not start any statement.
type SyntaxErrorStatement struct {
	stmtInfo
	Token Token
}
