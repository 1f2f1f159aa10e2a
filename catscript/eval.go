package catscript

import (
	"context"
	"fmt"
	"io"
)

type execSignal int

const (
	execNormal execSignal = iota
	execReturn
)

type callFrame struct {
	function *FunctionDefinition
	site     Position
	result   Value
}

// execution holds the state of one tree-walking run.
type execution struct {
	ctx     context.Context
	program *Program
	out     io.Writer
	globals *Env

	steps          int
	quota          int
	recursionLimit int
	returnBinding  bool

	callStack []*callFrame
}

func newExecution(ctx context.Context, cfg Config, program *Program, globals *Env, out io.Writer) *execution {
	if out == nil {
		out = io.Discard
	}
	if globals == nil {
		globals = newEnv(nil)
	}
	return &execution{
		ctx:            ctx,
		program:        program,
		out:            out,
		globals:        globals,
		quota:          cfg.StepQuota,
		recursionLimit: cfg.RecursionLimit,
		returnBinding:  cfg.ReturnAsBinding,
	}
}

func (exec *execution) step(pos Position) error {
	exec.steps++
	if exec.quota > 0 && exec.steps > exec.quota {
		return exec.errorAt(pos, fmt.Errorf("%w (%d)", ErrStepQuotaExceeded, exec.quota))
	}
	if exec.ctx != nil && exec.steps&63 == 0 {
		select {
		case <-exec.ctx.Done():
			return exec.errorAt(pos, exec.ctx.Err())
		default:
		}
	}
	return nil
}

func (exec *execution) errorAt(pos Position, err error) error {
	frames := make([]StackFrame, 0, len(exec.callStack)+1)
	caller := func(i int) string {
		if i == 0 {
			return scriptFrameName
		}
		return exec.callStack[i-1].function.Name
	}
	if n := len(exec.callStack); n > 0 {
		frames = append(frames, StackFrame{Function: exec.callStack[n-1].function.Name, Pos: pos})
		for i := n - 1; i >= 0; i-- {
			frames = append(frames, StackFrame{Function: caller(i), Pos: exec.callStack[i].site})
		}
	} else {
		frames = append(frames, StackFrame{Function: scriptFrameName, Pos: pos})
	}
	return NewRuntimeError(exec.program.source, err, pos, frames)
}

func (exec *execution) run() error {
	_, err := exec.statements(exec.program.Statements, exec.globals)
	return err
}

func (exec *execution) statements(stmts []Statement, env *Env) (execSignal, error) {
	for _, stmt := range stmts {
		sig, err := exec.statement(stmt, env)
		if err != nil || sig == execReturn {
			return sig, err
		}
	}
	return execNormal, nil
}

func (exec *execution) statement(stmt Statement, env *Env) (execSignal, error) {
	if err := exec.step(stmt.Pos()); err != nil {
		return execNormal, err
	}
	switch s := stmt.(type) {
	case *PrintStatement:
		val, err := exec.eval(s.Expression, env)
		if err != nil {
			return execNormal, err
		}
		if _, err := fmt.Fprintln(exec.out, val.String()); err != nil {
			return execNormal, exec.errorAt(s.Pos(), err)
		}

	case *VariableDeclaration:
		val, err := exec.eval(s.Value, env)
		if err != nil {
			return execNormal, err
		}
		env.Define(s.Name, val)

	case *AssignmentStatement:
		val, err := exec.eval(s.Value, env)
		if err != nil {
			return execNormal, err
		}
		if !env.Assign(s.Name, val) {
			return execNormal, exec.errorAt(s.Pos(), fmt.Errorf("undefined variable %s", s.Name))
		}

	case *IfStatement:
		cond, err := exec.eval(s.Condition, env)
		if err != nil {
			return execNormal, err
		}
		if cond.Bool() {
			return exec.statements(s.Then, newEnv(env))
		}
		return exec.statements(s.Else, newEnv(env))

	case *ForStatement:
		iterable, err := exec.eval(s.Iterable, env)
		if err != nil {
			return execNormal, err
		}
		if iterable.IsNull() {
			return execNormal, exec.errorAt(s.Iterable.Pos(), ErrNullIteration)
		}
		loop := newEnv(env)
		for _, elem := range iterable.List() {
			loop.Define(s.Variable, elem)
			sig, err := exec.statements(s.Body, loop)
			if err != nil || sig == execReturn {
				return sig, err
			}
		}

	case *FunctionCallStatement:
		if _, err := exec.eval(s.Call, env); err != nil {
			return execNormal, err
		}

	case *FunctionDefinition:
		// registered at parse time

	case *ReturnStatement:
		frame := exec.currentFrame()
		val := NewNull()
		if s.Value != nil {
			var err error
			if val, err = exec.eval(s.Value, env); err != nil {
				return execNormal, err
			}
		}
		if frame == nil {
			return execNormal, exec.errorAt(s.Pos(), fmt.Errorf("return outside of a function"))
		}
		if s.Value != nil || !exec.returnBinding {
			frame.result = val
		}
		if exec.returnBinding {
			return execNormal, nil
		}
		return execReturn, nil

	case *SyntaxErrorStatement:
		return execNormal, exec.errorAt(s.Pos(), errProgramHasDiagnostics)
	}
	return execNormal, nil
}

func (exec *execution) currentFrame() *callFrame {
	if len(exec.callStack) == 0 {
		return nil
	}
	return exec.callStack[len(exec.callStack)-1]
}

func (exec *execution) eval(expr Expression, env *Env) (Value, error) {
	switch e := expr.(type) {
	case *IntegerLiteral:
		return NewInt(e.Value), nil
	case *StringLiteral:
		return NewString(e.Value), nil
	case *BooleanLiteral:
		return NewBool(e.Value), nil
	case *NullLiteral:
		return NewNull(), nil

	case *ListLiteral:
		elems := make([]Value, len(e.Elements))
		for i, el := range e.Elements {
			val, err := exec.eval(el, env)
			if err != nil {
				return Value{}, err
			}
			elems[i] = val
		}
		return NewList(elems), nil

	case *Identifier:
		val, ok := env.Get(e.Name)
		if !ok {
			return Value{}, exec.errorAt(e.Pos(), fmt.Errorf("undefined variable %s", e.Name))
		}
		return val, nil

	case *FunctionCall:
		return exec.call(e, env)

	case *UnaryExpression:
		operand, err := exec.eval(e.Operand, env)
		if err != nil {
			return Value{}, err
		}
		if e.IsNegation() {
			return NewInt(-operand.Int()), nil
		}
		return NewBool(!operand.Bool()), nil

	case *AdditiveExpression:
		left, right, err := exec.operands(e.Left, e.Right, env)
		if err != nil {
			return Value{}, err
		}
		if e.Type() == TypeString {
			return NewString(left.String() + right.String()), nil
		}
		if e.IsAdd() {
			return NewInt(left.Int() + right.Int()), nil
		}
		return NewInt(left.Int() - right.Int()), nil

	case *MultiplicativeExpression:
		left, right, err := exec.operands(e.Left, e.Right, env)
		if err != nil {
			return Value{}, err
		}
		if e.IsMultiply() {
			return NewInt(left.Int() * right.Int()), nil
		}
		if right.Int() == 0 {
			return Value{}, exec.errorAt(e.Pos(), ErrDivisionByZero)
		}
		return NewInt(left.Int() / right.Int()), nil

	case *ComparisonExpression:
		left, right, err := exec.operands(e.Left, e.Right, env)
		if err != nil {
			return Value{}, err
		}
		return NewBool(compareInts(e.Operator, left.Int(), right.Int())), nil

	case *EqualityExpression:
		left, right, err := exec.operands(e.Left, e.Right, env)
		if err != nil {
			return Value{}, err
		}
		return NewBool(left.Equal(right) == e.IsEqual()), nil

	case *ParenthesizedExpression:
		return exec.eval(e.Inner, env)

	case *SyntaxErrorExpression:
		return Value{}, exec.errorAt(e.Pos(), errProgramHasDiagnostics)
	}
	return Value{}, exec.errorAt(expr.Pos(), fmt.Errorf("unsupported expression %T", expr))
}

func (exec *execution) operands(left, right Expression, env *Env) (Value, Value, error) {
	l, err := exec.eval(left, env)
	if err != nil {
		return Value{}, Value{}, err
	}
	r, err := exec.eval(right, env)
	if err != nil {
		return Value{}, Value{}, err
	}
	return l, r, nil
}

func compareInts(op TokenType, left, right int64) bool {
	switch op {
	case tokenLT:
		return left < right
	case tokenLTE:
		return left <= right
	case tokenGT:
		return left > right
	default:
		return left >= right
	}
}

// call runs a function body in a fresh scope whose parent is the global
// scope, binding arguments positionally.
func (exec *execution) call(call *FunctionCall, env *Env) (Value, error) {
	fn := exec.program.Function(call.Name)
	if fn == nil {
		return Value{}, exec.errorAt(call.Pos(), fmt.Errorf("undefined function %s", call.Name))
	}
	args := make([]Value, len(call.Arguments))
	for i, arg := range call.Arguments {
		val, err := exec.eval(arg, env)
		if err != nil {
			return Value{}, err
		}
		args[i] = val
	}
	if exec.recursionLimit > 0 && len(exec.callStack) >= exec.recursionLimit {
		return Value{}, exec.errorAt(call.Pos(), fmt.Errorf("%w (%d)", ErrRecursionLimit, exec.recursionLimit))
	}
	if err := exec.step(call.Pos()); err != nil {
		return Value{}, err
	}

	scope := newEnv(exec.globals)
	for i, param := range fn.Parameters {
		scope.Define(param.Name, args[i])
	}
	frame := &callFrame{function: fn, site: call.Pos(), result: ZeroValue(fn.ReturnType)}
	exec.callStack = append(exec.callStack, frame)
	_, err := exec.statements(fn.Body, scope)
	exec.callStack = exec.callStack[:len(exec.callStack)-1]
	if err != nil {
		return Value{}, err
	}
	return frame.result, nil
}
