package stackvm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/mgomes/catscript/catscript"
)

// Config bounds a run. Zero fields take the same defaults as catscript.Config.
type Config struct {
	StepQuota      int
	RecursionLimit int
}

var (
	errStackUnderflow = errors.New("stack underflow")
	errStorageClass   = errors.New("storage class mismatch")
)

// cell is one stack or storage slot. Numeric cells hold int and bool (0/1);
// reference cells hold a Value or a list iterator.
type cell struct {
	class catscript.StorageClass
	num   int64
	ref   catscript.Value
	iter  *iterator
	set   bool
}

type iterator struct {
	items []catscript.Value
	pos   int
}

func numCell(n int64) cell { return cell{class: catscript.StorageNumeric, num: n, set: true} }
func refCell(v catscript.Value) cell {
	return cell{class: catscript.StorageReference, ref: v, set: true}
}
func boolCell(b bool) cell {
	if b {
		return numCell(1)
	}
	return numCell(0)
}

// Machine executes an Artifact.
type Machine struct {
	artifact *Artifact
	config   Config
	source   string

	ctx       context.Context
	out       io.Writer
	globals   map[string]cell
	steps     int
	callStack []string
}

func NewMachine(artifact *Artifact, cfg Config) (*Machine, error) {
	if artifact == nil {
		return nil, fmt.Errorf("stackvm: nil artifact")
	}
	if cfg.StepQuota < 0 || cfg.RecursionLimit < 0 {
		return nil, fmt.Errorf("stackvm: negative limit in config %+v", cfg)
	}
	if cfg.StepQuota == 0 {
		cfg.StepQuota = 50000
	}
	if cfg.RecursionLimit == 0 {
		cfg.RecursionLimit = 64
	}
	if artifact.Unit(catscript.EntryUnit) == nil {
		return nil, fmt.Errorf("stackvm: artifact %s has no entry unit", artifact.Name)
	}
	return &Machine{artifact: artifact, config: cfg}, nil
}

// WithSource attaches the program text used to render code frames in errors.
func (m *Machine) WithSource(source string) *Machine {
	m.source = source
	return m
}

// Run executes the entry unit from fresh globals. Printed lines go to out;
// an expression program's value is returned, statement programs return null.
func (m *Machine) Run(ctx context.Context, out io.Writer) (catscript.Value, error) {
	if out == nil {
		out = io.Discard
	}
	m.ctx = ctx
	m.out = out
	m.steps = 0
	m.callStack = m.callStack[:0]
	// globals stay unset until their var statement runs
	m.globals = make(map[string]cell, len(m.artifact.Globals))
	for _, g := range m.artifact.Globals {
		m.globals[g.Name] = cell{class: g.Class}
	}

	result, err := m.invoke(m.artifact.Unit(catscript.EntryUnit), nil)
	if err != nil {
		return catscript.Value{}, err
	}
	if result.class == catscript.StorageReference {
		return result.ref, nil
	}
	return catscript.NewNull(), nil
}

func (m *Machine) errorf(err error) error {
	var re *catscript.RuntimeError
	if errors.As(err, &re) {
		return err
	}
	frames := make([]catscript.StackFrame, 0, len(m.callStack))
	for i := len(m.callStack) - 1; i >= 0; i-- {
		name := m.callStack[i]
		if name == catscript.EntryUnit {
			name = "<script>"
		}
		frames = append(frames, catscript.StackFrame{Function: name})
	}
	return catscript.NewRuntimeError(m.source, err, catscript.Position{}, frames)
}

func (m *Machine) step() error {
	m.steps++
	if m.config.StepQuota > 0 && m.steps > m.config.StepQuota {
		return fmt.Errorf("%w (%d)", catscript.ErrStepQuotaExceeded, m.config.StepQuota)
	}
	if m.ctx != nil && m.steps&63 == 0 {
		select {
		case <-m.ctx.Done():
			return m.ctx.Err()
		default:
		}
	}
	return nil
}

type frame struct {
	unit   *Unit
	locals []cell
	stack  []cell
}

func (f *frame) push(c cell) { f.stack = append(f.stack, c) }

func (f *frame) pop() (cell, error) {
	if len(f.stack) == 0 {
		return cell{}, errStackUnderflow
	}
	c := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return c, nil
}

func (f *frame) popClass(class catscript.StorageClass) (cell, error) {
	c, err := f.pop()
	if err != nil {
		return cell{}, err
	}
	if c.class != class {
		return cell{}, fmt.Errorf("%w: want %s, have %s", errStorageClass, class, c.class)
	}
	return c, nil
}

func (f *frame) popNum() (int64, error) {
	c, err := f.popClass(catscript.StorageNumeric)
	return c.num, err
}

func (f *frame) popRef() (catscript.Value, error) {
	c, err := f.popClass(catscript.StorageReference)
	if err == nil && c.iter != nil {
		return catscript.Value{}, fmt.Errorf("%w: iterator used as a value", errStorageClass)
	}
	return c.ref, err
}

func (m *Machine) invoke(unit *Unit, args []cell) (cell, error) {
	if len(m.callStack) > m.config.RecursionLimit {
		return cell{}, m.errorf(fmt.Errorf("%w (%d)", catscript.ErrRecursionLimit, m.config.RecursionLimit))
	}
	m.callStack = append(m.callStack, unit.Name)
	result, err := m.execute(unit, args)
	if err != nil {
		err = m.errorf(err)
	}
	m.callStack = m.callStack[:len(m.callStack)-1]
	return result, err
}

func (m *Machine) execute(unit *Unit, args []cell) (cell, error) {
	f := &frame{unit: unit, locals: make([]cell, max(unit.Locals, len(args)))}
	copy(f.locals, args)

	for pc := 0; pc < len(unit.Code); {
		if err := m.step(); err != nil {
			return cell{}, err
		}
		in := unit.Code[pc]
		pc++

		switch in.op {
		case opNop:

		case opPushInt:
			f.push(numCell(in.arg))
		case opPushBool:
			f.push(numCell(in.arg))
		case opPushConst:
			if in.arg < 0 || int(in.arg) >= len(unit.Consts) {
				return cell{}, fmt.Errorf("constant %d out of range", in.arg)
			}
			f.push(refCell(unit.Consts[in.arg]))
		case opPushNull:
			f.push(refCell(catscript.NewNull()))

		case opLoad:
			c := f.locals[in.arg]
			if !c.set {
				return cell{}, fmt.Errorf("load of unset local %d", in.arg)
			}
			if c.class != in.class {
				return cell{}, fmt.Errorf("%w: local %d holds %s", errStorageClass, in.arg, c.class)
			}
			f.push(c)
		case opStore:
			c, err := f.popClass(in.class)
			if err != nil {
				return cell{}, err
			}
			f.locals[in.arg] = c
		case opLoadGlobal:
			c, ok := m.globals[in.name]
			if !ok {
				return cell{}, fmt.Errorf("unknown global %s", in.name)
			}
			if !c.set {
				return cell{}, fmt.Errorf("undefined variable %s", in.name)
			}
			if c.class != in.class {
				return cell{}, fmt.Errorf("%w: global %s holds %s", errStorageClass, in.name, c.class)
			}
			f.push(c)
		case opStoreGlobal:
			c, err := f.popClass(in.class)
			if err != nil {
				return cell{}, err
			}
			m.globals[in.name] = c

		case opAdd, opSub, opMul, opDiv, opXor:
			right, err := f.popNum()
			if err != nil {
				return cell{}, err
			}
			left, err := f.popNum()
			if err != nil {
				return cell{}, err
			}
			switch in.op {
			case opAdd:
				f.push(numCell(left + right))
			case opSub:
				f.push(numCell(left - right))
			case opMul:
				f.push(numCell(left * right))
			case opDiv:
				if right == 0 {
					return cell{}, catscript.ErrDivisionByZero
				}
				f.push(numCell(left / right))
			case opXor:
				f.push(numCell(left ^ right))
			}
		case opNeg:
			n, err := f.popNum()
			if err != nil {
				return cell{}, err
			}
			f.push(numCell(-n))
		case opPop:
			if _, err := f.pop(); err != nil {
				return cell{}, err
			}

		case opBranch:
			taken, err := branchTaken(f, in.cond)
			if err != nil {
				return cell{}, err
			}
			if taken {
				pc = int(in.arg)
			}
		case opJump:
			pc = int(in.arg)

		case opCall:
			callee := m.artifact.Unit(in.name)
			if callee == nil {
				return cell{}, fmt.Errorf("unknown unit %s", in.name)
			}
			callArgs := make([]cell, len(in.desc.Params))
			for i := len(callArgs) - 1; i >= 0; i-- {
				c, err := f.popClass(catscript.StorageClassOf(in.desc.Params[i]))
				if err != nil {
					return cell{}, err
				}
				callArgs[i] = c
			}
			result, err := m.invoke(callee, callArgs)
			if err != nil {
				return cell{}, err
			}
			if catscript.StorageClassOf(in.desc.Return) != catscript.StorageVoid {
				f.push(result)
			}
		case opReturn:
			if in.class == catscript.StorageVoid {
				return cell{class: catscript.StorageVoid}, nil
			}
			return f.popClass(in.class)

		case opBox:
			n, err := f.popNum()
			if err != nil {
				return cell{}, err
			}
			if in.typ == catscript.TypeBoolean {
				f.push(refCell(catscript.NewBool(n != 0)))
			} else {
				f.push(refCell(catscript.NewInt(n)))
			}
		case opUnbox:
			v, err := f.popRef()
			if err != nil {
				return cell{}, err
			}
			switch {
			case in.typ == catscript.TypeInt && v.Kind() == catscript.KindInt:
				f.push(numCell(v.Int()))
			case in.typ == catscript.TypeBoolean && v.Kind() == catscript.KindBool:
				f.push(boolCell(v.Bool()))
			default:
				return cell{}, fmt.Errorf("cannot unbox %s as %s", v.Kind(), in.typ)
			}
		case opCheckCast:
			v, err := f.popRef()
			if err != nil {
				return cell{}, err
			}
			if !v.ConformsTo(in.typ) {
				return cell{}, fmt.Errorf("cannot cast %s to %s", v.Kind(), in.typ)
			}
			f.push(refCell(v))

		case opIntrinsic:
			if err := m.intrinsic(f, in.intrinsic); err != nil {
				return cell{}, err
			}

		default:
			return cell{}, fmt.Errorf("unknown opcode %s", in.op)
		}
	}
	if catscript.StorageClassOf(unit.Desc.Return) != catscript.StorageVoid {
		return cell{}, fmt.Errorf("unit %s ended without returning", unit.Name)
	}
	return cell{class: catscript.StorageVoid}, nil
}

func branchTaken(f *frame, cond catscript.Cond) (bool, error) {
	if cond.Operands() == 1 {
		n, err := f.popNum()
		if err != nil {
			return false, err
		}
		if cond == catscript.CondIfTrue {
			return n != 0, nil
		}
		return n == 0, nil
	}
	right, err := f.popNum()
	if err != nil {
		return false, err
	}
	left, err := f.popNum()
	if err != nil {
		return false, err
	}
	switch cond {
	case catscript.CondIntEQ:
		return left == right, nil
	case catscript.CondIntNE:
		return left != right, nil
	case catscript.CondIntLT:
		return left < right, nil
	case catscript.CondIntGE:
		return left >= right, nil
	case catscript.CondIntGT:
		return left > right, nil
	case catscript.CondIntLE:
		return left <= right, nil
	default:
		return false, fmt.Errorf("unknown branch condition %s", cond)
	}
}

func (m *Machine) intrinsic(f *frame, i catscript.Intrinsic) error {
	switch i {
	case catscript.IntrinsicPrint:
		v, err := f.popRef()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(m.out, v.String())
		return err

	case catscript.IntrinsicConcat:
		right, err := f.popRef()
		if err != nil {
			return err
		}
		left, err := f.popRef()
		if err != nil {
			return err
		}
		f.push(refCell(catscript.NewString(left.String() + right.String())))

	case catscript.IntrinsicEquals:
		right, err := f.popRef()
		if err != nil {
			return err
		}
		left, err := f.popRef()
		if err != nil {
			return err
		}
		f.push(boolCell(left.Equal(right)))

	case catscript.IntrinsicNewList:
		f.push(refCell(catscript.NewList(nil)))

	case catscript.IntrinsicListAppend:
		elem, err := f.popRef()
		if err != nil {
			return err
		}
		list, err := f.popRef()
		if err != nil {
			return err
		}
		f.push(refCell(catscript.NewList(append(slices.Clip(list.List()), elem))))

	case catscript.IntrinsicIterator:
		v, err := f.popRef()
		if err != nil {
			return err
		}
		if v.IsNull() {
			return catscript.ErrNullIteration
		}
		if v.Kind() != catscript.KindList {
			return fmt.Errorf("cannot iterate over %s", v.Kind())
		}
		f.push(cell{class: catscript.StorageReference, iter: &iterator{items: v.List()}, set: true})

	case catscript.IntrinsicHasNext, catscript.IntrinsicNext:
		c, err := f.popClass(catscript.StorageReference)
		if err != nil {
			return err
		}
		if c.iter == nil {
			return fmt.Errorf("%s on a non-iterator", i)
		}
		if i == catscript.IntrinsicHasNext {
			f.push(boolCell(c.iter.pos < len(c.iter.items)))
			return nil
		}
		if c.iter.pos >= len(c.iter.items) {
			return fmt.Errorf("iterator exhausted")
		}
		f.push(refCell(c.iter.items[c.iter.pos]))
		c.iter.pos++

	default:
		return fmt.Errorf("unknown intrinsic %s", i)
	}
	return nil
}
