package catscript

import (
	"fmt"
	"strings"
)

// StorageClass separates numeric (int, bool) values from references on the
// target machine's stack and in its local slots.
type StorageClass int

const (
	StorageNumeric StorageClass = iota
	StorageReference
	StorageVoid
)

func (c StorageClass) String() string {
	switch c {
	case StorageNumeric:
		return "num"
	case StorageReference:
		return "ref"
	case StorageVoid:
		return "void"
	default:
		return fmt.Sprintf("storage(%d)", int(c))
	}
}

type Opcode int

const (
	OpAdd Opcode = iota
	OpSub
	OpMul
	OpDiv
	OpNeg
	OpXor
	OpPop
)

func (op Opcode) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	case OpNeg:
		return "neg"
	case OpXor:
		return "xor"
	case OpPop:
		return "pop"
	default:
		return fmt.Sprintf("op(%d)", int(op))
	}
}

// Cond is a branch condition. CondIfFalse and CondIfTrue test one numeric
// operand; the CondInt variants compare two.
type Cond int

const (
	CondIfFalse Cond = iota
	CondIfTrue
	CondIntEQ
	CondIntNE
	CondIntLT
	CondIntGE
	CondIntGT
	CondIntLE
)

func (c Cond) String() string {
	switch c {
	case CondIfFalse:
		return "iffalse"
	case CondIfTrue:
		return "iftrue"
	case CondIntEQ:
		return "ifeq"
	case CondIntNE:
		return "ifne"
	case CondIntLT:
		return "iflt"
	case CondIntGE:
		return "ifge"
	case CondIntGT:
		return "ifgt"
	case CondIntLE:
		return "ifle"
	default:
		return fmt.Sprintf("cond(%d)", int(c))
	}
}

// Operands reports how many numeric values the condition pops.
func (c Cond) Operands() int {
	if c == CondIfFalse || c == CondIfTrue {
		return 1
	}
	return 2
}

// Label marks a branch target within the current unit.
type Label int

// Intrinsic names a runtime helper invoked by compiled code.
type Intrinsic int

const (
	// IntrinsicPrint pops a reference and writes its text form and a newline.
	IntrinsicPrint Intrinsic = iota
	// IntrinsicConcat pops two references and pushes their concatenated text.
	IntrinsicConcat
	// IntrinsicEquals pops two references and pushes a numeric bool.
	IntrinsicEquals
	// IntrinsicNewList pushes an empty list.
	IntrinsicNewList
	// IntrinsicListAppend pops a list and a reference element and pushes the extended list.
	IntrinsicListAppend
	// IntrinsicIterator pops a list and pushes an iterator over it.
	IntrinsicIterator
	// IntrinsicHasNext pops an iterator and pushes a numeric bool.
	IntrinsicHasNext
	// IntrinsicNext pops an iterator, advances it and pushes the element.
	IntrinsicNext
)

func (i Intrinsic) String() string {
	switch i {
	case IntrinsicPrint:
		return "print"
	case IntrinsicConcat:
		return "concat"
	case IntrinsicEquals:
		return "equals"
	case IntrinsicNewList:
		return "newlist"
	case IntrinsicListAppend:
		return "append"
	case IntrinsicIterator:
		return "iterator"
	case IntrinsicHasNext:
		return "hasnext"
	case IntrinsicNext:
		return "next"
	default:
		return fmt.Sprintf("intrinsic(%d)", int(i))
	}
}

// Descriptor is the call signature of a compiled unit.
type Descriptor struct {
	Params []*Type
	Return *Type
}

func (d Descriptor) String() string {
	parts := make([]string, len(d.Params))
	for i, p := range d.Params {
		parts[i] = p.String()
	}
	return "(" + strings.Join(parts, ",") + ")" + d.Return.String()
}

// EntryUnit is the name of the unit compiled from a program's top level.
const EntryUnit = "<main>"

// Assembler receives the instruction stream produced by Compile. Units are
// emitted one at a time between BeginUnit and EndUnit; globals are declared
// before the first unit.
type Assembler interface {
	DeclareGlobal(name string, class StorageClass)
	BeginUnit(name string, desc Descriptor)
	EndUnit()

	PushInt(v int64)
	PushBool(v bool)
	PushString(v string)
	PushNull()

	Load(class StorageClass, slot int)
	Store(class StorageClass, slot int)
	LoadGlobal(class StorageClass, name string)
	StoreGlobal(class StorageClass, name string)

	Op(op Opcode)
	NewLabel() Label
	Mark(l Label)
	Branch(cond Cond, l Label)
	Jump(l Label)

	Call(name string, desc Descriptor)
	Return(class StorageClass)

	Box(t *Type)
	Unbox(t *Type)
	CheckCast(t *Type)
	Intrinsic(i Intrinsic)
}
