package stackvm

import (
	"fmt"

	"github.com/mgomes/catscript/catscript"
)

type opcode uint8

const (
	opNop opcode = iota

	// constants
	opPushInt   // push arg
	opPushBool  // push arg (0 or 1)
	opPushConst // push consts[arg]
	opPushNull

	// storage
	opLoad        // push locals[arg]
	opStore       // pop into locals[arg]
	opLoadGlobal  // push globals[name]
	opStoreGlobal // pop into globals[name]

	// arithmetic
	opAdd
	opSub
	opMul
	opDiv
	opNeg
	opXor
	opPop

	// control flow
	opBranch // pop cond.Operands() numbers; if cond holds => pc = arg
	opJump   // pc = arg
	opCall   // call unit name
	opReturn

	// conversions
	opBox
	opUnbox
	opCheckCast

	opIntrinsic
)

var opcodeNames = [...]string{
	opNop:         "nop",
	opPushInt:     "push.int",
	opPushBool:    "push.bool",
	opPushConst:   "push.const",
	opPushNull:    "push.null",
	opLoad:        "load",
	opStore:       "store",
	opLoadGlobal:  "load.global",
	opStoreGlobal: "store.global",
	opAdd:         "add",
	opSub:         "sub",
	opMul:         "mul",
	opDiv:         "div",
	opNeg:         "neg",
	opXor:         "xor",
	opPop:         "pop",
	opBranch:      "branch",
	opJump:        "jump",
	opCall:        "call",
	opReturn:      "return",
	opBox:         "box",
	opUnbox:       "unbox",
	opCheckCast:   "checkcast",
	opIntrinsic:   "intrinsic",
}

func (op opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return fmt.Sprintf("opcode(%d)", int(op))
}

// Instruction is one decoded machine instruction. Only the operand fields
// relevant to op are set.
type Instruction struct {
	op        opcode
	class     catscript.StorageClass
	arg       int64
	name      string
	cond      catscript.Cond
	typ       *catscript.Type
	desc      catscript.Descriptor
	intrinsic catscript.Intrinsic
}

func (in Instruction) String() string {
	switch in.op {
	case opPushInt, opPushBool, opPushConst:
		return fmt.Sprintf("%s %d", in.op, in.arg)
	case opLoad, opStore:
		return fmt.Sprintf("%s %s %d", in.op, in.class, in.arg)
	case opLoadGlobal, opStoreGlobal:
		return fmt.Sprintf("%s %s %s", in.op, in.class, in.name)
	case opBranch:
		return fmt.Sprintf("%s %s @%d", in.op, in.cond, in.arg)
	case opJump:
		return fmt.Sprintf("%s @%d", in.op, in.arg)
	case opCall:
		return fmt.Sprintf("%s %s %s", in.op, in.name, in.desc)
	case opReturn:
		return fmt.Sprintf("%s %s", in.op, in.class)
	case opBox, opUnbox, opCheckCast:
		return fmt.Sprintf("%s %s", in.op, in.typ)
	case opIntrinsic:
		return fmt.Sprintf("%s %s", in.op, in.intrinsic)
	default:
		return in.op.String()
	}
}
