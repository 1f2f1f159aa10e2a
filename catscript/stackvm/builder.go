package stackvm

import (
	"fmt"

	"github.com/mgomes/catscript/catscript"
)

// Builder assembles an Artifact. It implements catscript.Assembler; the
// first misuse is recorded and reported by Artifact.
type Builder struct {
	artifact *Artifact
	unit     *Unit
	labels   map[catscript.Label]int
	fixups   []int
	next     catscript.Label
	err      error
}

var _ catscript.Assembler = (*Builder)(nil)

func NewBuilder(name string) *Builder {
	return &Builder{artifact: newArtifact(name)}
}

// Build compiles a checked program into a new artifact.
func Build(name string, program *catscript.Program) (*Artifact, error) {
	b := NewBuilder(name)
	if err := catscript.Compile(program, b); err != nil {
		return nil, err
	}
	return b.Artifact()
}

// Artifact returns the assembled artifact, or the first assembly error.
func (b *Builder) Artifact() (*Artifact, error) {
	if b.err == nil && b.unit != nil {
		b.fail("unit %s was not ended", b.unit.Name)
	}
	if b.err != nil {
		return nil, b.err
	}
	return b.artifact, nil
}

func (b *Builder) fail(format string, args ...any) {
	if b.err == nil {
		b.err = fmt.Errorf("stackvm: "+format, args...)
	}
}

func (b *Builder) emit(in Instruction) {
	if b.unit == nil {
		b.fail("%s emitted outside of a unit", in.op)
		return
	}
	b.unit.Code = append(b.unit.Code, in)
}

func (b *Builder) DeclareGlobal(name string, class catscript.StorageClass) {
	if _, exists := b.artifact.globalIndex[name]; exists {
		b.fail("global %s declared twice", name)
		return
	}
	b.artifact.globalIndex[name] = len(b.artifact.Globals)
	b.artifact.Globals = append(b.artifact.Globals, Global{Name: name, Class: class})
}

func (b *Builder) BeginUnit(name string, desc catscript.Descriptor) {
	if b.unit != nil {
		b.fail("unit %s begun inside %s", name, b.unit.Name)
		return
	}
	if b.artifact.Unit(name) != nil {
		b.fail("unit %s defined twice", name)
		return
	}
	b.unit = &Unit{Name: name, Desc: desc, Locals: len(desc.Params)}
	b.labels = make(map[catscript.Label]int)
	b.fixups = b.fixups[:0]
}

// EndUnit resolves the unit's labels to instruction offsets.
func (b *Builder) EndUnit() {
	if b.unit == nil {
		b.fail("EndUnit without BeginUnit")
		return
	}
	for _, at := range b.fixups {
		in := &b.unit.Code[at]
		target, ok := b.labels[catscript.Label(in.arg)]
		if !ok {
			b.fail("unit %s: label %d never marked", b.unit.Name, in.arg)
			break
		}
		in.arg = int64(target)
	}
	b.artifact.addUnit(b.unit)
	b.unit = nil
}

func (b *Builder) PushInt(v int64) { b.emit(Instruction{op: opPushInt, arg: v}) }

func (b *Builder) PushBool(v bool) {
	var arg int64
	if v {
		arg = 1
	}
	b.emit(Instruction{op: opPushBool, arg: arg})
}

func (b *Builder) PushString(v string) {
	if b.unit == nil {
		b.fail("constant emitted outside of a unit")
		return
	}
	idx := len(b.unit.Consts)
	b.unit.Consts = append(b.unit.Consts, catscript.NewString(v))
	b.emit(Instruction{op: opPushConst, arg: int64(idx)})
}

func (b *Builder) PushNull() { b.emit(Instruction{op: opPushNull}) }

func (b *Builder) Load(class catscript.StorageClass, slot int) {
	b.useSlot(slot)
	b.emit(Instruction{op: opLoad, class: class, arg: int64(slot)})
}

func (b *Builder) Store(class catscript.StorageClass, slot int) {
	b.useSlot(slot)
	b.emit(Instruction{op: opStore, class: class, arg: int64(slot)})
}

func (b *Builder) useSlot(slot int) {
	if b.unit != nil && slot >= b.unit.Locals {
		b.unit.Locals = slot + 1
	}
}

func (b *Builder) LoadGlobal(class catscript.StorageClass, name string) {
	b.emit(Instruction{op: opLoadGlobal, class: class, name: name})
}

func (b *Builder) StoreGlobal(class catscript.StorageClass, name string) {
	b.emit(Instruction{op: opStoreGlobal, class: class, name: name})
}

func (b *Builder) Op(op catscript.Opcode) {
	switch op {
	case catscript.OpAdd:
		b.emit(Instruction{op: opAdd})
	case catscript.OpSub:
		b.emit(Instruction{op: opSub})
	case catscript.OpMul:
		b.emit(Instruction{op: opMul})
	case catscript.OpDiv:
		b.emit(Instruction{op: opDiv})
	case catscript.OpNeg:
		b.emit(Instruction{op: opNeg})
	case catscript.OpXor:
		b.emit(Instruction{op: opXor})
	case catscript.OpPop:
		b.emit(Instruction{op: opPop})
	default:
		b.fail("unknown opcode %s", op)
	}
}

func (b *Builder) NewLabel() catscript.Label {
	l := b.next
	b.next++
	return l
}

func (b *Builder) Mark(l catscript.Label) {
	if b.unit == nil {
		b.fail("label %d marked outside of a unit", l)
		return
	}
	if _, exists := b.labels[l]; exists {
		b.fail("label %d marked twice", l)
		return
	}
	b.labels[l] = len(b.unit.Code)
}

func (b *Builder) Branch(cond catscript.Cond, l catscript.Label) {
	b.jumpTo(Instruction{op: opBranch, cond: cond, arg: int64(l)})
}

func (b *Builder) Jump(l catscript.Label) {
	b.jumpTo(Instruction{op: opJump, arg: int64(l)})
}

func (b *Builder) jumpTo(in Instruction) {
	if b.unit == nil {
		b.fail("%s emitted outside of a unit", in.op)
		return
	}
	b.fixups = append(b.fixups, len(b.unit.Code))
	b.unit.Code = append(b.unit.Code, in)
}

func (b *Builder) Call(name string, desc catscript.Descriptor) {
	b.emit(Instruction{op: opCall, name: name, desc: desc})
}

func (b *Builder) Return(class catscript.StorageClass) {
	b.emit(Instruction{op: opReturn, class: class})
}

func (b *Builder) Box(t *catscript.Type)       { b.emit(Instruction{op: opBox, typ: t}) }
func (b *Builder) Unbox(t *catscript.Type)     { b.emit(Instruction{op: opUnbox, typ: t}) }
func (b *Builder) CheckCast(t *catscript.Type) { b.emit(Instruction{op: opCheckCast, typ: t}) }

func (b *Builder) Intrinsic(i catscript.Intrinsic) {
	b.emit(Instruction{op: opIntrinsic, intrinsic: i})
}
