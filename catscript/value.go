package catscript

import (
	"slices"
	"strconv"
	"strings"
)

type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindInt
	KindString
	KindList
)

// Value is a runtime value produced by evaluation. The zero Value is null.
// Only the field matching kind is meaningful.
type Value struct {
	kind ValueKind
	b    bool
	i    int64
	s    string
	l    []Value
}

func NewNull() Value           { return Value{} }
func NewBool(b bool) Value     { return Value{kind: KindBool, b: b} }
func NewInt(i int64) Value     { return Value{kind: KindInt, i: i} }
func NewString(s string) Value { return Value{kind: KindString, s: s} }
func NewList(l []Value) Value  { return Value{kind: KindList, l: l} }

// ZeroValue is the value a variable of type t holds before assignment.
func ZeroValue(t *Type) Value {
	switch t {
	case TypeInt:
		return NewInt(0)
	case TypeBoolean:
		return NewBool(false)
	default:
		return NewNull()
	}
}

var kindNames = [...]string{KindNull: "null", KindBool: "bool", KindInt: "int", KindString: "string", KindList: "list"}

func (k ValueKind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool, Int and List return the zero value for mismatched kinds.
func (v Value) Bool() bool    { return v.kind == KindBool && v.b }
func (v Value) Int() int64    { return v.i }
func (v Value) List() []Value { return v.l }

// String renders v the way print does: null and bools as words, lists as
// bracketed, comma separated elements.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindString:
		return v.s
	case KindList:
		var sb strings.Builder
		sb.WriteByte('[')
		for i, el := range v.l {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(el.String())
		}
		sb.WriteByte(']')
		return sb.String()
	default:
		return "null"
	}
}

// Equal compares by value; lists compare element-wise.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindList:
		return slices.EqualFunc(v.l, other.l, Value.Equal)
	default:
		return v.b == other.b && v.i == other.i && v.s == other.s
	}
}

// ConformsTo reports whether the runtime value may be stored in a variable of
// static type t.
func (v Value) ConformsTo(t *Type) bool {
	switch {
	case t == TypeObject:
		return true
	case v.kind == KindNull:
		return t.IsReference()
	case t == TypeInt:
		return v.kind == KindInt
	case t == TypeBoolean:
		return v.kind == KindBool
	case t == TypeString:
		return v.kind == KindString
	case t.IsList():
		return v.kind == KindList && !slices.ContainsFunc(v.l, func(el Value) bool {
			return !el.ConformsTo(t.Component())
		})
	default:
		return false
	}
}
