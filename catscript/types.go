package catscript

import "sync"

// Type is a static type. Instances are interned, so two types are equal
// exactly when their pointers are equal.
type Type struct {
	name      string
	component *Type
}

var (
	TypeInt     = &Type{name: "int"}
	TypeString  = &Type{name: "string"}
	TypeBoolean = &Type{name: "bool"}
	TypeObject  = &Type{name: "object"}
	TypeVoid    = &Type{name: "void"}
	TypeNull    = &Type{name: "null"}
)

var (
	listTypesMu sync.Mutex
	listTypes   = make(map[*Type]*Type)
)

// ListOf returns the interned list type with the given component type.
func ListOf(component *Type) *Type {
	if component == nil {
		component = TypeObject
	}
	listTypesMu.Lock()
	defer listTypesMu.Unlock()
	if t, ok := listTypes[component]; ok {
		return t
	}
	t := &Type{name: "list", component: component}
	listTypes[component] = t
	return t
}

// IsList reports whether t is a list type.
func (t *Type) IsList() bool {
	return t != nil && t.component != nil
}

// Component returns the element type of a list type and nil otherwise.
func (t *Type) Component() *Type {
	if t == nil {
		return nil
	}
	return t.component
}

// IsPrimitive reports whether values of t use the numeric storage class.
func (t *Type) IsPrimitive() bool {
	return t == TypeInt || t == TypeBoolean
}

// IsReference reports whether t can hold null.
func (t *Type) IsReference() bool {
	return t == TypeString || t == TypeObject || t.IsList()
}

// IsAssignableFrom reports whether a value of type other may be stored where t is expected.
func (t *Type) IsAssignableFrom(other *Type) bool {
	switch {
	case t == nil || other == nil:
		return false
	case t == other, t == TypeObject:
		return true
	case t.IsList() && other.IsList():
		return t.component.IsAssignableFrom(other.component)
	case other == TypeNull:
		return t.IsReference()
	default:
		return false
	}
}

func (t *Type) String() string {
	if t == nil {
		return "<untyped>"
	}
	if t.IsList() {
		return "list<" + t.component.String() + ">"
	}
	return t.name
}

// StorageClassOf maps a static type onto the backend storage class holding its values.
func StorageClassOf(t *Type) StorageClass {
	switch {
	case t == TypeVoid:
		return StorageVoid
	case t.IsPrimitive():
		return StorageNumeric
	default:
		return StorageReference
	}
}
