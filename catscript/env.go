package catscript

import "maps"

// Env is one runtime scope: a function body, an if branch, a loop, or the
// globals at the root of the chain.
type Env struct {
	parent *Env
	values map[string]Value
}

func newEnv(parent *Env) *Env {
	return &Env{parent: parent, values: make(map[string]Value)}
}

// owner returns the innermost scope that binds name, or nil.
func (e *Env) owner(name string) *Env {
	for scope := e; scope != nil; scope = scope.parent {
		if _, ok := scope.values[name]; ok {
			return scope
		}
	}
	return nil
}

func (e *Env) Get(name string) (Value, bool) {
	if scope := e.owner(name); scope != nil {
		return scope.values[name], true
	}
	return Value{}, false
}

// Define binds name in this scope, shadowing any outer binding.
func (e *Env) Define(name string, val Value) {
	e.values[name] = val
}

// Assign rebinds the innermost existing binding of name and reports whether
// there was one.
func (e *Env) Assign(name string, val Value) bool {
	scope := e.owner(name)
	if scope == nil {
		return false
	}
	scope.values[name] = val
	return true
}

// Snapshot copies the bindings of this scope only.
func (e *Env) Snapshot() map[string]Value {
	return maps.Clone(e.values)
}
