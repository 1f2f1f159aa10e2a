package catscript

// SymbolTable is a stack of block scopes mapping names to static types, plus
// the flat program-wide function table.
type SymbolTable struct {
	scopes    []map[string]*Type
	functions map[string]*FunctionDefinition
}

// NewSymbolTable creates a table with no scopes over the given function table.
func NewSymbolTable(functions map[string]*FunctionDefinition) *SymbolTable {
	if functions == nil {
		functions = make(map[string]*FunctionDefinition)
	}
	return &SymbolTable{functions: functions}
}

func (st *SymbolTable) PushScope() {
	st.scopes = append(st.scopes, make(map[string]*Type))
}

func (st *SymbolTable) PopScope() {
	if len(st.scopes) > 0 {
		st.scopes = st.scopes[:len(st.scopes)-1]
	}
}

// Depth is the number of scopes currently pushed.
func (st *SymbolTable) Depth() int { return len(st.scopes) }

// RegisterSymbol binds name in the innermost scope. It returns false when the
// name already exists in that scope; outer bindings may be shadowed.
func (st *SymbolTable) RegisterSymbol(name string, t *Type) bool {
	if len(st.scopes) == 0 {
		st.PushScope()
	}
	current := st.scopes[len(st.scopes)-1]
	if _, exists := current[name]; exists {
		return false
	}
	current[name] = t
	return true
}

// Lookup resolves name from the innermost scope outwards.
func (st *SymbolTable) Lookup(name string) (*Type, bool) {
	for i := len(st.scopes) - 1; i >= 0; i-- {
		if t, ok := st.scopes[i][name]; ok {
			return t, true
		}
	}
	return nil, false
}

// Function resolves a function by name regardless of declaration order.
func (st *SymbolTable) Function(name string) *FunctionDefinition {
	return st.functions[name]
}

func (st *SymbolTable) root() map[string]*Type {
	if len(st.scopes) == 0 {
		st.PushScope()
	}
	return st.scopes[0]
}
