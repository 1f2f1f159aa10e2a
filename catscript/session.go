package catscript

import (
	"context"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Session evaluates a sequence of inputs against shared state: variables,
// their static types and functions carry over from one input to the next.
// An input with diagnostics or a runtime error declares nothing.
type Session struct {
	engine *Engine

	mu        sync.Mutex
	names     map[string]*Type
	functions map[string]*FunctionDefinition
	globals   *Env
}

func (e *Engine) NewSession() *Session {
	return &Session{
		engine:    e,
		names:     make(map[string]*Type),
		functions: make(map[string]*FunctionDefinition),
		globals:   newEnv(nil),
	}
}

// Check validates source against the session state without running or
// committing it.
func (s *Session) Check(source string) (*Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	program, _, err := s.check(source)
	return program, err
}

func (s *Session) check(source string) (*Program, *SymbolTable, error) {
	program, err := s.engine.Parse(source)
	if err != nil {
		return nil, nil, err
	}
	for _, fn := range program.order {
		if _, exists := s.functions[fn.Name]; exists {
			fn.addError(DuplicateName)
		}
	}
	for name, fn := range s.functions {
		if _, shadowed := program.functions[name]; !shadowed {
			program.functions[name] = fn
		}
	}

	symbols := NewSymbolTable(program.functions)
	symbols.PushScope()
	maps.Copy(symbols.root(), s.names)
	program.validateWith(symbols)
	if err := program.Err(); err != nil {
		return program, nil, err
	}
	return program, symbols, nil
}

// Eval checks and runs source. Expression inputs return their value;
// statement inputs return null and write printed lines to out.
func (s *Session) Eval(ctx context.Context, source string, out io.Writer) (Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	program, symbols, err := s.check(source)
	if err != nil {
		return Value{}, err
	}

	// New bindings land in a scratch scope and are committed only when the
	// whole input runs; assignments to earlier globals take effect regardless.
	scratch := newEnv(s.globals)
	exec := newExecution(ctx, s.engine.config, program, scratch, out)
	result := NewNull()
	if program.Expression != nil {
		result, err = exec.eval(program.Expression, scratch)
	} else {
		err = exec.run()
	}
	if err != nil {
		return Value{}, err
	}

	maps.Copy(s.globals.values, scratch.values)
	s.names = symbols.root()
	for _, fn := range program.order {
		s.functions[fn.Name] = fn
	}
	return result, nil
}

// Globals snapshots the current variable bindings.
func (s *Session) Globals() map[string]Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.globals.Snapshot()
}

// Functions lists the functions defined so far, ordered by name.
func (s *Session) Functions() []*FunctionDefinition {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*FunctionDefinition, 0, len(s.functions))
	for _, fn := range s.functions {
		out = append(out, fn)
	}
	slices.SortFunc(out, func(a, b *FunctionDefinition) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Reset discards all state.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = make(map[string]*Type)
	s.functions = make(map[string]*FunctionDefinition)
	s.globals = newEnv(nil)
}
