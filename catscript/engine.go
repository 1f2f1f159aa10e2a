package catscript

import (
	"context"
	"fmt"
	"io"
)

// Config bounds parsing and evaluation. Zero fields take defaults.
type Config struct {
	StepQuota       int
	RecursionLimit  int
	MaxNestingDepth int
	// ReturnAsBinding makes return bind the function's result and carry on
	// with the rest of the body; the last binding wins. By default return
	// leaves the function immediately, as compiled code does.
	ReturnAsBinding bool
}

// Engine parses, checks and runs CatScript programs with deterministic limits.
type Engine struct {
	config Config
}

// NewEngine constructs an Engine, filling in defaults for unset limits.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.StepQuota < 0 || cfg.RecursionLimit < 0 || cfg.MaxNestingDepth < 0 {
		return nil, fmt.Errorf("catscript: negative limit in config %+v", cfg)
	}
	if cfg.StepQuota == 0 {
		cfg.StepQuota = 50000
	}
	if cfg.RecursionLimit == 0 {
		cfg.RecursionLimit = 64
	}
	if cfg.MaxNestingDepth == 0 {
		cfg.MaxNestingDepth = defaultMaxNestingDepth
	}
	return &Engine{config: cfg}, nil
}

// MustNewEngine panics if NewEngine returns an error.
func MustNewEngine(cfg Config) *Engine {
	engine, err := NewEngine(cfg)
	if err != nil {
		panic(err)
	}
	return engine
}

func (e *Engine) Config() Config { return e.config }

// Parse builds a program without validating it.
func (e *Engine) Parse(source string) (*Program, error) {
	return newParser(source, e.config.MaxNestingDepth).parse()
}

// Check parses and validates source. The program is returned even when it
// carries diagnostics; the error is then a *DiagnosticsError.
func (e *Engine) Check(source string) (*Program, error) {
	program, err := e.Parse(source)
	if err != nil {
		return nil, err
	}
	program.Validate()
	return program, program.Err()
}

// Run executes a checked program, writing printed lines to out. An
// expression program writes its value.
func (e *Engine) Run(ctx context.Context, program *Program, out io.Writer) error {
	if err := checkRunnable(program); err != nil {
		return err
	}
	exec := newExecution(ctx, e.config, program, nil, out)
	if program.Expression != nil {
		val, err := exec.eval(program.Expression, exec.globals)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(exec.out, val.String())
		return err
	}
	return exec.run()
}

// Evaluate computes the value of a checked expression program.
func (e *Engine) Evaluate(ctx context.Context, program *Program) (Value, error) {
	if err := checkRunnable(program); err != nil {
		return Value{}, err
	}
	if program.Expression == nil {
		return Value{}, fmt.Errorf("catscript: program is not an expression")
	}
	exec := newExecution(ctx, e.config, program, nil, nil)
	return exec.eval(program.Expression, exec.globals)
}

// Execute checks source and runs it.
func (e *Engine) Execute(ctx context.Context, source string, out io.Writer) error {
	program, err := e.Check(source)
	if err != nil {
		return err
	}
	return e.Run(ctx, program, out)
}

// Compile emits a checked program to asm.
func (e *Engine) Compile(program *Program, asm Assembler) error {
	return Compile(program, asm)
}
