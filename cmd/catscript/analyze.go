package main

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/mgomes/catscript/catscript"
)

type lintWarning struct {
	Function string
	Pos      catscript.Position
	Message  string
}

func analyzeCommand(args []string) error {
	src, err := parseScriptArgs(newFlagSet("analyze"), args)
	if err != nil {
		return err
	}
	program, err := catscript.MustNewEngine(catscript.Config{}).Check(src.source)
	if err != nil {
		return fmt.Errorf("analysis check failed: %w", err)
	}

	warnings := analyzeProgramWarnings(program)
	if len(warnings) == 0 {
		fmt.Println("No issues found")
		return nil
	}
	for _, w := range warnings {
		fmt.Printf("%s:%d:%d: %s (%s)\n", src.path, max(w.Pos.Line, 1), max(w.Pos.Column, 1), w.Message, w.Function)
	}
	return fmt.Errorf("analysis found %d issue(s)", len(warnings))
}

// linter collects warnings for one function body at a time.
type linter struct {
	function string
	warnings []lintWarning
}

func (l *linter) warn(pos catscript.Position, message string) {
	l.warnings = append(l.warnings, lintWarning{Function: l.function, Pos: pos, Message: message})
}

func analyzeProgramWarnings(program *catscript.Program) []lintWarning {
	l := &linter{function: "<script>"}
	l.block(program.Statements)
	for _, fn := range program.Functions() {
		l.function = fn.Name
		l.block(fn.Body)
		if !calledFromOutside(program, fn) {
			l.warn(fn.Pos(), "function is never called")
		}
	}

	slices.SortStableFunc(l.warnings, func(a, b lintWarning) int {
		return cmp.Or(
			cmp.Compare(a.Pos.Line, b.Pos.Line),
			cmp.Compare(a.Pos.Column, b.Pos.Column),
			cmp.Compare(a.Function, b.Function),
		)
	})
	return l.warnings
}

// block lints stmts and reports whether control never falls off its end.
// Everything after a statement that always returns is unreachable.
func (l *linter) block(stmts []catscript.Statement) bool {
	for i, stmt := range stmts {
		if l.terminates(stmt) {
			for _, dead := range stmts[i+1:] {
				l.warn(dead.Pos(), "unreachable statement")
			}
			return true
		}
	}
	return false
}

func (l *linter) terminates(stmt catscript.Statement) bool {
	switch s := stmt.(type) {
	case *catscript.ReturnStatement:
		return true
	case *catscript.IfStatement:
		then := l.block(s.Then)
		return len(s.Else) > 0 && l.block(s.Else) && then
	case *catscript.ForStatement:
		// the body may run zero times
		l.block(s.Body)
	}
	return false
}

// calledFromOutside reports whether fn is called anywhere other than its own
// body, so self-recursive functions still count as unused.
func calledFromOutside(program *catscript.Program, fn *catscript.FunctionDefinition) bool {
	found := false
	catscript.Inspect(program, func(n catscript.Node) bool {
		if found {
			return false
		}
		if call, ok := n.(*catscript.FunctionCall); ok && call.Name == fn.Name && program.EnclosingFunction(call) != fn {
			found = true
		}
		return !found
	})
	return found
}
