package catscript

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func sessionEval(t *testing.T, s *Session, source string) (Value, string) {
	t.Helper()
	var out strings.Builder
	val, err := s.Eval(context.Background(), source, &out)
	if err != nil {
		t.Fatalf("eval %q: %v", source, err)
	}
	return val, out.String()
}

func TestSessionCarriesState(t *testing.T) {
	s := MustNewEngine(Config{}).NewSession()
	sessionEval(t, s, `var count = 1`)
	sessionEval(t, s, `function bump(by: int): int { count = count + by return count }`)
	if val, _ := sessionEval(t, s, `bump(4)`); val.Int() != 5 {
		t.Fatalf("expected 5, got %s", val)
	}
	if _, out := sessionEval(t, s, `print(count * 2)`); out != "10\n" {
		t.Fatalf("unexpected output %q", out)
	}
	if got := s.Globals()["count"]; got.Int() != 5 {
		t.Fatalf("expected global count=5, got %s", got)
	}
}

func TestSessionKeepsStaticTypes(t *testing.T) {
	s := MustNewEngine(Config{}).NewSession()
	sessionEval(t, s, `var n = 1`)
	_, err := s.Eval(context.Background(), `n = "text"`, nil)
	var diags *DiagnosticsError
	if !errors.As(err, &diags) || !diags.Has(IncompatibleTypes) {
		t.Fatalf("expected IncompatibleTypes across inputs, got %v", err)
	}
	_, err = s.Eval(context.Background(), `var n = 2`, nil)
	if !errors.As(err, &diags) || !diags.Has(DuplicateName) {
		t.Fatalf("expected DuplicateName across inputs, got %v", err)
	}
}

func TestSessionRollsBackFailedInput(t *testing.T) {
	s := MustNewEngine(Config{}).NewSession()
	if _, err := s.Eval(context.Background(), `var a = 1 print(missing)`, nil); err == nil {
		t.Fatalf("expected diagnostics")
	}
	if _, ok := s.Globals()["a"]; ok {
		t.Fatalf("failed input must not define variables")
	}
	sessionEval(t, s, `var a = "fresh"`)

	if _, err := s.Eval(context.Background(), `function f() {} print(nope)`, nil); err == nil {
		t.Fatalf("expected diagnostics")
	}
	if len(s.Functions()) != 0 {
		t.Fatalf("failed input must not define functions")
	}
}

func TestSessionRuntimeErrorDeclaresNothing(t *testing.T) {
	s := MustNewEngine(Config{}).NewSession()
	sessionEval(t, s, `var total = 1`)

	var out strings.Builder
	_, err := s.Eval(context.Background(), `var b = 2 total = 10 function f(): int { return 1 } print(b) var a = 1 / 0`, &out)
	if !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected division by zero, got %v", err)
	}
	if out.String() != "2\n" {
		t.Fatalf("output before the failure should be kept, got %q", out.String())
	}
	globals := s.Globals()
	for _, name := range []string{"a", "b"} {
		if _, ok := globals[name]; ok {
			t.Fatalf("failed input must not define %s", name)
		}
	}
	if len(s.Functions()) != 0 {
		t.Fatalf("failed input must not define functions")
	}
	if got := globals["total"]; got.Int() != 10 {
		t.Fatalf("assignments that ran should stick, got total=%s", got)
	}

	sessionEval(t, s, `var a = 2`)
	if _, out := sessionEval(t, s, `print(a)`); out != "2\n" {
		t.Fatalf("expected a to be redeclared, got %q", out)
	}
	sessionEval(t, s, `var b = "again" function f(): int { return 3 }`)
	if val, _ := sessionEval(t, s, `f()`); val.Int() != 3 {
		t.Fatalf("expected f to be definable after the failure, got %s", val)
	}
}

func TestSessionRejectsFunctionRedefinition(t *testing.T) {
	s := MustNewEngine(Config{}).NewSession()
	sessionEval(t, s, `function f(): int { return 1 }`)
	_, err := s.Eval(context.Background(), `function f(): int { return 2 }`, nil)
	var diags *DiagnosticsError
	if !errors.As(err, &diags) || !diags.Has(DuplicateName) {
		t.Fatalf("expected DuplicateName, got %v", err)
	}
	if val, _ := sessionEval(t, s, `f()`); val.Int() != 1 {
		t.Fatalf("original definition should survive, got %s", val)
	}
}

func TestSessionFunctionsSortedByName(t *testing.T) {
	s := MustNewEngine(Config{}).NewSession()
	sessionEval(t, s, `function zeta() {} function alpha() {}`)
	sessionEval(t, s, `function mid() {}`)
	var names []string
	for _, fn := range s.Functions() {
		names = append(names, fn.Name)
	}
	if got := strings.Join(names, ","); got != "alpha,mid,zeta" {
		t.Fatalf("unexpected order %s", got)
	}
}

func TestSessionCheckDoesNotCommit(t *testing.T) {
	s := MustNewEngine(Config{}).NewSession()
	if _, err := s.Check(`var x = 1`); err != nil {
		t.Fatalf("check: %v", err)
	}
	sessionEval(t, s, `var x = 2`)
	if got := s.Globals()["x"]; got.Int() != 2 {
		t.Fatalf("expected x=2, got %s", got)
	}
}

func TestSessionReset(t *testing.T) {
	s := MustNewEngine(Config{}).NewSession()
	sessionEval(t, s, `var x = 1 function f() {}`)
	s.Reset()
	if len(s.Globals()) != 0 || len(s.Functions()) != 0 {
		t.Fatalf("reset should clear state")
	}
	sessionEval(t, s, `var x = "again" function f() {}`)
}

func TestSessionStatementInputReturnsNull(t *testing.T) {
	s := MustNewEngine(Config{}).NewSession()
	val, out := sessionEval(t, s, `print("hi")`)
	if !val.IsNull() || out != "hi\n" {
		t.Fatalf("unexpected result %s / %q", val, out)
	}
}
