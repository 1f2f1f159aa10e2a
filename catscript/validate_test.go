package catscript

import (
	"errors"
	"testing"
)

func checkSource(t *testing.T, source string) (*Program, error) {
	t.Helper()
	program := mustParse(t, source)
	program.Validate()
	return program, program.Err()
}

func requireValid(t *testing.T, source string) *Program {
	t.Helper()
	program, err := checkSource(t, source)
	if err != nil {
		t.Fatalf("unexpected diagnostics for %q:\n%v", source, err)
	}
	return program
}

func requireDiagnostic(t *testing.T, source string, kind ErrorKind) *DiagnosticsError {
	t.Helper()
	_, err := checkSource(t, source)
	var diags *DiagnosticsError
	if !errors.As(err, &diags) {
		t.Fatalf("expected %s for %q, got %v", kind, source, err)
	}
	if !diags.Has(kind) {
		t.Fatalf("expected %s for %q, got:\n%v", kind, source, err)
	}
	return diags
}

func TestValidateAcceptsWellTypedPrograms(t *testing.T) {
	sources := []string{
		`var x = 1 x = x + 1 print(x)`,
		`var s: string = null s = "a" + 1 print(s)`,
		`var o: object = 1 o = "now a string" o = [1, 2]`,
		`var l: list<object> = [1, 2] for (e in l) { print(e) }`,
		`var xs = [[1], [2, 3]] for (row in xs) { for (v in row) { print(v * 2) } }`,
		`print(count(3)) function count(n: int): int { return n }`,
		`function f(): void { return } f()`,
		`function f(a: object) { print(a) } f(1) f("s") f(null)`,
		`var b = true if (b == false) { print(1) } else { print(2) }`,
		`print(null == null) print("a" != null) print([1] == [1])`,
		`print(-(1 + 2)) print(!(1 < 2))`,
	}
	for _, src := range sources {
		requireValid(t, src)
	}
}

func TestValidateComparisonRejectsBooleans(t *testing.T) {
	program, err := checkSource(t, `true > false`)
	if err == nil {
		t.Fatalf("expected diagnostics")
	}
	cmp := program.Expression.(*ComparisonExpression)
	if len(cmp.Left.Diagnostics()) == 0 && len(cmp.Right.Diagnostics()) == 0 {
		t.Fatalf("expected IncompatibleTypes on an operand, got %v", err)
	}
	if cmp.Left.Diagnostics()[0].Kind != IncompatibleTypes {
		t.Fatalf("expected IncompatibleTypes, got %v", cmp.Left.Diagnostics()[0].Kind)
	}
	if cmp.Type() != TypeBoolean {
		t.Fatalf("comparison should still type as bool, got %s", cmp.Type())
	}
}

func TestValidateShadowingAcrossScopes(t *testing.T) {
	requireValid(t, `var x = 1 function f() { var x = "inner" print(x) } f()`)
	requireValid(t, `var x = 1 if (true) { var x = 2 print(x) }`)
	requireValid(t, `for (x in [1]) { print(x) } for (x in ["a"]) { print(x) }`)

	requireDiagnostic(t, `var x = 1 var x = 2`, DuplicateName)
	requireDiagnostic(t, `function f() { var y = 1 var y = 2 }`, DuplicateName)
	requireDiagnostic(t, `function f(a: int, a: int) { print(a) }`, DuplicateName)
	requireDiagnostic(t, `for (x in [1]) { var x = 2 }`, DuplicateName)
}

func TestValidateDuplicateNamePointsAtTheName(t *testing.T) {
	cases := []struct {
		source  string
		line    int
		column  int
		message string
	}{
		{"var x = 1\nvar x = 2", 2, 5, `duplicate name "x"`},
		{"var x = 1\nfor (x in [1]) { print(x) }", 2, 6, `duplicate name "x"`},
		{"function f(a: int) {\n  for (a in [1]) { print(a) }\n}", 2, 8, `duplicate name "a"`},
		{"for (x in [1]) {\n  for (x in [2]) { print(x) }\n}", 2, 8, `duplicate name "x"`},
		{"if (true) { var y = 1 }\nvar y = 2\nfor (y in [1]) { print(y) }", 3, 6, `duplicate name "y"`},
	}
	for _, tc := range cases {
		diags := requireDiagnostic(t, tc.source, DuplicateName)
		if len(diags.Diagnostics) != 1 {
			t.Fatalf("%q: expected one diagnostic, got %v", tc.source, diags)
		}
		d := diags.Diagnostics[0]
		if d.Token.Pos.Line != tc.line || d.Token.Pos.Column != tc.column || d.Message() != tc.message {
			t.Fatalf("%q: got %s, want %d:%d: %s", tc.source, d, tc.line, tc.column, tc.message)
		}
	}
}

func TestValidateBlockScopesEnd(t *testing.T) {
	requireDiagnostic(t, `if (true) { var inner = 1 } print(inner)`, UnknownName)
	requireDiagnostic(t, `for (x in [1]) { print(x) } print(x)`, UnknownName)
	requireDiagnostic(t, `function f() { var local = 1 } print(local)`, UnknownName)
}

func TestValidateDiagnostics(t *testing.T) {
	cases := []struct {
		name   string
		source string
		kind   ErrorKind
	}{
		{"unknown variable", `print(y)`, UnknownName},
		{"unknown assignment target", `y = 1`, UnknownName},
		{"unknown function", `nope(1)`, UnknownName},
		{"too many args", `function f(a: int) {} f(1, 2)`, ArgMismatch},
		{"too few args", `function f(a: int) {} f()`, ArgMismatch},
		{"argument type", `function f(a: int) {} f("s")`, IncompatibleTypes},
		{"declared type", `var x: int = "s"`, IncompatibleTypes},
		{"assignment type", `var x = 1 x = "s"`, IncompatibleTypes},
		{"object into int", `var o: object = 1 var i: int = o`, IncompatibleTypes},
		{"null into int", `var i: int = null`, IncompatibleTypes},
		{"list variance", `var a: list<object> = [1] var b: list<int> = a`, IncompatibleTypes},
		{"if condition", `if (1) { print(1) }`, IncompatibleTypes},
		{"for over int", `for (x in 5) { print(x) }`, IncompatibleTypes},
		{"negate string", `print(-"s")`, IncompatibleTypes},
		{"not int", `print(!1)`, IncompatibleTypes},
		{"subtract string", `print("a" - 1)`, IncompatibleTypes},
		{"multiply bool", `print(true * 2)`, IncompatibleTypes},
		{"compare strings", `print("a" < "b")`, IncompatibleTypes},
		{"equality unrelated", `print(1 == "1")`, IncompatibleTypes},
		{"return type", `function f(): int { return "s" }`, IncompatibleTypes},
		{"bare return in int function", `function f(): int { return }`, IncompatibleTypes},
		{"return at top level", `return 1`, ReturnOutsideFunction},
		{"void as value", `function f(): void {} print(f())`, IncompatibleTypes},
		{"void into variable", `function f(): void {} var x = f()`, IncompatibleTypes},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			requireDiagnostic(t, tc.source, tc.kind)
		})
	}
}

func TestValidateDoesNotStackFollowOnErrors(t *testing.T) {
	diags := requireDiagnostic(t, `var x: int = y + 1`, UnknownName)
	if len(diags.Diagnostics) != 1 {
		t.Fatalf("expected only the unknown name, got:\n%v", diags)
	}
}

func TestValidateCollectsAllDiagnostics(t *testing.T) {
	diags := requireDiagnostic(t, "print(a)\nprint(b)\nprint(1 + true)", UnknownName)
	if len(diags.Diagnostics) != 3 {
		t.Fatalf("expected three diagnostics, got %d:\n%v", len(diags.Diagnostics), diags)
	}
	for i, d := range diags.Diagnostics {
		if d.Pos().Line != i+1 {
			t.Fatalf("diagnostics should be ordered by position, got %v", diags)
		}
	}
}

func TestValidateForwardFunctionReferences(t *testing.T) {
	program := requireValid(t, `print(even(4))
function even(n: int): bool { if (n == 0) { return true } return odd(n - 1) }
function odd(n: int): bool { if (n == 0) { return false } return even(n - 1) }`)
	call := program.Statements[0].(*PrintStatement).Expression.(*FunctionCall)
	if call.Type() != TypeBoolean {
		t.Fatalf("expected call typed by declared return, got %s", call.Type())
	}
}

func TestValidateInfersTypes(t *testing.T) {
	cases := []struct {
		source string
		want   *Type
	}{
		{`1 + 2`, TypeInt},
		{`"a" + 2`, TypeString},
		{`1 + "a"`, TypeString},
		{`[1, 2]`, ListOf(TypeInt)},
		{`[1, "a"]`, ListOf(TypeObject)},
		{`[null, "a"]`, ListOf(TypeString)},
		{`[]`, ListOf(TypeObject)},
		{`[null]`, ListOf(TypeObject)},
		{`[[1], [2]]`, ListOf(ListOf(TypeInt))},
		{`(1 < 2)`, TypeBoolean},
		{`null`, TypeNull},
	}
	for _, tc := range cases {
		program, err := checkSource(t, tc.source)
		if err != nil {
			t.Fatalf("%q: unexpected diagnostics %v", tc.source, err)
		}
		if got := program.Expression.Type(); got != tc.want {
			t.Fatalf("%q: expected %s, got %s", tc.source, tc.want, got)
		}
	}
}

func TestValidateRecordsDeclarationTypes(t *testing.T) {
	program := requireValid(t, `var a = null var b = [1] var c: object = 2 for (x in b) { print(x) } a = 1`)
	if got := program.Statements[0].(*VariableDeclaration).DeclaredType(); got != TypeObject {
		t.Fatalf("null initializer should declare object, got %s", got)
	}
	if got := program.Statements[1].(*VariableDeclaration).DeclaredType(); got != ListOf(TypeInt) {
		t.Fatalf("expected list<int>, got %s", got)
	}
	if got := program.Statements[2].(*VariableDeclaration).DeclaredType(); got != TypeObject {
		t.Fatalf("explicit type should win, got %s", got)
	}
	if got := program.Statements[3].(*ForStatement).ElementType(); got != TypeInt {
		t.Fatalf("expected loop variable int, got %s", got)
	}
	if got := program.Statements[4].(*AssignmentStatement).TargetType(); got != TypeObject {
		t.Fatalf("expected assignment target object, got %s", got)
	}
}

func TestValidateRunsOnce(t *testing.T) {
	program, err := checkSource(t, `print(y)`)
	if err == nil {
		t.Fatalf("expected diagnostics")
	}
	program.Validate()
	if n := len(program.Diagnostics()); n != 1 {
		t.Fatalf("second Validate must not duplicate diagnostics, got %d", n)
	}
}
