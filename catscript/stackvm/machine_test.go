package stackvm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/mgomes/catscript/catscript"
)

func buildSource(t *testing.T, source string) (*catscript.Program, *Artifact) {
	t.Helper()
	program, err := catscript.MustNewEngine(catscript.Config{}).Check(source)
	if err != nil {
		t.Fatalf("check %q: %v", source, err)
	}
	artifact, err := Build("test", program)
	if err != nil {
		t.Fatalf("build %q: %v", source, err)
	}
	return program, artifact
}

// runMachine mirrors Engine.Run: expression programs print their value.
func runMachine(t *testing.T, cfg Config, source string) (string, error) {
	t.Helper()
	program, artifact := buildSource(t, source)
	machine, err := NewMachine(artifact, cfg)
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}
	var out strings.Builder
	val, err := machine.WithSource(source).Run(context.Background(), &out)
	if err != nil {
		return out.String(), err
	}
	if program.IsExpression() {
		fmt.Fprintln(&out, val.String())
	}
	return out.String(), nil
}

func TestMachineMatchesEvaluator(t *testing.T) {
	sources := []string{
		`(36 * (81 / 9)) + ((52 / 13) - (39 * 69))`,
		`-7 / 2`,
		`!(1 >= 2) == true`,
		`"n=" + 1 + 2`,
		`1 + 2 + "x"`,
		`"v: " + null + " " + true`,
		`[1, [2, 3], "s", null]`,
		`[1, 2] == [1, 2]`,
		`[1, 2] != [2, 1]`,
		`null == null`,
		`for (x in [1, 2, 3, 4, 5]) { print(x * x) }`,
		`function foo(x: int): bool { if (x > 0) { return true } else { return false } } print(foo(0)) print(foo(3))`,
		`var x = 1 x = x + 41 print(x)`,
		`var n = 5 if (n < 3) { print("low") } else if (n <= 5) { print("mid") } else { print("high") }`,
		`var sum = 0 for (row in [[1, 2], [3]]) { for (v in row) { sum = sum + v } } print(sum)`,
		`var greeting = "hi" function greet(name: string) { print(greeting + " " + name) } greet("cat")`,
		`var x = 1 function f() { var x = 2 print(x) } f() print(x)`,
		`function fact(n: int): int { if (n <= 1) { return 1 } return n * fact(n - 1) } print(fact(10))`,
		`print(twice(4)) function twice(n: int): int { return n * 2 }`,
		`function i(): int { } function b(): bool { } function s(): string { } print(i()) print(b()) print(s())`,
		`function f(): int { for (x in [1, 2, 3]) { if (x == 2) { return x } } return 0 } print(f())`,
		`function f(): void { print("a") return print("b") } f()`,
		`for (x in []) { print(x) } print("done")`,
		`var x = 1 if (true) { var x = 2 print(x) } else { x = 3 } print(x)`,
		`var x = 1 if (true) { var x = "text" print(x) } print(x + 1)`,
		`function f(n: int): int { if (n > 0) { var n2 = n * 2 return n2 } return n } print(f(4)) print(f(-1))`,
		`var o: object = 1 print(o) o = "s" print(o) o = [true] print(o)`,
		`function id(o: object): object { return o } print(id(3) == 3) print(id("a") != "a")`,
		`var l: list<string> = ["a", null, "c"] for (s in l) { print(s) }`,
		`var flags = [true, false] for (f in flags) { print(!f) }`,
		`var count = 0 function bump(): int { count = count + 1 return count } bump() bump() print(bump())`,
		`var xs: list<object> = [1, "two"] for (x in xs) { print(x) }`,
	}
	engine := catscript.MustNewEngine(catscript.Config{})
	for _, src := range sources {
		var want strings.Builder
		if err := engine.Execute(context.Background(), src, &want); err != nil {
			t.Fatalf("evaluator %q: %v", src, err)
		}
		got, err := runMachine(t, Config{}, src)
		if err != nil {
			t.Fatalf("machine %q: %v", src, err)
		}
		if got != want.String() {
			t.Fatalf("%q: machine printed %q, evaluator printed %q", src, got, want.String())
		}
	}

	// a function may run before the global it reads has been declared
	failing := []string{
		`var y = f() print(y) var x = 5 function f(): int { return x }`,
		`var y = f() print(y) var x = "late" function f(): string { return x }`,
		`print("first") f() var x = [1] function f() { print(x) }`,
	}
	for _, src := range failing {
		var want strings.Builder
		evalErr := engine.Execute(context.Background(), src, &want)
		got, vmErr := runMachine(t, Config{}, src)
		if evalErr == nil || vmErr == nil {
			t.Fatalf("%q: expected both backends to fail, evaluator %v, machine %v", src, evalErr, vmErr)
		}
		for _, err := range []error{evalErr, vmErr} {
			if !strings.Contains(err.Error(), "undefined variable x") {
				t.Fatalf("%q: unexpected error %v", src, err)
			}
		}
		if got != want.String() {
			t.Fatalf("%q: machine printed %q, evaluator printed %q", src, got, want.String())
		}
	}
}

func TestMachineForLoopPrintsSquares(t *testing.T) {
	got, err := runMachine(t, Config{}, `for (x in [1, 2, 3, 4, 5]) { print(x * x) }`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got != "1\n4\n9\n16\n25\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestMachineReturnsExpressionValue(t *testing.T) {
	_, artifact := buildSource(t, `(36 * (81 / 9)) + ((52 / 13) - (39 * 69))`)
	machine, err := NewMachine(artifact, Config{})
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}
	val, err := machine.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if val.Kind() != catscript.KindInt || val.Int() != -2363 {
		t.Fatalf("expected -2363, got %s", val)
	}
}

func TestMachineRunsAreIndependent(t *testing.T) {
	_, artifact := buildSource(t, `var n = 0 n = n + 1 print(n)`)
	machine, err := NewMachine(artifact, Config{})
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}
	for range 2 {
		var out strings.Builder
		if _, err := machine.Run(context.Background(), &out); err != nil {
			t.Fatalf("run: %v", err)
		}
		if out.String() != "1\n" {
			t.Fatalf("globals should reset between runs, got %q", out.String())
		}
	}
}

func TestMachineRuntimeErrors(t *testing.T) {
	cases := []struct {
		name   string
		cfg    Config
		source string
		want   error
	}{
		{"division by zero", Config{}, `var z = 0 print(1 / z)`, catscript.ErrDivisionByZero},
		{"null iteration", Config{}, `var l: list<int> = null for (x in l) { print(x) }`, catscript.ErrNullIteration},
		{"recursion limit", Config{RecursionLimit: 10}, `function f(n: int): int { return f(n + 1) } print(f(0))`, catscript.ErrRecursionLimit},
		{"step quota", Config{StepQuota: 100}, `function f(n: int): int { if (n == 0) { return 0 } return f(n - 1) } print(f(40))`, catscript.ErrStepQuotaExceeded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := runMachine(t, tc.cfg, tc.source)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			var rerr *catscript.RuntimeError
			if !errors.As(err, &rerr) {
				t.Fatalf("expected *catscript.RuntimeError, got %T", err)
			}
		})
	}
}

func TestMachineRecursionDepthMatchesEvaluator(t *testing.T) {
	source := `function down(n: int): int { if (n == 0) { return 0 } return down(n - 1) } print(down(9))`
	if _, err := runMachine(t, Config{RecursionLimit: 10}, source); err != nil {
		t.Fatalf("ten nested calls should fit a limit of 10: %v", err)
	}
	var out strings.Builder
	engine := catscript.MustNewEngine(catscript.Config{RecursionLimit: 10})
	if err := engine.Execute(context.Background(), source, &out); err != nil {
		t.Fatalf("evaluator should accept the same depth: %v", err)
	}

	deeper := strings.Replace(source, "down(9))", "down(10))", 1)
	if _, err := runMachine(t, Config{RecursionLimit: 10}, deeper); !errors.Is(err, catscript.ErrRecursionLimit) {
		t.Fatalf("eleven nested calls should exceed the limit, got %v", err)
	}
	if err := engine.Execute(context.Background(), deeper, nil); !errors.Is(err, catscript.ErrRecursionLimit) {
		t.Fatalf("evaluator should reject the same depth, got %v", err)
	}
}

func TestMachineErrorFrames(t *testing.T) {
	_, err := runMachine(t, Config{}, `function inner(n: int): int { return 10 / n } function outer(): int { return inner(0) } print(outer())`)
	var rerr *catscript.RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected runtime error, got %v", err)
	}
	var names []string
	for _, f := range rerr.Frames {
		names = append(names, f.Function)
	}
	if got := strings.Join(names, ","); got != "inner,outer,<script>" {
		t.Fatalf("unexpected frames %s", got)
	}
}

func TestMachineHonorsContext(t *testing.T) {
	_, artifact := buildSource(t, `var n = 0 for (x in [1, 2, 3, 4, 5, 6, 7, 8, 9, 10]) { for (y in [1, 2, 3, 4, 5, 6, 7, 8, 9, 10]) { n = n + x * y } } print(n)`)
	machine, err := NewMachine(artifact, Config{StepQuota: 1 << 30})
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := machine.Run(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestMachineVerifiesStorageClasses(t *testing.T) {
	b := NewBuilder("bad")
	b.BeginUnit(catscript.EntryUnit, voidEntry)
	b.PushInt(1)
	b.Store(catscript.StorageReference, 0)
	b.Return(catscript.StorageVoid)
	b.EndUnit()
	artifact, err := b.Artifact()
	if err != nil {
		t.Fatalf("artifact: %v", err)
	}
	machine, err := NewMachine(artifact, Config{})
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}
	if _, err := machine.Run(context.Background(), nil); !errors.Is(err, errStorageClass) {
		t.Fatalf("expected storage class error, got %v", err)
	}
}

func TestNewMachineValidates(t *testing.T) {
	if _, err := NewMachine(nil, Config{}); err == nil {
		t.Fatalf("expected nil artifact to be rejected")
	}
	b := NewBuilder("no-entry")
	b.BeginUnit("f", voidEntry)
	b.Return(catscript.StorageVoid)
	b.EndUnit()
	artifact, err := b.Artifact()
	if err != nil {
		t.Fatalf("artifact: %v", err)
	}
	if _, err := NewMachine(artifact, Config{}); err == nil {
		t.Fatalf("expected missing entry unit to be rejected")
	}
	_, built := buildSource(t, `print(1)`)
	if _, err := NewMachine(built, Config{StepQuota: -1}); err == nil {
		t.Fatalf("expected negative quota to be rejected")
	}
}
