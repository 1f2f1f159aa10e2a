package main

import (
	"bytes"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mgomes/catscript/catscript"
)

func TestColonCommands(t *testing.T) {
	cases := []struct {
		input    string
		quits    bool
		check    func(replModel) bool
		describe string
	}{
		{":quit", true, func(m replModel) bool { return m.quitting }, "sets quitting"},
		{":q", true, func(m replModel) bool { return m.quitting }, "short form quits"},
		{":help", false, func(m replModel) bool { return m.showHelp && m.keyHelp.ShowAll }, "shows full key help"},
		{":vars", false, func(m replModel) bool { return m.showVars }, "opens the side panel"},
		{":reset", false, func(m replModel) bool { return m.history[len(m.history)-1].output == "Environment reset" }, "reports the reset"},
		{":nope", false, func(m replModel) bool { return m.history[len(m.history)-1].failed }, "flags unknown commands"},
	}
	for _, tc := range cases {
		m := newREPLModel()
		m.textInput.SetValue(tc.input)
		model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		rm, ok := model.(replModel)
		if !ok {
			t.Fatalf("unexpected model type %T", model)
		}
		if rm.textInput.Value() != "" {
			t.Fatalf("%s: input not cleared", tc.input)
		}
		if !tc.check(rm) {
			t.Fatalf("%s: expected command to %s", tc.input, tc.describe)
		}
		if !tc.quits {
			if cmd != nil {
				t.Fatalf("%s: expected no command", tc.input)
			}
			continue
		}
		if cmd == nil {
			t.Fatalf("%s: expected tea.Quit", tc.input)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatalf("%s: expected QuitMsg", tc.input)
		}
	}
}

func TestEvaluateDeclarationStoresVariable(t *testing.T) {
	m := newREPLModel()

	output, isErr := m.evaluate("var score = 42")
	if isErr {
		t.Fatalf("unexpected eval error: %s", output)
	}

	score, ok := m.session.Globals()["score"]
	if !ok {
		t.Fatalf("expected score to be stored in the session")
	}
	if score.Kind() != catscript.KindInt || score.Int() != 42 {
		t.Fatalf("unexpected score value: %#v", score)
	}

	output, isErr = m.evaluate("score + 1")
	if isErr || output != "43" {
		t.Fatalf("unexpected expression result %q (err=%v)", output, isErr)
	}
}

func TestEvaluateEqualityDoesNotOverwriteVariable(t *testing.T) {
	m := newREPLModel()
	if output, isErr := m.evaluate("var a = 5"); isErr {
		t.Fatalf("unexpected eval error: %s", output)
	}

	output, isErr := m.evaluate("a == 5")
	if isErr {
		t.Fatalf("unexpected eval error: %s", output)
	}
	if output != "true" {
		t.Fatalf("unexpected equality result %q", output)
	}

	a := m.session.Globals()["a"]
	if a.Kind() != catscript.KindInt || a.Int() != 5 {
		t.Fatalf("variable a was clobbered by equality expression: %#v", a)
	}
}

func TestEvaluateReportsDiagnosticsAndKeepsState(t *testing.T) {
	m := newREPLModel()
	if output, isErr := m.evaluate("var a = 5"); isErr {
		t.Fatalf("unexpected eval error: %s", output)
	}

	output, isErr := m.evaluate("var b = 1 print(b + true)")
	if !isErr {
		t.Fatalf("expected a diagnostic, got %q", output)
	}
	if !strings.Contains(output, "incompatible types") {
		t.Fatalf("unexpected error output %q", output)
	}
	if _, ok := m.session.Globals()["b"]; ok {
		t.Fatalf("rejected input should not declare b")
	}

	// b was rolled back, so declaring it again is not a duplicate
	if output, isErr := m.evaluate("var b = 2"); isErr {
		t.Fatalf("unexpected eval error: %s", output)
	}
}

func TestEvaluateKeepsFunctionsAcrossInputs(t *testing.T) {
	m := newREPLModel()
	if output, isErr := m.evaluate("function twice(x: int): int { return x * 2 }"); isErr {
		t.Fatalf("unexpected eval error: %s", output)
	}
	output, isErr := m.evaluate("print(twice(21))")
	if isErr {
		t.Fatalf("unexpected eval error: %s", output)
	}
	if output != "42" {
		t.Fatalf("unexpected printed output %q", output)
	}

	model, _ := m.handleCommand(":funcs")
	last := model.history[len(model.history)-1]
	if last.output != "function twice(x: int): int" {
		t.Fatalf("unexpected :funcs output %q", last.output)
	}
}

func TestIncompleteInputWaitsForClosingBrace(t *testing.T) {
	cases := []struct {
		src  string
		want bool
	}{
		{"print(1)", false},
		{"for (x in [1, 2]) {", true},
		{"var l = [1,", true},
		{"print(1", true},
		{"print(1))", false},
	}
	for _, tc := range cases {
		if got := incompleteInput(tc.src); got != tc.want {
			t.Fatalf("incompleteInput(%q) = %v, want %v", tc.src, got, tc.want)
		}
	}
}

func TestEvalPlainPrintsExpressionValue(t *testing.T) {
	session := catscript.MustNewEngine(catscript.Config{}).NewSession()
	var out bytes.Buffer
	if err := evalPlain(session, "1 + 2", &out); err != nil {
		t.Fatalf("evalPlain failed: %v", err)
	}
	if !strings.Contains(out.String(), "3") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestCompleteLineOffersKeywordsAndFunctions(t *testing.T) {
	session := catscript.MustNewEngine(catscript.Config{}).NewSession()
	if _, err := session.Eval(t.Context(), "function printAll(l: list) { for (x in l) { print(x) } }", nil); err != nil {
		t.Fatalf("define function: %v", err)
	}
	got := completeLine(session, "var x = pr")
	want := map[string]bool{"var x = print": true, "var x = printAll": true}
	if len(got) != len(want) {
		t.Fatalf("unexpected completions %v", got)
	}
	for _, c := range got {
		if !want[c] {
			t.Fatalf("unexpected completion %q", c)
		}
	}
}

func pressEnter(t *testing.T, m replModel, line string) replModel {
	t.Helper()
	m.textInput.SetValue(line)
	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	rm, ok := model.(replModel)
	if !ok {
		t.Fatalf("unexpected model type %T", model)
	}
	return rm
}

func TestSubmitBuffersUnclosedBlock(t *testing.T) {
	m := pressEnter(t, newREPLModel(), "for (x in [1, 2]) {")
	if len(m.pending) != 1 || m.textInput.Prompt != replContPrompt {
		t.Fatalf("expected the open block to be buffered, pending=%v prompt=%q", m.pending, m.textInput.Prompt)
	}
	if len(m.history) != 0 {
		t.Fatalf("nothing should run before the block closes")
	}

	m = pressEnter(t, m, "  print(x * 10) }")
	if len(m.pending) != 0 || m.textInput.Prompt != replPrompt {
		t.Fatalf("expected the buffer to be flushed")
	}
	last := m.history[len(m.history)-1]
	if last.failed || last.output != "10\n20" {
		t.Fatalf("unexpected block output %q (failed=%v)", last.output, last.failed)
	}
	if !strings.Contains(last.input, "\n") {
		t.Fatalf("expected the transcript to keep both lines, got %q", last.input)
	}
}

func TestEscapeDropsUnfinishedBlock(t *testing.T) {
	m := pressEnter(t, newREPLModel(), "var l = [1,")
	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = model.(replModel)
	if len(m.pending) != 0 || m.textInput.Prompt != replPrompt {
		t.Fatalf("expected esc to drop the pending block")
	}
	m = pressEnter(t, m, "var l = 3")
	if last := m.history[len(m.history)-1]; last.failed {
		t.Fatalf("unexpected failure %q", last.output)
	}
}

func TestHistoryBrowsing(t *testing.T) {
	m := newREPLModel()
	m = pressEnter(t, m, "1 + 1")
	m = pressEnter(t, m, "2 + 2")

	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = model.(replModel)
	if m.textInput.Value() != "2 + 2" {
		t.Fatalf("expected newest input first, got %q", m.textInput.Value())
	}
	model, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = model.(replModel)
	if m.textInput.Value() != "1 + 1" {
		t.Fatalf("expected older input, got %q", m.textInput.Value())
	}
	model, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	model, _ = model.(replModel).Update(tea.KeyMsg{Type: tea.KeyDown})
	m = model.(replModel)
	if m.textInput.Value() != "" || m.cursor != -1 {
		t.Fatalf("expected browsing past the newest input to clear the line")
	}
}

func TestSidePanelListsGlobalsAndFunctions(t *testing.T) {
	m := newREPLModel()
	if output, isErr := m.evaluate("var name = \"tom\" function meow(n: int): string { return \"m\" + n }"); isErr {
		t.Fatalf("unexpected eval error: %s", output)
	}
	panel := m.sidePanel()
	for _, want := range []string{"name", `"tom"`, "meow", "(n: int): string"} {
		if !strings.Contains(panel, want) {
			t.Fatalf("side panel is missing %q:\n%s", want, panel)
		}
	}
}
