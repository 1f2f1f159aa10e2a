package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mgomes/catscript/catscript"
)

const (
	replPrompt     = "cat> "
	replContPrompt = "...> "
	sidePanelWidth = 32
)

type replTheme struct {
	prompt  lipgloss.Style
	echo    lipgloss.Style
	result  lipgloss.Style
	err     lipgloss.Style
	muted   lipgloss.Style
	title   lipgloss.Style
	name    lipgloss.Style
	panel   lipgloss.Style
	heading lipgloss.Style
}

func newTheme() replTheme {
	orange := lipgloss.Color("#F97316")
	green := lipgloss.Color("#22C55E")
	red := lipgloss.Color("#F43F5E")
	grey := lipgloss.Color("#71717A")
	sand := lipgloss.Color("#FBBF24")
	return replTheme{
		prompt:  lipgloss.NewStyle().Foreground(orange).Bold(true),
		echo:    lipgloss.NewStyle().Foreground(grey),
		result:  lipgloss.NewStyle().Foreground(green),
		err:     lipgloss.NewStyle().Foreground(red),
		muted:   lipgloss.NewStyle().Foreground(grey),
		title:   lipgloss.NewStyle().Foreground(orange).Bold(true).Padding(0, 1),
		name:    lipgloss.NewStyle().Foreground(sand),
		heading: lipgloss.NewStyle().Foreground(orange).Bold(true).Underline(true),
		panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(grey).
			Padding(0, 1).
			Width(sidePanelWidth - 2),
	}
}

var theme = newTheme()

// replKeys implements help.KeyMap so the footer stays in sync with the
// bindings Update actually handles.
type replKeys struct {
	Submit  key.Binding
	Cancel  key.Binding
	Older   key.Binding
	Newer   key.Binding
	Scroll  key.Binding
	Panel   key.Binding
	Help    key.Binding
	Clear   key.Binding
	Quit    key.Binding
	Suggest key.Binding
}

func (k replKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Panel, k.Clear, k.Quit}
}

func (k replKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.Cancel, k.Suggest},
		{k.Older, k.Newer, k.Scroll},
		{k.Panel, k.Clear, k.Help, k.Quit},
	}
}

var bindings = replKeys{
	Submit:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "run or continue block")),
	Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "drop unfinished block")),
	Older:   key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "older input")),
	Newer:   key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "newer input")),
	Scroll:  key.NewBinding(key.WithKeys("pgup", "pgdown"), key.WithHelp("pgup/pgdn", "scroll")),
	Panel:   key.NewBinding(key.WithKeys("ctrl+v"), key.WithHelp("ctrl+v", "globals")),
	Help:    key.NewBinding(key.WithKeys("ctrl+k"), key.WithHelp("ctrl+k", "keys")),
	Clear:   key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "clear")),
	Quit:    key.NewBinding(key.WithKeys("ctrl+c", "ctrl+d"), key.WithHelp("ctrl+c", "quit")),
	Suggest: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "complete")),
}

// transcriptEntry is one submitted input and what it produced.
type transcriptEntry struct {
	input  string
	output string
	failed bool
}

type replModel struct {
	session    *catscript.Session
	textInput  textinput.Model
	transcript viewport.Model
	keyHelp    help.Model

	history []transcriptEntry
	// submitted holds earlier inputs for ↑/↓; cursor is -1 when not browsing.
	submitted []string
	cursor    int
	// pending accumulates the lines of a block that is not closed yet.
	pending []string

	width, height int
	ready         bool
	showHelp      bool
	showVars      bool
	quitting      bool
}

func newREPLModel() replModel {
	in := textinput.New()
	in.Prompt = replPrompt
	in.PromptStyle = theme.prompt
	in.Placeholder = "expression, statement, or :help"
	in.CharLimit = 1024
	in.Focus()

	return replModel{
		session:    catscript.MustNewEngine(catscript.Config{}).NewSession(),
		textInput:  in,
		transcript: viewport.New(80, 20),
		keyHelp:    help.New(),
		cursor:     -1,
	}
}

func (m replModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, bindings.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, bindings.Submit):
			return m.submit()
		case key.Matches(msg, bindings.Cancel):
			if len(m.pending) > 0 {
				m.pending = nil
				m.textInput.Prompt = replPrompt
				m.textInput.SetValue("")
			}
			return m, nil
		case key.Matches(msg, bindings.Older):
			m.browse(-1)
			return m, nil
		case key.Matches(msg, bindings.Newer):
			m.browse(1)
			return m, nil
		case key.Matches(msg, bindings.Suggest):
			m.suggest()
			return m, nil
		case key.Matches(msg, bindings.Panel):
			m.showVars = !m.showVars
			m.layout()
			return m, nil
		case key.Matches(msg, bindings.Help):
			m.toggleHelp()
			return m, nil
		case key.Matches(msg, bindings.Clear):
			m.history = nil
			m.refresh()
			return m, nil
		case key.Matches(msg, bindings.Scroll):
			var cmd tea.Cmd
			m.transcript, cmd = m.transcript.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

// submit runs the current line, or buffers it while a bracket or brace is
// still open.
func (m replModel) submit() (tea.Model, tea.Cmd) {
	line := m.textInput.Value()
	m.textInput.SetValue("")
	m.cursor = -1

	if len(m.pending) == 0 {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			return m, nil
		}
		if strings.HasPrefix(trimmed, ":") {
			return m.handleCommand(trimmed)
		}
	}

	m.pending = append(m.pending, line)
	code := strings.Join(m.pending, "\n")
	if incompleteInput(code) {
		m.textInput.Prompt = replContPrompt
		return m, nil
	}
	m.pending = nil
	m.textInput.Prompt = replPrompt

	output, failed := m.evaluate(code)
	m.record(code, output, failed)
	m.submitted = append(m.submitted, code)
	return m, nil
}

func (m replModel) handleCommand(input string) (replModel, tea.Cmd) {
	name, _, _ := strings.Cut(input, " ")
	switch strings.ToLower(name) {
	case ":quit", ":q":
		m.quitting = true
		return m, tea.Quit
	case ":help", ":h":
		m.toggleHelp()
	case ":vars", ":v":
		m.showVars = !m.showVars
		m.layout()
	case ":clear", ":c":
		m.history = nil
		m.refresh()
	case ":reset", ":r":
		m.session.Reset()
		m.record(input, "Environment reset", false)
	case ":funcs", ":f":
		m.record(input, describeFunctions(m.session.Functions()), false)
	default:
		m.record(input, fmt.Sprintf("Unknown command %s (try :help)", name), true)
	}
	return m, nil
}

// evaluate runs input in the session. Printed lines come first, followed by
// the value of an expression input.
func (m replModel) evaluate(input string) (string, bool) {
	var printed bytes.Buffer
	value, err := evalInput(m.session, input, &printed)
	if err != nil {
		return err.Error(), true
	}
	parts := make([]string, 0, 2)
	if text := strings.TrimRight(printed.String(), "\n"); text != "" {
		parts = append(parts, text)
	}
	if value != "" {
		parts = append(parts, value)
	}
	if len(parts) == 0 {
		return "ok", false
	}
	return strings.Join(parts, "\n"), false
}

// evalInput checks and runs code, returning the formatted value when code is
// a single expression.
func evalInput(session *catscript.Session, code string, out io.Writer) (string, error) {
	program, err := session.Check(code)
	if err != nil {
		return "", err
	}
	result, err := session.Eval(context.Background(), code, out)
	if err != nil {
		return "", err
	}
	if !program.IsExpression() {
		return "", nil
	}
	return formatValue(result), nil
}

func (m *replModel) record(input, output string, failed bool) {
	m.history = append(m.history, transcriptEntry{input: input, output: output, failed: failed})
	m.refresh()
}

func (m *replModel) toggleHelp() {
	m.showHelp = !m.showHelp
	m.keyHelp.ShowAll = m.showHelp
	m.layout()
}

func (m *replModel) browse(step int) {
	if len(m.submitted) == 0 || len(m.pending) > 0 {
		return
	}
	next := m.cursor + step
	switch {
	case m.cursor == -1 && step < 0:
		next = len(m.submitted) - 1
	case m.cursor == -1:
		return
	case next < 0:
		next = 0
	case next >= len(m.submitted):
		m.cursor = -1
		m.textInput.SetValue("")
		return
	}
	m.cursor = next
	m.textInput.SetValue(strings.ReplaceAll(m.submitted[next], "\n", " "))
	m.textInput.CursorEnd()
}

func (m *replModel) suggest() {
	options := completeLine(m.session, m.textInput.Value())
	sort.Strings(options)
	options = compactStrings(options)
	switch len(options) {
	case 0:
	case 1:
		m.textInput.SetValue(options[0])
		m.textInput.CursorEnd()
	default:
		words := make([]string, len(options))
		for i, o := range options {
			words[i] = o[strings.LastIndexFunc(o, func(r rune) bool { return !isWordRune(r) })+1:]
		}
		m.record("", "Completions: "+strings.Join(words, ", "), false)
	}
}

func compactStrings(s []string) []string {
	out := s[:0]
	for i, v := range s {
		if i == 0 || v != s[i-1] {
			out = append(out, v)
		}
	}
	return out
}

// layout sizes the transcript to whatever the header, input line, footer
// and optional side panel leave free.
func (m *replModel) layout() {
	if !m.ready {
		return
	}
	width := m.width
	if m.showVars && width > 2*sidePanelWidth {
		width -= sidePanelWidth
	}
	footer := lipgloss.Height(m.keyHelp.View(bindings))
	m.transcript.Width = max(width, 10)
	m.transcript.Height = max(m.height-3-footer, 3)
	m.textInput.Width = max(m.width-len(replPrompt)-2, 10)
	m.keyHelp.Width = m.width
	m.refresh()
}

func (m *replModel) refresh() {
	var b strings.Builder
	for _, entry := range m.history {
		if entry.input != "" {
			for i, line := range strings.Split(entry.input, "\n") {
				marker := "› "
				if i > 0 {
					marker = "  "
				}
				b.WriteString(theme.echo.Render(marker+line) + "\n")
			}
		}
		style := theme.result
		if entry.failed {
			style = theme.err
		}
		b.WriteString(style.Render(entry.output) + "\n\n")
	}
	m.transcript.SetContent(b.String())
	m.transcript.GotoBottom()
}

func (m replModel) View() string {
	if m.quitting {
		return theme.muted.Render("bye\n")
	}
	if !m.ready {
		return "starting..."
	}

	body := m.transcript.View()
	if m.showVars && m.width > 2*sidePanelWidth {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, m.sidePanel())
	}
	header := theme.title.Render("CatScript") + theme.muted.Render("session")
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		body,
		m.textInput.View(),
		m.keyHelp.View(bindings),
	)
}

// sidePanel lists the session's globals and functions.
func (m replModel) sidePanel() string {
	lines := []string{theme.heading.Render("globals")}
	globals := m.session.Globals()
	names := make([]string, 0, len(globals))
	for name := range globals {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		lines = append(lines, theme.name.Render(name)+" = "+formatValue(globals[name]))
	}
	if len(names) == 0 {
		lines = append(lines, theme.muted.Render("none"))
	}

	lines = append(lines, "", theme.heading.Render("functions"))
	fns := m.session.Functions()
	for _, fn := range fns {
		lines = append(lines, theme.name.Render(fn.Name)+theme.muted.Render(signatureTail(fn)))
	}
	if len(fns) == 0 {
		lines = append(lines, theme.muted.Render("none"))
	}
	return theme.panel.Render(strings.Join(lines, "\n"))
}

func formatValue(v catscript.Value) string {
	if v.Kind() == catscript.KindString {
		return fmt.Sprintf("%q", v.String())
	}
	return v.String()
}

func describeFunctions(fns []*catscript.FunctionDefinition) string {
	if len(fns) == 0 {
		return "No functions defined"
	}
	lines := make([]string, len(fns))
	for i, fn := range fns {
		lines[i] = functionSignature(fn)
	}
	return strings.Join(lines, "\n")
}

func functionSignature(fn *catscript.FunctionDefinition) string {
	return "function " + fn.Name + signatureTail(fn)
}

// signatureTail renders the parameter list and return type of fn.
func signatureTail(fn *catscript.FunctionDefinition) string {
	params := make([]string, len(fn.Parameters))
	for i, p := range fn.Parameters {
		params[i] = p.Name + ": " + p.Type.String()
	}
	return "(" + strings.Join(params, ", ") + "): " + fn.ReturnType.String()
}

func runREPL() error {
	_, err := tea.NewProgram(newREPLModel(), tea.WithAltScreen()).Run()
	return err
}
