package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/mgomes/catscript/catscript"
)

const (
	plainPrompt     = "cat> "
	plainContPrompt = "...> "
	historyFile     = ".catscript_history"
)

func runPlainREPL() error {
	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	session := catscript.MustNewEngine(catscript.Config{}).NewSession()
	ln.SetCompleter(func(line string) []string {
		return completeLine(session, line)
	})

	fmt.Println("CatScript REPL. Type :quit to exit.")
	for {
		code, ok := readByParseProbe(ln, plainPrompt, plainContPrompt)
		if !ok {
			fmt.Println()
			return nil
		}
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			switch strings.ToLower(trimmed) {
			case ":quit", ":q":
				return nil
			case ":reset", ":r":
				session.Reset()
				fmt.Println("Environment reset")
			case ":funcs", ":f":
				fmt.Println(describeFunctions(session.Functions()))
			default:
				fmt.Println("unknown command. Type :quit to exit.")
			}
			continue
		}

		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
		if err := evalPlain(session, code, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, theme.err.Render(err.Error()))
		}
	}
}

func evalPlain(session *catscript.Session, code string, out io.Writer) error {
	value, err := evalInput(session, code, out)
	if err != nil {
		return err
	}
	if value != "" {
		fmt.Fprintln(out, theme.result.Render(value))
	}
	return nil
}

// readByParseProbe keeps prompting while the accumulated input is an
// unfinished construct, so blocks can span several lines.
func readByParseProbe(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder
	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if !incompleteInput(src) {
			return src, true
		}
	}
}

// incompleteInput reports whether src ends inside an open bracket or brace,
// which the parser would otherwise report at end of input.
func incompleteInput(src string) bool {
	program, err := catscript.Parse(src)
	if err != nil || program == nil {
		return false
	}
	for _, d := range program.Diagnostics() {
		if d.Token.IsEOF() {
			return true
		}
	}
	return false
}

func completeLine(session *catscript.Session, line string) []string {
	start := strings.LastIndexFunc(line, func(r rune) bool { return !isWordRune(r) }) + 1
	prefix, word := line[:start], line[start:]
	if word == "" {
		return nil
	}
	var out []string
	for _, k := range catscript.Keywords {
		if strings.HasPrefix(k, word) {
			out = append(out, prefix+k)
		}
	}
	for _, fn := range session.Functions() {
		if strings.HasPrefix(fn.Name, word) {
			out = append(out, prefix+fn.Name)
		}
	}
	for name := range session.Globals() {
		if strings.HasPrefix(name, word) {
			out = append(out, prefix+name)
		}
	}
	return out
}
