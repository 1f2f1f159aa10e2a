package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/mgomes/catscript/catscript"
	"github.com/mgomes/catscript/catscript/stackvm"
)

// cliCommand is one subcommand. synopsis is the usage line after the
// command name.
type cliCommand struct {
	name     string
	synopsis string
	summary  string
	run      func(args []string) error
}

var cliCommands = []cliCommand{
	{"run", "[-backend tree|vm] [-legacy-return] [-step-quota n] <script>", "check and execute a script", runCommand},
	{"check", "<script>", "report every diagnostic in a script", checkCommand},
	{"compile", "[-o file] <script>", "print the stack machine listing for a script", compileCommand},
	{"analyze", "<script>", "report unreachable statements and unused functions", analyzeCommand},
	{"repl", "[-plain]", "start an interactive session", replCommand},
	{"lsp", "", "serve the language server protocol over stdio", func([]string) error { return runLSP() }},
}

func main() {
	if err := runCLI(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCLI(args []string) error {
	if len(args) < 2 {
		return usageError()
	}
	switch name := args[1]; name {
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		for _, cmd := range cliCommands {
			if cmd.name == name {
				return cmd.run(args[2:])
			}
		}
		return usageError()
	}
}

// script is a source file named on the command line.
type script struct {
	path   string
	source string
}

// newFlagSet returns a flag set that reports errors to its caller instead
// of printing them.
func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// parseScriptArgs parses flags and reads the script named by the first
// positional argument.
func parseScriptArgs(fs *flag.FlagSet, args []string) (script, error) {
	if err := fs.Parse(args); err != nil {
		return script{}, err
	}
	if fs.NArg() == 0 {
		return script{}, fmt.Errorf("catscript %s: script path required", fs.Name())
	}
	path, err := filepath.Abs(fs.Arg(0))
	if err != nil {
		return script{}, fmt.Errorf("resolve script path: %w", err)
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return script{}, fmt.Errorf("read script: %w", err)
	}
	return script{path: path, source: string(source)}, nil
}

// checked parses and validates src, wrapping any failure for the CLI.
func checked(engine *catscript.Engine, src script) (*catscript.Program, error) {
	program, err := engine.Check(src.source)
	if err != nil {
		return nil, fmt.Errorf("check failed: %w", err)
	}
	return program, nil
}

func runCommand(args []string) error {
	fs := newFlagSet("run")
	backend := fs.String("backend", "tree", "execution backend: tree or vm")
	legacyReturn := fs.Bool("legacy-return", false, "bind return values instead of returning early (tree backend only)")
	stepQuota := fs.Int("step-quota", 0, "maximum evaluation steps (0 uses the default)")
	src, err := parseScriptArgs(fs, args)
	if err != nil {
		return err
	}
	if *backend != "tree" && *backend != "vm" {
		return fmt.Errorf("catscript run: unknown backend %q", *backend)
	}
	if *backend == "vm" && *legacyReturn {
		return errors.New("catscript run: -legacy-return requires -backend tree")
	}

	engine, err := catscript.NewEngine(catscript.Config{StepQuota: *stepQuota, ReturnAsBinding: *legacyReturn})
	if err != nil {
		return err
	}
	program, err := checked(engine, src)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if *backend == "vm" {
		err = runOnMachine(ctx, src.path, program, engine.Config(), os.Stdout)
	} else {
		err = engine.Run(ctx, program, os.Stdout)
	}
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	return nil
}

func runOnMachine(ctx context.Context, scriptPath string, program *catscript.Program, cfg catscript.Config, out io.Writer) error {
	artifact, err := stackvm.Build(artifactName(scriptPath), program)
	if err != nil {
		return err
	}
	machine, err := stackvm.NewMachine(artifact, stackvm.Config{StepQuota: cfg.StepQuota, RecursionLimit: cfg.RecursionLimit})
	if err != nil {
		return err
	}
	result, err := machine.WithSource(program.Source()).Run(ctx, out)
	if err != nil {
		return err
	}
	if program.IsExpression() {
		fmt.Fprintln(out, result.String())
	}
	return nil
}

func checkCommand(args []string) error {
	src, err := parseScriptArgs(newFlagSet("check"), args)
	if err != nil {
		return err
	}
	_, err = catscript.MustNewEngine(catscript.Config{}).Check(src.source)
	var diags *catscript.DiagnosticsError
	switch {
	case err == nil:
		fmt.Println("No issues found")
		return nil
	case !errors.As(err, &diags):
		return fmt.Errorf("check failed: %w", err)
	}
	for _, d := range diags.Diagnostics {
		fmt.Printf("%s:%s\n", src.path, d.Error())
	}
	return fmt.Errorf("check found %d issue(s)", len(diags.Diagnostics))
}

func compileCommand(args []string) (err error) {
	fs := newFlagSet("compile")
	output := fs.String("o", "", "write the disassembly to this file instead of stdout")
	src, err := parseScriptArgs(fs, args)
	if err != nil {
		return err
	}
	program, err := checked(catscript.MustNewEngine(catscript.Config{}), src)
	if err != nil {
		return err
	}
	artifact, err := stackvm.Build(artifactName(src.path), program)
	if err != nil {
		return fmt.Errorf("compile failed: %w", err)
	}

	if *output == "" {
		return artifact.Disassemble(os.Stdout)
	}
	f, err := os.Create(*output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return artifact.Disassemble(f)
}

func replCommand(args []string) error {
	fs := newFlagSet("repl")
	plain := fs.Bool("plain", false, "use a line-oriented prompt instead of the full-screen interface")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *plain {
		return runPlainREPL()
	}
	return runREPL()
}

func artifactName(scriptPath string) string {
	base := filepath.Base(scriptPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func usageError() error {
	printUsage()
	return errors.New("invalid command")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [flags] <script>\nCommands:\n", filepath.Base(os.Args[0]))
	for _, cmd := range cliCommands {
		fmt.Fprintf(os.Stderr, "  %s\n    %s\n", strings.TrimSpace(cmd.name+" "+cmd.synopsis), cmd.summary)
	}
}
