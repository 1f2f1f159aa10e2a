package catscript

import (
	"fmt"
	"slices"
	"strings"
)

// ErrorKind classifies a diagnostic.
type ErrorKind int

const (
	UnexpectedToken ErrorKind = iota + 1
	UnterminatedList
	UnterminatedArgList
	UnknownName
	ArgMismatch
	IncompatibleTypes
	DuplicateName
	ReturnOutsideFunction
)

func (k ErrorKind) String() string {
	switch k {
	case UnexpectedToken:
		return "unexpected token"
	case UnterminatedList:
		return "unterminated list"
	case UnterminatedArgList:
		return "unterminated argument list"
	case UnknownName:
		return "unknown name"
	case ArgMismatch:
		return "argument count mismatch"
	case IncompatibleTypes:
		return "incompatible types"
	case DuplicateName:
		return "duplicate name"
	case ReturnOutsideFunction:
		return "return outside of a function"
	default:
		return fmt.Sprintf("error kind %d", int(k))
	}
}

// Diagnostic is a non-fatal error recorded on the node where it was detected.
type Diagnostic struct {
	Kind  ErrorKind
	Token Token
	Node  NodeID
}

// Pos returns the source position of the offending token.
func (d *Diagnostic) Pos() Position { return d.Token.Pos }

// Message renders the diagnostic without position information.
func (d *Diagnostic) Message() string {
	switch {
	case d.Token.Type == tokenEOF:
		return d.Kind.String() + " at end of input"
	case d.Token.Literal != "":
		return fmt.Sprintf("%s %q", d.Kind.String(), d.Token.Literal)
	default:
		return d.Kind.String()
	}
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%d:%d: %s", d.Token.Pos.Line, d.Token.Pos.Column, d.Message())
}

// DiagnosticsError reports every diagnostic found in a program.
type DiagnosticsError struct {
	Diagnostics []*Diagnostic
	source      string
}

func (e *DiagnosticsError) Error() string {
	var b strings.Builder
	for i, d := range e.Diagnostics {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "error at %s", d.Error())
		if frame := tokenFrame(e.source, d.Token); frame != "" {
			b.WriteString("\n")
			b.WriteString(frame)
		}
	}
	return b.String()
}

// Has reports whether any diagnostic has the given kind.
func (e *DiagnosticsError) Has(kind ErrorKind) bool {
	return slices.ContainsFunc(e.Diagnostics, func(d *Diagnostic) bool { return d.Kind == kind })
}

// ParseError is a fatal parse failure that aborts the current parse.
type ParseError struct {
	Token   Token
	Message string
	source  string
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "parse error at %d:%d: %s", e.Token.Pos.Line, e.Token.Pos.Column, e.Message)
	if frame := tokenFrame(e.source, e.Token); frame != "" {
		b.WriteString("\n")
		b.WriteString(frame)
	}
	return b.String()
}

func sortDiagnostics(diags []*Diagnostic) {
	slices.SortStableFunc(diags, func(a, b *Diagnostic) int {
		if a.Token.Pos.Line != b.Token.Pos.Line {
			return a.Token.Pos.Line - b.Token.Pos.Line
		}
		return a.Token.Pos.Column - b.Token.Pos.Column
	})
}
