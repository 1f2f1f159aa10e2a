package catscript

import (
	"errors"
	"fmt"
	"strings"
)

type StackFrame struct {
	Function string
	Pos      Position
}

// RuntimeError is raised while executing a checked program, by either backend.
type RuntimeError struct {
	Message   string
	CodeFrame string
	Frames    []StackFrame
	err       error
}

const (
	runtimeErrorFrameHead = 8
	runtimeErrorFrameTail = 8
	scriptFrameName       = "<script>"
)

var (
	ErrStepQuotaExceeded     = errors.New("step quota exceeded")
	ErrRecursionLimit        = errors.New("recursion limit exceeded")
	ErrDivisionByZero        = errors.New("division by zero")
	ErrNullIteration         = errors.New("cannot iterate over null")
	errProgramHasDiagnostics = errors.New("program has diagnostics")
	errProgramNotValidated   = errors.New("program has not been validated")
)

func (re *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(re.Message)
	if re.CodeFrame != "" {
		b.WriteString("\n" + re.CodeFrame)
	}
	for _, line := range traceLines(re.Frames) {
		b.WriteString("\n  " + line)
	}
	return b.String()
}

// traceLines renders one line per frame. Deep traces keep the innermost and
// outermost frames and collapse the middle into a single count.
func traceLines(frames []StackFrame) []string {
	keep := runtimeErrorFrameHead + runtimeErrorFrameTail
	lines := make([]string, 0, min(len(frames), keep+1))
	for i, frame := range frames {
		if len(frames) > keep && i >= runtimeErrorFrameHead && i < len(frames)-runtimeErrorFrameTail {
			if i == runtimeErrorFrameHead {
				lines = append(lines, fmt.Sprintf("... %d frames omitted ...", len(frames)-keep))
			}
			continue
		}
		if frame.Pos.Line > 0 && frame.Pos.Column > 0 {
			lines = append(lines, fmt.Sprintf("at %s (%d:%d)", frame.Function, frame.Pos.Line, frame.Pos.Column))
		} else {
			lines = append(lines, "at "+frame.Function)
		}
	}
	return lines
}

// Unwrap exposes the sentinel (ErrStepQuotaExceeded, ErrDivisionByZero, ...)
// or context error that caused the failure.
func (re *RuntimeError) Unwrap() error {
	return re.err
}

// NewRuntimeError builds a RuntimeError for err raised at pos. frames lists
// the active calls from innermost outward, each with its call site.
func NewRuntimeError(source string, err error, pos Position, frames []StackFrame) *RuntimeError {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re
	}
	return &RuntimeError{
		Message:   err.Error(),
		CodeFrame: formatCodeFrame(source, pos, 1),
		Frames:    frames,
		err:       err,
	}
}
