package compiler

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/pkg/errors"
)

// ErrorKind is the error taxonomy.
type ErrorKind string

const (
	BuildError     ErrorKind = "BUILD_ERROR"
	AnalysisError  ErrorKind = "ANALYSIS_ERROR"
	InvariantError ErrorKind = "INVARIANT_ERROR"
)

// CompileError is the error-object contract.
type CompileError struct {
	Kind    ErrorKind
	Message string
	File    string
	Line    int
	BlockID *uint32
	cause   error // wrapped internal cause, if any (pkg/errors-decorated)
}

func (e *CompileError) Error() string {
	loc := ""
	if e.File != "" {
		loc = fmt.Sprintf(" (%s:%d)", e.File, e.Line)
	}
	return fmt.Sprintf("%s: %s%s", e.Kind, e.Message, loc)
}

func (e *CompileError) Unwrap() error { return e.cause }

// NewBuildError reports malformed or unsupported input: an
// unsupported expression form, an unmatched break/continue, or a
// destructuring assignment that survived normalization.
func NewBuildError(file string, line int, format string, args ...interface{}) *CompileError {
	return &CompileError{
		Kind:    BuildError,
		Message: fmt.Sprintf(format, args...),
		File:    file,
		Line:    line,
	}
}

// NewAnalysisError reports an internal invariant violation during SSA,
// structurization, or region generation, a bug in the compiler, not the
// input.
func NewAnalysisError(blockID *uint32, format string, args ...interface{}) *CompileError {
	return &CompileError{
		Kind:    AnalysisError,
		Message: fmt.Sprintf(format, args...),
		BlockID: blockID,
	}
}

// WrapInvariant wraps a recovered panic or lower-level cause into an
// INVARIANT_ERROR, preserving the stack via pkg/errors the way internal
// compiler bugs are distinguished from user-facing build errors.
func WrapInvariant(cause error, format string, args ...interface{}) *CompileError {
	msg := fmt.Sprintf(format, args...)
	if cause == nil {
		return &CompileError{Kind: InvariantError, Message: msg}
	}
	wrapped := errors.Wrap(cause, msg)
	return &CompileError{
		Kind:    InvariantError,
		Message: wrapped.Error(),
		cause:   wrapped,
	}
}

// Diagnostic is the onWarn payload.
type Diagnostic struct {
	Code    string
	Message string
	File    string
	Line    int
	Column  int
}

// FormatDiagnostic renders a diagnostic as a colored "kind[code]: message"
// header followed by a "--> file:line:col" location line.
func FormatDiagnostic(level string, d Diagnostic) string {
	levelColor := color.New(color.FgRed)
	if level == "warning" {
		levelColor = color.New(color.FgYellow)
	}
	header := levelColor.Sprintf("%s", level)
	if d.Code != "" {
		header = fmt.Sprintf("%s[%s]: %s", header, d.Code, d.Message)
	} else {
		header = fmt.Sprintf("%s: %s", header, d.Message)
	}
	return fmt.Sprintf("%s\n  --> %s:%d:%d", header, d.File, d.Line, d.Column)
}
