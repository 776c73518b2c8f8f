package compiler

import (
	"errors"
	"fmt"

	"github.com/chazu/quill/pkg/ast"
)

// ---------------------------------------------------------------------------
// Errors: structured failures surfaced by the compile + assemble pipeline
// ---------------------------------------------------------------------------

// ErrorKind classifies a pipeline failure. All kinds are fatal for the
// current compile; neither the compiler nor the assembler recovers
// internally.
type ErrorKind string

const (
	// ParseError indicates malformed assembly text during re-parsing.
	ParseError ErrorKind = "ParseError"

	// InvalidOperation indicates a step record with an unknown operation.
	InvalidOperation ErrorKind = "InvalidOperation"

	// InvalidReference indicates an operand that does not resolve: an
	// undefined label, an unknown sub-procedure or intrinsic, or a
	// constant or parameter that was never interned.
	InvalidReference ErrorKind = "InvalidReference"

	// NoEnclosingLoop indicates a break or continue outside any loop.
	NoEnclosingLoop ErrorKind = "NoEnclosingLoop"

	// TooManyArguments indicates a function call with more than three
	// positional arguments.
	TooManyArguments ErrorKind = "TooManyArguments"

	// ArgumentType, ArgumentValue, and SameType are raised by intrinsic
	// validators; the assembler uses ArgumentValue when an INVOKE's
	// argument count falls outside the intrinsic's registered arity.
	ArgumentType  ErrorKind = "ArgumentType"
	ArgumentValue ErrorKind = "ArgumentValue"
	SameType      ErrorKind = "SameType"
)

// Error carries the structured payload for a pipeline failure: the kind,
// the module that raised it, the offending syntax node or assembly step,
// and a human-readable message.
type Error struct {
	Kind    ErrorKind
	Module  string
	Message string
	Node    *ast.Node // offending syntax node, when compiling
	Step    string    // offending assembly step, when assembling
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Module, e.Kind, e.Message)
}

func newCompileError(kind ErrorKind, node *ast.Node, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Module:  "/compiler/codegen",
		Message: fmt.Sprintf(format, args...),
		Node:    node,
	}
}

func newAssembleError(kind ErrorKind, step string, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Module:  "/compiler/assembler",
		Message: fmt.Sprintf(format, args...),
		Step:    step,
	}
}

// IsKind reports whether err is a pipeline error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
