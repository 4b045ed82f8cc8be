package codegen

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/wayto-lang/wayto/syntax"
	"github.com/wayto-lang/wayto/types"
)

// ErrorKind classifies a code generation error.
type ErrorKind int

const (
	UnknownFunctionReference ErrorKind = iota + 1
	UndefinedVariableReference
	UnsupportedType
	BackendFailure
	UnsupportedOperation
)

func (k ErrorKind) String() string {
	switch k {
	case UnknownFunctionReference:
		return "UnknownFunctionReference"
	case UndefinedVariableReference:
		return "UndefinedVariableReference"
	case UnsupportedType:
		return "UnsupportedType"
	case BackendFailure:
		return "BackendFailure"
	case UnsupportedOperation:
		return "UnsupportedOperation"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

var errNoResult = errors.New("call produced no result")

// Error is a code generation failure. Err holds the backend error for
// BackendFailure.
type Error struct {
	Kind ErrorKind
	Func string
	Pos  syntax.Pos
	Name string
	Type types.Type
	Err  error
}

func (e *Error) Phase() string { return "codegen" }

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Error() string {
	var detail string
	switch e.Kind {
	case UnknownFunctionReference:
		detail = fmt.Sprintf("call to unknown function %q", e.Name)
	case UndefinedVariableReference:
		detail = fmt.Sprintf("reference to undefined variable %q", e.Name)
	case UnsupportedType:
		detail = fmt.Sprintf("%s values cannot be compiled", e.Type)
		if e.Name != "" {
			detail = fmt.Sprintf("parameter %q: %s", e.Name, detail)
		}
	case BackendFailure:
		detail = e.Err.Error()
	case UnsupportedOperation:
		detail = fmt.Sprintf("cannot compile %s", e.Name)
	}
	return fmt.Sprintf("codegen error in %s at %s: %s: %s", e.Func, e.Pos, e.Kind, detail)
}
