package check

import (
	"fmt"

	"github.com/wayto-lang/wayto/syntax"
	"github.com/wayto-lang/wayto/types"
)

// ErrorKind classifies a type error.
type ErrorKind int

const (
	UndefinedVariable ErrorKind = iota + 1
	UndefinedFunction
	ArgumentCountMismatch
	ArgumentTypeMismatch
	NonBooleanCondition
	BranchTypeMismatch
	IndexTargetNotArray
	IndexNotInteger
	EmptyArrayTypeInference
	ArrayElementTypeMismatch
	TypeMismatch
	LenTargetNotArray
	LoopBoundNotInteger
	DuplicateFunction
	UnsupportedNode
)

var kindNames = map[ErrorKind]string{
	UndefinedVariable:        "UndefinedVariable",
	UndefinedFunction:        "UndefinedFunction",
	ArgumentCountMismatch:    "ArgumentCountMismatch",
	ArgumentTypeMismatch:     "ArgumentTypeMismatch",
	NonBooleanCondition:      "NonBooleanCondition",
	BranchTypeMismatch:       "BranchTypeMismatch",
	IndexTargetNotArray:      "IndexTargetNotArray",
	IndexNotInteger:          "IndexNotInteger",
	EmptyArrayTypeInference:  "EmptyArrayTypeInference",
	ArrayElementTypeMismatch: "ArrayElementTypeMismatch",
	TypeMismatch:             "TypeMismatch",
	LenTargetNotArray:        "LenTargetNotArray",
	LoopBoundNotInteger:      "LoopBoundNotInteger",
	DuplicateFunction:        "DuplicateFunction",
	UnsupportedNode:          "UnsupportedNode",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is a type error. Expected and Actual are set for type mismatches;
// ExpectedCount and ActualCount for arity mismatches.
type Error struct {
	Kind ErrorKind
	Func string // enclosing function
	Pos  syntax.Pos
	Node string // offending node as an s-expression
	Name string // variable or function name, when relevant

	Expected types.Type
	Actual   types.Type

	ExpectedCount int
	ActualCount   int
	Arg           int // zero-based argument index for ArgumentTypeMismatch
}

func (e *Error) Phase() string { return "type" }

func (e *Error) Error() string {
	return fmt.Sprintf("type error in %s at %s: %s: %s", e.Func, e.Pos, e.Kind, e.detail())
}

func (e *Error) detail() string {
	switch e.Kind {
	case UndefinedVariable:
		return fmt.Sprintf("undefined variable %q", e.Name)
	case UndefinedFunction:
		return fmt.Sprintf("undefined function %q", e.Name)
	case DuplicateFunction:
		return fmt.Sprintf("function %q is already defined", e.Name)
	case ArgumentCountMismatch:
		return fmt.Sprintf("%s expects %d arguments, got %d", e.Name, e.ExpectedCount, e.ActualCount)
	case ArgumentTypeMismatch:
		return fmt.Sprintf("argument %d of %s: expected %s, got %s", e.Arg+1, e.Name, e.Expected, e.Actual)
	case NonBooleanCondition:
		return fmt.Sprintf("condition must be Bool, got %s", e.Actual)
	case BranchTypeMismatch:
		return fmt.Sprintf("then branch is %s but else branch is %s", e.Expected, e.Actual)
	case IndexTargetNotArray:
		return fmt.Sprintf("cannot index %s", e.Actual)
	case IndexNotInteger:
		return fmt.Sprintf("index must be Int, got %s", e.Actual)
	case EmptyArrayTypeInference:
		return "cannot infer the element type of an empty array"
	case ArrayElementTypeMismatch:
		return fmt.Sprintf("array element %d: expected %s, got %s", e.Arg, e.Expected, e.Actual)
	case TypeMismatch:
		return fmt.Sprintf("operands of %s differ: %s and %s", e.Name, e.Expected, e.Actual)
	case LenTargetNotArray:
		return fmt.Sprintf("len needs an array, got %s", e.Actual)
	case UnsupportedNode:
		return fmt.Sprintf("cannot check %s", e.Name)
	case LoopBoundNotInteger:
		return fmt.Sprintf("loop bound must be Int, got %s", e.Actual)
	default:
		return e.Node
	}
}
