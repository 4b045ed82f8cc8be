package syntax

import (
	"strings"

	"github.com/wayto-lang/wayto/types"
)

// NodeKind represents different types of AST nodes
type NodeKind string

const (
	NodeInteger NodeKind = "NodeInteger"
	NodeBoolean NodeKind = "NodeBoolean"
	NodeArray   NodeKind = "NodeArray"
	NodeIdent   NodeKind = "NodeIdent"
	NodeBinary  NodeKind = "NodeBinary"
	NodeLet     NodeKind = "NodeLet"
	NodeThen    NodeKind = "NodeThen"
	NodeCall    NodeKind = "NodeCall"
	NodeIf      NodeKind = "NodeIf"
	NodeIndex   NodeKind = "NodeIndex"
	NodeLen     NodeKind = "NodeLen"
	NodeEach    NodeKind = "NodeEach"
)

// ASTNode represents a node in the untyped syntax tree.
//
// Children layout by kind:
//
//	NodeArray:  elements
//	NodeBinary: lhs, rhs
//	NodeLet:    value
//	NodeThen:   first, second
//	NodeCall:   arguments
//	NodeIf:     condition, then, else
//	NodeIndex:  target, index
//	NodeLen:    target
//	NodeEach:   bound, body
type ASTNode struct {
	Kind NodeKind
	Pos  Pos
	// NodeIdent, NodeLet, NodeCall (callee), NodeEach (loop variable):
	String string
	// NodeInteger:
	Integer int64
	// NodeBoolean:
	Boolean bool
	// NodeBinary:
	Op       string // "+", "-", "==", ...
	Children []*ASTNode
}

// Param is a declared function parameter.
type Param struct {
	Name string
	Type types.Type
	Pos  Pos
}

// Func is a function definition.
type Func struct {
	Name   string
	Params []Param
	Body   *ASTNode
	Pos    Pos
}

// IsComparison reports whether op yields a boolean.
func IsComparison(op string) bool {
	switch op {
	case "==", "!=", "<", ">", "<=", ">=":
		return true
	}
	return false
}

// IsArithmetic reports whether op is one of + - * /.
func IsArithmetic(op string) bool {
	switch op {
	case "+", "-", "*", "/":
		return true
	}
	return false
}

// ToSExpr converts an AST node to s-expression string representation
func ToSExpr(node *ASTNode) string {
	if node == nil {
		return "()"
	}
	switch node.Kind {
	case NodeInteger:
		return "(integer " + intToString(node.Integer) + ")"
	case NodeBoolean:
		if node.Boolean {
			return "(boolean true)"
		}
		return "(boolean false)"
	case NodeIdent:
		return "(ident " + quote(node.String) + ")"
	case NodeArray:
		return list("array", "", node.Children)
	case NodeBinary:
		return list("binary", quote(node.Op), node.Children)
	case NodeLet:
		return list("let", quote(node.String), node.Children)
	case NodeThen:
		return list("then", "", node.Children)
	case NodeCall:
		return list("call", quote(node.String), node.Children)
	case NodeIf:
		return list("if", "", node.Children)
	case NodeIndex:
		return list("idx", "", node.Children)
	case NodeLen:
		return list("len", "", node.Children)
	case NodeEach:
		return list("each", quote(node.String), node.Children)
	default:
		return ""
	}
}

// FuncToSExpr renders a whole function definition.
func FuncToSExpr(fn *Func) string {
	var b strings.Builder
	b.WriteString("(func " + quote(fn.Name) + " (")
	for i, p := range fn.Params {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString("(param " + quote(p.Name) + " " + quote(p.Type.String()) + ")")
	}
	b.WriteString(") " + ToSExpr(fn.Body) + ")")
	return b.String()
}

// ProgramToSExpr renders a list of functions as (program ...).
func ProgramToSExpr(funcs []*Func) string {
	parts := []string{"program"}
	for _, fn := range funcs {
		parts = append(parts, FuncToSExpr(fn))
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func list(head, attr string, children []*ASTNode) string {
	result := "(" + head
	if attr != "" {
		result += " " + attr
	}
	for _, child := range children {
		result += " " + ToSExpr(child)
	}
	return result + ")"
}

func quote(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	return "\"" + strings.ReplaceAll(s, "\"", "\\\"") + "\""
}

// intToString converts an int64 to string
func intToString(n int64) string {
	if n == 0 {
		return "0"
	}

	var digits []byte
	negative := n < 0
	for n != 0 {
		d := n % 10
		if d < 0 {
			d = -d
		}
		digits = append(digits, byte('0'+d))
		n /= 10
	}
	if negative {
		digits = append(digits, '-')
	}
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return string(digits)
}
