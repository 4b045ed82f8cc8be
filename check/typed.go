package check

import (
	"strconv"
	"strings"

	"github.com/wayto-lang/wayto/syntax"
	"github.com/wayto-lang/wayto/types"
)

// TypedNode mirrors syntax.ASTNode with a resolved Type. Typed nodes are
// built bottom-up and never modified afterwards.
type TypedNode struct {
	Kind     syntax.NodeKind
	Type     types.Type
	Pos      syntax.Pos
	String   string
	Integer  int64
	Boolean  bool
	Op       string
	Children []*TypedNode
}

// TypedParam is a parameter with its declared type.
type TypedParam struct {
	Name string
	Type types.Type
}

// TypedFunc is a checked function. Sig.Ret equals Body.Type.
type TypedFunc struct {
	Name   string
	Params []TypedParam
	Sig    types.FuncType
	Body   *TypedNode
	Pos    syntax.Pos
}

// Walk calls fn for n and every descendant, parents first.
func (n *TypedNode) Walk(fn func(*TypedNode)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// ToSExpr renders a typed node with each node's type appended, e.g.
// (binary "+" (integer 1 Int) (integer 2 Int) Int).
func ToSExpr(n *TypedNode) string {
	var b strings.Builder
	writeSExpr(&b, n)
	return b.String()
}

func writeSExpr(b *strings.Builder, n *TypedNode) {
	head := map[syntax.NodeKind]string{
		syntax.NodeInteger: "integer",
		syntax.NodeBoolean: "boolean",
		syntax.NodeArray:   "array",
		syntax.NodeIdent:   "ident",
		syntax.NodeBinary:  "binary",
		syntax.NodeLet:     "let",
		syntax.NodeThen:    "then",
		syntax.NodeCall:    "call",
		syntax.NodeIf:      "if",
		syntax.NodeIndex:   "idx",
		syntax.NodeLen:     "len",
		syntax.NodeEach:    "each",
	}[n.Kind]
	b.WriteString("(" + head)
	switch n.Kind {
	case syntax.NodeInteger:
		b.WriteString(" " + strconv.FormatInt(n.Integer, 10))
	case syntax.NodeBoolean:
		b.WriteString(" " + strconv.FormatBool(n.Boolean))
	case syntax.NodeBinary:
		b.WriteString(" " + strconv.Quote(n.Op))
	case syntax.NodeIdent, syntax.NodeLet, syntax.NodeCall, syntax.NodeEach:
		b.WriteString(" " + strconv.Quote(n.String))
	}
	for _, c := range n.Children {
		b.WriteByte(' ')
		writeSExpr(b, c)
	}
	b.WriteString(" " + n.Type.String() + ")")
}
