// Package check assigns a type to every expression of a parsed program and
// rejects ill-typed programs.
package check

import (
	"github.com/wayto-lang/wayto/syntax"
	"github.com/wayto-lang/wayto/types"
)

// Checker holds the signature table that grows as functions are checked.
// Each function gets a fresh flat variable scope.
type Checker struct {
	sigs  *types.SignatureTable
	fn    string
	scope map[string]types.Type
}

// NewChecker returns a checker that resolves calls against sigs and
// registers every checked function into it.
func NewChecker(sigs *types.SignatureTable) *Checker {
	return &Checker{sigs: sigs}
}

func (c *Checker) Signatures() *types.SignatureTable { return c.sigs }

// CheckProgram checks funcs in order against sigs and returns the typed
// functions, stopping at the first error.
func CheckProgram(funcs []*syntax.Func, sigs *types.SignatureTable) ([]*TypedFunc, error) {
	return NewChecker(sigs).CheckProgram(funcs)
}

func (c *Checker) CheckProgram(funcs []*syntax.Func) ([]*TypedFunc, error) {
	typed := make([]*TypedFunc, 0, len(funcs))
	for _, fn := range funcs {
		tf, err := c.CheckFunc(fn)
		if err != nil {
			return nil, err
		}
		typed = append(typed, tf)
	}
	return typed, nil
}

// CheckFunc checks one function body with its parameters in scope and, on
// success, registers its signature. A function cannot see itself.
func (c *Checker) CheckFunc(fn *syntax.Func) (*TypedFunc, error) {
	c.fn = fn.Name
	if _, exists := c.sigs.Lookup(fn.Name); exists {
		return nil, &Error{Kind: DuplicateFunction, Func: fn.Name, Pos: fn.Pos, Name: fn.Name}
	}

	c.scope = make(map[string]types.Type, len(fn.Params))
	params := make([]TypedParam, len(fn.Params))
	paramTypes := make([]types.Type, len(fn.Params))
	for i, p := range fn.Params {
		c.scope[p.Name] = p.Type
		params[i] = TypedParam{Name: p.Name, Type: p.Type}
		paramTypes[i] = p.Type
	}

	body, err := c.infer(fn.Body)
	if err != nil {
		return nil, err
	}

	sig := types.FuncType{Params: paramTypes, Ret: body.Type}
	if err := c.sigs.Register(fn.Name, sig); err != nil {
		return nil, &Error{Kind: DuplicateFunction, Func: fn.Name, Pos: fn.Pos, Name: fn.Name}
	}
	return &TypedFunc{Name: fn.Name, Params: params, Sig: sig, Body: body, Pos: fn.Pos}, nil
}

// CheckExpr checks a standalone expression in the given scope. The scope
// map is updated with any bindings the expression introduces.
func (c *Checker) CheckExpr(node *syntax.ASTNode, scope map[string]types.Type) (*TypedNode, error) {
	c.fn = "<expr>"
	if scope == nil {
		scope = make(map[string]types.Type)
	}
	c.scope = scope
	return c.infer(node)
}

func (c *Checker) newError(kind ErrorKind, n *syntax.ASTNode) *Error {
	return &Error{Kind: kind, Func: c.fn, Pos: n.Pos, Node: syntax.ToSExpr(n)}
}

func typed(n *syntax.ASTNode, typ types.Type, children ...*TypedNode) *TypedNode {
	return &TypedNode{
		Kind:     n.Kind,
		Type:     typ,
		Pos:      n.Pos,
		String:   n.String,
		Integer:  n.Integer,
		Boolean:  n.Boolean,
		Op:       n.Op,
		Children: children,
	}
}

func (c *Checker) infer(n *syntax.ASTNode) (*TypedNode, error) {
	switch n.Kind {
	case syntax.NodeInteger:
		return typed(n, types.Int()), nil

	case syntax.NodeBoolean:
		return typed(n, types.Bool()), nil

	case syntax.NodeArray:
		return c.inferArray(n)

	case syntax.NodeIdent:
		typ, ok := c.scope[n.String]
		if !ok {
			err := c.newError(UndefinedVariable, n)
			err.Name = n.String
			return nil, err
		}
		return typed(n, typ), nil

	case syntax.NodeBinary:
		lhs, err := c.infer(n.Children[0])
		if err != nil {
			return nil, err
		}
		rhs, err := c.infer(n.Children[1])
		if err != nil {
			return nil, err
		}
		if !syntax.IsComparison(n.Op) && !syntax.IsArithmetic(n.Op) {
			err := c.newError(UnsupportedNode, n)
			err.Name = "operator " + n.Op
			return nil, err
		}
		if !lhs.Type.Equal(rhs.Type) {
			err := c.newError(TypeMismatch, n)
			err.Name = n.Op
			err.Expected, err.Actual = lhs.Type, rhs.Type
			return nil, err
		}
		result := lhs.Type
		if syntax.IsComparison(n.Op) {
			result = types.Bool()
		}
		return typed(n, result, lhs, rhs), nil

	case syntax.NodeLet:
		value, err := c.infer(n.Children[0])
		if err != nil {
			return nil, err
		}
		c.scope[n.String] = value.Type
		return typed(n, value.Type, value), nil

	case syntax.NodeThen:
		first, err := c.infer(n.Children[0])
		if err != nil {
			return nil, err
		}
		second, err := c.infer(n.Children[1])
		if err != nil {
			return nil, err
		}
		return typed(n, second.Type, first, second), nil

	case syntax.NodeCall:
		return c.inferCall(n)

	case syntax.NodeIf:
		cond, err := c.infer(n.Children[0])
		if err != nil {
			return nil, err
		}
		if !cond.Type.Equal(types.Bool()) {
			err := c.newError(NonBooleanCondition, n.Children[0])
			err.Expected, err.Actual = types.Bool(), cond.Type
			return nil, err
		}
		thenBranch, err := c.infer(n.Children[1])
		if err != nil {
			return nil, err
		}
		elseBranch, err := c.infer(n.Children[2])
		if err != nil {
			return nil, err
		}
		if !thenBranch.Type.Equal(elseBranch.Type) {
			err := c.newError(BranchTypeMismatch, n)
			err.Expected, err.Actual = thenBranch.Type, elseBranch.Type
			return nil, err
		}
		return typed(n, thenBranch.Type, cond, thenBranch, elseBranch), nil

	case syntax.NodeIndex:
		target, err := c.infer(n.Children[0])
		if err != nil {
			return nil, err
		}
		if !target.Type.IsArray() {
			err := c.newError(IndexTargetNotArray, n.Children[0])
			err.Actual = target.Type
			return nil, err
		}
		index, err := c.infer(n.Children[1])
		if err != nil {
			return nil, err
		}
		if !index.Type.Equal(types.Int()) {
			err := c.newError(IndexNotInteger, n.Children[1])
			err.Expected, err.Actual = types.Int(), index.Type
			return nil, err
		}
		return typed(n, *target.Type.Elem, target, index), nil

	case syntax.NodeLen:
		target, err := c.infer(n.Children[0])
		if err != nil {
			return nil, err
		}
		if !target.Type.IsArray() {
			err := c.newError(LenTargetNotArray, n.Children[0])
			err.Actual = target.Type
			return nil, err
		}
		return typed(n, types.Int(), target), nil

	case syntax.NodeEach:
		bound, err := c.infer(n.Children[0])
		if err != nil {
			return nil, err
		}
		if !bound.Type.Equal(types.Int()) {
			err := c.newError(LoopBoundNotInteger, n.Children[0])
			err.Expected, err.Actual = types.Int(), bound.Type
			return nil, err
		}
		c.scope[n.String] = types.Int()
		body, err := c.infer(n.Children[1])
		if err != nil {
			return nil, err
		}
		return typed(n, types.Int(), bound, body), nil

	default:
		err := c.newError(UnsupportedNode, n)
		err.Name = "node " + string(n.Kind)
		return nil, err
	}
}

// inferArray types an array literal from its first element and requires
// every other element to match it.
func (c *Checker) inferArray(n *syntax.ASTNode) (*TypedNode, error) {
	if len(n.Children) == 0 {
		return nil, c.newError(EmptyArrayTypeInference, n)
	}
	elems := make([]*TypedNode, len(n.Children))
	for i, child := range n.Children {
		elem, err := c.infer(child)
		if err != nil {
			return nil, err
		}
		if i > 0 && !elem.Type.Equal(elems[0].Type) {
			err := c.newError(ArrayElementTypeMismatch, child)
			err.Expected, err.Actual = elems[0].Type, elem.Type
			err.Arg = i
			return nil, err
		}
		elems[i] = elem
	}
	return typed(n, types.ArrayOf(elems[0].Type), elems...), nil
}

func (c *Checker) inferCall(n *syntax.ASTNode) (*TypedNode, error) {
	sig, ok := c.sigs.Lookup(n.String)
	if !ok {
		err := c.newError(UndefinedFunction, n)
		err.Name = n.String
		return nil, err
	}
	if len(n.Children) != len(sig.Params) {
		err := c.newError(ArgumentCountMismatch, n)
		err.Name = n.String
		err.ExpectedCount, err.ActualCount = len(sig.Params), len(n.Children)
		return nil, err
	}
	args := make([]*TypedNode, len(n.Children))
	for i, child := range n.Children {
		arg, err := c.infer(child)
		if err != nil {
			return nil, err
		}
		if !arg.Type.Equal(sig.Params[i]) {
			err := c.newError(ArgumentTypeMismatch, child)
			err.Name = n.String
			err.Arg = i
			err.Expected, err.Actual = sig.Params[i], arg.Type
			return nil, err
		}
		args[i] = arg
	}
	return typed(n, sig.Ret, args...), nil
}
