package codegen

import (
	"github.com/wayto-lang/wayto/backend"
	"github.com/wayto-lang/wayto/check"
	"github.com/wayto-lang/wayto/syntax"
)

// wordSize is the byte size of every value in memory.
const wordSize = 8

// Boolean encoding: false is 0 and true is all ones.
const (
	falseValue = 0
	trueValue  = -1
)

var arith = map[string]func(backend.FunctionBuilder, backend.Value, backend.Value) backend.Value{
	"+": backend.FunctionBuilder.Iadd,
	"-": backend.FunctionBuilder.Isub,
	"*": backend.FunctionBuilder.Imul,
	"/": backend.FunctionBuilder.Sdiv,
}

var comparisons = map[string]backend.IntCC{
	"==": backend.Equal,
	"!=": backend.NotEqual,
	"<":  backend.SignedLessThan,
	">=": backend.SignedGreaterThanOrEqual,
	">":  backend.SignedGreaterThan,
	"<=": backend.SignedLessThanOrEqual,
}

// funcCompiler lowers one function body. Variables live in one flat scope
// and are numbered in order of creation, parameters first.
type funcCompiler struct {
	c       *Compiler
	fn      *check.TypedFunc
	b       backend.FunctionBuilder
	vars    map[string]backend.Variable
	nextVar backend.Variable
	refs    map[string]backend.FuncRef
}

func (fc *funcCompiler) newVar(name string, val backend.Value) {
	v := fc.nextVar
	fc.nextVar++
	fc.b.DeclareVar(v, backend.I64)
	fc.b.DefVar(v, val)
	fc.vars[name] = v
}

func (fc *funcCompiler) lowerBody() error {
	b := fc.b
	entry := b.CreateBlock()
	b.AppendBlockParamsForFunctionParams(entry)
	b.SwitchToBlock(entry)
	b.SealBlock(entry)

	for i, val := range b.BlockParams(entry) {
		fc.newVar(fc.fn.Params[i].Name, val)
	}

	result, err := fc.lower(fc.fn.Body)
	if err != nil {
		return err
	}
	b.Return([]backend.Value{result})
	b.SealAllBlocks()
	return nil
}

func (fc *funcCompiler) errorAt(kind ErrorKind, n *check.TypedNode, name string) error {
	return &Error{Kind: kind, Func: fc.fn.Name, Pos: n.Pos, Name: name}
}

func (fc *funcCompiler) lower(n *check.TypedNode) (backend.Value, error) {
	b := fc.b
	switch n.Kind {
	case syntax.NodeInteger:
		return b.Iconst(backend.I64, n.Integer), nil

	case syntax.NodeBoolean:
		if n.Boolean {
			return b.Iconst(backend.I64, trueValue), nil
		}
		return b.Iconst(backend.I64, falseValue), nil

	case syntax.NodeIdent:
		v, ok := fc.vars[n.String]
		if !ok {
			return 0, fc.errorAt(UndefinedVariableReference, n, n.String)
		}
		return b.UseVar(v), nil

	case syntax.NodeBinary:
		lhs, err := fc.lower(n.Children[0])
		if err != nil {
			return 0, err
		}
		rhs, err := fc.lower(n.Children[1])
		if err != nil {
			return 0, err
		}
		if cc, ok := comparisons[n.Op]; ok {
			return b.Sextend(backend.I64, b.Icmp(cc, lhs, rhs)), nil
		}
		op, ok := arith[n.Op]
		if !ok {
			return 0, fc.errorAt(UnsupportedOperation, n, "operator "+n.Op)
		}
		return op(b, lhs, rhs), nil

	case syntax.NodeLet:
		val, err := fc.lower(n.Children[0])
		if err != nil {
			return 0, err
		}
		fc.newVar(n.String, val)
		return val, nil

	case syntax.NodeThen:
		if _, err := fc.lower(n.Children[0]); err != nil {
			return 0, err
		}
		return fc.lower(n.Children[1])

	case syntax.NodeCall:
		return fc.lowerCall(n)

	case syntax.NodeIf:
		return fc.lowerIf(n)

	case syntax.NodeEach:
		return fc.lowerEach(n)

	case syntax.NodeArray:
		return fc.lowerArray(n)

	case syntax.NodeIndex:
		base, err := fc.lower(n.Children[0])
		if err != nil {
			return 0, err
		}
		index, err := fc.lower(n.Children[1])
		if err != nil {
			return 0, err
		}
		// Elements start after the length word.
		one := b.Iconst(backend.I64, 1)
		word := b.Iconst(backend.I64, wordSize)
		offset := b.Imul(b.Iadd(index, one), word)
		return b.Load(backend.I64, b.Iadd(base, offset), 0), nil

	case syntax.NodeLen:
		base, err := fc.lower(n.Children[0])
		if err != nil {
			return 0, err
		}
		return b.Load(backend.I64, base, 0), nil

	default:
		return 0, fc.errorAt(UnsupportedOperation, n, "node "+string(n.Kind))
	}
}

func (fc *funcCompiler) lowerCall(n *check.TypedNode) (backend.Value, error) {
	ref, ok := fc.refs[n.String]
	if !ok {
		id, known := fc.c.funcs[n.String]
		if !known {
			return 0, fc.errorAt(UnknownFunctionReference, n, n.String)
		}
		ref = fc.b.ImportFunction(id)
		fc.refs[n.String] = ref
	}

	args := make([]backend.Value, len(n.Children))
	for i, child := range n.Children {
		v, err := fc.lower(child)
		if err != nil {
			return 0, err
		}
		args[i] = v
	}
	results := fc.b.Call(ref, args)
	if len(results) == 0 {
		return 0, &Error{Kind: BackendFailure, Func: fc.fn.Name, Pos: n.Pos, Name: n.String,
			Err: errNoResult}
	}
	return results[0], nil
}

// lowerIf emits
//
//	brif cond, then, else
//	then:  jump merge(thenValue)
//	else:  jump merge(elseValue)
//	merge(result):
func (fc *funcCompiler) lowerIf(n *check.TypedNode) (backend.Value, error) {
	b := fc.b
	cond, err := fc.lower(n.Children[0])
	if err != nil {
		return 0, err
	}

	thenBlock := b.CreateBlock()
	elseBlock := b.CreateBlock()
	merge := b.CreateBlock()
	b.AppendBlockParam(merge, backend.I64)

	b.Brif(cond, thenBlock, nil, elseBlock, nil)

	b.SwitchToBlock(thenBlock)
	b.SealBlock(thenBlock)
	thenValue, err := fc.lower(n.Children[1])
	if err != nil {
		return 0, err
	}
	b.Jump(merge, []backend.Value{thenValue})

	b.SwitchToBlock(elseBlock)
	b.SealBlock(elseBlock)
	elseValue, err := fc.lower(n.Children[2])
	if err != nil {
		return 0, err
	}
	b.Jump(merge, []backend.Value{elseValue})

	b.SwitchToBlock(merge)
	b.SealBlock(merge)
	return b.BlockParams(merge)[0], nil
}

// lowerEach emits a counting loop from 1 to the bound inclusive:
//
//	jump header(1)
//	header(counter): brif counter > bound, exit, body(counter)
//	body(i):         ...; jump header(i + 1)
//	exit:            0
//
// The header is sealed only once the back edge exists.
func (fc *funcCompiler) lowerEach(n *check.TypedNode) (backend.Value, error) {
	b := fc.b
	bound, err := fc.lower(n.Children[0])
	if err != nil {
		return 0, err
	}

	header := b.CreateBlock()
	body := b.CreateBlock()
	exit := b.CreateBlock()
	b.AppendBlockParam(header, backend.I64)
	b.AppendBlockParam(body, backend.I64)

	one := b.Iconst(backend.I64, 1)
	b.Jump(header, []backend.Value{one})

	b.SwitchToBlock(header)
	counter := b.BlockParams(header)[0]
	done := b.Icmp(backend.SignedGreaterThan, counter, bound)
	b.Brif(done, exit, nil, body, []backend.Value{counter})

	b.SwitchToBlock(body)
	b.SealBlock(body)
	i := b.BlockParams(body)[0]
	fc.newVar(n.String, i)
	if _, err := fc.lower(n.Children[1]); err != nil {
		return 0, err
	}
	next := b.Iadd(i, one)
	b.Jump(header, []backend.Value{next})

	b.SwitchToBlock(exit)
	b.SealBlock(header)
	b.SealBlock(exit)
	return b.Iconst(backend.I64, 0), nil
}

// lowerArray stores the length in word 0 and the elements in words 1..N of
// a fresh stack slot and yields the slot address.
func (fc *funcCompiler) lowerArray(n *check.TypedNode) (backend.Value, error) {
	b := fc.b
	slot := b.CreateStackSlot(uint32(wordSize * (len(n.Children) + 1)))
	b.StackStore(b.Iconst(backend.I64, int64(len(n.Children))), slot, 0)
	for i, child := range n.Children {
		v, err := fc.lower(child)
		if err != nil {
			return 0, err
		}
		b.StackStore(v, slot, int32(wordSize*(i+1)))
	}
	return b.StackAddr(slot, 0), nil
}
