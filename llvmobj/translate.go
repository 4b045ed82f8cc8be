// Package llvmobj lowers an ssa.Module to LLVM IR and compiles it to a
// native object with llc.
package llvmobj

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/pkg/errors"
	"github.com/wayto-lang/wayto/backend"
	"github.com/wayto-lang/wayto/ssa"
)

var i64Ptr = types.NewPointer(types.I64)

var predicates = map[backend.IntCC]enum.IPred{
	backend.Equal:                    enum.IPredEQ,
	backend.NotEqual:                 enum.IPredNE,
	backend.SignedLessThan:           enum.IPredSLT,
	backend.SignedGreaterThanOrEqual: enum.IPredSGE,
	backend.SignedGreaterThan:        enum.IPredSGT,
	backend.SignedLessThanOrEqual:    enum.IPredSLE,
}

func llvmType(t backend.Type) types.Type {
	if t == backend.I1 {
		return types.I1
	}
	return types.I64
}

// Translate converts m to an LLVM module. triple may be empty.
func Translate(m *ssa.Module, triple string) (*ir.Module, error) {
	mod := ir.NewModule()
	mod.SourceFilename = m.Name
	mod.TargetTriple = triple

	decls := m.Decls()
	funcs := make([]*ir.Func, len(decls))
	for id, decl := range decls {
		if len(decl.Sig.Returns) != 1 {
			return nil, errors.Errorf("llvmobj: %s: expected one result, got %d", decl.Name, len(decl.Sig.Returns))
		}
		params := make([]*ir.Param, len(decl.Sig.Params))
		for i, p := range decl.Sig.Params {
			params[i] = ir.NewParam("", llvmType(p))
		}
		f := mod.NewFunc(decl.Name, llvmType(decl.Sig.Returns[0]), params...)
		if decl.Linkage == backend.Local {
			f.Linkage = enum.LinkageInternal
		}
		funcs[id] = f
	}

	for id, decl := range decls {
		if decl.Linkage == backend.Import {
			continue
		}
		fn := m.Function(backend.FuncID(id))
		if fn == nil {
			return nil, errors.Errorf("llvmobj: %s declared but not defined", decl.Name)
		}
		t := &funcTranslator{
			src:    fn,
			dst:    funcs[id],
			funcs:  funcs,
			values: make(map[backend.Value]value.Value),
			blocks: make(map[backend.Block]*ir.Block),
			phis:   make(map[backend.Value]*ir.InstPhi),
		}
		if err := t.translate(); err != nil {
			return nil, errors.Wrapf(err, "llvmobj: %s", decl.Name)
		}
	}
	return mod, nil
}

type funcTranslator struct {
	src    *ssa.Function
	dst    *ir.Func
	funcs  []*ir.Func
	values map[backend.Value]value.Value
	blocks map[backend.Block]*ir.Block
	phis   map[backend.Value]*ir.InstPhi
	slots  []*ir.InstAlloca
	edges  []edge
}

// edge is a branch from a block, whose arguments become phi incomings.
type edge struct {
	from *ir.Block
	dest ssa.BlockCall
}

func (t *funcTranslator) translate() error {
	fn := t.src
	for _, b := range fn.Layout {
		blk := t.dst.NewBlock(b.String())
		t.blocks[b] = blk
		params := fn.Block(b).Params
		if b == fn.Entry() {
			for i, p := range params {
				t.dst.Params[i].SetName(p.String())
				t.values[p] = t.dst.Params[i]
			}
			continue
		}
		for _, p := range params {
			// Incomings are filled once every block has been translated.
			phi := &ir.InstPhi{Typ: llvmType(fn.ValueType(p))}
			phi.SetName(p.String())
			blk.Insts = append(blk.Insts, phi)
			t.phis[p] = phi
			t.values[p] = phi
		}
	}

	entry := t.blocks[fn.Entry()]
	for _, slot := range fn.Slots {
		words := (uint64(slot.Size) + 7) / 8
		t.slots = append(t.slots, entry.NewAlloca(types.NewArray(words, types.I64)))
	}

	for _, b := range reversePostorder(fn) {
		if err := t.translateBlock(b); err != nil {
			return err
		}
	}

	for _, e := range t.edges {
		params := fn.Block(e.dest.Block).Params
		if len(params) != len(e.dest.Args) {
			return errors.Errorf("%s passes %d arguments to %s, want %d",
				e.from.LocalName, len(e.dest.Args), e.dest.Block, len(params))
		}
		for i, p := range params {
			arg, err := t.value(e.dest.Args[i])
			if err != nil {
				return err
			}
			phi := t.phis[p]
			phi.Incs = append(phi.Incs, ir.NewIncoming(arg, e.from))
		}
	}
	return nil
}

// reversePostorder orders the reachable blocks of fn so that every block
// comes after its dominators. Unreachable blocks follow in layout order.
func reversePostorder(fn *ssa.Function) []backend.Block {
	visited := make(map[backend.Block]bool)
	var post []backend.Block
	var visit func(b backend.Block)
	visit = func(b backend.Block) {
		visited[b] = true
		insts := fn.Block(b).Insts
		if len(insts) > 0 {
			dests := insts[len(insts)-1].Dests
			for i := len(dests) - 1; i >= 0; i-- {
				if !visited[dests[i].Block] {
					visit(dests[i].Block)
				}
			}
		}
		post = append(post, b)
	}
	visit(fn.Entry())

	order := make([]backend.Block, 0, len(fn.Layout))
	for i := len(post) - 1; i >= 0; i-- {
		order = append(order, post[i])
	}
	for _, b := range fn.Layout {
		if !visited[b] {
			order = append(order, b)
		}
	}
	return order
}

func (t *funcTranslator) value(v backend.Value) (value.Value, error) {
	if val, ok := t.values[v]; ok {
		return val, nil
	}
	return nil, errors.Errorf("use of %s before its definition", v)
}

func (t *funcTranslator) args(inst *ssa.Inst) ([]value.Value, error) {
	vals := make([]value.Value, len(inst.Args))
	for i, a := range inst.Args {
		v, err := t.value(a)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

// pointer converts an integer address plus offset into an i64 pointer.
func pointer(blk *ir.Block, addr value.Value, offset int64) value.Value {
	if offset != 0 {
		addr = blk.NewAdd(addr, constant.NewInt(types.I64, offset))
	}
	return blk.NewIntToPtr(addr, i64Ptr)
}

// condition narrows an i64 boolean to i1 for conditional branches.
func condition(blk *ir.Block, v value.Value) value.Value {
	if v.Type().Equal(types.I1) {
		return v
	}
	return blk.NewICmp(enum.IPredNE, v, constant.NewInt(types.I64, 0))
}

func (t *funcTranslator) define(inst *ssa.Inst, v value.Value) {
	if named, ok := v.(value.Named); ok {
		named.SetName(inst.Results[0].String())
	}
	t.values[inst.Results[0]] = v
}

func (t *funcTranslator) slotAddress(blk *ir.Block, slot backend.StackSlot, offset int64) (value.Value, error) {
	if int(slot) >= len(t.slots) {
		return nil, errors.Errorf("unknown stack slot %s", slot)
	}
	base := blk.NewPtrToInt(t.slots[slot], types.I64)
	if offset == 0 {
		return base, nil
	}
	return blk.NewAdd(base, constant.NewInt(types.I64, offset)), nil
}

func (t *funcTranslator) translateBlock(b backend.Block) error {
	blk := t.blocks[b]
	for _, inst := range t.src.Block(b).Insts {
		args, err := t.args(inst)
		if err != nil {
			return err
		}
		switch inst.Op {
		case ssa.OpIconst:
			t.values[inst.Results[0]] = constant.NewInt(llvmType(inst.Type).(*types.IntType), inst.Imm)
		case ssa.OpIadd:
			t.define(inst, blk.NewAdd(args[0], args[1]))
		case ssa.OpIsub:
			t.define(inst, blk.NewSub(args[0], args[1]))
		case ssa.OpImul:
			t.define(inst, blk.NewMul(args[0], args[1]))
		case ssa.OpSdiv:
			t.define(inst, blk.NewSDiv(args[0], args[1]))
		case ssa.OpIcmp:
			t.define(inst, blk.NewICmp(predicates[inst.Cond], args[0], args[1]))
		case ssa.OpSextend:
			t.define(inst, blk.NewSExt(args[0], llvmType(inst.Type)))
		case ssa.OpLoad:
			t.define(inst, blk.NewLoad(llvmType(inst.Type), pointer(blk, args[0], inst.Imm)))
		case ssa.OpStore:
			blk.NewStore(args[0], pointer(blk, args[1], inst.Imm))
		case ssa.OpStackAddr:
			addr, err := t.slotAddress(blk, inst.Slot, inst.Imm)
			if err != nil {
				return err
			}
			t.values[inst.Results[0]] = addr
		case ssa.OpStackStore:
			addr, err := t.slotAddress(blk, inst.Slot, inst.Imm)
			if err != nil {
				return err
			}
			blk.NewStore(args[0], blk.NewIntToPtr(addr, i64Ptr))
		case ssa.OpCall:
			if int(inst.Func) >= len(t.src.FuncRefs) {
				return errors.Errorf("unknown function reference %s", inst.Func)
			}
			callee := t.funcs[t.src.FuncRefs[inst.Func].ID]
			call := blk.NewCall(callee, args...)
			if len(inst.Results) > 0 {
				t.define(inst, call)
			}
		case ssa.OpBrif:
			thenDest, elseDest := inst.Dests[0], inst.Dests[1]
			if thenDest.Block == elseDest.Block && len(thenDest.Args) > 0 {
				return errors.Errorf("%s branches twice to %s with arguments", b, thenDest.Block)
			}
			blk.NewCondBr(condition(blk, args[0]), t.blocks[thenDest.Block], t.blocks[elseDest.Block])
			t.edges = append(t.edges, edge{blk, thenDest}, edge{blk, elseDest})
		case ssa.OpJump:
			blk.NewBr(t.blocks[inst.Dests[0].Block])
			t.edges = append(t.edges, edge{blk, inst.Dests[0]})
		case ssa.OpReturn:
			if len(args) != 1 {
				return errors.Errorf("return of %d values", len(args))
			}
			blk.NewRet(args[0])
		default:
			return errors.Errorf("unsupported instruction %s", inst.Op)
		}
	}
	return nil
}
