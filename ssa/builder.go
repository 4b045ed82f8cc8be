package ssa

import (
	"fmt"

	"github.com/wayto-lang/wayto/backend"
)

// FunctionBuilder builds a Function and implements backend.FunctionBuilder.
//
// Variables become SSA values on demand: reading a variable in a block
// without a local definition looks through the predecessors. In a block that
// is not sealed yet a pending block parameter stands in for the value; when
// the block is sealed every predecessor branch receives an argument for it.
type FunctionBuilder struct {
	module *Module
	id     backend.FuncID
	fn     *Function

	current    backend.Block
	hasCurrent bool

	state []blockState
	vars  map[backend.Variable]backend.Type
	defs  []map[backend.Variable]backend.Value
	refs  map[backend.FuncID]backend.FuncRef

	err error
}

type blockState struct {
	sealed   bool
	inLayout bool
	preds    []predEdge
	pending  []pendingParam
}

// predEdge is the branch instruction of a predecessor and which of its
// destinations leads here.
type predEdge struct {
	block backend.Block
	inst  *Inst
	dest  int
}

type pendingParam struct {
	variable backend.Variable
	param    backend.Value
}

var _ backend.FunctionBuilder = (*FunctionBuilder)(nil)

func newFunctionBuilder(m *Module, id backend.FuncID, name string, sig backend.Signature) *FunctionBuilder {
	return &FunctionBuilder{
		module: m,
		id:     id,
		fn:     &Function{Name: name, Sig: sig},
		vars:   make(map[backend.Variable]backend.Type),
		refs:   make(map[backend.FuncID]backend.FuncRef),
	}
}

// Func returns the function under construction.
func (fb *FunctionBuilder) Func() *Function { return fb.fn }

// Err returns the first recorded error.
func (fb *FunctionBuilder) Err() error { return fb.err }

// IsSealed reports whether b has been sealed.
func (fb *FunctionBuilder) IsSealed(b backend.Block) bool {
	return fb.validBlock(b) && fb.state[b].sealed
}

// Predecessors lists the blocks branching to b, in the order the branches
// were emitted.
func (fb *FunctionBuilder) Predecessors(b backend.Block) []backend.Block {
	if !fb.validBlock(b) {
		return nil
	}
	preds := make([]backend.Block, len(fb.state[b].preds))
	for i, p := range fb.state[b].preds {
		preds[i] = p.block
	}
	return preds
}

func (fb *FunctionBuilder) fail(format string, args ...any) {
	if fb.err == nil {
		fb.err = &BuildError{Func: fb.fn.Name, Msg: fmt.Sprintf(format, args...)}
	}
}

func (fb *FunctionBuilder) validBlock(b backend.Block) bool {
	return int(b) < len(fb.fn.Blocks)
}

func (fb *FunctionBuilder) newValue(t backend.Type, b backend.Block, isParam bool) backend.Value {
	v := backend.Value(len(fb.fn.Values))
	fb.fn.Values = append(fb.fn.Values, ValueData{Type: t, IsParam: isParam, Block: b})
	return v
}

func (fb *FunctionBuilder) CreateBlock() backend.Block {
	b := backend.Block(len(fb.fn.Blocks))
	fb.fn.Blocks = append(fb.fn.Blocks, &BlockData{})
	fb.state = append(fb.state, blockState{})
	fb.defs = append(fb.defs, make(map[backend.Variable]backend.Value))
	return b
}

func (fb *FunctionBuilder) SwitchToBlock(b backend.Block) {
	if !fb.validBlock(b) {
		fb.fail("switch to unknown %s", b)
		return
	}
	if fb.hasCurrent {
		cur := fb.fn.Blocks[fb.current]
		if len(cur.Insts) > 0 && !cur.Terminated() {
			fb.fail("%s is not terminated before switching to %s", fb.current, b)
		}
	}
	if !fb.state[b].inLayout {
		fb.state[b].inLayout = true
		fb.fn.Layout = append(fb.fn.Layout, b)
	}
	fb.current = b
	fb.hasCurrent = true
}

func (fb *FunctionBuilder) SealBlock(b backend.Block) {
	if !fb.validBlock(b) {
		fb.fail("seal unknown %s", b)
		return
	}
	if fb.state[b].sealed {
		fb.fail("%s sealed twice", b)
		return
	}
	for i := 0; i < len(fb.state[b].pending); i++ {
		p := fb.state[b].pending[i]
		fb.addParamArgs(p.variable, b, p.param)
	}
	fb.state[b].pending = nil
	fb.state[b].sealed = true
}

func (fb *FunctionBuilder) SealAllBlocks() {
	for b := range fb.state {
		if !fb.state[b].sealed {
			fb.SealBlock(backend.Block(b))
		}
	}
}

func (fb *FunctionBuilder) AppendBlockParam(b backend.Block, t backend.Type) backend.Value {
	if !fb.validBlock(b) {
		fb.fail("append parameter to unknown %s", b)
		return 0
	}
	if len(fb.state[b].pending) > 0 {
		fb.fail("explicit parameter appended to %s after variable parameters", b)
	}
	return fb.addParam(b, t)
}

func (fb *FunctionBuilder) addParam(b backend.Block, t backend.Type) backend.Value {
	v := fb.newValue(t, b, true)
	fb.fn.Blocks[b].Params = append(fb.fn.Blocks[b].Params, v)
	return v
}

func (fb *FunctionBuilder) AppendBlockParamsForFunctionParams(b backend.Block) {
	for _, t := range fb.fn.Sig.Params {
		fb.AppendBlockParam(b, t)
	}
}

func (fb *FunctionBuilder) BlockParams(b backend.Block) []backend.Value {
	if !fb.validBlock(b) {
		fb.fail("parameters of unknown %s", b)
		return nil
	}
	return append([]backend.Value(nil), fb.fn.Blocks[b].Params...)
}

func (fb *FunctionBuilder) DeclareVar(v backend.Variable, t backend.Type) {
	if _, ok := fb.vars[v]; ok {
		fb.fail("variable %d declared twice", v)
		return
	}
	fb.vars[v] = t
}

func (fb *FunctionBuilder) DefVar(v backend.Variable, val backend.Value) {
	t, ok := fb.vars[v]
	if !ok {
		fb.fail("definition of undeclared variable %d", v)
		return
	}
	if !fb.hasCurrent {
		fb.fail("definition of variable %d outside a block", v)
		return
	}
	if int(val) >= len(fb.fn.Values) || fb.fn.Values[val].Type != t {
		fb.fail("variable %d defined with a value of the wrong type", v)
		return
	}
	fb.defs[fb.current][v] = val
}

func (fb *FunctionBuilder) UseVar(v backend.Variable) backend.Value {
	t, ok := fb.vars[v]
	if !ok {
		fb.fail("use of undeclared variable %d", v)
		return 0
	}
	if !fb.hasCurrent {
		fb.fail("use of variable %d outside a block", v)
		return 0
	}
	return fb.lookup(v, t, fb.current)
}

// lookup finds the value of v at the end of b.
func (fb *FunctionBuilder) lookup(v backend.Variable, t backend.Type, b backend.Block) backend.Value {
	if val, ok := fb.defs[b][v]; ok {
		return val
	}

	var val backend.Value
	switch st := fb.state[b]; {
	case !st.sealed:
		val = fb.addParam(b, t)
		fb.state[b].pending = append(fb.state[b].pending, pendingParam{variable: v, param: val})
	case len(st.preds) == 0:
		// No definition reaches here.
		val = fb.zeroAtTop(b, t)
	case len(st.preds) == 1:
		val = fb.lookup(v, t, st.preds[0].block)
	default:
		val = fb.addParam(b, t)
		fb.defs[b][v] = val
		fb.addParamArgs(v, b, val)
	}
	fb.defs[b][v] = val
	return val
}

// addParamArgs passes the value of v on every edge into b.
func (fb *FunctionBuilder) addParamArgs(v backend.Variable, b backend.Block, param backend.Value) {
	t := fb.fn.Values[param].Type
	for _, edge := range fb.state[b].preds {
		arg := fb.lookup(v, t, edge.block)
		dest := &edge.inst.Dests[edge.dest]
		dest.Args = append(dest.Args, arg)
	}
}

func (fb *FunctionBuilder) zeroAtTop(b backend.Block, t backend.Type) backend.Value {
	val := fb.newValue(t, b, false)
	inst := &Inst{Op: OpIconst, Type: t, Results: []backend.Value{val}}
	blk := fb.fn.Blocks[b]
	blk.Insts = append([]*Inst{inst}, blk.Insts...)
	return val
}

func (fb *FunctionBuilder) ImportFunction(id backend.FuncID) backend.FuncRef {
	if ref, ok := fb.refs[id]; ok {
		return ref
	}
	decl, ok := fb.module.Decl(id)
	if !ok {
		fb.fail("import of unknown function %d", id)
		return 0
	}
	ref := backend.FuncRef(len(fb.fn.FuncRefs))
	fb.fn.FuncRefs = append(fb.fn.FuncRefs, ExtFunc{ID: id, Name: decl.Name, Sig: decl.Sig})
	fb.refs[id] = ref
	return ref
}

func (fb *FunctionBuilder) CreateStackSlot(size uint32) backend.StackSlot {
	slot := backend.StackSlot(len(fb.fn.Slots))
	fb.fn.Slots = append(fb.fn.Slots, StackSlotData{Size: size})
	return slot
}

// emit appends inst to the current block and creates its results.
func (fb *FunctionBuilder) emit(inst *Inst, results ...backend.Type) []backend.Value {
	if !fb.hasCurrent {
		fb.fail("%s outside a block", inst.Op)
		return make([]backend.Value, len(results))
	}
	blk := fb.fn.Blocks[fb.current]
	if blk.Terminated() {
		fb.fail("%s after the terminator of %s", inst.Op, fb.current)
		return make([]backend.Value, len(results))
	}
	for _, a := range inst.Args {
		if int(a) >= len(fb.fn.Values) {
			fb.fail("%s uses unknown value %s", inst.Op, a)
		}
	}
	for _, t := range results {
		inst.Results = append(inst.Results, fb.newValue(t, fb.current, false))
	}
	blk.Insts = append(blk.Insts, inst)
	return inst.Results
}

func (fb *FunctionBuilder) emit1(inst *Inst, t backend.Type) backend.Value {
	return fb.emit(inst, t)[0]
}

func (fb *FunctionBuilder) typeOf(v backend.Value) backend.Type {
	if int(v) >= len(fb.fn.Values) {
		return 0
	}
	return fb.fn.Values[v].Type
}

func (fb *FunctionBuilder) Iconst(t backend.Type, imm int64) backend.Value {
	return fb.emit1(&Inst{Op: OpIconst, Type: t, Imm: imm}, t)
}

func (fb *FunctionBuilder) binary(op Opcode, a, b backend.Value) backend.Value {
	if fb.typeOf(a) != fb.typeOf(b) {
		fb.fail("%s operands %s and %s differ in type", op, a, b)
	}
	return fb.emit1(&Inst{Op: op, Args: []backend.Value{a, b}}, fb.typeOf(a))
}

func (fb *FunctionBuilder) Iadd(a, b backend.Value) backend.Value { return fb.binary(OpIadd, a, b) }
func (fb *FunctionBuilder) Isub(a, b backend.Value) backend.Value { return fb.binary(OpIsub, a, b) }
func (fb *FunctionBuilder) Imul(a, b backend.Value) backend.Value { return fb.binary(OpImul, a, b) }
func (fb *FunctionBuilder) Sdiv(a, b backend.Value) backend.Value { return fb.binary(OpSdiv, a, b) }

func (fb *FunctionBuilder) Icmp(cc backend.IntCC, a, b backend.Value) backend.Value {
	if fb.typeOf(a) != fb.typeOf(b) {
		fb.fail("icmp operands %s and %s differ in type", a, b)
	}
	return fb.emit1(&Inst{Op: OpIcmp, Cond: cc, Args: []backend.Value{a, b}}, backend.I1)
}

func (fb *FunctionBuilder) Sextend(t backend.Type, v backend.Value) backend.Value {
	return fb.emit1(&Inst{Op: OpSextend, Type: t, Args: []backend.Value{v}}, t)
}

func (fb *FunctionBuilder) Load(t backend.Type, addr backend.Value, offset int32) backend.Value {
	return fb.emit1(&Inst{Op: OpLoad, Type: t, Imm: int64(offset), Args: []backend.Value{addr}}, t)
}

func (fb *FunctionBuilder) Store(v, addr backend.Value, offset int32) {
	fb.emit(&Inst{Op: OpStore, Imm: int64(offset), Args: []backend.Value{v, addr}})
}

func (fb *FunctionBuilder) validSlot(slot backend.StackSlot) bool {
	if int(slot) >= len(fb.fn.Slots) {
		fb.fail("unknown stack slot %s", slot)
		return false
	}
	return true
}

func (fb *FunctionBuilder) StackAddr(slot backend.StackSlot, offset int32) backend.Value {
	fb.validSlot(slot)
	return fb.emit1(&Inst{Op: OpStackAddr, Type: backend.I64, Slot: slot, Imm: int64(offset)}, backend.I64)
}

func (fb *FunctionBuilder) StackStore(v backend.Value, slot backend.StackSlot, offset int32) {
	if fb.validSlot(slot) && int64(offset)+int64(fb.typeOf(v).Bytes()) > int64(fb.fn.Slots[slot].Size) {
		fb.fail("stack_store at %s+%d overflows the slot", slot, offset)
	}
	fb.emit(&Inst{Op: OpStackStore, Slot: slot, Imm: int64(offset), Args: []backend.Value{v}})
}

func (fb *FunctionBuilder) Call(ref backend.FuncRef, args []backend.Value) []backend.Value {
	if int(ref) >= len(fb.fn.FuncRefs) {
		fb.fail("call through unknown %s", ref)
		return nil
	}
	sig := fb.fn.FuncRefs[ref].Sig
	if len(args) != len(sig.Params) {
		fb.fail("call to %s with %d arguments, want %d", fb.fn.FuncRefs[ref].Name, len(args), len(sig.Params))
	}
	inst := &Inst{Op: OpCall, Func: ref, Args: append([]backend.Value(nil), args...)}
	return fb.emit(inst, sig.Returns...)
}

// branch emits a terminator and records the edges it adds.
func (fb *FunctionBuilder) branch(inst *Inst) {
	if !fb.hasCurrent {
		fb.fail("%s outside a block", inst.Op)
		return
	}
	for _, d := range inst.Dests {
		if !fb.validBlock(d.Block) {
			fb.fail("branch to unknown %s", d.Block)
			return
		}
		if fb.state[d.Block].sealed {
			fb.fail("branch to sealed %s", d.Block)
			return
		}
	}
	from := fb.current
	before := len(fb.fn.Blocks[from].Insts)
	fb.emit(inst)
	if len(fb.fn.Blocks[from].Insts) == before {
		return
	}
	for i, d := range inst.Dests {
		fb.state[d.Block].preds = append(fb.state[d.Block].preds, predEdge{block: from, inst: inst, dest: i})
	}
}

func (fb *FunctionBuilder) Brif(cond backend.Value, thenBlock backend.Block, thenArgs []backend.Value, elseBlock backend.Block, elseArgs []backend.Value) {
	fb.branch(&Inst{
		Op:   OpBrif,
		Args: []backend.Value{cond},
		Dests: []BlockCall{
			{Block: thenBlock, Args: append([]backend.Value(nil), thenArgs...)},
			{Block: elseBlock, Args: append([]backend.Value(nil), elseArgs...)},
		},
	})
}

func (fb *FunctionBuilder) Jump(b backend.Block, args []backend.Value) {
	fb.branch(&Inst{
		Op:    OpJump,
		Dests: []BlockCall{{Block: b, Args: append([]backend.Value(nil), args...)}},
	})
}

func (fb *FunctionBuilder) Return(vals []backend.Value) {
	fb.emit(&Inst{Op: OpReturn, Args: append([]backend.Value(nil), vals...)})
}

// Finalize checks that every laid-out block is sealed and terminated and
// that the function verifies.
func (fb *FunctionBuilder) Finalize() error {
	if fb.err != nil {
		return fb.err
	}
	for b, st := range fb.state {
		if st.inLayout && !st.sealed {
			return &BuildError{Func: fb.fn.Name, Msg: fmt.Sprintf("%s is not sealed", backend.Block(b))}
		}
		if !st.inLayout && len(st.preds) > 0 {
			return &BuildError{Func: fb.fn.Name, Msg: fmt.Sprintf("%s is a branch target but was never filled", backend.Block(b))}
		}
	}
	return Verify(fb.fn)
}

// BuildError reports misuse of a FunctionBuilder.
type BuildError struct {
	Func string
	Msg  string
}

func (e *BuildError) Error() string {
	return "ssa: building " + e.Func + ": " + e.Msg
}
