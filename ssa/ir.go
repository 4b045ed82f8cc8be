// Package ssa is an in-memory SSA backend: a function builder that
// constructs SSA form from mutable variables, a module of declared and
// defined functions, a textual printer, a verifier and an interpreter.
package ssa

import "github.com/wayto-lang/wayto/backend"

// Opcode identifies an instruction.
type Opcode uint8

const (
	OpIconst Opcode = iota + 1
	OpIadd
	OpIsub
	OpImul
	OpSdiv
	OpIcmp
	OpSextend
	OpLoad
	OpStore
	OpStackAddr
	OpStackStore
	OpCall
	OpBrif
	OpJump
	OpReturn
)

var opNames = map[Opcode]string{
	OpIconst:     "iconst",
	OpIadd:       "iadd",
	OpIsub:       "isub",
	OpImul:       "imul",
	OpSdiv:       "sdiv",
	OpIcmp:       "icmp",
	OpSextend:    "sextend",
	OpLoad:       "load",
	OpStore:      "store",
	OpStackAddr:  "stack_addr",
	OpStackStore: "stack_store",
	OpCall:       "call",
	OpBrif:       "brif",
	OpJump:       "jump",
	OpReturn:     "return",
}

func (op Opcode) String() string { return opNames[op] }

// IsTerminator reports whether op ends a block.
func (op Opcode) IsTerminator() bool {
	return op == OpBrif || op == OpJump || op == OpReturn
}

// BlockCall is a branch destination with the arguments passed to the
// destination's block parameters.
type BlockCall struct {
	Block backend.Block
	Args  []backend.Value
}

// Inst is one instruction. Which fields are meaningful depends on Op.
type Inst struct {
	Op   Opcode
	Type backend.Type // result type of iconst, sextend, load, stack_addr
	// Imm is the constant of iconst and the byte offset of load, store,
	// stack_addr and stack_store.
	Imm     int64
	Cond    backend.IntCC
	Args    []backend.Value
	Slot    backend.StackSlot
	Func    backend.FuncRef
	Dests   []BlockCall // brif: then, else; jump: target
	Results []backend.Value
}

// ValueData records the type of a value and where it comes from.
type ValueData struct {
	Type    backend.Type
	IsParam bool
	Block   backend.Block // defining block
}

// BlockData holds the parameters and instructions of a block.
type BlockData struct {
	Params []backend.Value
	Insts  []*Inst
}

// Terminated reports whether the block ends in a terminator.
func (b *BlockData) Terminated() bool {
	return len(b.Insts) > 0 && b.Insts[len(b.Insts)-1].Op.IsTerminator()
}

// StackSlotData is a fixed-size stack region of a function.
type StackSlotData struct {
	Size uint32
}

// ExtFunc is a function referenced from a function body.
type ExtFunc struct {
	ID   backend.FuncID
	Name string
	Sig  backend.Signature
}

// Function is a function body in SSA form. Blocks are indexed by
// backend.Block; Layout lists the blocks in emission order, entry first.
type Function struct {
	Name     string
	Sig      backend.Signature
	Values   []ValueData
	Blocks   []*BlockData
	Layout   []backend.Block
	Slots    []StackSlotData
	FuncRefs []ExtFunc
}

// Entry returns the entry block.
func (f *Function) Entry() backend.Block { return f.Layout[0] }

func (f *Function) ValueType(v backend.Value) backend.Type {
	return f.Values[v].Type
}

// Block returns the data of b.
func (f *Function) Block(b backend.Block) *BlockData { return f.Blocks[b] }
