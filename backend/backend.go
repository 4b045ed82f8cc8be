// Package backend defines the capabilities the code generator needs from an
// SSA backend, and the vocabulary types shared by backends.
package backend

import "fmt"

// Type is a machine value type.
type Type uint8

const (
	I1 Type = iota + 1
	I64
)

func (t Type) String() string {
	switch t {
	case I1:
		return "i1"
	case I64:
		return "i64"
	default:
		return fmt.Sprintf("type%d", uint8(t))
	}
}

// Bytes is the storage size of t in memory.
func (t Type) Bytes() int {
	if t == I64 {
		return 8
	}
	return 1
}

type (
	Value     uint32
	Block     uint32
	Variable  uint32
	StackSlot uint32
	FuncID    uint32
	FuncRef   uint32
)

func (v Value) String() string     { return fmt.Sprintf("v%d", uint32(v)) }
func (b Block) String() string     { return fmt.Sprintf("block%d", uint32(b)) }
func (s StackSlot) String() string { return fmt.Sprintf("ss%d", uint32(s)) }
func (f FuncRef) String() string   { return fmt.Sprintf("fn%d", uint32(f)) }

// IntCC is an integer comparison condition.
type IntCC uint8

const (
	Equal IntCC = iota + 1
	NotEqual
	SignedLessThan
	SignedGreaterThanOrEqual
	SignedGreaterThan
	SignedLessThanOrEqual
)

func (cc IntCC) String() string {
	switch cc {
	case Equal:
		return "eq"
	case NotEqual:
		return "ne"
	case SignedLessThan:
		return "slt"
	case SignedGreaterThanOrEqual:
		return "sge"
	case SignedGreaterThan:
		return "sgt"
	case SignedLessThanOrEqual:
		return "sle"
	default:
		return fmt.Sprintf("cc%d", uint8(cc))
	}
}

// Eval applies the condition to a and b.
func (cc IntCC) Eval(a, b int64) bool {
	switch cc {
	case Equal:
		return a == b
	case NotEqual:
		return a != b
	case SignedLessThan:
		return a < b
	case SignedGreaterThanOrEqual:
		return a >= b
	case SignedGreaterThan:
		return a > b
	case SignedLessThanOrEqual:
		return a <= b
	default:
		return false
	}
}

// Linkage controls symbol visibility of a declared function.
type Linkage uint8

const (
	Import Linkage = iota + 1
	Local
	Export
)

func (l Linkage) String() string {
	switch l {
	case Import:
		return "import"
	case Local:
		return "local"
	case Export:
		return "export"
	default:
		return fmt.Sprintf("linkage%d", uint8(l))
	}
}

// Signature is a machine-level function signature.
type Signature struct {
	Params  []Type
	Returns []Type
}

func (s Signature) Equal(o Signature) bool {
	if len(s.Params) != len(o.Params) || len(s.Returns) != len(o.Returns) {
		return false
	}
	for i := range s.Params {
		if s.Params[i] != o.Params[i] {
			return false
		}
	}
	for i := range s.Returns {
		if s.Returns[i] != o.Returns[i] {
			return false
		}
	}
	return true
}

func (s Signature) String() string {
	str := "("
	for i, p := range s.Params {
		if i > 0 {
			str += ", "
		}
		str += p.String()
	}
	str += ")"
	for i, r := range s.Returns {
		if i == 0 {
			str += " -> "
		} else {
			str += ", "
		}
		str += r.String()
	}
	return str
}

// Module is a container of declared and defined functions that can be
// finished into an object.
type Module interface {
	// DeclareFunction declares name with sig. Declaring the same name
	// again with an identical signature returns the existing id.
	DeclareFunction(name string, sig Signature, linkage Linkage) (FuncID, error)
	// NewFunction starts the body of a declared, non-imported function.
	NewFunction(id FuncID) (FunctionBuilder, error)
	// DefineFunction finalizes fb and attaches it to id.
	DefineFunction(id FuncID, fb FunctionBuilder) error
	// Finish produces the object bytes for everything defined so far.
	Finish() ([]byte, error)
}

// FunctionBuilder builds one function body in SSA form. Values flowing
// between blocks travel as block parameters; Variables are turned into
// block parameters automatically as blocks are sealed.
//
// Misuse is recorded and reported by Finalize rather than returned from
// each call.
type FunctionBuilder interface {
	CreateBlock() Block
	SwitchToBlock(b Block)
	// SealBlock declares that every predecessor of b is known.
	SealBlock(b Block)
	SealAllBlocks()
	AppendBlockParam(b Block, t Type) Value
	AppendBlockParamsForFunctionParams(b Block)
	BlockParams(b Block) []Value

	DeclareVar(v Variable, t Type)
	DefVar(v Variable, val Value)
	UseVar(v Variable) Value

	ImportFunction(id FuncID) FuncRef
	CreateStackSlot(size uint32) StackSlot

	Iconst(t Type, imm int64) Value
	Iadd(a, b Value) Value
	Isub(a, b Value) Value
	Imul(a, b Value) Value
	Sdiv(a, b Value) Value
	Icmp(cc IntCC, a, b Value) Value
	Sextend(t Type, v Value) Value
	Load(t Type, addr Value, offset int32) Value
	Store(v, addr Value, offset int32)
	StackAddr(slot StackSlot, offset int32) Value
	StackStore(v Value, slot StackSlot, offset int32)
	Call(fn FuncRef, args []Value) []Value
	Brif(cond Value, thenBlock Block, thenArgs []Value, elseBlock Block, elseArgs []Value)
	Jump(b Block, args []Value)
	Return(vals []Value)

	// Finalize checks the function and returns the first recorded error.
	Finalize() error
}
