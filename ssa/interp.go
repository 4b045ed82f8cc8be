package ssa

import (
	"encoding/binary"
	"fmt"

	"github.com/wayto-lang/wayto/backend"
)

// HostFunc implements an imported function for the interpreter.
type HostFunc func(args []int64) ([]int64, error)

const (
	// DefaultStackSize is the interpreter stack in bytes.
	DefaultStackSize = 1 << 20
	// stackBase keeps interpreter addresses away from zero.
	stackBase    = 0x10000
	maxCallDepth = 10000
)

// TrapError is a runtime fault of the interpreted program.
type TrapError struct {
	Func string
	Msg  string
}

func (e *TrapError) Error() string {
	return "trap in " + e.Func + ": " + e.Msg
}

// Interp executes functions of a Module. Stack slots live in a byte array
// addressed from stackBase; imported functions dispatch to host functions
// by name.
type Interp struct {
	module *Module
	host   map[string]HostFunc
	mem    []byte
	sp     int
	depth  int

	// MaxSteps bounds the number of executed instructions; 0 means no limit.
	MaxSteps int64
	steps    int64
}

func NewInterp(m *Module, host map[string]HostFunc) *Interp {
	return &Interp{
		module: m,
		host:   host,
		mem:    make([]byte, DefaultStackSize),
	}
}

// Steps returns the number of instructions executed so far.
func (in *Interp) Steps() int64 { return in.steps }

// Call runs the named function with args.
func (in *Interp) Call(name string, args ...int64) ([]int64, error) {
	id, ok := in.module.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("ssa: no function named %s", name)
	}
	return in.call(id, args)
}

func (in *Interp) call(id backend.FuncID, args []int64) ([]int64, error) {
	decl, _ := in.module.Decl(id)
	fn := in.module.Function(id)
	if fn != nil {
		return in.run(fn, args)
	}
	if decl.Linkage != backend.Import {
		return nil, fmt.Errorf("ssa: function %s has no body", decl.Name)
	}
	host, ok := in.host[decl.Name]
	if !ok {
		return nil, fmt.Errorf("ssa: no host implementation for %s", decl.Name)
	}
	results, err := host(args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", decl.Name, err)
	}
	if len(results) != len(decl.Sig.Returns) {
		return nil, fmt.Errorf("ssa: host %s returned %d values, want %d", decl.Name, len(results), len(decl.Sig.Returns))
	}
	return results, nil
}

func (in *Interp) address(f *Function, addr int64, size int) (int, error) {
	off := addr - stackBase
	if off < 0 || off+int64(size) > int64(in.sp) {
		return 0, &TrapError{Func: f.Name, Msg: fmt.Sprintf("memory access at %#x outside the stack", addr)}
	}
	return int(off), nil
}

func (in *Interp) load(f *Function, t backend.Type, addr int64) (int64, error) {
	off, err := in.address(f, addr, t.Bytes())
	if err != nil {
		return 0, err
	}
	if t == backend.I64 {
		return int64(binary.LittleEndian.Uint64(in.mem[off:])), nil
	}
	return int64(in.mem[off] & 1), nil
}

func (in *Interp) store(f *Function, t backend.Type, addr, v int64) error {
	off, err := in.address(f, addr, t.Bytes())
	if err != nil {
		return err
	}
	if t == backend.I64 {
		binary.LittleEndian.PutUint64(in.mem[off:], uint64(v))
	} else {
		in.mem[off] = byte(v & 1)
	}
	return nil
}

func (in *Interp) run(f *Function, args []int64) ([]int64, error) {
	if len(args) != len(f.Sig.Params) {
		return nil, fmt.Errorf("ssa: %s called with %d arguments, want %d", f.Name, len(args), len(f.Sig.Params))
	}
	if in.depth >= maxCallDepth {
		return nil, &TrapError{Func: f.Name, Msg: "call stack exhausted"}
	}
	in.depth++
	savedSP := in.sp
	defer func() {
		in.depth--
		in.sp = savedSP
	}()

	slotAddrs := make([]int64, len(f.Slots))
	for i, s := range f.Slots {
		size := int(s.Size+7) &^ 7
		if in.sp+size > len(in.mem) {
			return nil, &TrapError{Func: f.Name, Msg: "stack overflow"}
		}
		clear(in.mem[in.sp : in.sp+size])
		slotAddrs[i] = stackBase + int64(in.sp)
		in.sp += size
	}

	vals := make([]int64, len(f.Values))
	block := f.Entry()
	for i, p := range f.Blocks[block].Params {
		vals[p] = args[i]
	}

	for {
		var next *BlockCall
		for _, inst := range f.Blocks[block].Insts {
			in.steps++
			if in.MaxSteps > 0 && in.steps > in.MaxSteps {
				return nil, &TrapError{Func: f.Name, Msg: "step limit exceeded"}
			}
			arg := func(i int) int64 { return vals[inst.Args[i]] }

			switch inst.Op {
			case OpIconst:
				vals[inst.Results[0]] = inst.Imm
			case OpIadd:
				vals[inst.Results[0]] = arg(0) + arg(1)
			case OpIsub:
				vals[inst.Results[0]] = arg(0) - arg(1)
			case OpImul:
				vals[inst.Results[0]] = arg(0) * arg(1)
			case OpSdiv:
				if arg(1) == 0 {
					return nil, &TrapError{Func: f.Name, Msg: "integer division by zero"}
				}
				vals[inst.Results[0]] = arg(0) / arg(1)
			case OpIcmp:
				vals[inst.Results[0]] = 0
				if inst.Cond.Eval(arg(0), arg(1)) {
					vals[inst.Results[0]] = 1
				}
			case OpSextend:
				v := arg(0)
				if f.Values[inst.Args[0]].Type == backend.I1 {
					v = -(v & 1)
				}
				vals[inst.Results[0]] = v
			case OpLoad:
				v, err := in.load(f, inst.Type, arg(0)+inst.Imm)
				if err != nil {
					return nil, err
				}
				vals[inst.Results[0]] = v
			case OpStore:
				if err := in.store(f, f.Values[inst.Args[0]].Type, arg(1)+inst.Imm, arg(0)); err != nil {
					return nil, err
				}
			case OpStackAddr:
				vals[inst.Results[0]] = slotAddrs[inst.Slot] + inst.Imm
			case OpStackStore:
				if err := in.store(f, f.Values[inst.Args[0]].Type, slotAddrs[inst.Slot]+inst.Imm, arg(0)); err != nil {
					return nil, err
				}
			case OpCall:
				callArgs := make([]int64, len(inst.Args))
				for i := range inst.Args {
					callArgs[i] = arg(i)
				}
				results, err := in.call(f.FuncRefs[inst.Func].ID, callArgs)
				if err != nil {
					return nil, err
				}
				for i, r := range inst.Results {
					vals[r] = results[i]
				}
			case OpBrif:
				if arg(0) != 0 {
					next = &inst.Dests[0]
				} else {
					next = &inst.Dests[1]
				}
			case OpJump:
				next = &inst.Dests[0]
			case OpReturn:
				out := make([]int64, len(inst.Args))
				for i := range inst.Args {
					out[i] = arg(i)
				}
				return out, nil
			default:
				return nil, fmt.Errorf("ssa: cannot interpret %s", inst.Op)
			}
		}
		if next == nil {
			return nil, &TrapError{Func: f.Name, Msg: fmt.Sprintf("fell off the end of %s", block)}
		}

		// Block arguments are read before any parameter is written.
		incoming := make([]int64, len(next.Args))
		for i, a := range next.Args {
			incoming[i] = vals[a]
		}
		for i, p := range f.Blocks[next.Block].Params {
			vals[p] = incoming[i]
		}
		block = next.Block
	}
}
