package ssa

import (
	"fmt"
	"strings"

	"github.com/wayto-lang/wayto/backend"
)

// String prints every declaration and definition in declaration order.
func (m *Module) String() string {
	var b strings.Builder
	for id, decl := range m.decls {
		if id > 0 {
			b.WriteByte('\n')
		}
		fn := m.funcs[id]
		if fn == nil {
			fmt.Fprintf(&b, "%s function %%%s%s\n", decl.Linkage, decl.Name, decl.Sig)
			continue
		}
		b.WriteString(decl.Linkage.String() + " ")
		writeFunction(&b, fn)
	}
	return b.String()
}

func (f *Function) String() string {
	var b strings.Builder
	writeFunction(&b, f)
	return b.String()
}

func writeFunction(b *strings.Builder, f *Function) {
	fmt.Fprintf(b, "function %%%s%s {\n", f.Name, f.Sig)
	for i, s := range f.Slots {
		fmt.Fprintf(b, "    %s = explicit_slot %d\n", backend.StackSlot(i), s.Size)
	}
	for i, ref := range f.FuncRefs {
		fmt.Fprintf(b, "    %s = %%%s%s\n", backend.FuncRef(i), ref.Name, ref.Sig)
	}
	for i, blk := range f.Layout {
		if i > 0 || len(f.Slots) > 0 || len(f.FuncRefs) > 0 {
			b.WriteByte('\n')
		}
		data := f.Blocks[blk]
		b.WriteString(blk.String())
		if len(data.Params) > 0 {
			params := make([]string, len(data.Params))
			for j, p := range data.Params {
				params[j] = fmt.Sprintf("%s: %s", p, f.Values[p].Type)
			}
			b.WriteString("(" + strings.Join(params, ", ") + ")")
		}
		b.WriteString(":\n")
		for _, inst := range data.Insts {
			b.WriteString("    " + formatInst(inst) + "\n")
		}
	}
	b.WriteString("}\n")
}

func joinValues(vals []backend.Value) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

func formatBlockCall(c BlockCall) string {
	if len(c.Args) == 0 {
		return c.Block.String()
	}
	return c.Block.String() + "(" + joinValues(c.Args) + ")"
}

func formatInst(inst *Inst) string {
	var rhs string
	switch inst.Op {
	case OpIconst:
		rhs = fmt.Sprintf("iconst.%s %d", inst.Type, inst.Imm)
	case OpIadd, OpIsub, OpImul, OpSdiv:
		rhs = fmt.Sprintf("%s %s", inst.Op, joinValues(inst.Args))
	case OpIcmp:
		rhs = fmt.Sprintf("icmp %s %s", inst.Cond, joinValues(inst.Args))
	case OpSextend:
		rhs = fmt.Sprintf("sextend.%s %s", inst.Type, inst.Args[0])
	case OpLoad:
		rhs = fmt.Sprintf("load.%s %s%+d", inst.Type, inst.Args[0], inst.Imm)
	case OpStore:
		rhs = fmt.Sprintf("store %s, %s%+d", inst.Args[0], inst.Args[1], inst.Imm)
	case OpStackAddr:
		rhs = fmt.Sprintf("stack_addr.%s %s%+d", inst.Type, inst.Slot, inst.Imm)
	case OpStackStore:
		rhs = fmt.Sprintf("stack_store %s, %s%+d", inst.Args[0], inst.Slot, inst.Imm)
	case OpCall:
		rhs = fmt.Sprintf("call %s(%s)", inst.Func, joinValues(inst.Args))
	case OpBrif:
		rhs = fmt.Sprintf("brif %s, %s, %s", inst.Args[0], formatBlockCall(inst.Dests[0]), formatBlockCall(inst.Dests[1]))
	case OpJump:
		rhs = "jump " + formatBlockCall(inst.Dests[0])
	case OpReturn:
		rhs = strings.TrimSpace("return " + joinValues(inst.Args))
	default:
		rhs = fmt.Sprintf("unknown.%d", inst.Op)
	}
	if len(inst.Results) == 0 {
		return rhs
	}
	return joinValues(inst.Results) + " = " + rhs
}
