package ssa

import (
	"fmt"

	"github.com/wayto-lang/wayto/backend"
)

// VerifyError reports a structural problem in a function.
type VerifyError struct {
	Func  string
	Block backend.Block
	Msg   string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("ssa: verify %s: %s: %s", e.Func, e.Block, e.Msg)
}

// Verify checks that every laid-out block ends in exactly one terminator,
// that branch arguments match the destination parameters, that returns
// match the signature, and that nothing branches to the entry block.
func Verify(f *Function) error {
	if len(f.Layout) == 0 {
		return &VerifyError{Func: f.Name, Msg: "function has no blocks"}
	}
	entry := f.Entry()
	fail := func(b backend.Block, format string, args ...any) error {
		return &VerifyError{Func: f.Name, Block: b, Msg: fmt.Sprintf(format, args...)}
	}

	entryParams := f.Blocks[entry].Params
	if len(entryParams) != len(f.Sig.Params) {
		return fail(entry, "entry block has %d parameters, signature has %d", len(entryParams), len(f.Sig.Params))
	}
	for i, p := range entryParams {
		if f.Values[p].Type != f.Sig.Params[i] {
			return fail(entry, "entry parameter %d is %s, signature says %s", i, f.Values[p].Type, f.Sig.Params[i])
		}
	}

	laidOut := make(map[backend.Block]bool, len(f.Layout))
	for _, b := range f.Layout {
		laidOut[b] = true
	}

	for _, b := range f.Layout {
		data := f.Blocks[b]
		if !data.Terminated() {
			return fail(b, "block does not end in a terminator")
		}
		for i, inst := range data.Insts {
			if inst.Op.IsTerminator() && i != len(data.Insts)-1 {
				return fail(b, "%s in the middle of the block", inst.Op)
			}
			for _, d := range inst.Dests {
				if d.Block == entry {
					return fail(b, "branch to the entry block")
				}
				if !laidOut[d.Block] {
					return fail(b, "branch to %s, which is not in the layout", d.Block)
				}
				params := f.Blocks[d.Block].Params
				if len(d.Args) != len(params) {
					return fail(b, "branch to %s passes %d arguments for %d parameters", d.Block, len(d.Args), len(params))
				}
				for j, a := range d.Args {
					if f.Values[a].Type != f.Values[params[j]].Type {
						return fail(b, "branch to %s: argument %d is %s, parameter is %s", d.Block, j, f.Values[a].Type, f.Values[params[j]].Type)
					}
				}
			}
			if inst.Op == OpReturn {
				if len(inst.Args) != len(f.Sig.Returns) {
					return fail(b, "return of %d values, signature has %d", len(inst.Args), len(f.Sig.Returns))
				}
				for j, a := range inst.Args {
					if f.Values[a].Type != f.Sig.Returns[j] {
						return fail(b, "return value %d is %s, signature says %s", j, f.Values[a].Type, f.Sig.Returns[j])
					}
				}
			}
		}
	}
	return nil
}
