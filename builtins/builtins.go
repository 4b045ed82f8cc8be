// Package builtins lists the runtime functions every program can call
// without defining them.
package builtins

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"strconv"

	"github.com/wayto-lang/wayto/ssa"
	"github.com/wayto-lang/wayto/types"
)

// Builtin is a runtime-provided function.
type Builtin struct {
	Name string
	Sig  types.FuncType
}

// Registry is an ordered list of builtins.
type Registry []Builtin

func intToInt(name string) Builtin {
	return Builtin{Name: name, Sig: types.FuncType{Params: []types.Type{types.Int()}, Ret: types.Int()}}
}

// Default holds the five runtime functions, each (Int) -> Int.
var Default = Registry{
	intToInt("printint"),
	intToInt("printchar"),
	intToInt("printcharln"),
	intToInt("printintln"),
	intToInt("readchar"),
}

// RuntimeC is a C implementation of Default, for linking emitted objects.
//
//go:embed runtime/wayto_rt.c
var RuntimeC string

func (r Registry) Names() []string {
	names := make([]string, len(r))
	for i, b := range r {
		names[i] = b.Name
	}
	return names
}

func (r Registry) Lookup(name string) (Builtin, bool) {
	for _, b := range r {
		if b.Name == name {
			return b, true
		}
	}
	return Builtin{}, false
}

// Seed registers every builtin signature into table.
func (r Registry) Seed(table *types.SignatureTable) error {
	for _, b := range r {
		if err := table.Register(b.Name, b.Sig); err != nil {
			return err
		}
	}
	return nil
}

// NewSignatureTable returns a table holding exactly the builtins of r.
func (r Registry) NewSignatureTable() (*types.SignatureTable, error) {
	table := types.NewSignatureTable()
	if err := r.Seed(table); err != nil {
		return nil, err
	}
	return table, nil
}

// Host returns interpreter implementations of the default builtins. Print
// functions write to out and return their argument. readchar skips
// whitespace and returns the next byte of in, or -1 at end of input.
func Host(out io.Writer, in io.Reader) map[string]ssa.HostFunc {
	var reader *bufio.Reader
	if in != nil {
		reader = bufio.NewReader(in)
	}
	write := func(s string) error {
		_, err := io.WriteString(out, s)
		return err
	}
	printer := func(format func(int64) string) ssa.HostFunc {
		return func(args []int64) ([]int64, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("expected 1 argument, got %d", len(args))
			}
			if err := write(format(args[0])); err != nil {
				return nil, err
			}
			return []int64{args[0]}, nil
		}
	}
	return map[string]ssa.HostFunc{
		"printint":    printer(func(v int64) string { return strconv.FormatInt(v, 10) }),
		"printintln":  printer(func(v int64) string { return strconv.FormatInt(v, 10) + "\n" }),
		"printchar":   printer(func(v int64) string { return string([]byte{byte(v)}) }),
		"printcharln": printer(func(v int64) string { return string([]byte{byte(v), '\n'}) }),
		"readchar": func(args []int64) ([]int64, error) {
			if reader == nil {
				return []int64{-1}, nil
			}
			for {
				c, err := reader.ReadByte()
				if err == io.EOF {
					return []int64{-1}, nil
				}
				if err != nil {
					return nil, err
				}
				switch c {
				case ' ', '\t', '\n', '\r', '\v', '\f':
					continue
				}
				return []int64{int64(c)}, nil
			}
		},
	}
}
