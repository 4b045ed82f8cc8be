// Package codegen lowers checked functions into SSA through a
// backend.Module and finalizes the module into an object.
package codegen

import (
	"github.com/wayto-lang/wayto/backend"
	"github.com/wayto-lang/wayto/builtins"
	"github.com/wayto-lang/wayto/check"
	"github.com/wayto-lang/wayto/types"
)

// DefaultEntry is the function exported from the object.
const DefaultEntry = "main"

// Compiler drives lowering for a whole program. A user function becomes
// callable once its own lowering has finished.
type Compiler struct {
	module backend.Module
	entry  string
	funcs  map[string]backend.FuncID
}

// NewCompiler declares every builtin of registry as an import of module.
// The function named entry is exported; an empty entry means DefaultEntry.
func NewCompiler(module backend.Module, registry builtins.Registry, entry string) (*Compiler, error) {
	if entry == "" {
		entry = DefaultEntry
	}
	c := &Compiler{
		module: module,
		entry:  entry,
		funcs:  make(map[string]backend.FuncID),
	}
	for _, b := range registry {
		id, err := module.DeclareFunction(b.Name, machineSig(b.Sig), backend.Import)
		if err != nil {
			return nil, &Error{Kind: BackendFailure, Func: b.Name, Name: b.Name, Err: err}
		}
		c.funcs[b.Name] = id
	}
	return c, nil
}

// machineSig maps every parameter and the result to I64.
func machineSig(sig types.FuncType) backend.Signature {
	params := make([]backend.Type, len(sig.Params))
	for i := range params {
		params[i] = backend.I64
	}
	return backend.Signature{Params: params, Returns: []backend.Type{backend.I64}}
}

func (c *Compiler) linkage(name string) backend.Linkage {
	if name == c.entry {
		return backend.Export
	}
	return backend.Local
}

// CompileProgram lowers funcs in order, stopping at the first error.
func (c *Compiler) CompileProgram(funcs []*check.TypedFunc) error {
	for _, fn := range funcs {
		if err := c.CompileFunc(fn); err != nil {
			return err
		}
	}
	return nil
}

// Build lowers funcs and finishes the module into object bytes.
func (c *Compiler) Build(funcs []*check.TypedFunc) ([]byte, error) {
	if err := c.CompileProgram(funcs); err != nil {
		return nil, err
	}
	return c.module.Finish()
}

// CompileFunc declares, lowers and defines one function.
func (c *Compiler) CompileFunc(fn *check.TypedFunc) error {
	if err := checkSupported(fn); err != nil {
		return err
	}

	backendErr := func(err error) error {
		return &Error{Kind: BackendFailure, Func: fn.Name, Pos: fn.Pos, Name: fn.Name, Err: err}
	}
	id, err := c.module.DeclareFunction(fn.Name, machineSig(fn.Sig), c.linkage(fn.Name))
	if err != nil {
		return backendErr(err)
	}
	b, err := c.module.NewFunction(id)
	if err != nil {
		return backendErr(err)
	}

	fc := &funcCompiler{
		c:    c,
		fn:   fn,
		b:    b,
		vars: make(map[string]backend.Variable),
		refs: make(map[string]backend.FuncRef),
	}
	if err := fc.lowerBody(); err != nil {
		return err
	}
	if err := c.module.DefineFunction(id, b); err != nil {
		return backendErr(err)
	}
	c.funcs[fn.Name] = id
	return nil
}

// checkSupported rejects functions that touch Float values.
func checkSupported(fn *check.TypedFunc) error {
	for _, p := range fn.Params {
		if p.Type.Contains(types.KindFloat) {
			return &Error{Kind: UnsupportedType, Func: fn.Name, Pos: fn.Pos, Name: p.Name, Type: p.Type}
		}
	}
	var err error
	fn.Body.Walk(func(n *check.TypedNode) {
		if err == nil && n.Type.Contains(types.KindFloat) {
			err = &Error{Kind: UnsupportedType, Func: fn.Name, Pos: n.Pos, Type: n.Type}
		}
	})
	return err
}
