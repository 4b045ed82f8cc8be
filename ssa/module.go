package ssa

import (
	"fmt"

	"github.com/wayto-lang/wayto/backend"
)

// FuncDecl is a declared function.
type FuncDecl struct {
	Name    string
	Sig     backend.Signature
	Linkage backend.Linkage
}

// ObjectEmitter turns a finished module into object bytes.
type ObjectEmitter interface {
	EmitObject(m *Module) ([]byte, error)
}

// TextEmitter emits the module's textual IR.
type TextEmitter struct{}

func (TextEmitter) EmitObject(m *Module) ([]byte, error) {
	return []byte(m.String()), nil
}

// Module implements backend.Module. Functions keep their declaration order.
type Module struct {
	Name    string
	emitter ObjectEmitter
	decls   []FuncDecl
	byName  map[string]backend.FuncID
	funcs   []*Function // parallel to decls, nil until defined
}

var _ backend.Module = (*Module)(nil)

// NewModule creates an empty module whose Finish hands it to emitter.
func NewModule(name string, emitter ObjectEmitter) *Module {
	return &Module{
		Name:    name,
		emitter: emitter,
		byName:  make(map[string]backend.FuncID),
	}
}

func (m *Module) DeclareFunction(name string, sig backend.Signature, linkage backend.Linkage) (backend.FuncID, error) {
	if id, ok := m.byName[name]; ok {
		decl := m.decls[id]
		if !decl.Sig.Equal(sig) {
			return 0, fmt.Errorf("ssa: %s redeclared as %s, previously %s", name, sig, decl.Sig)
		}
		if decl.Linkage != linkage {
			return 0, fmt.Errorf("ssa: %s redeclared with %s linkage, previously %s", name, linkage, decl.Linkage)
		}
		return id, nil
	}
	id := backend.FuncID(len(m.decls))
	m.decls = append(m.decls, FuncDecl{Name: name, Sig: sig, Linkage: linkage})
	m.funcs = append(m.funcs, nil)
	m.byName[name] = id
	return id, nil
}

func (m *Module) NewFunction(id backend.FuncID) (backend.FunctionBuilder, error) {
	return m.NewFunctionBuilder(id)
}

// NewFunctionBuilder is NewFunction returning the concrete builder.
func (m *Module) NewFunctionBuilder(id backend.FuncID) (*FunctionBuilder, error) {
	decl, ok := m.Decl(id)
	if !ok {
		return nil, fmt.Errorf("ssa: unknown function id %d", id)
	}
	if decl.Linkage == backend.Import {
		return nil, fmt.Errorf("ssa: cannot define imported function %s", decl.Name)
	}
	if m.funcs[id] != nil {
		return nil, fmt.Errorf("ssa: function %s is already defined", decl.Name)
	}
	return newFunctionBuilder(m, id, decl.Name, decl.Sig), nil
}

func (m *Module) DefineFunction(id backend.FuncID, fb backend.FunctionBuilder) error {
	b, ok := fb.(*FunctionBuilder)
	if !ok {
		return fmt.Errorf("ssa: foreign function builder %T", fb)
	}
	if b.module != m || b.id != id {
		return fmt.Errorf("ssa: builder for %s does not belong to function id %d", b.fn.Name, id)
	}
	if m.funcs[id] != nil {
		return fmt.Errorf("ssa: function %s is already defined", b.fn.Name)
	}
	if err := b.Finalize(); err != nil {
		return err
	}
	m.funcs[id] = b.fn
	return nil
}

// Finish checks that every non-imported declaration has a body and passes
// the module to the emitter.
func (m *Module) Finish() ([]byte, error) {
	for id, decl := range m.decls {
		if decl.Linkage != backend.Import && m.funcs[id] == nil {
			return nil, fmt.Errorf("ssa: function %s is declared but not defined", decl.Name)
		}
	}
	if m.emitter == nil {
		return nil, fmt.Errorf("ssa: module %s has no object emitter", m.Name)
	}
	return m.emitter.EmitObject(m)
}

func (m *Module) Decl(id backend.FuncID) (FuncDecl, bool) {
	if int(id) >= len(m.decls) {
		return FuncDecl{}, false
	}
	return m.decls[id], true
}

// Decls lists declarations in declaration order.
func (m *Module) Decls() []FuncDecl {
	return append([]FuncDecl(nil), m.decls...)
}

func (m *Module) Lookup(name string) (backend.FuncID, bool) {
	id, ok := m.byName[name]
	return id, ok
}

// Function returns the body of id, or nil if it is imported or undefined.
func (m *Module) Function(id backend.FuncID) *Function {
	if int(id) >= len(m.funcs) {
		return nil
	}
	return m.funcs[id]
}
