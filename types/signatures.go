package types

import "fmt"

// SignatureTable maps function names to signatures. Entries are only ever
// appended; a name cannot be registered twice.
type SignatureTable struct {
	order []string
	sigs  map[string]FuncType
}

func NewSignatureTable() *SignatureTable {
	return &SignatureTable{sigs: make(map[string]FuncType)}
}

// DuplicateError is returned by Register for a name already in the table.
type DuplicateError struct {
	Name     string
	Existing FuncType
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("function %q is already defined as %s", e.Name, e.Existing)
}

func (t *SignatureTable) Register(name string, sig FuncType) error {
	if existing, ok := t.sigs[name]; ok {
		return &DuplicateError{Name: name, Existing: existing}
	}
	t.order = append(t.order, name)
	t.sigs[name] = sig
	return nil
}

func (t *SignatureTable) Lookup(name string) (FuncType, bool) {
	sig, ok := t.sigs[name]
	return sig, ok
}

// Names lists registered names in registration order.
func (t *SignatureTable) Names() []string {
	return append([]string(nil), t.order...)
}

func (t *SignatureTable) Len() int { return len(t.order) }

// Clone returns an independent copy. Registering into the copy leaves t
// untouched.
func (t *SignatureTable) Clone() *SignatureTable {
	c := &SignatureTable{
		order: append([]string(nil), t.order...),
		sigs:  make(map[string]FuncType, len(t.sigs)),
	}
	for k, v := range t.sigs {
		c.sigs[k] = v
	}
	return c
}
