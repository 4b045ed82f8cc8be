// Package types describes the value types of the language and the table of
// function signatures shared by the checker and the code generator.
package types

import (
	"fmt"
	"strings"
)

// Kind identifies the shape of a Type.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindBool
	KindArray
)

// Type is a value type. Arrays carry their element type, fixed at
// construction. The zero Type is invalid.
type Type struct {
	Kind Kind
	Elem *Type // KindArray only
}

func Int() Type   { return Type{Kind: KindInt} }
func Float() Type { return Type{Kind: KindFloat} }
func Bool() Type  { return Type{Kind: KindBool} }

// ArrayOf returns the type of arrays holding elem.
func ArrayOf(elem Type) Type {
	e := elem
	return Type{Kind: KindArray, Elem: &e}
}

func (t Type) IsValid() bool { return t.Kind != KindInvalid }
func (t Type) IsArray() bool { return t.Kind == KindArray }

// Equal reports structural equality.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	if t.Kind != KindArray {
		return true
	}
	if t.Elem == nil || o.Elem == nil {
		return t.Elem == o.Elem
	}
	return t.Elem.Equal(*o.Elem)
}

// Contains reports whether t is k or is an array whose elements
// (transitively) are k.
func (t Type) Contains(k Kind) bool {
	if t.Kind == k {
		return true
	}
	if t.Kind == KindArray && t.Elem != nil {
		return t.Elem.Contains(k)
	}
	return false
}

func (t Type) String() string {
	switch t.Kind {
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindBool:
		return "Bool"
	case KindArray:
		if t.Elem == nil {
			return "Array<?>"
		}
		return "Array<" + t.Elem.String() + ">"
	default:
		return "<invalid>"
	}
}

// Parse converts a type name such as "Int" or "Array<Array<Bool>>" into a
// Type.
func Parse(name string) (Type, error) {
	s := strings.TrimSpace(name)
	switch s {
	case "Int":
		return Int(), nil
	case "Float":
		return Float(), nil
	case "Bool":
		return Bool(), nil
	}
	if strings.HasPrefix(s, "Array<") && strings.HasSuffix(s, ">") {
		elem, err := Parse(s[len("Array<") : len(s)-1])
		if err != nil {
			return Type{}, err
		}
		return ArrayOf(elem), nil
	}
	return Type{}, fmt.Errorf("unknown type %q", name)
}

// FuncType is the signature of a callable: ordered parameter types and one
// return type.
type FuncType struct {
	Params []Type
	Ret    Type
}

func (f FuncType) Equal(o FuncType) bool {
	if len(f.Params) != len(o.Params) || !f.Ret.Equal(o.Ret) {
		return false
	}
	for i := range f.Params {
		if !f.Params[i].Equal(o.Params[i]) {
			return false
		}
	}
	return true
}

func (f FuncType) String() string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.String()
	}
	return "(" + strings.Join(params, ", ") + ") -> " + f.Ret.String()
}
