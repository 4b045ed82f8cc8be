package types

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestTypeEquality(t *testing.T) {
	be.True(t, Int().Equal(Int()))
	be.True(t, !Int().Equal(Bool()))
	be.True(t, ArrayOf(Int()).Equal(ArrayOf(Int())))
	be.True(t, !ArrayOf(Int()).Equal(ArrayOf(Bool())))
	be.True(t, ArrayOf(ArrayOf(Bool())).Equal(ArrayOf(ArrayOf(Bool()))))
	be.True(t, !ArrayOf(Int()).Equal(Int()))
}

func TestTypeString(t *testing.T) {
	be.Equal(t, Int().String(), "Int")
	be.Equal(t, Float().String(), "Float")
	be.Equal(t, ArrayOf(ArrayOf(Bool())).String(), "Array<Array<Bool>>")
	be.Equal(t, Type{}.String(), "<invalid>")
}

func TestParse(t *testing.T) {
	for _, name := range []string{"Int", "Float", "Bool", "Array<Int>", "Array<Array<Float>>"} {
		typ, err := Parse(name)
		be.Err(t, err, nil)
		be.Equal(t, typ.String(), name)
	}

	_, err := Parse("String")
	be.Err(t, err, "unknown type")
	_, err = Parse("Array<Nope>")
	be.Err(t, err, "unknown type")
}

func TestContains(t *testing.T) {
	be.True(t, ArrayOf(Float()).Contains(KindFloat))
	be.True(t, !ArrayOf(Int()).Contains(KindFloat))
	be.True(t, Float().Contains(KindFloat))
}

func TestFuncTypeString(t *testing.T) {
	sig := FuncType{Params: []Type{Int(), ArrayOf(Bool())}, Ret: Int()}
	be.Equal(t, sig.String(), "(Int, Array<Bool>) -> Int")
	be.Equal(t, FuncType{Ret: Bool()}.String(), "() -> Bool")
}

func TestSignatureTable(t *testing.T) {
	table := NewSignatureTable()
	be.Err(t, table.Register("add", FuncType{Params: []Type{Int(), Int()}, Ret: Int()}), nil)
	be.Err(t, table.Register("not", FuncType{Params: []Type{Bool()}, Ret: Bool()}), nil)

	sig, ok := table.Lookup("add")
	be.True(t, ok)
	be.Equal(t, len(sig.Params), 2)

	_, ok = table.Lookup("missing")
	be.True(t, !ok)

	err := table.Register("add", FuncType{Ret: Int()})
	be.Err(t, err, "already defined")

	be.Equal(t, table.Names(), []string{"add", "not"})
}

func TestSignatureTableCloneIsIndependent(t *testing.T) {
	table := NewSignatureTable()
	be.Err(t, table.Register("f", FuncType{Ret: Int()}), nil)

	clone := table.Clone()
	be.Err(t, clone.Register("g", FuncType{Ret: Int()}), nil)

	be.Equal(t, table.Len(), 1)
	be.Equal(t, clone.Len(), 2)
	_, ok := table.Lookup("g")
	be.True(t, !ok)
}
