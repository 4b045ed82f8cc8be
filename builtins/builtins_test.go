package builtins

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/wayto-lang/wayto/types"
)

func TestDefaultRegistry(t *testing.T) {
	be.Equal(t, Default.Names(), []string{"printint", "printchar", "printcharln", "printintln", "readchar"})
	for _, b := range Default {
		be.Equal(t, b.Sig.String(), "(Int) -> Int")
	}
}

func TestSeed(t *testing.T) {
	table, err := Default.NewSignatureTable()
	be.Err(t, err, nil)
	be.Equal(t, table.Names(), Default.Names())

	sig, ok := table.Lookup("readchar")
	be.True(t, ok)
	be.True(t, sig.Ret.Equal(types.Int()))

	be.Err(t, Default.Seed(table), "already defined")
}

func TestHostPrinting(t *testing.T) {
	var out bytes.Buffer
	host := Host(&out, nil)

	res, err := host["printint"]([]int64{-12})
	be.Err(t, err, nil)
	be.Equal(t, res, []int64{-12})
	_, _ = host["printintln"]([]int64{7})
	_, _ = host["printchar"]([]int64{'h'})
	_, _ = host["printcharln"]([]int64{'i'})

	be.Equal(t, out.String(), "-127\nhi\n")
}

func TestHostReadchar(t *testing.T) {
	host := Host(&bytes.Buffer{}, strings.NewReader("  a\n b"))
	read := func() int64 {
		res, err := host["readchar"]([]int64{0})
		be.Err(t, err, nil)
		return res[0]
	}
	be.Equal(t, read(), int64('a'))
	be.Equal(t, read(), int64('b'))
	be.Equal(t, read(), int64(-1))
}

func TestRuntimeDefinesEveryBuiltin(t *testing.T) {
	for _, name := range Default.Names() {
		be.True(t, strings.Contains(RuntimeC, "int64_t "+name+"("))
	}
}
