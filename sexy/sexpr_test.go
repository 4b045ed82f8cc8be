package sexy

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestParseAtoms(t *testing.T) {
	tests := []struct {
		input    string
		typ      NodeType
		text     string
		rendered string
	}{
		{"hello", NodeSymbol, "hello", "hello"},
		{"func-name", NodeSymbol, "func-name", "func-name"},
		{"Array<Array<Int>>", NodeSymbol, "Array<Array<Int>>", "Array<Array<Int>>"},
		{"+", NodeSymbol, "+", "+"},
		{`"hello world"`, NodeString, "hello world", `"hello world"`},
		{`""`, NodeString, "", `""`},
		{`"test\"quote"`, NodeString, `test"quote`, `"test\"quote"`},
		{`"a\nb"`, NodeString, "a\nb", `"a` + "\n" + `b"`},
		{"42", NodeInteger, "42", "42"},
		{"-123", NodeInteger, "-123", "-123"},
		{"+456", NodeInteger, "+456", "+456"},
	}

	for _, test := range tests {
		result, err := Parse(test.input)
		be.Err(t, err, nil)
		be.Equal(t, result.Type, test.typ)
		be.Equal(t, result.Text, test.text)
		be.Equal(t, result.String(), test.rendered)
	}
}

func TestParseCollections(t *testing.T) {
	result, err := Parse(`(binary "+" (integer 1) (ident "x" Int) Int)`)
	be.Err(t, err, nil)
	be.Equal(t, result.Type, NodeList)
	be.Equal(t, len(result.Items), 5)
	be.Equal(t, result.Items[2].Items[1].Text, "1")
	be.Equal(t, result.String(), `(binary "+" (integer 1) (ident "x" Int) Int)`)

	result, err = Parse(`[1 2 ...]`)
	be.Err(t, err, nil)
	be.Equal(t, result.Type, NodeArray)
	be.Equal(t, result.Items[2].Type, NodeEllipsis)
	be.Equal(t, result.String(), "[1 2 ...]")

	result, err = Parse("()")
	be.Err(t, err, nil)
	be.Equal(t, len(result.Items), 0)
}

func TestParseComments(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"; comment\nhello", "hello"},
		{"hello ; trailing comment", "hello"},
		{"(test ; inline comment\n world)", "(test world)"},
	}

	for _, test := range tests {
		result, err := Parse(test.input)
		be.Err(t, err, nil)
		be.Equal(t, result.String(), test.expected)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"unterminated string`, "unterminated string"},
		{`"invalid \escape"`, "invalid escape sequence"},
		{".", "unexpected character '.'"},
		{"@", "unexpected character '@'"},
		{"{}", "unexpected character '{'"},
		{"(", "expected ')' but got EOF"},
		{"[1 2", "expected ']' but got EOF"},
		{")", "unexpected token: ')'"},
		{"hello world", "expected EOF but got symbol"},
		{"(test) more", "expected EOF but got symbol"},
	}

	for _, test := range tests {
		_, err := Parse(test.input)
		be.Err(t, err, test.expected)
	}
}

func mustParse(t *testing.T, s string) *Node {
	t.Helper()
	n, err := Parse(s)
	be.Err(t, err, nil)
	return n
}

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		actual  string
		want    bool
	}{
		{`(integer 1)`, `(integer 1)`, true},
		{`(integer 1)`, `(integer 2)`, false},
		{`(integer "1")`, `(integer 1)`, false},
		{`...`, `(call "f" (integer 1))`, true},
		{`(call "f" ...)`, `(call "f")`, true},
		{`(call "f" ...)`, `(call "f" (integer 1) (integer 2))`, true},
		{`(call "g" ...)`, `(call "f" (integer 1))`, false},
		{`(then ... (ident "x"))`, `(then (let "x" (integer 1)) (ident "x"))`, true},
		{`(then ... (ident "y"))`, `(then (let "x" (integer 1)) (ident "x"))`, false},
		{`(a b)`, `(a b c)`, false},
		{`(a b c)`, `(a b)`, false},
		{`[1 ... 3]`, `[1 2 2 3]`, true},
		{`[1 2]`, `(1 2)`, false},
	}

	for _, test := range tests {
		got := Match(mustParse(t, test.pattern), mustParse(t, test.actual))
		be.Equal(t, got, test.want)
	}
}

func TestMismatch(t *testing.T) {
	pattern := mustParse(t, `(binary "+" (integer 1) (integer 2))`)
	be.Equal(t, Mismatch(pattern, mustParse(t, `(binary "+" (integer 1) (integer 2))`)), "")
	be.Equal(t, Mismatch(pattern, mustParse(t, `(binary "+" (integer 1) (integer 3))`)),
		"at root[3][1]: expected 2, got 3")
	be.Equal(t, Mismatch(pattern, mustParse(t, `(ident "x")`)),
		`at root: expected (binary "+" (integer 1) (integer 2)), got (ident "x")`)
	be.Equal(t, Mismatch(mustParse(t, `(integer 1)`), mustParse(t, `"one"`)),
		`at root: expected list (integer 1), got string "one"`)
}

func TestNodeHelpers(t *testing.T) {
	be.True(t, NewSymbol("x").IsAtom())
	be.True(t, NewEllipsis().IsAtom())
	be.True(t, !NewList(nil).IsAtom())
	be.Equal(t, NewList([]*Node{NewSymbol("len"), NewString("xs")}).String(), `(len "xs")`)
	be.Equal(t, NewArray([]*Node{NewInteger("1")}).String(), "[1]")
}
