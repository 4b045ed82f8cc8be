package sexy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nalgeon/be"
)

const fence = "```"

func TestExtractTestCases_Basic(t *testing.T) {
	markdown := `# Arithmetic

## Test: addition
` + fence + `wayto-expr
1 + 2
` + fence + `
` + fence + `ast
(binary "+" (integer 1) (integer 2))
` + fence + `

## Test: subtraction
` + fence + `wayto-expr
1 - 2
` + fence + `
` + fence + `types
(binary "-" (integer 1 Int) (integer 2 Int) Int)
` + fence + `
` + fence + `result
-1
` + fence

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 2)

	tc1 := testCases[0]
	be.Equal(t, tc1.Name, "addition")
	be.Equal(t, tc1.Input, "1 + 2")
	be.Equal(t, tc1.InputType, InputTypeExpr)
	be.Equal(t, len(tc1.Assertions), 1)
	be.Equal(t, tc1.Assertions[0].Type, AssertionTypeAST)
	be.Equal(t, tc1.Assertions[0].ParsedSexy.String(), `(binary "+" (integer 1) (integer 2))`)
	be.True(t, !tc1.NeedsExecution())

	tc2 := testCases[1]
	be.Equal(t, len(tc2.Assertions), 2)
	result, ok := tc2.Assertion(AssertionTypeResult)
	be.True(t, ok)
	be.Equal(t, result.Content, "-1")
	be.True(t, result.ParsedSexy == nil)
	be.True(t, tc2.NeedsExecution())
	_, ok = tc2.Assertion(AssertionTypeExecute)
	be.True(t, !ok)
}

func TestExtractTestCases_ProgramWithInput(t *testing.T) {
	markdown := `## Test: echo
` + fence + `wayto-program
fn main() {
    printcharln(readchar())
}
` + fence + `
` + fence + `input
q
` + fence + `
` + fence + `execute
q
` + fence

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 1)
	tc := testCases[0]
	be.Equal(t, tc.InputType, InputTypeProgram)
	be.Equal(t, tc.Input, "fn main() {\n    printcharln(readchar())\n}")
	be.Equal(t, tc.InputData, "q\n")
	be.Equal(t, len(tc.Assertions), 1)
	be.Equal(t, tc.Assertions[0].Content, "q")
}

func TestExtractTestCases_CompileErrorIsText(t *testing.T) {
	markdown := `## Test: bad call
` + fence + `wayto-program
fn main() { nope(1) }
` + fence + `
` + fence + `compile-error
UndefinedFunction: nope (
` + fence

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, testCases[0].Assertions[0].Content, "UndefinedFunction: nope (")
}

func TestExtractTestCases_Errors(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		expected string
	}{
		{
			"fence outside test",
			fence + "wayto-expr\n1\n" + fence + "\n",
			"line 2: wayto-expr fence found outside of test case",
		},
		{
			"unknown fence outside test",
			fence + "python\nprint(1)\n" + fence + "\n",
			"unknown fence language 'python' found outside of test case",
		},
		{
			"unknown fence in test",
			"## Test: x\n" + fence + "wayto-expr\n1\n" + fence + "\n" + fence + "bytecode\n(local)\n" + fence + "\n",
			"unknown fence language 'bytecode' in test 'x'",
		},
		{
			"missing input",
			"## Test: x\n" + fence + "ast\n(integer 1)\n" + fence + "\n",
			"test 'x' has no input fence",
		},
		{
			"missing assertion",
			"## Test: x\n" + fence + "wayto-expr\n1\n" + fence + "\n",
			"test 'x' has no assertion fences",
		},
		{
			"two inputs",
			"## Test: x\n" + fence + "wayto-expr\n1\n" + fence + "\n" + fence + "wayto-expr\n2\n" + fence + "\n",
			"line 6: multiple input fences found in test 'x'",
		},
		{
			"bad sexy",
			"## Test: x\n" + fence + "wayto-expr\n1\n" + fence + "\n" + fence + "ast\n(integer 1\n" + fence + "\n",
			"failed to parse Sexy assertion in test 'x'",
		},
		{
			"error in second test",
			"## Test: ok\n" + fence + "wayto-expr\n1\n" + fence + "\n" + fence + "result\n1\n" + fence + "\n\n## Test: broken\n",
			"test 'broken' has no input fence",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ExtractTestCases(test.markdown)
			be.Err(t, err, test.expected)
		})
	}
}

func TestExtractTestCases_PlainFencesAllowed(t *testing.T) {
	markdown := "# Notes\n\n" + fence + "\nnot a test\n" + fence + "\n\n## Test: x\n" +
		fence + "wayto-expr\n1\n" + fence + "\n" + fence + "\nalso ignored\n" + fence + "\n" +
		fence + "ast\n(integer 1)\n" + fence + "\n"

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 1)
	be.Equal(t, len(testCases[0].Assertions), 1)
}

func TestExtractTestCases_Empty(t *testing.T) {
	testCases, err := ExtractTestCases("")
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 0)

	testCases, err = ExtractTestCases("# Just a heading\n\nSome prose.\n")
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 0)
}

func TestExtractFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lit_test.md")
	content := "## Test: lit\n" + fence + "wayto-expr\n7\n" + fence + "\n" + fence + "ast\n(integer 7)\n" + fence + "\n"
	be.Err(t, os.WriteFile(path, []byte(content), 0o644), nil)

	testCases, err := ExtractFile(path)
	be.Err(t, err, nil)
	be.Equal(t, testCases[0].Name, "lit")
	be.Equal(t, testCases[0].Line, 1)
	be.Equal(t, testCases[0].Assertions[0].Line, 6)

	_, err = ExtractFile(filepath.Join(t.TempDir(), "missing.md"))
	be.True(t, err != nil)
}
