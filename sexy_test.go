package main

import (
	"bytes"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/wayto-lang/wayto/builtins"
	"github.com/wayto-lang/wayto/check"
	"github.com/wayto-lang/wayto/codegen"
	"github.com/wayto-lang/wayto/sexy"
	"github.com/wayto-lang/wayto/ssa"
	"github.com/wayto-lang/wayto/syntax"
	"github.com/wayto-lang/wayto/types"
)

func TestSexyAllTests(t *testing.T) {
	testFiles, err := filepath.Glob("testdata/*_test.md")
	be.Err(t, err, nil)
	be.True(t, len(testFiles) > 0)

	for _, testFile := range testFiles {
		testName := strings.TrimSuffix(filepath.Base(testFile), ".md")

		t.Run(testName, func(t *testing.T) {
			testCases, err := sexy.ExtractFile(testFile)
			be.Err(t, err, nil)

			for _, tc := range testCases {
				t.Run(tc.Name, func(t *testing.T) {
					runSexyTest(t, tc)
				})
			}
		})
	}
}

// sexyRun carries one test case through the pipeline, stopping at the
// first error.
type sexyRun struct {
	tc    sexy.TestCase
	expr  *syntax.ASTNode
	funcs []*syntax.Func
	typed []*check.TypedFunc
	body  *check.TypedNode
	err   error
}

func runSexyTest(t *testing.T, tc sexy.TestCase) {
	r := &sexyRun{tc: tc}
	r.parse()
	if a, ok := tc.Assertion(sexy.AssertionTypeAST); ok {
		be.Err(t, r.err, nil)
		assertSexy(t, a, r.astSExpr())
	}

	r.check()
	if a, ok := tc.Assertion(sexy.AssertionTypeTypes); ok {
		be.Err(t, r.err, nil)
		assertSexy(t, a, r.typesSExpr())
	}

	wantErr, hasErr := tc.Assertion(sexy.AssertionTypeCompileError)
	var out string
	var result int64
	if tc.NeedsExecution() || hasErr {
		out, result = r.execute()
	}

	if hasErr {
		if r.err == nil {
			t.Fatalf("line %d: expected error containing %q, compiled fine", wantErr.Line, wantErr.Content)
		}
		be.Err(t, r.err, wantErr.Content)
		return
	}
	be.Err(t, r.err, nil)

	if a, ok := tc.Assertion(sexy.AssertionTypeExecute); ok {
		be.Equal(t, strings.TrimRight(out, "\n"), a.Content)
	}
	if a, ok := tc.Assertion(sexy.AssertionTypeResult); ok {
		be.Equal(t, strconv.FormatInt(result, 10), a.Content)
	}
}

func (r *sexyRun) parse() {
	switch r.tc.InputType {
	case sexy.InputTypeExpr:
		r.expr, r.err = syntax.ParseExpr([]byte(r.tc.Input))
	default:
		r.funcs, r.err = syntax.Parse([]byte(r.tc.Input))
	}
}

func (r *sexyRun) check() {
	if r.err != nil {
		return
	}
	sigs, err := builtins.Default.NewSignatureTable()
	if err != nil {
		r.err = err
		return
	}
	if r.expr != nil {
		r.body, r.err = check.NewChecker(sigs).CheckExpr(r.expr, nil)
		if r.err == nil {
			r.typed = []*check.TypedFunc{{
				Name: codegen.DefaultEntry,
				Sig:  types.FuncType{Ret: r.body.Type},
				Body: r.body,
				Pos:  r.body.Pos,
			}}
		}
		return
	}
	r.typed, r.err = check.CheckProgram(r.funcs, sigs)
}

// execute compiles the checked program and runs main with the test's
// input on stdin.
func (r *sexyRun) execute() (string, int64) {
	if r.err != nil {
		return "", 0
	}
	m := ssa.NewModule("test", nil)
	c, err := codegen.NewCompiler(m, builtins.Default, "")
	if err != nil {
		r.err = err
		return "", 0
	}
	if r.err = c.CompileProgram(r.typed); r.err != nil {
		return "", 0
	}
	if _, ok := m.Lookup(codegen.DefaultEntry); !ok {
		return "", 0
	}
	var out bytes.Buffer
	results, err := ssa.NewInterp(m, builtins.Host(&out, strings.NewReader(r.tc.InputData))).Call(codegen.DefaultEntry)
	if err != nil {
		r.err = err
		return out.String(), 0
	}
	return out.String(), results[0]
}

func (r *sexyRun) astSExpr() string {
	if r.expr != nil {
		return syntax.ToSExpr(r.expr)
	}
	return syntax.ProgramToSExpr(r.funcs)
}

// typesSExpr renders the typed expression, or (program (sig name type) ...)
// for a whole program.
func (r *sexyRun) typesSExpr() string {
	if r.body != nil {
		return check.ToSExpr(r.body)
	}
	parts := []string{"program"}
	for _, fn := range r.typed {
		parts = append(parts, "(sig "+strconv.Quote(fn.Name)+" "+strconv.Quote(fn.Sig.String())+")")
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func assertSexy(t *testing.T, a sexy.Assertion, actualText string) {
	t.Helper()
	actual, err := sexy.Parse(actualText)
	if err != nil {
		t.Fatalf("line %d: cannot read compiler output %s: %v", a.Line, actualText, err)
	}
	if msg := sexy.Mismatch(a.ParsedSexy, actual); msg != "" {
		t.Errorf("line %d: %s\nexpected: %s\nactual:   %s", a.Line, msg, a.ParsedSexy, actual)
	}
}
