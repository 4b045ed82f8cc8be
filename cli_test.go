package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"WAYTO_OUTPUT", "WAYTO_ENTRY", "WAYTO_EMIT", "WAYTO_LLC", "WAYTO_TRIPLE", "WAYTO_VERBOSE"} {
		if v, ok := os.LookupEnv(name); ok {
			os.Unsetenv(name)
			t.Cleanup(func() { os.Setenv(name, v) })
		}
	}
}

// writeSource writes src to a fresh directory and returns its path.
func writeSource(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.wt")
	be.Err(t, os.WriteFile(path, []byte(src), 0o644), nil)
	return path
}

func runCLI(t *testing.T, stdin string, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	clearEnv(t)
	var out, errb bytes.Buffer
	code = runMain(args, strings.NewReader(stdin), &out, &errb)
	return code, out.String(), errb.String()
}

const squareProgram = `fn square(x: Int) { x * x }
fn main() {
    each i in 3 { printintln(square(i)) };
    0
}
`

func TestNoArguments(t *testing.T) {
	code, _, stderr := runCLI(t, "")
	be.Equal(t, code, 1)
	be.True(t, strings.Contains(stderr, "Usage:"))
}

func TestHelp(t *testing.T) {
	code, stdout, _ := runCLI(t, "", "help")
	be.Equal(t, code, 0)
	be.True(t, strings.Contains(stdout, "Commands:"))
	be.True(t, strings.Contains(stdout, "repl"))
}

func TestUnknownCommand(t *testing.T) {
	code, stdout, stderr := runCLI(t, "", "frobnicate", "x.wt")
	be.Equal(t, code, 1)
	be.Equal(t, stdout, "")
	be.True(t, strings.Contains(stderr, "Unknown command: frobnicate"))
	be.True(t, strings.Contains(stderr, "Usage:"))
}

func TestMissingFileArgument(t *testing.T) {
	code, _, stderr := runCLI(t, "", "run")
	be.Equal(t, code, 1)
	be.True(t, strings.Contains(stderr, "expected exactly one file argument"))
	be.True(t, strings.Contains(stderr, "Usage: wayto run"))
}

func TestCommandHelpFlag(t *testing.T) {
	code, _, stderr := runCLI(t, "", "build", "-h")
	be.Equal(t, code, 0)
	be.True(t, strings.Contains(stderr, "-emit"))
}

func TestRun(t *testing.T) {
	code, stdout, stderr := runCLI(t, "", "run", writeSource(t, squareProgram))
	be.Equal(t, stderr, "")
	be.Equal(t, code, 0)
	be.Equal(t, stdout, "1\n4\n9\n")
}

func TestRunReadsStdin(t *testing.T) {
	src := writeSource(t, `fn main() { printcharln(readchar(0) + 1) }`)
	code, stdout, _ := runCLI(t, "  a", "run", src)
	be.Equal(t, code, 0)
	be.Equal(t, stdout, "b\n")
}

func TestRunVerbose(t *testing.T) {
	code, _, stderr := runCLI(t, "", "run", "-v", writeSource(t, squareProgram))
	be.Equal(t, code, 0)
	be.True(t, strings.Contains(stderr, "parsed 2 functions"))
	be.True(t, strings.Contains(stderr, "result: 0"))
}

func TestRunWithoutEntry(t *testing.T) {
	code, _, stderr := runCLI(t, "", "run", writeSource(t, `fn helper() { 1 }`))
	be.Equal(t, code, 1)
	be.True(t, strings.Contains(stderr, `no function "main" to run`))
}

func TestRunTypeError(t *testing.T) {
	src := writeSource(t, `fn main() { y + 1 }`)
	code, _, stderr := runCLI(t, "", "run", src)
	be.Equal(t, code, 1)
	be.True(t, strings.Contains(stderr, src+": type checking"))
	be.True(t, strings.Contains(stderr, "UndefinedVariable"))
}

func TestRunSyntaxError(t *testing.T) {
	code, _, stderr := runCLI(t, "", "run", writeSource(t, `fn main() { 1 + }`))
	be.Equal(t, code, 1)
	be.True(t, strings.Contains(stderr, ": parsing"))
	be.True(t, strings.Contains(stderr, "syntax error at 1:17"))
}

func TestRunMissingFile(t *testing.T) {
	code, _, stderr := runCLI(t, "", "run", filepath.Join(t.TempDir(), "nope.wt"))
	be.Equal(t, code, 1)
	be.True(t, strings.Contains(stderr, "reading"))
}

func TestLex(t *testing.T) {
	code, stdout, _ := runCLI(t, "", "lex", writeSource(t, "fn main() { 1 }"))
	be.Equal(t, code, 0)
	lines := strings.Split(strings.TrimRight(stdout, "\n"), "\n")
	be.Equal(t, lines[0], "1:1\tFN\tfn")
	be.Equal(t, lines[1], "1:4\tIDENT\tmain")
	be.Equal(t, lines[len(lines)-1], "1:16\tEOF\t")
}

func TestAst(t *testing.T) {
	code, stdout, _ := runCLI(t, "", "ast", writeSource(t, "fn main() { 1 + 2 }"))
	be.Equal(t, code, 0)
	be.Equal(t, stdout, `(func "main" () (binary "+" (integer 1) (integer 2)))`+"\n")
}

func TestType(t *testing.T) {
	code, stdout, _ := runCLI(t, "", "type", writeSource(t, squareProgram))
	be.Equal(t, code, 0)
	be.Equal(t, stdout, "square : (Int) -> Int\nmain : () -> Int\n")
}

func TestSSA(t *testing.T) {
	code, stdout, _ := runCLI(t, "", "ssa", writeSource(t, squareProgram))
	be.Equal(t, code, 0)
	be.True(t, strings.Contains(stdout, "function %square"))
	be.True(t, strings.Contains(stdout, "function %main"))
	be.True(t, strings.Contains(stdout, "function %printintln"))
}

func TestLLVM(t *testing.T) {
	code, stdout, _ := runCLI(t, "", "llvm", writeSource(t, squareProgram))
	be.Equal(t, code, 0)
	be.True(t, strings.Contains(stdout, "define internal i64 @square("))
	be.True(t, strings.Contains(stdout, "define i64 @main("))
}

func TestBuildEmitsLLVM(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out", "prog.ll")
	code, _, stderr := runCLI(t, "", "build", "-emit", "llvm", "-o", out, writeSource(t, squareProgram))
	be.Equal(t, stderr, "")
	be.Equal(t, code, 0)
	text, err := os.ReadFile(out)
	be.Err(t, err, nil)
	be.True(t, strings.Contains(string(text), "declare i64 @printintln("))
}

func TestBuildUsesConfigFile(t *testing.T) {
	src := writeSource(t, squareProgram)
	out := filepath.Join(t.TempDir(), "prog.ssa")
	cfg := "emit: ssa\noutput: " + out + "\n"
	be.Err(t, os.WriteFile(filepath.Join(filepath.Dir(src), "wayto.yaml"), []byte(cfg), 0o644), nil)

	code, _, stderr := runCLI(t, "", "build", src)
	be.Equal(t, stderr, "")
	be.Equal(t, code, 0)
	text, err := os.ReadFile(out)
	be.Err(t, err, nil)
	be.True(t, strings.Contains(string(text), "export function %main"))
}

func TestBuildInvalidEmit(t *testing.T) {
	code, _, stderr := runCLI(t, "", "build", "-emit", "exe", writeSource(t, squareProgram))
	be.Equal(t, code, 1)
	be.True(t, strings.Contains(stderr, "emit must be one of obj, llvm, ssa"))
}

func TestBuildMissingLLC(t *testing.T) {
	src := writeSource(t, squareProgram)
	clearEnv(t)
	t.Setenv("WAYTO_LLC", "wayto-no-such-llc")
	var out, errb bytes.Buffer
	code := runMain([]string{"build", "-o", filepath.Join(t.TempDir(), "x.o"), src}, strings.NewReader(""), &out, &errb)
	be.Equal(t, code, 1)
	be.True(t, strings.Contains(errb.String(), "emitting obj"))
	be.True(t, strings.Contains(errb.String(), "running wayto-no-such-llc"))
}
