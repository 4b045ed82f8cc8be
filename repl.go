package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/pkg/errors"
	"github.com/wayto-lang/wayto/builtins"
	"github.com/wayto-lang/wayto/check"
	"github.com/wayto-lang/wayto/codegen"
	"github.com/wayto-lang/wayto/ssa"
	"github.com/wayto-lang/wayto/syntax"
	"github.com/wayto-lang/wayto/types"
)

const (
	historyFile = ".wayto_history"
	promptMain  = "wayto> "
	promptCont  = "  ...> "

	// evalFunc is the name of the function wrapping each evaluated expression.
	evalFunc = "__eval"
	// maxEvalSteps bounds the interpreter for one REPL input.
	maxEvalSteps = 50_000_000
)

const banner = "wayto REPL\nCtrl+C cancels input, Ctrl+D exits. Type :quit to exit."

const helpText = `REPL commands:
  fn name(...) { ... }   Define a function for the rest of the session
  <expr>                 Evaluate an expression and print it with its type
  :type <expr>           Print the type of an expression
  :help                  Show this help
  :quit                  Exit the REPL
`

// session holds the functions defined so far.
type session struct {
	sigs  *types.SignatureTable
	funcs []*check.TypedFunc
	out   io.Writer
}

func newSession(out io.Writer) (*session, error) {
	sigs, err := builtins.Default.NewSignatureTable()
	if err != nil {
		return nil, err
	}
	return &session{sigs: sigs, out: out}, nil
}

// eval handles one complete input and writes its result to s.out.
// It reports whether the session should end.
func (s *session) eval(input string) (quit bool, err error) {
	input = strings.TrimSpace(input)
	switch {
	case input == "":
		return false, nil
	case input == ":quit":
		return true, nil
	case input == ":help":
		fmt.Fprint(s.out, helpText)
		return false, nil
	case strings.HasPrefix(input, ":type"):
		expr := strings.TrimSpace(strings.TrimPrefix(input, ":type"))
		if expr == "" {
			return false, errors.New("usage: :type <expr>")
		}
		typed, err := s.checkExpr(expr)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(s.out, typed.Type)
		return false, nil
	case strings.HasPrefix(input, ":"):
		return false, errors.Errorf("unknown command %s. Type :help for help", input)
	case isDefinition(input):
		return false, s.define(input)
	default:
		return false, s.evalExpr(input)
	}
}

func isDefinition(input string) bool {
	l := syntax.NewLexer([]byte(input))
	l.NextToken()
	return l.CurrTokenType == syntax.FN
}

// define checks the functions in input against a copy of the session's
// signatures and keeps them only if all of them check.
func (s *session) define(input string) error {
	funcs, err := syntax.Parse([]byte(input))
	if err != nil {
		return err
	}
	for _, fn := range funcs {
		if fn.Name == evalFunc {
			return errors.Errorf("%s is reserved", evalFunc)
		}
	}
	checker := check.NewChecker(s.sigs.Clone())
	typed, err := checker.CheckProgram(funcs)
	if err != nil {
		return err
	}
	s.sigs = checker.Signatures()
	s.funcs = append(s.funcs, typed...)
	for _, fn := range typed {
		fmt.Fprintf(s.out, "defined %s : %s\n", fn.Name, fn.Sig)
	}
	return nil
}

func (s *session) checkExpr(src string) (*check.TypedNode, error) {
	node, err := syntax.ParseExpr([]byte(src))
	if err != nil {
		return nil, err
	}
	return check.NewChecker(s.sigs.Clone()).CheckExpr(node, nil)
}

// evalExpr compiles the expression into a function alongside the session's
// functions and runs it on the interpreter.
func (s *session) evalExpr(src string) error {
	body, err := s.checkExpr(src)
	if err != nil {
		return err
	}
	fn := &check.TypedFunc{
		Name: evalFunc,
		Sig:  types.FuncType{Ret: body.Type},
		Body: body,
		Pos:  body.Pos,
	}

	m := ssa.NewModule("repl", nil)
	c, err := codegen.NewCompiler(m, builtins.Default, evalFunc)
	if err != nil {
		return err
	}
	if err := c.CompileProgram(append(append([]*check.TypedFunc(nil), s.funcs...), fn)); err != nil {
		return err
	}

	out := &trackingWriter{w: s.out}
	in := ssa.NewInterp(m, builtins.Host(out, nil))
	in.MaxSteps = maxEvalSteps
	results, err := in.Call(evalFunc)
	if err != nil {
		return err
	}
	if out.dirty {
		fmt.Fprintln(s.out)
	}
	fmt.Fprintf(s.out, "%s : %s\n", formatValue(results[0], body.Type), body.Type)
	return nil
}

func formatValue(v int64, t types.Type) string {
	switch t.Kind {
	case types.KindBool:
		return strconv.FormatBool(v != 0)
	case types.KindArray:
		return "<array>"
	default:
		return strconv.FormatInt(v, 10)
	}
}

// trackingWriter records whether the last byte written was not a newline.
type trackingWriter struct {
	w     io.Writer
	dirty bool
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	if len(p) > 0 {
		t.dirty = p[len(p)-1] != '\n'
	}
	return t.w.Write(p)
}

// lineReader is the part of liner.State the REPL loop uses.
type lineReader interface {
	Prompt(prompt string) (string, error)
}

// readInput reads lines until they form a complete definition or
// expression. Ctrl+C discards the pending input. Any other prompt
// error, io.EOF included, ends input and returns false.
func readInput(r lineReader, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = r.Prompt(prompt)
		} else {
			line, err = r.Prompt(cont)
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := strings.TrimSpace(b.String())
		if src == "" || strings.HasPrefix(src, ":") {
			return src, true
		}
		if isIncomplete(src) {
			continue
		}
		return src, true
	}
}

func isIncomplete(src string) bool {
	var err error
	if isDefinition(src) {
		_, err = syntax.Parse([]byte(src))
	} else {
		_, err = syntax.ParseExpr([]byte(src))
	}
	return syntax.IsIncomplete(err)
}

// repl runs the read-eval-print loop over r until :quit or end of input.
func repl(r lineReader, s *session, stderr io.Writer, record func(string)) {
	for {
		code, ok := readInput(r, promptMain, promptCont)
		if !ok {
			fmt.Fprintln(s.out)
			return
		}
		quit, err := s.eval(code)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			continue
		}
		if quit {
			return
		}
		if code != "" && record != nil {
			record(strings.ReplaceAll(code, "\n", " "))
		}
	}
}

func runREPL(stdout, stderr io.Writer) int {
	fmt.Fprintln(stdout, banner)

	s, err := newSession(stdout)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	repl(ln, s, stderr, ln.AppendHistory)
	return 0
}
