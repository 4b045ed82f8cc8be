package main

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/peterh/liner"
	"github.com/pkg/errors"
)

// scriptedLines replays errs, then lines, and then reports end of input.
type scriptedLines struct {
	errs    []error
	lines   []string
	prompts []string
}

func (s *scriptedLines) Prompt(prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return "", err
	}
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func newTestSession(t *testing.T) (*session, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	s, err := newSession(&out)
	be.Err(t, err, nil)
	return s, &out
}

func TestSessionValues(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2", "3 : Int\n"},
		{"2 * (0 - 4)", "-8 : Int\n"},
		{"1 < 2", "true : Bool\n"},
		{"3 == 4", "false : Bool\n"},
		{"[1, 2]", "<array> : Array<Int>\n"},
		{"let x = 5; x * x", "25 : Int\n"},
		{"each i in 3 { printint(i) }", "123\n0 : Int\n"},
		{"printintln(7)", "7\n7 : Int\n"},
	}
	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			s, out := newTestSession(t)
			quit, err := s.eval(test.input)
			be.Err(t, err, nil)
			be.Equal(t, quit, false)
			be.Equal(t, out.String(), test.want)
		})
	}
}

func TestSessionDefinitions(t *testing.T) {
	s, out := newTestSession(t)
	_, err := s.eval("fn double(x: Int) { x * 2 }")
	be.Err(t, err, nil)
	be.Equal(t, out.String(), "defined double : (Int) -> Int\n")

	out.Reset()
	_, err = s.eval("fn quad(x: Int) { double(double(x)) }")
	be.Err(t, err, nil)
	out.Reset()
	_, err = s.eval("quad(5) + double(1)")
	be.Err(t, err, nil)
	be.Equal(t, out.String(), "22 : Int\n")

	_, err = s.eval("fn double(y: Int) { y }")
	be.Err(t, err, "DuplicateFunction")
}

func TestSessionFailedDefinitionIsDiscarded(t *testing.T) {
	s, _ := newTestSession(t)
	_, err := s.eval("fn a() { 1 } fn b() { missing() }")
	be.Err(t, err, "UndefinedFunction")
	_, err = s.eval("a()")
	be.Err(t, err, `undefined function "a"`)
	_, err = s.eval("fn a() { 2 }")
	be.Err(t, err, nil)
}

func TestSessionReservedName(t *testing.T) {
	s, _ := newTestSession(t)
	_, err := s.eval("fn __eval() { 1 }")
	be.Err(t, err, "__eval is reserved")
}

func TestSessionCommands(t *testing.T) {
	s, out := newTestSession(t)
	_, err := s.eval(":type [true, false]")
	be.Err(t, err, nil)
	be.Equal(t, out.String(), "Array<Bool>\n")

	_, err = s.eval(":type")
	be.Err(t, err, "usage: :type <expr>")

	_, err = s.eval(":frob")
	be.Err(t, err, "unknown command :frob")

	quit, err := s.eval(":quit")
	be.Err(t, err, nil)
	be.Equal(t, quit, true)
}

func TestSessionErrors(t *testing.T) {
	s, _ := newTestSession(t)
	_, err := s.eval("1 + true")
	be.Err(t, err, "TypeMismatch")
	_, err = s.eval("1 +")
	be.Err(t, err, "syntax error")
}

func TestReadInputContinuesIncompleteInput(t *testing.T) {
	r := &scriptedLines{lines: []string{"fn inc(x: Int) {", "x + 1", "}", "2"}}
	src, ok := readInput(r, promptMain, promptCont)
	be.True(t, ok)
	be.Equal(t, src, "fn inc(x: Int) {\nx + 1\n}")
	be.Equal(t, r.prompts, []string{promptMain, promptCont, promptCont})

	src, ok = readInput(r, promptMain, promptCont)
	be.True(t, ok)
	be.Equal(t, src, "2")

	_, ok = readInput(r, promptMain, promptCont)
	be.True(t, !ok)
}

func TestReadInputStopsOnSyntaxError(t *testing.T) {
	r := &scriptedLines{lines: []string{"1 2"}}
	src, ok := readInput(r, promptMain, promptCont)
	be.True(t, ok)
	be.Equal(t, src, "1 2")
}

func TestREPLLoop(t *testing.T) {
	r := &scriptedLines{lines: []string{
		"fn sq(x: Int) {",
		"  x * x }",
		"sq(",
		"9)",
		"nope",
		":quit",
		"1",
	}}
	s, out := newTestSession(t)
	var stderr bytes.Buffer
	var history []string
	repl(r, s, &stderr, func(line string) { history = append(history, line) })

	be.Equal(t, out.String(), "defined sq : (Int) -> Int\n81 : Int\n")
	be.True(t, strings.Contains(stderr.String(), "UndefinedVariable"))
	be.Equal(t, history, []string{"fn sq(x: Int) {   x * x }", "sq( 9)"})
	be.Equal(t, len(r.lines), 1)
}

func TestREPLEndsAtEOF(t *testing.T) {
	s, out := newTestSession(t)
	var stderr bytes.Buffer
	repl(&scriptedLines{lines: []string{"3"}}, s, &stderr, nil)
	be.Equal(t, out.String(), "3 : Int\n\n")
	be.Equal(t, stderr.String(), "")
}

func TestReadInputAbortDiscardsPendingInput(t *testing.T) {
	r := &scriptedLines{errs: []error{liner.ErrPromptAborted}, lines: []string{"4"}}
	src, ok := readInput(r, promptMain, promptCont)
	be.True(t, ok)
	be.Equal(t, src, "")

	src, ok = readInput(r, promptMain, promptCont)
	be.True(t, ok)
	be.Equal(t, src, "4")
}

func TestReadInputEndsOnPromptError(t *testing.T) {
	terminalGone := errors.New("terminal gone")
	r := &scriptedLines{errs: []error{terminalGone, terminalGone}, lines: []string{"4"}}
	_, ok := readInput(r, promptMain, promptCont)
	be.True(t, !ok)
	be.Equal(t, len(r.prompts), 1)
}

func TestREPLEndsOnPromptError(t *testing.T) {
	errs := make([]error, 100)
	for i := range errs {
		errs[i] = errors.New("terminal gone")
	}
	r := &scriptedLines{errs: errs}
	s, out := newTestSession(t)
	var stderr bytes.Buffer
	repl(r, s, &stderr, nil)
	be.Equal(t, len(r.prompts), 1)
	be.Equal(t, out.String(), "\n")
	be.Equal(t, stderr.String(), "")
}
