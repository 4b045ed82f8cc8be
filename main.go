package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/wayto-lang/wayto/builtins"
	"github.com/wayto-lang/wayto/check"
	"github.com/wayto-lang/wayto/codegen"
	"github.com/wayto-lang/wayto/config"
	"github.com/wayto-lang/wayto/llvmobj"
	"github.com/wayto-lang/wayto/ssa"
	"github.com/wayto-lang/wayto/syntax"
)

// driver runs the compilation pipeline for one source file.
type driver struct {
	cfg    config.Config
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// logf prints a progress line to stderr when verbose output is enabled.
func (d *driver) logf(format string, args ...any) {
	if d.cfg.Verbose {
		fmt.Fprintf(d.stderr, format+"\n", args...)
	}
}

func (d *driver) readSource(path string) ([]byte, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	d.logf("read %s (%d bytes)", path, len(src))
	return src, nil
}

func (d *driver) parse(path string) ([]*syntax.Func, error) {
	src, err := d.readSource(path)
	if err != nil {
		return nil, err
	}
	funcs, err := syntax.Parse(src)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: parsing", path)
	}
	d.logf("parsed %d functions", len(funcs))
	return funcs, nil
}

func (d *driver) check(path string) ([]*check.TypedFunc, error) {
	funcs, err := d.parse(path)
	if err != nil {
		return nil, err
	}
	sigs, err := builtins.Default.NewSignatureTable()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	typed, err := check.CheckProgram(funcs, sigs)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: type checking", path)
	}
	if !hasFunc(typed, d.cfg.Entry) {
		d.logf("warning: %s defines no function %q", path, d.cfg.Entry)
	}
	return typed, nil
}

// compile lowers path into a module whose Finish hands it to emitter.
func (d *driver) compile(path string, emitter ssa.ObjectEmitter) (*ssa.Module, error) {
	typed, err := d.check(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	m := ssa.NewModule(name, emitter)
	c, err := codegen.NewCompiler(m, builtins.Default, d.cfg.Entry)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: declaring builtins", path)
	}
	if err := c.CompileProgram(typed); err != nil {
		return nil, errors.Wrapf(err, "%s: code generation", path)
	}
	d.logf("generated %d functions", len(typed))
	return m, nil
}

// emitter selects the object emitter for the configured output format.
func (d *driver) emitter() ssa.ObjectEmitter {
	switch d.cfg.Emit {
	case config.EmitSSA:
		return ssa.TextEmitter{}
	case config.EmitLLVM:
		return llvmobj.TextEmitter{Triple: d.cfg.Triple}
	default:
		return &llvmobj.Emitter{LLC: d.cfg.LLC, Triple: d.cfg.Triple}
	}
}

// build runs the whole pipeline and writes the result to cfg.Output.
func (d *driver) build(path string) error {
	m, err := d.compile(path, d.emitter())
	if err != nil {
		return err
	}
	out, err := m.Finish()
	if err != nil {
		return errors.Wrapf(err, "%s: emitting %s", path, d.cfg.Emit)
	}
	if dir := filepath.Dir(d.cfg.Output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "creating output directory")
		}
	}
	if err := os.WriteFile(d.cfg.Output, out, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", d.cfg.Output)
	}
	d.logf("wrote %s (%d bytes)", d.cfg.Output, len(out))
	return nil
}

// run compiles path and executes the entry function on the interpreter.
func (d *driver) run(path string) (int64, error) {
	m, err := d.compile(path, nil)
	if err != nil {
		return 0, err
	}
	if _, ok := m.Lookup(d.cfg.Entry); !ok {
		return 0, errors.Errorf("%s: no function %q to run", path, d.cfg.Entry)
	}
	in := ssa.NewInterp(m, builtins.Host(d.stdout, d.stdin))
	results, err := in.Call(d.cfg.Entry)
	if err != nil {
		return 0, errors.Wrapf(err, "%s: running %s", path, d.cfg.Entry)
	}
	d.logf("%s returned after %d steps", d.cfg.Entry, in.Steps())
	if len(results) == 0 {
		return 0, nil
	}
	d.logf("result: %d", results[0])
	return results[0], nil
}

// lex prints one token per line.
func (d *driver) lex(path string) error {
	src, err := d.readSource(path)
	if err != nil {
		return err
	}
	l := syntax.NewLexer(src)
	for l.NextToken(); ; l.NextToken() {
		if l.Errors.HasErrors() {
			return errors.Wrapf(l.Errors.First(), "%s: lexing", path)
		}
		fmt.Fprintf(d.stdout, "%s\t%s\t%s\n", l.CurrPos, l.CurrTokenType, l.CurrLiteral)
		if l.CurrTokenType == syntax.EOF {
			return nil
		}
	}
}

func (d *driver) ast(path string) error {
	funcs, err := d.parse(path)
	if err != nil {
		return err
	}
	for _, fn := range funcs {
		fmt.Fprintln(d.stdout, syntax.FuncToSExpr(fn))
	}
	return nil
}

// types prints the signature of each defined function.
func (d *driver) types(path string) error {
	typed, err := d.check(path)
	if err != nil {
		return err
	}
	for _, fn := range typed {
		fmt.Fprintf(d.stdout, "%s : %s\n", fn.Name, fn.Sig)
	}
	return nil
}

func (d *driver) printSSA(path string) error {
	m, err := d.compile(path, nil)
	if err != nil {
		return err
	}
	fmt.Fprint(d.stdout, m.String())
	return nil
}

func (d *driver) printLLVM(path string) error {
	m, err := d.compile(path, nil)
	if err != nil {
		return err
	}
	text, err := (&llvmobj.Emitter{Triple: d.cfg.Triple}).EmitLLVM(m)
	if err != nil {
		return errors.Wrapf(err, "%s: translating to LLVM", path)
	}
	_, err = d.stdout.Write(text)
	return err
}

func hasFunc(funcs []*check.TypedFunc, name string) bool {
	for _, fn := range funcs {
		if fn.Name == name {
			return true
		}
	}
	return false
}

func main() {
	os.Exit(runMain(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
