package llvmobj

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/wayto-lang/wayto/ssa"
)

// DefaultLLC is the llc executable looked up on PATH.
const DefaultLLC = "llc"

// Error is an emission failure.
type Error struct {
	Msg    string
	Output string // llc diagnostics, if any
	Err    error
}

func (e *Error) Phase() string { return "emit" }

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Error() string {
	msg := "emit error: " + e.Msg
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Output != "" {
		msg += "\n" + e.Output
	}
	return msg
}

// Emitter produces native object files. It implements ssa.ObjectEmitter.
type Emitter struct {
	LLC    string // empty means DefaultLLC
	Triple string // empty means the host
}

var _ ssa.ObjectEmitter = (*Emitter)(nil)

// EmitLLVM returns the textual LLVM IR of m.
func (e *Emitter) EmitLLVM(m *ssa.Module) ([]byte, error) {
	mod, err := Translate(m, e.Triple)
	if err != nil {
		return nil, &Error{Msg: "translating to LLVM IR", Err: err}
	}
	return []byte(mod.String()), nil
}

// EmitObject writes the LLVM IR of m to a temporary directory and compiles
// it with llc.
func (e *Emitter) EmitObject(m *ssa.Module) ([]byte, error) {
	text, err := e.EmitLLVM(m)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "wayto-llc-")
	if err != nil {
		return nil, &Error{Msg: "creating work directory", Err: err}
	}
	defer os.RemoveAll(dir)

	llPath := filepath.Join(dir, "module.ll")
	objPath := filepath.Join(dir, "module.o")
	if err := os.WriteFile(llPath, text, 0o644); err != nil {
		return nil, &Error{Msg: "writing LLVM IR", Err: err}
	}

	llc := e.LLC
	if llc == "" {
		llc = DefaultLLC
	}
	args := []string{"-O0", "-filetype=obj", "-relocation-model=pic"}
	if e.Triple != "" {
		args = append(args, "-mtriple="+e.Triple)
	}
	args = append(args, "-o", objPath, llPath)

	var stderr bytes.Buffer
	cmd := exec.Command(llc, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &Error{Msg: "running " + llc, Output: stderr.String(), Err: err}
	}

	obj, err := os.ReadFile(objPath)
	if err != nil {
		return nil, &Error{Msg: "reading object", Err: errors.WithStack(err)}
	}
	return obj, nil
}

// TextEmitter makes Finish return LLVM IR text instead of an object.
type TextEmitter struct {
	Triple string
}

func (t TextEmitter) EmitObject(m *ssa.Module) ([]byte, error) {
	return (&Emitter{Triple: t.Triple}).EmitLLVM(m)
}
