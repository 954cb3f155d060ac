package maincmd

import (
	"context"
	"os"

	"github.com/mna/lit/lang/compiler"
	"github.com/mna/lit/lang/errcode"
	"github.com/mna/lit/lang/optimizer"
	"github.com/mna/lit/lang/preprocess"
	"github.com/mna/lit/lang/token"
	"github.com/mna/lit/lang/value"
	"github.com/mna/lit/lang/vm"
	"github.com/mna/mainer"
)

// Dump compiles the file named by args[0] and writes a disassembly
// listing of its bytecode to stdout, without executing it.
func (c *Cmd) Dump(ctx context.Context, stdio mainer.Stdio, args []string) error {
	mod, heap, err := compileOnly(args[0])
	if err != nil {
		return err
	}
	compiler.Disassemble(stdio.Stdout, heap, mod.Main)
	return nil
}

// compileOnly runs the preprocess -> parse -> optimize -> resolve ->
// emit pipeline over the file at path without starting a fiber, shared
// by Dump and Compile since neither wants Run's execution step.
func compileOnly(path string) (*value.ModuleObj, *value.Heap, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	heap := value.NewHeap()
	pp := &preprocess.Preprocessor{}
	fset := token.NewFileSet()
	file := fset.AddFile(path, len(src))

	var perrs []vm.CompileError
	clean, ok := pp.Process(file, src, func(pos token.Position, code errcode.Code, msg string) {
		perrs = append(perrs, vm.CompileError{Pos: pos, Code: code, Msg: msg})
	})
	if !ok {
		return nil, nil, &compileFailure{errs: perrs}
	}

	mod, cerrs := vm.LoadModule(heap, path, clean, *optimizer.NewOptions(optimizer.LevelDebug))
	if len(cerrs) > 0 {
		return nil, nil, &compileFailure{errs: cerrs}
	}
	return mod, heap, nil
}
