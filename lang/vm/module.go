package vm

import (
	"fmt"

	"github.com/mna/lit/lang/compiler"
	"github.com/mna/lit/lang/errcode"
	"github.com/mna/lit/lang/optimizer"
	"github.com/mna/lit/lang/parser"
	"github.com/mna/lit/lang/preprocess"
	"github.com/mna/lit/lang/resolver"
	"github.com/mna/lit/lang/token"
	"github.com/mna/lit/lang/value"
)

// CompileError is one error recorded by the scan/parse/resolve/emit
// pipeline (spec §6.3's diagnostic shape: a source position, a stable
// Code a host can switch on, and a human-readable message).
type CompileError struct {
	Pos  token.Position
	Code errcode.Code
	Msg  string
}

func (e CompileError) String() string { return fmt.Sprintf("%s: %s", e.Pos, e.Msg) }

// Status is the top-level outcome of Interpret (spec §7's {status: ok |
// compile_error | runtime_error} result shape).
type Status int

const (
	StatusOK Status = iota
	StatusCompileError
	StatusRuntimeError
)

// Result is Interpret's return value: exactly one of Value (StatusOK),
// Errors (StatusCompileError) or Err (StatusRuntimeError) is meaningful.
type Result struct {
	Status Status
	Value  value.Value
	Errors []CompileError
	Err    error
}

// LoadModule runs the full static pipeline over src - parse, optimize,
// resolve, emit - producing a ready-to-run value.ModuleObj, or the list
// of diagnostics collected along the way (spec §6.1's embedding
// contract: "compiling never partially runs user code").
//
// Preprocessing (spec §4.3's #define/#ifdef pass, lang/preprocess) runs
// over src before it reaches the scanner; LoadModule takes already
// preprocessed source so callers can choose whether to run it.
func LoadModule(heap *value.Heap, moduleName string, src []byte, opts optimizer.Options) (*value.ModuleObj, []CompileError) {
	var errs []CompileError
	record := func(pos token.Position, code errcode.Code, msg string) {
		errs = append(errs, CompileError{Pos: pos, Code: code, Msg: msg})
	}

	fset := token.NewFileSet()
	file := fset.AddFile(moduleName, len(src))

	chunk, err := parser.Parse(file, src, record)
	if err != nil || len(errs) > 0 {
		return nil, errs
	}

	optimizer.Optimize(chunk, &opts)

	info, err := resolver.Resolve(chunk, record)
	if err != nil || len(errs) > 0 {
		return nil, errs
	}

	emitOpts := compiler.Options{
		StripLineInfo:     opts.Enabled(optimizer.LineInfo),
		StripPrivateNames: opts.Enabled(optimizer.PrivateNames),
	}
	mod, cerr := compiler.Compile(heap, moduleName, chunk, info, emitOpts, record)
	if cerr != nil || len(errs) > 0 {
		return nil, errs
	}

	heap.RegisterModule(moduleName, mod)
	return mod, nil
}

// Interpret preprocesses (spec §4.3's #define/#ifdef pass), loads and
// runs src as a fresh module on a fresh root fiber, converting every
// outcome - a clean result, an uncaught runtime error, or a batch of
// compile diagnostics - into the single Result shape the embedding API
// promises (spec §7). pp may be nil, equivalent to an empty
// Preprocessor with nothing #define'd.
func (vm *VM) Interpret(moduleName string, src []byte, pp *preprocess.Preprocessor) *Result {
	var errs []CompileError
	record := func(pos token.Position, code errcode.Code, msg string) {
		errs = append(errs, CompileError{Pos: pos, Code: code, Msg: msg})
	}

	fset := token.NewFileSet()
	file := fset.AddFile(moduleName, len(src))

	if pp == nil {
		pp = &preprocess.Preprocessor{}
	}
	clean, ok := pp.Process(file, src, record)
	if !ok || len(errs) > 0 {
		return &Result{Status: StatusCompileError, Errors: errs}
	}

	mod, errs := LoadModule(vm.heap, moduleName, clean, *optimizer.NewOptions(optimizer.LevelDebug))
	if len(errs) > 0 {
		return &Result{Status: StatusCompileError, Errors: errs}
	}
	return vm.Run(mod)
}

// Run starts mod's Main function on a fresh root fiber and drives it to
// completion.
func (vm *VM) Run(mod *value.ModuleObj) *Result {
	mainVal := vm.heap.ValueOf(mod.Main)
	fiber := value.NewFiber(mainVal, mod)
	vm.heap.RegisterFiber(fiber)
	mod.Ran = true

	result, err := vm.startOrResumeFiber(fiber, nil, false)
	vm.heap.UnregisterFiber(fiber)
	if err != nil {
		if ce, ok := err.(*caughtError); ok {
			return &Result{Status: StatusRuntimeError, Err: fmt.Errorf("%s", vm.stringify(ce.value))}
		}
		return &Result{Status: StatusRuntimeError, Err: err}
	}
	return &Result{Status: StatusOK, Value: result}
}
