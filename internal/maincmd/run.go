package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/lit/lang/preprocess"
	"github.com/mna/lit/lang/scanner"
	"github.com/mna/lit/lang/vm"
	"github.com/mna/lit/lib"
	"github.com/mna/mainer"
)

// compileFailure reports a batch of compile-time diagnostics (spec
// §6.4's compile error = 65).
type compileFailure struct {
	errs []vm.CompileError
}

func (e *compileFailure) Error() string {
	return fmt.Sprintf("%d compile error(s)", len(e.errs))
}

// runtimeFailure reports an uncaught runtime error (spec §6.4's
// runtime error = 70).
type runtimeFailure struct {
	err error
}

func (e *runtimeFailure) Error() string { return e.err.Error() }

// Run compiles and executes the file named by args[0] on a fresh VM. The
// module's result value is not printed; only compile and runtime errors
// are reported.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	src, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	scanner.MaxInterpolationNesting = c.Config.MaxInterpolationNesting

	pp := &preprocess.Preprocessor{}
	machine := vm.New()
	machine.Stdout = stdio.Stdout
	machine.Stderr = stdio.Stderr
	lib.Install(machine)

	res := machine.Interpret(args[0], src, pp)
	switch res.Status {
	case vm.StatusCompileError:
		return &compileFailure{errs: res.Errors}
	case vm.StatusRuntimeError:
		return &runtimeFailure{err: res.Err}
	default:
		return nil
	}
}
