// Package vm implements the interpreter: the bytecode dispatch loop, the
// CALL/INVOKE calling convention, upvalue closing, the class system's
// runtime behavior, and cooperative fiber scheduling (spec §4.7, §4.8,
// §5). It is the component the rest of the compiled pipeline (lang/
// scanner -> lang/parser -> lang/optimizer -> lang/resolver -> lang/
// compiler) exists to feed: a value.ModuleObj in, a result Value (or a
// runtime error) out.
//
// The dispatch loop follows the teacher's lang/machine/machine.go shape
// (a single big switch over the current frame's opcode stream, an
// explicit operand-stack slice), with
// the stack and call-frame bookkeeping now living on value.FiberObj
// instead of a single machine.Thread, since Lit's fibers are first-class
// and a thread can swap between many of them.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/mna/lit/lang/value"
)

// maxCallDepth bounds recursion the same way the teacher's Thread.
// MaxCallStackDepth does, guarding against a runaway Go call stack (CALL
// handling for ordinary Lit functions does not recurse into Go, but a
// native function calling back into VM.Call does, once per nesting
// level).
const maxCallDepth = 1 << 12

// maxStackSlots is a fiber's value-stack capacity, reserved up front so
// that the slice's backing array never moves. UpvalueObj.Location stores
// a raw *Value into this array while the upvalue is open (spec §4.7's
// capture protocol); a reallocation would silently leave every open
// upvalue created so far pointing at stale memory, so fiber growth past
// this ceiling is reported as a stack-overflow runtime error rather than
// allowed to reallocate.
const maxStackSlots = 1 << 14

// VM is the interpreter state: the heap it allocates into, the set of
// well-known classes backing built-in value kinds (spec's Object,
// String, Array, Map, Range, Fiber), and the fiber currently running.
// VM implements value.Interp, the narrow capability surface native code
// is handed.
type VM struct {
	heap *value.Heap

	Stdout io.Writer
	Stderr io.Writer

	fiber *value.FiberObj

	objectClass *value.ClassObj

	// wellKnown maps each built-in value kind (String, Array, Map, Range,
	// Fiber) to the class governing its method lookup, so GET_FIELD/INVOKE
	// on a primitive value works the same way as on an Instance.
	wellKnown map[value.Kind]*value.ClassObj

	callDepth int
}

var _ value.Interp = (*VM)(nil)

// New returns a VM over a fresh heap, with the Object well-known class
// and the built-in String/Array/Map/Range/Fiber method tables installed
// (spec §4.8: "sets its super to the Object well-known class").
func New() *VM {
	heap := value.NewHeap()
	vm := &VM{
		heap:      heap,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		wellKnown: make(map[value.Kind]*value.ClassObj),
	}
	vm.objectClass = &value.ClassObj{
		Name:         "Object",
		Methods:      value.NewTable(4),
		StaticFields: value.NewTable(1),
		Init:         value.Null,
	}
	objVal := heap.Allocate(value.KindClass, vm.objectClass)
	heap.Globals().Set("Object", objVal)
	installBuiltins(vm)
	return vm
}

// Heap implements value.Interp.
func (vm *VM) Heap() *value.Heap { return vm.heap }

// CurrentFiber implements value.Interp.
func (vm *VM) CurrentFiber() *value.FiberObj { return vm.fiber }

// RuntimeError implements value.Interp: it formats msg into a
// *RuntimeError. When native code returns that error, propagate routes it
// through the same parent-chain catcher search a VM-detected error uses
// (spec §4.7's "Error path").
func (vm *VM) RuntimeError(format string, args ...any) error {
	return &RuntimeError{Message: fmt.Sprintf(format, args...)}
}

// RuntimeError is a Lit runtime error surfaced to Go (as opposed to a
// fiber-local error value, which is always a Lit String; see fiber.go's
// raise for that path). Interpret/Call return this when no fiber on
// the parent chain caught it.
type RuntimeError struct {
	Message string
	Trace   []string
}

func (e *RuntimeError) Error() string { return e.Message }

// stringify renders v for string concatenation, print, and error
// messages: numbers/booleans/null get their literal spelling, strings
// pass through untouched, and everything else falls back to its kind
// name.
func (vm *VM) stringify(v value.Value) string {
	switch {
	case v.IsNull():
		return "null"
	case v == value.True:
		return "true"
	case v == value.False:
		return "false"
	case v.IsNumber():
		return formatNumber(v.AsFloat())
	case v.IsObject():
		if s, ok := vm.asString(v); ok {
			return s
		}
		return "<" + vm.typeName(v) + ">"
	default:
		return ""
	}
}

// Call implements value.Interp: it invokes callee with args to
// completion and returns its result, re-entering the dispatch loop
// exactly as CALL would, so native code (operator overloads, field
// accessors) can call back into Lit closures.
func (vm *VM) Call(callee value.Value, args []value.Value) (value.Value, error) {
	if vm.fiber == nil {
		return value.Null, fmt.Errorf("vm: Call invoked with no running fiber")
	}
	f := vm.fiber
	watermark := len(f.Frames)
	base := len(f.Stack)
	f.Push(callee)
	for _, a := range args {
		f.Push(a)
	}
	if err := vm.callValue(f, base, len(args), false, true); err != nil {
		if ce, ok := err.(*caughtError); ok && ce.fiber == f {
			return ce.value, nil
		}
		return value.Null, err
	}
	if len(f.Frames) == watermark {
		// callValue resolved synchronously (native/class-with-no-init): the
		// result already replaced the call window.
		return f.Pop(), nil
	}
	result, err := vm.run(f, watermark)
	if err != nil {
		if ce, ok := err.(*caughtError); ok && ce.fiber == f {
			return ce.value, nil
		}
		if _, ok := err.(*yieldSignal); ok {
			return value.Null, vm.raise(f, "cannot yield across a native call boundary")
		}
		return value.Null, err
	}
	return result, nil
}
