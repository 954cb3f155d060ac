package vm

import "github.com/mna/lit/lang/value"

// caughtError is the control-flow signal a raised error turns into once
// vm.raise finds a fiber on the parent chain with HasCatcher set (spec
// §4.7's "Error path": "that fiber resumes with the error as the return
// value"). It bubbles up through every vm.run call nested between the
// error site and the catching fiber's own fiberRun invocation, which is
// the only one that resolves it back into an ordinary return value.
type caughtError struct {
	fiber *value.FiberObj
	value value.Value
}

func (e *caughtError) Error() string { return "lit: uncaught fiber error reached a catcher" }

// yieldSignal is the control-flow signal Fiber.yield produces: it
// unwinds exactly one level, back to the fiberRun call that started or
// last resumed the yielding fiber (spec §4.7's Fiber.yield "transfers
// control to the parent, delivering v as the yielded value").
type yieldSignal struct {
	fiber *value.FiberObj
	value value.Value
}

func (e *yieldSignal) Error() string { return "lit: fiber yield" }

// raise is the single entry point for every runtime error (VM-detected
// or native-reported): it records the message on every fiber from f up
// to the first one with HasCatcher set, and returns the corresponding
// control-flow signal - a *caughtError naming the catching fiber, or,
// once the walk reaches a nil Parent with no catcher found, a plain
// *RuntimeError that has no further fiber to resume into (spec §4.7,
// §7's top-level {status: runtime_error} result).
func (vm *VM) raise(f *value.FiberObj, msg string) error {
	errVal := vm.heap.InternString(msg)
	for cur := f; cur != nil; cur = cur.Parent {
		cur.Error = errVal
		if cur.HasCatcher {
			cur.IsAborting = false
			return &caughtError{fiber: cur, value: errVal}
		}
		cur.IsAborting = true
	}
	return &RuntimeError{Message: msg}
}

// startOrResumeFiber implements both Fiber.run and Fiber.try: on a fiber
// that has never executed, it pushes target's Entry callable as the
// first frame; on a suspended (yielded) fiber, it delivers args as the
// result of the pending Fiber.yield call and continues from exactly
// where execution left off. Either way it runs target to completion, to
// its own yield, or to an error only it (or an ancestor of it) catches.
func (vm *VM) startOrResumeFiber(target *value.FiberObj, args []value.Value, isTry bool) (value.Value, error) {
	if target.IsAborting {
		return value.Null, vm.typeErrorf(vm.fiber, "cannot resume a fiber that has aborted")
	}
	if target.Yeeted {
		return value.Null, vm.typeErrorf(vm.fiber, "cannot resume a fiber that has yeeted")
	}

	prev := vm.fiber
	target.Parent = prev
	target.HasCatcher = isTry
	target.LastArgc = len(args)
	vm.fiber = target

	var runErr error
	if len(target.Frames) == 0 {
		base := len(target.Stack)
		target.Push(target.Entry)
		for _, a := range args {
			target.Push(a)
		}
		runErr = vm.callValue(target, base, len(args), false, true)
	} else {
		var resumeVal value.Value
		switch len(args) {
		case 0:
			resumeVal = value.Null
		case 1:
			resumeVal = args[0]
		default:
			arr := &value.ArrayObj{Elems: append([]value.Value(nil), args...)}
			resumeVal = vm.heap.Allocate(value.KindArray, arr)
		}
		vm.finishCall(target, target.PendingYieldSlot, resumeVal, target.PendingYieldIgnored)
	}
	target.Started = true

	var result value.Value
	if runErr == nil {
		result, runErr = vm.run(target, 0)
	}

	vm.fiber = prev

	if runErr != nil {
		if ce, ok := runErr.(*caughtError); ok {
			if ce.fiber == target {
				return ce.value, nil
			}
			return value.Null, ce
		}
		if ys, ok := runErr.(*yieldSignal); ok {
			if ys.fiber == target {
				vm.fiber = prev
				return ys.value, nil
			}
			return value.Null, ys
		}
		return value.Null, runErr
	}
	return result, nil
}

// fiberYield is Fiber.yield's native implementation. It cannot itself
// suspend a Go call stack, so it reports the yield as a control-flow
// signal that unwinds through dispatchCall and vm.run back to the
// fiberRun call currently driving this fiber (startOrResumeFiber), the
// only place that can legally observe and resolve it; a yield attempted
// from inside a nested native callback (vm.Call reentrancy rather than
// true fiber-level dispatch) is rejected there instead.
func fiberYield(interp value.Interp, args []value.Value) (value.Value, error) {
	vm := interp.(*VM)
	f := vm.fiber
	var v value.Value
	if len(args) > 0 {
		v = args[0]
	} else {
		v = value.Null
	}
	return value.Null, &yieldSignal{fiber: f, value: v}
}

// fiberYeet is Fiber.yeet's native implementation (original_source's
// libfiber.cpp): a fire-and-forget yield for generators that are
// abandoned rather than driven to completion - the fiber suspends like
// Fiber.yield but is flagged so a later run/try is rejected instead of
// silently resuming stale state.
func fiberYeet(interp value.Interp, args []value.Value) (value.Value, error) {
	vm := interp.(*VM)
	f := vm.fiber
	f.Yeeted = true
	var v value.Value
	if len(args) > 0 {
		v = args[0]
	} else {
		v = value.Null
	}
	return value.Null, &yieldSignal{fiber: f, value: v}
}

func fiberAbort(interp value.Interp, args []value.Value) (value.Value, error) {
	vm := interp.(*VM)
	msg := "fiber aborted"
	if len(args) > 0 {
		msg = vm.stringify(args[0])
	}
	return value.Null, vm.raise(vm.fiber, msg)
}

func fiberNew(interp value.Interp, args []value.Value) (value.Value, error) {
	vm := interp.(*VM)
	if len(args) == 0 || !args[0].IsObject() {
		return value.Null, vm.RuntimeError("Fiber.new expects a function")
	}
	fib := value.NewFiber(args[0], vm.fiber.Module)
	v := vm.heap.Allocate(value.KindFiber, fib)
	vm.heap.RegisterFiber(fib)
	return v, nil
}

func fiberRunMethod(interp value.Interp, args []value.Value) (value.Value, error) {
	vm := interp.(*VM)
	fib := vm.heap.Object(args[0]).(*value.FiberObj)
	return vm.startOrResumeFiber(fib, args[1:], false)
}

func fiberTryMethod(interp value.Interp, args []value.Value) (value.Value, error) {
	vm := interp.(*VM)
	fib := vm.heap.Object(args[0]).(*value.FiberObj)
	return vm.startOrResumeFiber(fib, args[1:], true)
}

func fiberIsDoneMethod(interp value.Interp, args []value.Value) (value.Value, error) {
	vm := interp.(*VM)
	fib := vm.heap.Object(args[0]).(*value.FiberObj)
	done := fib.Started && len(fib.Frames) == 0
	return value.Bool(done), nil
}
