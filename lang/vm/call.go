package vm

import (
	"github.com/mna/lit/lang/value"
)

// callValue is CALL's entry point: calleeBase is the stack index of the
// callee itself (argv follows immediately after), argc is the number of
// arguments on top of it. It reads the callee and hands off to
// dispatchCall with methodStyle=false, the "plain function call" shape
// (spec §4.7's "CALL N expects [callee, arg1..argN]").
func (vm *VM) callValue(f *value.FiberObj, calleeBase, argc int, resultIgnored, returnToHost bool) error {
	callee := f.Stack[calleeBase]
	return vm.dispatchCall(f, callee, calleeBase, argc, resultIgnored, false, returnToHost)
}

// dispatchCall resolves callee to something invocable and carries out the
// call. calleeSlot is the stack index that, on return, gets overwritten
// with the single result value (collapsing the whole [callee/recv,
// arg1..argN] window, spec's calling convention). methodStyle is true
// when calleeSlot already holds the receiver (INVOKE, or a callee that
// rebinds to one, like BoundMethod/Class) rather than a bare callee that
// must be shifted out of the way.
func (vm *VM) dispatchCall(f *value.FiberObj, callee value.Value, calleeSlot, argc int, resultIgnored, methodStyle, returnToHost bool) error {
	if !callee.IsObject() {
		return vm.typeErrorf(f, "%s is not callable", vm.typeName(callee))
	}

	switch c := vm.heap.Object(callee).(type) {
	case *value.ClosureObj:
		return vm.pushFrame(f, c, c.Fn, calleeSlot, argc, methodStyle, resultIgnored, returnToHost, false, value.Null)

	case *value.FunctionObj:
		return vm.pushFrame(f, nil, c, calleeSlot, argc, methodStyle, resultIgnored, returnToHost, false, value.Null)

	case *value.BoundMethodObj:
		f.Stack[calleeSlot] = c.Receiver
		return vm.dispatchCall(f, c.Method, calleeSlot, argc, resultIgnored, true, returnToHost)

	case *value.ClassObj:
		return vm.construct(f, c, calleeSlot, argc, returnToHost)

	case *value.NativeFunctionObj:
		args := vm.collectArgs(f, calleeSlot+1, argc)
		result, err := c.Fn(vm, args)
		return vm.finishNative(f, calleeSlot, resultIgnored, result, err)

	case *value.NativePrimitiveObj:
		args := vm.collectArgs(f, calleeSlot+1, argc)
		result, ok, err := c.Fn(vm, args)
		if err == nil && !ok {
			return vm.typeErrorf(f, "primitive %q rejected its arguments", c.Name)
		}
		return vm.finishNative(f, calleeSlot, resultIgnored, result, err)

	case *value.NativeMethodObj:
		args := vm.collectArgs(f, calleeSlot, argc+1)
		result, err := c.Fn(vm, args)
		return vm.finishNative(f, calleeSlot, resultIgnored, result, err)

	case *value.PrimitiveMethodObj:
		args := vm.collectArgs(f, calleeSlot, argc+1)
		result, ok, err := c.Fn(vm, args)
		if err == nil && !ok {
			return vm.typeErrorf(f, "primitive method %q rejected its arguments", c.Name)
		}
		return vm.finishNative(f, calleeSlot, resultIgnored, result, err)

	default:
		return vm.typeErrorf(f, "%s is not callable", vm.typeName(callee))
	}
}

// finishNative completes a native/primitive call: a yieldSignal is
// annotated with where to resume (see startOrResumeFiber), any other
// error is routed through the fiber-local error path, and a clean result
// collapses the call window like any other callee.
func (vm *VM) finishNative(f *value.FiberObj, calleeSlot int, resultIgnored bool, result value.Value, err error) error {
	if err != nil {
		if ys, ok := err.(*yieldSignal); ok {
			f.PendingYieldSlot = calleeSlot
			f.PendingYieldIgnored = resultIgnored
			return ys
		}
		return vm.propagate(f, err)
	}
	vm.finishCall(f, calleeSlot, result, resultIgnored)
	return nil
}

// collectArgs copies a run of the fiber's stack out before the window is
// collapsed, since finishCall/pushFrame mutate f.Stack in place.
func (vm *VM) collectArgs(f *value.FiberObj, start, n int) []value.Value {
	if n == 0 {
		return nil
	}
	out := make([]value.Value, n)
	copy(out, f.Stack[start:start+n])
	return out
}

// finishCall collapses the call window (calleeSlot and everything above
// it) down to a single result value - the shape every non-Lit callee
// (native functions, primitives, a no-constructor class) leaves behind
// synchronously, without ever pushing a CallFrame.
func (vm *VM) finishCall(f *value.FiberObj, calleeSlot int, result value.Value, resultIgnored bool) {
	f.Stack = f.Stack[:calleeSlot]
	if !resultIgnored {
		f.Push(result)
	}
}

// construct allocates a fresh Instance of class, binds it as the
// receiver, and either calls init_method (the constructor) with it or,
// if the class defines none, returns the bare instance immediately
// (spec §4.7: "Class: allocate an Instance; if init_method is present,
// call it with the same arguments; result is the instance").
func (vm *VM) construct(f *value.FiberObj, class *value.ClassObj, calleeSlot, argc int, returnToHost bool) error {
	inst := &value.InstanceObj{Class: class, Fields: value.NewTable(4)}
	instVal := vm.heap.Allocate(value.KindInstance, inst)
	f.Stack[calleeSlot] = instVal

	if class.Init == value.Null {
		vm.finishCall(f, calleeSlot, instVal, false)
		return nil
	}

	switch c := vm.heap.Object(class.Init).(type) {
	case *value.ClosureObj:
		return vm.pushFrame(f, c, c.Fn, calleeSlot, argc, true, false, returnToHost, true, instVal)
	case *value.FunctionObj:
		return vm.pushFrame(f, nil, c, calleeSlot, argc, true, false, returnToHost, true, instVal)
	default:
		// A native constructor: call it for effect, then discard whatever it
		// returns in favor of the instance.
		if err := vm.dispatchCall(f, class.Init, calleeSlot, argc, true, true, returnToHost); err != nil {
			return err
		}
		vm.finishCall(f, calleeSlot, instVal, false)
		return nil
	}
}

// pushFrame installs a new CallFrame for a Lit-defined function/closure
// call, marshalling arguments (including the vararg collection, spec
// §4.7) into their local slots.
func (vm *VM) pushFrame(f *value.FiberObj, closure *value.ClosureObj, fn *value.FunctionObj, calleeSlot, argc int, methodStyle, resultIgnored, returnToHost, isCtor bool, ctorInstance value.Value) error {
	if vm.callDepth >= maxCallDepth || len(f.Frames) >= maxCallDepth {
		return vm.typeErrorf(f, "call stack overflow")
	}

	var base int
	if methodStyle {
		// calleeSlot already holds the receiver; it becomes local 0, and
		// argv (already sitting right after it) needs no shifting.
		base = calleeSlot
	} else {
		// Remove the bare callee value from the stack so arg1 becomes
		// local 0, keeping every frame's addressing uniform.
		copy(f.Stack[calleeSlot:], f.Stack[calleeSlot+1:])
		f.Stack = f.Stack[:len(f.Stack)-1]
		base = calleeSlot
	}

	thisSlots := 0
	if methodStyle {
		thisSlots = 1
	}
	arity := fn.Arity
	prefix := thisSlots + arity
	if fn.IsVararg {
		prefix++
	}

	have := argc // positional args actually passed, excluding the receiver
	if fn.IsVararg {
		named := arity - 1 // positional params before the vararg collector
		if named < 0 {
			named = 0
		}
		var extra []value.Value
		if have > named {
			extra = make([]value.Value, have-named)
			copy(extra, f.Stack[base+thisSlots+named:base+thisSlots+have])
		}
		arr := &value.ArrayObj{Elems: extra}
		arrVal := vm.heap.Allocate(value.KindArray, arr)

		want := base + prefix
		cur := base + thisSlots + have
		if have > named {
			// Truncate the raw trailing args already on the stack and replace
			// them with the single collected Array.
			f.Stack = f.Stack[:base+thisSlots+named]
			cur = len(f.Stack)
		}
		for cur < want-1 {
			f.Push(value.Null)
			cur++
		}
		f.Push(arrVal) // the named vararg parameter's own slot
		f.Push(value.Null) // the synthetic "..." padding slot (spec/resolver note: never read back)
	} else {
		want := base + prefix
		cur := base + thisSlots + have
		if cur > want {
			f.Stack = f.Stack[:want]
		} else {
			for cur < want {
				f.Push(value.Null)
				cur++
			}
		}
	}

	f.Frames = append(f.Frames, value.CallFrame{
		Closure:       closure,
		Function:      fn,
		IP:            0,
		StackBase:     base,
		ResultIgnored: resultIgnored,
		ReturnToHost:  returnToHost,
		IsCtor:        isCtor,
		CtorInstance:  ctorInstance,
	})

	maxTotal := base + prefix + fn.MaxSlots
	if maxTotal > len(f.Stack) {
		if maxTotal > cap(f.Stack) {
			return vm.typeErrorf(f, "stack overflow")
		}
		for len(f.Stack) < maxTotal {
			f.Push(value.Null)
		}
	}

	vm.callDepth++
	return nil
}
