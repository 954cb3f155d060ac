package vm

import (
	comp "github.com/mna/lit/lang/compiler"
	"github.com/mna/lit/lang/value"
)

// run is the dispatch loop (spec §4.7/§5): it executes f's current frame
// chain until either len(f.Frames) drops to watermark (the frame the
// caller was waiting on returned) or a frame tagged ReturnToHost returns
// (the boundary a reentrant Interp.Call/fiber resume is watching for),
// whichever comes first, mirroring the teacher's lang/machine.run's
// single-big-switch shape over an explicit operand stack.
//
// A *yieldSignal or *caughtError returned here is not a fatal Go error:
// it is a control-flow signal the caller (VM.Call, startOrResumeFiber,
// or Interpret) is expected to recognize and resolve.
func (vm *VM) run(f *value.FiberObj, watermark int) (value.Value, error) {
	for {
		if len(f.Frames) <= watermark {
			if len(f.Stack) == 0 {
				return value.Null, nil
			}
			return f.Peek(0), nil
		}

		frame := &f.Frames[len(f.Frames)-1]
		fn := frame.Function
		code := fn.Chunk.Code
		ip := frame.IP
		op := comp.Opcode(code[ip])
		ip++

		switch op {
		case comp.NOP:

		case comp.POP:
			f.Pop()

		case comp.POP_LOCALS:
			n := int(code[ip])
			ip++
			f.Stack = f.Stack[:len(f.Stack)-n]

		case comp.RETURN:
			ret := f.Pop()
			if frame.IsCtor {
				ret = frame.CtorInstance
			}
			base := frame.StackBase
			resultIgnored := frame.ResultIgnored
			toHost := frame.ReturnToHost
			vm.closeUpvalues(f, base)
			f.Stack = f.Stack[:base]
			f.Frames = f.Frames[:len(f.Frames)-1]
			vm.callDepth--
			if !resultIgnored {
				f.Push(ret)
			}
			if len(f.Frames) <= watermark || toHost {
				return ret, nil
			}
			continue

		case comp.CONSTANT:
			idx := int(code[ip])
			ip++
			f.Push(fn.Chunk.Constants[idx])

		case comp.CONSTANT_LONG:
			idx := readU16(code, ip)
			ip += 2
			f.Push(fn.Chunk.Constants[idx])

		case comp.TRUE:
			f.Push(value.True)
		case comp.FALSE:
			f.Push(value.False)
		case comp.NULL:
			f.Push(value.Null)

		case comp.NEGATE:
			v, err := vm.negate(f, f.Peek(0))
			if err != nil {
				return value.Null, err
			}
			f.Stack[len(f.Stack)-1] = v

		case comp.NOT:
			f.Stack[len(f.Stack)-1] = value.Bool(!f.Peek(0).Truthy())

		case comp.BNOT:
			v, err := vm.bnot(f, f.Peek(0))
			if err != nil {
				return value.Null, err
			}
			f.Stack[len(f.Stack)-1] = v

		case comp.ADD, comp.SUBTRACT, comp.MULTIPLY, comp.POWER, comp.DIVIDE,
			comp.FLOOR_DIVIDE, comp.MOD, comp.BAND, comp.BOR, comp.BXOR,
			comp.LSHIFT, comp.RSHIFT, comp.GREATER, comp.GREATER_EQUAL,
			comp.LESS, comp.LESS_EQUAL:
			b := f.Pop()
			a := f.Peek(0)
			frame.IP = ip
			result, err := vm.binaryOp(f, binOpName(op), a, b)
			if err != nil {
				return value.Null, err
			}
			f.Stack[len(f.Stack)-1] = result
			ip = frame.IP

		case comp.EQUAL:
			b := f.Pop()
			a := f.Peek(0)
			frame.IP = ip
			eq, err := vm.equal(a, b)
			if err != nil {
				return value.Null, err
			}
			f.Stack[len(f.Stack)-1] = value.Bool(eq)
			ip = frame.IP

		case comp.SET_GLOBAL:
			idx := readU16(code, ip)
			ip += 2
			name := vm.constantName(fn, idx)
			vm.heap.Globals().Set(name, f.Peek(0))

		case comp.GET_GLOBAL:
			idx := readU16(code, ip)
			ip += 2
			name := vm.constantName(fn, idx)
			v, ok := vm.heap.Globals().Get(name)
			if !ok {
				frame.IP = ip
				return value.Null, vm.typeErrorf(f, "undefined global %q", name)
			}
			f.Push(v)

		case comp.SET_LOCAL:
			idx := int(code[ip])
			ip++
			f.Stack[frame.StackBase+idx] = f.Peek(0)
		case comp.SET_LOCAL_LONG:
			idx := readU16(code, ip)
			ip += 2
			f.Stack[frame.StackBase+idx] = f.Peek(0)
		case comp.GET_LOCAL:
			idx := int(code[ip])
			ip++
			f.Push(f.Stack[frame.StackBase+idx])
		case comp.GET_LOCAL_LONG:
			idx := readU16(code, ip)
			ip += 2
			f.Push(f.Stack[frame.StackBase+idx])

		case comp.SET_PRIVATE:
			idx := int(code[ip])
			ip++
			fn.Module.Privates[idx] = f.Peek(0)
		case comp.SET_PRIVATE_LONG:
			idx := readU16(code, ip)
			ip += 2
			fn.Module.Privates[idx] = f.Peek(0)
		case comp.GET_PRIVATE:
			idx := int(code[ip])
			ip++
			f.Push(fn.Module.Privates[idx])
		case comp.GET_PRIVATE_LONG:
			idx := readU16(code, ip)
			ip += 2
			f.Push(fn.Module.Privates[idx])

		case comp.SET_UPVALUE:
			idx := int(code[ip])
			ip++
			frame.Closure.Upvalues[idx].Set(f.Peek(0))
		case comp.GET_UPVALUE:
			idx := int(code[ip])
			ip++
			f.Push(frame.Closure.Upvalues[idx].Get())

		case comp.JUMP:
			disp := readU16(code, ip)
			ip += 2 + disp
		case comp.JUMP_BACK:
			disp := readU16(code, ip)
			ip = ip + 2 - disp
		case comp.JUMP_IF_FALSE:
			disp := readU16(code, ip)
			ip += 2
			if !f.Peek(0).Truthy() {
				ip += disp
			}
		case comp.JUMP_IF_NULL:
			disp := readU16(code, ip)
			ip += 2
			if f.Peek(0).IsNull() {
				ip += disp
			}
		case comp.JUMP_IF_NULL_POPPING:
			disp := readU16(code, ip)
			ip += 2
			if f.Pop().IsNull() {
				ip += disp
			}

		case comp.AND:
			b := f.Pop()
			a := f.Peek(0)
			f.Stack[len(f.Stack)-1] = value.Bool(a.Truthy() && b.Truthy())
		case comp.OR:
			b := f.Pop()
			a := f.Peek(0)
			f.Stack[len(f.Stack)-1] = value.Bool(a.Truthy() || b.Truthy())
		case comp.NULL_OR:
			b := f.Pop()
			a := f.Peek(0)
			if a.IsNull() {
				f.Stack[len(f.Stack)-1] = b
			}

		case comp.CALL:
			argc := int(code[ip])
			ip++
			calleeBase := len(f.Stack) - 1 - argc
			frame.IP = ip
			if err := vm.callValue(f, calleeBase, argc, false, false); err != nil {
				return value.Null, err
			}
			continue

		case comp.CLOSURE:
			idx := readU16(code, ip)
			ip += 2
			closedFn := vm.heap.Object(fn.Chunk.Constants[idx]).(*value.FunctionObj)
			closure := &value.ClosureObj{Fn: closedFn, Upvalues: make([]*value.UpvalueObj, closedFn.UpvalueCount)}
			for i := 0; i < closedFn.UpvalueCount; i++ {
				isLocal := code[ip]
				ip++
				uidx := readU16(code, ip)
				ip += 2
				if isLocal == 1 {
					closure.Upvalues[i] = vm.captureUpvalue(f, frame.StackBase+uidx)
				} else {
					closure.Upvalues[i] = frame.Closure.Upvalues[uidx]
				}
			}
			f.Push(vm.heap.Allocate(value.KindClosure, closure))

		case comp.CLOSE_UPVALUE:
			idx := len(f.Stack) - 1
			vm.closeUpvalues(f, idx)
			f.Pop()

		case comp.CLASS:
			idx := readU16(code, ip)
			ip += 2
			name := vm.constantName(fn, idx)
			class := &value.ClassObj{
				Name:         name,
				Super:        vm.objectClass,
				Methods:      value.NewTable(4),
				StaticFields: value.NewTable(1),
				Init:         value.Null,
			}
			f.Push(vm.heap.Allocate(value.KindClass, class))

		case comp.INHERIT:
			superVal := f.Pop()
			classVal := f.Peek(0)
			superObj, ok := vm.heap.Object(superVal).(*value.ClassObj)
			if !ok {
				frame.IP = ip
				return value.Null, vm.typeErrorf(f, "cannot inherit from non-class %s", vm.typeName(superVal))
			}
			classObj := vm.heap.Object(classVal).(*value.ClassObj)
			vm.inherit(classObj, superObj)

		case comp.GET_FIELD:
			idx := readU16(code, ip)
			ip += 2
			name := vm.constantName(fn, idx)
			frame.IP = ip
			v, err := vm.getField(f, f.Peek(0), name)
			if err != nil {
				return value.Null, err
			}
			f.Stack[len(f.Stack)-1] = v
			ip = frame.IP

		case comp.SET_FIELD:
			idx := readU16(code, ip)
			ip += 2
			name := vm.constantName(fn, idx)
			val := f.Pop()
			recv := f.Peek(0)
			frame.IP = ip
			if err := vm.setField(f, recv, name, val); err != nil {
				return value.Null, err
			}
			f.Stack[len(f.Stack)-1] = val
			ip = frame.IP

		case comp.SUBSCRIPT_GET:
			i := f.Pop()
			x := f.Peek(0)
			frame.IP = ip
			v, err := vm.subscriptGet(f, x, i)
			if err != nil {
				return value.Null, err
			}
			f.Stack[len(f.Stack)-1] = v
			ip = frame.IP

		case comp.SUBSCRIPT_SET:
			v := f.Pop()
			i := f.Pop()
			x := f.Peek(0)
			frame.IP = ip
			if err := vm.subscriptSet(f, x, i, v); err != nil {
				return value.Null, err
			}
			f.Stack[len(f.Stack)-1] = v
			ip = frame.IP

		case comp.PUSH_ARRAY_ELEMENT:
			elem := f.Pop()
			arr := vm.heap.Object(f.Peek(0)).(*value.ArrayObj)
			arr.Elems = append(arr.Elems, elem)

		case comp.OBJECT:
			f.Push(vm.heap.Allocate(value.KindMap, &value.MapObj{Table: value.NewTable(4)}))

		case comp.PUSH_OBJECT_FIELD:
			v := f.Pop()
			k := f.Pop()
			m := vm.heap.Object(f.Peek(0)).(*value.MapObj)
			key, ok := vm.asString(k)
			if !ok {
				frame.IP = ip
				return value.Null, vm.typeErrorf(f, "map key must be a string, got %s", vm.typeName(k))
			}
			m.Table.Set(key, v)

		case comp.ARRAY:
			f.Push(vm.heap.Allocate(value.KindArray, &value.ArrayObj{}))

		case comp.RANGE:
			to := f.Pop()
			from := f.Peek(0)
			r := &value.RangeObj{From: from.AsFloat(), To: to.AsFloat()}
			f.Stack[len(f.Stack)-1] = vm.heap.Allocate(value.KindRange, r)

		case comp.METHOD:
			idx := readU16(code, ip)
			ip += 2
			name := vm.constantName(fn, idx)
			closure := f.Pop()
			class := vm.heap.Object(f.Peek(0)).(*value.ClassObj)
			if name == "constructor" {
				class.Init = closure
			} else {
				class.Methods.Set(name, closure)
			}

		case comp.STATIC_FIELD:
			idx := readU16(code, ip)
			ip += 2
			name := vm.constantName(fn, idx)
			val := f.Pop()
			class := vm.heap.Object(f.Peek(0)).(*value.ClassObj)
			class.StaticFields.Set(name, val)

		case comp.DEFINE_FIELD:
			idx := readU16(code, ip)
			ip += 2
			name := vm.constantName(fn, idx)
			fieldVal := f.Pop()
			class := vm.heap.Object(f.Peek(0)).(*value.ClassObj)
			arr := vm.heap.Object(fieldVal).(*value.ArrayObj)
			fld := &value.FieldObj{Name: name, Getter: arr.Elems[0], Setter: arr.Elems[1]}
			class.Methods.Set(name, vm.heap.Allocate(value.KindField, fld))

		case comp.INVOKE, comp.INVOKE_IGNORING:
			idx := readU16(code, ip)
			ip += 2
			argc := int(code[ip])
			ip++
			name := vm.constantName(fn, idx)
			calleeBase := len(f.Stack) - 1 - argc
			recv := f.Stack[calleeBase]
			frame.IP = ip
			method, err := vm.lookupInvokable(f, recv, name)
			if err != nil {
				return value.Null, err
			}
			resultIgnored := op == comp.INVOKE_IGNORING
			if err := vm.dispatchCall(f, method, calleeBase, argc, resultIgnored, true, false); err != nil {
				return value.Null, err
			}
			ip = frame.IP
			continue

		case comp.INVOKE_SUPER, comp.INVOKE_SUPER_IGNORING:
			idx := readU16(code, ip)
			ip += 2
			argc := int(code[ip])
			ip++
			name := vm.constantName(fn, idx)
			superVal := f.Pop()
			calleeBase := len(f.Stack) - 1 - argc
			superClass, ok := vm.heap.Object(superVal).(*value.ClassObj)
			if !ok {
				frame.IP = ip
				return value.Null, vm.typeErrorf(f, "super target is not a class")
			}
			method, ok := resolveMethod(superClass, name)
			if !ok {
				frame.IP = ip
				return value.Null, vm.typeErrorf(f, "%s has no method %q", superClass.Name, name)
			}
			resultIgnored := op == comp.INVOKE_SUPER_IGNORING
			frame.IP = ip
			if err := vm.dispatchCall(f, method, calleeBase, argc, resultIgnored, true, false); err != nil {
				return value.Null, err
			}
			ip = frame.IP
			continue

		case comp.IS:
			classVal := f.Pop()
			x := f.Peek(0)
			classObj, ok := vm.heap.Object(classVal).(*value.ClassObj)
			if !ok {
				frame.IP = ip
				return value.Null, vm.typeErrorf(f, "right-hand side of is must be a class")
			}
			f.Stack[len(f.Stack)-1] = value.Bool(vm.isInstanceOf(x, classObj))

		case comp.GET_SUPER_METHOD:
			idx := readU16(code, ip)
			ip += 2
			name := vm.constantName(fn, idx)
			superVal := f.Peek(0)
			superClass, ok := vm.heap.Object(superVal).(*value.ClassObj)
			if !ok {
				frame.IP = ip
				return value.Null, vm.typeErrorf(f, "super target is not a class")
			}
			method, ok := resolveMethod(superClass, name)
			if !ok {
				frame.IP = ip
				return value.Null, vm.typeErrorf(f, "%s has no method %q", superClass.Name, name)
			}
			recv := f.Stack[frame.StackBase]
			bm := &value.BoundMethodObj{Receiver: recv, Method: method}
			f.Stack[len(f.Stack)-1] = vm.heap.Allocate(value.KindBoundMethod, bm)

		case comp.VARARG:
			// Reserved: the resolver's vararg slot is populated directly by
			// pushFrame's argument marshalling; no emitted bytecode ever
			// reaches this case.
			f.Push(value.Null)

		case comp.REFERENCE_GLOBAL:
			idx := readU16(code, ip)
			ip += 2
			name := vm.constantName(fn, idx)
			ref := &value.ReferenceObj{Kind: value.RefGlobal, Name: name}
			f.Push(vm.heap.Allocate(value.KindReference, ref))

		case comp.REFERENCE_PRIVATE:
			idx := readU16(code, ip)
			ip += 2
			ref := &value.ReferenceObj{Kind: value.RefPrivate, Module: fn.Module, Index: idx}
			f.Push(vm.heap.Allocate(value.KindReference, ref))

		case comp.REFERENCE_LOCAL:
			idx := int(code[ip])
			ip++
			ref := &value.ReferenceObj{Kind: value.RefLocal, Slot: &f.Stack[frame.StackBase+idx]}
			f.Push(vm.heap.Allocate(value.KindReference, ref))

		case comp.REFERENCE_UPVALUE:
			idx := int(code[ip])
			ip++
			ref := &value.ReferenceObj{Kind: value.RefUpvalue, Cell: frame.Closure.Upvalues[idx]}
			f.Push(vm.heap.Allocate(value.KindReference, ref))

		case comp.REFERENCE_FIELD:
			idx := readU16(code, ip)
			ip += 2
			name := vm.constantName(fn, idx)
			recv := f.Peek(0)
			ref := &value.ReferenceObj{Kind: value.RefField, Recv: recv, Name: name}
			f.Stack[len(f.Stack)-1] = vm.heap.Allocate(value.KindReference, ref)

		case comp.REFERENCE_INDEX:
			key := f.Pop()
			recv := f.Peek(0)
			ref := &value.ReferenceObj{Kind: value.RefIndex, Recv: recv, Key: key}
			f.Stack[len(f.Stack)-1] = vm.heap.Allocate(value.KindReference, ref)

		case comp.SET_REFERENCE:
			val := f.Pop()
			refVal := f.Peek(0)
			ref := vm.heap.Object(refVal).(*value.ReferenceObj)
			frame.IP = ip
			if err := vm.setReference(f, ref, val); err != nil {
				return value.Null, err
			}
			f.Stack[len(f.Stack)-1] = val
			ip = frame.IP

		default:
			frame.IP = ip
			return value.Null, vm.typeErrorf(f, "illegal opcode %s", op)
		}

		frame.IP = ip
	}
}

func readU16(code []byte, ip int) int {
	return int(code[ip])<<8 | int(code[ip+1])
}

// constantName reads a name out of fn's constant pool at idx - every
// nameConstant emission site stores an interned StringObj there.
func (vm *VM) constantName(fn *value.FunctionObj, idx int) string {
	return vm.heap.Object(fn.Chunk.Constants[idx]).(*value.StringObj).Bytes
}

func binOpName(op comp.Opcode) string {
	switch op {
	case comp.ADD:
		return "add"
	case comp.SUBTRACT:
		return "subtract"
	case comp.MULTIPLY:
		return "multiply"
	case comp.POWER:
		return "power"
	case comp.DIVIDE:
		return "divide"
	case comp.FLOOR_DIVIDE:
		return "floor_divide"
	case comp.MOD:
		return "mod"
	case comp.BAND:
		return "band"
	case comp.BOR:
		return "bor"
	case comp.BXOR:
		return "bxor"
	case comp.LSHIFT:
		return "lshift"
	case comp.RSHIFT:
		return "rshift"
	case comp.GREATER:
		return "greater"
	case comp.GREATER_EQUAL:
		return "greater_equal"
	case comp.LESS:
		return "less"
	case comp.LESS_EQUAL:
		return "less_equal"
	default:
		return "?"
	}
}

// lookupInvokable resolves INVOKE/INVOKE_IGNORING's callee: a class's
// static table when recv is itself a Class value (so `ClassName.method()`
// works), otherwise the receiver's governing class's method table.
func (vm *VM) lookupInvokable(f *value.FiberObj, recv value.Value, name string) (value.Value, error) {
	if recv.IsObject() {
		if class, ok := vm.heap.Object(recv).(*value.ClassObj); ok {
			if v, ok := resolveStatic(class, name); ok {
				return v, nil
			}
			return value.Null, vm.typeErrorf(f, "class %s has no static method %q", class.Name, name)
		}
	}
	class := vm.classForReceiver(recv)
	if class == nil {
		return value.Null, vm.typeErrorf(f, "%s has no method %q", vm.typeName(recv), name)
	}
	method, ok := resolveMethod(class, name)
	if !ok {
		return value.Null, vm.typeErrorf(f, "%s has no method %q", vm.typeName(recv), name)
	}
	return method, nil
}
