package vm

import "github.com/mna/lit/lang/value"

// installBuiltins wires the VM's well-known classes (spec §4.8's "every
// built-in kind is governed by a class the same way a user Instance is",
// so GET_FIELD/INVOKE need not special-case them): one class per Kind
// that carries a method table, covering at minimum the iterator()/
// iteratorValue() protocol forInStmt compiles against and the Fiber
// control surface (spec §4.7's Fiber.new/run/try/yield/abort).
//
// Every value.NativeFunc here is typed against value.Interp (the narrow
// surface native code outside lang/vm is handed); each one asserts back
// to *VM immediately since installBuiltins only ever wires it to be
// called by this package's own VM.
func installBuiltins(vm *VM) {
	vm.wellKnown[value.KindString] = vm.newWellKnown("String", stringMethods())
	vm.wellKnown[value.KindArray] = vm.newWellKnown("Array", arrayMethods())
	vm.wellKnown[value.KindMap] = vm.newWellKnown("Map", mapMethods())
	vm.wellKnown[value.KindRange] = vm.newWellKnown("Range", rangeMethods())
	vm.wellKnown[value.KindFiber] = vm.newFiberClass()
}

func (vm *VM) newWellKnown(name string, methods map[string]value.NativeFunc) *value.ClassObj {
	class := &value.ClassObj{
		Name:         name,
		Methods:      value.NewTable(len(methods)),
		StaticFields: value.NewTable(1),
		Init:         value.Null,
	}
	for n, fn := range methods {
		m := &value.NativeMethodObj{Name: n, Fn: fn}
		class.Methods.Set(n, vm.heap.Allocate(value.KindNativeMethod, m))
	}
	vm.heap.Globals().Set(name, vm.heap.Allocate(value.KindClass, class))
	return class
}

func (vm *VM) newFiberClass() *value.ClassObj {
	class := &value.ClassObj{
		Name:         "Fiber",
		Methods:      value.NewTable(4),
		StaticFields: value.NewTable(4),
		Init:         value.Null,
	}
	methods := map[string]value.NativeFunc{
		"run":    fiberRunMethod,
		"try":    fiberTryMethod,
		"isDone": fiberIsDoneMethod,
	}
	for n, fn := range methods {
		m := &value.NativeMethodObj{Name: n, Fn: fn}
		class.Methods.Set(n, vm.heap.Allocate(value.KindNativeMethod, m))
	}
	statics := map[string]value.NativeFunc{
		"new":   fiberNew,
		"yield": fiberYield,
		"yeet":  fiberYeet,
		"abort": fiberAbort,
	}
	for n, fn := range statics {
		nf := &value.NativeFunctionObj{Name: n, Fn: fn}
		class.StaticFields.Set(n, vm.heap.Allocate(value.KindNativeFunction, nf))
	}
	vm.heap.Globals().Set("Fiber", vm.heap.Allocate(value.KindClass, class))
	return class
}

// --- Array ---

func arrayMethods() map[string]value.NativeFunc {
	return map[string]value.NativeFunc{
		"length": func(interp value.Interp, args []value.Value) (value.Value, error) {
			vm := interp.(*VM)
			a := vm.heap.Object(args[0]).(*value.ArrayObj)
			return value.Int(int64(len(a.Elems))), nil
		},
		"push": func(interp value.Interp, args []value.Value) (value.Value, error) {
			vm := interp.(*VM)
			a := vm.heap.Object(args[0]).(*value.ArrayObj)
			a.Elems = append(a.Elems, args[1:]...)
			return args[0], nil
		},
		"pop": func(interp value.Interp, args []value.Value) (value.Value, error) {
			vm := interp.(*VM)
			a := vm.heap.Object(args[0]).(*value.ArrayObj)
			if len(a.Elems) == 0 {
				return value.Null, vm.RuntimeError("pop on an empty array")
			}
			v := a.Elems[len(a.Elems)-1]
			a.Elems = a.Elems[:len(a.Elems)-1]
			return v, nil
		},
		"iterator": func(interp value.Interp, args []value.Value) (value.Value, error) {
			vm := interp.(*VM)
			a := vm.heap.Object(args[0]).(*value.ArrayObj)
			it := args[1]
			var next int64
			if it.IsNull() {
				next = 0
			} else {
				next = int64(it.AsFloat()) + 1
			}
			if next >= int64(len(a.Elems)) {
				return value.False, nil
			}
			return value.Int(next), nil
		},
		"iteratorValue": func(interp value.Interp, args []value.Value) (value.Value, error) {
			vm := interp.(*VM)
			a := vm.heap.Object(args[0]).(*value.ArrayObj)
			idx := int(args[1].AsFloat())
			if idx < 0 || idx >= len(a.Elems) {
				return value.Null, vm.RuntimeError("array iterator index out of range")
			}
			return a.Elems[idx], nil
		},
	}
}

// --- Map ---

// mapIterState snapshots a Map's keys when iteration starts; Table does
// not expose stable ordering or an index-based cursor, so the iterator
// protocol's opaque `it` value wraps this snapshot in a Userdata rather
// than a plain number.
type mapIterState struct {
	keys []string
	idx  int
}

func mapMethods() map[string]value.NativeFunc {
	return map[string]value.NativeFunc{
		"length": func(interp value.Interp, args []value.Value) (value.Value, error) {
			vm := interp.(*VM)
			m := vm.heap.Object(args[0]).(*value.MapObj)
			return value.Int(int64(m.Table.Len())), nil
		},
		"has": func(interp value.Interp, args []value.Value) (value.Value, error) {
			vm := interp.(*VM)
			m := vm.heap.Object(args[0]).(*value.MapObj)
			key, ok := vm.asString(args[1])
			if !ok {
				return value.False, nil
			}
			_, found := m.Table.Get(key)
			return value.Bool(found), nil
		},
		"remove": func(interp value.Interp, args []value.Value) (value.Value, error) {
			vm := interp.(*VM)
			m := vm.heap.Object(args[0]).(*value.MapObj)
			key, ok := vm.asString(args[1])
			if !ok {
				return value.False, nil
			}
			return value.Bool(m.Table.Remove(key)), nil
		},
		"iterator": func(interp value.Interp, args []value.Value) (value.Value, error) {
			vm := interp.(*VM)
			m := vm.heap.Object(args[0]).(*value.MapObj)
			it := args[1]
			var state *mapIterState
			if it.IsNull() {
				keys := make([]string, 0, m.Table.Len())
				m.Table.Iter(func(k string, _ value.Value) bool {
					keys = append(keys, k)
					return true
				})
				state = &mapIterState{keys: keys, idx: 0}
			} else {
				state = vm.heap.Object(it).(*value.UserdataObj).Data.(*mapIterState)
				state.idx++
			}
			if state.idx >= len(state.keys) {
				return value.False, nil
			}
			ud := &value.UserdataObj{Tag: "map_iter", Data: state}
			return vm.heap.Allocate(value.KindUserdata, ud), nil
		},
		"iteratorValue": func(interp value.Interp, args []value.Value) (value.Value, error) {
			vm := interp.(*VM)
			state := vm.heap.Object(args[1]).(*value.UserdataObj).Data.(*mapIterState)
			return vm.heap.InternString(state.keys[state.idx]), nil
		},
	}
}

// --- Range ---

func rangeMethods() map[string]value.NativeFunc {
	return map[string]value.NativeFunc{
		"from": func(interp value.Interp, args []value.Value) (value.Value, error) {
			vm := interp.(*VM)
			r := vm.heap.Object(args[0]).(*value.RangeObj)
			return value.Number(r.From), nil
		},
		"to": func(interp value.Interp, args []value.Value) (value.Value, error) {
			vm := interp.(*VM)
			r := vm.heap.Object(args[0]).(*value.RangeObj)
			return value.Number(r.To), nil
		},
		"iterator": func(interp value.Interp, args []value.Value) (value.Value, error) {
			vm := interp.(*VM)
			r := vm.heap.Object(args[0]).(*value.RangeObj)
			it := args[1]
			var next float64
			if it.IsNull() {
				next = r.From
			} else {
				next = it.AsFloat() + 1
			}
			if next >= r.To {
				return value.False, nil
			}
			return value.Number(next), nil
		},
		"iteratorValue": func(interp value.Interp, args []value.Value) (value.Value, error) {
			return args[1], nil
		},
	}
}

// --- String ---

func stringMethods() map[string]value.NativeFunc {
	return map[string]value.NativeFunc{
		"length": func(interp value.Interp, args []value.Value) (value.Value, error) {
			vm := interp.(*VM)
			s := vm.heap.Object(args[0]).(*value.StringObj)
			return value.Int(int64(len([]rune(s.Bytes)))), nil
		},
		"iterator": func(interp value.Interp, args []value.Value) (value.Value, error) {
			vm := interp.(*VM)
			s := vm.heap.Object(args[0]).(*value.StringObj)
			it := args[1]
			var next int64
			if it.IsNull() {
				next = 0
			} else {
				next = int64(it.AsFloat()) + 1
			}
			if next >= int64(len([]rune(s.Bytes))) {
				return value.False, nil
			}
			return value.Int(next), nil
		},
		"iteratorValue": func(interp value.Interp, args []value.Value) (value.Value, error) {
			vm := interp.(*VM)
			s := vm.heap.Object(args[0]).(*value.StringObj)
			runes := []rune(s.Bytes)
			idx := int(args[1].AsFloat())
			if idx < 0 || idx >= len(runes) {
				return value.Null, vm.RuntimeError("string iterator index out of range")
			}
			return vm.heap.InternString(string(runes[idx])), nil
		},
	}
}
