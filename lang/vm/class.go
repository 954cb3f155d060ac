package vm

import "github.com/mna/lit/lang/value"

// classForReceiver returns the well-known class governing method lookup
// and field access for v: an Instance's own Class, or one of the VM's
// well-known classes for a built-in kind (String, Array, Map, Range,
// Fiber), or nil for kinds that carry no method table (spec §4.8's
// "every value's method lookup resolves through exactly one class").
func (vm *VM) classForReceiver(v value.Value) *value.ClassObj {
	if !v.IsObject() {
		return nil
	}
	switch o := vm.heap.Object(v).(type) {
	case *value.InstanceObj:
		return o.Class
	default:
		return vm.wellKnown[vm.heap.Object(v).Hdr().Kind()]
	}
}

// inherit implements the INHERIT opcode: sub copies super's methods and
// static fields into its own tables (so later overrides in sub shadow
// them without disturbing super), inherits super's constructor if sub
// declared none, and records Super for IS and GET_SUPER_METHOD (spec
// §4.8: "INHERIT copies methods and static fields; a subclass with no
// init_method of its own inherits the superclass's").
func (vm *VM) inherit(sub, super *value.ClassObj) {
	sub.Methods.AddAll(super.Methods)
	sub.StaticFields.AddAll(super.StaticFields)
	if sub.Init == value.Null {
		sub.Init = super.Init
	}
	sub.Super = super
}

// resolveMethod finds the callable bound to name on class, checking the
// class's own table first (already flattened by inherit) and falling
// back to walking Super for anything inherit missed.
func resolveMethod(class *value.ClassObj, name string) (value.Value, bool) {
	for c := class; c != nil; c = c.Super {
		if v, ok := c.Methods.Get(name); ok {
			return v, true
		}
	}
	return value.Null, false
}

func resolveStatic(class *value.ClassObj, name string) (value.Value, bool) {
	for c := class; c != nil; c = c.Super {
		if v, ok := c.StaticFields.Get(name); ok {
			return v, true
		}
	}
	return value.Null, false
}

// getField implements GET_FIELD: plain instance data first, then a
// FieldObj's getter interception, then an ordinary method bound to the
// receiver (spec §4.8's field/method lookup order).
func (vm *VM) getField(f *value.FiberObj, recv value.Value, name string) (value.Value, error) {
	if recv.IsObject() {
		if inst, ok := vm.heap.Object(recv).(*value.InstanceObj); ok {
			if v, ok := inst.Fields.Get(name); ok {
				return v, nil
			}
		}
		if class, ok := vm.heap.Object(recv).(*value.ClassObj); ok {
			if v, ok := resolveStatic(class, name); ok {
				return vm.resolveFieldValue(f, recv, v)
			}
			return value.Null, vm.typeErrorf(f, "class %s has no static field %q", class.Name, name)
		}
	}

	class := vm.classForReceiver(recv)
	if class == nil {
		return value.Null, vm.typeErrorf(f, "%s has no field %q", vm.typeName(recv), name)
	}
	if v, ok := resolveMethod(class, name); ok {
		return vm.resolveFieldValue(f, recv, v)
	}
	return value.Null, vm.typeErrorf(f, "%s has no field %q", vm.typeName(recv), name)
}

// resolveFieldValue distinguishes a FieldObj (intercepted via its getter)
// from an ordinary method (bound to recv and returned as a BoundMethod),
// the two shapes GET_FIELD can find in a class's method/static table.
func (vm *VM) resolveFieldValue(f *value.FiberObj, recv, v value.Value) (value.Value, error) {
	if v.IsObject() {
		if fld, ok := vm.heap.Object(v).(*value.FieldObj); ok {
			if fld.Getter == value.Null {
				return value.Null, vm.typeErrorf(f, "field %q has no getter", fld.Name)
			}
			return vm.Call(fld.Getter, []value.Value{recv})
		}
	}
	bm := &value.BoundMethodObj{Receiver: recv, Method: v}
	return vm.heap.Allocate(value.KindBoundMethod, bm), nil
}

// setField implements SET_FIELD: a FieldObj declared anywhere in the
// receiver's class chain intercepts the write via its setter; otherwise
// the value is stored directly as instance data.
func (vm *VM) setField(f *value.FiberObj, recv value.Value, name string, val value.Value) error {
	if recv.IsObject() {
		if class, ok := vm.heap.Object(recv).(*value.ClassObj); ok {
			if v, ok := resolveStatic(class, name); ok {
				if v.IsObject() {
					if fld, ok := vm.heap.Object(v).(*value.FieldObj); ok {
						return vm.interceptSetter(f, fld, recv, val)
					}
				}
			}
			class.StaticFields.Set(name, val)
			return nil
		}
	}

	if class := vm.classForReceiver(recv); class != nil {
		if v, ok := resolveMethod(class, name); ok && v.IsObject() {
			if fld, ok := vm.heap.Object(v).(*value.FieldObj); ok {
				return vm.interceptSetter(f, fld, recv, val)
			}
		}
	}

	inst, ok := vm.heap.Object(recv).(*value.InstanceObj)
	if !ok {
		return vm.typeErrorf(f, "%s has no field %q", vm.typeName(recv), name)
	}
	inst.Fields.Set(name, val)
	return nil
}

func (vm *VM) interceptSetter(f *value.FiberObj, fld *value.FieldObj, recv, val value.Value) error {
	if fld.Setter == value.Null {
		return vm.typeErrorf(f, "field %q has no setter", fld.Name)
	}
	_, err := vm.Call(fld.Setter, []value.Value{recv, val})
	return err
}

// isInstanceOf implements the IS operator: recv's class (or the
// well-known class for a built-in kind) must equal class, or a
// superclass of it, walking the Super chain (spec §4.8).
func (vm *VM) isInstanceOf(recv value.Value, class *value.ClassObj) bool {
	c := vm.classForReceiver(recv)
	for c != nil {
		if c == class {
			return true
		}
		c = c.Super
	}
	return false
}
