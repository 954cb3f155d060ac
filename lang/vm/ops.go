package vm

import (
	"math"
	"strconv"

	"github.com/mna/lit/lang/value"
)

// formatNumber renders a Lit number the way the scanner would have had to
// read it back: integral values print without a decimal point.
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// binaryOp implements ADD..RSHIFT and the ordered comparisons: both
// operands must be numbers
// except ADD, which also accepts two strings (concatenation) and falls
// back to an Instance's `+` method (spec §4.7's operator-overload rule:
// "a binary op on an Instance dispatches to its method of the same
// name if defined").
func (vm *VM) binaryOp(f *value.FiberObj, op string, a, b value.Value) (value.Value, error) {
	if a.IsNumber() && b.IsNumber() {
		x, y := a.AsFloat(), b.AsFloat()
		switch op {
		case "add":
			return value.Number(x + y), nil
		case "subtract":
			return value.Number(x - y), nil
		case "multiply":
			return value.Number(x * y), nil
		case "divide":
			return value.Number(x / y), nil
		case "power":
			return value.Number(math.Pow(x, y)), nil
		case "floor_divide":
			return value.Number(math.Floor(x / y)), nil
		case "mod":
			return value.Number(math.Mod(x, y)), nil
		case "band":
			return value.Int(int64(x) & int64(y)), nil
		case "bor":
			return value.Int(int64(x) | int64(y)), nil
		case "bxor":
			return value.Int(int64(x) ^ int64(y)), nil
		case "lshift":
			return value.Int(int64(x) << uint(int64(y))), nil
		case "rshift":
			return value.Int(int64(x) >> uint(int64(y))), nil
		case "greater":
			return value.Bool(x > y), nil
		case "greater_equal":
			return value.Bool(x >= y), nil
		case "less":
			return value.Bool(x < y), nil
		case "less_equal":
			return value.Bool(x <= y), nil
		}
	}

	if op == "add" {
		as, aok := vm.asString(a)
		bs, bok := vm.asString(b)
		if aok && bok {
			return vm.heap.InternString(as + bs), nil
		}
	}

	if method, ok := vm.operatorMethod(a, op); ok {
		return vm.Call(method, []value.Value{b})
	}

	return value.Null, vm.typeErrorf(f, "unsupported operand types for %s", op)
}

// operatorMethod looks up a method named like the operator ("add", "less",
// etc.) on an Instance receiver, the hook spec §4.7 gives user classes to
// overload arithmetic and comparison operators.
func (vm *VM) operatorMethod(recv value.Value, name string) (value.Value, bool) {
	class := vm.classForReceiver(recv)
	if class == nil {
		return value.Null, false
	}
	return resolveMethod(class, name)
}

func (vm *VM) asString(v value.Value) (string, bool) {
	if !v.IsObject() {
		return "", false
	}
	if s, ok := vm.heap.Object(v).(*value.StringObj); ok {
		return s.Bytes, true
	}
	return "", false
}

// equal implements EQUAL: numbers/booleans/null/string-by-content compare
// directly via Value.Equal; an Instance with an "equal" method overload
// gets first refusal (spec §4.7).
func (vm *VM) equal(a, b value.Value) (bool, error) {
	if method, ok := vm.operatorMethod(a, "equal"); ok {
		result, err := vm.Call(method, []value.Value{b})
		if err != nil {
			return false, err
		}
		return result.Truthy(), nil
	}
	return a.Equal(b), nil
}

func (vm *VM) negate(f *value.FiberObj, v value.Value) (value.Value, error) {
	if v.IsNumber() {
		return value.Number(-v.AsFloat()), nil
	}
	if method, ok := vm.operatorMethod(v, "negate"); ok {
		return vm.Call(method, nil)
	}
	return value.Null, vm.typeErrorf(f, "%s is not a number", vm.typeName(v))
}

func (vm *VM) bnot(f *value.FiberObj, v value.Value) (value.Value, error) {
	if v.IsNumber() {
		return value.Int(^int64(v.AsFloat())), nil
	}
	return value.Null, vm.typeErrorf(f, "%s is not a number", vm.typeName(v))
}

// subscriptGet implements SUBSCRIPT_GET for Array (numeric index), Map
// (string key), and String (numeric rune index) - the indexable built-in
// kinds (spec §4.7's `x[i]`).
func (vm *VM) subscriptGet(f *value.FiberObj, x, i value.Value) (value.Value, error) {
	if !x.IsObject() {
		return value.Null, vm.typeErrorf(f, "%s is not indexable", vm.typeName(x))
	}
	switch o := vm.heap.Object(x).(type) {
	case *value.ArrayObj:
		idx, err := vm.indexOf(f, i, len(o.Elems))
		if err != nil {
			return value.Null, err
		}
		return o.Elems[idx], nil
	case *value.MapObj:
		key, ok := vm.asString(i)
		if !ok {
			return value.Null, vm.typeErrorf(f, "map key must be a string, got %s", vm.typeName(i))
		}
		v, ok := o.Table.Get(key)
		if !ok {
			return value.Null, nil
		}
		return v, nil
	case *value.StringObj:
		runes := []rune(o.Bytes)
		idx, err := vm.indexOf(f, i, len(runes))
		if err != nil {
			return value.Null, err
		}
		return vm.heap.InternString(string(runes[idx])), nil
	default:
		return value.Null, vm.typeErrorf(f, "%s is not indexable", vm.typeName(x))
	}
}

// subscriptSet implements SUBSCRIPT_SET for Array and Map; Strings and
// Ranges are immutable and reject it.
func (vm *VM) subscriptSet(f *value.FiberObj, x, i, v value.Value) error {
	if !x.IsObject() {
		return vm.typeErrorf(f, "%s is not indexable", vm.typeName(x))
	}
	switch o := vm.heap.Object(x).(type) {
	case *value.ArrayObj:
		idx, err := vm.indexOf(f, i, len(o.Elems))
		if err != nil {
			return err
		}
		o.Elems[idx] = v
		return nil
	case *value.MapObj:
		key, ok := vm.asString(i)
		if !ok {
			return vm.typeErrorf(f, "map key must be a string, got %s", vm.typeName(i))
		}
		o.Table.Set(key, v)
		return nil
	default:
		return vm.typeErrorf(f, "%s does not support index assignment", vm.typeName(x))
	}
}

func (vm *VM) indexOf(f *value.FiberObj, i value.Value, length int) (int, error) {
	if !i.IsNumber() {
		return 0, vm.typeErrorf(f, "index must be a number, got %s", vm.typeName(i))
	}
	idx := int(i.AsFloat())
	if idx < 0 || idx >= length {
		return 0, vm.typeErrorf(f, "index %d out of range (length %d)", idx, length)
	}
	return idx, nil
}

// setReference implements SET_REFERENCE: dispatches the write through
// whichever slot kind ref addresses (spec §3's `*ref = v`).
func (vm *VM) setReference(f *value.FiberObj, ref *value.ReferenceObj, val value.Value) error {
	switch ref.Kind {
	case value.RefGlobal:
		vm.heap.Globals().Set(ref.Name, val)
		return nil
	case value.RefPrivate:
		ref.Module.Privates[ref.Index] = val
		return nil
	case value.RefLocal:
		*ref.Slot = val
		return nil
	case value.RefUpvalue:
		ref.Cell.Set(val)
		return nil
	case value.RefField:
		return vm.setField(f, ref.Recv, ref.Name, val)
	case value.RefIndex:
		return vm.subscriptSet(f, ref.Recv, ref.Key, val)
	default:
		return vm.typeErrorf(f, "reference has no writable slot")
	}
}
