package vm

import (
	"fmt"

	"github.com/mna/lit/lang/value"
)

// typeErrorf is the common path for a VM-detected runtime error (type
// mismatch, undefined name, stack overflow, not-callable): it raises the
// error against the currently running fiber (spec §4.7's "Error path"),
// returning a Go error only once no fiber on the parent chain caught it.
func (vm *VM) typeErrorf(f *value.FiberObj, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return vm.raise(f, msg)
}

// propagate converts a Go error returned by native code into the same
// fiber-local error path a VM-detected failure takes.
func (vm *VM) propagate(f *value.FiberObj, err error) error {
	if re, ok := err.(*RuntimeError); ok {
		return vm.raise(f, re.Message)
	}
	return vm.raise(f, err.Error())
}

func (vm *VM) typeName(v value.Value) string {
	switch {
	case v.IsNull():
		return "null"
	case v.IsBool():
		return "bool"
	case v.IsNumber():
		return "number"
	case v.IsObject():
		return vm.heap.Object(v).Hdr().Kind().String()
	default:
		return "value"
	}
}
