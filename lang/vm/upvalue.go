package vm

import (
	"unsafe"

	"github.com/mna/lit/lang/value"
)

// uintptrOf gives open upvalues a total order by stack address, matching
// spec §8's "open upvalues sorted by descending location" invariant; Go
// forbids ordered comparison of pointers directly.
func uintptrOf(p *value.Value) uintptr { return uintptr(unsafe.Pointer(p)) }

// captureUpvalue returns the open upvalue for the stack slot at &f.Stack[idx],
// reusing an existing one if a prior closure already captured that exact
// slot, per spec §4.7's CLOSURE protocol ("a slot already open is shared,
// never double-captured"). f.OpenUpvalues is kept sorted by descending
// Location address (spec §8), so the search stops at the first entry whose
// address is <= the target.
func (vm *VM) captureUpvalue(f *value.FiberObj, idx int) *value.UpvalueObj {
	loc := &f.Stack[idx]

	var prev *value.UpvalueObj
	cur := f.OpenUpvalues
	for cur != nil && cur.Location != loc {
		if uintptrOf(cur.Location) < uintptrOf(loc) {
			break
		}
		prev = cur
		cur = cur.Next
	}
	if cur != nil && cur.Location == loc {
		return cur
	}

	up := &value.UpvalueObj{Location: loc, Next: cur}
	vm.heap.Allocate(value.KindUpvalue, up)
	if prev == nil {
		f.OpenUpvalues = up
	} else {
		prev.Next = up
	}
	return up
}

// closeUpvalues closes every open upvalue at or above stack slot from,
// copying its current value out of the stack into the upvalue itself (spec
// §4.7's CLOSE_UPVALUE / frame-return semantics) and unlinking it from the
// fiber's open list.
func (vm *VM) closeUpvalues(f *value.FiberObj, from int) {
	if from >= len(f.Stack) || f.OpenUpvalues == nil {
		return
	}
	threshold := &f.Stack[from]
	cur := f.OpenUpvalues
	for cur != nil && uintptrOf(cur.Location) >= uintptrOf(threshold) {
		next := cur.Next
		cur.Close()
		cur.Next = nil
		cur = next
	}
	f.OpenUpvalues = cur
}
