package value

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// growthFactor is the multiplier applied to BytesAllocated to compute the
// next collection threshold once a collection completes (spec §4.1 step
// 5: "next_gc = bytes_allocated * growth_factor").
const growthFactor = 2

// entry is one slot of the heap's object table. A handle is simply the
// slot's index, which never changes for the lifetime of the object (the
// heap is non-moving, per spec).
type entry struct {
	obj    Object
	marked bool
	// free marks a slot whose object has been swept; it is pushed onto
	// freeList and reused by the next allocate call instead of growing
	// objects.
	free bool
}

// Heap is the GC-managed object arena (spec C1/C2): every heap-allocated
// value lives in objects, addressed by the 32-bit handle packed into a
// Value by object(). Collection is tri-colour, non-moving mark/sweep,
// triggered by an allocation byte-count threshold (spec §4.1).
type Heap struct {
	objects []entry
	freeList []uint32

	strings map[string]Value

	// roots is the explicit root stack (spec "push_root/pop_root"):
	// temporaries not yet reachable from any other root are pinned here
	// across allocations that might trigger a collection.
	roots []Value

	// fibers lists every live FiberObj reachable from the embedder (the
	// currently running one and any suspended parents); marked as part of
	// every collection's root set.
	fibers []*FiberObj

	// globals and modules are the well-known root tables (spec step 1).
	globals *Table
	modules map[string]*ModuleObj

	grey []uint32

	bytesAllocated int64
	nextGC         int64

	// gcDisabled latches off collection while re-entrant native code is
	// assembling a composite object (spec §4.1 step 6, §5 "GC re-entrancy").
	gcDisabled int

	// sizeOf estimates the byte footprint charged to bytesAllocated for
	// each Kind; used only to drive the collection threshold, not for any
	// behavioral purpose.
	sizeOf func(Kind) int64
}

// NewHeap returns an empty heap with an initial collection threshold.
func NewHeap() *Heap {
	return &Heap{
		strings: make(map[string]Value),
		modules: make(map[string]*ModuleObj),
		globals: NewTable(16),
		nextGC:  1 << 20,
		sizeOf:  defaultSizeOf,
	}
}

func defaultSizeOf(k Kind) int64 {
	switch k {
	case KindString:
		return 48
	case KindArray, KindMap:
		return 64
	default:
		return 32
	}
}

// Globals returns the heap's global-variable table (spec's "global
// table" root).
func (h *Heap) Globals() *Table { return h.globals }

// Module returns the loaded module named name, if any.
func (h *Heap) Module(name string) (*ModuleObj, bool) {
	m, ok := h.modules[name]
	return m, ok
}

// RegisterModule records m as loaded under name so future requires/loads
// can find it, and so it is kept alive as a GC root.
func (h *Heap) RegisterModule(name string, m *ModuleObj) { h.modules[name] = m }

// RegisterFiber adds f to the set of fibers scanned as GC roots. The
// embedding VM calls this once per fiber created; fibers that become
// unreachable any other way (no longer the running fiber nor an ancestor
// of one) are pruned lazily the next time the caller calls UnregisterFiber,
// or simply become collectible once nothing else points to them - the
// registry entry itself holds a reference, so long-lived scripts that
// create many short-lived fibers should UnregisterFiber when a fiber
// fully completes.
func (h *Heap) RegisterFiber(f *FiberObj) { h.fibers = append(h.fibers, f) }

// UnregisterFiber removes f from the fiber root registry once it has
// completed and nothing should keep it alive on its own.
func (h *Heap) UnregisterFiber(f *FiberObj) {
	for i, g := range h.fibers {
		if g == f {
			h.fibers = append(h.fibers[:i], h.fibers[i+1:]...)
			return
		}
	}
}

// allocate installs obj (already populated except for its Header) into a
// free or new slot, triggering a collection first if the byte threshold
// has been crossed and collection is not disabled, and returns the Value
// referencing it.
func (h *Heap) allocate(kind Kind, obj Object) Value {
	if h.gcDisabled == 0 && h.bytesAllocated > h.nextGC {
		h.CollectGarbage()
	}

	var handle uint32
	if n := len(h.freeList); n > 0 {
		handle = h.freeList[n-1]
		h.freeList = h.freeList[:n-1]
		h.objects[handle] = entry{obj: obj}
	} else {
		handle = uint32(len(h.objects))
		h.objects = append(h.objects, entry{obj: obj})
	}
	obj.Hdr().kind = kind
	obj.Hdr().handle = handle
	h.bytesAllocated += h.sizeOf(kind)
	return object(handle)
}

// Allocate is the exported form of allocate, used by packages outside
// lang/value (lang/vm, lib) that construct a Kind-tagged Object and need
// a Value handle for it (spec §4.1's allocate<T> contract).
func (h *Heap) Allocate(kind Kind, obj Object) Value { return h.allocate(kind, obj) }

// ValueOf returns the Value handle referencing an object previously
// returned by Allocate, for callers (the module loader) that only kept
// the Object pointer around (e.g. value.FunctionObj.Module.Main) and
// need to hand it to something expecting a Value.
func (h *Heap) ValueOf(obj Object) Value { return object(obj.Hdr().handle) }

// Object dereferences v, which must satisfy IsObject, to its live Object.
func (h *Heap) Object(v Value) Object {
	e := h.objects[v.handle()]
	if e.free {
		panic(fmt.Sprintf("lang/value: dereferenced a freed handle %d", v.handle()))
	}
	return e.obj
}

// PushRoot pins v so that any allocation performed before the matching
// PopRoot cannot collect it, even though it is not yet reachable from any
// other root (spec §4.1's push_root/pop_root).
func (h *Heap) PushRoot(v Value) { h.roots = append(h.roots, v) }

// PopRoot unpins the most recently pushed root.
func (h *Heap) PopRoot() {
	h.roots = h.roots[:len(h.roots)-1]
}

// DisableGC increments the re-entrancy latch (spec §4.1 step 6); callers
// must call EnableGC exactly once for each DisableGC.
func (h *Heap) DisableGC() { h.gcDisabled++ }

// EnableGC decrements the re-entrancy latch.
func (h *Heap) EnableGC() {
	if h.gcDisabled > 0 {
		h.gcDisabled--
	}
}

// BytesAllocated reports the heap's current allocation accounting.
func (h *Heap) BytesAllocated() int64 { return h.bytesAllocated }

// CollectGarbage runs one tri-colour mark/sweep cycle (spec §4.1's GC
// algorithm) and returns the number of bytes reclaimed.
func (h *Heap) CollectGarbage() int64 {
	before := h.bytesAllocated

	h.grey = h.grey[:0]
	h.markRoots()
	h.drainGrey()
	h.sweep()
	h.removeWhiteStrings()

	h.nextGC = h.bytesAllocated * growthFactor
	if h.nextGC < (1 << 16) {
		h.nextGC = 1 << 16
	}
	return before - h.bytesAllocated
}

func (h *Heap) markRoots() {
	for _, v := range h.roots {
		h.markValue(v)
	}
	for _, f := range h.fibers {
		h.markFiber(f)
	}
	h.markTable(h.globals)
	for _, m := range h.modules {
		h.markObject(m)
	}
}

// markValue greys the object v refers to, if any; greying is idempotent
// (spec step 2), so re-marking an already-grey/black object is a no-op.
func (h *Heap) markValue(v Value) {
	if !v.IsObject() {
		return
	}
	handle := v.handle()
	e := &h.objects[handle]
	if e.free || e.marked {
		return
	}
	e.marked = true
	h.grey = append(h.grey, handle)
}

func (h *Heap) markObject(obj Object) {
	if obj == nil {
		return
	}
	hdr := obj.Hdr()
	e := &h.objects[hdr.handle]
	if e.free || e.marked {
		return
	}
	e.marked = true
	h.grey = append(h.grey, hdr.handle)
}

// The helpers below nil-check a *concrete* pointer before handing it to
// markObject: an Object interface value wrapping a typed nil pointer is
// not itself == nil, and Header.Hdr() would panic dereferencing it.
func (h *Heap) markModule(m *ModuleObj) {
	if m != nil {
		h.markObject(m)
	}
}
func (h *Heap) markFunction(fn *FunctionObj) {
	if fn != nil {
		h.markObject(fn)
	}
}
func (h *Heap) markClosure(c *ClosureObj) {
	if c != nil {
		h.markObject(c)
	}
}
func (h *Heap) markClass(c *ClassObj) {
	if c != nil {
		h.markObject(c)
	}
}
func (h *Heap) markUpvalueObj(u *UpvalueObj) {
	if u != nil {
		h.markObject(u)
	}
}
func (h *Heap) markFiberObj(f *FiberObj) {
	if f != nil {
		h.markObject(f)
	}
}

func (h *Heap) markTable(t *Table) {
	if t == nil {
		return
	}
	t.Iter(func(_ string, v Value) bool {
		h.markValue(v)
		return true
	})
}

func (h *Heap) markFiber(f *FiberObj) { h.markFiberObj(f) }

// drainGrey blackens every grey object by marking each outgoing reference
// (spec step 2), following new greys transitively.
func (h *Heap) drainGrey() {
	for len(h.grey) > 0 {
		handle := h.grey[len(h.grey)-1]
		h.grey = h.grey[:len(h.grey)-1]
		h.blacken(h.objects[handle].obj)
	}
}

func (h *Heap) blacken(obj Object) {
	switch o := obj.(type) {
	case *StringObj:
		// no outgoing references

	case *FunctionObj:
		for _, c := range o.Chunk.Constants {
			h.markValue(c)
		}
		h.markModule(o.Module)

	case *ClosureObj:
		h.markFunction(o.Fn)
		for _, uv := range o.Upvalues {
			h.markUpvalueObj(uv)
		}

	case *UpvalueObj:
		if o.Location != nil {
			h.markValue(*o.Location)
		} else {
			h.markValue(o.Closed)
		}

	case *NativeFunctionObj, *NativePrimitiveObj, *NativeMethodObj, *PrimitiveMethodObj:
		// no outgoing references to Lit heap values

	case *FiberObj:
		for _, v := range o.Stack {
			h.markValue(v)
		}
		for _, fr := range o.Frames {
			h.markFunction(fr.Function)
			h.markClosure(fr.Closure)
		}
		for uv := o.OpenUpvalues; uv != nil; uv = uv.Next {
			h.markUpvalueObj(uv)
		}
		h.markModule(o.Module)
		h.markFiberObj(o.Parent)
		h.markValue(o.Error)

	case *ModuleObj:
		h.markFunction(o.Main)
		for _, v := range o.Privates {
			h.markValue(v)
		}

	case *ClassObj:
		h.markClass(o.Super)
		h.markTable(o.Methods)
		h.markTable(o.StaticFields)
		h.markValue(o.Init)

	case *InstanceObj:
		h.markClass(o.Class)
		h.markTable(o.Fields)

	case *BoundMethodObj:
		h.markValue(o.Receiver)
		h.markValue(o.Method)

	case *ArrayObj:
		for _, v := range o.Elems {
			h.markValue(v)
		}

	case *MapObj:
		h.markTable(o.Table)

	case *RangeObj:
		// no outgoing references

	case *UserdataObj:
		// opaque to the GC by design

	case *FieldObj:
		h.markValue(o.Getter)
		h.markValue(o.Setter)

	case *ReferenceObj:
		h.markModule(o.Module)
		h.markUpvalueObj(o.Cell)
		h.markValue(o.Recv)
		h.markValue(o.Key)
	}
}

// sweep walks every object-table slot, frees the unmarked ones, and clears
// the mark bit on survivors (spec step 3).
func (h *Heap) sweep() {
	for i := range h.objects {
		e := &h.objects[i]
		if e.free {
			continue
		}
		if e.marked {
			e.marked = false
			continue
		}
		h.bytesAllocated -= h.sizeOf(e.obj.Hdr().kind)
		e.obj = nil
		e.free = true
		h.freeList = append(h.freeList, uint32(i))
	}
	// Keep the free list in a stable order so handle reuse is deterministic
	// across runs with the same allocation pattern (useful for tests).
	slices.Sort(h.freeList)
}

// removeWhiteStrings prunes the intern table of strings whose mark is
// still clear after sweep (spec step 4: "weak-like semantics").
func (h *Heap) removeWhiteStrings() {
	for s, v := range h.strings {
		e := &h.objects[v.handle()]
		if e.free {
			delete(h.strings, s)
		}
	}
}
