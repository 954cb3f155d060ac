package value

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// InternString must return the exact same Value for equal content, and a
// different one for different content (spec §8's interning invariant).
func TestInternStringSharesHandle(t *testing.T) {
	h := NewHeap()
	a := h.InternString("hello")
	b := h.InternString("hello")
	require.Equal(t, a, b)

	c := h.InternString("world")
	require.NotEqual(t, a, c)
}

// A collection clears the mark bit on every surviving object, so a
// second collection with nothing new to mark doesn't spuriously treat
// everything as still grey from the first pass.
func TestCollectGarbageClearsMarkBit(t *testing.T) {
	h := NewHeap()
	v := h.InternString("kept")
	h.Globals().Set("g", v)

	h.CollectGarbage()
	handle := v.handle()
	require.False(t, h.objects[handle].marked, "mark bit must be cleared after sweep")

	// a second collection must reach the same conclusion (still reachable
	// from globals) rather than free it because the bit was never reset.
	h.CollectGarbage()
	require.False(t, h.objects[handle].free)
	obj, ok := h.Object(v).(*StringObj)
	require.True(t, ok)
	require.Equal(t, "kept", obj.Bytes)
}

// An object unreachable from any root is swept, and its bytes are
// deducted from BytesAllocated.
func TestCollectGarbageSweepsUnreachable(t *testing.T) {
	h := NewHeap()
	h.InternString("garbage")
	before := h.BytesAllocated()
	require.Greater(t, before, int64(0))

	freed := h.CollectGarbage()
	require.Greater(t, freed, int64(0))
	require.Equal(t, int64(0), h.BytesAllocated())
}

// removeWhiteStrings prunes the intern table alongside the sweep, so a
// later InternString of the same content allocates a fresh StringObj
// rather than returning the stale entry. The fresh object is placed in
// the slot the sweep freed, so its handle, and thus its Value, repeats.
func TestInternStringReinternsAfterCollection(t *testing.T) {
	h := NewHeap()
	first := h.InternString("gone")
	h.CollectGarbage() // nothing roots "gone"; it is swept and un-interned

	second := h.InternString("gone")
	require.Equal(t, first, second)
	obj, ok := h.Object(second).(*StringObj)
	require.True(t, ok)
	require.Equal(t, "gone", obj.Bytes)
}

// PushRoot pins a value across an allocation that would otherwise
// trigger a collection before the value becomes reachable any other way.
func TestPushRootKeepsValueAlive(t *testing.T) {
	h := NewHeap()
	v := h.InternString("pinned")
	h.PushRoot(v)
	defer h.PopRoot()

	h.CollectGarbage()
	require.False(t, h.objects[v.handle()].free)
}

// An array referencing a string keeps that string alive transitively
// through blacken's ArrayObj case, even though nothing roots the string
// directly.
func TestCollectGarbageTracesThroughArray(t *testing.T) {
	h := NewHeap()
	s := h.InternString("inside array")
	arr := &ArrayObj{Elems: []Value{s}}
	av := h.Allocate(KindArray, arr)
	h.Globals().Set("arr", av)

	h.CollectGarbage()
	require.False(t, h.objects[s.handle()].free)
}
