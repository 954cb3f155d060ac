package vm

import (
	"testing"

	"github.com/mna/lit/lang/value"
	"github.com/stretchr/testify/require"
)

func newTestFiber() *value.FiberObj {
	f := value.NewFiber(value.Null, nil)
	f.Push(value.Number(0))
	f.Push(value.Number(1))
	f.Push(value.Number(2))
	return f
}

// captureUpvalue must keep f.OpenUpvalues sorted by descending Location
// address regardless of the order slots are captured in, and must share
// a single UpvalueObj for a slot captured more than once.
func TestCaptureUpvalueOrderingAndSharing(t *testing.T) {
	m := New()
	f := newTestFiber()

	u0 := m.captureUpvalue(f, 0)
	u2 := m.captureUpvalue(f, 2)
	u1 := m.captureUpvalue(f, 1)

	require.Equal(t, &f.Stack[0], u0.Location)
	require.Equal(t, &f.Stack[1], u1.Location)
	require.Equal(t, &f.Stack[2], u2.Location)

	var order []*value.UpvalueObj
	for cur := f.OpenUpvalues; cur != nil; cur = cur.Next {
		order = append(order, cur)
	}
	require.Equal(t, []*value.UpvalueObj{u2, u1, u0}, order)

	// capturing slot 1 again must return the same object, not a new one.
	require.Same(t, u1, m.captureUpvalue(f, 1))
	require.Nil(t, f.OpenUpvalues.Next.Next.Next) // no new entry was linked by the re-capture
}

// closeUpvalues closes and unlinks every open upvalue at or above the
// given stack slot, leaving lower slots' upvalues open.
func TestCloseUpvaluesClosesPrefix(t *testing.T) {
	m := New()
	f := newTestFiber()

	u0 := m.captureUpvalue(f, 0)
	u1 := m.captureUpvalue(f, 1)
	u2 := m.captureUpvalue(f, 2)

	f.Stack[1] = value.Number(99)
	f.Stack[2] = value.Number(100)

	m.closeUpvalues(f, 1)

	require.Nil(t, u1.Location)
	require.Equal(t, 99.0, u1.Closed.AsFloat())
	require.Nil(t, u2.Location)
	require.Equal(t, 100.0, u2.Closed.AsFloat())

	// slot 0 is below the close threshold, so it must remain open.
	require.NotNil(t, u0.Location)
	require.Same(t, u0, f.OpenUpvalues)
	require.Nil(t, f.OpenUpvalues.Next)
}
