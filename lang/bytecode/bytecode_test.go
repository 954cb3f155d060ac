package bytecode

import (
	"bytes"
	"testing"

	"github.com/mna/lit/lang/value"
	"github.com/stretchr/testify/require"
)

func testFunction(heap *value.Heap, name string) *value.FunctionObj {
	fn := &value.FunctionObj{
		Name:         name,
		Arity:        2,
		UpvalueCount: 1,
		MaxSlots:     4,
		IsVararg:     true,
		Chunk: &value.Chunk{
			Code:  []byte{1, 2, 3, 4, 5},
			Lines: []value.LineRun{{Line: 1, Count: 3}, {Line: 2, Count: 2}},
			Constants: []value.Value{
				value.Number(3.5),
				heap.InternString("hello"),
			},
		},
	}
	heap.Allocate(value.KindFunction, fn)
	return fn
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	heap := value.NewHeap()
	fn := testFunction(heap, "main")
	// a nested function constant, to exercise the tagFunction branch
	nested := testFunction(heap, "inner")
	fn.Chunk.Constants = append(fn.Chunk.Constants, heap.ValueOf(nested))

	mod := &value.ModuleObj{
		Name:         "test/mod",
		Main:         fn,
		Privates:     []value.Value{value.Number(1), value.Null},
		PrivateNames: map[string]int{"a": 0, "b": 1},
	}
	heap.Allocate(value.KindModule, mod)
	fn.Module = mod

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, heap, []*value.ModuleObj{mod}))

	outHeap := value.NewHeap()
	mods, err := Decode(&buf, outHeap)
	require.NoError(t, err)
	require.Len(t, mods, 1)

	got := mods[0]
	require.Equal(t, "test/mod", got.Name)
	require.Equal(t, []int{0, 1}, []int{got.PrivateNames["a"], got.PrivateNames["b"]})
	require.Len(t, got.Privates, 2)

	require.Equal(t, fn.Name, got.Main.Name)
	require.Equal(t, fn.Arity, got.Main.Arity)
	require.Equal(t, fn.UpvalueCount, got.Main.UpvalueCount)
	require.Equal(t, fn.MaxSlots, got.Main.MaxSlots)
	require.Equal(t, fn.IsVararg, got.Main.IsVararg)
	require.Equal(t, fn.Chunk.Code, got.Main.Chunk.Code)
	require.Equal(t, fn.Chunk.Lines, got.Main.Chunk.Lines)
	require.Equal(t, 3.5, got.Main.Chunk.Constants[0].AsFloat())

	gotStr, ok := outHeap.Object(got.Main.Chunk.Constants[1]).(*value.StringObj)
	require.True(t, ok)
	require.Equal(t, "hello", gotStr.Bytes)

	gotNested, ok := outHeap.Object(got.Main.Chunk.Constants[2]).(*value.FunctionObj)
	require.True(t, ok)
	require.Equal(t, "inner", gotNested.Name)

	modByName, ok := outHeap.Module("test/mod")
	require.True(t, ok)
	require.Same(t, got, modByName)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	heap := value.NewHeap()
	_, err := Decode(bytes.NewReader([]byte{0, 0, 0, 0}), heap)
	require.Error(t, err)
}

func TestEncodeDecodeEmptyPrivateNames(t *testing.T) {
	heap := value.NewHeap()
	fn := testFunction(heap, "main")
	mod := &value.ModuleObj{Name: "nonames", Main: fn, PrivateNames: nil}
	heap.Allocate(value.KindModule, mod)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, heap, []*value.ModuleObj{mod}))

	outHeap := value.NewHeap()
	mods, err := Decode(&buf, outHeap)
	require.NoError(t, err)
	require.Nil(t, mods[0].PrivateNames)
}
