package vm

import (
	"testing"

	"github.com/mna/lit/lang/value"
	"github.com/stretchr/testify/require"
)

// Interpret drives a full preprocess -> parse -> optimize -> resolve ->
// emit -> run pipeline; a module's top level compiles like a function
// body, so an explicit top-level return carries the module's result out
// to Result.Value.
func TestInterpretEvaluatesExpression(t *testing.T) {
	m := New()
	res := m.Interpret("test", []byte("return 1 + 2"), nil)
	require.Equal(t, StatusOK, res.Status, "errors: %v, err: %v", res.Errors, res.Err)
	require.True(t, res.Value.IsNumber())
	require.Equal(t, 3.0, res.Value.AsFloat())
}

// A bare expression statement's value is popped as a side effect, not
// propagated out; a module that falls off the end without a return
// yields null.
func TestInterpretFallsThroughToNull(t *testing.T) {
	m := New()
	res := m.Interpret("test", []byte("1 + 2"), nil)
	require.Equal(t, StatusOK, res.Status, "errors: %v, err: %v", res.Errors, res.Err)
	require.Equal(t, value.Null, res.Value)
}

// A syntax error never reaches the VM: Interpret reports it as a
// compile error without attempting to run anything.
func TestInterpretReportsCompileError(t *testing.T) {
	m := New()
	res := m.Interpret("test", []byte("1 +"), nil)
	require.Equal(t, StatusCompileError, res.Status)
	require.NotEmpty(t, res.Errors)
}

// An uncaught runtime error surfaces as StatusRuntimeError rather than
// panicking out of Interpret.
func TestInterpretReportsRuntimeError(t *testing.T) {
	m := New()
	res := m.Interpret("test", []byte("var x = null\nx.field"), nil)
	require.Equal(t, StatusRuntimeError, res.Status)
	require.Error(t, res.Err)
}

// `ref arr[i]` / `*ref = v` round-trips through REFERENCE_INDEX and
// SET_REFERENCE/subscriptSet, writing back into the original array.
func TestRefIndexWritesThroughToArray(t *testing.T) {
	m := New()
	res := m.Interpret("test", []byte(`
var arr = [1, 2, 3]
var r = ref arr[1]
*r = 99
return arr[1]
`), nil)
	require.Equal(t, StatusOK, res.Status, "errors: %v, err: %v", res.Errors, res.Err)
	require.True(t, res.Value.IsNumber())
	require.Equal(t, 99.0, res.Value.AsFloat())
}
