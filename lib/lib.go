// Package lib is the native library layer spec.md §1 names as
// deliberately out of scope ("a library layer that installs native
// classes onto the global namespace using the binding API of §4.1"):
// Math and File, installed entirely through value.Interp/value.Heap's
// public embedding surface, exactly as an out-of-tree embedder would.
// The String/Array/Map/Range/Fiber well-known classes themselves are
// installed by lang/vm (they back opcode-level behavior - GET_FIELD,
// INVOKE, the iterator protocol - so they cannot live outside it); this
// package does not extend their method tables.
package lib

import (
	"math"
	"math/rand"
	"os"

	"github.com/mna/lit/lang/value"
)

// Install wires every class this package provides onto vm's globals:
// Math (a stateless static-method holder, original_source has no
// libmath.cpp to ground this on directly, but it follows the same
// Class::make + setStaticMethod idiom libos.cpp/libcore.cpp use for
// every other native class) and File (grounded on libos.cpp's File
// class, trimmed to whole-file read/write/exists/delete rather than its
// buffered binary-stream instance methods, which lean on C-level
// FILE* handles this Go rewrite has no equivalent surface for).
func Install(interp value.Interp) {
	installMath(interp)
	installFile(interp)
}

func newStaticClass(interp value.Interp, name string, statics map[string]value.NativeFunc) *value.ClassObj {
	heap := interp.Heap()
	class := &value.ClassObj{
		Name:         name,
		Methods:      value.NewTable(1),
		StaticFields: value.NewTable(len(statics)),
		Init:         value.Null,
	}
	for n, fn := range statics {
		nf := &value.NativeFunctionObj{Name: n, Fn: fn}
		class.StaticFields.Set(n, heap.Allocate(value.KindNativeFunction, nf))
	}
	heap.Globals().Set(name, heap.Allocate(value.KindClass, class))
	return class
}

func installMath(interp value.Interp) {
	newStaticClass(interp, "Math", map[string]value.NativeFunc{
		"sqrt":  unary(math.Sqrt),
		"abs":   unary(math.Abs),
		"floor": unary(math.Floor),
		"ceil":  unary(math.Ceil),
		"sin":   unary(math.Sin),
		"cos":   unary(math.Cos),
		"pow": func(interp value.Interp, args []value.Value) (value.Value, error) {
			if len(args) < 2 || !args[0].IsNumber() || !args[1].IsNumber() {
				return value.Null, interp.RuntimeError("Math.pow expects two numbers")
			}
			return value.Number(math.Pow(args[0].AsFloat(), args[1].AsFloat())), nil
		},
		"min": func(interp value.Interp, args []value.Value) (value.Value, error) {
			return reduceNumbers(interp, args, math.Min)
		},
		"max": func(interp value.Interp, args []value.Value) (value.Value, error) {
			return reduceNumbers(interp, args, math.Max)
		},
		"random": func(interp value.Interp, args []value.Value) (value.Value, error) {
			return value.Number(rand.Float64()), nil
		},
	})
}

func unary(f func(float64) float64) value.NativeFunc {
	return func(interp value.Interp, args []value.Value) (value.Value, error) {
		if len(args) < 1 || !args[0].IsNumber() {
			return value.Null, interp.RuntimeError("expected a number argument")
		}
		return value.Number(f(args[0].AsFloat())), nil
	}
}

func reduceNumbers(interp value.Interp, args []value.Value, f func(a, b float64) float64) (value.Value, error) {
	if len(args) == 0 {
		return value.Null, interp.RuntimeError("expected at least one number argument")
	}
	best := args[0].AsFloat()
	for _, a := range args[1:] {
		if !a.IsNumber() {
			return value.Null, interp.RuntimeError("expected a number argument")
		}
		best = f(best, a.AsFloat())
	}
	return value.Number(best), nil
}

func installFile(interp value.Interp) {
	newStaticClass(interp, "File", map[string]value.NativeFunc{
		"exists": func(interp value.Interp, args []value.Value) (value.Value, error) {
			path, ok := stringArg(interp, args, 0)
			if !ok {
				return value.Null, interp.RuntimeError("File.exists expects a string path")
			}
			_, err := os.Stat(path)
			return value.Bool(err == nil), nil
		},
		"read": func(interp value.Interp, args []value.Value) (value.Value, error) {
			path, ok := stringArg(interp, args, 0)
			if !ok {
				return value.Null, interp.RuntimeError("File.read expects a string path")
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return value.Null, interp.RuntimeError("%s", err)
			}
			return interp.Heap().InternString(string(data)), nil
		},
		"write": func(interp value.Interp, args []value.Value) (value.Value, error) {
			path, ok := stringArg(interp, args, 0)
			if !ok {
				return value.Null, interp.RuntimeError("File.write expects a string path")
			}
			contents, ok := stringArg(interp, args, 1)
			if !ok {
				return value.Null, interp.RuntimeError("File.write expects string contents")
			}
			if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
				return value.Null, interp.RuntimeError("%s", err)
			}
			return value.True, nil
		},
		"delete": func(interp value.Interp, args []value.Value) (value.Value, error) {
			path, ok := stringArg(interp, args, 0)
			if !ok {
				return value.Null, interp.RuntimeError("File.delete expects a string path")
			}
			if err := os.Remove(path); err != nil {
				return value.Null, interp.RuntimeError("%s", err)
			}
			return value.True, nil
		},
	})
}

func stringArg(interp value.Interp, args []value.Value, i int) (string, bool) {
	if i >= len(args) || !args[i].IsObject() {
		return "", false
	}
	s, ok := interp.Heap().Object(args[i]).(*value.StringObj)
	if !ok {
		return "", false
	}
	return s.Bytes, true
}
