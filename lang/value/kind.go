// Package value implements the heap-allocated object model and the
// NaN-boxed Value representation that every other runtime package
// (lang/compiler, lang/bytecode, lang/vm, lib) builds on.
package value

import "fmt"

// Kind identifies the concrete type of a heap Object. It is the "variant
// tag" of spec's object header.
type Kind uint8

const (
	KindString Kind = iota
	KindFunction
	KindClosure
	KindUpvalue
	KindNativeFunction
	KindNativePrimitive
	KindNativeMethod
	KindPrimitiveMethod
	KindFiber
	KindModule
	KindClass
	KindInstance
	KindBoundMethod
	KindArray
	KindMap
	KindUserdata
	KindRange
	KindField
	KindReference
)

var kindNames = [...]string{
	KindString:          "string",
	KindFunction:        "function",
	KindClosure:         "closure",
	KindUpvalue:         "upvalue",
	KindNativeFunction:  "native function",
	KindNativePrimitive: "native primitive",
	KindNativeMethod:    "native method",
	KindPrimitiveMethod: "primitive method",
	KindFiber:           "fiber",
	KindModule:          "module",
	KindClass:           "class",
	KindInstance:        "instance",
	KindBoundMethod:     "bound method",
	KindArray:           "array",
	KindMap:             "map",
	KindUserdata:        "userdata",
	KindRange:           "range",
	KindField:           "field",
	KindReference:       "reference",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}
