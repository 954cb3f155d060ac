package compiler

import (
	"fmt"
	"io"

	"github.com/mna/lit/lang/value"
)

// Disassemble writes a human-readable listing of fn's chunk (and,
// recursively, every nested function reachable through its constant
// pool) to w, in the style of the CLI's `dump` subcommand. heap is
// needed to dereference string/function constants, which the chunk's
// constant pool stores as NaN-boxed Values rather than Go pointers.
func Disassemble(w io.Writer, heap *value.Heap, fn *value.FunctionObj) {
	seen := make(map[*value.FunctionObj]bool)
	disassembleOne(w, heap, fn, seen)
}

func disassembleOne(w io.Writer, heap *value.Heap, fn *value.FunctionObj, seen map[*value.FunctionObj]bool) {
	if seen[fn] {
		return
	}
	seen[fn] = true

	fmt.Fprintf(w, "== %s (arity=%d upvalues=%d max_slots=%d vararg=%v) ==\n",
		fn.Name, fn.Arity, fn.UpvalueCount, fn.MaxSlots, fn.IsVararg)

	code := fn.Chunk.Code
	for off := 0; off < len(code); {
		off = disassembleInstr(w, heap, fn, off)
	}

	for _, k := range fn.Chunk.Constants {
		if nested, ok := funcConstant(heap, k); ok {
			fmt.Fprintln(w)
			disassembleOne(w, heap, nested, seen)
		}
	}
}

func funcConstant(heap *value.Heap, v value.Value) (*value.FunctionObj, bool) {
	if !v.IsObject() {
		return nil, false
	}
	fn, ok := heap.Object(v).(*value.FunctionObj)
	return fn, ok
}

// disassembleInstr prints the instruction at code[off] and returns the
// offset of the instruction following it.
func disassembleInstr(w io.Writer, heap *value.Heap, fn *value.FunctionObj, off int) int {
	code := fn.Chunk.Code
	op := Opcode(code[off])
	line := fn.Chunk.LineForOffset(off)

	fmt.Fprintf(w, "%04d %4d %-22s", off, line, op.String())

	switch op {
	case CLOSURE:
		idx := int(code[off+1])<<8 | int(code[off+2])
		fmt.Fprintf(w, " %d", idx)
		end := off + 3
		if idx < len(fn.Chunk.Constants) {
			if nested, ok := funcConstant(heap, fn.Chunk.Constants[idx]); ok {
				for i := 0; i < nested.UpvalueCount; i++ {
					isLocal := code[end]
					upIdx := int(code[end+1])<<8 | int(code[end+2])
					kind := "upvalue"
					if isLocal != 0 {
						kind = "local"
					}
					fmt.Fprintf(w, "\n     | %s %d", kind, upIdx)
					end += 3
				}
			}
		}
		fmt.Fprintln(w)
		return end

	case INVOKE, INVOKE_SUPER, INVOKE_IGNORING, INVOKE_SUPER_IGNORING:
		idx := int(code[off+1])<<8 | int(code[off+2])
		argc := int(code[off+3])
		fmt.Fprintf(w, " %d (%s) argc=%d\n", idx, constString(heap, fn, idx), argc)
		return off + 4

	default:
	}

	switch op.OperandSize() {
	case 0:
		fmt.Fprintln(w)
		return off + 1
	case 1:
		operand := code[off+1]
		fmt.Fprintf(w, " %d%s\n", operand, constAnnotation(heap, fn, op, int(operand)))
		return off + 2
	case 2:
		idx := int(code[off+1])<<8 | int(code[off+2])
		if isJump(op) {
			target := off + 3
			if op == JUMP_BACK {
				target -= idx
			} else {
				target += idx
			}
			fmt.Fprintf(w, " %d -> %d\n", idx, target)
		} else {
			fmt.Fprintf(w, " %d%s\n", idx, constAnnotation(heap, fn, op, idx))
		}
		return off + 3
	default:
		fmt.Fprintln(w)
		return off + 1
	}
}

// constAnnotation prints the interned string backing a name-bearing
// opcode's constant-pool operand, when one applies, to make a listing
// readable without cross-referencing the constant table by hand.
func constAnnotation(heap *value.Heap, fn *value.FunctionObj, op Opcode, idx int) string {
	switch op {
	case CONSTANT, CONSTANT_LONG, SET_GLOBAL, GET_GLOBAL, CLASS, GET_FIELD,
		SET_FIELD, METHOD, STATIC_FIELD, DEFINE_FIELD, GET_SUPER_METHOD,
		REFERENCE_GLOBAL, REFERENCE_FIELD:
		return " (" + constString(heap, fn, idx) + ")"
	default:
		return ""
	}
}

func constString(heap *value.Heap, fn *value.FunctionObj, idx int) string {
	if idx < 0 || idx >= len(fn.Chunk.Constants) {
		return "?"
	}
	v := fn.Chunk.Constants[idx]
	switch {
	case v.IsObject():
		if s, ok := heap.Object(v).(*value.StringObj); ok {
			return s.Bytes
		}
		return "<obj>"
	case v.IsNumber():
		return fmt.Sprint(v.AsFloat())
	case v.IsNull():
		return "null"
	case v.IsBool():
		return fmt.Sprint(v.Truthy())
	default:
		return "?"
	}
}
