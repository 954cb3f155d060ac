package compiler

import "fmt"

// Version is the on-disk bytecode format version (see lang/bytecode);
// bump it to force recompilation of saved .lbc files.
const Version = 0

// Opcode is a single bytecode instruction.
type Opcode uint8

// "x OP x y" is a stack picture: values present on the operand stack
// before OP, followed by the instruction, followed by the stack after.
// OP<n> denotes an 8-bit immediate operand; OP<n16> a 16-bit big-endian
// one (constant-pool index or a _LONG variant); OP<disp> a 16-bit
// big-endian unsigned jump displacement, added to the instruction pointer
// by the forward jumps and subtracted by JUMP_BACK (spec §4.6).
const ( //nolint:revive
	NOP Opcode = iota // - NOP -

	POP       //   x POP -
	POP_LOCALS // x1..xN POP_LOCALS<n> -            pops n locals at scope exit
	RETURN    //   x RETURN -                       ends the current frame

	CONSTANT      // - CONSTANT<n>      value
	CONSTANT_LONG // - CONSTANT_LONG<n16> value
	TRUE          // - TRUE  true
	FALSE         // - FALSE false
	NULL          // - NULL  null

	NEGATE // x NEGATE -x
	NOT    // x NOT    !x
	BNOT   // x BNOT   ~x

	ADD          // x y ADD          x+y
	SUBTRACT     // x y SUBTRACT     x-y
	MULTIPLY     // x y MULTIPLY     x*y
	POWER        // x y POWER        x**y
	DIVIDE       // x y DIVIDE       x/y
	FLOOR_DIVIDE // x y FLOOR_DIVIDE x//y
	MOD          // x y MOD          x%y
	BAND         // x y BAND         x&y
	BOR          // x y BOR          x|y
	BXOR         // x y BXOR         x^y
	LSHIFT       // x y LSHIFT       x<<y
	RSHIFT       // x y RSHIFT       x>>y

	EQUAL         // x y EQUAL         x==y
	GREATER       // x y GREATER       x>y
	GREATER_EQUAL // x y GREATER_EQUAL x>=y
	LESS          // x y LESS          x<y
	LESS_EQUAL    // x y LESS_EQUAL    x<=y

	SET_GLOBAL // value SET_GLOBAL<n16> value
	GET_GLOBAL // -     GET_GLOBAL<n16> value

	SET_LOCAL      // value SET_LOCAL<n>           value
	SET_LOCAL_LONG // value SET_LOCAL_LONG<n16>    value
	GET_LOCAL      // -     GET_LOCAL<n>           value
	GET_LOCAL_LONG // -     GET_LOCAL_LONG<n16>    value

	SET_PRIVATE      // value SET_PRIVATE<n>        value
	SET_PRIVATE_LONG // value SET_PRIVATE_LONG<n16> value
	GET_PRIVATE      // -     GET_PRIVATE<n>         value
	GET_PRIVATE_LONG // -     GET_PRIVATE_LONG<n16>  value

	SET_UPVALUE // value SET_UPVALUE<n> value
	GET_UPVALUE // -     GET_UPVALUE<n> value

	JUMP                  // -    JUMP<disp>                  -
	JUMP_BACK             // -    JUMP_BACK<disp>             -               unsigned, subtracted from ip
	JUMP_IF_FALSE         // cond JUMP_IF_FALSE<disp>         cond             does not pop
	JUMP_IF_NULL          // cond JUMP_IF_NULL<disp>          cond             does not pop
	JUMP_IF_NULL_POPPING  // cond JUMP_IF_NULL_POPPING<disp>  -               pops

	AND     // x y AND     x&&y
	OR      // x y OR      x||y
	NULL_OR // x y NULL_OR x??y

	CALL // fn arg1..argN CALL<n> result

	CLOSURE       // - CLOSURE<n16> closure        followed by n upvalue {is_local:u8, index:u16} pairs
	CLOSE_UPVALUE // x CLOSE_UPVALUE -              closes x's open upvalue (if any), then pops

	CLASS // - CLASS<n16> class

	GET_FIELD // recv       GET_FIELD<n16>       value
	SET_FIELD // recv value SET_FIELD<n16>       value

	SUBSCRIPT_GET // x i   SUBSCRIPT_GET -   elem
	SUBSCRIPT_SET // x i v SUBSCRIPT_SET -   v

	PUSH_ARRAY_ELEMENT // arr elem PUSH_ARRAY_ELEMENT arr
	OBJECT             // -        OBJECT             obj
	PUSH_OBJECT_FIELD  // obj k v  PUSH_OBJECT_FIELD  obj
	ARRAY              // -        ARRAY              arr
	RANGE              // from to  RANGE              range

	METHOD       // class closure METHOD<n16>       class
	STATIC_FIELD // class value   STATIC_FIELD<n16> class
	DEFINE_FIELD // class field   DEFINE_FIELD<n16> class

	INVOKE             // recv arg1..argN       INVOKE<n16,argc>             result
	INVOKE_SUPER       // recv arg1..argN super  INVOKE_SUPER<n16,argc>       result
	INVOKE_IGNORING    // recv arg1..argN        INVOKE_IGNORING<n16,argc>    -
	INVOKE_SUPER_IGNORING // recv arg1..argN super INVOKE_SUPER_IGNORING<n16,argc> -

	INHERIT // class super INHERIT class

	IS // x class IS bool

	GET_SUPER_METHOD // super GET_SUPER_METHOD<n16> method

	VARARG // - VARARG array

	REFERENCE_GLOBAL  // -    REFERENCE_GLOBAL<n16>  ref
	REFERENCE_PRIVATE // -    REFERENCE_PRIVATE<n16> ref
	REFERENCE_LOCAL   // -    REFERENCE_LOCAL<n>     ref
	REFERENCE_UPVALUE // -    REFERENCE_UPVALUE<n>   ref
	REFERENCE_FIELD   // recv REFERENCE_FIELD<n16>   ref
	REFERENCE_INDEX   // recv key REFERENCE_INDEX -  ref

	SET_REFERENCE // ref value SET_REFERENCE value

	// --- NOP and POP, the opcodes before OpcodeArgMin, never take an operand ---
	OpcodeArgMin = POP_LOCALS
	OpcodeMax    = SET_REFERENCE

	opcodeJMPMin = JUMP
	opcodeJMPMax = JUMP_IF_NULL_POPPING
)

var opcodeNames = [...]string{
	NOP:                   "nop",
	POP:                   "pop",
	POP_LOCALS:            "pop_locals",
	RETURN:                "return",
	CONSTANT:              "constant",
	CONSTANT_LONG:         "constant_long",
	TRUE:                  "true",
	FALSE:                 "false",
	NULL:                  "null",
	NEGATE:                "negate",
	NOT:                   "not",
	BNOT:                  "bnot",
	ADD:                   "add",
	SUBTRACT:              "subtract",
	MULTIPLY:              "multiply",
	POWER:                 "power",
	DIVIDE:                "divide",
	FLOOR_DIVIDE:          "floor_divide",
	MOD:                   "mod",
	BAND:                  "band",
	BOR:                   "bor",
	BXOR:                  "bxor",
	LSHIFT:                "lshift",
	RSHIFT:                "rshift",
	EQUAL:                 "equal",
	GREATER:               "greater",
	GREATER_EQUAL:         "greater_equal",
	LESS:                  "less",
	LESS_EQUAL:            "less_equal",
	SET_GLOBAL:            "set_global",
	GET_GLOBAL:            "get_global",
	SET_LOCAL:             "set_local",
	SET_LOCAL_LONG:        "set_local_long",
	GET_LOCAL:             "get_local",
	GET_LOCAL_LONG:        "get_local_long",
	SET_PRIVATE:           "set_private",
	SET_PRIVATE_LONG:      "set_private_long",
	GET_PRIVATE:           "get_private",
	GET_PRIVATE_LONG:      "get_private_long",
	SET_UPVALUE:           "set_upvalue",
	GET_UPVALUE:           "get_upvalue",
	JUMP:                  "jump",
	JUMP_BACK:             "jump_back",
	JUMP_IF_FALSE:         "jump_if_false",
	JUMP_IF_NULL:          "jump_if_null",
	JUMP_IF_NULL_POPPING:  "jump_if_null_popping",
	AND:                   "and",
	OR:                    "or",
	NULL_OR:               "null_or",
	CALL:                  "call",
	CLOSURE:               "closure",
	CLOSE_UPVALUE:         "close_upvalue",
	CLASS:                 "class",
	GET_FIELD:             "get_field",
	SET_FIELD:             "set_field",
	SUBSCRIPT_GET:         "subscript_get",
	SUBSCRIPT_SET:         "subscript_set",
	PUSH_ARRAY_ELEMENT:    "push_array_element",
	OBJECT:                "object",
	PUSH_OBJECT_FIELD:     "push_object_field",
	ARRAY:                 "array",
	RANGE:                 "range",
	METHOD:                "method",
	STATIC_FIELD:          "static_field",
	DEFINE_FIELD:          "define_field",
	INVOKE:                "invoke",
	INVOKE_SUPER:          "invoke_super",
	INVOKE_IGNORING:       "invoke_ignoring",
	INVOKE_SUPER_IGNORING: "invoke_super_ignoring",
	INHERIT:               "inherit",
	IS:                    "is",
	GET_SUPER_METHOD:      "get_super_method",
	VARARG:                "vararg",
	REFERENCE_GLOBAL:      "reference_global",
	REFERENCE_PRIVATE:     "reference_private",
	REFERENCE_LOCAL:       "reference_local",
	REFERENCE_UPVALUE:     "reference_upvalue",
	REFERENCE_FIELD:       "reference_field",
	REFERENCE_INDEX:       "reference_index",
	SET_REFERENCE:         "set_reference",
}

var reverseLookupOpcode = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, s := range opcodeNames {
		m[s] = Opcode(op)
	}
	return m
}()

func isJump(op Opcode) bool {
	return opcodeJMPMin <= op && op <= opcodeJMPMax
}

// variableStackEffect marks an opcode whose effect on the stack depends on
// an operand (argument count, element count) the emitter tracks directly
// rather than through this table.
const variableStackEffect = 0x7f

// stackEffect is the exact effect on the operand-stack depth of executing
// each opcode, used by the emitter to track a function's max_slots (spec
// §4.6, §8's per-opcode stack-depth invariant). Assignment opcodes
// (SET_*, SET_FIELD, SET_REFERENCE) leave the assigned value on the stack
// since assignment is an expression.
var stackEffect = [...]int8{
	NOP:                  0,
	POP:                  -1,
	RETURN:               -1,
	CONSTANT:             +1,
	CONSTANT_LONG:        +1,
	TRUE:                 +1,
	FALSE:                +1,
	NULL:                 +1,
	NEGATE:               0,
	NOT:                  0,
	BNOT:                 0,
	ADD:                  -1,
	SUBTRACT:             -1,
	MULTIPLY:             -1,
	POWER:                -1,
	DIVIDE:               -1,
	FLOOR_DIVIDE:         -1,
	MOD:                  -1,
	BAND:                 -1,
	BOR:                  -1,
	BXOR:                 -1,
	LSHIFT:               -1,
	RSHIFT:               -1,
	EQUAL:                -1,
	GREATER:              -1,
	GREATER_EQUAL:        -1,
	LESS:                 -1,
	LESS_EQUAL:           -1,
	SET_GLOBAL:           0,
	GET_GLOBAL:           +1,
	SET_LOCAL:            0,
	SET_LOCAL_LONG:       0,
	GET_LOCAL:            +1,
	GET_LOCAL_LONG:       +1,
	SET_PRIVATE:          0,
	SET_PRIVATE_LONG:     0,
	GET_PRIVATE:          +1,
	GET_PRIVATE_LONG:     +1,
	SET_UPVALUE:          0,
	GET_UPVALUE:          +1,
	JUMP:                 0,
	JUMP_BACK:            0,
	JUMP_IF_FALSE:        0,
	JUMP_IF_NULL:         0,
	JUMP_IF_NULL_POPPING: -1,
	AND:                  -1,
	OR:                   -1,
	NULL_OR:              -1,
	CALL:                 variableStackEffect,
	CLOSURE:              +1,
	CLOSE_UPVALUE:        -1,
	CLASS:                +1,
	GET_FIELD:            0,
	SET_FIELD:            -1,
	SUBSCRIPT_GET:        -1,
	SUBSCRIPT_SET:        -2,
	PUSH_ARRAY_ELEMENT:   -1,
	OBJECT:               +1,
	PUSH_OBJECT_FIELD:    -2,
	ARRAY:                +1,
	RANGE:                -1,
	METHOD:               -1,
	STATIC_FIELD:         -1,
	DEFINE_FIELD:         -1,
	INVOKE:               variableStackEffect,
	INVOKE_SUPER:         variableStackEffect,
	INVOKE_IGNORING:      variableStackEffect,
	INVOKE_SUPER_IGNORING: variableStackEffect,
	INHERIT:              -1,
	IS:                   -1,
	GET_SUPER_METHOD:     0,
	VARARG:               +1,
	REFERENCE_GLOBAL:     +1,
	REFERENCE_PRIVATE:    +1,
	REFERENCE_LOCAL:      +1,
	REFERENCE_UPVALUE:    +1,
	REFERENCE_FIELD:      0,
	REFERENCE_INDEX:      -1,
	SET_REFERENCE:        -1,
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		if name := opcodeNames[op]; name != "" {
			return name
		}
	}
	return fmt.Sprintf("illegal op (%d)", op)
}

// operandBytes is the fixed-size immediate operand width in bytes
// following each opcode, not counting CLOSURE's variable-length trailing
// upvalue descriptors (handled specially by the disassembler/VM) or the
// 4-way invoke family's combined {n16, argc} pair (width 3, listed
// directly here since it is still fixed-size).
var operandBytes = [...]int8{
	POP_LOCALS:            1,
	CONSTANT:              1,
	CONSTANT_LONG:         2,
	SET_GLOBAL:            2,
	GET_GLOBAL:            2,
	SET_LOCAL:             1,
	SET_LOCAL_LONG:        2,
	GET_LOCAL:             1,
	GET_LOCAL_LONG:        2,
	SET_PRIVATE:           1,
	SET_PRIVATE_LONG:      2,
	GET_PRIVATE:           1,
	GET_PRIVATE_LONG:      2,
	SET_UPVALUE:           1,
	GET_UPVALUE:           1,
	JUMP:                  2,
	JUMP_BACK:             2,
	JUMP_IF_FALSE:         2,
	JUMP_IF_NULL:          2,
	JUMP_IF_NULL_POPPING:  2,
	CALL:                  1,
	CLOSURE:               2, // plus 3 bytes per upvalue descriptor, decoded separately
	CLASS:                 2,
	GET_FIELD:             2,
	SET_FIELD:             2,
	METHOD:                2,
	STATIC_FIELD:          2,
	DEFINE_FIELD:          2,
	INVOKE:                3,
	INVOKE_SUPER:          3,
	INVOKE_IGNORING:       3,
	INVOKE_SUPER_IGNORING: 3,
	GET_SUPER_METHOD:      2,
	REFERENCE_GLOBAL:      2,
	REFERENCE_PRIVATE:     2,
	REFERENCE_LOCAL:       1,
	REFERENCE_UPVALUE:     1,
	REFERENCE_FIELD:       2,
}

// HasOperand reports whether op is followed by at least one fixed-size
// immediate operand byte (CLOSURE's variable-length upvalue descriptor
// tail is not counted here).
func (op Opcode) HasOperand() bool {
	return int(op) < len(operandBytes) && operandBytes[op] > 0
}

// OperandSize returns the number of fixed immediate operand bytes
// following op (0 for an operand-less opcode); see HasOperand's note on
// CLOSURE.
func (op Opcode) OperandSize() int {
	if int(op) < len(operandBytes) {
		return int(operandBytes[op])
	}
	return 0
}
