package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Every opcode up to OpcodeMax must have a name, and that name must
// round-trip back through reverseLookupOpcode to the same opcode; the
// disassembler and a hand-assembled .lbc file both rely on this.
func TestOpcodeNamesRoundTrip(t *testing.T) {
	for op := NOP; op <= OpcodeMax; op++ {
		name := op.String()
		require.NotEqual(t, "", name)
		require.NotContains(t, name, "illegal op", "opcode %d has no name", op)

		got, ok := reverseLookupOpcode[name]
		require.True(t, ok, "name %q for opcode %d not in reverseLookupOpcode", name, op)
		require.Equal(t, op, got)
	}
}

// stackEffect only has entries through SET_REFERENCE; every opcode that
// isn't marked variableStackEffect must produce a plausible constant
// effect (an instruction can push or pop at most the operands its own
// stack picture names, never an entire frame's worth).
func TestStackEffectBounds(t *testing.T) {
	for op := NOP; op <= OpcodeMax; op++ {
		eff := stackEffect[op]
		if eff == variableStackEffect {
			continue
		}
		require.GreaterOrEqual(t, int(eff), -2, "opcode %s", op)
		require.LessOrEqual(t, int(eff), 1, "opcode %s", op)
	}
}

// CALL and the four INVOKE variants are the only opcodes whose stack
// effect depends on an operand rather than being fixed; everything else
// must commit to a constant effect the emitter can add up statically.
func TestVariableStackEffectIsInvokeFamily(t *testing.T) {
	variable := map[Opcode]bool{
		CALL:                  true,
		INVOKE:                true,
		INVOKE_SUPER:          true,
		INVOKE_IGNORING:       true,
		INVOKE_SUPER_IGNORING: true,
	}
	for op := NOP; op <= OpcodeMax; op++ {
		if stackEffect[op] == variableStackEffect {
			require.True(t, variable[op], "opcode %s unexpectedly has a variable stack effect", op)
		} else {
			require.False(t, variable[op], "opcode %s should have a variable stack effect", op)
		}
	}
}

// HasOperand/OperandSize must agree: a nonzero width implies HasOperand,
// and a zero width implies !HasOperand.
func TestOperandSizeConsistency(t *testing.T) {
	for op := NOP; op <= OpcodeMax; op++ {
		if op.OperandSize() > 0 {
			require.True(t, op.HasOperand(), "opcode %s", op)
		} else {
			require.False(t, op.HasOperand(), "opcode %s", op)
		}
	}
}

func TestIsJumpRange(t *testing.T) {
	require.True(t, isJump(JUMP))
	require.True(t, isJump(JUMP_BACK))
	require.True(t, isJump(JUMP_IF_FALSE))
	require.True(t, isJump(JUMP_IF_NULL))
	require.True(t, isJump(JUMP_IF_NULL_POPPING))
	require.False(t, isJump(ADD))
	require.False(t, isJump(CALL))
}
