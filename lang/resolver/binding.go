package resolver

import (
	"fmt"

	"github.com/mna/lit/lang/ast"
)

// Scope identifies which of the four tiers (spec's "local -> upvalue ->
// module-private -> global") a name resolves to.
type Scope uint8

const (
	Undefined Scope = iota // name could not be resolved; falls back to a dynamic global lookup
	Local                  // a slot in the current function's frame
	Upvalue                // a slot captured from an enclosing function's frame
	Private                // a module-scope slot, addressed by index rather than by name
	Global                 // a dynamically-looked-up name with no compile-time slot
)

var scopeNames = [...]string{
	Undefined: "undefined",
	Local:     "local",
	Upvalue:   "upvalue",
	Private:   "private",
	Global:    "global",
}

func (s Scope) String() string {
	if int(s) >= len(scopeNames) {
		return fmt.Sprintf("<invalid scope %d>", s)
	}
	return scopeNames[s]
}

// Binding ties together every identifier reference that denotes the same
// variable, and records where the emitter should read or write it from.
type Binding struct {
	Name  string
	Scope Scope
	Const bool

	// Index is the slot index within the enclosing function's locals (for
	// Local), the enclosing function's upvalue list (for Upvalue), or the
	// module's private table (for Private). Unused for Global/Undefined.
	Index int

	// Captured is set on a Local binding once some nested function captures
	// it as an upvalue, telling the emitter it must close that slot with
	// CLOSE_UPVALUE when the block it lives in is popped rather than just
	// discarding it with POP/POP_LOCALS.
	Captured bool

	// initializing is true between the point a variable's slot is declared
	// and the point its initializer expression finishes resolving, so a
	// self-reference in that expression (`var x = x;`) is caught rather than
	// silently resolving to an outer `x`.
	initializing bool
}

// UpvalueDesc records how a function captures one upvalue: either directly
// from a local slot in its immediately enclosing function, or by forwarding
// an upvalue that the enclosing function itself already captures. This is
// the same two-case scheme as the CLOSURE opcode's (is_local, index) pairs
// (spec §4.6).
type UpvalueDesc struct {
	Name      string
	FromLocal bool // true: Index is a local slot of the parent function
	Index     int  // parent's local slot (FromLocal) or parent's upvalue index
	Const     bool
}

// Function is the per-function-body resolution record: its declared locals
// (parameters first) and the upvalues it captures from enclosing functions.
type Function struct {
	// Definition is the node that introduces this function scope: *ast.Chunk
	// for the implicit top-level script, *ast.FuncExpr for a function/lambda
	// expression, or a getter/setter *ast.FuncExpr belonging to a FieldDecl.
	Definition ast.Node
	Parent     *Function

	Locals   []*Binding
	Upvalues []UpvalueDesc

	// IsMethod is true when this function is a non-static method or
	// constructor body, meaning local slot 0 is implicitly bound to "this".
	IsMethod bool
}
