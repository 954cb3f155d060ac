// Package compiler implements the single-pass emitter (spec C8, §4.6):
// it walks a resolved AST and produces a value.Chunk/value.FunctionObj
// tree ready to be wrapped in a value.ModuleObj and run by lang/vm. It
// also provides a disassembler (disasm.go) used by the CLI's `dump`
// subcommand and by tests.
package compiler

import (
	"fmt"

	"github.com/mna/lit/lang/ast"
	"github.com/mna/lit/lang/errcode"
	"github.com/mna/lit/lang/resolver"
	"github.com/mna/lit/lang/token"
	"github.com/mna/lit/lang/value"
)

// ErrorHandler receives one emitter-phase error as it is found.
type ErrorHandler func(pos token.Position, code errcode.Code, msg string)

// Options mirrors the subset of optimizer.Kind the emitter itself must
// honor directly (spec §4.6's line-info stripping and the module's
// private-name table stripping - both only meaningful at emission time,
// not as an AST rewrite).
type Options struct {
	StripLineInfo     bool
	StripPrivateNames bool
}

// maxU16 is the ceiling for constants, locals, upvalues, privates and
// jump displacements (spec §4.6, §8's boundary cases).
const maxU16 = 1<<16 - 1

// Compile emits chunk (already optimized and resolved; info must come
// from a successful resolver.Resolve over the same chunk) into a
// value.ModuleObj named moduleName, allocating every heap object (the
// module, its main function, every nested closure's FunctionObj, and
// every interned string constant) through heap.
func Compile(heap *value.Heap, moduleName string, chunk *ast.Chunk, info *resolver.Info, opts Options, onError ErrorHandler) (*value.ModuleObj, error) {
	c := &compiler{heap: heap, info: info, opts: opts, onError: onError}

	topFn := info.Functions[chunk]
	mainObj := c.compileFunction(topFn, moduleName, chunk.Stmts, nil, chunk.End)

	mod := &value.ModuleObj{Name: moduleName, Main: mainObj}
	mod.Privates = make([]value.Value, len(info.Privates))
	for i := range mod.Privates {
		mod.Privates[i] = value.Null
	}
	if !opts.StripPrivateNames {
		mod.PrivateNames = make(map[string]int, len(info.Privates))
		for _, b := range info.Privates {
			mod.PrivateNames[b.Name] = b.Index
		}
	}
	mainObj.Module = mod
	heap.Allocate(value.KindModule, mod)
	backfillModule(heap, mainObj, mod)

	if c.nerrs > 0 {
		return nil, fmt.Errorf("compiler: %d error(s)", c.nerrs)
	}
	return mod, nil
}

// backfillModule sets Module on every FunctionObj nested (directly or
// transitively, via a constant pool entry) inside fn, so GET_PRIVATE/
// SET_PRIVATE inside a closure several levels deep still resolves
// against the one flat module-private table (spec's Module entity).
func backfillModule(heap *value.Heap, fn *value.FunctionObj, mod *value.ModuleObj) {
	for _, k := range fn.Chunk.Constants {
		if !k.IsObject() {
			continue
		}
		if nested, ok := heap.Object(k).(*value.FunctionObj); ok && nested.Module == nil {
			nested.Module = mod
			backfillModule(heap, nested, mod)
		}
	}
}

// compiler holds state shared across the whole compile; fn points at the
// function currently being emitted (swapped out and restored around
// nested function bodies).
type compiler struct {
	heap    *value.Heap
	info    *resolver.Info
	opts    Options
	onError ErrorHandler
	nerrs   int

	fn *fnState
}

// fnState is the emission state for one function body: its growing
// bytecode buffer, line table, constant pool and loop-control-flow
// bookkeeping (spec's "a stack of compilers, one per enclosing
// function/method/lambda").
type fnState struct {
	parent *fnState

	// rfn is the resolver's record for this function, giving the full,
	// flat, declaration-ordered Locals slice that the emitter's own
	// localsEmitted mirrors one declaration at a time.
	rfn *resolver.Function

	code  []byte
	lines []value.LineRun

	constants []value.Value
	constIdx  map[value.Value]int

	depth    int
	maxSlots int

	// localsEmitted is how many of rfn.Locals have had their storage slot
	// come into existence so far in emission order; it only ever grows
	// (for an implicit local whose value is already on the stack) and
	// shrinks back down at block/loop exit via closeScope/emitScopeCleanup.
	localsEmitted int

	loops []loopCtx
}

type loopCtx struct {
	// continueTarget/continueBackward describe a continue that can jump
	// directly backward to a known address (while, for-in); a C-style for
	// loop's continue must instead jump forward to the not-yet-emitted
	// post-increment, so its sites are collected in continuePatches and
	// patched once that address is known.
	continueBackward bool
	continueTarget   int
	continuePatches  []int
	breakPatches     []int

	// localBase is how many locals existed right before the loop body
	// itself started (i.e. after any header-declared control locals like a
	// C-style for's init or a for-in's hidden seq/it), which is where
	// break/continue must unwind down to - not the loop's full start,
	// which would also tear down locals the loop still needs each
	// iteration.
	localBase int
}

func (c *compiler) errorf(pos token.Position, code errcode.Code, format string, args ...any) {
	c.nerrs++
	if c.onError != nil {
		c.onError(pos, code, fmt.Sprintf(format, args...))
	}
}

// --- low-level byte/line emission ---

func (f *fnState) mark(pos token.Position, stripped bool, n int) {
	if stripped || n == 0 {
		return
	}
	if l := len(f.lines); l > 0 && f.lines[l-1].Line == pos.Line {
		f.lines[l-1].Count += n
		return
	}
	f.lines = append(f.lines, value.LineRun{Line: pos.Line, Count: n})
}

func (c *compiler) write(pos token.Position, bytes ...byte) {
	c.fn.code = append(c.fn.code, bytes...)
	c.fn.mark(pos, c.opts.StripLineInfo, len(bytes))
}

func (c *compiler) adjustStack(delta int) {
	c.fn.depth += delta
	if c.fn.depth > c.fn.maxSlots {
		c.fn.maxSlots = c.fn.depth
	}
}

func (c *compiler) emitOp(pos token.Position, op Opcode, delta int) {
	c.write(pos, byte(op))
	c.adjustStack(delta)
}

func (c *compiler) emitOpU8(pos token.Position, op Opcode, operand byte, delta int) {
	c.write(pos, byte(op), operand)
	c.adjustStack(delta)
}

func (c *compiler) emitOpU16(pos token.Position, op Opcode, operand int, delta int) {
	c.write(pos, byte(op), byte(operand>>8), byte(operand))
	c.adjustStack(delta)
}

// emitJump writes op followed by a two-byte placeholder displacement and
// returns its offset for a later patchJump/emitJumpBack.
func (c *compiler) emitJump(pos token.Position, op Opcode, delta int) int {
	c.write(pos, byte(op), 0, 0)
	c.adjustStack(delta)
	return len(c.fn.code) - 2
}

func (c *compiler) patchJump(pos token.Position, at int) {
	disp := len(c.fn.code) - (at + 2)
	if disp > maxU16 {
		c.errorf(pos, errcode.JumpTooBig, "jump too big")
		disp = 0
	}
	c.fn.code[at] = byte(disp >> 8)
	c.fn.code[at+1] = byte(disp)
}

func (c *compiler) emitJumpBack(pos token.Position, to int) {
	c.write(pos, byte(JUMP_BACK), 0, 0)
	disp := len(c.fn.code) - to
	if disp > maxU16 {
		c.errorf(pos, errcode.JumpTooBig, "jump too big")
		disp = 0
	}
	c.fn.code[len(c.fn.code)-2] = byte(disp >> 8)
	c.fn.code[len(c.fn.code)-1] = byte(disp)
}

// --- constants ---

func (c *compiler) addConstant(pos token.Position, v value.Value) int {
	if idx, ok := c.fn.constIdx[v]; ok {
		return idx
	}
	idx := len(c.fn.constants)
	if idx > maxU16 {
		c.errorf(pos, errcode.TooManyConstants, "too many constants")
	}
	c.fn.constants = append(c.fn.constants, v)
	c.fn.constIdx[v] = idx
	return idx
}

func (c *compiler) emitConstant(pos token.Position, v value.Value) {
	idx := c.addConstant(pos, v)
	if idx <= 0xFF {
		c.emitOpU8(pos, CONSTANT, byte(idx), +1)
	} else {
		c.emitOpU16(pos, CONSTANT_LONG, idx, +1)
	}
}

func (c *compiler) nameConstant(pos token.Position, name string) int {
	return c.addConstant(pos, c.heap.InternString(name))
}

// --- function compilation ---

// compileFunction emits one function body (the module's implicit
// top-level, or a FuncExpr's body) into a fresh fnState, and returns the
// resulting heap-allocated FunctionObj. name is used for stack traces and
// disassembly; stmts/tailExpr give the body (tailExpr for single-
// expression lambda bodies, which get an implicit return); endPos is
// used for the final implicit "return null" appended to every function.
func (c *compiler) compileFunction(fn *resolver.Function, name string, stmts []ast.Stmt, tailExpr ast.Expr, endPos token.Position) *value.FunctionObj {
	parent := c.fn
	c.fn = &fnState{parent: parent, rfn: fn, constIdx: make(map[value.Value]int)}

	// The resolver pre-declares this/params/the vararg collector as Local
	// bindings before resolving the body (see resolver.funcExpr); their
	// values are already on the stack when the call is made (the receiver
	// and each argument, in CALL's calling convention), so localsEmitted
	// starts pre-populated to cover just that implicit prefix, without
	// emitting anything. fn.Locals itself is already the FINAL, full list
	// (resolution is a separate, completed pass), so the prefix length must
	// be derived from the function's shape rather than len(fn.Locals).
	implicit := 0
	if fn.IsMethod {
		implicit++
	}
	if fe, ok := fn.Definition.(*ast.FuncExpr); ok {
		implicit += len(fe.Body.Params)
		if fe.Body.IsVararg {
			implicit++
		}
	}
	c.fn.localsEmitted = implicit
	c.adjustStack(implicit)

	// Default parameter values (spec §4.4's "default arg not trailing"
	// feature) have no dedicated opcode: a missing trailing argument
	// already arrives as `null` (CALL's argument marshalling pads short
	// argument lists with null), so the default is just the expression to
	// evaluate and store back when the parameter slot is still null on
	// entry.
	if fe, ok := fn.Definition.(*ast.FuncExpr); ok {
		base := 0
		if fn.IsMethod {
			base = 1
		}
		for i, p := range fe.Body.Params {
			if p.Default == nil {
				continue
			}
			slot := base + i
			pos := p.Default.Pos()
			c.emitLocalGet(pos, slot)
			c.emitOp(pos, NULL, +1)
			c.emitOp(pos, EQUAL, -1)
			skip := c.emitJump(pos, JUMP_IF_FALSE, 0)
			c.emitOp(pos, POP, -1)
			c.expr(p.Default)
			c.emitLocalSet(pos, slot)
			c.emitOp(pos, POP, -1)
			end := c.emitJump(pos, JUMP, 0)
			c.patchJump(pos, skip)
			c.emitOp(pos, POP, -1)
			c.patchJump(pos, end)
		}
	}

	for _, s := range stmts {
		c.stmt(s)
	}
	if tailExpr != nil {
		c.expr(tailExpr)
		c.emitOp(endPos, RETURN, -1)
	} else {
		c.emitOp(endPos, NULL, +1)
		c.emitOp(endPos, RETURN, -1)
	}

	built := c.fn
	c.fn = parent

	arity, isVararg := 0, false
	if fe, ok := fn.Definition.(*ast.FuncExpr); ok {
		arity = len(fe.Body.Params)
		isVararg = fe.Body.IsVararg
	}

	obj := &value.FunctionObj{
		Name:         name,
		Arity:        arity,
		UpvalueCount: len(fn.Upvalues),
		MaxSlots:     built.maxSlots,
		IsVararg:     isVararg,
		Chunk: &value.Chunk{
			Code:      built.code,
			Lines:     built.lines,
			Constants: built.constants,
		},
	}
	c.heap.Allocate(value.KindFunction, obj)
	return obj
}

// funcExpr emits a nested function/method/lambda as a CLOSURE: its body
// compiles into its own FunctionObj constant, then the enclosing code
// emits CLOSURE plus one {is_local, index} pair per captured upvalue,
// taken directly from the resolver's capture analysis (spec §4.6's
// "CLOSURE (+ N upvalue descriptors)").
func (c *compiler) funcExpr(fe *ast.FuncExpr, pos token.Position, displayName string) {
	fn := c.info.Functions[fe]
	var obj *value.FunctionObj
	if fe.Body.Block != nil {
		obj = c.compileFunction(fn, displayName, fe.Body.Block.Stmts, nil, fe.Body.Block.EndPos)
	} else {
		obj = c.compileFunction(fn, displayName, nil, fe.Body.Expr, fe.Body.Expr.Pos())
	}

	idx := c.addConstant(pos, c.heap.Allocate(value.KindFunction, obj))
	c.emitOpU16(pos, CLOSURE, idx, +1)
	for _, uv := range fn.Upvalues {
		isLocal := byte(0)
		if uv.FromLocal {
			isLocal = 1
		}
		c.write(pos, isLocal, byte(uv.Index>>8), byte(uv.Index))
	}
}
