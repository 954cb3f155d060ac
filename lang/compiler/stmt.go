package compiler

import (
	"github.com/mna/lit/lang/ast"
	"github.com/mna/lit/lang/errcode"
	"github.com/mna/lit/lang/resolver"
	"github.com/mna/lit/lang/token"
)

// stmt compiles st, leaving the stack exactly as deep as it was before
// (every statement form is stack-neutral; only expr leaves a residual
// value, and ExprStmt immediately pops it).
func (c *compiler) stmt(st ast.Stmt) {
	switch s := st.(type) {
	case *ast.ExprStmt:
		c.exprStmt(s)

	case *ast.VarStmt:
		c.varStmt(s)

	case *ast.BlockStmt:
		start := c.fn.localsEmitted
		for _, inner := range s.Stmts {
			c.stmt(inner)
		}
		c.closeScope(s.EndPos, start)

	case *ast.IfStmt:
		c.ifStmt(s)

	case *ast.WhileStmt:
		c.whileStmt(s)

	case *ast.ForStmt:
		c.forStmt(s)

	case *ast.ForInStmt:
		c.forInStmt(s)

	case *ast.ReturnStmt:
		if s.Value != nil {
			c.expr(s.Value)
		} else {
			c.emitOp(s.NamePos, NULL, +1)
		}
		c.emitOp(s.NamePos, RETURN, -1)

	case *ast.BreakStmt:
		c.breakStmt(s)

	case *ast.ContinueStmt:
		c.continueStmt(s)

	case *ast.FuncStmt:
		c.funcExpr(s.Fn, s.NamePos, s.Name)
		c.storeDecl(s, s.NamePos)

	case *ast.ClassStmt:
		c.classStmt(s)

	default:
		c.errorf(st.Pos(), errcode.UnknownStatement, "unknown statement node %T", st)
	}
}

// exprStmt compiles an expression evaluated only for its side effect; a
// direct method call (`x.m(...)`, `super.m(...)`) is lowered to the
// *_IGNORING invoke variants instead of INVOKE followed by a throwaway POP.
func (c *compiler) exprStmt(s *ast.ExprStmt) {
	pos := s.NamePos
	if call, ok := s.X.(*ast.CallExpr); ok {
		if se, ok := call.Callee.(*ast.SuperExpr); ok {
			c.loadThis(pos)
			for _, a := range call.Args {
				c.expr(a)
			}
			b := c.info.Supers[se]
			c.loadBinding(b, pos)
			idx := c.nameConstant(pos, "constructor")
			c.emitInvokeSuperIgnoring(pos, idx, len(call.Args))
			return
		}
		if get, ok := call.Callee.(*ast.GetExpr); ok {
			if se, ok := get.X.(*ast.SuperExpr); ok {
				c.loadThis(pos)
				for _, a := range call.Args {
					c.expr(a)
				}
				b := c.info.Supers[se]
				c.loadBinding(b, pos)
				idx := c.nameConstant(pos, get.Name)
				c.emitInvokeSuperIgnoring(pos, idx, len(call.Args))
				return
			}
			pending := c.exprChain(get.X)
			if get.Optional {
				j := c.emitJump(pos, JUMP_IF_NULL, 0)
				pending = append(pending, j)
			}
			for _, a := range call.Args {
				c.expr(a)
			}
			idx := c.nameConstant(pos, get.Name)
			c.emitInvokeIgnoring(pos, idx, len(call.Args))
			for _, j := range pending {
				c.patchJump(pos, j)
				c.emitOp(pos, POP, -1)
			}
			return
		}
	}
	c.expr(s.X)
	c.emitOp(pos, POP, -1)
}

// varStmt compiles a `var`/`const` declaration. A Local declaration needs
// no storage instruction - the initializer's result already sits in the
// slot the resolver assigned it, since locals are addressed by stack
// position - while a module-scope (Private) declaration must be copied
// out of that transient slot into the module's private table.
func (c *compiler) varStmt(s *ast.VarStmt) {
	pos := s.NamePos
	if s.Init != nil {
		c.expr(s.Init)
	} else {
		c.emitOp(pos, NULL, +1)
	}

	b := c.info.Decls[s]
	if b != nil && b.Scope == resolver.Local {
		c.fn.localsEmitted++
		return
	}
	c.storeDecl(s, pos)
}

// storeDecl emits the storage instruction for a declaration resolved to a
// Private slot (module scope); Local declarations need nothing further,
// since the value is already in place on the stack.
func (c *compiler) storeDecl(node ast.Node, pos token.Position) {
	b := c.info.Decls[node]
	if b == nil {
		return
	}
	if b.Scope == resolver.Local {
		c.fn.localsEmitted++
		return
	}
	if b.Index <= 0xFF {
		c.emitOpU8(pos, SET_PRIVATE, byte(b.Index), 0)
	} else {
		c.emitOpU16(pos, SET_PRIVATE_LONG, b.Index, 0)
	}
	c.emitOp(pos, POP, -1)
}

func (c *compiler) ifStmt(s *ast.IfStmt) {
	pos := s.NamePos
	c.expr(s.Cond)
	thenJump := c.emitJump(pos, JUMP_IF_FALSE, 0)
	c.emitOp(pos, POP, -1)
	c.stmt(s.Then)
	if s.Else != nil {
		elseJump := c.emitJump(pos, JUMP, 0)
		c.patchJump(pos, thenJump)
		c.emitOp(pos, POP, -1)
		c.stmt(s.Else)
		c.patchJump(pos, elseJump)
	} else {
		c.patchJump(pos, thenJump)
		c.emitOp(pos, POP, -1)
	}
}

func (c *compiler) whileStmt(s *ast.WhileStmt) {
	pos := s.NamePos
	loopStart := len(c.fn.code)
	c.expr(s.Cond)
	exitJump := c.emitJump(pos, JUMP_IF_FALSE, 0)
	c.emitOp(pos, POP, -1)

	c.fn.loops = append(c.fn.loops, loopCtx{
		continueBackward: true,
		continueTarget:   loopStart,
		localBase:        c.fn.localsEmitted,
	})
	c.stmt(s.Body)
	lp := c.fn.loops[len(c.fn.loops)-1]
	c.fn.loops = c.fn.loops[:len(c.fn.loops)-1]

	c.emitJumpBack(pos, loopStart)
	c.patchJump(pos, exitJump)
	c.emitOp(pos, POP, -1)
	for _, j := range lp.breakPatches {
		c.patchJump(pos, j)
	}
}

func (c *compiler) forStmt(s *ast.ForStmt) {
	pos := s.NamePos
	start := c.fn.localsEmitted

	if s.Init != nil {
		c.stmt(s.Init)
	}

	loopStart := len(c.fn.code)
	var exitJump int
	hasCond := s.Cond != nil
	if hasCond {
		c.expr(s.Cond)
		exitJump = c.emitJump(pos, JUMP_IF_FALSE, 0)
		c.emitOp(pos, POP, -1)
	}

	c.fn.loops = append(c.fn.loops, loopCtx{
		continueBackward: false,
		localBase:        c.fn.localsEmitted,
	})
	c.stmt(s.Body)
	lp := c.fn.loops[len(c.fn.loops)-1]
	c.fn.loops = c.fn.loops[:len(c.fn.loops)-1]

	postStart := len(c.fn.code)
	for _, j := range lp.continuePatches {
		c.patchJump(pos, j)
	}
	if s.Post != nil {
		c.stmt(s.Post)
	}
	_ = postStart
	c.emitJumpBack(pos, loopStart)

	if hasCond {
		c.patchJump(pos, exitJump)
		c.emitOp(pos, POP, -1)
	}
	for _, j := range lp.breakPatches {
		c.patchJump(pos, j)
	}

	c.closeScope(pos, start)
}

// forInStmt lowers `for (var x in seq) body` to the iterator protocol
// (spec: seq.iterator(it) / seq.iteratorValue(it)). (seq) and (it) are
// hidden locals the resolver reserves right before the loop variable
// itself, so their slot indices are known at emission time without the
// compiler inventing stack slots the resolver never accounted for.
func (c *compiler) forInStmt(s *ast.ForInStmt) {
	pos := s.NamePos
	start := c.fn.localsEmitted

	c.expr(s.Iterable)
	c.fn.localsEmitted++
	seqIdx := c.fn.localsEmitted - 1

	c.emitOp(pos, NULL, +1)
	c.fn.localsEmitted++
	itIdx := c.fn.localsEmitted - 1

	varBinding := c.info.Decls[s]
	c.emitOp(pos, NULL, +1)
	c.fn.localsEmitted++

	loopStart := len(c.fn.code)

	c.emitLocalGet(pos, seqIdx)
	c.emitLocalGet(pos, itIdx)
	iterIdx := c.nameConstant(pos, "iterator")
	c.emitInvoke(pos, iterIdx, 1)
	c.emitLocalSet(pos, itIdx)
	c.emitOp(pos, POP, -1)

	c.emitLocalGet(pos, itIdx)
	exitJump := c.emitJump(pos, JUMP_IF_FALSE, 0)
	c.emitOp(pos, POP, -1)

	c.emitLocalGet(pos, seqIdx)
	c.emitLocalGet(pos, itIdx)
	valIdx := c.nameConstant(pos, "iteratorValue")
	c.emitInvoke(pos, valIdx, 1)
	if varBinding != nil && varBinding.Scope == resolver.Local {
		c.emitLocalSet(pos, varBinding.Index)
		c.emitOp(pos, POP, -1)
	} else if varBinding != nil {
		if varBinding.Index <= 0xFF {
			c.emitOpU8(pos, SET_PRIVATE, byte(varBinding.Index), 0)
		} else {
			c.emitOpU16(pos, SET_PRIVATE_LONG, varBinding.Index, 0)
		}
		c.emitOp(pos, POP, -1)
	}

	c.fn.loops = append(c.fn.loops, loopCtx{
		continueBackward: true,
		continueTarget:   loopStart,
		localBase:        c.fn.localsEmitted,
	})
	c.stmt(s.Body)
	lp := c.fn.loops[len(c.fn.loops)-1]
	c.fn.loops = c.fn.loops[:len(c.fn.loops)-1]

	c.emitJumpBack(pos, loopStart)
	c.patchJump(pos, exitJump)
	c.emitOp(pos, POP, -1)
	for _, j := range lp.breakPatches {
		c.patchJump(pos, j)
	}

	c.closeScope(pos, start)
}

func (c *compiler) breakStmt(s *ast.BreakStmt) {
	if len(c.fn.loops) == 0 {
		c.errorf(s.NamePos, errcode.LoopJumpMisuse, "break outside of a loop")
		return
	}
	lp := &c.fn.loops[len(c.fn.loops)-1]
	saved := c.fn.depth
	c.emitScopeCleanup(s.NamePos, lp.localBase)
	j := c.emitJump(s.NamePos, JUMP, 0)
	lp.breakPatches = append(lp.breakPatches, j)
	c.fn.depth = saved
}

func (c *compiler) continueStmt(s *ast.ContinueStmt) {
	if len(c.fn.loops) == 0 {
		c.errorf(s.NamePos, errcode.LoopJumpMisuse, "continue outside of a loop")
		return
	}
	lp := &c.fn.loops[len(c.fn.loops)-1]
	saved := c.fn.depth
	c.emitScopeCleanup(s.NamePos, lp.localBase)
	if lp.continueBackward {
		c.emitJumpBack(s.NamePos, lp.continueTarget)
	} else {
		j := c.emitJump(s.NamePos, JUMP, 0)
		lp.continuePatches = append(lp.continuePatches, j)
	}
	c.fn.depth = saved
}

// closeScope pops (and closes any captured) locals declared since start,
// batching consecutive non-captured pops into POP_LOCALS<n> (spec §4.6),
// then resets the emitter's local-slot bookkeeping to start.
func (c *compiler) closeScope(pos token.Position, start int) {
	c.emitScopeCleanup(pos, start)
	c.fn.localsEmitted = start
}

// emitScopeCleanup is closeScope's instruction-emitting half, shared with
// break/continue (which must clean up down to the loop body's localBase
// without touching the compiler's localsEmitted bookkeeping, since control
// does not actually fall through to the end of the block here).
func (c *compiler) emitScopeCleanup(pos token.Position, downTo int) {
	locals := c.fn.rfn.Locals
	i := c.fn.localsEmitted
	for i > downTo {
		run := 0
		for i > downTo && !locals[i-1].Captured {
			run++
			i--
		}
		for run > 0 {
			n := run
			if n > 255 {
				n = 255
			}
			c.emitOpU8(pos, POP_LOCALS, byte(n), -n)
			run -= n
		}
		if i > downTo && locals[i-1].Captured {
			c.emitOp(pos, CLOSE_UPVALUE, -1)
			i--
		}
	}
}

func (c *compiler) classStmt(s *ast.ClassStmt) {
	pos := s.NamePos
	nameIdx := c.nameConstant(pos, s.Name)
	c.emitOpU16(pos, CLASS, nameIdx, +1)

	if s.Super != "" {
		sup := c.info.ClassSupers[s]
		c.loadBinding(sup, pos)
		c.emitOp(pos, INHERIT, -1)
	}

	for _, f := range s.StaticFields {
		c.fieldDecl(f, pos, true)
	}
	for _, f := range s.Fields {
		c.fieldDecl(f, pos, false)
	}
	for _, m := range s.Methods {
		c.methodDecl(m, pos)
	}

	c.storeDecl(s, pos)
}

func (c *compiler) methodDecl(m *ast.MethodDecl, classPos token.Position) {
	pos := m.NamePos
	if m.Static && m.Name == "constructor" {
		c.errorf(pos, errcode.StaticConstructor, "constructor cannot be static")
	}
	c.funcExpr(m.Fn, pos, m.Name)
	idx := c.nameConstant(pos, m.Name)
	if m.Static {
		c.emitOpU16(pos, STATIC_FIELD, idx, -1)
	} else {
		c.emitOpU16(pos, METHOD, idx, -1)
	}
}

func (c *compiler) fieldDecl(f *ast.FieldDecl, classPos token.Position, static bool) {
	pos := f.NamePos
	if f.Getter != nil || f.Setter != nil {
		// DEFINE_FIELD takes a single field value; the getter/setter pair is
		// bundled into a 2-element array ([getter, setter], either null) that
		// the VM's class-definition handler unpacks into a FieldObj.
		c.emitOp(pos, ARRAY, +1)
		if f.Getter != nil {
			c.funcExpr(f.Getter, pos, f.Name+".getter")
		} else {
			c.emitOp(pos, NULL, +1)
		}
		c.emitOp(pos, PUSH_ARRAY_ELEMENT, -1)
		if f.Setter != nil {
			c.funcExpr(f.Setter, pos, f.Name+".setter")
		} else {
			c.emitOp(pos, NULL, +1)
		}
		c.emitOp(pos, PUSH_ARRAY_ELEMENT, -1)
		idx := c.nameConstant(pos, f.Name)
		c.emitOpU16(pos, DEFINE_FIELD, idx, -1)
		return
	}

	if static {
		if f.Init != nil {
			c.expr(f.Init)
		} else {
			c.emitOp(pos, NULL, +1)
		}
		idx := c.nameConstant(pos, f.Name)
		c.emitOpU16(pos, STATIC_FIELD, idx, -1)
	}
	// non-static plain fields need no bytecode: every Instance starts with
	// an empty field table and fields are created on first SET_FIELD/the
	// constructor's implicit initialization (spec §4.8).
}
