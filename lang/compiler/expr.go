package compiler

import (
	"github.com/mna/lit/lang/ast"
	"github.com/mna/lit/lang/errcode"
	"github.com/mna/lit/lang/resolver"
	"github.com/mna/lit/lang/token"
	"github.com/mna/lit/lang/value"
)

// expr compiles e, leaving exactly one value on the stack.
func (c *compiler) expr(e ast.Expr) {
	switch x := e.(type) {
	case *ast.Literal:
		c.literal(x)

	case *ast.InterpolationExpr:
		c.interpolation(x)

	case *ast.Ident:
		c.loadBinding(c.info.Idents[x], x.NamePos)

	case *ast.ThisExpr:
		c.loadBinding(c.info.Thises[x], x.NamePos)

	case *ast.SuperExpr:
		// A bare `super` only makes sense as the X of a GetExpr/CallExpr,
		// both handled in exprChain; reaching here is a malformed program
		// the parser should already have rejected.
		c.errorf(x.NamePos, errcode.SuperMisuse, "invalid use of 'super'")

	case *ast.ArrayExpr:
		c.emitOp(x.NamePos, ARRAY, +1)
		for _, el := range x.Elems {
			c.expr(el)
			c.emitOp(x.NamePos, PUSH_ARRAY_ELEMENT, -1)
		}

	case *ast.ObjectExpr:
		c.emitOp(x.NamePos, OBJECT, +1)
		for i := range x.Keys {
			c.expr(x.Keys[i])
			c.expr(x.Values[i])
			c.emitOp(x.NamePos, PUSH_OBJECT_FIELD, -2)
		}

	case *ast.RangeExpr:
		c.expr(x.From)
		c.expr(x.To)
		c.emitOp(x.NamePos, RANGE, -1)

	case *ast.UnaryExpr:
		c.unary(x)

	case *ast.RefExpr:
		c.ref(x)

	case *ast.DerefSetExpr:
		c.expr(x.Ref)
		c.expr(x.Value)
		c.emitOp(x.NamePos, SET_REFERENCE, -1)

	case *ast.BinaryExpr:
		c.expr(x.X)
		c.expr(x.Y)
		if x.Op == token.BANG_EQUAL {
			c.emitOp(x.NamePos, EQUAL, -1)
			c.emitOp(x.NamePos, NOT, 0)
		} else {
			c.emitOp(x.NamePos, binaryOpcode(x.Op), -1)
		}

	case *ast.LogicalExpr:
		c.logical(x)

	case *ast.AssignExpr:
		c.assign(x)

	case *ast.SetExpr:
		c.expr(x.X)
		c.expr(x.Value)
		idx := c.nameConstant(x.NamePos, x.Name)
		c.emitOpU16(x.NamePos, SET_FIELD, idx, -1)

	case *ast.SetIndexExpr:
		c.expr(x.X)
		c.expr(x.Index)
		c.expr(x.Value)
		c.emitOp(x.NamePos, SUBSCRIPT_SET, -2)

	case *ast.TernaryExpr:
		c.ternary(x)

	case *ast.FuncExpr:
		name := x.Name
		if name == "" {
			name = "<anonymous>"
		}
		c.funcExpr(x, x.NamePos, name)

	case *ast.NewExpr:
		c.expr(x.Class)
		for _, a := range x.Args {
			c.expr(a)
		}
		c.emitOpU8(x.NamePos, CALL, byte(len(x.Args)), -len(x.Args))

	case *ast.GetExpr, *ast.CallExpr, *ast.IndexExpr:
		pending := c.exprChain(e)
		for _, j := range pending {
			c.patchJump(e.Pos(), j)
		}

	default:
		c.errorf(e.Pos(), errcode.UnknownExpression, "unknown expression node %T", e)
	}
}

func (c *compiler) literal(l *ast.Literal) {
	switch v := l.Value.(type) {
	case nil:
		c.emitOp(l.NamePos, NULL, +1)
	case bool:
		if v {
			c.emitOp(l.NamePos, TRUE, +1)
		} else {
			c.emitOp(l.NamePos, FALSE, +1)
		}
	case int64:
		c.emitConstant(l.NamePos, value.Number(float64(v)))
	case float64:
		c.emitConstant(l.NamePos, value.Number(v))
	case string:
		c.emitConstant(l.NamePos, c.heap.InternString(v))
	default:
		c.errorf(l.NamePos, errcode.UnknownExpression, "unsupported literal type %T", v)
	}
}

// interpolation compiles "a{x}b{y}c" as a left fold of `+` over the literal
// chunks and the stringified expression results (spec's String::format is
// used at the library level; the emitter itself just chains ADD, relying
// on `+` over strings/Instances invoking the class method per spec §4.7).
func (c *compiler) interpolation(i *ast.InterpolationExpr) {
	c.emitConstant(i.NamePos, c.heap.InternString(i.Parts[0]))
	for n, sub := range i.Exprs {
		c.expr(sub)
		c.emitOp(i.NamePos, ADD, -1)
		c.emitConstant(i.NamePos, c.heap.InternString(i.Parts[n+1]))
		c.emitOp(i.NamePos, ADD, -1)
	}
}

func (c *compiler) unary(u *ast.UnaryExpr) {
	if u.Op == token.STAR {
		// `*x` outside of an assignment target dereferences a Reference,
		// read as a plain GET_FIELD-less load: not directly supported by a
		// dedicated opcode, so it is only valid on the left of `=`
		// (DerefSetExpr); parseUnary still produces a bare UnaryExpr{STAR}
		// when `*x` is used as a value rather than an assignment target,
		// which this codebase does not support as a read.
		c.errorf(u.NamePos, errcode.InvalidReferenceTarget, "dereference is only valid as an assignment target")
		return
	}
	c.expr(u.X)
	switch u.Op {
	case token.MINUS:
		c.emitOp(u.NamePos, NEGATE, 0)
	case token.BANG, token.NOT:
		c.emitOp(u.NamePos, NOT, 0)
	case token.TILDE:
		c.emitOp(u.NamePos, BNOT, 0)
	default:
		c.errorf(u.NamePos, errcode.UnknownExpression, "unknown unary operator %s", u.Op)
	}
}

func (c *compiler) ternary(t *ast.TernaryExpr) {
	pos := t.NamePos
	c.expr(t.Cond)
	thenJump := c.emitJump(pos, JUMP_IF_FALSE, 0)
	c.emitOp(pos, POP, -1)
	c.expr(t.Then)
	elseJump := c.emitJump(pos, JUMP, 0)
	c.patchJump(pos, thenJump)
	c.emitOp(pos, POP, -1)
	c.expr(t.Else)
	c.patchJump(pos, elseJump)
}

func (c *compiler) logical(l *ast.LogicalExpr) {
	pos := l.NamePos
	switch l.Op {
	case token.AND:
		c.expr(l.X)
		j := c.emitJump(pos, JUMP_IF_FALSE, 0)
		c.emitOp(pos, POP, -1)
		c.expr(l.Y)
		c.patchJump(pos, j)

	case token.OR:
		c.expr(l.X)
		elseJump := c.emitJump(pos, JUMP_IF_FALSE, 0)
		endJump := c.emitJump(pos, JUMP, 0)
		c.patchJump(pos, elseJump)
		c.emitOp(pos, POP, -1)
		c.expr(l.Y)
		c.patchJump(pos, endJump)

	case token.QUESTION_QUESTION:
		c.expr(l.X)
		elseJump := c.emitJump(pos, JUMP_IF_NULL, 0)
		endJump := c.emitJump(pos, JUMP, 0)
		c.patchJump(pos, elseJump)
		c.emitOp(pos, POP, -1)
		c.expr(l.Y)
		c.patchJump(pos, endJump)

	default:
		c.errorf(pos, errcode.UnknownExpression, "unknown logical operator %s", l.Op)
	}
}

func binaryOpcode(op token.Token) Opcode {
	switch op {
	case token.PLUS:
		return ADD
	case token.MINUS:
		return SUBTRACT
	case token.STAR:
		return MULTIPLY
	case token.STAR_STAR:
		return POWER
	case token.SLASH:
		return DIVIDE
	case token.SLASH_SLASH:
		return FLOOR_DIVIDE
	case token.PERCENT:
		return MOD
	case token.AMP:
		return BAND
	case token.PIPE:
		return BOR
	case token.CARET:
		return BXOR
	case token.LESS_LESS:
		return LSHIFT
	case token.GREATER_GREATER:
		return RSHIFT
	case token.EQUAL_EQUAL:
		return EQUAL
	case token.GREATER:
		return GREATER
	case token.GREATER_EQUAL:
		return GREATER_EQUAL
	case token.LESS:
		return LESS
	case token.LESS_EQUAL:
		return LESS_EQUAL
	case token.IS:
		return IS
	}
	return NOP
}

func compoundOpcode(op token.Token) Opcode {
	switch op {
	case token.PLUS_EQUAL:
		return ADD
	case token.MINUS_EQUAL:
		return SUBTRACT
	case token.STAR_EQUAL:
		return MULTIPLY
	case token.SLASH_EQUAL:
		return DIVIDE
	case token.PERCENT_EQUAL:
		return MOD
	}
	return NOP
}

// --- identifier load/store ---

func (c *compiler) loadBinding(b *resolver.Binding, pos token.Position) {
	if b == nil {
		c.errorf(pos, errcode.UnknownExpression, "internal: no binding for identifier")
		return
	}
	switch b.Scope {
	case resolver.Local:
		c.emitLocalGet(pos, b.Index)
	case resolver.Upvalue:
		c.emitOpU8(pos, GET_UPVALUE, byte(b.Index), +1)
	case resolver.Private:
		if b.Index <= 0xFF {
			c.emitOpU8(pos, GET_PRIVATE, byte(b.Index), +1)
		} else {
			c.emitOpU16(pos, GET_PRIVATE_LONG, b.Index, +1)
		}
	default: // Global, Undefined
		idx := c.nameConstant(pos, b.Name)
		c.emitOpU16(pos, GET_GLOBAL, idx, +1)
	}
}

func (c *compiler) storeBinding(b *resolver.Binding, pos token.Position) {
	if b == nil {
		return
	}
	if b.Const {
		c.errorf(pos, errcode.ConstantModified, "assignment to constant variable: %s", b.Name)
	}
	switch b.Scope {
	case resolver.Local:
		c.emitLocalSet(pos, b.Index)
	case resolver.Upvalue:
		c.emitOpU8(pos, SET_UPVALUE, byte(b.Index), 0)
	case resolver.Private:
		if b.Index <= 0xFF {
			c.emitOpU8(pos, SET_PRIVATE, byte(b.Index), 0)
		} else {
			c.emitOpU16(pos, SET_PRIVATE_LONG, b.Index, 0)
		}
	default:
		idx := c.nameConstant(pos, b.Name)
		c.emitOpU16(pos, SET_GLOBAL, idx, 0)
	}
}

func (c *compiler) emitLocalGet(pos token.Position, idx int) {
	if idx <= 0xFF {
		c.emitOpU8(pos, GET_LOCAL, byte(idx), +1)
	} else {
		c.emitOpU16(pos, GET_LOCAL_LONG, idx, +1)
	}
}

func (c *compiler) emitLocalSet(pos token.Position, idx int) {
	if idx <= 0xFF {
		c.emitOpU8(pos, SET_LOCAL, byte(idx), 0)
	} else {
		c.emitOpU16(pos, SET_LOCAL_LONG, idx, 0)
	}
}

// loadThis assumes the current function is a method/constructor body (slot
// 0 is always "this" there, per the resolver's funcExpr); a `super` call
// reached from a further-nested closure is not supported (the resolver
// only captures "this"/"super" as upvalues when an explicit this/super
// expression triggers it, which a bare `super(...)` call does not).
func (c *compiler) loadThis(pos token.Position) {
	c.emitOpU8(pos, GET_LOCAL, 0, +1)
}

// --- assignment ---

func (c *compiler) assign(a *ast.AssignExpr) {
	pos := a.NamePos

	if a.Op == token.EQUAL {
		switch t := a.Target.(type) {
		case *ast.Ident:
			c.expr(a.Value)
			c.storeBinding(c.info.Idents[t], pos)
		case *ast.GetExpr:
			// Only reachable for `a?.b = value` (a plain, non-optional dotted
			// target is parsed directly as *ast.SetExpr); the optional flag
			// is not given special treatment on the write side.
			c.expr(t.X)
			c.expr(a.Value)
			idx := c.nameConstant(pos, t.Name)
			c.emitOpU16(pos, SET_FIELD, idx, -1)
		default:
			c.errorf(pos, errcode.InvalidAssignmentTarget, "invalid assignment target")
		}
		return
	}

	op := compoundOpcode(a.Op)
	switch t := a.Target.(type) {
	case *ast.Ident:
		b := c.info.Idents[t]
		c.loadBinding(b, pos)
		c.expr(a.Value)
		c.emitOp(pos, op, -1)
		c.storeBinding(b, pos)

	case *ast.GetExpr:
		// Re-evaluate the receiver expression: once to satisfy GET_FIELD's
		// read and once left under the computed value for SET_FIELD, since
		// there is no opcode to duplicate a stack slot.
		c.expr(t.X)
		c.expr(t.X)
		idx := c.nameConstant(pos, t.Name)
		c.emitOpU16(pos, GET_FIELD, idx, 0)
		c.expr(a.Value)
		c.emitOp(pos, op, -1)
		c.emitOpU16(pos, SET_FIELD, idx, -1)

	case *ast.IndexExpr:
		c.expr(t.X)
		c.expr(t.Index)
		c.expr(t.X)
		c.expr(t.Index)
		c.emitOp(pos, SUBSCRIPT_GET, -1)
		c.expr(a.Value)
		c.emitOp(pos, op, -1)
		c.emitOp(pos, SUBSCRIPT_SET, -2)

	default:
		c.errorf(pos, errcode.InvalidAssignmentTarget, "invalid assignment target")
	}
}

// ref compiles `ref x`, producing a Reference object over whatever slot x
// denotes.
func (c *compiler) ref(r *ast.RefExpr) {
	pos := r.NamePos
	switch t := r.Target.(type) {
	case *ast.Ident:
		b := c.info.Idents[t]
		switch b.Scope {
		case resolver.Local:
			if b.Index <= 0xFF {
				c.emitOpU8(pos, REFERENCE_LOCAL, byte(b.Index), +1)
			} else {
				c.errorf(pos, errcode.InvalidReferenceTarget, "local index too big to reference")
			}
		case resolver.Upvalue:
			c.emitOpU8(pos, REFERENCE_UPVALUE, byte(b.Index), +1)
		case resolver.Private:
			idx := b.Index
			c.emitOpU16(pos, REFERENCE_PRIVATE, idx, +1)
		default:
			idx := c.nameConstant(pos, b.Name)
			c.emitOpU16(pos, REFERENCE_GLOBAL, idx, +1)
		}
	case *ast.GetExpr:
		c.expr(t.X)
		idx := c.nameConstant(pos, t.Name)
		c.emitOpU16(pos, REFERENCE_FIELD, idx, 0)
	case *ast.IndexExpr:
		c.expr(t.X)
		c.expr(t.Index)
		c.emitOp(pos, REFERENCE_INDEX, -1)
	default:
		c.errorf(pos, errcode.InvalidReferenceTarget, "invalid reference target")
	}
}

// --- postfix chains: field/index/call, including optional (?.) chaining
// and super dispatch ---

// exprChain compiles a GetExpr/CallExpr/IndexExpr postfix chain and
// returns the offsets of any not-yet-patched JUMP_IF_NULL instructions
// from `?.` links, which the caller (expr's GetExpr/CallExpr/IndexExpr
// case) patches to land right after the whole chain: a null anywhere in
// an optional chain short-circuits every access still to come, since
// JUMP_IF_NULL does not pop its operand.
func (c *compiler) exprChain(e ast.Expr) []int {
	pos := e.Pos()
	switch x := e.(type) {
	case *ast.GetExpr:
		if se, ok := x.X.(*ast.SuperExpr); ok {
			b := c.info.Supers[se]
			c.loadBinding(b, pos)
			idx := c.nameConstant(pos, x.Name)
			c.emitOpU16(pos, GET_SUPER_METHOD, idx, 0)
			return nil
		}
		pending := c.exprChain(x.X)
		if x.Optional {
			j := c.emitJump(pos, JUMP_IF_NULL, 0)
			pending = append(pending, j)
		}
		idx := c.nameConstant(pos, x.Name)
		c.emitOpU16(pos, GET_FIELD, idx, 0)
		return pending

	case *ast.CallExpr:
		if se, ok := x.Callee.(*ast.SuperExpr); ok {
			c.loadThis(pos)
			for _, a := range x.Args {
				c.expr(a)
			}
			b := c.info.Supers[se]
			c.loadBinding(b, pos)
			idx := c.nameConstant(pos, "constructor")
			c.emitInvokeSuper(pos, idx, len(x.Args))
			return nil
		}
		if get, ok := x.Callee.(*ast.GetExpr); ok {
			if se, ok := get.X.(*ast.SuperExpr); ok {
				c.loadThis(pos)
				for _, a := range x.Args {
					c.expr(a)
				}
				b := c.info.Supers[se]
				c.loadBinding(b, pos)
				idx := c.nameConstant(pos, get.Name)
				c.emitInvokeSuper(pos, idx, len(x.Args))
				return nil
			}
			pending := c.exprChain(get.X)
			if get.Optional {
				j := c.emitJump(pos, JUMP_IF_NULL, 0)
				pending = append(pending, j)
			}
			for _, a := range x.Args {
				c.expr(a)
			}
			idx := c.nameConstant(pos, get.Name)
			c.emitInvoke(pos, idx, len(x.Args))
			return pending
		}
		pending := c.exprChain(x.Callee)
		for _, a := range x.Args {
			c.expr(a)
		}
		c.emitOpU8(pos, CALL, byte(len(x.Args)), -len(x.Args))
		return pending

	case *ast.IndexExpr:
		pending := c.exprChain(x.X)
		c.expr(x.Index)
		c.emitOp(pos, SUBSCRIPT_GET, -1)
		return pending

	default:
		c.expr(e)
		return nil
	}
}

func (c *compiler) emitInvoke(pos token.Position, nameIdx, argc int) {
	c.write(pos, byte(INVOKE), byte(nameIdx>>8), byte(nameIdx), byte(argc))
	c.adjustStack(-argc)
}

func (c *compiler) emitInvokeSuper(pos token.Position, nameIdx, argc int) {
	c.write(pos, byte(INVOKE_SUPER), byte(nameIdx>>8), byte(nameIdx), byte(argc))
	c.adjustStack(-(argc + 1))
}

func (c *compiler) emitInvokeIgnoring(pos token.Position, nameIdx, argc int) {
	c.write(pos, byte(INVOKE_IGNORING), byte(nameIdx>>8), byte(nameIdx), byte(argc))
	c.adjustStack(-(argc + 1))
}

func (c *compiler) emitInvokeSuperIgnoring(pos token.Position, nameIdx, argc int) {
	c.write(pos, byte(INVOKE_SUPER_IGNORING), byte(nameIdx>>8), byte(nameIdx), byte(argc))
	c.adjustStack(-(argc + 2))
}
