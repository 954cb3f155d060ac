package resolver

import (
	"github.com/mna/lit/lang/ast"
	"github.com/mna/lit/lang/errcode"
)

func (r *resolver) stmt(st ast.Stmt) {
	switch s := st.(type) {
	case *ast.ExprStmt:
		r.expr(s.X)

	case *ast.VarStmt:
		b := r.declare(s.Name, s.NamePos, s.Const)
		r.info.Decls[s] = b
		if s.Init != nil {
			r.expr(s.Init)
		}
		r.markInitialized(b)

	case *ast.BlockStmt:
		r.push(nil, false)
		for _, inner := range s.Stmts {
			r.stmt(inner)
		}
		r.pop()

	case *ast.IfStmt:
		r.expr(s.Cond)
		r.stmt(s.Then)
		if s.Else != nil {
			r.stmt(s.Else)
		}

	case *ast.WhileStmt:
		r.expr(s.Cond)
		r.push(nil, true)
		r.stmt(s.Body)
		r.pop()

	case *ast.ForStmt:
		r.push(nil, true)
		if s.Init != nil {
			r.stmt(s.Init)
		}
		if s.Cond != nil {
			r.expr(s.Cond)
		}
		if s.Post != nil {
			r.stmt(s.Post)
		}
		r.stmt(s.Body)
		r.pop()

	case *ast.ForInStmt:
		r.expr(s.Iterable)
		r.push(nil, true)
		// Hidden locals backing the iterator protocol (spec §4.7: seq.iterator(it)
		// / seq.iteratorValue(it)); declared before the loop variable itself so
		// the emitter's physical stack layout always has them at known,
		// fixed offsets relative to it.
		r.declareSynthetic("(seq)", false)
		r.declareSynthetic("(it)", false)
		b := r.declare(s.VarName, s.NamePos, false)
		r.info.Decls[s] = b
		r.markInitialized(b)
		r.stmt(s.Body)
		r.pop()

	case *ast.ReturnStmt:
		if s.Value != nil {
			r.expr(s.Value)
		}

	case *ast.BreakStmt:
		if !r.inLoop() {
			r.errorf(s.NamePos, errcode.LoopJumpMisuse, "break outside of a loop")
		}

	case *ast.ContinueStmt:
		if !r.inLoop() {
			r.errorf(s.NamePos, errcode.LoopJumpMisuse, "continue outside of a loop")
		}

	case *ast.FuncStmt:
		// bind the name before the body so the function can call itself.
		b := r.declare(s.Name, s.NamePos, false)
		r.info.Decls[s] = b
		r.markInitialized(b)
		r.funcExpr(s.Fn, false)

	case *ast.ClassStmt:
		r.classStmt(s)
	}
}

func (r *resolver) inLoop() bool {
	for b := r.env; b != nil && b.fn == r.env.fn; b = b.parent {
		if b.isLoop {
			return true
		}
	}
	return false
}

// funcExpr resolves a function/lambda/method body in its own Function
// scope. Slot order matches the emitter's expectation: an implicit "this"
// at slot 0 for methods, then parameters in declaration order, then the
// vararg collector if present.
func (r *resolver) funcExpr(fn *ast.FuncExpr, isMethod bool) {
	nf := &Function{Definition: fn, Parent: r.env.fn, IsMethod: isMethod}
	r.info.Functions[fn] = nf
	r.push(nf, false)

	if isMethod {
		r.declareSynthetic("this", false)
	}
	for _, p := range fn.Body.Params {
		b := r.declareSynthetic(p.Name, false)
		if p.Default != nil {
			r.expr(p.Default)
		}
		_ = b
	}
	if fn.Body.IsVararg {
		r.declareSynthetic("...", false)
	}

	if fn.Body.Block != nil {
		for _, inner := range fn.Body.Block.Stmts {
			r.stmt(inner)
		}
	}
	if fn.Body.Expr != nil {
		r.expr(fn.Body.Expr)
	}

	r.pop()
}

// classStmt resolves a class declaration: the class name is bound before
// the body (methods may reference the class by name, e.g. in a static
// factory), the superclass name is resolved as an ordinary use, and - when
// there is a superclass - a synthetic "super" local is opened around the
// body so methods can capture it as an upvalue (spec: "super is captured
// as an upvalue named super").
func (r *resolver) classStmt(s *ast.ClassStmt) {
	b := r.declare(s.Name, s.NamePos, true)
	r.info.Decls[s] = b
	r.markInitialized(b)

	hasSuper := s.Super != ""
	if hasSuper {
		sup := r.use(s.Super, s.NamePos)
		r.info.ClassSupers[s] = sup

		r.push(nil, false)
		r.declareSynthetic("super", true)
	}

	for _, f := range s.StaticFields {
		r.fieldDecl(f)
	}
	for _, f := range s.Fields {
		r.fieldDecl(f)
	}
	for _, m := range s.Methods {
		r.funcExpr(m.Fn, !m.Static)
	}

	if hasSuper {
		r.pop()
	}
}

func (r *resolver) fieldDecl(f *ast.FieldDecl) {
	if f.Init != nil {
		r.expr(f.Init)
	}
	if f.Getter != nil {
		r.funcExpr(f.Getter, true)
	}
	if f.Setter != nil {
		r.funcExpr(f.Setter, true)
	}
}
