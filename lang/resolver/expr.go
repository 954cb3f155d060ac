package resolver

import (
	"github.com/mna/lit/lang/ast"
	"github.com/mna/lit/lang/errcode"
)

func (r *resolver) expr(x ast.Expr) {
	switch e := x.(type) {
	case *ast.Literal:
		// nothing to resolve

	case *ast.InterpolationExpr:
		for _, sub := range e.Exprs {
			r.expr(sub)
		}

	case *ast.Ident:
		r.info.Idents[e] = r.use(e.Name, e.NamePos)

	case *ast.ThisExpr:
		r.info.Thises[e] = r.useThis(e)

	case *ast.SuperExpr:
		r.info.Supers[e] = r.useSuper(e)

	case *ast.ArrayExpr:
		for _, el := range e.Elems {
			r.expr(el)
		}

	case *ast.ObjectExpr:
		for i := range e.Keys {
			r.expr(e.Keys[i])
			r.expr(e.Values[i])
		}

	case *ast.RangeExpr:
		r.expr(e.From)
		r.expr(e.To)

	case *ast.UnaryExpr:
		r.expr(e.X)

	case *ast.RefExpr:
		r.refTarget(e.Target)

	case *ast.DerefSetExpr:
		r.expr(e.Ref)
		r.expr(e.Value)

	case *ast.BinaryExpr:
		r.expr(e.X)
		r.expr(e.Y)

	case *ast.LogicalExpr:
		r.expr(e.X)
		r.expr(e.Y)

	case *ast.AssignExpr:
		r.expr(e.Value)
		r.assignTarget(e.Target)

	case *ast.CallExpr:
		r.expr(e.Callee)
		for _, a := range e.Args {
			r.expr(a)
		}

	case *ast.NewExpr:
		r.expr(e.Class)
		for _, a := range e.Args {
			r.expr(a)
		}

	case *ast.GetExpr:
		r.expr(e.X)

	case *ast.SetExpr:
		r.expr(e.X)
		r.expr(e.Value)

	case *ast.IndexExpr:
		r.expr(e.X)
		r.expr(e.Index)

	case *ast.SetIndexExpr:
		r.expr(e.X)
		r.expr(e.Index)
		r.expr(e.Value)

	case *ast.TernaryExpr:
		r.expr(e.Cond)
		r.expr(e.Then)
		r.expr(e.Else)

	case *ast.FuncExpr:
		r.funcExpr(e, false)
	}
}

// refTarget resolves the lvalue of `ref x` the same way as a plain read,
// since a Reference object is produced over whatever slot the target
// already denotes (local, upvalue, private, global or field), not a new
// binding.
func (r *resolver) refTarget(target ast.Expr) { r.expr(target) }

// assignTarget resolves the lvalue of a plain `=`/compound assignment,
// reporting an error if the target denotes a constant binding.
func (r *resolver) assignTarget(target ast.Expr) {
	switch t := target.(type) {
	case *ast.Ident:
		b := r.use(t.Name, t.NamePos)
		r.info.Idents[t] = b
		if b.Const {
			r.errorf(t.NamePos, errcode.ConstantModified, "assignment to constant variable: %s", t.Name)
		}
	default:
		r.expr(target)
	}
}

// useThis resolves a `this` expression: slot 0 of the current method or
// constructor, or - from a plain function nested inside one - an upvalue
// chain up to that slot 0. "this" is never module-private, so falling all
// the way through to Global means no enclosing method declared it.
func (r *resolver) useThis(e *ast.ThisExpr) *Binding {
	b := r.use("this", e.NamePos)
	if b.Scope == Global {
		r.errorf(e.NamePos, errcode.ThisMisuse, "invalid use of 'this' outside of a method")
		return &Binding{Name: "this", Scope: Undefined}
	}
	return b
}

// useSuper resolves a `super` expression the same way as `this`: a local in
// the class's synthetic scope when used directly inside a method, or a
// captured upvalue from a nested plain function.
func (r *resolver) useSuper(e *ast.SuperExpr) *Binding {
	b := r.use("super", e.NamePos)
	if b.Scope == Global {
		r.errorf(e.NamePos, errcode.NoSuper, "use of 'super' in a class with no superclass")
		return &Binding{Name: "super", Scope: Undefined}
	}
	return b
}
