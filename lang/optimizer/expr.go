package optimizer

import (
	"github.com/mna/lit/lang/ast"
	"github.com/mna/lit/lang/token"
)

func (o *optimizerState) optimizeExpr(x ast.Expr) ast.Expr {
	switch e := x.(type) {
	case *ast.Literal:
		return e
	case *ast.InterpolationExpr:
		for i, sub := range e.Exprs {
			e.Exprs[i] = o.optimizeExpr(sub)
		}
		return e
	case *ast.ArrayExpr:
		for i, el := range e.Elems {
			e.Elems[i] = o.optimizeExpr(el)
		}
		return e
	case *ast.ObjectExpr:
		for i := range e.Keys {
			e.Keys[i] = o.optimizeExpr(e.Keys[i])
			e.Values[i] = o.optimizeExpr(e.Values[i])
		}
		return e
	case *ast.RangeExpr:
		e.From = o.optimizeExpr(e.From)
		e.To = o.optimizeExpr(e.To)
		return e
	case *ast.UnaryExpr:
		e.X = o.optimizeExpr(e.X)
		return o.foldUnary(e)
	case *ast.RefExpr:
		e.Target = o.optimizeExpr(e.Target)
		return e
	case *ast.DerefSetExpr:
		e.Ref = o.optimizeExpr(e.Ref)
		e.Value = o.optimizeExpr(e.Value)
		return e
	case *ast.BinaryExpr:
		e.X = o.optimizeExpr(e.X)
		e.Y = o.optimizeExpr(e.Y)
		return o.foldBinary(e)
	case *ast.LogicalExpr:
		e.X = o.optimizeExpr(e.X)
		e.Y = o.optimizeExpr(e.Y)
		return o.foldLogical(e)
	case *ast.AssignExpr:
		e.Value = o.optimizeExpr(e.Value)
		return e
	case *ast.CallExpr:
		e.Callee = o.optimizeExpr(e.Callee)
		for i, a := range e.Args {
			e.Args[i] = o.optimizeExpr(a)
		}
		return e
	case *ast.NewExpr:
		e.Class = o.optimizeExpr(e.Class)
		for i, a := range e.Args {
			e.Args[i] = o.optimizeExpr(a)
		}
		return e
	case *ast.GetExpr:
		e.X = o.optimizeExpr(e.X)
		return e
	case *ast.SetExpr:
		e.X = o.optimizeExpr(e.X)
		e.Value = o.optimizeExpr(e.Value)
		return e
	case *ast.IndexExpr:
		e.X = o.optimizeExpr(e.X)
		e.Index = o.optimizeExpr(e.Index)
		return e
	case *ast.SetIndexExpr:
		e.X = o.optimizeExpr(e.X)
		e.Index = o.optimizeExpr(e.Index)
		e.Value = o.optimizeExpr(e.Value)
		return e
	case *ast.TernaryExpr:
		e.Cond = o.optimizeExpr(e.Cond)
		e.Then = o.optimizeExpr(e.Then)
		e.Else = o.optimizeExpr(e.Else)
		if lit, ok := e.Cond.(*ast.Literal); ok {
			if b, ok := lit.Value.(bool); ok {
				if b {
					return e.Then
				}
				return e.Else
			}
		}
		return e
	case *ast.FuncExpr:
		return o.optimizeFuncExpr(e)
	}
	return x
}

// foldUnary implements spec §4.5's literal-folding for the unary operators:
// numeric negation, logical not, and bitwise complement over int64.
func (o *optimizerState) foldUnary(e *ast.UnaryExpr) ast.Expr {
	if !o.opts.Enabled(LiteralFolding) {
		return e
	}
	lit, ok := e.X.(*ast.Literal)
	if !ok {
		return e
	}
	switch e.Op {
	case token.MINUS:
		switch v := lit.Value.(type) {
		case int64:
			return &ast.Literal{Value: -v, NamePos: e.NamePos}
		case float64:
			return &ast.Literal{Value: -v, NamePos: e.NamePos}
		}
	case token.BANG, token.NOT:
		return &ast.Literal{Value: !truthy(lit.Value), NamePos: e.NamePos}
	case token.TILDE:
		if v, ok := lit.Value.(int64); ok {
			return &ast.Literal{Value: ^v, NamePos: e.NamePos}
		}
	}
	return e
}

// foldBinary implements constant folding (spec §4.5) for arithmetic,
// comparison and bitwise operators when both operands are literals of a
// compatible numeric type. A fold that would divide or mod by zero is left
// unfolded so the division-by-zero error surfaces normally at run time.
func (o *optimizerState) foldBinary(e *ast.BinaryExpr) ast.Expr {
	if !o.opts.Enabled(ConstantFolding) {
		return e
	}
	lx, ok := e.X.(*ast.Literal)
	if !ok {
		return e
	}
	ly, ok := e.Y.(*ast.Literal)
	if !ok {
		return e
	}

	if xi, xok := lx.Value.(int64); xok {
		if yi, yok := ly.Value.(int64); yok {
			if v, ok := foldIntBinary(e.Op, xi, yi); ok {
				return &ast.Literal{Value: v, NamePos: e.NamePos}
			}
			return e
		}
	}

	xf, xok := asFloat(lx.Value)
	yf, yok := asFloat(ly.Value)
	if xok && yok {
		if v, ok := foldFloatBinary(e.Op, xf, yf); ok {
			return &ast.Literal{Value: v, NamePos: e.NamePos}
		}
	}
	return e
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func foldIntBinary(op token.Token, x, y int64) (any, bool) {
	switch op {
	case token.PLUS:
		return x + y, true
	case token.MINUS:
		return x - y, true
	case token.STAR:
		return x * y, true
	case token.SLASH_SLASH, token.PERCENT:
		if y == 0 {
			return nil, false
		}
		if op == token.SLASH_SLASH {
			return x / y, true
		}
		return x % y, true
	case token.SLASH:
		if y == 0 {
			return nil, false
		}
		return float64(x) / float64(y), true
	case token.AMP:
		return x & y, true
	case token.PIPE:
		return x | y, true
	case token.CARET:
		return x ^ y, true
	case token.LESS_LESS:
		return x << uint64(y), true
	case token.GREATER_GREATER:
		return x >> uint64(y), true
	case token.EQUAL_EQUAL:
		return x == y, true
	case token.BANG_EQUAL:
		return x != y, true
	case token.LESS:
		return x < y, true
	case token.LESS_EQUAL:
		return x <= y, true
	case token.GREATER:
		return x > y, true
	case token.GREATER_EQUAL:
		return x >= y, true
	}
	return nil, false
}

func foldFloatBinary(op token.Token, x, y float64) (any, bool) {
	switch op {
	case token.PLUS:
		return x + y, true
	case token.MINUS:
		return x - y, true
	case token.STAR:
		return x * y, true
	case token.SLASH:
		if y == 0 {
			return nil, false
		}
		return x / y, true
	case token.EQUAL_EQUAL:
		return x == y, true
	case token.BANG_EQUAL:
		return x != y, true
	case token.LESS:
		return x < y, true
	case token.LESS_EQUAL:
		return x <= y, true
	case token.GREATER:
		return x > y, true
	case token.GREATER_EQUAL:
		return x >= y, true
	}
	return nil, false
}

// foldLogical folds `and`/`or`/`??` when the left operand is a literal whose
// truthiness alone determines the result, matching Lit's short-circuit
// semantics (the right operand is never evaluated in that case, so it is
// simply dropped from the folded tree).
func (o *optimizerState) foldLogical(e *ast.LogicalExpr) ast.Expr {
	if !o.opts.Enabled(ConstantFolding) {
		return e
	}
	lit, ok := e.X.(*ast.Literal)
	if !ok {
		return e
	}
	switch e.Op {
	case token.AND:
		if !truthy(lit.Value) {
			return lit
		}
		return e.Y
	case token.OR:
		if truthy(lit.Value) {
			return lit
		}
		return e.Y
	case token.QUESTION_QUESTION:
		if lit.Value != nil {
			return lit
		}
		return e.Y
	}
	return e
}

func truthy(v any) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}
