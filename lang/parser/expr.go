package parser

import (
	"github.com/mna/lit/lang/ast"
	"github.com/mna/lit/lang/errcode"
	"github.com/mna/lit/lang/token"
)

func (p *Parser) parseExpr() ast.Expr {
	return p.parseAssignment()
}

// parseAssignment handles '=' and the compound assignment operators, which
// bind right-associatively and weaker than every other operator.
func (p *Parser) parseAssignment() ast.Expr {
	left := p.parseBinary(precAssignment)

	if p.cur.Type.IsAssignOp() {
		op := p.cur.Type
		pos := p.cur.Pos
		p.advance()
		value := p.parseAssignment()
		return p.finishAssign(left, op, value, pos)
	}
	if p.cur.Type == token.PLUS_PLUS || p.cur.Type == token.MINUS_MINUS {
		// postfix increment/decrement desugars to `x += 1` / `x -= 1`.
		op := token.PLUS_EQUAL
		if p.cur.Type == token.MINUS_MINUS {
			op = token.MINUS_EQUAL
		}
		pos := p.cur.Pos
		p.advance()
		one := &ast.Literal{Value: int64(1), NamePos: pos}
		return p.finishAssign(left, op, one, pos)
	}
	return left
}

func (p *Parser) finishAssign(target ast.Expr, op token.Token, value ast.Expr, pos token.Position) ast.Expr {
	switch t := target.(type) {
	case *ast.Ident, *ast.GetExpr, *ast.IndexExpr:
		_ = t
		return &ast.AssignExpr{Target: target, Op: op, Value: value, NamePos: pos}
	case *ast.UnaryExpr:
		if t.Op == token.STAR {
			return &ast.DerefSetExpr{Ref: t.X, Value: value, NamePos: pos}
		}
	}
	p.reportAt(pos, errcode.InvalidAssignmentTarget, "invalid assignment target")
	return &ast.AssignExpr{Target: target, Op: op, Value: value, NamePos: pos}
}

// parseBinary implements precedence climbing over the binary operator table,
// stopping at minPrec (exclusive): it keeps consuming operators whose
// precedence is strictly greater than minPrec.
func (p *Parser) parseBinary(minPrec precedence) ast.Expr {
	left := p.parseTernary()

	for {
		prec, ok := binPrec[p.cur.Type]
		if !ok || prec <= minPrec {
			return left
		}
		op := p.cur.Type
		pos := p.cur.Pos
		p.advance()
		right := p.parseBinary(prec)

		switch op {
		case token.AND, token.OR, token.QUESTION_QUESTION:
			left = &ast.LogicalExpr{Op: op, X: left, Y: right, NamePos: pos}
		case token.DOTDOT:
			left = &ast.RangeExpr{From: left, To: right, NamePos: pos}
		default:
			left = &ast.BinaryExpr{Op: op, X: left, Y: right, NamePos: pos}
		}
	}
}

// parseTernary handles `cond ? then : else`, which sits between the binary
// operator ladder and unary expressions in the precedence table.
func (p *Parser) parseTernary() ast.Expr {
	cond := p.parseUnary()
	if p.cur.Type != token.QUESTION {
		return cond
	}
	pos := p.cur.Pos
	p.advance()
	then := p.parseAssignment()
	p.expect(token.COLON, errcode.ExpectationUnmet, "expected ':' in ternary expression")
	elseExpr := p.parseAssignment()
	return &ast.TernaryExpr{Cond: cond, Then: then, Else: elseExpr, NamePos: pos}
}

func (p *Parser) parseUnary() ast.Expr {
	switch p.cur.Type {
	case token.BANG, token.MINUS, token.TILDE, token.NOT, token.STAR:
		op := p.cur.Type
		pos := p.cur.Pos
		p.advance()
		x := p.parseUnary()
		return &ast.UnaryExpr{Op: op, X: x, NamePos: pos}
	case token.REF:
		pos := p.cur.Pos
		p.advance()
		target := p.parseUnary()
		return &ast.RefExpr{Target: target, NamePos: pos}
	case token.NEW:
		pos := p.cur.Pos
		p.advance()
		class := p.parseCallOrPrimary()
		return p.finishNew(class, pos)
	}
	return p.parseCallOrPrimary()
}

func (p *Parser) finishNew(class ast.Expr, pos token.Position) ast.Expr {
	if call, ok := class.(*ast.CallExpr); ok {
		return &ast.NewExpr{Class: call.Callee, Args: call.Args, NamePos: pos}
	}
	return &ast.NewExpr{Class: class, NamePos: pos}
}

// parseCallOrPrimary parses a primary expression followed by any chain of
// calls, indexing and dotted member access/assignment.
func (p *Parser) parseCallOrPrimary() ast.Expr {
	x := p.parsePrimary()
	for {
		switch p.cur.Type {
		case token.DOT, token.QUESTION_DOT:
			pos := p.cur.Pos
			optional := p.cur.Type == token.QUESTION_DOT
			p.advance() // '.' or '?.'
			name := p.expect(token.IDENT, errcode.ExpectationUnmet, "expected property name after '.'")
			if p.cur.Type == token.EQUAL && !optional {
				p.advance()
				val := p.parseAssignment()
				x = &ast.SetExpr{X: x, Name: name.Lexeme, Value: val, NamePos: pos}
			} else {
				x = &ast.GetExpr{X: x, Name: name.Lexeme, Optional: optional, NamePos: pos}
			}
		case token.LPAREN:
			x = p.parseCallArgs(x)
		case token.LBRACK:
			pos := p.cur.Pos
			p.advance()
			idx := p.parseExpr()
			p.expect(token.RBRACK, errcode.ExpectationUnmet, "expected ']' after index expression")
			if p.cur.Type == token.EQUAL {
				p.advance()
				val := p.parseAssignment()
				x = &ast.SetIndexExpr{X: x, Index: idx, Value: val, NamePos: pos}
			} else {
				x = &ast.IndexExpr{X: x, Index: idx, NamePos: pos}
			}
		default:
			return x
		}
	}
}

func (p *Parser) parseCallArgs(callee ast.Expr) ast.Expr {
	pos := p.expect(token.LPAREN, errcode.ExpectationUnmet, "expected '('").Pos
	var args []ast.Expr
	if p.cur.Type != token.RPAREN {
		args = append(args, p.parseAssignment())
		for p.match(token.COMMA) {
			if len(args) >= 255 {
				p.reportAt(p.cur.Pos, errcode.TooManyFunctionArgs, "too many function arguments")
			}
			args = append(args, p.parseAssignment())
		}
	}
	p.expect(token.RPAREN, errcode.ExpectationUnmet, "expected ')' after arguments")
	return &ast.CallExpr{Callee: callee, Args: args, NamePos: pos}
}

func (p *Parser) parsePrimary() ast.Expr {
	tk := p.cur
	switch tk.Type {
	case token.NUMBER:
		p.advance()
		if tk.IsInt {
			return &ast.Literal{Value: tk.Int, NamePos: tk.Pos}
		}
		return &ast.Literal{Value: tk.Float, NamePos: tk.Pos}
	case token.STRING:
		p.advance()
		return &ast.Literal{Value: tk.Str, NamePos: tk.Pos}
	case token.INTERPOLATION:
		return p.parseInterpolation()
	case token.TRUE:
		p.advance()
		return &ast.Literal{Value: true, NamePos: tk.Pos}
	case token.FALSE:
		p.advance()
		return &ast.Literal{Value: false, NamePos: tk.Pos}
	case token.NULL:
		p.advance()
		return &ast.Literal{Value: nil, NamePos: tk.Pos}
	case token.THIS:
		p.advance()
		return &ast.ThisExpr{NamePos: tk.Pos}
	case token.SUPER:
		p.advance()
		return &ast.SuperExpr{NamePos: tk.Pos}
	case token.IDENT:
		p.advance()
		return &ast.Ident{Name: tk.Lexeme, NamePos: tk.Pos}
	case token.LPAREN:
		p.advance()
		x := p.parseExpr()
		p.expect(token.RPAREN, errcode.ExpectationUnmet, "expected ')' after expression")
		return x
	case token.LBRACK:
		return p.parseArrayExpr()
	case token.LBRACE:
		return p.parseObjectExpr()
	case token.FUNCTION:
		pos := p.cur.Pos
		p.advance()
		return p.parseFuncTail("", pos)
	default:
		p.reportAt(tk.Pos, errcode.ExpectedExpression, "expected expression")
		panic(errPanic)
	}
}

func (p *Parser) parseInterpolation() ast.Expr {
	pos := p.cur.Pos
	var parts []string
	var exprs []ast.Expr
	for {
		parts = append(parts, p.cur.Str)
		lastWasString := p.cur.Type == token.STRING
		p.advance()
		if lastWasString {
			break
		}
		exprs = append(exprs, p.parseExpr())
		if p.cur.Type != token.INTERPOLATION && p.cur.Type != token.STRING {
			p.reportAt(p.cur.Pos, errcode.UnexpectedChar, "malformed string interpolation")
			break
		}
	}
	return &ast.InterpolationExpr{Parts: parts, Exprs: exprs, NamePos: pos}
}

func (p *Parser) parseArrayExpr() ast.Expr {
	pos := p.expect(token.LBRACK, errcode.ExpectationUnmet, "expected '['").Pos
	var elems []ast.Expr
	for p.cur.Type != token.RBRACK && p.cur.Type != token.EOF {
		elems = append(elems, p.parseAssignment())
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RBRACK, errcode.ExpectationUnmet, "expected ']' to close array literal")
	return &ast.ArrayExpr{Elems: elems, NamePos: pos}
}

func (p *Parser) parseObjectExpr() ast.Expr {
	pos := p.expect(token.LBRACE, errcode.ExpectationUnmet, "expected '{'").Pos
	var keys, values []ast.Expr
	for p.cur.Type != token.RBRACE && p.cur.Type != token.EOF {
		var key ast.Expr
		if p.cur.Type == token.IDENT {
			tk := p.cur
			p.advance()
			key = &ast.Literal{Value: tk.Lexeme, NamePos: tk.Pos}
		} else {
			key = p.parseAssignment()
		}
		p.expect(token.COLON, errcode.ExpectationUnmet, "expected ':' after object key")
		val := p.parseAssignment()
		keys = append(keys, key)
		values = append(values, val)
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RBRACE, errcode.ExpectationUnmet, "expected '}' to close object literal")
	return &ast.ObjectExpr{Keys: keys, Values: values, NamePos: pos}
}

// parseFuncTail parses a function's parameter list and body, after the
// 'function' keyword (and optional name) have already been consumed.
func (p *Parser) parseFuncTail(name string, pos token.Position) *ast.FuncExpr {
	params, isVararg := p.parseParams()

	if p.cur.Type == token.ARROW {
		p.advance()
		body := p.parseAssignment()
		return &ast.FuncExpr{Name: name, NamePos: pos, Body: ast.FuncBody{
			Expr: body, Params: params, IsVararg: isVararg, NamePos: pos,
		}}
	}

	block := p.parseBlockStmt()
	return &ast.FuncExpr{Name: name, NamePos: pos, Body: ast.FuncBody{
		Block: block, Params: params, IsVararg: isVararg, NamePos: pos,
	}}
}

func (p *Parser) parseParams() ([]ast.Param, bool) {
	p.expect(token.LPAREN, errcode.ExpectationUnmet, "expected '(' in function signature")
	var params []ast.Param
	isVararg := false
	sawDefault := false
	for p.cur.Type != token.RPAREN && p.cur.Type != token.EOF {
		if p.cur.Type == token.DOTDOTDOT {
			p.advance()
			isVararg = true
			name := p.expect(token.IDENT, errcode.ExpectationUnmet, "expected parameter name")
			params = append(params, ast.Param{Name: name.Lexeme})
			break
		}
		name := p.expect(token.IDENT, errcode.ExpectationUnmet, "expected parameter name")
		var def ast.Expr
		if p.match(token.EQUAL) {
			sawDefault = true
			def = p.parseAssignment()
		} else if sawDefault {
			p.reportAt(name.Pos, errcode.DefaultArgNotTrailing, "default arguments must be trailing")
		}
		params = append(params, ast.Param{Name: name.Lexeme, Default: def})
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN, errcode.ExpectationUnmet, "expected ')' to close parameter list")
	return params, isVararg
}

