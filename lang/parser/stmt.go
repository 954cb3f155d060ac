package parser

import (
	"github.com/mna/lit/lang/ast"
	"github.com/mna/lit/lang/errcode"
	"github.com/mna/lit/lang/token"
)

func (p *Parser) parseStmt() (st ast.Stmt) {
	defer func() {
		if r := recover(); r != nil {
			if r == errPanic {
				p.syncAfterError()
				st = nil
				return
			}
			panic(r)
		}
	}()

	switch p.cur.Type {
	case token.SEMI:
		p.advance()
		return nil
	case token.VAR, token.CONST:
		return p.parseVarStmt()
	case token.LBRACE:
		return p.parseBlockStmt()
	case token.IF:
		return p.parseIfStmt()
	case token.WHILE:
		return p.parseWhileStmt()
	case token.FOR:
		return p.parseForStmt()
	case token.RETURN:
		return p.parseReturnStmt()
	case token.BREAK:
		pos := p.cur.Pos
		p.advance()
		p.consumeStmtEnd()
		return &ast.BreakStmt{NamePos: pos}
	case token.CONTINUE:
		pos := p.cur.Pos
		p.advance()
		p.consumeStmtEnd()
		return &ast.ContinueStmt{NamePos: pos}
	case token.FUNCTION:
		return p.parseFuncStmt()
	case token.CLASS:
		return p.parseClassStmt()
	default:
		return p.parseExprStmt()
	}
}

// consumeStmtEnd swallows an optional trailing ';' - Lit statements do not
// require explicit terminators, but accept them.
func (p *Parser) consumeStmtEnd() {
	p.match(token.SEMI)
}

func (p *Parser) parseVarStmt() ast.Stmt {
	isConst := p.cur.Type == token.CONST
	pos := p.cur.Pos
	p.advance() // consume var/const

	name := p.expect(token.IDENT, errcode.UnexpectedChar, "expected variable name")
	var init ast.Expr
	if isConst {
		p.expect(token.EQUAL, errcode.ExpectationUnmet, "const declaration requires an initializer")
		init = p.parseExpr()
	} else if p.match(token.EQUAL) {
		init = p.parseExpr()
	}
	p.consumeStmtEnd()
	return &ast.VarStmt{Name: name.Lexeme, Const: isConst, Init: init, NamePos: pos}
}

func (p *Parser) parseBlockStmt() *ast.BlockStmt {
	pos := p.expect(token.LBRACE, errcode.UnexpectedChar, "expected '{'").Pos
	var stmts []ast.Stmt
	for p.cur.Type != token.RBRACE && p.cur.Type != token.EOF {
		if st := p.parseStmt(); st != nil {
			stmts = append(stmts, st)
		}
	}
	end := p.expect(token.RBRACE, errcode.UnexpectedChar, "expected '}' to close block").Pos
	return &ast.BlockStmt{Stmts: stmts, NamePos: pos, EndPos: end}
}

func (p *Parser) parseIfStmt() ast.Stmt {
	pos := p.cur.Pos
	p.advance() // if
	p.expect(token.LPAREN, errcode.UnexpectedChar, "expected '(' after 'if'")
	cond := p.parseExpr()
	p.expect(token.RPAREN, errcode.UnexpectedChar, "expected ')' after condition")
	then := p.parseStmt()

	var elseStmt ast.Stmt
	if p.match(token.ELSE) {
		if p.cur.Type == token.IF {
			elseStmt = p.parseIfStmt()
		} else {
			elseStmt = p.parseStmt()
		}
	}
	return &ast.IfStmt{Cond: cond, Then: then, Else: elseStmt, NamePos: pos}
}

func (p *Parser) parseWhileStmt() ast.Stmt {
	pos := p.cur.Pos
	p.advance() // while
	p.expect(token.LPAREN, errcode.UnexpectedChar, "expected '(' after 'while'")
	cond := p.parseExpr()
	p.expect(token.RPAREN, errcode.UnexpectedChar, "expected ')' after condition")
	body := p.parseStmt()
	return &ast.WhileStmt{Cond: cond, Body: body, NamePos: pos}
}

func (p *Parser) parseForStmt() ast.Stmt {
	pos := p.cur.Pos
	p.advance() // for
	p.expect(token.LPAREN, errcode.UnexpectedChar, "expected '(' after 'for'")

	// for (var x in expr)
	if p.cur.Type == token.VAR {
		save := p.cur
		p.advance()
		if p.cur.Type == token.IDENT {
			name := p.cur
			p.advance()
			if p.cur.Type == token.IN {
				p.advance()
				iter := p.parseExpr()
				p.expect(token.RPAREN, errcode.UnexpectedChar, "expected ')' after for-in clause")
				body := p.parseStmt()
				return &ast.ForInStmt{VarName: name.Lexeme, Iterable: iter, Body: body, NamePos: pos}
			}
			// not a for-in: rebuild as a VarStmt init clause below.
			var initExpr ast.Expr
			if p.match(token.EQUAL) {
				initExpr = p.parseExpr()
			}
			init := &ast.VarStmt{Name: name.Lexeme, Init: initExpr, NamePos: save.Pos}
			return p.parseForRest(pos, init)
		}
		p.error(errcode.UnexpectedChar, "expected identifier after 'var' in for-loop")
		panic(errPanic)
	}

	var init ast.Stmt
	if p.cur.Type != token.SEMI {
		init = p.parseExprStmtNoEnd()
	}
	return p.parseForRest(pos, init)
}

func (p *Parser) parseForRest(pos token.Position, init ast.Stmt) ast.Stmt {
	p.expect(token.SEMI, errcode.UnexpectedChar, "expected ';' after for-loop initializer")
	var cond ast.Expr
	if p.cur.Type != token.SEMI {
		cond = p.parseExpr()
	}
	p.expect(token.SEMI, errcode.UnexpectedChar, "expected ';' after for-loop condition")
	var post ast.Stmt
	if p.cur.Type != token.RPAREN {
		post = p.parseExprStmtNoEnd()
	}
	p.expect(token.RPAREN, errcode.UnexpectedChar, "expected ')' after for-loop clauses")
	body := p.parseStmt()
	return &ast.ForStmt{Init: init, Cond: cond, Post: post, Body: body, NamePos: pos}
}

func (p *Parser) parseReturnStmt() ast.Stmt {
	pos := p.cur.Pos
	p.advance() // return
	var val ast.Expr
	if p.cur.Type != token.SEMI && p.cur.Type != token.RBRACE && p.cur.Type != token.EOF {
		val = p.parseExpr()
	}
	p.consumeStmtEnd()
	return &ast.ReturnStmt{Value: val, NamePos: pos}
}

func (p *Parser) parseFuncStmt() ast.Stmt {
	pos := p.cur.Pos
	p.advance() // function
	name := p.expect(token.IDENT, errcode.UnexpectedChar, "expected function name")
	fn := p.parseFuncTail(name.Lexeme, name.Pos)
	return &ast.FuncStmt{Name: name.Lexeme, Fn: fn, NamePos: pos}
}

func (p *Parser) parseClassStmt() ast.Stmt {
	pos := p.cur.Pos
	p.advance() // class
	name := p.expect(token.IDENT, errcode.UnexpectedChar, "expected class name")

	var super string
	if p.match(token.COLON) {
		superTok := p.expect(token.IDENT, errcode.UnexpectedChar, "expected superclass name")
		super = superTok.Lexeme
		if super == name.Lexeme {
			p.error(errcode.SelfInheritedClass, "class cannot inherit itself")
		}
	}

	p.expect(token.LBRACE, errcode.UnexpectedChar, "expected '{' to start class body")

	cls := &ast.ClassStmt{Name: name.Lexeme, Super: super, NamePos: pos}
	sawMethod := false
	for p.cur.Type != token.RBRACE && p.cur.Type != token.EOF {
		p.parseClassMember(cls, &sawMethod)
	}
	p.expect(token.RBRACE, errcode.UnexpectedChar, "expected '}' to close class body")
	return cls
}

func (p *Parser) parseClassMember(cls *ast.ClassStmt, sawMethod *bool) {
	static := p.match(token.STATIC)
	isOperator := p.match(token.OPERATOR)
	if isOperator && static {
		p.error(errcode.StaticOperator, "operator methods cannot be static or defined in static classes")
	}

	if !isOperator && (p.cur.Type == token.GET || p.cur.Type == token.SET) {
		isGetter := p.cur.Type == token.GET
		p.advance()
		name := p.expect(token.IDENT, errcode.UnexpectedChar, "expected field name").Lexeme
		fnPos := p.cur.Pos
		fn := p.parseFuncTail(name, fnPos)
		p.mergeFieldAccessor(cls, name, static, isGetter, fn)
		return
	}

	if p.cur.Type == token.VAR {
		p.advance()
		name := p.expect(token.IDENT, errcode.UnexpectedChar, "expected field name")
		var init ast.Expr
		if p.match(token.EQUAL) {
			init = p.parseExpr()
		}
		p.consumeStmtEnd()
		if static && *sawMethod {
			p.reportAt(name.Pos, errcode.StaticFieldsAfterMethods, "all static fields must be defined before the methods")
		}
		fd := &ast.FieldDecl{Name: name.Lexeme, Static: static, Init: init, NamePos: name.Pos}
		if static {
			cls.StaticFields = append(cls.StaticFields, fd)
		} else {
			cls.Fields = append(cls.Fields, fd)
		}
		return
	}

	var name string
	var namePos token.Position
	if isOperator {
		namePos = p.cur.Pos
		name = p.cur.Lexeme
		p.advance() // the operator token itself acts as the method name
	} else {
		tk := p.expect(token.IDENT, errcode.UnexpectedChar, "expected method name")
		name, namePos = tk.Lexeme, tk.Pos
	}
	fn := p.parseFuncTail(name, namePos)
	*sawMethod = true
	cls.Methods = append(cls.Methods, &ast.MethodDecl{
		Name: name, Fn: fn, Static: static, IsOperator: isOperator, NamePos: namePos,
	})
}

func (p *Parser) mergeFieldAccessor(cls *ast.ClassStmt, name string, static, isGetter bool, fn *ast.FuncExpr) {
	fields := cls.Fields
	if static {
		fields = cls.StaticFields
	}
	for _, f := range fields {
		if f.Name == name {
			if isGetter {
				f.Getter = fn
			} else {
				f.Setter = fn
			}
			return
		}
	}
	fd := &ast.FieldDecl{Name: name, Static: static, NamePos: fn.NamePos}
	if isGetter {
		fd.Getter = fn
	} else {
		fd.Setter = fn
	}
	if static {
		cls.StaticFields = append(cls.StaticFields, fd)
	} else {
		cls.Fields = append(cls.Fields, fd)
	}
}

func (p *Parser) parseExprStmt() ast.Stmt {
	pos := p.cur.Pos
	x := p.parseExpr()
	p.consumeStmtEnd()
	return &ast.ExprStmt{X: x, NamePos: pos}
}

// parseExprStmtNoEnd parses an expression statement without consuming a
// trailing ';' - used for for-loop init/post clauses, whose terminators are
// the loop's own semicolons/parenthesis.
func (p *Parser) parseExprStmtNoEnd() ast.Stmt {
	pos := p.cur.Pos
	x := p.parseExpr()
	return &ast.ExprStmt{X: x, NamePos: pos}
}
