// Package ast defines the abstract syntax tree produced by the parser and
// consumed by the optimizer, resolver and compiler. Unlike the scanner and
// parser, the AST is a plain data representation: no behavior beyond a
// position accessor and a generic Walk helper lives on the node types
// themselves.
package ast

import "github.com/mna/lit/lang/token"

// Node is implemented by every AST node.
type Node interface {
	Pos() token.Position
}

// Expr is implemented by expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Stmt is implemented by statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// Chunk is the root of a parsed source file or standalone script.
type Chunk struct {
	Name  string
	Stmts []Stmt
	End   token.Position
}

func (c *Chunk) Pos() token.Position {
	if len(c.Stmts) > 0 {
		return c.Stmts[0].Pos()
	}
	return c.End
}

// Param is a single formal parameter, with an optional default value
// expression (default arguments must be trailing, spec §6.3
// DefaultArgNotTrailing).
type Param struct {
	Name    string
	Default Expr
}

// FuncBody is the shared shape of a function/method/lambda body: either a
// block of statements, or - for single-expression lambdas - a single
// expression with an implicit return.
type FuncBody struct {
	Block      *BlockStmt // nil if Expr is set
	Expr       Expr       // nil if Block is set
	Params     []Param
	IsVararg   bool
	NamePos    token.Position
}
