package ast_test

import (
	"testing"

	"github.com/mna/lit/lang/ast"
	"github.com/mna/lit/lang/token"
	"github.com/stretchr/testify/require"
)

func TestChunkPos(t *testing.T) {
	end := token.Position{Filename: "f", Line: 9, Col: 1}
	empty := &ast.Chunk{End: end}
	require.Equal(t, end, empty.Pos())

	first := token.Position{Filename: "f", Line: 1, Col: 1}
	c := &ast.Chunk{
		Stmts: []ast.Stmt{&ast.ExprStmt{X: &ast.Literal{NamePos: first}, NamePos: first}},
		End:   end,
	}
	require.Equal(t, first, c.Pos())
}

func TestWalkVisitsAllNodes(t *testing.T) {
	pos := token.Position{Filename: "f", Line: 1, Col: 1}
	chunk := &ast.Chunk{
		Stmts: []ast.Stmt{
			&ast.VarStmt{
				Name: "x",
				Init: &ast.BinaryExpr{
					Op:      token.PLUS,
					X:       &ast.Literal{Value: int64(1), NamePos: pos},
					Y:       &ast.Literal{Value: int64(2), NamePos: pos},
					NamePos: pos,
				},
				NamePos: pos,
			},
			&ast.IfStmt{
				Cond: &ast.Ident{Name: "x", NamePos: pos},
				Then: &ast.BlockStmt{
					Stmts: []ast.Stmt{&ast.ReturnStmt{Value: &ast.Ident{Name: "x", NamePos: pos}, NamePos: pos}},
					NamePos: pos,
				},
				NamePos: pos,
			},
		},
	}

	var kinds []string
	ast.Walk(func(n ast.Node) bool {
		switch n.(type) {
		case *ast.VarStmt:
			kinds = append(kinds, "var")
		case *ast.BinaryExpr:
			kinds = append(kinds, "binary")
		case *ast.Literal:
			kinds = append(kinds, "literal")
		case *ast.IfStmt:
			kinds = append(kinds, "if")
		case *ast.Ident:
			kinds = append(kinds, "ident")
		case *ast.BlockStmt:
			kinds = append(kinds, "block")
		case *ast.ReturnStmt:
			kinds = append(kinds, "return")
		}
		return true
	}, chunk)

	require.Equal(t, []string{
		"var", "binary", "literal", "literal",
		"if", "ident", "block", "return", "ident",
	}, kinds)
}

func TestWalkStopsDescending(t *testing.T) {
	pos := token.Position{Filename: "f", Line: 1, Col: 1}
	block := &ast.BlockStmt{
		Stmts: []ast.Stmt{
			&ast.ExprStmt{X: &ast.Ident{Name: "a", NamePos: pos}, NamePos: pos},
			&ast.ExprStmt{X: &ast.Ident{Name: "b", NamePos: pos}, NamePos: pos},
		},
		NamePos: pos,
	}

	var visited []string
	ast.Walk(func(n ast.Node) bool {
		if es, ok := n.(*ast.ExprStmt); ok {
			visited = append(visited, "exprstmt")
			_ = es
			return false // don't descend into the Ident
		}
		if id, ok := n.(*ast.Ident); ok {
			visited = append(visited, "ident:"+id.Name)
		}
		return true
	}, block)

	require.Equal(t, []string{"exprstmt", "exprstmt"}, visited)
}

func TestInterpolationExprInvariant(t *testing.T) {
	pos := token.Position{Filename: "f", Line: 1, Col: 1}
	ie := &ast.InterpolationExpr{
		Parts: []string{"a", "b", "c"},
		Exprs: []ast.Expr{
			&ast.Literal{Value: int64(1), NamePos: pos},
			&ast.Literal{Value: int64(2), NamePos: pos},
		},
		NamePos: pos,
	}
	require.Len(t, ie.Parts, len(ie.Exprs)+1)
}
