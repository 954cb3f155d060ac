package parser_test

import (
	"testing"

	"github.com/mna/lit/lang/ast"
	"github.com/mna/lit/lang/errcode"
	"github.com/mna/lit/lang/parser"
	"github.com/mna/lit/lang/token"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) (*ast.Chunk, []string) {
	t.Helper()
	fs := token.NewFileSet()
	f := fs.AddFile("test.lit", len(src))
	var msgs []string
	chunk, err := parser.Parse(f, []byte(src), func(pos token.Position, code errcode.Code, msg string) {
		msgs = append(msgs, msg)
	})
	if len(msgs) == 0 {
		require.NoError(t, err)
	}
	return chunk, msgs
}

func TestParseVarAndExprStmt(t *testing.T) {
	chunk, errs := parse(t, `var x = 1 + 2 * 3; x;`)
	require.Empty(t, errs)
	require.Len(t, chunk.Stmts, 2)

	v, ok := chunk.Stmts[0].(*ast.VarStmt)
	require.True(t, ok)
	require.Equal(t, "x", v.Name)
	bin, ok := v.Init.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, token.PLUS, bin.Op)
	rhs, ok := bin.Y.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, token.STAR, rhs.Op)
}

func TestParseConstRequiresInit(t *testing.T) {
	_, errs := parse(t, `const x;`)
	require.NotEmpty(t, errs)
}

func TestParsePrecedence(t *testing.T) {
	chunk, errs := parse(t, `1 + 2 == 3 and 4 < 5;`)
	require.Empty(t, errs)
	es := chunk.Stmts[0].(*ast.ExprStmt)
	logical, ok := es.X.(*ast.LogicalExpr)
	require.True(t, ok)
	require.Equal(t, token.AND, logical.Op)
	left, ok := logical.X.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, token.EQUAL_EQUAL, left.Op)
}

func TestParseTernary(t *testing.T) {
	chunk, errs := parse(t, `a ? 1 : 2;`)
	require.Empty(t, errs)
	es := chunk.Stmts[0].(*ast.ExprStmt)
	tern, ok := es.X.(*ast.TernaryExpr)
	require.True(t, ok)
	_, ok = tern.Cond.(*ast.Ident)
	require.True(t, ok)
}

func TestParseAssignmentChain(t *testing.T) {
	chunk, errs := parse(t, `a.b = c[0] = 1;`)
	require.Empty(t, errs)
	es := chunk.Stmts[0].(*ast.ExprStmt)
	outer, ok := es.X.(*ast.SetExpr)
	require.True(t, ok)
	require.Equal(t, "b", outer.Name)
	_, ok = outer.Value.(*ast.SetIndexExpr)
	require.True(t, ok)
}

func TestParseOptionalChaining(t *testing.T) {
	chunk, errs := parse(t, `a?.b;`)
	require.Empty(t, errs)
	es := chunk.Stmts[0].(*ast.ExprStmt)
	get, ok := es.X.(*ast.GetExpr)
	require.True(t, ok)
	require.True(t, get.Optional)
}

func TestParseIfElse(t *testing.T) {
	chunk, errs := parse(t, `if (a) { b; } else if (c) { d; } else { e; }`)
	require.Empty(t, errs)
	top, ok := chunk.Stmts[0].(*ast.IfStmt)
	require.True(t, ok)
	mid, ok := top.Else.(*ast.IfStmt)
	require.True(t, ok)
	_, ok = mid.Else.(*ast.BlockStmt)
	require.True(t, ok)
}

func TestParseForThreePart(t *testing.T) {
	chunk, errs := parse(t, `for (var i = 0; i < 10; i++) { print(i); }`)
	require.Empty(t, errs)
	f, ok := chunk.Stmts[0].(*ast.ForStmt)
	require.True(t, ok)
	require.NotNil(t, f.Init)
	require.NotNil(t, f.Cond)
	require.NotNil(t, f.Post)
}

func TestParseForIn(t *testing.T) {
	chunk, errs := parse(t, `for (var x in items) { print(x); }`)
	require.Empty(t, errs)
	f, ok := chunk.Stmts[0].(*ast.ForInStmt)
	require.True(t, ok)
	require.Equal(t, "x", f.VarName)
}

func TestParseFuncDecl(t *testing.T) {
	chunk, errs := parse(t, `function add(a, b = 1, ...rest) { return a + b; }`)
	require.Empty(t, errs)
	fn, ok := chunk.Stmts[0].(*ast.FuncStmt)
	require.True(t, ok)
	require.Equal(t, "add", fn.Name)
	require.True(t, fn.Fn.Body.IsVararg)
	require.Len(t, fn.Fn.Body.Params, 3)
	require.NotNil(t, fn.Fn.Body.Params[1].Default)
}

func TestParseLambdaExpr(t *testing.T) {
	chunk, errs := parse(t, `var f = (x) => x + 1;`)
	require.Empty(t, errs)
	v := chunk.Stmts[0].(*ast.VarStmt)
	fn, ok := v.Init.(*ast.FuncExpr)
	require.True(t, ok)
	require.NotNil(t, fn.Body.Expr)
	require.Nil(t, fn.Body.Block)
}

func TestParseDefaultArgNotTrailing(t *testing.T) {
	_, errs := parse(t, `function f(a = 1, b) { return a; }`)
	require.NotEmpty(t, errs)
}

func TestParseClassWithFieldsAndMethods(t *testing.T) {
	chunk, errs := parse(t, `
class Point {
    var x = 0
    var y = 0

    Point(x, y) {
        this.x = x
        this.y = y
    }

    get magnitude() {
        return x
    }

    operator + (other) {
        return this
    }
}`)
	require.Empty(t, errs)
	cls, ok := chunk.Stmts[0].(*ast.ClassStmt)
	require.True(t, ok)
	require.Equal(t, "Point", cls.Name)
	require.Len(t, cls.Fields, 3)  // x, y, magnitude (getter merged as a field)
	require.Len(t, cls.Methods, 2) // constructor Point, operator +
}

func TestParseClassInheritance(t *testing.T) {
	chunk, errs := parse(t, `class Child : Parent { }`)
	require.Empty(t, errs)
	cls := chunk.Stmts[0].(*ast.ClassStmt)
	require.Equal(t, "Parent", cls.Super)
}

func TestParseArrayAndObjectLiterals(t *testing.T) {
	chunk, errs := parse(t, `var a = [1, 2, 3]; var m = { x: 1, "y": 2 };`)
	require.Empty(t, errs)
	arr := chunk.Stmts[0].(*ast.VarStmt).Init.(*ast.ArrayExpr)
	require.Len(t, arr.Elems, 3)
	obj := chunk.Stmts[1].(*ast.VarStmt).Init.(*ast.ObjectExpr)
	require.Len(t, obj.Keys, 2)
}

func TestParseRangeExpr(t *testing.T) {
	chunk, errs := parse(t, `var r = 1 .. 10;`)
	require.Empty(t, errs)
	r, ok := chunk.Stmts[0].(*ast.VarStmt).Init.(*ast.RangeExpr)
	require.True(t, ok)
	require.NotNil(t, r.From)
	require.NotNil(t, r.To)
}

func TestParseNewExpr(t *testing.T) {
	chunk, errs := parse(t, `var p = new Point(1, 2);`)
	require.Empty(t, errs)
	n, ok := chunk.Stmts[0].(*ast.VarStmt).Init.(*ast.NewExpr)
	require.True(t, ok)
	require.Len(t, n.Args, 2)
}

func TestParseRefAndDeref(t *testing.T) {
	chunk, errs := parse(t, `var r = ref x; *r = 5;`)
	require.Empty(t, errs)
	_, ok := chunk.Stmts[0].(*ast.VarStmt).Init.(*ast.RefExpr)
	require.True(t, ok)
	deref, ok := chunk.Stmts[1].(*ast.ExprStmt).X.(*ast.DerefSetExpr)
	require.True(t, ok)
	require.NotNil(t, deref.Value)
}

func TestParseStringInterpolation(t *testing.T) {
	chunk, errs := parse(t, `var s = "a{1}b";`)
	require.Empty(t, errs)
	ie, ok := chunk.Stmts[0].(*ast.VarStmt).Init.(*ast.InterpolationExpr)
	require.True(t, ok)
	require.Equal(t, []string{"a", "b"}, ie.Parts)
	require.Len(t, ie.Exprs, 1)
}

func TestParseSyntaxErrorRecoversAtNextStatement(t *testing.T) {
	chunk, errs := parse(t, `var x = ; var y = 1;`)
	require.NotEmpty(t, errs)
	// the parser should recover and still find the second declaration.
	var names []string
	for _, st := range chunk.Stmts {
		if v, ok := st.(*ast.VarStmt); ok {
			names = append(names, v.Name)
		}
	}
	require.Contains(t, names, "y")
}

func TestParseBreakContinue(t *testing.T) {
	chunk, errs := parse(t, `while (true) { break; continue; }`)
	require.Empty(t, errs)
	w := chunk.Stmts[0].(*ast.WhileStmt)
	block := w.Body.(*ast.BlockStmt)
	require.IsType(t, &ast.BreakStmt{}, block.Stmts[0])
	require.IsType(t, &ast.ContinueStmt{}, block.Stmts[1])
}
