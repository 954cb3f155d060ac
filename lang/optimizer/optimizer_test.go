package optimizer_test

import (
	"testing"

	"github.com/mna/lit/lang/ast"
	"github.com/mna/lit/lang/errcode"
	"github.com/mna/lit/lang/optimizer"
	"github.com/mna/lit/lang/parser"
	"github.com/mna/lit/lang/token"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *ast.Chunk {
	t.Helper()
	fs := token.NewFileSet()
	f := fs.AddFile("test.lit", len(src))
	var msgs []string
	chunk, err := parser.Parse(f, []byte(src), func(pos token.Position, code errcode.Code, msg string) {
		msgs = append(msgs, msg)
	})
	require.Empty(t, msgs)
	require.NoError(t, err)
	return chunk
}

func allKinds() *optimizer.Options {
	o := optimizer.NewOptions(optimizer.LevelNone)
	o.Enable(optimizer.ConstantFolding, true)
	o.Enable(optimizer.LiteralFolding, true)
	o.Enable(optimizer.UnusedVar, true)
	o.Enable(optimizer.UnreachableCode, true)
	o.Enable(optimizer.EmptyBody, true)
	return o
}

func TestOptimizeDisabledIsNoOp(t *testing.T) {
	chunk := parse(t, `var x = 1 + 2;`)
	optimizer.Optimize(chunk, optimizer.NewOptions(optimizer.LevelNone))
	v := chunk.Stmts[0].(*ast.VarStmt)
	_, ok := v.Init.(*ast.BinaryExpr)
	require.True(t, ok, "expected untouched BinaryExpr when no optimization is enabled")
}

func TestOptimizeNilOptionsIsNoOp(t *testing.T) {
	chunk := parse(t, `var x = 1 + 2;`)
	optimizer.Optimize(chunk, nil)
	_, ok := chunk.Stmts[0].(*ast.VarStmt).Init.(*ast.BinaryExpr)
	require.True(t, ok)
}

func TestConstantFoldArithmetic(t *testing.T) {
	chunk := parse(t, `var x = 1 + 2 * 3;`)
	optimizer.Optimize(chunk, allKinds())
	v := chunk.Stmts[0].(*ast.VarStmt)
	lit, ok := v.Init.(*ast.Literal)
	require.True(t, ok)
	require.Equal(t, int64(7), lit.Value)
}

func TestConstantFoldDivisionByZeroLeftUnfolded(t *testing.T) {
	chunk := parse(t, `var x = 1 / 0;`)
	optimizer.Optimize(chunk, allKinds())
	v := chunk.Stmts[0].(*ast.VarStmt)
	_, ok := v.Init.(*ast.BinaryExpr)
	require.True(t, ok, "division by zero must not be folded away")
}

func TestConstantFoldComparison(t *testing.T) {
	chunk := parse(t, `var x = 1 < 2;`)
	optimizer.Optimize(chunk, allKinds())
	lit := chunk.Stmts[0].(*ast.VarStmt).Init.(*ast.Literal)
	require.Equal(t, true, lit.Value)
}

func TestLiteralFoldUnaryNegate(t *testing.T) {
	chunk := parse(t, `var x = -5;`)
	optimizer.Optimize(chunk, allKinds())
	lit := chunk.Stmts[0].(*ast.VarStmt).Init.(*ast.Literal)
	require.Equal(t, int64(-5), lit.Value)
}

func TestLiteralFoldNot(t *testing.T) {
	chunk := parse(t, `var x = !true;`)
	optimizer.Optimize(chunk, allKinds())
	lit := chunk.Stmts[0].(*ast.VarStmt).Init.(*ast.Literal)
	require.Equal(t, false, lit.Value)
}

func TestFoldLogicalAndShortCircuitsOnFalse(t *testing.T) {
	chunk := parse(t, `var x = false and sideEffect();`)
	optimizer.Optimize(chunk, allKinds())
	lit, ok := chunk.Stmts[0].(*ast.VarStmt).Init.(*ast.Literal)
	require.True(t, ok)
	require.Equal(t, false, lit.Value)
}

func TestFoldLogicalOrShortCircuitsOnTrue(t *testing.T) {
	chunk := parse(t, `var x = true or sideEffect();`)
	optimizer.Optimize(chunk, allKinds())
	lit, ok := chunk.Stmts[0].(*ast.VarStmt).Init.(*ast.Literal)
	require.True(t, ok)
	require.Equal(t, true, lit.Value)
}

func TestFoldTernaryWithLiteralCond(t *testing.T) {
	chunk := parse(t, `var x = true ? 1 : 2;`)
	optimizer.Optimize(chunk, allKinds())
	lit, ok := chunk.Stmts[0].(*ast.VarStmt).Init.(*ast.Literal)
	require.True(t, ok)
	require.Equal(t, int64(1), lit.Value)
}

func TestDeadBranchEliminationIf(t *testing.T) {
	chunk := parse(t, `if (false) { a(); } else { b(); }`)
	optimizer.Optimize(chunk, allKinds())
	require.Len(t, chunk.Stmts, 1)
	block, ok := chunk.Stmts[0].(*ast.BlockStmt)
	require.True(t, ok)
	require.Len(t, block.Stmts, 1)
	es := block.Stmts[0].(*ast.ExprStmt)
	call := es.X.(*ast.CallExpr)
	require.Equal(t, "b", call.Callee.(*ast.Ident).Name)
}

func TestDeadBranchEliminationIfTrueNoElse(t *testing.T) {
	chunk := parse(t, `if (true) { a(); }`)
	optimizer.Optimize(chunk, allKinds())
	require.Len(t, chunk.Stmts, 1)
	block := chunk.Stmts[0].(*ast.BlockStmt)
	es := block.Stmts[0].(*ast.ExprStmt)
	call := es.X.(*ast.CallExpr)
	require.Equal(t, "a", call.Callee.(*ast.Ident).Name)
}

func TestDeadBranchEliminationIfFalseNoElseDrops(t *testing.T) {
	chunk := parse(t, `if (false) { a(); } x();`)
	optimizer.Optimize(chunk, allKinds())
	require.Len(t, chunk.Stmts, 1)
	es := chunk.Stmts[0].(*ast.ExprStmt)
	call := es.X.(*ast.CallExpr)
	require.Equal(t, "x", call.Callee.(*ast.Ident).Name)
}

func TestUnreachableCodeAfterReturnIsDropped(t *testing.T) {
	chunk := parse(t, `function f() { return 1; print("dead"); }`)
	optimizer.Optimize(chunk, allKinds())
	fn := chunk.Stmts[0].(*ast.FuncStmt)
	require.Len(t, fn.Fn.Body.Block.Stmts, 1)
	_, ok := fn.Fn.Body.Block.Stmts[0].(*ast.ReturnStmt)
	require.True(t, ok)
}

func TestUnreachableCodeAfterBreakInLoopIsDropped(t *testing.T) {
	chunk := parse(t, `while (true) { break; x(); }`)
	optimizer.Optimize(chunk, allKinds())
	w := chunk.Stmts[0].(*ast.WhileStmt)
	block := w.Body.(*ast.BlockStmt)
	require.Len(t, block.Stmts, 1)
}

func TestEmptyBlockRemoved(t *testing.T) {
	chunk := parse(t, `{ } x();`)
	optimizer.Optimize(chunk, allKinds())
	require.Len(t, chunk.Stmts, 1)
	_, ok := chunk.Stmts[0].(*ast.ExprStmt)
	require.True(t, ok)
}

func TestEmptyWhileFalseBodyRemoved(t *testing.T) {
	chunk := parse(t, `while (false) { } x();`)
	optimizer.Optimize(chunk, allKinds())
	require.Len(t, chunk.Stmts, 1)
	_, ok := chunk.Stmts[0].(*ast.ExprStmt)
	require.True(t, ok)
}

func TestLevelPresetsAreCumulativeInIntent(t *testing.T) {
	none := optimizer.NewOptions(optimizer.LevelNone)
	require.False(t, none.AnyEnabled())

	repl := optimizer.NewOptions(optimizer.LevelREPL)
	require.True(t, repl.Enabled(optimizer.ConstantFolding))
	require.False(t, repl.Enabled(optimizer.UnreachableCode))

	release := optimizer.NewOptions(optimizer.LevelRelease)
	require.True(t, release.Enabled(optimizer.ConstantFolding))
	require.True(t, release.Enabled(optimizer.UnreachableCode))

	extreme := optimizer.NewOptions(optimizer.LevelExtreme)
	require.True(t, extreme.Enabled(optimizer.PrivateNames))
}

func TestKindString(t *testing.T) {
	require.Equal(t, "constant-folding", optimizer.ConstantFolding.String())
	require.Equal(t, "unknown", optimizer.Kind(-1).String())
}

func TestConstantFoldInsideNestedExpr(t *testing.T) {
	chunk := parse(t, `print(1 + 2, [3 * 3]);`)
	optimizer.Optimize(chunk, allKinds())
	es := chunk.Stmts[0].(*ast.ExprStmt)
	call := es.X.(*ast.CallExpr)
	lit0, ok := call.Args[0].(*ast.Literal)
	require.True(t, ok)
	require.Equal(t, int64(3), lit0.Value)
	arr := call.Args[1].(*ast.ArrayExpr)
	lit1, ok := arr.Elems[0].(*ast.Literal)
	require.True(t, ok)
	require.Equal(t, int64(9), lit1.Value)
}
