package resolver_test

import (
	"testing"

	"github.com/mna/lit/lang/ast"
	"github.com/mna/lit/lang/errcode"
	"github.com/mna/lit/lang/parser"
	"github.com/mna/lit/lang/resolver"
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

func resolve(t *testing.T, src string) (*ast.Chunk, *resolver.Info, []errcode.Code) {
	t.Helper()
	chunk := parse(t, src)
	var codes []errcode.Code
	info, err := resolver.Resolve(chunk, func(pos token.Position, code errcode.Code, msg string) {
		codes = append(codes, code)
	})
	if len(codes) == 0 {
		require.NoError(t, err)
	} else {
		require.Error(t, err)
	}
	return chunk, info, codes
}

func TestLocalResolutionNestedBlocks(t *testing.T) {
	chunk, info, codes := resolve(t, `
		function f() {
			var x = 1;
			{
				var y = x;
			}
		}
	`)
	require.Empty(t, codes)

	fn := chunk.Stmts[0].(*ast.FuncStmt)
	inner := fn.Fn.Body.Block.Stmts[1].(*ast.BlockStmt)
	yDecl := inner.Stmts[0].(*ast.VarStmt)
	xUse := yDecl.Init.(*ast.Ident)

	b := info.Idents[xUse]
	require.Equal(t, resolver.Local, b.Scope)
	require.Equal(t, 0, b.Index)
}

func TestRedeclarationInSameBlockErrors(t *testing.T) {
	_, _, codes := resolve(t, `
		function f() {
			var x = 1;
			var x = 2;
		}
	`)
	require.Contains(t, codes, errcode.VarRedefined)
}

func TestShadowingInChildBlockIsFine(t *testing.T) {
	_, _, codes := resolve(t, `
		function f() {
			var x = 1;
			{
				var x = 2;
			}
		}
	`)
	require.Empty(t, codes)
}

func TestModulePrivateVsFunctionLocal(t *testing.T) {
	chunk, info, codes := resolve(t, `
		var g = 1;
		function f() {
			var x = 2;
			return x;
		}
	`)
	require.Empty(t, codes)

	// both the top-level "g" variable and the top-level "f" function
	// declaration itself bind as module-private.
	require.Len(t, info.Privates, 2)
	require.Equal(t, "g", info.Privates[0].Name)
	require.Equal(t, resolver.Private, info.Privates[0].Scope)
	require.Equal(t, "f", info.Privates[1].Name)

	fn := chunk.Stmts[1].(*ast.FuncStmt)
	ret := fn.Fn.Body.Block.Stmts[1].(*ast.ReturnStmt)
	xUse := ret.Value.(*ast.Ident)
	b := info.Idents[xUse]
	require.Equal(t, resolver.Local, b.Scope)
}

func TestUpvalueCaptureOneLevel(t *testing.T) {
	chunk, info, codes := resolve(t, `
		function outer() {
			var x = 1;
			function inner() {
				return x;
			}
		}
	`)
	require.Empty(t, codes)

	outerFn := chunk.Stmts[0].(*ast.FuncStmt)
	innerStmt := outerFn.Fn.Body.Block.Stmts[1].(*ast.FuncStmt)
	ret := innerStmt.Fn.Body.Block.Stmts[0].(*ast.ReturnStmt)
	xUse := ret.Value.(*ast.Ident)

	b := info.Idents[xUse]
	require.Equal(t, resolver.Upvalue, b.Scope)
	require.Equal(t, 0, b.Index)

	outerRec := info.Functions[outerFn.Fn]
	require.True(t, outerRec.Locals[0].Captured)

	innerRec := info.Functions[innerStmt.Fn]
	require.Len(t, innerRec.Upvalues, 1)
	require.True(t, innerRec.Upvalues[0].FromLocal)
	require.Equal(t, 0, innerRec.Upvalues[0].Index)
}

func TestUpvalueCaptureTwoLevels(t *testing.T) {
	chunk, info, codes := resolve(t, `
		function a() {
			var x = 1;
			function b() {
				function c() {
					return x;
				}
			}
		}
	`)
	require.Empty(t, codes)

	aFn := chunk.Stmts[0].(*ast.FuncStmt)
	bStmt := aFn.Fn.Body.Block.Stmts[1].(*ast.FuncStmt)
	cStmt := bStmt.Fn.Body.Block.Stmts[0].(*ast.FuncStmt)

	bRec := info.Functions[bStmt.Fn]
	require.Len(t, bRec.Upvalues, 1)
	require.True(t, bRec.Upvalues[0].FromLocal)
	require.Equal(t, 0, bRec.Upvalues[0].Index)

	cRec := info.Functions[cStmt.Fn]
	require.Len(t, cRec.Upvalues, 1)
	require.False(t, cRec.Upvalues[0].FromLocal)
	require.Equal(t, 0, cRec.Upvalues[0].Index)

	aRec := info.Functions[aFn.Fn]
	require.True(t, aRec.Locals[0].Captured)
}

func TestThisResolvesInsideMethod(t *testing.T) {
	chunk, info, codes := resolve(t, `
		class Animal {
			speak() {
				return this;
			}
		}
	`)
	require.Empty(t, codes)

	cls := chunk.Stmts[0].(*ast.ClassStmt)
	ret := cls.Methods[0].Fn.Body.Block.Stmts[0].(*ast.ReturnStmt)
	thisUse := ret.Value.(*ast.ThisExpr)

	b := info.Thises[thisUse]
	require.Equal(t, resolver.Local, b.Scope)
	require.Equal(t, 0, b.Index)
}

func TestThisOutsideMethodErrors(t *testing.T) {
	_, _, codes := resolve(t, `
		function f() {
			return this;
		}
	`)
	require.Contains(t, codes, errcode.ThisMisuse)
}

func TestSuperWithoutSuperclassErrors(t *testing.T) {
	_, _, codes := resolve(t, `
		class A {
			m() {
				return super.x;
			}
		}
	`)
	require.Contains(t, codes, errcode.NoSuper)
}

func TestSuperResolvesAsUpvalueInNestedFunction(t *testing.T) {
	chunk, info, codes := resolve(t, `
		class Base {
			greet() {}
		}
		class Derived : Base {
			greet() {
				function helper() {
					return super.greet();
				}
			}
		}
	`)
	require.Empty(t, codes)

	derived := chunk.Stmts[1].(*ast.ClassStmt)
	require.Equal(t, "Base", derived.Super)

	greet := derived.Methods[0]
	helper := greet.Fn.Body.Block.Stmts[0].(*ast.FuncStmt)
	ret := helper.Fn.Body.Block.Stmts[0].(*ast.ReturnStmt)
	getExpr := ret.Value.(*ast.CallExpr).Callee.(*ast.GetExpr)
	superUse := getExpr.X.(*ast.SuperExpr)

	b := info.Supers[superUse]
	require.Equal(t, resolver.Upvalue, b.Scope)

	helperRec := info.Functions[helper.Fn]
	require.Len(t, helperRec.Upvalues, 1)
	require.Equal(t, "super", helperRec.Upvalues[0].Name)
}

func TestClassNameUsableInOwnStaticMethod(t *testing.T) {
	chunk, info, codes := resolve(t, `
		class Foo {
			static make() {
				return new Foo();
			}
		}
	`)
	require.Empty(t, codes)

	cls := chunk.Stmts[0].(*ast.ClassStmt)
	ret := cls.Methods[0].Fn.Body.Block.Stmts[0].(*ast.ReturnStmt)
	newExpr := ret.Value.(*ast.NewExpr)
	classUse := newExpr.Class.(*ast.Ident)

	b := info.Idents[classUse]
	require.Equal(t, resolver.Private, b.Scope)
}

func TestForInLoopVariableIsLocal(t *testing.T) {
	chunk, info, codes := resolve(t, `
		function f() {
			for (var i in [1, 2, 3]) {
				print(i);
			}
		}
	`)
	require.Empty(t, codes)

	fn := chunk.Stmts[0].(*ast.FuncStmt)
	forIn := fn.Fn.Body.Block.Stmts[0].(*ast.ForInStmt)
	body := forIn.Body.(*ast.BlockStmt)
	call := body.Stmts[0].(*ast.ExprStmt).X.(*ast.CallExpr)
	iUse := call.Args[0].(*ast.Ident)

	b := info.Idents[iUse]
	require.Equal(t, resolver.Local, b.Scope)
}

func TestBreakOutsideLoopErrors(t *testing.T) {
	_, _, codes := resolve(t, `break;`)
	require.Contains(t, codes, errcode.LoopJumpMisuse)
}

func TestContinueOutsideLoopErrors(t *testing.T) {
	_, _, codes := resolve(t, `continue;`)
	require.Contains(t, codes, errcode.LoopJumpMisuse)
}

func TestBreakInsideLoopIsFine(t *testing.T) {
	_, _, codes := resolve(t, `while (true) { break; }`)
	require.Empty(t, codes)
}

func TestConstReassignmentErrors(t *testing.T) {
	_, _, codes := resolve(t, `
		const x = 1;
		x = 2;
	`)
	require.Contains(t, codes, errcode.ConstantModified)
}

func TestSelfReferenceInInitializerErrors(t *testing.T) {
	_, _, codes := resolve(t, `
		function f() {
			var x = x;
		}
	`)
	require.Contains(t, codes, errcode.VariableUsedInInit)
}

func TestNamedFunctionCanCallItselfRecursively(t *testing.T) {
	_, _, codes := resolve(t, `
		function fact(n) {
			if (n < 2) { return 1; }
			return n * fact(n - 1);
		}
	`)
	require.Empty(t, codes)
}

func TestGlobalFallbackForUnresolvedName(t *testing.T) {
	chunk, info, codes := resolve(t, `print(notDeclaredAnywhere);`)
	require.Empty(t, codes)

	call := chunk.Stmts[0].(*ast.ExprStmt).X.(*ast.CallExpr)
	use := call.Args[0].(*ast.Ident)
	b := info.Idents[use]
	require.Equal(t, resolver.Global, b.Scope)
}
