package preprocess

import (
	"testing"

	"github.com/mna/lit/lang/errcode"
	"github.com/mna/lit/lang/token"
	"github.com/stretchr/testify/require"
)

func process(t *testing.T, p *Preprocessor, src string) (string, bool, []errcode.Code) {
	t.Helper()
	fset := token.NewFileSet()
	file := fset.AddFile("test.lit", len(src))
	var codes []errcode.Code
	out, ok := p.Process(file, []byte(src), func(pos token.Position, code errcode.Code, msg string) {
		codes = append(codes, code)
	})
	return string(out), ok, codes
}

func TestProcessPassesThroughPlainSource(t *testing.T) {
	p := &Preprocessor{}
	out, ok, errs := process(t, p, "var x = 1\nprint(x)\n")
	require.True(t, ok)
	require.Empty(t, errs)
	require.Equal(t, "var x = 1\nprint(x)\n", out)
}

func TestDefineThenIfdefKeepsBranch(t *testing.T) {
	p := &Preprocessor{}
	p.Define("DEBUG")
	src := "a\n#ifdef DEBUG\nb\n#endif\nc\n"
	out, ok, errs := process(t, p, src)
	require.True(t, ok)
	require.Empty(t, errs)
	require.NotContains(t, out, "#ifdef")
	require.NotContains(t, out, "#endif")
	require.Contains(t, out, "b")
	require.Contains(t, out, "a")
	require.Contains(t, out, "c")
	// byte length preserved so line numbers never shift
	require.Len(t, out, len(src))
}

func TestIfdefUndefinedBlanksBranch(t *testing.T) {
	p := &Preprocessor{}
	src := "a\n#ifdef DEBUG\nb\n#endif\nc\n"
	out, ok, errs := process(t, p, src)
	require.True(t, ok)
	require.Empty(t, errs)
	require.NotContains(t, out, "b")
	require.Contains(t, out, "a")
	require.Contains(t, out, "c")
	require.Len(t, out, len(src))
}

func TestIfndefElseTakesElseBranchWhenDefined(t *testing.T) {
	p := &Preprocessor{}
	p.Define("RELEASE")
	src := "#ifndef RELEASE\ndebugonly\n#else\nreleaseonly\n#endif\n"
	out, ok, errs := process(t, p, src)
	require.True(t, ok)
	require.Empty(t, errs)
	require.NotContains(t, out, "debugonly")
	require.Contains(t, out, "releaseonly")
}

func TestIfndefElseTakesIfBranchWhenUndefined(t *testing.T) {
	p := &Preprocessor{}
	src := "#ifndef RELEASE\ndebugonly\n#else\nreleaseonly\n#endif\n"
	out, ok, errs := process(t, p, src)
	require.True(t, ok)
	require.Empty(t, errs)
	require.Contains(t, out, "debugonly")
	require.NotContains(t, out, "releaseonly")
}

func TestNestedIfdef(t *testing.T) {
	p := &Preprocessor{}
	p.Define("OUTER")
	src := "#ifdef OUTER\nouter\n#ifdef INNER\ninner\n#endif\nafter\n#endif\n"
	out, ok, errs := process(t, p, src)
	require.True(t, ok)
	require.Empty(t, errs)
	require.Contains(t, out, "outer")
	require.Contains(t, out, "after")
	require.NotContains(t, out, "inner")
}

func TestUndefRemovesDefinition(t *testing.T) {
	p := &Preprocessor{}
	p.Define("FLAG")
	src := "#undef FLAG\n#ifdef FLAG\nnope\n#endif\nyes\n"
	out, ok, errs := process(t, p, src)
	require.True(t, ok)
	require.Empty(t, errs)
	require.NotContains(t, out, "nope")
	require.Contains(t, out, "yes")
}

func TestUnknownMacroReportsError(t *testing.T) {
	p := &Preprocessor{}
	_, ok, errs := process(t, p, "#bogus FLAG\n")
	require.False(t, ok)
	require.Equal(t, []errcode.Code{errcode.UnknownMacro}, errs)
}

func TestUnclosedIfdefReportsError(t *testing.T) {
	p := &Preprocessor{}
	_, ok, errs := process(t, p, "#ifdef FLAG\nbody\n")
	require.False(t, ok)
	require.Equal(t, []errcode.Code{errcode.UnclosedMacro}, errs)
}

func TestCommentsDoNotTriggerDirectives(t *testing.T) {
	p := &Preprocessor{}
	src := "// #ifdef FLAG\nkept\n/* #endif */\nalsokept\n"
	out, ok, errs := process(t, p, src)
	require.True(t, ok)
	require.Empty(t, errs)
	require.Contains(t, out, "kept")
	require.Contains(t, out, "alsokept")
}
