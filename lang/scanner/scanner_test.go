package scanner_test

import (
	"testing"

	"github.com/mna/lit/lang/errcode"
	"github.com/mna/lit/lang/scanner"
	"github.com/mna/lit/lang/token"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) ([]scanner.Tok, []string) {
	t.Helper()
	fs := token.NewFileSet()
	f := fs.AddFile("test.lit", len(src))

	var errs []string
	var s scanner.Scanner
	s.Init(f, []byte(src), func(pos token.Position, code errcode.Code, msg string) {
		errs = append(errs, msg)
	})

	var toks []scanner.Tok
	for {
		tk := s.Scan()
		toks = append(toks, tk)
		if tk.Type == token.EOF {
			break
		}
	}
	return toks, errs
}

func types(toks []scanner.Tok) []token.Token {
	out := make([]token.Token, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func TestScanPunctuationAndKeywords(t *testing.T) {
	toks, errs := scanAll(t, `class A { var x = 1 + 2 * 3 } // trailing comment`)
	require.Empty(t, errs)
	require.Equal(t, []token.Token{
		token.CLASS, token.IDENT, token.LBRACE, token.VAR, token.IDENT, token.EQUAL,
		token.NUMBER, token.PLUS, token.NUMBER, token.STAR, token.NUMBER, token.RBRACE,
		token.EOF,
	}, types(toks))
}

func TestScanNumbers(t *testing.T) {
	toks, errs := scanAll(t, `123 1.5 0x1F 0b101 1e3`)
	require.Empty(t, errs)
	require.True(t, toks[0].IsInt)
	require.EqualValues(t, 123, toks[0].Int)
	require.False(t, toks[1].IsInt)
	require.InDelta(t, 1.5, toks[1].Float, 0)
	require.True(t, toks[2].IsInt)
	require.EqualValues(t, 31, toks[2].Int)
	require.True(t, toks[3].IsInt)
	require.EqualValues(t, 5, toks[3].Int)
	require.False(t, toks[4].IsInt)
	require.InDelta(t, 1000.0, toks[4].Float, 0)
}

func TestScanStringEscapes(t *testing.T) {
	toks, errs := scanAll(t, `"a\nb\tc"`)
	require.Empty(t, errs)
	require.Equal(t, token.STRING, toks[0].Type)
	require.Equal(t, "a\nb\tc", toks[0].Str)
}

func TestScanInterpolation(t *testing.T) {
	toks, errs := scanAll(t, `"a{1}b{2}c"`)
	require.Empty(t, errs)
	require.Equal(t, []token.Token{
		token.INTERPOLATION, token.NUMBER,
		token.INTERPOLATION, token.NUMBER,
		token.STRING, token.EOF,
	}, types(toks))
	require.Equal(t, "a", toks[0].Str)
	require.Equal(t, "b", toks[2].Str)
	require.Equal(t, "c", toks[4].Str)
}

func TestScanInterpolationNestedBraces(t *testing.T) {
	// the expression inside the interpolation contains its own braces (e.g. an
	// object literal); they must not be confused with the interpolation
	// terminator.
	toks, errs := scanAll(t, `"x{ {1:2} }y"`)
	require.Empty(t, errs)
	require.Equal(t, []token.Token{
		token.INTERPOLATION, token.LBRACE, token.NUMBER, token.COLON, token.NUMBER, token.RBRACE,
		token.STRING, token.EOF,
	}, types(toks))
}

func TestScanInterpolationNestingTooDeep(t *testing.T) {
	// build a string with 5 nested interpolations (1 more than the max of 4)
	src := `"1"`
	for i := 0; i < 5; i++ {
		src = `"{` + src + `}"`
	}
	_, errs := scanAll(t, src)
	require.NotEmpty(t, errs)
}

func TestScanInterpolationNestingAtMax(t *testing.T) {
	src := `"1"`
	for i := 0; i < 4; i++ {
		src = `"{` + src + `}"`
	}
	_, errs := scanAll(t, src)
	require.Empty(t, errs)
}

func TestScanUnterminatedString(t *testing.T) {
	_, errs := scanAll(t, `"abc`)
	require.NotEmpty(t, errs)
}

func TestScanIllegalCharacter(t *testing.T) {
	toks, errs := scanAll(t, "`")
	require.NotEmpty(t, errs)
	require.Equal(t, token.ILLEGAL, toks[0].Type)
}

func TestScanOperators(t *testing.T) {
	toks, errs := scanAll(t, `+= -= *= /= %= ++ -- ** && || ?? => <= >= == != << >>`)
	require.Empty(t, errs)
	require.Equal(t, []token.Token{
		token.PLUS_EQUAL, token.MINUS_EQUAL, token.STAR_EQUAL, token.SLASH_EQUAL, token.PERCENT_EQUAL,
		token.PLUS_PLUS, token.MINUS_MINUS, token.STAR_STAR,
		token.AMP_AMP, token.PIPE_PIPE, token.QUESTION_QUESTION, token.ARROW,
		token.LESS_EQUAL, token.GREATER_EQUAL, token.EQUAL_EQUAL, token.BANG_EQUAL,
		token.LESS_LESS, token.GREATER_GREATER, token.EOF,
	}, types(toks))
}

func TestScanLineComment(t *testing.T) {
	toks, errs := scanAll(t, "1 // comment\n2")
	require.Empty(t, errs)
	require.Equal(t, []token.Token{token.NUMBER, token.NUMBER, token.EOF}, types(toks))
}

func TestScanBlockComment(t *testing.T) {
	toks, errs := scanAll(t, "1 /* comment\nspanning lines */ 2")
	require.Empty(t, errs)
	require.Equal(t, []token.Token{token.NUMBER, token.NUMBER, token.EOF}, types(toks))
}
