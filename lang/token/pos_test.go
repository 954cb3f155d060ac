package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMakePos(t *testing.T) {
	p := MakePos(3, 7)
	line, col := p.LineCol()
	require.Equal(t, 3, line)
	require.Equal(t, 7, col)
	require.False(t, p.Unknown())

	var zero Pos
	require.True(t, zero.Unknown())
}

func TestFileLineCol(t *testing.T) {
	// source: "ab\ncd\n\nef" - lines start at offsets 0, 3, 6, 7
	fs := NewFileSet()
	f := fs.AddFile("test.lit", 9)
	f.AddLine(3)
	f.AddLine(6)
	f.AddLine(7)

	cases := []struct {
		offset    int
		line, col int
	}{
		{0, 1, 1},
		{1, 1, 2},
		{3, 2, 1},
		{6, 3, 1},
		{7, 4, 1},
		{8, 4, 2},
	}
	for _, c := range cases {
		pos := f.Position(c.offset)
		require.Equal(t, c.line, pos.Line, "offset %d line", c.offset)
		require.Equal(t, c.col, pos.Col, "offset %d col", c.offset)
		require.Equal(t, "test.lit", pos.Filename)
	}
}

func TestPositionString(t *testing.T) {
	require.Equal(t, "test.lit:1:2", Position{Filename: "test.lit", Line: 1, Col: 2}.String())
	require.Equal(t, "1:2", Position{Line: 1, Col: 2}.String())
}
