package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenString(t *testing.T) {
	for tok := Token(0); tok < maxToken; tok++ {
		require.NotEmpty(t, tok.String(), "token %d", tok)
		require.NotEqual(t, "unknown token", tok.String(), "token %d has no name", tok)
	}
}

func TestLookupIdent(t *testing.T) {
	require.Equal(t, CLASS, LookupIdent("class"))
	require.Equal(t, IDENT, LookupIdent("classy"))
	require.Equal(t, IS, LookupIdent("is"))
	require.Equal(t, IDENT, LookupIdent("x"))
}

func TestIsAssignOp(t *testing.T) {
	require.True(t, EQUAL.IsAssignOp())
	require.True(t, PLUS_EQUAL.IsAssignOp())
	require.False(t, PLUS.IsAssignOp())
	require.False(t, IDENT.IsAssignOp())
}
