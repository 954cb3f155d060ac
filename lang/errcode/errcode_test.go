package errcode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllCodesNamed(t *testing.T) {
	for c := Code(0); c < maxCode; c++ {
		require.True(t, c.Valid())
		require.NotEqual(t, "unknown error code", c.String(), "code %d missing a name", c)
	}
}

func TestInvalidCode(t *testing.T) {
	require.False(t, Code(-1).Valid())
	require.False(t, maxCode.Valid())
	require.Equal(t, "unknown error code", Code(-1).String())
}
