package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolgate/internal/auth"
)

func TestNewToken_UniqueAndWellFormed(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		token, err := auth.NewToken()
		require.NoError(t, err)
		assert.Len(t, token, 64) // 32 random bytes, hex encoded
		assert.False(t, seen[token], "token collision")
		seen[token] = true
	}
}

func TestVerifyToken(t *testing.T) {
	token, err := auth.NewToken()
	require.NoError(t, err)

	assert.True(t, auth.VerifyToken(token, token))
	assert.False(t, auth.VerifyToken(token, token+"x"))
	assert.False(t, auth.VerifyToken(token, ""))
}

func TestVerifyToken_EmptyExpectedNeverMatches(t *testing.T) {
	// A session without a token must reject everything, including an
	// equally empty submission.
	assert.False(t, auth.VerifyToken("", ""))
	assert.False(t, auth.VerifyToken("", "anything"))
}
