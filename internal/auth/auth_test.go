package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokens("s3cret")
	require.True(t, tokens.Enabled())

	signed, err := tokens.GenerateToken("cli", time.Hour)
	require.NoError(t, err)

	claims, err := tokens.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "cli", claims.Subject)
	assert.Equal(t, "holidarr", claims.Issuer)
}

func TestTokenRejections(t *testing.T) {
	tokens := NewTokens("s3cret")

	other, err := NewTokens("other").GenerateToken("cli", time.Hour)
	require.NoError(t, err)
	_, err = tokens.ValidateToken(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	past := time.Now().Add(-2 * time.Hour)
	tokens.now = func() time.Time { return past }
	expired, err := tokens.GenerateToken("cli", time.Hour)
	require.NoError(t, err)
	tokens.now = time.Now
	_, err = tokens.ValidateToken(expired)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestDisabled(t *testing.T) {
	tokens := NewTokens("")
	assert.False(t, tokens.Enabled())
	_, err := tokens.GenerateToken("cli", 0)
	assert.ErrorIs(t, err, ErrDisabled)
	_, err = tokens.ValidateToken("x")
	assert.ErrorIs(t, err, ErrDisabled)
}
