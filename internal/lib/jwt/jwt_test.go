package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenParse_RoundTrip(t *testing.T) {
	token, err := NewToken(42, "admin@example.com", true, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := Parse(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.True(t, claims.IsAdmin)
}

func TestParse_WrongSecret(t *testing.T) {
	token, err := NewToken(42, "user@example.com", false, "secret", time.Hour)
	require.NoError(t, err)

	_, err = Parse(token, "other-secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_ExpiredToken(t *testing.T) {
	token, err := NewToken(42, "user@example.com", false, "secret", -time.Minute)
	require.NoError(t, err)

	_, err = Parse(token, "secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_Garbage(t *testing.T) {
	_, err := Parse("not-a-token", "secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
