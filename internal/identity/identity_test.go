package identity

import (
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestIdentity_Check(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("missing user id", func(t *testing.T) {
		assert.ErrorIs(t, Identity{Credential: "token"}.Check(now), ErrMissing)
	})

	t.Run("missing credential", func(t *testing.T) {
		assert.ErrorIs(t, Identity{UserID: "1"}.Check(now), ErrMissing)
	})

	t.Run("opaque credential is accepted", func(t *testing.T) {
		assert.NoError(t, Identity{UserID: "1", Credential: "opaque"}.Check(now))
	})

	t.Run("unexpired jwt", func(t *testing.T) {
		token := signedToken(t, jwt.MapClaims{"id": 1, "exp": now.Add(time.Hour).Unix()})
		assert.NoError(t, New(User{ID: "1"}, token).Check(now))
	})

	t.Run("expired jwt", func(t *testing.T) {
		token := signedToken(t, jwt.MapClaims{"id": 1, "exp": now.Add(-time.Minute).Unix()})
		assert.ErrorIs(t, New(User{ID: "1"}, token).Check(now), ErrExpired)
	})

	t.Run("jwt without exp", func(t *testing.T) {
		token := signedToken(t, jwt.MapClaims{"id": 1})
		assert.NoError(t, New(User{ID: "1"}, token).Check(now))
	})
}

func TestExpiresAt(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	token := signedToken(t, jwt.MapClaims{"exp": exp.Unix()})

	got, ok := ExpiresAt(token)
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	_, ok = ExpiresAt("not-a-jwt")
	assert.False(t, ok)
}
