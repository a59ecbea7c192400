package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret, subject string, expiry time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestJWTVerifier_Verify(t *testing.T) {
	const secret = "test-secret"
	v := NewJWTVerifier(secret)

	t.Run("valid token returns subject", func(t *testing.T) {
		userID, err := v.Verify(signToken(t, secret, "user-1", time.Hour))
		require.NoError(t, err)
		assert.Equal(t, "user-1", userID)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := v.Verify(signToken(t, "other-secret", "user-1", time.Hour))
		require.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		_, err := v.Verify(signToken(t, secret, "user-1", -time.Hour))
		require.Error(t, err)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := v.Verify("not.a.token")
		require.Error(t, err)
	})

	t.Run("missing subject", func(t *testing.T) {
		_, err := v.Verify(signToken(t, secret, "", time.Hour))
		require.Error(t, err)
	})
}
