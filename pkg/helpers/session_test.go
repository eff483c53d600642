package helpers

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signToken(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestSessionParserParse(t *testing.T) {
	p := NewSessionParser(testSecret)

	token := signToken(t, testSecret, &SessionClaims{
		Email: "taro@nagoya-u.ac.jp",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := p.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID())
	assert.Equal(t, "taro@nagoya-u.ac.jp", claims.Email)
}

func TestSessionParserRejects(t *testing.T) {
	p := NewSessionParser(testSecret)

	t.Run("wrong secret", func(t *testing.T) {
		token := signToken(t, "another-secret-another-secret-another-secret", &jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		_, err := p.Parse(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		token := signToken(t, testSecret, &jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		})
		_, err := p.Parse(token)
		assert.Error(t, err)
	})

	t.Run("no subject", func(t *testing.T) {
		token := signToken(t, testSecret, &jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		_, err := p.Parse(token)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := p.Parse("not.a.token")
		assert.Error(t, err)
	})
}
