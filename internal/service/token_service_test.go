package service

import (
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signClaims(t *testing.T, secret string, method jwt.SigningMethod, claims Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func testTakerClaims(userID int, expiresIn time.Duration) Claims {
	now := time.Now()
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
		TokenType: TokenTypeTestTaker,
		UserID:    userID,
	}
}

func TestValidateToken(t *testing.T) {
	svc := NewTokenService(testSecret)

	t.Run("valid test-taker token", func(t *testing.T) {
		claims, err := svc.ValidateToken(signClaims(t, testSecret, jwt.SigningMethodHS256, testTakerClaims(42, time.Hour)))
		require.NoError(t, err)
		assert.Equal(t, 42, claims.UserID)
		assert.Equal(t, TokenTypeTestTaker, claims.TokenType)
	})

	wrongType := testTakerClaims(42, time.Hour)
	wrongType.TokenType = "admin"

	tests := []struct {
		name  string
		token string
	}{
		{"expired", signClaims(t, testSecret, jwt.SigningMethodHS256, testTakerClaims(42, -time.Minute))},
		{"wrong secret", signClaims(t, "other", jwt.SigningMethodHS256, testTakerClaims(42, time.Hour))},
		{"wrong token type", signClaims(t, testSecret, jwt.SigningMethodHS256, wrongType)},
		{"missing user", signClaims(t, testSecret, jwt.SigningMethodHS256, testTakerClaims(0, time.Hour))},
		{"garbage", "not.a.token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
