package handlers

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCollabToken(t *testing.T) {
	cfg := testJWTConfig()

	token, expiresIn, err := GenerateCollabToken(cfg, "user-1", "Alice", "roadmap")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, int64(900), expiresIn)

	claims, err := ValidateCollabToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "Alice", claims.UserName)
	assert.Equal(t, "roadmap", claims.PageID)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, tokenIssuer, claims.Issuer)
}

func TestValidateCollabToken_Rejects(t *testing.T) {
	cfg := testJWTConfig()

	sign := func(t *testing.T, method jwt.SigningMethod, key any, claims CollabClaims) string {
		t.Helper()
		token, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return token
	}
	valid := func() CollabClaims {
		now := time.Now()
		return CollabClaims{
			UserID: "user-1",
			PageID: "roadmap",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    tokenIssuer,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			},
		}
	}

	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{
			name:  "garbage",
			token: func(*testing.T) string { return "not.a.token" },
		},
		{
			name: "wrong secret",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS256, []byte("other-secret"), valid())
			},
		},
		{
			name: "expired",
			token: func(t *testing.T) string {
				claims := valid()
				claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
				return sign(t, jwt.SigningMethodHS256, cfg.Secret, claims)
			},
		},
		{
			name: "foreign issuer",
			token: func(t *testing.T) string {
				claims := valid()
				claims.Issuer = "someone-else"
				return sign(t, jwt.SigningMethodHS256, cfg.Secret, claims)
			},
		},
		{
			name: "no page",
			token: func(t *testing.T) string {
				claims := valid()
				claims.PageID = ""
				return sign(t, jwt.SigningMethodHS256, cfg.Secret, claims)
			},
		},
		{
			name: "unsigned",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ValidateCollabToken(cfg, tt.token(t))
			assert.Error(t, err)
			assert.Nil(t, claims)
		})
	}
}

func TestCollabClaims_Authorize(t *testing.T) {
	claims := &CollabClaims{UserID: "user-1", PageID: "roadmap"}

	assert.NoError(t, claims.Authorize("roadmap"))
	assert.ErrorIs(t, claims.Authorize("budget"), ErrPageMismatch)
}
