package handlers

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessToken_RoundTrip(t *testing.T) {
	cfg := testJWTConfig()

	token, ttl, err := GenerateAccessToken(cfg, "user-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(900), ttl)

	claims, err := ValidateAccessToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, tokenIssuer, claims.Issuer)
}

func TestValidateAccessToken_Rejects(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now()

	expired := cfg
	expired.Now = func() time.Time { return now.Add(-time.Hour) }
	expiredToken, _, err := GenerateAccessToken(expired, "user-1", "alice")
	require.NoError(t, err)

	other := cfg
	other.Secret = []byte("another-secret")
	foreignToken, _, err := GenerateAccessToken(other, "user-1", "alice")
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, CustomClaims{UserID: "user-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"expired", expiredToken},
		{"wrong secret", foreignToken},
		{"alg none", noneToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateAccessToken(cfg, tt.token)
			assert.Error(t, err)
		})
	}
}
