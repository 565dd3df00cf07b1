package server

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/session-report/internal/config"
)

const testSecret = "test-secret-key-for-jwt-signing-minimum-32-bytes"

func setupTestJWTService(expirationHours int) *JWTService {
	return NewJWTService(&config.JWTConfig{Secret: testSecret, ExpirationHours: expirationHours})
}

func TestJWTService_RoundTrip(t *testing.T) {
	service := setupTestJWTService(24)
	ownerID := uuid.New()

	token, err := service.GenerateToken(ownerID)
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, ownerID, claims.GetOwnerID())
	assert.Equal(t, ownerID.String(), claims.Subject)
	assert.Equal(t, tokenIssuer, claims.Issuer)
}

func TestJWTService_GenerateToken_RequiresOwner(t *testing.T) {
	_, err := setupTestJWTService(24).GenerateToken(uuid.Nil)
	assert.Error(t, err)
}

func TestJWTService_ValidateToken_Failures(t *testing.T) {
	service := setupTestJWTService(1)
	ownerID := uuid.New()
	valid, err := service.GenerateToken(ownerID)
	require.NoError(t, err)

	otherKey := NewJWTService(&config.JWTConfig{Secret: "a-completely-different-secret-value", ExpirationHours: 1})
	forged, err := otherKey.GenerateToken(ownerID)
	require.NoError(t, err)

	expiredService := setupTestJWTService(1)
	expiredService.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiredService.GenerateToken(ownerID)
	require.NoError(t, err)

	foreignIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		OwnerID: ownerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{OwnerID: ownerID}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantMsg string
	}{
		{"empty", "", "token string is empty"},
		{"garbage", "not.a.token", "malformed token"},
		{"wrong key", forged, "invalid token signature"},
		{"expired", expired, "token expired"},
		{"wrong issuer", foreignIssuer, "failed to parse token"},
		{"none algorithm", noneAlg, "invalid token signature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateToken(tt.token)
			require.Error(t, err)
			assert.Nil(t, claims)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}

	_, err = service.ValidateToken(valid)
	assert.NoError(t, err)
}
