package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := NewJWTService("access-secret", "refresh-secret", 30, 720)
	userID := uuid.New()
	tenantID := uuid.New()

	token, err := svc.GenerateAccess(UserClaims{
		UserID:          userID,
		TenantID:        tenantID,
		Email:           "ops@example.com",
		IsTenantManager: true,
	})
	require.NoError(t, err)

	claims, err := svc.ValidateAccess(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, tenantID, claims.TenantID)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.True(t, claims.IsTenantManager)
	assert.False(t, claims.IsSuperAdmin)
}

func TestAccessTokenRejectsWrongSecret(t *testing.T) {
	svc := NewJWTService("access-secret", "refresh-secret", 30, 720)
	other := NewJWTService("different-secret", "refresh-secret", 30, 720)

	token, err := svc.GenerateAccess(UserClaims{UserID: uuid.New()})
	require.NoError(t, err)

	_, err = other.ValidateAccess(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	svc := NewJWTService("access-secret", "refresh-secret", 30, 720)

	refresh, jti, _, err := svc.GenerateRefresh(uuid.New())
	require.NoError(t, err)
	assert.NotEmpty(t, jti)

	_, err = svc.ValidateAccess(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	claims, err := svc.ValidateRefresh(refresh)
	require.NoError(t, err)
	assert.Equal(t, jti, claims.ID)
}

func TestExpiredAccessTokenRejected(t *testing.T) {
	svc := NewJWTService("access-secret", "refresh-secret", -1, 720)
	token, err := svc.GenerateAccess(UserClaims{UserID: uuid.New()})
	require.NoError(t, err)

	_, err = svc.ValidateAccess(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
