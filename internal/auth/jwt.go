package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

// Claims holds access-token claims. Subject duplicates UserID so consumers
// that only look at the registered `sub` claim still resolve the user.
type Claims struct {
	UserID          uuid.UUID `json:"user_id"`
	TenantID        uuid.UUID `json:"tenant_id"`
	Email           string    `json:"email"`
	IsSuperAdmin    bool      `json:"is_super_admin"`
	IsTenantManager bool      `json:"is_tenant_manager"`
	jwt.RegisteredClaims
}

// RefreshClaims holds refresh-token claims. The JTI is persisted hashed so a
// refresh token can be revoked server-side.
type RefreshClaims struct {
	UserID uuid.UUID `json:"user_id"`
	jwt.RegisteredClaims
}

// JWTService issues and validates the access/refresh token pair. Access and
// refresh tokens are signed with separate secrets.
type JWTService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewJWTService creates a JWT service.
func NewJWTService(accessSecret, refreshSecret string, accessTTLMin, refreshTTLHours int) *JWTService {
	return &JWTService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     time.Duration(accessTTLMin) * time.Minute,
		refreshTTL:    time.Duration(refreshTTLHours) * time.Hour,
	}
}

// GenerateAccess creates a new access token for the user.
func (s *JWTService) GenerateAccess(u UserClaims) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:          u.UserID,
		TenantID:        u.TenantID,
		Email:           u.Email,
		IsSuperAdmin:    u.IsSuperAdmin,
		IsTenantManager: u.IsTenantManager,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.accessSecret)
}

// GenerateRefresh creates a refresh token and returns it with its JTI and expiry.
func (s *JWTService) GenerateRefresh(userID uuid.UUID) (token, jti string, expiresAt time.Time, err error) {
	now := time.Now()
	jti = uuid.New().String()
	expiresAt = now.Add(s.refreshTTL)
	claims := RefreshClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.refreshSecret)
	return token, jti, expiresAt, err
}

// ValidateAccess parses and validates an access token. Signature is always
// verified; an unsigned or mis-signed token is rejected.
func (s *JWTService) ValidateAccess(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.accessSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateRefresh parses and validates a refresh token.
func (s *JWTService) ValidateRefresh(tokenString string) (*RefreshClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &RefreshClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.refreshSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*RefreshClaims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// UserClaims is the identity snapshot baked into an access token.
type UserClaims struct {
	UserID          uuid.UUID
	TenantID        uuid.UUID
	Email           string
	IsSuperAdmin    bool
	IsTenantManager bool
}
