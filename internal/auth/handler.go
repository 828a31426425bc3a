package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventops/backend/internal/models"
	"github.com/eventops/backend/pkg/response"
	"github.com/eventops/backend/pkg/utils"
)

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8"`
	FullName   string `json:"full_name" binding:"required"`
	TenantSlug string `json:"tenant_slug" binding:"required"`
	TenantName string `json:"tenant_name"` // creates the tenant when the slug is new
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest is the body for POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenResponse is the auth response with the token pair.
type TokenResponse struct {
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token"`
	User         models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo   *Repository
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *Repository, jwt *JWTService, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, jwt: jwt, logger: logger}
}

func (h *Handler) issuePair(c *gin.Context, u *models.User) (*TokenResponse, bool) {
	access, err := h.jwt.GenerateAccess(UserClaims{
		UserID:          u.ID,
		TenantID:        u.TenantID,
		Email:           u.Email,
		IsSuperAdmin:    u.IsSuperAdmin,
		IsTenantManager: u.IsTenantManager,
	})
	if err != nil {
		response.Internal(c, "failed to generate token")
		return nil, false
	}
	refresh, jti, expiresAt, err := h.jwt.GenerateRefresh(u.ID)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return nil, false
	}
	if err := h.repo.StoreRefreshToken(c.Request.Context(), u.ID, jti, expiresAt); err != nil {
		response.Internal(c, "failed to persist session")
		return nil, false
	}
	return &TokenResponse{AccessToken: access, RefreshToken: refresh, User: u.ToPublic()}, true
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	req.TenantSlug = strings.ToLower(strings.TrimSpace(req.TenantSlug))

	existing, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Internal(c, "failed to check email")
		return
	}
	if existing != nil {
		response.BadRequest(c, "email already registered")
		return
	}

	tenant, err := h.repo.GetTenantBySlug(c.Request.Context(), req.TenantSlug)
	if err != nil {
		response.Internal(c, "failed to resolve tenant")
		return
	}
	if tenant == nil {
		name := strings.TrimSpace(req.TenantName)
		if name == "" {
			response.BadRequest(c, "tenant_name required for a new tenant")
			return
		}
		tenant, err = h.repo.CreateTenant(c.Request.Context(), name, req.TenantSlug)
		if err != nil {
			response.Internal(c, "failed to create tenant")
			return
		}
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	user, err := h.repo.Create(c.Request.Context(), tenant.ID, req.Email, hash, req.FullName)
	if err != nil {
		response.Internal(c, "failed to create user")
		return
	}

	if pair, ok := h.issuePair(c, user); ok {
		response.Created(c, pair)
	}
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil || user == nil || !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	if pair, ok := h.issuePair(c, user); ok {
		response.OK(c, pair)
	}
}

// Refresh handles POST /auth/refresh. Rotates the refresh token: the
// presented token is revoked and a fresh pair is issued.
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "refresh_token required")
		return
	}

	claims, err := h.jwt.ValidateRefresh(req.RefreshToken)
	if err != nil {
		response.Unauthorized(c, "invalid refresh token")
		return
	}
	ok, err := h.repo.RefreshTokenValid(c.Request.Context(), claims.ID)
	if err != nil {
		response.Internal(c, "failed to check session")
		return
	}
	if !ok {
		response.Unauthorized(c, "refresh token revoked or expired")
		return
	}

	user, err := h.repo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil || user == nil {
		response.Unauthorized(c, "unknown user")
		return
	}

	if err := h.repo.RevokeRefreshToken(c.Request.Context(), claims.ID); err != nil {
		h.logger.Warn("refresh token revoke failed", zap.Error(err))
	}
	if pair, ok := h.issuePair(c, user); ok {
		response.OK(c, pair)
	}
}

// Logout handles POST /auth/logout. Revokes the presented refresh token.
func (h *Handler) Logout(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "refresh_token required")
		return
	}
	claims, err := h.jwt.ValidateRefresh(req.RefreshToken)
	if err != nil {
		// Token already unusable; treat logout as done.
		response.NoContent(c)
		return
	}
	if err := h.repo.RevokeRefreshToken(c.Request.Context(), claims.ID); err != nil {
		response.Internal(c, "failed to revoke session")
		return
	}
	response.NoContent(c)
}
