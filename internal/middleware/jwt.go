package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/eventops/backend/internal/auth"
	"github.com/eventops/backend/internal/rbac"
	"github.com/eventops/backend/pkg/response"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextPrincipal is the key for the authenticated rbac.Principal.
	ContextPrincipal = "principal"
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = "user_email"
)

// JWT returns a middleware that validates the access token and sets the
// principal in context.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.ValidateAccess(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserEmail, claims.Email)
		c.Set(ContextPrincipal, rbac.Principal{
			UserID:          claims.UserID,
			TenantID:        claims.TenantID,
			IsSuperAdmin:    claims.IsSuperAdmin,
			IsTenantManager: claims.IsTenantManager,
		})
		c.Next()
	}
}

// Principal returns the authenticated principal from context. Panics when the
// JWT middleware did not run; routes using it must be registered behind JWT.
func Principal(c *gin.Context) rbac.Principal {
	return c.MustGet(ContextPrincipal).(rbac.Principal)
}
