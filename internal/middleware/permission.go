package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventops/backend/internal/rbac"
	"github.com/eventops/backend/pkg/response"
)

// RequirePermission returns a middleware that checks module:action against
// the permission engine for the event named by the :eventId route param.
// Call after JWT.
func RequirePermission(engine *rbac.Engine, moduleKey, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, err := uuid.Parse(c.Param("eventId"))
		if err != nil {
			response.BadRequest(c, "invalid event id")
			c.Abort()
			return
		}
		p := Principal(c)
		ok, err := engine.Can(c.Request.Context(), p, eventID, moduleKey, action)
		if err != nil {
			response.Internal(c, "permission check failed")
			c.Abort()
			return
		}
		if !ok {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireSuperAdmin returns a middleware that allows only super-admins.
func RequireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Principal(c).IsSuperAdmin {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}
