package notifications

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventops/backend/internal/middleware"
	"github.com/eventops/backend/pkg/response"
)

// Handler handles in-app notification endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a notifications handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// RegisterRoutes mounts notification routes.
func (h *Handler) RegisterRoutes(g *gin.RouterGroup) {
	g.GET("/notifications", h.List)
	g.PATCH("/notifications/:notificationId/seen", h.MarkSeen)
}

// List handles GET /notifications?unseen=&limit=.
func (h *Handler) List(c *gin.Context) {
	p := middleware.Principal(c)
	unseenOnly := c.Query("unseen") == "true"
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.BadRequest(c, "invalid limit")
			return
		}
		limit = n
	}
	list, err := h.repo.ListForUser(c.Request.Context(), p.UserID, unseenOnly, limit)
	if err != nil {
		response.Internal(c, "failed to list notifications")
		return
	}
	response.OK(c, list)
}

// MarkSeen handles PATCH /notifications/:notificationId/seen.
func (h *Handler) MarkSeen(c *gin.Context) {
	id, err := uuid.Parse(c.Param("notificationId"))
	if err != nil {
		response.BadRequest(c, "invalid notification id")
		return
	}
	p := middleware.Principal(c)
	if err := h.repo.MarkSeen(c.Request.Context(), id, p.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
