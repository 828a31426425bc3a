package zones

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventops/backend/internal/models"
	"github.com/eventops/backend/pkg/response"
)

// CreateZoneRequest is the body for POST /events/:eventId/zones.
type CreateZoneRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// UpdateZoneRequest is the body for PATCH /events/:eventId/zones/:zoneId.
type UpdateZoneRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// Handler handles zone HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a zones handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

func (h *Handler) loadZone(c *gin.Context) (*models.Zone, bool) {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return nil, false
	}
	zoneID, err := uuid.Parse(c.Param("zoneId"))
	if err != nil {
		response.BadRequest(c, "invalid zone id")
		return nil, false
	}
	zone, err := h.repo.Get(c.Request.Context(), zoneID)
	if err != nil {
		response.Internal(c, "failed to load zone")
		return nil, false
	}
	if zone == nil || zone.EventID != eventID {
		response.NotFound(c, "zone not found")
		return nil, false
	}
	return zone, true
}

// Create handles POST /events/:eventId/zones.
func (h *Handler) Create(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req CreateZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	zone := &models.Zone{EventID: eventID, Name: req.Name, Description: req.Description}
	if err := h.repo.Create(c.Request.Context(), zone); err != nil {
		response.Internal(c, "failed to create zone")
		return
	}
	response.Created(c, zone)
}

// List handles GET /events/:eventId/zones.
func (h *Handler) List(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.repo.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		response.Internal(c, "failed to list zones")
		return
	}
	response.OK(c, list)
}

// Update handles PATCH /events/:eventId/zones/:zoneId.
func (h *Handler) Update(c *gin.Context) {
	zone, ok := h.loadZone(c)
	if !ok {
		return
	}
	var req UpdateZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.Name != nil {
		zone.Name = *req.Name
	}
	if req.Description != nil {
		zone.Description = *req.Description
	}
	if err := h.repo.Update(c.Request.Context(), zone); err != nil {
		response.Internal(c, "failed to update zone")
		return
	}
	response.OK(c, zone)
}

// Delete handles DELETE /events/:eventId/zones/:zoneId.
func (h *Handler) Delete(c *gin.Context) {
	zone, ok := h.loadZone(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), zone.ID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
