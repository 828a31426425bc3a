package events

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventops/backend/internal/chat"
	"github.com/eventops/backend/internal/middleware"
	"github.com/eventops/backend/internal/models"
	"github.com/eventops/backend/internal/rbac"
	"github.com/eventops/backend/pkg/response"
)

// CreateEventRequest is the body for POST /events.
type CreateEventRequest struct {
	Name        string     `json:"name" binding:"required"`
	Description string     `json:"description"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
}

// UpdateEventRequest is the body for PATCH /events/:eventId.
type UpdateEventRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
}

// AddMemberRequest is the body for POST /events/:eventId/members.
type AddMemberRequest struct {
	UserID       uuid.UUID        `json:"user_id" binding:"required"`
	DepartmentID *uuid.UUID       `json:"department_id"`
	RoleID       *uuid.UUID       `json:"role_id"`
	FixedRole    models.FixedRole `json:"fixed_role"`
}

// Handler handles event and membership HTTP endpoints.
type Handler struct {
	repo   *Repository
	chat   *chat.Service
	engine *rbac.Engine
	logger *zap.Logger
}

// NewHandler creates an events handler.
func NewHandler(repo *Repository, chatSvc *chat.Service, engine *rbac.Engine, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, chat: chatSvc, engine: engine, logger: logger}
}

// canManage allows super-admins, tenant managers of the event's tenant, and
// holders of the module:action permission.
func (h *Handler) canManage(c *gin.Context, event *models.Event, moduleKey, action string) (bool, error) {
	p := middleware.Principal(c)
	if p.IsSuperAdmin {
		return true, nil
	}
	if p.IsTenantManager && p.TenantID == event.TenantID {
		return true, nil
	}
	return h.engine.Can(c.Request.Context(), p, event.ID, moduleKey, action)
}

// loadEvent fetches the event or responds NotFound. Events of foreign tenants
// are indistinguishable from missing ones.
func (h *Handler) loadEvent(c *gin.Context) (*models.Event, bool) {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return nil, false
	}
	event, err := h.repo.Get(c.Request.Context(), eventID)
	if err != nil {
		response.Internal(c, "failed to load event")
		return nil, false
	}
	p := middleware.Principal(c)
	if event == nil || (!p.IsSuperAdmin && event.TenantID != p.TenantID) {
		response.NotFound(c, "event not found")
		return nil, false
	}
	return event, true
}

// Create handles POST /events.
func (h *Handler) Create(c *gin.Context) {
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p := middleware.Principal(c)
	event := &models.Event{
		TenantID:    p.TenantID,
		Name:        req.Name,
		Description: req.Description,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		CreatedBy:   p.UserID,
	}
	if err := h.repo.Create(c.Request.Context(), event); err != nil {
		h.logger.Error("create event failed", zap.Error(err))
		response.Internal(c, "failed to create event")
		return
	}

	// The general channel exists from the first moment; the creator lands in
	// it through the same reconciliation path as everyone else.
	if err := h.chat.EnsureSystemGroups(c.Request.Context(), event.ID, p.UserID, nil); err != nil {
		h.logger.Warn("ensure system groups failed", zap.Error(err), zap.String("event_id", event.ID.String()))
	}
	if err := h.chat.SyncSystemGroupMembership(c.Request.Context(), p, event.ID); err != nil {
		h.logger.Warn("system group sync failed", zap.Error(err), zap.String("event_id", event.ID.String()))
	}
	response.Created(c, event)
}

// List handles GET /events. Tenant managers and super-admins see every event
// of the tenant; everyone else only events they belong to.
func (h *Handler) List(c *gin.Context) {
	p := middleware.Principal(c)
	var (
		list []models.Event
		err  error
	)
	if p.IsSuperAdmin || p.IsTenantManager {
		list, err = h.repo.ListByTenant(c.Request.Context(), p.TenantID)
	} else {
		list, err = h.repo.ListForUser(c.Request.Context(), p.TenantID, p.UserID)
	}
	if err != nil {
		response.Internal(c, "failed to list events")
		return
	}
	response.OK(c, list)
}

// Get handles GET /events/:eventId.
func (h *Handler) Get(c *gin.Context) {
	event, ok := h.loadEvent(c)
	if !ok {
		return
	}
	response.OK(c, event)
}

// Update handles PATCH /events/:eventId.
func (h *Handler) Update(c *gin.Context) {
	event, ok := h.loadEvent(c)
	if !ok {
		return
	}
	allowed, err := h.canManage(c, event, models.ModuleEvents, models.ActionUpdate)
	if err != nil {
		response.Internal(c, "permission check failed")
		return
	}
	if !allowed {
		response.Forbidden(c, "insufficient permissions")
		return
	}
	var req UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.Name != nil {
		event.Name = *req.Name
	}
	if req.Description != nil {
		event.Description = *req.Description
	}
	if req.StartsAt != nil {
		event.StartsAt = req.StartsAt
	}
	if req.EndsAt != nil {
		event.EndsAt = req.EndsAt
	}
	if err := h.repo.Update(c.Request.Context(), event); err != nil {
		response.Internal(c, "failed to update event")
		return
	}
	response.OK(c, event)
}

// Archive handles POST /events/:eventId/archive.
func (h *Handler) Archive(c *gin.Context) {
	event, ok := h.loadEvent(c)
	if !ok {
		return
	}
	allowed, err := h.canManage(c, event, models.ModuleEvents, models.ActionManage)
	if err != nil {
		response.Internal(c, "permission check failed")
		return
	}
	if !allowed {
		response.Forbidden(c, "insufficient permissions")
		return
	}
	if err := h.repo.Archive(c.Request.Context(), event.ID, time.Now().UTC()); err != nil {
		response.Internal(c, "failed to archive event")
		return
	}
	response.NoContent(c)
}

// Delete handles DELETE /events/:eventId.
func (h *Handler) Delete(c *gin.Context) {
	event, ok := h.loadEvent(c)
	if !ok {
		return
	}
	allowed, err := h.canManage(c, event, models.ModuleEvents, models.ActionDelete)
	if err != nil {
		response.Internal(c, "permission check failed")
		return
	}
	if !allowed {
		response.Forbidden(c, "insufficient permissions")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), event.ID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Members handles GET /events/:eventId/members.
func (h *Handler) Members(c *gin.Context) {
	event, ok := h.loadEvent(c)
	if !ok {
		return
	}
	members, err := h.repo.Members(c.Request.Context(), event.ID)
	if err != nil {
		response.Internal(c, "failed to list members")
		return
	}
	response.OK(c, members)
}

// AddMember handles POST /events/:eventId/members. The new member's system
// group participation is reconciled right after the write.
func (h *Handler) AddMember(c *gin.Context) {
	event, ok := h.loadEvent(c)
	if !ok {
		return
	}
	allowed, err := h.canManage(c, event, models.ModuleMembers, models.ActionManage)
	if err != nil {
		response.Internal(c, "permission check failed")
		return
	}
	if !allowed {
		response.Forbidden(c, "insufficient permissions")
		return
	}
	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	fixedRole := req.FixedRole
	if fixedRole == "" {
		fixedRole = models.FixedRoleDeptMember
	}
	m := &models.EventMembership{
		EventID:      event.ID,
		UserID:       req.UserID,
		DepartmentID: req.DepartmentID,
		RoleID:       req.RoleID,
		FixedRole:    fixedRole,
	}
	if err := h.repo.AddMember(c.Request.Context(), m); err != nil {
		response.Error(c, err)
		return
	}
	h.syncMember(c, event, req.UserID)
	response.Created(c, m)
}

// RemoveMember handles DELETE /events/:eventId/members/:userId. The optional
// department_id query narrows removal to one membership.
func (h *Handler) RemoveMember(c *gin.Context) {
	event, ok := h.loadEvent(c)
	if !ok {
		return
	}
	allowed, err := h.canManage(c, event, models.ModuleMembers, models.ActionManage)
	if err != nil {
		response.Internal(c, "permission check failed")
		return
	}
	if !allowed {
		response.Forbidden(c, "insufficient permissions")
		return
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var departmentID *uuid.UUID
	if raw := c.Query("department_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid department_id")
			return
		}
		departmentID = &id
	}
	if err := h.repo.RemoveMember(c.Request.Context(), event.ID, userID, departmentID); err != nil {
		response.Error(c, err)
		return
	}
	h.syncMember(c, event, userID)
	response.NoContent(c)
}

// Permissions handles GET /events/:eventId/permissions: the caller's own
// effective permission map.
func (h *Handler) Permissions(c *gin.Context) {
	event, ok := h.loadEvent(c)
	if !ok {
		return
	}
	perms, err := h.engine.EffectivePermissions(c.Request.Context(), middleware.Principal(c), event.ID)
	if err != nil {
		response.Internal(c, "failed to resolve permissions")
		return
	}
	response.OK(c, perms)
}

// syncMember reconciles the subject's system groups. Best-effort: a failed
// sync logs and the membership write stands.
func (h *Handler) syncMember(c *gin.Context, event *models.Event, userID uuid.UUID) {
	subject := rbac.Principal{UserID: userID, TenantID: event.TenantID}
	if err := h.chat.SyncSystemGroupMembership(c.Request.Context(), subject, event.ID); err != nil {
		h.logger.Warn("system group sync failed",
			zap.Error(err),
			zap.String("event_id", event.ID.String()),
			zap.String("user_id", userID.String()))
	}
}
