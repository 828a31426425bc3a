package departments

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventops/backend/internal/chat"
	"github.com/eventops/backend/internal/events"
	"github.com/eventops/backend/internal/middleware"
	"github.com/eventops/backend/internal/models"
	"github.com/eventops/backend/internal/rbac"
	"github.com/eventops/backend/pkg/response"
)

// CreateDepartmentRequest is the body for POST /events/:eventId/departments.
type CreateDepartmentRequest struct {
	Name     string     `json:"name" binding:"required"`
	ParentID *uuid.UUID `json:"parent_id"`
}

// UpdateDepartmentRequest is the body for PATCH /events/:eventId/departments/:deptId.
type UpdateDepartmentRequest struct {
	Name     *string    `json:"name"`
	ParentID *uuid.UUID `json:"parent_id"`
}

// BulkAddMembersRequest is the body for POST /events/:eventId/departments/:deptId/members.
type BulkAddMembersRequest struct {
	UserIDs []uuid.UUID `json:"user_ids" binding:"required,min=1"`
	RoleID  *uuid.UUID  `json:"role_id"`
}

// Handler handles department HTTP endpoints.
type Handler struct {
	repo   *Repository
	events *events.Repository
	chat   *chat.Service
	logger *zap.Logger
}

// NewHandler creates a departments handler.
func NewHandler(repo *Repository, eventsRepo *events.Repository, chatSvc *chat.Service, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, events: eventsRepo, chat: chatSvc, logger: logger}
}

func (h *Handler) loadDepartment(c *gin.Context, eventID uuid.UUID) (*models.Department, bool) {
	deptID, err := uuid.Parse(c.Param("deptId"))
	if err != nil {
		response.BadRequest(c, "invalid department id")
		return nil, false
	}
	dept, err := h.repo.Get(c.Request.Context(), deptID)
	if err != nil {
		response.Internal(c, "failed to load department")
		return nil, false
	}
	if dept == nil || dept.EventID != eventID {
		response.NotFound(c, "department not found")
		return nil, false
	}
	return dept, true
}

// Create handles POST /events/:eventId/departments. Creating a department
// also creates its system chat group.
func (h *Handler) Create(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req CreateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.ParentID != nil {
		parent, err := h.repo.Get(c.Request.Context(), *req.ParentID)
		if err != nil {
			response.Internal(c, "failed to load parent")
			return
		}
		if parent == nil || parent.EventID != eventID {
			response.BadRequest(c, "parent department not found in event")
			return
		}
	}
	dept := &models.Department{EventID: eventID, ParentID: req.ParentID, Name: req.Name}
	if err := h.repo.Create(c.Request.Context(), dept); err != nil {
		response.Internal(c, "failed to create department")
		return
	}

	p := middleware.Principal(c)
	if err := h.chat.EnsureSystemGroups(c.Request.Context(), eventID, p.UserID, []models.Department{*dept}); err != nil {
		h.logger.Warn("ensure system groups failed", zap.Error(err), zap.String("department_id", dept.ID.String()))
	}
	response.Created(c, dept)
}

// List handles GET /events/:eventId/departments.
func (h *Handler) List(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.repo.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		response.Internal(c, "failed to list departments")
		return
	}
	response.OK(c, list)
}

// Update handles PATCH /events/:eventId/departments/:deptId. Re-parenting is
// rejected when the new parent sits in the department's own subtree.
func (h *Handler) Update(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	dept, ok := h.loadDepartment(c, eventID)
	if !ok {
		return
	}
	var req UpdateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.Name != nil {
		dept.Name = *req.Name
	}
	if req.ParentID != nil {
		if *req.ParentID == dept.ID {
			response.BadRequest(c, "a department cannot be its own parent")
			return
		}
		all, err := h.repo.ListByEvent(c.Request.Context(), eventID)
		if err != nil {
			response.Internal(c, "failed to load departments")
			return
		}
		if createsCycle(all, dept.ID, *req.ParentID) {
			response.BadRequest(c, "re-parenting would create a cycle")
			return
		}
		dept.ParentID = req.ParentID
	}
	if err := h.repo.Update(c.Request.Context(), dept); err != nil {
		response.Internal(c, "failed to update department")
		return
	}
	response.OK(c, dept)
}

// Delete handles DELETE /events/:eventId/departments/:deptId.
func (h *Handler) Delete(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	dept, ok := h.loadDepartment(c, eventID)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), dept.ID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// BulkAddMembers handles POST /events/:eventId/departments/:deptId/members:
// one membership per user, existing ones skipped, system groups reconciled.
func (h *Handler) BulkAddMembers(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	dept, ok := h.loadDepartment(c, eventID)
	if !ok {
		return
	}
	var req BulkAddMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	event, err := h.events.Get(c.Request.Context(), eventID)
	if err != nil || event == nil {
		response.Internal(c, "failed to load event")
		return
	}

	added := 0
	for _, userID := range req.UserIDs {
		deptID := dept.ID
		m := &models.EventMembership{
			EventID:      eventID,
			UserID:       userID,
			DepartmentID: &deptID,
			RoleID:       req.RoleID,
			FixedRole:    models.FixedRoleDeptMember,
		}
		if err := h.events.AddMember(c.Request.Context(), m); err != nil {
			// Existing membership: skip, keep going.
			continue
		}
		added++
		subject := rbac.Principal{UserID: userID, TenantID: event.TenantID}
		if err := h.chat.SyncSystemGroupMembership(c.Request.Context(), subject, eventID); err != nil {
			h.logger.Warn("system group sync failed", zap.Error(err), zap.String("user_id", userID.String()))
		}
	}
	response.OK(c, gin.H{"added": added})
}

// createsCycle reports whether setting newParent as deptID's parent would
// close a loop, i.e. newParent is inside deptID's subtree.
func createsCycle(all []models.Department, deptID, newParent uuid.UUID) bool {
	parents := make(map[uuid.UUID]*uuid.UUID, len(all))
	for _, d := range all {
		parents[d.ID] = d.ParentID
	}
	seen := make(map[uuid.UUID]bool)
	cur := newParent
	for {
		if cur == deptID {
			return true
		}
		if seen[cur] {
			return false
		}
		seen[cur] = true
		p, ok := parents[cur]
		if !ok || p == nil {
			return false
		}
		cur = *p
	}
}
