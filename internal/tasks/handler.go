package tasks

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventops/backend/internal/middleware"
	"github.com/eventops/backend/internal/models"
	"github.com/eventops/backend/pkg/response"
)

// CreateTaskRequest is the body for POST /events/:eventId/tasks.
type CreateTaskRequest struct {
	DepartmentID uuid.UUID  `json:"department_id" binding:"required"`
	Title        string     `json:"title" binding:"required"`
	Description  string     `json:"description"`
	AssigneeID   *uuid.UUID `json:"assignee_id"`
	DueAt        *time.Time `json:"due_at"`
}

// UpdateTaskRequest is the body for PATCH /tasks/:taskId.
type UpdateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	AssigneeID  *uuid.UUID `json:"assignee_id"`
	DueAt       *time.Time `json:"due_at"`
}

// StatusRequest is the body for POST /tasks/:taskId/status.
type StatusRequest struct {
	Status models.TaskStatus `json:"status" binding:"required"`
}

// DependencyRequest is the body for POST /tasks/:taskId/dependencies.
type DependencyRequest struct {
	BlockerID uuid.UUID `json:"blocker_id" binding:"required"`
}

// Handler handles task HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a tasks handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Create handles POST /events/:eventId/tasks.
func (h *Handler) Create(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	t, err := h.svc.Create(c.Request.Context(), middleware.Principal(c), CreateTaskInput{
		EventID:      eventID,
		DepartmentID: req.DepartmentID,
		Title:        req.Title,
		Description:  req.Description,
		AssigneeID:   req.AssigneeID,
		DueAt:        req.DueAt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, t)
}

// List handles GET /events/:eventId/tasks.
func (h *Handler) List(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.svc.List(c.Request.Context(), middleware.Principal(c), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /tasks/:taskId.
func (h *Handler) Get(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return
	}
	t, err := h.svc.Get(c.Request.Context(), middleware.Principal(c), taskID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, t)
}

// Update handles PATCH /tasks/:taskId.
func (h *Handler) Update(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return
	}
	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	t, err := h.svc.Update(c.Request.Context(), middleware.Principal(c), taskID, UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		AssigneeID:  req.AssigneeID,
		DueAt:       req.DueAt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, t)
}

// SetStatus handles POST /tasks/:taskId/status.
func (h *Handler) SetStatus(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	t, err := h.svc.SetStatus(c.Request.Context(), middleware.Principal(c), taskID, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, t)
}

// Delete handles DELETE /tasks/:taskId.
func (h *Handler) Delete(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.Principal(c), taskID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddDependency handles POST /tasks/:taskId/dependencies.
func (h *Handler) AddDependency(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return
	}
	var req DependencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	d, err := h.svc.AddDependency(c.Request.Context(), middleware.Principal(c), req.BlockerID, taskID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, d)
}

// RemoveDependency handles DELETE /tasks/:taskId/dependencies/:blockerId.
func (h *Handler) RemoveDependency(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return
	}
	blockerID, err := uuid.Parse(c.Param("blockerId"))
	if err != nil {
		response.BadRequest(c, "invalid blocker id")
		return
	}
	if err := h.svc.RemoveDependency(c.Request.Context(), middleware.Principal(c), blockerID, taskID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Dependencies handles GET /tasks/:taskId/dependencies.
func (h *Handler) Dependencies(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return
	}
	deps, err := h.svc.Dependencies(c.Request.Context(), middleware.Principal(c), taskID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, deps)
}
