package issues

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventops/backend/internal/middleware"
	"github.com/eventops/backend/internal/models"
	"github.com/eventops/backend/internal/rbac"
	"github.com/eventops/backend/pkg/response"
)

// CreateIssueRequest is the body for POST /events/:eventId/issues.
type CreateIssueRequest struct {
	DepartmentID uuid.UUID            `json:"department_id" binding:"required"`
	Title        string               `json:"title" binding:"required"`
	Description  string               `json:"description"`
	Severity     models.IssueSeverity `json:"severity"`
	AssigneeID   *uuid.UUID           `json:"assignee_id"`
}

// UpdateIssueRequest is the body for PATCH /issues/:issueId.
type UpdateIssueRequest struct {
	Title       *string               `json:"title"`
	Description *string               `json:"description"`
	Status      *models.IssueStatus   `json:"status"`
	Severity    *models.IssueSeverity `json:"severity"`
	AssigneeID  *uuid.UUID            `json:"assignee_id"`
}

// Handler handles issue HTTP endpoints. Visibility follows the caller's
// resolved department scope; out-of-scope issues read as missing.
type Handler struct {
	repo   *Repository
	scopes *rbac.Resolver
	logger *zap.Logger
}

// NewHandler creates an issues handler.
func NewHandler(repo *Repository, scopes *rbac.Resolver, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, scopes: scopes, logger: logger}
}

func (h *Handler) visibleIssue(c *gin.Context) (*models.Issue, bool) {
	issueID, err := uuid.Parse(c.Param("issueId"))
	if err != nil {
		response.BadRequest(c, "invalid issue id")
		return nil, false
	}
	issue, err := h.repo.Get(c.Request.Context(), issueID)
	if err != nil {
		response.Internal(c, "failed to load issue")
		return nil, false
	}
	if issue == nil {
		response.NotFound(c, "issue not found")
		return nil, false
	}
	scope, err := h.scopes.Resolve(c.Request.Context(), issue.EventID, middleware.Principal(c), models.ModuleIssues)
	if err != nil {
		response.Internal(c, "failed to resolve scope")
		return nil, false
	}
	if !scope.Contains(issue.DepartmentID) {
		response.NotFound(c, "issue not found")
		return nil, false
	}
	return issue, true
}

// Create handles POST /events/:eventId/issues.
func (h *Handler) Create(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req CreateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p := middleware.Principal(c)
	scope, err := h.scopes.Resolve(c.Request.Context(), eventID, p, models.ModuleIssues)
	if err != nil {
		response.Internal(c, "failed to resolve scope")
		return
	}
	if !scope.Contains(req.DepartmentID) {
		response.Forbidden(c, "department out of scope")
		return
	}
	severity := req.Severity
	if severity == "" {
		severity = models.SeverityMedium
	}
	issue := &models.Issue{
		EventID:      eventID,
		DepartmentID: req.DepartmentID,
		Title:        req.Title,
		Description:  req.Description,
		Status:       models.IssueStatusOpen,
		Severity:     severity,
		ReporterID:   p.UserID,
		AssigneeID:   req.AssigneeID,
	}
	if err := h.repo.Create(c.Request.Context(), issue); err != nil {
		response.Internal(c, "failed to create issue")
		return
	}
	response.Created(c, issue)
}

// List handles GET /events/:eventId/issues.
func (h *Handler) List(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	scope, err := h.scopes.Resolve(c.Request.Context(), eventID, middleware.Principal(c), models.ModuleIssues)
	if err != nil {
		response.Internal(c, "failed to resolve scope")
		return
	}
	if scope.Empty() {
		response.OK(c, []models.Issue{})
		return
	}
	var deptFilter []uuid.UUID
	if !scope.All {
		deptFilter = scope.DepartmentIDs
	}
	list, err := h.repo.ListByEvent(c.Request.Context(), eventID, deptFilter)
	if err != nil {
		response.Internal(c, "failed to list issues")
		return
	}
	response.OK(c, list)
}

// Get handles GET /issues/:issueId.
func (h *Handler) Get(c *gin.Context) {
	issue, ok := h.visibleIssue(c)
	if !ok {
		return
	}
	response.OK(c, issue)
}

// Update handles PATCH /issues/:issueId.
func (h *Handler) Update(c *gin.Context) {
	issue, ok := h.visibleIssue(c)
	if !ok {
		return
	}
	var req UpdateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.Status != nil {
		if !models.ValidIssueStatus(*req.Status) {
			response.BadRequest(c, "invalid issue status")
			return
		}
		issue.Status = *req.Status
	}
	if req.Title != nil {
		issue.Title = *req.Title
	}
	if req.Description != nil {
		issue.Description = *req.Description
	}
	if req.Severity != nil {
		issue.Severity = *req.Severity
	}
	if req.AssigneeID != nil {
		issue.AssigneeID = req.AssigneeID
	}
	if err := h.repo.Update(c.Request.Context(), issue); err != nil {
		response.Internal(c, "failed to update issue")
		return
	}
	response.OK(c, issue)
}

// Delete handles DELETE /issues/:issueId.
func (h *Handler) Delete(c *gin.Context) {
	issue, ok := h.visibleIssue(c)
	if !ok {
		return
	}
	if err := h.repo.SoftDelete(c.Request.Context(), issue.ID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
