// Package roles exposes tenant role management endpoints. Dynamic roles and
// their permission rows feed the permission engine; editing them is reserved
// to tenant managers and super-admins.
package roles

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventops/backend/internal/middleware"
	"github.com/eventops/backend/internal/models"
	"github.com/eventops/backend/internal/rbac"
	"github.com/eventops/backend/pkg/response"
)

// Store is the role persistence surface the handler needs. *rbac.Repository
// implements it.
type Store interface {
	CreateRole(ctx context.Context, role *models.Role) error
	Role(ctx context.Context, id uuid.UUID) (*models.Role, error)
	RolesByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Role, error)
	PermissionsForRoles(ctx context.Context, roleIDs []uuid.UUID) ([]models.Permission, error)
	ReplaceRolePermissions(ctx context.Context, roleID uuid.UUID, perms []models.Permission) error
	RoleHolders(ctx context.Context, roleID uuid.UUID) ([]rbac.RoleHolder, error)
}

// GroupSyncer reconciles a user's system-group membership in an event.
// Implemented by the chat service.
type GroupSyncer interface {
	SyncSystemGroupMembership(ctx context.Context, subject rbac.Principal, eventID uuid.UUID) error
}

// CreateRoleRequest is the body for POST /roles.
type CreateRoleRequest struct {
	Name  string           `json:"name" binding:"required"`
	Scope models.RoleScope `json:"scope" binding:"required"`
}

// PermissionInput is one module grant in a permissions replace.
type PermissionInput struct {
	ModuleKey string   `json:"module_key" binding:"required"`
	Actions   []string `json:"actions" binding:"required"`
}

// ReplacePermissionsRequest is the body for PATCH /roles/:roleId/permissions.
type ReplacePermissionsRequest struct {
	Permissions []PermissionInput `json:"permissions" binding:"required"`
}

// Handler manages tenant roles and their permission grants.
type Handler struct {
	repo   Store
	groups GroupSyncer
	logger *zap.Logger
}

// NewHandler creates a roles handler.
func NewHandler(repo Store, groups GroupSyncer, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, groups: groups, logger: logger}
}

// RegisterRoutes mounts role management routes.
func (h *Handler) RegisterRoutes(g *gin.RouterGroup) {
	g.GET("/roles", h.List)
	g.POST("/roles", h.Create)
	g.GET("/roles/:roleId", h.Get)
	g.PATCH("/roles/:roleId/permissions", h.ReplacePermissions)
}

func (h *Handler) requireManager(c *gin.Context) (rbac.Principal, bool) {
	p := middleware.Principal(c)
	if !p.IsSuperAdmin && !p.IsTenantManager {
		response.Forbidden(c, "role management requires tenant manager")
		return p, false
	}
	return p, true
}

// List handles GET /roles for the caller's tenant.
func (h *Handler) List(c *gin.Context) {
	p, ok := h.requireManager(c)
	if !ok {
		return
	}
	roles, err := h.repo.RolesByTenant(c.Request.Context(), p.TenantID)
	if err != nil {
		response.Internal(c, "failed to list roles")
		return
	}
	response.OK(c, roles)
}

// Create handles POST /roles.
func (h *Handler) Create(c *gin.Context) {
	p, ok := h.requireManager(c)
	if !ok {
		return
	}
	var req CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	switch req.Scope {
	case models.RoleScopeEvent, models.RoleScopeDepartment, models.RoleScopeBoth:
	default:
		response.BadRequest(c, "invalid role scope")
		return
	}
	role := &models.Role{TenantID: p.TenantID, Name: req.Name, Scope: req.Scope}
	if err := h.repo.CreateRole(c.Request.Context(), role); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, role)
}

func (h *Handler) tenantRole(c *gin.Context, p rbac.Principal) (*models.Role, bool) {
	roleID, err := uuid.Parse(c.Param("roleId"))
	if err != nil {
		response.BadRequest(c, "invalid role id")
		return nil, false
	}
	role, err := h.repo.Role(c.Request.Context(), roleID)
	if err != nil {
		response.Internal(c, "failed to load role")
		return nil, false
	}
	if role == nil || (!p.IsSuperAdmin && role.TenantID != p.TenantID) {
		response.NotFound(c, "role not found")
		return nil, false
	}
	return role, true
}

// Get handles GET /roles/:roleId, including its permission rows.
func (h *Handler) Get(c *gin.Context) {
	p, ok := h.requireManager(c)
	if !ok {
		return
	}
	role, ok := h.tenantRole(c, p)
	if !ok {
		return
	}
	perms, err := h.repo.PermissionsForRoles(c.Request.Context(), []uuid.UUID{role.ID})
	if err != nil {
		response.Internal(c, "failed to load permissions")
		return
	}
	response.OK(c, gin.H{"role": role, "permissions": perms})
}

// ReplacePermissions handles PATCH /roles/:roleId/permissions.
func (h *Handler) ReplacePermissions(c *gin.Context) {
	p, ok := h.requireManager(c)
	if !ok {
		return
	}
	role, ok := h.tenantRole(c, p)
	if !ok {
		return
	}
	var req ReplacePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	perms := make([]models.Permission, 0, len(req.Permissions))
	for _, in := range req.Permissions {
		if !models.ValidModuleKey(in.ModuleKey) {
			response.BadRequest(c, "unknown module key: "+in.ModuleKey)
			return
		}
		if len(in.Actions) == 0 {
			response.BadRequest(c, "empty action set for module "+in.ModuleKey)
			return
		}
		perms = append(perms, models.Permission{ModuleKey: in.ModuleKey, Actions: in.Actions})
	}
	if err := h.repo.ReplaceRolePermissions(c.Request.Context(), role.ID, perms); err != nil {
		response.Error(c, err)
		return
	}

	// The new permission set can grant or revoke global chat read, which
	// decides system-group participation. Reconcile everyone holding the role.
	h.syncRoleHolders(c, role)
	response.OK(c, gin.H{"role": role, "permissions": perms})
}

// syncRoleHolders reconciles system-group membership for every member whose
// event membership carries the role. Best-effort: a failed sync logs and the
// permission write stands.
func (h *Handler) syncRoleHolders(c *gin.Context, role *models.Role) {
	if h.groups == nil {
		return
	}
	holders, err := h.repo.RoleHolders(c.Request.Context(), role.ID)
	if err != nil {
		h.logger.Warn("role holder lookup failed",
			zap.Error(err), zap.String("role_id", role.ID.String()))
		return
	}
	for _, holder := range holders {
		subject := rbac.Principal{UserID: holder.UserID, TenantID: role.TenantID}
		if err := h.groups.SyncSystemGroupMembership(c.Request.Context(), subject, holder.EventID); err != nil {
			h.logger.Warn("system group sync failed",
				zap.Error(err),
				zap.String("event_id", holder.EventID.String()),
				zap.String("user_id", holder.UserID.String()))
		}
	}
}
