package models

import (
	"time"

	"github.com/google/uuid"
)

// Module keys and actions form the closed permission vocabulary shared by the
// permission engine and every consumer. Keep new entries here, not as string
// literals at call sites.
const (
	ModuleEvents      = "events"
	ModuleDepartments = "departments"
	ModuleTasks       = "tasks"
	ModuleIssues      = "issues"
	ModuleZones       = "zones"
	ModuleChat        = "chat"
	ModuleAttachments = "attachments"
	ModuleMembers     = "members"
)

const (
	ActionRead    = "read"
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionViewAll = "view_all"
	ActionManage  = "manage"

	ActionDeleteMessage = "delete_message"
)

// ValidModuleKey reports whether key belongs to the module vocabulary.
func ValidModuleKey(key string) bool {
	switch key {
	case ModuleEvents, ModuleDepartments, ModuleTasks, ModuleIssues,
		ModuleZones, ModuleChat, ModuleAttachments, ModuleMembers:
		return true
	}
	return false
}

// RoleScope tags where a role's permissions apply.
type RoleScope string

const (
	RoleScopeEvent      RoleScope = "EVENT"
	RoleScopeDepartment RoleScope = "DEPARTMENT"
	RoleScopeBoth       RoleScope = "BOTH"
)

// FixedRole is the built-in membership role when no dynamic role is attached.
type FixedRole string

const (
	FixedRoleOwner      FixedRole = "OWNER"
	FixedRoleManager    FixedRole = "MANAGER"
	FixedRoleDeptLead   FixedRole = "DEPT_LEAD"
	FixedRoleDeptMember FixedRole = "DEPT_MEMBER"
)

// Role is a reusable, tenant-owned bundle of permissions.
type Role struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Name      string    `json:"name"`
	Scope     RoleScope `json:"scope"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Permission grants a set of actions on one module to a role.
type Permission struct {
	ID        uuid.UUID `json:"id"`
	RoleID    uuid.UUID `json:"role_id"`
	ModuleKey string    `json:"module_key"`
	Actions   []string  `json:"actions"`
}

// EventMembership attaches a user to an event, optionally scoped to one
// department. Uniqueness is (event_id, user_id, department_id): a global
// membership and per-department memberships coexist.
type EventMembership struct {
	ID           uuid.UUID  `json:"id"`
	EventID      uuid.UUID  `json:"event_id"`
	UserID       uuid.UUID  `json:"user_id"`
	DepartmentID *uuid.UUID `json:"department_id,omitempty"`
	RoleID       *uuid.UUID `json:"role_id,omitempty"`
	FixedRole    FixedRole  `json:"fixed_role"`
	CreatedAt    time.Time  `json:"created_at"`
}

// EventUserPermission is a direct per-user grant layered on top of
// role-derived permissions. Overrides only add actions, never revoke.
type EventUserPermission struct {
	ID        uuid.UUID `json:"id"`
	EventID   uuid.UUID `json:"event_id"`
	UserID    uuid.UUID `json:"user_id"`
	ModuleKey string    `json:"module_key"`
	Actions   []string  `json:"actions"`
}
