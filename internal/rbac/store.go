package rbac

import (
	"context"

	"github.com/google/uuid"

	"github.com/eventops/backend/internal/models"
)

// Store is the persistence surface the resolver and engine need. Implemented
// by Repository over pgx; tests use an in-memory fake.
type Store interface {
	// EventTenant returns the owning tenant of an event.
	EventTenant(ctx context.Context, eventID uuid.UUID) (uuid.UUID, error)
	// MembershipsForUser returns all memberships of the user in the event.
	MembershipsForUser(ctx context.Context, eventID, userID uuid.UUID) ([]models.EventMembership, error)
	// Departments returns every department of the event.
	Departments(ctx context.Context, eventID uuid.UUID) ([]models.Department, error)
	// RolesByIDs returns the named roles.
	RolesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Role, error)
	// PermissionsForRoles returns the permission rows of the given roles.
	PermissionsForRoles(ctx context.Context, roleIDs []uuid.UUID) ([]models.Permission, error)
	// UserOverrides returns the user's direct per-event permission grants.
	UserOverrides(ctx context.Context, eventID, userID uuid.UUID) ([]models.EventUserPermission, error)
}
