package rbac

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/eventops/backend/internal/models"
)

// Resolver computes department visibility scope for a principal in an event.
type Resolver struct {
	store Store
}

// NewResolver creates a scope resolver.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the departments the principal may see within the event for
// the given module.
//
// Super-admins and tenant managers of the owning tenant see everything, as
// does anyone whose role grants view_all on the module. Otherwise each
// department-scoped membership grants that department plus all of its
// descendants. A user with no memberships gets an empty scope, not an error;
// resource-level 404s are the caller's job.
func (r *Resolver) Resolve(ctx context.Context, eventID uuid.UUID, p Principal, moduleKey string) (Scope, error) {
	if p.IsSuperAdmin {
		return Scope{All: true}, nil
	}
	if p.IsTenantManager {
		tenantID, err := r.store.EventTenant(ctx, eventID)
		if err != nil {
			return Scope{}, fmt.Errorf("resolve event tenant: %w", err)
		}
		if tenantID == p.TenantID {
			return Scope{All: true}, nil
		}
	}

	memberships, err := r.store.MembershipsForUser(ctx, eventID, p.UserID)
	if err != nil {
		return Scope{}, fmt.Errorf("load memberships: %w", err)
	}
	if len(memberships) == 0 {
		return Scope{}, nil
	}

	roleIDs := distinctRoleIDs(memberships)
	if len(roleIDs) > 0 {
		perms, err := r.store.PermissionsForRoles(ctx, roleIDs)
		if err != nil {
			return Scope{}, fmt.Errorf("load role permissions: %w", err)
		}
		for _, perm := range perms {
			if perm.ModuleKey == moduleKey && containsAction(perm.Actions, models.ActionViewAll) {
				return Scope{All: true}, nil
			}
		}
	}

	depts, err := r.store.Departments(ctx, eventID)
	if err != nil {
		return Scope{}, fmt.Errorf("load departments: %w", err)
	}
	children := childIndex(depts)

	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, m := range memberships {
		if m.DepartmentID == nil {
			continue
		}
		for _, id := range descendantsOf(*m.DepartmentID, children) {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return Scope{All: false, DepartmentIDs: ids}, nil
}

// childIndex builds parent -> direct children from a department list.
func childIndex(depts []models.Department) map[uuid.UUID][]uuid.UUID {
	idx := make(map[uuid.UUID][]uuid.UUID, len(depts))
	for _, d := range depts {
		if d.ParentID != nil {
			idx[*d.ParentID] = append(idx[*d.ParentID], d.ID)
		}
	}
	return idx
}

// descendantsOf walks the child index from root, returning root plus every
// department below it. The visited set guards against parent-pointer cycles:
// a cycle degrades to "everything in the cycle is visible" instead of
// recursing forever.
func descendantsOf(root uuid.UUID, children map[uuid.UUID][]uuid.UUID) []uuid.UUID {
	visited := map[uuid.UUID]struct{}{root: {}}
	out := []uuid.UUID{root}
	queue := []uuid.UUID{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range children[cur] {
			if _, ok := visited[child]; ok {
				continue
			}
			visited[child] = struct{}{}
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out
}

func distinctRoleIDs(memberships []models.EventMembership) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, m := range memberships {
		if m.RoleID == nil {
			continue
		}
		if _, ok := seen[*m.RoleID]; ok {
			continue
		}
		seen[*m.RoleID] = struct{}{}
		ids = append(ids, *m.RoleID)
	}
	return ids
}

func containsAction(actions []string, action string) bool {
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}
