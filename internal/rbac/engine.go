package rbac

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/eventops/backend/internal/models"
)

// Engine answers module:action permission checks and exposes the effective
// permission map for a user in an event.
type Engine struct {
	store Store
}

// NewEngine creates a permission engine.
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Can reports whether the principal may perform action on module within the
// event. Super-admins pass unconditionally.
func (e *Engine) Can(ctx context.Context, p Principal, eventID uuid.UUID, moduleKey, action string) (bool, error) {
	if p.IsSuperAdmin {
		return true, nil
	}
	perms, err := e.EffectivePermissions(ctx, p, eventID)
	if err != nil {
		return false, err
	}
	return containsAction(perms[moduleKey], action), nil
}

// EffectivePermissions returns the merged {module: [actions]} map for the
// user in the event: the union of all role-derived permissions from the
// user's memberships plus direct per-user overrides. Overrides only add
// actions; they can never revoke a role-derived grant.
func (e *Engine) EffectivePermissions(ctx context.Context, p Principal, eventID uuid.UUID) (map[string][]string, error) {
	memberships, err := e.store.MembershipsForUser(ctx, eventID, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("load memberships: %w", err)
	}
	roleIDs := distinctRoleIDs(memberships)

	merged := make(map[string]map[string]struct{})
	if len(roleIDs) > 0 {
		perms, err := e.store.PermissionsForRoles(ctx, roleIDs)
		if err != nil {
			return nil, fmt.Errorf("load role permissions: %w", err)
		}
		for _, perm := range perms {
			union(merged, perm.ModuleKey, perm.Actions)
		}
	}

	overrides, err := e.store.UserOverrides(ctx, eventID, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("load overrides: %w", err)
	}
	for _, o := range overrides {
		union(merged, o.ModuleKey, o.Actions)
	}

	out := make(map[string][]string, len(merged))
	for module, set := range merged {
		actions := make([]string, 0, len(set))
		for a := range set {
			actions = append(actions, a)
		}
		sort.Strings(actions)
		out[module] = actions
	}
	return out, nil
}

// HasGlobalAction reports whether the principal holds the action on the
// module event-wide: via a role tagged EVENT or BOTH, or via a direct
// override. Department-scoped roles do not count; this is the signal the
// chat service uses to treat a user as eligible for every system group in
// the event.
func (e *Engine) HasGlobalAction(ctx context.Context, p Principal, eventID uuid.UUID, moduleKey, action string) (bool, error) {
	if p.IsSuperAdmin {
		return true, nil
	}
	memberships, err := e.store.MembershipsForUser(ctx, eventID, p.UserID)
	if err != nil {
		return false, fmt.Errorf("load memberships: %w", err)
	}
	roleIDs := distinctRoleIDs(memberships)
	if len(roleIDs) > 0 {
		roles, err := e.store.RolesByIDs(ctx, roleIDs)
		if err != nil {
			return false, fmt.Errorf("load roles: %w", err)
		}
		globalRoles := make(map[uuid.UUID]struct{})
		for _, role := range roles {
			if role.Scope == models.RoleScopeEvent || role.Scope == models.RoleScopeBoth {
				globalRoles[role.ID] = struct{}{}
			}
		}
		if len(globalRoles) > 0 {
			perms, err := e.store.PermissionsForRoles(ctx, keys(globalRoles))
			if err != nil {
				return false, fmt.Errorf("load role permissions: %w", err)
			}
			for _, perm := range perms {
				if perm.ModuleKey == moduleKey && containsAction(perm.Actions, action) {
					return true, nil
				}
			}
		}
	}

	overrides, err := e.store.UserOverrides(ctx, eventID, p.UserID)
	if err != nil {
		return false, fmt.Errorf("load overrides: %w", err)
	}
	for _, o := range overrides {
		if o.ModuleKey == moduleKey && containsAction(o.Actions, action) {
			return true, nil
		}
	}
	return false, nil
}

func union(merged map[string]map[string]struct{}, module string, actions []string) {
	set, ok := merged[module]
	if !ok {
		set = make(map[string]struct{})
		merged[module] = set
	}
	for _, a := range actions {
		set[a] = struct{}{}
	}
}

func keys(m map[uuid.UUID]struct{}) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
