// Package rbac resolves who may see and do what within an event.
//
// Two pieces: the Resolver computes department visibility scope, and the
// Engine answers module:action permission checks. Permission composition is
// additive only: direct per-user overrides union with role grants and cannot
// revoke them.
package rbac

import "github.com/google/uuid"

// Principal is the authenticated identity a check runs for.
type Principal struct {
	UserID          uuid.UUID
	TenantID        uuid.UUID
	IsSuperAdmin    bool
	IsTenantManager bool
}

// Scope is the resolved department visibility of a principal within an event.
// When All is false and DepartmentIDs is empty the caller must treat listings
// as empty and detail fetches as not-found, never leaking existence.
type Scope struct {
	All           bool
	DepartmentIDs []uuid.UUID
}

// Contains reports whether the scope covers the given department.
func (s Scope) Contains(departmentID uuid.UUID) bool {
	if s.All {
		return true
	}
	for _, id := range s.DepartmentIDs {
		if id == departmentID {
			return true
		}
	}
	return false
}

// Empty reports whether the scope grants no visibility at all.
func (s Scope) Empty() bool {
	return !s.All && len(s.DepartmentIDs) == 0
}
