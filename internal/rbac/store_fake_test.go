package rbac

import (
	"context"

	"github.com/google/uuid"

	"github.com/eventops/backend/internal/models"
)

// fakeStore is an in-memory Store for tests.
type fakeStore struct {
	tenants     map[uuid.UUID]uuid.UUID // eventID -> tenantID
	memberships []models.EventMembership
	departments []models.Department
	roles       map[uuid.UUID]models.Role
	permissions []models.Permission
	overrides   []models.EventUserPermission
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tenants: make(map[uuid.UUID]uuid.UUID),
		roles:   make(map[uuid.UUID]models.Role),
	}
}

func (f *fakeStore) EventTenant(_ context.Context, eventID uuid.UUID) (uuid.UUID, error) {
	return f.tenants[eventID], nil
}

func (f *fakeStore) MembershipsForUser(_ context.Context, eventID, userID uuid.UUID) ([]models.EventMembership, error) {
	var out []models.EventMembership
	for _, m := range f.memberships {
		if m.EventID == eventID && m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) Departments(_ context.Context, eventID uuid.UUID) ([]models.Department, error) {
	var out []models.Department
	for _, d := range f.departments {
		if d.EventID == eventID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeStore) RolesByIDs(_ context.Context, ids []uuid.UUID) ([]models.Role, error) {
	var out []models.Role
	for _, id := range ids {
		if r, ok := f.roles[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) PermissionsForRoles(_ context.Context, roleIDs []uuid.UUID) ([]models.Permission, error) {
	want := make(map[uuid.UUID]struct{}, len(roleIDs))
	for _, id := range roleIDs {
		want[id] = struct{}{}
	}
	var out []models.Permission
	for _, p := range f.permissions {
		if _, ok := want[p.RoleID]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) UserOverrides(_ context.Context, eventID, userID uuid.UUID) ([]models.EventUserPermission, error) {
	var out []models.EventUserPermission
	for _, o := range f.overrides {
		if o.EventID == eventID && o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeStore) addDepartment(eventID uuid.UUID, parent *uuid.UUID) uuid.UUID {
	id := uuid.New()
	f.departments = append(f.departments, models.Department{ID: id, EventID: eventID, ParentID: parent})
	return id
}

func (f *fakeStore) addMembership(eventID, userID uuid.UUID, deptID, roleID *uuid.UUID) {
	f.memberships = append(f.memberships, models.EventMembership{
		ID: uuid.New(), EventID: eventID, UserID: userID,
		DepartmentID: deptID, RoleID: roleID, FixedRole: models.FixedRoleDeptMember,
	})
}

func (f *fakeStore) addRole(tenantID uuid.UUID, scope models.RoleScope, module string, actions ...string) uuid.UUID {
	id := uuid.New()
	f.roles[id] = models.Role{ID: id, TenantID: tenantID, Scope: scope}
	f.permissions = append(f.permissions, models.Permission{
		ID: uuid.New(), RoleID: id, ModuleKey: module, Actions: actions,
	})
	return id
}
