package rbac

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventops/backend/internal/models"
)

func TestResolveSuperAdminSeesAll(t *testing.T) {
	store := newFakeStore()
	r := NewResolver(store)

	scope, err := r.Resolve(context.Background(), uuid.New(), Principal{UserID: uuid.New(), IsSuperAdmin: true}, models.ModuleTasks)
	require.NoError(t, err)
	assert.True(t, scope.All)
}

func TestResolveTenantManagerSameTenantSeesAll(t *testing.T) {
	store := newFakeStore()
	eventID := uuid.New()
	tenantID := uuid.New()
	store.tenants[eventID] = tenantID
	r := NewResolver(store)

	scope, err := r.Resolve(context.Background(), eventID, Principal{UserID: uuid.New(), TenantID: tenantID, IsTenantManager: true}, models.ModuleTasks)
	require.NoError(t, err)
	assert.True(t, scope.All)

	// Manager of a different tenant gets no free pass.
	scope, err = r.Resolve(context.Background(), eventID, Principal{UserID: uuid.New(), TenantID: uuid.New(), IsTenantManager: true}, models.ModuleTasks)
	require.NoError(t, err)
	assert.False(t, scope.All)
	assert.True(t, scope.Empty())
}

func TestResolveViewAllRoleSeesAll(t *testing.T) {
	store := newFakeStore()
	eventID := uuid.New()
	userID := uuid.New()
	roleID := store.addRole(uuid.New(), models.RoleScopeEvent, models.ModuleTasks, models.ActionRead, models.ActionViewAll)
	store.addMembership(eventID, userID, nil, &roleID)
	r := NewResolver(store)

	scope, err := r.Resolve(context.Background(), eventID, Principal{UserID: userID}, models.ModuleTasks)
	require.NoError(t, err)
	assert.True(t, scope.All)

	// view_all on another module does not leak into this one.
	scope, err = r.Resolve(context.Background(), eventID, Principal{UserID: userID}, models.ModuleIssues)
	require.NoError(t, err)
	assert.False(t, scope.All)
}

// Membership in a middle-tier department grants that department plus its
// descendants, excluding siblings and the root.
func TestResolveParentMembershipCoversDescendants(t *testing.T) {
	store := newFakeStore()
	eventID := uuid.New()
	userID := uuid.New()

	root := store.addDepartment(eventID, nil)
	mid := store.addDepartment(eventID, &root)
	sibling := store.addDepartment(eventID, &root)
	leafA := store.addDepartment(eventID, &mid)
	leafB := store.addDepartment(eventID, &mid)

	store.addMembership(eventID, userID, &mid, nil)
	r := NewResolver(store)

	scope, err := r.Resolve(context.Background(), eventID, Principal{UserID: userID}, models.ModuleTasks)
	require.NoError(t, err)
	assert.False(t, scope.All)
	assert.ElementsMatch(t, []uuid.UUID{mid, leafA, leafB}, scope.DepartmentIDs)
	assert.False(t, scope.Contains(root))
	assert.False(t, scope.Contains(sibling))
}

func TestResolveDeduplicatesOverlappingMemberships(t *testing.T) {
	store := newFakeStore()
	eventID := uuid.New()
	userID := uuid.New()

	parent := store.addDepartment(eventID, nil)
	child := store.addDepartment(eventID, &parent)

	store.addMembership(eventID, userID, &parent, nil)
	store.addMembership(eventID, userID, &child, nil)
	r := NewResolver(store)

	scope, err := r.Resolve(context.Background(), eventID, Principal{UserID: userID}, models.ModuleTasks)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{parent, child}, scope.DepartmentIDs)
}

func TestResolveNoMembershipsEmptyScope(t *testing.T) {
	store := newFakeStore()
	r := NewResolver(store)

	scope, err := r.Resolve(context.Background(), uuid.New(), Principal{UserID: uuid.New()}, models.ModuleTasks)
	require.NoError(t, err)
	assert.True(t, scope.Empty())
	assert.Empty(t, scope.DepartmentIDs)
}

// A parent-pointer cycle must degrade to "everything in the cycle is
// visible", never an infinite walk.
func TestResolveSurvivesDepartmentCycle(t *testing.T) {
	store := newFakeStore()
	eventID := uuid.New()
	userID := uuid.New()

	a := uuid.New()
	b := uuid.New()
	store.departments = append(store.departments,
		models.Department{ID: a, EventID: eventID, ParentID: &b},
		models.Department{ID: b, EventID: eventID, ParentID: &a},
	)
	store.addMembership(eventID, userID, &a, nil)
	r := NewResolver(store)

	scope, err := r.Resolve(context.Background(), eventID, Principal{UserID: userID}, models.ModuleTasks)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{a, b}, scope.DepartmentIDs)
}
