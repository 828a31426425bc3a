package rbac

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventops/backend/internal/models"
)

func TestCanSuperAdminAlwaysTrue(t *testing.T) {
	e := NewEngine(newFakeStore())
	ok, err := e.Can(context.Background(), Principal{UserID: uuid.New(), IsSuperAdmin: true}, uuid.New(), models.ModuleChat, models.ActionDeleteMessage)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCanNoRolesNoOverridesFalse(t *testing.T) {
	e := NewEngine(newFakeStore())
	ok, err := e.Can(context.Background(), Principal{UserID: uuid.New()}, uuid.New(), models.ModuleTasks, models.ActionRead)
	require.NoError(t, err)
	assert.False(t, ok)
}

// Grants compose additively: role grant alone, override alone, and neither.
func TestPermissionAdditivity(t *testing.T) {
	eventID := uuid.New()
	userID := uuid.New()
	p := Principal{UserID: userID}

	// Role grant only.
	store := newFakeStore()
	roleID := store.addRole(uuid.New(), models.RoleScopeEvent, models.ModuleTasks, models.ActionRead)
	store.addMembership(eventID, userID, nil, &roleID)
	e := NewEngine(store)
	ok, err := e.Can(context.Background(), p, eventID, models.ModuleTasks, models.ActionRead)
	require.NoError(t, err)
	assert.True(t, ok)

	// Role revoked, direct override only: still granted.
	store = newFakeStore()
	store.overrides = append(store.overrides, models.EventUserPermission{
		ID: uuid.New(), EventID: eventID, UserID: userID,
		ModuleKey: models.ModuleTasks, Actions: []string{models.ActionRead},
	})
	e = NewEngine(store)
	ok, err = e.Can(context.Background(), p, eventID, models.ModuleTasks, models.ActionRead)
	require.NoError(t, err)
	assert.True(t, ok)

	// Both revoked: denied.
	e = NewEngine(newFakeStore())
	ok, err = e.Can(context.Background(), p, eventID, models.ModuleTasks, models.ActionRead)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEffectivePermissionsMergesRolesAndOverrides(t *testing.T) {
	store := newFakeStore()
	eventID := uuid.New()
	userID := uuid.New()

	r1 := store.addRole(uuid.New(), models.RoleScopeEvent, models.ModuleTasks, models.ActionRead)
	r2 := store.addRole(uuid.New(), models.RoleScopeDepartment, models.ModuleTasks, models.ActionCreate)
	dept := uuid.New()
	store.addMembership(eventID, userID, nil, &r1)
	store.addMembership(eventID, userID, &dept, &r2)
	store.overrides = append(store.overrides, models.EventUserPermission{
		ID: uuid.New(), EventID: eventID, UserID: userID,
		ModuleKey: models.ModuleChat, Actions: []string{models.ActionRead},
	})

	e := NewEngine(store)
	perms, err := e.EffectivePermissions(context.Background(), Principal{UserID: userID}, eventID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{models.ActionCreate, models.ActionRead}, perms[models.ModuleTasks])
	assert.Equal(t, []string{models.ActionRead}, perms[models.ModuleChat])
}

// Only EVENT- or BOTH-scoped roles signal event-wide capability; a
// department-scoped role with the same grant does not.
func TestHasGlobalActionHonorsRoleScope(t *testing.T) {
	eventID := uuid.New()
	userID := uuid.New()
	dept := uuid.New()
	p := Principal{UserID: userID}

	store := newFakeStore()
	deptRole := store.addRole(uuid.New(), models.RoleScopeDepartment, models.ModuleChat, models.ActionRead)
	store.addMembership(eventID, userID, &dept, &deptRole)
	e := NewEngine(store)
	ok, err := e.HasGlobalAction(context.Background(), p, eventID, models.ModuleChat, models.ActionRead)
	require.NoError(t, err)
	assert.False(t, ok)

	store = newFakeStore()
	bothRole := store.addRole(uuid.New(), models.RoleScopeBoth, models.ModuleChat, models.ActionRead)
	store.addMembership(eventID, userID, &dept, &bothRole)
	e = NewEngine(store)
	ok, err = e.HasGlobalAction(context.Background(), p, eventID, models.ModuleChat, models.ActionRead)
	require.NoError(t, err)
	assert.True(t, ok)
}
