package roles

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eventops/backend/internal/middleware"
	"github.com/eventops/backend/internal/models"
	"github.com/eventops/backend/internal/rbac"
)

type fakeRoleStore struct {
	roles   map[uuid.UUID]*models.Role
	perms   map[uuid.UUID][]models.Permission
	holders map[uuid.UUID][]rbac.RoleHolder
}

func newFakeRoleStore() *fakeRoleStore {
	return &fakeRoleStore{
		roles:   make(map[uuid.UUID]*models.Role),
		perms:   make(map[uuid.UUID][]models.Permission),
		holders: make(map[uuid.UUID][]rbac.RoleHolder),
	}
}

func (f *fakeRoleStore) CreateRole(_ context.Context, role *models.Role) error {
	role.ID = uuid.New()
	f.roles[role.ID] = role
	return nil
}

func (f *fakeRoleStore) Role(_ context.Context, id uuid.UUID) (*models.Role, error) {
	return f.roles[id], nil
}

func (f *fakeRoleStore) RolesByTenant(_ context.Context, tenantID uuid.UUID) ([]models.Role, error) {
	var out []models.Role
	for _, r := range f.roles {
		if r.TenantID == tenantID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRoleStore) PermissionsForRoles(_ context.Context, roleIDs []uuid.UUID) ([]models.Permission, error) {
	var out []models.Permission
	for _, id := range roleIDs {
		out = append(out, f.perms[id]...)
	}
	return out, nil
}

func (f *fakeRoleStore) ReplaceRolePermissions(_ context.Context, roleID uuid.UUID, perms []models.Permission) error {
	f.perms[roleID] = perms
	return nil
}

func (f *fakeRoleStore) RoleHolders(_ context.Context, roleID uuid.UUID) ([]rbac.RoleHolder, error) {
	return f.holders[roleID], nil
}

type syncCall struct {
	userID  uuid.UUID
	eventID uuid.UUID
}

type fakeSyncer struct {
	calls []syncCall
	fail  bool
}

func (f *fakeSyncer) SyncSystemGroupMembership(_ context.Context, subject rbac.Principal, eventID uuid.UUID) error {
	f.calls = append(f.calls, syncCall{userID: subject.UserID, eventID: eventID})
	if f.fail {
		return errors.New("sync down")
	}
	return nil
}

func replacePermissionsContext(t *testing.T, role *models.Role, tenantID uuid.UUID) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	body, err := json.Marshal(ReplacePermissionsRequest{Permissions: []PermissionInput{
		{ModuleKey: models.ModuleChat, Actions: []string{models.ActionRead}},
	}})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPatch,
		"/roles/"+role.ID.String()+"/permissions", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "roleId", Value: role.ID.String()}}
	c.Set(middleware.ContextPrincipal, rbac.Principal{
		UserID: uuid.New(), TenantID: tenantID, IsTenantManager: true,
	})
	return c, w
}

func TestReplacePermissionsSyncsRoleHolders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newFakeRoleStore()
	syncer := &fakeSyncer{}
	h := NewHandler(store, syncer, zap.NewNop())

	tenantID := uuid.New()
	role := &models.Role{TenantID: tenantID, Name: "coordinator", Scope: models.RoleScopeBoth}
	require.NoError(t, store.CreateRole(context.Background(), role))

	eventA, eventB := uuid.New(), uuid.New()
	u1, u2 := uuid.New(), uuid.New()
	store.holders[role.ID] = []rbac.RoleHolder{
		{EventID: eventA, UserID: u1},
		{EventID: eventB, UserID: u2},
	}

	c, w := replacePermissionsContext(t, role, tenantID)
	h.ReplacePermissions(c)

	// Gaining or losing chat read through the role must land every holder in
	// (or out of) their system groups right away, not on the next membership
	// change.
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, syncer.calls, 2)
	assert.Contains(t, syncer.calls, syncCall{userID: u1, eventID: eventA})
	assert.Contains(t, syncer.calls, syncCall{userID: u2, eventID: eventB})
	assert.Len(t, store.perms[role.ID], 1)
}

func TestReplacePermissionsSurvivesSyncFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newFakeRoleStore()
	syncer := &fakeSyncer{fail: true}
	h := NewHandler(store, syncer, zap.NewNop())

	tenantID := uuid.New()
	role := &models.Role{TenantID: tenantID, Name: "coordinator", Scope: models.RoleScopeEvent}
	require.NoError(t, store.CreateRole(context.Background(), role))
	store.holders[role.ID] = []rbac.RoleHolder{{EventID: uuid.New(), UserID: uuid.New()}}

	c, w := replacePermissionsContext(t, role, tenantID)
	h.ReplacePermissions(c)

	// The permission write stands even when reconciliation fails.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, store.perms[role.ID], 1)
	assert.Len(t, syncer.calls, 1)
}
