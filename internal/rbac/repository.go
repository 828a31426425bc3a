package rbac

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventops/backend/internal/models"
)

// Repository implements Store over pgx.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an rbac repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EventTenant returns the owning tenant of an event.
func (r *Repository) EventTenant(ctx context.Context, eventID uuid.UUID) (uuid.UUID, error) {
	var tenantID uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT tenant_id FROM events WHERE id = $1`, eventID).Scan(&tenantID)
	return tenantID, err
}

// MembershipsForUser returns all memberships of the user in the event.
func (r *Repository) MembershipsForUser(ctx context.Context, eventID, userID uuid.UUID) ([]models.EventMembership, error) {
	const q = `SELECT id, event_id, user_id, department_id, role_id, fixed_role, created_at
		FROM event_memberships WHERE event_id = $1 AND user_id = $2`
	rows, err := r.pool.Query(ctx, q, eventID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.EventMembership
	for rows.Next() {
		var m models.EventMembership
		if err := rows.Scan(&m.ID, &m.EventID, &m.UserID, &m.DepartmentID, &m.RoleID, &m.FixedRole, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// Departments returns every department of the event.
func (r *Repository) Departments(ctx context.Context, eventID uuid.UUID) ([]models.Department, error) {
	const q = `SELECT id, event_id, parent_id, name, created_at, updated_at
		FROM departments WHERE event_id = $1`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Department
	for rows.Next() {
		var d models.Department
		if err := rows.Scan(&d.ID, &d.EventID, &d.ParentID, &d.Name, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

// RolesByIDs returns the named roles.
func (r *Repository) RolesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Role, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const q = `SELECT id, tenant_id, name, scope, created_at, updated_at FROM roles WHERE id = ANY($1)`
	rows, err := r.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Role
	for rows.Next() {
		var role models.Role
		if err := rows.Scan(&role.ID, &role.TenantID, &role.Name, &role.Scope, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, role)
	}
	return list, rows.Err()
}

// PermissionsForRoles returns the permission rows of the given roles.
func (r *Repository) PermissionsForRoles(ctx context.Context, roleIDs []uuid.UUID) ([]models.Permission, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	const q = `SELECT id, role_id, module_key, actions FROM permissions WHERE role_id = ANY($1)`
	rows, err := r.pool.Query(ctx, q, roleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Permission
	for rows.Next() {
		var p models.Permission
		if err := rows.Scan(&p.ID, &p.RoleID, &p.ModuleKey, &p.Actions); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// UserOverrides returns the user's direct per-event permission grants.
func (r *Repository) UserOverrides(ctx context.Context, eventID, userID uuid.UUID) ([]models.EventUserPermission, error) {
	const q = `SELECT id, event_id, user_id, module_key, actions
		FROM event_user_permissions WHERE event_id = $1 AND user_id = $2`
	rows, err := r.pool.Query(ctx, q, eventID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.EventUserPermission
	for rows.Next() {
		var o models.EventUserPermission
		if err := rows.Scan(&o.ID, &o.EventID, &o.UserID, &o.ModuleKey, &o.Actions); err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}
