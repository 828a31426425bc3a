package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/eventops/backend/internal/models"
	"github.com/eventops/backend/pkg/apperr"
)

// CreateRole inserts a tenant role.
func (r *Repository) CreateRole(ctx context.Context, role *models.Role) error {
	const q = `INSERT INTO roles (tenant_id, name, scope)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, role.TenantID, role.Name, role.Scope).
		Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("role %q: %w", role.Name, apperr.ErrConflict)
	}
	return err
}

// Role returns a role by ID, or nil.
func (r *Repository) Role(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	const q = `SELECT id, tenant_id, name, scope, created_at, updated_at FROM roles WHERE id = $1`
	var role models.Role
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&role.ID, &role.TenantID, &role.Name, &role.Scope, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// RolesByTenant returns all roles of a tenant.
func (r *Repository) RolesByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Role, error) {
	const q = `SELECT id, tenant_id, name, scope, created_at, updated_at
		FROM roles WHERE tenant_id = $1 ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Role
	for rows.Next() {
		var role models.Role
		if err := rows.Scan(&role.ID, &role.TenantID, &role.Name, &role.Scope,
			&role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

// RoleHolder identifies one user holding a role within one event.
type RoleHolder struct {
	EventID uuid.UUID
	UserID  uuid.UUID
}

// RoleHolders returns the distinct (event, user) pairs whose membership
// carries the role.
func (r *Repository) RoleHolders(ctx context.Context, roleID uuid.UUID) ([]RoleHolder, error) {
	const q = `SELECT DISTINCT event_id, user_id FROM event_memberships WHERE role_id = $1`
	rows, err := r.pool.Query(ctx, q, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RoleHolder
	for rows.Next() {
		var h RoleHolder
		if err := rows.Scan(&h.EventID, &h.UserID); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// ReplaceRolePermissions swaps the role's permission rows in one transaction.
func (r *Repository) ReplaceRolePermissions(ctx context.Context, roleID uuid.UUID, perms []models.Permission) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM permissions WHERE role_id = $1`, roleID); err != nil {
		return err
	}
	for i := range perms {
		perms[i].RoleID = roleID
		err := tx.QueryRow(ctx,
			`INSERT INTO permissions (role_id, module_key, actions) VALUES ($1, $2, $3) RETURNING id`,
			roleID, perms[i].ModuleKey, perms[i].Actions).Scan(&perms[i].ID)
		if err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `UPDATE roles SET updated_at = NOW() WHERE id = $1`, roleID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
