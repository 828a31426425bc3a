package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventops/backend/internal/models"
	"github.com/eventops/backend/pkg/apperr"
)

const uniqueViolation = "23505"

// Repository persists events and memberships over pgx.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an events repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventCols = `id, tenant_id, name, description, starts_at, ends_at, created_by, archived_at, created_at, updated_at`

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.TenantID, &e.Name, &e.Description, &e.StartsAt, &e.EndsAt,
		&e.CreatedBy, &e.ArchivedAt, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts an event and the creator's OWNER membership atomically.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const q = `INSERT INTO events (tenant_id, name, description, starts_at, ends_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	err = tx.QueryRow(ctx, q, e.TenantID, e.Name, e.Description, e.StartsAt, e.EndsAt, e.CreatedBy).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return err
	}

	const mq = `INSERT INTO event_memberships (event_id, user_id, fixed_role) VALUES ($1, $2, $3)`
	if _, err := tx.Exec(ctx, mq, e.ID, e.CreatedBy, models.FixedRoleOwner); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Get returns an event by ID, or nil.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	q := `SELECT ` + eventCols + ` FROM events WHERE id = $1`
	return scanEvent(r.pool.QueryRow(ctx, q, id))
}

// ListByTenant returns all events of a tenant, newest first.
func (r *Repository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Event, error) {
	q := `SELECT ` + eventCols + ` FROM events WHERE tenant_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, q, tenantID)
}

// ListForUser returns events of the tenant where the user holds a membership.
func (r *Repository) ListForUser(ctx context.Context, tenantID, userID uuid.UUID) ([]models.Event, error) {
	q := `SELECT ` + eventCols + ` FROM events e
		WHERE e.tenant_id = $1
		AND EXISTS (SELECT 1 FROM event_memberships m WHERE m.event_id = e.id AND m.user_id = $2)
		ORDER BY e.created_at DESC`
	return r.list(ctx, q, tenantID, userID)
}

func (r *Repository) list(ctx context.Context, q string, args ...any) ([]models.Event, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.TenantID, &e.Name, &e.Description, &e.StartsAt, &e.EndsAt,
			&e.CreatedBy, &e.ArchivedAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Update writes the mutable event fields.
func (r *Repository) Update(ctx context.Context, e *models.Event) error {
	const q = `UPDATE events SET name = $2, description = $3, starts_at = $4, ends_at = $5, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`
	return r.pool.QueryRow(ctx, q, e.ID, e.Name, e.Description, e.StartsAt, e.EndsAt).Scan(&e.UpdatedAt)
}

// Archive marks an event archived. Idempotent.
func (r *Repository) Archive(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE events SET archived_at = COALESCE(archived_at, $2), updated_at = NOW() WHERE id = $1`,
		id, at)
	return err
}

// Delete removes an event. Dependent rows cascade via foreign keys.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("event %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// Members returns all memberships of an event.
func (r *Repository) Members(ctx context.Context, eventID uuid.UUID) ([]models.EventMembership, error) {
	const q = `SELECT id, event_id, user_id, department_id, role_id, fixed_role, created_at
		FROM event_memberships WHERE event_id = $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.EventMembership
	for rows.Next() {
		var m models.EventMembership
		if err := rows.Scan(&m.ID, &m.EventID, &m.UserID, &m.DepartmentID, &m.RoleID, &m.FixedRole, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AddMember inserts a membership. A duplicate (event,user,department) triple
// surfaces as apperr.ErrConflict.
func (r *Repository) AddMember(ctx context.Context, m *models.EventMembership) error {
	const q = `INSERT INTO event_memberships (event_id, user_id, department_id, role_id, fixed_role)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, q, m.EventID, m.UserID, m.DepartmentID, m.RoleID, m.FixedRole).
		Scan(&m.ID, &m.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("membership exists: %w", apperr.ErrConflict)
	}
	return err
}

// RemoveMember deletes memberships of a user in an event. With a department
// it removes that one membership; without, every membership of the user.
func (r *Repository) RemoveMember(ctx context.Context, eventID, userID uuid.UUID, departmentID *uuid.UUID) error {
	var tag pgconn.CommandTag
	var err error
	if departmentID != nil {
		tag, err = r.pool.Exec(ctx,
			`DELETE FROM event_memberships WHERE event_id = $1 AND user_id = $2 AND department_id = $3`,
			eventID, userID, *departmentID)
	} else {
		tag, err = r.pool.Exec(ctx,
			`DELETE FROM event_memberships WHERE event_id = $1 AND user_id = $2`,
			eventID, userID)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("membership: %w", apperr.ErrNotFound)
	}
	return nil
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
	var out []models.Department
	for rows.Next() {
		var d models.Department
		if err := rows.Scan(&d.ID, &d.EventID, &d.ParentID, &d.Name, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
