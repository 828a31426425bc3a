package departments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventops/backend/internal/models"
	"github.com/eventops/backend/pkg/apperr"
)

// Repository persists departments over pgx.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a departments repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const deptCols = `id, event_id, parent_id, name, created_at, updated_at`

// Create inserts a department.
func (r *Repository) Create(ctx context.Context, d *models.Department) error {
	const q = `INSERT INTO departments (event_id, parent_id, name)
		VALUES ($1, $2, $3) RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, d.EventID, d.ParentID, d.Name).
		Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

// Get returns a department by ID, or nil.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Department, error) {
	q := `SELECT ` + deptCols + ` FROM departments WHERE id = $1`
	var d models.Department
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&d.ID, &d.EventID, &d.ParentID, &d.Name, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListByEvent returns all departments of an event.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Department, error) {
	q := `SELECT ` + deptCols + ` FROM departments WHERE event_id = $1 ORDER BY name`
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

// Update writes name and parent.
func (r *Repository) Update(ctx context.Context, d *models.Department) error {
	const q = `UPDATE departments SET name = $2, parent_id = $3, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`
	return r.pool.QueryRow(ctx, q, d.ID, d.Name, d.ParentID).Scan(&d.UpdatedAt)
}

// Delete removes a department. Children are re-parented to the deleted
// node's parent so the tree stays connected.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var parentID *uuid.UUID
	err = tx.QueryRow(ctx, `SELECT parent_id FROM departments WHERE id = $1`, id).Scan(&parentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("department %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE departments SET parent_id = $2 WHERE parent_id = $1`, id, parentID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM departments WHERE id = $1`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
