package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventops/backend/internal/models"
	"github.com/eventops/backend/pkg/apperr"
)

const uniqueViolation = "23505"

// Repository implements Store over pgx.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a tasks repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const taskCols = `id, event_id, department_id, title, description, status, created_by, assignee_id, due_at, deleted_at, created_at, updated_at`

// CreateTask inserts a task.
func (r *Repository) CreateTask(ctx context.Context, t *models.Task) error {
	const q = `INSERT INTO tasks (event_id, department_id, title, description, status, created_by, assignee_id, due_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, t.EventID, t.DepartmentID, t.Title, t.Description,
		t.Status, t.CreatedBy, t.AssigneeID, t.DueAt).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// Task returns an undeleted task by ID, or nil.
func (r *Repository) Task(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	q := `SELECT ` + taskCols + ` FROM tasks WHERE id = $1 AND deleted_at IS NULL`
	var t models.Task
	err := r.pool.QueryRow(ctx, q, id).Scan(&t.ID, &t.EventID, &t.DepartmentID, &t.Title,
		&t.Description, &t.Status, &t.CreatedBy, &t.AssigneeID, &t.DueAt, &t.DeletedAt,
		&t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// TasksByEvent returns undeleted tasks of an event, optionally filtered by
// department.
func (r *Repository) TasksByEvent(ctx context.Context, eventID uuid.UUID, departmentIDs []uuid.UUID) ([]models.Task, error) {
	q := `SELECT ` + taskCols + ` FROM tasks WHERE event_id = $1 AND deleted_at IS NULL`
	args := []any{eventID}
	if departmentIDs != nil {
		q += ` AND department_id = ANY($2)`
		args = append(args, departmentIDs)
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Task
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.EventID, &t.DepartmentID, &t.Title, &t.Description,
			&t.Status, &t.CreatedBy, &t.AssigneeID, &t.DueAt, &t.DeletedAt,
			&t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTask writes the mutable fields.
func (r *Repository) UpdateTask(ctx context.Context, t *models.Task) error {
	const q = `UPDATE tasks SET title = $2, description = $3, assignee_id = $4, due_at = $5, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL RETURNING updated_at`
	return r.pool.QueryRow(ctx, q, t.ID, t.Title, t.Description, t.AssigneeID, t.DueAt).Scan(&t.UpdatedAt)
}

// SetStatus writes the status unconditionally.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status models.TaskStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tasks SET status = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`,
		id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// CompleteIfUnblocked marks the task done only when every undeleted blocker
// is already done. Check and write are one statement, so there is no window
// for a blocker to regress between them.
func (r *Repository) CompleteIfUnblocked(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `UPDATE tasks SET status = 'done', updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		AND NOT EXISTS (
			SELECT 1 FROM task_dependencies d
			JOIN tasks b ON b.id = d.blocker_id
			WHERE d.blocked_id = $1 AND b.deleted_at IS NULL AND b.status <> 'done'
		)`
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SoftDeleteTask marks the task deleted.
func (r *Repository) SoftDeleteTask(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tasks SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// AddDependency inserts a blocker edge.
func (r *Repository) AddDependency(ctx context.Context, d *models.TaskDependency) error {
	const q = `INSERT INTO task_dependencies (blocker_id, blocked_id)
		VALUES ($1, $2) RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, q, d.BlockerID, d.BlockedID).Scan(&d.ID, &d.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("dependency exists: %w", apperr.ErrConflict)
	}
	return err
}

// RemoveDependency deletes a blocker edge.
func (r *Repository) RemoveDependency(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM task_dependencies WHERE blocker_id = $1 AND blocked_id = $2`,
		blockerID, blockedID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("dependency: %w", apperr.ErrNotFound)
	}
	return nil
}

// DependenciesOf returns all edges blocking the task.
func (r *Repository) DependenciesOf(ctx context.Context, blockedID uuid.UUID) ([]models.TaskDependency, error) {
	const q = `SELECT id, blocker_id, blocked_id, created_at FROM task_dependencies WHERE blocked_id = $1`
	rows, err := r.pool.Query(ctx, q, blockedID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.TaskDependency
	for rows.Next() {
		var d models.TaskDependency
		if err := rows.Scan(&d.ID, &d.BlockerID, &d.BlockedID, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// IncompleteBlockers counts undeleted blockers not yet done.
func (r *Repository) IncompleteBlockers(ctx context.Context, blockedID uuid.UUID) (int, error) {
	const q = `SELECT COUNT(*) FROM task_dependencies d
		JOIN tasks b ON b.id = d.blocker_id
		WHERE d.blocked_id = $1 AND b.deleted_at IS NULL AND b.status <> 'done'`
	var n int
	err := r.pool.QueryRow(ctx, q, blockedID).Scan(&n)
	return n, err
}
