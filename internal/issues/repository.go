package issues

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

// Repository persists issues over pgx.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an issues repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const issueCols = `id, event_id, department_id, title, description, status, severity, reporter_id, assignee_id, deleted_at, created_at, updated_at`

// Create inserts an issue.
func (r *Repository) Create(ctx context.Context, i *models.Issue) error {
	const q = `INSERT INTO issues (event_id, department_id, title, description, status, severity, reporter_id, assignee_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, i.EventID, i.DepartmentID, i.Title, i.Description,
		i.Status, i.Severity, i.ReporterID, i.AssigneeID).
		Scan(&i.ID, &i.CreatedAt, &i.UpdatedAt)
}

// Get returns an undeleted issue by ID, or nil.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Issue, error) {
	q := `SELECT ` + issueCols + ` FROM issues WHERE id = $1 AND deleted_at IS NULL`
	var i models.Issue
	err := r.pool.QueryRow(ctx, q, id).Scan(&i.ID, &i.EventID, &i.DepartmentID, &i.Title,
		&i.Description, &i.Status, &i.Severity, &i.ReporterID, &i.AssigneeID, &i.DeletedAt,
		&i.CreatedAt, &i.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// ListByEvent returns undeleted issues of an event, optionally filtered by
// department.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID, departmentIDs []uuid.UUID) ([]models.Issue, error) {
	q := `SELECT ` + issueCols + ` FROM issues WHERE event_id = $1 AND deleted_at IS NULL`
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
	var out []models.Issue
	for rows.Next() {
		var i models.Issue
		if err := rows.Scan(&i.ID, &i.EventID, &i.DepartmentID, &i.Title, &i.Description,
			&i.Status, &i.Severity, &i.ReporterID, &i.AssigneeID, &i.DeletedAt,
			&i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

// Update writes the mutable fields.
func (r *Repository) Update(ctx context.Context, i *models.Issue) error {
	const q = `UPDATE issues SET title = $2, description = $3, status = $4, severity = $5, assignee_id = $6, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL RETURNING updated_at`
	return r.pool.QueryRow(ctx, q, i.ID, i.Title, i.Description, i.Status, i.Severity, i.AssigneeID).Scan(&i.UpdatedAt)
}

// SoftDelete marks the issue deleted.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE issues SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("issue %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}
