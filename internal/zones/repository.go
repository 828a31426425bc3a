package zones

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

// Repository persists zones over pgx.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a zones repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a zone.
func (r *Repository) Create(ctx context.Context, z *models.Zone) error {
	const q = `INSERT INTO zones (event_id, name, description)
		VALUES ($1, $2, $3) RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, z.EventID, z.Name, z.Description).
		Scan(&z.ID, &z.CreatedAt, &z.UpdatedAt)
}

// Get returns a zone by ID, or nil.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Zone, error) {
	const q = `SELECT id, event_id, name, description, created_at, updated_at FROM zones WHERE id = $1`
	var z models.Zone
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&z.ID, &z.EventID, &z.Name, &z.Description, &z.CreatedAt, &z.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &z, nil
}

// ListByEvent returns all zones of an event.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Zone, error) {
	const q = `SELECT id, event_id, name, description, created_at, updated_at
		FROM zones WHERE event_id = $1 ORDER BY name`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Zone
	for rows.Next() {
		var z models.Zone
		if err := rows.Scan(&z.ID, &z.EventID, &z.Name, &z.Description, &z.CreatedAt, &z.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, z)
	}
	return out, rows.Err()
}

// Update writes name and description.
func (r *Repository) Update(ctx context.Context, z *models.Zone) error {
	const q = `UPDATE zones SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`
	return r.pool.QueryRow(ctx, q, z.ID, z.Name, z.Description).Scan(&z.UpdatedAt)
}

// Delete removes a zone.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM zones WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("zone %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}
