package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventops/backend/internal/models"
	"github.com/eventops/backend/pkg/apperr"
)

// Repository persists in-app notifications over pgx.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a notifications repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a notification row.
func (r *Repository) Create(ctx context.Context, n *models.Notification) error {
	const q = `INSERT INTO notifications (user_id, event_id, kind, title, body, entity_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, n.UserID, n.EventID, n.Kind, n.Title, n.Body, n.EntityID).
		Scan(&n.ID, &n.CreatedAt)
}

// ListForUser returns the user's notifications, newest first.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID, unseenOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := `SELECT id, user_id, event_id, kind, title, body, entity_id, seen_at, created_at
		FROM notifications WHERE user_id = $1`
	if unseenOnly {
		q += ` AND seen_at IS NULL`
	}
	q += ` ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.EventID, &n.Kind, &n.Title, &n.Body,
			&n.EntityID, &n.SeenAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkSeen stamps the notification seen. Only the owner may mark it.
func (r *Repository) MarkSeen(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET seen_at = NOW() WHERE id = $1 AND user_id = $2 AND seen_at IS NULL`,
		id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// UsersByIDs returns public user projections keyed by ID, for email fan-out.
func (r *Repository) UsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.UserPublic, error) {
	out := make(map[uuid.UUID]models.UserPublic, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, email, full_name FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var u models.UserPublic
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName); err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, rows.Err()
}
