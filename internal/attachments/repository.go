package attachments

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

// Repository persists attachments and their entity links over pgx.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an attachments repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const attachmentCols = `id, event_id, object_key, original_name, mime_type, size_bytes, checksum, uploaded_by, created_at`

// Create inserts the attachment row. A duplicate object key is a conflict.
func (r *Repository) Create(ctx context.Context, a *models.Attachment) error {
	const q = `INSERT INTO attachments (id, event_id, object_key, original_name, mime_type, size_bytes, checksum, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`
	err := r.pool.QueryRow(ctx, q, a.ID, a.EventID, a.ObjectKey, a.OriginalName,
		a.MimeType, a.SizeBytes, a.Checksum, a.UploadedBy).Scan(&a.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("object key %s: %w", a.ObjectKey, apperr.ErrConflict)
	}
	return err
}

// Get returns an attachment by ID, or nil.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Attachment, error) {
	q := `SELECT ` + attachmentCols + ` FROM attachments WHERE id = $1`
	var a models.Attachment
	err := r.pool.QueryRow(ctx, q, id).Scan(&a.ID, &a.EventID, &a.ObjectKey, &a.OriginalName,
		&a.MimeType, &a.SizeBytes, &a.Checksum, &a.UploadedBy, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Delete removes the attachment row and its links.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM attachments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("attachment %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// CreateLink attaches the blob to an (entityType, entityId) pair.
func (r *Repository) CreateLink(ctx context.Context, l *models.AttachmentLink) error {
	const q = `INSERT INTO attachment_links (attachment_id, entity_type, entity_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, q, l.AttachmentID, l.EntityType, l.EntityID).Scan(&l.ID, &l.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("attachment already linked: %w", apperr.ErrConflict)
	}
	return err
}

// ListByEntity returns links for an entity with their attachments loaded,
// oldest first.
func (r *Repository) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]models.AttachmentLink, error) {
	const q = `SELECT l.id, l.attachment_id, l.entity_type, l.entity_id, l.created_at,
			a.id, a.event_id, a.object_key, a.original_name, a.mime_type, a.size_bytes, a.checksum, a.uploaded_by, a.created_at
		FROM attachment_links l
		JOIN attachments a ON a.id = l.attachment_id
		WHERE l.entity_type = $1 AND l.entity_id = $2
		ORDER BY l.created_at ASC`
	rows, err := r.pool.Query(ctx, q, entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.AttachmentLink
	for rows.Next() {
		var l models.AttachmentLink
		var a models.Attachment
		if err := rows.Scan(&l.ID, &l.AttachmentID, &l.EntityType, &l.EntityID, &l.CreatedAt,
			&a.ID, &a.EventID, &a.ObjectKey, &a.OriginalName, &a.MimeType, &a.SizeBytes,
			&a.Checksum, &a.UploadedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		l.Attachment = &a
		out = append(out, l)
	}
	return out, rows.Err()
}

// IsEventMember reports whether the user holds any membership in the event.
func (r *Repository) IsEventMember(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM event_memberships WHERE event_id = $1 AND user_id = $2)`
	var ok bool
	err := r.pool.QueryRow(ctx, q, eventID, userID).Scan(&ok)
	return ok, err
}
