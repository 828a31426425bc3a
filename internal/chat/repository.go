package chat

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

// Repository implements Store over pgx.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a chat repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const conversationCols = `id, event_id, kind, title, department_id, is_system_group, is_active, created_by, created_at, updated_at`

func scanConversation(row pgx.Row) (*models.Conversation, error) {
	var c models.Conversation
	err := row.Scan(&c.ID, &c.EventID, &c.Kind, &c.Title, &c.DepartmentID,
		&c.IsSystemGroup, &c.IsActive, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func collectConversations(rows pgx.Rows) ([]models.Conversation, error) {
	defer rows.Close()
	var list []models.Conversation
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ID, &c.EventID, &c.Kind, &c.Title, &c.DepartmentID,
			&c.IsSystemGroup, &c.IsActive, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// Conversation returns a conversation by ID, or nil.
func (r *Repository) Conversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	q := `SELECT ` + conversationCols + ` FROM conversations WHERE id = $1`
	return scanConversation(r.pool.QueryRow(ctx, q, id))
}

// CreateConversation inserts a conversation and its participants in one
// transaction.
func (r *Repository) CreateConversation(ctx context.Context, conv *models.Conversation, participants []models.Participant) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const q = `INSERT INTO conversations (event_id, kind, title, department_id, is_system_group, is_active, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	err = tx.QueryRow(ctx, q, conv.EventID, conv.Kind, conv.Title, conv.DepartmentID,
		conv.IsSystemGroup, conv.IsActive, conv.CreatedBy).
		Scan(&conv.ID, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return err
	}

	for i := range participants {
		p := &participants[i]
		p.ConversationID = conv.ID
		const pq = `INSERT INTO participants (conversation_id, user_id, role)
			VALUES ($1, $2, $3) RETURNING id, joined_at`
		if err := tx.QueryRow(ctx, pq, conv.ID, p.UserID, p.Role).Scan(&p.ID, &p.JoinedAt); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// TouchConversation bumps updated_at.
func (r *Repository) TouchConversation(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE conversations SET updated_at = $2 WHERE id = $1`, id, at)
	return err
}

// ConversationsForUser returns active conversations the user participates in,
// most recently updated first.
func (r *Repository) ConversationsForUser(ctx context.Context, eventID, userID uuid.UUID) ([]models.Conversation, error) {
	q := `SELECT ` + conversationCols + ` FROM conversations c
		WHERE c.event_id = $1 AND c.is_active
		AND EXISTS (SELECT 1 FROM participants p WHERE p.conversation_id = c.id AND p.user_id = $2)
		ORDER BY c.updated_at DESC`
	rows, err := r.pool.Query(ctx, q, eventID, userID)
	if err != nil {
		return nil, err
	}
	return collectConversations(rows)
}

// FindDirect returns the DIRECT conversation holding exactly the two users,
// or nil.
func (r *Repository) FindDirect(ctx context.Context, eventID, a, b uuid.UUID) (*models.Conversation, error) {
	q := `SELECT ` + conversationCols + ` FROM conversations c
		WHERE c.event_id = $1 AND c.kind = 'DIRECT' AND c.is_active
		AND EXISTS (SELECT 1 FROM participants p WHERE p.conversation_id = c.id AND p.user_id = $2)
		AND EXISTS (SELECT 1 FROM participants p WHERE p.conversation_id = c.id AND p.user_id = $3)
		AND (SELECT COUNT(*) FROM participants p WHERE p.conversation_id = c.id) = 2
		LIMIT 1`
	return scanConversation(r.pool.QueryRow(ctx, q, eventID, a, b))
}

// SystemConversations returns all system groups of an event.
func (r *Repository) SystemConversations(ctx context.Context, eventID uuid.UUID) ([]models.Conversation, error) {
	q := `SELECT ` + conversationCols + ` FROM conversations
		WHERE event_id = $1 AND is_system_group AND is_active`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	return collectConversations(rows)
}

// Participant returns the user's participant row, or nil.
func (r *Repository) Participant(ctx context.Context, conversationID, userID uuid.UUID) (*models.Participant, error) {
	const q = `SELECT id, conversation_id, user_id, role, last_read_at, joined_at
		FROM participants WHERE conversation_id = $1 AND user_id = $2`
	var p models.Participant
	err := r.pool.QueryRow(ctx, q, conversationID, userID).
		Scan(&p.ID, &p.ConversationID, &p.UserID, &p.Role, &p.LastReadAt, &p.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ParticipantsOf returns all participants of a conversation.
func (r *Repository) ParticipantsOf(ctx context.Context, conversationID uuid.UUID) ([]models.Participant, error) {
	const q = `SELECT id, conversation_id, user_id, role, last_read_at, joined_at
		FROM participants WHERE conversation_id = $1 ORDER BY joined_at`
	rows, err := r.pool.Query(ctx, q, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.ConversationID, &p.UserID, &p.Role, &p.LastReadAt, &p.JoinedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// UpsertParticipants inserts new participant rows, skipping existing pairs,
// and returns the user IDs that were actually inserted.
func (r *Repository) UpsertParticipants(ctx context.Context, conversationID uuid.UUID, participants []models.Participant) ([]uuid.UUID, error) {
	var inserted []uuid.UUID
	for _, p := range participants {
		const q = `INSERT INTO participants (conversation_id, user_id, role)
			VALUES ($1, $2, $3)
			ON CONFLICT (conversation_id, user_id) DO NOTHING`
		tag, err := r.pool.Exec(ctx, q, conversationID, p.UserID, p.Role)
		if err != nil {
			return inserted, err
		}
		if tag.RowsAffected() > 0 {
			inserted = append(inserted, p.UserID)
		}
	}
	return inserted, nil
}

// DeleteParticipant removes a participant row.
func (r *Repository) DeleteParticipant(ctx context.Context, conversationID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM participants WHERE conversation_id = $1 AND user_id = $2`,
		conversationID, userID)
	return err
}

// SetParticipantRole updates a participant's role.
func (r *Repository) SetParticipantRole(ctx context.Context, conversationID, userID uuid.UUID, role models.ParticipantRole) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE participants SET role = $3 WHERE conversation_id = $1 AND user_id = $2`,
		conversationID, userID, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("participant: %w", apperr.ErrNotFound)
	}
	return nil
}

// TransferOwnership demotes the current OWNER and promotes the given user in
// one transaction.
func (r *Repository) TransferOwnership(ctx context.Context, conversationID, newOwnerID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE participants SET role = 'MEMBER' WHERE conversation_id = $1 AND role = 'OWNER'`,
		conversationID)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx,
		`UPDATE participants SET role = 'OWNER' WHERE conversation_id = $1 AND user_id = $2`,
		conversationID, newOwnerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("participant: %w", apperr.ErrNotFound)
	}
	return tx.Commit(ctx)
}

// SetLastRead moves the participant's read watermark.
func (r *Repository) SetLastRead(ctx context.Context, conversationID, userID uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE participants SET last_read_at = $3 WHERE conversation_id = $1 AND user_id = $2`,
		conversationID, userID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("participant: %w", apperr.ErrNotFound)
	}
	return nil
}

// CreateMessage inserts a message.
func (r *Repository) CreateMessage(ctx context.Context, msg *models.Message) error {
	const q = `INSERT INTO messages (conversation_id, author_id, parent_id, body, is_system)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, msg.ConversationID, msg.AuthorID, msg.ParentID, msg.Body, msg.IsSystem).
		Scan(&msg.ID, &msg.CreatedAt)
}

const messageCols = `id, conversation_id, author_id, parent_id, body, is_system, created_at`

func scanMessage(row pgx.Row) (*models.Message, error) {
	var m models.Message
	err := row.Scan(&m.ID, &m.ConversationID, &m.AuthorID, &m.ParentID, &m.Body, &m.IsSystem, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Message returns a message by ID, or nil.
func (r *Repository) Message(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	q := `SELECT ` + messageCols + ` FROM messages WHERE id = $1`
	return scanMessage(r.pool.QueryRow(ctx, q, id))
}

// LastMessage returns the newest message of a conversation, or nil.
func (r *Repository) LastMessage(ctx context.Context, conversationID uuid.UUID) (*models.Message, error) {
	q := `SELECT ` + messageCols + ` FROM messages
		WHERE conversation_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`
	return scanMessage(r.pool.QueryRow(ctx, q, conversationID))
}

// MessagesBefore returns up to limit messages older than before, newest first.
func (r *Repository) MessagesBefore(ctx context.Context, conversationID uuid.UUID, before *time.Time, limit int) ([]models.Message, error) {
	q := `SELECT ` + messageCols + ` FROM messages WHERE conversation_id = $1`
	args := []any{conversationID}
	if before != nil {
		q += ` AND created_at < $2 ORDER BY created_at DESC, id DESC LIMIT $3`
		args = append(args, *before, limit)
	} else {
		q += ` ORDER BY created_at DESC, id DESC LIMIT $2`
		args = append(args, limit)
	}
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.AuthorID, &m.ParentID, &m.Body, &m.IsSystem, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// UnreadCount counts messages authored by others after the watermark.
func (r *Repository) UnreadCount(ctx context.Context, conversationID, userID uuid.UUID, after *time.Time) (int, error) {
	q := `SELECT COUNT(*) FROM messages WHERE conversation_id = $1 AND author_id <> $2`
	args := []any{conversationID, userID}
	if after != nil {
		q += ` AND created_at > $3`
		args = append(args, *after)
	}
	var n int
	err := r.pool.QueryRow(ctx, q, args...).Scan(&n)
	return n, err
}

// CreateReaction inserts a reaction. A duplicate (message,user,emoji) triple
// surfaces as apperr.ErrConflict.
func (r *Repository) CreateReaction(ctx context.Context, reaction *models.Reaction) error {
	const q = `INSERT INTO reactions (message_id, user_id, emoji)
		VALUES ($1, $2, $3) RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, q, reaction.MessageID, reaction.UserID, reaction.Emoji).
		Scan(&reaction.ID, &reaction.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("reaction exists: %w", apperr.ErrConflict)
	}
	return err
}

// DeleteReaction removes a reaction, reporting whether a row was deleted.
func (r *Repository) DeleteReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM reactions WHERE message_id = $1 AND user_id = $2 AND emoji = $3`,
		messageID, userID, emoji)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// IsEventMember reports whether the user holds any membership in the event.
func (r *Repository) IsEventMember(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM event_memberships WHERE event_id = $1 AND user_id = $2)`,
		eventID, userID).Scan(&ok)
	return ok, err
}

// FilterEventMembers returns the subset of userIDs holding a membership in
// the event.
func (r *Repository) FilterEventMembers(ctx context.Context, eventID uuid.UUID, userIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	const q = `SELECT DISTINCT user_id FROM event_memberships
		WHERE event_id = $1 AND user_id = ANY($2)`
	rows, err := r.pool.Query(ctx, q, eventID, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		list = append(list, id)
	}
	return list, rows.Err()
}

// UserDepartments returns the department IDs of the user's memberships in the
// event.
func (r *Repository) UserDepartments(ctx context.Context, eventID, userID uuid.UUID) ([]uuid.UUID, error) {
	const q = `SELECT DISTINCT department_id FROM event_memberships
		WHERE event_id = $1 AND user_id = $2 AND department_id IS NOT NULL`
	rows, err := r.pool.Query(ctx, q, eventID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		list = append(list, id)
	}
	return list, rows.Err()
}

// EventTenant returns the owning tenant of an event.
func (r *Repository) EventTenant(ctx context.Context, eventID uuid.UUID) (uuid.UUID, error) {
	var tenantID uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT tenant_id FROM events WHERE id = $1`, eventID).Scan(&tenantID)
	return tenantID, err
}

// UsersByIDs returns public user projections keyed by ID.
func (r *Repository) UsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.UserPublic, error) {
	out := make(map[uuid.UUID]models.UserPublic)
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

// AttachmentLinksForMessages batch-loads attachment links keyed by message ID.
func (r *Repository) AttachmentLinksForMessages(ctx context.Context, messageIDs []uuid.UUID) (map[uuid.UUID][]models.AttachmentLink, error) {
	out := make(map[uuid.UUID][]models.AttachmentLink)
	if len(messageIDs) == 0 {
		return out, nil
	}
	const q = `SELECT id, attachment_id, entity_type, entity_id, created_at
		FROM attachment_links WHERE entity_type = 'MESSAGE' AND entity_id = ANY($1)`
	rows, err := r.pool.Query(ctx, q, messageIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var l models.AttachmentLink
		if err := rows.Scan(&l.ID, &l.AttachmentID, &l.EntityType, &l.EntityID, &l.CreatedAt); err != nil {
			return nil, err
		}
		out[l.EntityID] = append(out[l.EntityID], l)
	}
	return out, rows.Err()
}
