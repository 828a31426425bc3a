package chat

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/eventops/backend/internal/models"
)

// Store is the persistence surface of the chat service. Implemented by
// Repository over pgx; tests use an in-memory fake.
type Store interface {
	// Conversation returns a conversation by ID, or nil if absent.
	Conversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	// CreateConversation inserts a conversation and its initial participants
	// atomically.
	CreateConversation(ctx context.Context, conv *models.Conversation, participants []models.Participant) error
	// TouchConversation bumps updated_at.
	TouchConversation(ctx context.Context, id uuid.UUID, at time.Time) error
	// ConversationsForUser returns active conversations where the user is a
	// participant, most recently updated first.
	ConversationsForUser(ctx context.Context, eventID, userID uuid.UUID) ([]models.Conversation, error)
	// FindDirect returns the active DIRECT conversation containing exactly
	// the two users, or nil.
	FindDirect(ctx context.Context, eventID, a, b uuid.UUID) (*models.Conversation, error)
	// SystemConversations returns all system-group conversations of an event.
	SystemConversations(ctx context.Context, eventID uuid.UUID) ([]models.Conversation, error)

	// Participant returns the user's participant row, or nil.
	Participant(ctx context.Context, conversationID, userID uuid.UUID) (*models.Participant, error)
	// ParticipantsOf returns all participants of a conversation.
	ParticipantsOf(ctx context.Context, conversationID uuid.UUID) ([]models.Participant, error)
	// UpsertParticipants inserts rows, skipping existing (conversation,user)
	// pairs, and returns the user IDs that were actually inserted.
	UpsertParticipants(ctx context.Context, conversationID uuid.UUID, participants []models.Participant) ([]uuid.UUID, error)
	// DeleteParticipant removes a participant row.
	DeleteParticipant(ctx context.Context, conversationID, userID uuid.UUID) error
	// SetParticipantRole updates a participant's role.
	SetParticipantRole(ctx context.Context, conversationID, userID uuid.UUID, role models.ParticipantRole) error
	// TransferOwnership demotes the current OWNER to MEMBER and promotes the
	// given user, atomically.
	TransferOwnership(ctx context.Context, conversationID, newOwnerID uuid.UUID) error
	// SetLastRead upserts the participant's read watermark. The row must
	// exist; callers enforce participation first.
	SetLastRead(ctx context.Context, conversationID, userID uuid.UUID, at time.Time) error

	// CreateMessage inserts a message.
	CreateMessage(ctx context.Context, msg *models.Message) error
	// Message returns a message by ID, or nil.
	Message(ctx context.Context, id uuid.UUID) (*models.Message, error)
	// LastMessage returns the newest message of a conversation, or nil.
	LastMessage(ctx context.Context, conversationID uuid.UUID) (*models.Message, error)
	// MessagesBefore returns up to limit messages older than before (all when
	// before is nil), newest first.
	MessagesBefore(ctx context.Context, conversationID uuid.UUID, before *time.Time, limit int) ([]models.Message, error)
	// UnreadCount counts messages authored by others after the watermark
	// (all such messages when after is nil).
	UnreadCount(ctx context.Context, conversationID, userID uuid.UUID, after *time.Time) (int, error)

	// CreateReaction inserts a reaction; returns an apperr.ErrConflict-wrapped
	// error when the (message,user,emoji) triple already exists.
	CreateReaction(ctx context.Context, reaction *models.Reaction) error
	// DeleteReaction removes a reaction, reporting whether a row was deleted.
	DeleteReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (bool, error)

	// IsEventMember reports whether the user holds any membership in the event.
	IsEventMember(ctx context.Context, eventID, userID uuid.UUID) (bool, error)
	// FilterEventMembers returns the subset of userIDs holding a membership
	// in the event.
	FilterEventMembers(ctx context.Context, eventID uuid.UUID, userIDs []uuid.UUID) ([]uuid.UUID, error)
	// UserDepartments returns the department IDs of the user's memberships in
	// the event.
	UserDepartments(ctx context.Context, eventID, userID uuid.UUID) ([]uuid.UUID, error)
	// EventTenant returns the owning tenant of an event.
	EventTenant(ctx context.Context, eventID uuid.UUID) (uuid.UUID, error)
	// UsersByIDs returns public user projections keyed by ID.
	UsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.UserPublic, error)

	// AttachmentLinksForMessages batch-loads attachment links keyed by message ID.
	AttachmentLinksForMessages(ctx context.Context, messageIDs []uuid.UUID) (map[uuid.UUID][]models.AttachmentLink, error)
}
