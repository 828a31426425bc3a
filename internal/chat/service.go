// Package chat owns the conversation, message and participant lifecycle.
// The service is transport-agnostic: HTTP handlers and the websocket gateway
// call the same methods and get identical side effects. Socket fan-out is the
// gateway's job, never done here.
package chat

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventops/backend/internal/models"
	"github.com/eventops/backend/internal/rbac"
	"github.com/eventops/backend/pkg/apperr"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200

	generalTitle = "General"
)

// Notifier receives best-effort notification fan-out after a message commits.
// Implementations must never fail the send: errors are theirs to log.
type Notifier interface {
	MessageSent(ctx context.Context, conv *models.Conversation, msg *models.Message, recipients []uuid.UUID)
	Invited(ctx context.Context, conv *models.Conversation, userIDs []uuid.UUID)
	Removed(ctx context.Context, conv *models.Conversation, userID uuid.UUID)
}

// Service implements the chat domain operations.
type Service struct {
	store    Store
	engine   *rbac.Engine
	logger   *zap.Logger
	notifier Notifier
	now      func() time.Time
}

// NewService creates a chat service.
func NewService(store Store, engine *rbac.Engine, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, engine: engine, logger: logger, now: time.Now}
}

// SetNotifier installs the notification hook.
func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

// CreateConversationInput is the input for CreateConversation.
type CreateConversationInput struct {
	EventID        uuid.UUID
	Kind           models.ConversationKind
	Title          string
	DepartmentID   *uuid.UUID
	ParticipantIDs []uuid.UUID
}

// ParticipantView is a participant with their public user projection.
type ParticipantView struct {
	models.Participant
	User models.UserPublic `json:"user"`
}

// MessageView is a message with its author projection and attachment links.
type MessageView struct {
	models.Message
	Author      models.UserPublic       `json:"author"`
	Attachments []models.AttachmentLink `json:"attachments,omitempty"`
}

// ConversationSummary annotates a conversation for listing.
type ConversationSummary struct {
	models.Conversation
	Participants       []ParticipantView `json:"participants"`
	LastMessage        *MessageView      `json:"last_message,omitempty"`
	LastReadAt         *time.Time        `json:"last_read_at,omitempty"`
	UnreadCount        int               `json:"unread_count"`
	LastMessageAllRead bool              `json:"last_message_all_read"`
}

// MessagePage is a page of messages in ascending creation order.
type MessagePage struct {
	Messages   []MessageView `json:"messages"`
	NextCursor *time.Time    `json:"next_cursor,omitempty"`
}

// ReactionResult reports a reaction toggle outcome.
type ReactionResult struct {
	Action         string     `json:"action"` // "added" or "removed"
	ID             *uuid.UUID `json:"id,omitempty"`
	ConversationID uuid.UUID  `json:"conversation_id"`
}

// AddParticipantsResult reports how many participants were added and the
// synthesized system message, if any.
type AddParticipantsResult struct {
	Added     int        `json:"added"`
	MessageID *uuid.UUID `json:"message_id,omitempty"`
}

// RemoveParticipantResult reports a removal and its system message, if any.
type RemoveParticipantResult struct {
	OK        bool       `json:"ok"`
	MessageID *uuid.UUID `json:"message_id,omitempty"`
}

// EnsureEventMember fails Forbidden unless the actor holds a membership in
// the event. Super-admins are exempt.
func (s *Service) EnsureEventMember(ctx context.Context, actor rbac.Principal, eventID uuid.UUID) error {
	if actor.IsSuperAdmin {
		return nil
	}
	ok, err := s.store.IsEventMember(ctx, eventID, actor.UserID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return fmt.Errorf("not a member of event %s: %w", eventID, apperr.ErrForbidden)
	}
	return nil
}

// CreateConversation creates a conversation with the actor as OWNER plus the
// listed participants as MEMBERs.
func (s *Service) CreateConversation(ctx context.Context, actor rbac.Principal, in CreateConversationInput) (*models.Conversation, error) {
	if !models.ValidConversationKind(in.Kind) {
		return nil, fmt.Errorf("invalid conversation kind %q: %w", in.Kind, apperr.ErrBadRequest)
	}
	if err := s.EnsureEventMember(ctx, actor, in.EventID); err != nil {
		return nil, err
	}

	conv := &models.Conversation{
		EventID:      in.EventID,
		Kind:         in.Kind,
		Title:        strings.TrimSpace(in.Title),
		DepartmentID: in.DepartmentID,
		IsActive:     true,
		CreatedBy:    actor.UserID,
	}
	participants := []models.Participant{{UserID: actor.UserID, Role: models.ParticipantOwner}}
	for _, id := range in.ParticipantIDs {
		if id == actor.UserID {
			continue
		}
		participants = append(participants, models.Participant{UserID: id, Role: models.ParticipantMember})
	}
	if err := s.store.CreateConversation(ctx, conv, participants); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	if s.notifier != nil && len(participants) > 1 {
		invited := make([]uuid.UUID, 0, len(participants)-1)
		for _, p := range participants[1:] {
			invited = append(invited, p.UserID)
		}
		s.notifier.Invited(ctx, conv, invited)
	}
	return conv, nil
}

// GetOrCreateDirect returns the existing DIRECT conversation between the
// actor and the other user, creating it on first use. Idempotent in either
// argument order.
func (s *Service) GetOrCreateDirect(ctx context.Context, actor rbac.Principal, eventID, otherUserID uuid.UUID) (*models.Conversation, error) {
	if otherUserID == actor.UserID {
		return nil, fmt.Errorf("cannot open a direct conversation with yourself: %w", apperr.ErrBadRequest)
	}
	if err := s.EnsureEventMember(ctx, actor, eventID); err != nil {
		return nil, err
	}
	ok, err := s.store.IsEventMember(ctx, eventID, otherUserID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("user is not a member of the event: %w", apperr.ErrForbidden)
	}

	if existing, err := s.store.FindDirect(ctx, eventID, actor.UserID, otherUserID); err != nil {
		return nil, fmt.Errorf("find direct: %w", err)
	} else if existing != nil {
		return existing, nil
	}

	conv := &models.Conversation{
		EventID:   eventID,
		Kind:      models.ConversationDirect,
		IsActive:  true,
		CreatedBy: actor.UserID,
	}
	participants := []models.Participant{
		{UserID: actor.UserID, Role: models.ParticipantOwner},
		{UserID: otherUserID, Role: models.ParticipantMember},
	}
	if err := s.store.CreateConversation(ctx, conv, participants); err != nil {
		return nil, fmt.Errorf("create direct: %w", err)
	}
	if s.notifier != nil {
		s.notifier.Invited(ctx, conv, []uuid.UUID{otherUserID})
	}
	return conv, nil
}

// ListConversations returns the actor's active conversations in the event,
// most recently updated first, annotated with unread state.
func (s *Service) ListConversations(ctx context.Context, actor rbac.Principal, eventID uuid.UUID) ([]ConversationSummary, error) {
	convs, err := s.store.ConversationsForUser(ctx, eventID, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	summaries := make([]ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		parts, err := s.store.ParticipantsOf(ctx, conv.ID)
		if err != nil {
			return nil, fmt.Errorf("load participants: %w", err)
		}
		views, err := s.participantViews(ctx, parts)
		if err != nil {
			return nil, err
		}

		var lastReadAt *time.Time
		for _, p := range parts {
			if p.UserID == actor.UserID {
				lastReadAt = p.LastReadAt
			}
		}

		last, err := s.store.LastMessage(ctx, conv.ID)
		if err != nil {
			return nil, fmt.Errorf("load last message: %w", err)
		}
		unread, err := s.store.UnreadCount(ctx, conv.ID, actor.UserID, lastReadAt)
		if err != nil {
			return nil, fmt.Errorf("count unread: %w", err)
		}

		summary := ConversationSummary{
			Conversation: conv,
			Participants: views,
			LastReadAt:   lastReadAt,
			UnreadCount:  unread,
		}
		if last != nil {
			view, err := s.messageView(ctx, *last)
			if err != nil {
				return nil, err
			}
			summary.LastMessage = &view
			summary.LastMessageAllRead = lastMessageAllRead(*last, actor.UserID, parts)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// lastMessageAllRead is true iff the last message was authored by the actor
// and every other participant's watermark covers it.
func lastMessageAllRead(last models.Message, actorID uuid.UUID, parts []models.Participant) bool {
	if last.AuthorID != actorID {
		return false
	}
	for _, p := range parts {
		if p.UserID == actorID {
			continue
		}
		if p.LastReadAt == nil || p.LastReadAt.Before(last.CreatedAt) {
			return false
		}
	}
	return true
}

// SendMessageInput is the input for SendMessage.
type SendMessageInput struct {
	ConversationID uuid.UUID
	Body           string
	ParentID       *uuid.UUID
}

// SendMessage appends a message. The actor must be a participant; event
// membership alone is not enough.
func (s *Service) SendMessage(ctx context.Context, actor rbac.Principal, in SendMessageInput) (*MessageView, error) {
	if strings.TrimSpace(in.Body) == "" {
		return nil, fmt.Errorf("message body required: %w", apperr.ErrBadRequest)
	}
	conv, err := s.requireConversation(ctx, in.ConversationID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireParticipant(ctx, conv.ID, actor.UserID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		AuthorID:       actor.UserID,
		ParentID:       in.ParentID,
		Body:           in.Body,
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	if err := s.store.TouchConversation(ctx, conv.ID, msg.CreatedAt); err != nil {
		s.logger.Warn("bump conversation failed", zap.Error(err), zap.String("conversation_id", conv.ID.String()))
	}

	if s.notifier != nil {
		parts, err := s.store.ParticipantsOf(ctx, conv.ID)
		if err == nil {
			recipients := make([]uuid.UUID, 0, len(parts))
			for _, p := range parts {
				if p.UserID != actor.UserID {
					recipients = append(recipients, p.UserID)
				}
			}
			s.notifier.MessageSent(ctx, conv, msg, recipients)
		}
	}

	view, err := s.messageView(ctx, *msg)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// ToggleReaction adds the (message, actor, emoji) reaction, or removes it if
// it already exists. Under a concurrent duplicate create, the unique index is
// the arbiter: the loser observes the conflict and falls back to delete.
func (s *Service) ToggleReaction(ctx context.Context, actor rbac.Principal, messageID uuid.UUID, emoji string) (*ReactionResult, error) {
	if strings.TrimSpace(emoji) == "" {
		return nil, fmt.Errorf("emoji required: %w", apperr.ErrBadRequest)
	}
	msg, err := s.store.Message(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("load message: %w", err)
	}
	if msg == nil {
		return nil, fmt.Errorf("message %s: %w", messageID, apperr.ErrNotFound)
	}
	if _, err := s.requireParticipant(ctx, msg.ConversationID, actor.UserID); err != nil {
		return nil, err
	}

	reaction := &models.Reaction{MessageID: messageID, UserID: actor.UserID, Emoji: emoji}
	err = s.store.CreateReaction(ctx, reaction)
	if err == nil {
		return &ReactionResult{Action: "added", ID: &reaction.ID, ConversationID: msg.ConversationID}, nil
	}
	if !apperr.IsConflict(err) {
		return nil, fmt.Errorf("create reaction: %w", err)
	}
	if _, err := s.store.DeleteReaction(ctx, messageID, actor.UserID, emoji); err != nil {
		return nil, fmt.Errorf("delete reaction: %w", err)
	}
	return &ReactionResult{Action: "removed", ConversationID: msg.ConversationID}, nil
}

// MarkRead moves the actor's read watermark to now. The actor must already be
// a participant; a non-participant acknowledging reads is meaningless and
// fails Forbidden.
func (s *Service) MarkRead(ctx context.Context, actor rbac.Principal, conversationID uuid.UUID) (time.Time, error) {
	if _, err := s.requireConversation(ctx, conversationID); err != nil {
		return time.Time{}, err
	}
	if _, err := s.requireParticipant(ctx, conversationID, actor.UserID); err != nil {
		return time.Time{}, err
	}
	at := s.now().UTC()
	if err := s.store.SetLastRead(ctx, conversationID, actor.UserID, at); err != nil {
		return time.Time{}, fmt.Errorf("set last read: %w", err)
	}
	return at, nil
}

// AddParticipants adds users to a conversation. IDs without an event
// membership are silently dropped. For GROUP conversations only the OWNER may
// add; for other kinds any participant may. Idempotent: re-adding an existing
// participant is a no-op. When anyone was actually added a system message
// "added <names>" is synthesized and its ID returned for broadcast.
func (s *Service) AddParticipants(ctx context.Context, actor rbac.Principal, conversationID uuid.UUID, userIDs []uuid.UUID) (*AddParticipantsResult, error) {
	conv, err := s.requireConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	actorPart, err := s.requireParticipant(ctx, conv.ID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if conv.Kind == models.ConversationGroup && actorPart.Role != models.ParticipantOwner {
		return nil, fmt.Errorf("only the group owner may add members: %w", apperr.ErrForbidden)
	}

	valid, err := s.store.FilterEventMembers(ctx, conv.EventID, userIDs)
	if err != nil {
		return nil, fmt.Errorf("filter members: %w", err)
	}
	if len(valid) == 0 {
		return &AddParticipantsResult{Added: 0}, nil
	}

	rows := make([]models.Participant, 0, len(valid))
	for _, id := range valid {
		rows = append(rows, models.Participant{UserID: id, Role: models.ParticipantMember})
	}
	added, err := s.store.UpsertParticipants(ctx, conv.ID, rows)
	if err != nil {
		return nil, fmt.Errorf("upsert participants: %w", err)
	}
	if len(added) == 0 {
		return &AddParticipantsResult{Added: 0}, nil
	}

	// Only the users actually inserted are named; re-adds stay silent.
	msgID, err := s.systemMessage(ctx, conv, actor.UserID, "added", added)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.Invited(ctx, conv, added)
	}
	return &AddParticipantsResult{Added: len(added), MessageID: msgID}, nil
}

// RemoveParticipant removes a user from a GROUP conversation. Self-removal is
// always allowed; removing someone else requires the OWNER, and the OWNER can
// only be removed by themself.
func (s *Service) RemoveParticipant(ctx context.Context, actor rbac.Principal, conversationID, userID uuid.UUID) (*RemoveParticipantResult, error) {
	conv, err := s.requireConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.Kind != models.ConversationGroup {
		return nil, fmt.Errorf("participants can only be removed from group conversations: %w", apperr.ErrBadRequest)
	}
	actorPart, err := s.requireParticipant(ctx, conv.ID, actor.UserID)
	if err != nil {
		return nil, err
	}
	target, err := s.store.Participant(ctx, conv.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("load participant: %w", err)
	}
	if target == nil {
		return nil, fmt.Errorf("participant %s: %w", userID, apperr.ErrNotFound)
	}

	if userID != actor.UserID {
		if actorPart.Role != models.ParticipantOwner {
			return nil, fmt.Errorf("only the group owner may remove members: %w", apperr.ErrForbidden)
		}
		if target.Role == models.ParticipantOwner {
			return nil, fmt.Errorf("the owner can only remove themself: %w", apperr.ErrForbidden)
		}
	}

	if err := s.store.DeleteParticipant(ctx, conv.ID, userID); err != nil {
		return nil, fmt.Errorf("delete participant: %w", err)
	}
	msgID, err := s.systemMessage(ctx, conv, actor.UserID, "removed", []uuid.UUID{userID})
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.Removed(ctx, conv, userID)
	}
	return &RemoveParticipantResult{OK: true, MessageID: msgID}, nil
}

// UpdateParticipantRole changes a participant's role. Only the OWNER may
// call. Promoting a new OWNER demotes the previous one in the same store
// operation, keeping exactly one OWNER per GROUP conversation.
func (s *Service) UpdateParticipantRole(ctx context.Context, actor rbac.Principal, conversationID, userID uuid.UUID, role models.ParticipantRole) error {
	if role != models.ParticipantOwner && role != models.ParticipantMember {
		return fmt.Errorf("invalid participant role %q: %w", role, apperr.ErrBadRequest)
	}
	conv, err := s.requireConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	actorPart, err := s.requireParticipant(ctx, conv.ID, actor.UserID)
	if err != nil {
		return err
	}
	if actorPart.Role != models.ParticipantOwner {
		return fmt.Errorf("only the owner may change roles: %w", apperr.ErrForbidden)
	}
	target, err := s.store.Participant(ctx, conv.ID, userID)
	if err != nil {
		return fmt.Errorf("load participant: %w", err)
	}
	if target == nil {
		return fmt.Errorf("participant %s: %w", userID, apperr.ErrNotFound)
	}

	if role == models.ParticipantOwner {
		if target.Role == models.ParticipantOwner {
			return nil
		}
		if err := s.store.TransferOwnership(ctx, conv.ID, userID); err != nil {
			return fmt.Errorf("transfer ownership: %w", err)
		}
		return nil
	}
	if target.Role == models.ParticipantOwner {
		return fmt.Errorf("demoting the owner would leave the group without one; promote a replacement instead: %w", apperr.ErrBadRequest)
	}
	if err := s.store.SetParticipantRole(ctx, conv.ID, userID, role); err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	return nil
}

// ListMessages returns a page of messages in ascending order. Cursor is the
// created_at of the oldest previously returned message.
func (s *Service) ListMessages(ctx context.Context, actor rbac.Principal, conversationID uuid.UUID, limit int, before *time.Time) (*MessagePage, error) {
	conv, err := s.requireConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireParticipant(ctx, conv.ID, actor.UserID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	msgs, err := s.store.MessagesBefore(ctx, conv.ID, before, limit)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	page := &MessagePage{Messages: []MessageView{}}
	if len(msgs) == 0 {
		return page, nil
	}

	// Oldest of this (newest-first) batch is the cursor for the next page.
	oldest := msgs[len(msgs)-1].CreatedAt
	page.NextCursor = &oldest

	ids := make([]uuid.UUID, len(msgs))
	authorIDs := make([]uuid.UUID, 0, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
		authorIDs = append(authorIDs, m.AuthorID)
	}
	links, err := s.store.AttachmentLinksForMessages(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load attachment links: %w", err)
	}
	authors, err := s.store.UsersByIDs(ctx, authorIDs)
	if err != nil {
		return nil, fmt.Errorf("load authors: %w", err)
	}

	// Reverse to ascending for display.
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		page.Messages = append(page.Messages, MessageView{
			Message:     m,
			Author:      authors[m.AuthorID],
			Attachments: links[m.ID],
		})
	}
	return page, nil
}

// MessageReaders returns every participant whose watermark covers the
// message, i.e. who has read it or anything later.
func (s *Service) MessageReaders(ctx context.Context, actor rbac.Principal, messageID uuid.UUID) ([]ParticipantView, error) {
	msg, err := s.store.Message(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("load message: %w", err)
	}
	if msg == nil {
		return nil, fmt.Errorf("message %s: %w", messageID, apperr.ErrNotFound)
	}
	if _, err := s.requireParticipant(ctx, msg.ConversationID, actor.UserID); err != nil {
		return nil, err
	}

	parts, err := s.store.ParticipantsOf(ctx, msg.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	var readers []models.Participant
	for _, p := range parts {
		if p.LastReadAt != nil && !p.LastReadAt.Before(msg.CreatedAt) {
			readers = append(readers, p)
		}
	}
	return s.participantViews(ctx, readers)
}

// MessageAttachments returns the current attachment links of a message. The
// message must belong to the given conversation; a message ID from elsewhere
// is indistinguishable from a missing one.
func (s *Service) MessageAttachments(ctx context.Context, actor rbac.Principal, conversationID, messageID uuid.UUID) ([]models.AttachmentLink, error) {
	ok, err := s.CanObserve(ctx, actor, conversationID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, apperr.ErrForbidden)
	}
	msg, err := s.store.Message(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("load message: %w", err)
	}
	if msg == nil || msg.ConversationID != conversationID {
		return nil, fmt.Errorf("message %s: %w", messageID, apperr.ErrNotFound)
	}
	links, err := s.store.AttachmentLinksForMessages(ctx, []uuid.UUID{messageID})
	if err != nil {
		return nil, fmt.Errorf("load attachment links: %w", err)
	}
	return links[messageID], nil
}

// CanObserve reports whether the principal may join the conversation's room.
// Participants always may. System groups additionally admit super-admins and
// tenant managers of the event's tenant without a participant row, so
// administrators can observe system channels.
func (s *Service) CanObserve(ctx context.Context, actor rbac.Principal, conversationID uuid.UUID) (bool, error) {
	conv, err := s.store.Conversation(ctx, conversationID)
	if err != nil {
		return false, fmt.Errorf("load conversation: %w", err)
	}
	if conv == nil {
		return false, nil
	}
	p, err := s.store.Participant(ctx, conv.ID, actor.UserID)
	if err != nil {
		return false, fmt.Errorf("load participant: %w", err)
	}
	if p != nil {
		return true, nil
	}
	if !conv.IsSystemGroup {
		return false, nil
	}
	if actor.IsSuperAdmin {
		return true, nil
	}
	if actor.IsTenantManager {
		tenantID, err := s.store.EventTenant(ctx, conv.EventID)
		if err != nil {
			return false, fmt.Errorf("resolve tenant: %w", err)
		}
		return tenantID == actor.TenantID, nil
	}
	return false, nil
}

// EnsureSystemGroups creates the event-wide general channel and one system
// group per department, when missing. Safe to call repeatedly.
func (s *Service) EnsureSystemGroups(ctx context.Context, eventID, createdBy uuid.UUID, departments []models.Department) error {
	existing, err := s.store.SystemConversations(ctx, eventID)
	if err != nil {
		return fmt.Errorf("load system groups: %w", err)
	}
	haveGeneral := false
	haveDept := make(map[uuid.UUID]bool)
	for _, conv := range existing {
		if conv.Kind == models.ConversationEvent {
			haveGeneral = true
		}
		if conv.DepartmentID != nil {
			haveDept[*conv.DepartmentID] = true
		}
	}

	if !haveGeneral {
		conv := &models.Conversation{
			EventID:       eventID,
			Kind:          models.ConversationEvent,
			Title:         generalTitle,
			IsSystemGroup: true,
			IsActive:      true,
			CreatedBy:     createdBy,
		}
		if err := s.store.CreateConversation(ctx, conv, nil); err != nil {
			return fmt.Errorf("create general channel: %w", err)
		}
	}
	for _, dept := range departments {
		if haveDept[dept.ID] {
			continue
		}
		deptID := dept.ID
		conv := &models.Conversation{
			EventID:       eventID,
			Kind:          models.ConversationDepartment,
			Title:         dept.Name,
			DepartmentID:  &deptID,
			IsSystemGroup: true,
			IsActive:      true,
			CreatedBy:     createdBy,
		}
		if err := s.store.CreateConversation(ctx, conv, nil); err != nil {
			return fmt.Errorf("create department channel: %w", err)
		}
	}
	return nil
}

// SyncSystemGroupMembership reconciles a user's system-group participation in
// an event after a membership or permission change. With global chat:read the
// user joins every system group; without it they stay only where a department
// membership justifies it, and never leave the event-wide general channel
// while they still hold any membership in the event.
func (s *Service) SyncSystemGroupMembership(ctx context.Context, subject rbac.Principal, eventID uuid.UUID) error {
	global, err := s.engine.HasGlobalAction(ctx, subject, eventID, models.ModuleChat, models.ActionRead)
	if err != nil {
		return fmt.Errorf("check global chat read: %w", err)
	}
	isMember, err := s.store.IsEventMember(ctx, eventID, subject.UserID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	deptIDs, err := s.store.UserDepartments(ctx, eventID, subject.UserID)
	if err != nil {
		return fmt.Errorf("load user departments: %w", err)
	}
	inDept := make(map[uuid.UUID]bool, len(deptIDs))
	for _, id := range deptIDs {
		inDept[id] = true
	}

	groups, err := s.store.SystemConversations(ctx, eventID)
	if err != nil {
		return fmt.Errorf("load system groups: %w", err)
	}
	for _, conv := range groups {
		justified := global
		if !justified {
			switch {
			case conv.Kind == models.ConversationEvent:
				justified = isMember
			case conv.DepartmentID != nil:
				justified = inDept[*conv.DepartmentID]
			}
		}
		if justified {
			_, err = s.store.UpsertParticipants(ctx, conv.ID, []models.Participant{
				{UserID: subject.UserID, Role: models.ParticipantMember},
			})
			if err != nil {
				return fmt.Errorf("join system group: %w", err)
			}
			continue
		}
		if err := s.store.DeleteParticipant(ctx, conv.ID, subject.UserID); err != nil {
			return fmt.Errorf("leave system group: %w", err)
		}
	}
	return nil
}

func (s *Service) requireConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	conv, err := s.store.Conversation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if conv == nil || !conv.IsActive {
		return nil, fmt.Errorf("conversation %s: %w", id, apperr.ErrNotFound)
	}
	return conv, nil
}

func (s *Service) requireParticipant(ctx context.Context, conversationID, userID uuid.UUID) (*models.Participant, error) {
	p, err := s.store.Participant(ctx, conversationID, userID)
	if err != nil {
		return nil, fmt.Errorf("load participant: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("not a participant of conversation %s: %w", conversationID, apperr.ErrForbidden)
	}
	return p, nil
}

// systemMessage writes an is_system message naming the affected users and
// bumps the conversation.
func (s *Service) systemMessage(ctx context.Context, conv *models.Conversation, authorID uuid.UUID, verb string, userIDs []uuid.UUID) (*uuid.UUID, error) {
	users, err := s.store.UsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	names := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if u, ok := users[id]; ok && u.FullName != "" {
			names = append(names, u.FullName)
		} else {
			names = append(names, id.String())
		}
	}
	sort.Strings(names)

	msg := &models.Message{
		ConversationID: conv.ID,
		AuthorID:       authorID,
		Body:           verb + " " + strings.Join(names, ", "),
		IsSystem:       true,
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("create system message: %w", err)
	}
	if err := s.store.TouchConversation(ctx, conv.ID, msg.CreatedAt); err != nil {
		s.logger.Warn("bump conversation failed", zap.Error(err), zap.String("conversation_id", conv.ID.String()))
	}
	return &msg.ID, nil
}

func (s *Service) messageView(ctx context.Context, msg models.Message) (MessageView, error) {
	users, err := s.store.UsersByIDs(ctx, []uuid.UUID{msg.AuthorID})
	if err != nil {
		return MessageView{}, fmt.Errorf("load author: %w", err)
	}
	return MessageView{Message: msg, Author: users[msg.AuthorID]}, nil
}

func (s *Service) participantViews(ctx context.Context, parts []models.Participant) ([]ParticipantView, error) {
	ids := make([]uuid.UUID, 0, len(parts))
	for _, p := range parts {
		ids = append(ids, p.UserID)
	}
	users, err := s.store.UsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	views := make([]ParticipantView, 0, len(parts))
	for _, p := range parts {
		views = append(views, ParticipantView{Participant: p, User: users[p.UserID]})
	}
	return views, nil
}
