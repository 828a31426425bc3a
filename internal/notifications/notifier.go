package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventops/backend/internal/chat"
	"github.com/eventops/backend/internal/models"
	"github.com/eventops/backend/internal/realtime"
	"github.com/eventops/backend/pkg/queue"
)

// Pusher is the realtime surface the dispatcher pushes through.
type Pusher interface {
	SendToUser(userID uuid.UUID, event string, payload interface{})
	PublishOnly(room, event string, payload interface{})
	NotifyKicked(conversationID, userID uuid.UUID)
	IsViewing(conversationID, userID uuid.UUID) bool
}

// EmailEnqueuer hands email jobs to the background worker.
type EmailEnqueuer interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// Dispatcher fans chat events out to in-app notifications, realtime pushes
// and background emails. Every delivery is best-effort: a failure is logged
// and never fails the operation that triggered it.
type Dispatcher struct {
	repo     *Repository
	hub      Pusher
	presence realtime.PresenceTracker
	emails   EmailEnqueuer
	logger   *zap.Logger
}

// NewDispatcher creates a notification dispatcher. emails may be nil when no
// worker is deployed.
func NewDispatcher(repo *Repository, hub Pusher, presence realtime.PresenceTracker, emails EmailEnqueuer, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{repo: repo, hub: hub, presence: presence, emails: emails, logger: logger}
}

var _ chat.Notifier = (*Dispatcher)(nil)

// MessageSent notifies conversation participants of a new message. Users with
// the conversation open are skipped; offline users additionally get an email.
func (d *Dispatcher) MessageSent(ctx context.Context, conv *models.Conversation, msg *models.Message, recipients []uuid.UUID) {
	title := conv.Title
	if title == "" {
		title = "New message"
	}
	var offline []uuid.UUID
	for _, userID := range recipients {
		if userID == msg.AuthorID {
			continue
		}
		if d.hub != nil && d.hub.IsViewing(conv.ID, userID) {
			continue
		}
		d.store(ctx, &models.Notification{
			UserID:   userID,
			EventID:  conv.EventID,
			Kind:     models.NotificationMessage,
			Title:    title,
			Body:     msg.Body,
			EntityID: &msg.ID,
		})
		if d.presence == nil || !d.presence.IsOnline(conv.EventID, userID) {
			offline = append(offline, userID)
		}
	}
	d.email(ctx, offline, fmt.Sprintf("New message in %s", title), msg.Body)
}

// Invited notifies newly added participants and refreshes the room.
func (d *Dispatcher) Invited(ctx context.Context, conv *models.Conversation, userIDs []uuid.UUID) {
	for _, userID := range userIDs {
		d.store(ctx, &models.Notification{
			UserID:   userID,
			EventID:  conv.EventID,
			Kind:     models.NotificationInvite,
			Title:    "Added to conversation",
			Body:     conv.Title,
			EntityID: &conv.ID,
		})
		if d.hub != nil {
			d.hub.SendToUser(userID, "conversation.invited", conv)
		}
	}
	if d.hub != nil {
		d.hub.PublishOnly(realtime.ConversationRoom(conv.ID), "participants.updated",
			map[string]string{"conversation_id": conv.ID.String()})
	}
}

// Removed kicks the user's live sockets out of the room and refreshes it.
func (d *Dispatcher) Removed(_ context.Context, conv *models.Conversation, userID uuid.UUID) {
	if d.hub == nil {
		return
	}
	d.hub.NotifyKicked(conv.ID, userID)
	d.hub.PublishOnly(realtime.ConversationRoom(conv.ID), "participants.updated",
		map[string]string{"conversation_id": conv.ID.String()})
}

func (d *Dispatcher) store(ctx context.Context, n *models.Notification) {
	if err := d.repo.Create(ctx, n); err != nil {
		d.logger.Warn("notification write failed",
			zap.String("user_id", n.UserID.String()), zap.Error(err))
		return
	}
	if d.hub != nil {
		d.hub.SendToUser(n.UserID, "notification.new", n)
	}
}

func (d *Dispatcher) email(ctx context.Context, userIDs []uuid.UUID, subject, body string) {
	if d.emails == nil || len(userIDs) == 0 {
		return
	}
	users, err := d.repo.UsersByIDs(ctx, userIDs)
	if err != nil {
		d.logger.Warn("email recipient lookup failed", zap.Error(err))
		return
	}
	for _, userID := range userIDs {
		u, ok := users[userID]
		if !ok || u.Email == "" {
			continue
		}
		err := d.emails.EnqueueEmail(ctx, queue.EmailPayload{
			RecipientEmail: u.Email,
			RecipientName:  u.FullName,
			Subject:        subject,
			Body:           body,
		})
		if err != nil {
			d.logger.Warn("email enqueue failed",
				zap.String("recipient", u.Email), zap.Error(err))
		}
	}
}
