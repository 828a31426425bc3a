package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationKind labels the in-app notification source.
type NotificationKind string

const (
	NotificationMessage      NotificationKind = "message"
	NotificationInvite       NotificationKind = "invite"
	NotificationTaskAssigned NotificationKind = "task_assigned"
)

// Notification is an in-app notification row. Email delivery is best-effort
// and handled by the worker; a failed email never fails the primary write.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	EventID   uuid.UUID        `json:"event_id"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	EntityID  *uuid.UUID       `json:"entity_id,omitempty"`
	SeenAt    *time.Time       `json:"seen_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
