package models

import (
	"time"

	"github.com/google/uuid"
)

// ConversationKind distinguishes conversation shapes.
type ConversationKind string

const (
	ConversationDirect     ConversationKind = "DIRECT"
	ConversationGroup      ConversationKind = "GROUP"
	ConversationDepartment ConversationKind = "DEPARTMENT"
	ConversationEvent      ConversationKind = "EVENT"
)

// ValidConversationKind reports whether k is a known kind.
func ValidConversationKind(k ConversationKind) bool {
	switch k {
	case ConversationDirect, ConversationGroup, ConversationDepartment, ConversationEvent:
		return true
	}
	return false
}

// ParticipantRole is the role within a conversation.
type ParticipantRole string

const (
	ParticipantOwner  ParticipantRole = "OWNER"
	ParticipantMember ParticipantRole = "MEMBER"
)

// Conversation belongs to one event. System groups (one per department plus
// an event-wide general channel) have their participant lists maintained by
// business logic rather than invitation.
type Conversation struct {
	ID            uuid.UUID        `json:"id"`
	EventID       uuid.UUID        `json:"event_id"`
	Kind          ConversationKind `json:"kind"`
	Title         string           `json:"title"`
	DepartmentID  *uuid.UUID       `json:"department_id,omitempty"`
	IsSystemGroup bool             `json:"is_system_group"`
	IsActive      bool             `json:"is_active"`
	CreatedBy     uuid.UUID        `json:"created_by"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Participant joins a user to a conversation. LastReadAt is the watermark up
// to which the user has acknowledged reading.
type Participant struct {
	ID             uuid.UUID       `json:"id"`
	ConversationID uuid.UUID       `json:"conversation_id"`
	UserID         uuid.UUID       `json:"user_id"`
	Role           ParticipantRole `json:"role"`
	LastReadAt     *time.Time      `json:"last_read_at,omitempty"`
	JoinedAt       time.Time       `json:"joined_at"`
}

// Message belongs to a conversation. IsSystem is set once at creation for
// synthesized membership messages; it is never derived from the body.
type Message struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID uuid.UUID  `json:"conversation_id"`
	AuthorID       uuid.UUID  `json:"author_id"`
	ParentID       *uuid.UUID `json:"parent_id,omitempty"`
	Body           string     `json:"body"`
	IsSystem       bool       `json:"is_system"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Reaction is a (message, user, emoji) unique triple.
type Reaction struct {
	ID        uuid.UUID `json:"id"`
	MessageID uuid.UUID `json:"message_id"`
	UserID    uuid.UUID `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}
