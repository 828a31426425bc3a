package models

import (
	"time"

	"github.com/google/uuid"
)

// AttachmentEntityType names the entity kinds an attachment can link to.
const (
	EntityTask    = "TASK"
	EntityIssue   = "ISSUE"
	EntityMessage = "MESSAGE"
)

// ValidEntityType reports whether t is a linkable entity type.
func ValidEntityType(t string) bool {
	switch t {
	case EntityTask, EntityIssue, EntityMessage:
		return true
	}
	return false
}

// Attachment is a stored blob descriptor. ObjectKey follows the stable layout
// attachments/{eventId}/{entityTypeLowercased}/{entityId}/{attachmentId}/{name}.
type Attachment struct {
	ID           uuid.UUID `json:"id"`
	EventID      uuid.UUID `json:"event_id"`
	ObjectKey    string    `json:"object_key"`
	OriginalName string    `json:"original_name"`
	MimeType     string    `json:"mime_type"`
	SizeBytes    int64     `json:"size_bytes"`
	Checksum     string    `json:"checksum"`
	UploadedBy   uuid.UUID `json:"uploaded_by"`
	CreatedAt    time.Time `json:"created_at"`
}

// AttachmentLink attaches a blob to an arbitrary (entityType, entityId) pair,
// enabling reuse across tasks, issues and messages.
type AttachmentLink struct {
	ID           uuid.UUID `json:"id"`
	AttachmentID uuid.UUID `json:"attachment_id"`
	EntityType   string    `json:"entity_type"`
	EntityID     uuid.UUID `json:"entity_id"`
	CreatedAt    time.Time `json:"created_at"`

	Attachment *Attachment `json:"attachment,omitempty"`
}
