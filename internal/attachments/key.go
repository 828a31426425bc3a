package attachments

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

const keyPrefix = "attachments"

// SanitizeFilename reduces an uploaded filename to a safe object-key segment.
// Path separators and control characters are replaced, the base name is kept.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "file"
	}
	return out
}

// ObjectKey returns the stable blob key:
// attachments/{eventId}/{entityType}/{entityId}/{attachmentId}/{sanitizedName}.
func ObjectKey(eventID uuid.UUID, entityType string, entityID, attachmentID uuid.UUID, filename string) string {
	return path.Join(keyPrefix,
		eventID.String(),
		strings.ToLower(entityType),
		entityID.String(),
		attachmentID.String(),
		SanitizeFilename(filename),
	)
}
