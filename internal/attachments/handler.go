package attachments

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventops/backend/internal/middleware"
	"github.com/eventops/backend/internal/models"
	"github.com/eventops/backend/pkg/response"
	"github.com/eventops/backend/pkg/storage"
)

// Handler handles attachment upload, listing and download.
type Handler struct {
	repo          *Repository
	blobs         storage.BlobStore
	maxUploadMB   int64
	presignExpire time.Duration
	logger        *zap.Logger
}

// NewHandler creates an attachments handler.
func NewHandler(repo *Repository, blobs storage.BlobStore, maxUploadMB int64, presignExpire time.Duration, logger *zap.Logger) *Handler {
	if maxUploadMB <= 0 {
		maxUploadMB = 50
	}
	return &Handler{
		repo:          repo,
		blobs:         blobs,
		maxUploadMB:   maxUploadMB,
		presignExpire: presignExpire,
		logger:        logger,
	}
}

// RegisterRoutes mounts attachment routes on an event group.
func (h *Handler) RegisterRoutes(g *gin.RouterGroup) {
	g.POST("/attachments/upload", h.Upload)
	g.GET("/attachments", h.ListByEntity)
	g.GET("/attachments/:attachmentId", h.Download)
}

func (h *Handler) requireMember(c *gin.Context) (uuid.UUID, bool) {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return uuid.Nil, false
	}
	p := middleware.Principal(c)
	if p.IsSuperAdmin {
		return eventID, true
	}
	ok, err := h.repo.IsEventMember(c.Request.Context(), eventID, p.UserID)
	if err != nil {
		response.Internal(c, "failed to check membership")
		return uuid.Nil, false
	}
	if !ok {
		response.Forbidden(c, "not a member of this event")
		return uuid.Nil, false
	}
	return eventID, true
}

// Upload handles POST /events/:eventId/attachments/upload. Multipart form
// with fields: file, entity_type, entity_id. A failed write never leaves a
// partial blob or an orphan row behind.
func (h *Handler) Upload(c *gin.Context) {
	eventID, ok := h.requireMember(c)
	if !ok {
		return
	}
	entityType := strings.ToUpper(c.PostForm("entity_type"))
	if !models.ValidEntityType(entityType) {
		response.BadRequest(c, "invalid entity_type")
		return
	}
	entityID, err := uuid.Parse(c.PostForm("entity_id"))
	if err != nil {
		response.BadRequest(c, "invalid entity_id")
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file")
		return
	}
	maxBytes := h.maxUploadMB * 1024 * 1024
	if fileHeader.Size > maxBytes {
		response.BadRequest(c, fmt.Sprintf("file exceeds %dMB limit", h.maxUploadMB))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Internal(c, "failed to read upload")
		return
	}
	defer src.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	attachmentID := uuid.New()
	key := ObjectKey(eventID, entityType, entityID, attachmentID, fileHeader.Filename)

	hasher := sha256.New()
	body := io.TeeReader(io.LimitReader(src, maxBytes+1), hasher)
	ctx := c.Request.Context()
	if err := h.blobs.Put(ctx, key, contentType, body, fileHeader.Size); err != nil {
		h.logger.Error("blob write failed", zap.String("key", key), zap.Error(err))
		response.Internal(c, "failed to store file")
		return
	}

	attachment := &models.Attachment{
		ID:           attachmentID,
		EventID:      eventID,
		ObjectKey:    key,
		OriginalName: fileHeader.Filename,
		MimeType:     contentType,
		SizeBytes:    fileHeader.Size,
		Checksum:     hex.EncodeToString(hasher.Sum(nil)),
		UploadedBy:   middleware.Principal(c).UserID,
	}
	if err := h.repo.Create(ctx, attachment); err != nil {
		if derr := h.blobs.Delete(ctx, key); derr != nil {
			h.logger.Warn("orphan blob cleanup failed", zap.String("key", key), zap.Error(derr))
		}
		response.Error(c, err)
		return
	}
	link := &models.AttachmentLink{
		AttachmentID: attachment.ID,
		EntityType:   entityType,
		EntityID:     entityID,
	}
	if err := h.repo.CreateLink(ctx, link); err != nil {
		if derr := h.repo.Delete(ctx, attachment.ID); derr != nil {
			h.logger.Warn("orphan attachment cleanup failed", zap.String("attachment_id", attachment.ID.String()), zap.Error(derr))
		}
		if derr := h.blobs.Delete(ctx, key); derr != nil {
			h.logger.Warn("orphan blob cleanup failed", zap.String("key", key), zap.Error(derr))
		}
		response.Error(c, err)
		return
	}
	link.Attachment = attachment
	response.Created(c, link)
}

// ListByEntity handles GET /events/:eventId/attachments?entity_type=&entity_id=.
func (h *Handler) ListByEntity(c *gin.Context) {
	eventID, ok := h.requireMember(c)
	if !ok {
		return
	}
	entityType := strings.ToUpper(c.Query("entity_type"))
	if !models.ValidEntityType(entityType) {
		response.BadRequest(c, "invalid entity_type")
		return
	}
	entityID, err := uuid.Parse(c.Query("entity_id"))
	if err != nil {
		response.BadRequest(c, "invalid entity_id")
		return
	}
	links, err := h.repo.ListByEntity(c.Request.Context(), entityType, entityID)
	if err != nil {
		response.Internal(c, "failed to list attachments")
		return
	}
	out := make([]models.AttachmentLink, 0, len(links))
	for _, l := range links {
		if l.Attachment != nil && l.Attachment.EventID == eventID {
			out = append(out, l)
		}
	}
	response.OK(c, out)
}

// Download handles GET /events/:eventId/attachments/:attachmentId. Redirects
// to a pre-signed URL when the backend provides one, streams otherwise.
func (h *Handler) Download(c *gin.Context) {
	eventID, ok := h.requireMember(c)
	if !ok {
		return
	}
	attachmentID, err := uuid.Parse(c.Param("attachmentId"))
	if err != nil {
		response.BadRequest(c, "invalid attachment id")
		return
	}
	ctx := c.Request.Context()
	attachment, err := h.repo.Get(ctx, attachmentID)
	if err != nil {
		response.Internal(c, "failed to load attachment")
		return
	}
	if attachment == nil || attachment.EventID != eventID {
		response.NotFound(c, "attachment not found")
		return
	}
	if url, signed, err := h.blobs.SignedURL(ctx, attachment.ObjectKey, h.presignExpire); err != nil {
		response.Internal(c, "failed to sign download url")
		return
	} else if signed {
		c.Redirect(http.StatusTemporaryRedirect, url)
		return
	}
	body, contentType, err := h.blobs.Get(ctx, attachment.ObjectKey)
	if err != nil {
		h.logger.Error("blob read failed", zap.String("key", attachment.ObjectKey), zap.Error(err))
		response.NotFound(c, "attachment not found")
		return
	}
	defer body.Close()
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", SanitizeFilename(attachment.OriginalName)))
	c.DataFromReader(http.StatusOK, attachment.SizeBytes, contentType, body, nil)
}
