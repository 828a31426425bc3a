package chat

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventops/backend/internal/middleware"
	"github.com/eventops/backend/internal/models"
	"github.com/eventops/backend/pkg/response"
)

// CreateConversationRequest is the body for POST /events/:eventId/conversations.
type CreateConversationRequest struct {
	Kind           models.ConversationKind `json:"kind" binding:"required"`
	Title          string                  `json:"title"`
	DepartmentID   *uuid.UUID              `json:"department_id"`
	ParticipantIDs []uuid.UUID             `json:"participant_ids"`
}

// DirectRequest is the body for POST /events/:eventId/conversations/direct.
type DirectRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

// SendMessageRequest is the body for POST /conversations/:conversationId/messages.
type SendMessageRequest struct {
	Body     string     `json:"body" binding:"required"`
	ParentID *uuid.UUID `json:"parent_id"`
}

// ReactionRequest is the body for POST /messages/:messageId/reactions.
type ReactionRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

// AddParticipantsRequest is the body for POST /conversations/:conversationId/participants.
type AddParticipantsRequest struct {
	UserIDs []uuid.UUID `json:"user_ids" binding:"required,min=1"`
}

// UpdateRoleRequest is the body for PATCH /conversations/:conversationId/participants/:userId.
type UpdateRoleRequest struct {
	Role models.ParticipantRole `json:"role" binding:"required"`
}

// Handler handles chat HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a chat handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterEventRoutes mounts the event-scoped conversation routes. The group
// must already carry the JWT middleware.
func (h *Handler) RegisterEventRoutes(g *gin.RouterGroup) {
	g.GET("/conversations", h.ListConversations)
	g.POST("/conversations", h.CreateConversation)
	g.POST("/conversations/direct", h.GetOrCreateDirect)
}

// RegisterRoutes mounts the conversation and message routes.
func (h *Handler) RegisterRoutes(g *gin.RouterGroup) {
	g.GET("/conversations/:conversationId/messages", h.ListMessages)
	g.POST("/conversations/:conversationId/messages", h.SendMessage)
	g.POST("/conversations/:conversationId/read", h.MarkRead)
	g.POST("/conversations/:conversationId/participants", h.AddParticipants)
	g.DELETE("/conversations/:conversationId/participants/:userId", h.RemoveParticipant)
	g.PATCH("/conversations/:conversationId/participants/:userId", h.UpdateParticipantRole)
	g.POST("/messages/:messageId/reactions", h.ToggleReaction)
	g.GET("/messages/:messageId/readers", h.MessageReaders)
}

// ListConversations handles GET /events/:eventId/conversations.
func (h *Handler) ListConversations(c *gin.Context) {
	eventID, ok := pathUUID(c, "eventId")
	if !ok {
		return
	}
	list, err := h.svc.ListConversations(c.Request.Context(), middleware.Principal(c), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// CreateConversation handles POST /events/:eventId/conversations.
func (h *Handler) CreateConversation(c *gin.Context) {
	eventID, ok := pathUUID(c, "eventId")
	if !ok {
		return
	}
	var req CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	conv, err := h.svc.CreateConversation(c.Request.Context(), middleware.Principal(c), CreateConversationInput{
		EventID:        eventID,
		Kind:           req.Kind,
		Title:          req.Title,
		DepartmentID:   req.DepartmentID,
		ParticipantIDs: req.ParticipantIDs,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, conv)
}

// GetOrCreateDirect handles POST /events/:eventId/conversations/direct.
func (h *Handler) GetOrCreateDirect(c *gin.Context) {
	eventID, ok := pathUUID(c, "eventId")
	if !ok {
		return
	}
	var req DirectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	conv, err := h.svc.GetOrCreateDirect(c.Request.Context(), middleware.Principal(c), eventID, req.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, conv)
}

// ListMessages handles GET /conversations/:conversationId/messages.
// Query params: limit, before (RFC3339Nano cursor).
func (h *Handler) ListMessages(c *gin.Context) {
	convID, ok := pathUUID(c, "conversationId")
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.BadRequest(c, "invalid limit")
			return
		}
		limit = n
	}
	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			response.BadRequest(c, "invalid before cursor")
			return
		}
		before = &t
	}
	page, err := h.svc.ListMessages(c.Request.Context(), middleware.Principal(c), convID, limit, before)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, page)
}

// SendMessage handles POST /conversations/:conversationId/messages.
func (h *Handler) SendMessage(c *gin.Context) {
	convID, ok := pathUUID(c, "conversationId")
	if !ok {
		return
	}
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	msg, err := h.svc.SendMessage(c.Request.Context(), middleware.Principal(c), SendMessageInput{
		ConversationID: convID,
		Body:           req.Body,
		ParentID:       req.ParentID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, msg)
}

// MarkRead handles POST /conversations/:conversationId/read.
func (h *Handler) MarkRead(c *gin.Context) {
	convID, ok := pathUUID(c, "conversationId")
	if !ok {
		return
	}
	at, err := h.svc.MarkRead(c.Request.Context(), middleware.Principal(c), convID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"read_at": at})
}

// AddParticipants handles POST /conversations/:conversationId/participants.
func (h *Handler) AddParticipants(c *gin.Context) {
	convID, ok := pathUUID(c, "conversationId")
	if !ok {
		return
	}
	var req AddParticipantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	res, err := h.svc.AddParticipants(c.Request.Context(), middleware.Principal(c), convID, req.UserIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// RemoveParticipant handles DELETE /conversations/:conversationId/participants/:userId.
func (h *Handler) RemoveParticipant(c *gin.Context) {
	convID, ok := pathUUID(c, "conversationId")
	if !ok {
		return
	}
	userID, ok := pathUUID(c, "userId")
	if !ok {
		return
	}
	res, err := h.svc.RemoveParticipant(c.Request.Context(), middleware.Principal(c), convID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// UpdateParticipantRole handles PATCH /conversations/:conversationId/participants/:userId.
func (h *Handler) UpdateParticipantRole(c *gin.Context) {
	convID, ok := pathUUID(c, "conversationId")
	if !ok {
		return
	}
	userID, ok := pathUUID(c, "userId")
	if !ok {
		return
	}
	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.svc.UpdateParticipantRole(c.Request.Context(), middleware.Principal(c), convID, userID, req.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ToggleReaction handles POST /messages/:messageId/reactions.
func (h *Handler) ToggleReaction(c *gin.Context) {
	msgID, ok := pathUUID(c, "messageId")
	if !ok {
		return
	}
	var req ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	res, err := h.svc.ToggleReaction(c.Request.Context(), middleware.Principal(c), msgID, req.Emoji)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// MessageReaders handles GET /messages/:messageId/readers.
func (h *Handler) MessageReaders(c *gin.Context) {
	msgID, ok := pathUUID(c, "messageId")
	if !ok {
		return
	}
	readers, err := h.svc.MessageReaders(c.Request.Context(), middleware.Principal(c), msgID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, readers)
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
