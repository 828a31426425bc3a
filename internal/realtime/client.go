package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/eventops/backend/internal/auth"
	"github.com/eventops/backend/internal/chat"
	"github.com/eventops/backend/internal/rbac"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// WSMessage is the websocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client represents a single websocket connection scoped to one event.
type Client struct {
	ID        string
	EventID   uuid.UUID
	UserID    uuid.UUID
	Principal rbac.Principal
	JoinedAt  time.Time

	hub    *Hub
	chat   *chat.Service
	conn   *websocket.Conn
	send   chan WSMessage
	rooms  map[string]struct{} // guarded by hub.mu
	logger *zap.Logger
}

// ServeWs handles the websocket upgrade and runs the client loop. The token
// and event travel as query params because browsers cannot set headers on
// websocket dials.
func ServeWs(hub *Hub, chatSvc *chat.Service, jwtService *auth.JWTService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventIDStr := c.Query("event_id")
		token := c.Query("token")
		if eventIDStr == "" || token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "event_id and token required"})
			return
		}
		eventID, err := uuid.Parse(eventIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event_id"})
			return
		}
		claims, err := jwtService.ValidateAccess(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		principal := rbac.Principal{
			UserID:          claims.UserID,
			TenantID:        claims.TenantID,
			IsSuperAdmin:    claims.IsSuperAdmin,
			IsTenantManager: claims.IsTenantManager,
		}
		if err := chatSvc.EnsureEventMember(c.Request.Context(), principal, eventID); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a member of this event"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:        uuid.New().String(),
			EventID:   eventID,
			UserID:    principal.UserID,
			Principal: principal,
			JoinedAt:  time.Now(),
			hub:       hub,
			chat:      chatSvc,
			conn:      conn,
			send:      make(chan WSMessage, 256),
			rooms:     make(map[string]struct{}),
			logger:    logger,
		}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		switch msg.Event {
		case "conversation.join":
			c.handleJoin(msg.Data)
		case "conversation.leave":
			c.handleLeave(msg.Data)
		case "message.send":
			c.handleSend(msg.Data)
		case "message.react":
			c.handleReact(msg.Data)
		case "conversation.read":
			c.handleRead(msg.Data)
		case "attachment.uploaded":
			c.handleAttachmentUploaded(msg.Data)
		default:
			// ignore
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendToSelf queues a message to this connection only.
func (c *Client) sendToSelf(event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	select {
	case c.send <- WSMessage{Event: event, Data: data}:
	default:
	}
}

type conversationRef struct {
	ConversationID uuid.UUID `json:"conversation_id"`
}

func (c *Client) handleJoin(data json.RawMessage) {
	var ref conversationRef
	if err := json.Unmarshal(data, &ref); err != nil || ref.ConversationID == uuid.Nil {
		return
	}
	ctx := c.ctx()
	ok, err := c.chat.CanObserve(ctx, c.Principal, ref.ConversationID)
	if err != nil {
		c.logger.Warn("join check failed", zap.Error(err))
		return
	}
	if !ok {
		// Denial goes to the requester only; the room never learns about it.
		c.sendToSelf("conversation.join-denied", gin.H{"conversation_id": ref.ConversationID})
		return
	}
	c.hub.JoinRoom(c, ConversationRoom(ref.ConversationID))
}

func (c *Client) handleLeave(data json.RawMessage) {
	var ref conversationRef
	if err := json.Unmarshal(data, &ref); err != nil || ref.ConversationID == uuid.Nil {
		return
	}
	c.hub.LeaveRoom(c, ConversationRoom(ref.ConversationID))
}

func (c *Client) handleSend(data json.RawMessage) {
	var payload struct {
		ConversationID uuid.UUID  `json:"conversation_id"`
		Body           string     `json:"body"`
		ParentID       *uuid.UUID `json:"parent_id"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == uuid.Nil {
		return
	}
	view, err := c.chat.SendMessage(c.ctx(), c.Principal, chat.SendMessageInput{
		ConversationID: payload.ConversationID,
		Body:           payload.Body,
		ParentID:       payload.ParentID,
	})
	if err != nil {
		c.sendToSelf("error", gin.H{"event": "message.send", "error": err.Error()})
		return
	}
	c.hub.BroadcastPublish(ConversationRoom(payload.ConversationID), "message.new", view)
}

func (c *Client) handleReact(data json.RawMessage) {
	var payload struct {
		MessageID uuid.UUID `json:"message_id"`
		Emoji     string    `json:"emoji"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.MessageID == uuid.Nil {
		return
	}
	res, err := c.chat.ToggleReaction(c.ctx(), c.Principal, payload.MessageID, payload.Emoji)
	if err != nil {
		c.sendToSelf("error", gin.H{"event": "message.react", "error": err.Error()})
		return
	}
	c.hub.BroadcastPublish(ConversationRoom(res.ConversationID), "message.reaction", gin.H{
		"message_id": payload.MessageID,
		"user_id":    c.UserID,
		"emoji":      payload.Emoji,
		"action":     res.Action,
	})
}

func (c *Client) handleRead(data json.RawMessage) {
	var ref conversationRef
	if err := json.Unmarshal(data, &ref); err != nil || ref.ConversationID == uuid.Nil {
		return
	}
	at, err := c.chat.MarkRead(c.ctx(), c.Principal, ref.ConversationID)
	if err != nil {
		c.sendToSelf("error", gin.H{"event": "conversation.read", "error": err.Error()})
		return
	}
	c.hub.BroadcastPublish(ConversationRoom(ref.ConversationID), "conversation.read", gin.H{
		"conversation_id": ref.ConversationID,
		"user_id":         c.UserID,
		"read_at":         at,
	})
}

// handleAttachmentUploaded relays an upload completion into the conversation
// room so other clients refresh the message. The upload itself happened over
// HTTP; the broadcast carries the freshly loaded attachment list, never the
// client-supplied IDs, and the service rejects a message from another
// conversation.
func (c *Client) handleAttachmentUploaded(data json.RawMessage) {
	var payload struct {
		ConversationID uuid.UUID `json:"conversation_id"`
		MessageID      uuid.UUID `json:"message_id"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == uuid.Nil || payload.MessageID == uuid.Nil {
		return
	}
	links, err := c.chat.MessageAttachments(c.ctx(), c.Principal, payload.ConversationID, payload.MessageID)
	if err != nil {
		c.sendToSelf("error", gin.H{"event": "attachment.uploaded", "error": err.Error()})
		return
	}
	c.hub.BroadcastPublish(ConversationRoom(payload.ConversationID), "message.attachment", gin.H{
		"conversation_id": payload.ConversationID,
		"message_id":      payload.MessageID,
		"attachments":     links,
	})
}

func (c *Client) ctx() context.Context {
	return context.Background()
}
