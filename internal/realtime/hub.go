// Package realtime is the websocket gateway for chat. Clients authenticate
// once per connection, land in their event and user rooms, and join
// conversation rooms explicitly. Redis pub/sub fans events out across
// instances.
package realtime

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// EventRoom names the room every connection of an event shares.
func EventRoom(eventID uuid.UUID) string { return "event:" + eventID.String() }

// UserRoom names the room shared by all connections of one user.
func UserRoom(userID uuid.UUID) string { return "user:" + userID.String() }

// ConversationRoom names the room of one conversation.
func ConversationRoom(conversationID uuid.UUID) string { return "conv:" + conversationID.String() }

// PresenceTracker observes connect and disconnect per event. The notification
// layer uses it to suppress emails to users online in the relevant event.
type PresenceTracker interface {
	Connected(eventID, userID uuid.UUID)
	Disconnected(eventID, userID uuid.UUID)
	IsOnline(eventID, userID uuid.UUID) bool
}

// RedisPublisher publishes room events for cross-instance broadcast.
type RedisPublisher interface {
	PublishRoomEvent(room, event string, payload []byte) error
}

// RedisSubscriber subscribes to a room channel and invokes handler for
// incoming events.
type RedisSubscriber interface {
	SubscribeRoom(room string, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains room -> set of connections and broadcasts messages. A client
// sits in several rooms at once: its event room, its user room, and any
// conversation rooms it joined.
type Hub struct {
	rooms    map[string]map[string]*Client
	subs     map[string]func() // cancel Redis subscription per room
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
	presence PresenceTracker
}

// NewHub creates a websocket hub.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	return &Hub{
		rooms:    make(map[string]map[string]*Client),
		subs:     make(map[string]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// SetPresenceTracker installs the presence hook. Call before serving.
func (h *Hub) SetPresenceTracker(p PresenceTracker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.presence = p
}

// Register adds a client to its event and user rooms and marks it online.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.joinLocked(c, EventRoom(c.EventID))
	h.joinLocked(c, UserRoom(c.UserID))
	presence := h.presence
	h.mu.Unlock()
	if presence != nil {
		presence.Connected(c.EventID, c.UserID)
	}
	h.logger.Debug("client connected",
		zap.String("client_id", c.ID),
		zap.String("event_id", c.EventID.String()),
		zap.String("user_id", c.UserID.String()))
}

// Unregister removes a client from every room it is in and marks it offline.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	presence := h.presence
	h.mu.Unlock()
	if presence != nil {
		presence.Disconnected(c.EventID, c.UserID)
	}
	h.logger.Debug("client disconnected", zap.String("client_id", c.ID))
}

// JoinRoom adds a client to a room. Starts the Redis subscription when the
// room gains its first local member.
func (h *Hub) JoinRoom(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.joinLocked(c, room)
}

// LeaveRoom removes a client from a room. Cancels the Redis subscription when
// the last local member leaves.
func (h *Hub) LeaveRoom(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

func (h *Hub) joinLocked(c *Client, room string) {
	if _, ok := c.rooms[room]; ok {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]*Client)
		if h.redisSub != nil {
			cancel, err := h.redisSub.SubscribeRoom(room, func(event string, payload []byte) {
				h.handleRemoteEvent(room, event, payload)
			})
			if err == nil {
				h.subs[room] = cancel
			} else {
				h.logger.Warn("room subscribe failed", zap.String("room", room), zap.Error(err))
			}
		}
	}
	h.rooms[room][c.ID] = c
	c.rooms[room] = struct{}{}
}

func (h *Hub) leaveLocked(c *Client, room string) {
	delete(c.rooms, room)
	m, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(m, c.ID)
	if len(m) == 0 {
		delete(h.rooms, room)
		if cancel, ok := h.subs[room]; ok {
			cancel()
			delete(h.subs, room)
		}
	}
}

// Broadcast sends a message to all local clients in a room.
func (h *Hub) Broadcast(room, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	clients := h.rooms[room]
	targets := make([]*Client, 0, len(clients))
	for _, c := range clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// BroadcastPublish sends to local clients and publishes to Redis for other
// instances.
func (h *Hub) BroadcastPublish(room, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.Broadcast(room, event, payload)
	if h.redis != nil {
		_ = h.redis.PublishRoomEvent(room, event, data)
	}
}

// PublishOnly publishes to Redis only. The subscriber callback performs the
// single local broadcast, avoiding duplicate delivery when this instance is
// subscribed to the room too. Falls back to a local broadcast without Redis.
func (h *Hub) PublishOnly(room, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if h.redis != nil {
		_ = h.redis.PublishRoomEvent(room, event, data)
		return
	}
	h.Broadcast(room, event, payload)
}

// RoomCount returns the number of local clients in a room.
func (h *Hub) RoomCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// IsViewing reports whether any connection of the user has the conversation
// room joined. Notification fan-out uses it to skip users already looking at
// the conversation.
func (h *Hub) IsViewing(conversationID, userID uuid.UUID) bool {
	room := ConversationRoom(conversationID)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[room] {
		if c.UserID == userID {
			return true
		}
	}
	return false
}

// handleRemoteEvent is the Redis subscription callback. Most events are plain
// room broadcasts; a kick on a user room additionally evicts that user's local
// connections from the conversation room, so the eviction takes effect on
// every instance the user is connected to.
func (h *Hub) handleRemoteEvent(room, event string, payload []byte) {
	if event == "conversation.kicked" {
		if userID, ok := userRoomID(room); ok {
			var ref struct {
				ConversationID uuid.UUID `json:"conversation_id"`
			}
			if json.Unmarshal(payload, &ref) == nil && ref.ConversationID != uuid.Nil {
				h.evictFromRoom(ConversationRoom(ref.ConversationID), userID)
			}
		}
	}
	h.Broadcast(room, event, json.RawMessage(payload))
}

// userRoomID parses the user ID out of a user room name.
func userRoomID(room string) (uuid.UUID, bool) {
	raw, ok := strings.CutPrefix(room, "user:")
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	return id, err == nil
}

func (h *Hub) evictFromRoom(room string, userID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.rooms[room] {
		if c.UserID == userID {
			h.leaveLocked(c, room)
		}
	}
}

// NotifyKicked removes the user's connections from the conversation room and
// tells them why. A kicked client must not keep receiving room traffic just
// because its socket never sent a leave. The kick travels over the user room
// channel so instances holding the user's other sockets evict them too.
func (h *Hub) NotifyKicked(conversationID, userID uuid.UUID) {
	payload, _ := json.Marshal(map[string]string{"conversation_id": conversationID.String()})
	if h.redis != nil {
		_ = h.redis.PublishRoomEvent(UserRoom(userID), "conversation.kicked", payload)
		return
	}
	h.evictFromRoom(ConversationRoom(conversationID), userID)
	h.Broadcast(UserRoom(userID), "conversation.kicked", json.RawMessage(payload))
}

// SendToUser sends a message to every connection of the user, on any instance
// subscribed to their user room.
func (h *Hub) SendToUser(userID uuid.UUID, event string, payload interface{}) {
	h.PublishOnly(UserRoom(userID), event, payload)
}
