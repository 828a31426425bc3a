package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// InMemoryPresence tracks online users by connection count, keyed per event.
// A user with two tabs open in an event stays online there until both
// disconnect; being online in one event says nothing about another.
type InMemoryPresence struct {
	mu     sync.RWMutex
	counts map[uuid.UUID]map[uuid.UUID]int // eventID -> userID -> connections
}

// NewInMemoryPresence creates a presence tracker.
func NewInMemoryPresence() *InMemoryPresence {
	return &InMemoryPresence{counts: make(map[uuid.UUID]map[uuid.UUID]int)}
}

// Connected records one more connection for the user in the event.
func (p *InMemoryPresence) Connected(eventID, userID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.counts[eventID] == nil {
		p.counts[eventID] = make(map[uuid.UUID]int)
	}
	p.counts[eventID][userID]++
}

// Disconnected records one fewer connection for the user in the event.
func (p *InMemoryPresence) Disconnected(eventID, userID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	users := p.counts[eventID]
	if users == nil {
		return
	}
	if users[userID] <= 1 {
		delete(users, userID)
		if len(users) == 0 {
			delete(p.counts, eventID)
		}
		return
	}
	users[userID]--
}

// IsOnline reports whether the user has at least one live connection in the
// event.
func (p *InMemoryPresence) IsOnline(eventID, userID uuid.UUID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.counts[eventID][userID] > 0
}
