package realtime

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPresenceCountsConnections(t *testing.T) {
	p := NewInMemoryPresence()
	event := uuid.New()
	user := uuid.New()

	assert.False(t, p.IsOnline(event, user))

	p.Connected(event, user)
	assert.True(t, p.IsOnline(event, user))

	// Second tab: still online after one of them closes.
	p.Connected(event, user)
	p.Disconnected(event, user)
	assert.True(t, p.IsOnline(event, user))

	p.Disconnected(event, user)
	assert.False(t, p.IsOnline(event, user))
}

func TestPresenceIsScopedPerEvent(t *testing.T) {
	p := NewInMemoryPresence()
	eventA, eventB := uuid.New(), uuid.New()
	user := uuid.New()

	// Online in A must not read as online in B, or B's emails get swallowed.
	p.Connected(eventA, user)
	assert.True(t, p.IsOnline(eventA, user))
	assert.False(t, p.IsOnline(eventB, user))

	p.Disconnected(eventA, user)
	assert.False(t, p.IsOnline(eventA, user))
}

func TestPresenceDisconnectUnknownUser(t *testing.T) {
	p := NewInMemoryPresence()
	event := uuid.New()
	user := uuid.New()

	// Must not underflow into a permanently online ghost.
	p.Disconnected(event, user)
	p.Connected(event, user)
	p.Disconnected(event, user)
	assert.False(t, p.IsOnline(event, user))
}
