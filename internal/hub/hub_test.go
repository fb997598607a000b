package hub

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSub struct {
	id     string
	mu     sync.Mutex
	events []string
}

func (s *recordingSub) ID() string { return s.id }

func (s *recordingSub) Send(event string, data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestPublishIsScopedToRoom(t *testing.T) {
	h := New()
	a := &recordingSub{id: "a"}
	b := &recordingSub{id: "b"}
	h.Join("room-1", a)
	h.Join("room-2", b)

	delivered := h.Publish("room-1", "ping", nil)

	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, a.count())
	assert.Zero(t, b.count())
}

func TestPublishToEmptyRoom(t *testing.T) {
	h := New()
	assert.Zero(t, h.Publish("nowhere", "ping", nil))
}

func TestJoinTwiceDeliversOnce(t *testing.T) {
	h := New()
	a := &recordingSub{id: "a"}
	h.Join("room-1", a)
	h.Join("room-1", a)

	assert.Equal(t, 1, h.Publish("room-1", "ping", nil))
	assert.Equal(t, 1, a.count())
}

func TestBroadcastReachesEverySubscriberOnce(t *testing.T) {
	h := New()
	a := &recordingSub{id: "a"}
	b := &recordingSub{id: "b"}
	h.Join("room-1", a)
	h.Join("room-2", a) // a is in two rooms
	h.Join("room-2", b)

	delivered := h.Broadcast("ping", nil)

	require.Equal(t, 2, delivered)
	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, b.count())
}

func TestBroadcastReachesRegisteredSubscriberWithoutRooms(t *testing.T) {
	h := New()
	a := &recordingSub{id: "a"}
	h.Register(a)

	assert.Equal(t, 1, h.Broadcast("ping", nil))
	assert.Equal(t, 1, a.count())

	h.LeaveAll("a")
	assert.Zero(t, h.Broadcast("ping", nil))
}

func TestLeaveAllRemovesEveryMembership(t *testing.T) {
	h := New()
	a := &recordingSub{id: "a"}
	b := &recordingSub{id: "b"}
	h.Join("room-1", a)
	h.Join("room-2", a)
	h.Join("room-1", b)

	h.LeaveAll("a")

	assert.Zero(t, h.Publish("room-2", "ping", nil))
	assert.Equal(t, 1, h.Publish("room-1", "ping", nil))
	assert.Zero(t, a.count())
	assert.Equal(t, 1, h.Broadcast("ping", nil))
}
