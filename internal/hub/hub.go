// Package hub provides an in-process publish/subscribe broker for chat rooms.
package hub

import (
	"sync"
)

// Subscriber receives events published to rooms it has joined. Implementations
// must be safe for concurrent use; Send is best-effort and may drop when the
// subscriber cannot keep up.
type Subscriber interface {
	ID() string
	Send(event string, data any) error
}

// Hub maps room names to subscriber sets. Fan-out is in-process only; a
// subscriber may join any number of rooms and is fully removed on LeaveAll.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[string]Subscriber
	subs  map[string]Subscriber
	// joined tracks which rooms each subscriber is in, for cleanup.
	joined map[string]map[string]struct{}
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{
		rooms:  make(map[string]map[string]Subscriber),
		subs:   make(map[string]Subscriber),
		joined: make(map[string]map[string]struct{}),
	}
}

// Register makes sub reachable by Broadcast before it joins any room.
func (h *Hub) Register(sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[sub.ID()] = sub
}

// Join subscribes sub to room. Joining a room twice is a no-op.
func (h *Hub) Join(room string, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]Subscriber)
	}
	h.rooms[room][sub.ID()] = sub
	h.subs[sub.ID()] = sub

	if h.joined[sub.ID()] == nil {
		h.joined[sub.ID()] = make(map[string]struct{})
	}
	h.joined[sub.ID()][room] = struct{}{}
}

// LeaveAll removes the subscriber from every room it joined.
func (h *Hub) LeaveAll(subscriberID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for room := range h.joined[subscriberID] {
		delete(h.rooms[room], subscriberID)
		if len(h.rooms[room]) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(h.joined, subscriberID)
	delete(h.subs, subscriberID)
}

// Publish sends an event to every subscriber of room and returns the number
// of subscribers the event was handed to.
func (h *Hub) Publish(room, event string, data any) int {
	h.mu.RLock()
	targets := make([]Subscriber, 0, len(h.rooms[room]))
	for _, sub := range h.rooms[room] {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		_ = sub.Send(event, data)
	}
	return len(targets)
}

// Broadcast sends an event to every connected subscriber, each at most once
// regardless of how many rooms it joined.
func (h *Hub) Broadcast(event string, data any) int {
	h.mu.RLock()
	targets := make([]Subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		_ = sub.Send(event, data)
	}
	return len(targets)
}
