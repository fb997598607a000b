package chat

import (
	"sync"
)

// Presence tracks which party is online on which connection. At most one live
// connection exists per party: a reconnect silently replaces the previous
// mapping, and the stale connection's later disconnect no longer resolves to
// the party.
type Presence struct {
	mu     sync.Mutex
	byUser map[string]string // userID -> connectionID
	byConn map[string]string // connectionID -> userID
}

// NewPresence creates an empty presence tracker.
func NewPresence() *Presence {
	return &Presence{
		byUser: make(map[string]string),
		byConn: make(map[string]string),
	}
}

// SetOnline records userID as online on connectionID. Last join wins.
func (p *Presence) SetOnline(userID, connectionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if prev, ok := p.byUser[userID]; ok && prev != connectionID {
		delete(p.byConn, prev)
	}
	p.byUser[userID] = connectionID
	p.byConn[connectionID] = userID
}

// ClearByConnection removes the presence entry for connectionID and returns
// the party that was online on it. It returns false when the connection never
// joined or was already replaced by a newer one.
func (p *Presence) ClearByConnection(connectionID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	userID, ok := p.byConn[connectionID]
	if !ok {
		return "", false
	}
	delete(p.byConn, connectionID)
	delete(p.byUser, userID)
	return userID, true
}

// Online reports whether userID currently has a live connection.
func (p *Presence) Online(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.byUser[userID]
	return ok
}
