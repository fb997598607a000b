// Package chat implements the real-time chat room router.
package chat

import (
	"fmt"
)

// roomPrefix namespaces chat rooms within the broker.
const roomPrefix = "match-exp"

// RoomParties names the two sides of a chat room explicitly, so callers can
// never transpose the creator and visitor roles when deriving a room name.
type RoomParties struct {
	CreatorID string
	VisitorID string
}

// RoomName derives the broadcast channel for a match experience chat. It is
// deterministic and injective over (matchExperienceID, CreatorID, VisitorID):
// identifiers are opaque hex IDs, so the "-" delimiter can never appear
// inside them and two distinct triples can never collide. Callers must pass
// the parties in canonical role order, creator first.
func RoomName(matchExperienceID string, parties RoomParties) string {
	return fmt.Sprintf("%s-%s-%s-%s", roomPrefix, matchExperienceID, parties.CreatorID, parties.VisitorID)
}
