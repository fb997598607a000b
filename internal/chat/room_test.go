package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomName(t *testing.T) {
	parties := RoomParties{CreatorID: "bbbbbbbbbbbbbbbbbbbbbbbb", VisitorID: "cccccccccccccccccccccccc"}

	name := RoomName("aaaaaaaaaaaaaaaaaaaaaaaa", parties)
	assert.Equal(t, "match-exp-aaaaaaaaaaaaaaaaaaaaaaaa-bbbbbbbbbbbbbbbbbbbbbbbb-cccccccccccccccccccccccc", name)

	// Deterministic for identical inputs.
	assert.Equal(t, name, RoomName("aaaaaaaaaaaaaaaaaaaaaaaa", parties))
}

func TestRoomNameDiffersWhenAnyComponentDiffers(t *testing.T) {
	base := RoomName("a1", RoomParties{CreatorID: "b1", VisitorID: "c1"})

	assert.NotEqual(t, base, RoomName("a2", RoomParties{CreatorID: "b1", VisitorID: "c1"}))
	assert.NotEqual(t, base, RoomName("a1", RoomParties{CreatorID: "b2", VisitorID: "c1"}))
	assert.NotEqual(t, base, RoomName("a1", RoomParties{CreatorID: "b1", VisitorID: "c2"}))

	// Role order is part of the identity: transposed roles name a different
	// room, which is why callers must always pass canonical roles.
	assert.NotEqual(t, base, RoomName("a1", RoomParties{CreatorID: "c1", VisitorID: "b1"}))
}
