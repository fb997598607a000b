// Package model defines data structures for the chat service.
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatMessage is a single message embedded in a chat document. CreatedAt is
// assigned by the server at append time, never taken from the client.
type ChatMessage struct {
	SenderID  string    `bson:"senderId" json:"senderId"`
	Content   string    `bson:"content" json:"content"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Chat holds the entire message history between a match experience's creator
// and one visitor. At most one chat exists per
// (matchExperienceId, matchExperienceCreatorId, visitorId) triple; the store
// enforces this with a unique index.
type Chat struct {
	ID                       primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	MatchExperienceID        string             `bson:"matchExperienceId" json:"matchExperienceId"`
	MatchExperienceCreatorID string             `bson:"matchExperienceCreatorId" json:"matchExperienceCreatorId"`
	VisitorID                string             `bson:"visitorId" json:"visitorId"`
	Messages                 []ChatMessage      `bson:"messages" json:"messages"`
	CreatedAt                time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt                time.Time          `bson:"updatedAt" json:"updatedAt"`
}
