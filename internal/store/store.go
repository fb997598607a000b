// Package store provides persistence for chat documents.
package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/LiorVainer/web-final-project-server/internal/model"
)

var (
	// ErrNotFound is returned when no document matches the query.
	ErrNotFound = errors.New("not found")

	// ErrChatExists is returned by Create when a chat for the same
	// (matchExperienceId, creatorId, visitorId) triple already exists.
	// Callers should treat it as "retry the find".
	ErrChatExists = errors.New("chat already exists")
)

// ChatStore persists chat documents and their embedded message lists.
type ChatStore interface {
	// FindBetween returns the chat for a match experience between two
	// parties. It is symmetric: partyA and partyB may be passed in either
	// order regardless of which one is the creator.
	FindBetween(ctx context.Context, matchExperienceID, partyA, partyB string) (*model.Chat, error)

	// Create inserts an empty chat. The creator/visitor roles are fixed at
	// creation time and the triple is unique; a concurrent duplicate insert
	// yields ErrChatExists.
	Create(ctx context.Context, matchExperienceID, creatorID, visitorID string) (*model.Chat, error)

	// AppendMessage appends a message to the chat's message list and bumps
	// updatedAt.
	AppendMessage(ctx context.Context, chatID primitive.ObjectID, msg model.ChatMessage) error

	// ListByMatchExperience returns every chat attached to a match
	// experience, most recently updated first.
	ListByMatchExperience(ctx context.Context, matchExperienceID string) ([]model.Chat, error)
}

// MatchExperienceStore resolves the owning party of a match experience.
type MatchExperienceStore interface {
	// GetCreatorID returns the ID of the party who created the match
	// experience, or ErrNotFound.
	GetCreatorID(ctx context.Context, matchExperienceID string) (string, error)
}
