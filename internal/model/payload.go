package model

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxContentBytes = 100000 // ~100KB

// JoinRoomPayload is the client payload for the joinRoom event.
type JoinRoomPayload struct {
	MatchExperienceID        string `json:"matchExperienceId"`
	MatchExperienceCreatorID string `json:"matchExperienceCreatorId"`
	VisitorID                string `json:"visitorId"`
	LoggedInUserID           string `json:"loggedInUserId"`
}

// Validate rejects payloads with missing or malformed identifiers.
func (p *JoinRoomPayload) Validate() error {
	if err := validateID("matchExperienceId", p.MatchExperienceID); err != nil {
		return err
	}
	if err := validateID("matchExperienceCreatorId", p.MatchExperienceCreatorID); err != nil {
		return err
	}
	if err := validateID("visitorId", p.VisitorID); err != nil {
		return err
	}
	return validateID("loggedInUserId", p.LoggedInUserID)
}

// SendMessagePayload is the client payload for the sendMessage event.
// ReceiverID names the other party of the conversation; the sender may be
// either the visitor or the creator of the match experience.
type SendMessagePayload struct {
	MatchExperienceID string `json:"matchExperienceId"`
	SenderID          string `json:"senderId"`
	ReceiverID        string `json:"receiverId"`
	Content           string `json:"content"`
}

// Validate rejects payloads with missing or malformed identifiers or
// empty/oversized content.
func (p *SendMessagePayload) Validate() error {
	if err := validateID("matchExperienceId", p.MatchExperienceID); err != nil {
		return err
	}
	if err := validateID("senderId", p.SenderID); err != nil {
		return err
	}
	if err := validateID("receiverId", p.ReceiverID); err != nil {
		return err
	}
	return ValidateContent(p.Content)
}

// ValidateContent validates message content.
func ValidateContent(content string) error {
	if len(content) == 0 {
		return errors.New("content cannot be empty")
	}
	if len(content) > maxContentBytes {
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateID validates an opaque store-assigned identifier (ObjectID hex).
func ValidateID(id string) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}
	if !primitive.IsValidObjectID(id) {
		return errors.New("invalid id format")
	}
	return nil
}

func validateID(field, id string) error {
	if err := ValidateID(id); err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	return nil
}
