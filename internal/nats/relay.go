package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/LiorVainer/web-final-project-server/internal/model"
	"github.com/LiorVainer/web-final-project-server/pkg/logger"
)

// SubjectPrefix is the prefix for all chat relay subjects.
const SubjectPrefix = "chat"

// Relay publishes chat events for the rest of the platform (notification and
// analytics consumers). Publishing is fire-and-forget: a failed publish is
// logged and the event is lost, never retried, and never blocks the chat
// router. Websocket fan-out does not go through the relay.
type Relay struct {
	client *Client
	logger *logger.Logger
}

// NewRelay creates a relay on an established NATS connection.
func NewRelay(client *Client, log *logger.Logger) *Relay {
	return &Relay{client: client, logger: log}
}

// MessageSubject returns the subject for stored messages of a match
// experience.
func MessageSubject(matchExperienceID string) string {
	return fmt.Sprintf("%s.%s.message", SubjectPrefix, matchExperienceID)
}

// PresenceSubject returns the subject for a party's presence transitions.
func PresenceSubject(userID string) string {
	return fmt.Sprintf("%s.presence.%s", SubjectPrefix, userID)
}

// storedMessageEvent is the relay payload for a persisted chat message.
type storedMessageEvent struct {
	ChatID                   string            `json:"chatId"`
	MatchExperienceID        string            `json:"matchExperienceId"`
	MatchExperienceCreatorID string            `json:"matchExperienceCreatorId"`
	VisitorID                string            `json:"visitorId"`
	Message                  model.ChatMessage `json:"message"`
}

// presenceEvent is the relay payload for a presence transition.
type presenceEvent struct {
	UserID    string    `json:"userId"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageStored publishes a persisted chat message.
func (r *Relay) MessageStored(ctx context.Context, chat *model.Chat, msg model.ChatMessage) {
	r.publish(MessageSubject(chat.MatchExperienceID), storedMessageEvent{
		ChatID:                   chat.ID.Hex(),
		MatchExperienceID:        chat.MatchExperienceID,
		MatchExperienceCreatorID: chat.MatchExperienceCreatorID,
		VisitorID:                chat.VisitorID,
		Message:                  msg,
	})
}

// PresenceChanged publishes a party going online or offline.
func (r *Relay) PresenceChanged(ctx context.Context, userID, status string) {
	r.publish(PresenceSubject(userID), presenceEvent{
		UserID:    userID,
		Status:    status,
		Timestamp: time.Now(),
	})
}

func (r *Relay) publish(subject string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		r.logger.Error("failed to marshal relay event",
			zap.Error(err),
			zap.String("subject", subject),
		)
		return
	}
	if err := r.client.Conn().Publish(subject, data); err != nil {
		r.logger.Warn("failed to publish relay event",
			zap.Error(err),
			zap.String("subject", subject),
		)
	}
}
