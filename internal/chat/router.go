package chat

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/LiorVainer/web-final-project-server/internal/hub"
	"github.com/LiorVainer/web-final-project-server/internal/model"
	"github.com/LiorVainer/web-final-project-server/internal/store"
	"github.com/LiorVainer/web-final-project-server/pkg/logger"
	"github.com/LiorVainer/web-final-project-server/pkg/metrics"
)

// Session is one client connection as seen by the router: an identifier plus
// a best-effort outbound send. It aliases the hub's subscriber contract so a
// session can be handed to the broker directly.
type Session = hub.Subscriber

// Broker fans events out to room subscribers. The in-process hub implements
// it; tests substitute their own.
type Broker interface {
	Register(sub Session)
	Join(room string, sub Session)
	LeaveAll(subscriberID string)
	Publish(room, event string, data any) int
	Broadcast(event string, data any) int
}

// principal is optionally implemented by sessions that carry an
// authenticated party identity (the JWT subject on websocket connections).
type principal interface {
	UserID() string
}

// sessionUserID returns the authenticated party on the session, when the
// transport bound one.
func sessionUserID(sess Session) (string, bool) {
	if p, ok := sess.(principal); ok && p.UserID() != "" {
		return p.UserID(), true
	}
	return "", false
}

// EventRelay forwards chat events to the rest of the platform, best-effort.
// A nil relay disables forwarding.
type EventRelay interface {
	MessageStored(ctx context.Context, chat *model.Chat, msg model.ChatMessage)
	PresenceChanged(ctx context.Context, userID, status string)
}

// Router dispatches the chat events of every client connection: joinRoom,
// sendMessage and disconnect. Invalid or unauthorized events are logged and
// dropped without feedback to the client; a failing event never takes down
// the connection or the process.
type Router struct {
	chats       store.ChatStore
	experiences store.MatchExperienceStore
	broker      Broker
	relay       EventRelay
	presence    *Presence
	logger      *logger.Logger

	now func() time.Time
}

// NewRouter creates a chat router. relay may be nil.
func NewRouter(
	chats store.ChatStore,
	experiences store.MatchExperienceStore,
	broker Broker,
	relay EventRelay,
	log *logger.Logger,
) *Router {
	if log == nil {
		log = logger.NewNop()
	}
	return &Router{
		chats:       chats,
		experiences: experiences,
		broker:      broker,
		relay:       relay,
		presence:    NewPresence(),
		logger:      log,
		now:         time.Now,
	}
}

// HandleConnect registers a newly established connection with the broker so
// it receives global notifications before joining any room.
func (r *Router) HandleConnect(sess Session) {
	r.broker.Register(sess)
	r.logger.Debug("user connected", zap.String("connection_id", sess.ID()))
}

// HandleJoinRoom subscribes the connection to the chat room named by the
// payload, records the requesting party as online and notifies the room.
func (r *Router) HandleJoinRoom(ctx context.Context, sess Session, payload model.JoinRoomPayload) {
	if err := payload.Validate(); err != nil {
		r.logger.Warn("invalid joinRoom payload",
			zap.Error(err),
			zap.String("connection_id", sess.ID()),
			zap.String("match_experience_id", payload.MatchExperienceID),
			zap.String("visitor_id", payload.VisitorID),
			zap.String("creator_id", payload.MatchExperienceCreatorID),
		)
		metrics.RecordDroppedEvent(model.EventJoinRoom, "invalid_payload")
		return
	}

	// The claimed identity must match the authenticated party on the
	// connection, otherwise presence could be registered under any ID.
	if auth, ok := sessionUserID(sess); ok && auth != payload.LoggedInUserID {
		r.logger.Warn("joinRoom identity does not match authenticated user",
			zap.String("connection_id", sess.ID()),
			zap.String("authenticated_user_id", auth),
			zap.String("logged_in_user_id", payload.LoggedInUserID),
		)
		metrics.RecordDroppedEvent(model.EventJoinRoom, "identity_mismatch")
		return
	}

	room := RoomName(payload.MatchExperienceID, RoomParties{
		CreatorID: payload.MatchExperienceCreatorID,
		VisitorID: payload.VisitorID,
	})

	r.broker.Join(room, sess)
	r.presence.SetOnline(payload.LoggedInUserID, sess.ID())
	metrics.RoomJoinsTotal.Inc()

	r.logger.Info("user joined room",
		zap.String("room", room),
		zap.String("user_id", payload.LoggedInUserID),
		zap.String("connection_id", sess.ID()),
	)

	r.broker.Publish(room, model.EventUserConnected, model.UserStatusEvent{
		UserID: payload.LoggedInUserID,
		Status: model.StatusOnline,
	})
	if r.relay != nil {
		r.relay.PresenceChanged(ctx, payload.LoggedInUserID, model.StatusOnline)
	}
}

// HandleSendMessage resolves or lazily creates the conversation, appends the
// message and broadcasts it to the room. A prior joinRoom on the same
// connection is not required: the room is re-derived from the persisted
// chat's canonical creator/visitor roles, so whichever party sends, both
// converge on the same room name.
func (r *Router) HandleSendMessage(ctx context.Context, sess Session, payload model.SendMessagePayload) {
	if err := payload.Validate(); err != nil {
		r.logger.Warn("invalid sendMessage payload",
			zap.Error(err),
			zap.String("connection_id", sess.ID()),
			zap.String("match_experience_id", payload.MatchExperienceID),
			zap.String("sender_id", payload.SenderID),
			zap.String("receiver_id", payload.ReceiverID),
		)
		metrics.RecordDroppedEvent(model.EventSendMessage, "invalid_payload")
		return
	}

	if auth, ok := sessionUserID(sess); ok && auth != payload.SenderID {
		r.logger.Warn("sendMessage sender does not match authenticated user",
			zap.String("connection_id", sess.ID()),
			zap.String("authenticated_user_id", auth),
			zap.String("sender_id", payload.SenderID),
		)
		metrics.RecordDroppedEvent(model.EventSendMessage, "identity_mismatch")
		return
	}

	chat, err := r.resolveChat(ctx, payload)
	if err != nil {
		// resolveChat already logged and classified the drop.
		return
	}

	msg := model.ChatMessage{
		SenderID:  payload.SenderID,
		Content:   payload.Content,
		CreatedAt: r.now(),
	}

	if err := r.chats.AppendMessage(ctx, chat.ID, msg); err != nil {
		r.logger.Error("failed to store message",
			zap.Error(err),
			zap.String("match_experience_id", payload.MatchExperienceID),
			zap.String("sender_id", payload.SenderID),
		)
		metrics.RecordDroppedEvent(model.EventSendMessage, "store_error")
		return
	}

	room := RoomName(chat.MatchExperienceID, RoomParties{
		CreatorID: chat.MatchExperienceCreatorID,
		VisitorID: chat.VisitorID,
	})

	delivered := r.broker.Publish(room, model.EventReceiveMessage, msg)
	metrics.ChatMessagesTotal.Inc()

	r.logger.Info("message sent",
		zap.String("room", room),
		zap.String("sender_id", payload.SenderID),
		zap.Int("delivered", delivered),
	)

	if r.relay != nil {
		r.relay.MessageStored(ctx, chat, msg)
	}
}

// resolveChat finds the conversation between the sender and receiver, or
// lazily creates it on a first message. The find-then-create sequence races
// with a concurrent first message between the same parties; the store's
// uniqueness constraint makes the loser's insert fail with ErrChatExists,
// which is resolved by retrying the find.
func (r *Router) resolveChat(ctx context.Context, payload model.SendMessagePayload) (*model.Chat, error) {
	chat, err := r.chats.FindBetween(ctx, payload.MatchExperienceID, payload.SenderID, payload.ReceiverID)
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		r.logger.Error("failed to look up chat",
			zap.Error(err),
			zap.String("match_experience_id", payload.MatchExperienceID),
			zap.String("sender_id", payload.SenderID),
		)
		metrics.RecordDroppedEvent(model.EventSendMessage, "store_error")
		return nil, err
	}

	creatorID, err := r.experiences.GetCreatorID(ctx, payload.MatchExperienceID)
	if err != nil {
		r.logger.Error("failed to resolve match experience creator",
			zap.Error(err),
			zap.String("match_experience_id", payload.MatchExperienceID),
		)
		metrics.RecordDroppedEvent(model.EventSendMessage, "unknown_match_experience")
		return nil, err
	}

	if creatorID == payload.SenderID {
		r.logger.Warn("creator cannot send the first message",
			zap.String("match_experience_id", payload.MatchExperienceID),
			zap.String("sender_id", payload.SenderID),
		)
		metrics.RecordDroppedEvent(model.EventSendMessage, "creator_initiated")
		return nil, errors.New("creator cannot initiate a chat")
	}

	chat, err = r.chats.Create(ctx, payload.MatchExperienceID, creatorID, payload.SenderID)
	if errors.Is(err, store.ErrChatExists) {
		// Lost the race to a concurrent first message; the chat is there now.
		chat, err = r.chats.FindBetween(ctx, payload.MatchExperienceID, payload.SenderID, payload.ReceiverID)
		if err != nil {
			r.logger.Error("failed to look up chat after losing create race",
				zap.Error(err),
				zap.String("match_experience_id", payload.MatchExperienceID),
				zap.String("sender_id", payload.SenderID),
			)
			metrics.RecordDroppedEvent(model.EventSendMessage, "store_error")
			return nil, err
		}
		return chat, nil
	}
	if err != nil {
		r.logger.Error("failed to create chat",
			zap.Error(err),
			zap.String("match_experience_id", payload.MatchExperienceID),
			zap.String("sender_id", payload.SenderID),
		)
		metrics.RecordDroppedEvent(model.EventSendMessage, "store_error")
		return nil, err
	}

	metrics.ChatsCreatedTotal.Inc()
	return chat, nil
}

// HandleDisconnect removes the connection's subscriptions and presence
// entry. The offline notification goes to every connected client rather than
// per room, matching the web client's expectations.
func (r *Router) HandleDisconnect(ctx context.Context, sess Session) {
	userID, ok := r.presence.ClearByConnection(sess.ID())
	r.broker.LeaveAll(sess.ID())

	if !ok {
		r.logger.Debug("user disconnected", zap.String("connection_id", sess.ID()))
		return
	}

	r.logger.Info("user disconnected",
		zap.String("user_id", userID),
		zap.String("connection_id", sess.ID()),
	)

	r.broker.Broadcast(model.EventUserDisconnected, model.UserStatusEvent{
		UserID: userID,
		Status: model.StatusOffline,
	})
	if r.relay != nil {
		r.relay.PresenceChanged(ctx, userID, model.StatusOffline)
	}
}
