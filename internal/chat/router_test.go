package chat

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap/zaptest"

	"github.com/LiorVainer/web-final-project-server/internal/hub"
	"github.com/LiorVainer/web-final-project-server/internal/model"
	"github.com/LiorVainer/web-final-project-server/internal/store"
	"github.com/LiorVainer/web-final-project-server/pkg/logger"
)

type sentEvent struct {
	Event string
	Data  any
}

// fakeSession records every event the router sends to it.
type fakeSession struct {
	id     string
	mu     sync.Mutex
	events []sentEvent
}

func newFakeSession(id string) *fakeSession {
	return &fakeSession{id: id}
}

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) Send(event string, data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, sentEvent{Event: event, Data: data})
	return nil
}

func (s *fakeSession) received(event string) []sentEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sentEvent
	for _, e := range s.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (s *fakeSession) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type routerFixture struct {
	router      *Router
	chats       *store.MemoryChatStore
	experiences *store.MemoryMatchExperienceStore

	matchExperienceID string
	creatorID         string
	visitorID         string
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	chats := store.NewMemoryChatStore()
	experiences := store.NewMemoryMatchExperienceStore()
	log := &logger.Logger{Logger: zaptest.NewLogger(t)}

	f := &routerFixture{
		router:            NewRouter(chats, experiences, hub.New(), nil, log),
		chats:             chats,
		experiences:       experiences,
		matchExperienceID: primitive.NewObjectID().Hex(),
		creatorID:         primitive.NewObjectID().Hex(),
		visitorID:         primitive.NewObjectID().Hex(),
	}
	experiences.SetCreator(f.matchExperienceID, f.creatorID)
	return f
}

func (f *routerFixture) joinPayload(userID string) model.JoinRoomPayload {
	return model.JoinRoomPayload{
		MatchExperienceID:        f.matchExperienceID,
		MatchExperienceCreatorID: f.creatorID,
		VisitorID:                f.visitorID,
		LoggedInUserID:           userID,
	}
}

func TestJoinRoomBroadcastsOnlineToRoom(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	visitorSess := newFakeSession("conn-visitor")
	creatorSess := newFakeSession("conn-creator")

	f.router.HandleJoinRoom(ctx, visitorSess, f.joinPayload(f.visitorID))
	f.router.HandleJoinRoom(ctx, creatorSess, f.joinPayload(f.creatorID))

	// The visitor was already in the room when the creator joined.
	online := visitorSess.received(model.EventUserConnected)
	require.Len(t, online, 2)
	assert.Equal(t, model.UserStatusEvent{UserID: f.visitorID, Status: model.StatusOnline}, online[0].Data)
	assert.Equal(t, model.UserStatusEvent{UserID: f.creatorID, Status: model.StatusOnline}, online[1].Data)

	assert.True(t, f.router.presence.Online(f.visitorID))
	assert.True(t, f.router.presence.Online(f.creatorID))
}

func TestJoinRoomInvalidPayloadIsDropped(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	inRoom := newFakeSession("conn-in-room")
	f.router.HandleJoinRoom(ctx, inRoom, f.joinPayload(f.visitorID))
	before := inRoom.count()

	payload := f.joinPayload(f.visitorID)
	payload.VisitorID = "" // missing identifier
	joining := newFakeSession("conn-joining")
	f.router.HandleJoinRoom(ctx, joining, payload)

	// No subscription, no broadcast, no presence.
	assert.Zero(t, joining.count())
	assert.Equal(t, before, inRoom.count())
}

func TestSendMessageCreatesChatOnFirstMessage(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	creatorSess := newFakeSession("conn-creator")
	f.router.HandleJoinRoom(ctx, creatorSess, f.joinPayload(f.creatorID))

	// The visitor sends without having joined the room on this connection.
	visitorSess := newFakeSession("conn-visitor")
	f.router.HandleSendMessage(ctx, visitorSess, model.SendMessagePayload{
		MatchExperienceID: f.matchExperienceID,
		SenderID:          f.visitorID,
		ReceiverID:        f.creatorID,
		Content:           "hi",
	})

	chat, err := f.chats.FindBetween(ctx, f.matchExperienceID, f.creatorID, f.visitorID)
	require.NoError(t, err)
	assert.Equal(t, f.creatorID, chat.MatchExperienceCreatorID)
	assert.Equal(t, f.visitorID, chat.VisitorID)
	require.Len(t, chat.Messages, 1)
	assert.Equal(t, f.visitorID, chat.Messages[0].SenderID)
	assert.Equal(t, "hi", chat.Messages[0].Content)
	assert.False(t, chat.Messages[0].CreatedAt.IsZero())

	got := creatorSess.received(model.EventReceiveMessage)
	require.Len(t, got, 1)
	msg, ok := got[0].Data.(model.ChatMessage)
	require.True(t, ok)
	assert.Equal(t, "hi", msg.Content)
	assert.Equal(t, f.visitorID, msg.SenderID)
}

func TestSendMessageReplyFindsChatFromEitherRole(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	visitorSess := newFakeSession("conn-visitor")
	f.router.HandleJoinRoom(ctx, visitorSess, f.joinPayload(f.visitorID))

	f.router.HandleSendMessage(ctx, visitorSess, model.SendMessagePayload{
		MatchExperienceID: f.matchExperienceID,
		SenderID:          f.visitorID,
		ReceiverID:        f.creatorID,
		Content:           "hi",
	})

	// The creator replies; the existing chat must be found via the
	// symmetric lookup, not recreated.
	creatorSess := newFakeSession("conn-creator")
	f.router.HandleSendMessage(ctx, creatorSess, model.SendMessagePayload{
		MatchExperienceID: f.matchExperienceID,
		SenderID:          f.creatorID,
		ReceiverID:        f.visitorID,
		Content:           "hello",
	})

	chats, err := f.chats.ListByMatchExperience(ctx, f.matchExperienceID)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	require.Len(t, chats[0].Messages, 2)
	assert.Equal(t, "hi", chats[0].Messages[0].Content)
	assert.Equal(t, "hello", chats[0].Messages[1].Content)
	assert.Equal(t, f.creatorID, chats[0].Messages[1].SenderID)

	// The visitor's room subscription receives both messages.
	assert.Len(t, visitorSess.received(model.EventReceiveMessage), 2)
}

func TestCreatorCannotSendFirstMessage(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	visitorSess := newFakeSession("conn-visitor")
	f.router.HandleJoinRoom(ctx, visitorSess, f.joinPayload(f.visitorID))
	before := visitorSess.count()

	creatorSess := newFakeSession("conn-creator")
	f.router.HandleSendMessage(ctx, creatorSess, model.SendMessagePayload{
		MatchExperienceID: f.matchExperienceID,
		SenderID:          f.creatorID,
		ReceiverID:        f.visitorID,
		Content:           "first!",
	})

	// No chat created, no message stored, no broadcast.
	chats, err := f.chats.ListByMatchExperience(ctx, f.matchExperienceID)
	require.NoError(t, err)
	assert.Empty(t, chats)
	assert.Equal(t, before, visitorSess.count())
}

func TestSendMessageInvalidPayloadIsDropped(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	sess := newFakeSession("conn-visitor")
	f.router.HandleSendMessage(ctx, sess, model.SendMessagePayload{
		MatchExperienceID: f.matchExperienceID,
		SenderID:          f.visitorID,
		ReceiverID:        f.creatorID,
		Content:           "",
	})

	chats, err := f.chats.ListByMatchExperience(ctx, f.matchExperienceID)
	require.NoError(t, err)
	assert.Empty(t, chats)
}

func TestSendMessageUnknownMatchExperienceIsDropped(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	unknown := primitive.NewObjectID().Hex()
	sess := newFakeSession("conn-visitor")
	f.router.HandleSendMessage(ctx, sess, model.SendMessagePayload{
		MatchExperienceID: unknown,
		SenderID:          f.visitorID,
		ReceiverID:        f.creatorID,
		Content:           "hi",
	})

	chats, err := f.chats.ListByMatchExperience(ctx, unknown)
	require.NoError(t, err)
	assert.Empty(t, chats)
}

func TestSendMessagesAppendInOrder(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	sess := newFakeSession("conn-visitor")
	for _, content := range []string{"one", "two", "three"} {
		f.router.HandleSendMessage(ctx, sess, model.SendMessagePayload{
			MatchExperienceID: f.matchExperienceID,
			SenderID:          f.visitorID,
			ReceiverID:        f.creatorID,
			Content:           content,
		})
	}

	chat, err := f.chats.FindBetween(ctx, f.matchExperienceID, f.visitorID, f.creatorID)
	require.NoError(t, err)
	require.Len(t, chat.Messages, 3)
	assert.Equal(t, "one", chat.Messages[0].Content)
	assert.Equal(t, "two", chat.Messages[1].Content)
	assert.Equal(t, "three", chat.Messages[2].Content)
}

func TestConcurrentFirstMessagesCreateOneChat(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, content := range []string{"first", "second"} {
		wg.Add(1)
		go func(content string) {
			defer wg.Done()
			sess := newFakeSession("conn-" + content)
			f.router.HandleSendMessage(ctx, sess, model.SendMessagePayload{
				MatchExperienceID: f.matchExperienceID,
				SenderID:          f.visitorID,
				ReceiverID:        f.creatorID,
				Content:           content,
			})
		}(content)
	}
	wg.Wait()

	// Exactly one chat with both messages; the loser of the creation race
	// retried the find instead of creating a duplicate.
	chats, err := f.chats.ListByMatchExperience(ctx, f.matchExperienceID)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Len(t, chats[0].Messages, 2)
}

func TestDisconnectBroadcastsOffline(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	visitorSess := newFakeSession("conn-visitor")
	creatorSess := newFakeSession("conn-creator")
	f.router.HandleJoinRoom(ctx, visitorSess, f.joinPayload(f.visitorID))
	f.router.HandleJoinRoom(ctx, creatorSess, f.joinPayload(f.creatorID))

	f.router.HandleDisconnect(ctx, visitorSess)

	offline := creatorSess.received(model.EventUserDisconnected)
	require.Len(t, offline, 1)
	assert.Equal(t, model.UserStatusEvent{UserID: f.visitorID, Status: model.StatusOffline}, offline[0].Data)
	assert.False(t, f.router.presence.Online(f.visitorID))

	// A connection that never joined resolves to no party: no broadcast.
	before := creatorSess.count()
	f.router.HandleDisconnect(ctx, newFakeSession("conn-stranger"))
	assert.Equal(t, before, creatorSess.count())
}

// authedSession is a fakeSession bound to an authenticated party, like a
// websocket connection carrying a JWT subject.
type authedSession struct {
	*fakeSession
	userID string
}

func newAuthedSession(id, userID string) *authedSession {
	return &authedSession{fakeSession: newFakeSession(id), userID: userID}
}

func (s *authedSession) UserID() string { return s.userID }

func TestJoinRoomRejectsMismatchedIdentity(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	inRoom := newFakeSession("conn-in-room")
	f.router.HandleJoinRoom(ctx, inRoom, f.joinPayload(f.creatorID))
	before := inRoom.count()

	// Authenticated as the visitor but claiming the creator's identity.
	sess := newAuthedSession("conn-visitor", f.visitorID)
	f.router.HandleJoinRoom(ctx, sess, f.joinPayload(f.creatorID))

	assert.False(t, f.router.presence.Online(f.creatorID))
	assert.Zero(t, sess.count())
	assert.Equal(t, before, inRoom.count())
}

func TestJoinRoomAcceptsMatchingIdentity(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	sess := newAuthedSession("conn-visitor", f.visitorID)
	f.router.HandleJoinRoom(ctx, sess, f.joinPayload(f.visitorID))

	assert.True(t, f.router.presence.Online(f.visitorID))
	assert.Len(t, sess.received(model.EventUserConnected), 1)
}

func TestSendMessageRejectsMismatchedSender(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	// Authenticated as the creator but sending as the visitor.
	sess := newAuthedSession("conn-creator", f.creatorID)
	f.router.HandleSendMessage(ctx, sess, model.SendMessagePayload{
		MatchExperienceID: f.matchExperienceID,
		SenderID:          f.visitorID,
		ReceiverID:        f.creatorID,
		Content:           "hi",
	})

	chats, err := f.chats.ListByMatchExperience(ctx, f.matchExperienceID)
	require.NoError(t, err)
	assert.Empty(t, chats)
}

// raceLosingChatStore simulates losing the create race and then failing the
// follow-up find.
type raceLosingChatStore struct {
	*store.MemoryChatStore
}

func (s *raceLosingChatStore) FindBetween(ctx context.Context, matchExperienceID, partyA, partyB string) (*model.Chat, error) {
	return nil, store.ErrNotFound
}

func (s *raceLosingChatStore) Create(ctx context.Context, matchExperienceID, creatorID, visitorID string) (*model.Chat, error) {
	return nil, store.ErrChatExists
}

func TestSendMessageDropsWhenRetryAfterRaceFails(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	log := &logger.Logger{Logger: zaptest.NewLogger(t)}
	router := NewRouter(&raceLosingChatStore{MemoryChatStore: f.chats}, f.experiences, hub.New(), nil, log)

	visitorSess := newFakeSession("conn-visitor")
	router.HandleJoinRoom(ctx, visitorSess, f.joinPayload(f.visitorID))
	before := visitorSess.count()

	router.HandleSendMessage(ctx, visitorSess, model.SendMessagePayload{
		MatchExperienceID: f.matchExperienceID,
		SenderID:          f.visitorID,
		ReceiverID:        f.creatorID,
		Content:           "hi",
	})

	// The event is dropped without a broadcast and without crashing.
	assert.Equal(t, before, visitorSess.count())
}

func TestDisconnectNotifiesConnectionsOutsideTheRoom(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	// An observer that connected but never joined any room still gets
	// the global offline notification.
	observer := newFakeSession("conn-observer")
	f.router.HandleConnect(observer)

	visitorSess := newFakeSession("conn-visitor")
	f.router.HandleJoinRoom(ctx, visitorSess, f.joinPayload(f.visitorID))
	f.router.HandleDisconnect(ctx, visitorSess)

	offline := observer.received(model.EventUserDisconnected)
	require.Len(t, offline, 1)
	assert.Equal(t, model.UserStatusEvent{UserID: f.visitorID, Status: model.StatusOffline}, offline[0].Data)
}

// failingChatStore wraps the memory store and fails AppendMessage.
type failingChatStore struct {
	*store.MemoryChatStore
	appendErr error
}

func (s *failingChatStore) AppendMessage(ctx context.Context, chatID primitive.ObjectID, msg model.ChatMessage) error {
	return s.appendErr
}

func TestSendMessageStoreFailureIsDroppedSilently(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	failing := &failingChatStore{
		MemoryChatStore: f.chats,
		appendErr:       assert.AnError,
	}
	log := &logger.Logger{Logger: zaptest.NewLogger(t)}
	router := NewRouter(failing, f.experiences, hub.New(), nil, log)

	visitorSess := newFakeSession("conn-visitor")
	router.HandleJoinRoom(ctx, visitorSess, f.joinPayload(f.visitorID))
	before := visitorSess.count()

	router.HandleSendMessage(ctx, visitorSess, model.SendMessagePayload{
		MatchExperienceID: f.matchExperienceID,
		SenderID:          f.visitorID,
		ReceiverID:        f.creatorID,
		Content:           "hi",
	})

	// The event is dropped without a broadcast and without crashing.
	assert.Equal(t, before, visitorSess.count())
}
