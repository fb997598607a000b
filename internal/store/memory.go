package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/LiorVainer/web-final-project-server/internal/model"
)

// MemoryChatStore is an in-memory ChatStore. It enforces the same uniqueness
// invariant as the Mongo store and is used in tests and as a development
// fallback when no database is configured.
type MemoryChatStore struct {
	mu    sync.RWMutex
	chats map[primitive.ObjectID]*model.Chat
}

// NewMemoryChatStore creates an empty in-memory chat store.
func NewMemoryChatStore() *MemoryChatStore {
	return &MemoryChatStore{chats: make(map[primitive.ObjectID]*model.Chat)}
}

// FindBetween returns the chat between two parties, in either role order.
func (s *MemoryChatStore) FindBetween(ctx context.Context, matchExperienceID, partyA, partyB string) (*model.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, chat := range s.chats {
		if chat.MatchExperienceID != matchExperienceID {
			continue
		}
		if (chat.MatchExperienceCreatorID == partyA && chat.VisitorID == partyB) ||
			(chat.MatchExperienceCreatorID == partyB && chat.VisitorID == partyA) {
			return copyChat(chat), nil
		}
	}
	return nil, ErrNotFound
}

// Create inserts an empty chat, rejecting duplicates of the triple.
func (s *MemoryChatStore) Create(ctx context.Context, matchExperienceID, creatorID, visitorID string) (*model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chat := range s.chats {
		if chat.MatchExperienceID == matchExperienceID &&
			chat.MatchExperienceCreatorID == creatorID &&
			chat.VisitorID == visitorID {
			return nil, ErrChatExists
		}
	}

	now := time.Now()
	chat := &model.Chat{
		ID:                       primitive.NewObjectID(),
		MatchExperienceID:        matchExperienceID,
		MatchExperienceCreatorID: creatorID,
		VisitorID:                visitorID,
		Messages:                 []model.ChatMessage{},
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	s.chats[chat.ID] = chat
	return copyChat(chat), nil
}

// AppendMessage appends a message and bumps updatedAt.
func (s *MemoryChatStore) AppendMessage(ctx context.Context, chatID primitive.ObjectID, msg model.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[chatID]
	if !ok {
		return ErrNotFound
	}
	chat.Messages = append(chat.Messages, msg)
	chat.UpdatedAt = msg.CreatedAt
	return nil
}

// ListByMatchExperience returns all chats for a match experience, most
// recently updated first.
func (s *MemoryChatStore) ListByMatchExperience(ctx context.Context, matchExperienceID string) ([]model.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var chats []model.Chat
	for _, chat := range s.chats {
		if chat.MatchExperienceID == matchExperienceID {
			chats = append(chats, *copyChat(chat))
		}
	}
	sort.Slice(chats, func(i, j int) bool {
		return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
	})
	return chats, nil
}

func copyChat(chat *model.Chat) *model.Chat {
	out := *chat
	out.Messages = make([]model.ChatMessage, len(chat.Messages))
	copy(out.Messages, chat.Messages)
	return &out
}

// MemoryMatchExperienceStore is an in-memory MatchExperienceStore for tests
// and development.
type MemoryMatchExperienceStore struct {
	mu       sync.RWMutex
	creators map[string]string
}

// NewMemoryMatchExperienceStore creates an empty in-memory lookup.
func NewMemoryMatchExperienceStore() *MemoryMatchExperienceStore {
	return &MemoryMatchExperienceStore{creators: make(map[string]string)}
}

// SetCreator records the creator of a match experience.
func (s *MemoryMatchExperienceStore) SetCreator(matchExperienceID, creatorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creators[matchExperienceID] = creatorID
}

// GetCreatorID returns the creator of the match experience, or ErrNotFound.
func (s *MemoryMatchExperienceStore) GetCreatorID(ctx context.Context, matchExperienceID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	creator, ok := s.creators[matchExperienceID]
	if !ok {
		return "", ErrNotFound
	}
	return creator, nil
}
