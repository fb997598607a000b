// Package service provides business logic for the chat HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/LiorVainer/web-final-project-server/internal/model"
	"github.com/LiorVainer/web-final-project-server/internal/store"
	"github.com/LiorVainer/web-final-project-server/pkg/logger"
)

// ChatService serves chat history queries for the REST API.
type ChatService struct {
	chats  store.ChatStore
	logger *logger.Logger
}

// NewChatService creates a new chat service.
func NewChatService(chats store.ChatStore, log *logger.Logger) *ChatService {
	return &ChatService{chats: chats, logger: log}
}

// GetChatBetweenUsers returns the chat between a visitor and a match
// experience creator, creating an empty one when none exists yet so the web
// client always has a document to render.
func (s *ChatService) GetChatBetweenUsers(ctx context.Context, matchExperienceID, visitorID, creatorID string) (*model.Chat, error) {
	chat, err := s.chats.FindBetween(ctx, matchExperienceID, visitorID, creatorID)
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to fetch chat: %w", err)
	}

	chat, err = s.chats.Create(ctx, matchExperienceID, creatorID, visitorID)
	if errors.Is(err, store.ErrChatExists) {
		return s.chats.FindBetween(ctx, matchExperienceID, visitorID, creatorID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}
	return chat, nil
}

// GetChatsForMatchExperience returns every chat attached to a match
// experience, most recently updated first.
func (s *ChatService) GetChatsForMatchExperience(ctx context.Context, matchExperienceID string) ([]model.Chat, error) {
	chats, err := s.chats.ListByMatchExperience(ctx, matchExperienceID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chats: %w", err)
	}
	return chats, nil
}
