// Package handler provides HTTP handlers for the chat API.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/LiorVainer/web-final-project-server/internal/model"
	"github.com/LiorVainer/web-final-project-server/internal/service"
	"github.com/LiorVainer/web-final-project-server/pkg/logger"
)

// ChatHandler handles chat history endpoints.
type ChatHandler struct {
	service *service.ChatService
	logger  *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(svc *service.ChatService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{service: svc, logger: log}
}

// GetBetweenUsers handles GET /api/v1/chats
// Query params: matchExperienceId, visitorId, matchExperienceCreatorId.
func (h *ChatHandler) GetBetweenUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	matchExperienceID := r.URL.Query().Get("matchExperienceId")
	visitorID := r.URL.Query().Get("visitorId")
	creatorID := r.URL.Query().Get("matchExperienceCreatorId")

	for _, id := range []string{matchExperienceID, visitorID, creatorID} {
		if err := model.ValidateID(id); err != nil {
			writeError(w, http.StatusBadRequest, "invalid query parameters")
			return
		}
	}

	chat, err := h.service.GetChatBetweenUsers(ctx, matchExperienceID, visitorID, creatorID)
	if err != nil {
		h.logger.Error("failed to get chat", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get chat")
		return
	}

	writeJSON(w, http.StatusOK, chat)
}

// ListForMatchExperience handles GET /api/v1/chats/match-experience/{id}
func (h *ChatHandler) ListForMatchExperience(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	matchExperienceID := chi.URLParam(r, "id")
	if err := model.ValidateID(matchExperienceID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid match experience id")
		return
	}

	chats, err := h.service.GetChatsForMatchExperience(ctx, matchExperienceID)
	if err != nil {
		h.logger.Error("failed to list chats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list chats")
		return
	}
	if chats == nil {
		chats = []model.Chat{}
	}

	writeJSON(w, http.StatusOK, chats)
}
