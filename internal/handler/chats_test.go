package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap/zaptest"

	"github.com/LiorVainer/web-final-project-server/internal/model"
	"github.com/LiorVainer/web-final-project-server/internal/service"
	"github.com/LiorVainer/web-final-project-server/internal/store"
	"github.com/LiorVainer/web-final-project-server/pkg/logger"
)

func newChatRouter(t *testing.T, chats store.ChatStore) chi.Router {
	t.Helper()
	log := &logger.Logger{Logger: zaptest.NewLogger(t)}
	h := NewChatHandler(service.NewChatService(chats, log), log)

	r := chi.NewRouter()
	r.Get("/api/v1/chats", h.GetBetweenUsers)
	r.Get("/api/v1/chats/match-experience/{id}", h.ListForMatchExperience)
	return r
}

func TestGetBetweenUsersRejectsInvalidIDs(t *testing.T) {
	router := newChatRouter(t, store.NewMemoryChatStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chats?matchExperienceId=nope&visitorId=nope&matchExperienceCreatorId=nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetBetweenUsersCreatesEmptyChat(t *testing.T) {
	chats := store.NewMemoryChatStore()
	router := newChatRouter(t, chats)

	mid := primitive.NewObjectID().Hex()
	visitor := primitive.NewObjectID().Hex()
	creator := primitive.NewObjectID().Hex()

	url := fmt.Sprintf("/api/v1/chats?matchExperienceId=%s&visitorId=%s&matchExperienceCreatorId=%s", mid, visitor, creator)
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var chat model.Chat
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chat))
	assert.Equal(t, mid, chat.MatchExperienceID)
	assert.Equal(t, creator, chat.MatchExperienceCreatorID)
	assert.Equal(t, visitor, chat.VisitorID)
	assert.Empty(t, chat.Messages)
}

func TestListForMatchExperienceReturnsEmptyArray(t *testing.T) {
	router := newChatRouter(t, store.NewMemoryChatStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chats/match-experience/"+primitive.NewObjectID().Hex(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}
