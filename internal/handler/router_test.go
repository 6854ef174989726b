package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/exhaai/exha-chat/backend/internal/config"
	"github.com/exhaai/exha-chat/backend/internal/model/profile"
	"github.com/exhaai/exha-chat/backend/internal/service/backend"
	chatService "github.com/exhaai/exha-chat/backend/internal/service/chat"
	"github.com/exhaai/exha-chat/backend/internal/service/conversation"
	"github.com/exhaai/exha-chat/backend/internal/store"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	profiles := profile.NewMemoryStore(profile.Seed())
	chats := chatService.NewService(store.NewMemoryStore(), time.Hour, time.Minute, 50)
	conversations, err := conversation.NewService(profiles, map[string]backend.Backend{}, chats, conversation.Options{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}

	return NewRouter(Dependencies{
		Config:        &config.Config{DefaultProfile: "exha"},
		Profiles:      profiles,
		Chats:         chats,
		Conversations: conversations,
		Log:           zap.NewNop(),
	})
}

func TestRoutes(t *testing.T) {
	r := newTestRouter(t)

	cases := []struct {
		method, target string
		want           int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/api/profiles", http.StatusOK},
		{http.MethodGet, "/api/chats/nope/messages", http.StatusNotFound},
		{http.MethodGet, "/api/stream", http.StatusBadRequest},
		{http.MethodGet, "/ws?profile=nope", http.StatusNotFound},
		{http.MethodOptions, "/api/chats", http.StatusNoContent},
		{http.MethodGet, "/missing", http.StatusNotFound},
	}
	for _, tc := range cases {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(tc.method, tc.target, nil))
		if resp.Code != tc.want {
			t.Fatalf("%s %s: expected %d, got %d", tc.method, tc.target, tc.want, resp.Code)
		}
	}
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Body.String() != "{\"status\":\"ok\"}\n" {
		t.Fatalf("unexpected body %q", resp.Body.String())
	}
}
