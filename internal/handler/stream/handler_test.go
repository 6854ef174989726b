package stream

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/exhaai/exha-chat/backend/internal/mocks"
	"github.com/exhaai/exha-chat/backend/internal/model/profile"
	"github.com/exhaai/exha-chat/backend/internal/service/backend"
	chatservice "github.com/exhaai/exha-chat/backend/internal/service/chat"
	"github.com/exhaai/exha-chat/backend/internal/service/conversation"
	"github.com/exhaai/exha-chat/backend/internal/store"
)

func setupRouter(t *testing.T, b backend.Backend) (*chi.Mux, *chatservice.Service) {
	t.Helper()

	chats := chatservice.NewService(store.NewMemoryStore(), time.Hour, time.Minute, 50)
	conversations, err := conversation.NewService(
		profile.NewMemoryStore(profile.Seed()),
		map[string]backend.Backend{"exha": b},
		chats,
		conversation.Options{Timeout: time.Second},
		zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}

	r := chi.NewRouter()
	New(conversations, "exha", zap.NewNop()).RegisterRoutes(r)
	return r, chats
}

func eventNames(body string) []string {
	var names []string
	for _, line := range strings.Split(body, "\n") {
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			names = append(names, name)
		}
	}
	return names
}

func TestStreamReply(t *testing.T) {
	ctrl := gomock.NewController(t)
	b := mocks.NewMockBackend(ctrl)
	r, chats := setupRouter(t, b)

	if _, err := chats.Register("c-1", "exha"); err != nil {
		t.Fatalf("Register err: %v", err)
	}
	b.EXPECT().Send(gomock.Any(), gomock.Any()).Return(backend.Reply{ChatID: "c-1", Content: "hi *there*"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/stream?message=hello&chat_id=c-1", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	got := strings.Join(eventNames(resp.Body.String()), ",")
	if got != "message,typing,typing,message,done" {
		t.Fatalf("unexpected events %s", got)
	}
	if !strings.Contains(resp.Body.String(), `hi <em>there</em>`) {
		t.Fatalf("formatted reply missing from %s", resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "event: done\ndata: {\"chat_id\":\"c-1\"}") {
		t.Fatalf("done event missing chat id: %s", resp.Body.String())
	}
}

func TestStreamBackendError(t *testing.T) {
	ctrl := gomock.NewController(t)
	b := mocks.NewMockBackend(ctrl)
	r, chats := setupRouter(t, b)

	if _, err := chats.Register("c-1", "exha"); err != nil {
		t.Fatalf("Register err: %v", err)
	}
	b.EXPECT().Send(gomock.Any(), gomock.Any()).Return(backend.Reply{}, &backend.StatusError{StatusCode: 500})

	req := httptest.NewRequest(http.MethodGet, "/stream?message=hello&chat_id=c-1", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	got := strings.Join(eventNames(resp.Body.String()), ",")
	if got != "message,typing,typing,error,done" {
		t.Fatalf("unexpected events %s", got)
	}
	if !strings.Contains(resp.Body.String(), "Server error: 500") {
		t.Fatalf("error text missing from %s", resp.Body.String())
	}
}

func TestStreamRequestErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	r, _ := setupRouter(t, mocks.NewMockBackend(ctrl))

	cases := map[string]int{
		"/stream":                           http.StatusBadRequest,
		"/stream?message=hi&profile=nobody": http.StatusNotFound,
		"/stream?message=hi&profile=reka":   http.StatusServiceUnavailable,
	}
	for target, want := range cases {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, target, nil))
		if resp.Code != want {
			t.Fatalf("%s: expected %d, got %d", target, want, resp.Code)
		}
	}
}
