package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/exhaai/exha-chat/backend/internal/service/backend"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api/", "gpt-4o-mini", 2*time.Second, zap.NewNop())
}

func TestNewChat(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat/new", r.URL.Path)
		_, _ = w.Write([]byte(`{"chat_id":"c-1"}`))
	})

	id, err := client.NewChat(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "c-1", id)
}

func TestNewChatMissingID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := client.NewChat(context.Background())
	assert.ErrorIs(t, err, backend.ErrNoChatID)
}

func TestNewChatStatusError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.NewChat(context.Background())
	var statusErr *backend.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
}

func TestSendForwardsChatIDAndModel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body["msg"])
		assert.Equal(t, "reka-core", body["model"])
		assert.Equal(t, "c-9", body["id"])

		_, _ = w.Write([]byte(`{"response":"hi there"}`))
	})

	reply, err := client.Send(context.Background(), backend.Request{
		ChatID:  "c-9",
		Message: "hello",
		Model:   "reka-core",
	})
	require.NoError(t, err)
	assert.Equal(t, "hi there", reply.Content)
	assert.Equal(t, "c-9", reply.ChatID)
}

func TestSendOmitsUnknownChatAndAdoptsReturnedID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, hasID := body["id"]
		assert.False(t, hasID)
		assert.Equal(t, "gpt-4o-mini", body["model"])

		_, _ = w.Write([]byte(`{"response":"ok","chat_id":"fresh"}`))
	})

	reply, err := client.Send(context.Background(), backend.Request{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "fresh", reply.ChatID)
}

func TestSendEmptyResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":""}`))
	})

	_, err := client.Send(context.Background(), backend.Request{Message: "hello"})
	assert.ErrorIs(t, err, backend.ErrEmptyReply)
}

func TestSendStatusError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Send(context.Background(), backend.Request{Message: "hello"})
	var statusErr *backend.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
}

func TestSendTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, "m", 50*time.Millisecond, zap.NewNop())

	_, err := client.Send(context.Background(), backend.Request{Message: "hello"})
	assert.Error(t, err)
}
