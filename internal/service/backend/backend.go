//go:generate go run go.uber.org/mock/mockgen -source=backend.go -destination=../../mocks/mock_backend.go -package=mocks
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/exhaai/exha-chat/backend/internal/model/profile"
)

var (
	ErrEmptyReply = errors.New("no response from server")
	ErrNoChatID   = errors.New("no chat id returned from server")
)

// StatusError reports a non-200 answer from the upstream chat API.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.StatusCode)
}

// Request is a single user turn bound for a backend.
type Request struct {
	// ChatID is empty when the caller has no chat the backend knows about.
	ChatID  string
	Message string
	Model   string
	Profile profile.Profile
}

// Reply is the backend's answer. ChatID is the chat the turn ended up in,
// which differs from the request when the backend opened a new one.
type Reply struct {
	ChatID  string
	Content string
}

// Backend creates chats and answers messages.
type Backend interface {
	NewChat(ctx context.Context) (string, error)
	Send(ctx context.Context, req Request) (Reply, error)
}

// Streamer is implemented by backends that can deliver a reply incrementally.
type Streamer interface {
	Stream(ctx context.Context, req Request, onDelta func(delta string)) (Reply, error)
}
