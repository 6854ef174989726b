package store

import (
	"context"

	"github.com/exhaai/exha-chat/backend/internal/model/chat"
)

// Store persists chat transcripts.
type Store interface {
	Append(ctx context.Context, message chat.Message) error
	// List returns at most limit of the newest messages, oldest first.
	// A non-positive limit returns everything.
	List(ctx context.Context, chatID string, limit int) ([]chat.Message, error)
	Delete(ctx context.Context, chatID string) error
	Close() error
}

func tail(messages []chat.Message, limit int) []chat.Message {
	if limit > 0 && len(messages) > limit {
		return messages[len(messages)-limit:]
	}
	return messages
}
