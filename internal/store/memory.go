package store

import (
	"context"
	"sync"

	"github.com/exhaai/exha-chat/backend/internal/model/chat"
)

// MemoryStore keeps transcripts in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[string][]chat.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{messages: make(map[string][]chat.Message)}
}

func (s *MemoryStore) Append(_ context.Context, message chat.Message) error {
	s.mu.Lock()
	s.messages[message.ChatID] = append(s.messages[message.ChatID], message)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) List(_ context.Context, chatID string, limit int) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	selected := tail(s.messages[chatID], limit)
	copied := make([]chat.Message, len(selected))
	copy(copied, selected)
	return copied, nil
}

func (s *MemoryStore) Delete(_ context.Context, chatID string) error {
	s.mu.Lock()
	delete(s.messages, chatID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }
