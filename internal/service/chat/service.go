package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/exhaai/exha-chat/backend/internal/model/chat"
	"github.com/exhaai/exha-chat/backend/internal/store"
)

var (
	ErrChatIDRequired = errors.New("chat id is required")
	ErrChatNotFound   = errors.New("chat not found")
)

// Service tracks which chat ids this server has handed out and keeps their
// transcripts. Registrations expire after the configured TTL of inactivity.
type Service struct {
	chats           *cache.Cache
	ttl             time.Duration
	transcripts     store.Store
	transcriptLimit int
	now             func() time.Time
}

// NewService builds a registry whose entries expire after ttl without use.
// A chat's transcript is dropped together with its registration.
func NewService(transcripts store.Store, ttl, cleanupInterval time.Duration, transcriptLimit int) *Service {
	chats := cache.New(ttl, cleanupInterval)
	chats.OnEvicted(func(chatID string, _ any) {
		if err := transcripts.Delete(context.Background(), chatID); err != nil {
			zap.L().Named("chat").Warn("drop expired transcript failed", zap.String("chat_id", chatID), zap.Error(err))
		}
	})

	return &Service{
		chats:           chats,
		ttl:             ttl,
		transcripts:     transcripts,
		transcriptLimit: transcriptLimit,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Register records a chat id issued by a backend for the given profile.
func (s *Service) Register(chatID, profileID string) (chat.Chat, error) {
	if chatID == "" {
		return chat.Chat{}, ErrChatIDRequired
	}

	c := chat.Chat{ID: chatID, ProfileID: profileID, CreatedAt: s.now()}
	s.chats.Set(chatID, c, cache.DefaultExpiration)
	return c, nil
}

// Get returns a registered chat and extends its lifetime.
func (s *Service) Get(chatID string) (chat.Chat, error) {
	if chatID == "" {
		return chat.Chat{}, ErrChatNotFound
	}

	value, ok := s.chats.Get(chatID)
	if !ok {
		return chat.Chat{}, ErrChatNotFound
	}

	c := value.(chat.Chat)
	s.chats.Set(chatID, c, cache.DefaultExpiration)
	return c, nil
}

// Known reports whether chatID was issued here for profileID and is still live.
func (s *Service) Known(chatID, profileID string) bool {
	c, err := s.Get(chatID)
	return err == nil && c.ProfileID == profileID
}

// Forget drops a chat and its transcript.
func (s *Service) Forget(ctx context.Context, chatID string) error {
	s.chats.Delete(chatID)
	return s.transcripts.Delete(ctx, chatID)
}

// Record appends a turn to a chat transcript.
func (s *Service) Record(ctx context.Context, chatID, sender, content string) error {
	if chatID == "" {
		return ErrChatIDRequired
	}

	message := chat.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Sender:    sender,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.transcripts.Append(ctx, message); err != nil {
		return fmt.Errorf("record message: %w", err)
	}
	return nil
}

// Transcript returns the stored turns of a registered chat, oldest first.
func (s *Service) Transcript(ctx context.Context, chatID string) ([]chat.Message, error) {
	if _, err := s.Get(chatID); err != nil {
		return nil, err
	}

	messages, err := s.transcripts.List(ctx, chatID, s.transcriptLimit)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []chat.Message{}
	}
	return messages, nil
}
