package conversation

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/exhaai/exha-chat/backend/internal/format"
	"github.com/exhaai/exha-chat/backend/internal/model/chat"
	"github.com/exhaai/exha-chat/backend/internal/model/profile"
	"github.com/exhaai/exha-chat/backend/internal/service/backend"
	chatservice "github.com/exhaai/exha-chat/backend/internal/service/chat"
)

const imageCommand = "image:"

// Options tune a Service.
type Options struct {
	// Timeout bounds the backend work done for one event.
	Timeout      time.Duration
	ImageBaseURL string
	Now          func() time.Time
}

// Conversation is the per-client state: which front-end it uses and the
// chat it is currently in.
type Conversation struct {
	Profile profile.Profile
	ChatID  string
}

// Service runs the chat event flow independently of the transport.
type Service struct {
	profiles   profile.Store
	backends   map[string]backend.Backend
	chats      *chatservice.Service
	formatters map[string]format.Formatter
	opts       Options
	log        *zap.Logger
}

// NewService wires backends keyed by profile id.
func NewService(profiles profile.Store, backends map[string]backend.Backend, chats *chatservice.Service, opts Options, log *zap.Logger) (*Service, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	formatters := make(map[string]format.Formatter)
	for _, p := range profiles.List() {
		if _, ok := formatters[p.Format]; ok {
			continue
		}
		f, err := format.ForMode(p.Format)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", p.ID, err)
		}
		formatters[p.Format] = f
	}

	return &Service{
		profiles:   profiles,
		backends:   backends,
		chats:      chats,
		formatters: formatters,
		opts:       opts,
		log:        log.Named("conversation"),
	}, nil
}

// Open starts a conversation for a client. chatID is kept only when it was
// issued here for the same profile.
func (s *Service) Open(profileID, chatID string) (*Conversation, error) {
	p, ok := s.profiles.FindByID(profileID)
	if !ok {
		return nil, profile.ErrProfileNotFound
	}
	if _, ok := s.backends[p.ID]; !ok {
		return nil, ErrBackendUnavailable
	}

	conv := &Conversation{Profile: p}
	if s.chats.Known(chatID, p.ID) {
		conv.ChatID = chatID
	}
	return conv, nil
}

// UseChat switches the conversation to chatID when it is known for the
// conversation's profile. It reports whether the switch happened.
func (s *Service) UseChat(conv *Conversation, chatID string) bool {
	if chatID == "" || chatID == conv.ChatID {
		return chatID != ""
	}
	if !s.chats.Known(chatID, conv.Profile.ID) {
		return false
	}
	conv.ChatID = chatID
	return true
}

// CreateChat opens a new backend chat for profileID.
func (s *Service) CreateChat(ctx context.Context, profileID string) (chat.Chat, error) {
	p, ok := s.profiles.FindByID(profileID)
	if !ok {
		return chat.Chat{}, profile.ErrProfileNotFound
	}
	b, ok := s.backends[p.ID]
	if !ok {
		return chat.Chat{}, ErrBackendUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	chatID, err := b.NewChat(ctx)
	if err != nil {
		return chat.Chat{}, err
	}
	return s.chats.Register(chatID, p.ID)
}

// NewChat replaces the conversation's chat with a fresh one and tells the
// client to clear its window.
func (s *Service) NewChat(ctx context.Context, conv *Conversation, emit Emitter) error {
	created, err := s.CreateChat(ctx, conv.Profile.ID)
	if err != nil {
		s.log.Warn("new chat failed", zap.String("profile", conv.Profile.ID), zap.Error(err))
		s.emit(emit, EventError, ErrorPayload{Message: userMessage(err)})
		return err
	}

	conv.ChatID = created.ID
	s.emit(emit, EventClearChat, struct{}{})
	s.emit(emit, EventChat, ChatPayload{ChatID: created.ID})
	s.emit(emit, EventMessage, MessagePayload{
		Message:   conv.Profile.Greeting,
		Timestamp: s.timestamp(),
		Format:    ContentText,
	})
	return nil
}

// Send handles one user message: echo, typing indicator, backend call,
// formatted reply. Failures become an error event; the returned error is for
// the transport's logs.
func (s *Service) Send(ctx context.Context, conv *Conversation, text string, emit Emitter) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.emit(emit, EventMessage, MessagePayload{
		Message:   text,
		IsUser:    true,
		Timestamp: s.timestamp(),
		Format:    ContentText,
	})

	if conv.Profile.ImageCommand && strings.HasPrefix(strings.ToLower(text), imageCommand) {
		return s.sendImage(ctx, conv, text, emit)
	}

	b, ok := s.backends[conv.Profile.ID]
	if !ok {
		s.emit(emit, EventError, ErrorPayload{Message: userMessage(ErrBackendUnavailable)})
		return ErrBackendUnavailable
	}

	s.emit(emit, EventTyping, TypingPayload{IsTyping: true, Label: conv.Profile.TypingLabel})
	stopTyping := sync.OnceFunc(func() {
		s.emit(emit, EventTyping, TypingPayload{IsTyping: false})
	})
	defer stopTyping()

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	s.ensureChat(ctx, conv, b, emit)

	req := backend.Request{
		ChatID:  conv.ChatID,
		Message: text,
		Model:   conv.Profile.Model,
		Profile: conv.Profile,
	}

	var (
		reply backend.Reply
		err   error
	)
	if streamer, ok := b.(backend.Streamer); ok && conv.Profile.Stream {
		reply, err = streamer.Stream(ctx, req, func(delta string) {
			s.emit(emit, EventDelta, DeltaPayload{Content: delta})
		})
	} else {
		reply, err = b.Send(ctx, req)
	}
	if err == nil && strings.TrimSpace(reply.Content) == "" {
		err = backend.ErrEmptyReply
	}

	if err != nil {
		stopTyping()
		s.log.Warn("backend call failed",
			zap.String("profile", conv.Profile.ID),
			zap.String("chat_id", conv.ChatID),
			zap.Error(err),
		)
		s.emit(emit, EventError, ErrorPayload{Message: userMessage(err)})
		s.record(ctx, conv.ChatID, chat.SenderUser, text)
		return err
	}

	if reply.ChatID != "" && reply.ChatID != conv.ChatID {
		s.adopt(conv, reply.ChatID, emit)
	}

	stopTyping()
	s.emit(emit, EventMessage, MessagePayload{
		Message:   s.formatterFor(conv.Profile).Format(reply.Content),
		Timestamp: s.timestamp(),
		Format:    ContentHTML,
	})

	s.record(ctx, conv.ChatID, chat.SenderUser, text)
	s.record(ctx, conv.ChatID, chat.SenderAssistant, reply.Content)
	return nil
}

// ensureChat opens a backend chat when the conversation has none. A failure
// is logged and the message is sent without a chat id.
func (s *Service) ensureChat(ctx context.Context, conv *Conversation, b backend.Backend, emit Emitter) {
	if conv.ChatID != "" {
		return
	}

	chatID, err := b.NewChat(ctx)
	if err != nil {
		s.log.Warn("could not open chat, sending without one", zap.String("profile", conv.Profile.ID), zap.Error(err))
		return
	}
	s.adopt(conv, chatID, emit)
}

func (s *Service) adopt(conv *Conversation, chatID string, emit Emitter) {
	if _, err := s.chats.Register(chatID, conv.Profile.ID); err != nil {
		s.log.Warn("register chat failed", zap.String("chat_id", chatID), zap.Error(err))
		return
	}
	conv.ChatID = chatID
	s.emit(emit, EventChat, ChatPayload{ChatID: chatID})
}

func (s *Service) sendImage(ctx context.Context, conv *Conversation, text string, emit Emitter) error {
	prompt := strings.TrimSpace(text[len(imageCommand):])
	if prompt == "" {
		s.emit(emit, EventError, ErrorPayload{Message: userMessage(ErrEmptyImagePrompt)})
		return ErrEmptyImagePrompt
	}

	// The base URL may end in a path or a query parameter, so every reserved
	// character is escaped and spaces stay %20.
	src := s.opts.ImageBaseURL + strings.ReplaceAll(url.QueryEscape(prompt), "+", "%20")
	s.emit(emit, EventMessage, MessagePayload{
		Message:   fmt.Sprintf(`<img src="%s" alt="Generated Image" style="max-width:100%%; height:auto;">`, html.EscapeString(src)),
		Timestamp: s.timestamp(),
		Format:    ContentHTML,
	})

	s.record(ctx, conv.ChatID, chat.SenderUser, text)
	s.record(ctx, conv.ChatID, chat.SenderAssistant, src)
	return nil
}

func (s *Service) formatterFor(p profile.Profile) format.Formatter {
	if f, ok := s.formatters[p.Format]; ok {
		return f
	}
	return format.Plain{}
}

func (s *Service) record(ctx context.Context, chatID, sender, content string) {
	if chatID == "" {
		return
	}
	// The request context may already be past its deadline.
	ctx = context.WithoutCancel(ctx)
	if err := s.chats.Record(ctx, chatID, sender, content); err != nil {
		s.log.Warn("transcript write failed", zap.String("chat_id", chatID), zap.Error(err))
	}
}

func (s *Service) emit(emit Emitter, event string, payload any) {
	if err := emit.Emit(event, payload); err != nil {
		s.log.Debug("emit failed", zap.String("event", event), zap.Error(err))
	}
}

func (s *Service) timestamp() string {
	return s.opts.Now().Format("15:04")
}
