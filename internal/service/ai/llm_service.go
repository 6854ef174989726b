package ai

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/exhaai/exha-chat/backend/internal/config"
	"github.com/exhaai/exha-chat/backend/internal/model/chat"
	"github.com/exhaai/exha-chat/backend/internal/service/backend"
	chatservice "github.com/exhaai/exha-chat/backend/internal/service/chat"
)

const historyLimit = 10

// TranscriptSource supplies earlier turns of a chat.
type TranscriptSource interface {
	Transcript(ctx context.Context, chatID string) ([]chat.Message, error)
}

// Service answers chats directly with an Ark chat model.
type Service struct {
	chatModel   model.ChatModel
	transcripts TranscriptSource
	cfg         config.AIConfig
	chain       compose.Runnable[map[string]any, *schema.Message]
	log         *zap.Logger
}

// NewService creates the Ark model from cfg and wraps it.
func NewService(ctx context.Context, transcripts TranscriptSource, cfg config.AIConfig, log *zap.Logger) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel, transcripts, cfg, log)
}

// NewServiceWithModel wires an existing chat model into the prompt chain.
func NewServiceWithModel(ctx context.Context, chatModel model.ChatModel, transcripts TranscriptSource, cfg config.AIConfig, log *zap.Logger) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chatModel:   chatModel,
		transcripts: transcripts,
		cfg:         cfg,
		chain:       runnable,
		log:         log.Named("ai"),
	}, nil
}

// StreamingEnabled reports whether replies may be streamed.
func (s *Service) StreamingEnabled() bool {
	return s.cfg.StreamResponse
}

// NewChat mints a local chat id; the model itself is stateless.
func (s *Service) NewChat(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

// Send generates a complete reply.
func (s *Service) Send(ctx context.Context, req backend.Request) (backend.Reply, error) {
	chatID, input, err := s.prepare(ctx, req)
	if err != nil {
		return backend.Reply{}, err
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return backend.Reply{}, fmt.Errorf("failed to run AI chain: %w", err)
	}
	if response == nil || response.Content == "" {
		return backend.Reply{}, backend.ErrEmptyReply
	}

	s.log.Debug("generated reply", zap.String("chat_id", chatID), zap.Int("length", len(response.Content)))
	return backend.Reply{ChatID: chatID, Content: response.Content}, nil
}

// Stream generates a reply, reporting each non-empty chunk to onDelta.
func (s *Service) Stream(ctx context.Context, req backend.Request, onDelta func(delta string)) (backend.Reply, error) {
	if !s.StreamingEnabled() {
		return s.Send(ctx, req)
	}

	chatID, input, err := s.prepare(ctx, req)
	if err != nil {
		return backend.Reply{}, err
	}

	stream, err := s.chain.Stream(ctx, input)
	if err != nil {
		return backend.Reply{}, fmt.Errorf("failed to stream AI chain output: %w", err)
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return backend.Reply{}, recvErr
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" && onDelta != nil {
			onDelta(chunk.Content)
		}
	}
	if len(chunks) == 0 {
		return backend.Reply{}, backend.ErrEmptyReply
	}

	response, err := schema.ConcatMessages(chunks)
	if err != nil {
		return backend.Reply{}, err
	}
	if response.Content == "" {
		return backend.Reply{}, backend.ErrEmptyReply
	}

	s.log.Debug("streamed reply", zap.String("chat_id", chatID), zap.Int("chunks", len(chunks)))
	return backend.Reply{ChatID: chatID, Content: response.Content}, nil
}

func (s *Service) prepare(ctx context.Context, req backend.Request) (string, map[string]any, error) {
	chatID := req.ChatID
	var history []chat.Message
	if chatID == "" {
		chatID = uuid.NewString()
	} else {
		messages, err := s.transcripts.Transcript(ctx, chatID)
		switch {
		case errors.Is(err, chatservice.ErrChatNotFound):
		case err != nil:
			return "", nil, fmt.Errorf("load transcript: %w", err)
		default:
			history = messages
		}
	}

	return chatID, map[string]any{
		"system":  BuildSystemPrompt(req.Profile),
		"history": buildHistoryMessages(history),
		"query":   req.Message,
	}, nil
}

func buildHistoryMessages(messages []chat.Message) []*schema.Message {
	if len(messages) > historyLimit {
		messages = messages[len(messages)-historyLimit:]
	}

	return lo.FilterMap(messages, func(msg chat.Message, _ int) (*schema.Message, bool) {
		switch msg.Sender {
		case chat.SenderUser:
			return schema.UserMessage(msg.Content), true
		case chat.SenderAssistant:
			return schema.AssistantMessage(msg.Content, nil), true
		default:
			return nil, false
		}
	})
}
