package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/exhaai/exha-chat/backend/internal/service/backend"
)

// maxBodyBytes caps how much of an upstream body is read.
const maxBodyBytes = 1 << 20

// Client talks to the remote chat API:
//
//	POST {base}/chat/new -> {"chat_id": "..."}
//	POST {base}/chat     {"msg", "model", "id"?} -> {"response", "chat_id"?}
type Client struct {
	baseURL string
	model   string
	http    *http.Client
	log     *zap.Logger
}

// NewClient returns a Client for baseURL. model is used when a request does
// not carry its own.
func NewClient(baseURL, model string, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		http:    &http.Client{Timeout: timeout},
		log:     log.Named("relay"),
	}
}

type newChatResponse struct {
	ChatID string `json:"chat_id"`
}

type sendRequest struct {
	Msg   string `json:"msg"`
	Model string `json:"model"`
	ID    string `json:"id,omitempty"`
}

type sendResponse struct {
	Response string `json:"response"`
	ChatID   string `json:"chat_id"`
}

// NewChat opens a chat upstream and returns its id.
func (c *Client) NewChat(ctx context.Context) (string, error) {
	var out newChatResponse
	if err := c.post(ctx, "/chat/new", nil, &out); err != nil {
		return "", err
	}
	if out.ChatID == "" {
		return "", backend.ErrNoChatID
	}

	c.log.Debug("chat created", zap.String("chat_id", out.ChatID))
	return out.ChatID, nil
}

// Send forwards one message. The chat id is only sent when the request has one.
func (c *Client) Send(ctx context.Context, req backend.Request) (backend.Reply, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	payload := sendRequest{Msg: req.Message, Model: model, ID: req.ChatID}

	var out sendResponse
	if err := c.post(ctx, "/chat", payload, &out); err != nil {
		return backend.Reply{}, err
	}
	if out.Response == "" {
		return backend.Reply{}, backend.ErrEmptyReply
	}

	chatID := req.ChatID
	if out.ChatID != "" {
		chatID = out.ChatID
	}

	c.log.Debug("message relayed",
		zap.String("chat_id", chatID),
		zap.String("model", model),
		zap.Int("length", len(out.Response)),
	)
	return backend.Reply{ChatID: chatID, Content: out.Response}, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		c.log.Warn("upstream rejected request", zap.String("path", path), zap.Int("status", resp.StatusCode))
		return &backend.StatusError{StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
