package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/exhaai/exha-chat/backend/internal/config"
	"github.com/exhaai/exha-chat/backend/internal/model/profile"
	"github.com/exhaai/exha-chat/backend/internal/service/conversation"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	sendBuffer = 64
)

// Inbound events.
const (
	EventSendMessage = "send_message"
	EventNewChat     = "new_chat"
)

var errClosed = errors.New("connection closed")

type inboundEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type outboundEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type sendMessageRequest struct {
	Message string `json:"message" validate:"required"`
	ChatID  string `json:"chat_id" validate:"omitempty,max=256"`
}

// Handler upgrades /ws requests and runs one conversation per connection.
type Handler struct {
	conversations  *conversation.Service
	defaultProfile string
	cfg            config.RealtimeConfig
	upgrader       websocket.Upgrader
	validate       *validator.Validate
	log            *zap.Logger
}

// New creates the websocket handler.
func New(conversations *conversation.Service, defaultProfile string, cfg config.RealtimeConfig, log *zap.Logger) *Handler {
	h := &Handler{
		conversations:  conversations,
		defaultProfile: defaultProfile,
		cfg:            cfg,
		validate:       validator.New(),
		log:            log.Named("realtime"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// RegisterRoutes mounts the websocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	return lo.Contains(h.cfg.AllowedOrigins, origin)
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	profileID := r.URL.Query().Get("profile")
	if profileID == "" {
		profileID = h.defaultProfile
	}

	conv, err := h.conversations.Open(profileID, r.URL.Query().Get("chat_id"))
	switch {
	case errors.Is(err, profile.ErrProfileNotFound):
		http.Error(w, "profile not found", http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, "chat backend unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	queueSize := max(h.cfg.QueueSize, 1)
	c := &client{
		h:       h,
		conn:    conn,
		conv:    conv,
		send:    make(chan []byte, sendBuffer),
		jobs:    make(chan job, queueSize),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(rate.Limit(h.cfg.MessagesPerSecond), max(h.cfg.Burst, 1)),
		log: h.log.With(
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("profile", conv.Profile.ID),
		),
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	c.log.Info("client connected", zap.String("chat_id", conv.ChatID))
	go c.writePump()
	go c.work(ctx)
	c.readPump()
	close(c.done)
	c.log.Info("client disconnected")
}

type job func(ctx context.Context) error

type client struct {
	h       *Handler
	conn    *websocket.Conn
	conv    *conversation.Conversation
	send    chan []byte
	jobs    chan job
	done    chan struct{}
	limiter *rate.Limiter
	log     *zap.Logger
}

// Emit queues an event for the write pump.
func (c *client) Emit(event string, payload any) error {
	data, err := json.Marshal(outboundEnvelope{Event: event, Data: payload})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}

	select {
	case <-c.done:
		return errClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return errClosed
	}
}

func (c *client) emitError(message string) {
	_ = c.Emit(conversation.EventError, conversation.ErrorPayload{Message: message})
}

// readLimit bounds a single frame. Without a message length cap it falls back
// to a fixed ceiling.
func (h *Handler) readLimit() int64 {
	if n := h.cfg.MaxMessageLength; n > 0 {
		return int64(n)*4 + 1024
	}
	return 64 << 10
}

func (c *client) readPump() {
	defer c.conn.Close()

	c.conn.SetReadLimit(c.h.readLimit())
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("read failed", zap.Error(err))
			}
			return
		}

		if !c.limiter.Allow() {
			c.emitError("You are sending messages too quickly.")
			continue
		}

		var env inboundEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.emitError("Malformed message.")
			continue
		}

		c.dispatch(env)
	}
}

func (c *client) dispatch(env inboundEnvelope) {
	switch env.Event {
	case EventSendMessage:
		var req sendMessageRequest
		if len(env.Data) == 0 || json.Unmarshal(env.Data, &req) != nil {
			c.emitError("Malformed message.")
			return
		}
		if err := c.h.validate.Struct(req); err != nil {
			c.emitError("Message is empty.")
			return
		}
		if c.h.cfg.MaxMessageLength > 0 {
			if err := c.h.validate.Var(req.Message, fmt.Sprintf("max=%d", c.h.cfg.MaxMessageLength)); err != nil {
				c.emitError(fmt.Sprintf("Message is longer than %d characters.", c.h.cfg.MaxMessageLength))
				return
			}
		}

		c.enqueue(func(ctx context.Context) error {
			c.h.conversations.UseChat(c.conv, req.ChatID)
			return c.h.conversations.Send(ctx, c.conv, req.Message, c)
		})
	case EventNewChat:
		c.enqueue(func(ctx context.Context) error {
			return c.h.conversations.NewChat(ctx, c.conv, c)
		})
	default:
		c.emitError("Unknown event.")
	}
}

func (c *client) enqueue(j job) {
	select {
	case c.jobs <- j:
	default:
		c.emitError("Still working on your previous messages, try again shortly.")
	}
}

// work runs jobs one at a time so events for a conversation stay in order.
func (c *client) work(ctx context.Context) {
	for {
		select {
		case <-c.done:
			return
		case j := <-c.jobs:
			if err := j(ctx); err != nil {
				c.log.Debug("job failed", zap.String("chat_id", c.conv.ChatID), zap.Error(err))
			}
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
