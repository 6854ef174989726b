package stream

import (
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/exhaai/exha-chat/backend/internal/model/profile"
	"github.com/exhaai/exha-chat/backend/internal/service/conversation"
	"github.com/exhaai/exha-chat/backend/pkg/utils"
)

// EventDone closes every stream and carries the chat the turn ended in.
const EventDone = "done"

// Handler answers one message per request over Server-Sent Events.
type Handler struct {
	conversations  *conversation.Service
	defaultProfile string
	log            *zap.Logger
}

// New creates a new stream handler
func New(conversations *conversation.Service, defaultProfile string, log *zap.Logger) *Handler {
	return &Handler{
		conversations:  conversations,
		defaultProfile: defaultProfile,
		log:            log.Named("stream"),
	}
}

// RegisterRoutes mounts GET /stream.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream", h.handleStream)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	message := query.Get("message")
	if message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	profileID := query.Get("profile")
	if profileID == "" {
		profileID = h.defaultProfile
	}

	conv, err := h.conversations.Open(profileID, query.Get("chat_id"))
	switch {
	case errors.Is(err, profile.ErrProfileNotFound):
		utils.RespondError(w, http.StatusNotFound, "profile not found")
		return
	case err != nil:
		utils.RespondError(w, http.StatusServiceUnavailable, "chat backend unavailable")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	var mu sync.Mutex
	emit := conversation.EmitterFunc(func(event string, payload any) error {
		mu.Lock()
		defer mu.Unlock()
		return utils.SendSSEEvent(w, flusher, event, payload)
	})

	log := h.log.With(
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("profile", conv.Profile.ID),
	)

	if err := h.conversations.Send(r.Context(), conv, message, emit); err != nil {
		log.Debug("stream turn failed", zap.Error(err))
	}

	if err := emit.Emit(EventDone, conversation.ChatPayload{ChatID: conv.ChatID}); err != nil {
		log.Debug("client went away before done", zap.Error(err))
	}
}
