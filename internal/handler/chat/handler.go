package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/exhaai/exha-chat/backend/internal/model/profile"
	chatService "github.com/exhaai/exha-chat/backend/internal/service/chat"
	"github.com/exhaai/exha-chat/backend/internal/service/conversation"
	"github.com/exhaai/exha-chat/backend/pkg/utils"
)

var validate = validator.New()

// Handler 聊天服务的HTTP处理器
type Handler struct {
	conversations *conversation.Service
	chatSvc       *chatService.Service
	log           *zap.Logger
}

// New 创建聊天处理器
func New(conversations *conversation.Service, chatSvc *chatService.Service, log *zap.Logger) *Handler {
	return &Handler{
		conversations: conversations,
		chatSvc:       chatSvc,
		log:           log.Named("chat"),
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/chats", func(r chi.Router) {
		r.Post("/", h.handleCreateChat)
		r.Get("/{chatID}/messages", h.handleListMessages)
		r.Delete("/{chatID}", h.handleDeleteChat)
	})
}

type createChatRequest struct {
	Profile string `json:"profile" validate:"required"`
}

type createChatResponse struct {
	ChatID  string `json:"chat_id"`
	Profile string `json:"profile"`
}

func (h *Handler) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var payload createChatRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "profile is required")
		return
	}

	created, err := h.conversations.CreateChat(r.Context(), payload.Profile)
	switch {
	case errors.Is(err, profile.ErrProfileNotFound):
		utils.RespondError(w, http.StatusBadRequest, "profile not found")
		return
	case errors.Is(err, conversation.ErrBackendUnavailable):
		utils.RespondError(w, http.StatusServiceUnavailable, "chat backend unavailable")
		return
	case err != nil:
		h.log.Warn("create chat failed", zap.String("profile", payload.Profile), zap.Error(err))
		utils.RespondError(w, http.StatusBadGateway, "could not create chat")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, createChatResponse{ChatID: created.ID, Profile: created.ProfileID})
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.chatSvc.Transcript(r.Context(), chi.URLParam(r, "chatID"))
	switch {
	case errors.Is(err, chatService.ErrChatNotFound):
		utils.RespondError(w, http.StatusNotFound, "chat not found")
		return
	case err != nil:
		h.log.Error("load transcript failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "could not load messages")
		return
	}

	utils.RespondJSON(w, http.StatusOK, messages)
}

func (h *Handler) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	if _, err := h.chatSvc.Get(chatID); err != nil {
		utils.RespondError(w, http.StatusNotFound, "chat not found")
		return
	}

	if err := h.chatSvc.Forget(r.Context(), chatID); err != nil {
		h.log.Error("forget chat failed", zap.String("chat_id", chatID), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "could not delete chat")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
