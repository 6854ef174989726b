package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/exhaai/exha-chat/backend/internal/config"
	"github.com/exhaai/exha-chat/backend/internal/handler/chat"
	profileHandler "github.com/exhaai/exha-chat/backend/internal/handler/profile"
	"github.com/exhaai/exha-chat/backend/internal/handler/realtime"
	"github.com/exhaai/exha-chat/backend/internal/handler/stream"
	middlewarePkg "github.com/exhaai/exha-chat/backend/internal/middleware"
	"github.com/exhaai/exha-chat/backend/internal/model/profile"
	chatService "github.com/exhaai/exha-chat/backend/internal/service/chat"
	"github.com/exhaai/exha-chat/backend/internal/service/conversation"
	"github.com/exhaai/exha-chat/backend/pkg/utils"
)

// Dependencies are the services the HTTP surface is built on.
type Dependencies struct {
	Config        *config.Config
	Profiles      profile.Store
	Chats         *chatService.Service
	Conversations *conversation.Service
	Log           *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(deps.Log))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.Config.Server.CORSAllowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	realtime.New(deps.Conversations, deps.Config.DefaultProfile, deps.Config.Realtime, deps.Log).RegisterRoutes(r)

	r.Route("/api", func(api chi.Router) {
		profileHandler.New(deps.Profiles).RegisterRoutes(api)
		chat.New(deps.Conversations, deps.Chats, deps.Log).RegisterRoutes(api)
		stream.New(deps.Conversations, deps.Config.DefaultProfile, deps.Log).RegisterRoutes(api)
	})

	return r
}
