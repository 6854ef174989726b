package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/exhaai/exha-chat/backend/internal/config"
	"github.com/exhaai/exha-chat/backend/internal/handler"
	"github.com/exhaai/exha-chat/backend/internal/logger"
	"github.com/exhaai/exha-chat/backend/internal/model/profile"
	"github.com/exhaai/exha-chat/backend/internal/service/ai"
	"github.com/exhaai/exha-chat/backend/internal/service/backend"
	"github.com/exhaai/exha-chat/backend/internal/service/chat"
	"github.com/exhaai/exha-chat/backend/internal/service/conversation"
	"github.com/exhaai/exha-chat/backend/internal/service/relay"
	"github.com/exhaai/exha-chat/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()
	zap.ReplaceGlobals(logg)

	if err := run(ctx, cfg, logg); err != nil {
		logg.Fatal("server error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logg *zap.Logger) error {
	transcripts, err := openTranscripts(cfg.Chat, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := transcripts.Close(); err != nil {
			logg.Warn("closing transcript store failed", zap.Error(err))
		}
	}()

	chatService := chat.NewService(transcripts, cfg.Chat.TTL, cfg.Chat.CleanupInterval, cfg.Chat.TranscriptLimit)

	// Initialize AI service
	var aiService *ai.Service
	if cfg.AI.Enabled() {
		aiService, err = ai.NewService(ctx, chatService, cfg.AI, logg)
		if err != nil {
			logg.Warn("failed to initialize AI service, continuing without the ark profile", zap.Error(err))
			aiService = nil
		} else {
			logg.Info("AI service initialized", zap.String("model", cfg.AI.Model))
		}
	} else {
		logg.Info("ark credentials not configured, skipping AI backend")
	}

	profiles, backends := buildBackends(profile.Seed(), cfg.Relay, aiService, logg)
	if _, ok := profiles.FindByID(cfg.DefaultProfile); !ok {
		return fmt.Errorf("default profile %q is not available", cfg.DefaultProfile)
	}

	conversations, err := conversation.NewService(profiles, backends, chatService, conversation.Options{
		Timeout:      cfg.Relay.Timeout,
		ImageBaseURL: cfg.Image.BaseURL,
	}, logg)
	if err != nil {
		return err
	}

	router := handler.NewRouter(handler.Dependencies{
		Config:        cfg,
		Profiles:      profiles,
		Chats:         chatService,
		Conversations: conversations,
		Log:           logg,
	})

	addr, err := cfg.Server.Addr()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logg.Info("exha-chat backend listening",
		zap.String("addr", addr),
		zap.Strings("profiles", lo.Map(profiles.List(), func(p profile.Profile, _ int) string { return p.ID })),
	)
	return runServer(ctx, srv)
}

func openTranscripts(cfg config.ChatConfig, logg *zap.Logger) (store.Store, error) {
	if cfg.TranscriptPath == "" {
		logg.Info("transcripts kept in memory")
		return store.NewMemoryStore(), nil
	}

	s, err := store.OpenBadger(cfg.TranscriptPath, logg)
	if err != nil {
		return nil, err
	}
	logg.Info("transcripts persisted", zap.String("path", cfg.TranscriptPath))
	return s, nil
}

// buildBackends keeps the profiles that can be served and pairs each with its
// backend. Relay profiles sharing a base URL still get their own client so
// the profile model is the default.
func buildBackends(seed []profile.Profile, relayCfg config.RelayConfig, aiService *ai.Service, logg *zap.Logger) (*profile.MemoryStore, map[string]backend.Backend) {
	kinds := []string{profile.BackendRelay}
	if aiService != nil {
		kinds = append(kinds, profile.BackendArk)
	}
	profiles := profile.NewMemoryStore(profile.Available(seed, kinds...))

	backends := make(map[string]backend.Backend)
	for _, p := range profiles.List() {
		switch p.Backend {
		case profile.BackendRelay:
			baseURL := p.BaseURL
			if baseURL == "" {
				baseURL = relayCfg.BaseURL
			}
			backends[p.ID] = relay.NewClient(baseURL, p.Model, relayCfg.Timeout, logg.With(zap.String("profile", p.ID)))
		case profile.BackendArk:
			backends[p.ID] = aiService
		}
	}
	return profiles, backends
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
