package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Rrens/kiwi-chat/internal/api"
	"github.com/Rrens/kiwi-chat/internal/api/handler"
	"github.com/Rrens/kiwi-chat/internal/api/middleware"
	"github.com/Rrens/kiwi-chat/internal/chat"
	"github.com/Rrens/kiwi-chat/internal/config"
	"github.com/Rrens/kiwi-chat/internal/logger"
	"github.com/Rrens/kiwi-chat/internal/repository/redis"
	"github.com/Rrens/kiwi-chat/internal/session"
	"github.com/Rrens/kiwi-chat/internal/webhook"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const sweepInterval = time.Minute

func main() {
	// Load .env file - try multiple locations
	envPaths := []string{".env", "../.env", "../../.env"}
	envLoaded := false
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			fmt.Printf("Loaded .env from: %s\n", p)
			envLoaded = true
			break
		}
	}
	if !envLoaded {
		fmt.Println("Warning: .env file not found in any standard location")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	logCloser, err := logger.Setup(cfg.Logging)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}
	defer logCloser.Close()

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Bool("redis", cfg.Redis.Enabled).
		Msg("Starting Kiwi chat server")

	// Session storage and rate limiting
	var (
		storage session.Storage
		limiter middleware.Limiter
		pinger  handler.Pinger
		pruners []chat.Pruner
	)
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(context.Background(), cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()

		storage = redis.NewSessionStorage(redisClient, cfg.Chat.SessionTTL)
		limiter = redis.NewRateLimiter(redisClient, cfg.Security.RateLimit.RequestsPerMinute, cfg.Security.RateLimit.Burst)
		pinger = redisClient
	} else {
		memory := session.NewMemoryStorage(cfg.Chat.SessionTTL)
		local := middleware.NewLocalLimiter(cfg.Security.RateLimit.RequestsPerMinute, cfg.Security.RateLimit.Burst)
		storage, limiter = memory, local
		pruners = append(pruners, memory, local)
	}

	// Webhooks
	replier := webhook.NewChatClient(cfg.Chat.ChatWebhookURL, nil)
	events := webhook.NewEventLogger(cfg.Chat.LogWebhookURL, cfg.Chat.EventQueueSize, nil)
	events.Start()
	defer events.Close()

	opts := chat.OptionsFromConfig(cfg.Chat)
	registry := chat.NewRegistry(func(visitorID string) *chat.Client {
		ids := session.NewManager(storage, cfg.Chat.StorageKey+":"+visitorID)
		return chat.NewClient(opts, replier, events, ids)
	}, pruners...)

	// Initialize router
	router := api.NewRouter(cfg, api.Dependencies{
		Registry: registry,
		Limiter:  limiter,
		Storage:  pinger,
	})

	// Create HTTP server. No write timeout: replies stream for as long as
	// the chat webhook takes.
	server := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweepIdle(sweepCtx, registry, cfg.Chat.VisitorIdleTTL)

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func sweepIdle(ctx context.Context, registry *chat.Registry, idle time.Duration) {
	if idle <= 0 {
		return
	}

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			registry.Sweep(idle, now)
		}
	}
}
