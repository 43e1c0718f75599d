package api

import (
	"net/http"

	"github.com/Rrens/kiwi-chat/internal/api/handler"
	"github.com/Rrens/kiwi-chat/internal/api/response"
	customMiddleware "github.com/Rrens/kiwi-chat/internal/api/middleware"
	"github.com/Rrens/kiwi-chat/internal/chat"
	"github.com/Rrens/kiwi-chat/internal/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Dependencies are the components the router serves
type Dependencies struct {
	Registry *chat.Registry
	Limiter  customMiddleware.Limiter
	// Storage is pinged for readiness; nil when sessions live in memory
	Storage handler.Pinger
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	chatHandler := handler.NewChatHandler(deps.Registry)
	rateLimitMiddleware := customMiddleware.NewRateLimitMiddleware(deps.Limiter)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(deps.Storage))

		r.Route("/visitors/{visitorID}/chat", func(r chi.Router) {
			r.Use(customMiddleware.VisitorContext)

			r.Get("/", chatHandler.Get)
			r.Post("/open", chatHandler.Open)
			r.With(rateLimitMiddleware.Limit).Post("/messages", chatHandler.Send)
			r.Post("/lead/prompt", chatHandler.PromptLead)
			r.Post("/lead", chatHandler.SubmitLead)
			r.Post("/close", chatHandler.Close)
		})
	})

	return r
}
