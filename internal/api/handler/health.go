package handler

import (
	"context"
	"net/http"

	"github.com/Rrens/kiwi-chat/internal/api/response"
)

// Pinger is a dependency whose reachability gates readiness
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck returns a simple health check response
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{
		"status": "ok",
	})
}

// ReadyCheck returns readiness status including session storage connectivity.
// A nil pinger means sessions are kept in memory.
func ReadyCheck(storage Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if storage == nil {
			response.OK(w, map[string]string{"status": "ready", "storage": "memory"})
			return
		}

		if err := storage.Ping(r.Context()); err != nil {
			response.ServiceUnavailable(w, "session storage not ready")
			return
		}

		response.OK(w, map[string]string{"status": "ready", "storage": "redis"})
	}
}
