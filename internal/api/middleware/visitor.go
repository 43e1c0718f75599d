package middleware

import (
	"context"
	"net/http"

	"github.com/Rrens/kiwi-chat/internal/api/response"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type contextKey string

const VisitorIDKey contextKey = "visitorID"

// GetVisitorID gets the visitor ID from context
func GetVisitorID(ctx context.Context) (uuid.UUID, bool) {
	visitorID, ok := ctx.Value(VisitorIDKey).(uuid.UUID)
	return visitorID, ok
}

// VisitorContext extracts the visitor ID from URL and adds it to context
func VisitorContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		visitorIDStr := chi.URLParam(r, "visitorID")
		if visitorIDStr == "" {
			response.BadRequest(w, "missing visitor ID")
			return
		}

		visitorID, err := uuid.Parse(visitorIDStr)
		if err != nil {
			response.BadRequest(w, "invalid visitor ID")
			return
		}

		ctx := context.WithValue(r.Context(), VisitorIDKey, visitorID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
