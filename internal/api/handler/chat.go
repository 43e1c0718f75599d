package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Rrens/kiwi-chat/internal/api/middleware"
	"github.com/Rrens/kiwi-chat/internal/api/response"
	"github.com/Rrens/kiwi-chat/internal/chat"
	"github.com/Rrens/kiwi-chat/internal/domain"
	"github.com/Rrens/kiwi-chat/internal/lead"
	"github.com/Rrens/kiwi-chat/internal/transcript"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

// SendRequest is the body of a visitor message
type SendRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

// streamLine is one NDJSON line of a streamed reply
type streamLine struct {
	Type    string          `json:"type"`
	Content string          `json:"content,omitempty"`
	Message *domain.Message `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ChatHandler handles the widget's chat endpoints
type ChatHandler struct {
	registry *chat.Registry
}

// NewChatHandler creates a new chat handler
func NewChatHandler(registry *chat.Registry) *ChatHandler {
	return &ChatHandler{registry: registry}
}

func (h *ChatHandler) client(w http.ResponseWriter, r *http.Request) (*chat.Client, bool) {
	visitorID, ok := middleware.GetVisitorID(r.Context())
	if !ok {
		response.BadRequest(w, "missing visitor ID")
		return nil, false
	}
	return h.registry.Get(visitorID.String()), true
}

// Get returns the current chat snapshot
func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	client, ok := h.client(w, r)
	if !ok {
		return
	}
	response.OK(w, client.Snapshot(r.Context()))
}

// Open opens the chat panel
func (h *ChatHandler) Open(w http.ResponseWriter, r *http.Request) {
	client, ok := h.client(w, r)
	if !ok {
		return
	}
	response.OK(w, client.Open(r.Context()))
}

// Send forwards a visitor message and streams the reply as NDJSON
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	client, ok := h.client(w, r)
	if !ok {
		return
	}

	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	started := false
	begin := func() {
		if started {
			return
		}
		started = true
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.WriteHeader(http.StatusOK)
	}
	writeLine := func(line streamLine) {
		begin()
		if err := enc.Encode(line); err != nil {
			log.Debug().Err(err).Msg("Failed to write stream line")
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	msg, err := client.Send(r.Context(), req.Text, func(delta string) {
		writeLine(streamLine{Type: "item", Content: delta})
	})
	if err != nil {
		if !started {
			writeChatError(w, err)
			return
		}
		writeLine(streamLine{Type: "error", Error: err.Error()})
		return
	}

	writeLine(streamLine{Type: "end", Message: &msg})
}

// PromptLead opens the lead capture form
func (h *ChatHandler) PromptLead(w http.ResponseWriter, r *http.Request) {
	client, ok := h.client(w, r)
	if !ok {
		return
	}
	if err := client.PromptLead(); err != nil {
		writeChatError(w, err)
		return
	}
	response.OK(w, client.Snapshot(r.Context()))
}

// SubmitLead submits the lead capture form
func (h *ChatHandler) SubmitLead(w http.ResponseWriter, r *http.Request) {
	client, ok := h.client(w, r)
	if !ok {
		return
	}

	var form lead.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	msg, err := client.SubmitLead(r.Context(), form)
	if err != nil {
		writeChatError(w, err)
		return
	}
	response.OK(w, msg)
}

// Close closes the chat and reports the session
func (h *ChatHandler) Close(w http.ResponseWriter, r *http.Request) {
	client, ok := h.client(w, r)
	if !ok {
		return
	}
	client.Close(r.Context())
	response.OK(w, client.Snapshot(r.Context()))
}

func writeChatError(w http.ResponseWriter, err error) {
	var validationErr *lead.ValidationError
	switch {
	case errors.As(err, &validationErr):
		response.BadRequest(w, map[string]any{
			"message": validationErr.Error(),
			"fields":  validationErr.Fields,
		})
	case errors.Is(err, transcript.ErrEmptyMessage):
		response.BadRequest(w, err.Error())
	case errors.Is(err, chat.ErrClosed),
		errors.Is(err, chat.ErrReplyPending),
		errors.Is(err, chat.ErrLeadPromptOpen),
		errors.Is(err, chat.ErrLeadPromptClosed),
		errors.Is(err, chat.ErrLeadUnavailable):
		response.Conflict(w, err.Error())
	default:
		log.Error().Err(err).Msg("Chat operation failed")
		response.InternalError(w, "internal error")
	}
}
