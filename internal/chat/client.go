package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/Rrens/kiwi-chat/internal/config"
	"github.com/Rrens/kiwi-chat/internal/domain"
	"github.com/Rrens/kiwi-chat/internal/lead"
	"github.com/Rrens/kiwi-chat/internal/session"
	"github.com/Rrens/kiwi-chat/internal/stream"
	"github.com/Rrens/kiwi-chat/internal/transcript"
	"github.com/rs/zerolog/log"
)

var (
	ErrClosed           = errors.New("chat is closed")
	ErrReplyPending     = transcript.ErrReplyPending
	ErrLeadPromptOpen   = errors.New("lead form is open")
	ErrLeadUnavailable  = errors.New("lead capture is not available")
	ErrLeadPromptClosed = errors.New("lead form is not open")
)

// Replier sends a visitor message to the chat backend and returns the reply body
type Replier interface {
	Send(ctx context.Context, chatInput, sessionID string) (io.ReadCloser, error)
}

// Emitter accepts lifecycle events without blocking or reporting failure
type Emitter interface {
	Emit(event domain.LifecycleEvent)
}

// EmitterFunc adapts a function to Emitter
type EmitterFunc func(event domain.LifecycleEvent)

func (f EmitterFunc) Emit(event domain.LifecycleEvent) { f(event) }

// Options holds the user-facing texts and thresholds of a chat client
type Options struct {
	Greeting          string
	FailureMessage    string
	EmptyReplyMessage string
	LeadThreshold     int
}

// OptionsFromConfig extracts client options from the chat config section
func OptionsFromConfig(cfg config.ChatConfig) Options {
	return Options{
		Greeting:          cfg.Greeting,
		FailureMessage:    cfg.FailureMessage,
		EmptyReplyMessage: cfg.EmptyReplyMessage,
		LeadThreshold:     cfg.LeadThreshold,
	}
}

// Snapshot is a consistent view of a client for rendering
type Snapshot struct {
	State               State            `json:"state"`
	SessionID           string           `json:"session_id,omitempty"`
	Messages            []domain.Message `json:"messages"`
	Lead                *domain.Lead     `json:"lead,omitempty"`
	LeadPromptAvailable bool             `json:"lead_prompt_available"`
}

// Client drives one visitor's chat session: transcript, reply streaming,
// lead capture and lifecycle telemetry.
type Client struct {
	opts       Options
	replier    Replier
	emitter    Emitter
	ids        *session.Manager
	transcript *transcript.Store
	now        func() time.Time

	mu         sync.Mutex
	state      State
	generation uint64
	cancel     context.CancelFunc
	lastActive time.Time
}

// NewClient creates a closed chat client
func NewClient(opts Options, replier Replier, emitter Emitter, ids *session.Manager) *Client {
	if emitter == nil {
		emitter = EmitterFunc(func(domain.LifecycleEvent) {})
	}
	return &Client{
		opts:       opts,
		replier:    replier,
		emitter:    emitter,
		ids:        ids,
		transcript: transcript.NewStore(opts.Greeting),
		now:        time.Now,
		state:      StateClosed,
		lastActive: time.Now(),
	}
}

// Open shows the chat panel; opening an open panel is a no-op
func (c *Client) Open(ctx context.Context) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		c.state = c.restingLocked()
	}
	c.lastActive = c.now()
	return c.snapshotLocked(ctx)
}

// Snapshot returns the current state without changing it
func (c *Client) Snapshot(ctx context.Context) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked(ctx)
}

// State returns the current lifecycle state
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastActive returns when the visitor last interacted with the client
func (c *Client) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

func (c *Client) touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActive = c.now()
}

// Send appends the visitor's message, forwards it to the chat webhook and
// streams the reply into the transcript, calling onDelta for each increment.
// Transport failures do not return an error: they end up as the failure
// message in the returned bot message.
func (c *Client) Send(ctx context.Context, text string, onDelta stream.DeltaFunc) (domain.Message, error) {
	c.mu.Lock()
	switch c.state {
	case StateClosed:
		c.mu.Unlock()
		return domain.Message{}, ErrClosed
	case StateAwaitingReply:
		c.mu.Unlock()
		return domain.Message{}, ErrReplyPending
	case StateLeadPrompt:
		c.mu.Unlock()
		return domain.Message{}, ErrLeadPromptOpen
	}

	index, err := c.transcript.AppendUserMessage(text)
	if err != nil {
		c.mu.Unlock()
		return domain.Message{}, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.state = StateAwaitingReply
	c.cancel = cancel
	c.lastActive = c.now()
	gen := c.generation
	c.mu.Unlock()

	sessionID := c.ids.GetOrCreate(ctx)
	fallback := c.fetchReply(ctx, gen, index, strings.TrimSpace(text), sessionID, onDelta)

	return c.finish(gen, index, fallback)
}

// fetchReply streams the webhook reply into the placeholder at index and
// returns the text to use if nothing was streamed.
func (c *Client) fetchReply(ctx context.Context, gen uint64, index int, input, sessionID string, onDelta stream.DeltaFunc) string {
	body, err := c.replier.Send(ctx, input, sessionID)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("Chat webhook request failed")
		return c.opts.FailureMessage
	}
	defer body.Close()

	reply, err := stream.Decode(body, func(delta string) {
		if c.appendChunk(gen, index, delta) && onDelta != nil {
			onDelta(delta)
		}
	})
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("Chat reply stream interrupted")
		if reply == "" {
			return c.opts.FailureMessage
		}
	}
	if reply == "" {
		return c.opts.EmptyReplyMessage
	}
	return reply
}

func (c *Client) appendChunk(gen uint64, index int, delta string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	return c.transcript.AppendBotChunk(index, delta) == nil
}

func (c *Client) finish(gen uint64, index int, fallback string) (domain.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		// The chat was closed while the reply was in flight.
		return domain.Message{}, ErrClosed
	}

	c.cancel = nil
	if err := c.transcript.FinalizeBotMessage(index, fallback); err != nil {
		return domain.Message{}, err
	}
	c.state = c.restingLocked()
	c.lastActive = c.now()

	return c.transcript.Message(index)
}

// LeadPromptAvailable reports whether the lead call-to-action may be shown
func (c *Client) LeadPromptAvailable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.leadPromptAvailableLocked()
}

// PromptLead opens the lead form
func (c *Client) PromptLead() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateLeadPrompt:
		return nil
	case StateClosed:
		return ErrClosed
	case StateAwaitingReply:
		return ErrReplyPending
	}
	if !c.leadPromptAvailableLocked() {
		return ErrLeadUnavailable
	}

	c.state = StateLeadPrompt
	c.lastActive = c.now()
	return nil
}

// SubmitLead validates the form and, when valid, captures the lead,
// appends a confirmation and emits a meeting request. An invalid form
// leaves everything untouched and the form open.
func (c *Client) SubmitLead(ctx context.Context, form lead.Form) (domain.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateLeadPrompt:
	case StateLeadCaptured:
		return domain.Message{}, ErrLeadUnavailable
	case StateClosed:
		return domain.Message{}, ErrClosed
	default:
		return domain.Message{}, ErrLeadPromptClosed
	}

	validated, err := form.Validate()
	if err != nil {
		return domain.Message{}, err
	}

	now := c.now()
	captured := validated.Lead(now)
	history := c.transcript.Messages()

	msg, err := c.transcript.AppendBotMessage(lead.Confirmation(captured))
	if err != nil {
		return domain.Message{}, err
	}
	c.transcript.SetLead(captured)
	c.state = StateLeadCaptured
	c.lastActive = now

	sessionID := c.ids.GetOrCreate(ctx)
	c.emitter.Emit(domain.NewLifecycleEvent(domain.EventMeetingRequest, sessionID, &captured, history, now))
	log.Info().Str("session_id", sessionID).Msg("Lead captured")

	return msg, nil
}

// Close ends the conversation. A conversation with content is reported as
// session_end and its session identifier discarded; the transcript always
// returns to the greeting.
func (c *Client) Close(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.generation++

	if c.transcript.HasConversation() {
		now := c.now()
		sessionID := c.ids.GetOrCreate(ctx)
		history := settledMessages(c.transcript.Messages())
		c.emitter.Emit(domain.NewLifecycleEvent(domain.EventSessionEnd, sessionID, c.transcript.Lead(), history, now))
		c.ids.Clear(ctx)
		log.Debug().Str("session_id", sessionID).Int("messages", len(history)).Msg("Chat session ended")
	}

	c.transcript.Reset()
	c.state = StateClosed
	c.lastActive = c.now()
}

func (c *Client) restingLocked() State {
	if c.transcript.HasLead() {
		return StateLeadCaptured
	}
	return StateOpen
}

func (c *Client) leadPromptAvailableLocked() bool {
	return c.state == StateOpen &&
		!c.transcript.HasLead() &&
		c.transcript.Len() >= c.opts.LeadThreshold
}

func (c *Client) snapshotLocked(ctx context.Context) Snapshot {
	snap := Snapshot{
		State:               c.state,
		Messages:            c.transcript.Messages(),
		Lead:                c.transcript.Lead(),
		LeadPromptAvailable: c.leadPromptAvailableLocked(),
	}
	if c.state != StateClosed {
		snap.SessionID = c.ids.GetOrCreate(ctx)
	}
	return snap
}

// settledMessages drops a reply placeholder that never received text
func settledMessages(messages []domain.Message) []domain.Message {
	out := messages[:0]
	for _, m := range messages {
		if !m.Final && m.Text == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}
