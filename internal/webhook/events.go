package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/Rrens/kiwi-chat/internal/domain"
	"github.com/rs/zerolog/log"
)

const deliveryTimeout = 10 * time.Second

// EventLogger delivers lifecycle events to the session-log webhook in the
// background. Emit never blocks; events are dropped when the queue is full,
// and delivery failures are logged and discarded without retry.
type EventLogger struct {
	url    string
	client *http.Client
	queue  chan domain.LifecycleEvent

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewEventLogger creates a logger with the given queue capacity. An empty
// url yields a logger that discards everything.
func NewEventLogger(url string, queueSize int, httpClient *http.Client) *EventLogger {
	if queueSize < 1 {
		queueSize = 1
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: deliveryTimeout}
	}
	return &EventLogger{
		url:    url,
		client: httpClient,
		queue:  make(chan domain.LifecycleEvent, queueSize),
	}
}

// Start launches the delivery goroutine
func (l *EventLogger) Start() {
	l.wg.Add(1)
	go l.run()
	log.Info().Bool("enabled", l.url != "").Int("queue", cap(l.queue)).Msg("Session-log delivery started")
}

// Emit queues an event for delivery
func (l *EventLogger) Emit(event domain.LifecycleEvent) {
	if l.url == "" {
		return
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}

	select {
	case l.queue <- event:
	default:
		log.Warn().Str("type", string(event.Type)).Str("session_id", event.SessionID).Msg("Session-log queue full, dropping event")
	}
}

// Close stops accepting events and waits for queued ones to be attempted
func (l *EventLogger) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	l.wg.Wait()
}

func (l *EventLogger) run() {
	defer l.wg.Done()
	for event := range l.queue {
		if err := l.deliver(event); err != nil {
			log.Debug().Err(err).Str("type", string(event.Type)).Msg("Session-log delivery failed")
		}
	}
}

func (l *EventLogger) deliver(event domain.LifecycleEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}
