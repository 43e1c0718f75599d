package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/Rrens/kiwi-chat/internal/domain"
	"github.com/Rrens/kiwi-chat/internal/session"
	"github.com/stretchr/testify/mock"
)

// MockReplier mocks the Replier interface
type MockReplier struct {
	mock.Mock
}

func (m *MockReplier) Send(ctx context.Context, chatInput, sessionID string) (io.ReadCloser, error) {
	args := m.Called(ctx, chatInput, sessionID)
	body, _ := args.Get(0).(io.ReadCloser)
	return body, args.Error(1)
}

func body(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}

// blockingReplier holds the reply open until the request context ends
type blockingReplier struct {
	started chan struct{}
	once    sync.Once
	ctxErr  chan error
}

func newBlockingReplier() *blockingReplier {
	return &blockingReplier{started: make(chan struct{}), ctxErr: make(chan error, 1)}
}

func (b *blockingReplier) Send(ctx context.Context, _, _ string) (io.ReadCloser, error) {
	pr, pw := io.Pipe()
	go func() {
		<-ctx.Done()
		b.ctxErr <- ctx.Err()
		pw.CloseWithError(ctx.Err())
	}()
	b.once.Do(func() { close(b.started) })
	return pr, nil
}

// recordingEmitter keeps every emitted event
type recordingEmitter struct {
	mu     sync.Mutex
	events []domain.LifecycleEvent
}

func (r *recordingEmitter) Emit(event domain.LifecycleEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingEmitter) Events() []domain.LifecycleEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.LifecycleEvent, len(r.events))
	copy(out, r.events)
	return out
}

var testOptions = Options{
	Greeting:          "Hello! I'm the assistant.",
	FailureMessage:    "Sorry, something went wrong. Please try again.",
	EmptyReplyMessage: "Sorry, I could not generate a response.",
	LeadThreshold:     4,
}

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

func newTestClient(replier Replier, emitter Emitter) (*Client, *session.MemoryStorage) {
	storage := session.NewMemoryStorage(0)
	client := NewClient(testOptions, replier, emitter, session.NewManager(storage, "kiwi-chat-session-id"))
	client.now = func() time.Time { return fixedNow }
	return client, storage
}

// failingStorage rejects every operation
type failingStorage struct{}

func (failingStorage) Get(context.Context, string) (string, bool, error) {
	return "", false, errStorageDown
}

func (failingStorage) Set(context.Context, string, string) error { return errStorageDown }

func (failingStorage) Delete(context.Context, string) error { return errStorageDown }

var errStorageDown = errors.New("storage unavailable")

func newManager(storage session.Storage) *session.Manager {
	return session.NewManager(storage, "kiwi-chat-session-id")
}
