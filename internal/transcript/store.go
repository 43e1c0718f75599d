package transcript

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Rrens/kiwi-chat/internal/domain"
)

var (
	ErrEmptyMessage  = errors.New("message is empty")
	ErrReplyPending  = errors.New("a reply is still pending")
	ErrNoSuchMessage = errors.New("no message at index")
	ErrMessageFinal  = errors.New("message is already final")
)

// Store holds the ordered transcript of one chat session
type Store struct {
	mu       sync.RWMutex
	greeting string
	messages []domain.Message
	loading  bool
	lead     *domain.Lead
	now      func() time.Time
}

// NewStore creates a transcript seeded with the greeting message
func NewStore(greeting string) *Store {
	s := &Store{greeting: greeting, now: time.Now}
	s.resetLocked()
	return s
}

// AppendUserMessage appends the trimmed text and an empty bot placeholder
// after it, returning the placeholder's index.
func (s *Store) AppendUserMessage(text string) (int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loading {
		return 0, ErrReplyPending
	}

	now := s.now().UTC()
	s.messages = append(s.messages,
		domain.Message{Role: domain.RoleUser, Text: text, Final: true, CreatedAt: now},
		domain.Message{Role: domain.RoleBot, CreatedAt: now},
	)
	s.loading = true

	return len(s.messages) - 1, nil
}

// AppendBotChunk concatenates delta onto the bot message at index
func (s *Store) AppendBotChunk(index int, delta string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, err := s.pendingLocked(index)
	if err != nil {
		return err
	}
	msg.Text += delta
	return nil
}

// FinalizeBotMessage freezes the bot message at index, substituting
// fallback when nothing was accumulated, and clears the loading flag.
func (s *Store) FinalizeBotMessage(index int, fallback string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, err := s.pendingLocked(index)
	if err != nil {
		return err
	}
	if msg.Text == "" {
		msg.Text = fallback
	}
	msg.Final = true
	s.loading = false
	return nil
}

// AppendBotMessage appends a complete bot message, such as a confirmation
func (s *Store) AppendBotMessage(text string) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loading {
		return domain.Message{}, ErrReplyPending
	}

	msg := domain.Message{Role: domain.RoleBot, Text: text, Final: true, CreatedAt: s.now().UTC()}
	s.messages = append(s.messages, msg)
	return msg, nil
}

// Reset restores the single greeting and clears lead and loading state
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

// SetLead records the captured lead
func (s *Store) SetLead(lead domain.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lead = &lead
}

// Lead returns a copy of the captured lead, or nil
func (s *Store) Lead() *domain.Lead {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lead == nil {
		return nil
	}
	lead := *s.lead
	return &lead
}

// HasLead reports whether a lead was captured this session
func (s *Store) HasLead() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lead != nil
}

// Messages returns a copy of the transcript
func (s *Store) Messages() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Message returns the message at index
func (s *Store) Message(index int) (domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.messages) {
		return domain.Message{}, ErrNoSuchMessage
	}
	return s.messages[index], nil
}

// Len returns the number of messages including the greeting
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// IsLoading reports whether a bot reply is in flight
func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// HasConversation reports whether anything beyond the greeting was exchanged
func (s *Store) HasConversation() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages) > 1
}

func (s *Store) pendingLocked(index int) (*domain.Message, error) {
	if index < 0 || index >= len(s.messages) || s.messages[index].Role != domain.RoleBot {
		return nil, ErrNoSuchMessage
	}
	msg := &s.messages[index]
	if msg.Final {
		return nil, ErrMessageFinal
	}
	return msg, nil
}

func (s *Store) resetLocked() {
	s.messages = []domain.Message{{
		Role:      domain.RoleBot,
		Text:      s.greeting,
		Final:     true,
		CreatedAt: s.now().UTC(),
	}}
	s.loading = false
	s.lead = nil
}
