package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Manager owns the chat session identifier stored under one key.
// When storage fails it falls back to an identifier held in memory for the
// manager's lifetime; callers never see the failure.
type Manager struct {
	storage Storage
	key     string
	newID   func() string

	mu       sync.Mutex
	fallback string
}

// NewManager creates a manager persisting under key in storage
func NewManager(storage Storage, key string) *Manager {
	return &Manager{
		storage: storage,
		key:     key,
		newID:   uuid.NewString,
	}
}

// GetOrCreate returns the persisted identifier, generating and persisting
// one when absent.
func (m *Manager) GetOrCreate(ctx context.Context) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fallback != "" {
		return m.fallback
	}

	id, ok, err := m.storage.Get(ctx, m.key)
	if err != nil {
		return m.degradeLocked(err)
	}
	if ok && id != "" {
		return id
	}

	id = m.newID()
	if err := m.storage.Set(ctx, m.key, id); err != nil {
		m.fallback = id
		log.Warn().Err(err).Str("key", m.key).Msg("Session storage unavailable, keeping identifier in memory")
	}
	return id
}

// Clear removes the identifier so the next access generates a new one
func (m *Manager) Clear(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fallback = ""
	if err := m.storage.Delete(ctx, m.key); err != nil {
		log.Warn().Err(err).Str("key", m.key).Msg("Failed to clear session identifier")
	}
}

func (m *Manager) degradeLocked(err error) string {
	m.fallback = m.newID()
	log.Warn().Err(err).Str("key", m.key).Msg("Session storage unavailable, keeping identifier in memory")
	return m.fallback
}
