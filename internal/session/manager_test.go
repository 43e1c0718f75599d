package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Rrens/kiwi-chat/internal/session"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStorage mocks the Storage interface
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockStorage) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func TestManager_GetOrCreateIsStable(t *testing.T) {
	ctx := context.Background()
	storage := session.NewMemoryStorage(0)
	m := session.NewManager(storage, "kiwi-chat-session-id")

	first := m.GetOrCreate(ctx)
	second := m.GetOrCreate(ctx)

	assert.Equal(t, first, second)
	_, err := uuid.Parse(first)
	assert.NoError(t, err)

	stored, ok, err := storage.Get(ctx, "kiwi-chat-session-id")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, first, stored)
}

func TestManager_SurvivesRemount(t *testing.T) {
	ctx := context.Background()
	storage := session.NewMemoryStorage(0)

	first := session.NewManager(storage, "key").GetOrCreate(ctx)
	second := session.NewManager(storage, "key").GetOrCreate(ctx)

	assert.Equal(t, first, second)
}

func TestManager_Clear(t *testing.T) {
	ctx := context.Background()
	m := session.NewManager(session.NewMemoryStorage(0), "key")

	before := m.GetOrCreate(ctx)
	m.Clear(ctx)
	after := m.GetOrCreate(ctx)

	assert.NotEqual(t, before, after)
	assert.Equal(t, after, m.GetOrCreate(ctx))
}

func TestManager_StorageUnavailable(t *testing.T) {
	ctx := context.Background()

	t.Run("read failure", func(t *testing.T) {
		storage := new(MockStorage)
		storage.On("Get", ctx, "key").Return("", false, errors.New("storage disabled"))

		m := session.NewManager(storage, "key")
		first := m.GetOrCreate(ctx)
		second := m.GetOrCreate(ctx)

		assert.NotEmpty(t, first)
		assert.Equal(t, first, second)
		storage.AssertNumberOfCalls(t, "Get", 1)
	})

	t.Run("write failure", func(t *testing.T) {
		storage := new(MockStorage)
		storage.On("Get", ctx, "key").Return("", false, nil)
		storage.On("Set", ctx, "key", mock.AnythingOfType("string")).Return(errors.New("quota exceeded"))

		m := session.NewManager(storage, "key")
		first := m.GetOrCreate(ctx)

		assert.Equal(t, first, m.GetOrCreate(ctx))
		storage.AssertNumberOfCalls(t, "Set", 1)
	})

	t.Run("clear drops in-memory identifier", func(t *testing.T) {
		storage := new(MockStorage)
		storage.On("Get", ctx, "key").Return("", false, errors.New("storage disabled"))
		storage.On("Delete", ctx, "key").Return(errors.New("storage disabled"))

		m := session.NewManager(storage, "key")
		first := m.GetOrCreate(ctx)
		m.Clear(ctx)

		assert.NotEqual(t, first, m.GetOrCreate(ctx))
		storage.AssertExpectations(t)
	})
}
