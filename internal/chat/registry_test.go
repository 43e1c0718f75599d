package chat

import (
	"context"
	"testing"
	"time"

	"github.com/Rrens/kiwi-chat/internal/session"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_GetReusesClient(t *testing.T) {
	storage := session.NewMemoryStorage(0)
	created := 0
	registry := NewRegistry(func(visitorID string) *Client {
		created++
		return NewClient(testOptions, &MockReplier{}, nil, session.NewManager(storage, "kiwi-chat-session-id:"+visitorID))
	})

	a := registry.Get("visitor-a")
	assert.Same(t, a, registry.Get("visitor-a"))
	b := registry.Get("visitor-b")
	assert.NotSame(t, a, b)

	assert.Equal(t, 2, created)
	assert.Equal(t, 2, registry.Len())

	ctx := context.Background()
	assert.NotEqual(t, a.Open(ctx).SessionID, b.Open(ctx).SessionID)
}

func TestRegistry_SweepRemovesIdleClients(t *testing.T) {
	registry := NewRegistry(func(string) *Client {
		c, _ := newTestClient(&MockReplier{}, nil)
		return c
	})

	idle := registry.Get("idle")
	idle.Open(context.Background())
	registry.Get("fresh")

	active := registry.Get("fresh")
	active.mu.Lock()
	active.lastActive = fixedNow.Add(time.Hour)
	active.mu.Unlock()

	removed := registry.Sweep(30*time.Minute, fixedNow.Add(time.Hour))

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, registry.Len())
	assert.Same(t, active, registry.Get("fresh"))
}

func TestRegistry_SweepKeepsPendingReplies(t *testing.T) {
	replier := newBlockingReplier()
	registry := NewRegistry(func(string) *Client {
		c, _ := newTestClient(replier, nil)
		return c
	})

	ctx := context.Background()
	c := registry.Get("busy")
	c.Open(ctx)

	done := make(chan error, 1)
	go func() {
		_, err := c.Send(ctx, "hello", nil)
		done <- err
	}()
	<-replier.started

	assert.Equal(t, 0, registry.Sweep(time.Nanosecond, fixedNow.Add(24*time.Hour)))

	c.Close(ctx)
	<-done
}

func TestRegistry_SweepReleasesSessionStorage(t *testing.T) {
	storage := session.NewMemoryStorage(30 * time.Minute)
	registry := NewRegistry(func(visitorID string) *Client {
		c := NewClient(testOptions, &MockReplier{}, nil, session.NewManager(storage, "kiwi-chat-session-id:"+visitorID))
		c.now = func() time.Time { return fixedNow }
		return c
	}, storage)

	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		registry.Get(uuid.NewString()).Open(ctx)
	}
	require.Equal(t, 1000, storage.Len())

	removed := registry.Sweep(time.Minute, time.Now().Add(time.Hour))

	assert.Equal(t, 1000, removed)
	assert.Zero(t, registry.Len())
	assert.Zero(t, storage.Len(), "expired session ids are pruned with the clients")
}

func TestRegistry_GetRecordsActivity(t *testing.T) {
	registry := NewRegistry(func(string) *Client {
		c, _ := newTestClient(&MockReplier{}, nil)
		return c
	})

	c := registry.Get("visitor")
	c.mu.Lock()
	c.lastActive = fixedNow.Add(-24 * time.Hour)
	c.mu.Unlock()

	assert.Same(t, c, registry.Get("visitor"))
	assert.Equal(t, fixedNow, c.LastActive())
	assert.Zero(t, registry.Sweep(time.Minute, fixedNow.Add(time.Second)), "a client just handed out is not idle")
}
