package chat

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Factory builds the client for a visitor on first contact
type Factory func(visitorID string) *Client

// Pruner drops per-visitor state that expired by now, returning how much
type Pruner interface {
	Prune(now time.Time) int
}

// Registry keeps one chat client per visitor
type Registry struct {
	factory Factory
	pruners []Pruner

	mu      sync.Mutex
	clients map[string]*Client
}

// NewRegistry creates an empty registry. Pruners run on every sweep so
// in-process session and rate-limit state is released with the clients.
func NewRegistry(factory Factory, pruners ...Pruner) *Registry {
	return &Registry{
		factory: factory,
		pruners: pruners,
		clients: make(map[string]*Client),
	}
}

// Get returns the visitor's client, creating it when absent. Handing out a
// client counts as activity, so a sweep cannot drop it before it is used.
func (r *Registry) Get(visitorID string) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	client, ok := r.clients[visitorID]
	if !ok {
		client = r.factory(visitorID)
		r.clients[visitorID] = client
	}
	client.touch()
	return client
}

// Len returns the number of tracked visitors
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Sweep forgets clients idle for longer than idle, prunes expired visitor
// state and returns how many clients were removed. Clients awaiting a reply
// are kept. Nothing is emitted: a visitor who leaves without closing the
// chat produces no session_end.
func (r *Registry) Sweep(idle time.Duration, now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, client := range r.clients {
		if client.State() == StateAwaitingReply {
			continue
		}
		if now.Sub(client.LastActive()) > idle {
			delete(r.clients, id)
			removed++
		}
	}

	pruned := 0
	for _, p := range r.pruners {
		pruned += p.Prune(now)
	}

	if removed > 0 || pruned > 0 {
		log.Debug().Int("removed", removed).Int("pruned", pruned).Int("remaining", len(r.clients)).Msg("Swept idle chat clients")
	}
	return removed
}
