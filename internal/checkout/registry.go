package checkout

import (
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hvacdirectapp/hvacdirect/internal/gateway"
	"github.com/hvacdirectapp/hvacdirect/internal/ordersvc"
)

const registrySize = 10000

// Registry hands out one orchestrator per cart so that every request for
// the same cart observes the same step tracker and in-flight guards.
// Eviction only drops local progress; the server-held order is untouched
// and a fresh orchestrator resumes from the persisted session token.
type Registry struct {
	client   *ordersvc.Client
	gateway  gateway.Gateway
	mirror   orderMirror
	attempts attemptRecorder
	emails   confirmationSender
	logger   *slog.Logger

	mu      sync.Mutex
	entries *lru.Cache[string, *Orchestrator]
}

func NewRegistry(client *ordersvc.Client, gw gateway.Gateway, mirror orderMirror, attempts attemptRecorder, emails confirmationSender, logger *slog.Logger) (*Registry, error) {
	entries, err := lru.New[string, *Orchestrator](registrySize)
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator registry: %w", err)
	}

	return &Registry{
		client:   client,
		gateway:  gw,
		mirror:   mirror,
		attempts: attempts,
		emails:   emails,
		logger:   logger,
		entries:  entries,
	}, nil
}

// ForCart returns the orchestrator for the given cart, creating one bound
// to the given order session token when none is cached.
func (r *Registry) ForCart(cartToken, orderToken string) *Orchestrator {
	r.mu.Lock()
	defer r.mu.Unlock()

	if orch, ok := r.entries.Get(cartToken); ok {
		return orch
	}

	orch := New(r.client.Session(orderToken), r.gateway, r.mirror, r.attempts, r.emails, cartToken, r.logger)
	r.entries.Add(cartToken, orch)
	return orch
}

// Drop removes the cart's orchestrator, abandoning local checkout progress.
func (r *Registry) Drop(cartToken string) {
	r.mu.Lock()
	r.entries.Remove(cartToken)
	r.mu.Unlock()
}
