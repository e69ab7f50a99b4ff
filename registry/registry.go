// Package registry lazily constructs and caches one provider instance per
// identity, probes availability, and selects the first available provider
// in priority order.
package registry

import (
	"context"
	"sync"

	"github.com/deskos/deskagent/claude"
	"github.com/deskos/deskagent/codex"
	"github.com/deskos/deskagent/provider"
)

// Builder constructs a provider for one identity.
type Builder func() provider.Provider

// Registry owns the provider singleton cache. Providers are built on
// first request and memoized until ClearCache; the cache is the only
// state mutated by more than one caller, so every access holds the lock.
type Registry struct {
	providers map[provider.Type]provider.Provider
	builders  map[provider.Type]Builder
	mu        sync.Mutex
}

// New creates a registry bound to the closed set of known providers.
func New() *Registry {
	return &Registry{
		providers: make(map[provider.Type]provider.Provider),
		builders: map[provider.Type]Builder{
			provider.TypeClaude: func() provider.Provider { return claude.NewProvider() },
			provider.TypeCodex:  func() provider.Provider { return codex.NewProvider() },
		},
	}
}

// Get returns the cached provider for an identity, constructing it on
// first request. Repeated calls return the same instance until
// ClearCache.
func (r *Registry) Get(t provider.Type) (provider.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.providers[t]; ok {
		return p, nil
	}

	builder, ok := r.builders[t]
	if !ok {
		return nil, provider.ErrUnknownProvider
	}

	p := builder()
	r.providers[t] = p
	return p, nil
}

// CheckAvailability probes one identity. Every failure (unknown type,
// probe error, timeout, even a panicking probe) folds to false; the
// probe never throws outward.
func (r *Registry) CheckAvailability(ctx context.Context, t provider.Type) (available bool) {
	defer func() {
		if recover() != nil {
			available = false
		}
	}()

	p, err := r.Get(t)
	if err != nil {
		return false
	}
	return p.CheckAvailability(ctx)
}

// Available returns every currently available identity, in declaration
// order.
func (r *Registry) Available(ctx context.Context) []provider.Type {
	var available []provider.Type
	for _, t := range provider.Types() {
		if r.CheckAvailability(ctx, t) {
			available = append(available, t)
		}
	}
	return available
}

// FirstAvailable probes identities strictly in the given order and
// returns the first available provider, short-circuiting. With no
// priority given it uses the default order. The second return is false
// when no provider is available.
func (r *Registry) FirstAvailable(ctx context.Context, priority ...provider.Type) (provider.Provider, bool) {
	if len(priority) == 0 {
		priority = provider.Types()
	}

	for _, t := range priority {
		if r.CheckAvailability(ctx, t) {
			p, err := r.Get(t)
			if err != nil {
				continue
			}
			return p, true
		}
	}
	return nil, false
}

// ClearCache resets the memoization, for test isolation and provider
// reinitialization. Subsequent Get calls construct fresh instances.
func (r *Registry) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = make(map[provider.Type]provider.Provider)
}
