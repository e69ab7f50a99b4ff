package registry

import (
	"context"

	"github.com/deskos/deskagent/provider"
)

// defaultRegistry backs the package-level functions for callers that do
// not need their own instance.
var defaultRegistry = New()

// Default returns the shared registry.
func Default() *Registry { return defaultRegistry }

// Get returns the shared registry's provider for an identity.
func Get(t provider.Type) (provider.Provider, error) {
	return defaultRegistry.Get(t)
}

// CheckAvailability probes an identity on the shared registry.
func CheckAvailability(ctx context.Context, t provider.Type) bool {
	return defaultRegistry.CheckAvailability(ctx, t)
}

// Available lists every available identity on the shared registry.
func Available(ctx context.Context) []provider.Type {
	return defaultRegistry.Available(ctx)
}

// FirstAvailable selects from the shared registry in priority order.
func FirstAvailable(ctx context.Context, priority ...provider.Type) (provider.Provider, bool) {
	return defaultRegistry.FirstAvailable(ctx, priority...)
}

// ClearCache resets the shared registry's memoization.
func ClearCache() { defaultRegistry.ClearCache() }
