// Package router resolves MikroTik router identities to the numeric ids the
// billing backend keys charges on. The lookup happens once per identity;
// payment submission stays disabled until it has succeeded.
package router

import (
	"context"
	"log/slog"
	"sync"
)

// Lookup is the slice of the billing client the resolver needs.
type Lookup interface {
	ResolveRouter(ctx context.Context, identity string) (int64, error)
}

// Resolver caches identity → router id. A failed lookup is not cached, so
// the next submission attempt retries it.
type Resolver struct {
	lookup Lookup
	log    *slog.Logger

	mu  sync.Mutex
	ids map[string]int64
}

// New creates a router resolver.
func New(lookup Lookup, log *slog.Logger) *Resolver {
	return &Resolver{
		lookup: lookup,
		log:    log,
		ids:    make(map[string]int64),
	}
}

// Resolve returns the router id for an identity, consulting the backend on
// first use. An empty identity returns (0, nil): zero is the unresolved
// value, which payment submission rejects as a precondition. Unknown
// identities come back as errors.
func (r *Resolver) Resolve(ctx context.Context, identity string) (int64, error) {
	if identity == "" {
		return 0, nil
	}

	r.mu.Lock()
	if id, ok := r.ids[identity]; ok {
		r.mu.Unlock()
		return id, nil
	}
	r.mu.Unlock()

	id, err := r.lookup.ResolveRouter(ctx, identity)
	if err != nil {
		r.log.Warn("router lookup failed", "identity", identity, "error", err)
		return 0, err
	}

	r.mu.Lock()
	r.ids[identity] = id
	r.mu.Unlock()

	r.log.Info("router resolved", "identity", identity, "router_id", id)
	return id, nil
}
