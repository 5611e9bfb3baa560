package runtime

import (
	"context"
	"sync"
)

// Registry is the process-local cache of built tenant runtimes. It is not
// persisted: after a restart, runtimes are rebuilt lazily from the config
// store on first access.
type Registry struct {
	deps Deps

	mu       sync.RWMutex
	runtimes map[string]*Runtime
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:     deps,
		runtimes: make(map[string]*Runtime),
	}
}

// Get returns the live runtime for key, building it on first access.
// Interleaved builds for the same cold key are tolerated; last writer wins,
// and any successfully built runtime is a valid value for the slot.
func (r *Registry) Get(ctx context.Context, key string) (*Runtime, error) {
	r.mu.RLock()
	rt, ok := r.runtimes[key]
	r.mu.RUnlock()
	if ok {
		return rt, nil
	}
	return r.Rebuild(ctx, key)
}

// Rebuild constructs a fresh runtime from the stored configuration and
// replaces the registry slot. Config-update paths must call this so new
// connection parameters become observable.
func (r *Registry) Rebuild(ctx context.Context, key string) (*Runtime, error) {
	rt, err := New(ctx, r.deps, key)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.runtimes[key] = rt
	r.mu.Unlock()
	return rt, nil
}

// Invalidate drops the runtime for key; the next Get rebuilds it lazily.
func (r *Registry) Invalidate(key string) {
	r.mu.Lock()
	delete(r.runtimes, key)
	r.mu.Unlock()
}
