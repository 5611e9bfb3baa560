package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store, used by tests and throwaway setups.
type MemoryStore struct {
	mu      sync.RWMutex
	tenants map[string]TenantConfig
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tenants: make(map[string]TenantConfig)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (TenantConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.tenants[key]
	if !ok {
		return TenantConfig{}, ErrNotFound
	}
	return cfg, nil
}

func (s *MemoryStore) Set(_ context.Context, cfg TenantConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[cfg.Key] = cfg
	return nil
}
