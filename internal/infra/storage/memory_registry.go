package storage

import (
	"context"
	"sync"
	"time"
)

type binding struct {
	sessionID string
	expiresAt time.Time
}

// MemoryRegistry is the single-instance fallback used when no Redis
// address is configured, and the registry of choice in tests.
type MemoryRegistry struct {
	mu       sync.Mutex
	bindings map[string]binding
	ttl      time.Duration
}

func NewMemoryRegistry(ttl time.Duration) *MemoryRegistry {
	return &MemoryRegistry{
		bindings: make(map[string]binding),
		ttl:      ttl,
	}
}

func (m *MemoryRegistry) Bind(_ context.Context, sessionID, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bindings[orderID] = binding{sessionID: sessionID, expiresAt: time.Now().Add(m.ttl)}
	return nil
}

func (m *MemoryRegistry) IsBound(_ context.Context, sessionID, orderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bindings[orderID]
	if !ok {
		return false, nil
	}
	if time.Now().After(b.expiresAt) {
		delete(m.bindings, orderID)
		return false, nil
	}
	return b.sessionID == sessionID, nil
}
