package blobstore

import (
	"context"
	"sync"
	"time"
)

// MemLeaseStore is an in-memory LeaseStore shared by every stack in the
// same process.
type MemLeaseStore struct {
	mu     sync.Mutex
	expiry map[string]time.Time
}

func NewMemLeaseStore() *MemLeaseStore {
	return &MemLeaseStore{expiry: make(map[string]time.Time)}
}

func (m *MemLeaseStore) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if until, ok := m.expiry[key]; ok && now.Before(until) {
		return false, nil
	}
	m.expiry[key] = now.Add(ttl)
	return true, nil
}

func (m *MemLeaseStore) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.expiry, key)
	return nil
}
