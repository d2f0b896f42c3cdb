package blobstore

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Memblob is the in-memory physical backend: a mutex-guarded map. It is the
// reference backend for tests and for benchmarking higher layers without
// storage latency.
type Memblob struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	log   logrus.FieldLogger
}

func NewMemblob() *Memblob {
	return &Memblob{
		blobs: make(map[string][]byte),
		log:   logrus.StandardLogger(),
	}
}

func (m *Memblob) Put(ctx context.Context, key string, value []byte, behaviour PutBehaviour) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, exists := m.blobs[key]
	write, err := CheckOverwrite(m.log, behaviour, key, existing, exists, value)
	if err != nil || !write {
		return err
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	m.blobs[key] = stored
	return nil
}

func (m *Memblob) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.blobs[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

func (m *Memblob) IsPresent(ctx context.Context, key string) (Presence, error) {
	if err := ctx.Err(); err != nil {
		return Absent, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.blobs[key]; ok {
		return Present, nil
	}
	return Absent, nil
}

// Len reports the number of stored blobs.
func (m *Memblob) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
