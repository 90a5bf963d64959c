package fhe

import (
	"context"
	"sync"

	"encrypted-quest-backend/internal/models"
)

// MemoryStore is an in-process CiphertextStore.
type MemoryStore struct {
	mu  sync.RWMutex
	cts map[models.Handle][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cts: make(map[models.Handle][]byte)}
}

func (m *MemoryStore) PutCiphertext(_ context.Context, h models.Handle, sealed []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cts[h] = sealed
	return nil
}

func (m *MemoryStore) GetCiphertext(_ context.Context, h models.Handle) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.cts[h]
	if !ok {
		return nil, ErrCiphertextNotFound
	}
	return b, nil
}
