package chain

import (
	"context"
	"sync"
)

// MemoryState is an in-process StateStore.
type MemoryState struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryState() *MemoryState {
	return &MemoryState{data: make(map[string][]byte)}
}

func (m *MemoryState) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryState) Commit(_ context.Context, writes map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range writes {
		m.data[k] = v
	}
	return nil
}

// Len is the number of keys held.
func (m *MemoryState) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
