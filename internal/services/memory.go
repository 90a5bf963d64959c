package services

import (
	"context"
	"sync"
	"time"

	"encrypted-quest-backend/internal/chain"
	"encrypted-quest-backend/internal/fhe"
	"encrypted-quest-backend/internal/models"

	"golang.org/x/time/rate"
)

type challengeEntry struct {
	value   string
	expires time.Time
}

// MemoryStore keeps everything in process. It backs development runs and
// tests.
type MemoryStore struct {
	*chain.MemoryState
	*fhe.MemoryStore

	mu         sync.Mutex
	challenges map[models.Address]challengeEntry
	limiters   map[string]*rate.Limiter
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		MemoryState: chain.NewMemoryState(),
		MemoryStore: fhe.NewMemoryStore(),
		challenges:  make(map[models.Address]challengeEntry),
		limiters:    make(map[string]*rate.Limiter),
		now:         time.Now,
	}
}

func (m *MemoryStore) SaveChallenge(_ context.Context, addr models.Address, challenge string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.challenges[addr] = challengeEntry{value: challenge, expires: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) ConsumeChallenge(_ context.Context, addr models.Address) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.challenges[addr]
	delete(m.challenges, addr)
	if !ok || !m.now().Before(e.expires) {
		return "", ErrChallengeNotFound
	}
	return e.value, nil
}

// CheckRateLimit allows limit actions per window with a token bucket.
func (m *MemoryStore) CheckRateLimit(_ context.Context, subject, action string, limit int, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := subject + ":" + action
	l, ok := m.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit)
		m.limiters[key] = l
	}
	return l.AllowN(m.now(), 1), nil
}

func (m *MemoryStore) Close() error { return nil }
