package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"encrypted-quest-backend/internal/chain"
	"encrypted-quest-backend/internal/config"
	"encrypted-quest-backend/internal/fhe"
	"encrypted-quest-backend/internal/models"

	"github.com/sirupsen/logrus"
)

var ErrChallengeNotFound = errors.New("challenge not found or expired")

// Store is everything the server persists: ledger state, sealed
// ciphertexts, login challenges and rate-limit counters.
type Store interface {
	chain.StateStore
	fhe.CiphertextStore

	SaveChallenge(ctx context.Context, addr models.Address, challenge string, ttl time.Duration) error
	ConsumeChallenge(ctx context.Context, addr models.Address) (string, error)
	CheckRateLimit(ctx context.Context, subject, action string, limit int, window time.Duration) (bool, error)
	Close() error
}

// NewStore opens the backend selected by STORE_BACKEND.
func NewStore(cfg *config.Config, log *logrus.Logger) (Store, error) {
	switch cfg.StoreBackend {
	case config.StoreRedis:
		return NewRedisService(cfg, log)
	case config.StoreMemory, "":
		log.Warn("using in-memory store, state is lost on restart")
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
