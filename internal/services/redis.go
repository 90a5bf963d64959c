package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"encrypted-quest-backend/internal/config"
	"encrypted-quest-backend/internal/fhe"
	"encrypted-quest-backend/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type RedisService struct {
	client *redis.Client
	log    *logrus.Logger
}

func NewRedisService(cfg *config.Config, log *logrus.Logger) (*RedisService, error) {
	if log == nil {
		log = logrus.New()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	log.WithField("addr", cfg.RedisURL).Info("connected to redis")
	return &RedisService{client: client, log: log}, nil
}

func (s *RedisService) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(KeyState, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s: %v", key, err)
	}
	return data, true, nil
}

// Commit applies all writes in one MULTI/EXEC block.
func (s *RedisService) Commit(ctx context.Context, writes map[string][]byte) error {
	if len(writes) == 0 {
		return nil
	}
	tx := s.client.TxPipeline()
	for k, v := range writes {
		tx.Set(ctx, fmt.Sprintf(KeyState, k), v, 0)
	}
	if _, err := tx.Exec(ctx); err != nil {
		return fmt.Errorf("failed to commit %d writes: %v", len(writes), err)
	}
	return nil
}

func (s *RedisService) PutCiphertext(ctx context.Context, h models.Handle, sealed []byte) error {
	return s.client.Set(ctx, fmt.Sprintf(KeyCiphertext, h[:]), sealed, 0).Err()
}

func (s *RedisService) GetCiphertext(ctx context.Context, h models.Handle) ([]byte, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(KeyCiphertext, h[:])).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fhe.ErrCiphertextNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ciphertext: %v", err)
	}
	return data, nil
}

func (s *RedisService) SaveChallenge(ctx context.Context, addr models.Address, challenge string, ttl time.Duration) error {
	return s.client.Set(ctx, fmt.Sprintf(KeyChallenge, addr[:]), challenge, ttl).Err()
}

// ConsumeChallenge returns the pending challenge for addr and deletes it, so
// each challenge can sign in at most once.
func (s *RedisService) ConsumeChallenge(ctx context.Context, addr models.Address) (string, error) {
	challenge, err := s.client.GetDel(ctx, fmt.Sprintf(KeyChallenge, addr[:])).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrChallengeNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get challenge: %v", err)
	}
	return challenge, nil
}

func (s *RedisService) CheckRateLimit(ctx context.Context, subject, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, subject, action)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %v", err)
	}

	if count == 1 {
		s.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

// ClearRateLimit drops the counter for subject and action.
func (s *RedisService) ClearRateLimit(ctx context.Context, subject, action string) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyRateLimit, subject, action)).Err()
}

// DeleteState removes ledger keys. It exists for test cleanup only; the
// ledger itself never deletes.
func (s *RedisService) DeleteState(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = fmt.Sprintf(KeyState, k)
	}
	return s.client.Del(ctx, full...).Err()
}

func (s *RedisService) Close() error {
	return s.client.Close()
}
