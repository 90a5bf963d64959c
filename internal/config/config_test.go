package config_test

import (
	"testing"
	"time"

	"encrypted-quest-backend/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORE_BACKEND", "CHAIN_ID", "JWT_TTL"} {
		t.Setenv(key, "")
	}
	t.Setenv("ENV", "development")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, config.StoreMemory, cfg.StoreBackend)
	assert.Equal(t, uint64(31337), cfg.ChainID)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, logrus.DebugLevel, cfg.NewLogger().GetLevel())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("JWT_TTL", "90m")
	t.Setenv("CHAIN_ID", "8009")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, config.StoreRedis, cfg.StoreBackend)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 90*time.Minute, cfg.JWTTTL)
	assert.Equal(t, uint64(8009), cfg.ChainID)
}

func TestValidate(t *testing.T) {
	cfg := &config.Config{StoreBackend: "postgres", RateLimitRPS: 1, RateLimitBurst: 1}
	assert.Error(t, cfg.Validate())

	cfg = &config.Config{Env: "production", StoreBackend: config.StoreRedis, RateLimitRPS: 1, RateLimitBurst: 1}
	assert.Error(t, cfg.Validate())

	cfg.JWTSecret, cfg.CoprocessorSeed, cfg.DeployerKey = "s", "seed", "0x01"
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.IsProduction())
}
