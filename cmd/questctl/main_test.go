package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"encrypted-quest-backend/internal/config"
	"encrypted-quest-backend/internal/handlers"
	"encrypted-quest-backend/internal/keys"
	"encrypted-quest-backend/internal/models"
	"encrypted-quest-backend/internal/services"
)

func startServer(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	store := services.NewMemoryStore()
	deployer, err := keys.GenerateSigner()
	require.NoError(t, err)
	engine, err := services.NewQuestEngine(context.Background(), store, services.EngineConfig{
		Seed:     []byte("questctl-test-seed"),
		ChainID:  31337,
		Deployer: deployer,
		Logger:   logger,
	})
	require.NoError(t, err)
	jwtService, err := services.NewJWTService(&config.Config{JWTSecret: "questctl", JWTTTL: time.Hour})
	require.NoError(t, err)

	srv := httptest.NewServer(handlers.NewRouter(handlers.RouterConfig{
		Engine: engine,
		Auth:   services.NewAuthService(store, jwtService, logger),
		JWT:    jwtService,
		Logger: logger,
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(append([]string{"questctl"}, args...))
	return out.String(), err
}

func TestPlayThroughCLI(t *testing.T) {
	url := startServer(t)
	player, err := keys.GenerateSigner()
	require.NoError(t, err)
	key := player.PrivateKeyHex()

	out, err := run(t, "--api", url, "addresses")
	require.NoError(t, err)
	assert.Contains(t, out, "TaskGame:")

	out, err = run(t, "--api", url, "tasks")
	require.NoError(t, err)
	assert.Contains(t, out, "1. Scout the Ruins (100.000000 COIN)")

	_, err = run(t, "--api", url, "--key", key, "decrypt-mask")
	assert.ErrorIs(t, err, models.ErrNoEncryptedData)

	_, err = run(t, "--api", url, "--key", key, "join")
	require.NoError(t, err)

	for _, task := range []string{"1", "2", "1"} {
		_, err = run(t, "--api", url, "--key", key, "claim", "--task", task)
		require.NoError(t, err)
	}

	out, err = run(t, "--api", url, "--key", key, "decrypt-mask", "--balance")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, []string{
		"Task 1: completed",
		"Task 2: completed",
		"Task 3: pending",
		"Task 4: pending",
		"Task 5: pending",
		"Balance: 250.000000 COIN",
	}, lines)
}

func TestClaimValidatesTaskBeforeConnecting(t *testing.T) {
	// Nothing listens on this address, so any network call would fail with
	// a different error.
	_, err := run(t, "--api", "http://127.0.0.1:1", "--key", "00", "claim", "--task", "6")
	assert.ErrorIs(t, err, models.ErrInvalidTaskID)
	assert.Equal(t, "Choose a task from the board.", err.Error())

	_, err = run(t, "--api", "http://127.0.0.1:1", "join")
	assert.Error(t, err)
}
