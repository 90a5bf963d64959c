package services_test

import (
	"context"
	"errors"
	"testing"

	"encrypted-quest-backend/internal/keys"
	"encrypted-quest-backend/internal/models"
	"encrypted-quest-backend/internal/services"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)
	return l
}

func setupEngine(t *testing.T, store services.Store, deployer *keys.Signer) *services.QuestEngine {
	t.Helper()
	engine, err := services.NewQuestEngine(context.Background(), store, services.EngineConfig{
		Seed:     []byte("engine-test-seed"),
		ChainID:  31337,
		Deployer: deployer,
		Logger:   testLogger(),
	})
	if err != nil {
		t.Fatalf("Failed to start engine: %v", err)
	}
	return engine
}

func TestQuestEngine(t *testing.T) {
	ctx := context.Background()
	deployer, err := keys.GenerateSigner()
	if err != nil {
		t.Fatal(err)
	}
	engine := setupEngine(t, services.NewMemoryStore(), deployer)

	d := engine.Deployment()
	if d.TaskGame != keys.ContractAddress(deployer.Address(), 1) {
		t.Errorf("TaskGame should be deployed at nonce 1, got %s", d.TaskGame)
	}
	if d.Coin != keys.ContractAddress(deployer.Address(), 0) {
		t.Errorf("Coin should be deployed at nonce 0, got %s", d.Coin)
	}
	if d.ChainID != 31337 {
		t.Errorf("Expected chain id 31337, got %d", d.ChainID)
	}
	if len(engine.Tasks()) != models.TaskCount {
		t.Errorf("Expected %d tasks, got %d", models.TaskCount, len(engine.Tasks()))
	}
	if engine.CoinMetadata().Symbol != "COIN" {
		t.Errorf("Expected COIN symbol, got %s", engine.CoinMetadata().Symbol)
	}

	player := models.Address{0x42}
	receipt, err := engine.JoinGame(ctx, player)
	if err != nil {
		t.Fatalf("Failed to join: %v", err)
	}
	if len(receipt.Events) != 1 || receipt.Events[0].Type != models.EventPlayerJoined {
		t.Errorf("Join should emit one PlayerJoined event, got %+v", receipt.Events)
	}

	stored, err := engine.Receipt(ctx, receipt.TxHash)
	if err != nil {
		t.Fatalf("Failed to load receipt: %v", err)
	}
	if stored.Block != receipt.Block {
		t.Errorf("Stored receipt block %d, expected %d", stored.Block, receipt.Block)
	}

	if _, err := engine.JoinGame(ctx, player); !errors.Is(err, models.ErrAlreadyJoined) {
		t.Errorf("Second join should fail with ErrAlreadyJoined, got %v", err)
	}

	record, err := engine.GetPlayer(ctx, player)
	if err != nil {
		t.Fatalf("Failed to get player: %v", err)
	}
	if !record.Joined || record.TaskMask.IsZero() {
		t.Errorf("Player record should be joined with a mask handle, got %+v", record)
	}

	balance, err := engine.ConfidentialBalanceOf(ctx, player)
	if err != nil {
		t.Fatalf("Failed to get balance: %v", err)
	}
	if balance.IsZero() {
		t.Error("Joined player should hold a balance handle")
	}

	if _, err := engine.Receipt(ctx, "tx_missing"); !services.IsReceiptNotFound(err) {
		t.Errorf("Missing receipt should be reported as not found, got %v", err)
	}
}

func TestDeployIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := services.NewMemoryStore()
	deployer, err := keys.GenerateSigner()
	if err != nil {
		t.Fatal(err)
	}

	first := setupEngine(t, store, deployer)
	player := models.Address{0x42}
	if _, err := first.JoinGame(ctx, player); err != nil {
		t.Fatalf("Failed to join: %v", err)
	}
	entries := store.Len()

	second := setupEngine(t, store, deployer)
	if store.Len() != entries {
		t.Errorf("Restart should not write state, had %d keys now %d", entries, store.Len())
	}
	if second.Deployment() != first.Deployment() {
		t.Errorf("Restart should reuse the deployment")
	}

	joined, err := second.HasJoined(ctx, player)
	if err != nil {
		t.Fatalf("Failed to read player: %v", err)
	}
	if !joined {
		t.Error("Player should still be joined after restart")
	}
}

func TestJoinRateLimit(t *testing.T) {
	ctx := context.Background()
	deployer, err := keys.GenerateSigner()
	if err != nil {
		t.Fatal(err)
	}
	engine := setupEngine(t, services.NewMemoryStore(), deployer)

	player := models.Address{0x43}
	if _, err := engine.JoinGame(ctx, player); err != nil {
		t.Fatalf("Failed to join: %v", err)
	}

	var lastErr error
	for i := 0; i < services.DefaultRateLimitJoin; i++ {
		_, lastErr = engine.JoinGame(ctx, player)
	}
	if !errors.Is(lastErr, models.ErrRateLimited) {
		t.Errorf("Expected ErrRateLimited after %d joins, got %v", services.DefaultRateLimitJoin+1, lastErr)
	}
}

func TestNewQuestEngineRequiresDeployer(t *testing.T) {
	_, err := services.NewQuestEngine(context.Background(), services.NewMemoryStore(), services.EngineConfig{
		Seed: []byte("engine-test-seed"),
	})
	if err == nil {
		t.Error("Engine without a deployer should fail")
	}
}
