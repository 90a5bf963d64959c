package services

import (
	"context"
	"errors"
	"fmt"

	"encrypted-quest-backend/internal/chain"
	"encrypted-quest-backend/internal/coin"
	"encrypted-quest-backend/internal/fhe"
	"encrypted-quest-backend/internal/gateway"
	"encrypted-quest-backend/internal/keys"
	"encrypted-quest-backend/internal/ledger"
	"encrypted-quest-backend/internal/models"

	"github.com/sirupsen/logrus"
)

type EngineConfig struct {
	Seed     []byte
	ChainID  uint64
	Deployer *keys.Signer
	Tasks    []models.Task
	Logger   *logrus.Logger
}

// QuestEngine owns the deployed quest: the coprocessor, the host ledger and
// the two contracts. Handlers and in-process clients go through it.
type QuestEngine struct {
	store    Store
	host     *chain.Host
	cp       *fhe.Coprocessor
	gateway  *gateway.Gateway
	coin     *coin.Coin
	game     *ledger.TaskGame
	deployer models.Address
	log      *logrus.Logger
}

func NewQuestEngine(ctx context.Context, store Store, cfg EngineConfig) (*QuestEngine, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Deployer == nil {
		return nil, fmt.Errorf("deployer key is required")
	}
	if cfg.Tasks == nil {
		cfg.Tasks = models.DefaultTasks
	}

	cp, err := fhe.New(fhe.Config{
		Seed:    cfg.Seed,
		ChainID: cfg.ChainID,
		Store:   store,
		Logger:  cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start coprocessor: %v", err)
	}

	deployer := cfg.Deployer.Address()
	c := coin.New(keys.ContractAddress(deployer, 0), deployer, cp)
	game, err := ledger.New(keys.ContractAddress(deployer, 1), cfg.Tasks, c, cp)
	if err != nil {
		return nil, fmt.Errorf("invalid task board: %v", err)
	}

	host := chain.NewHost(store, cfg.Logger)
	e := &QuestEngine{
		store:    store,
		host:     host,
		cp:       cp,
		gateway:  gateway.New(cp, host.View(), cfg.Logger),
		coin:     c,
		game:     game,
		deployer: deployer,
		log:      cfg.Logger,
	}

	if err := e.deploy(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// deploy wires the coin to the game. It is a no-op when the state already
// holds a deployment.
func (e *QuestEngine) deploy(ctx context.Context) error {
	minter, err := e.coin.Minter(ctx, e.host.View())
	if err != nil {
		return fmt.Errorf("failed to read minter: %v", err)
	}
	if minter == e.game.Address() {
		e.log.WithField("task_game", e.game.Address().Hex()).Info("using existing deployment")
		return nil
	}

	_, err = e.host.Execute(ctx, e.deployer, e.coin.Address(), "setMinter", func(tx *chain.Tx) error {
		return e.coin.SetMinter(ctx, tx, e.game.Address())
	})
	if err != nil {
		return fmt.Errorf("failed to deploy: %v", err)
	}

	e.log.WithFields(logrus.Fields{
		"coin":      e.coin.Address().Hex(),
		"task_game": e.game.Address().Hex(),
		"verifier":  e.cp.VerifierAddress().Hex(),
	}).Info("quest deployed")
	return nil
}

// SetBroadcaster forwards committed receipts to b.
func (e *QuestEngine) SetBroadcaster(b Broadcaster) {
	e.host.Subscribe(receiptPublisher{b: b})
}

func (e *QuestEngine) Gateway() *gateway.Gateway { return e.gateway }

// OpCount is the number of homomorphic operations evaluated so far.
func (e *QuestEngine) OpCount() uint64 { return e.cp.OpCount() }

func (e *QuestEngine) Deployment() models.Deployment {
	return models.Deployment{
		TaskGame:      e.game.Address(),
		Coin:          e.coin.Address(),
		InputVerifier: e.cp.VerifierAddress(),
		ChainID:       e.cp.ChainID(),
	}
}

func (e *QuestEngine) Tasks() []models.Task { return e.game.GetTasks() }

func (e *QuestEngine) CoinMetadata() models.CoinMetadata { return coin.Metadata }

func (e *QuestEngine) HasJoined(ctx context.Context, addr models.Address) (bool, error) {
	return e.game.HasJoined(ctx, e.host.View(), addr)
}

func (e *QuestEngine) GetPlayer(ctx context.Context, addr models.Address) (*models.PlayerRecord, error) {
	return e.game.GetPlayer(ctx, e.host.View(), addr)
}

func (e *QuestEngine) GetPlayerTaskMask(ctx context.Context, addr models.Address) (models.Handle, error) {
	return e.game.GetPlayerTaskMask(ctx, e.host.View(), addr)
}

func (e *QuestEngine) ConfidentialBalanceOf(ctx context.Context, addr models.Address) (models.Handle, error) {
	return e.coin.ConfidentialBalanceOf(ctx, e.host.View(), addr)
}

func (e *QuestEngine) Receipt(ctx context.Context, hash string) (*models.Receipt, error) {
	return e.host.Receipt(ctx, hash)
}

func (e *QuestEngine) JoinGame(ctx context.Context, caller models.Address) (*models.Receipt, error) {
	if err := e.checkRateLimit(ctx, caller, "join", DefaultRateLimitJoin); err != nil {
		return nil, err
	}
	return e.host.Execute(ctx, caller, e.game.Address(), "joinGame", func(tx *chain.Tx) error {
		return e.game.Join(ctx, tx)
	})
}

func (e *QuestEngine) ClaimTask(ctx context.Context, caller models.Address, taskID models.Handle, proof []byte) (*models.Receipt, error) {
	if err := e.checkRateLimit(ctx, caller, "claim", DefaultRateLimitClaim); err != nil {
		return nil, err
	}
	return e.host.Execute(ctx, caller, e.game.Address(), "claimTask", func(tx *chain.Tx) error {
		return e.game.ClaimTask(ctx, tx, taskID, proof)
	})
}

func (e *QuestEngine) checkRateLimit(ctx context.Context, caller models.Address, action string, limit int) error {
	allowed, err := e.store.CheckRateLimit(ctx, caller.Hex(), action, limit, rateWindow)
	if err != nil {
		return fmt.Errorf("%w: rate limit check failed: %v", models.ErrNetworkOrTransaction, err)
	}
	if !allowed {
		return models.ErrRateLimited
	}
	return nil
}

// As binds the engine to caller for in-process clients.
func (e *QuestEngine) As(caller models.Address) *LocalLedger {
	return &LocalLedger{engine: e, caller: caller}
}

// LocalLedger is the contract surface seen by one account.
type LocalLedger struct {
	engine *QuestEngine
	caller models.Address
}

func (l *LocalLedger) Deployment(context.Context) (*models.Deployment, error) {
	d := l.engine.Deployment()
	return &d, nil
}

func (l *LocalLedger) GetTasks(context.Context) ([]models.Task, error) {
	return l.engine.Tasks(), nil
}

func (l *LocalLedger) HasJoined(ctx context.Context, addr models.Address) (bool, error) {
	return l.engine.HasJoined(ctx, addr)
}

func (l *LocalLedger) GetPlayerTaskMask(ctx context.Context, addr models.Address) (models.Handle, error) {
	return l.engine.GetPlayerTaskMask(ctx, addr)
}

func (l *LocalLedger) ConfidentialBalanceOf(ctx context.Context, addr models.Address) (models.Handle, error) {
	return l.engine.ConfidentialBalanceOf(ctx, addr)
}

func (l *LocalLedger) JoinGame(ctx context.Context) (*models.Receipt, error) {
	return l.engine.JoinGame(ctx, l.caller)
}

func (l *LocalLedger) ClaimTask(ctx context.Context, taskID models.Handle, proof []byte) (*models.Receipt, error) {
	return l.engine.ClaimTask(ctx, l.caller, taskID, proof)
}

// IsReceiptNotFound reports whether err means no such transaction exists.
func IsReceiptNotFound(err error) bool {
	return errors.Is(err, chain.ErrReceiptNotFound)
}
