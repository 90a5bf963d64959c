// Package quest is the player-side client: it joins, submits encrypted
// claims and decrypts the player's own progress.
package quest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"encrypted-quest-backend/internal/models"
	"encrypted-quest-backend/internal/relayer"
	"encrypted-quest-backend/internal/session"

	"github.com/sirupsen/logrus"
)

// Ledger is the contract surface, bound to the signing player.
type Ledger interface {
	Deployment(ctx context.Context) (*models.Deployment, error)
	GetTasks(ctx context.Context) ([]models.Task, error)
	HasJoined(ctx context.Context, addr models.Address) (bool, error)
	GetPlayerTaskMask(ctx context.Context, addr models.Address) (models.Handle, error)
	ConfidentialBalanceOf(ctx context.Context, addr models.Address) (models.Handle, error)
	JoinGame(ctx context.Context) (*models.Receipt, error)
	ClaimTask(ctx context.Context, taskID models.Handle, proof []byte) (*models.Receipt, error)
}

type Action string

const (
	ActionJoin    Action = "join"
	ActionClaim   Action = "claim"
	ActionDecrypt Action = "decrypt"
)

type Client struct {
	ledger  Ledger
	relayer *relayer.Instance
	signer  session.Signer
	log     *logrus.Logger

	mu         sync.Mutex
	pending    map[Action]bool
	deployment *models.Deployment
	tasks      []models.Task
}

func NewClient(ledger Ledger, r *relayer.Instance, signer session.Signer, log *logrus.Logger) *Client {
	if log == nil {
		log = logrus.New()
	}
	return &Client{
		ledger:  ledger,
		relayer: r,
		signer:  signer,
		log:     log,
		pending: make(map[Action]bool),
	}
}

func (c *Client) Address() models.Address { return c.signer.Address() }

// Init connects the relayer SDK to the gateway.
func (c *Client) Init(ctx context.Context) error {
	return c.relayer.Init(ctx)
}

// Pending reports whether an action of kind a is in flight.
func (c *Client) Pending(a Action) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending[a]
}

func (c *Client) begin(a Action) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending[a] {
		return fmt.Errorf("%w: %s", models.ErrActionPending, a)
	}
	c.pending[a] = true
	return nil
}

func (c *Client) end(a Action) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, a)
}

func (c *Client) Deployment(ctx context.Context) (*models.Deployment, error) {
	c.mu.Lock()
	d := c.deployment
	c.mu.Unlock()
	if d != nil {
		return d, nil
	}

	d, err := c.ledger.Deployment(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.deployment = d
	c.mu.Unlock()
	return d, nil
}

func (c *Client) Tasks(ctx context.Context) ([]models.Task, error) {
	c.mu.Lock()
	tasks := c.tasks
	c.mu.Unlock()
	if tasks != nil {
		return tasks, nil
	}

	tasks, err := c.ledger.GetTasks(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.tasks = tasks
	c.mu.Unlock()
	return tasks, nil
}

func (c *Client) HasJoined(ctx context.Context) (bool, error) {
	return c.ledger.HasJoined(ctx, c.Address())
}

func (c *Client) Join(ctx context.Context) (*models.Receipt, error) {
	if err := c.begin(ActionJoin); err != nil {
		return nil, err
	}
	defer c.end(ActionJoin)

	receipt, err := c.ledger.JoinGame(ctx)
	if err != nil {
		return nil, err
	}
	c.log.WithField("tx", receipt.TxHash).Info("joined the quest")
	return receipt, nil
}

// Claim encrypts taskID for the game contract and submits the claim. The
// id is checked against the board before anything is encrypted.
func (c *Client) Claim(ctx context.Context, taskID int) (*models.Receipt, error) {
	if err := c.begin(ActionClaim); err != nil {
		return nil, err
	}
	defer c.end(ActionClaim)

	tasks, err := c.Tasks(ctx)
	if err != nil {
		return nil, err
	}
	if err := models.ValidateTaskID(taskID, len(tasks)); err != nil {
		return nil, err
	}
	d, err := c.Deployment(ctx)
	if err != nil {
		return nil, err
	}

	input, err := c.relayer.CreateEncryptedInput(d.TaskGame, c.Address()).Add64(uint64(taskID)).Encrypt(ctx)
	if err != nil {
		return nil, err
	}

	receipt, err := c.ledger.ClaimTask(ctx, input.Handles[0], input.InputProof)
	if err != nil {
		return nil, err
	}
	c.log.WithField("tx", receipt.TxHash).Info("claim submitted")
	return receipt, nil
}

// DecryptProgress runs a decryption session over the player's mask and,
// with withBalance, the COIN balance.
func (c *Client) DecryptProgress(ctx context.Context, withBalance bool) (*models.Progress, error) {
	if err := c.begin(ActionDecrypt); err != nil {
		return nil, err
	}
	defer c.end(ActionDecrypt)

	d, err := c.Deployment(ctx)
	if err != nil {
		return nil, err
	}
	tasks, err := c.Tasks(ctx)
	if err != nil {
		return nil, err
	}

	mask, err := c.ledger.GetPlayerTaskMask(ctx, c.Address())
	if err != nil {
		return nil, err
	}
	if mask.IsZero() {
		return nil, models.ErrNoEncryptedData
	}
	pairs := []models.HandleContractPair{{Handle: mask, Contract: d.TaskGame}}

	var balance models.Handle
	if withBalance {
		if balance, err = c.ledger.ConfidentialBalanceOf(ctx, c.Address()); err != nil {
			return nil, err
		}
		if !balance.IsZero() {
			pairs = append(pairs, models.HandleContractPair{Handle: balance, Contract: d.Coin})
		}
	}

	results, err := session.Decrypt(ctx, c.relayer, c.signer, pairs)
	if err != nil {
		return nil, err
	}

	maskValue, ok := results.Get(mask)
	if !ok {
		return nil, fmt.Errorf("%w: mask missing from decryption results", models.ErrNetworkOrTransaction)
	}
	progress := models.NewProgress(c.Address(), tasks, maskValue)
	if v, ok := results.Get(balance); ok && !balance.IsZero() {
		progress.Balance = v
		progress.HasBalance = true
	}
	return progress, nil
}

// Message turns an error into the text shown to the player.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, models.ErrAlreadyJoined):
		return "You have already joined the game."
	case errors.Is(err, models.ErrNotJoined):
		return "Join the game before claiming tasks."
	case errors.Is(err, models.ErrInvalidProof):
		return "The encrypted input was rejected. Please try again."
	case errors.Is(err, models.ErrInvalidTaskID):
		return "Choose a task from the board."
	case errors.Is(err, models.ErrEncryptionServiceUnavailable):
		return "Encryption service is not ready yet."
	case errors.Is(err, models.ErrNoEncryptedData):
		return "No encrypted progress found yet. Join and claim a task first."
	case errors.Is(err, models.ErrAuthorizationExpired):
		return "The decryption authorization has expired. Sign a new one."
	case errors.Is(err, models.ErrAuthorizationRejected):
		return "Decryption was not authorized."
	case errors.Is(err, models.ErrActionPending):
		return "Please wait for the current action to finish."
	case errors.Is(err, models.ErrRateLimited):
		return "Too many requests. Please wait."
	default:
		return fmt.Sprintf("Something went wrong: %v", err)
	}
}
