// Package chain runs ledger transactions one at a time against a key-value
// state store. Writes are buffered per transaction and committed atomically
// only when the transaction succeeds.
package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"encrypted-quest-backend/internal/metrics"
	"encrypted-quest-backend/internal/models"

	"github.com/sirupsen/logrus"
)

const (
	keyBlock      = "chain:block"
	keyReceiptFmt = "chain:receipt:%s"
)

var (
	ErrReceiptNotFound = errors.New("chain: receipt not found")
	ErrReadOnly        = errors.New("chain: state is read-only outside a transaction")
)

// StateStore is the durable state behind the host. Commit must apply all
// writes or none.
type StateStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Commit(ctx context.Context, writes map[string][]byte) error
}

// Reader is satisfied by Tx, View and every StateStore.
type Reader interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
}

// Publisher receives the events of committed transactions.
type Publisher interface {
	Publish(receipt *models.Receipt)
}

type Host struct {
	mu    sync.Mutex
	state StateStore
	log   *logrus.Logger
	now   func() time.Time

	pubMu      sync.RWMutex
	publishers []Publisher
}

func NewHost(state StateStore, log *logrus.Logger) *Host {
	if log == nil {
		log = logrus.New()
	}
	return &Host{state: state, log: log, now: time.Now}
}

// Subscribe registers p for receipts of future committed transactions.
func (h *Host) Subscribe(p Publisher) {
	h.pubMu.Lock()
	defer h.pubMu.Unlock()
	h.publishers = append(h.publishers, p)
}

// Execute runs fn as one transaction from sender against contract. The
// returned error is fn's error unchanged; in that case nothing is written.
func (h *Host) Execute(ctx context.Context, from, to models.Address, method string, fn func(tx *Tx) error) (*models.Receipt, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	block, err := h.blockNumber(ctx)
	if err != nil {
		metrics.RecordTransaction(method, false)
		return nil, fmt.Errorf("%w: %v", models.ErrNetworkOrTransaction, err)
	}

	buf := &buffer{state: h.state, writes: make(map[string][]byte)}
	tx := &Tx{buffer: buf, origin: from, sender: from, block: block + 1}

	entry := h.log.WithFields(logrus.Fields{
		"from":   from.Hex(),
		"to":     to.Hex(),
		"method": method,
	})

	if err := fn(tx); err != nil {
		metrics.RecordTransaction(method, false)
		entry.WithError(err).Debug("transaction reverted")
		return nil, err
	}

	receipt := &models.Receipt{
		TxHash:    models.GenerateTransactionID(),
		Block:     block + 1,
		From:      from,
		To:        to,
		Method:    method,
		Status:    models.ReceiptStatusSuccess,
		Events:    buf.events,
		CreatedAt: h.now().UTC(),
	}
	if receipt.Events == nil {
		receipt.Events = []models.Event{}
	}

	data, err := json.Marshal(receipt)
	if err != nil {
		metrics.RecordTransaction(method, false)
		return nil, fmt.Errorf("encode receipt: %w", err)
	}
	buf.writes[fmt.Sprintf(keyReceiptFmt, receipt.TxHash)] = data
	buf.writes[keyBlock] = []byte(strconv.FormatUint(receipt.Block, 10))

	if err := h.state.Commit(ctx, buf.writes); err != nil {
		metrics.RecordTransaction(method, false)
		entry.WithError(err).Error("commit failed")
		return nil, fmt.Errorf("%w: commit: %v", models.ErrNetworkOrTransaction, err)
	}

	metrics.RecordTransaction(method, true)
	entry.WithFields(logrus.Fields{
		"tx":     receipt.TxHash,
		"block":  receipt.Block,
		"writes": len(buf.writes),
	}).Info("transaction committed")

	h.publish(receipt)
	return receipt, nil
}

// View returns read-only access to committed state.
func (h *Host) View() *View {
	return &View{state: h.state}
}

func (h *Host) BlockNumber(ctx context.Context) (uint64, error) {
	return h.blockNumber(ctx)
}

func (h *Host) Receipt(ctx context.Context, hash string) (*models.Receipt, error) {
	data, ok, err := h.state.Get(ctx, fmt.Sprintf(keyReceiptFmt, hash))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrReceiptNotFound, hash)
	}
	var r models.Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode receipt %s: %w", hash, err)
	}
	return &r, nil
}

func (h *Host) blockNumber(ctx context.Context) (uint64, error) {
	raw, ok, err := h.state.Get(ctx, keyBlock)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt block number %q: %w", raw, err)
	}
	return n, nil
}

func (h *Host) publish(r *models.Receipt) {
	h.pubMu.RLock()
	defer h.pubMu.RUnlock()
	for _, p := range h.publishers {
		p.Publish(r)
	}
}

// View reads committed state. It satisfies fhe.KV but refuses writes.
type View struct {
	state StateStore
}

func (v *View) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return v.state.Get(ctx, key)
}

func (v *View) Set(context.Context, string, []byte) error {
	return ErrReadOnly
}

// GetJSON decodes the value at key into out and reports whether it existed.
func GetJSON(ctx context.Context, kv Reader, key string, out any) (bool, error) {
	raw, ok, err := kv.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}
