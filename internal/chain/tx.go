package chain

import (
	"context"
	"encoding/json"
	"fmt"

	"encrypted-quest-backend/internal/models"
)

type buffer struct {
	state  StateStore
	writes map[string][]byte
	events []models.Event
}

// Tx is the state a contract method sees. Reads observe the transaction's own
// writes; nothing reaches the store until the host commits.
type Tx struct {
	*buffer
	origin models.Address
	sender models.Address
	block  uint64
}

// Sender is the immediate caller: the origin account, or the calling contract
// inside a nested call.
func (tx *Tx) Sender() models.Address { return tx.sender }

// Origin is the account that signed the transaction.
func (tx *Tx) Origin() models.Address { return tx.origin }

func (tx *Tx) Block() uint64 { return tx.block }

// Call returns a view of the same transaction with caller as sender, for
// contract-to-contract calls.
func (tx *Tx) Call(caller models.Address) *Tx {
	return &Tx{buffer: tx.buffer, origin: tx.origin, sender: caller, block: tx.block}
}

func (tx *Tx) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok := tx.writes[key]; ok {
		return v, true, nil
	}
	return tx.state.Get(ctx, key)
}

func (tx *Tx) Set(_ context.Context, key string, value []byte) error {
	tx.writes[key] = append([]byte(nil), value...)
	return nil
}

func (tx *Tx) SetJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return tx.Set(ctx, key, data)
}

func (tx *Tx) Emit(ev models.Event) {
	tx.events = append(tx.events, ev)
}
