// Package coin is the confidential COIN ledger. Balances exist only as
// ciphertext handles; only the configured minter can credit them.
package coin

import (
	"context"
	"fmt"

	"encrypted-quest-backend/internal/chain"
	"encrypted-quest-backend/internal/fhe"
	"encrypted-quest-backend/internal/models"
)

const (
	keyMinterFmt  = "coin:%x:minter"
	keyBalanceFmt = "coin:%x:balance:%x"
)

var Metadata = models.CoinMetadata{
	Name:     "Quest Coin",
	Symbol:   "COIN",
	Decimals: models.CoinDecimals,
}

type Coin struct {
	address models.Address
	owner   models.Address
	cp      *fhe.Coprocessor
}

func New(address, owner models.Address, cp *fhe.Coprocessor) *Coin {
	return &Coin{address: address, owner: owner, cp: cp}
}

func (c *Coin) Address() models.Address { return c.address }

func (c *Coin) Owner() models.Address { return c.owner }

// SetMinter designates the only account allowed to credit balances.
func (c *Coin) SetMinter(ctx context.Context, tx *chain.Tx, minter models.Address) error {
	if tx.Sender() != c.owner {
		return fmt.Errorf("%w: only the owner can set the minter", models.ErrUnauthorized)
	}
	if minter.IsZero() {
		return fmt.Errorf("minter must not be the zero address")
	}
	return tx.Set(ctx, fmt.Sprintf(keyMinterFmt, c.address[:]), minter[:])
}

func (c *Coin) Minter(ctx context.Context, kv chain.Reader) (models.Address, error) {
	raw, ok, err := kv.Get(ctx, fmt.Sprintf(keyMinterFmt, c.address[:]))
	if err != nil || !ok {
		return models.ZeroAddress, err
	}
	var a models.Address
	copy(a[:], raw)
	return a, nil
}

// Credit adds the encrypted delta to the balance of to and returns the new
// balance handle. delta must already be granted to the coin.
func (c *Coin) Credit(ctx context.Context, tx *chain.Tx, to models.Address, delta models.Handle) (models.Handle, error) {
	minter, err := c.Minter(ctx, tx)
	if err != nil {
		return models.ZeroHandle, err
	}
	if minter.IsZero() || tx.Sender() != minter {
		return models.ZeroHandle, fmt.Errorf("%w: only the minter can credit", models.ErrUnauthorized)
	}

	ev := c.cp.Bind(c.address, fhe.NewACL(tx))

	current, err := c.ConfidentialBalanceOf(ctx, tx, to)
	if err != nil {
		return models.ZeroHandle, err
	}
	if current.IsZero() {
		if current, err = ev.AsUint64(ctx, 0); err != nil {
			return models.ZeroHandle, err
		}
	}

	balance, err := ev.Add(ctx, current, delta)
	if err != nil {
		return models.ZeroHandle, err
	}
	if err := ev.Allow(ctx, balance, to); err != nil {
		return models.ZeroHandle, err
	}
	if err := tx.Set(ctx, c.balanceKey(to), balance[:]); err != nil {
		return models.ZeroHandle, err
	}
	return balance, nil
}

// ConfidentialBalanceOf returns the balance handle of addr, or the zero handle
// if it was never credited.
func (c *Coin) ConfidentialBalanceOf(ctx context.Context, kv chain.Reader, addr models.Address) (models.Handle, error) {
	raw, ok, err := kv.Get(ctx, c.balanceKey(addr))
	if err != nil {
		return models.ZeroHandle, fmt.Errorf("read balance: %w", err)
	}
	if !ok {
		return models.ZeroHandle, nil
	}
	var h models.Handle
	copy(h[:], raw)
	return h, nil
}

func (c *Coin) balanceKey(addr models.Address) string {
	return fmt.Sprintf(keyBalanceFmt, c.address[:], addr[:])
}
