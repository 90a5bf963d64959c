// Package ledger holds the quest contract: per-player join state and the
// encrypted task mask, updated only through homomorphic operations.
package ledger

import (
	"context"
	"fmt"

	"encrypted-quest-backend/internal/chain"
	"encrypted-quest-backend/internal/coin"
	"encrypted-quest-backend/internal/fhe"
	"encrypted-quest-backend/internal/models"
)

const keyPlayerFmt = "quest:%x:player:%x"

type TaskGame struct {
	address models.Address
	tasks   []models.Task
	coin    *coin.Coin
	cp      *fhe.Coprocessor
}

func New(address models.Address, tasks []models.Task, c *coin.Coin, cp *fhe.Coprocessor) (*TaskGame, error) {
	if err := models.ValidateTasks(tasks); err != nil {
		return nil, err
	}
	return &TaskGame{
		address: address,
		tasks:   append([]models.Task(nil), tasks...),
		coin:    c,
		cp:      cp,
	}, nil
}

func (g *TaskGame) Address() models.Address { return g.address }

func (g *TaskGame) Coin() *coin.Coin { return g.coin }

func (g *TaskGame) GetTasks() []models.Task {
	return append([]models.Task(nil), g.tasks...)
}

// GetPlayer returns the stored record, or a record with Joined false.
func (g *TaskGame) GetPlayer(ctx context.Context, kv chain.Reader, addr models.Address) (*models.PlayerRecord, error) {
	var rec models.PlayerRecord
	ok, err := chain.GetJSON(ctx, kv, g.playerKey(addr), &rec)
	if err != nil {
		return nil, fmt.Errorf("read player %s: %w", addr, err)
	}
	if !ok {
		return &models.PlayerRecord{Address: addr}, nil
	}
	return &rec, nil
}

func (g *TaskGame) HasJoined(ctx context.Context, kv chain.Reader, addr models.Address) (bool, error) {
	rec, err := g.GetPlayer(ctx, kv, addr)
	if err != nil {
		return false, err
	}
	return rec.Joined, nil
}

// GetPlayerTaskMask returns the mask handle, or the zero handle for an
// address that never joined.
func (g *TaskGame) GetPlayerTaskMask(ctx context.Context, kv chain.Reader, addr models.Address) (models.Handle, error) {
	rec, err := g.GetPlayer(ctx, kv, addr)
	if err != nil {
		return models.ZeroHandle, err
	}
	return rec.TaskMask, nil
}

// Join registers the sender with an encrypted empty mask and a zero COIN
// balance.
func (g *TaskGame) Join(ctx context.Context, tx *chain.Tx) error {
	player := tx.Sender()
	rec, err := g.GetPlayer(ctx, tx, player)
	if err != nil {
		return err
	}
	if rec.Joined {
		return models.ErrAlreadyJoined
	}

	ev := g.cp.Bind(g.address, fhe.NewACL(tx))

	mask, err := ev.AsUint64(ctx, 0)
	if err != nil {
		return err
	}
	if err := ev.Allow(ctx, mask, player); err != nil {
		return err
	}

	opening, err := ev.AsUint64(ctx, 0)
	if err != nil {
		return err
	}
	balance, err := g.credit(ctx, tx, ev, player, opening)
	if err != nil {
		return err
	}

	rec = &models.PlayerRecord{
		Address:       player,
		Joined:        true,
		TaskMask:      mask,
		BalanceHandle: balance,
		JoinedBlock:   tx.Block(),
	}
	if err := tx.SetJSON(ctx, g.playerKey(player), rec); err != nil {
		return err
	}

	tx.Emit(models.Event{Type: models.EventPlayerJoined, Contract: g.address, Player: player})
	return nil
}

// ClaimTask marks the encrypted task id as completed and credits its reward
// unless it was already claimed. The sequence of operations and the outcome
// visible on the ledger are the same whether or not the claim is a
// duplicate, so nothing about the task id leaks.
func (g *TaskGame) ClaimTask(ctx context.Context, tx *chain.Tx, taskID models.Handle, proof []byte) error {
	player := tx.Sender()
	rec, err := g.GetPlayer(ctx, tx, player)
	if err != nil {
		return err
	}
	if !rec.Joined {
		return models.ErrNotJoined
	}

	ev := g.cp.Bind(g.address, fhe.NewACL(tx))

	id, err := ev.FromExternal(ctx, taskID, proof, player, fhe.TypeUint64)
	if err != nil {
		return err
	}

	bit, reward, err := g.selectTask(ctx, ev, id)
	if err != nil {
		return err
	}

	overlap, err := ev.And(ctx, rec.TaskMask, bit)
	if err != nil {
		return err
	}
	claimed, err := ev.NeScalar(ctx, overlap, 0)
	if err != nil {
		return err
	}
	nothing, err := ev.AsUint64(ctx, 0)
	if err != nil {
		return err
	}
	toApply, err := ev.Select(ctx, claimed, nothing, reward)
	if err != nil {
		return err
	}

	mask, err := ev.Or(ctx, rec.TaskMask, bit)
	if err != nil {
		return err
	}
	if err := ev.Allow(ctx, mask, player); err != nil {
		return err
	}

	balance, err := g.credit(ctx, tx, ev, player, toApply)
	if err != nil {
		return err
	}

	rec.TaskMask = mask
	rec.BalanceHandle = balance
	return tx.SetJSON(ctx, g.playerKey(player), rec)
}

// selectTask maps an encrypted id to its mask bit and reward with one
// encrypted equality test per task. Ids outside the board select nothing.
func (g *TaskGame) selectTask(ctx context.Context, ev *fhe.Evaluator, id models.Handle) (bit, reward models.Handle, err error) {
	if bit, err = ev.AsUint64(ctx, 0); err != nil {
		return
	}
	if reward, err = ev.AsUint64(ctx, 0); err != nil {
		return
	}

	for _, t := range g.tasks {
		var isTask, tBit, tReward models.Handle
		if isTask, err = ev.EqScalar(ctx, id, uint64(t.ID)); err != nil {
			return
		}
		if tBit, err = ev.AsUint64(ctx, t.Bit()); err != nil {
			return
		}
		if tReward, err = ev.AsUint64(ctx, t.Reward); err != nil {
			return
		}
		if bit, err = ev.Select(ctx, isTask, tBit, bit); err != nil {
			return
		}
		if reward, err = ev.Select(ctx, isTask, tReward, reward); err != nil {
			return
		}
	}
	return bit, reward, nil
}

func (g *TaskGame) credit(ctx context.Context, tx *chain.Tx, ev *fhe.Evaluator, player models.Address, delta models.Handle) (models.Handle, error) {
	if err := ev.Allow(ctx, delta, g.coin.Address()); err != nil {
		return models.ZeroHandle, err
	}
	return g.coin.Credit(ctx, tx.Call(g.address), player, delta)
}

func (g *TaskGame) playerKey(addr models.Address) string {
	return fmt.Sprintf(keyPlayerFmt, g.address[:], addr[:])
}
