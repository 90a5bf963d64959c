package ledger_test

import (
	"context"
	"crypto/rand"
	"testing"

	"encrypted-quest-backend/internal/chain"
	"encrypted-quest-backend/internal/coin"
	"encrypted-quest-backend/internal/fhe"
	"encrypted-quest-backend/internal/keys"
	"encrypted-quest-backend/internal/ledger"
	"encrypted-quest-backend/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/nacl/box"
)

const unit = 1_000_000

type harness struct {
	t     *testing.T
	ctx   context.Context
	state *chain.MemoryState
	host  *chain.Host
	cp    *fhe.Coprocessor
	coin  *coin.Coin
	game  *ledger.TaskGame
	owner models.Address
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	cp, err := fhe.New(fhe.Config{
		Seed:    []byte("ledger-test-seed"),
		ChainID: 31337,
		Store:   fhe.NewMemoryStore(),
		Logger:  logger,
	})
	require.NoError(t, err)

	state := chain.NewMemoryState()
	host := chain.NewHost(state, logger)
	owner := models.Address{0x0d}
	c := coin.New(keys.ContractAddress(owner, 0), owner, cp)
	game, err := ledger.New(keys.ContractAddress(owner, 1), models.DefaultTasks, c, cp)
	require.NoError(t, err)

	_, err = host.Execute(ctx, owner, c.Address(), "setMinter", func(tx *chain.Tx) error {
		return c.SetMinter(ctx, tx, game.Address())
	})
	require.NoError(t, err)

	return &harness{t: t, ctx: ctx, state: state, host: host, cp: cp, coin: c, game: game, owner: owner}
}

func (h *harness) join(player models.Address) (*models.Receipt, error) {
	return h.host.Execute(h.ctx, player, h.game.Address(), "joinGame", func(tx *chain.Tx) error {
		return h.game.Join(h.ctx, tx)
	})
}

func (h *harness) encrypt(contract, player models.Address, t fhe.ValueType, v uint64) (models.Handle, []byte) {
	h.t.Helper()
	pub := h.cp.NetworkPublicKey()
	ct, err := box.SealAnonymous(nil, fhe.PackValue(t, v), &pub, rand.Reader)
	require.NoError(h.t, err)
	handles, proof, err := h.cp.RegisterInputs(h.ctx, contract, player, [][]byte{ct})
	require.NoError(h.t, err)
	return handles[0], proof
}

func (h *harness) claimWith(player models.Address, handle models.Handle, proof []byte) (*models.Receipt, error) {
	return h.host.Execute(h.ctx, player, h.game.Address(), "claimTask", func(tx *chain.Tx) error {
		return h.game.ClaimTask(h.ctx, tx, handle, proof)
	})
}

func (h *harness) claim(player models.Address, taskID uint64) (*models.Receipt, error) {
	handle, proof := h.encrypt(h.game.Address(), player, fhe.TypeUint64, taskID)
	return h.claimWith(player, handle, proof)
}

func (h *harness) mask(player models.Address) uint64 {
	h.t.Helper()
	handle, err := h.game.GetPlayerTaskMask(h.ctx, h.host.View(), player)
	require.NoError(h.t, err)
	require.False(h.t, handle.IsZero())
	_, v, err := h.cp.Reveal(h.ctx, handle)
	require.NoError(h.t, err)
	return v
}

func (h *harness) balance(player models.Address) uint64 {
	h.t.Helper()
	handle, err := h.coin.ConfidentialBalanceOf(h.ctx, h.host.View(), player)
	require.NoError(h.t, err)
	require.False(h.t, handle.IsZero())
	_, v, err := h.cp.Reveal(h.ctx, handle)
	require.NoError(h.t, err)
	return v
}

func (h *harness) allowed(handle models.Handle, account models.Address) bool {
	h.t.Helper()
	ok, err := fhe.NewACL(h.host.View()).IsAllowed(h.ctx, handle, account)
	require.NoError(h.t, err)
	return ok
}

func TestJoinOnce(t *testing.T) {
	h := newHarness(t)
	player := models.Address{0xa1}

	joined, err := h.game.HasJoined(h.ctx, h.host.View(), player)
	require.NoError(t, err)
	assert.False(t, joined)

	mask, err := h.game.GetPlayerTaskMask(h.ctx, h.host.View(), player)
	require.NoError(t, err)
	assert.True(t, mask.IsZero())

	receipt, err := h.join(player)
	require.NoError(t, err)
	require.Len(t, receipt.Events, 1)
	assert.Equal(t, models.EventPlayerJoined, receipt.Events[0].Type)
	assert.Equal(t, player, receipt.Events[0].Player)

	joined, err = h.game.HasJoined(h.ctx, h.host.View(), player)
	require.NoError(t, err)
	assert.True(t, joined)
	assert.Equal(t, uint64(0), h.mask(player))
	assert.Equal(t, uint64(0), h.balance(player))

	rec, err := h.game.GetPlayer(h.ctx, h.host.View(), player)
	require.NoError(t, err)
	assert.True(t, h.allowed(rec.TaskMask, player))
	assert.True(t, h.allowed(rec.TaskMask, h.game.Address()))
	assert.True(t, h.allowed(rec.BalanceHandle, player))
	assert.False(t, h.allowed(rec.TaskMask, models.Address{0xee}))

	_, err = h.join(player)
	assert.ErrorIs(t, err, models.ErrAlreadyJoined)
}

func TestClaimScenario(t *testing.T) {
	h := newHarness(t)
	player := models.Address{0xa1}
	_, err := h.join(player)
	require.NoError(t, err)

	receipt, err := h.claim(player, 1)
	require.NoError(t, err)
	assert.Empty(t, receipt.Events)
	assert.Equal(t, uint64(0b1), h.mask(player))
	assert.Equal(t, uint64(100*unit), h.balance(player))

	_, err = h.claim(player, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(0b11), h.mask(player))
	assert.Equal(t, uint64(250*unit), h.balance(player))

	_, err = h.claim(player, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0b11), h.mask(player))
	assert.Equal(t, uint64(250*unit), h.balance(player))

	rec, err := h.game.GetPlayer(h.ctx, h.host.View(), player)
	require.NoError(t, err)
	assert.True(t, h.allowed(rec.TaskMask, player))
	assert.True(t, h.allowed(rec.BalanceHandle, player))
}

func TestClaimOrderIndependent(t *testing.T) {
	h := newHarness(t)
	a, b := models.Address{0xa1}, models.Address{0xb2}
	for _, p := range []models.Address{a, b} {
		_, err := h.join(p)
		require.NoError(t, err)
	}

	for _, id := range []uint64{3, 5, 1} {
		_, err := h.claim(a, id)
		require.NoError(t, err)
	}
	for _, id := range []uint64{1, 3, 5} {
		_, err := h.claim(b, id)
		require.NoError(t, err)
	}

	assert.Equal(t, uint64(0b10101), h.mask(a))
	assert.Equal(t, h.mask(a), h.mask(b))
	assert.Equal(t, uint64(600*unit), h.balance(a))
	assert.Equal(t, h.balance(a), h.balance(b))
}

func TestDuplicateClaimIsIndistinguishable(t *testing.T) {
	h := newHarness(t)
	player := models.Address{0xa1}
	_, err := h.join(player)
	require.NoError(t, err)

	measure := func(id uint64) (*models.Receipt, uint64, int) {
		ops, keysBefore := h.cp.OpCount(), h.state.Len()
		receipt, err := h.claim(player, id)
		require.NoError(t, err)
		return receipt, h.cp.OpCount() - ops, h.state.Len() - keysBefore
	}

	first, firstOps, firstKeys := measure(4)
	dup, dupOps, dupKeys := measure(4)

	assert.Equal(t, firstOps, dupOps)
	assert.Equal(t, firstKeys, dupKeys)
	assert.Equal(t, first.Status, dup.Status)
	assert.Equal(t, first.Method, dup.Method)
	assert.Equal(t, first.Events, dup.Events)
	assert.Equal(t, uint64(0b1000), h.mask(player))
	assert.Equal(t, uint64(250*unit), h.balance(player))
}

func TestClaimOutOfRangeChangesNothing(t *testing.T) {
	h := newHarness(t)
	player := models.Address{0xa1}
	_, err := h.join(player)
	require.NoError(t, err)

	for _, id := range []uint64{0, 6, 64, 1 << 40} {
		_, err := h.claim(player, id)
		require.NoError(t, err)
	}
	assert.Equal(t, uint64(0), h.mask(player))
	assert.Equal(t, uint64(0), h.balance(player))
}

func TestClaimRequiresJoin(t *testing.T) {
	h := newHarness(t)
	player := models.Address{0xa1}
	before := h.state.Len()

	_, err := h.claim(player, 1)
	assert.ErrorIs(t, err, models.ErrNotJoined)
	assert.Equal(t, before, h.state.Len())
}

func TestClaimRejectsForeignProofs(t *testing.T) {
	h := newHarness(t)
	player, other := models.Address{0xa1}, models.Address{0xb2}
	_, err := h.join(player)
	require.NoError(t, err)
	before := h.state.Len()

	handle, proof := h.encrypt(h.game.Address(), other, fhe.TypeUint64, 1)
	_, err = h.claimWith(player, handle, proof)
	assert.ErrorIs(t, err, models.ErrInvalidProof)

	handle, proof = h.encrypt(h.coin.Address(), player, fhe.TypeUint64, 1)
	_, err = h.claimWith(player, handle, proof)
	assert.ErrorIs(t, err, models.ErrInvalidProof)

	handle, proof = h.encrypt(h.game.Address(), player, fhe.TypeBool, 1)
	_, err = h.claimWith(player, handle, proof)
	assert.ErrorIs(t, err, models.ErrInvalidProof)

	_, err = h.claimWith(player, handle, []byte("garbage"))
	assert.ErrorIs(t, err, models.ErrInvalidProof)

	assert.Equal(t, before, h.state.Len())
	assert.Equal(t, uint64(0), h.mask(player))
}

func TestCoinCreditRestrictedToMinter(t *testing.T) {
	h := newHarness(t)
	player := models.Address{0xa1}

	_, err := h.host.Execute(h.ctx, player, h.coin.Address(), "credit", func(tx *chain.Tx) error {
		_, err := h.coin.Credit(h.ctx, tx, player, models.Handle{1})
		return err
	})
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = h.host.Execute(h.ctx, player, h.coin.Address(), "setMinter", func(tx *chain.Tx) error {
		return h.coin.SetMinter(h.ctx, tx, player)
	})
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	minter, err := h.coin.Minter(h.ctx, h.host.View())
	require.NoError(t, err)
	assert.Equal(t, h.game.Address(), minter)

	bal, err := h.coin.ConfidentialBalanceOf(h.ctx, h.host.View(), player)
	require.NoError(t, err)
	assert.True(t, bal.IsZero())
}

func TestNewRejectsBadBoards(t *testing.T) {
	_, err := ledger.New(models.Address{1}, nil, nil, nil)
	assert.Error(t, err)
	_, err = ledger.New(models.Address{1}, []models.Task{{ID: 2, Name: "x"}}, nil, nil)
	assert.Error(t, err)
}
