package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"encrypted-quest-backend/internal/keys"
	"encrypted-quest-backend/internal/models"
	"encrypted-quest-backend/internal/relayer"
	"encrypted-quest-backend/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDecrypter struct {
	calls    int
	gotPairs []models.HandleContractPair
	gotAuth  keys.Authorization
	gotUser  models.Address
	gotKey   *relayer.Keypair
	err      error
}

func (f *fakeDecrypter) CreateAuthorization(pub []byte, contracts []models.Address, start, days int64) keys.Authorization {
	return keys.Authorization{PublicKey: pub, Contracts: contracts, StartTimestamp: start, DurationDays: days, ChainID: 31337}
}

func (f *fakeDecrypter) UserDecrypt(_ context.Context, pairs []models.HandleContractPair, kp *relayer.Keypair, _ []byte, auth keys.Authorization, user models.Address) (map[models.Handle]uint64, error) {
	f.calls++
	f.gotPairs, f.gotAuth, f.gotUser, f.gotKey = pairs, auth, user, kp
	if f.err != nil {
		return nil, f.err
	}
	out := map[models.Handle]uint64{}
	for i, p := range pairs {
		out[p.Handle] = uint64(i + 1)
	}
	return out, nil
}

type failingSigner struct{ addr models.Address }

func (s failingSigner) Address() models.Address { return s.addr }

func (failingSigner) SignAuthorization(keys.Authorization) ([]byte, error) {
	return nil, errors.New("user rejected the request")
}

var (
	game = models.Address{0x01}
	coin = models.Address{0x02}
)

func TestNoEncryptedDataBeforeAnyContact(t *testing.T) {
	f := &fakeDecrypter{}

	_, err := session.New(f, nil)
	assert.ErrorIs(t, err, models.ErrNoEncryptedData)

	_, err = session.New(f, []models.HandleContractPair{{Handle: models.ZeroHandle, Contract: game}})
	assert.ErrorIs(t, err, models.ErrNoEncryptedData)

	signer, err := keys.GenerateSigner()
	require.NoError(t, err)
	_, err = session.Decrypt(context.Background(), f, signer, []models.HandleContractPair{{Contract: coin}})
	assert.ErrorIs(t, err, models.ErrNoEncryptedData)

	assert.Zero(t, f.calls)
}

func TestLifecycle(t *testing.T) {
	f := &fakeDecrypter{}
	signer, err := keys.GenerateSigner()
	require.NoError(t, err)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	pairs := []models.HandleContractPair{
		{Handle: models.Handle{0xaa}, Contract: game},
		{Handle: models.ZeroHandle, Contract: coin},
		{Handle: models.Handle{0xbb}, Contract: coin},
		{Handle: models.Handle{0xcc}, Contract: game},
	}
	s, err := session.New(f, pairs, session.WithClock(func() time.Time { return start }))
	require.NoError(t, err)
	assert.Equal(t, session.StateCreated, s.State())
	assert.Equal(t, []models.Address{game, coin}, s.Contracts())

	_, err = s.Fetch(context.Background())
	assert.ErrorIs(t, err, models.ErrSessionSpent)

	require.NoError(t, s.Authorize(signer))
	assert.Equal(t, session.StateAuthorized, s.State())

	res, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, session.StateFetched, s.State())
	require.Len(t, f.gotPairs, 3)
	assert.Equal(t, signer.Address(), f.gotUser)
	assert.Equal(t, start.Unix(), f.gotAuth.StartTimestamp)
	assert.Equal(t, int64(session.ValidityDays), f.gotAuth.DurationDays)
	assert.Equal(t, [32]byte{}, f.gotKey.Private)

	v, ok := res.Get(models.Handle{0xbb})
	assert.True(t, ok)
	assert.Equal(t, uint64(2), v)

	_, err = s.Fetch(context.Background())
	assert.ErrorIs(t, err, models.ErrSessionSpent)
	assert.ErrorIs(t, s.Authorize(signer), models.ErrSessionSpent)

	s.Discard()
	s.Discard()
	assert.Equal(t, session.StateDiscarded, s.State())
	assert.Equal(t, 1, f.calls)
}

func TestFailedSessionCannotBeReused(t *testing.T) {
	f := &fakeDecrypter{err: models.ErrAuthorizationExpired}
	signer, err := keys.GenerateSigner()
	require.NoError(t, err)

	s, err := session.New(f, []models.HandleContractPair{{Handle: models.Handle{1}, Contract: game}})
	require.NoError(t, err)
	require.NoError(t, s.Authorize(signer))

	_, err = s.Fetch(context.Background())
	assert.ErrorIs(t, err, models.ErrAuthorizationExpired)
	assert.Equal(t, session.StateFailed, s.State())

	f.err = nil
	_, err = s.Fetch(context.Background())
	assert.ErrorIs(t, err, models.ErrSessionSpent)

	s.Discard()
	assert.Equal(t, session.StateFailed, s.State())
}

func TestSignatureRefusalFailsSession(t *testing.T) {
	f := &fakeDecrypter{}
	s, err := session.New(f, []models.HandleContractPair{{Handle: models.Handle{1}, Contract: game}})
	require.NoError(t, err)

	err = s.Authorize(failingSigner{models.Address{0x09}})
	assert.ErrorIs(t, err, models.ErrAuthorizationRejected)
	assert.Equal(t, session.StateFailed, s.State())
	assert.ErrorIs(t, s.Authorize(failingSigner{}), models.ErrSessionSpent)
	assert.Zero(t, f.calls)
}

func TestEachSessionHasItsOwnKey(t *testing.T) {
	f := &fakeDecrypter{}
	signer, err := keys.GenerateSigner()
	require.NoError(t, err)
	pairs := []models.HandleContractPair{{Handle: models.Handle{1}, Contract: game}}

	_, err = session.Decrypt(context.Background(), f, signer, pairs)
	require.NoError(t, err)
	first := f.gotAuth.PublicKey

	_, err = session.Decrypt(context.Background(), f, signer, pairs)
	require.NoError(t, err)
	assert.NotEqual(t, first, f.gotAuth.PublicKey)
}
