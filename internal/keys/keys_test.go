package keys_test

import (
	"testing"
	"time"

	"encrypted-quest-backend/internal/keys"
	"encrypted-quest-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndRecover(t *testing.T) {
	signer, err := keys.GenerateSigner()
	require.NoError(t, err)

	sig, err := signer.SignMessage("hello")
	require.NoError(t, err)
	require.Len(t, sig, keys.SignatureLength)

	addr, err := keys.RecoverAddress(keys.MessageDigest("hello"), sig)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), addr)

	other, err := keys.RecoverAddress(keys.MessageDigest("hullo"), sig)
	if err == nil {
		assert.NotEqual(t, signer.Address(), other)
	}

	_, err = keys.RecoverAddress(keys.MessageDigest("hello"), sig[:10])
	assert.ErrorIs(t, err, keys.ErrInvalidSignature)
}

func TestSignerFromHexRoundTrip(t *testing.T) {
	signer, err := keys.GenerateSigner()
	require.NoError(t, err)

	restored, err := keys.SignerFromHex("0x" + signer.PrivateKeyHex())
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), restored.Address())

	_, err = keys.SignerFromHex("abcd")
	assert.Error(t, err)
}

func TestDeriveSignerIsDeterministic(t *testing.T) {
	seed := []byte("0123456789abcdef0123456789abcdef")
	a, err := keys.DeriveSigner(seed, "input-verifier")
	require.NoError(t, err)
	b, err := keys.DeriveSigner(seed, "input-verifier")
	require.NoError(t, err)
	c, err := keys.DeriveSigner(seed, "something-else")
	require.NoError(t, err)

	assert.Equal(t, a.Address(), b.Address())
	assert.NotEqual(t, a.Address(), c.Address())

	_, err = keys.DeriveKey(nil, "x", 32)
	assert.Error(t, err)
}

func TestAuthorizationDigestCoversEveryField(t *testing.T) {
	base := keys.Authorization{
		PublicKey:      []byte{1, 2, 3},
		Contracts:      []models.Address{{1}, {2}},
		StartTimestamp: 1_700_000_000,
		DurationDays:   10,
		ChainID:        31337,
	}
	digest := base.Digest()
	require.Len(t, digest, 32)

	variants := []keys.Authorization{base, base, base, base, base}
	variants[0].PublicKey = []byte{1, 2, 4}
	variants[1].Contracts = []models.Address{{1}}
	variants[2].StartTimestamp++
	variants[3].DurationDays = 11
	variants[4].ChainID = 1
	for _, v := range variants {
		assert.NotEqual(t, digest, v.Digest())
	}

	assert.Equal(t, base.ValidFrom().Add(240*time.Hour), base.ValidUntil())
}

func TestContractAddressDependsOnNonce(t *testing.T) {
	deployer := models.Address{9}
	assert.NotEqual(t, keys.ContractAddress(deployer, 0), keys.ContractAddress(deployer, 1))
	assert.Equal(t, keys.ContractAddress(deployer, 0), keys.ContractAddress(deployer, 0))
}
