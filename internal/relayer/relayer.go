// Package relayer is the client SDK for the coprocessor gateway: it
// encrypts inputs to the network key, builds decryption authorizations and
// opens values resealed to a session keypair.
package relayer

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"

	"encrypted-quest-backend/internal/fhe"
	"encrypted-quest-backend/internal/keys"
	"encrypted-quest-backend/internal/models"

	"golang.org/x/crypto/nacl/box"
)

// Transport reaches a gateway, in process or over HTTP.
type Transport interface {
	NetworkKey(ctx context.Context) (*models.NetworkKeyResponse, error)
	RegisterInput(ctx context.Context, req models.InputProofRequest) (*models.InputProofResponse, error)
	UserDecrypt(ctx context.Context, req models.UserDecryptRequest) (*models.UserDecryptResponse, error)
}

type Instance struct {
	transport Transport

	mu      sync.RWMutex
	netKey  *[32]byte
	chainID uint64
}

func New(t Transport) *Instance {
	return &Instance{transport: t}
}

// Init fetches the network key. Nothing can be encrypted or decrypted
// before it succeeds.
func (i *Instance) Init(ctx context.Context) error {
	resp, err := i.transport.NetworkKey(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrEncryptionServiceUnavailable, err)
	}
	if len(resp.PublicKey) != 32 {
		return fmt.Errorf("%w: network key has %d bytes", models.ErrEncryptionServiceUnavailable, len(resp.PublicKey))
	}

	var key [32]byte
	copy(key[:], resp.PublicKey)

	i.mu.Lock()
	defer i.mu.Unlock()
	i.netKey = &key
	i.chainID = resp.ChainID
	return nil
}

func (i *Instance) Ready() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.netKey != nil
}

func (i *Instance) ChainID() uint64 {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.chainID
}

func (i *Instance) networkKey() (*[32]byte, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.netKey == nil {
		return nil, models.ErrEncryptionServiceUnavailable
	}
	return i.netKey, nil
}

// CreateEncryptedInput starts an input bound to contract and the user who
// will submit the transaction.
func (i *Instance) CreateEncryptedInput(contract, user models.Address) *EncryptedInput {
	return &EncryptedInput{inst: i, contract: contract, user: user}
}

type EncryptedInput struct {
	inst     *Instance
	contract models.Address
	user     models.Address
	values   [][]byte
}

func (b *EncryptedInput) Add64(v uint64) *EncryptedInput {
	b.values = append(b.values, fhe.PackValue(fhe.TypeUint64, v))
	return b
}

func (b *EncryptedInput) AddBool(v bool) *EncryptedInput {
	var n uint64
	if v {
		n = 1
	}
	b.values = append(b.values, fhe.PackValue(fhe.TypeBool, n))
	return b
}

// Encrypt seals every added value to the network key and has the gateway
// register them.
func (b *EncryptedInput) Encrypt(ctx context.Context) (*models.InputProofResponse, error) {
	key, err := b.inst.networkKey()
	if err != nil {
		return nil, err
	}
	if len(b.values) == 0 {
		return nil, fmt.Errorf("no values added to the encrypted input")
	}

	req := models.InputProofRequest{Contract: b.contract, User: b.user}
	for _, v := range b.values {
		ct, err := box.SealAnonymous(nil, v, key, rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("encrypt input: %w", err)
		}
		req.Ciphertexts = append(req.Ciphertexts, ct)
	}

	resp, err := b.inst.transport.RegisterInput(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Handles) != len(b.values) {
		return nil, fmt.Errorf("%w: gateway returned %d handles for %d values", models.ErrNetworkOrTransaction, len(resp.Handles), len(b.values))
	}
	return resp, nil
}

// Keypair is an ephemeral session key for one decryption.
type Keypair struct {
	Public  [32]byte
	Private [32]byte
}

func GenerateKeypair() (*Keypair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate session keypair: %w", err)
	}
	return &Keypair{Public: *pub, Private: *priv}, nil
}

// CreateAuthorization builds the message the user signs to allow decryption
// of handles from contracts for durationDays from start.
func (i *Instance) CreateAuthorization(publicKey []byte, contracts []models.Address, start, durationDays int64) keys.Authorization {
	return keys.Authorization{
		PublicKey:      publicKey,
		Contracts:      contracts,
		StartTimestamp: start,
		DurationDays:   durationDays,
		ChainID:        i.ChainID(),
	}
}

// UserDecrypt asks the gateway to reseal pairs to kp and opens the results.
func (i *Instance) UserDecrypt(ctx context.Context, pairs []models.HandleContractPair, kp *Keypair, signature []byte, auth keys.Authorization, user models.Address) (map[models.Handle]uint64, error) {
	if _, err := i.networkKey(); err != nil {
		return nil, err
	}

	resp, err := i.transport.UserDecrypt(ctx, models.UserDecryptRequest{
		Pairs:          pairs,
		PublicKey:      kp.Public[:],
		Signature:      signature,
		Contracts:      auth.Contracts,
		User:           user,
		StartTimestamp: auth.StartTimestamp,
		DurationDays:   auth.DurationDays,
	})
	if err != nil {
		return nil, err
	}

	out := make(map[models.Handle]uint64, len(resp.Values))
	for _, v := range resp.Values {
		plain, ok := box.OpenAnonymous(nil, v.Sealed, &kp.Public, &kp.Private)
		if !ok {
			return nil, fmt.Errorf("%w: value for %s was not sealed to the session key", models.ErrNetworkOrTransaction, v.Handle)
		}
		_, n, err := fhe.UnpackValue(plain)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrNetworkOrTransaction, err)
		}
		out[v.Handle] = n
	}
	for _, p := range pairs {
		if _, ok := out[p.Handle]; !ok {
			return nil, fmt.Errorf("%w: no value returned for %s", models.ErrNetworkOrTransaction, p.Handle)
		}
	}
	return out, nil
}
