package fhe

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync/atomic"

	"encrypted-quest-backend/internal/keys"
	"encrypted-quest-backend/internal/metrics"
	"encrypted-quest-backend/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
)

const (
	infoSealKey     = "coprocessor-seal-v1"
	infoNetworkKey  = "coprocessor-network-box-v1"
	infoVerifierKey = "coprocessor-input-verifier-v1"

	maxInputsPerProof = 255
)

type Config struct {
	Seed    []byte
	ChainID uint64
	Store   CiphertextStore
	Logger  *logrus.Logger
}

// Coprocessor holds ciphertext material and evaluates operations on it. Only
// the gateway may call Reveal; contracts get an Evaluator that never exposes
// a plaintext.
type Coprocessor struct {
	store    CiphertextStore
	sealer   *sealer
	netPub   [32]byte
	netPriv  [32]byte
	verifier *keys.Signer
	chainID  uint64
	ops      atomic.Uint64
	log      *logrus.Logger
}

func New(cfg Config) (*Coprocessor, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("ciphertext store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	sealKey, err := keys.DeriveKey(cfg.Seed, infoSealKey, 32)
	if err != nil {
		return nil, fmt.Errorf("derive seal key: %w", err)
	}
	s, err := newSealer(sealKey)
	if err != nil {
		return nil, err
	}

	netKey, err := keys.DeriveKey(cfg.Seed, infoNetworkKey, 32)
	if err != nil {
		return nil, fmt.Errorf("derive network key: %w", err)
	}
	pub, err := curve25519.X25519(netKey, curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("network public key: %w", err)
	}

	verifier, err := keys.DeriveSigner(cfg.Seed, infoVerifierKey)
	if err != nil {
		return nil, fmt.Errorf("derive verifier key: %w", err)
	}

	c := &Coprocessor{
		store:    cfg.Store,
		sealer:   s,
		verifier: verifier,
		chainID:  cfg.ChainID,
		log:      cfg.Logger,
	}
	copy(c.netPriv[:], netKey)
	copy(c.netPub[:], pub)
	return c, nil
}

func (c *Coprocessor) ChainID() uint64 { return c.chainID }

// NetworkPublicKey is the key clients encrypt inputs to.
func (c *Coprocessor) NetworkPublicKey() [32]byte { return c.netPub }

// VerifierAddress signs every input proof.
func (c *Coprocessor) VerifierAddress() models.Address { return c.verifier.Address() }

// OpCount is the number of evaluated operations since start.
func (c *Coprocessor) OpCount() uint64 { return c.ops.Load() }

// RegisterInputs opens client ciphertexts, stores them under input handles and
// signs a proof binding the handles to contract and user.
func (c *Coprocessor) RegisterInputs(ctx context.Context, contract, user models.Address, ciphertexts [][]byte) ([]models.Handle, []byte, error) {
	if len(ciphertexts) == 0 || len(ciphertexts) > maxInputsPerProof {
		return nil, nil, fmt.Errorf("%w: expected 1..%d ciphertexts, got %d", models.ErrInvalidProof, maxInputsPerProof, len(ciphertexts))
	}

	handles := make([]models.Handle, 0, len(ciphertexts))
	for i, ct := range ciphertexts {
		plain, ok := box.OpenAnonymous(nil, ct, &c.netPub, &c.netPriv)
		if !ok {
			return nil, nil, fmt.Errorf("%w: ciphertext %d was not encrypted to the network key", models.ErrInvalidProof, i)
		}
		t, v, err := UnpackValue(plain)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: ciphertext %d: %v", models.ErrInvalidProof, i, err)
		}

		h := inputHandle(ct, contract, user, c.chainID, i, t)
		if err := c.put(ctx, h, t, v); err != nil {
			return nil, nil, err
		}
		handles = append(handles, h)
	}

	sig, err := c.verifier.Sign(inputProofDigest(c.chainID, contract, user, handles))
	if err != nil {
		return nil, nil, fmt.Errorf("sign input proof: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"contract": contract.Hex(),
		"user":     user.Hex(),
		"inputs":   len(handles),
	}).Debug("registered encrypted inputs")

	return handles, InputProof{Handles: handles, Signature: sig}.Bytes(), nil
}

// Reveal returns the plaintext behind h. It must only be reachable from the
// decryption gateway after ACL checks.
func (c *Coprocessor) Reveal(ctx context.Context, h models.Handle) (ValueType, uint64, error) {
	return c.get(ctx, h)
}

// Reseal encrypts the plaintext behind h to a session public key.
func (c *Coprocessor) Reseal(ctx context.Context, h models.Handle, sessionKey *[32]byte) ([]byte, error) {
	t, v, err := c.get(ctx, h)
	if err != nil {
		return nil, err
	}
	out, err := box.SealAnonymous(nil, PackValue(t, v), sessionKey, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("reseal %s: %w", h, err)
	}
	return out, nil
}

// Bind returns the evaluator a contract uses inside a transaction.
func (c *Coprocessor) Bind(contract models.Address, acl *ACL) *Evaluator {
	return &Evaluator{cp: c, contract: contract, acl: acl}
}

func (c *Coprocessor) put(ctx context.Context, h models.Handle, t ValueType, v uint64) error {
	blob, err := c.sealer.seal(h, t, v)
	if err != nil {
		return err
	}
	if err := c.store.PutCiphertext(ctx, h, blob); err != nil {
		return fmt.Errorf("store ciphertext %s: %w", h, err)
	}
	return nil
}

func (c *Coprocessor) get(ctx context.Context, h models.Handle) (ValueType, uint64, error) {
	blob, err := c.store.GetCiphertext(ctx, h)
	if err != nil {
		return 0, 0, err
	}
	t, v, err := c.sealer.open(h, blob)
	if err != nil {
		return 0, 0, err
	}
	if t != TypeOf(h) {
		return 0, 0, fmt.Errorf("%w: handle %s", ErrTypeMismatch, h)
	}
	return t, v, nil
}

func (c *Coprocessor) countOp(op string) {
	c.ops.Add(1)
	metrics.RecordFHEOperation(op)
}
