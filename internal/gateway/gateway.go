// Package gateway is the coprocessor's public face: it registers encrypted
// client inputs and serves user decryption under a signed authorization.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"encrypted-quest-backend/internal/fhe"
	"encrypted-quest-backend/internal/keys"
	"encrypted-quest-backend/internal/metrics"
	"encrypted-quest-backend/internal/models"

	"github.com/sirupsen/logrus"
)

const (
	MaxDurationDays = 365
	maxPairs        = 64
)

type Gateway struct {
	cp  *fhe.Coprocessor
	acl *fhe.ACL
	log *logrus.Logger
	now func() time.Time
}

type Option func(*Gateway)

// WithClock overrides the time source used for authorization windows.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// New serves the coprocessor behind cp. state must expose committed ledger
// state; the gateway only reads ACL grants from it.
func New(cp *fhe.Coprocessor, state fhe.KV, log *logrus.Logger, opts ...Option) *Gateway {
	if log == nil {
		log = logrus.New()
	}
	g := &Gateway{cp: cp, acl: fhe.NewACL(state), log: log, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) NetworkKey(context.Context) (*models.NetworkKeyResponse, error) {
	pub := g.cp.NetworkPublicKey()
	return &models.NetworkKeyResponse{PublicKey: pub[:], ChainID: g.cp.ChainID()}, nil
}

// RegisterInput stores client ciphertexts and returns their handles with a
// proof bound to the request's contract and user.
func (g *Gateway) RegisterInput(ctx context.Context, req models.InputProofRequest) (*models.InputProofResponse, error) {
	if req.Contract.IsZero() || req.User.IsZero() {
		metrics.RecordInputProof("rejected")
		return nil, fmt.Errorf("%w: contract and user are required", models.ErrInvalidProof)
	}

	cts := make([][]byte, len(req.Ciphertexts))
	for i, ct := range req.Ciphertexts {
		cts[i] = ct
	}

	handles, proof, err := g.cp.RegisterInputs(ctx, req.Contract, req.User, cts)
	if err != nil {
		metrics.RecordInputProof("rejected")
		return nil, err
	}
	metrics.RecordInputProof("issued")
	return &models.InputProofResponse{Handles: handles, InputProof: proof}, nil
}

// UserDecrypt reseals each requested handle to the session key once the
// signed authorization and ACL grants check out.
func (g *Gateway) UserDecrypt(ctx context.Context, req models.UserDecryptRequest) (*models.UserDecryptResponse, error) {
	resp, err := g.userDecrypt(ctx, req)
	switch {
	case err == nil:
		metrics.RecordUserDecrypt("ok")
	case errors.Is(err, models.ErrAuthorizationExpired):
		metrics.RecordUserDecrypt("expired")
	case errors.Is(err, models.ErrAuthorizationRejected):
		metrics.RecordUserDecrypt("rejected")
	default:
		metrics.RecordUserDecrypt("error")
	}
	if err != nil {
		g.log.WithFields(logrus.Fields{
			"user":  req.User.Hex(),
			"pairs": len(req.Pairs),
		}).WithError(err).Warn("user decryption refused")
	}
	return resp, err
}

func (g *Gateway) userDecrypt(ctx context.Context, req models.UserDecryptRequest) (*models.UserDecryptResponse, error) {
	if len(req.Pairs) == 0 {
		return nil, models.ErrNoEncryptedData
	}
	if len(req.Pairs) > maxPairs {
		return nil, fmt.Errorf("%w: at most %d handles per request", models.ErrAuthorizationRejected, maxPairs)
	}
	if len(req.PublicKey) != 32 {
		return nil, fmt.Errorf("%w: session public key must be 32 bytes", models.ErrAuthorizationRejected)
	}
	if req.DurationDays < 1 || req.DurationDays > MaxDurationDays {
		return nil, fmt.Errorf("%w: duration must be 1..%d days", models.ErrAuthorizationRejected, MaxDurationDays)
	}

	auth := keys.Authorization{
		PublicKey:      req.PublicKey,
		Contracts:      req.Contracts,
		StartTimestamp: req.StartTimestamp,
		DurationDays:   req.DurationDays,
		ChainID:        g.cp.ChainID(),
	}
	signer, err := keys.RecoverAddress(auth.Digest(), req.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrAuthorizationRejected, err)
	}
	if signer != req.User {
		return nil, fmt.Errorf("%w: signature is not from %s", models.ErrAuthorizationRejected, req.User)
	}

	now := g.now()
	if now.Before(auth.ValidFrom()) {
		return nil, fmt.Errorf("%w: not valid before %s", models.ErrAuthorizationRejected, auth.ValidFrom().UTC())
	}
	if !now.Before(auth.ValidUntil()) {
		return nil, fmt.Errorf("%w: ended %s", models.ErrAuthorizationExpired, auth.ValidUntil().UTC())
	}

	signed := make(map[models.Address]bool, len(req.Contracts))
	for _, c := range req.Contracts {
		signed[c] = true
	}

	var sessionKey [32]byte
	copy(sessionKey[:], req.PublicKey)

	out := &models.UserDecryptResponse{Values: make([]models.SealedValue, 0, len(req.Pairs))}
	for _, p := range req.Pairs {
		if p.Handle.IsZero() {
			return nil, models.ErrNoEncryptedData
		}
		if !signed[p.Contract] {
			return nil, fmt.Errorf("%w: contract %s not in the signed set", models.ErrAuthorizationRejected, p.Contract)
		}
		for _, account := range []models.Address{req.User, p.Contract} {
			ok, err := g.acl.IsAllowed(ctx, p.Handle, account)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", models.ErrNetworkOrTransaction, err)
			}
			if !ok {
				return nil, fmt.Errorf("%w: %s may not decrypt %s", models.ErrAuthorizationRejected, account, p.Handle)
			}
		}

		sealed, err := g.cp.Reseal(ctx, p.Handle, &sessionKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrNetworkOrTransaction, err)
		}
		out.Values = append(out.Values, models.SealedValue{
			Handle: p.Handle,
			Sealed: sealed,
			Type:   uint8(fhe.TypeOf(p.Handle)),
		})
	}
	return out, nil
}
