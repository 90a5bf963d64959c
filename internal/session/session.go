// Package session runs single-use decryption sessions: an ephemeral keypair,
// a signed time-boxed authorization and one request to the gateway.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"encrypted-quest-backend/internal/keys"
	"encrypted-quest-backend/internal/models"
	"encrypted-quest-backend/internal/relayer"
)

// ValidityDays is the window every session authorization is signed for.
const ValidityDays = 10

type State string

const (
	StateCreated    State = "created"
	StateAuthorized State = "authorized"
	StateFetched    State = "fetched"
	StateDiscarded  State = "discarded"
	StateFailed     State = "failed"
)

// Signer produces the user's signature over an authorization.
type Signer interface {
	Address() models.Address
	SignAuthorization(auth keys.Authorization) ([]byte, error)
}

// Decrypter is the part of the relayer SDK a session needs.
type Decrypter interface {
	CreateAuthorization(publicKey []byte, contracts []models.Address, start, durationDays int64) keys.Authorization
	UserDecrypt(ctx context.Context, pairs []models.HandleContractPair, kp *relayer.Keypair, signature []byte, auth keys.Authorization, user models.Address) (map[models.Handle]uint64, error)
}

// Results holds plaintexts for the lifetime of the caller's use only.
type Results map[models.Handle]uint64

func (r Results) Get(h models.Handle) (uint64, bool) {
	v, ok := r[h]
	return v, ok
}

type Option func(*Session)

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

type Session struct {
	mu sync.Mutex

	relayer   Decrypter
	pairs     []models.HandleContractPair
	contracts []models.Address
	keypair   *relayer.Keypair
	auth      keys.Authorization
	signature []byte
	user      models.Address
	state     State
	now       func() time.Time
}

// New prepares a session for the non-empty handles in pairs. It fails with
// ErrNoEncryptedData, before any key is generated, when none remain.
func New(r Decrypter, pairs []models.HandleContractPair, opts ...Option) (*Session, error) {
	s := &Session{relayer: r, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	seen := make(map[models.Address]bool)
	for _, p := range pairs {
		if p.Handle.IsZero() {
			continue
		}
		s.pairs = append(s.pairs, p)
		if !seen[p.Contract] {
			seen[p.Contract] = true
			s.contracts = append(s.contracts, p.Contract)
		}
	}
	if len(s.pairs) == 0 {
		return nil, models.ErrNoEncryptedData
	}

	kp, err := relayer.GenerateKeypair()
	if err != nil {
		return nil, err
	}
	s.keypair = kp
	s.state = StateCreated
	return s, nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Contracts is the deduplicated, ordered contract set the authorization
// covers.
func (s *Session) Contracts() []models.Address {
	return append([]models.Address(nil), s.contracts...)
}

// Authorize has signer sign the session's authorization, valid from now for
// ValidityDays.
func (s *Session) Authorize(signer Signer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateCreated {
		return fmt.Errorf("%w: authorize in state %s", models.ErrSessionSpent, s.state)
	}

	s.auth = s.relayer.CreateAuthorization(s.keypair.Public[:], s.contracts, s.now().Unix(), ValidityDays)
	sig, err := signer.SignAuthorization(s.auth)
	if err != nil {
		s.fail()
		return fmt.Errorf("%w: %v", models.ErrAuthorizationRejected, err)
	}
	s.signature = sig
	s.user = signer.Address()
	s.state = StateAuthorized
	return nil
}

// Fetch asks the gateway for the plaintexts and discards the key material,
// whatever the outcome.
func (s *Session) Fetch(ctx context.Context) (Results, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAuthorized {
		return nil, fmt.Errorf("%w: fetch in state %s", models.ErrSessionSpent, s.state)
	}

	values, err := s.relayer.UserDecrypt(ctx, s.pairs, s.keypair, s.signature, s.auth, s.user)
	if err != nil {
		s.fail()
		return nil, err
	}
	s.wipe()
	s.state = StateFetched
	return Results(values), nil
}

// Discard wipes the key material. It is safe to call more than once.
func (s *Session) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateFailed {
		s.discard()
	}
}

func (s *Session) discard() {
	s.wipe()
	s.state = StateDiscarded
}

func (s *Session) fail() {
	s.wipe()
	s.state = StateFailed
}

func (s *Session) wipe() {
	if s.keypair != nil {
		clear(s.keypair.Private[:])
		s.keypair = nil
	}
	clear(s.signature)
	s.signature = nil
}

// Decrypt runs a whole session for pairs on behalf of signer.
func Decrypt(ctx context.Context, r Decrypter, signer Signer, pairs []models.HandleContractPair, opts ...Option) (Results, error) {
	s, err := New(r, pairs, opts...)
	if err != nil {
		return nil, err
	}
	defer s.Discard()

	if err := s.Authorize(signer); err != nil {
		return nil, err
	}
	return s.Fetch(ctx)
}
