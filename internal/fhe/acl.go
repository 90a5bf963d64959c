package fhe

import (
	"context"
	"fmt"

	"encrypted-quest-backend/internal/models"
)

// CiphertextStore keeps sealed ciphertexts by handle.
type CiphertextStore interface {
	PutCiphertext(ctx context.Context, h models.Handle, sealed []byte) error
	GetCiphertext(ctx context.Context, h models.Handle) ([]byte, error)
}

// KV is the slice of ledger state the ACL lives in. Inside a transaction it is
// the transaction's write buffer, so grants commit atomically with the rest of
// the transaction.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// ACL records which accounts may use or decrypt a handle. Grants are only
// ever added.
type ACL struct {
	kv KV
}

func NewACL(kv KV) *ACL {
	return &ACL{kv: kv}
}

func ACLKey(h models.Handle, account models.Address) string {
	return fmt.Sprintf("acl:%x:%x", h[:], account[:])
}

func (a *ACL) Allow(ctx context.Context, h models.Handle, account models.Address) error {
	if h.IsZero() {
		return fmt.Errorf("cannot grant the empty handle")
	}
	return a.kv.Set(ctx, ACLKey(h, account), []byte{1})
}

func (a *ACL) IsAllowed(ctx context.Context, h models.Handle, account models.Address) (bool, error) {
	_, ok, err := a.kv.Get(ctx, ACLKey(h, account))
	if err != nil {
		return false, fmt.Errorf("read acl: %w", err)
	}
	return ok, nil
}
