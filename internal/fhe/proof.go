package fhe

import (
	"encoding/binary"
	"fmt"

	"encrypted-quest-backend/internal/keys"
	"encrypted-quest-backend/internal/models"
)

// InputProof attests that a set of input handles were registered by the
// coprocessor for exactly one (contract, user) pair.
//
// Wire layout: count(1) | handles(32*count) | signature(65).
type InputProof struct {
	Handles   []models.Handle
	Signature []byte
}

func inputProofDigest(chainID uint64, contract, user models.Address, handles []models.Handle) []byte {
	chain := make([]byte, 8)
	binary.BigEndian.PutUint64(chain, chainID)

	parts := [][]byte{[]byte("QuestInputProof"), chain, contract[:], user[:]}
	for i := range handles {
		parts = append(parts, handles[i][:])
	}
	return keys.Keccak256(parts...)
}

func (p InputProof) Bytes() []byte {
	out := make([]byte, 0, 1+len(p.Handles)*models.HandleLength+len(p.Signature))
	out = append(out, byte(len(p.Handles)))
	for _, h := range p.Handles {
		out = append(out, h[:]...)
	}
	return append(out, p.Signature...)
}

func ParseInputProof(b []byte) (*InputProof, error) {
	if len(b) < 1 {
		return nil, fmt.Errorf("%w: empty proof", models.ErrInvalidProof)
	}
	n := int(b[0])
	if n == 0 || len(b) != 1+n*models.HandleLength+keys.SignatureLength {
		return nil, fmt.Errorf("%w: malformed proof", models.ErrInvalidProof)
	}
	p := &InputProof{Handles: make([]models.Handle, n)}
	for i := 0; i < n; i++ {
		copy(p.Handles[i][:], b[1+i*models.HandleLength:])
	}
	p.Signature = append([]byte(nil), b[1+n*models.HandleLength:]...)
	return p, nil
}

// VerifyInputProof checks that proof was issued by verifier for handle,
// bound to contract and user on chainID.
func VerifyInputProof(proof []byte, handle models.Handle, contract, user, verifier models.Address, chainID uint64) error {
	p, err := ParseInputProof(proof)
	if err != nil {
		return err
	}

	found := false
	for _, h := range p.Handles {
		if h == handle {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: handle not covered by proof", models.ErrInvalidProof)
	}

	signer, err := keys.RecoverAddress(inputProofDigest(chainID, contract, user, p.Handles), p.Signature)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidProof, err)
	}
	if signer != verifier {
		return fmt.Errorf("%w: not signed by the input verifier for this contract and caller", models.ErrInvalidProof)
	}
	return nil
}
