// Package fhe is the coprocessor side of the encrypted ledger: ciphertext
// handles, the sealed ciphertext store, the append-only ACL and the
// evaluator contracts use to compute on handles without seeing plaintext.
package fhe

import (
	"encoding/binary"
	"errors"
	"fmt"

	"encrypted-quest-backend/internal/keys"
	"encrypted-quest-backend/internal/models"

	"github.com/google/uuid"
)

// ValueType is the encrypted type a handle refers to. It is stored in byte
// 30 of every handle.
type ValueType uint8

const (
	TypeBool   ValueType = 1
	TypeUint64 ValueType = 5

	// HandleVersion is stored in the last byte of every handle.
	HandleVersion = 0

	packedValueLength = 9
)

var (
	ErrCiphertextNotFound = errors.New("fhe: ciphertext not found")
	ErrTypeMismatch       = errors.New("fhe: operand type mismatch")
	ErrMalformedValue     = errors.New("fhe: malformed value")
)

func (t ValueType) String() string {
	switch t {
	case TypeBool:
		return "ebool"
	case TypeUint64:
		return "euint64"
	default:
		return fmt.Sprintf("etype(%d)", uint8(t))
	}
}

func (t ValueType) valid() bool {
	return t == TypeBool || t == TypeUint64
}

// TypeOf reads the value type embedded in a handle.
func TypeOf(h models.Handle) ValueType {
	return ValueType(h[30])
}

// newHandle derives a fresh handle for the output of op. A random nonce makes
// every produced ciphertext distinct even for identical inputs.
func newHandle(op string, t ValueType, inputs ...[]byte) models.Handle {
	nonce := uuid.New()
	parts := append([][]byte{[]byte(op)}, inputs...)
	parts = append(parts, nonce[:])

	var h models.Handle
	copy(h[:30], keys.Keccak256(parts...))
	h[30] = byte(t)
	h[31] = HandleVersion
	return h
}

// inputHandle derives the handle of a client-supplied ciphertext. It is
// deterministic so the proof can be recomputed from the request.
func inputHandle(ciphertext []byte, contract, user models.Address, chainID uint64, index int, t ValueType) models.Handle {
	var h models.Handle
	idx := make([]byte, 8)
	binary.BigEndian.PutUint64(idx, uint64(index))
	chain := make([]byte, 8)
	binary.BigEndian.PutUint64(chain, chainID)

	copy(h[:30], keys.Keccak256([]byte("input"), ciphertext, contract[:], user[:], chain, idx))
	h[30] = byte(t)
	h[31] = HandleVersion
	return h
}

// PackValue encodes a typed plaintext for encryption to a public key.
func PackValue(t ValueType, v uint64) []byte {
	b := make([]byte, packedValueLength)
	b[0] = byte(t)
	binary.BigEndian.PutUint64(b[1:], v)
	return b
}

func UnpackValue(b []byte) (ValueType, uint64, error) {
	if len(b) != packedValueLength {
		return 0, 0, ErrMalformedValue
	}
	t := ValueType(b[0])
	if !t.valid() {
		return 0, 0, fmt.Errorf("%w: unknown type %d", ErrMalformedValue, b[0])
	}
	v := binary.BigEndian.Uint64(b[1:])
	if t == TypeBool && v > 1 {
		return 0, 0, fmt.Errorf("%w: bool out of range", ErrMalformedValue)
	}
	return t, v, nil
}
