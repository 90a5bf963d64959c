package fhe

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"encrypted-quest-backend/internal/models"

	"golang.org/x/crypto/chacha20poly1305"
)

// sealer protects ciphertext material at rest. The handle is authenticated as
// additional data so a blob cannot be replayed under another handle.
type sealer struct {
	aead cipher.AEAD
}

func newSealer(key []byte) (*sealer, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init sealer: %w", err)
	}
	return &sealer{aead: aead}, nil
}

func (s *sealer) seal(h models.Handle, t ValueType, v uint64) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+packedValueLength+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("seal nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, PackValue(t, v), h[:]), nil
}

func (s *sealer) open(h models.Handle, blob []byte) (ValueType, uint64, error) {
	ns := s.aead.NonceSize()
	if len(blob) < ns+s.aead.Overhead() {
		return 0, 0, ErrMalformedValue
	}
	plain, err := s.aead.Open(nil, blob[:ns], blob[ns:], h[:])
	if err != nil {
		return 0, 0, fmt.Errorf("open ciphertext %s: %w", h, err)
	}
	return UnpackValue(plain)
}
