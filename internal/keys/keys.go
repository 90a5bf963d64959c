// Package keys holds secp256k1 signers, address derivation and the digests
// that players and the coprocessor sign.
package keys

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"encrypted-quest-backend/internal/models"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/sha3"
)

// SignatureLength is the size of a compact recoverable signature.
const SignatureLength = 65

var (
	ErrInvalidSignature = errors.New("keys: invalid signature")
	hkdfSalt            = []byte("encrypted-quest")
)

func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// Signer signs digests with a secp256k1 key.
type Signer struct {
	priv    *btcec.PrivateKey
	address models.Address
}

func NewSigner(priv *btcec.PrivateKey) *Signer {
	return &Signer{priv: priv, address: PubkeyToAddress(priv.PubKey())}
}

func GenerateSigner() (*Signer, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return NewSigner(priv), nil
}

func SignerFromHex(s string) (*Signer, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("private key must be hex: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(raw))
	}
	priv, _ := btcec.PrivKeyFromBytes(raw)
	return NewSigner(priv), nil
}

// DeriveSigner derives a deterministic key from a master seed, in the way the
// coprocessor derives its verifier identity.
func DeriveSigner(seed []byte, info string) (*Signer, error) {
	okm, err := DeriveKey(seed, info, 32)
	if err != nil {
		return nil, err
	}
	priv, _ := btcec.PrivKeyFromBytes(okm)
	return NewSigner(priv), nil
}

// DeriveKey expands a master seed into size bytes bound to info.
func DeriveKey(seed []byte, info string, size int) ([]byte, error) {
	if len(seed) == 0 {
		return nil, fmt.Errorf("seed is required")
	}
	reader := hkdf.New(sha256.New, seed, hkdfSalt, []byte(info))
	okm := make([]byte, size)
	if _, err := io.ReadFull(reader, okm); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return okm, nil
}

func (s *Signer) Address() models.Address { return s.address }

func (s *Signer) PrivateKeyHex() string {
	return hex.EncodeToString(s.priv.Serialize())
}

// Sign produces a compact recoverable signature over a 32 byte digest.
func (s *Signer) Sign(digest []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("digest must be 32 bytes, got %d", len(digest))
	}
	sig, err := ecdsa.SignCompact(s.priv, digest, false)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return sig, nil
}

// SignMessage signs a prefixed free-form message.
func (s *Signer) SignMessage(msg string) ([]byte, error) {
	return s.Sign(MessageDigest(msg))
}

// SignAuthorization signs a decryption authorization.
func (s *Signer) SignAuthorization(auth Authorization) ([]byte, error) {
	return s.Sign(auth.Digest())
}

func PubkeyToAddress(pub *btcec.PublicKey) models.Address {
	var a models.Address
	raw := pub.SerializeUncompressed()
	copy(a[:], Keccak256(raw[1:])[12:])
	return a
}

// RecoverAddress returns the address that produced sig over digest.
func RecoverAddress(digest, sig []byte) (models.Address, error) {
	if len(sig) != SignatureLength || len(digest) != 32 {
		return models.ZeroAddress, ErrInvalidSignature
	}
	pub, _, err := ecdsa.RecoverCompact(sig, digest)
	if err != nil {
		return models.ZeroAddress, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return PubkeyToAddress(pub), nil
}

func MessageDigest(msg string) []byte {
	prefix := fmt.Sprintf("\x19Quest Signed Message:\n%d", len(msg))
	return Keccak256([]byte(prefix), []byte(msg))
}

// ContractAddress derives the address of the nonce-th contract deployed by
// deployer.
func ContractAddress(deployer models.Address, nonce uint64) models.Address {
	var a models.Address
	copy(a[:], Keccak256(deployer[:], uint64Bytes(nonce))[12:])
	return a
}

func uint64Bytes(v uint64) []byte {
	b := make([]byte, 32)
	for i := 0; i < 8; i++ {
		b[31-i] = byte(v >> (8 * i))
	}
	return b
}

func int64Bytes(v int64) []byte {
	return uint64Bytes(uint64(v))
}
