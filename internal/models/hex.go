package models

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	AddressLength = 20
	HandleLength  = 32
)

// Address identifies an account or a deployed contract.
type Address [AddressLength]byte

var ZeroAddress Address

func ParseAddress(s string) (Address, error) {
	var a Address
	b, err := decodeHex(s)
	if err != nil {
		return a, fmt.Errorf("invalid address %q: %v", s, err)
	}
	if len(b) != AddressLength {
		return a, fmt.Errorf("invalid address %q: want %d bytes, got %d", s, AddressLength, len(b))
	}
	copy(a[:], b)
	return a, nil
}

func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

func (a Address) String() string { return a.Hex() }

func (a Address) IsZero() bool { return a == ZeroAddress }

func (a Address) MarshalText() ([]byte, error) { return []byte(a.Hex()), nil }

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Handle is an opaque reference to a ciphertext held by the coprocessor.
// The zero handle means no encrypted value has been recorded.
type Handle [HandleLength]byte

var ZeroHandle Handle

func ParseHandle(s string) (Handle, error) {
	var h Handle
	b, err := decodeHex(s)
	if err != nil {
		return h, fmt.Errorf("invalid handle %q: %v", s, err)
	}
	if len(b) != HandleLength {
		return h, fmt.Errorf("invalid handle %q: want %d bytes, got %d", s, HandleLength, len(b))
	}
	copy(h[:], b)
	return h, nil
}

func (h Handle) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Handle) String() string { return h.Hex() }

func (h Handle) IsZero() bool { return h == ZeroHandle }

func (h Handle) MarshalText() ([]byte, error) { return []byte(h.Hex()), nil }

func (h *Handle) UnmarshalText(text []byte) error {
	parsed, err := ParseHandle(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// HexBytes is a byte slice carried as 0x-prefixed hex in JSON.
type HexBytes []byte

func (b HexBytes) MarshalText() ([]byte, error) {
	return []byte("0x" + hex.EncodeToString(b)), nil
}

func (b *HexBytes) UnmarshalText(text []byte) error {
	decoded, err := decodeHex(string(text))
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	return hex.DecodeString(s)
}
