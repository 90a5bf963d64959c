package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func GenerateTransactionID() string {
	return fmt.Sprintf("tx_%s_%s",
		time.Now().Format("20060102"),
		uuid.New().String())
}

func GenerateChallenge() (string, error) {
	bytes := make([]byte, 16) // 128 bits of entropy
	_, err := rand.Read(bytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate challenge: %v", err)
	}
	return hex.EncodeToString(bytes), nil
}

// FormatCoin renders a fixed-point COIN amount, e.g. 250000000 -> "250.000000".
func FormatCoin(amount uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -CoinDecimals).StringFixed(CoinDecimals)
}

// ParseCoin is the inverse of FormatCoin.
func ParseCoin(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %v", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("invalid amount %q: negative", s)
	}
	scaled := d.Shift(CoinDecimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("invalid amount %q: more than %d decimals", s, CoinDecimals)
	}
	bi := scaled.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("invalid amount %q: out of range", s)
	}
	return bi.Uint64(), nil
}
