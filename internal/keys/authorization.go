package keys

import (
	"time"

	"encrypted-quest-backend/internal/models"
)

const (
	domainName    = "QuestDecryption"
	domainVersion = "1"
	authTypeDef   = "UserDecryptRequestVerification(bytes publicKey,address[] contractAddresses,uint256 startTimestamp,uint256 durationDays)"
)

// Authorization is the structured message a player signs to let a
// decryption session reveal handles of the listed contracts.
type Authorization struct {
	PublicKey      []byte           `json:"public_key"`
	Contracts      []models.Address `json:"contract_addresses"`
	StartTimestamp int64            `json:"start_timestamp"`
	DurationDays   int64            `json:"duration_days"`
	ChainID        uint64           `json:"chain_id"`
}

func (a Authorization) ValidFrom() time.Time {
	return time.Unix(a.StartTimestamp, 0)
}

func (a Authorization) ValidUntil() time.Time {
	return a.ValidFrom().Add(time.Duration(a.DurationDays) * 24 * time.Hour)
}

// Digest is the typed-data hash covered by the player's signature.
func (a Authorization) Digest() []byte {
	domain := Keccak256(
		Keccak256([]byte(domainName)),
		Keccak256([]byte(domainVersion)),
		uint64Bytes(a.ChainID),
	)

	contracts := make([]byte, 0, 32*len(a.Contracts))
	for _, c := range a.Contracts {
		padded := make([]byte, 32)
		copy(padded[12:], c[:])
		contracts = append(contracts, padded...)
	}

	structHash := Keccak256(
		Keccak256([]byte(authTypeDef)),
		Keccak256(a.PublicKey),
		Keccak256(contracts),
		int64Bytes(a.StartTimestamp),
		int64Bytes(a.DurationDays),
	)

	return Keccak256([]byte{0x19, 0x01}, domain, structHash)
}
