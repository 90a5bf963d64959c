package models

type ClaimTaskRequest struct {
	Handle     Handle   `json:"handle" binding:"required"`
	InputProof HexBytes `json:"input_proof" binding:"required"`
}

type ChallengeResponse struct {
	Address   Address `json:"address"`
	Challenge string  `json:"challenge"`
}

type LoginRequest struct {
	Address   Address  `json:"address" binding:"required"`
	Signature HexBytes `json:"signature" binding:"required"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

type NetworkKeyResponse struct {
	PublicKey HexBytes `json:"public_key"`
	ChainID   uint64   `json:"chain_id"`
}

// InputProofRequest carries values encrypted to the network key, bound to a
// contract and the user that will submit them.
type InputProofRequest struct {
	Contract    Address    `json:"contract_address" binding:"required"`
	User        Address    `json:"user_address" binding:"required"`
	Ciphertexts []HexBytes `json:"ciphertexts" binding:"required"`
}

type InputProofResponse struct {
	Handles    []Handle `json:"handles"`
	InputProof HexBytes `json:"input_proof"`
}

type HandleContractPair struct {
	Handle   Handle  `json:"handle"`
	Contract Address `json:"contract_address"`
}

type UserDecryptRequest struct {
	Pairs          []HandleContractPair `json:"handle_contract_pairs"`
	PublicKey      HexBytes             `json:"public_key" binding:"required"`
	Signature      HexBytes             `json:"signature" binding:"required"`
	Contracts      []Address            `json:"contract_addresses" binding:"required"`
	User           Address              `json:"user_address" binding:"required"`
	StartTimestamp int64                `json:"start_timestamp"`
	DurationDays   int64                `json:"duration_days"`
}

type SealedValue struct {
	Handle Handle   `json:"handle"`
	Sealed HexBytes `json:"sealed"`
	Type   uint8    `json:"type"`
}

type UserDecryptResponse struct {
	Values []SealedValue `json:"values"`
}
