package models

import "time"

type EventType string

const (
	EventPlayerJoined EventType = "PlayerJoined"
)

type Event struct {
	Type     EventType `json:"type"`
	Contract Address   `json:"contract"`
	Player   Address   `json:"player"`
}

type ReceiptStatus string

// Only successful transactions are committed, so a stored receipt always
// carries ReceiptStatusSuccess.
const ReceiptStatusSuccess ReceiptStatus = "success"

// Receipt records a committed ledger transaction.
type Receipt struct {
	TxHash    string        `json:"tx_hash" redis:"tx_hash"`
	Block     uint64        `json:"block" redis:"block"`
	From      Address       `json:"from" redis:"from"`
	To        Address       `json:"to" redis:"to"`
	Method    string        `json:"method" redis:"method"`
	Status    ReceiptStatus `json:"status" redis:"status"`
	Events    []Event       `json:"events" redis:"events"`
	CreatedAt time.Time     `json:"created_at" redis:"created_at"`
}
