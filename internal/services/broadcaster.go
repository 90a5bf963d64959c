package services

import "encrypted-quest-backend/internal/models"

type Broadcaster interface {
	BroadcastPlayerJoined(player models.Address, receipt *models.Receipt)
	BroadcastReceipt(receipt *models.Receipt)
}

// receiptPublisher fans committed receipts out to a Broadcaster.
type receiptPublisher struct {
	b Broadcaster
}

func (p receiptPublisher) Publish(receipt *models.Receipt) {
	p.b.BroadcastReceipt(receipt)
	for _, ev := range receipt.Events {
		if ev.Type == models.EventPlayerJoined {
			p.b.BroadcastPlayerJoined(ev.Player, receipt)
		}
	}
}
