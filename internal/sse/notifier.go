package sse

import (
	"context"

	"github.com/GTDGit/storefront_api/internal/models"
)

// HubNotifier forwards variant stock changes to the SSE hub.
type HubNotifier struct {
	hub *Hub
}

// NewHubNotifier creates a notifier backed by the given Hub.
func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) NotifyStockChanged(_ context.Context, change models.StockChange) {
	if n.hub.ClientCount() == 0 {
		return
	}
	n.hub.Broadcast(&StockEvent{
		Event:          EventStockChanged,
		ProductID:      change.ProductID,
		VariantSKU:     change.VariantSKU,
		StockQuantity:  change.StockQuantity,
		StockStatus:    string(change.StockStatus),
		PreviousStatus: string(change.PreviousStatus),
		HasStock:       change.HasStock,
		Timestamp:      change.ChangedAt,
	})
}
