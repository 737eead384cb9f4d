package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/storefront_api/internal/metrics"
	"github.com/GTDGit/storefront_api/internal/models"
)

// VariantStockStore reads variants and writes their aggregate stock.
type VariantStockStore interface {
	GetVariant(ctx context.Context, productID int, sku string) (*models.Variant, error)
	UpdateVariantStock(ctx context.Context, productID int, sku string, qty int) (bool, error)
}

// VariantInventoryReader lists every store row of one variant.
type VariantInventoryReader interface {
	ListByVariant(ctx context.Context, productID int, sku string) ([]models.StoreInventory, error)
}

// KeyLocker hands out best-effort exclusive locks.
type KeyLocker interface {
	TryLock(ctx context.Context, key string) (release func(), ok bool)
}

// StockSummary is the aggregate stock of one variant.
type StockSummary struct {
	TotalAvailable int                `json:"totalAvailable"`
	Status         models.StockStatus `json:"status"`
}

// AggregateStock sums the available quantity of the active records.
func AggregateStock(records []models.StoreInventory) StockSummary {
	total := 0
	for i := range records {
		total += records[i].Available()
	}
	return StockSummary{TotalAvailable: total, Status: models.ClassifyStock(total)}
}

// StockAggregator keeps each variant's cached stock in line with the store ledger.
type StockAggregator struct {
	variants  VariantStockStore
	inventory VariantInventoryReader
	locker    KeyLocker
	notifier  StockNotifier
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewStockAggregator constructs a StockAggregator. locker and notifier may be nil.
func NewStockAggregator(variants VariantStockStore, inventory VariantInventoryReader, locker KeyLocker, notifier StockNotifier, m *metrics.Metrics) *StockAggregator {
	if notifier == nil {
		notifier = NopStockNotifier{}
	}
	return &StockAggregator{
		variants:  variants,
		inventory: inventory,
		locker:    locker,
		notifier:  notifier,
		metrics:   m,
		now:       time.Now,
	}
}

// Recompute re-derives the stock of (productID, sku) from all store rows and
// writes it onto the variant. A product or variant that no longer exists is
// logged and skipped.
func (a *StockAggregator) Recompute(ctx context.Context, productID int, sku string) (StockSummary, error) {
	if a.locker != nil {
		// Serializes recomputes of one variant across instances when Redis is
		// reachable. Without the lock the result is the same, only racier.
		if release, ok := a.locker.TryLock(ctx, fmt.Sprintf("lock:stock:%d:%s", productID, sku)); ok {
			defer release()
		}
	}

	variant, err := a.variants.GetVariant(ctx, productID, sku)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn().Int("product_id", productID).Str("sku", sku).Msg("recompute skipped: variant no longer exists")
			a.metrics.ObserveRecompute(metrics.RecomputeSkipped)
			return StockSummary{Status: models.StockOutOfStock}, nil
		}
		a.metrics.ObserveRecompute(metrics.RecomputeFailed)
		return StockSummary{}, fmt.Errorf("load variant: %w", err)
	}

	records, err := a.inventory.ListByVariant(ctx, productID, sku)
	if err != nil {
		a.metrics.ObserveRecompute(metrics.RecomputeFailed)
		return StockSummary{}, fmt.Errorf("list inventory: %w", err)
	}
	summary := AggregateStock(records)

	ok, err := a.variants.UpdateVariantStock(ctx, productID, sku, summary.TotalAvailable)
	if err != nil {
		a.metrics.ObserveRecompute(metrics.RecomputeFailed)
		return StockSummary{}, fmt.Errorf("write variant stock: %w", err)
	}
	if !ok {
		log.Warn().Int("product_id", productID).Str("sku", sku).Msg("recompute skipped: variant deleted during write")
		a.metrics.ObserveRecompute(metrics.RecomputeSkipped)
		return StockSummary{Status: models.StockOutOfStock}, nil
	}

	if variant.StockQuantity == summary.TotalAvailable && variant.StockStatus == summary.Status {
		a.metrics.ObserveRecompute(metrics.RecomputeUnchanged)
		return summary, nil
	}

	a.metrics.ObserveRecompute(metrics.RecomputeChanged)
	log.Info().
		Int("product_id", productID).
		Str("sku", sku).
		Int("previous", variant.StockQuantity).
		Int("stock", summary.TotalAvailable).
		Str("status", string(summary.Status)).
		Msg("variant stock updated")

	a.notifier.NotifyStockChanged(ctx, models.StockChange{
		ProductID:      productID,
		VariantSKU:     sku,
		PreviousQty:    variant.StockQuantity,
		StockQuantity:  summary.TotalAvailable,
		PreviousStatus: variant.StockStatus,
		StockStatus:    summary.Status,
		HasStock:       summary.TotalAvailable > 0,
		ChangedAt:      a.now().UTC(),
	})
	return summary, nil
}
