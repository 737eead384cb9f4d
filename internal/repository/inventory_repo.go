package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/storefront_api/internal/models"
)

// InventoryRepository handles data access for per-store inventory rows.
type InventoryRepository struct {
	db *sqlx.DB
}

// NewInventoryRepository creates a new InventoryRepository.
func NewInventoryRepository(db *sqlx.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// InventoryUpsert carries the fields of an upsert. Nil optional fields take
// defaults on insert and keep the stored value on update.
type InventoryUpsert struct {
	StoreID            int
	ProductID          int
	VariantSKU         string
	StockQty           int
	ReservedQty        *int
	IsActive           *bool
	LeadTimeDays       *int
	FulfillmentOptions []string
	Price              decimal.NullDecimal
	StoreSKU           *string
}

// Upsert creates or overwrites the row keyed by (store, product, variant sku).
func (r *InventoryRepository) Upsert(ctx context.Context, in InventoryUpsert) (*models.StoreInventory, error) {
	const q = `
        INSERT INTO store_inventory (
            store_id, product_id, variant_sku, stock_qty, reserved_qty, is_active,
            lead_time_days, fulfillment_options, price, store_sku
        ) VALUES (
            $1, $2, $3, $4,
            COALESCE($5::int, 0),
            COALESCE($6::boolean, TRUE),
            COALESCE($7::int, 0),
            COALESCE($8::text[], '{}'::text[]),
            $9::numeric, $10::text
        )
        ON CONFLICT (store_id, product_id, variant_sku) DO UPDATE SET
            stock_qty = EXCLUDED.stock_qty,
            reserved_qty = COALESCE($5::int, store_inventory.reserved_qty),
            is_active = COALESCE($6::boolean, store_inventory.is_active),
            lead_time_days = COALESCE($7::int, store_inventory.lead_time_days),
            fulfillment_options = COALESCE($8::text[], store_inventory.fulfillment_options),
            price = COALESCE($9::numeric, store_inventory.price),
            store_sku = COALESCE($10::text, store_inventory.store_sku),
            updated_at = NOW()
        RETURNING *`

	var opts interface{}
	if in.FulfillmentOptions != nil {
		opts = pq.StringArray(in.FulfillmentOptions)
	}

	var rec models.StoreInventory
	err := r.db.GetContext(ctx, &rec, q,
		in.StoreID, in.ProductID, in.VariantSKU, in.StockQty,
		in.ReservedQty, in.IsActive, in.LeadTimeDays, opts,
		in.Price, in.StoreSKU,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetByID returns an inventory row. Returns sql.ErrNoRows if absent.
func (r *InventoryRepository) GetByID(ctx context.Context, id int) (*models.StoreInventory, error) {
	const q = `SELECT * FROM store_inventory WHERE id = $1 LIMIT 1`
	var rec models.StoreInventory
	if err := r.db.GetContext(ctx, &rec, q, id); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Update writes every mutable field of rec and refreshes it from the row.
func (r *InventoryRepository) Update(ctx context.Context, rec *models.StoreInventory) error {
	const q = `
        UPDATE store_inventory SET
            price = $2,
            stock_qty = $3,
            reserved_qty = $4,
            is_active = $5,
            lead_time_days = $6,
            fulfillment_options = COALESCE($7, '{}'::text[]),
            store_sku = $8,
            updated_at = NOW()
        WHERE id = $1
        RETURNING *`

	return r.db.GetContext(ctx, rec, q,
		rec.ID, rec.Price, rec.StockQty, rec.ReservedQty, rec.IsActive,
		rec.LeadTimeDays, rec.FulfillmentOptions, rec.StoreSKU,
	)
}

// ListByVariant returns every row for (product, variant sku) across all stores,
// active or not.
func (r *InventoryRepository) ListByVariant(ctx context.Context, productID int, sku string) ([]models.StoreInventory, error) {
	const q = `SELECT * FROM store_inventory WHERE product_id = $1 AND variant_sku = $2 ORDER BY id`
	var recs []models.StoreInventory
	if err := r.db.SelectContext(ctx, &recs, q, productID, sku); err != nil {
		return nil, err
	}
	return recs, nil
}

// InventoryFilter narrows a store listing.
type InventoryFilter struct {
	StoreID     int
	StockStatus *models.StockStatus
	Page        int
	Limit       int
}

// InventoryListResult contains paginated inventory rows.
type InventoryListResult struct {
	Records    []models.StoreInventory
	TotalItems int
	TotalPages int
	Page       int
	Limit      int
}

// rowStatusExpr classifies a row by its own available quantity, matching
// models.ClassifyStock. Inactive rows count as out of stock.
var rowStatusExpr = fmt.Sprintf(`CASE
            WHEN NOT si.is_active OR si.stock_qty - si.reserved_qty <= 0 THEN '%s'
            WHEN si.stock_qty - si.reserved_qty <= %d THEN '%s'
            ELSE '%s'
        END`, models.StockOutOfStock, models.LowStockThreshold, models.StockLowStock, models.StockInStock)

// ListByStore returns one store's rows, most recently updated first.
func (r *InventoryRepository) ListByStore(ctx context.Context, filter *InventoryFilter) (*InventoryListResult, error) {
	baseQ := `FROM store_inventory si
              JOIN products p ON p.id = si.product_id
              LEFT JOIN product_variants pv ON pv.product_id = si.product_id AND pv.sku = si.variant_sku
              WHERE si.store_id = $1`

	args := []interface{}{filter.StoreID}
	argIdx := 2

	if filter.StockStatus != nil && *filter.StockStatus != "" {
		baseQ += fmt.Sprintf(" AND %s = $%d", rowStatusExpr, argIdx)
		args = append(args, string(*filter.StockStatus))
		argIdx++
	}

	countQ := "SELECT COUNT(*) " + baseQ
	var total int
	if err := r.db.GetContext(ctx, &total, countQ, args...); err != nil {
		return nil, err
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	offset := (filter.Page - 1) * filter.Limit
	totalPages := (total + filter.Limit - 1) / filter.Limit

	selectQ := fmt.Sprintf(`
		SELECT
			si.*,
			p.name AS product_name,
			p.image AS product_image,
			pv.color AS variant_color,
			pv.size AS variant_size,
			pv.model AS variant_model
		%s
		ORDER BY si.updated_at DESC, si.id DESC LIMIT $%d OFFSET $%d`, baseQ, argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	records := []models.StoreInventory{}
	if err := r.db.SelectContext(ctx, &records, selectQ, args...); err != nil {
		return nil, err
	}

	return &InventoryListResult{
		Records:    records,
		TotalItems: total,
		TotalPages: totalPages,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

// ListByProduct returns the active rows of a product across all active stores.
func (r *InventoryRepository) ListByProduct(ctx context.Context, productID int) ([]models.StoreInventory, error) {
	const q = `
        SELECT si.*, s.name AS store_name
        FROM store_inventory si
        JOIN stores s ON s.id = si.store_id
        WHERE si.product_id = $1 AND si.is_active = true AND s.is_active = true
        ORDER BY si.variant_sku, si.store_id`

	records := []models.StoreInventory{}
	if err := r.db.SelectContext(ctx, &records, q, productID); err != nil {
		return nil, err
	}
	return records, nil
}
