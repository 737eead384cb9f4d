package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/storefront_api/internal/database"
	"github.com/GTDGit/storefront_api/internal/models"
	"github.com/GTDGit/storefront_api/internal/repository"
	"github.com/GTDGit/storefront_api/internal/utils"
)

// ProductReader loads a product with its variants.
type ProductReader interface {
	GetByID(ctx context.Context, id int) (*models.Product, error)
}

// InventoryStore persists store inventory rows.
type InventoryStore interface {
	Upsert(ctx context.Context, in repository.InventoryUpsert) (*models.StoreInventory, error)
	GetByID(ctx context.Context, id int) (*models.StoreInventory, error)
	Update(ctx context.Context, rec *models.StoreInventory) error
	ListByStore(ctx context.Context, filter *repository.InventoryFilter) (*repository.InventoryListResult, error)
	ListByProduct(ctx context.Context, productID int) ([]models.StoreInventory, error)
}

// StockRecomputer re-derives a variant's aggregate stock.
type StockRecomputer interface {
	Recompute(ctx context.Context, productID int, sku string) (StockSummary, error)
}

// InventoryService is the store inventory ledger.
type InventoryService struct {
	inventory  InventoryStore
	products   ProductReader
	aggregator StockRecomputer
}

// NewInventoryService constructs an InventoryService.
func NewInventoryService(inventory InventoryStore, products ProductReader, aggregator StockRecomputer) *InventoryService {
	return &InventoryService{inventory: inventory, products: products, aggregator: aggregator}
}

// UpsertInventoryRequest is the payload of an inventory upsert. Optional
// fields left out keep their stored value, or take defaults on create.
type UpsertInventoryRequest struct {
	ProductID          int              `json:"productId" binding:"required,gt=0"`
	VariantSKU         string           `json:"variantSku" binding:"required"`
	StockQty           *int             `json:"stockQty" binding:"required"`
	ReservedQty        *int             `json:"reservedQty"`
	IsActive           *bool            `json:"isActive"`
	LeadTimeDays       *int             `json:"leadTimeDays" binding:"omitempty,gte=0"`
	FulfillmentOptions []string         `json:"fulfillmentOptions" binding:"omitempty,dive,required"`
	Price              *decimal.Decimal `json:"price"`
	StoreSKU           *string          `json:"storeSku"`
}

// UpdateInventoryRequest is a partial edit of a known inventory row.
type UpdateInventoryRequest struct {
	Price              *decimal.Decimal `json:"price"`
	StockQty           *int             `json:"stockQty"`
	ReservedQty        *int             `json:"reservedQty"`
	LeadTimeDays       *int             `json:"leadTimeDays" binding:"omitempty,gte=0"`
	IsActive           *bool            `json:"isActive"`
	StoreSKU           *string          `json:"storeSku"`
	FulfillmentOptions []string         `json:"fulfillmentOptions" binding:"omitempty,dive,required"`
}

// InventoryResult is a written row plus the variant stock it produced.
// Stock is nil when the write could not change the aggregate.
type InventoryResult struct {
	Record *models.StoreInventory `json:"record"`
	Stock  *StockSummary          `json:"stock,omitempty"`
}

// Upsert creates or overwrites the row of storeID for the given variant and
// recomputes the variant's aggregate stock before returning.
func (s *InventoryService) Upsert(ctx context.Context, storeID int, req UpsertInventoryRequest) (*InventoryResult, error) {
	sku := strings.TrimSpace(req.VariantSKU)
	if sku == "" {
		return nil, utils.ValidationError(utils.CodeVariantSelectionMissing, "variantSku is required")
	}
	if req.StockQty == nil {
		return nil, utils.ValidationError(utils.CodeInvalidQuantity, "stockQty is required")
	}

	product, err := s.products.GetByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NotFoundError(utils.CodeProductNotFound, "product %d not found", req.ProductID)
		}
		return nil, fmt.Errorf("load product: %w", err)
	}
	if _, ok := product.Variants.BySKU(sku); !ok {
		return nil, utils.NotFoundError(utils.CodeVariantNotFound, "product %q has no variant %q", product.Name, sku)
	}

	in := repository.InventoryUpsert{
		StoreID:            storeID,
		ProductID:          req.ProductID,
		VariantSKU:         sku,
		StockQty:           models.ClampQuantity(*req.StockQty),
		ReservedQty:        clampPtr(req.ReservedQty),
		IsActive:           req.IsActive,
		LeadTimeDays:       clampPtr(req.LeadTimeDays),
		FulfillmentOptions: req.FulfillmentOptions,
		StoreSKU:           req.StoreSKU,
	}
	if req.Price != nil {
		in.Price = decimal.NewNullDecimal(*req.Price)
	}

	rec, err := s.inventory.Upsert(ctx, in)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, utils.ConflictError(utils.CodeInventoryConflict, "inventory for variant %q changed concurrently, retry", sku)
		}
		return nil, fmt.Errorf("upsert inventory: %w", err)
	}

	summary, err := s.aggregator.Recompute(ctx, rec.ProductID, rec.VariantSKU)
	if err != nil {
		return nil, fmt.Errorf("recompute stock: %w", err)
	}
	return &InventoryResult{Record: rec, Stock: &summary}, nil
}

// Update applies a partial edit to a row owned by storeID. The aggregate is
// recomputed whenever the edit can change it.
func (s *InventoryService) Update(ctx context.Context, storeID, inventoryID int, req UpdateInventoryRequest) (*InventoryResult, error) {
	rec, err := s.inventory.GetByID(ctx, inventoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NotFoundError(utils.CodeInventoryNotFound, "inventory %d not found", inventoryID)
		}
		return nil, fmt.Errorf("load inventory: %w", err)
	}
	// Rows of other stores are reported as missing.
	if rec.StoreID != storeID {
		return nil, utils.NotFoundError(utils.CodeInventoryNotFound, "inventory %d not found", inventoryID)
	}

	before := *rec
	if req.Price != nil {
		rec.Price = decimal.NewNullDecimal(*req.Price)
	}
	if req.StockQty != nil {
		rec.StockQty = models.ClampQuantity(*req.StockQty)
	}
	if req.ReservedQty != nil {
		rec.ReservedQty = models.ClampQuantity(*req.ReservedQty)
	}
	if req.LeadTimeDays != nil {
		rec.LeadTimeDays = models.ClampQuantity(*req.LeadTimeDays)
	}
	if req.IsActive != nil {
		rec.IsActive = *req.IsActive
	}
	if req.StoreSKU != nil {
		rec.StoreSKU = req.StoreSKU
	}
	if req.FulfillmentOptions != nil {
		rec.FulfillmentOptions = req.FulfillmentOptions
	}

	if err := s.inventory.Update(ctx, rec); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NotFoundError(utils.CodeInventoryNotFound, "inventory %d not found", inventoryID)
		}
		if database.IsUniqueViolation(err) {
			return nil, utils.ConflictError(utils.CodeInventoryConflict, "inventory %d conflicts with an existing row", inventoryID)
		}
		return nil, fmt.Errorf("update inventory: %w", err)
	}

	result := &InventoryResult{Record: rec}
	if before.StockQty != rec.StockQty || before.ReservedQty != rec.ReservedQty || before.IsActive != rec.IsActive {
		summary, err := s.aggregator.Recompute(ctx, rec.ProductID, rec.VariantSKU)
		if err != nil {
			return nil, fmt.Errorf("recompute stock: %w", err)
		}
		result.Stock = &summary
	}
	return result, nil
}

// ListByStore returns a page of storeID's rows, optionally narrowed to rows
// whose own available quantity has the given status.
func (s *InventoryService) ListByStore(ctx context.Context, storeID int, stockStatus string, page, limit int) (*repository.InventoryListResult, error) {
	filter := &repository.InventoryFilter{StoreID: storeID, Page: page, Limit: limit}
	if stockStatus != "" {
		status := models.StockStatus(stockStatus)
		if !status.Valid() {
			return nil, utils.ValidationError(utils.CodeInvalidRequest, "unknown stockStatus %q", stockStatus)
		}
		filter.StockStatus = &status
	}

	result, err := s.inventory.ListByStore(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list store inventory: %w", err)
	}
	return result, nil
}

// ListByProduct returns the active rows of a product across stores.
func (s *InventoryService) ListByProduct(ctx context.Context, productID int) ([]models.StoreInventory, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NotFoundError(utils.CodeProductNotFound, "product %d not found", productID)
		}
		return nil, fmt.Errorf("load product: %w", err)
	}

	records, err := s.inventory.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list product inventory: %w", err)
	}
	return records, nil
}

func clampPtr(v *int) *int {
	if v == nil {
		return nil
	}
	c := models.ClampQuantity(*v)
	return &c
}
