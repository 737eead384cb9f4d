package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockStatus enumerates the catalog-level stock states of a variant.
type StockStatus string

const (
	StockInStock    StockStatus = "in-stock"
	StockLowStock   StockStatus = "low-stock"
	StockOutOfStock StockStatus = "out-of-stock"
)

// LowStockThreshold is the largest available quantity still reported as low stock.
const LowStockThreshold = 5

// Valid reports whether s is one of the known stock states.
func (s StockStatus) Valid() bool {
	switch s {
	case StockInStock, StockLowStock, StockOutOfStock:
		return true
	}
	return false
}

// ClassifyStock maps an available quantity to its stock status.
func ClassifyStock(qty int) StockStatus {
	switch {
	case qty <= 0:
		return StockOutOfStock
	case qty <= LowStockThreshold:
		return StockLowStock
	default:
		return StockInStock
	}
}

// Product represents a catalog product and its purchasable variants.
// Fields are tagged for both DB scanning and JSON serialization.
type Product struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Category  string    `db:"category" json:"category"`
	Image     string    `db:"image" json:"image"`
	IsActive  bool      `db:"is_active" json:"isActive"`
	CreatedAt time.Time `db:"created_at" json:"-"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	// Loaded from product_variants, keyed by sku.
	Variants VariantSet `db:"-" json:"variants"`
}

// Variant is a SKU-level configuration of a product. StockQuantity is the
// aggregate across all active store inventory rows.
type Variant struct {
	ID            int                 `db:"id" json:"id"`
	ProductID     int                 `db:"product_id" json:"productId"`
	SKU           string              `db:"sku" json:"sku"`
	Price         decimal.Decimal     `db:"price" json:"price"`
	MRP           decimal.NullDecimal `db:"mrp" json:"mrp"`
	Color         string              `db:"color" json:"color,omitempty"`
	Size          string              `db:"size" json:"size,omitempty"`
	Model         string              `db:"model" json:"model,omitempty"`
	StockQuantity int                 `db:"stock_quantity" json:"stockQuantity"`
	StockStatus   StockStatus         `db:"stock_status" json:"stockStatus"`
	HasStock      bool                `db:"has_stock" json:"hasStock"`
	CreatedAt     time.Time           `db:"created_at" json:"-"`
	UpdatedAt     time.Time           `db:"updated_at" json:"updatedAt"`
}

// ApplyStock sets the stock quantity together with the fields derived from it.
func (v *Variant) ApplyStock(qty int) {
	if qty < 0 {
		qty = 0
	}
	v.StockQuantity = qty
	v.StockStatus = ClassifyStock(qty)
	v.HasStock = qty > 0
}

// CutPrice returns the strike-through price: MRP, else price, else fallback.
func (v *Variant) CutPrice(fallback decimal.Decimal) decimal.Decimal {
	if v.MRP.Valid && v.MRP.Decimal.IsPositive() {
		return v.MRP.Decimal
	}
	if v.Price.IsPositive() {
		return v.Price
	}
	return fallback
}

// VariantSet is the keyed container of a product's variants.
type VariantSet []Variant

// BySKU returns the variant with the given sku.
func (s VariantSet) BySKU(sku string) (*Variant, bool) {
	for i := range s {
		if s[i].SKU == sku {
			return &s[i], true
		}
	}
	return nil, false
}

// StockChange describes a change of a variant's aggregate stock.
type StockChange struct {
	ProductID      int         `json:"productId"`
	VariantSKU     string      `json:"variantSku"`
	PreviousQty    int         `json:"previousQuantity"`
	StockQuantity  int         `json:"stockQuantity"`
	PreviousStatus StockStatus `json:"previousStatus"`
	StockStatus    StockStatus `json:"stockStatus"`
	HasStock       bool        `json:"hasStock"`
	ChangedAt      time.Time   `json:"changedAt"`
}
