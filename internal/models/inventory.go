package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Store is an independent stock-holding location or seller.
type Store struct {
	ID          int       `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	OwnerUserID int       `db:"owner_user_id" json:"-"`
	IsActive    bool      `db:"is_active" json:"isActive"`
	CreatedAt   time.Time `db:"created_at" json:"-"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// StoreInventory is one store's stock row for a product variant.
// (store_id, product_id, variant_sku) is unique.
type StoreInventory struct {
	ID                 int                 `db:"id" json:"id"`
	StoreID            int                 `db:"store_id" json:"storeId"`
	ProductID          int                 `db:"product_id" json:"productId"`
	VariantSKU         string              `db:"variant_sku" json:"variantSku"`
	StoreSKU           *string             `db:"store_sku" json:"storeSku,omitempty"`
	Price              decimal.NullDecimal `db:"price" json:"price"`
	StockQty           int                 `db:"stock_qty" json:"stockQty"`
	ReservedQty        int                 `db:"reserved_qty" json:"reservedQty"`
	IsActive           bool                `db:"is_active" json:"isActive"`
	LeadTimeDays       int                 `db:"lead_time_days" json:"leadTimeDays"`
	FulfillmentOptions pq.StringArray      `db:"fulfillment_options" json:"fulfillmentOptions"`
	CreatedAt          time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time           `db:"updated_at" json:"updatedAt"`

	// Joined display fields (listing queries only)
	ProductName  *string `db:"product_name" json:"productName,omitempty"`
	ProductImage *string `db:"product_image" json:"productImage,omitempty"`
	StoreName    *string `db:"store_name" json:"storeName,omitempty"`
	VariantColor *string `db:"variant_color" json:"variantColor,omitempty"`
	VariantSize  *string `db:"variant_size" json:"variantSize,omitempty"`
	VariantModel *string `db:"variant_model" json:"variantModel,omitempty"`
}

// StockStatus classifies this row's own available quantity. Store listings
// filter with the SQL rowStatusExpr in the repository, which must classify
// rows the same way.
func (r *StoreInventory) StockStatus() StockStatus {
	return ClassifyStock(r.Available())
}

// Available returns the quantity this row contributes to the aggregate.
// Inactive rows contribute nothing.
func (r *StoreInventory) Available() int {
	if !r.IsActive {
		return 0
	}
	if avail := r.StockQty - r.ReservedQty; avail > 0 {
		return avail
	}
	return 0
}

// ClampQuantity floors negative stock figures at zero.
func ClampQuantity(q int) int {
	if q < 0 {
		return 0
	}
	return q
}
