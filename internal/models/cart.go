package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CartOwner identifies whose cart is addressed: a signed-in user or a guest session.
type CartOwner struct {
	UserID    int
	SessionID string
}

// IsGuest reports whether the owner is an anonymous session.
func (o CartOwner) IsGuest() bool {
	return o.UserID == 0
}

// Valid reports whether the owner carries any identity.
func (o CartOwner) Valid() bool {
	return o.UserID > 0 || o.SessionID != ""
}

func (o CartOwner) String() string {
	if o.IsGuest() {
		return "session:" + o.SessionID
	}
	return fmt.Sprintf("user:%d", o.UserID)
}

// Cart is a user's or guest's set of selected items.
type Cart struct {
	ID        int        `db:"id" json:"id"`
	UserID    *int       `db:"user_id" json:"userId,omitempty"`
	SessionID *string    `db:"session_id" json:"sessionId,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"-"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
	Items     []CartItem `db:"-" json:"items"`
}

// CartItem is one cart line. Catalog items carry ProductID and VariantSKU;
// externally sourced category products carry neither.
type CartItem struct {
	ID            int             `db:"id" json:"id"`
	CartID        int             `db:"cart_id" json:"-"`
	ProductID     *int            `db:"product_id" json:"productId,omitempty"`
	VariantSKU    *string         `db:"variant_sku" json:"variantSku,omitempty"`
	Title         string          `db:"title" json:"title"`
	Image         string          `db:"image" json:"image"`
	Category      string          `db:"category" json:"category"`
	Quantity      int             `db:"quantity" json:"quantity"`
	PriceSnapshot decimal.Decimal `db:"price_snapshot" json:"priceSnapshot"`
	CreatedAt     time.Time       `db:"created_at" json:"-"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updatedAt"`
}

// IsCatalogItem reports whether the line references a catalog product.
func (i *CartItem) IsCatalogItem() bool {
	return i.ProductID != nil
}

// SKU returns the variant sku of the line or "" when none was selected.
func (i *CartItem) SKU() string {
	if i.VariantSKU == nil {
		return ""
	}
	return strings.TrimSpace(*i.VariantSKU)
}

// LineKey identifies lines that merge: same product and variant, or for
// non-catalog items the same title.
func (i *CartItem) LineKey() string {
	if i.ProductID != nil {
		return fmt.Sprintf("variant:%d:%s", *i.ProductID, i.SKU())
	}
	return "title:" + strings.TrimSpace(i.Title)
}
