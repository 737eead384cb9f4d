package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/storefront_api/internal/metrics"
	"github.com/GTDGit/storefront_api/internal/models"
	"github.com/GTDGit/storefront_api/internal/utils"
)

// CartReader loads a cart with its lines.
type CartReader interface {
	GetByOwner(ctx context.Context, owner models.CartOwner) (*models.Cart, error)
}

// ProductBatchReader loads several products with their variants at once.
type ProductBatchReader interface {
	GetByIDs(ctx context.Context, ids []int) (map[int]*models.Product, error)
}

// CouponValidator validates a coupon without consuming it.
type CouponValidator interface {
	Validate(ctx context.Context, code string, subtotal decimal.Decimal, now time.Time, mode CouponMode) (*CouponQuote, error)
}

// CheckoutService prices a cart against live catalog data.
type CheckoutService struct {
	carts    CartReader
	products ProductBatchReader
	coupons  CouponValidator
	timeout  time.Duration
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewCheckoutService constructs a CheckoutService. A zero timeout disables the deadline.
func NewCheckoutService(carts CartReader, products ProductBatchReader, coupons CouponValidator, timeout time.Duration, m *metrics.Metrics) *CheckoutService {
	return &CheckoutService{
		carts:    carts,
		products: products,
		coupons:  coupons,
		timeout:  timeout,
		metrics:  m,
		now:      time.Now,
	}
}

// PreviewLine is the priced breakdown of one cart line.
type PreviewLine struct {
	ItemID          int                `json:"itemId"`
	ProductID       int                `json:"productId"`
	VariantSKU      string             `json:"variantSku"`
	Title           string             `json:"title"`
	Image           string             `json:"image"`
	Quantity        int                `json:"quantity"`
	UnitPrice       int64              `json:"unitPrice"`
	CutPrice        int64              `json:"cutPrice"`
	DiscountPerUnit int64              `json:"discountPerUnit"`
	LineTotal       int64              `json:"lineTotal"`
	StockQuantity   int                `json:"stockQuantity"`
	StockStatus     models.StockStatus `json:"stockStatus"`
}

// CouponSummary describes the coupon applied to a preview.
type CouponSummary struct {
	Code          string              `json:"code"`
	DiscountType  models.DiscountType `json:"discountType"`
	DiscountValue decimal.Decimal     `json:"discountValue"`
	MaxDiscount   decimal.NullDecimal `json:"maxDiscount"`
	Discount      int64               `json:"discount"`
}

// CheckoutPreview is the priced, stock-checked view of a cart. It is advisory:
// stock is only decremented when an order is committed.
type CheckoutPreview struct {
	Lines          []PreviewLine  `json:"items"`
	Subtotal       int64          `json:"subtotal"`
	TotalCutPrice  int64          `json:"totalCutPrice"`
	TotalDiscount  int64          `json:"totalDiscount"`
	CouponDiscount int64          `json:"couponDiscount"`
	FinalAmount    int64          `json:"finalAmount"`
	Coupon         *CouponSummary `json:"coupon,omitempty"`
	CouponError    string         `json:"couponError,omitempty"`
}

// Preview prices the owner's cart. couponCode is optional; an unusable coupon
// is reported in CouponError and does not fail the preview.
func (s *CheckoutService) Preview(ctx context.Context, owner models.CartOwner, couponCode string) (*CheckoutPreview, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	preview, err := s.preview(ctx, owner, strings.TrimSpace(couponCode))
	if err != nil {
		if _, ok := utils.AsAppError(err); !ok && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = utils.NewAppError(utils.ErrInternal, utils.CodePreviewTimeout, "checkout preview timed out, please retry")
		}
		s.metrics.ObservePreview("failed")
		return nil, err
	}
	if preview.CouponError != "" {
		s.metrics.ObservePreview("degraded")
	} else {
		s.metrics.ObservePreview("ok")
	}
	return preview, nil
}

func (s *CheckoutService) preview(ctx context.Context, owner models.CartOwner, couponCode string) (*CheckoutPreview, error) {
	cart, err := s.carts.GetByOwner(ctx, owner)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, utils.ValidationError(utils.CodeEmptyCart, "cart is empty")
	}

	// Every line needs a variant selection before anything is loaded.
	ids := make([]int, 0, len(cart.Items))
	seen := make(map[int]bool, len(cart.Items))
	for i := range cart.Items {
		item := &cart.Items[i]
		if !item.IsCatalogItem() || item.SKU() == "" {
			return nil, utils.ValidationError(utils.CodeVariantSelectionMissing, "select a variant for %q before checkout", item.Title)
		}
		if !seen[*item.ProductID] {
			seen[*item.ProductID] = true
			ids = append(ids, *item.ProductID)
		}
	}

	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	var (
		subtotal      decimal.Decimal
		totalDiscount decimal.Decimal
		lines         = make([]PreviewLine, 0, len(cart.Items))
	)
	for i := range cart.Items {
		item := &cart.Items[i]
		sku := item.SKU()

		product, ok := products[*item.ProductID]
		if !ok || !product.IsActive {
			return nil, utils.NotFoundError(utils.CodeVariantUnavailable, "%s is no longer available", item.Title)
		}
		variant, ok := product.Variants.BySKU(sku)
		if !ok {
			return nil, utils.NotFoundError(utils.CodeVariantUnavailable, "the selected variant of %s is no longer available", product.Name)
		}
		if variant.StockQuantity < item.Quantity {
			return nil, utils.StockError(utils.CodeOutOfStock, "%s is out of stock (requested %d, available %d)", product.Name, item.Quantity, variant.StockQuantity)
		}

		qty := decimal.NewFromInt(int64(item.Quantity))
		cut := variant.CutPrice(item.PriceSnapshot)
		perUnit := decimal.Max(decimal.Zero, cut.Sub(item.PriceSnapshot))
		lineTotal := item.PriceSnapshot.Mul(qty)

		subtotal = subtotal.Add(lineTotal)
		totalDiscount = totalDiscount.Add(perUnit.Mul(qty))

		lines = append(lines, PreviewLine{
			ItemID:          item.ID,
			ProductID:       product.ID,
			VariantSKU:      sku,
			Title:           product.Name,
			Image:           product.Image,
			Quantity:        item.Quantity,
			UnitPrice:       utils.RoundMoney(item.PriceSnapshot),
			CutPrice:        utils.RoundMoney(cut),
			DiscountPerUnit: utils.RoundMoney(perUnit),
			LineTotal:       utils.RoundMoney(lineTotal),
			StockQuantity:   variant.StockQuantity,
			StockStatus:     variant.StockStatus,
		})
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	preview := &CheckoutPreview{Lines: lines}
	couponDiscount := decimal.Zero
	if couponCode != "" {
		quote, err := s.coupons.Validate(ctx, couponCode, subtotal, s.now(), ModePreview)
		switch {
		case err == nil:
			couponDiscount = quote.Discount
			preview.Coupon = &CouponSummary{
				Code:          quote.Coupon.Code,
				DiscountType:  quote.Coupon.DiscountType,
				DiscountValue: quote.Coupon.DiscountValue,
				MaxDiscount:   quote.Coupon.MaxDiscount,
				Discount:      utils.RoundMoney(quote.Discount),
			}
		case isCouponRejection(err):
			appErr, _ := utils.AsAppError(err)
			preview.CouponError = appErr.Message
		default:
			return nil, err
		}
	}

	preview.Subtotal = utils.RoundMoney(subtotal)
	preview.TotalDiscount = utils.RoundMoney(totalDiscount)
	preview.TotalCutPrice = utils.RoundMoney(subtotal.Add(totalDiscount))
	preview.CouponDiscount = utils.RoundMoney(couponDiscount)
	preview.FinalAmount = utils.RoundMoney(subtotal.Sub(couponDiscount))
	return preview, nil
}

// isCouponRejection reports whether err is a coupon the shopper cannot use,
// as opposed to a failure to check it.
func isCouponRejection(err error) bool {
	if _, ok := utils.AsAppError(err); !ok {
		return false
	}
	return errors.Is(err, utils.ErrValidation) || errors.Is(err, utils.ErrNotFound) || errors.Is(err, utils.ErrConflict)
}
