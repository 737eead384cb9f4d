package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/storefront_api/internal/models"
	"github.com/GTDGit/storefront_api/internal/utils"
)

var shopper = models.CartOwner{UserID: 5}

type checkoutFixture struct {
	carts   *fakeCarts
	coupons *fakeCoupons
	svc     *CheckoutService
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	product := testProduct()
	product.Variants[0].ApplyStock(1)
	product.Variants[1].ApplyStock(10)

	coupons := newFakeCoupons(percentCoupon("SAVE20", "20", "150"))
	couponSvc := newCouponService(coupons, nil)
	svc := NewCheckoutService(newFakeCarts(), newFakeCatalog(product), couponSvc, time.Second, nil)
	svc.now = func() time.Time { return couponNow }

	f := &checkoutFixture{carts: svc.carts.(*fakeCarts), coupons: coupons, svc: svc}
	return f
}

func catalogLine(sku string, qty int, snapshot string) models.CartItem {
	return models.CartItem{
		ProductID:     intPtr(1),
		VariantSKU:    strPtr(sku),
		Title:         "Linen Shirt",
		Quantity:      qty,
		PriceSnapshot: dec(snapshot),
	}
}

func TestPreview_OutOfStock(t *testing.T) {
	f := newCheckoutFixture(t)
	f.carts.put(shopper, catalogLine("SHIRT-S", 3, "100"))

	_, err := f.svc.Preview(context.Background(), shopper, "SAVE20")
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrStockInsufficient))
	assert.Contains(t, err.Error(), "Linen Shirt")
	assert.False(t, utils.IsRetryable(err))
	assert.Equal(t, 0, f.coupons.increments)
}

func TestPreview_UnknownCouponDegrades(t *testing.T) {
	f := newCheckoutFixture(t)
	f.carts.put(shopper, catalogLine("SHIRT-M", 2, "90"))

	p, err := f.svc.Preview(context.Background(), shopper, "NOPE")
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.CouponDiscount)
	assert.Nil(t, p.Coupon)
	assert.Contains(t, p.CouponError, "NOPE")
	assert.Equal(t, int64(180), p.Subtotal)
	assert.Equal(t, int64(20), p.TotalDiscount)
	assert.Equal(t, int64(200), p.TotalCutPrice)
	assert.Equal(t, int64(180), p.FinalAmount)
}

func TestPreview_CouponBelowMinimumDegrades(t *testing.T) {
	f := newCheckoutFixture(t)
	big := baseCoupon("BIGONLY")
	big.MinOrderValue = dec("5000")
	f.coupons.coupons["BIGONLY"] = &big
	f.carts.put(shopper, catalogLine("SHIRT-M", 1, "100"))

	p, err := f.svc.Preview(context.Background(), shopper, "BIGONLY")
	require.NoError(t, err)
	assert.Contains(t, p.CouponError, "5000")
	assert.Equal(t, int64(100), p.FinalAmount)
}

func TestPreview_PricesAndRounds(t *testing.T) {
	f := newCheckoutFixture(t)
	f.carts.put(shopper, catalogLine("SHIRT-S", 1, "99.5"), catalogLine("SHIRT-M", 2, "90"))

	p, err := f.svc.Preview(context.Background(), shopper, "save20")
	require.NoError(t, err)
	require.Len(t, p.Lines, 2)

	first := p.Lines[0]
	assert.Equal(t, int64(100), first.UnitPrice)
	assert.Equal(t, int64(120), first.CutPrice, "MRP is preferred over price")
	assert.Equal(t, int64(21), first.DiscountPerUnit)
	assert.Equal(t, 1, first.StockQuantity)
	assert.Equal(t, models.StockLowStock, first.StockStatus)

	second := p.Lines[1]
	assert.Equal(t, int64(100), second.CutPrice, "price is used without an MRP")
	assert.Equal(t, int64(180), second.LineTotal)

	// subtotal 279.5, item discount 40.5, coupon 20% = 55.9
	assert.Equal(t, int64(280), p.Subtotal)
	assert.Equal(t, int64(41), p.TotalDiscount)
	assert.Equal(t, int64(320), p.TotalCutPrice)
	assert.Equal(t, int64(56), p.CouponDiscount)
	assert.Equal(t, int64(224), p.FinalAmount)
	require.NotNil(t, p.Coupon)
	assert.Equal(t, "SAVE20", p.Coupon.Code)
	assert.Empty(t, p.CouponError)
	assert.Equal(t, 0, f.coupons.increments, "preview never redeems")
}

func TestPreview_SnapshotAboveLivePriceHasNoItemDiscount(t *testing.T) {
	f := newCheckoutFixture(t)
	f.carts.put(shopper, catalogLine("SHIRT-M", 1, "130"))

	p, err := f.svc.Preview(context.Background(), shopper, "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.TotalDiscount)
	assert.Equal(t, int64(130), p.TotalCutPrice)
}

func TestPreview_HardFailures(t *testing.T) {
	external := models.CartItem{Title: "Hand-made vase", Quantity: 1, PriceSnapshot: dec("50")}
	noSKU := catalogLine("SHIRT-S", 1, "100")
	noSKU.VariantSKU = nil
	blankSKU := catalogLine("  ", 1, "100")

	tests := []struct {
		name  string
		items []models.CartItem
		code  string
		kind  error
	}{
		{"no cart", nil, utils.CodeEmptyCart, utils.ErrValidation},
		{"missing sku", []models.CartItem{noSKU}, utils.CodeVariantSelectionMissing, utils.ErrValidation},
		{"blank sku", []models.CartItem{blankSKU}, utils.CodeVariantSelectionMissing, utils.ErrValidation},
		{"item outside catalog", []models.CartItem{external}, utils.CodeVariantSelectionMissing, utils.ErrValidation},
		{"unknown variant", []models.CartItem{catalogLine("SHIRT-XL", 1, "100")}, utils.CodeVariantUnavailable, utils.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCheckoutFixture(t)
			if tt.items != nil {
				f.carts.put(shopper, tt.items...)
			}
			_, err := f.svc.Preview(context.Background(), shopper, "")
			require.Error(t, err)
			appErr, ok := utils.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, appErr.Code)
			assert.True(t, errors.Is(err, tt.kind))
		})
	}
}

func TestPreview_UnknownVariantNamesProduct(t *testing.T) {
	f := newCheckoutFixture(t)
	f.carts.put(shopper, catalogLine("SHIRT-XL", 1, "100"))

	_, err := f.svc.Preview(context.Background(), shopper, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Linen Shirt")
}

func TestPreview_EmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)
	f.carts.put(shopper)

	_, err := f.svc.Preview(context.Background(), shopper, "")
	appErr, ok := utils.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, utils.CodeEmptyCart, appErr.Code)
}

// blockingProducts never answers before the context ends.
type blockingProducts struct{}

func (blockingProducts) GetByIDs(ctx context.Context, _ []int) (map[int]*models.Product, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestPreview_Timeout(t *testing.T) {
	carts := newFakeCarts()
	carts.put(shopper, catalogLine("SHIRT-M", 1, "100"))
	svc := NewCheckoutService(carts, blockingProducts{}, nil, 20*time.Millisecond, nil)

	_, err := svc.Preview(context.Background(), shopper, "")
	require.Error(t, err)
	appErr, ok := utils.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, utils.CodePreviewTimeout, appErr.Code)
	assert.True(t, errors.Is(err, utils.ErrInternal))
	assert.True(t, utils.IsRetryable(err))
}

// brokenCoupons fails every lookup as if the database were down.
type brokenCoupons struct{}

func (brokenCoupons) Validate(context.Context, string, decimal.Decimal, time.Time, CouponMode) (*CouponQuote, error) {
	return nil, errors.New("connection refused")
}

func TestPreview_CouponInfrastructureFailureIsFatal(t *testing.T) {
	product := testProduct()
	product.Variants[1].ApplyStock(10)
	carts := newFakeCarts()
	carts.put(shopper, catalogLine("SHIRT-M", 1, "100"))
	svc := NewCheckoutService(carts, newFakeCatalog(product), brokenCoupons{}, time.Second, nil)

	_, err := svc.Preview(context.Background(), shopper, "SAVE20")
	require.Error(t, err)
	_, isApp := utils.AsAppError(err)
	assert.False(t, isApp)
}
