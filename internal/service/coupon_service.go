package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/storefront_api/internal/metrics"
	"github.com/GTDGit/storefront_api/internal/models"
	"github.com/GTDGit/storefront_api/internal/utils"
)

// CouponMode selects the temporal tolerance of a coupon check.
type CouponMode int

const (
	// ModePreview accepts a coupon up to and including its expiry instant.
	ModePreview CouponMode = iota
	// ModeRedeem requires now to be strictly before the expiry instant.
	ModeRedeem
)

// MaxRankedCoupons is the number of coupons RankApplicable returns.
const MaxRankedCoupons = 3

var hundred = decimal.NewFromInt(100)

// CouponStore reads coupons and records redemptions.
type CouponStore interface {
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	ListPublicActive(ctx context.Context) ([]models.Coupon, error)
	IncrementUsage(ctx context.Context, id int, now time.Time) (bool, error)
}

// CouponCandidateCache caches the public active coupons.
type CouponCandidateCache interface {
	GetApplicable(ctx context.Context) ([]models.Coupon, bool)
	SetApplicable(ctx context.Context, coupons []models.Coupon)
	InvalidateApplicable(ctx context.Context)
}

// CouponService validates, ranks and redeems coupons.
type CouponService struct {
	coupons CouponStore
	cache   CouponCandidateCache
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewCouponService constructs a CouponService. cache may be nil.
func NewCouponService(coupons CouponStore, cache CouponCandidateCache, m *metrics.Metrics) *CouponService {
	return &CouponService{coupons: coupons, cache: cache, metrics: m, now: time.Now}
}

// CouponQuote is the outcome of a successful validation.
type CouponQuote struct {
	Coupon      *models.Coupon
	Discount    decimal.Decimal
	FinalAmount decimal.Decimal
}

// ApplyResult is the outcome of a redemption.
type ApplyResult struct {
	Code        string `json:"code"`
	Discount    int64  `json:"discount"`
	FinalAmount int64  `json:"finalAmount"`
}

// RankedCoupon is one entry of the applicable coupon ranking.
type RankedCoupon struct {
	Code          string              `json:"code"`
	DiscountType  models.DiscountType `json:"discountType"`
	DiscountValue decimal.Decimal     `json:"discountValue"`
	MaxDiscount   decimal.NullDecimal `json:"maxDiscount"`
	MinOrderValue decimal.Decimal     `json:"minOrderValue"`
	ExpiryDate    time.Time           `json:"expiryDate"`
	Discount      int64               `json:"discount"`
	NewTotalPrice int64               `json:"newTotalPrice"`

	exact decimal.Decimal
}

// ComputeDiscount returns the discount c grants on subtotal, always within
// [0, subtotal]. The cap applies to percentage coupons only.
func ComputeDiscount(c *models.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}

	var d decimal.Decimal
	switch c.DiscountType {
	case models.DiscountPercentage:
		d = subtotal.Mul(c.DiscountValue).Div(hundred)
		if c.MaxDiscount.Valid && d.GreaterThan(c.MaxDiscount.Decimal) {
			d = c.MaxDiscount.Decimal
		}
	case models.DiscountFlat:
		d = c.DiscountValue
	default:
		return decimal.Zero
	}

	if d.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(d, subtotal)
}

// CheckCoupon runs the eligibility checks in order and returns the first
// failure: status, validity window, minimum order value, remaining usage.
func CheckCoupon(c *models.Coupon, subtotal decimal.Decimal, now time.Time, mode CouponMode) error {
	switch c.Status {
	case models.CouponActive:
	case models.CouponExpired:
		return utils.ValidationError(utils.CodeCouponExpired, "coupon %s has expired", c.Code)
	default:
		return utils.ValidationError(utils.CodeCouponInactive, "coupon %s is not active", c.Code)
	}

	if now.Before(c.StartDate) {
		return utils.ValidationError(utils.CodeCouponNotStarted, "coupon %s is not valid before %s", c.Code, c.StartDate.Format(time.RFC3339))
	}
	expired := now.After(c.ExpiryDate)
	if mode == ModeRedeem {
		expired = !now.Before(c.ExpiryDate)
	}
	if expired {
		return utils.ValidationError(utils.CodeCouponExpired, "coupon %s has expired", c.Code)
	}

	if subtotal.LessThan(c.MinOrderValue) {
		return utils.ValidationError(utils.CodeCouponMinOrder, "coupon %s requires a minimum order of %s", c.Code, c.MinOrderValue.StringFixed(0))
	}

	if c.TotalUsage.Exhausted(c.UsedCount) {
		return utils.ConflictError(utils.CodeCouponExhausted, "coupon %s has reached its usage limit", c.Code)
	}
	return nil
}

// Validate checks code against subtotal at now without consuming it.
func (s *CouponService) Validate(ctx context.Context, code string, subtotal decimal.Decimal, now time.Time, mode CouponMode) (*CouponQuote, error) {
	coupon, err := s.load(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := CheckCoupon(coupon, subtotal, now, mode); err != nil {
		return nil, err
	}
	discount := ComputeDiscount(coupon, subtotal)
	return &CouponQuote{Coupon: coupon, Discount: discount, FinalAmount: subtotal.Sub(discount)}, nil
}

// ValidateAndApply redeems one use of code against orderAmount. The usage
// increment is conditional, so a coupon that ran out between the check and
// the write fails with a Conflict instead of being over-redeemed.
func (s *CouponService) ValidateAndApply(ctx context.Context, code string, orderAmount decimal.Decimal) (*ApplyResult, error) {
	if orderAmount.IsNegative() {
		return nil, utils.ValidationError(utils.CodeInvalidRequest, "orderAmount must not be negative")
	}

	now := s.now()
	quote, err := s.Validate(ctx, code, orderAmount, now, ModeRedeem)
	if err != nil {
		s.metrics.ObserveRedemption("rejected")
		return nil, err
	}

	ok, err := s.coupons.IncrementUsage(ctx, quote.Coupon.ID, now)
	if err != nil {
		s.metrics.ObserveRedemption("error")
		return nil, fmt.Errorf("increment coupon usage: %w", err)
	}
	if !ok {
		s.metrics.ObserveRedemption("conflict")
		return nil, utils.ConflictError(utils.CodeCouponExhausted, "coupon %s is no longer available", quote.Coupon.Code)
	}
	s.metrics.ObserveRedemption("applied")

	if s.cache != nil {
		s.cache.InvalidateApplicable(ctx)
	}

	log.Info().
		Str("code", quote.Coupon.Code).
		Str("order_amount", orderAmount.String()).
		Str("discount", quote.Discount.String()).
		Msg("coupon redeemed")

	return &ApplyResult{
		Code:        quote.Coupon.Code,
		Discount:    utils.RoundMoney(quote.Discount),
		FinalAmount: utils.RoundMoney(quote.FinalAmount),
	}, nil
}

// RankApplicable returns up to three public coupons usable on subtotal, the
// largest discount first.
func (s *CouponService) RankApplicable(ctx context.Context, subtotal decimal.Decimal) ([]RankedCoupon, error) {
	if subtotal.IsNegative() {
		return nil, utils.ValidationError(utils.CodeInvalidRequest, "totalPrice must not be negative")
	}

	candidates, err := s.candidates(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	ranked := make([]RankedCoupon, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		if c.Visibility != models.CouponPublic {
			continue
		}
		if CheckCoupon(c, subtotal, now, ModePreview) != nil {
			continue
		}
		d := ComputeDiscount(c, subtotal)
		ranked = append(ranked, RankedCoupon{
			Code:          c.Code,
			DiscountType:  c.DiscountType,
			DiscountValue: c.DiscountValue,
			MaxDiscount:   c.MaxDiscount,
			MinOrderValue: c.MinOrderValue,
			ExpiryDate:    c.ExpiryDate,
			Discount:      utils.RoundMoney(d),
			NewTotalPrice: utils.RoundMoney(subtotal.Sub(d)),
			exact:         d,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if cmp := ranked[i].exact.Cmp(ranked[j].exact); cmp != 0 {
			return cmp > 0
		}
		return ranked[i].Code < ranked[j].Code
	})
	if len(ranked) > MaxRankedCoupons {
		ranked = ranked[:MaxRankedCoupons]
	}
	return ranked, nil
}

func (s *CouponService) candidates(ctx context.Context) ([]models.Coupon, error) {
	if s.cache != nil {
		if coupons, ok := s.cache.GetApplicable(ctx); ok {
			return coupons, nil
		}
	}
	coupons, err := s.coupons.ListPublicActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	if s.cache != nil {
		s.cache.SetApplicable(ctx, coupons)
	}
	return coupons, nil
}

func (s *CouponService) load(ctx context.Context, code string) (*models.Coupon, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, utils.ValidationError(utils.CodeCouponRequired, "coupon code is required")
	}
	coupon, err := s.coupons.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NotFoundError(utils.CodeCouponNotFound, "coupon %s not found", code)
		}
		return nil, fmt.Errorf("load coupon: %w", err)
	}
	return coupon, nil
}
