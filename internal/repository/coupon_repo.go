package repository

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/storefront_api/internal/models"
)

// CouponRepository reads coupons and records redemptions.
type CouponRepository struct {
	db *sqlx.DB
}

// NewCouponRepository creates a new CouponRepository.
func NewCouponRepository(db *sqlx.DB) *CouponRepository {
	return &CouponRepository{db: db}
}

// GetByCode returns a coupon by its code, case-insensitively.
// Returns sql.ErrNoRows if absent.
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	const q = `SELECT * FROM coupons WHERE code = $1 LIMIT 1`
	var c models.Coupon
	if err := r.db.GetContext(ctx, &c, q, strings.ToUpper(strings.TrimSpace(code))); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListPublicActive returns every public coupon with status active. Temporal and
// usage checks are left to the caller.
func (r *CouponRepository) ListPublicActive(ctx context.Context) ([]models.Coupon, error) {
	const q = `
        SELECT * FROM coupons
        WHERE visibility = 'public' AND status = 'active'
        ORDER BY code`
	coupons := []models.Coupon{}
	if err := r.db.SelectContext(ctx, &coupons, q); err != nil {
		return nil, err
	}
	return coupons, nil
}

// IncrementUsage consumes one use of the coupon, but only if it is still
// redeemable at now. Returns false when the conditions no longer hold, e.g. a
// concurrent redemption took the last use.
func (r *CouponRepository) IncrementUsage(ctx context.Context, id int, now time.Time) (bool, error) {
	const q = `
        UPDATE coupons SET used_count = used_count + 1, updated_at = NOW()
        WHERE id = $1
          AND status = 'active'
          AND (total_usage IS NULL OR used_count < total_usage)
          AND start_date <= $2
          AND expiry_date > $2`

	res, err := r.db.ExecContext(ctx, q, id, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
