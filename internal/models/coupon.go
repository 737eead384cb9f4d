package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFlat       DiscountType = "flat"
)

// CouponStatus enumerates the lifecycle states of a coupon.
type CouponStatus string

const (
	CouponActive   CouponStatus = "active"
	CouponInactive CouponStatus = "inactive"
	CouponExpired  CouponStatus = "expired"
)

// CouponVisibility controls whether a coupon is advertised to shoppers.
type CouponVisibility string

const (
	CouponPublic  CouponVisibility = "public"
	CouponPrivate CouponVisibility = "private"
)

// UsageLimit is the total number of redemptions a coupon allows: either
// unlimited or a fixed count. The zero value is Limited(0).
type UsageLimit struct {
	n         int
	unlimited bool
}

// Unlimited returns a limit that is never exhausted.
func Unlimited() UsageLimit {
	return UsageLimit{unlimited: true}
}

// Limited returns a limit of n redemptions.
func Limited(n int) UsageLimit {
	if n < 0 {
		n = 0
	}
	return UsageLimit{n: n}
}

// Limit returns the count and true for a limited coupon, or 0 and false when unlimited.
func (u UsageLimit) Limit() (int, bool) {
	if u.unlimited {
		return 0, false
	}
	return u.n, true
}

// Exhausted reports whether used redemptions reach the limit.
func (u UsageLimit) Exhausted(used int) bool {
	n, limited := u.Limit()
	if !limited {
		return false
	}
	return used >= n
}

func (u UsageLimit) String() string {
	if n, limited := u.Limit(); limited {
		return strconv.Itoa(n)
	}
	return "unlimited"
}

// Scan implements sql.Scanner; NULL means unlimited.
func (u *UsageLimit) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*u = Unlimited()
	case int64:
		*u = Limited(int(v))
	case []byte:
		n, err := strconv.Atoi(string(v))
		if err != nil {
			return fmt.Errorf("scan usage limit: %w", err)
		}
		*u = Limited(n)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("scan usage limit: %w", err)
		}
		*u = Limited(n)
	default:
		return fmt.Errorf("scan usage limit: unsupported type %T", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (u UsageLimit) Value() (driver.Value, error) {
	if n, limited := u.Limit(); limited {
		return int64(n), nil
	}
	return nil, nil
}

// MarshalJSON renders unlimited as null.
func (u UsageLimit) MarshalJSON() ([]byte, error) {
	if n, limited := u.Limit(); limited {
		return json.Marshal(n)
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts null or a non-negative integer.
func (u *UsageLimit) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*u = Unlimited()
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*u = Limited(n)
	return nil
}

// Coupon is a discount code administered outside this service. Only reads and
// redemption increments happen here.
type Coupon struct {
	ID            int                 `db:"id" json:"id"`
	Code          string              `db:"code" json:"code"`
	DiscountType  DiscountType        `db:"discount_type" json:"discountType"`
	DiscountValue decimal.Decimal     `db:"discount_value" json:"discountValue"`
	MinOrderValue decimal.Decimal     `db:"min_order_value" json:"minOrderValue"`
	MaxDiscount   decimal.NullDecimal `db:"max_discount" json:"maxDiscount"`
	StartDate     time.Time           `db:"start_date" json:"startDate"`
	ExpiryDate    time.Time           `db:"expiry_date" json:"expiryDate"`
	TotalUsage    UsageLimit          `db:"total_usage" json:"totalUsage"`
	UsedCount     int                 `db:"used_count" json:"usedCount"`
	Status        CouponStatus        `db:"status" json:"status"`
	Visibility    CouponVisibility    `db:"visibility" json:"visibility"`
	CreatedAt     time.Time           `db:"created_at" json:"-"`
	UpdatedAt     time.Time           `db:"updated_at" json:"updatedAt"`
}
