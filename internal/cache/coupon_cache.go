package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/storefront_api/internal/models"
)

const applicableCouponsKey = "coupon:applicable:public"

// CouponCache caches the public active coupon candidates used for ranking.
// Failures are logged and treated as misses; the database stays authoritative.
type CouponCache struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewCouponCache creates a new CouponCache.
func NewCouponCache(redis *RedisClient, ttl time.Duration) *CouponCache {
	return &CouponCache{redis: redis, ttl: ttl}
}

// GetApplicable returns the cached candidates and whether the cache was hit.
func (c *CouponCache) GetApplicable(ctx context.Context) ([]models.Coupon, bool) {
	raw, err := c.redis.Get(ctx, applicableCouponsKey)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Msg("coupon cache read failed")
		}
		return nil, false
	}

	var coupons []models.Coupon
	if err := json.Unmarshal([]byte(raw), &coupons); err != nil {
		log.Warn().Err(err).Msg("coupon cache payload invalid")
		return nil, false
	}
	return coupons, true
}

// SetApplicable stores the candidates for the configured TTL.
func (c *CouponCache) SetApplicable(ctx context.Context, coupons []models.Coupon) {
	if c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(coupons)
	if err != nil {
		log.Warn().Err(err).Msg("failed to marshal coupon candidates")
		return
	}
	if err := c.redis.Set(ctx, applicableCouponsKey, string(data), c.ttl); err != nil {
		log.Warn().Err(err).Msg("coupon cache write failed")
	}
}

// InvalidateApplicable drops the cached candidates, e.g. after a redemption.
func (c *CouponCache) InvalidateApplicable(ctx context.Context) {
	if err := c.redis.Delete(ctx, applicableCouponsKey); err != nil {
		log.Warn().Err(err).Msg("coupon cache invalidation failed")
	}
}
