package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/rs/zerolog/log"
)

// Locker hands out short-lived, best-effort Redis locks.
type Locker struct {
	client *redislock.Client
	ttl    time.Duration
}

// NewLocker creates a Locker whose locks expire after ttl.
func NewLocker(redis *RedisClient, ttl time.Duration) *Locker {
	return &Locker{client: redislock.New(redis.Raw()), ttl: ttl}
}

// TryLock attempts to obtain key without waiting. The returned release func is
// non-nil only when ok is true.
func (l *Locker) TryLock(ctx context.Context, key string) (release func(), ok bool) {
	lock, err := l.client.Obtain(ctx, key, l.ttl, nil)
	if err != nil {
		if !errors.Is(err, redislock.ErrNotObtained) {
			log.Warn().Err(err).Str("key", key).Msg("redis lock unavailable")
		}
		return nil, false
	}
	return func() {
		// Release with a fresh context so a cancelled request still frees the key.
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			log.Warn().Err(err).Str("key", key).Msg("redis lock release failed")
		}
	}, true
}
