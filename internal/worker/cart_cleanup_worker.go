package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// GuestCartCleaner deletes guest carts idle for longer than ttl.
type GuestCartCleaner interface {
	CleanupIdleGuestCarts(ctx context.Context, ttl time.Duration) (int64, error)
}

// CartCleanupWorker purges idle guest carts on a fixed interval.
type CartCleanupWorker struct {
	carts    GuestCartCleaner
	ttl      time.Duration
	interval time.Duration
}

// NewCartCleanupWorker constructs a CartCleanupWorker.
func NewCartCleanupWorker(carts GuestCartCleaner, ttl, interval time.Duration) *CartCleanupWorker {
	return &CartCleanupWorker{
		carts:    carts,
		ttl:      ttl,
		interval: interval,
	}
}

// Start begins the cleanup loop and listens for context cancellation.
func (w *CartCleanupWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Dur("ttl", w.ttl).Msg("Starting cart cleanup worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Cart cleanup worker stopped")
			return
		}
	}
}

func (w *CartCleanupWorker) run(ctx context.Context) {
	n, err := w.carts.CleanupIdleGuestCarts(ctx, w.ttl)
	if err != nil {
		log.Error().Err(err).Msg("guest cart cleanup failed")
		return
	}
	if n > 0 {
		log.Info().Int64("deleted", n).Msg("idle guest carts removed")
	}
}
