package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/storefront_api/internal/models"
)

// StockNotifier is told about every change of a variant's aggregate stock.
// Implementations must not block the caller on slow consumers.
type StockNotifier interface {
	NotifyStockChanged(ctx context.Context, change models.StockChange)
}

// NopStockNotifier discards every change.
type NopStockNotifier struct{}

func (NopStockNotifier) NotifyStockChanged(context.Context, models.StockChange) {}

// MultiStockNotifier fans a change out to several notifiers.
type MultiStockNotifier []StockNotifier

func (m MultiStockNotifier) NotifyStockChanged(ctx context.Context, change models.StockChange) {
	for _, n := range m {
		n.NotifyStockChanged(ctx, change)
	}
}

// JSONPublisher publishes a keyed JSON message.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, key string, payload any) error
}

const stockQueueSize = 256

// KafkaStockNotifier publishes stock changes to a topic, keyed by variant.
// A single goroutine drains a FIFO queue, so changes reach the publisher in
// the order they were notified.
type KafkaStockNotifier struct {
	publisher JSONPublisher
	timeout   time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan models.StockChange
	done   chan struct{}
}

func NewKafkaStockNotifier(publisher JSONPublisher) *KafkaStockNotifier {
	n := &KafkaStockNotifier{
		publisher: publisher,
		timeout:   5 * time.Second,
		queue:     make(chan models.StockChange, stockQueueSize),
		done:      make(chan struct{}),
	}
	go n.run()
	return n
}

// NotifyStockChanged enqueues change without waiting for the broker. The
// request context is not used because the request may finish first. When the
// queue is full the change is dropped; the next change of the variant carries
// the current figures.
func (n *KafkaStockNotifier) NotifyStockChanged(_ context.Context, change models.StockChange) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return
	}
	select {
	case n.queue <- change:
	default:
		log.Warn().Str("key", stockKey(change)).Msg("stock change queue full, dropping event")
	}
}

// Close stops accepting changes and waits until the queued ones are published.
func (n *KafkaStockNotifier) Close() {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()
	<-n.done
}

func (n *KafkaStockNotifier) run() {
	defer close(n.done)
	for change := range n.queue {
		key := stockKey(change)
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		if err := n.publisher.PublishJSON(ctx, key, change); err != nil {
			log.Error().Err(err).Str("key", key).Msg("failed to publish stock change")
		}
		cancel()
	}
}

func stockKey(change models.StockChange) string {
	return fmt.Sprintf("%d:%s", change.ProductID, change.VariantSKU)
}
