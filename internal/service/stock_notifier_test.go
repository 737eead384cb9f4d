package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/storefront_api/internal/models"
)

type published struct {
	key     string
	payload any
}

type chanPublisher chan published

func (c chanPublisher) PublishJSON(_ context.Context, key string, payload any) error {
	c <- published{key: key, payload: payload}
	return nil
}

func TestKafkaStockNotifier_KeysByVariant(t *testing.T) {
	out := make(chanPublisher, 1)
	n := NewKafkaStockNotifier(out)

	change := models.StockChange{ProductID: 3, VariantSKU: "MUG-RED", StockQuantity: 4, StockStatus: models.StockLowStock}
	n.NotifyStockChanged(context.Background(), change)

	select {
	case msg := <-out:
		assert.Equal(t, "3:MUG-RED", msg.key)
		assert.Equal(t, change, msg.payload)
	case <-time.After(time.Second):
		require.Fail(t, "stock change was not published")
	}
}

// slowPublisher delays every publish so that out-of-order delivery would show.
type slowPublisher struct {
	mu   sync.Mutex
	got  []int
	wait time.Duration
}

func (p *slowPublisher) PublishJSON(_ context.Context, _ string, payload any) error {
	time.Sleep(p.wait)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, payload.(models.StockChange).StockQuantity)
	return nil
}

func TestKafkaStockNotifier_PreservesOrderAndDrainsOnClose(t *testing.T) {
	pub := &slowPublisher{wait: 5 * time.Millisecond}
	n := NewKafkaStockNotifier(pub)

	for _, qty := range []int{3, 0, 7, 1} {
		n.NotifyStockChanged(context.Background(), models.StockChange{ProductID: 1, VariantSKU: "SKU", StockQuantity: qty})
	}
	n.Close()

	assert.Equal(t, []int{3, 0, 7, 1}, pub.got)
}

func TestKafkaStockNotifier_IgnoresChangesAfterClose(t *testing.T) {
	out := make(chanPublisher, 1)
	n := NewKafkaStockNotifier(out)
	n.Close()
	n.Close()

	n.NotifyStockChanged(context.Background(), models.StockChange{ProductID: 1, VariantSKU: "SKU"})
	assert.Empty(t, out)
}
