package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/storefront_api/internal/models"
	"github.com/GTDGit/storefront_api/internal/utils"
)

type inventoryFixture struct {
	catalog *fakeCatalog
	ledger  *fakeInventory
	svc     *InventoryService
}

func newInventoryFixture() *inventoryFixture {
	catalog := newFakeCatalog(testProduct())
	ledger := &fakeInventory{}
	agg := NewStockAggregator(catalog, ledger, nil, nil, nil)
	return &inventoryFixture{catalog: catalog, ledger: ledger, svc: NewInventoryService(ledger, catalog, agg)}
}

func TestInventoryUpsert_UnknownSKU(t *testing.T) {
	f := newInventoryFixture()

	_, err := f.svc.Upsert(context.Background(), 7, UpsertInventoryRequest{ProductID: 1, VariantSKU: "SHIRT-XL", StockQty: intPtr(3)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrNotFound))
	appErr, ok := utils.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, utils.CodeVariantNotFound, appErr.Code)
	assert.Equal(t, 0, f.ledger.count())
	assert.Equal(t, 0, f.catalog.writes)
}

func TestInventoryUpsert_UnknownProduct(t *testing.T) {
	f := newInventoryFixture()

	_, err := f.svc.Upsert(context.Background(), 7, UpsertInventoryRequest{ProductID: 42, VariantSKU: "SHIRT-S", StockQty: intPtr(3)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrNotFound))
	assert.Equal(t, 0, f.ledger.count())
}

func TestInventoryUpsert_ClampsAndRecomputes(t *testing.T) {
	f := newInventoryFixture()
	ctx := context.Background()

	res, err := f.svc.Upsert(ctx, 7, UpsertInventoryRequest{ProductID: 1, VariantSKU: " SHIRT-S ", StockQty: intPtr(-4), ReservedQty: intPtr(-1)})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Record.StockQty)
	assert.Equal(t, 0, res.Record.ReservedQty)
	assert.Equal(t, "SHIRT-S", res.Record.VariantSKU)
	require.NotNil(t, res.Stock)
	assert.Equal(t, models.StockOutOfStock, res.Stock.Status)

	_, err = f.svc.Upsert(ctx, 8, UpsertInventoryRequest{ProductID: 1, VariantSKU: "SHIRT-S", StockQty: intPtr(4)})
	require.NoError(t, err)
	res, err = f.svc.Upsert(ctx, 7, UpsertInventoryRequest{ProductID: 1, VariantSKU: "SHIRT-S", StockQty: intPtr(10), ReservedQty: intPtr(2)})
	require.NoError(t, err)

	assert.Equal(t, 2, f.ledger.count(), "repeat upsert for the same store must not add a row")
	assert.Equal(t, StockSummary{TotalAvailable: 12, Status: models.StockInStock}, *res.Stock)
	v := f.catalog.variant(1, "SHIRT-S")
	assert.Equal(t, 12, v.StockQuantity)
	assert.True(t, v.HasStock)
}

func TestInventoryUpsert_KeepsOmittedFields(t *testing.T) {
	f := newInventoryFixture()
	ctx := context.Background()

	_, err := f.svc.Upsert(ctx, 7, UpsertInventoryRequest{
		ProductID: 1, VariantSKU: "SHIRT-M", StockQty: intPtr(5),
		LeadTimeDays: intPtr(3), FulfillmentOptions: []string{"pickup"}, IsActive: boolPtr(true),
	})
	require.NoError(t, err)

	res, err := f.svc.Upsert(ctx, 7, UpsertInventoryRequest{ProductID: 1, VariantSKU: "SHIRT-M", StockQty: intPtr(6)})
	require.NoError(t, err)
	assert.Equal(t, 6, res.Record.StockQty)
	assert.Equal(t, 3, res.Record.LeadTimeDays)
	assert.Equal(t, []string{"pickup"}, []string(res.Record.FulfillmentOptions))
}

func TestInventoryUpdate(t *testing.T) {
	f := newInventoryFixture()
	ctx := context.Background()

	created, err := f.svc.Upsert(ctx, 7, UpsertInventoryRequest{ProductID: 1, VariantSKU: "SHIRT-S", StockQty: intPtr(8)})
	require.NoError(t, err)
	id := created.Record.ID

	t.Run("other store", func(t *testing.T) {
		_, err := f.svc.Update(ctx, 99, id, UpdateInventoryRequest{StockQty: intPtr(1)})
		assert.True(t, errors.Is(err, utils.ErrNotFound))
	})

	t.Run("unknown record", func(t *testing.T) {
		_, err := f.svc.Update(ctx, 7, 12345, UpdateInventoryRequest{StockQty: intPtr(1)})
		assert.True(t, errors.Is(err, utils.ErrNotFound))
	})

	t.Run("non-stock edit skips recompute", func(t *testing.T) {
		writes := f.catalog.writes
		res, err := f.svc.Update(ctx, 7, id, UpdateInventoryRequest{LeadTimeDays: intPtr(2), StoreSKU: strPtr("A-1")})
		require.NoError(t, err)
		assert.Nil(t, res.Stock)
		assert.Equal(t, 2, res.Record.LeadTimeDays)
		assert.Equal(t, writes, f.catalog.writes)
	})

	t.Run("reserved change recomputes", func(t *testing.T) {
		res, err := f.svc.Update(ctx, 7, id, UpdateInventoryRequest{ReservedQty: intPtr(5)})
		require.NoError(t, err)
		require.NotNil(t, res.Stock)
		assert.Equal(t, 3, res.Stock.TotalAvailable)
		assert.Equal(t, models.StockLowStock, f.catalog.variant(1, "SHIRT-S").StockStatus)
	})

	t.Run("deactivate zeroes aggregate", func(t *testing.T) {
		res, err := f.svc.Update(ctx, 7, id, UpdateInventoryRequest{IsActive: boolPtr(false)})
		require.NoError(t, err)
		require.NotNil(t, res.Stock)
		assert.Equal(t, 0, res.Stock.TotalAvailable)
		assert.False(t, f.catalog.variant(1, "SHIRT-S").HasStock)
	})
}

func TestInventoryListByStore_InvalidStatus(t *testing.T) {
	f := newInventoryFixture()

	_, err := f.svc.ListByStore(context.Background(), 7, "plenty", 1, 20)
	assert.True(t, errors.Is(err, utils.ErrValidation))
}

func TestInventoryListByStore_FiltersByRowStatus(t *testing.T) {
	f := newInventoryFixture()
	ctx := context.Background()
	_, err := f.svc.Upsert(ctx, 7, UpsertInventoryRequest{ProductID: 1, VariantSKU: "SHIRT-S", StockQty: intPtr(2)})
	require.NoError(t, err)
	_, err = f.svc.Upsert(ctx, 7, UpsertInventoryRequest{ProductID: 1, VariantSKU: "SHIRT-M", StockQty: intPtr(20)})
	require.NoError(t, err)

	res, err := f.svc.ListByStore(ctx, 7, string(models.StockLowStock), 1, 20)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "SHIRT-S", res.Records[0].VariantSKU)
}

func TestInventoryListByProduct_UnknownProduct(t *testing.T) {
	f := newInventoryFixture()

	_, err := f.svc.ListByProduct(context.Background(), 404)
	assert.True(t, errors.Is(err, utils.ErrNotFound))
}

func TestInventoryWrites_UniqueViolationIsConflict(t *testing.T) {
	f := newInventoryFixture()
	ctx := context.Background()

	created, err := f.svc.Upsert(ctx, 7, UpsertInventoryRequest{ProductID: 1, VariantSKU: "SHIRT-S", StockQty: intPtr(8)})
	require.NoError(t, err)

	f.ledger.writeErr = fmt.Errorf("exec: %w", &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err = f.svc.Upsert(ctx, 7, UpsertInventoryRequest{ProductID: 1, VariantSKU: "SHIRT-S", StockQty: intPtr(9)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrConflict))
	appErr, ok := utils.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, utils.CodeInventoryConflict, appErr.Code)

	_, err = f.svc.Update(ctx, 7, created.Record.ID, UpdateInventoryRequest{StockQty: intPtr(2)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrConflict))
}

func TestInventoryWrites_OtherFailuresStayInternal(t *testing.T) {
	f := newInventoryFixture()
	f.ledger.writeErr = errors.New("connection reset by peer")

	_, err := f.svc.Upsert(context.Background(), 7, UpsertInventoryRequest{ProductID: 1, VariantSKU: "SHIRT-S", StockQty: intPtr(1)})
	require.Error(t, err)
	_, ok := utils.AsAppError(err)
	assert.False(t, ok)
}
