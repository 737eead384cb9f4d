package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/storefront_api/internal/models"
	"github.com/GTDGit/storefront_api/internal/repository"
)

// fakeCatalog is an in-memory product store.
type fakeCatalog struct {
	mu       sync.Mutex
	products map[int]*models.Product
	writes   int
}

func newFakeCatalog(products ...*models.Product) *fakeCatalog {
	c := &fakeCatalog{products: map[int]*models.Product{}}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func copyProduct(p *models.Product) *models.Product {
	cp := *p
	cp.Variants = append(models.VariantSet(nil), p.Variants...)
	return &cp
}

func (c *fakeCatalog) GetByID(_ context.Context, id int) (*models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return copyProduct(p), nil
}

func (c *fakeCatalog) GetByIDs(_ context.Context, ids []int) (map[int]*models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[int]*models.Product{}
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out[id] = copyProduct(p)
		}
	}
	return out, nil
}

func (c *fakeCatalog) GetVariant(_ context.Context, productID int, sku string) (*models.Variant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[productID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	v, ok := p.Variants.BySKU(sku)
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *v
	return &cp, nil
}

func (c *fakeCatalog) UpdateVariantStock(_ context.Context, productID int, sku string, qty int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[productID]
	if !ok {
		return false, nil
	}
	v, ok := p.Variants.BySKU(sku)
	if !ok {
		return false, nil
	}
	v.ApplyStock(qty)
	c.writes++
	return true, nil
}

func (c *fakeCatalog) variant(productID int, sku string) models.Variant {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, _ := c.products[productID].Variants.BySKU(sku)
	return *v
}

// fakeInventory mimics the upsert semantics of the store_inventory table.
type fakeInventory struct {
	mu      sync.Mutex
	records []models.StoreInventory
	nextID  int

	// writeErr, when set, fails every Upsert and Update.
	writeErr error
}

func (f *fakeInventory) Upsert(_ context.Context, in repository.InventoryUpsert) (*models.StoreInventory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	for i := range f.records {
		r := &f.records[i]
		if r.StoreID == in.StoreID && r.ProductID == in.ProductID && r.VariantSKU == in.VariantSKU {
			r.StockQty = in.StockQty
			if in.ReservedQty != nil {
				r.ReservedQty = *in.ReservedQty
			}
			if in.IsActive != nil {
				r.IsActive = *in.IsActive
			}
			if in.LeadTimeDays != nil {
				r.LeadTimeDays = *in.LeadTimeDays
			}
			if in.FulfillmentOptions != nil {
				r.FulfillmentOptions = in.FulfillmentOptions
			}
			cp := *r
			return &cp, nil
		}
	}
	f.nextID++
	rec := models.StoreInventory{
		ID:                 f.nextID,
		StoreID:            in.StoreID,
		ProductID:          in.ProductID,
		VariantSKU:         in.VariantSKU,
		StockQty:           in.StockQty,
		IsActive:           true,
		FulfillmentOptions: []string{},
		UpdatedAt:          time.Now(),
	}
	if in.ReservedQty != nil {
		rec.ReservedQty = *in.ReservedQty
	}
	if in.IsActive != nil {
		rec.IsActive = *in.IsActive
	}
	if in.LeadTimeDays != nil {
		rec.LeadTimeDays = *in.LeadTimeDays
	}
	if in.FulfillmentOptions != nil {
		rec.FulfillmentOptions = in.FulfillmentOptions
	}
	f.records = append(f.records, rec)
	return &rec, nil
}

func (f *fakeInventory) GetByID(_ context.Context, id int) (*models.StoreInventory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.ID == id {
			cp := r
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeInventory) Update(_ context.Context, rec *models.StoreInventory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	for i := range f.records {
		if f.records[i].ID == rec.ID {
			f.records[i] = *rec
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeInventory) ListByVariant(_ context.Context, productID int, sku string) ([]models.StoreInventory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.StoreInventory
	for _, r := range f.records {
		if r.ProductID == productID && r.VariantSKU == sku {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeInventory) ListByStore(_ context.Context, filter *repository.InventoryFilter) (*repository.InventoryListResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.StoreInventory{}
	for _, r := range f.records {
		if r.StoreID != filter.StoreID {
			continue
		}
		if filter.StockStatus != nil && r.StockStatus() != *filter.StockStatus {
			continue
		}
		out = append(out, r)
	}
	return &repository.InventoryListResult{Records: out, TotalItems: len(out), TotalPages: 1, Page: 1, Limit: 20}, nil
}

func (f *fakeInventory) ListByProduct(_ context.Context, productID int) ([]models.StoreInventory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.StoreInventory{}
	for _, r := range f.records {
		if r.ProductID == productID && r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeInventory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// recordingNotifier keeps every stock change it is told about.
type recordingNotifier struct {
	mu      sync.Mutex
	changes []models.StockChange
}

func (n *recordingNotifier) NotifyStockChanged(_ context.Context, c models.StockChange) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, c)
}

func (n *recordingNotifier) len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.changes)
}

// countingLocker always grants the lock and counts acquisitions and releases.
type countingLocker struct {
	mu                sync.Mutex
	obtained, release int
}

func (l *countingLocker) TryLock(context.Context, string) (func(), bool) {
	l.mu.Lock()
	l.obtained++
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		l.release++
		l.mu.Unlock()
	}, true
}

// fakeCoupons applies the same conditional increment as the coupons table.
type fakeCoupons struct {
	mu         sync.Mutex
	coupons    map[string]*models.Coupon
	increments int
	lists      int
}

func newFakeCoupons(coupons ...models.Coupon) *fakeCoupons {
	f := &fakeCoupons{coupons: map[string]*models.Coupon{}}
	for i := range coupons {
		c := coupons[i]
		if c.ID == 0 {
			c.ID = i + 1
		}
		f.coupons[c.Code] = &c
	}
	return f
}

func (f *fakeCoupons) GetByCode(_ context.Context, code string) (*models.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.coupons[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCoupons) ListPublicActive(context.Context) ([]models.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	var out []models.Coupon
	for _, c := range f.coupons {
		if c.Visibility == models.CouponPublic && c.Status == models.CouponActive {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCoupons) IncrementUsage(_ context.Context, id int, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.coupons {
		if c.ID != id {
			continue
		}
		if c.Status != models.CouponActive || c.TotalUsage.Exhausted(c.UsedCount) ||
			now.Before(c.StartDate) || !now.Before(c.ExpiryDate) {
			return false, nil
		}
		c.UsedCount++
		f.increments++
		return true, nil
	}
	return false, nil
}

func (f *fakeCoupons) used(code string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.coupons[code].UsedCount
}

// memoryCouponCache is a process-local CouponCandidateCache.
type memoryCouponCache struct {
	coupons     []models.Coupon
	hit         bool
	invalidated int
}

func (c *memoryCouponCache) GetApplicable(context.Context) ([]models.Coupon, bool) {
	return c.coupons, c.hit
}

func (c *memoryCouponCache) SetApplicable(_ context.Context, coupons []models.Coupon) {
	c.coupons, c.hit = coupons, true
}

func (c *memoryCouponCache) InvalidateApplicable(context.Context) {
	c.coupons, c.hit = nil, false
	c.invalidated++
}

// fakeCarts keeps carts in memory and merges lines by their line key.
type fakeCarts struct {
	mu     sync.Mutex
	carts  map[int]*models.Cart
	owners map[string]int
	nextID int
}

func newFakeCarts() *fakeCarts {
	return &fakeCarts{carts: map[int]*models.Cart{}, owners: map[string]int{}}
}

func (f *fakeCarts) put(owner models.CartOwner, items ...models.CartItem) *models.Cart {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	cart := &models.Cart{ID: f.nextID}
	for i := range items {
		f.nextID++
		items[i].ID = f.nextID
		items[i].CartID = cart.ID
	}
	cart.Items = items
	f.carts[cart.ID] = cart
	f.owners[owner.String()] = cart.ID
	return cart
}

func (f *fakeCarts) GetByOwner(_ context.Context, owner models.CartOwner) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.owners[owner.String()]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *f.carts[id]
	cp.Items = append([]models.CartItem{}, f.carts[id].Items...)
	return &cp, nil
}

func (f *fakeCarts) GetOrCreate(ctx context.Context, owner models.CartOwner) (*models.Cart, error) {
	if c, err := f.GetByOwner(ctx, owner); err == nil {
		return c, nil
	}
	return f.put(owner), nil
}

func (f *fakeCarts) UpsertItem(_ context.Context, item *models.CartItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cart, ok := f.carts[item.CartID]
	if !ok {
		return sql.ErrNoRows
	}
	for i := range cart.Items {
		if cart.Items[i].LineKey() == item.LineKey() {
			cart.Items[i].Quantity += item.Quantity
			cart.Items[i].PriceSnapshot = item.PriceSnapshot
			*item = cart.Items[i]
			return nil
		}
	}
	f.nextID++
	item.ID = f.nextID
	cart.Items = append(cart.Items, *item)
	return nil
}

func (f *fakeCarts) UpdateItemQuantity(_ context.Context, cartID, itemID, qty int) (*models.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, it := range f.carts[cartID].Items {
		if it.ID == itemID {
			f.carts[cartID].Items[i].Quantity = qty
			cp := f.carts[cartID].Items[i]
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCarts) DeleteItem(_ context.Context, cartID, itemID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.carts[cartID].Items
	for i, it := range items {
		if it.ID == itemID {
			f.carts[cartID].Items = append(items[:i], items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCarts) Merge(ctx context.Context, fromCartID, toCartID int) error {
	f.mu.Lock()
	from := f.carts[fromCartID]
	f.mu.Unlock()
	for _, it := range from.Items {
		it := it
		it.CartID = toCartID
		if err := f.UpsertItem(ctx, &it); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.carts, fromCartID)
	for k, id := range f.owners {
		if id == fromCartID {
			delete(f.owners, k)
		}
	}
	return nil
}

func (f *fakeCarts) DeleteIdleGuestCarts(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// Fixtures.

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }

func testProduct() *models.Product {
	return &models.Product{
		ID:       1,
		Name:     "Linen Shirt",
		Category: "apparel",
		IsActive: true,
		Variants: models.VariantSet{
			{ID: 10, ProductID: 1, SKU: "SHIRT-S", Price: dec("100"), MRP: decimal.NewNullDecimal(dec("120")), StockStatus: models.StockOutOfStock},
			{ID: 11, ProductID: 1, SKU: "SHIRT-M", Price: dec("100"), StockStatus: models.StockOutOfStock},
		},
	}
}
