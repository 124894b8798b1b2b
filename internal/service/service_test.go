package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/cache"
	"github.com/andresuchdata/freshstock/backend-go/internal/config"
	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
	"github.com/andresuchdata/freshstock/backend-go/internal/fifo"
	"github.com/andresuchdata/freshstock/backend-go/internal/repository/memory"
)

// recordingCache is an in-memory overview cache that counts invalidations
// and honours generations like the redis implementation.
type recordingCache struct {
	mu          sync.Mutex
	entries     map[int64][]domain.StockOverviewItem
	invalidated map[int64]int
	all         int
	gets        int
	dropped     int
	// beforeSet runs once, ahead of the next Set.
	beforeSet func()
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: map[int64][]domain.StockOverviewItem{}, invalidated: map[int64]int{}}
}

func (c *recordingCache) Generation(_ context.Context, storeID int64) (cache.Generation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generationLocked(storeID), nil
}

func (c *recordingCache) generationLocked(storeID int64) cache.Generation {
	return cache.Generation{Store: int64(c.invalidated[storeID]), All: int64(c.all)}
}

func (c *recordingCache) Get(_ context.Context, storeID int64, _ time.Time) ([]domain.StockOverviewItem, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	items, ok := c.entries[storeID]
	return items, ok, nil
}

func (c *recordingCache) Set(_ context.Context, storeID int64, _ time.Time, gen cache.Generation, items []domain.StockOverviewItem) error {
	if hook := c.beforeSet; hook != nil {
		c.beforeSet = nil
		hook()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generationLocked(storeID) != gen {
		c.dropped++
		return nil
	}
	c.entries[storeID] = items
	return nil
}

func (c *recordingCache) Invalidate(_ context.Context, storeID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, storeID)
	c.invalidated[storeID]++
	return nil
}

func (c *recordingCache) InvalidateAll(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[int64][]domain.StockOverviewItem{}
	c.all++
	return nil
}

func day(s string) time.Time {
	t, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

type serviceFixture struct {
	repo     *memory.Repository
	cache    *recordingCache
	services *Services
	store    domain.Store
	milk     domain.Product
	batchA   domain.Batch
	batchB   domain.Batch
}

func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()
	repo := memory.New()
	f := serviceFixture{repo: repo, cache: newRecordingCache()}
	f.store = repo.MustStore("Store 1")
	f.milk = repo.MustProduct("Milk", "2.50")
	expA, expB := day("2025-01-01"), day("2025-02-01")
	f.batchA = repo.MustBatch(f.milk.ID, "A", &expA)
	f.batchB = repo.MustBatch(f.milk.ID, "B", &expB)
	repo.MustStock(f.store.ID, f.batchA.ID, 5, 10)
	repo.MustStock(f.store.ID, f.batchB.ID, 8, 10)

	f.services = NewServices(repo, f.cache, config.EngineConfig{LedgerMaxRetries: -1}, time.UTC)
	f.services.StockHealth.now = func() time.Time { return day("2024-12-20").Add(9 * time.Hour) }
	f.services.Inventory.now = f.services.StockHealth.now
	return f
}

func TestSellRefreshesOverview(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	before, err := f.services.StockHealth.GetStockOverview(ctx, f.store.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(before) != 1 || before[0].TotalQuantity != 13 || before[0].Status != domain.StockLow {
		t.Fatalf("unexpected overview %+v", before)
	}

	if _, err := f.services.Inventory.Allocate(ctx, f.store.ID, f.milk.ID, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.cache.invalidated[f.store.ID] != 1 {
		t.Errorf("expected one invalidation, got %d", f.cache.invalidated[f.store.ID])
	}

	after, err := f.services.StockHealth.GetStockOverview(ctx, f.store.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	item := after[0]
	if item.TotalQuantity != 3 || item.Status != domain.StockCritical {
		t.Errorf("expected 3 units Critical, got %d %s", item.TotalQuantity, item.Status)
	}
	if item.AverageDailySales != 10 || item.DaysToOutOfStock == nil || *item.DaysToOutOfStock != 0 {
		t.Errorf("expected velocity from today's sale, got %+v", item)
	}
}

func TestOverviewBuiltBeforeSaleIsNotCached(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	// The sale commits after the overview was read from storage but before
	// it reaches the cache.
	f.cache.beforeSet = func() {
		if _, err := f.services.Inventory.Allocate(ctx, f.store.ID, f.milk.ID, 10); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}

	stale, err := f.services.StockHealth.GetStockOverview(ctx, f.store.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stale[0].TotalQuantity != 13 {
		t.Fatalf("expected the pre-sale overview to be returned, got %d", stale[0].TotalQuantity)
	}
	if f.cache.dropped != 1 {
		t.Fatalf("expected the pre-sale overview dropped, dropped %d", f.cache.dropped)
	}

	fresh, err := f.services.StockHealth.GetStockOverview(ctx, f.store.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fresh[0].TotalQuantity != 3 {
		t.Errorf("expected post-sale quantity 3, got %d", fresh[0].TotalQuantity)
	}

	if cached := f.cache.entries[f.store.ID]; len(cached) != 1 || cached[0].TotalQuantity != 3 {
		t.Errorf("expected the post-sale overview cached, got %+v", cached)
	}
}

func TestFailedSaleKeepsCache(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.services.Inventory.Sell(ctx, fifo.SaleRequest{
		StoreID: f.store.ID,
		Items:   []fifo.SaleItem{{ProductID: f.milk.ID, Quantity: 14}},
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if f.cache.invalidated[f.store.ID] != 0 {
		t.Errorf("failed sale should not invalidate")
	}

	if _, err := f.services.Inventory.Sell(ctx, fifo.SaleRequest{StoreID: f.store.ID}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error for empty sale, got %v", err)
	}
}

func TestMoveInvalidatesBothStores(t *testing.T) {
	f := newServiceFixture(t)
	other := f.repo.MustStore("Store 2")
	ctx := context.Background()

	_, err := f.services.Inventory.Move(ctx, domain.StockMovement{
		BatchID:     f.batchB.ID,
		Quantity:    2,
		Origin:      domain.StoreEndpoint(f.store.ID),
		Destination: domain.StoreEndpoint(other.ID),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.cache.invalidated[f.store.ID] != 1 || f.cache.invalidated[other.ID] != 1 {
		t.Errorf("expected both stores invalidated, got %+v", f.cache.invalidated)
	}
}

func TestBatchLifecycle(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	past := day("2024-12-01")
	if _, err := f.services.Inventory.CreateBatch(ctx, BatchInput{ProductID: f.milk.ID, Code: "OLD", ExpirationDate: &past}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected past expiration rejected, got %v", err)
	}
	if _, err := f.services.Inventory.CreateBatch(ctx, BatchInput{ProductID: f.milk.ID}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected missing code rejected, got %v", err)
	}

	exp := day("2025-03-01").Add(13 * time.Hour)
	batch, err := f.services.Inventory.CreateBatch(ctx, BatchInput{ProductID: f.milk.ID, Code: "C", ExpirationDate: &exp})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !batch.ExpirationDate.Equal(day("2025-03-01")) {
		t.Errorf("expected expiration truncated to the day, got %v", batch.ExpirationDate)
	}

	updated, err := f.services.Inventory.UpdateBatch(ctx, batch.ID, BatchUpdate{ClearExpiration: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.ExpirationDate != nil || f.cache.all != 1 {
		t.Errorf("expected cleared expiration and full invalidation, got %+v (%d)", updated, f.cache.all)
	}

	if err := f.services.Inventory.DeleteBatch(ctx, f.batchA.ID); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected conflict deleting stocked batch, got %v", err)
	}
	if err := f.services.Inventory.DeleteBatch(ctx, batch.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.services.Inventory.GetBatch(ctx, batch.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected batch gone, got %v", err)
	}
}

func TestDeleteBatchKeepsSalesHistory(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	if _, err := f.services.Inventory.Allocate(ctx, f.store.ID, f.milk.ID, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qty := f.repo.Quantity(f.store.ID, f.batchA.ID); qty != 0 {
		t.Fatalf("expected batch A sold out, got %d", qty)
	}
	before, err := f.services.StockHealth.GetVelocity(ctx, f.store.ID, f.milk.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = f.services.Inventory.DeleteBatch(ctx, f.batchA.ID)
	if !errors.Is(err, domain.ErrConflict) || domain.CodeOf(err) != domain.CodeBatchInUse {
		t.Fatalf("expected batch_in_use conflict, got %v", err)
	}

	after, err := f.services.StockHealth.GetVelocity(ctx, f.store.ID, f.milk.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if after != before || after.TotalQuantitySold != 5 {
		t.Errorf("expected velocity unchanged at 5 sold, before %+v after %+v", before, after)
	}
	if _, err := f.services.Inventory.GetBatch(ctx, f.batchA.ID); err != nil {
		t.Errorf("expected batch kept, got %v", err)
	}
}

func TestStockEntryDefaults(t *testing.T) {
	f := newServiceFixture(t)
	other := f.repo.MustStore("Store 2")
	ctx := context.Background()

	entry, err := f.services.Inventory.CreateStockEntry(ctx, StockEntryInput{StoreID: other.ID, BatchID: f.batchA.ID, Quantity: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.ReorderLevel != domain.DefaultReorderLevel {
		t.Errorf("expected default reorder level, got %d", entry.ReorderLevel)
	}

	if _, err := f.services.Inventory.CreateStockEntry(ctx, StockEntryInput{StoreID: other.ID, BatchID: f.batchA.ID, Quantity: 1}); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected duplicate entry conflict, got %v", err)
	}
	if _, err := f.services.Inventory.CreateStockEntry(ctx, StockEntryInput{StoreID: other.ID, BatchID: f.batchB.ID, Quantity: -1}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected negative quantity rejected, got %v", err)
	}
}

func TestAlerts(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	alerts, err := f.services.StockHealth.GetAlerts(ctx, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerts.ExpiringSoon) != 1 || alerts.ExpiringSoon[0].BatchID != f.batchA.ID {
		t.Errorf("expected batch A expiring soon, got %+v", alerts.ExpiringSoon)
	}
	if len(alerts.LowStock) != 0 {
		t.Errorf("expected no low stock yet, got %+v", alerts.LowStock)
	}

	if _, err := f.services.StockHealth.GetAlerts(ctx, func() *int64 { id := int64(9999); return &id }()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found for unknown store, got %v", err)
	}
}
