// Package memory is an in-process repository used for local development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
	"github.com/andresuchdata/freshstock/backend-go/internal/repository"
)

// Repository keeps the whole dataset in memory. Transactions are serialized
// and run against a private copy that replaces the committed state only when
// the transaction function succeeds.
type Repository struct {
	txMu sync.Mutex

	mu        sync.RWMutex
	committed *state
}

var _ repository.Repository = (*Repository)(nil)

func New() *Repository {
	return &Repository{committed: newState()}
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.txMu.Lock()
	defer r.txMu.Unlock()

	working := r.snapshot().clone()
	if err := fn(working); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	r.committed = working
	r.mu.Unlock()
	return nil
}

func (r *Repository) snapshot() *state {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.committed
}

func (r *Repository) GetStore(ctx context.Context, storeID int64) (*domain.Store, error) {
	return r.snapshot().GetStore(ctx, storeID)
}

func (r *Repository) ListStores(ctx context.Context) ([]domain.Store, error) {
	return r.snapshot().ListStores(ctx)
}

func (r *Repository) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	return r.snapshot().GetProduct(ctx, productID)
}

func (r *Repository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return r.snapshot().ListProducts(ctx)
}

func (r *Repository) GetProductsByIDs(ctx context.Context, productIDs []int64) (map[int64]domain.Product, error) {
	return r.snapshot().GetProductsByIDs(ctx, productIDs)
}

func (r *Repository) GetBatch(ctx context.Context, batchID int64) (*domain.Batch, error) {
	return r.snapshot().GetBatch(ctx, batchID)
}

func (r *Repository) ListBatches(ctx context.Context, productID *int64) ([]domain.Batch, error) {
	return r.snapshot().ListBatches(ctx, productID)
}

func (r *Repository) CountBatches(ctx context.Context, productID int64) (int, error) {
	return r.snapshot().CountBatches(ctx, productID)
}

func (r *Repository) BatchHasStock(ctx context.Context, batchID int64) (bool, error) {
	return r.snapshot().BatchHasStock(ctx, batchID)
}

func (r *Repository) BatchHasSales(ctx context.Context, batchID int64) (bool, error) {
	return r.snapshot().BatchHasSales(ctx, batchID)
}

func (r *Repository) GetStockEntry(ctx context.Context, storeID, batchID int64) (*domain.StockEntry, error) {
	return r.snapshot().GetStockEntry(ctx, storeID, batchID)
}

func (r *Repository) ListCandidates(ctx context.Context, storeID, productID int64) ([]domain.BatchStock, error) {
	return r.snapshot().ListCandidates(ctx, storeID, productID)
}

func (r *Repository) ListStoreStock(ctx context.Context, storeID int64) ([]domain.BatchStock, error) {
	return r.snapshot().ListStoreStock(ctx, storeID)
}

func (r *Repository) ListAllStock(ctx context.Context) ([]domain.BatchStock, error) {
	return r.snapshot().ListAllStock(ctx)
}

func (r *Repository) ProductStockByStore(ctx context.Context, storeID int64) ([]domain.ProductStock, error) {
	return r.snapshot().ProductStockByStore(ctx, storeID)
}

func (r *Repository) ListMovements(ctx context.Context, productID int64) ([]domain.StockMovement, error) {
	return r.snapshot().ListMovements(ctx, productID)
}

func (r *Repository) DailySales(ctx context.Context, storeID, productID int64, loc *time.Location) ([]domain.DailySales, error) {
	return r.snapshot().DailySales(ctx, storeID, productID, loc)
}

func (r *Repository) DailySalesByStore(ctx context.Context, storeID int64, loc *time.Location) ([]domain.DailySales, error) {
	return r.snapshot().DailySalesByStore(ctx, storeID, loc)
}

func (r *Repository) ListSaleLines(ctx context.Context, saleID int64) ([]domain.SaleLine, error) {
	return r.snapshot().ListSaleLines(ctx, saleID)
}

func (r *Repository) GetFrequency(ctx context.Context, storeID, productID int64) (*domain.ReplenishmentFrequency, error) {
	return r.snapshot().GetFrequency(ctx, storeID, productID)
}

func (r *Repository) ListFrequencies(ctx context.Context, storeID, productID *int64) ([]domain.ReplenishmentFrequency, error) {
	return r.snapshot().ListFrequencies(ctx, storeID, productID)
}

func (r *Repository) ListReplenishmentLogs(ctx context.Context, storeID, productID int64) ([]domain.ReplenishmentLog, error) {
	return r.snapshot().ListReplenishmentLogs(ctx, storeID, productID)
}

func (r *Repository) GetList(ctx context.Context, listID int64) (*domain.ReplenishmentList, error) {
	return r.snapshot().GetList(ctx, listID)
}

func (r *Repository) GetListByDate(ctx context.Context, storeID int64, listDate time.Time) (*domain.ReplenishmentList, error) {
	return r.snapshot().GetListByDate(ctx, storeID, listDate)
}

func (r *Repository) ListLists(ctx context.Context, filter domain.ListFilter) ([]domain.ReplenishmentList, error) {
	return r.snapshot().ListLists(ctx, filter)
}

func (r *Repository) ListItems(ctx context.Context, listID int64) ([]domain.ReplenishmentListItem, error) {
	return r.snapshot().ListItems(ctx, listID)
}
