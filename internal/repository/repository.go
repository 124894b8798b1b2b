// backend-go/internal/repository/repository.go
package repository

import (
	"context"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
)

// Queries are the reads available both inside and outside a transaction.
// Lookups of a single row return a NotFound domain error when it is missing.
type Queries interface {
	GetStore(ctx context.Context, storeID int64) (*domain.Store, error)
	ListStores(ctx context.Context) ([]domain.Store, error)
	GetProduct(ctx context.Context, productID int64) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, productIDs []int64) (map[int64]domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)

	GetBatch(ctx context.Context, batchID int64) (*domain.Batch, error)
	ListBatches(ctx context.Context, productID *int64) ([]domain.Batch, error)
	CountBatches(ctx context.Context, productID int64) (int, error)
	BatchHasStock(ctx context.Context, batchID int64) (bool, error)
	// BatchHasSales reports whether any sale line was allocated from the batch.
	BatchHasSales(ctx context.Context, batchID int64) (bool, error)

	GetStockEntry(ctx context.Context, storeID, batchID int64) (*domain.StockEntry, error)
	// ListCandidates returns entries with quantity > 0 for a product at a store.
	// Order is unspecified; callers apply the FIFO policy.
	ListCandidates(ctx context.Context, storeID, productID int64) ([]domain.BatchStock, error)
	ListStoreStock(ctx context.Context, storeID int64) ([]domain.BatchStock, error)
	ListAllStock(ctx context.Context) ([]domain.BatchStock, error)
	ProductStockByStore(ctx context.Context, storeID int64) ([]domain.ProductStock, error)
	ListMovements(ctx context.Context, productID int64) ([]domain.StockMovement, error)

	// DailySales groups sale quantity by store-local day for one product.
	DailySales(ctx context.Context, storeID, productID int64, loc *time.Location) ([]domain.DailySales, error)
	// DailySalesByStore groups sale quantity by product and store-local day.
	DailySalesByStore(ctx context.Context, storeID int64, loc *time.Location) ([]domain.DailySales, error)
	ListSaleLines(ctx context.Context, saleID int64) ([]domain.SaleLine, error)

	GetFrequency(ctx context.Context, storeID, productID int64) (*domain.ReplenishmentFrequency, error)
	ListFrequencies(ctx context.Context, storeID, productID *int64) ([]domain.ReplenishmentFrequency, error)
	ListReplenishmentLogs(ctx context.Context, storeID, productID int64) ([]domain.ReplenishmentLog, error)

	GetList(ctx context.Context, listID int64) (*domain.ReplenishmentList, error)
	GetListByDate(ctx context.Context, storeID int64, listDate time.Time) (*domain.ReplenishmentList, error)
	ListLists(ctx context.Context, filter domain.ListFilter) ([]domain.ReplenishmentList, error)
	ListItems(ctx context.Context, listID int64) ([]domain.ReplenishmentListItem, error)
}

// Tx is a unit of work. Everything done through a Tx commits or rolls back together.
type Tx interface {
	Queries

	// LockCandidates is ListCandidates with the returned rows locked until the
	// transaction ends.
	LockCandidates(ctx context.Context, storeID, productID int64) ([]domain.BatchStock, error)
	// LockStockEntry loads one entry and locks it until the transaction ends.
	LockStockEntry(ctx context.Context, storeID, batchID int64) (*domain.StockEntry, error)
	// DecrementStock lowers quantity by amount and returns the new quantity. It
	// fails with InsufficientStockError instead of going negative.
	DecrementStock(ctx context.Context, storeID, batchID int64, amount int) (int, error)
	// IncrementStock raises quantity by amount, creating the entry with the
	// default reorder level when missing, and returns the new quantity.
	IncrementStock(ctx context.Context, storeID, batchID int64, amount int) (int, error)
	CreateStockEntry(ctx context.Context, entry *domain.StockEntry) error
	UpdateReorderLevel(ctx context.Context, storeID, batchID int64, reorderLevel int) error

	// UpsertStore and UpsertProduct key on name and fill in the ID.
	UpsertStore(ctx context.Context, store *domain.Store) error
	UpsertProduct(ctx context.Context, product *domain.Product) error

	CreateBatch(ctx context.Context, batch *domain.Batch) error
	UpdateBatch(ctx context.Context, batch *domain.Batch) error
	DeleteBatch(ctx context.Context, batchID int64) error

	CreateSale(ctx context.Context, sale *domain.Sale) error
	CreateSaleLines(ctx context.Context, lines []domain.SaleLine) error
	CreateMovement(ctx context.Context, movement *domain.StockMovement) error

	UpsertFrequency(ctx context.Context, freq *domain.ReplenishmentFrequency) error
	DeleteFrequency(ctx context.Context, storeID, productID int64) error
	CreateReplenishmentLog(ctx context.Context, entry *domain.ReplenishmentLog) error

	// CreateList fails with a Conflict error when (store, list_date) exists.
	CreateList(ctx context.Context, list *domain.ReplenishmentList) error
	// LockList loads a list and locks it until the transaction ends.
	LockList(ctx context.Context, listID int64) (*domain.ReplenishmentList, error)
	UpdateList(ctx context.Context, list *domain.ReplenishmentList) error
	DeleteList(ctx context.Context, listID int64) error
	// CreateListItems fails with a Conflict error when a product repeats on a list.
	CreateListItems(ctx context.Context, items []domain.ReplenishmentListItem) error
	UpdateListItem(ctx context.Context, item *domain.ReplenishmentListItem) error
	DeleteListItem(ctx context.Context, listID, productID int64) error
}

// Repository is the storage root used by the engine.
type Repository interface {
	Queries

	// WithTx runs fn in a transaction, committing when fn returns nil.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}
