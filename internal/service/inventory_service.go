package service

import (
	"context"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/cache"
	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
	"github.com/andresuchdata/freshstock/backend-go/internal/fifo"
	"github.com/andresuchdata/freshstock/backend-go/internal/ledger"
	"github.com/andresuchdata/freshstock/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
)

type BatchInput struct {
	ProductID      int64      `validate:"required"`
	Code           string     `validate:"required"`
	ExpirationDate *time.Time
}

type BatchUpdate struct {
	Code           *string
	ExpirationDate *time.Time
	// ClearExpiration removes the expiration date.
	ClearExpiration bool
}

type StockEntryInput struct {
	StoreID      int64 `validate:"required"`
	BatchID      int64 `validate:"required"`
	Quantity     int   `validate:"gte=0"`
	ReorderLevel *int  `validate:"omitempty,gte=0"`
}

// InventoryService fronts the ledger and allocator for transports and keeps
// the stock overview cache in step with every quantity change.
type InventoryService struct {
	repo      repository.Repository
	ledger    *ledger.Ledger
	allocator *fifo.Allocator
	cache     cache.StockOverviewCache
	loc       *time.Location
	now       func() time.Time
}

func NewInventoryService(repo repository.Repository, l *ledger.Ledger, allocator *fifo.Allocator,
	cacheImpl cache.StockOverviewCache, loc *time.Location) *InventoryService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopStockOverviewCache()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &InventoryService{
		repo:      repo,
		ledger:    l,
		allocator: allocator,
		cache:     cacheImpl,
		loc:       loc,
		now:       time.Now,
	}
}

func (s *InventoryService) invalidate(ctx context.Context, storeIDs ...int64) {
	for _, id := range storeIDs {
		if err := s.cache.Invalidate(ctx, id); err != nil {
			log.Warn().Err(err).Int64("store_id", id).Msg("inventory: cache invalidate failed")
		}
	}
}

func (s *InventoryService) Sell(ctx context.Context, req fifo.SaleRequest) (*fifo.SaleResult, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	result, err := s.allocator.Sell(ctx, req)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, req.StoreID)
	return result, nil
}

func (s *InventoryService) Allocate(ctx context.Context, storeID, productID int64, quantity int) (*fifo.SaleResult, error) {
	result, err := s.allocator.Allocate(ctx, storeID, productID, quantity)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, storeID)
	return result, nil
}

func (s *InventoryService) CheckFIFOViolation(ctx context.Context, storeID, productID, selectedBatchID int64) (*fifo.ViolationCheck, error) {
	return s.allocator.CheckViolation(ctx, storeID, productID, selectedBatchID)
}

func (s *InventoryService) Candidates(ctx context.Context, storeID, productID int64) ([]domain.BatchStock, error) {
	return s.allocator.Candidates(ctx, storeID, productID)
}

func (s *InventoryService) StoreStock(ctx context.Context, storeID int64) ([]domain.BatchStock, error) {
	return s.ledger.Entries(ctx, storeID)
}

func (s *InventoryService) CreateStockEntry(ctx context.Context, in StockEntryInput) (*domain.StockEntry, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	entry := domain.StockEntry{
		StoreID:      in.StoreID,
		BatchID:      in.BatchID,
		Quantity:     in.Quantity,
		ReorderLevel: domain.DefaultReorderLevel,
	}
	if in.ReorderLevel != nil {
		entry.ReorderLevel = *in.ReorderLevel
	}

	created, err := s.ledger.CreateEntry(ctx, entry)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, in.StoreID)
	return created, nil
}

func (s *InventoryService) UpdateReorderLevel(ctx context.Context, storeID, batchID int64, reorderLevel int) (*domain.StockEntry, error) {
	entry, err := s.ledger.UpdateReorderLevel(ctx, storeID, batchID, reorderLevel)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, storeID)
	return entry, nil
}

func (s *InventoryService) Move(ctx context.Context, movement domain.StockMovement) (*domain.StockMovement, error) {
	recorded, err := s.ledger.Move(ctx, movement)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, ledger.AffectedStores(*recorded)...)

	log.Info().
		Int64("movement_id", recorded.ID).
		Int64("batch_id", recorded.BatchID).
		Str("origin", recorded.Origin.String()).
		Str("destination", recorded.Destination.String()).
		Int("quantity", recorded.Quantity).
		Msg("Stock moved")

	return recorded, nil
}

func (s *InventoryService) ListMovements(ctx context.Context, productID int64) ([]domain.StockMovement, error) {
	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.ListMovements(ctx, productID)
}

func (s *InventoryService) today() time.Time {
	return domain.DateOf(s.now(), s.loc)
}

func (s *InventoryService) checkExpiration(exp *time.Time) (*time.Time, error) {
	if exp == nil {
		return nil, nil
	}
	day := domain.DateOf(*exp, time.UTC)
	if day.Before(s.today()) {
		return nil, domain.Validationf("expiration date %s is in the past", day.Format(domain.DateLayout))
	}
	return &day, nil
}

func (s *InventoryService) CreateBatch(ctx context.Context, in BatchInput) (*domain.Batch, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	exp, err := s.checkExpiration(in.ExpirationDate)
	if err != nil {
		return nil, err
	}

	batch := &domain.Batch{ProductID: in.ProductID, Code: in.Code, ExpirationDate: exp}
	err = s.repo.WithTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetProduct(ctx, in.ProductID); err != nil {
			return err
		}
		return tx.CreateBatch(ctx, batch)
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// UpdateBatch corrects the code or expiration of a batch. Affected stores get
// their overview recomputed because FIFO order may change.
func (s *InventoryService) UpdateBatch(ctx context.Context, batchID int64, in BatchUpdate) (*domain.Batch, error) {
	if in.Code != nil && *in.Code == "" {
		return nil, domain.Validationf("batch code must not be empty")
	}
	exp, err := s.checkExpiration(in.ExpirationDate)
	if err != nil {
		return nil, err
	}

	var batch *domain.Batch
	err = s.repo.WithTx(ctx, func(tx repository.Tx) error {
		b, err := tx.GetBatch(ctx, batchID)
		if err != nil {
			return err
		}
		if in.Code != nil {
			b.Code = *in.Code
		}
		switch {
		case in.ClearExpiration:
			b.ExpirationDate = nil
		case exp != nil:
			b.ExpirationDate = exp
		}
		if err := tx.UpdateBatch(ctx, b); err != nil {
			return err
		}
		batch = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("inventory: cache invalidate failed")
	}
	return batch, nil
}

// DeleteBatch removes a batch no store holds any quantity of.
func (s *InventoryService) DeleteBatch(ctx context.Context, batchID int64) error {
	return s.repo.WithTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetBatch(ctx, batchID); err != nil {
			return err
		}
		held, err := tx.BatchHasStock(ctx, batchID)
		if err != nil {
			return err
		}
		if held {
			return domain.Conflict(domain.CodeBatchInUse, "batch %d still has stock", batchID)
		}
		sold, err := tx.BatchHasSales(ctx, batchID)
		if err != nil {
			return err
		}
		if sold {
			return domain.Conflict(domain.CodeBatchInUse, "batch %d has sales history", batchID)
		}
		return tx.DeleteBatch(ctx, batchID)
	})
}

func (s *InventoryService) GetBatch(ctx context.Context, batchID int64) (*domain.Batch, error) {
	return s.repo.GetBatch(ctx, batchID)
}

func (s *InventoryService) ListBatches(ctx context.Context, productID *int64) ([]domain.Batch, error) {
	return s.repo.ListBatches(ctx, productID)
}
