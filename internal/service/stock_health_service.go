package service

import (
	"context"
	"sort"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/cache"
	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
	"github.com/andresuchdata/freshstock/backend-go/internal/replenishment"
	"github.com/andresuchdata/freshstock/backend-go/internal/repository"
	"github.com/andresuchdata/freshstock/backend-go/internal/stockhealth"
	"github.com/andresuchdata/freshstock/backend-go/internal/velocity"
	"github.com/rs/zerolog/log"
)

type StockHealthService struct {
	repo       repository.Queries
	estimator  *velocity.Estimator
	classifier *stockhealth.Classifier
	alerts     *stockhealth.AlertPolicy
	cache      cache.StockOverviewCache
	loc        *time.Location
	now        func() time.Time
}

func NewStockHealthService(repo repository.Queries, classifier *stockhealth.Classifier, alerts *stockhealth.AlertPolicy,
	cacheImpl cache.StockOverviewCache, loc *time.Location) *StockHealthService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopStockOverviewCache()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &StockHealthService{
		repo:       repo,
		estimator:  velocity.NewEstimator(repo, loc),
		classifier: classifier,
		alerts:     alerts,
		cache:      cacheImpl,
		loc:        loc,
		now:        time.Now,
	}
}

func (s *StockHealthService) GetVelocity(ctx context.Context, storeID, productID int64) (velocity.Velocity, error) {
	return s.estimator.ForProduct(ctx, storeID, productID)
}

func (s *StockHealthService) storeToday(store *domain.Store) time.Time {
	return domain.DateOf(s.now(), store.Location(s.loc))
}

// GetStockOverview classifies every product stocked at a store as of today.
func (s *StockHealthService) GetStockOverview(ctx context.Context, storeID int64) ([]domain.StockOverviewItem, error) {
	store, err := s.repo.GetStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	today := s.storeToday(store)

	if items, ok, err := s.cache.Get(ctx, storeID, today); err == nil && ok {
		return items, nil
	} else if err != nil {
		log.Warn().Err(err).Int64("store_id", storeID).Msg("stock overview: cache get failed")
	}

	// The generation is taken before reading stock so a mutation committed
	// during the build keeps this result out of the cache.
	gen, genErr := s.cache.Generation(ctx, storeID)
	if genErr != nil {
		log.Warn().Err(genErr).Int64("store_id", storeID).Msg("stock overview: cache generation failed")
	}

	items, err := s.buildOverview(ctx, storeID, today)
	if err != nil {
		return nil, err
	}

	if genErr == nil {
		if err := s.cache.Set(ctx, storeID, today, gen, items); err != nil {
			log.Warn().Err(err).Int64("store_id", storeID).Msg("stock overview: cache set failed")
		}
	}

	return items, nil
}

// WarmOverview recomputes and caches the overview of a store for day.
func (s *StockHealthService) WarmOverview(ctx context.Context, storeID int64, day time.Time) error {
	gen, err := s.cache.Generation(ctx, storeID)
	if err != nil {
		return err
	}
	items, err := s.buildOverview(ctx, storeID, day)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, storeID, day, gen, items)
}

func (s *StockHealthService) buildOverview(ctx context.Context, storeID int64, today time.Time) ([]domain.StockOverviewItem, error) {
	stock, err := s.repo.ProductStockByStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	velocities, err := s.estimator.ForStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	freqs, err := s.repo.ListFrequencies(ctx, &storeID, nil)
	if err != nil {
		return nil, err
	}
	freqByProduct := make(map[int64]*domain.ReplenishmentFrequency, len(freqs))
	for i := range freqs {
		freqByProduct[freqs[i].ProductID] = &freqs[i]
	}

	items := make([]domain.StockOverviewItem, 0, len(stock))
	for _, ps := range stock {
		v := velocities[ps.ProductID]
		health := s.classifier.Classify(ps.TotalQuantity, ps.ReorderLevel, v.AverageDailySales)

		items = append(items, domain.StockOverviewItem{
			ProductID:             ps.ProductID,
			ProductName:           ps.ProductName,
			TotalQuantity:         ps.TotalQuantity,
			ReorderLevel:          ps.ReorderLevel,
			Status:                health.Status,
			Progress:              health.Progress,
			AverageDailySales:     v.AverageDailySales,
			DaysToOutOfStock:      health.DaysToOutOfStock,
			SuggestedFacing:       health.SuggestedFacing,
			NextReplenishmentDate: replenishment.NextDate(freqByProduct[ps.ProductID], today),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].ProductName != items[j].ProductName {
			return items[i].ProductName < items[j].ProductName
		}
		return items[i].ProductID < items[j].ProductID
	})
	return items, nil
}

// GetAlerts evaluates the alert policy for one store, or every store when
// storeID is nil.
func (s *StockHealthService) GetAlerts(ctx context.Context, storeID *int64) (*stockhealth.Alerts, error) {
	var stores []domain.Store
	if storeID != nil {
		store, err := s.repo.GetStore(ctx, *storeID)
		if err != nil {
			return nil, err
		}
		stores = []domain.Store{*store}
	} else {
		var err error
		if stores, err = s.repo.ListStores(ctx); err != nil {
			return nil, err
		}
	}

	alerts := stockhealth.NewAlerts()
	for i := range stores {
		store := &stores[i]
		today := s.storeToday(store)

		stock, err := s.repo.ProductStockByStore(ctx, store.ID)
		if err != nil {
			return nil, err
		}
		velocities, err := s.estimator.ForStore(ctx, store.ID)
		if err != nil {
			return nil, err
		}
		for _, ps := range stock {
			s.alerts.AddProduct(alerts, store.ID, ps, velocities[ps.ProductID].AverageDailySales)
		}

		rows, err := s.repo.ListStoreStock(ctx, store.ID)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			s.alerts.AddBatch(alerts, row, today)
		}
	}

	return alerts, nil
}
