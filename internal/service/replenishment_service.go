package service

import (
	"context"
	"errors"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/cache"
	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
	"github.com/andresuchdata/freshstock/backend-go/internal/replenishment"
	"github.com/rs/zerolog/log"
)

type ReplenishmentService struct {
	planner *replenishment.Planner
	cache   cache.StockOverviewCache
}

func NewReplenishmentService(planner *replenishment.Planner, cacheImpl cache.StockOverviewCache) *ReplenishmentService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopStockOverviewCache()
	}
	return &ReplenishmentService{planner: planner, cache: cacheImpl}
}

func (s *ReplenishmentService) Preview(ctx context.Context, storeID int64, date time.Time) ([]domain.ReplenishmentListItem, error) {
	return s.planner.Preview(ctx, storeID, date)
}

func (s *ReplenishmentService) GenerateReplenishmentList(ctx context.Context, storeID int64, date time.Time) (*domain.ReplenishmentList, error) {
	return s.planner.Generate(ctx, storeID, date)
}

// EnsureList generates the list for date unless one already exists, in which
// case the existing list is returned with created set to false.
func (s *ReplenishmentService) EnsureList(ctx context.Context, storeID int64, date time.Time) (list *domain.ReplenishmentList, created bool, err error) {
	list, err = s.planner.Generate(ctx, storeID, date)
	if err == nil {
		return list, true, nil
	}
	if !errors.Is(err, &domain.Error{Kind: domain.KindConflict, Code: domain.CodeDuplicateList}) {
		return nil, false, err
	}
	list, err = s.planner.GetListByDate(ctx, storeID, date)
	return list, false, err
}

func (s *ReplenishmentService) GetList(ctx context.Context, listID int64) (*domain.ReplenishmentList, error) {
	return s.planner.GetList(ctx, listID)
}

func (s *ReplenishmentService) GetListByDate(ctx context.Context, storeID int64, date time.Time) (*domain.ReplenishmentList, error) {
	return s.planner.GetListByDate(ctx, storeID, date)
}

func (s *ReplenishmentService) ListLists(ctx context.Context, filter domain.ListFilter) ([]domain.ReplenishmentList, error) {
	return s.planner.ListLists(ctx, filter)
}

func (s *ReplenishmentService) OverrideItem(ctx context.Context, listID, productID int64, patch replenishment.ItemPatch) (*domain.ReplenishmentListItem, error) {
	return s.planner.Override(ctx, listID, productID, patch)
}

func (s *ReplenishmentService) AddItem(ctx context.Context, listID int64, in replenishment.NewItem) (*domain.ReplenishmentListItem, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	return s.planner.AddItem(ctx, listID, in)
}

func (s *ReplenishmentService) RemoveItem(ctx context.Context, listID, productID int64) error {
	return s.planner.RemoveItem(ctx, listID, productID)
}

func (s *ReplenishmentService) SetStatus(ctx context.Context, listID int64, status string, notes *string) (*domain.ReplenishmentList, error) {
	return s.planner.SetStatus(ctx, listID, status, notes)
}

func (s *ReplenishmentService) DeleteList(ctx context.Context, listID int64) error {
	return s.planner.DeleteList(ctx, listID)
}

func (s *ReplenishmentService) UpsertFrequency(ctx context.Context, in replenishment.FrequencyInput) (*domain.ReplenishmentFrequency, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	freq, err := s.planner.UpsertFrequency(ctx, in)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, in.StoreID)
	return freq, nil
}

func (s *ReplenishmentService) GetFrequency(ctx context.Context, storeID, productID int64) (*domain.ReplenishmentFrequency, error) {
	return s.planner.GetFrequency(ctx, storeID, productID)
}

func (s *ReplenishmentService) ListFrequencies(ctx context.Context, storeID, productID *int64) ([]domain.ReplenishmentFrequency, error) {
	return s.planner.ListFrequencies(ctx, storeID, productID)
}

func (s *ReplenishmentService) DeleteFrequency(ctx context.Context, storeID, productID int64) error {
	if err := s.planner.DeleteFrequency(ctx, storeID, productID); err != nil {
		return err
	}
	s.invalidate(ctx, storeID)
	return nil
}

func (s *ReplenishmentService) RecordReplenishment(ctx context.Context, in replenishment.Delivery) (*domain.ReplenishmentLog, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	entry, err := s.planner.RecordReplenishment(ctx, in)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, in.StoreID)
	return entry, nil
}

func (s *ReplenishmentService) ListLogs(ctx context.Context, storeID, productID int64) ([]domain.ReplenishmentLog, error) {
	return s.planner.ListLogs(ctx, storeID, productID)
}

func (s *ReplenishmentService) invalidate(ctx context.Context, storeID int64) {
	if err := s.cache.Invalidate(ctx, storeID); err != nil {
		log.Warn().Err(err).Int64("store_id", storeID).Msg("replenishment: cache invalidate failed")
	}
}
