// Package velocity estimates average daily sales from sale history.
package velocity

import (
	"context"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
	"github.com/andresuchdata/freshstock/backend-go/internal/repository"
)

// Velocity is the average of per-day sale totals over the days that had sales.
type Velocity struct {
	AverageDailySales  float64 `json:"average_daily_sales"`
	TotalDaysWithSales int     `json:"total_days_with_sales"`
	TotalQuantitySold  int     `json:"total_quantity_sold"`
}

// HasData reports whether any sale was recorded. A zero velocity without data
// means unknown demand, not zero demand.
func (v Velocity) HasData() bool {
	return v.TotalDaysWithSales > 0
}

// Average computes velocity from daily totals. Days without sales are not in
// the denominator.
func Average(days []domain.DailySales) Velocity {
	var v Velocity
	for _, d := range days {
		if d.Quantity <= 0 {
			continue
		}
		v.TotalDaysWithSales++
		v.TotalQuantitySold += d.Quantity
	}
	if v.TotalDaysWithSales > 0 {
		v.AverageDailySales = float64(v.TotalQuantitySold) / float64(v.TotalDaysWithSales)
	}
	return v
}

type Estimator struct {
	repo       repository.Queries
	defaultLoc *time.Location
}

// NewEstimator buckets sales by store-local day, using defaultLoc for stores
// without a timezone.
func NewEstimator(repo repository.Queries, defaultLoc *time.Location) *Estimator {
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	return &Estimator{repo: repo, defaultLoc: defaultLoc}
}

func (e *Estimator) ForProduct(ctx context.Context, storeID, productID int64) (Velocity, error) {
	store, err := e.repo.GetStore(ctx, storeID)
	if err != nil {
		return Velocity{}, err
	}
	if _, err := e.repo.GetProduct(ctx, productID); err != nil {
		return Velocity{}, err
	}

	days, err := e.repo.DailySales(ctx, storeID, productID, store.Location(e.defaultLoc))
	if err != nil {
		return Velocity{}, err
	}
	return Average(days), nil
}

// ForStore computes velocity for every product sold at a store with one query.
// Products without sales are absent from the map.
func (e *Estimator) ForStore(ctx context.Context, storeID int64) (map[int64]Velocity, error) {
	store, err := e.repo.GetStore(ctx, storeID)
	if err != nil {
		return nil, err
	}

	days, err := e.repo.DailySalesByStore(ctx, storeID, store.Location(e.defaultLoc))
	if err != nil {
		return nil, err
	}

	byProduct := make(map[int64][]domain.DailySales)
	for _, d := range days {
		byProduct[d.ProductID] = append(byProduct[d.ProductID], d)
	}

	result := make(map[int64]Velocity, len(byProduct))
	for productID, productDays := range byProduct {
		result[productID] = Average(productDays)
	}
	return result, nil
}
