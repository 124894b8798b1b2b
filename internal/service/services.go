package service

import (
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/cache"
	"github.com/andresuchdata/freshstock/backend-go/internal/config"
	"github.com/andresuchdata/freshstock/backend-go/internal/fifo"
	"github.com/andresuchdata/freshstock/backend-go/internal/ledger"
	"github.com/andresuchdata/freshstock/backend-go/internal/replenishment"
	"github.com/andresuchdata/freshstock/backend-go/internal/repository"
	"github.com/andresuchdata/freshstock/backend-go/internal/stockhealth"
)

// Services bundles the engine facades the transports talk to.
type Services struct {
	Inventory     *InventoryService
	StockHealth   *StockHealthService
	Replenishment *ReplenishmentService
}

// NewServices wires the engine over repo using the engine settings.
func NewServices(repo repository.Repository, overviewCache cache.StockOverviewCache, engine config.EngineConfig, loc *time.Location) *Services {
	if overviewCache == nil {
		overviewCache = cache.NewNoopStockOverviewCache()
	}
	if loc == nil {
		loc = time.UTC
	}

	l := ledger.New(repo, ledger.Settings{
		MaxRetries:   engine.LedgerMaxRetries,
		RetryBackoff: engine.RetryBackoff(),
	})
	allocator := fifo.NewAllocator(repo, l)
	classifier := stockhealth.NewClassifier(engine.StockDisplayDays)
	alerts := stockhealth.NewAlertPolicy(engine.AlertExpiringDays, engine.AlertStockoutDays, classifier)
	planner := replenishment.NewPlanner(repo, l, replenishment.Settings{
		DefaultHorizonDays: engine.DefaultHorizonDays,
		Location:           loc,
	})

	return &Services{
		Inventory:     NewInventoryService(repo, l, allocator, overviewCache, loc),
		StockHealth:   NewStockHealthService(repo, classifier, alerts, overviewCache, loc),
		Replenishment: NewReplenishmentService(planner, overviewCache),
	}
}
