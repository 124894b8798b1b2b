// Package bootstrap assembles the storage, cache and services shared by the
// binaries under cmd/.
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/andresuchdata/freshstock/backend-go/internal/cache"
	"github.com/andresuchdata/freshstock/backend-go/internal/config"
	"github.com/andresuchdata/freshstock/backend-go/internal/repository"
	"github.com/andresuchdata/freshstock/backend-go/internal/repository/memory"
	"github.com/andresuchdata/freshstock/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/freshstock/backend-go/internal/service"
	"github.com/rs/zerolog/log"
)

// App is a wired engine plus the resources to release on shutdown.
type App struct {
	Repo     repository.Repository
	Cache    cache.StockOverviewCache
	Services *service.Services

	closers []func() error
}

// New opens the repository selected by DB_DRIVER, migrating the postgres
// schema, and wires the services over it.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{}

	switch strings.ToLower(cfg.Database.Driver) {
	case "memory":
		log.Warn().Msg("using in-memory storage; data is lost on exit")
		app.Repo = memory.New()
	case "postgres", "":
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		app.closers = append(app.closers, db.Close)
		if err := postgres.Migrate(ctx, db); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to migrate schema: %w", err)
		}
		app.Repo = postgres.NewRepository(db)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	overviewCache, err := cache.NewStockOverviewCache(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("stock overview cache unavailable, continuing without it")
		overviewCache = cache.NewNoopStockOverviewCache()
	}
	app.Cache = overviewCache

	app.Services = service.NewServices(app.Repo, overviewCache, cfg.Engine, cfg.App.Location())
	return app, nil
}

// Close releases the resources in reverse order of acquisition.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}
