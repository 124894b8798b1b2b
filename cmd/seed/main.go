package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/andresuchdata/freshstock/backend-go/internal/cache"
	"github.com/andresuchdata/freshstock/backend-go/internal/config"
	"github.com/andresuchdata/freshstock/backend-go/internal/ingest"
	"github.com/andresuchdata/freshstock/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/freshstock/backend-go/internal/service"
	"github.com/andresuchdata/freshstock/backend-go/internal/storage"
	"github.com/andresuchdata/freshstock/backend-go/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/urfave/cli/v2"
)

const dbKeyName = "db"

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func newDataDirFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "data-dir",
		Usage:   "Directory containing stores, products, stock and frequencies files (.csv or .xlsx)",
		Value:   "./data/seeds/master_data",
		EnvVars: []string{"SEED_DATA_DIR"},
	}
}

func newSalesFileFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "sales-file",
		Usage:   "Historical sales file replayed through the FIFO allocator",
		Value:   "./data/seeds/sales.csv",
		EnvVars: []string{"SEED_SALES_FILE"},
	}
}

func newS3PrefixFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "s3-prefix",
		Usage:   "Download seed files under this bucket prefix into data-dir first (uses S3_* settings)",
		EnvVars: []string{"SEED_S3_PREFIX"},
	}
}

func initDB(c *cli.Context) error {
	db, err := postgres.Open("pgx", c.String("db-url"), config.Load().Database.MaxConcurrentTx)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := postgres.Migrate(c.Context, db); err != nil {
		db.Close()
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	c.App.Metadata[dbKeyName] = db
	return nil
}

func dbFrom(c *cli.Context) *postgres.DB {
	db, _ := c.App.Metadata[dbKeyName].(*postgres.DB)
	return db
}

func closeDB(c *cli.Context) error {
	if db := dbFrom(c); db != nil {
		return db.Close()
	}
	return nil
}

func main() {
	cfg := config.Load()
	logger.Setup(cfg.Server.LogLevel, cfg.Server.LogFormat)

	app := &cli.App{
		Name:     "seed",
		Usage:    "Seed the inventory database with master data and sales history",
		Metadata: map[string]interface{}{},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Create the schema",
				Flags:  []cli.Flag{newDBURLFlag()},
				Before: initDB,
				After:  closeDB,
				Action: func(c *cli.Context) error {
					logger.Log.Info().Msg("Schema is up to date")
					return nil
				},
			},
			{
				Name:   "master",
				Usage:  "Seed stores, products, batches, stock and replenishment frequencies",
				Flags:  []cli.Flag{newDBURLFlag(), newDataDirFlag(), newS3PrefixFlag()},
				Before: initDB,
				After:  closeDB,
				Action: runMaster,
			},
			{
				Name:   "sales",
				Usage:  "Replay historical sales through the allocator",
				Flags:  []cli.Flag{newDBURLFlag(), newSalesFileFlag()},
				Before: initDB,
				After:  closeDB,
				Action: runSales,
			},
			{
				Name:   "all",
				Usage:  "Seed master data, then replay sales",
				Flags:  []cli.Flag{newDBURLFlag(), newDataDirFlag(), newSalesFileFlag(), newS3PrefixFlag()},
				Before: initDB,
				After:  closeDB,
				Action: func(c *cli.Context) error {
					if err := runMaster(c); err != nil {
						return fmt.Errorf("error running master seed: %w", err)
					}
					if err := runSales(c); err != nil {
						return fmt.Errorf("error running sales seed: %w", err)
					}
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("seed failed")
	}
}

func newLoader(c *cli.Context) *ingest.Loader {
	return ingest.NewLoader(postgres.NewRepository(dbFrom(c)), config.Load().App.Location())
}

func runMaster(c *cli.Context) error {
	dataDir := c.String("data-dir")
	if prefix := c.String("s3-prefix"); prefix != "" {
		if err := syncSeedFiles(c, prefix, dataDir); err != nil {
			return err
		}
	}
	logger.Log.Info().Str("dir", dataDir).Msg("Starting master data seeding...")

	summary, err := newLoader(c).LoadMaster(c.Context, dataDir)
	if err != nil {
		return fmt.Errorf("failed to seed master data: %w", err)
	}

	logger.Log.Info().Interface("summary", summary).Msg("Master data seeding completed successfully!")
	return nil
}

func runSales(c *cli.Context) error {
	path := c.String("sales-file")
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("sales file %s: %w", path, err)
	}

	cfg := config.Load()
	repo := postgres.NewRepository(dbFrom(c))
	services := service.NewServices(repo, cache.NewNoopStockOverviewCache(), cfg.Engine, cfg.App.Location())

	logger.Log.Info().Str("file", filepath.Base(path)).Msg("Replaying sales...")
	summary, err := newLoader(c).ReplaySales(c.Context, path, services.Inventory)
	if err != nil {
		return fmt.Errorf("failed to replay sales: %w", err)
	}

	logger.Log.Info().Interface("summary", summary).Msg("Sales replay completed successfully!")
	return nil
}

func syncSeedFiles(c *cli.Context, prefix, dataDir string) error {
	client, err := storage.NewS3Client(config.Load().Storage)
	if err != nil {
		return err
	}
	paths, err := storage.Sync(c.Context, client, prefix, dataDir)
	if err != nil {
		return fmt.Errorf("failed to download seed files: %w", err)
	}
	logger.Log.Info().Str("prefix", prefix).Int("files", len(paths)).Msg("Downloaded seed files")
	return nil
}
