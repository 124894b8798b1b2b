// cmd/analytics/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/bootstrap"
	"github.com/andresuchdata/freshstock/backend-go/internal/config"
	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
	"github.com/andresuchdata/freshstock/backend-go/pkg/logger"
)

func main() {
	// Parse command line flags
	reportType := flag.String("type", "overview", "Report to print (overview, velocity, alerts, preview)")
	storeID := flag.Int64("store", 0, "Store ID (required except for alerts)")
	productID := flag.Int64("product", 0, "Product ID (velocity only)")
	dateStr := flag.String("date", time.Now().Format(domain.DateLayout), "List date in YYYY-MM-DD format (preview only)")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall timeout")
	flag.Parse()

	cfg := config.Load()
	logger.Setup(cfg.Server.LogLevel, cfg.Server.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer app.Close()

	if *storeID <= 0 && *reportType != "alerts" {
		logger.Log.Fatal().Msg("Store ID is required (use -store flag)")
	}

	var report any
	switch *reportType {
	case "overview":
		report, err = app.Services.StockHealth.GetStockOverview(ctx, *storeID)
	case "velocity":
		if *productID <= 0 {
			logger.Log.Fatal().Msg("Product ID is required for velocity (use -product flag)")
		}
		report, err = app.Services.StockHealth.GetVelocity(ctx, *storeID, *productID)
	case "alerts":
		var store *int64
		if *storeID > 0 {
			store = storeID
		}
		report, err = app.Services.StockHealth.GetAlerts(ctx, store)
	case "preview":
		date, perr := domain.ParseDate(*dateStr)
		if perr != nil {
			logger.Log.Fatal().Err(perr).Msg("Invalid date")
		}
		report, err = app.Services.Replenishment.Preview(ctx, *storeID, date)
	default:
		logger.Log.Fatal().Str("type", *reportType).Msg("Unknown report type")
	}
	if err != nil {
		logger.Log.Fatal().Err(err).Str("type", *reportType).Msg("Failed to build report")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to write report")
	}
}
