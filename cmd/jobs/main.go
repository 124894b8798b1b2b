package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/bootstrap"
	"github.com/andresuchdata/freshstock/backend-go/internal/config"
	"github.com/andresuchdata/freshstock/backend-go/internal/pipeline"
	"github.com/andresuchdata/freshstock/backend-go/pkg/logger"
	"github.com/gorilla/mux"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger.Setup(cfg.Server.LogLevel, cfg.Server.LogFormat)

	log := logger.Component("jobs")

	app, err := bootstrap.New(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer app.Close()

	pipelineCfg := pipeline.DefaultPipelineConfig()
	pipelineCfg.WorkerCount = cfg.Pipeline.Workers
	orchestrator := pipeline.NewOrchestrator(app.Repo, app.Services.Replenishment, app.Services.StockHealth, pipelineCfg)

	// Create router
	r := mux.NewRouter()
	pipeline.NewHandler(orchestrator, cfg.App.Location()).RegisterRoutes(r)

	// Health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Pipeline.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     r,
		ReadTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
	}
	log.Info().Str("addr", addr).Int("workers", pipelineCfg.WorkerCount).Msg("Jobs server starting")
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("Jobs server stopped")
	}
}
