package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Orchestrator runs the daily per-store job: generate the replenishment list
// and warm the stock overview cache.
type Orchestrator struct {
	stores   StoreLister
	lists    ListEnsurer
	overview OverviewWarmer
	cfg      PipelineConfig

	mu      sync.Mutex
	running bool
	last    *PipelineRun
}

// NewOrchestrator creates a new Orchestrator. overview may be nil.
func NewOrchestrator(stores StoreLister, lists ListEnsurer, overview OverviewWarmer, cfg PipelineConfig) *Orchestrator {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	return &Orchestrator{
		stores:   stores,
		lists:    lists,
		overview: overview,
		cfg:      cfg,
	}
}

// ErrAlreadyRunning is returned when a run is requested while one is active.
var ErrAlreadyRunning = errors.New("pipeline: a daily run is already in progress")

// Run processes every store for date. A failing store does not stop the
// others; the run is marked failed when any store failed.
func (o *Orchestrator) Run(ctx context.Context, date time.Time) (*PipelineRun, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	o.running = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	stores, err := o.stores.ListStores(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}

	run := &PipelineRun{
		Date:        date,
		Status:      StatusProcessing,
		TotalStores: len(stores),
		StartedAt:   time.Now(),
		Jobs:        make([]*StoreJob, len(stores)),
	}
	for i, store := range stores {
		run.Jobs[i] = &StoreJob{StoreID: store.ID, StoreName: store.Name, Status: StoreStatusQueued}
	}

	log.Info().Str("date", date.Format(domain.DateLayout)).Int("stores", len(stores)).Msg("pipeline: daily run started")

	var counters sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.WorkerCount)
	for _, job := range run.Jobs {
		g.Go(func() error {
			// Store failures are recorded on the job, never returned, so one
			// store cannot cancel the rest.
			o.processStore(gctx, job, date)

			counters.Lock()
			defer counters.Unlock()
			run.ProcessedStores++
			if job.Status == StoreStatusFailed {
				run.FailedStores++
			}
			if job.ListCreated {
				run.ListsCreated++
			}
			return nil
		})
	}
	_ = g.Wait()

	now := time.Now()
	run.CompletedAt = &now
	run.Status = StatusCompleted
	if run.FailedStores > 0 {
		run.Status = StatusFailed
	}

	o.mu.Lock()
	o.last = run
	o.mu.Unlock()

	log.Info().
		Str("date", date.Format(domain.DateLayout)).
		Str("status", string(run.Status)).
		Int("processed", run.ProcessedStores).
		Int("failed", run.FailedStores).
		Int("lists_created", run.ListsCreated).
		Dur("duration", now.Sub(run.StartedAt)).
		Msg("pipeline: daily run finished")

	return run, ctx.Err()
}

// LastRun returns the most recent finished run, if any.
func (o *Orchestrator) LastRun() *PipelineRun {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

func (o *Orchestrator) processStore(ctx context.Context, job *StoreJob, date time.Time) {
	job.Status = StoreStatusProcessing

	var (
		list    *domain.ReplenishmentList
		created bool
		err     error
	)
	for attempt := 0; ; attempt++ {
		list, created, err = o.lists.EnsureList(ctx, job.StoreID, date)
		if err == nil || !errors.Is(err, domain.ErrConcurrency) || attempt >= o.cfg.RetryAttempts {
			break
		}
		job.RetryCount++
		if err = wait(ctx, o.cfg.RetryBackoff); err != nil {
			break
		}
	}
	if err != nil {
		job.Status = StoreStatusFailed
		job.ErrorMessage = err.Error()
		log.Error().Err(err).Int64("store_id", job.StoreID).Msg("pipeline: replenishment list failed")
		return
	}

	job.ListID = list.ID
	job.ListCreated = created
	job.Items = len(list.Items)

	if o.overview != nil {
		if err := o.overview.WarmOverview(ctx, job.StoreID, date); err != nil {
			log.Warn().Err(err).Int64("store_id", job.StoreID).Msg("pipeline: overview warm-up failed")
		}
	}

	job.Status = StoreStatusCompleted
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
