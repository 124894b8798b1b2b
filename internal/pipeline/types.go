package pipeline

import (
	"context"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
)

// StoreLister enumerates the stores a daily run covers.
type StoreLister interface {
	ListStores(ctx context.Context) ([]domain.Store, error)
}

// ListEnsurer creates the replenishment list of a store for a date, or
// returns the one already there.
type ListEnsurer interface {
	EnsureList(ctx context.Context, storeID int64, date time.Time) (*domain.ReplenishmentList, bool, error)
}

// OverviewWarmer precomputes the stock overview cache of a store.
type OverviewWarmer interface {
	WarmOverview(ctx context.Context, storeID int64, day time.Time) error
}

// PipelineConfig holds configuration for a daily run
type PipelineConfig struct {
	WorkerCount   int           // Number of stores processed concurrently
	RetryAttempts int           // Retries of a store job on concurrency failures
	RetryBackoff  time.Duration // Backoff between retries
}

// DefaultPipelineConfig returns sensible defaults
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		WorkerCount:   4,
		RetryAttempts: 3,
		RetryBackoff:  200 * time.Millisecond,
	}
}

// PipelineStatus represents the current state of a pipeline run
type PipelineStatus string

const (
	StatusPending    PipelineStatus = "pending"
	StatusProcessing PipelineStatus = "processing"
	StatusCompleted  PipelineStatus = "completed"
	StatusFailed     PipelineStatus = "failed"
)

// StoreJobStatus represents the state of a single store job
type StoreJobStatus string

const (
	StoreStatusQueued     StoreJobStatus = "queued"
	StoreStatusProcessing StoreJobStatus = "processing"
	StoreStatusCompleted  StoreJobStatus = "completed"
	StoreStatusFailed     StoreJobStatus = "failed"
)

// PipelineRun tracks a single execution of the daily run for a specific date
type PipelineRun struct {
	Date            time.Time      `json:"date"`
	Status          PipelineStatus `json:"status"`
	TotalStores     int            `json:"total_stores"`
	ProcessedStores int            `json:"processed_stores"`
	FailedStores    int            `json:"failed_stores"`
	ListsCreated    int            `json:"lists_created"`
	StartedAt       time.Time      `json:"started_at"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	Jobs            []*StoreJob    `json:"jobs"`
}

// StoreJob tracks the processing of a single store
type StoreJob struct {
	StoreID      int64          `json:"store_id"`
	StoreName    string         `json:"store_name"`
	Status       StoreJobStatus `json:"status"`
	ListID       int64          `json:"list_id,omitempty"`
	ListCreated  bool           `json:"list_created"`
	Items        int            `json:"items"`
	ErrorMessage string         `json:"error,omitempty"`
	RetryCount   int            `json:"retry_count"`
}
