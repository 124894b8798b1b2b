package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/config"
	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
	"github.com/andresuchdata/freshstock/backend-go/internal/repository/memory"
	"github.com/andresuchdata/freshstock/backend-go/internal/service"
	"github.com/gorilla/mux"
)

type fakeStores []domain.Store

func (f fakeStores) ListStores(context.Context) ([]domain.Store, error) { return f, nil }

// fakeLists fails each store with the queued errors before succeeding.
type fakeLists struct {
	mu       sync.Mutex
	failures map[int64][]error
	calls    map[int64]int
	block    chan struct{}
}

func (f *fakeLists) EnsureList(ctx context.Context, storeID int64, date time.Time) (*domain.ReplenishmentList, bool, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[int64]int{}
	}
	f.calls[storeID]++
	if queue := f.failures[storeID]; len(queue) > 0 {
		f.failures[storeID] = queue[1:]
		return nil, false, queue[0]
	}
	return &domain.ReplenishmentList{ID: storeID * 100, StoreID: storeID, ListDate: date,
		Items: []domain.ReplenishmentListItem{{ProductID: 1}}}, true, nil
}

type fakeWarmer struct {
	mu     sync.Mutex
	warmed []int64
}

func (f *fakeWarmer) WarmOverview(_ context.Context, storeID int64, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warmed = append(f.warmed, storeID)
	return nil
}

var testConfig = PipelineConfig{WorkerCount: 2, RetryAttempts: 3, RetryBackoff: time.Millisecond}

func TestRunRecordsPerStoreOutcome(t *testing.T) {
	stores := fakeStores{{ID: 1, Name: "North"}, {ID: 2, Name: "South"}, {ID: 3, Name: "East"}}
	conflict := domain.ConcurrencyFailure(errors.New("could not serialize access"))
	lists := &fakeLists{failures: map[int64][]error{
		2: {conflict, conflict},
		3: {domain.NotFound(domain.CodeUnknownStore, "store 3 not found")},
	}}
	warmer := &fakeWarmer{}

	orch := NewOrchestrator(stores, lists, warmer, testConfig)
	run, err := orch.Run(context.Background(), time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if run.Status != StatusFailed || run.ProcessedStores != 3 || run.FailedStores != 1 || run.ListsCreated != 2 {
		t.Errorf("unexpected run %+v", run)
	}
	byStore := map[int64]*StoreJob{}
	for _, job := range run.Jobs {
		byStore[job.StoreID] = job
	}
	if job := byStore[2]; job.Status != StoreStatusCompleted || job.RetryCount != 2 || job.ListID != 200 {
		t.Errorf("expected store 2 to recover after 2 retries, got %+v", job)
	}
	if job := byStore[3]; job.Status != StoreStatusFailed || job.RetryCount != 0 || job.ErrorMessage == "" {
		t.Errorf("expected store 3 to fail without retries, got %+v", job)
	}
	if len(warmer.warmed) != 2 {
		t.Errorf("expected 2 stores warmed, got %v", warmer.warmed)
	}
	if orch.LastRun() != run {
		t.Errorf("last run not recorded")
	}
}

func TestRunGivesUpAfterRetries(t *testing.T) {
	conflict := domain.ConcurrencyFailure(errors.New("deadlock detected"))
	lists := &fakeLists{failures: map[int64][]error{1: {conflict, conflict, conflict, conflict, conflict}}}

	run, err := NewOrchestrator(fakeStores{{ID: 1}}, lists, nil, testConfig).Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Jobs[0].Status != StoreStatusFailed || lists.calls[1] != 4 {
		t.Errorf("expected 4 attempts then failure, got %d calls and %+v", lists.calls[1], run.Jobs[0])
	}
}

func TestRunRejectsOverlap(t *testing.T) {
	lists := &fakeLists{block: make(chan struct{})}
	orch := NewOrchestrator(fakeStores{{ID: 1}}, lists, nil, testConfig)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = orch.Run(context.Background(), time.Now())
	}()

	deadline := time.After(2 * time.Second)
	for {
		orch.mu.Lock()
		running := orch.running
		orch.mu.Unlock()
		if running {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first run never started")
		case <-time.After(time.Millisecond):
		}
	}

	if _, err := orch.Run(context.Background(), time.Now()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}
	close(lists.block)
	<-done
}

func TestDailyRunOverMemoryServices(t *testing.T) {
	repo := memory.New()
	north := repo.MustStore("North")
	repo.MustStore("South")
	milk := repo.MustProduct("Milk", "2.50")
	batch := repo.MustBatch(milk.ID, "M1", nil)
	repo.MustStock(north.ID, batch.ID, 0, 10)

	services := service.NewServices(repo, nil, config.EngineConfig{}, time.UTC)
	orch := NewOrchestrator(repo, services.Replenishment, services.StockHealth, testConfig)

	router := mux.NewRouter()
	NewHandler(orch, time.UTC).RegisterRoutes(router)

	tests := []struct {
		name        string
		path        string
		wantStatus  int
		wantCreated int
	}{
		{name: "first run creates lists", path: "/jobs/daily?date=2025-01-10", wantStatus: http.StatusOK, wantCreated: 2},
		{name: "rerun reuses lists", path: "/jobs/daily?date=2025-01-10", wantStatus: http.StatusOK, wantCreated: 0},
		{name: "bad date", path: "/jobs/daily?date=tomorrow", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, tt.path, nil))
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus == http.StatusOK && orch.LastRun().ListsCreated != tt.wantCreated {
				t.Errorf("expected %d lists created, got %d", tt.wantCreated, orch.LastRun().ListsCreated)
			}
		})
	}

	list, err := services.Replenishment.GetListByDate(context.Background(), north.ID, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].ProductID != milk.ID {
		t.Errorf("expected out of stock milk on the list, got %+v", list.Items)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/jobs/daily/last", nil))
	if w.Code != http.StatusOK {
		t.Errorf("last run: expected 200, got %d", w.Code)
	}
}
