package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
	"github.com/andresuchdata/freshstock/backend-go/internal/ledger"
	"github.com/andresuchdata/freshstock/backend-go/internal/repository"
	"github.com/andresuchdata/freshstock/backend-go/internal/repository/memory"
)

// flakyRepo fails the first n transactions with a concurrency error.
type flakyRepo struct {
	*memory.Repository
	failures int
	attempts int
}

func (f *flakyRepo) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	f.attempts++
	if f.attempts <= f.failures {
		return domain.ConcurrencyFailure(errors.New("could not serialize access"))
	}
	return f.Repository.WithTx(ctx, fn)
}

type fixture struct {
	repo   *memory.Repository
	ledger *ledger.Ledger
	store  domain.Store
	other  domain.Store
	batch  domain.Batch
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	repo := memory.New()
	f := fixture{
		repo:  repo,
		store: repo.MustStore("North"),
		other: repo.MustStore("South"),
	}
	product := repo.MustProduct("Milk", "2.50")
	f.batch = repo.MustBatch(product.ID, "A", nil)
	repo.MustStock(f.store.ID, f.batch.ID, 10, 5)
	f.ledger = ledger.New(repo, ledger.Settings{MaxRetries: 3})
	return f
}

func TestDecrementAndIncrement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	qty, err := f.ledger.Decrement(ctx, f.store.ID, f.batch.ID, 4)
	if err != nil || qty != 6 {
		t.Fatalf("expected 6 after decrement, got %d (%v)", qty, err)
	}

	qty, err = f.ledger.Increment(ctx, f.store.ID, f.batch.ID, 3)
	if err != nil || qty != 9 {
		t.Fatalf("expected 9 after increment, got %d (%v)", qty, err)
	}

	qty, err = f.ledger.Increment(ctx, f.other.ID, f.batch.ID, 2)
	if err != nil || qty != 2 {
		t.Fatalf("expected new entry with 2, got %d (%v)", qty, err)
	}
	entry, err := f.repo.GetStockEntry(ctx, f.other.ID, f.batch.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.ReorderLevel != domain.DefaultReorderLevel {
		t.Errorf("expected default reorder level %d, got %d", domain.DefaultReorderLevel, entry.ReorderLevel)
	}
}

func TestLedgerErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{
			name: "zero decrement",
			run:  func() error { _, err := f.ledger.Decrement(ctx, f.store.ID, f.batch.ID, 0); return err },
			want: domain.ErrValidation,
		},
		{
			name: "negative increment",
			run:  func() error { _, err := f.ledger.Increment(ctx, f.store.ID, f.batch.ID, -1); return err },
			want: domain.ErrValidation,
		},
		{
			name: "decrement below zero",
			run:  func() error { _, err := f.ledger.Decrement(ctx, f.store.ID, f.batch.ID, 11); return err },
			want: domain.ErrInsufficientStock,
		},
		{
			name: "decrement missing entry",
			run:  func() error { _, err := f.ledger.Decrement(ctx, f.other.ID, f.batch.ID, 1); return err },
			want: domain.ErrNotFound,
		},
		{
			name: "increment unknown batch",
			run:  func() error { _, err := f.ledger.Increment(ctx, f.store.ID, 9999, 1); return err },
			want: domain.ErrNotFound,
		},
		{
			name: "duplicate entry",
			run: func() error {
				_, err := f.ledger.CreateEntry(ctx, domain.StockEntry{StoreID: f.store.ID, BatchID: f.batch.ID, Quantity: 1})
				return err
			},
			want: domain.ErrConflict,
		},
		{
			name: "negative reorder level",
			run: func() error {
				_, err := f.ledger.UpdateReorderLevel(ctx, f.store.ID, f.batch.ID, -1)
				return err
			},
			want: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if q := f.repo.Quantity(f.store.ID, f.batch.ID); q != 10 {
				t.Errorf("expected quantity unchanged at 10, got %d", q)
			}
		})
	}
}

func TestUpdateReorderLevel(t *testing.T) {
	f := newFixture(t)
	entry, err := f.ledger.UpdateReorderLevel(context.Background(), f.store.ID, f.batch.ID, 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.ReorderLevel != 12 || entry.Quantity != 10 {
		t.Errorf("unexpected entry %+v", entry)
	}
}

func TestMove(t *testing.T) {
	f := newFixture(t)
	ctx := domain.WithActor(context.Background(), domain.Actor{UserID: 7, Role: domain.RoleEmployee})

	moved, err := f.ledger.Move(ctx, domain.StockMovement{
		BatchID:     f.batch.ID,
		Quantity:    4,
		Origin:      domain.StoreEndpoint(f.store.ID),
		Destination: domain.StoreEndpoint(f.other.ID),
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if moved.ID == 0 || moved.ProductID != f.batch.ProductID || moved.At.IsZero() {
		t.Errorf("movement not filled in: %+v", moved)
	}
	if moved.UserID == nil || *moved.UserID != 7 {
		t.Errorf("expected user 7 on movement, got %v", moved.UserID)
	}
	from, to := f.repo.Quantity(f.store.ID, f.batch.ID), f.repo.Quantity(f.other.ID, f.batch.ID)
	if from != 6 || to != 4 {
		t.Errorf("expected 6 and 4 after transfer, got %d and %d", from, to)
	}

	if _, err := f.ledger.Move(ctx, domain.StockMovement{
		BatchID:     f.batch.ID,
		Quantity:    5,
		Origin:      domain.SupplierEndpoint(nil),
		Destination: domain.StoreEndpoint(f.other.ID),
	}); err != nil {
		t.Fatalf("receive failed: %v", err)
	}
	if q := f.repo.Quantity(f.other.ID, f.batch.ID); q != 9 {
		t.Errorf("expected 9 after receive, got %d", q)
	}

	if _, err := f.ledger.Move(ctx, domain.StockMovement{
		BatchID:     f.batch.ID,
		Quantity:    6,
		Origin:      domain.StoreEndpoint(f.store.ID),
		Destination: domain.DisposalEndpoint(),
	}); err != nil {
		t.Fatalf("dispose failed: %v", err)
	}
	if q := f.repo.Quantity(f.store.ID, f.batch.ID); q != 0 {
		t.Errorf("expected 0 after disposal, got %d", q)
	}

	movements, err := f.repo.ListMovements(context.Background(), f.batch.ProductID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(movements) != 3 {
		t.Errorf("expected 3 recorded movements, got %d", len(movements))
	}
}

func TestMoveRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		movement domain.StockMovement
		want     error
	}{
		{
			name: "supplier to disposal",
			movement: domain.StockMovement{
				BatchID: f.batch.ID, Quantity: 1,
				Origin: domain.SupplierEndpoint(nil), Destination: domain.DisposalEndpoint(),
			},
			want: domain.ErrValidation,
		},
		{
			name: "same store",
			movement: domain.StockMovement{
				BatchID: f.batch.ID, Quantity: 1,
				Origin: domain.StoreEndpoint(f.store.ID), Destination: domain.StoreEndpoint(f.store.ID),
			},
			want: domain.ErrValidation,
		},
		{
			name: "zero quantity",
			movement: domain.StockMovement{
				BatchID: f.batch.ID, Quantity: 0,
				Origin: domain.StoreEndpoint(f.store.ID), Destination: domain.DisposalEndpoint(),
			},
			want: domain.ErrValidation,
		},
		{
			name: "dispose more than on hand",
			movement: domain.StockMovement{
				BatchID: f.batch.ID, Quantity: 11,
				Origin: domain.StoreEndpoint(f.store.ID), Destination: domain.DisposalEndpoint(),
			},
			want: domain.ErrInsufficientStock,
		},
		{
			name: "transfer to unknown store",
			movement: domain.StockMovement{
				BatchID: f.batch.ID, Quantity: 2,
				Origin: domain.StoreEndpoint(f.store.ID), Destination: domain.StoreEndpoint(9999),
			},
			want: domain.ErrNotFound,
		},
		{
			name: "unknown batch",
			movement: domain.StockMovement{
				BatchID: 9999, Quantity: 1,
				Origin: domain.SupplierEndpoint(nil), Destination: domain.StoreEndpoint(f.store.ID),
			},
			want: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.ledger.Move(ctx, tt.movement); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if q := f.repo.Quantity(f.store.ID, f.batch.ID); q != 10 {
				t.Errorf("expected quantity unchanged at 10, got %d", q)
			}
		})
	}

	movements, _ := f.repo.ListMovements(ctx, f.batch.ProductID)
	if len(movements) != 0 {
		t.Errorf("expected no movements recorded, got %d", len(movements))
	}
}

func TestRunRetriesConcurrencyFailures(t *testing.T) {
	tests := []struct {
		name         string
		failures     int
		wantErr      error
		wantAttempts int
		wantQty      int
	}{
		{name: "recovers after two failures", failures: 2, wantAttempts: 3, wantQty: 9},
		{name: "gives up after retries", failures: 10, wantErr: domain.ErrConcurrency, wantAttempts: 4, wantQty: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := memory.New()
			store := repo.MustStore("North")
			product := repo.MustProduct("Milk", "2.50")
			batch := repo.MustBatch(product.ID, "A", nil)
			repo.MustStock(store.ID, batch.ID, 10, 5)

			flaky := &flakyRepo{Repository: repo, failures: tt.failures}
			l := ledger.New(flaky, ledger.Settings{MaxRetries: 3, RetryBackoff: time.Millisecond})

			_, err := l.Decrement(context.Background(), store.ID, batch.ID, 1)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if flaky.attempts != tt.wantAttempts {
				t.Errorf("expected %d attempts, got %d", tt.wantAttempts, flaky.attempts)
			}
			if q := repo.Quantity(store.ID, batch.ID); q != tt.wantQty {
				t.Errorf("expected quantity %d, got %d", tt.wantQty, q)
			}
		})
	}
}

func TestRunDoesNotRetryOtherErrors(t *testing.T) {
	f := newFixture(t)
	flaky := &flakyRepo{Repository: f.repo}
	l := ledger.New(flaky, ledger.Settings{MaxRetries: 3})

	if _, err := l.Decrement(context.Background(), f.store.ID, f.batch.ID, 50); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if flaky.attempts != 1 {
		t.Errorf("expected a single attempt, got %d", flaky.attempts)
	}
}
