package fifo_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
	"github.com/andresuchdata/freshstock/backend-go/internal/fifo"
	"github.com/andresuchdata/freshstock/backend-go/internal/ledger"
	"github.com/andresuchdata/freshstock/backend-go/internal/repository/memory"
	"github.com/andresuchdata/freshstock/backend-go/internal/stockhealth"
)

func day(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func newAllocator(repo *memory.Repository) *fifo.Allocator {
	return fifo.NewAllocator(repo, ledger.New(repo, ledger.Settings{MaxRetries: 3}))
}

func TestSellMilkScenario(t *testing.T) {
	repo := memory.New()
	store := repo.MustStore("Store 1")
	milk := repo.MustProduct("Milk", "2.50")
	a := repo.MustBatch(milk.ID, "A", day("2025-01-01"))
	b := repo.MustBatch(milk.ID, "B", day("2025-02-01"))
	repo.MustStock(store.ID, a.ID, 5, 10)
	repo.MustStock(store.ID, b.ID, 8, 10)

	result, err := newAllocator(repo).Allocate(context.Background(), store.ID, milk.ID, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := result.Items[0].Lines
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].BatchID != a.ID || lines[0].QuantityTaken != 5 {
		t.Errorf("expected 5 from batch A first, got %d from %d", lines[0].QuantityTaken, lines[0].BatchID)
	}
	if lines[1].BatchID != b.ID || lines[1].QuantityTaken != 5 {
		t.Errorf("expected 5 from batch B second, got %d from %d", lines[1].QuantityTaken, lines[1].BatchID)
	}
	if got := result.TotalAmount.StringFixed(2); got != "25.00" {
		t.Errorf("expected total 25.00, got %s", got)
	}

	if q := repo.Quantity(store.ID, a.ID); q != 0 {
		t.Errorf("expected batch A empty, got %d", q)
	}
	remaining := repo.Quantity(store.ID, b.ID)
	if remaining != 3 {
		t.Fatalf("expected 3 left in batch B, got %d", remaining)
	}

	health := stockhealth.NewClassifier(stockhealth.DefaultDisplayDays).Classify(remaining, 10, 0)
	if health.Status != domain.StockCritical {
		t.Errorf("expected Critical, got %s", health.Status)
	}
}

func TestAllocateFollowsExpirationOrder(t *testing.T) {
	repo := memory.New()
	store := repo.MustStore("Store 1")
	product := repo.MustProduct("Yogurt", "1.00")
	undated := repo.MustBatch(product.ID, "U", nil)
	late := repo.MustBatch(product.ID, "L", day("2025-02-01"))
	early := repo.MustBatch(product.ID, "E", day("2025-01-01"))
	for _, batch := range []domain.Batch{undated, late, early} {
		repo.MustStock(store.ID, batch.ID, 4, 0)
	}

	alloc := newAllocator(repo)
	want := []int64{early.ID, early.ID, late.ID, late.ID, undated.ID, undated.ID}
	for i, batchID := range want {
		result, err := alloc.Allocate(context.Background(), store.ID, product.ID, 2)
		if err != nil {
			t.Fatalf("sale %d: unexpected error: %v", i, err)
		}
		lines := result.Items[0].Lines
		if len(lines) != 1 || lines[0].BatchID != batchID {
			t.Fatalf("sale %d: expected single line from batch %d, got %+v", i, batchID, lines)
		}
	}
}

func TestAllocateConservesQuantity(t *testing.T) {
	repo := memory.New()
	store := repo.MustStore("Store 1")
	product := repo.MustProduct("Bread", "3.00")
	for i, qty := range []int{3, 1, 7, 2} {
		batch := repo.MustBatch(product.ID, string(rune('a'+i)), day("2025-01-0"+string(rune('1'+i))))
		repo.MustStock(store.ID, batch.ID, qty, 0)
	}

	for _, qty := range []int{1, 4, 6} {
		result, err := newAllocator(repo).Allocate(context.Background(), store.ID, product.ID, qty)
		if err != nil {
			t.Fatalf("allocate %d: unexpected error: %v", qty, err)
		}
		taken := 0
		for _, line := range result.Items[0].Lines {
			if line.QuantityTaken <= 0 {
				t.Errorf("line from batch %d took %d", line.BatchID, line.QuantityTaken)
			}
			taken += line.QuantityTaken
		}
		if taken != qty {
			t.Errorf("expected lines to sum to %d, got %d", qty, taken)
		}
	}
}

func TestSellRejectsWholeSaleWhenOneItemIsShort(t *testing.T) {
	repo := memory.New()
	store := repo.MustStore("Store 1")
	milk := repo.MustProduct("Milk", "2.50")
	eggs := repo.MustProduct("Eggs", "4.00")
	milkBatch := repo.MustBatch(milk.ID, "M1", day("2025-01-01"))
	eggBatch := repo.MustBatch(eggs.ID, "E1", day("2025-01-05"))
	repo.MustStock(store.ID, milkBatch.ID, 10, 5)
	repo.MustStock(store.ID, eggBatch.ID, 2, 5)

	_, err := newAllocator(repo).Sell(context.Background(), fifo.SaleRequest{
		StoreID: store.ID,
		Items: []fifo.SaleItem{
			{ProductID: milk.ID, Quantity: 4},
			{ProductID: eggs.ID, Quantity: 3},
		},
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	var short *domain.InsufficientStockError
	if !errors.As(err, &short) || short.Requested != 3 || short.Available != 2 {
		t.Errorf("expected requested 3 available 2, got %+v", short)
	}

	if q := repo.Quantity(store.ID, milkBatch.ID); q != 10 {
		t.Errorf("expected milk untouched at 10, got %d", q)
	}
	if q := repo.Quantity(store.ID, eggBatch.ID); q != 2 {
		t.Errorf("expected eggs untouched at 2, got %d", q)
	}
	sales, err := repo.DailySalesByStore(context.Background(), store.ID, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sales) != 0 {
		t.Errorf("expected no sale lines after rollback, got %+v", sales)
	}
}

func TestSellErrors(t *testing.T) {
	repo := memory.New()
	store := repo.MustStore("Store 1")
	noBatches := repo.MustProduct("Cheese", "6.00")
	soldOut := repo.MustProduct("Butter", "3.20")
	batch := repo.MustBatch(soldOut.ID, "B1", day("2025-01-01"))
	repo.MustStock(store.ID, batch.ID, 0, 5)

	tests := []struct {
		name     string
		req      fifo.SaleRequest
		wantKind error
		wantCode string
	}{
		{
			name:     "no items",
			req:      fifo.SaleRequest{StoreID: store.ID},
			wantKind: domain.ErrValidation,
		},
		{
			name:     "zero quantity",
			req:      fifo.SaleRequest{StoreID: store.ID, Items: []fifo.SaleItem{{ProductID: soldOut.ID, Quantity: 0}}},
			wantKind: domain.ErrValidation,
		},
		{
			name:     "negative quantity",
			req:      fifo.SaleRequest{StoreID: store.ID, Items: []fifo.SaleItem{{ProductID: soldOut.ID, Quantity: -2}}},
			wantKind: domain.ErrValidation,
		},
		{
			name:     "unknown store",
			req:      fifo.SaleRequest{StoreID: 9999, Items: []fifo.SaleItem{{ProductID: soldOut.ID, Quantity: 1}}},
			wantKind: domain.ErrNotFound,
			wantCode: domain.CodeUnknownStore,
		},
		{
			name:     "unknown product",
			req:      fifo.SaleRequest{StoreID: store.ID, Items: []fifo.SaleItem{{ProductID: 9999, Quantity: 1}}},
			wantKind: domain.ErrNotFound,
			wantCode: domain.CodeUnknownProduct,
		},
		{
			name:     "product without batches",
			req:      fifo.SaleRequest{StoreID: store.ID, Items: []fifo.SaleItem{{ProductID: noBatches.ID, Quantity: 1}}},
			wantKind: domain.ErrNotFound,
			wantCode: domain.CodeNoBatches,
		},
		{
			name:     "batches exhausted",
			req:      fifo.SaleRequest{StoreID: store.ID, Items: []fifo.SaleItem{{ProductID: soldOut.ID, Quantity: 1}}},
			wantKind: domain.ErrInsufficientStock,
			wantCode: domain.CodeNoStock,
		},
	}

	alloc := newAllocator(repo)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := alloc.Sell(context.Background(), tt.req)
			if !errors.Is(err, tt.wantKind) {
				t.Fatalf("expected %v, got %v", tt.wantKind, err)
			}
			if tt.wantCode != "" && domain.CodeOf(err) != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, domain.CodeOf(err))
			}
		})
	}
}

func TestCheckViolation(t *testing.T) {
	repo := memory.New()
	store := repo.MustStore("Store 1")
	product := repo.MustProduct("Milk", "2.50")
	a := repo.MustBatch(product.ID, "A", day("2025-01-01"))
	b := repo.MustBatch(product.ID, "B", day("2025-02-01"))
	repo.MustStock(store.ID, a.ID, 5, 10)
	repo.MustStock(store.ID, b.ID, 8, 10)

	alloc := newAllocator(repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		check, err := alloc.CheckViolation(ctx, store.ID, product.ID, b.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !check.IsViolation || check.ExpectedBatchID == nil || *check.ExpectedBatchID != a.ID {
			t.Fatalf("expected violation pointing at batch %d, got %+v", a.ID, check)
		}
		if *check.ExpectedBatchCode != "A" || check.Message != fifo.MessageViolation {
			t.Errorf("unexpected check %+v", check)
		}
	}

	check, err := alloc.CheckViolation(ctx, store.ID, product.ID, a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if check.IsViolation || check.Message != fifo.MessageOK {
		t.Errorf("expected head batch to pass, got %+v", check)
	}

	if repo.Quantity(store.ID, a.ID) != 5 || repo.Quantity(store.ID, b.ID) != 8 {
		t.Errorf("violation checks changed quantities")
	}
}

func TestCheckViolationWithoutStock(t *testing.T) {
	repo := memory.New()
	store := repo.MustStore("Store 1")
	product := repo.MustProduct("Milk", "2.50")
	batch := repo.MustBatch(product.ID, "A", day("2025-01-01"))
	repo.MustStock(store.ID, batch.ID, 0, 10)

	check, err := newAllocator(repo).CheckViolation(context.Background(), store.ID, product.ID, batch.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if check.IsViolation || check.ExpectedBatchID != nil || check.Message != fifo.MessageNoStock {
		t.Errorf("expected no-stock report, got %+v", check)
	}

	if _, err := newAllocator(repo).CheckViolation(context.Background(), 9999, product.ID, batch.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found for unknown store, got %v", err)
	}
}

func TestConcurrentSalesNeverOversell(t *testing.T) {
	repo := memory.New()
	store := repo.MustStore("Store 1")
	product := repo.MustProduct("Milk", "2.50")
	a := repo.MustBatch(product.ID, "A", day("2025-01-01"))
	b := repo.MustBatch(product.ID, "B", day("2025-02-01"))
	repo.MustStock(store.ID, a.ID, 10, 0)
	repo.MustStock(store.ID, b.ID, 10, 0)

	alloc := newAllocator(repo)
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := alloc.Allocate(context.Background(), store.ID, product.ID, 1)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			if !errors.Is(err, domain.ErrInsufficientStock) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 20 {
		t.Errorf("expected 20 successful sales, got %d", succeeded)
	}
	if repo.Quantity(store.ID, a.ID) != 0 || repo.Quantity(store.ID, b.ID) != 0 {
		t.Errorf("expected both batches empty, got %d and %d", repo.Quantity(store.ID, a.ID), repo.Quantity(store.ID, b.ID))
	}
}
