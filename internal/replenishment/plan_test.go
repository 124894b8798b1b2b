package replenishment

import (
	"testing"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
	"github.com/andresuchdata/freshstock/backend-go/internal/velocity"
)

func mustDate(s string) time.Time {
	t, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func datePtr(s string) *time.Time {
	t := mustDate(s)
	return &t
}

func TestPlan(t *testing.T) {
	today := mustDate("2025-01-10")
	freq := func(days int, last *time.Time) *domain.ReplenishmentFrequency {
		return &domain.ReplenishmentFrequency{FrequencyDays: days, LastReplenishmentDate: last}
	}

	inputs := []Input{
		{ProductID: 1, ProductName: "Yogurt", Quantity: 5, Stocked: true, Frequency: freq(1, datePtr("2025-01-09"))},
		{ProductID: 2, ProductName: "Eggs", Quantity: 0, Stocked: true},
		{ProductID: 3, ProductName: "Milk", Quantity: 0, Stocked: true, Frequency: freq(2, nil),
			Velocity: velocity.Velocity{AverageDailySales: 4, TotalDaysWithSales: 2}},
		{ProductID: 4, ProductName: "Bread", Quantity: 0, Stocked: true, Frequency: freq(3, datePtr("2025-01-09"))},
		{ProductID: 5, ProductName: "Cheese", Quantity: 5, Stocked: true, Frequency: freq(3, datePtr("2025-01-09"))},
		{ProductID: 6, ProductName: "Butter", Quantity: 0},
		{ProductID: 7, ProductName: "Jam", Quantity: 3, Stocked: true},
	}

	want := []struct {
		productID int64
		reason    string
		priority  domain.Priority
	}{
		{4, domain.ReasonOutOfStock, domain.PriorityHigh},
		{2, domain.ReasonOutOfStock, domain.PriorityHigh},
		{3, domain.ReasonOutOfStockAndDue, domain.PriorityHigh},
		{1, domain.ReasonFrequencyDue, domain.PriorityMedium},
	}

	items := Plan(inputs, today, 0)
	if len(items) != len(want) {
		t.Fatalf("expected %d items, got %d: %+v", len(want), len(items), items)
	}
	for i, w := range want {
		got := items[i]
		if got.ProductID != w.productID || got.Reason != w.reason || got.Priority != w.priority {
			t.Errorf("position %d: expected product %d %q %s, got product %d %q %s",
				i, w.productID, w.reason, w.priority, got.ProductID, got.Reason, got.Priority)
		}
	}

	milk := items[2]
	if milk.Quantity == nil || *milk.Quantity != 8 {
		t.Errorf("expected milk quantity 8, got %v", milk.Quantity)
	}
	if items[0].Quantity != nil {
		t.Errorf("expected no quantity without sales history, got %d", *items[0].Quantity)
	}
}

func TestSortTiesByName(t *testing.T) {
	items := []domain.ReplenishmentListItem{
		{ProductID: 1, ProductName: "Milk", Priority: domain.PriorityMedium},
		{ProductID: 2, ProductName: "Bread", Priority: domain.PriorityLow},
		{ProductID: 3, ProductName: "Apples", Priority: domain.PriorityMedium},
		{ProductID: 4, ProductName: "Zucchini", Priority: domain.PriorityHigh},
	}
	Sort(items)

	want := []int64{4, 3, 1, 2}
	for i, id := range want {
		if items[i].ProductID != id {
			t.Errorf("position %d: expected product %d, got %d", i, id, items[i].ProductID)
		}
	}
}

func TestSuggestedQuantity(t *testing.T) {
	tests := []struct {
		name    string
		avg     float64
		horizon int
		onHand  int
		want    *int
	}{
		{name: "no history", avg: 0, horizon: 3, onHand: 0, want: nil},
		{name: "covers horizon", avg: 4, horizon: 3, onHand: 2, want: intPtr(10)},
		{name: "half rounds to even up", avg: 2.5, horizon: 3, onHand: 0, want: intPtr(8)},
		{name: "half rounds to even down", avg: 2.5, horizon: 1, onHand: 0, want: intPtr(2)},
		{name: "enough on hand", avg: 1, horizon: 2, onHand: 9, want: intPtr(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SuggestedQuantity(velocity.Velocity{AverageDailySales: tt.avg}, tt.horizon, tt.onHand)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("expected nil, got %d", *got)
			case tt.want != nil && got == nil:
				t.Errorf("expected %d, got nil", *tt.want)
			case tt.want != nil && *got != *tt.want:
				t.Errorf("expected %d, got %d", *tt.want, *got)
			}
		})
	}
}

func TestIsDueAndNextDate(t *testing.T) {
	today := mustDate("2025-01-10")

	tests := []struct {
		name     string
		freq     *domain.ReplenishmentFrequency
		wantDue  bool
		wantNext *time.Time
	}{
		{
			name:     "never replenished",
			freq:     &domain.ReplenishmentFrequency{FrequencyDays: 2},
			wantDue:  true,
			wantNext: datePtr("2025-01-10"),
		},
		{
			name:     "due exactly today",
			freq:     &domain.ReplenishmentFrequency{FrequencyDays: 3, LastReplenishmentDate: datePtr("2025-01-07")},
			wantDue:  true,
			wantNext: datePtr("2025-01-10"),
		},
		{
			name:     "not yet due",
			freq:     &domain.ReplenishmentFrequency{FrequencyDays: 3, LastReplenishmentDate: datePtr("2025-01-08")},
			wantDue:  false,
			wantNext: datePtr("2025-01-11"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDue(tt.freq, today); got != tt.wantDue {
				t.Errorf("expected due %v, got %v", tt.wantDue, got)
			}
			next := NextDate(tt.freq, today)
			if next == nil || !next.Equal(*tt.wantNext) {
				t.Errorf("expected next %v, got %v", tt.wantNext, next)
			}
		})
	}

	if NextDate(nil, today) != nil {
		t.Errorf("expected no next date without a frequency")
	}
}

func intPtr(v int) *int { return &v }
