package stockhealth

import (
	"testing"

	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
)

func TestClassify(t *testing.T) {
	intPtr := func(v int) *int { return &v }

	tests := []struct {
		name         string
		quantity     int
		reorderLevel int
		velocity     float64
		wantStatus   domain.StockStatus
		wantProgress float64
		wantDays     *int
		wantFacing   int
	}{
		{
			name: "at reorder level is critical", quantity: 10, reorderLevel: 10, velocity: 0,
			wantStatus: domain.StockCritical, wantProgress: 10.0 / 30.0, wantFacing: 1,
		},
		{
			name: "below twice reorder level is low", quantity: 20, reorderLevel: 10, velocity: 4,
			wantStatus: domain.StockLow, wantProgress: 20.0 / 30.0, wantDays: intPtr(5), wantFacing: 8,
		},
		{
			name: "above twice reorder level is stable", quantity: 21, reorderLevel: 10, velocity: 2.5,
			wantStatus: domain.StockStable, wantProgress: 21.0 / 30.0, wantDays: intPtr(8), wantFacing: 5,
		},
		{
			name: "progress capped at one", quantity: 100, reorderLevel: 10, velocity: 0,
			wantStatus: domain.StockStable, wantProgress: 1, wantFacing: 1,
		},
		{
			name: "zero reorder level", quantity: 3, reorderLevel: 0, velocity: 1,
			wantStatus: domain.StockStable, wantProgress: 1, wantDays: intPtr(3), wantFacing: 2,
		},
		{
			name: "empty shelf", quantity: 0, reorderLevel: 0, velocity: 3,
			wantStatus: domain.StockCritical, wantProgress: 1, wantDays: intPtr(0), wantFacing: 0,
		},
		{
			name: "facing capped by quantity", quantity: 3, reorderLevel: 10, velocity: 7,
			wantStatus: domain.StockCritical, wantProgress: 0.1, wantDays: intPtr(0), wantFacing: 3,
		},
	}

	c := NewClassifier(DefaultDisplayDays)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.quantity, tt.reorderLevel, tt.velocity)
			if got.Status != tt.wantStatus {
				t.Errorf("expected status %s, got %s", tt.wantStatus, got.Status)
			}
			if diff := got.Progress - tt.wantProgress; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("expected progress %v, got %v", tt.wantProgress, got.Progress)
			}
			switch {
			case tt.wantDays == nil && got.DaysToOutOfStock != nil:
				t.Errorf("expected unknown days, got %d", *got.DaysToOutOfStock)
			case tt.wantDays != nil && got.DaysToOutOfStock == nil:
				t.Errorf("expected %d days, got unknown", *tt.wantDays)
			case tt.wantDays != nil && *got.DaysToOutOfStock != *tt.wantDays:
				t.Errorf("expected %d days, got %d", *tt.wantDays, *got.DaysToOutOfStock)
			}
			if got.SuggestedFacing != tt.wantFacing {
				t.Errorf("expected facing %d, got %d", tt.wantFacing, got.SuggestedFacing)
			}
		})
	}
}

func TestNewClassifierDefaultsDisplayDays(t *testing.T) {
	if got := NewClassifier(0).Classify(50, 1, 3).SuggestedFacing; got != 6 {
		t.Errorf("expected facing 6 with default window, got %d", got)
	}
}
