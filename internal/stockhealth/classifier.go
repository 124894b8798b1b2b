// Package stockhealth turns quantity, reorder level and velocity into a
// shelf status and depletion estimate.
package stockhealth

import (
	"math"

	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
)

const DefaultDisplayDays = 2

// Health is the classification of one product at one store.
type Health struct {
	Status           domain.StockStatus `json:"status"`
	Progress         float64            `json:"progress"`
	DaysToOutOfStock *int               `json:"days_to_out_of_stock"`
	SuggestedFacing  int                `json:"suggested_facing"`
}

// Classifier applies the status thresholds with a fixed shelf display window.
type Classifier struct {
	displayDays int
}

func NewClassifier(displayDays int) *Classifier {
	if displayDays <= 0 {
		displayDays = DefaultDisplayDays
	}
	return &Classifier{displayDays: displayDays}
}

// Classify computes the health of quantity units against reorderLevel.
func (c *Classifier) Classify(quantity, reorderLevel int, velocity float64) Health {
	h := Health{}

	// 1. Status against the reorder level
	switch {
	case quantity <= reorderLevel:
		h.Status = domain.StockCritical
	case quantity <= 2*reorderLevel:
		h.Status = domain.StockLow
	default:
		h.Status = domain.StockStable
	}

	// 2. Progress towards three times the reorder level
	if reorderLevel <= 0 {
		h.Progress = 1.0
	} else {
		h.Progress = math.Min(1.0, float64(quantity)/float64(3*reorderLevel))
	}

	// 3. Days until stock runs out; unknown without velocity
	if velocity > 0 {
		days := int(math.Floor(float64(quantity) / velocity))
		h.DaysToOutOfStock = &days
	}

	// 4. Shelf facing for the display window, capped by what is on hand
	switch {
	case quantity <= 0:
		h.SuggestedFacing = 0
	case velocity > 0:
		h.SuggestedFacing = min(int(math.Ceil(velocity*float64(c.displayDays))), quantity)
	default:
		h.SuggestedFacing = 1
	}

	return h
}
