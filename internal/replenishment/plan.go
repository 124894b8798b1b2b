// Package replenishment builds, persists and edits per-store replenishment lists.
package replenishment

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
	"github.com/andresuchdata/freshstock/backend-go/internal/velocity"
)

const DefaultHorizonDays = 3

// Input is everything the planner knows about one product at one store.
type Input struct {
	ProductID   int64
	ProductName string
	Quantity    int
	// Stocked is true when the store holds any stock entry for the product.
	Stocked   bool
	Frequency *domain.ReplenishmentFrequency
	Velocity  velocity.Velocity
}

// Plan selects and ranks the products that need replenishment on today.
// Products with a frequency are included when out of stock or due; products
// without one only when stocked at the store and out of stock.
func Plan(inputs []Input, today time.Time, defaultHorizon int) []domain.ReplenishmentListItem {
	if defaultHorizon <= 0 {
		defaultHorizon = DefaultHorizonDays
	}
	today = domain.DateOf(today, time.UTC)

	items := make([]domain.ReplenishmentListItem, 0)
	for _, in := range inputs {
		outOfStock := in.Quantity == 0

		var (
			reason   string
			priority domain.Priority
			horizon  int
		)

		if in.Frequency != nil {
			due := IsDue(in.Frequency, today)
			switch {
			case outOfStock && due:
				reason, priority = domain.ReasonOutOfStockAndDue, domain.PriorityHigh
			case outOfStock:
				reason, priority = domain.ReasonOutOfStock, domain.PriorityHigh
			case due:
				reason, priority = domain.ReasonFrequencyDue, domain.PriorityMedium
			default:
				continue
			}
			horizon = in.Frequency.FrequencyDays
		} else {
			if !in.Stocked || !outOfStock {
				continue
			}
			reason, priority = domain.ReasonOutOfStock, domain.PriorityHigh
			horizon = defaultHorizon
		}

		items = append(items, domain.ReplenishmentListItem{
			ProductID:    in.ProductID,
			ProductName:  in.ProductName,
			Quantity:     SuggestedQuantity(in.Velocity, horizon, in.Quantity),
			CurrentStock: in.Quantity,
			Reason:       reason,
			Priority:     priority,
		})
	}

	Sort(items)
	return items
}

// IsDue reports whether a product is due on today: never replenished, or at
// least FrequencyDays since the last replenishment.
func IsDue(freq *domain.ReplenishmentFrequency, today time.Time) bool {
	if freq.LastReplenishmentDate == nil {
		return true
	}
	return domain.DaysBetween(*freq.LastReplenishmentDate, today) >= freq.FrequencyDays
}

// SuggestedQuantity covers horizonDays of demand minus what is on hand. It is
// nil when there is no sales history to base it on.
func SuggestedQuantity(v velocity.Velocity, horizonDays, onHand int) *int {
	if v.AverageDailySales <= 0 {
		return nil
	}
	qty := int(math.RoundToEven(v.AverageDailySales*float64(horizonDays) - float64(onHand)))
	qty = max(0, qty)
	return &qty
}

// NextDate is the next expected replenishment: last date plus frequency, or
// today when the product has a frequency but was never replenished.
func NextDate(freq *domain.ReplenishmentFrequency, today time.Time) *time.Time {
	if freq == nil {
		return nil
	}
	if freq.LastReplenishmentDate == nil {
		d := domain.DateOf(today, time.UTC)
		return &d
	}
	d := domain.DateOf(*freq.LastReplenishmentDate, time.UTC).AddDate(0, 0, freq.FrequencyDays)
	return &d
}

// Sort orders items by priority rank, then product name, then product ID.
func Sort(items []domain.ReplenishmentListItem) {
	slices.SortStableFunc(items, func(a, b domain.ReplenishmentListItem) int {
		if c := cmp.Compare(a.Priority.Rank(), b.Priority.Rank()); c != 0 {
			return c
		}
		if c := strings.Compare(a.ProductName, b.ProductName); c != 0 {
			return c
		}
		return cmp.Compare(a.ProductID, b.ProductID)
	})
}
