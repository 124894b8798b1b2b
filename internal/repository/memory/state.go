package memory

import (
	"maps"
	"slices"

	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
)

type stockKey struct {
	storeID int64
	batchID int64
}

type frequencyKey struct {
	storeID   int64
	productID int64
}

// state is one version of the whole dataset. A committed state is never
// mutated; transactions work on a clone and replace it on commit.
type state struct {
	seq int64

	stores      map[int64]domain.Store
	products    map[int64]domain.Product
	batches     map[int64]domain.Batch
	stock       map[stockKey]domain.StockEntry
	sales       map[int64]domain.Sale
	saleLines   []domain.SaleLine
	movements   []domain.StockMovement
	frequencies map[frequencyKey]domain.ReplenishmentFrequency
	logs        []domain.ReplenishmentLog
	lists       map[int64]domain.ReplenishmentList
	items       map[int64][]domain.ReplenishmentListItem
}

func newState() *state {
	return &state{
		stores:      map[int64]domain.Store{},
		products:    map[int64]domain.Product{},
		batches:     map[int64]domain.Batch{},
		stock:       map[stockKey]domain.StockEntry{},
		sales:       map[int64]domain.Sale{},
		frequencies: map[frequencyKey]domain.ReplenishmentFrequency{},
		lists:       map[int64]domain.ReplenishmentList{},
		items:       map[int64][]domain.ReplenishmentListItem{},
	}
}

func (s *state) clone() *state {
	items := make(map[int64][]domain.ReplenishmentListItem, len(s.items))
	for listID, listItems := range s.items {
		items[listID] = slices.Clone(listItems)
	}

	return &state{
		seq:         s.seq,
		stores:      maps.Clone(s.stores),
		products:    maps.Clone(s.products),
		batches:     maps.Clone(s.batches),
		stock:       maps.Clone(s.stock),
		sales:       maps.Clone(s.sales),
		saleLines:   slices.Clone(s.saleLines),
		movements:   slices.Clone(s.movements),
		frequencies: maps.Clone(s.frequencies),
		logs:        slices.Clone(s.logs),
		lists:       maps.Clone(s.lists),
		items:       items,
	}
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
