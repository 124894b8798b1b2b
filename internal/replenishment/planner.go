package replenishment

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
	"github.com/andresuchdata/freshstock/backend-go/internal/ledger"
	"github.com/andresuchdata/freshstock/backend-go/internal/repository"
	"github.com/andresuchdata/freshstock/backend-go/internal/velocity"
	"github.com/rs/zerolog/log"
)

type Settings struct {
	DefaultHorizonDays int
	// Location buckets sales for stores without their own timezone.
	Location *time.Location
}

type Planner struct {
	repo     repository.Repository
	ledger   *ledger.Ledger
	settings Settings
	now      func() time.Time
}

func NewPlanner(repo repository.Repository, l *ledger.Ledger, settings Settings) *Planner {
	if settings.DefaultHorizonDays <= 0 {
		settings.DefaultHorizonDays = DefaultHorizonDays
	}
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	return &Planner{repo: repo, ledger: l, settings: settings, now: time.Now}
}

// inputs gathers frequencies, stock and velocity for every relevant product
// of a store with one query each.
func (p *Planner) inputs(ctx context.Context, q repository.Queries, storeID int64) ([]Input, error) {
	freqs, err := q.ListFrequencies(ctx, &storeID, nil)
	if err != nil {
		return nil, err
	}
	stock, err := q.ProductStockByStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	velocities, err := velocity.NewEstimator(q, p.settings.Location).ForStore(ctx, storeID)
	if err != nil {
		return nil, err
	}

	byProduct := make(map[int64]*Input, len(stock)+len(freqs))
	order := make([]int64, 0, len(stock)+len(freqs))
	for _, s := range stock {
		byProduct[s.ProductID] = &Input{
			ProductID:   s.ProductID,
			ProductName: s.ProductName,
			Quantity:    s.TotalQuantity,
			Stocked:     true,
		}
		order = append(order, s.ProductID)
	}

	var missing []int64
	for i := range freqs {
		freq := freqs[i]
		in, ok := byProduct[freq.ProductID]
		if !ok {
			in = &Input{ProductID: freq.ProductID}
			byProduct[freq.ProductID] = in
			order = append(order, freq.ProductID)
			missing = append(missing, freq.ProductID)
		}
		in.Frequency = &freq
	}

	if len(missing) > 0 {
		products, err := q.GetProductsByIDs(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, id := range missing {
			byProduct[id].ProductName = products[id].Name
		}
	}

	inputs := make([]Input, 0, len(order))
	for _, id := range order {
		in := byProduct[id]
		in.Velocity = velocities[id]
		inputs = append(inputs, *in)
	}
	return inputs, nil
}

// Preview returns the items a list generated for date would contain, without
// persisting anything.
func (p *Planner) Preview(ctx context.Context, storeID int64, date time.Time) ([]domain.ReplenishmentListItem, error) {
	if _, err := p.repo.GetStore(ctx, storeID); err != nil {
		return nil, err
	}
	inputs, err := p.inputs(ctx, p.repo, storeID)
	if err != nil {
		return nil, err
	}
	return Plan(inputs, date, p.settings.DefaultHorizonDays), nil
}

// Generate builds and stores the list of a store for date. A second list for
// the same store and date is a Conflict.
func (p *Planner) Generate(ctx context.Context, storeID int64, date time.Time) (*domain.ReplenishmentList, error) {
	listDate := domain.DateOf(date, time.UTC)

	var list *domain.ReplenishmentList
	err := p.ledger.Run(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetStore(ctx, storeID); err != nil {
			return err
		}

		inputs, err := p.inputs(ctx, tx, storeID)
		if err != nil {
			return err
		}
		items := Plan(inputs, listDate, p.settings.DefaultHorizonDays)

		notes := fmt.Sprintf("Auto-generated on %s", listDate.Format(domain.DateLayout))
		l := &domain.ReplenishmentList{
			StoreID:   storeID,
			ListDate:  listDate,
			Status:    domain.ListDraft,
			CreatedAt: p.now(),
			Notes:     &notes,
		}
		if err := tx.CreateList(ctx, l); err != nil {
			return err
		}

		for i := range items {
			items[i].ListID = l.ID
		}
		if len(items) > 0 {
			if err := tx.CreateListItems(ctx, items); err != nil {
				return err
			}
		}

		l.Items = items
		list = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("store_id", storeID).
		Int64("list_id", list.ID).
		Str("list_date", listDate.Format(domain.DateLayout)).
		Int("items", len(list.Items)).
		Msg("Replenishment list generated")

	return list, nil
}

func (p *Planner) withItems(ctx context.Context, q repository.Queries, list *domain.ReplenishmentList) (*domain.ReplenishmentList, error) {
	items, err := q.ListItems(ctx, list.ID)
	if err != nil {
		return nil, err
	}
	Sort(items)
	list.Items = items
	return list, nil
}

func (p *Planner) GetList(ctx context.Context, listID int64) (*domain.ReplenishmentList, error) {
	list, err := p.repo.GetList(ctx, listID)
	if err != nil {
		return nil, err
	}
	return p.withItems(ctx, p.repo, list)
}

func (p *Planner) GetListByDate(ctx context.Context, storeID int64, date time.Time) (*domain.ReplenishmentList, error) {
	list, err := p.repo.GetListByDate(ctx, storeID, date)
	if err != nil {
		return nil, err
	}
	return p.withItems(ctx, p.repo, list)
}

// ListLists returns list headers without items, newest first.
func (p *Planner) ListLists(ctx context.Context, filter domain.ListFilter) ([]domain.ReplenishmentList, error) {
	return p.repo.ListLists(ctx, filter)
}
