package replenishment

import (
	"context"
	"slices"

	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
	"github.com/andresuchdata/freshstock/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
)

// ItemPatch replaces the given fields of a list item. Nil fields are kept.
type ItemPatch struct {
	Quantity *int    `json:"quantity"`
	Reason   *string `json:"reason"`
	Priority *string `json:"priority"`
	Notes    *string `json:"notes"`
}

// NewItem is a manually added list item.
type NewItem struct {
	ProductID int64   `json:"product_id" validate:"required"`
	Quantity  *int    `json:"quantity"`
	Reason    string  `json:"reason"`
	Priority  string  `json:"priority" validate:"required"`
	Notes     *string `json:"notes"`
}

func validateQuantity(q *int) error {
	if q != nil && *q < 0 {
		return domain.Validationf("quantity must not be negative, got %d", *q)
	}
	return nil
}

func parsePriority(label string) (domain.Priority, error) {
	p, ok := domain.ParsePriority(label)
	if !ok {
		return "", domain.Validationf("invalid priority %q, expected High, Medium or Low", label)
	}
	return p, nil
}

// lockOpenList locks a list and rejects edits once it is completed or cancelled.
func lockOpenList(ctx context.Context, tx repository.Tx, listID int64) (*domain.ReplenishmentList, error) {
	list, err := tx.LockList(ctx, listID)
	if err != nil {
		return nil, err
	}
	if list.Status.Terminal() {
		return nil, domain.Conflict(domain.CodeListClosed, "replenishment list %d is %s", listID, list.Status)
	}
	return list, nil
}

// Override applies a manager's correction to one item. It never looks at
// live stock.
func (p *Planner) Override(ctx context.Context, listID, productID int64, patch ItemPatch) (*domain.ReplenishmentListItem, error) {
	actor, err := domain.RequireManager(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateQuantity(patch.Quantity); err != nil {
		return nil, err
	}
	var priority domain.Priority
	if patch.Priority != nil {
		if priority, err = parsePriority(*patch.Priority); err != nil {
			return nil, err
		}
	}

	var updated *domain.ReplenishmentListItem
	err = p.ledger.Run(ctx, func(tx repository.Tx) error {
		if _, err := lockOpenList(ctx, tx, listID); err != nil {
			return err
		}

		items, err := tx.ListItems(ctx, listID)
		if err != nil {
			return err
		}
		idx := slices.IndexFunc(items, func(it domain.ReplenishmentListItem) bool { return it.ProductID == productID })
		if idx < 0 {
			return domain.NotFound("", "product %d is not on list %d", productID, listID)
		}

		item := items[idx]
		if patch.Quantity != nil {
			q := *patch.Quantity
			item.Quantity = &q
		}
		if patch.Reason != nil {
			item.Reason = *patch.Reason
		}
		if patch.Priority != nil {
			item.Priority = priority
		}
		if patch.Notes != nil {
			n := *patch.Notes
			item.Notes = &n
		}

		if err := tx.UpdateListItem(ctx, &item); err != nil {
			return err
		}
		updated = &item
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("list_id", listID).
		Int64("product_id", productID).
		Int64("user_id", actor.UserID).
		Msg("Replenishment item overridden")

	return updated, nil
}

// AddItem puts a product on a list by hand.
func (p *Planner) AddItem(ctx context.Context, listID int64, in NewItem) (*domain.ReplenishmentListItem, error) {
	if _, err := domain.RequireManager(ctx); err != nil {
		return nil, err
	}
	if err := validateQuantity(in.Quantity); err != nil {
		return nil, err
	}
	priority, err := parsePriority(in.Priority)
	if err != nil {
		return nil, err
	}

	var added *domain.ReplenishmentListItem
	err = p.ledger.Run(ctx, func(tx repository.Tx) error {
		list, err := lockOpenList(ctx, tx, listID)
		if err != nil {
			return err
		}
		product, err := tx.GetProduct(ctx, in.ProductID)
		if err != nil {
			return err
		}

		stock, err := tx.ProductStockByStore(ctx, list.StoreID)
		if err != nil {
			return err
		}
		current := 0
		for _, s := range stock {
			if s.ProductID == product.ID {
				current = s.TotalQuantity
				break
			}
		}

		reason := in.Reason
		if reason == "" {
			reason = "Manual"
		}
		items := []domain.ReplenishmentListItem{{
			ListID:       listID,
			ProductID:    product.ID,
			ProductName:  product.Name,
			Quantity:     in.Quantity,
			CurrentStock: current,
			Reason:       reason,
			Priority:     priority,
			Notes:        in.Notes,
		}}
		if err := tx.CreateListItems(ctx, items); err != nil {
			return err
		}
		added = &items[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// RemoveItem takes a product off a list.
func (p *Planner) RemoveItem(ctx context.Context, listID, productID int64) error {
	if _, err := domain.RequireManager(ctx); err != nil {
		return err
	}
	return p.ledger.Run(ctx, func(tx repository.Tx) error {
		if _, err := lockOpenList(ctx, tx, listID); err != nil {
			return err
		}
		return tx.DeleteListItem(ctx, listID, productID)
	})
}

// SetStatus moves a draft list to completed or cancelled and updates its
// notes. An empty status only updates the notes.
func (p *Planner) SetStatus(ctx context.Context, listID int64, status string, notes *string) (*domain.ReplenishmentList, error) {
	var next domain.ListStatus
	if status != "" {
		var ok bool
		if next, ok = domain.ParseListStatus(status); !ok {
			return nil, domain.Validationf("invalid list status %q", status)
		}
	}

	var list *domain.ReplenishmentList
	err := p.ledger.Run(ctx, func(tx repository.Tx) error {
		l, err := lockOpenList(ctx, tx, listID)
		if err != nil {
			return err
		}
		if next != "" && next != l.Status {
			if !l.Status.CanTransition(next) {
				return domain.Conflict("", "cannot move list %d from %s to %s", listID, l.Status, next)
			}
			l.Status = next
		}
		if notes != nil {
			n := *notes
			l.Notes = &n
		}
		if err := tx.UpdateList(ctx, l); err != nil {
			return err
		}
		list, err = p.withItems(ctx, tx, l)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().Int64("list_id", listID).Str("status", string(list.Status)).Msg("Replenishment list updated")
	return list, nil
}

// DeleteList removes a list and its items.
func (p *Planner) DeleteList(ctx context.Context, listID int64) error {
	if _, err := domain.RequireManager(ctx); err != nil {
		return err
	}
	return p.ledger.Run(ctx, func(tx repository.Tx) error {
		if _, err := tx.LockList(ctx, listID); err != nil {
			return err
		}
		return tx.DeleteList(ctx, listID)
	})
}
