package ledger

import (
	"context"

	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
	"github.com/andresuchdata/freshstock/backend-go/internal/repository"
)

var (
	routeReceive  = domain.MovementRoute{From: domain.EndpointSupplier, To: domain.EndpointStore}
	routeTransfer = domain.MovementRoute{From: domain.EndpointStore, To: domain.EndpointStore}
	routeDispose  = domain.MovementRoute{From: domain.EndpointStore, To: domain.EndpointDisposal}
)

// Move applies and records a stock movement in one transaction.
func (l *Ledger) Move(ctx context.Context, movement domain.StockMovement) (*domain.StockMovement, error) {
	if err := validateAmount(movement.Quantity); err != nil {
		return nil, err
	}
	if movement.At.IsZero() {
		movement.At = l.now()
	}
	if movement.UserID == nil {
		if actor, ok := domain.ActorFromContext(ctx); ok {
			movement.UserID = &actor.UserID
		}
	}

	err := l.Run(ctx, func(tx repository.Tx) error {
		m := movement
		if err := MoveTx(ctx, tx, &m); err != nil {
			return err
		}
		movement = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &movement, nil
}

// MoveTx is Move inside a caller-owned transaction. It fills in the product
// and the generated movement ID.
func MoveTx(ctx context.Context, tx repository.Tx, movement *domain.StockMovement) error {
	if err := validateAmount(movement.Quantity); err != nil {
		return err
	}

	batch, err := tx.GetBatch(ctx, movement.BatchID)
	if err != nil {
		return err
	}
	if movement.ProductID != 0 && movement.ProductID != batch.ProductID {
		return domain.Validationf("batch %d does not belong to product %d", batch.ID, movement.ProductID)
	}
	movement.ProductID = batch.ProductID

	switch route := movement.Route(); route {
	case routeReceive:
		to, err := movement.Destination.StoreID()
		if err != nil {
			return err
		}
		if _, err := IncrementTx(ctx, tx, to, batch.ID, movement.Quantity); err != nil {
			return err
		}

	case routeTransfer:
		from, err := movement.Origin.StoreID()
		if err != nil {
			return err
		}
		to, err := movement.Destination.StoreID()
		if err != nil {
			return err
		}
		if from == to {
			return domain.Validationf("origin and destination store are the same")
		}
		if _, err := DecrementTx(ctx, tx, from, batch.ID, movement.Quantity); err != nil {
			return err
		}
		if _, err := IncrementTx(ctx, tx, to, batch.ID, movement.Quantity); err != nil {
			return err
		}

	case routeDispose:
		from, err := movement.Origin.StoreID()
		if err != nil {
			return err
		}
		if _, err := DecrementTx(ctx, tx, from, batch.ID, movement.Quantity); err != nil {
			return err
		}

	default:
		return domain.Validationf("unsupported movement from %s to %s", route.From, route.To)
	}

	return tx.CreateMovement(ctx, movement)
}

// AffectedStores lists the stores whose quantity a movement changes.
func AffectedStores(movement domain.StockMovement) []int64 {
	var stores []int64
	for _, ep := range []domain.Endpoint{movement.Origin, movement.Destination} {
		if id, err := ep.StoreID(); err == nil {
			stores = append(stores, id)
		}
	}
	return stores
}
