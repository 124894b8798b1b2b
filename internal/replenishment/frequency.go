package replenishment

import (
	"context"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
	"github.com/andresuchdata/freshstock/backend-go/internal/ledger"
	"github.com/andresuchdata/freshstock/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
)

const (
	MinFrequencyDays = 1
	MaxFrequencyDays = 3
)

type FrequencyInput struct {
	StoreID               int64      `json:"store_id" validate:"required"`
	ProductID             int64      `json:"product_id" validate:"required"`
	FrequencyDays         int        `json:"replenishment_frequency" validate:"required"`
	LastReplenishmentDate *time.Time `json:"last_replenishment_date"`
}

// Delivery is a replenishment received from a supplier.
type Delivery struct {
	StoreID   int64      `json:"store_id" validate:"required"`
	ProductID int64      `json:"product_id" validate:"required"`
	BatchID   int64      `json:"batch_id" validate:"required"`
	Quantity  int        `json:"quantity" validate:"required"`
	Date      *time.Time `json:"date"`
}

// UpsertFrequency creates or replaces the cadence of a product at a store.
// Without a date the previous last replenishment date is kept.
func (p *Planner) UpsertFrequency(ctx context.Context, in FrequencyInput) (*domain.ReplenishmentFrequency, error) {
	if in.FrequencyDays < MinFrequencyDays || in.FrequencyDays > MaxFrequencyDays {
		return nil, domain.Validationf("replenishment frequency must be between %d and %d days, got %d",
			MinFrequencyDays, MaxFrequencyDays, in.FrequencyDays)
	}

	freq := &domain.ReplenishmentFrequency{
		StoreID:       in.StoreID,
		ProductID:     in.ProductID,
		FrequencyDays: in.FrequencyDays,
	}
	if in.LastReplenishmentDate != nil {
		d := domain.DateOf(*in.LastReplenishmentDate, time.UTC)
		freq.LastReplenishmentDate = &d
	}

	err := p.ledger.Run(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetStore(ctx, in.StoreID); err != nil {
			return err
		}
		if _, err := tx.GetProduct(ctx, in.ProductID); err != nil {
			return err
		}
		return tx.UpsertFrequency(ctx, freq)
	})
	if err != nil {
		return nil, err
	}
	return freq, nil
}

func (p *Planner) GetFrequency(ctx context.Context, storeID, productID int64) (*domain.ReplenishmentFrequency, error) {
	return p.repo.GetFrequency(ctx, storeID, productID)
}

func (p *Planner) ListFrequencies(ctx context.Context, storeID, productID *int64) ([]domain.ReplenishmentFrequency, error) {
	return p.repo.ListFrequencies(ctx, storeID, productID)
}

func (p *Planner) DeleteFrequency(ctx context.Context, storeID, productID int64) error {
	return p.ledger.Run(ctx, func(tx repository.Tx) error {
		return tx.DeleteFrequency(ctx, storeID, productID)
	})
}

func (p *Planner) ListLogs(ctx context.Context, storeID, productID int64) ([]domain.ReplenishmentLog, error) {
	return p.repo.ListReplenishmentLogs(ctx, storeID, productID)
}

// RecordReplenishment books a supplier delivery: the quantity enters the
// ledger, the last replenishment date moves to the delivery date and a log
// entry names the user who received it. All of it commits together.
func (p *Planner) RecordReplenishment(ctx context.Context, in Delivery) (*domain.ReplenishmentLog, error) {
	actor, ok := domain.ActorFromContext(ctx)
	if !ok {
		return nil, domain.Forbidden("caller identity required")
	}
	if in.Quantity <= 0 {
		return nil, domain.Validationf("quantity must be positive, got %d", in.Quantity)
	}

	day := domain.DateOf(p.now(), p.settings.Location)
	if in.Date != nil {
		day = domain.DateOf(*in.Date, time.UTC)
	}

	var entry *domain.ReplenishmentLog
	err := p.ledger.Run(ctx, func(tx repository.Tx) error {
		freq, err := tx.GetFrequency(ctx, in.StoreID, in.ProductID)
		if err != nil {
			return err
		}
		batch, err := tx.GetBatch(ctx, in.BatchID)
		if err != nil {
			return err
		}
		if batch.ProductID != in.ProductID {
			return domain.Validationf("batch %d does not belong to product %d", batch.ID, in.ProductID)
		}
		if batch.ExpirationDate == nil {
			return domain.Validationf("batch %d has no expiration date", batch.ID)
		}

		movement := &domain.StockMovement{
			ProductID:   in.ProductID,
			BatchID:     in.BatchID,
			Quantity:    in.Quantity,
			Origin:      domain.SupplierEndpoint(nil),
			Destination: domain.StoreEndpoint(in.StoreID),
			At:          p.now(),
			UserID:      &actor.UserID,
		}
		if err := ledger.MoveTx(ctx, tx, movement); err != nil {
			return err
		}

		updated := *freq
		updated.LastReplenishmentDate = &day
		if err := tx.UpsertFrequency(ctx, &updated); err != nil {
			return err
		}

		e := &domain.ReplenishmentLog{
			StoreID:        in.StoreID,
			ProductID:      in.ProductID,
			BatchID:        in.BatchID,
			ExpirationDate: *batch.ExpirationDate,
			Quantity:       in.Quantity,
			UserID:         actor.UserID,
			At:             movement.At,
		}
		if err := tx.CreateReplenishmentLog(ctx, e); err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("store_id", in.StoreID).
		Int64("product_id", in.ProductID).
		Int64("batch_id", in.BatchID).
		Int("quantity", in.Quantity).
		Msg("Replenishment recorded")

	return entry, nil
}
