// Package ledger owns every change to on-hand quantity per (store, batch).
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
	"github.com/andresuchdata/freshstock/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
)

const defaultMaxRetries = 3

type Settings struct {
	// MaxRetries is how many times a unit of work is re-run after a
	// concurrency failure before the error is returned.
	MaxRetries   int
	RetryBackoff time.Duration
}

type Ledger struct {
	repo     repository.Repository
	settings Settings
	now      func() time.Time
}

func New(repo repository.Repository, settings Settings) *Ledger {
	if settings.MaxRetries < 0 {
		settings.MaxRetries = defaultMaxRetries
	}
	return &Ledger{repo: repo, settings: settings, now: time.Now}
}

// Run executes fn as one transaction and retries it on concurrency failures.
// fn must be safe to re-run from scratch.
func (l *Ledger) Run(ctx context.Context, fn func(tx repository.Tx) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = l.repo.WithTx(ctx, fn)
		if err == nil || !errors.Is(err, domain.ErrConcurrency) || attempt >= l.settings.MaxRetries {
			return err
		}

		backoff := l.settings.RetryBackoff * time.Duration(attempt+1)
		log.Warn().Err(err).Int("attempt", attempt+1).Dur("backoff", backoff).Msg("Retrying ledger transaction")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// Decrement lowers the quantity of one entry.
func (l *Ledger) Decrement(ctx context.Context, storeID, batchID int64, amount int) (int, error) {
	if err := validateAmount(amount); err != nil {
		return 0, err
	}

	var qty int
	err := l.Run(ctx, func(tx repository.Tx) error {
		var err error
		qty, err = DecrementTx(ctx, tx, storeID, batchID, amount)
		return err
	})
	return qty, err
}

// Increment raises the quantity of one entry, creating it when missing.
func (l *Ledger) Increment(ctx context.Context, storeID, batchID int64, amount int) (int, error) {
	if err := validateAmount(amount); err != nil {
		return 0, err
	}

	var qty int
	err := l.Run(ctx, func(tx repository.Tx) error {
		var err error
		qty, err = IncrementTx(ctx, tx, storeID, batchID, amount)
		return err
	})
	return qty, err
}

// DecrementTx is Decrement inside a caller-owned transaction.
func DecrementTx(ctx context.Context, tx repository.Tx, storeID, batchID int64, amount int) (int, error) {
	if err := validateAmount(amount); err != nil {
		return 0, err
	}
	if _, err := tx.LockStockEntry(ctx, storeID, batchID); err != nil {
		return 0, err
	}
	return tx.DecrementStock(ctx, storeID, batchID, amount)
}

// IncrementTx is Increment inside a caller-owned transaction.
func IncrementTx(ctx context.Context, tx repository.Tx, storeID, batchID int64, amount int) (int, error) {
	if err := validateAmount(amount); err != nil {
		return 0, err
	}
	if _, err := tx.GetStore(ctx, storeID); err != nil {
		return 0, err
	}
	if _, err := tx.GetBatch(ctx, batchID); err != nil {
		return 0, err
	}
	return tx.IncrementStock(ctx, storeID, batchID, amount)
}

// CreateEntry records stock for a batch at a store for the first time.
func (l *Ledger) CreateEntry(ctx context.Context, entry domain.StockEntry) (*domain.StockEntry, error) {
	if entry.Quantity < 0 {
		return nil, domain.Validationf("quantity must not be negative")
	}
	if entry.ReorderLevel < 0 {
		return nil, domain.Validationf("reorder level must not be negative")
	}

	err := l.Run(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetStore(ctx, entry.StoreID); err != nil {
			return err
		}
		if _, err := tx.GetBatch(ctx, entry.BatchID); err != nil {
			return err
		}
		return tx.CreateStockEntry(ctx, &entry)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// UpdateReorderLevel changes the reorder level of an existing entry.
func (l *Ledger) UpdateReorderLevel(ctx context.Context, storeID, batchID int64, reorderLevel int) (*domain.StockEntry, error) {
	if reorderLevel < 0 {
		return nil, domain.Validationf("reorder level must not be negative")
	}

	var entry *domain.StockEntry
	err := l.Run(ctx, func(tx repository.Tx) error {
		if _, err := tx.LockStockEntry(ctx, storeID, batchID); err != nil {
			return err
		}
		if err := tx.UpdateReorderLevel(ctx, storeID, batchID, reorderLevel); err != nil {
			return err
		}
		var err error
		entry, err = tx.GetStockEntry(ctx, storeID, batchID)
		return err
	})
	return entry, err
}

// Entries lists every stock entry at a store joined with batch and product.
func (l *Ledger) Entries(ctx context.Context, storeID int64) ([]domain.BatchStock, error) {
	if _, err := l.repo.GetStore(ctx, storeID); err != nil {
		return nil, err
	}
	return l.repo.ListStoreStock(ctx, storeID)
}

func validateAmount(amount int) error {
	if amount <= 0 {
		return domain.Validationf("amount must be positive, got %d", amount)
	}
	return nil
}
