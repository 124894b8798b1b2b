package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
	"github.com/andresuchdata/freshstock/backend-go/internal/repository"
	"github.com/shopspring/decimal"
)

// The Must helpers write fixtures straight into storage, bypassing engine
// rules. They panic on failure and are meant for tests and demo data.

func (r *Repository) must(fn func(tx repository.Tx) error) {
	if err := r.WithTx(context.Background(), fn); err != nil {
		panic(fmt.Sprintf("memory fixture: %v", err))
	}
}

func (r *Repository) MustStore(name string) domain.Store {
	store := domain.Store{Name: name}
	r.must(func(tx repository.Tx) error { return tx.UpsertStore(context.Background(), &store) })
	return store
}

func (r *Repository) MustProduct(name, unitPrice string) domain.Product {
	product := domain.Product{Name: name, UnitPrice: decimal.RequireFromString(unitPrice), Active: true}
	r.must(func(tx repository.Tx) error { return tx.UpsertProduct(context.Background(), &product) })
	return product
}

func (r *Repository) MustBatch(productID int64, code string, expiration *time.Time) domain.Batch {
	batch := domain.Batch{ProductID: productID, Code: code, ExpirationDate: expiration}
	r.must(func(tx repository.Tx) error { return tx.CreateBatch(context.Background(), &batch) })
	return batch
}

func (r *Repository) MustStock(storeID, batchID int64, quantity, reorderLevel int) {
	r.must(func(tx repository.Tx) error {
		return tx.CreateStockEntry(context.Background(), &domain.StockEntry{
			StoreID:      storeID,
			BatchID:      batchID,
			Quantity:     quantity,
			ReorderLevel: reorderLevel,
		})
	})
}

// MustSale records a historical sale of quantity units from one batch.
func (r *Repository) MustSale(storeID, batchID int64, quantity int, soldAt time.Time) {
	r.must(func(tx repository.Tx) error {
		ctx := context.Background()
		sale := domain.Sale{StoreID: storeID, SoldAt: soldAt, TotalAmount: decimal.Zero}
		if err := tx.CreateSale(ctx, &sale); err != nil {
			return err
		}
		return tx.CreateSaleLines(ctx, []domain.SaleLine{{
			SaleID:   sale.ID,
			BatchID:  batchID,
			Quantity: quantity,
			Subtotal: decimal.Zero,
		}})
	})
}

func (r *Repository) MustFrequency(storeID, productID int64, days int, last *time.Time) {
	r.must(func(tx repository.Tx) error {
		return tx.UpsertFrequency(context.Background(), &domain.ReplenishmentFrequency{
			StoreID:               storeID,
			ProductID:             productID,
			FrequencyDays:         days,
			LastReplenishmentDate: last,
		})
	})
}

// Quantity returns the on-hand quantity of a (store, batch) entry, or -1
// when the entry does not exist.
func (r *Repository) Quantity(storeID, batchID int64) int {
	entry, err := r.GetStockEntry(context.Background(), storeID, batchID)
	if err != nil {
		return -1
	}
	return entry.Quantity
}
