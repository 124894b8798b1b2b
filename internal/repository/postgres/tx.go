package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
)

const forUpdate = ` FOR UPDATE`

// txQueries implements repository.Tx on top of an open transaction.
type txQueries struct {
	queries
}

func (t txQueries) LockCandidates(ctx context.Context, storeID, productID int64) ([]domain.BatchStock, error) {
	return t.listCandidates(ctx, storeID, productID, ` FOR UPDATE OF s`)
}

func (t txQueries) LockStockEntry(ctx context.Context, storeID, batchID int64) (*domain.StockEntry, error) {
	return t.getStockEntry(ctx, storeID, batchID, forUpdate)
}

func (t txQueries) DecrementStock(ctx context.Context, storeID, batchID int64, amount int) (int, error) {
	var qty int
	err := t.ext.QueryRowxContext(ctx, `
		UPDATE stock SET quantity = quantity - $3
		WHERE store_id = $1 AND batch_id = $2 AND quantity >= $3
		RETURNING quantity
	`, storeID, batchID, amount).Scan(&qty)
	if err == nil {
		return qty, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to decrement stock: %w", translate(err))
	}

	// The guard rejected the update; report what is actually there.
	entry, err := t.GetStockEntry(ctx, storeID, batchID)
	if err != nil {
		return 0, err
	}
	batch, err := t.GetBatch(ctx, batchID)
	if err != nil {
		return 0, err
	}
	return 0, &domain.InsufficientStockError{
		StoreID:   storeID,
		ProductID: batch.ProductID,
		BatchID:   batchID,
		Requested: amount,
		Available: entry.Quantity,
	}
}

func (t txQueries) IncrementStock(ctx context.Context, storeID, batchID int64, amount int) (int, error) {
	var qty int
	err := t.ext.QueryRowxContext(ctx, `
		INSERT INTO stock (store_id, batch_id, quantity, reorder_level)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (store_id, batch_id)
		DO UPDATE SET quantity = stock.quantity + EXCLUDED.quantity
		RETURNING quantity
	`, storeID, batchID, amount, domain.DefaultReorderLevel).Scan(&qty)
	if err != nil {
		return 0, fmt.Errorf("failed to increment stock: %w", translate(err))
	}
	return qty, nil
}

func (t txQueries) CreateStockEntry(ctx context.Context, entry *domain.StockEntry) error {
	res, err := t.ext.ExecContext(ctx, `
		INSERT INTO stock (store_id, batch_id, quantity, reorder_level)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (store_id, batch_id) DO NOTHING
	`, entry.StoreID, entry.BatchID, entry.Quantity, entry.ReorderLevel)
	if err != nil {
		return fmt.Errorf("failed to create stock entry: %w", translate(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Conflict(domain.CodeDuplicateEntry, "stock entry for batch %d at store %d already exists",
			entry.BatchID, entry.StoreID)
	}
	return nil
}

func (t txQueries) UpdateReorderLevel(ctx context.Context, storeID, batchID int64, reorderLevel int) error {
	res, err := t.ext.ExecContext(ctx,
		`UPDATE stock SET reorder_level = $3 WHERE store_id = $1 AND batch_id = $2`,
		storeID, batchID, reorderLevel)
	if err != nil {
		return fmt.Errorf("failed to update reorder level: %w", translate(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound(domain.CodeUnknownBatch, "no stock entry for batch %d at store %d", batchID, storeID)
	}
	return nil
}

func (t txQueries) UpsertStore(ctx context.Context, store *domain.Store) error {
	err := t.ext.QueryRowxContext(ctx, `
		INSERT INTO stores (name, timezone, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name)
		DO UPDATE SET timezone = EXCLUDED.timezone, updated_at = NOW()
		RETURNING id
	`, store.Name, store.Timezone).Scan(&store.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert store: %w", translate(err))
	}
	return nil
}

func (t txQueries) UpsertProduct(ctx context.Context, product *domain.Product) error {
	err := t.ext.QueryRowxContext(ctx, `
		INSERT INTO products (name, unit_price, active, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (name)
		DO UPDATE SET
			unit_price = EXCLUDED.unit_price,
			active = EXCLUDED.active,
			updated_at = NOW()
		RETURNING id
	`, product.Name, product.UnitPrice, product.Active).Scan(&product.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert product: %w", translate(err))
	}
	return nil
}

func (t txQueries) CreateBatch(ctx context.Context, batch *domain.Batch) error {
	err := t.ext.QueryRowxContext(ctx, `
		INSERT INTO batches (product_id, batch_code, expiration_date)
		VALUES ($1, $2, $3)
		RETURNING id
	`, batch.ProductID, batch.Code, batch.ExpirationDate).Scan(&batch.ID)
	if err != nil {
		return fmt.Errorf("failed to create batch: %w", translate(err))
	}
	return nil
}

func (t txQueries) UpdateBatch(ctx context.Context, batch *domain.Batch) error {
	res, err := t.ext.ExecContext(ctx,
		`UPDATE batches SET batch_code = $2, expiration_date = $3 WHERE id = $1`,
		batch.ID, batch.Code, batch.ExpirationDate)
	if err != nil {
		return fmt.Errorf("failed to update batch: %w", translate(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound(domain.CodeUnknownBatch, "batch %d not found", batch.ID)
	}
	return nil
}

func (t txQueries) DeleteBatch(ctx context.Context, batchID int64) error {
	res, err := t.ext.ExecContext(ctx, `DELETE FROM batches WHERE id = $1`, batchID)
	if err != nil {
		return fmt.Errorf("failed to delete batch: %w", translate(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound(domain.CodeUnknownBatch, "batch %d not found", batchID)
	}
	return nil
}

func (t txQueries) CreateSale(ctx context.Context, sale *domain.Sale) error {
	err := t.ext.QueryRowxContext(ctx,
		`INSERT INTO sales (store_id, sold_at, total_amount) VALUES ($1, $2, $3) RETURNING id`,
		sale.StoreID, sale.SoldAt, sale.TotalAmount).Scan(&sale.ID)
	if err != nil {
		return fmt.Errorf("failed to create sale: %w", translate(err))
	}
	return nil
}

func (t txQueries) CreateSaleLines(ctx context.Context, lines []domain.SaleLine) error {
	for i := range lines {
		line := &lines[i]
		err := t.ext.QueryRowxContext(ctx, `
			INSERT INTO sale_lines (sale_id, batch_id, quantity, subtotal)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, line.SaleID, line.BatchID, line.Quantity, line.Subtotal).Scan(&line.ID)
		if err != nil {
			return fmt.Errorf("failed to create sale line: %w", translate(err))
		}
	}
	return nil
}

func (t txQueries) CreateMovement(ctx context.Context, movement *domain.StockMovement) error {
	err := t.ext.QueryRowxContext(ctx, `
		INSERT INTO stock_movements (
			product_id, batch_id, quantity, origin_type, origin_id,
			destination_type, destination_id, moved_at, user_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`,
		movement.ProductID,
		movement.BatchID,
		movement.Quantity,
		string(movement.Origin.Kind),
		movement.Origin.ID,
		string(movement.Destination.Kind),
		movement.Destination.ID,
		movement.At,
		movement.UserID,
	).Scan(&movement.ID)
	if err != nil {
		return fmt.Errorf("failed to record stock movement: %w", translate(err))
	}
	return nil
}

func (t txQueries) UpsertFrequency(ctx context.Context, freq *domain.ReplenishmentFrequency) error {
	err := t.ext.QueryRowxContext(ctx, `
		INSERT INTO replenishment_frequencies (store_id, product_id, frequency_days, last_replenishment_date)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (store_id, product_id)
		DO UPDATE SET
			frequency_days = EXCLUDED.frequency_days,
			last_replenishment_date = COALESCE(EXCLUDED.last_replenishment_date, replenishment_frequencies.last_replenishment_date)
		RETURNING last_replenishment_date
	`, freq.StoreID, freq.ProductID, freq.FrequencyDays, freq.LastReplenishmentDate).Scan(&freq.LastReplenishmentDate)
	if err != nil {
		return fmt.Errorf("failed to upsert replenishment frequency: %w", translate(err))
	}
	return nil
}

func (t txQueries) DeleteFrequency(ctx context.Context, storeID, productID int64) error {
	res, err := t.ext.ExecContext(ctx,
		`DELETE FROM replenishment_frequencies WHERE store_id = $1 AND product_id = $2`, storeID, productID)
	if err != nil {
		return fmt.Errorf("failed to delete replenishment frequency: %w", translate(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("", "replenishment frequency not found for product %d at store %d", productID, storeID)
	}
	return nil
}

func (t txQueries) CreateReplenishmentLog(ctx context.Context, entry *domain.ReplenishmentLog) error {
	err := t.ext.QueryRowxContext(ctx, `
		INSERT INTO replenishment_logs (store_id, product_id, batch_id, expiration_date, quantity, user_id, logged_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, entry.StoreID, entry.ProductID, entry.BatchID, entry.ExpirationDate, entry.Quantity, entry.UserID, entry.At).
		Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to create replenishment log: %w", translate(err))
	}
	return nil
}

func (t txQueries) CreateList(ctx context.Context, list *domain.ReplenishmentList) error {
	err := t.ext.QueryRowxContext(ctx, `
		INSERT INTO replenishment_lists (store_id, list_date, status, created_at, notes)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (store_id, list_date) DO NOTHING
		RETURNING id
	`, list.StoreID, list.ListDate.Format(domain.DateLayout), string(list.Status), list.CreatedAt, list.Notes).Scan(&list.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Conflict(domain.CodeDuplicateList, "replenishment list already exists for store %d on %s",
			list.StoreID, list.ListDate.Format(domain.DateLayout))
	}
	if err != nil {
		return fmt.Errorf("failed to create replenishment list: %w", translate(err))
	}
	return nil
}

func (t txQueries) LockList(ctx context.Context, listID int64) (*domain.ReplenishmentList, error) {
	return t.getList(ctx, listID, forUpdate)
}

func (t txQueries) UpdateList(ctx context.Context, list *domain.ReplenishmentList) error {
	res, err := t.ext.ExecContext(ctx,
		`UPDATE replenishment_lists SET status = $2, notes = $3 WHERE id = $1`,
		list.ID, string(list.Status), list.Notes)
	if err != nil {
		return fmt.Errorf("failed to update replenishment list: %w", translate(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound(domain.CodeUnknownList, "replenishment list %d not found", list.ID)
	}
	return nil
}

func (t txQueries) DeleteList(ctx context.Context, listID int64) error {
	res, err := t.ext.ExecContext(ctx, `DELETE FROM replenishment_lists WHERE id = $1`, listID)
	if err != nil {
		return fmt.Errorf("failed to delete replenishment list: %w", translate(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound(domain.CodeUnknownList, "replenishment list %d not found", listID)
	}
	return nil
}

func (t txQueries) CreateListItems(ctx context.Context, items []domain.ReplenishmentListItem) error {
	for i := range items {
		item := &items[i]
		err := t.ext.QueryRowxContext(ctx, `
			INSERT INTO replenishment_list_items (
				list_id, product_id, quantity, current_stock, reason, priority, notes
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`,
			item.ListID,
			item.ProductID,
			item.Quantity,
			item.CurrentStock,
			item.Reason,
			string(item.Priority),
			item.Notes,
		).Scan(&item.ID)
		if code, _ := sqlState(err); code == sqlStateUniqueViolation {
			return domain.Conflict("", "product %d is already on list %d", item.ProductID, item.ListID)
		}
		if err != nil {
			return fmt.Errorf("failed to create replenishment list item: %w", translate(err))
		}
	}
	return nil
}

func (t txQueries) UpdateListItem(ctx context.Context, item *domain.ReplenishmentListItem) error {
	err := t.ext.QueryRowxContext(ctx, `
		UPDATE replenishment_list_items
		SET quantity = $3, reason = $4, priority = $5, notes = $6
		WHERE list_id = $1 AND product_id = $2
		RETURNING id
	`, item.ListID, item.ProductID, item.Quantity, item.Reason, string(item.Priority), item.Notes).Scan(&item.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound("", "product %d is not on list %d", item.ProductID, item.ListID)
	}
	if err != nil {
		return fmt.Errorf("failed to update replenishment list item: %w", translate(err))
	}
	return nil
}

func (t txQueries) DeleteListItem(ctx context.Context, listID, productID int64) error {
	res, err := t.ext.ExecContext(ctx,
		`DELETE FROM replenishment_list_items WHERE list_id = $1 AND product_id = $2`, listID, productID)
	if err != nil {
		return fmt.Errorf("failed to delete replenishment list item: %w", translate(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("", "product %d is not on list %d", productID, listID)
	}
	return nil
}
