package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
	"github.com/jmoiron/sqlx"
)

const batchStockSelect = `
	SELECT
		s.store_id, s.batch_id, b.batch_code, b.expiration_date,
		b.product_id, p.name AS product_name, p.unit_price,
		s.quantity, s.reorder_level
	FROM stock s
	JOIN batches b ON b.id = s.batch_id
	JOIN products p ON p.id = b.product_id
`

// queries implements repository.Queries over a pool or a transaction.
type queries struct {
	ext sqlx.ExtContext
}

func (q queries) get(ctx context.Context, dest any, notFound error, query string, args ...any) error {
	err := sqlx.GetContext(ctx, q.ext, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return translate(err)
}

func (q queries) selectAll(ctx context.Context, dest any, query string, args ...any) error {
	return translate(sqlx.SelectContext(ctx, q.ext, dest, query, args...))
}

func (q queries) GetStore(ctx context.Context, storeID int64) (*domain.Store, error) {
	var store domain.Store
	err := q.get(ctx, &store, domain.NotFound(domain.CodeUnknownStore, "store %d not found", storeID),
		`SELECT id, name, timezone FROM stores WHERE id = $1`, storeID)
	if err != nil {
		return nil, err
	}
	return &store, nil
}

func (q queries) ListStores(ctx context.Context) ([]domain.Store, error) {
	stores := []domain.Store{}
	if err := q.selectAll(ctx, &stores, `SELECT id, name, timezone FROM stores ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	return stores, nil
}

func (q queries) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	var product domain.Product
	err := q.get(ctx, &product, domain.NotFound(domain.CodeUnknownProduct, "product %d not found", productID),
		`SELECT id, name, unit_price, active FROM products WHERE id = $1`, productID)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (q queries) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products := []domain.Product{}
	if err := q.selectAll(ctx, &products, `SELECT id, name, unit_price, active FROM products ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (q queries) GetProductsByIDs(ctx context.Context, productIDs []int64) (map[int64]domain.Product, error) {
	result := make(map[int64]domain.Product, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`SELECT id, name, unit_price, active FROM products WHERE id IN (?)`, productIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build products query: %w", err)
	}

	var products []domain.Product
	if err := q.selectAll(ctx, &products, q.ext.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	for _, p := range products {
		result[p.ID] = p
	}
	return result, nil
}

func (q queries) GetBatch(ctx context.Context, batchID int64) (*domain.Batch, error) {
	var batch domain.Batch
	err := q.get(ctx, &batch, domain.NotFound(domain.CodeUnknownBatch, "batch %d not found", batchID),
		`SELECT id, product_id, batch_code, expiration_date FROM batches WHERE id = $1`, batchID)
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (q queries) ListBatches(ctx context.Context, productID *int64) ([]domain.Batch, error) {
	batches := []domain.Batch{}
	query := `SELECT id, product_id, batch_code, expiration_date FROM batches`
	args := []any{}
	if productID != nil {
		query += ` WHERE product_id = $1`
		args = append(args, *productID)
	}
	query += ` ORDER BY id`

	if err := q.selectAll(ctx, &batches, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	return batches, nil
}

func (q queries) CountBatches(ctx context.Context, productID int64) (int, error) {
	var count int
	if err := q.get(ctx, &count, nil, `SELECT COUNT(*) FROM batches WHERE product_id = $1`, productID); err != nil {
		return 0, fmt.Errorf("failed to count batches: %w", err)
	}
	return count, nil
}

func (q queries) BatchHasStock(ctx context.Context, batchID int64) (bool, error) {
	var exists bool
	err := q.get(ctx, &exists, nil,
		`SELECT EXISTS (SELECT 1 FROM stock WHERE batch_id = $1 AND quantity > 0)`, batchID)
	if err != nil {
		return false, fmt.Errorf("failed to check batch stock: %w", err)
	}
	return exists, nil
}

func (q queries) BatchHasSales(ctx context.Context, batchID int64) (bool, error) {
	var exists bool
	err := q.get(ctx, &exists, nil, `SELECT EXISTS (SELECT 1 FROM sale_lines WHERE batch_id = $1)`, batchID)
	if err != nil {
		return false, fmt.Errorf("failed to check batch sales: %w", err)
	}
	return exists, nil
}

func (q queries) GetStockEntry(ctx context.Context, storeID, batchID int64) (*domain.StockEntry, error) {
	return q.getStockEntry(ctx, storeID, batchID, "")
}

func (q queries) getStockEntry(ctx context.Context, storeID, batchID int64, suffix string) (*domain.StockEntry, error) {
	var entry domain.StockEntry
	err := q.get(ctx, &entry,
		domain.NotFound(domain.CodeUnknownBatch, "no stock entry for batch %d at store %d", batchID, storeID),
		`SELECT store_id, batch_id, quantity, reorder_level FROM stock
		 WHERE store_id = $1 AND batch_id = $2`+suffix, storeID, batchID)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (q queries) ListCandidates(ctx context.Context, storeID, productID int64) ([]domain.BatchStock, error) {
	return q.listCandidates(ctx, storeID, productID, "")
}

func (q queries) listCandidates(ctx context.Context, storeID, productID int64, suffix string) ([]domain.BatchStock, error) {
	rows := []domain.BatchStock{}
	query := batchStockSelect + ` WHERE s.store_id = $1 AND b.product_id = $2 AND s.quantity > 0` + suffix
	if err := q.selectAll(ctx, &rows, query, storeID, productID); err != nil {
		return nil, fmt.Errorf("failed to list candidate batches: %w", err)
	}
	return rows, nil
}

func (q queries) ListStoreStock(ctx context.Context, storeID int64) ([]domain.BatchStock, error) {
	rows := []domain.BatchStock{}
	query := batchStockSelect + ` WHERE s.store_id = $1 ORDER BY s.batch_id`
	if err := q.selectAll(ctx, &rows, query, storeID); err != nil {
		return nil, fmt.Errorf("failed to list store stock: %w", err)
	}
	return rows, nil
}

func (q queries) ListAllStock(ctx context.Context) ([]domain.BatchStock, error) {
	rows := []domain.BatchStock{}
	if err := q.selectAll(ctx, &rows, batchStockSelect+` ORDER BY s.store_id, s.batch_id`); err != nil {
		return nil, fmt.Errorf("failed to list stock: %w", err)
	}
	return rows, nil
}

func (q queries) ProductStockByStore(ctx context.Context, storeID int64) ([]domain.ProductStock, error) {
	rows := []domain.ProductStock{}
	query := `
		SELECT
			b.product_id,
			p.name AS product_name,
			COALESCE(SUM(s.quantity), 0) AS total_quantity,
			COALESCE(MAX(s.reorder_level), 0) AS reorder_level
		FROM stock s
		JOIN batches b ON b.id = s.batch_id
		JOIN products p ON p.id = b.product_id
		WHERE s.store_id = $1
		GROUP BY b.product_id, p.name
		ORDER BY p.name
	`
	if err := q.selectAll(ctx, &rows, query, storeID); err != nil {
		return nil, fmt.Errorf("failed to aggregate product stock: %w", err)
	}
	return rows, nil
}

type movementRow struct {
	domain.StockMovement
	OriginType      string `db:"origin_type"`
	OriginID        *int64 `db:"origin_id"`
	DestinationType string `db:"destination_type"`
	DestinationID   *int64 `db:"destination_id"`
}

func (q queries) ListMovements(ctx context.Context, productID int64) ([]domain.StockMovement, error) {
	var rows []movementRow
	query := `
		SELECT id, product_id, batch_id, quantity, origin_type, origin_id,
			destination_type, destination_id, moved_at, user_id
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY moved_at DESC, id DESC
	`
	if err := q.selectAll(ctx, &rows, query, productID); err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}

	movements := make([]domain.StockMovement, len(rows))
	for i, row := range rows {
		m := row.StockMovement
		m.Origin = domain.Endpoint{Kind: domain.EndpointKind(row.OriginType), ID: row.OriginID}
		m.Destination = domain.Endpoint{Kind: domain.EndpointKind(row.DestinationType), ID: row.DestinationID}
		movements[i] = m
	}
	return movements, nil
}

const dailySalesSelect = `
	SELECT
		b.product_id,
		(s.sold_at AT TIME ZONE $1)::date AS day,
		SUM(l.quantity) AS quantity
	FROM sale_lines l
	JOIN sales s ON s.id = l.sale_id
	JOIN batches b ON b.id = l.batch_id
	WHERE s.store_id = $2
`

func (q queries) DailySales(ctx context.Context, storeID, productID int64, loc *time.Location) ([]domain.DailySales, error) {
	rows := []domain.DailySales{}
	query := dailySalesSelect + ` AND b.product_id = $3 GROUP BY b.product_id, day ORDER BY day`
	if err := q.selectAll(ctx, &rows, query, zoneName(loc), storeID, productID); err != nil {
		return nil, fmt.Errorf("failed to load daily sales: %w", err)
	}
	return rows, nil
}

func (q queries) DailySalesByStore(ctx context.Context, storeID int64, loc *time.Location) ([]domain.DailySales, error) {
	rows := []domain.DailySales{}
	query := dailySalesSelect + ` GROUP BY b.product_id, day ORDER BY b.product_id, day`
	if err := q.selectAll(ctx, &rows, query, zoneName(loc), storeID); err != nil {
		return nil, fmt.Errorf("failed to load daily sales: %w", err)
	}
	return rows, nil
}

func zoneName(loc *time.Location) string {
	if loc == nil || loc.String() == "Local" {
		return "UTC"
	}
	return loc.String()
}

func (q queries) ListSaleLines(ctx context.Context, saleID int64) ([]domain.SaleLine, error) {
	lines := []domain.SaleLine{}
	query := `SELECT id, sale_id, batch_id, quantity, subtotal FROM sale_lines WHERE sale_id = $1 ORDER BY id`
	if err := q.selectAll(ctx, &lines, query, saleID); err != nil {
		return nil, fmt.Errorf("failed to list sale lines: %w", err)
	}
	return lines, nil
}

func (q queries) GetFrequency(ctx context.Context, storeID, productID int64) (*domain.ReplenishmentFrequency, error) {
	var freq domain.ReplenishmentFrequency
	err := q.get(ctx, &freq,
		domain.NotFound("", "replenishment frequency not found for product %d at store %d", productID, storeID),
		`SELECT store_id, product_id, frequency_days, last_replenishment_date
		 FROM replenishment_frequencies WHERE store_id = $1 AND product_id = $2`, storeID, productID)
	if err != nil {
		return nil, err
	}
	return &freq, nil
}

func (q queries) ListFrequencies(ctx context.Context, storeID, productID *int64) ([]domain.ReplenishmentFrequency, error) {
	var (
		where []string
		args  []any
	)
	if storeID != nil {
		args = append(args, *storeID)
		where = append(where, fmt.Sprintf("store_id = $%d", len(args)))
	}
	if productID != nil {
		args = append(args, *productID)
		where = append(where, fmt.Sprintf("product_id = $%d", len(args)))
	}

	query := `SELECT store_id, product_id, frequency_days, last_replenishment_date FROM replenishment_frequencies`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY store_id, product_id"

	result := []domain.ReplenishmentFrequency{}
	if err := q.selectAll(ctx, &result, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list replenishment frequencies: %w", err)
	}
	return result, nil
}

func (q queries) ListReplenishmentLogs(ctx context.Context, storeID, productID int64) ([]domain.ReplenishmentLog, error) {
	logs := []domain.ReplenishmentLog{}
	query := `
		SELECT id, store_id, product_id, batch_id, expiration_date, quantity, user_id, logged_at
		FROM replenishment_logs
		WHERE store_id = $1 AND product_id = $2
		ORDER BY logged_at DESC, id DESC
	`
	if err := q.selectAll(ctx, &logs, query, storeID, productID); err != nil {
		return nil, fmt.Errorf("failed to list replenishment logs: %w", err)
	}
	return logs, nil
}

const listSelect = `SELECT id, store_id, list_date, status, created_at, notes FROM replenishment_lists`

func (q queries) GetList(ctx context.Context, listID int64) (*domain.ReplenishmentList, error) {
	return q.getList(ctx, listID, "")
}

func (q queries) getList(ctx context.Context, listID int64, suffix string) (*domain.ReplenishmentList, error) {
	var list domain.ReplenishmentList
	err := q.get(ctx, &list, domain.NotFound(domain.CodeUnknownList, "replenishment list %d not found", listID),
		listSelect+` WHERE id = $1`+suffix, listID)
	if err != nil {
		return nil, err
	}
	return &list, nil
}

func (q queries) GetListByDate(ctx context.Context, storeID int64, listDate time.Time) (*domain.ReplenishmentList, error) {
	var list domain.ReplenishmentList
	day := domain.DateOf(listDate, time.UTC)
	err := q.get(ctx, &list,
		domain.NotFound(domain.CodeUnknownList, "replenishment list not found for store %d on %s",
			storeID, day.Format(domain.DateLayout)),
		listSelect+` WHERE store_id = $1 AND list_date = $2`, storeID, day.Format(domain.DateLayout))
	if err != nil {
		return nil, err
	}
	return &list, nil
}

func (q queries) ListLists(ctx context.Context, filter domain.ListFilter) ([]domain.ReplenishmentList, error) {
	var (
		where []string
		args  []any
	)
	if filter.StoreID != nil {
		args = append(args, *filter.StoreID)
		where = append(where, fmt.Sprintf("store_id = $%d", len(args)))
	}
	if filter.ListDate != nil {
		args = append(args, filter.ListDate.Format(domain.DateLayout))
		where = append(where, fmt.Sprintf("list_date = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := listSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY list_date DESC, id"

	lists := []domain.ReplenishmentList{}
	if err := q.selectAll(ctx, &lists, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list replenishment lists: %w", err)
	}
	return lists, nil
}

func (q queries) ListItems(ctx context.Context, listID int64) ([]domain.ReplenishmentListItem, error) {
	items := []domain.ReplenishmentListItem{}
	query := `
		SELECT i.id, i.list_id, i.product_id, p.name AS product_name, i.quantity,
			i.current_stock, i.reason, i.priority, i.notes
		FROM replenishment_list_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.list_id = $1
		ORDER BY i.id
	`
	if err := q.selectAll(ctx, &items, query, listID); err != nil {
		return nil, fmt.Errorf("failed to list replenishment list items: %w", err)
	}
	return items, nil
}
