package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
)

func (s *state) GetStore(_ context.Context, storeID int64) (*domain.Store, error) {
	store, ok := s.stores[storeID]
	if !ok {
		return nil, domain.NotFound(domain.CodeUnknownStore, "store %d not found", storeID)
	}
	return &store, nil
}

func (s *state) ListStores(_ context.Context) ([]domain.Store, error) {
	stores := make([]domain.Store, 0, len(s.stores))
	for _, store := range s.stores {
		stores = append(stores, store)
	}
	sort.Slice(stores, func(i, j int) bool { return stores[i].ID < stores[j].ID })
	return stores, nil
}

func (s *state) GetProduct(_ context.Context, productID int64) (*domain.Product, error) {
	product, ok := s.products[productID]
	if !ok {
		return nil, domain.NotFound(domain.CodeUnknownProduct, "product %d not found", productID)
	}
	return &product, nil
}

func (s *state) GetProductsByIDs(_ context.Context, productIDs []int64) (map[int64]domain.Product, error) {
	result := make(map[int64]domain.Product, len(productIDs))
	for _, id := range productIDs {
		if product, ok := s.products[id]; ok {
			result[id] = product
		}
	}
	return result, nil
}

func (s *state) ListProducts(_ context.Context) ([]domain.Product, error) {
	products := make([]domain.Product, 0, len(s.products))
	for _, product := range s.products {
		products = append(products, product)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (s *state) GetBatch(_ context.Context, batchID int64) (*domain.Batch, error) {
	batch, ok := s.batches[batchID]
	if !ok {
		return nil, domain.NotFound(domain.CodeUnknownBatch, "batch %d not found", batchID)
	}
	return &batch, nil
}

func (s *state) ListBatches(_ context.Context, productID *int64) ([]domain.Batch, error) {
	batches := make([]domain.Batch, 0)
	for _, batch := range s.batches {
		if productID != nil && batch.ProductID != *productID {
			continue
		}
		batches = append(batches, batch)
	}
	sort.Slice(batches, func(i, j int) bool { return batches[i].ID < batches[j].ID })
	return batches, nil
}

func (s *state) CountBatches(_ context.Context, productID int64) (int, error) {
	count := 0
	for _, batch := range s.batches {
		if batch.ProductID == productID {
			count++
		}
	}
	return count, nil
}

func (s *state) BatchHasStock(_ context.Context, batchID int64) (bool, error) {
	for key, entry := range s.stock {
		if key.batchID == batchID && entry.Quantity > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (s *state) BatchHasSales(_ context.Context, batchID int64) (bool, error) {
	for _, line := range s.saleLines {
		if line.BatchID == batchID {
			return true, nil
		}
	}
	return false, nil
}

func (s *state) GetStockEntry(_ context.Context, storeID, batchID int64) (*domain.StockEntry, error) {
	entry, ok := s.stock[stockKey{storeID, batchID}]
	if !ok {
		return nil, domain.NotFound(domain.CodeUnknownBatch, "no stock entry for batch %d at store %d", batchID, storeID)
	}
	return &entry, nil
}

func (s *state) joinStock(entry domain.StockEntry) (domain.BatchStock, bool) {
	batch, ok := s.batches[entry.BatchID]
	if !ok {
		return domain.BatchStock{}, false
	}
	product := s.products[batch.ProductID]
	return domain.BatchStock{
		StoreID:        entry.StoreID,
		BatchID:        batch.ID,
		BatchCode:      batch.Code,
		ExpirationDate: batch.ExpirationDate,
		ProductID:      product.ID,
		ProductName:    product.Name,
		UnitPrice:      product.UnitPrice,
		Quantity:       entry.Quantity,
		ReorderLevel:   entry.ReorderLevel,
	}, true
}

func (s *state) selectStock(keep func(domain.BatchStock) bool) []domain.BatchStock {
	rows := make([]domain.BatchStock, 0)
	for _, entry := range s.stock {
		row, ok := s.joinStock(entry)
		if !ok || !keep(row) {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].StoreID != rows[j].StoreID {
			return rows[i].StoreID < rows[j].StoreID
		}
		return rows[i].BatchID < rows[j].BatchID
	})
	return rows
}

func (s *state) ListCandidates(_ context.Context, storeID, productID int64) ([]domain.BatchStock, error) {
	return s.selectStock(func(row domain.BatchStock) bool {
		return row.StoreID == storeID && row.ProductID == productID && row.Quantity > 0
	}), nil
}

func (s *state) ListStoreStock(_ context.Context, storeID int64) ([]domain.BatchStock, error) {
	return s.selectStock(func(row domain.BatchStock) bool { return row.StoreID == storeID }), nil
}

func (s *state) ListAllStock(_ context.Context) ([]domain.BatchStock, error) {
	return s.selectStock(func(domain.BatchStock) bool { return true }), nil
}

func (s *state) ProductStockByStore(ctx context.Context, storeID int64) ([]domain.ProductStock, error) {
	rows, _ := s.ListStoreStock(ctx, storeID)

	byProduct := make(map[int64]*domain.ProductStock)
	for _, row := range rows {
		agg, ok := byProduct[row.ProductID]
		if !ok {
			agg = &domain.ProductStock{ProductID: row.ProductID, ProductName: row.ProductName}
			byProduct[row.ProductID] = agg
		}
		agg.TotalQuantity += row.Quantity
		agg.ReorderLevel = max(agg.ReorderLevel, row.ReorderLevel)
	}

	result := make([]domain.ProductStock, 0, len(byProduct))
	for _, agg := range byProduct {
		result = append(result, *agg)
	}
	sort.Slice(result, func(i, j int) bool {
		return strings.Compare(result[i].ProductName, result[j].ProductName) < 0
	})
	return result, nil
}

func (s *state) ListMovements(_ context.Context, productID int64) ([]domain.StockMovement, error) {
	movements := make([]domain.StockMovement, 0)
	for i := len(s.movements) - 1; i >= 0; i-- {
		if s.movements[i].ProductID == productID {
			movements = append(movements, s.movements[i])
		}
	}
	return movements, nil
}

func (s *state) dailySales(storeID int64, loc *time.Location, keep func(productID int64) bool) []domain.DailySales {
	type dayKey struct {
		productID int64
		day       time.Time
	}
	totals := make(map[dayKey]int)
	for _, line := range s.saleLines {
		sale := s.sales[line.SaleID]
		if sale.StoreID != storeID {
			continue
		}
		batch, ok := s.batches[line.BatchID]
		if !ok || !keep(batch.ProductID) {
			continue
		}
		totals[dayKey{batch.ProductID, domain.DateOf(sale.SoldAt, loc)}] += line.Quantity
	}

	result := make([]domain.DailySales, 0, len(totals))
	for key, qty := range totals {
		result = append(result, domain.DailySales{ProductID: key.productID, Day: key.day, Quantity: qty})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ProductID != result[j].ProductID {
			return result[i].ProductID < result[j].ProductID
		}
		return result[i].Day.Before(result[j].Day)
	})
	return result
}

func (s *state) DailySales(_ context.Context, storeID, productID int64, loc *time.Location) ([]domain.DailySales, error) {
	return s.dailySales(storeID, loc, func(id int64) bool { return id == productID }), nil
}

func (s *state) DailySalesByStore(_ context.Context, storeID int64, loc *time.Location) ([]domain.DailySales, error) {
	return s.dailySales(storeID, loc, func(int64) bool { return true }), nil
}

func (s *state) ListSaleLines(_ context.Context, saleID int64) ([]domain.SaleLine, error) {
	lines := make([]domain.SaleLine, 0)
	for _, line := range s.saleLines {
		if line.SaleID == saleID {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func (s *state) GetFrequency(_ context.Context, storeID, productID int64) (*domain.ReplenishmentFrequency, error) {
	freq, ok := s.frequencies[frequencyKey{storeID, productID}]
	if !ok {
		return nil, domain.NotFound("", "replenishment frequency not found for product %d at store %d", productID, storeID)
	}
	return &freq, nil
}

func (s *state) ListFrequencies(_ context.Context, storeID, productID *int64) ([]domain.ReplenishmentFrequency, error) {
	result := make([]domain.ReplenishmentFrequency, 0)
	for key, freq := range s.frequencies {
		if storeID != nil && key.storeID != *storeID {
			continue
		}
		if productID != nil && key.productID != *productID {
			continue
		}
		result = append(result, freq)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].StoreID != result[j].StoreID {
			return result[i].StoreID < result[j].StoreID
		}
		return result[i].ProductID < result[j].ProductID
	})
	return result, nil
}

func (s *state) ListReplenishmentLogs(_ context.Context, storeID, productID int64) ([]domain.ReplenishmentLog, error) {
	result := make([]domain.ReplenishmentLog, 0)
	for i := len(s.logs) - 1; i >= 0; i-- {
		if s.logs[i].StoreID == storeID && s.logs[i].ProductID == productID {
			result = append(result, s.logs[i])
		}
	}
	return result, nil
}

func (s *state) GetList(_ context.Context, listID int64) (*domain.ReplenishmentList, error) {
	list, ok := s.lists[listID]
	if !ok {
		return nil, domain.NotFound(domain.CodeUnknownList, "replenishment list %d not found", listID)
	}
	return &list, nil
}

func (s *state) GetListByDate(_ context.Context, storeID int64, listDate time.Time) (*domain.ReplenishmentList, error) {
	day := domain.DateOf(listDate, time.UTC)
	for _, list := range s.lists {
		if list.StoreID == storeID && list.ListDate.Equal(day) {
			return &list, nil
		}
	}
	return nil, domain.NotFound(domain.CodeUnknownList, "replenishment list not found for store %d on %s",
		storeID, day.Format(domain.DateLayout))
}

func (s *state) ListLists(_ context.Context, filter domain.ListFilter) ([]domain.ReplenishmentList, error) {
	result := make([]domain.ReplenishmentList, 0)
	for _, list := range s.lists {
		if filter.StoreID != nil && list.StoreID != *filter.StoreID {
			continue
		}
		if filter.ListDate != nil && !list.ListDate.Equal(domain.DateOf(*filter.ListDate, time.UTC)) {
			continue
		}
		if filter.Status != "" && list.Status != filter.Status {
			continue
		}
		result = append(result, list)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].ListDate.Equal(result[j].ListDate) {
			return result[i].ListDate.After(result[j].ListDate)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *state) ListItems(_ context.Context, listID int64) ([]domain.ReplenishmentListItem, error) {
	items := s.items[listID]
	result := make([]domain.ReplenishmentListItem, len(items))
	for i, item := range items {
		item.ProductName = s.products[item.ProductID].Name
		result[i] = item
	}
	return result, nil
}
