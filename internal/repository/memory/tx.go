package memory

import (
	"context"
	"slices"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
)

// The memory store serializes transactions, so locking reads are plain reads.

func (s *state) LockCandidates(ctx context.Context, storeID, productID int64) ([]domain.BatchStock, error) {
	return s.ListCandidates(ctx, storeID, productID)
}

func (s *state) LockStockEntry(ctx context.Context, storeID, batchID int64) (*domain.StockEntry, error) {
	return s.GetStockEntry(ctx, storeID, batchID)
}

func (s *state) DecrementStock(_ context.Context, storeID, batchID int64, amount int) (int, error) {
	key := stockKey{storeID, batchID}
	entry, ok := s.stock[key]
	if !ok {
		return 0, domain.NotFound(domain.CodeUnknownBatch, "no stock entry for batch %d at store %d", batchID, storeID)
	}
	if entry.Quantity < amount {
		return 0, &domain.InsufficientStockError{
			StoreID:   storeID,
			ProductID: s.batches[batchID].ProductID,
			BatchID:   batchID,
			Requested: amount,
			Available: entry.Quantity,
		}
	}
	entry.Quantity -= amount
	s.stock[key] = entry
	return entry.Quantity, nil
}

func (s *state) IncrementStock(_ context.Context, storeID, batchID int64, amount int) (int, error) {
	if _, ok := s.batches[batchID]; !ok {
		return 0, domain.NotFound(domain.CodeUnknownBatch, "batch %d not found", batchID)
	}
	key := stockKey{storeID, batchID}
	entry, ok := s.stock[key]
	if !ok {
		entry = domain.StockEntry{StoreID: storeID, BatchID: batchID, ReorderLevel: domain.DefaultReorderLevel}
	}
	entry.Quantity += amount
	s.stock[key] = entry
	return entry.Quantity, nil
}

func (s *state) CreateStockEntry(_ context.Context, entry *domain.StockEntry) error {
	key := stockKey{entry.StoreID, entry.BatchID}
	if _, ok := s.stock[key]; ok {
		return domain.Conflict(domain.CodeDuplicateEntry, "stock entry for batch %d at store %d already exists",
			entry.BatchID, entry.StoreID)
	}
	s.stock[key] = *entry
	return nil
}

func (s *state) UpdateReorderLevel(_ context.Context, storeID, batchID int64, reorderLevel int) error {
	key := stockKey{storeID, batchID}
	entry, ok := s.stock[key]
	if !ok {
		return domain.NotFound(domain.CodeUnknownBatch, "no stock entry for batch %d at store %d", batchID, storeID)
	}
	entry.ReorderLevel = reorderLevel
	s.stock[key] = entry
	return nil
}

func (s *state) UpsertStore(_ context.Context, store *domain.Store) error {
	for id, existing := range s.stores {
		if existing.Name == store.Name {
			store.ID = id
			s.stores[id] = *store
			return nil
		}
	}
	if store.ID == 0 {
		store.ID = s.nextID()
	}
	s.stores[store.ID] = *store
	return nil
}

func (s *state) UpsertProduct(_ context.Context, product *domain.Product) error {
	for id, existing := range s.products {
		if existing.Name == product.Name {
			product.ID = id
			s.products[id] = *product
			return nil
		}
	}
	if product.ID == 0 {
		product.ID = s.nextID()
	}
	s.products[product.ID] = *product
	return nil
}

func (s *state) duplicateBatchCode(batch *domain.Batch) bool {
	for id, existing := range s.batches {
		if id != batch.ID && existing.ProductID == batch.ProductID && existing.Code == batch.Code {
			return true
		}
	}
	return false
}

func (s *state) CreateBatch(_ context.Context, batch *domain.Batch) error {
	if s.duplicateBatchCode(batch) {
		return domain.Conflict("", "batch code %q already exists for product %d", batch.Code, batch.ProductID)
	}
	batch.ID = s.nextID()
	batch.ExpirationDate = clonePtr(batch.ExpirationDate)
	s.batches[batch.ID] = *batch
	return nil
}

func (s *state) UpdateBatch(_ context.Context, batch *domain.Batch) error {
	if _, ok := s.batches[batch.ID]; !ok {
		return domain.NotFound(domain.CodeUnknownBatch, "batch %d not found", batch.ID)
	}
	if s.duplicateBatchCode(batch) {
		return domain.Conflict("", "batch code %q already exists for product %d", batch.Code, batch.ProductID)
	}
	updated := *batch
	updated.ExpirationDate = clonePtr(batch.ExpirationDate)
	s.batches[batch.ID] = updated
	return nil
}

func (s *state) DeleteBatch(_ context.Context, batchID int64) error {
	if _, ok := s.batches[batchID]; !ok {
		return domain.NotFound(domain.CodeUnknownBatch, "batch %d not found", batchID)
	}
	// Sale lines restrict the delete; stock, movements and logs cascade.
	if sold, _ := s.BatchHasSales(context.Background(), batchID); sold {
		return domain.Conflict(domain.CodeBatchInUse, "batch %d is referenced by sale lines", batchID)
	}
	delete(s.batches, batchID)
	for key := range s.stock {
		if key.batchID == batchID {
			delete(s.stock, key)
		}
	}
	s.movements = slices.DeleteFunc(s.movements, func(m domain.StockMovement) bool { return m.BatchID == batchID })
	s.logs = slices.DeleteFunc(s.logs, func(l domain.ReplenishmentLog) bool { return l.BatchID == batchID })
	return nil
}

func (s *state) CreateSale(_ context.Context, sale *domain.Sale) error {
	sale.ID = s.nextID()
	s.sales[sale.ID] = *sale
	return nil
}

func (s *state) CreateSaleLines(_ context.Context, lines []domain.SaleLine) error {
	for i := range lines {
		lines[i].ID = s.nextID()
		s.saleLines = append(s.saleLines, lines[i])
	}
	return nil
}

func (s *state) CreateMovement(_ context.Context, movement *domain.StockMovement) error {
	movement.ID = s.nextID()
	s.movements = append(s.movements, *movement)
	return nil
}

func (s *state) UpsertFrequency(_ context.Context, freq *domain.ReplenishmentFrequency) error {
	key := frequencyKey{freq.StoreID, freq.ProductID}
	if existing, ok := s.frequencies[key]; ok && freq.LastReplenishmentDate == nil {
		freq.LastReplenishmentDate = clonePtr(existing.LastReplenishmentDate)
	}
	stored := *freq
	stored.LastReplenishmentDate = clonePtr(freq.LastReplenishmentDate)
	s.frequencies[key] = stored
	return nil
}

func (s *state) DeleteFrequency(_ context.Context, storeID, productID int64) error {
	key := frequencyKey{storeID, productID}
	if _, ok := s.frequencies[key]; !ok {
		return domain.NotFound("", "replenishment frequency not found for product %d at store %d", productID, storeID)
	}
	delete(s.frequencies, key)
	return nil
}

func (s *state) CreateReplenishmentLog(_ context.Context, entry *domain.ReplenishmentLog) error {
	entry.ID = s.nextID()
	s.logs = append(s.logs, *entry)
	return nil
}

func (s *state) CreateList(_ context.Context, list *domain.ReplenishmentList) error {
	list.ListDate = domain.DateOf(list.ListDate, time.UTC)
	for _, existing := range s.lists {
		if existing.StoreID == list.StoreID && existing.ListDate.Equal(list.ListDate) {
			return domain.Conflict(domain.CodeDuplicateList, "replenishment list already exists for store %d on %s",
				list.StoreID, list.ListDate.Format(domain.DateLayout))
		}
	}
	list.ID = s.nextID()
	stored := *list
	stored.Items = nil
	s.lists[list.ID] = stored
	return nil
}

func (s *state) LockList(ctx context.Context, listID int64) (*domain.ReplenishmentList, error) {
	return s.GetList(ctx, listID)
}

func (s *state) UpdateList(_ context.Context, list *domain.ReplenishmentList) error {
	if _, ok := s.lists[list.ID]; !ok {
		return domain.NotFound(domain.CodeUnknownList, "replenishment list %d not found", list.ID)
	}
	stored := *list
	stored.Items = nil
	s.lists[list.ID] = stored
	return nil
}

func (s *state) DeleteList(_ context.Context, listID int64) error {
	if _, ok := s.lists[listID]; !ok {
		return domain.NotFound(domain.CodeUnknownList, "replenishment list %d not found", listID)
	}
	delete(s.lists, listID)
	delete(s.items, listID)
	return nil
}

func (s *state) CreateListItems(_ context.Context, items []domain.ReplenishmentListItem) error {
	for i := range items {
		item := &items[i]
		if _, ok := s.lists[item.ListID]; !ok {
			return domain.NotFound(domain.CodeUnknownList, "replenishment list %d not found", item.ListID)
		}
		existing := s.items[item.ListID]
		if slices.ContainsFunc(existing, func(it domain.ReplenishmentListItem) bool {
			return it.ProductID == item.ProductID
		}) {
			return domain.Conflict("", "product %d is already on list %d", item.ProductID, item.ListID)
		}
		item.ID = s.nextID()
		s.items[item.ListID] = append(existing, *item)
	}
	return nil
}

func (s *state) UpdateListItem(_ context.Context, item *domain.ReplenishmentListItem) error {
	items := s.items[item.ListID]
	idx := slices.IndexFunc(items, func(it domain.ReplenishmentListItem) bool {
		return it.ProductID == item.ProductID
	})
	if idx < 0 {
		return domain.NotFound("", "product %d is not on list %d", item.ProductID, item.ListID)
	}
	item.ID = items[idx].ID
	items[idx] = *item
	return nil
}

func (s *state) DeleteListItem(_ context.Context, listID, productID int64) error {
	items := s.items[listID]
	idx := slices.IndexFunc(items, func(it domain.ReplenishmentListItem) bool {
		return it.ProductID == productID
	})
	if idx < 0 {
		return domain.NotFound("", "product %d is not on list %d", productID, listID)
	}
	s.items[listID] = slices.Delete(items, idx, idx+1)
	return nil
}
