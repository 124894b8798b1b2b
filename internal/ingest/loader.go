package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
	"github.com/andresuchdata/freshstock/backend-go/internal/fifo"
	"github.com/andresuchdata/freshstock/backend-go/internal/replenishment"
	"github.com/andresuchdata/freshstock/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
)

// Seller replays one historical sale through the allocator.
type Seller interface {
	Sell(ctx context.Context, req fifo.SaleRequest) (*fifo.SaleResult, error)
}

type MasterSummary struct {
	Stores       int `json:"stores"`
	Products     int `json:"products"`
	Batches      int `json:"batches"`
	StockEntries int `json:"stock_entries"`
	Frequencies  int `json:"frequencies"`
}

type SalesSummary struct {
	Sales   int `json:"sales"`
	Lines   int `json:"lines"`
	Skipped int `json:"skipped"`
}

// Loader writes seed files through the repository.
type Loader struct {
	repo repository.Repository
	loc  *time.Location
}

func NewLoader(repo repository.Repository, loc *time.Location) *Loader {
	if loc == nil {
		loc = time.UTC
	}
	return &Loader{repo: repo, loc: loc}
}

// FindFile returns dir/base with a .csv or .xlsx extension, or "" when
// neither exists.
func FindFile(dir, base string) string {
	for _, ext := range []string{".csv", ".xlsx"} {
		path := filepath.Join(dir, base+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// LoadMaster seeds stores, products, stock and frequencies from dir in one
// transaction. stock and frequencies files are optional. Existing stock
// entries are left untouched so the load can be repeated.
func (l *Loader) LoadMaster(ctx context.Context, dir string) (*MasterSummary, error) {
	stores, err := readRecords(FindFile(dir, "stores"), "stores", true, ParseStores)
	if err != nil {
		return nil, err
	}
	products, err := readRecords(FindFile(dir, "products"), "products", true, ParseProducts)
	if err != nil {
		return nil, err
	}
	stock, err := readRecords(FindFile(dir, "stock"), "stock", false, ParseStock)
	if err != nil {
		return nil, err
	}
	freqs, err := readRecords(FindFile(dir, "frequencies"), "frequencies", false, ParseFrequencies)
	if err != nil {
		return nil, err
	}

	summary := &MasterSummary{}
	err = l.repo.WithTx(ctx, func(tx repository.Tx) error {
		storeIDs := make(map[string]int64, len(stores))
		for _, rec := range stores {
			store := &domain.Store{Name: rec.Name, Timezone: rec.Timezone}
			if err := tx.UpsertStore(ctx, store); err != nil {
				return fmt.Errorf("failed to upsert store %s: %w", rec.Name, err)
			}
			storeIDs[store.Name] = store.ID
			summary.Stores++
		}

		productIDs := make(map[string]int64, len(products))
		for _, rec := range products {
			product := &domain.Product{Name: rec.Name, UnitPrice: rec.UnitPrice, Active: rec.Active}
			if err := tx.UpsertProduct(ctx, product); err != nil {
				return fmt.Errorf("failed to upsert product %s: %w", rec.Name, err)
			}
			productIDs[product.Name] = product.ID
			summary.Products++
		}

		if err := l.resolveExisting(ctx, tx, storeIDs, productIDs); err != nil {
			return err
		}

		batches := newBatchIndex(tx)
		for _, rec := range stock {
			storeID, productID, err := lookup(storeIDs, productIDs, rec.Store, rec.Product)
			if err != nil {
				return err
			}
			batchID, created, err := batches.ensure(ctx, productID, rec.BatchCode, rec.ExpirationDate)
			if err != nil {
				return err
			}
			if created {
				summary.Batches++
			}

			level := domain.DefaultReorderLevel
			if rec.ReorderLevel != nil {
				level = *rec.ReorderLevel
			}
			err = tx.CreateStockEntry(ctx, &domain.StockEntry{
				StoreID:      storeID,
				BatchID:      batchID,
				Quantity:     rec.Quantity,
				ReorderLevel: level,
			})
			if errors.Is(err, domain.ErrConflict) {
				log.Debug().Str("store", rec.Store).Str("batch_code", rec.BatchCode).Msg("seed: stock entry exists, skipping")
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to create stock entry for %s/%s: %w", rec.Store, rec.BatchCode, err)
			}
			summary.StockEntries++
		}

		for _, rec := range freqs {
			storeID, productID, err := lookup(storeIDs, productIDs, rec.Store, rec.Product)
			if err != nil {
				return err
			}
			if rec.FrequencyDays < replenishment.MinFrequencyDays || rec.FrequencyDays > replenishment.MaxFrequencyDays {
				return domain.Validationf("replenishment frequency for %s at %s must be between %d and %d days",
					rec.Product, rec.Store, replenishment.MinFrequencyDays, replenishment.MaxFrequencyDays)
			}
			if err := tx.UpsertFrequency(ctx, &domain.ReplenishmentFrequency{
				StoreID:               storeID,
				ProductID:             productID,
				FrequencyDays:         rec.FrequencyDays,
				LastReplenishmentDate: rec.LastReplenishmentDate,
			}); err != nil {
				return fmt.Errorf("failed to upsert frequency for %s/%s: %w", rec.Store, rec.Product, err)
			}
			summary.Frequencies++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("stores", summary.Stores).
		Int("products", summary.Products).
		Int("batches", summary.Batches).
		Int("stock_entries", summary.StockEntries).
		Int("frequencies", summary.Frequencies).
		Msg("seed: master data loaded")
	return summary, nil
}

// resolveExisting adds stores and products already in storage so stock files
// may reference master data seeded earlier.
func (l *Loader) resolveExisting(ctx context.Context, q repository.Queries, storeIDs, productIDs map[string]int64) error {
	stores, err := q.ListStores(ctx)
	if err != nil {
		return err
	}
	for _, s := range stores {
		if _, ok := storeIDs[s.Name]; !ok {
			storeIDs[s.Name] = s.ID
		}
	}
	products, err := q.ListProducts(ctx)
	if err != nil {
		return err
	}
	for _, p := range products {
		if _, ok := productIDs[p.Name]; !ok {
			productIDs[p.Name] = p.ID
		}
	}
	return nil
}

// ReplaySales sells historical lines in timestamp order. Sales the allocator
// rejects for lack of stock are skipped and counted.
func (l *Loader) ReplaySales(ctx context.Context, path string, seller Seller) (*SalesSummary, error) {
	table, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	records, err := ParseSales(table, l.loc)
	if err != nil {
		return nil, err
	}

	storeIDs := map[string]int64{}
	productIDs := map[string]int64{}
	if err := l.resolveExisting(ctx, l.repo, storeIDs, productIDs); err != nil {
		return nil, err
	}

	type group struct {
		storeID int64
		soldAt  time.Time
		items   map[int64]int
		order   []int64
		first   int
	}
	groups := map[string]*group{}
	for _, rec := range records {
		storeID, productID, err := lookup(storeIDs, productIDs, rec.Store, rec.Product)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", rec.Line, err)
		}
		key := rec.Store + "|" + rec.Receipt
		if rec.Receipt == "" {
			key = rec.Store + "|" + rec.SoldAt.Format(time.RFC3339Nano)
		}
		g, ok := groups[key]
		if !ok {
			g = &group{storeID: storeID, soldAt: rec.SoldAt, items: map[int64]int{}, first: rec.Line}
			groups[key] = g
		}
		if _, seen := g.items[productID]; !seen {
			g.order = append(g.order, productID)
		}
		g.items[productID] += rec.Quantity
	}

	ordered := make([]*group, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].soldAt.Equal(ordered[j].soldAt) {
			return ordered[i].soldAt.Before(ordered[j].soldAt)
		}
		return ordered[i].first < ordered[j].first
	})

	summary := &SalesSummary{}
	for _, g := range ordered {
		req := fifo.SaleRequest{StoreID: g.storeID, SoldAt: &g.soldAt}
		for _, productID := range g.order {
			req.Items = append(req.Items, fifo.SaleItem{ProductID: productID, Quantity: g.items[productID]})
		}

		if _, err := seller.Sell(ctx, req); err != nil {
			if errors.Is(err, domain.ErrInsufficientStock) || errors.Is(err, domain.ErrNotFound) {
				log.Warn().Err(err).Int64("store_id", g.storeID).Int("line", g.first).Msg("seed: sale skipped")
				summary.Skipped++
				continue
			}
			return nil, fmt.Errorf("failed to replay sale at line %d: %w", g.first, err)
		}
		summary.Sales++
		summary.Lines += len(req.Items)
	}

	log.Info().Int("sales", summary.Sales).Int("lines", summary.Lines).Int("skipped", summary.Skipped).Msg("seed: sales replayed")
	return summary, nil
}

type batchIndex struct {
	tx     repository.Tx
	byCode map[int64]map[string]int64
}

func newBatchIndex(tx repository.Tx) *batchIndex {
	return &batchIndex{tx: tx, byCode: map[int64]map[string]int64{}}
}

func (b *batchIndex) ensure(ctx context.Context, productID int64, code string, exp *time.Time) (int64, bool, error) {
	codes, ok := b.byCode[productID]
	if !ok {
		batches, err := b.tx.ListBatches(ctx, &productID)
		if err != nil {
			return 0, false, err
		}
		codes = make(map[string]int64, len(batches))
		for _, batch := range batches {
			codes[batch.Code] = batch.ID
		}
		b.byCode[productID] = codes
	}
	if id, ok := codes[code]; ok {
		return id, false, nil
	}

	batch := &domain.Batch{ProductID: productID, Code: code, ExpirationDate: exp}
	if err := b.tx.CreateBatch(ctx, batch); err != nil {
		return 0, false, fmt.Errorf("failed to create batch %s: %w", code, err)
	}
	codes[code] = batch.ID
	return batch.ID, true, nil
}

func lookup(storeIDs, productIDs map[string]int64, store, product string) (int64, int64, error) {
	storeID, ok := storeIDs[store]
	if !ok {
		return 0, 0, domain.NotFound(domain.CodeUnknownStore, "store %q not found", store)
	}
	productID, ok := productIDs[product]
	if !ok {
		return 0, 0, domain.NotFound(domain.CodeUnknownProduct, "product %q not found", product)
	}
	return storeID, productID, nil
}

func readRecords[T any](path, name string, required bool, parse func(*Table) ([]T, error)) ([]T, error) {
	if path == "" {
		if required {
			return nil, fmt.Errorf("%s file not found", name)
		}
		return nil, nil
	}
	table, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	return parse(table)
}
