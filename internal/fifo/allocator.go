package fifo

import (
	"context"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
	"github.com/andresuchdata/freshstock/backend-go/internal/ledger"
	"github.com/andresuchdata/freshstock/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	MessageNoStock   = "No stock available for this product in this store."
	MessageOK        = "OK (FIFO respected)."
	MessageViolation = "FIFO violation: selected batch is not the next FIFO batch."
)

// Line is the quantity taken from one batch.
type Line struct {
	BatchID        int64           `json:"batch_id"`
	BatchCode      string          `json:"batch_code"`
	ExpirationDate *time.Time      `json:"expiration_date"`
	QuantityTaken  int             `json:"quantity_taken"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

// Allocation is the outcome of satisfying one product of a sale.
type Allocation struct {
	ProductID   int64           `json:"product_id"`
	Quantity    int             `json:"quantity"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Lines       []Line          `json:"lines"`
}

type SaleItem struct {
	ProductID int64 `json:"product_id" validate:"required"`
	Quantity  int   `json:"quantity" validate:"required"`
}

type SaleRequest struct {
	StoreID int64      `json:"store_id" validate:"required"`
	Items   []SaleItem `json:"items" validate:"required,min=1,dive"`
	// SoldAt backdates the sale; zero means now.
	SoldAt *time.Time `json:"sold_at,omitempty"`
}

// SaleResult is a committed sale with one allocation per requested item.
type SaleResult struct {
	SaleID      int64           `json:"sale_id"`
	StoreID     int64           `json:"store_id"`
	SoldAt      time.Time       `json:"sold_at"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       []Allocation    `json:"items"`
}

// ViolationCheck reports whether a selected batch was the FIFO head.
type ViolationCheck struct {
	IsViolation       bool    `json:"is_violation"`
	ExpectedBatchID   *int64  `json:"expected_batch_id"`
	ExpectedBatchCode *string `json:"expected_batch_code"`
	Message           string  `json:"message"`
}

type Allocator struct {
	repo   repository.Repository
	ledger *ledger.Ledger
	now    func() time.Time
}

func NewAllocator(repo repository.Repository, l *ledger.Ledger) *Allocator {
	return &Allocator{repo: repo, ledger: l, now: time.Now}
}

// Allocate sells quantity units of a product at a store.
func (a *Allocator) Allocate(ctx context.Context, storeID, productID int64, quantity int) (*SaleResult, error) {
	return a.Sell(ctx, SaleRequest{
		StoreID: storeID,
		Items:   []SaleItem{{ProductID: productID, Quantity: quantity}},
	})
}

// Sell allocates every item of a sale in one transaction. Any item that
// cannot be fully satisfied rejects the whole sale.
func (a *Allocator) Sell(ctx context.Context, req SaleRequest) (*SaleResult, error) {
	if len(req.Items) == 0 {
		return nil, domain.Validationf("sale has no items")
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, domain.Validationf("quantity must be positive, got %d for product %d", item.Quantity, item.ProductID)
		}
	}

	soldAt := a.now()
	if req.SoldAt != nil && !req.SoldAt.IsZero() {
		soldAt = *req.SoldAt
	}

	var result *SaleResult
	err := a.ledger.Run(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetStore(ctx, req.StoreID); err != nil {
			return err
		}

		res := &SaleResult{StoreID: req.StoreID, SoldAt: soldAt, TotalAmount: decimal.Zero}
		for _, item := range req.Items {
			alloc, err := allocateTx(ctx, tx, req.StoreID, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			res.Items = append(res.Items, *alloc)
			res.TotalAmount = res.TotalAmount.Add(alloc.TotalAmount)
		}

		sale := domain.Sale{StoreID: req.StoreID, SoldAt: soldAt, TotalAmount: res.TotalAmount}
		if err := tx.CreateSale(ctx, &sale); err != nil {
			return err
		}

		var lines []domain.SaleLine
		for _, alloc := range res.Items {
			for _, l := range alloc.Lines {
				lines = append(lines, domain.SaleLine{
					SaleID:   sale.ID,
					BatchID:  l.BatchID,
					Quantity: l.QuantityTaken,
					Subtotal: l.Subtotal,
				})
			}
		}
		if err := tx.CreateSaleLines(ctx, lines); err != nil {
			return err
		}

		res.SaleID = sale.ID
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("sale_id", result.SaleID).
		Int64("store_id", result.StoreID).
		Int("items", len(result.Items)).
		Str("total_amount", result.TotalAmount.StringFixed(2)).
		Msg("Sale allocated")

	return result, nil
}

func allocateTx(ctx context.Context, tx repository.Tx, storeID, productID int64, quantity int) (*Allocation, error) {
	product, err := tx.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	candidates, err := tx.LockCandidates(ctx, storeID, productID)
	if err != nil {
		return nil, err
	}
	candidates = Order(candidates)

	if len(candidates) == 0 {
		return nil, noCandidatesError(ctx, tx, storeID, productID)
	}

	available := 0
	for _, c := range candidates {
		available += c.Quantity
	}
	if available < quantity {
		return nil, &domain.InsufficientStockError{
			StoreID:   storeID,
			ProductID: productID,
			Requested: quantity,
			Available: available,
		}
	}

	alloc := &Allocation{ProductID: productID, Quantity: quantity, TotalAmount: decimal.Zero}
	remaining := quantity
	for _, c := range candidates {
		if remaining == 0 {
			break
		}
		take := min(remaining, c.Quantity)
		if _, err := ledger.DecrementTx(ctx, tx, storeID, c.BatchID, take); err != nil {
			return nil, err
		}

		subtotal := product.UnitPrice.Mul(decimal.NewFromInt(int64(take)))
		alloc.Lines = append(alloc.Lines, Line{
			BatchID:        c.BatchID,
			BatchCode:      c.BatchCode,
			ExpirationDate: c.ExpirationDate,
			QuantityTaken:  take,
			UnitPrice:      product.UnitPrice,
			Subtotal:       subtotal,
		})
		alloc.TotalAmount = alloc.TotalAmount.Add(subtotal)
		remaining -= take
	}

	return alloc, nil
}

// noCandidatesError tells a product that never had batches apart from one
// whose batches are exhausted at this store.
func noCandidatesError(ctx context.Context, q repository.Queries, storeID, productID int64) error {
	count, err := q.CountBatches(ctx, productID)
	if err != nil {
		return err
	}
	if count == 0 {
		return domain.NotFound(domain.CodeNoBatches, "product %d has no batches", productID)
	}
	return &domain.Error{
		Kind:    domain.KindInsufficientStock,
		Code:    domain.CodeNoStock,
		Message: MessageNoStock,
	}
}

// Candidates returns the batches with stock for a product at a store, in FIFO order.
func (a *Allocator) Candidates(ctx context.Context, storeID, productID int64) ([]domain.BatchStock, error) {
	if _, err := a.repo.GetStore(ctx, storeID); err != nil {
		return nil, err
	}
	if _, err := a.repo.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	candidates, err := a.repo.ListCandidates(ctx, storeID, productID)
	if err != nil {
		return nil, err
	}
	return Order(candidates), nil
}

// CheckViolation compares selectedBatchID with the FIFO head. It never writes.
func (a *Allocator) CheckViolation(ctx context.Context, storeID, productID, selectedBatchID int64) (*ViolationCheck, error) {
	candidates, err := a.Candidates(ctx, storeID, productID)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		return &ViolationCheck{Message: MessageNoStock}, nil
	}

	head := candidates[0]
	check := &ViolationCheck{
		ExpectedBatchID:   &head.BatchID,
		ExpectedBatchCode: &head.BatchCode,
		Message:           MessageOK,
	}
	if head.BatchID != selectedBatchID {
		check.IsViolation = true
		check.Message = MessageViolation
	}
	return check, nil
}
