// backend-go/internal/domain/models.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultReorderLevel is applied to stock entries created without an explicit level.
const DefaultReorderLevel = 10

// Store represents a store location
type Store struct {
	ID       int64  `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Timezone string `json:"timezone" db:"timezone"`
}

// Product represents a sellable product
type Product struct {
	ID        int64           `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	UnitPrice decimal.Decimal `json:"unit_price" db:"unit_price"`
	Active    bool            `json:"active" db:"active"`
}

// Batch is a dated production lot of one product.
type Batch struct {
	ID             int64      `json:"id" db:"id"`
	ProductID      int64      `json:"product_id" db:"product_id"`
	Code           string     `json:"batch_code" db:"batch_code"`
	ExpirationDate *time.Time `json:"expiration_date" db:"expiration_date"`
}

// StockEntry is the ledger row for one (store, batch) pair.
type StockEntry struct {
	StoreID      int64 `json:"store_id" db:"store_id"`
	BatchID      int64 `json:"batch_id" db:"batch_id"`
	Quantity     int   `json:"quantity" db:"quantity"`
	ReorderLevel int   `json:"reorder_level" db:"reorder_level"`
}

// BatchStock joins a stock entry with its batch and product.
type BatchStock struct {
	StoreID        int64           `json:"store_id" db:"store_id"`
	BatchID        int64           `json:"batch_id" db:"batch_id"`
	BatchCode      string          `json:"batch_code" db:"batch_code"`
	ExpirationDate *time.Time      `json:"expiration_date" db:"expiration_date"`
	ProductID      int64           `json:"product_id" db:"product_id"`
	ProductName    string          `json:"product_name" db:"product_name"`
	UnitPrice      decimal.Decimal `json:"unit_price" db:"unit_price"`
	Quantity       int             `json:"quantity" db:"quantity"`
	ReorderLevel   int             `json:"reorder_level" db:"reorder_level"`
}

// Sale is the header of one sale transaction.
type Sale struct {
	ID          int64           `json:"id" db:"id"`
	StoreID     int64           `json:"store_id" db:"store_id"`
	SoldAt      time.Time       `json:"sold_at" db:"sold_at"`
	TotalAmount decimal.Decimal `json:"total_amount" db:"total_amount"`
}

// SaleLine records the quantity consumed from one batch by one sale.
type SaleLine struct {
	ID       int64           `json:"id" db:"id"`
	SaleID   int64           `json:"sale_id" db:"sale_id"`
	BatchID  int64           `json:"batch_id" db:"batch_id"`
	Quantity int             `json:"quantity" db:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal" db:"subtotal"`
}

// DailySales is the total quantity of a product sold on one store-local day.
type DailySales struct {
	ProductID int64     `json:"product_id" db:"product_id"`
	Day       time.Time `json:"day" db:"day"`
	Quantity  int       `json:"quantity" db:"quantity"`
}

// ProductStock is the aggregate quantity of a product at a store.
type ProductStock struct {
	ProductID     int64  `json:"product_id" db:"product_id"`
	ProductName   string `json:"product_name" db:"product_name"`
	TotalQuantity int    `json:"total_quantity" db:"total_quantity"`
	ReorderLevel  int    `json:"reorder_level" db:"reorder_level"`
}

// ReplenishmentFrequency is the restock cadence of a product at a store.
type ReplenishmentFrequency struct {
	StoreID               int64      `json:"store_id" db:"store_id"`
	ProductID             int64      `json:"product_id" db:"product_id"`
	FrequencyDays         int        `json:"replenishment_frequency" db:"frequency_days"`
	LastReplenishmentDate *time.Time `json:"last_replenishment_date" db:"last_replenishment_date"`
}

// ReplenishmentLog records one delivered replenishment.
type ReplenishmentLog struct {
	ID             int64     `json:"id" db:"id"`
	StoreID        int64     `json:"store_id" db:"store_id"`
	ProductID      int64     `json:"product_id" db:"product_id"`
	BatchID        int64     `json:"batch_id" db:"batch_id"`
	ExpirationDate time.Time `json:"expiration_date" db:"expiration_date"`
	Quantity       int       `json:"quantity" db:"quantity"`
	UserID         int64     `json:"user_id" db:"user_id"`
	At             time.Time `json:"timestamp" db:"logged_at"`
}

// ReplenishmentList is a dated per-store snapshot of planner output.
type ReplenishmentList struct {
	ID        int64      `json:"id" db:"id"`
	StoreID   int64      `json:"store_id" db:"store_id"`
	ListDate  time.Time  `json:"list_date" db:"list_date"`
	Status    ListStatus `json:"status" db:"status"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	Notes     *string    `json:"notes" db:"notes"`

	Items []ReplenishmentListItem `json:"items,omitempty" db:"-"`
}

// ReplenishmentListItem binds a product to a recommended quantity on a list.
type ReplenishmentListItem struct {
	ID           int64    `json:"id" db:"id"`
	ListID       int64    `json:"list_id" db:"list_id"`
	ProductID    int64    `json:"product_id" db:"product_id"`
	ProductName  string   `json:"product_name" db:"product_name"`
	Quantity     *int     `json:"quantity" db:"quantity"`
	CurrentStock int      `json:"current_stock" db:"current_stock"`
	Reason       string   `json:"reason" db:"reason"`
	Priority     Priority `json:"priority" db:"priority"`
	Notes        *string  `json:"notes" db:"notes"`
}

// ListFilter narrows replenishment list queries.
type ListFilter struct {
	StoreID  *int64
	ListDate *time.Time
	Status   ListStatus
}
