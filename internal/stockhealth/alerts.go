package stockhealth

import (
	"fmt"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
)

const (
	DefaultExpiringDays = 30
	DefaultStockoutDays = 7

	overstockFactor = 3
)

type StockAlert struct {
	StoreID      int64  `json:"store_id"`
	ProductID    int64  `json:"product_id"`
	ProductName  string `json:"product_name"`
	Quantity     int    `json:"current_quantity"`
	ReorderLevel int    `json:"reorder_level"`
	Message      string `json:"message"`
}

type ExpiryAlert struct {
	StoreID        int64     `json:"store_id"`
	ProductID      int64     `json:"product_id"`
	ProductName    string    `json:"product_name"`
	BatchID        int64     `json:"batch_id"`
	BatchCode      string    `json:"batch_code"`
	Quantity       int       `json:"quantity"`
	ExpirationDate time.Time `json:"expiration_date"`
	Message        string    `json:"message"`
}

type StockoutAlert struct {
	StoreID           int64   `json:"store_id"`
	ProductID         int64   `json:"product_id"`
	ProductName       string  `json:"product_name"`
	Quantity          int     `json:"current_quantity"`
	AverageDailySales float64 `json:"average_daily_sales"`
	DaysRemaining     int     `json:"days_remaining"`
	Message           string  `json:"message"`
}

// Alerts groups the dashboard warnings for one or more stores.
type Alerts struct {
	LowStock           []StockAlert    `json:"low_stock"`
	Overstock          []StockAlert    `json:"overstock"`
	ExpiringSoon       []ExpiryAlert   `json:"expiring_soon"`
	StockoutPrediction []StockoutAlert `json:"stockout_prediction"`
}

func NewAlerts() *Alerts {
	return &Alerts{
		LowStock:           []StockAlert{},
		Overstock:          []StockAlert{},
		ExpiringSoon:       []ExpiryAlert{},
		StockoutPrediction: []StockoutAlert{},
	}
}

// AlertPolicy decides which products and batches deserve a warning. Low stock
// is the Critical status; overstock is more than three times the reorder level.
type AlertPolicy struct {
	ExpiringDays int
	StockoutDays int
	Classifier   *Classifier
}

func NewAlertPolicy(expiringDays, stockoutDays int, classifier *Classifier) *AlertPolicy {
	if expiringDays <= 0 {
		expiringDays = DefaultExpiringDays
	}
	if stockoutDays <= 0 {
		stockoutDays = DefaultStockoutDays
	}
	if classifier == nil {
		classifier = NewClassifier(DefaultDisplayDays)
	}
	return &AlertPolicy{ExpiringDays: expiringDays, StockoutDays: stockoutDays, Classifier: classifier}
}

// AddProduct evaluates the aggregate stock of one product at a store.
func (p *AlertPolicy) AddProduct(alerts *Alerts, storeID int64, stock domain.ProductStock, velocity float64) {
	base := StockAlert{
		StoreID:      storeID,
		ProductID:    stock.ProductID,
		ProductName:  stock.ProductName,
		Quantity:     stock.TotalQuantity,
		ReorderLevel: stock.ReorderLevel,
	}

	health := p.Classifier.Classify(stock.TotalQuantity, stock.ReorderLevel, velocity)
	if health.Status == domain.StockCritical {
		a := base
		a.Message = fmt.Sprintf("URGENT: Stock (%d) is at or below reorder level (%d)", stock.TotalQuantity, stock.ReorderLevel)
		alerts.LowStock = append(alerts.LowStock, a)
	}

	if stock.ReorderLevel > 0 && stock.TotalQuantity > overstockFactor*stock.ReorderLevel {
		a := base
		a.Message = fmt.Sprintf("Overstock detected: Quantity (%d) exceeds %dx reorder level", stock.TotalQuantity, overstockFactor)
		alerts.Overstock = append(alerts.Overstock, a)
	}

	if health.DaysToOutOfStock != nil && *health.DaysToOutOfStock < p.StockoutDays {
		days := *health.DaysToOutOfStock
		alerts.StockoutPrediction = append(alerts.StockoutPrediction, StockoutAlert{
			StoreID:           storeID,
			ProductID:         stock.ProductID,
			ProductName:       stock.ProductName,
			Quantity:          stock.TotalQuantity,
			AverageDailySales: velocity,
			DaysRemaining:     days,
			Message:           fmt.Sprintf("Prediction: Stock will run out in %d days", days),
		})
	}
}

// AddBatch flags a batch with stock whose expiration falls within the window
// starting today.
func (p *AlertPolicy) AddBatch(alerts *Alerts, row domain.BatchStock, today time.Time) {
	if row.ExpirationDate == nil || row.Quantity <= 0 {
		return
	}

	exp := domain.DateOf(*row.ExpirationDate, time.UTC)
	today = domain.DateOf(today, time.UTC)
	if exp.Before(today) || exp.After(today.AddDate(0, 0, p.ExpiringDays)) {
		return
	}

	alerts.ExpiringSoon = append(alerts.ExpiringSoon, ExpiryAlert{
		StoreID:        row.StoreID,
		ProductID:      row.ProductID,
		ProductName:    row.ProductName,
		BatchID:        row.BatchID,
		BatchCode:      row.BatchCode,
		Quantity:       row.Quantity,
		ExpirationDate: exp,
		Message:        fmt.Sprintf("Warning: Batch %s expires soon (%s)", row.BatchCode, exp.Format(domain.DateLayout)),
	})
}
