package domain

import "time"

// StockOverviewItem is the per-product health line of a store.
type StockOverviewItem struct {
	ProductID             int64       `json:"product_id"`
	ProductName           string      `json:"product_name"`
	TotalQuantity         int         `json:"total_quantity"`
	ReorderLevel          int         `json:"reorder_level"`
	Status                StockStatus `json:"status"`
	Progress              float64     `json:"progress"`
	AverageDailySales     float64     `json:"average_daily_sales"`
	DaysToOutOfStock      *int        `json:"days_to_out_of_stock"`
	SuggestedFacing       int         `json:"suggested_facing"`
	NextReplenishmentDate *time.Time  `json:"next_replenishment_date"`
}
