package ingest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
	"github.com/shopspring/decimal"
)

type StoreRecord struct {
	Name     string
	Timezone string
}

type ProductRecord struct {
	Name      string
	UnitPrice decimal.Decimal
	Active    bool
}

// StockRecord is one batch held at one store.
type StockRecord struct {
	Product        string
	BatchCode      string
	ExpirationDate *time.Time
	Store          string
	Quantity       int
	ReorderLevel   *int
}

type FrequencyRecord struct {
	Store                 string
	Product               string
	FrequencyDays         int
	LastReplenishmentDate *time.Time
}

// SaleRecord is one line of historical sales. Lines sharing a receipt (or,
// without one, the same store and timestamp) form one sale.
type SaleRecord struct {
	Line     int
	Receipt  string
	Store    string
	Product  string
	Quantity int
	SoldAt   time.Time
}

func ParseStores(t *Table) ([]StoreRecord, error) {
	if err := t.Require("name"); err != nil {
		return nil, err
	}
	var (
		out  []StoreRecord
		errs []error
	)
	for _, row := range t.Rows {
		name := row.Get("name")
		if name == "" {
			errs = append(errs, rowError(t, row, "store name is empty"))
			continue
		}
		tz := row.Get("timezone")
		if tz != "" {
			if _, err := time.LoadLocation(tz); err != nil {
				errs = append(errs, rowError(t, row, "unknown timezone %q", tz))
				continue
			}
		}
		out = append(out, StoreRecord{Name: name, Timezone: tz})
	}
	return out, errors.Join(errs...)
}

func ParseProducts(t *Table) ([]ProductRecord, error) {
	if err := t.Require("name", "unit_price"); err != nil {
		return nil, err
	}
	var (
		out  []ProductRecord
		errs []error
	)
	for _, row := range t.Rows {
		name := row.Get("name")
		if name == "" {
			errs = append(errs, rowError(t, row, "product name is empty"))
			continue
		}
		price, err := parseMoney(row.Get("unit_price"))
		if err != nil || price.IsNegative() {
			errs = append(errs, rowError(t, row, "invalid unit_price %q", row.Get("unit_price")))
			continue
		}
		active := true
		if raw := row.Get("active"); raw != "" {
			if active, err = strconv.ParseBool(strings.ToLower(raw)); err != nil {
				errs = append(errs, rowError(t, row, "invalid active flag %q", raw))
				continue
			}
		}
		out = append(out, ProductRecord{Name: name, UnitPrice: price, Active: active})
	}
	return out, errors.Join(errs...)
}

func ParseStock(t *Table) ([]StockRecord, error) {
	if err := t.Require("product", "batch_code", "store", "quantity"); err != nil {
		return nil, err
	}
	var (
		out  []StockRecord
		errs []error
	)
	for _, row := range t.Rows {
		rec := StockRecord{
			Product:   row.Get("product"),
			BatchCode: row.Get("batch_code"),
			Store:     row.Get("store"),
		}
		if rec.Product == "" || rec.BatchCode == "" || rec.Store == "" {
			errs = append(errs, rowError(t, row, "product, batch_code and store are required"))
			continue
		}
		qty, err := parseCount(row.Get("quantity"))
		if err != nil {
			errs = append(errs, rowError(t, row, "invalid quantity %q", row.Get("quantity")))
			continue
		}
		rec.Quantity = qty
		if raw := row.Get("reorder_level"); raw != "" {
			level, err := parseCount(raw)
			if err != nil {
				errs = append(errs, rowError(t, row, "invalid reorder_level %q", raw))
				continue
			}
			rec.ReorderLevel = &level
		}
		if raw := row.Get("expiration_date"); raw != "" {
			d, err := domain.ParseDate(raw)
			if err != nil {
				errs = append(errs, rowError(t, row, "invalid expiration_date %q", raw))
				continue
			}
			rec.ExpirationDate = &d
		}
		out = append(out, rec)
	}
	return out, errors.Join(errs...)
}

func ParseFrequencies(t *Table) ([]FrequencyRecord, error) {
	if err := t.Require("store", "product", "replenishment_frequency"); err != nil {
		return nil, err
	}
	var (
		out  []FrequencyRecord
		errs []error
	)
	for _, row := range t.Rows {
		days, err := strconv.Atoi(row.Get("replenishment_frequency"))
		if err != nil {
			errs = append(errs, rowError(t, row, "invalid replenishment_frequency %q", row.Get("replenishment_frequency")))
			continue
		}
		rec := FrequencyRecord{Store: row.Get("store"), Product: row.Get("product"), FrequencyDays: days}
		if raw := row.Get("last_replenishment_date"); raw != "" {
			d, err := domain.ParseDate(raw)
			if err != nil {
				errs = append(errs, rowError(t, row, "invalid last_replenishment_date %q", raw))
				continue
			}
			rec.LastReplenishmentDate = &d
		}
		out = append(out, rec)
	}
	return out, errors.Join(errs...)
}

// ParseSales reads sale lines. sold_at accepts RFC 3339 or a bare date, the
// latter interpreted as noon in loc so it lands on that calendar day.
func ParseSales(t *Table, loc *time.Location) ([]SaleRecord, error) {
	if err := t.Require("store", "product", "quantity", "sold_at"); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	var (
		out  []SaleRecord
		errs []error
	)
	for _, row := range t.Rows {
		qty, err := parseCount(row.Get("quantity"))
		if err != nil || qty == 0 {
			errs = append(errs, rowError(t, row, "invalid quantity %q", row.Get("quantity")))
			continue
		}
		soldAt, err := parseTimestamp(row.Get("sold_at"), loc)
		if err != nil {
			errs = append(errs, rowError(t, row, "invalid sold_at %q", row.Get("sold_at")))
			continue
		}
		out = append(out, SaleRecord{
			Line:     row.Line,
			Receipt:  row.Get("receipt"),
			Store:    row.Get("store"),
			Product:  row.Get("product"),
			Quantity: qty,
			SoldAt:   soldAt,
		})
	}
	return out, errors.Join(errs...)
}

func parseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	if ts, err := time.ParseInLocation("2006-01-02 15:04:05", raw, loc); err == nil {
		return ts, nil
	}
	d, err := time.ParseInLocation(domain.DateLayout, raw, loc)
	if err != nil {
		return time.Time{}, err
	}
	return d.Add(12 * time.Hour), nil
}

func parseMoney(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
}

func parseCount(raw string) (int, error) {
	n, err := strconv.Atoi(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative count %d", n)
	}
	return n, nil
}

func rowError(t *Table, row Row, format string, args ...any) error {
	return fmt.Errorf("%s:%d: %s", t.Path, row.Line, fmt.Sprintf(format, args...))
}
