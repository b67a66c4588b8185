// internal/domain/aggregate.go
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MonthKey builds the calendar-month bucket key, e.g. "Jan|2025".
func MonthKey(t time.Time) string {
	return fmt.Sprintf("%s|%d", t.Format("Jan"), t.Year())
}

// ParseMonthKey is the inverse of MonthKey. The returned time is the first
// day of the month in UTC.
func ParseMonthKey(key string) (time.Time, error) {
	t, err := time.Parse("Jan|2006", key)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month key %q: %w", key, err)
	}
	return t, nil
}

// MonthlyBucket accumulates one calendar month of sales for an item.
type MonthlyBucket struct {
	Qty     float64         `json:"qty"`    // base units
	QtyBox  float64         `json:"qtyBox"` // sales units
	Revenue decimal.Decimal `json:"revenue"`
}

// ItemSalesAggregate is the per-item reduction of sales records.
// Totals always equal the sum over the monthly buckets.
type ItemSalesAggregate struct {
	ItemNo            string                    `json:"itemNo"`
	ItemName          string                    `json:"itemName"`
	TotalQty          float64                   `json:"totalQty"` // base units
	TotalQtySalesUnit float64                   `json:"totalQtySalesUnit"`
	TotalRevenue      decimal.Decimal           `json:"totalRevenue"`
	ConversionRatio   float64                   `json:"conversionRatio"` // pcs per box, 0 = same unit
	UnitName          string                    `json:"unitName"`
	Monthly           map[string]*MonthlyBucket `json:"monthly"`
}

// SalesAggregate bundles the combined per-item map with the per-branch split.
type SalesAggregate struct {
	Items    map[string]*ItemSalesAggregate           `json:"items"`
	ByBranch map[int64]map[string]*ItemSalesAggregate `json:"byBranch,omitempty"`
}

// WarehouseStockMap maps item number -> warehouse -> quantity.
// Zero quantities are never stored.
type WarehouseStockMap map[string]map[string]float64

// TotalFor returns the summed stock for an item across all warehouses.
func (m WarehouseStockMap) TotalFor(itemNo string) float64 {
	var total float64
	for _, qty := range m[itemNo] {
		total += qty
	}
	return total
}

// POOutstandingMap maps item number -> outstanding (ordered minus processed)
// quantity across open purchase orders.
type POOutstandingMap map[string]float64

// OutstandingLine is one sales-order line with its computed outstanding qty.
type OutstandingLine struct {
	ItemNo      string  `json:"itemNo"`
	ItemName    string  `json:"itemName"`
	Quantity    float64 `json:"quantity"`
	Processed   float64 `json:"processed"`
	Outstanding float64 `json:"outstanding"`
	UnitName    string  `json:"unitName,omitempty"`
}

// SOOutstanding is an open sales order with its per-line outstanding detail.
type SOOutstanding struct {
	OrderID          int64             `json:"orderId"`
	Number           string            `json:"number"`
	TransDate        string            `json:"transDate"`
	BranchID         int64             `json:"branchId,omitempty"`
	StatusName       string            `json:"statusName,omitempty"`
	Lines            []OutstandingLine `json:"lines"`
	TotalOutstanding float64           `json:"totalOutstanding"`
}
