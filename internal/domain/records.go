// internal/domain/records.go
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RemoteRecordRef is a lightweight record reference returned by the paged
// list endpoints. It only exists between the listing and detail phases.
type RemoteRecordRef struct {
	ID         int64  `json:"id"`
	TransDate  string `json:"transDate"`
	BranchID   int64  `json:"branchId,omitempty"`
	StatusName string `json:"statusName,omitempty"`
}

// LineItem is one detail line of an invoice, purchase order or sales order.
type LineItem struct {
	ItemNo       string          `json:"itemNo"`
	ItemName     string          `json:"itemName"`
	Quantity     float64         `json:"quantity"`     // in sales unit
	BaseQuantity float64         `json:"baseQuantity"` // in base unit, 0 when not supplied
	UnitRatio    float64         `json:"unitRatio"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
	UnitName     string          `json:"unitName"`
	ShipQuantity float64         `json:"shipQuantity"` // processed qty, PO/SO only
}

// RecordDetail is the full detail of a transactional record.
type RecordDetail struct {
	ID         int64      `json:"id"`
	Number     string     `json:"number"`
	TransDate  string     `json:"transDate"`
	BranchID   int64      `json:"branchId,omitempty"`
	BranchName string     `json:"branchName,omitempty"`
	StatusName string     `json:"statusName,omitempty"`
	Lines      []LineItem `json:"detailItem"`
}

// WarehouseQty is one warehouse's quantity for an item.
type WarehouseQty struct {
	Warehouse string  `json:"warehouse"`
	Quantity  float64 `json:"quantity"`
}

// ItemStock is a per-item stock lookup result across warehouses.
type ItemStock struct {
	ID     int64          `json:"id"`
	ItemNo string         `json:"itemNo"`
	Name   string         `json:"name"`
	Detail []WarehouseQty `json:"detailWarehouse"`
}

var transDateLayouts = []string{
	"02/01/2006",
	"2006-01-02",
	"02/01/2006 15:04:05",
}

// ParseTransDate parses the transaction-date formats the upstream API emits.
func ParseTransDate(s string) (time.Time, error) {
	for _, layout := range transDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized transaction date %q", s)
}
