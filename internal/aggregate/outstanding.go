// internal/aggregate/outstanding.go
package aggregate

import (
	"github.com/andresuchdata/invsync/internal/domain"
)

// POOutstanding reduces purchase-order details into per-item outstanding
// quantities (ordered minus processed, floored at zero). Records in a closed
// status are excluded entirely even when the listing phase already filtered
// them.
func POOutstanding(records []domain.RecordDetail) domain.POOutstandingMap {
	outstanding := make(domain.POOutstandingMap)

	for _, record := range records {
		if domain.ParseRecordStatus(record.StatusName).Excluded() {
			continue
		}
		for _, line := range record.Lines {
			if line.ItemNo == "" {
				continue
			}
			if qty := lineOutstanding(line); qty > 0 {
				outstanding[line.ItemNo] += qty
			}
		}
	}

	return outstanding
}

// SOOutstanding keeps full line detail per open sales order, with computed
// outstanding per line and per order.
func SOOutstanding(records []domain.RecordDetail) []domain.SOOutstanding {
	orders := make([]domain.SOOutstanding, 0, len(records))

	for _, record := range records {
		if domain.ParseRecordStatus(record.StatusName).Excluded() {
			continue
		}

		order := domain.SOOutstanding{
			OrderID:    record.ID,
			Number:     record.Number,
			TransDate:  record.TransDate,
			BranchID:   record.BranchID,
			StatusName: record.StatusName,
		}
		for _, line := range record.Lines {
			if line.ItemNo == "" {
				continue
			}
			qty := lineOutstanding(line)
			order.Lines = append(order.Lines, domain.OutstandingLine{
				ItemNo:      line.ItemNo,
				ItemName:    line.ItemName,
				Quantity:    line.Quantity,
				Processed:   line.ShipQuantity,
				Outstanding: qty,
				UnitName:    line.UnitName,
			})
			order.TotalOutstanding += qty
		}
		orders = append(orders, order)
	}

	return orders
}

func lineOutstanding(line domain.LineItem) float64 {
	qty := line.Quantity - line.ShipQuantity
	if qty < 0 {
		return 0
	}
	return qty
}
