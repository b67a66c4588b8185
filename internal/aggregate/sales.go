// internal/aggregate/sales.go
package aggregate

import (
	"math"

	"github.com/andresuchdata/invsync/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Sales reduces invoice details into per-item aggregates with monthly
// buckets. When scopedBranch is zero and records carry branch identifiers,
// a secondary per-branch split is produced alongside the combined map.
//
// The reduction is commutative over records and line items: any permutation
// of the input yields identical totals and buckets.
func Sales(records []domain.RecordDetail, scopedBranch int64) *domain.SalesAggregate {
	agg := &domain.SalesAggregate{
		Items: make(map[string]*domain.ItemSalesAggregate),
	}
	if scopedBranch == 0 {
		agg.ByBranch = make(map[int64]map[string]*domain.ItemSalesAggregate)
	}

	for _, record := range records {
		transDate, err := domain.ParseTransDate(record.TransDate)
		if err != nil {
			log.Warn().
				Int64("id", record.ID).
				Str("trans_date", record.TransDate).
				Msg("skipping record with unparseable transaction date")
			continue
		}
		monthKey := domain.MonthKey(transDate)

		for _, line := range record.Lines {
			if line.ItemNo == "" {
				continue
			}

			accumulateLine(agg.Items, line, monthKey)

			if agg.ByBranch != nil && record.BranchID != 0 {
				branchItems, ok := agg.ByBranch[record.BranchID]
				if !ok {
					branchItems = make(map[string]*domain.ItemSalesAggregate)
					agg.ByBranch[record.BranchID] = branchItems
				}
				accumulateLine(branchItems, line, monthKey)
			}
		}
	}

	return agg
}

func accumulateLine(items map[string]*domain.ItemSalesAggregate, line domain.LineItem, monthKey string) {
	item, ok := items[line.ItemNo]
	if !ok {
		item = &domain.ItemSalesAggregate{
			ItemNo:  line.ItemNo,
			Monthly: make(map[string]*domain.MonthlyBucket),
		}
		items[line.ItemNo] = item
	}

	qtyBase := baseQuantity(line)
	revenue := lineRevenue(line)

	item.TotalQty += qtyBase
	item.TotalQtySalesUnit += line.Quantity
	item.TotalRevenue = item.TotalRevenue.Add(revenue)

	// A record that doesn't disambiguate the unit conversion must never
	// zero out a ratio learned from an earlier record.
	if qtyBase != line.Quantity && line.Quantity > 0 {
		item.ConversionRatio = math.Round(qtyBase / line.Quantity)
	}
	if line.ItemName != "" {
		item.ItemName = line.ItemName
	}
	if line.UnitName != "" {
		item.UnitName = line.UnitName
	}

	bucket, ok := item.Monthly[monthKey]
	if !ok {
		bucket = &domain.MonthlyBucket{}
		item.Monthly[monthKey] = bucket
	}
	bucket.Qty += qtyBase
	bucket.QtyBox += line.Quantity
	bucket.Revenue = bucket.Revenue.Add(revenue)
}

// baseQuantity prefers the explicit base-unit quantity, falls back to
// quantity x unit ratio, then to the raw sales-unit quantity.
func baseQuantity(line domain.LineItem) float64 {
	if line.BaseQuantity > 0 {
		return line.BaseQuantity
	}
	if line.UnitRatio > 0 {
		return line.Quantity * line.UnitRatio
	}
	return line.Quantity
}

// lineRevenue prefers the explicit total price, else quantity x unit price.
func lineRevenue(line domain.LineItem) decimal.Decimal {
	if !line.TotalPrice.IsZero() {
		return line.TotalPrice
	}
	return line.UnitPrice.Mul(decimal.NewFromFloat(line.Quantity))
}
