// internal/analytics/classify.go
package analytics

import (
	"sort"

	"github.com/andresuchdata/invsync/internal/domain"
)

// classifyStatus evaluates the stock condition in strict precedence order.
// An item can satisfy several conditions at once; only the most urgent one
// is reported. Demand-less stock counts as overstock, not OK.
func classifyStatus(stock, safetyStock, reorderPoint, daysOfSupply, avgDaily float64) domain.StockStatus {
	switch {
	case avgDaily > 0 && stock <= safetyStock:
		return domain.StockCritical
	case avgDaily > 0 && stock <= reorderPoint:
		return domain.StockReorder
	case daysOfSupply > 90 || (avgDaily == 0 && stock > 0):
		return domain.StockOverstock
	default:
		return domain.StockOK
	}
}

func classifyDemand(avgDaily float64) domain.DemandCategory {
	switch {
	case avgDaily >= 5:
		return domain.DemandFast
	case avgDaily >= 0.5:
		return domain.DemandSlow
	case avgDaily > 0:
		return domain.DemandNonMoving
	default:
		return domain.DemandDead
	}
}

// classifyXYZ tiers demand stability by the coefficient of variation of the
// monthly quantity series. A zero mean gets a sentinel CV so the item lands
// in Z.
func classifyXYZ(mean, stdDev float64) string {
	cv := 999.0
	if mean > 0 {
		cv = stdDev / mean
	}
	switch {
	case cv <= 0.5:
		return "X"
	case cv <= 1.0:
		return "Y"
	default:
		return "Z"
	}
}

// assignABC runs the global Pareto pass over all analyzed items: sorted by
// annual revenue descending, cumulative share <= 80% is A, <= 95% is B,
// the tail is C. With zero total revenue every item is C.
func assignABC(items []domain.InventoryAnalysisItem) {
	var grandTotal float64
	for i := range items {
		grandTotal += items[i].AnnualRevenue
	}
	if grandTotal <= 0 {
		for i := range items {
			items[i].ABCClass = "C"
		}
		return
	}

	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return items[order[a]].AnnualRevenue > items[order[b]].AnnualRevenue
	})

	var cumulative float64
	for _, idx := range order {
		cumulative += items[idx].AnnualRevenue
		share := cumulative / grandTotal
		switch {
		case share <= 0.80:
			items[idx].ABCClass = "A"
		case share <= 0.95:
			items[idx].ABCClass = "B"
		default:
			items[idx].ABCClass = "C"
		}
	}
}
