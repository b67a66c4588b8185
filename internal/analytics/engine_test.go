package analytics

import (
	"testing"
	"time"

	"github.com/andresuchdata/invsync/internal/config"
	"github.com/andresuchdata/invsync/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultEngine() *Engine {
	return NewEngine(NewParams(config.AnalyticsConfig{}))
}

// steadySeller builds an aggregate selling the same quantity every month of
// the window at a fixed price per base unit.
func steadySeller(itemNo string, monthlyQty, price float64, from time.Time, months int) *domain.ItemSalesAggregate {
	agg := &domain.ItemSalesAggregate{
		ItemNo:   itemNo,
		ItemName: "Item " + itemNo,
		Monthly:  make(map[string]*domain.MonthlyBucket),
	}
	cursor := monthStart(from)
	for i := 0; i < months; i++ {
		revenue := decimal.NewFromFloat(monthlyQty * price)
		agg.Monthly[domain.MonthKey(cursor)] = &domain.MonthlyBucket{
			Qty:     monthlyQty,
			Revenue: revenue,
		}
		agg.TotalQty += monthlyQty
		agg.TotalRevenue = agg.TotalRevenue.Add(revenue)
		cursor = cursor.AddDate(0, 1, 0)
	}
	return agg
}

func TestAnalyzeSteadySeller(t *testing.T) {
	from := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC) // 12 months, 360 days

	items := defaultEngine().Analyze(Input{
		Sales: map[string]*domain.ItemSalesAggregate{
			"A-1": steadySeller("A-1", 150, 1000, from, 12),
		},
		Stock:         domain.WarehouseStockMap{"A-1": {"Utama": 100}},
		POOutstanding: domain.POOutstandingMap{"A-1": 10},
		FromDate:      from,
		Now:           now,
	})
	require.Len(t, items, 1)
	item := items[0]

	assert.Equal(t, domain.SourceAPI, item.DataSource)
	assert.Equal(t, 5.0, item.AvgDailyUsage) // 1800 sold / 360 elapsed days

	// A perfectly flat series has no variance.
	assert.Equal(t, 0.0, item.StdDev)
	assert.Equal(t, 0.0, item.SafetyStock)
	assert.Equal(t, 70.0, item.ReorderPoint) // ceil(5 * 14)
	assert.Equal(t, 175.0, item.MaxStock)    // ceil(70 * 2.5)
	assert.Equal(t, 20.0, item.DaysOfSupply) // 100 / 5
	assert.Equal(t, 0.0, item.StockAgeDays)  // sold in the current month

	assert.Equal(t, 1000.0, item.Price)
	assert.Equal(t, 700.0, item.Cost) // price * 0.7

	// EOQ = ceil(sqrt(2 * (5 * 365) * 150000 / (700 * 0.25)))
	assert.Equal(t, 1769.0, item.EOQ)

	// Annual COGS / on-hand value = 1800 / 100.
	assert.Equal(t, 18.0, item.TurnoverRate)

	assert.Equal(t, domain.StockOK, item.Status)
	assert.Equal(t, domain.DemandFast, item.DemandCategory)
	assert.Equal(t, "X", item.XYZClass)
	// The single item carries 100% of revenue, past both Pareto bands.
	assert.Equal(t, "C", item.ABCClass)
	assert.Equal(t, 1800000.0, item.AnnualRevenue)

	// stock 100 + po 10 covers the reorder point of 70.
	assert.Equal(t, 0.0, item.NetShortage)
	assert.Equal(t, 0.0, item.SuggestedOrder)
	assert.Len(t, item.MonthlySales, 12)
}

func TestAnalyzeSuggestedOrderCoversShortage(t *testing.T) {
	from := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC)

	items := defaultEngine().Analyze(Input{
		Sales: map[string]*domain.ItemSalesAggregate{
			"A-1": steadySeller("A-1", 150, 1000, from, 12),
		},
		Stock:    domain.WarehouseStockMap{"A-1": {"Utama": 5}},
		FromDate: from,
		Now:      now,
	})
	require.Len(t, items, 1)
	item := items[0]

	// ROP 70, stock 5, no inbound PO.
	assert.Equal(t, 65.0, item.NetShortage)
	// The suggestion rounds the shortage up to the economic order size.
	assert.Equal(t, item.EOQ, item.SuggestedOrder)
	assert.Equal(t, domain.StockReorder, item.Status) // above safety stock, below ROP
}

// Worked example: avg daily usage 10 at cost 100000 with order cost 150000
// gives annual demand 3650, holding cost 25000, EOQ ceil(sqrt(43800)) = 210.
func TestAnalyzeEOQWorkedExample(t *testing.T) {
	from := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC)
	price := 100000.0 / 0.7 // so that cost lands on 100000

	items := defaultEngine().Analyze(Input{
		Sales: map[string]*domain.ItemSalesAggregate{
			"E-1": steadySeller("E-1", 300, price, from, 12),
		},
		Stock:    domain.WarehouseStockMap{"E-1": {"Utama": 500}},
		FromDate: from,
		Now:      now,
	})
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, 10.0, item.AvgDailyUsage) // 3600 sold / 360 elapsed days
	assert.Equal(t, 100000.0, item.Cost)
	assert.Equal(t, 210.0, item.EOQ)
}

// A window opened partway through a month divides demand by the days that
// actually elapsed, not by a full synthetic month.
func TestAnalyzePartialWindowUsesElapsedDays(t *testing.T) {
	from := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 8, 11, 0, 0, 0, 0, time.UTC) // 10 elapsed days

	items := defaultEngine().Analyze(Input{
		Sales: map[string]*domain.ItemSalesAggregate{
			"P-1": steadySeller("P-1", 100, 1000, from, 1),
		},
		Stock:    domain.WarehouseStockMap{"P-1": {"Utama": 100}},
		FromDate: from,
		Now:      now,
	})
	require.Len(t, items, 1)
	item := items[0]

	assert.Equal(t, 10.0, item.AvgDailyUsage) // 100 / 10, not 100 / 30
	assert.Equal(t, 140.0, item.ReorderPoint) // ceil(10 * 14)
	assert.Equal(t, 10.0, item.DaysOfSupply)
	assert.Equal(t, domain.StockReorder, item.Status)
}

func TestDaysSinceStart(t *testing.T) {
	now := time.Date(2025, 8, 11, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 10.0, daysSinceStart(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), now))
	assert.Equal(t, 1.0, daysSinceStart(now, now)) // opened today
	assert.Equal(t, 1.0, daysSinceStart(time.Time{}, now))
	assert.Equal(t, 1.0, daysSinceStart(now.Add(12*time.Hour), now))
}

func TestClassifyStatusPrecedence(t *testing.T) {
	// Zero stock with live demand is CRITICAL even though its zero days of
	// supply also satisfy the reorder condition.
	assert.Equal(t, domain.StockCritical, classifyStatus(0, 5, 20, 0, 2))
	assert.Equal(t, domain.StockReorder, classifyStatus(10, 5, 20, 5, 2))
	assert.Equal(t, domain.StockOverstock, classifyStatus(200, 5, 20, 100, 2))
	assert.Equal(t, domain.StockOK, classifyStatus(60, 5, 20, 30, 2))

	// No demand: never CRITICAL or REORDER. The sentinel days of supply
	// lands on OVERSTOCK whether or not anything is on hand.
	assert.Equal(t, domain.StockOverstock, classifyStatus(60, 0, 0, 99999, 0))
	assert.Equal(t, domain.StockOverstock, classifyStatus(0, 0, 0, 99999, 0))
}

func TestClassifyDemand(t *testing.T) {
	assert.Equal(t, domain.DemandFast, classifyDemand(5))
	assert.Equal(t, domain.DemandSlow, classifyDemand(0.5))
	assert.Equal(t, domain.DemandNonMoving, classifyDemand(0.1))
	assert.Equal(t, domain.DemandDead, classifyDemand(0))
}

func TestClassifyXYZ(t *testing.T) {
	assert.Equal(t, "X", classifyXYZ(100, 50)) // cv 0.5
	assert.Equal(t, "Y", classifyXYZ(100, 100))
	assert.Equal(t, "Z", classifyXYZ(100, 150))
	assert.Equal(t, "Z", classifyXYZ(0, 0)) // zero mean gets the sentinel cv
}

func TestAssignABCBoundaries(t *testing.T) {
	items := []domain.InventoryAnalysisItem{
		{ItemNo: "a", AnnualRevenue: 80}, // cumulative 0.80
		{ItemNo: "b", AnnualRevenue: 15}, // cumulative 0.95
		{ItemNo: "c", AnnualRevenue: 5},  // cumulative 1.00
	}
	assignABC(items)
	assert.Equal(t, "A", items[0].ABCClass)
	assert.Equal(t, "B", items[1].ABCClass)
	assert.Equal(t, "C", items[2].ABCClass)
}

func TestAssignABCZeroRevenue(t *testing.T) {
	items := []domain.InventoryAnalysisItem{
		{ItemNo: "a"},
		{ItemNo: "b"},
	}
	assignABC(items)
	assert.Equal(t, "C", items[0].ABCClass)
	assert.Equal(t, "C", items[1].ABCClass)
}

func TestEstimateSeriesDeterministic(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	first := estimateSeries("B-2", 90, 6, from)
	second := estimateSeries("B-2", 90, 6, from)
	assert.Equal(t, first, second)

	other := estimateSeries("C-3", 90, 6, from)
	assert.NotEqual(t, first.points, other.points)

	require.Len(t, first.points, 6)
	for _, p := range first.points {
		assert.GreaterOrEqual(t, p.Qty, 0.0)
		assert.Equal(t, p.Qty*first.price, p.Revenue)
	}
	assert.Equal(t, domain.SourceEstimated, first.source)
}

// Items present only in the stock snapshot still appear in the report,
// flagged as estimated.
func TestAnalyzeFallsBackToEstimation(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 8, 26, 0, 0, 0, 0, time.UTC)

	items := defaultEngine().Analyze(Input{
		Sales:    map[string]*domain.ItemSalesAggregate{},
		Stock:    domain.WarehouseStockMap{"Z-9": {"Utama": 45}},
		FromDate: from,
		Now:      now,
	})
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "Z-9", item.ItemNo)
	assert.Equal(t, domain.SourceEstimated, item.DataSource)
	assert.Equal(t, 45.0, item.Stock)
	assert.Greater(t, item.AvgDailyUsage, 0.0)
	assert.Len(t, item.MonthlySales, 8)
}

func TestMonthsInWindow(t *testing.T) {
	jan := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	aug := time.Date(2025, 8, 26, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 8, monthsInWindow(jan, aug))
	assert.Equal(t, 1, monthsInWindow(aug, aug))
	assert.Equal(t, 1, monthsInWindow(time.Time{}, aug))
	assert.Equal(t, 20, monthsInWindow(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), aug))
}

func TestStockAgeDays(t *testing.T) {
	now := time.Date(2025, 8, 26, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0.0, stockAgeDays([]domain.MonthlyPoint{
		{Month: "Aug|2025", Qty: 3},
	}, now))

	// Last sale in May: age counts from the start of June.
	age := stockAgeDays([]domain.MonthlyPoint{
		{Month: "May|2025", Qty: 3},
		{Month: "Jun|2025", Qty: 0},
	}, now)
	assert.Equal(t, 86.0, age)
}
