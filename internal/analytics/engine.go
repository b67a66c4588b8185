// internal/analytics/engine.go
// Deterministic inventory analytics: reorder points, safety stock, EOQ,
// turnover, and the ABC/XYZ classification passes over the synced sales
// and stock snapshots. Everything here is pure computation; the service
// layer owns cache access.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/andresuchdata/invsync/internal/config"
	"github.com/andresuchdata/invsync/internal/domain"
)

const (
	serviceLevelZ  = 1.645 // ~95% service level
	daysPerMonth   = 30.0
	maxStockFactor = 2.5
	maxDaysSupply  = 99999.0
)

// Params are the cost-model knobs of the analysis.
type Params struct {
	LeadTimeDays    float64
	OrderCost       float64
	HoldingCostRate float64
	CostRatio       float64 // unit cost as a fraction of selling price
}

// NewParams applies defaults for unset configuration values.
func NewParams(cfg config.AnalyticsConfig) Params {
	p := Params{
		LeadTimeDays:    cfg.LeadTimeDays,
		OrderCost:       cfg.OrderCost,
		HoldingCostRate: cfg.HoldingCostRate,
		CostRatio:       cfg.CostRatio,
	}
	if p.LeadTimeDays <= 0 {
		p.LeadTimeDays = 14
	}
	if p.OrderCost <= 0 {
		p.OrderCost = 150000
	}
	if p.HoldingCostRate <= 0 {
		p.HoldingCostRate = 0.25
	}
	if p.CostRatio <= 0 || p.CostRatio > 1 {
		p.CostRatio = 0.7
	}
	return p
}

// Input is one analysis run's worth of snapshots.
type Input struct {
	Sales         map[string]*domain.ItemSalesAggregate
	Stock         domain.WarehouseStockMap
	POOutstanding domain.POOutstandingMap
	FromDate      time.Time
	Now           time.Time
}

type Engine struct {
	params Params
}

func NewEngine(params Params) *Engine {
	return &Engine{params: params}
}

// Analyze computes per-item metrics for the union of items seen in sales
// and stock. Items with stock but no sales history get the deterministic
// estimation fallback so the report has no gaps. The result is sorted by
// annual revenue descending, item number ascending for ties.
func (e *Engine) Analyze(in Input) []domain.InventoryAnalysisItem {
	if in.Now.IsZero() {
		in.Now = time.Now()
	}
	months := monthsInWindow(in.FromDate, in.Now)
	days := daysSinceStart(in.FromDate, in.Now)

	itemNos := make([]string, 0, len(in.Sales)+len(in.Stock))
	seen := make(map[string]bool, len(in.Sales)+len(in.Stock))
	for no := range in.Sales {
		if !seen[no] {
			seen[no] = true
			itemNos = append(itemNos, no)
		}
	}
	for no := range in.Stock {
		if !seen[no] {
			seen[no] = true
			itemNos = append(itemNos, no)
		}
	}
	sort.Strings(itemNos)

	items := make([]domain.InventoryAnalysisItem, 0, len(itemNos))
	for _, no := range itemNos {
		stock := in.Stock.TotalFor(no)

		agg, ok := in.Sales[no]
		var series demandSeries
		if ok && agg.TotalQty > 0 {
			series = seriesFromAggregate(agg, months, in.FromDate)
		} else {
			series = estimateSeries(no, stock, months, in.FromDate)
			if ok {
				series.itemName = agg.ItemName
			}
		}

		items = append(items, e.analyzeItem(no, stock, in.POOutstanding[no], series, months, days, in.Now))
	}

	assignABC(items)

	sort.SliceStable(items, func(a, b int) bool {
		if items[a].AnnualRevenue != items[b].AnnualRevenue {
			return items[a].AnnualRevenue > items[b].AnnualRevenue
		}
		return items[a].ItemNo < items[b].ItemNo
	})
	return items
}

// demandSeries is the normalized monthly demand history an item is
// analyzed from, whether it came from synced records or estimation.
type demandSeries struct {
	itemName string
	points   []domain.MonthlyPoint // chronological, one per window month
	price    float64               // per base unit
	source   domain.DataSource
}

func (e *Engine) analyzeItem(itemNo string, stock, poOutstanding float64, series demandSeries, months int, days float64, now time.Time) domain.InventoryAnalysisItem {
	var totalQty, totalRevenue float64
	qtys := make([]float64, 0, len(series.points))
	for _, p := range series.points {
		totalQty += p.Qty
		totalRevenue += p.Revenue
		qtys = append(qtys, p.Qty)
	}

	monthlyMean := totalQty / float64(months)
	monthlyStdDev := populationStdDev(qtys, monthlyMean)

	// Daily usage divides by the elapsed days of the window, not by a
	// synthetic 30-day month, so a window opened mid-month is not
	// understated. The std-dev stays a per-30-day figure.
	avgDaily := totalQty / days
	dailyStdDev := monthlyStdDev / daysPerMonth

	safetyStock := math.Ceil(serviceLevelZ * dailyStdDev * math.Sqrt(e.params.LeadTimeDays))
	reorderPoint := math.Ceil(avgDaily*e.params.LeadTimeDays + safetyStock)
	maxStock := math.Ceil(reorderPoint * maxStockFactor)

	daysOfSupply := maxDaysSupply
	if avgDaily > 0 {
		daysOfSupply = math.Min(stock/avgDaily, maxDaysSupply)
	}

	price := series.price
	if price <= 0 && totalQty > 0 {
		price = totalRevenue / totalQty
	}
	cost := price * e.params.CostRatio

	annualScale := 12.0 / float64(months)
	annualDemand := avgDaily * 365
	annualRevenue := totalRevenue * annualScale

	eoq := 0.0
	holdingCost := cost * e.params.HoldingCostRate
	if holdingCost > 0 && annualDemand > 0 {
		eoq = math.Ceil(math.Sqrt(2 * annualDemand * e.params.OrderCost / holdingCost))
	}

	turnover := 0.0
	avgInventoryValue := cost * stock
	if avgInventoryValue > 0 {
		turnover = cost * totalQty * annualScale / avgInventoryValue
	}

	netShortage := math.Max(0, reorderPoint-stock-poOutstanding)
	suggestedOrder := 0.0
	if netShortage > 0 {
		suggestedOrder = netShortage
		if eoq > suggestedOrder {
			suggestedOrder = eoq
		}
	}

	return domain.InventoryAnalysisItem{
		ItemNo:   itemNo,
		ItemName: series.itemName,
		Stock:    stock,
		Cost:     round2(cost),
		Price:    round2(price),

		AvgDailyUsage: round2(avgDaily),
		StdDev:        round2(dailyStdDev),
		SafetyStock:   safetyStock,
		ReorderPoint:  reorderPoint,
		MaxStock:      maxStock,
		DaysOfSupply:  round2(daysOfSupply),
		StockAgeDays:  stockAgeDays(series.points, now),

		Status:         classifyStatus(stock, safetyStock, reorderPoint, daysOfSupply, avgDaily),
		EOQ:            eoq,
		TurnoverRate:   round2(turnover),
		DemandCategory: classifyDemand(avgDaily),
		XYZClass:       classifyXYZ(monthlyMean, monthlyStdDev),
		AnnualRevenue:  round2(annualRevenue),

		POOutstanding:  poOutstanding,
		NetShortage:    netShortage,
		SuggestedOrder: suggestedOrder,

		MonthlySales: series.points,
		DataSource:   series.source,
	}
}

// seriesFromAggregate expands an item's sparse monthly buckets into the
// dense chronological window series, zero-filling silent months so the
// variance reflects them.
func seriesFromAggregate(agg *domain.ItemSalesAggregate, months int, fromDate time.Time) demandSeries {
	points := make([]domain.MonthlyPoint, 0, months)
	cursor := monthStart(fromDate)
	for i := 0; i < months; i++ {
		key := domain.MonthKey(cursor)
		point := domain.MonthlyPoint{Month: key}
		if bucket, ok := agg.Monthly[key]; ok {
			point.Qty = bucket.Qty
			point.Revenue, _ = bucket.Revenue.Float64()
		}
		points = append(points, point)
		cursor = cursor.AddDate(0, 1, 0)
	}

	price := 0.0
	if agg.TotalQty > 0 {
		revenue, _ := agg.TotalRevenue.Float64()
		price = revenue / agg.TotalQty
	}

	return demandSeries{
		itemName: agg.ItemName,
		points:   points,
		price:    price,
		source:   domain.SourceAPI,
	}
}

// stockAgeDays is the age of the newest demand signal: zero when the item
// sold in the current month, otherwise days since the end of the most
// recent month with sales. An item with no sales at all ages from the
// window start.
func stockAgeDays(points []domain.MonthlyPoint, now time.Time) float64 {
	var latest time.Time
	for _, p := range points {
		if p.Qty <= 0 {
			continue
		}
		t, err := domain.ParseMonthKey(p.Month)
		if err != nil {
			continue
		}
		if t.After(latest) {
			latest = t
		}
	}

	if latest.IsZero() {
		if len(points) == 0 {
			return 0
		}
		t, err := domain.ParseMonthKey(points[0].Month)
		if err != nil {
			return 0
		}
		latest = t
	}

	if latest.Year() == now.Year() && latest.Month() == now.Month() {
		return 0
	}
	monthEnd := latest.AddDate(0, 1, 0)
	age := now.Sub(monthEnd).Hours() / 24
	if age < 0 {
		return 0
	}
	return math.Floor(age)
}

// monthsInWindow counts calendar months from the fromDate's month through
// the current month, inclusive. Never less than one.
func monthsInWindow(from, now time.Time) int {
	if from.IsZero() || from.After(now) {
		return 1
	}
	months := (now.Year()-from.Year())*12 + int(now.Month()) - int(from.Month()) + 1
	if months < 1 {
		months = 1
	}
	return months
}

// daysSinceStart is the number of whole days the demand window has been
// open, never less than one so a window opened today still divides.
func daysSinceStart(from, now time.Time) float64 {
	if from.IsZero() || !from.Before(now) {
		return 1
	}
	days := math.Floor(now.Sub(from).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func populationStdDev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
