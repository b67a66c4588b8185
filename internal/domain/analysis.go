// internal/domain/analysis.go
package domain

// StockStatus is the per-item stock condition, evaluated in precedence order
// CRITICAL > REORDER > OVERSTOCK > OK.
type StockStatus string

const (
	StockCritical  StockStatus = "CRITICAL"
	StockReorder   StockStatus = "REORDER"
	StockOverstock StockStatus = "OVERSTOCK"
	StockOK        StockStatus = "OK"
)

// DemandCategory tiers items by average daily usage.
type DemandCategory string

const (
	DemandFast      DemandCategory = "FAST"
	DemandSlow      DemandCategory = "SLOW"
	DemandNonMoving DemandCategory = "NON-MOVING"
	DemandDead      DemandCategory = "DEAD"
)

// DataSource flags whether an item's demand series came from synced records
// or from the deterministic estimation fallback.
type DataSource string

const (
	SourceAPI       DataSource = "API"
	SourceEstimated DataSource = "ESTIMATED"
)

// MonthlyPoint is one point of the monthly sales series handed to reporting.
type MonthlyPoint struct {
	Month   string  `json:"month"` // month key, e.g. "Jan|2025"
	Qty     float64 `json:"qty"`
	Revenue float64 `json:"revenue"`
}

// InventoryAnalysisItem is the report-ready analytics output for one item.
type InventoryAnalysisItem struct {
	ItemNo   string  `json:"item_no"`
	ItemName string  `json:"item_name"`
	Stock    float64 `json:"stock"`
	Cost     float64 `json:"cost"`
	Price    float64 `json:"price"`

	AvgDailyUsage float64 `json:"avg_daily_usage"`
	StdDev        float64 `json:"std_dev"`
	SafetyStock   float64 `json:"safety_stock"`
	ReorderPoint  float64 `json:"reorder_point"`
	MaxStock      float64 `json:"max_stock"`
	DaysOfSupply  float64 `json:"days_of_supply"`
	StockAgeDays  float64 `json:"stock_age_days"`

	Status         StockStatus    `json:"status"`
	EOQ            float64        `json:"eoq"`
	TurnoverRate   float64        `json:"turnover_rate"`
	DemandCategory DemandCategory `json:"demand_category"`
	ABCClass       string         `json:"abc_class"`
	XYZClass       string         `json:"xyz_class"`
	AnnualRevenue  float64        `json:"annual_revenue"`

	POOutstanding  float64 `json:"po_outstanding"`
	NetShortage    float64 `json:"net_shortage"`
	SuggestedOrder float64 `json:"suggested_order"`

	MonthlySales []MonthlyPoint `json:"monthly_sales"`
	DataSource   DataSource     `json:"data_source"`
}
