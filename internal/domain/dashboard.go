package domain

// MetricsSnapshot holds the KPI figures of the dashboard. It is derived on every query.
type MetricsSnapshot struct {
	TotalStockValue       float64 `json:"total_stock_value"`
	TotalUnits            float64 `json:"total_units"`
	TodaySales            float64 `json:"today_sales"`
	OutOfStockCount       int     `json:"out_of_stock_count"`
	TaxPayable            float64 `json:"tax_payable"`
	TaxFilteredStockValue float64 `json:"tax_filtered_stock_value"`
	ActiveMachines        int     `json:"active_machines"`
}

// DashboardFilter narrows the aggregates to one machine and/or one tax bucket.
// Empty or "All" means no narrowing.
type DashboardFilter struct {
	MachineID string `json:"machine_id"`
	TaxBucket string `json:"tax_bucket"`
	Days      int    `json:"days"`
}

// TrendPoint is the reconstructed stock value of one day
type TrendPoint struct {
	Date  string `json:"date"`
	Value int64  `json:"value"`
}

// FlowPoint is the number of units refilled (in) and sold (out) on one day
type FlowPoint struct {
	Date string  `json:"date"`
	In   float64 `json:"in"`
	Out  float64 `json:"out"`
}

// Trend pairs the value series with the unit flow series over the same days, oldest first
type Trend struct {
	Value []TrendPoint `json:"value"`
	Flow  []FlowPoint  `json:"flow"`
}

// CategoryValue is the stock value held in one product category
type CategoryValue struct {
	Category string  `json:"name"`
	Value    float64 `json:"value"`
}

// MachineValue is the stock value held in one machine
type MachineValue struct {
	MachineID string  `json:"name"`
	Value     float64 `json:"value"`
}

// StockAlert is a stock position that needs restocking
type StockAlert struct {
	MachineID    string      `json:"machine_id"`
	Location     string      `json:"location"`
	ProductID    string      `json:"product_id"`
	ProductName  string      `json:"product_name"`
	Quantity     float64     `json:"current_stock"`
	ReorderLevel float64     `json:"reorder_level"`
	Status       StockStatus `json:"status"`
	Vendor       string      `json:"vendor"`
}

// RestockReport lists alerts and the count of positions per stock status
type RestockReport struct {
	Alerts        []StockAlert `json:"alerts"`
	CriticalCount int          `json:"critical_count"`
	LowCount      int          `json:"low_count"`
	SafeCount     int          `json:"safe_count"`
}

// Dashboard aggregates everything the dashboard page needs for one filter combination
type Dashboard struct {
	SnapshotVersion uint64          `json:"snapshot_version"`
	Metrics         MetricsSnapshot `json:"metrics"`
	Trend           Trend           `json:"trend"`
	Categories      []CategoryValue `json:"categories"`
	Machines        []MachineValue  `json:"machines"`
	LowStock        []StockAlert    `json:"low_stock"`
}
