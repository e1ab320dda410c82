// internal/analytics/engine.go
package analytics

import (
	"math"
	"strings"
	"time"

	"github.com/andresuchdata/vendbees/backend-go/internal/domain"
)

// DefaultTrendDays is the length of the reconstructed stock value series
const DefaultTrendDays = 30

// Engine derives dashboard aggregates from a snapshot. It holds no snapshot state;
// every call reads only the snapshot it is given.
type Engine struct {
	now       func() time.Time
	loc       *time.Location
	trendDays int
	buckets   *BucketTable
}

// Option configures an Engine
type Option func(*Engine)

// WithClock overrides the clock used to decide what "today" is
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLocation sets the time zone calendar days are evaluated in
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithTrendDays sets the default trend length
func WithTrendDays(days int) Option {
	return func(e *Engine) {
		if days > 0 {
			e.trendDays = days
		}
	}
}

// NewEngine creates a metrics engine
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		now:       time.Now,
		loc:       time.Local,
		trendDays: DefaultTrendDays,
		buckets:   DefaultBuckets(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Buckets returns the tax bucket table used for filtering
func (e *Engine) Buckets() *BucketTable {
	return e.buckets
}

// Today returns the current calendar day as YYYY-MM-DD
func (e *Engine) Today() string {
	return e.now().In(e.loc).Format("2006-01-02")
}

// Summary computes the KPI figures for one filter combination.
// The tax bucket only narrows TaxPayable and TaxFilteredStockValue.
func (e *Engine) Summary(snap *domain.Snapshot, filter domain.DashboardFilter) (domain.MetricsSnapshot, error) {
	bucket, err := e.buckets.Parse(filter.TaxBucket)
	if err != nil {
		return domain.MetricsSnapshot{}, err
	}

	var m domain.MetricsSnapshot
	if snap == nil {
		return m, nil
	}

	for _, row := range snap.Stock {
		if !matchesMachine(filter.MachineID, row.MachineID) {
			continue
		}
		m.TotalUnits += row.Quantity
		if row.Quantity <= 0 {
			m.OutOfStockCount++
		}

		p, ok := snap.FindProduct(row.ProductID)
		if !ok {
			continue
		}
		value := row.Quantity * p.UnitCost
		m.TotalStockValue += value
		if bucket.Matches(p.TaxRate) {
			m.TaxFilteredStockValue += value
		}
	}

	today := e.Today()
	for _, sale := range snap.Sales {
		if !matchesMachine(filter.MachineID, sale.MachineID) {
			continue
		}
		if sale.Date == today {
			m.TodaySales += sale.Amount()
		}
		p, ok := snap.FindProduct(sale.ProductID)
		if !ok || !bucket.Matches(p.TaxRate) {
			continue
		}
		m.TaxPayable += sale.Amount() * p.TaxRate
	}

	m.ActiveMachines = e.ActiveMachines(snap, filter.MachineID)

	return m, nil
}

// StockValue sums quantity × unit cost over the stock rows of one machine (or all).
// Rows whose product is unknown are skipped.
func (e *Engine) StockValue(snap *domain.Snapshot, machineID string) float64 {
	m, _ := e.Summary(snap, domain.DashboardFilter{MachineID: machineID})
	return m.TotalStockValue
}

// TaxFilteredStockValue is StockValue restricted to products whose tax rate falls in the bucket
func (e *Engine) TaxFilteredStockValue(snap *domain.Snapshot, machineID, bucket string) (float64, error) {
	m, err := e.Summary(snap, domain.DashboardFilter{MachineID: machineID, TaxBucket: bucket})
	if err != nil {
		return 0, err
	}
	return m.TaxFilteredStockValue, nil
}

// TodaySales sums the revenue of sale events dated today
func (e *Engine) TodaySales(snap *domain.Snapshot, machineID string) float64 {
	m, _ := e.Summary(snap, domain.DashboardFilter{MachineID: machineID})
	return m.TodaySales
}

// OutOfStock counts stock rows with a quantity of zero or less
func (e *Engine) OutOfStock(snap *domain.Snapshot, machineID string) int {
	m, _ := e.Summary(snap, domain.DashboardFilter{MachineID: machineID})
	return m.OutOfStockCount
}

// TotalUnits sums the quantity of all stock rows
func (e *Engine) TotalUnits(snap *domain.Snapshot, machineID string) float64 {
	m, _ := e.Summary(snap, domain.DashboardFilter{MachineID: machineID})
	return m.TotalUnits
}

// TaxPayable sums quantity × selling price × tax rate over sale events in the bucket
func (e *Engine) TaxPayable(snap *domain.Snapshot, machineID, bucket string) (float64, error) {
	m, err := e.Summary(snap, domain.DashboardFilter{MachineID: machineID, TaxBucket: bucket})
	if err != nil {
		return 0, err
	}
	return m.TaxPayable, nil
}

// ActiveMachines counts machines whose status is Active
func (e *Engine) ActiveMachines(snap *domain.Snapshot, machineID string) int {
	if snap == nil {
		return 0
	}
	n := 0
	for _, m := range snap.Machines {
		if matchesMachine(machineID, m.ID) && m.Status == domain.MachineActive {
			n++
		}
	}
	return n
}

// Dashboard assembles every aggregate of the dashboard page
func (e *Engine) Dashboard(snap *domain.Snapshot, filter domain.DashboardFilter) (*domain.Dashboard, error) {
	metrics, err := e.Summary(snap, filter)
	if err != nil {
		return nil, err
	}

	days := filter.Days
	if days <= 0 {
		days = e.trendDays
	}

	d := &domain.Dashboard{
		Metrics:    metrics,
		Trend:      e.Trend(snap, days, filter.MachineID),
		Categories: e.CategoryBreakdown(snap, filter.MachineID),
		Machines:   e.MachineComparison(snap),
		LowStock:   e.LowStock(snap, filter.MachineID).Alerts,
	}
	if snap != nil {
		d.SnapshotVersion = snap.Version
	}
	return d, nil
}

// IsAll reports whether a filter value means "no narrowing"
func IsAll(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, "all")
}

func matchesMachine(filter, machineID string) bool {
	return IsAll(filter) || strings.TrimSpace(filter) == machineID
}

func round(v float64) int64 {
	return int64(math.Round(v))
}
