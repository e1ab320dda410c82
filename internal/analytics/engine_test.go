package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/vendbees/backend-go/internal/domain"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestEngine() *Engine {
	return NewEngine(
		WithClock(func() time.Time { return fixedNow }),
		WithLocation(time.UTC),
	)
}

func fixtureSnapshot() *domain.Snapshot {
	return domain.NewSnapshot(domain.Collections{
		Products: []domain.Product{
			{ID: "P1", Name: "Cola", Category: "Beverages", UnitCost: 100, TaxRate: 0.18, ReorderLevel: 20},
			{ID: "P2", Name: "Chips", Category: "Snacks", UnitCost: 50, TaxRate: 0.05, ReorderLevel: 6},
			{ID: "P3", Name: "Water", UnitCost: 10, TaxRate: 0, ReorderLevel: 20},
		},
		Machines: []domain.Machine{
			{ID: "M1", Location: "Lobby", Status: domain.MachineActive},
			{ID: "M2", Location: "Gym", Status: domain.MachineInactive},
		},
		Stock: []domain.StockPosition{
			{MachineID: "M1", ProductID: "P1", Quantity: 5},
			{MachineID: "M1", ProductID: "P2", Quantity: 5},
			{MachineID: "M2", ProductID: "P1", Quantity: 15},
			{MachineID: "M2", ProductID: "P3", Quantity: 0},
			{MachineID: "M2", ProductID: "P404", Quantity: 7},
		},
		Sales: []domain.SaleEvent{
			{Date: "2024-03-10", MachineID: "M1", ProductID: "P1", Quantity: 2, SellingPrice: 150},
			{Date: "2024-03-10", MachineID: "M2", ProductID: "P2", Quantity: 1, SellingPrice: 80},
			{Date: "2024-03-09", MachineID: "M1", ProductID: "P1", Quantity: 1, SellingPrice: 150},
			{Date: "2024-03-10", MachineID: "M1", ProductID: "P404", Quantity: 1, SellingPrice: 10},
		},
		Refills: []domain.RefillEvent{
			{Date: "2024-03-10", MachineID: "M1", ProductID: "P1", Quantity: 3},
			{Date: "2024-03-09", MachineID: "M2", ProductID: "P2", Quantity: 2},
		},
		Vendors: []domain.Vendor{
			{VendorID: "V1", Name: "Acme", ProductID: "P1"},
			{VendorID: "V2", Name: "Crunch", ProductName: "chips"},
		},
	}, domain.SnapshotMeta{Version: 7})
}

func TestSummary_AllMachines(t *testing.T) {
	m, err := newTestEngine().Summary(fixtureSnapshot(), domain.DashboardFilter{})
	require.NoError(t, err)

	assert.InDelta(t, 2250.0, m.TotalStockValue, 1e-9, "P404 row is skipped")
	assert.Equal(t, 32.0, m.TotalUnits, "units include rows with unknown products")
	assert.Equal(t, 1, m.OutOfStockCount)
	assert.InDelta(t, 390.0, m.TodaySales, 1e-9)
	assert.InDelta(t, 85.0, m.TaxPayable, 1e-9)
	assert.InDelta(t, 2250.0, m.TaxFilteredStockValue, 1e-9)
	assert.Equal(t, 1, m.ActiveMachines)
}

func TestSummary_MachineFilter(t *testing.T) {
	e := newTestEngine()
	snap := fixtureSnapshot()

	assert.InDelta(t, 750.0, e.StockValue(snap, "M1"), 1e-9)
	assert.InDelta(t, 1500.0, e.StockValue(snap, "M2"), 1e-9)
	assert.InDelta(t, 2250.0, e.StockValue(snap, "All"), 1e-9)
	assert.InDelta(t, 310.0, e.TodaySales(snap, "M1"), 1e-9)
	assert.Equal(t, 0, e.OutOfStock(snap, "M1"))
	assert.Equal(t, 1, e.OutOfStock(snap, "M2"))
	assert.Equal(t, 22.0, e.TotalUnits(snap, "M2"))
	assert.Equal(t, 0, e.ActiveMachines(snap, "M2"))
	assert.Equal(t, 0.0, e.StockValue(snap, "M404"))
}

func TestSummary_TaxBuckets(t *testing.T) {
	e := newTestEngine()
	snap := fixtureSnapshot()

	tax, err := e.TaxPayable(snap, "", "GST @ 18%")
	require.NoError(t, err)
	assert.InDelta(t, 81.0, tax, 1e-9)

	tax, err = e.TaxPayable(snap, "", "18")
	require.NoError(t, err)
	assert.InDelta(t, 81.0, tax, 1e-9, "numeric bucket is normalized like a product rate")

	tax, err = e.TaxPayable(snap, "", "gst @ 5%")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, tax, 1e-9)

	value, err := e.TaxFilteredStockValue(snap, "", "GST @ 18%")
	require.NoError(t, err)
	assert.InDelta(t, 2000.0, value, 1e-9)

	value, err = e.TaxFilteredStockValue(snap, "M1", "GST @ 5%")
	require.NoError(t, err)
	assert.InDelta(t, 250.0, value, 1e-9)

	value, err = e.TaxFilteredStockValue(snap, "", "Exempted")
	require.NoError(t, err)
	assert.Equal(t, 0.0, value)

	_, err = e.TaxPayable(snap, "", "luxury")
	assert.ErrorIs(t, err, ErrUnknownTaxBucket)
}

func TestTaxBucket_Epsilon(t *testing.T) {
	b, err := DefaultBuckets().Parse("GST @ 12%")
	require.NoError(t, err)
	assert.True(t, b.Matches(0.1205))
	assert.False(t, b.Matches(0.122))
	assert.True(t, TaxBucket{}.Matches(0.4))
	assert.Len(t, DefaultBuckets().List(), 9)
}

func TestClassifyStock(t *testing.T) {
	assert.Equal(t, domain.StockLow, ClassifyStock(15, 20))
	assert.Equal(t, domain.StockCritical, ClassifyStock(5, 6))
	assert.Equal(t, domain.StockCritical, ClassifyStock(5, 20))
	assert.Equal(t, domain.StockSafe, ClassifyStock(5, 5))
	assert.Equal(t, domain.StockSafe, ClassifyStock(25, 20))
	assert.Equal(t, domain.StockSafe, ClassifyStock(3, 0), "quantity above a zero reorder level is safe")
}

func TestLowStock(t *testing.T) {
	report := newTestEngine().LowStock(fixtureSnapshot(), "")

	assert.Equal(t, 3, report.CriticalCount)
	assert.Equal(t, 1, report.LowCount)
	assert.Equal(t, 0, report.SafeCount)
	require.Len(t, report.Alerts, 4, "row with unknown product is skipped")

	byKey := map[string]domain.StockAlert{}
	for _, a := range report.Alerts {
		byKey[a.MachineID+"/"+a.ProductID] = a
	}

	cola := byKey["M1/P1"]
	assert.Equal(t, domain.StockCritical, cola.Status)
	assert.Equal(t, "Acme", cola.Vendor)
	assert.Equal(t, "Lobby", cola.Location)

	assert.Equal(t, "Crunch", byKey["M1/P2"].Vendor, "vendor found by product name")
	assert.Equal(t, domain.StockLow, byKey["M2/P1"].Status)
	assert.Equal(t, NoVendor, byKey["M2/P3"].Vendor)

	m1 := newTestEngine().LowStock(fixtureSnapshot(), "M1")
	assert.Len(t, m1.Alerts, 2)
}

func TestCategoryBreakdown(t *testing.T) {
	e := newTestEngine()
	snap := fixtureSnapshot()

	cats := e.CategoryBreakdown(snap, "")
	require.Len(t, cats, 2, "Others has zero value and is dropped")
	assert.Equal(t, domain.CategoryValue{Category: "Beverages", Value: 2000}, cats[0])
	assert.Equal(t, domain.CategoryValue{Category: "Snacks", Value: 250}, cats[1])

	snap.Stock[3].Quantity = 4
	cats = e.CategoryBreakdown(snap, "M2")
	require.Len(t, cats, 2)
	assert.Equal(t, OtherCategory, cats[1].Category)
	assert.Equal(t, 40.0, cats[1].Value)
}

func TestMachineComparison(t *testing.T) {
	out := newTestEngine().MachineComparison(fixtureSnapshot())
	assert.Equal(t, []domain.MachineValue{
		{MachineID: "M1", Value: 750},
		{MachineID: "M2", Value: 1500},
	}, out)
}

func TestZeroSnapshotYieldsZeroAggregates(t *testing.T) {
	e := newTestEngine()
	for _, snap := range []*domain.Snapshot{domain.EmptySnapshot(), nil} {
		m, err := e.Summary(snap, domain.DashboardFilter{})
		require.NoError(t, err)
		assert.Equal(t, domain.MetricsSnapshot{}, m)

		d, err := e.Dashboard(snap, domain.DashboardFilter{})
		require.NoError(t, err)
		assert.Len(t, d.Trend.Value, DefaultTrendDays)
		for _, p := range d.Trend.Value {
			assert.Equal(t, int64(0), p.Value)
		}
		assert.Empty(t, d.Categories)
		assert.Empty(t, d.Machines)
		assert.Empty(t, d.LowStock)
	}
}

func TestDashboard(t *testing.T) {
	d, err := newTestEngine().Dashboard(fixtureSnapshot(), domain.DashboardFilter{Days: 7})
	require.NoError(t, err)

	assert.Equal(t, uint64(7), d.SnapshotVersion)
	assert.Len(t, d.Trend.Value, 7)
	assert.Len(t, d.Trend.Flow, 7)
	assert.Equal(t, "2024-03-10", d.Trend.Value[6].Date)
	assert.Equal(t, int64(2250), d.Trend.Value[6].Value)
	assert.Len(t, d.LowStock, 4)

	_, err = newTestEngine().Dashboard(fixtureSnapshot(), domain.DashboardFilter{TaxBucket: "bogus"})
	assert.ErrorIs(t, err, ErrUnknownTaxBucket)
}

func TestTodayUsesLocation(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)
	e := NewEngine(
		WithClock(func() time.Time { return time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC) }),
		WithLocation(kolkata),
	)
	assert.Equal(t, "2024-03-11", e.Today())
}
