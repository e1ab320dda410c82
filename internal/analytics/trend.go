package analytics

import (
	"math"
	"time"

	"github.com/andresuchdata/vendbees/backend-go/internal/domain"
)

type dayFlow struct {
	inUnits  float64
	outUnits float64
	inValue  float64
	outValue float64
}

// Trend reconstructs the daily stock value over the last `days` days, ending today.
//
// No history is stored, so the series is walked backward from today's stock value:
// each day records the rolling value, then steps to the previous day with
// rolling = rolling - in(d) + out(d), where in and out are the refills and sales of
// that day valued at unit cost. Untracked stock adjustments make this an approximation.
func (e *Engine) Trend(snap *domain.Snapshot, days int, machineID string) domain.Trend {
	if days <= 0 {
		days = e.trendDays
	}

	dates := e.lastDays(days)
	flows := make(map[string]*dayFlow, days)
	for _, d := range dates {
		flows[d] = &dayFlow{}
	}

	rolling := 0.0
	if snap != nil {
		for _, r := range snap.Refills {
			f, ok := flows[r.Date]
			if !ok || !matchesMachine(machineID, r.MachineID) {
				continue
			}
			f.inUnits += r.Quantity
			if p, ok := snap.FindProduct(r.ProductID); ok {
				f.inValue += r.Quantity * p.UnitCost
			}
		}
		for _, s := range snap.Sales {
			f, ok := flows[s.Date]
			if !ok || !matchesMachine(machineID, s.MachineID) {
				continue
			}
			f.outUnits += s.Quantity
			if p, ok := snap.FindProduct(s.ProductID); ok {
				f.outValue += s.Quantity * p.UnitCost
			}
		}
		rolling = e.StockValue(snap, machineID)
	}

	trend := domain.Trend{
		Value: make([]domain.TrendPoint, days),
		Flow:  make([]domain.FlowPoint, days),
	}
	for i := days - 1; i >= 0; i-- {
		date := dates[i]
		f := flows[date]
		trend.Value[i] = domain.TrendPoint{Date: date, Value: round(math.Max(0, rolling))}
		trend.Flow[i] = domain.FlowPoint{Date: date, In: f.inUnits, Out: f.outUnits}
		rolling = rolling - f.inValue + f.outValue
	}

	return trend
}

// lastDays returns `days` calendar days ending today, oldest first
func (e *Engine) lastDays(days int) []string {
	today := e.now().In(e.loc)
	base := time.Date(today.Year(), today.Month(), today.Day(), 12, 0, 0, 0, e.loc)

	out := make([]string, days)
	for i := 0; i < days; i++ {
		out[i] = base.AddDate(0, 0, i-(days-1)).Format("2006-01-02")
	}
	return out
}
