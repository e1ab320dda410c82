package analytics

import (
	"sort"

	"github.com/andresuchdata/vendbees/backend-go/internal/domain"
)

// OtherCategory groups products without a category
const OtherCategory = "Others"

// CategoryBreakdown groups stock value by product category, largest first.
// Categories whose total is not positive are left out.
func (e *Engine) CategoryBreakdown(snap *domain.Snapshot, machineID string) []domain.CategoryValue {
	out := []domain.CategoryValue{}
	if snap == nil {
		return out
	}

	totals := make(map[string]float64)
	var order []string
	for _, row := range snap.Stock {
		if !matchesMachine(machineID, row.MachineID) {
			continue
		}
		p, ok := snap.FindProduct(row.ProductID)
		if !ok {
			continue
		}
		cat := p.Category
		if cat == "" {
			cat = OtherCategory
		}
		if _, seen := totals[cat]; !seen {
			order = append(order, cat)
		}
		totals[cat] += row.Quantity * p.UnitCost
	}

	for _, cat := range order {
		if totals[cat] > 0 {
			out = append(out, domain.CategoryValue{Category: cat, Value: totals[cat]})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value > out[j].Value
	})
	return out
}

// MachineComparison returns the rounded stock value held by each machine, in machine order
func (e *Engine) MachineComparison(snap *domain.Snapshot) []domain.MachineValue {
	out := []domain.MachineValue{}
	if snap == nil {
		return out
	}

	values := make(map[string]float64, len(snap.Machines))
	for _, row := range snap.Stock {
		if p, ok := snap.FindProduct(row.ProductID); ok {
			values[row.MachineID] += row.Quantity * p.UnitCost
		}
	}

	for _, m := range snap.Machines {
		out = append(out, domain.MachineValue{
			MachineID: m.ID,
			Value:     float64(round(values[m.ID])),
		})
	}
	return out
}
