package analytics

import (
	"github.com/andresuchdata/vendbees/backend-go/internal/domain"
)

// CriticalQuantity is the quantity below which a low position becomes critical
const CriticalQuantity = 10

// NoVendor is shown when no vendor supplies the product
const NoVendor = "Contact Admin"

// ClassifyStock applies the fixed restock policy: Low below the reorder level,
// Critical when additionally below CriticalQuantity, Safe otherwise.
func ClassifyStock(qty, reorderLevel float64) domain.StockStatus {
	if qty >= reorderLevel {
		return domain.StockSafe
	}
	if qty < CriticalQuantity {
		return domain.StockCritical
	}
	return domain.StockLow
}

// LowStock classifies every stock row whose machine and product are both known and
// returns the non-safe ones with their vendor, plus the per-status counts.
func (e *Engine) LowStock(snap *domain.Snapshot, machineID string) domain.RestockReport {
	report := domain.RestockReport{Alerts: []domain.StockAlert{}}
	if snap == nil {
		return report
	}

	for _, row := range snap.Stock {
		if !matchesMachine(machineID, row.MachineID) {
			continue
		}
		p, ok := snap.FindProduct(row.ProductID)
		if !ok {
			continue
		}
		m, ok := snap.FindMachine(row.MachineID)
		if !ok {
			continue
		}

		status := ClassifyStock(row.Quantity, p.ReorderLevel)
		switch status {
		case domain.StockCritical:
			report.CriticalCount++
		case domain.StockLow:
			report.LowCount++
		default:
			report.SafeCount++
			continue
		}

		vendor := NoVendor
		if v, ok := snap.VendorFor(p.ID, p.Name); ok && v.Name != "" {
			vendor = v.Name
		}

		report.Alerts = append(report.Alerts, domain.StockAlert{
			MachineID:    m.ID,
			Location:     m.Location,
			ProductID:    p.ID,
			ProductName:  p.Name,
			Quantity:     row.Quantity,
			ReorderLevel: p.ReorderLevel,
			Status:       status,
			Vendor:       vendor,
		})
	}

	return report
}
