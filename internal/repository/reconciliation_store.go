// backend-go/internal/repository/reconciliation_store.go
package repository

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/andresuchdata/vendbees/backend-go/internal/domain"
)

// MachineCapacity is the assumed number of units a machine holds when full
const MachineCapacity = 300

// SnapshotReader gives read access to the current snapshot and its relational lookups
type SnapshotReader interface {
	Current() *domain.Snapshot
	FindProduct(id string) (domain.Product, bool)
	FindMachine(id string) (domain.Machine, bool)
	StockFor(machineID string) []domain.StockPosition
	VendorFor(productID, productName string) (domain.Vendor, bool)
}

// ReconciliationStore owns the canonical collections. Writers replace the whole snapshot
// in one atomic swap, so readers see either the old or the new snapshot, never a mix.
// Only one goroutine may call ReplaceAll at a time.
type ReconciliationStore struct {
	current atomic.Pointer[domain.Snapshot]
	version uint64
	now     func() time.Time
}

// NewReconciliationStore returns a store holding an empty snapshot (version 0)
func NewReconciliationStore() *ReconciliationStore {
	s := &ReconciliationStore{now: time.Now}
	s.current.Store(domain.EmptySnapshot())
	return s
}

// ReplaceAll derives fill levels and purchase product names, then publishes the
// collections as the new current snapshot.
func (s *ReconciliationStore) ReplaceAll(c domain.Collections, meta domain.SnapshotMeta) *domain.Snapshot {
	c.Machines = withFillLevels(c.Machines, c.Stock)
	c.Purchases = withProductNames(c.Purchases, c.Products)

	s.version++
	meta.Version = s.version
	if meta.PulledAt.IsZero() {
		meta.PulledAt = s.now()
	}

	snap := domain.NewSnapshot(c, meta)
	s.current.Store(snap)
	return snap
}

// Current returns the published snapshot. It is never nil.
func (s *ReconciliationStore) Current() *domain.Snapshot {
	return s.current.Load()
}

// Version returns the version of the published snapshot
func (s *ReconciliationStore) Version() uint64 {
	return s.Current().Version
}

func (s *ReconciliationStore) FindProduct(id string) (domain.Product, bool) {
	return s.Current().FindProduct(id)
}

func (s *ReconciliationStore) FindMachine(id string) (domain.Machine, bool) {
	return s.Current().FindMachine(id)
}

func (s *ReconciliationStore) StockFor(machineID string) []domain.StockPosition {
	return s.Current().StockFor(machineID)
}

func (s *ReconciliationStore) VendorFor(productID, productName string) (domain.Vendor, bool) {
	return s.Current().VendorFor(productID, productName)
}

// FillLevel converts a unit count into a percentage of MachineCapacity, rounded and
// clamped to [0,100].
func FillLevel(units float64) int {
	if math.IsNaN(units) || units <= 0 {
		return 0
	}
	pct := math.Round(units / MachineCapacity * 100)
	if pct > 100 {
		return 100
	}
	return int(pct)
}

func withFillLevels(machines []domain.Machine, stock []domain.StockPosition) []domain.Machine {
	if len(machines) == 0 {
		return machines
	}
	units := make(map[string]float64, len(machines))
	for _, row := range stock {
		units[row.MachineID] += row.Quantity
	}

	out := make([]domain.Machine, len(machines))
	for i, m := range machines {
		m.FillLevel = FillLevel(units[m.ID])
		out[i] = m
	}
	return out
}

func withProductNames(purchases []domain.PurchaseOrder, products []domain.Product) []domain.PurchaseOrder {
	if len(purchases) == 0 {
		return purchases
	}
	names := make(map[string]string, len(products))
	for _, p := range products {
		if _, ok := names[p.ID]; !ok {
			names[p.ID] = p.Name
		}
	}

	out := make([]domain.PurchaseOrder, len(purchases))
	for i, po := range purchases {
		if name := names[po.ProductID]; name != "" {
			po.ProductName = name
		} else {
			po.ProductName = po.ProductID
		}
		out[i] = po
	}
	return out
}
