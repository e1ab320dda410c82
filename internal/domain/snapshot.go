package domain

import (
	"strings"
	"time"
)

// SnapshotMeta describes where and when a snapshot was pulled
type SnapshotMeta struct {
	Version         uint64         `json:"version"`
	PulledAt        time.Time      `json:"pulled_at"`
	Source          string         `json:"source"`
	UpstreamMetrics map[string]any `json:"upstream_metrics,omitempty"`
}

// Snapshot is a complete, internally consistent set of collections at one point in time.
// It is immutable once published; callers must not modify the slices it exposes.
type Snapshot struct {
	Collections
	SnapshotMeta

	productByID     map[string]int
	machineByID     map[string]int
	stockByMachine  map[string][]int
	vendorByProduct map[string]int
	vendorByName    map[string]int
}

// NewSnapshot builds the lookup indexes over the given collections.
// When ids repeat, the first occurrence wins.
func NewSnapshot(c Collections, meta SnapshotMeta) *Snapshot {
	s := &Snapshot{
		Collections:     c,
		SnapshotMeta:    meta,
		productByID:     make(map[string]int, len(c.Products)),
		machineByID:     make(map[string]int, len(c.Machines)),
		stockByMachine:  make(map[string][]int, len(c.Machines)),
		vendorByProduct: make(map[string]int, len(c.Vendors)),
		vendorByName:    make(map[string]int, len(c.Vendors)),
	}

	for i, p := range c.Products {
		if _, ok := s.productByID[p.ID]; !ok {
			s.productByID[p.ID] = i
		}
	}
	for i, m := range c.Machines {
		if _, ok := s.machineByID[m.ID]; !ok {
			s.machineByID[m.ID] = i
		}
	}
	for i, row := range c.Stock {
		s.stockByMachine[row.MachineID] = append(s.stockByMachine[row.MachineID], i)
	}
	for i, v := range c.Vendors {
		if v.ProductID != "" {
			if _, ok := s.vendorByProduct[v.ProductID]; !ok {
				s.vendorByProduct[v.ProductID] = i
			}
		}
		if name := nameKey(v.ProductName); name != "" {
			if _, ok := s.vendorByName[name]; !ok {
				s.vendorByName[name] = i
			}
		}
	}

	return s
}

// EmptySnapshot returns a snapshot with no records
func EmptySnapshot() *Snapshot {
	return NewSnapshot(Collections{}, SnapshotMeta{})
}

// FindProduct looks a product up by id
func (s *Snapshot) FindProduct(id string) (Product, bool) {
	if s == nil {
		return Product{}, false
	}
	i, ok := s.productByID[id]
	if !ok {
		return Product{}, false
	}
	return s.Products[i], true
}

// FindMachine looks a machine up by id
func (s *Snapshot) FindMachine(id string) (Machine, bool) {
	if s == nil {
		return Machine{}, false
	}
	i, ok := s.machineByID[id]
	if !ok {
		return Machine{}, false
	}
	return s.Machines[i], true
}

// StockFor returns the stock rows of a machine, in upstream order
func (s *Snapshot) StockFor(machineID string) []StockPosition {
	if s == nil {
		return nil
	}
	idx := s.stockByMachine[machineID]
	rows := make([]StockPosition, 0, len(idx))
	for _, i := range idx {
		rows = append(rows, s.Stock[i])
	}
	return rows
}

// VendorFor finds the vendor of a product, first by product id then by product name
func (s *Snapshot) VendorFor(productID, productName string) (Vendor, bool) {
	if s == nil {
		return Vendor{}, false
	}
	if i, ok := s.vendorByProduct[productID]; ok && productID != "" {
		return s.Vendors[i], true
	}
	if name := nameKey(productName); name != "" {
		if i, ok := s.vendorByName[name]; ok {
			return s.Vendors[i], true
		}
	}
	return Vendor{}, false
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
