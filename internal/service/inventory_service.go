package service

import (
	"errors"
	"strings"

	"github.com/andresuchdata/vendbees/backend-go/internal/analytics"
	"github.com/andresuchdata/vendbees/backend-go/internal/domain"
	"github.com/andresuchdata/vendbees/backend-go/internal/repository"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidFilter = errors.New("invalid filter")
)

// StockLine is one product held by a machine, resolved against the product master
type StockLine struct {
	ProductID    string             `json:"product_id"`
	ProductName  string             `json:"product_name"`
	Quantity     float64            `json:"current_stock"`
	ReorderLevel float64            `json:"reorder_level"`
	Value        float64            `json:"value"`
	Status       domain.StockStatus `json:"status"`
}

type MachineDetail struct {
	domain.Machine
	Stock []StockLine `json:"stock"`
}

// InventoryService serves the master data views of the current snapshot
type InventoryService struct {
	store repository.SnapshotReader
}

func NewInventoryService(store repository.SnapshotReader) *InventoryService {
	return &InventoryService{store: store}
}

func (s *InventoryService) Products() []domain.Product {
	return s.store.Current().Products
}

func (s *InventoryService) Machines() []domain.Machine {
	return s.store.Current().Machines
}

func (s *InventoryService) Vendors() []domain.Vendor {
	return s.store.Current().Vendors
}

// Machine returns a machine with its stock. Rows whose product is unknown keep the raw id
// as name and carry no value.
func (s *InventoryService) Machine(id string) (*MachineDetail, error) {
	m, ok := s.store.FindMachine(strings.TrimSpace(id))
	if !ok {
		return nil, ErrNotFound
	}

	rows := s.store.StockFor(m.ID)
	detail := &MachineDetail{Machine: m, Stock: make([]StockLine, 0, len(rows))}
	for _, row := range rows {
		line := StockLine{ProductID: row.ProductID, ProductName: row.ProductID, Quantity: row.Quantity}
		if p, ok := s.store.FindProduct(row.ProductID); ok {
			line.ProductName = p.Name
			line.ReorderLevel = p.ReorderLevel
			line.Value = row.Quantity * p.UnitCost
			line.Status = analytics.ClassifyStock(row.Quantity, p.ReorderLevel)
		}
		detail.Stock = append(detail.Stock, line)
	}
	return detail, nil
}

// Purchases lists purchase orders, optionally narrowed to one payment status
func (s *InventoryService) Purchases(status string) []domain.PurchaseOrder {
	all := s.store.Current().Purchases
	if analytics.IsAll(status) {
		return all
	}

	want := domain.ParsePOStatus(status)
	out := make([]domain.PurchaseOrder, 0, len(all))
	for _, po := range all {
		if po.Status == want {
			out = append(out, po)
		}
	}
	return out
}
