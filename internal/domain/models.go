// backend-go/internal/domain/models.go
package domain

// Product is one row of the product master after normalization
type Product struct {
	ID           string  `json:"product_id"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	CaseSize     float64 `json:"case_size"`
	UnitCost     float64 `json:"unit_cost"`
	TaxRate      float64 `json:"tax_rate"`     // always a fraction, e.g. 0.18
	RawTaxRate   string  `json:"raw_tax_rate"` // as found upstream, e.g. "18" or "0.18"
	ReorderLevel float64 `json:"reorder_level"`
	MRP          float64 `json:"mrp"`
	LandedCost   float64 `json:"landed_cost"`
}

// Machine represents a vending machine in the fleet
type Machine struct {
	ID        string        `json:"machine_id"`
	Location  string        `json:"location"`
	Status    MachineStatus `json:"status"`
	FillLevel int           `json:"fill_level"`
}

// StockPosition is the current quantity of a product inside a machine
type StockPosition struct {
	MachineID string  `json:"machine_id"`
	ProductID string  `json:"product_id"`
	Quantity  float64 `json:"current_stock"`
}

// PurchaseOrder represents a vendor purchase line
type PurchaseOrder struct {
	PONumber    string   `json:"po_number"`
	Date        string   `json:"date"`
	VendorID    string   `json:"vendor_id"`
	ProductID   string   `json:"product_id"`
	ProductName string   `json:"product"` // resolved from products, raw id when unknown
	Cases       float64  `json:"cases"`
	TotalCost   float64  `json:"total"`
	Status      POStatus `json:"status"`
}

// SaleEvent is one line of the sales log
type SaleEvent struct {
	Date         string  `json:"date"`
	MachineID    string  `json:"machine_id"`
	ProductID    string  `json:"product_id"`
	Quantity     float64 `json:"qty"`
	SellingPrice float64 `json:"selling_price"`
}

// Amount returns the revenue of the sale
func (s SaleEvent) Amount() float64 {
	return s.Quantity * s.SellingPrice
}

// RefillEvent is one line of the machine refill log
type RefillEvent struct {
	Date       string  `json:"date"`
	RefillerID string  `json:"refiller_id"`
	MachineID  string  `json:"machine_id"`
	ProductID  string  `json:"product_id"`
	Quantity   float64 `json:"qty"`
}

// Vendor links a supplier to a product it delivers
type Vendor struct {
	VendorID    string `json:"vendor_id"`
	Name        string `json:"name"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
}

// Collections groups the canonical entity collections produced by one pull
type Collections struct {
	Products  []Product       `json:"products"`
	Machines  []Machine       `json:"machines"`
	Stock     []StockPosition `json:"stock"`
	Purchases []PurchaseOrder `json:"purchases"`
	Sales     []SaleEvent     `json:"sales"`
	Refills   []RefillEvent   `json:"refills"`
	Vendors   []Vendor        `json:"vendors"`
}
