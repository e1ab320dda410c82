package domain

// RawRecord is one loosely-typed upstream row keyed by its original column name
type RawRecord map[string]any

// RawDataset is the full upstream pull, grouped by entity kind.
// A missing group decodes to an empty collection.
type RawDataset struct {
	Products  []RawRecord    `json:"products"`
	Machines  []RawRecord    `json:"machines"`
	Stock     []RawRecord    `json:"stock"`
	Purchases []RawRecord    `json:"purchases"`
	Sales     []RawRecord    `json:"sales"`
	Refills   []RawRecord    `json:"refills"`
	Vendors   []RawRecord    `json:"vendors"`
	Metrics   map[string]any `json:"metrics,omitempty"`

	// Revision identifies the parsed content when the source can tell. Two pulls with the
	// same non-empty revision carry identical records.
	Revision string `json:"-"`
}

// EntityKind names a record group of the dataset
type EntityKind string

const (
	KindProducts  EntityKind = "products"
	KindMachines  EntityKind = "machines"
	KindStock     EntityKind = "stock"
	KindPurchases EntityKind = "purchases"
	KindSales     EntityKind = "sales"
	KindRefills   EntityKind = "refills"
	KindVendors   EntityKind = "vendors"
)

// AllKinds lists every entity kind in pull order
var AllKinds = []EntityKind{
	KindProducts,
	KindMachines,
	KindStock,
	KindPurchases,
	KindSales,
	KindRefills,
	KindVendors,
}

// Records returns the group of the given kind
func (d *RawDataset) Records(kind EntityKind) []RawRecord {
	if d == nil {
		return nil
	}
	switch kind {
	case KindProducts:
		return d.Products
	case KindMachines:
		return d.Machines
	case KindStock:
		return d.Stock
	case KindPurchases:
		return d.Purchases
	case KindSales:
		return d.Sales
	case KindRefills:
		return d.Refills
	case KindVendors:
		return d.Vendors
	}
	return nil
}

// SetRecords replaces the group of the given kind
func (d *RawDataset) SetRecords(kind EntityKind, records []RawRecord) {
	switch kind {
	case KindProducts:
		d.Products = records
	case KindMachines:
		d.Machines = records
	case KindStock:
		d.Stock = records
	case KindPurchases:
		d.Purchases = records
	case KindSales:
		d.Sales = records
	case KindRefills:
		d.Refills = records
	case KindVendors:
		d.Vendors = records
	}
}
