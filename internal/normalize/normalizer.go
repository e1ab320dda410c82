package normalize

import (
	"github.com/andresuchdata/vendbees/backend-go/internal/domain"
)

// Report counts what normalization dropped, per entity kind
type Report struct {
	Read    map[domain.EntityKind]int `json:"read"`
	Dropped map[domain.EntityKind]int `json:"dropped"`
}

func newReport() Report {
	return Report{
		Read:    make(map[domain.EntityKind]int, len(domain.AllKinds)),
		Dropped: make(map[domain.EntityKind]int, len(domain.AllKinds)),
	}
}

// TotalDropped sums dropped records across kinds
func (r Report) TotalDropped() int {
	total := 0
	for _, n := range r.Dropped {
		total += n
	}
	return total
}

// Normalizer maps loosely-typed upstream records onto the canonical domain types.
// It is stateless and safe for concurrent use.
type Normalizer struct{}

// New creates a Normalizer
func New() *Normalizer {
	return &Normalizer{}
}

// Normalize converts a whole pull. Malformed records are dropped and counted, never returned
// as errors. Later duplicates of a product or machine id are dropped as well.
func (n *Normalizer) Normalize(raw domain.RawDataset) (domain.Collections, Report) {
	report := newReport()
	var out domain.Collections

	seenProducts := make(map[string]struct{}, len(raw.Products))
	for _, rec := range raw.Products {
		report.Read[domain.KindProducts]++
		p, ok := n.Product(rec)
		if ok {
			if _, dup := seenProducts[p.ID]; dup {
				ok = false
			}
		}
		if !ok {
			report.Dropped[domain.KindProducts]++
			continue
		}
		seenProducts[p.ID] = struct{}{}
		out.Products = append(out.Products, p)
	}

	seenMachines := make(map[string]struct{}, len(raw.Machines))
	for _, rec := range raw.Machines {
		report.Read[domain.KindMachines]++
		m, ok := n.Machine(rec)
		if ok {
			if _, dup := seenMachines[m.ID]; dup {
				ok = false
			}
		}
		if !ok {
			report.Dropped[domain.KindMachines]++
			continue
		}
		seenMachines[m.ID] = struct{}{}
		out.Machines = append(out.Machines, m)
	}

	out.Stock = collect(raw.Stock, domain.KindStock, &report, n.Stock)
	out.Purchases = collect(raw.Purchases, domain.KindPurchases, &report, n.Purchase)
	out.Sales = collect(raw.Sales, domain.KindSales, &report, n.Sale)
	out.Refills = collect(raw.Refills, domain.KindRefills, &report, n.Refill)
	out.Vendors = collect(raw.Vendors, domain.KindVendors, &report, n.Vendor)

	return out, report
}

func collect[T any](recs []domain.RawRecord, kind domain.EntityKind, report *Report, fn func(domain.RawRecord) (T, bool)) []T {
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		report.Read[kind]++
		v, ok := fn(rec)
		if !ok {
			report.Dropped[kind]++
			continue
		}
		out = append(out, v)
	}
	return out
}

// Product normalizes one product master row
func (n *Normalizer) Product(rec domain.RawRecord) (domain.Product, bool) {
	f := newField(rec)
	id, ok := f.id(productIDAliases)
	if !ok {
		return domain.Product{}, false
	}

	p := domain.Product{
		ID:           id,
		Name:         f.str(productNameAliases),
		Category:     f.str(categoryAliases),
		CaseSize:     f.num(caseSizeAliases, defaultCaseSize),
		UnitCost:     f.num(unitCostAliases, 0),
		ReorderLevel: f.num(reorderLevelAliases, defaultReorderLevel),
		MRP:          f.num(mrpAliases, 0),
	}

	rawTax, _ := f.lookup(taxRateAliases)
	p.RawTaxRate = toString(rawTax)
	p.TaxRate, p.LandedCost = LandedCost(p.UnitCost, rawTax)

	return p, true
}

// Machine normalizes one machine master row. Fill level is derived later from stock.
func (n *Normalizer) Machine(rec domain.RawRecord) (domain.Machine, bool) {
	f := newField(rec)
	id, ok := f.id(machineIDAliases)
	if !ok {
		return domain.Machine{}, false
	}

	return domain.Machine{
		ID:       id,
		Location: f.str(locationAliases),
		Status:   domain.ParseMachineStatus(f.str(statusAliases)),
	}, true
}

// Stock normalizes one current-stock row
func (n *Normalizer) Stock(rec domain.RawRecord) (domain.StockPosition, bool) {
	f := newField(rec)
	machineID, ok := f.id(machineIDAliases)
	if !ok {
		return domain.StockPosition{}, false
	}
	productID, ok := f.id(productIDAliases)
	if !ok {
		return domain.StockPosition{}, false
	}

	return domain.StockPosition{
		MachineID: machineID,
		ProductID: productID,
		Quantity:  f.num(currentStockAliases, 0),
	}, true
}

// Purchase normalizes one vendor purchase row. The product name is resolved against
// the product master when the snapshot is built.
func (n *Normalizer) Purchase(rec domain.RawRecord) (domain.PurchaseOrder, bool) {
	f := newField(rec)
	poNumber, hasPO := f.id(poNumberAliases)
	productID, hasProduct := f.id(productIDAliases)
	if !hasPO && !hasProduct {
		return domain.PurchaseOrder{}, false
	}
	if !hasPO {
		poNumber = defaultPONumber
	}
	if !hasProduct {
		productID = ""
	}

	return domain.PurchaseOrder{
		PONumber:  poNumber,
		Date:      f.day(dateAliases),
		VendorID:  f.str(vendorIDAliases),
		ProductID: productID,
		Cases:     f.num(casesAliases, 0),
		TotalCost: f.num(poTotalAliases, 0),
		Status:    domain.ParsePOStatus(f.str(paymentStatusAliases)),
	}, true
}

// Sale normalizes one sales log row
func (n *Normalizer) Sale(rec domain.RawRecord) (domain.SaleEvent, bool) {
	f := newField(rec)
	machineID, ok := f.id(machineIDAliases)
	if !ok {
		return domain.SaleEvent{}, false
	}
	productID, ok := f.id(productIDAliases)
	if !ok {
		return domain.SaleEvent{}, false
	}

	return domain.SaleEvent{
		Date:         f.day(dateAliases),
		MachineID:    machineID,
		ProductID:    productID,
		Quantity:     f.num(qtySoldAliases, 0),
		SellingPrice: f.num(sellingPriceAliases, 0),
	}, true
}

// Refill normalizes one machine refill log row
func (n *Normalizer) Refill(rec domain.RawRecord) (domain.RefillEvent, bool) {
	f := newField(rec)
	machineID, ok := f.id(machineIDAliases)
	if !ok {
		return domain.RefillEvent{}, false
	}
	productID, ok := f.id(productIDAliases)
	if !ok {
		return domain.RefillEvent{}, false
	}

	return domain.RefillEvent{
		Date:       f.day(dateAliases),
		RefillerID: f.str(refillerIDAliases),
		MachineID:  machineID,
		ProductID:  productID,
		Quantity:   f.num(refillQtyAliases, 0),
	}, true
}

// Vendor normalizes one vendor master row
func (n *Normalizer) Vendor(rec domain.RawRecord) (domain.Vendor, bool) {
	f := newField(rec)
	id, ok := f.id(vendorIDAliases)
	if !ok {
		return domain.Vendor{}, false
	}

	productID, ok := f.id(productIDAliases)
	if !ok {
		productID = ""
	}

	return domain.Vendor{
		VendorID:    id,
		Name:        f.str(vendorNameAliases),
		ProductID:   productID,
		ProductName: f.str(vendorProductAliases),
	}, true
}
