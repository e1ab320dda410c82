package normalize

// Accepted upstream column names per canonical field, in precedence order.
// Exact names are tried first, then a case/separator-insensitive match.
var (
	productIDAliases     = []string{"PRODUCT_ID", "Product_ID"}
	productNameAliases   = []string{"PRODUCT_NAME", "Product_Name", "Name"}
	categoryAliases      = []string{"CATEGORY", "Category"}
	unitCostAliases      = []string{"PO", "Unit_Cost"}
	taxRateAliases       = []string{"GST", "Tax_Rate"}
	caseSizeAliases      = []string{"QUANTITY", "Case_Size"}
	reorderLevelAliases  = []string{"Reorder_Level"}
	mrpAliases           = []string{"MRP"}
	machineIDAliases     = []string{"Machine_ID", "MACHINE_ID"}
	locationAliases      = []string{"Location", "LOCATION"}
	statusAliases        = []string{"Status", "STATUS"}
	currentStockAliases  = []string{"Current_Stock", "Qty"}
	poNumberAliases      = []string{"PO Bill", "PO_ID", "PO_Number"}
	dateAliases          = []string{"Date", "DATE"}
	vendorIDAliases      = []string{"Vendor_ID", "VENDOR_ID"}
	casesAliases         = []string{"Qty", "Cases"}
	poTotalAliases       = []string{"PO_Price", "Actual PO price", "Total_Cost"}
	paymentStatusAliases = []string{"Payment Status ", "Status"}
	qtySoldAliases       = []string{"Qty Sold", "Qty"}
	sellingPriceAliases  = []string{"Selling_Price", "Price"}
	refillerIDAliases    = []string{"Refiller_ID"}
	refillQtyAliases     = []string{"Qty", "Quantity"}
	vendorNameAliases    = []string{"Name", "Vendor_Name"}
	vendorProductAliases = []string{"Product_Name", "PRODUCT_NAME"}
)

const (
	defaultCaseSize     = 24
	defaultReorderLevel = 20
	defaultPONumber     = "PO-XXX"
)

// field resolves aliases against one raw record. The normalized key index is built on first miss.
type field struct {
	rec  map[string]any
	norm map[string]any
}

func newField(rec map[string]any) *field {
	return &field{rec: rec}
}

// lookup returns the first non-blank value among aliases
func (f *field) lookup(aliases []string) (any, bool) {
	for _, alias := range aliases {
		if v, ok := f.rec[alias]; ok && !isBlank(v) {
			return v, true
		}
		if v, ok := f.normalized()[normalizeColumnName(alias)]; ok && !isBlank(v) {
			return v, true
		}
	}
	return nil, false
}

func (f *field) normalized() map[string]any {
	if f.norm != nil {
		return f.norm
	}
	f.norm = make(map[string]any, len(f.rec))
	for k, v := range f.rec {
		nk := normalizeColumnName(k)
		if cur, exists := f.norm[nk]; exists && !isBlank(cur) {
			continue
		}
		f.norm[nk] = v
	}
	return f.norm
}

func (f *field) str(aliases []string) string {
	v, ok := f.lookup(aliases)
	if !ok {
		return ""
	}
	return toString(v)
}

func (f *field) num(aliases []string, def float64) float64 {
	v, ok := f.lookup(aliases)
	if !ok {
		return def
	}
	return numberOr(v, def)
}

func (f *field) day(aliases []string) string {
	v, ok := f.lookup(aliases)
	if !ok {
		return ""
	}
	return parseDay(v)
}

// id resolves an identifier and reports whether it is usable. Blank values, "nan"
// and values repeating one of the column's own names (a header row in the data) are not.
func (f *field) id(aliases []string) (string, bool) {
	s := f.str(aliases)
	return s, validID(s, aliases)
}

func validID(s string, aliases []string) bool {
	if s == "" {
		return false
	}
	norm := normalizeColumnName(s)
	if norm == "nan" {
		return false
	}
	for _, alias := range aliases {
		if norm == normalizeColumnName(alias) {
			return false
		}
	}
	return true
}
