package upstream

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/vendbees/backend-go/internal/domain"
	"github.com/andresuchdata/vendbees/backend-go/internal/normalize"
)

// Sheet names of the inventory workbook
const (
	SheetProducts  = "Product_Master"
	SheetMachines  = "Machine_Master"
	SheetStock     = "Current_Stock"
	SheetSales     = "Sales_Log"
	SheetPurchases = "Vendor_Purchase"
	SheetRefills   = "Machine_Refill_Log"
	SheetVendors   = "Vendor_Master"
)

// SheetFor maps each entity kind to its worksheet
var SheetFor = map[domain.EntityKind]string{
	domain.KindProducts:  SheetProducts,
	domain.KindMachines:  SheetMachines,
	domain.KindStock:     SheetStock,
	domain.KindPurchases: SheetPurchases,
	domain.KindSales:     SheetSales,
	domain.KindRefills:   SheetRefills,
	domain.KindVendors:   SheetVendors,
}

var (
	salesLogHeader  = []string{"Date", "Machine_ID", "Product_ID", "Qty Sold", "Selling_Price"}
	refillLogHeader = []string{"Date", "Refiller_ID", "Machine_ID", "Product_ID", "Qty"}
	stockHeader     = []string{"Machine_ID", "Product_ID", "Current_Stock"}
)

// ParseWorkbook reads every known sheet of an xlsx file. Missing sheets give empty groups.
func ParseWorkbook(data []byte) (*domain.RawDataset, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return readWorkbook(f)
}

func readWorkbook(f *excelize.File) (*domain.RawDataset, error) {
	ds := &domain.RawDataset{}
	for _, kind := range domain.AllKinds {
		t, ok, err := loadTable(f, SheetFor[kind])
		if err != nil {
			return nil, err
		}
		records := []domain.RawRecord{}
		if ok {
			records = t.records()
		}
		ds.SetRecords(kind, records)
	}
	return ds, nil
}

// sheetTable is one worksheet read as a header row followed by data rows
type sheetTable struct {
	f      *excelize.File
	sheet  string
	header []string
	rows   [][]string // rows[0] is the header
}

func loadTable(f *excelize.File, sheet string) (*sheetTable, bool, error) {
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, false, nil
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, false, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	t := &sheetTable{f: f, sheet: sheet, rows: rows}
	if len(rows) > 0 {
		t.header = rows[0]
	}
	return t, true, nil
}

func (t *sheetTable) records() []domain.RawRecord {
	out := make([]domain.RawRecord, 0, len(t.rows))
	for _, row := range t.rows[min(1, len(t.rows)):] {
		rec := domain.RawRecord{}
		empty := true
		for i, name := range t.header {
			if strings.TrimSpace(name) == "" || i >= len(row) {
				continue
			}
			cell := row[i]
			if strings.TrimSpace(cell) != "" {
				empty = false
			}
			rec[name] = cellValue(name, cell)
		}
		if !empty {
			out = append(out, rec)
		}
	}
	return out
}

// cellValue types a raw cell: canonical numbers become float64, date serials in a
// Date column become YYYY-MM-DD, everything else stays text.
func cellValue(header, raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || strconv.FormatFloat(f, 'f', -1, 64) != s {
		return s
	}
	if normalize.ColumnKey(header) == "date" && f > 0 {
		if ts, err := excelize.ExcelDateToTime(f, false); err == nil {
			return ts.Format("2006-01-02")
		}
	}
	return f
}

// col returns the index of the first header matching any name, or -1
func (t *sheetTable) col(names ...string) int {
	for _, name := range names {
		key := normalize.ColumnKey(name)
		for i, h := range t.header {
			if normalize.ColumnKey(h) == key {
				return i
			}
		}
	}
	return -1
}

func (t *sheetTable) cell(row, col int) string {
	if row < 0 || row >= len(t.rows) || col < 0 || col >= len(t.rows[row]) {
		return ""
	}
	return strings.TrimSpace(t.rows[row][col])
}

// find returns the first data row whose machine and product cells match, or -1
func (t *sheetTable) find(machineID, productID string) int {
	mc := t.col("Machine_ID")
	pc := t.col("Product_ID", "PRODUCT_ID")
	if mc < 0 || pc < 0 {
		return -1
	}
	for r := 1; r < len(t.rows); r++ {
		if t.cell(r, mc) == machineID && t.cell(r, pc) == productID {
			return r
		}
	}
	return -1
}

func (t *sheetTable) set(row, col int, v any) error {
	cell, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return err
	}
	if err := t.f.SetCellValue(t.sheet, cell, v); err != nil {
		return fmt.Errorf("failed to set %s!%s: %w", t.sheet, cell, err)
	}
	return nil
}

// appendRow writes values under the headers they match (by column key) on a new last row
func (t *sheetTable) appendRow(values map[string]any) error {
	byKey := make(map[string]any, len(values))
	for k, v := range values {
		byKey[normalize.ColumnKey(k)] = v
	}

	row := len(t.rows)
	if row == 0 {
		row = 1
	}
	for i, h := range t.header {
		v, ok := byKey[normalize.ColumnKey(h)]
		if !ok {
			continue
		}
		if err := t.set(row, i, v); err != nil {
			return err
		}
	}
	t.rows = append(t.rows, make([]string, len(t.header)))
	return nil
}

// openOrCreate loads a sheet, creating it with the given header when absent
func openOrCreate(f *excelize.File, sheet string, header []string) (*sheetTable, error) {
	t, ok, err := loadTable(f, sheet)
	if err != nil {
		return nil, err
	}
	if ok && len(t.header) > 0 {
		return t, nil
	}

	if !ok {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}
	}
	row := make([]any, len(header))
	for i, h := range header {
		row[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return nil, fmt.Errorf("failed to write header of %s: %w", sheet, err)
	}
	return &sheetTable{f: f, sheet: sheet, header: header, rows: [][]string{header}}, nil
}

// applySell decrements the stock row and appends a sales log line
func applySell(f *excelize.File, cmd domain.SellCommand, day string) error {
	stock, ok, err := loadTable(f, SheetStock)
	if err != nil {
		return err
	}
	if !ok {
		return ErrStockRowNotFound
	}

	r := stock.find(cmd.MachineID, cmd.ProductID)
	if r < 0 {
		return ErrStockRowNotFound
	}
	qc := stock.col("Current_Stock")
	if qc < 0 {
		return fmt.Errorf("sheet %s has no Current_Stock column", SheetStock)
	}

	current, _ := strconv.ParseFloat(stock.cell(r, qc), 64)
	if current < float64(cmd.Quantity) {
		return ErrInsufficientStock
	}
	if err := stock.set(r, qc, current-float64(cmd.Quantity)); err != nil {
		return err
	}

	sales, err := openOrCreate(f, SheetSales, salesLogHeader)
	if err != nil {
		return err
	}
	return sales.appendRow(map[string]any{
		"Date":          day,
		"Machine_ID":    cmd.MachineID,
		"Product_ID":    cmd.ProductID,
		"Qty Sold":      cmd.Quantity,
		"Selling_Price": cmd.Price,
	})
}

// applyRefill increments (or creates) the stock row and appends a refill log line
func applyRefill(f *excelize.File, cmd domain.RefillCommand, day string) error {
	stock, err := openOrCreate(f, SheetStock, stockHeader)
	if err != nil {
		return err
	}

	if r := stock.find(cmd.MachineID, cmd.ProductID); r >= 0 {
		qc := stock.col("Current_Stock")
		if qc < 0 {
			return fmt.Errorf("sheet %s has no Current_Stock column", SheetStock)
		}
		current, _ := strconv.ParseFloat(stock.cell(r, qc), 64)
		if err := stock.set(r, qc, current+float64(cmd.Quantity)); err != nil {
			return err
		}
	} else if err := stock.appendRow(map[string]any{
		"Machine_ID":    cmd.MachineID,
		"Product_ID":    cmd.ProductID,
		"Current_Stock": cmd.Quantity,
	}); err != nil {
		return err
	}

	refillerID := cmd.RefillerID
	if refillerID == "" {
		refillerID = domain.DefaultRefillerID
	}
	refills, err := openOrCreate(f, SheetRefills, refillLogHeader)
	if err != nil {
		return err
	}
	return refills.appendRow(map[string]any{
		"Date":        day,
		"Refiller_ID": refillerID,
		"Machine_ID":  cmd.MachineID,
		"Product_ID":  cmd.ProductID,
		"Qty":         cmd.Quantity,
	})
}
