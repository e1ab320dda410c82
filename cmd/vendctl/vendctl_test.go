package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/vendbees/backend-go/internal/analytics"
	"github.com/andresuchdata/vendbees/backend-go/internal/domain"
	"github.com/andresuchdata/vendbees/backend-go/internal/upstream"
)

func writeFixture(t *testing.T) string {
	t.Helper()
	sheets := map[string][][]any{
		upstream.SheetProducts: {
			{"PRODUCT_ID", "PRODUCT_NAME", "CATEGORY", "PO", "GST"},
			{"P1", "Cola", "Beverages", 100, 18},
			{"P2", "Chips", "Snacks", 50, "5%"},
			{"P3", "Water", "Beverages", 20},
		},
		upstream.SheetMachines: {
			{"Machine_ID", "Location", "Status"},
			{"M1", "Lobby", "Active"},
		},
		upstream.SheetStock: {
			{"Machine_ID", "Product_ID", "Current_Stock"},
			{"M1", "P1", 12},
			{"M1", "P2", 3},
		},
		upstream.SheetSales: {
			{"Date", "Machine_ID", "Product_ID", "Qty Sold", "Selling_Price"},
			{"2024-03-09", "M1", "P1", 2, 150},
		},
	}

	path := filepath.Join(t.TempDir(), "ventory_sheet.xlsx")
	f := excelize.NewFile()
	defer f.Close()
	for name, rows := range sheets {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestInspectWorkbook(t *testing.T) {
	sheets, err := inspectWorkbook(writeFixture(t))
	require.NoError(t, err)

	byName := map[string]sheetSummary{}
	for _, s := range sheets {
		byName[s.Name] = s
	}
	require.Contains(t, byName, upstream.SheetProducts)
	assert.Equal(t, 3, byName[upstream.SheetProducts].Rows)
	assert.Equal(t, []string{"PRODUCT_ID", "PRODUCT_NAME", "CATEGORY", "PO", "GST"}, byName[upstream.SheetProducts].Columns)
	assert.Equal(t, 1, byName[upstream.SheetSales].Rows)

	_, err = inspectWorkbook(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.ErrorContains(t, err, "failed to open workbook")
}

func TestGSTRows(t *testing.T) {
	rows, err := gstRows(context.Background(), writeFixture(t))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "P1", rows[0].ProductID)
	assert.Equal(t, "18", rows[0].Raw)
	assert.InDelta(t, 0.18, rows[0].Rate, 1e-9)
	assert.Equal(t, "GST @ 18%", rows[0].Bucket)

	assert.Equal(t, "5%", rows[1].Raw)
	assert.InDelta(t, 0.05, rows[1].Rate, 1e-9)
	assert.Equal(t, "GST @ 5%", rows[1].Bucket)

	assert.Zero(t, rows[2].Rate)
	assert.Equal(t, "None", rows[2].Bucket)

	var buf bytes.Buffer
	printGST(&buf, rows)
	assert.Contains(t, buf.String(), "GST @ 18%")
}

func TestBuildReport(t *testing.T) {
	source := upstream.NewWorkbookSource(upstream.NewFileBlob(writeFixture(t)))

	report, err := buildReport(context.Background(), source, analytics.NewEngine(),
		domain.DashboardFilter{TaxBucket: "GST @ 18%"})
	require.NoError(t, err)

	assert.Equal(t, "workbook", report.Source)
	assert.InDelta(t, 1350, report.Metrics.TotalStockValue, 1e-9)
	assert.InDelta(t, 1200, report.Metrics.TaxFilteredStockValue, 1e-9)
	assert.InDelta(t, 15, report.Metrics.TotalUnits, 1e-9)
	assert.InDelta(t, 54, report.Metrics.TaxPayable, 1e-6)
	assert.Equal(t, 1, report.Metrics.ActiveMachines)
	assert.Equal(t, 1, report.Restock.CriticalCount)
	assert.Equal(t, 1, report.Restock.LowCount)
	assert.Equal(t, 3, report.Records.Read[domain.KindProducts])

	_, err = buildReport(context.Background(), source, analytics.NewEngine(),
		domain.DashboardFilter{TaxBucket: "luxury"})
	assert.ErrorIs(t, err, analytics.ErrUnknownTaxBucket)
}

func TestBuildReport_PullFailure(t *testing.T) {
	source := upstream.NewWorkbookSource(upstream.NewFileBlob(filepath.Join(t.TempDir(), "missing.xlsx")))

	_, err := buildReport(context.Background(), source, analytics.NewEngine(), domain.DashboardFilter{})
	assert.Error(t, err)
}

func TestSeedCollections(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	c := domain.Collections{
		Products: []domain.Product{{ID: "P1", Name: "Cola", Category: "Beverages", UnitCost: 100, TaxRate: 0.18, CaseSize: 24, ReorderLevel: 20}},
		Machines: []domain.Machine{{ID: "M1", Location: "Lobby", Status: domain.MachineActive}},
		Stock:    []domain.StockPosition{{MachineID: "M1", ProductID: "P1", Quantity: 12}},
	}

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS products").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("TRUNCATE products, machines, current_stock, vendor_purchases, sales_log, refill_log, vendors").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO products").
		WithArgs("P1", "Cola", "Beverages", 100.0, 0.18, 24, 20, 0.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO machines").
		WithArgs("M1", "Lobby", "Active").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO current_stock").
		WithArgs("M1", "P1", 12.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	counts, err := seedCollections(context.Background(), db, c, true)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[domain.KindProducts])
	assert.Equal(t, 1, counts[domain.KindStock])
	assert.Zero(t, counts[domain.KindSales])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedCollections_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS products").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO machines").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err = seedCollections(context.Background(), db, domain.Collections{
		Machines: []domain.Machine{{ID: "M1"}},
	}, false)
	assert.ErrorContains(t, err, "machines")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApp_Inspect(t *testing.T) {
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out

	require.NoError(t, app.Run([]string{"vendctl", "inspect", "--workbook", writeFixture(t)}))
	assert.Contains(t, out.String(), "Product_Master (3 rows)")
	assert.Contains(t, out.String(), `"PRODUCT_ID"`)
}

func TestApp_ReportJSON(t *testing.T) {
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out

	require.NoError(t, app.Run([]string{"vendctl", "report", "--workbook", writeFixture(t), "--machine", "M1"}))

	var report fleetReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, "M1", report.Filter.MachineID)
	assert.InDelta(t, 1350, report.Metrics.TotalStockValue, 1e-9)
}
