package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/vendbees/backend-go/internal/domain"
	"github.com/andresuchdata/vendbees/backend-go/internal/normalize"
	"github.com/andresuchdata/vendbees/backend-go/internal/upstream"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newMockSource(t *testing.T) (*Source, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	src := NewSource(Wrap(db), WithClock(func() time.Time { return fixedNow }, time.UTC))
	return src, mock
}

func TestSource_Pull(t *testing.T) {
	src, mock := newMockSource(t)

	mock.ExpectQuery(`SELECT \* FROM products`).WillReturnRows(
		sqlmock.NewRows([]string{"product_id", "product_name", "unit_cost", "tax_rate"}).
			AddRow("P1", "Cola", []byte("100.00"), []byte("18")),
	)
	mock.ExpectQuery(`SELECT \* FROM machines`).WillReturnRows(
		sqlmock.NewRows([]string{"machine_id", "location", "status"}).AddRow("M1", "Lobby", "Active"),
	)
	mock.ExpectQuery(`SELECT \* FROM current_stock`).WillReturnRows(
		sqlmock.NewRows([]string{"machine_id", "product_id", "current_stock"}).AddRow("M1", "P1", []byte("12")),
	)
	mock.ExpectQuery(`SELECT \* FROM vendor_purchases`).WillReturnError(&pq.Error{Code: undefinedTable})
	mock.ExpectQuery(`SELECT \* FROM sales_log`).WillReturnRows(
		sqlmock.NewRows([]string{"date", "machine_id", "product_id", "qty_sold", "selling_price"}).
			AddRow("2024-03-10", "M1", "P1", int64(2), []byte("150")),
	)
	mock.ExpectQuery(`SELECT \* FROM refill_log`).WillReturnRows(sqlmock.NewRows([]string{"date"}))
	mock.ExpectQuery(`SELECT \* FROM vendors`).WillReturnRows(sqlmock.NewRows([]string{"vendor_id"}))

	ds, err := src.Pull(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, ds.Products, 1)
	assert.Equal(t, "100.00", ds.Products[0]["unit_cost"])
	assert.NotNil(t, ds.Purchases)
	assert.Empty(t, ds.Purchases)

	// snake_case columns resolve through the alias table
	c, report := normalize.New().Normalize(*ds)
	assert.Zero(t, report.TotalDropped())
	require.Len(t, c.Products, 1)
	assert.Equal(t, 100.0, c.Products[0].UnitCost)
	assert.Equal(t, 0.18, c.Products[0].TaxRate)
	require.Len(t, c.Stock, 1)
	assert.Equal(t, 12.0, c.Stock[0].Quantity)
	require.Len(t, c.Sales, 1)
	assert.Equal(t, 2.0, c.Sales[0].Quantity)
}

func TestSource_PullQueryError(t *testing.T) {
	src, mock := newMockSource(t)
	mock.ExpectQuery(`SELECT \* FROM products`).WillReturnError(assert.AnError)

	_, err := src.Pull(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestSource_Sell(t *testing.T) {
	src, mock := newMockSource(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT current_stock FROM current_stock`).
		WithArgs("M1", "P1").
		WillReturnRows(sqlmock.NewRows([]string{"current_stock"}).AddRow(10))
	mock.ExpectExec(`UPDATE current_stock SET current_stock = current_stock - \$1`).
		WithArgs(4, "M1", "P1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO sales_log`).
		WithArgs("2024-03-10", "M1", "P1", 4, 150.0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := src.Sell(context.Background(), domain.SellCommand{MachineID: "M1", ProductID: "P1", Quantity: 4, Price: 150})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSource_SellRejections(t *testing.T) {
	src, mock := newMockSource(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT current_stock FROM current_stock`).
		WithArgs("M1", "P2").
		WillReturnRows(sqlmock.NewRows([]string{"current_stock"}).AddRow(3))
	mock.ExpectRollback()

	err := src.Sell(ctx, domain.SellCommand{MachineID: "M1", ProductID: "P2", Quantity: 5})
	assert.ErrorIs(t, err, upstream.ErrInsufficientStock)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT current_stock FROM current_stock`).
		WithArgs("M9", "P1").
		WillReturnRows(sqlmock.NewRows([]string{"current_stock"}))
	mock.ExpectRollback()

	err = src.Sell(ctx, domain.SellCommand{MachineID: "M9", ProductID: "P1", Quantity: 1})
	assert.ErrorIs(t, err, upstream.ErrStockRowNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSource_RefillCreatesMissingRow(t *testing.T) {
	src, mock := newMockSource(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE current_stock SET current_stock = current_stock \+ \$1`).
		WithArgs(5, "M2", "P1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO current_stock`).
		WithArgs("M2", "P1", 5).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO refill_log`).
		WithArgs("2024-03-10", domain.DefaultRefillerID, "M2", "P1", 5).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := src.Refill(context.Background(), domain.RefillCommand{MachineID: "M2", ProductID: "P1", Quantity: 5})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSource_RefillExistingRow(t *testing.T) {
	src, mock := newMockSource(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE current_stock`).
		WithArgs(7, "M1", "P2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO refill_log`).
		WithArgs("2024-03-10", "REF-042", "M1", "P2", 7).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := src.Refill(context.Background(), domain.RefillCommand{MachineID: "M1", ProductID: "P2", Quantity: 7, RefillerID: "REF-042"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
