package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/vendbees/backend-go/internal/domain"
	"github.com/andresuchdata/vendbees/backend-go/internal/upstream"
)

// TableFor maps each entity kind to its table. Column names follow the workbook headers in
// snake case (product_id, current_stock, qty_sold, ...).
var TableFor = map[domain.EntityKind]string{
	domain.KindProducts:  "products",
	domain.KindMachines:  "machines",
	domain.KindStock:     "current_stock",
	domain.KindPurchases: "vendor_purchases",
	domain.KindSales:     "sales_log",
	domain.KindRefills:   "refill_log",
	domain.KindVendors:   "vendors",
}

// Schema creates the tables the source reads and writes
const Schema = `
CREATE TABLE IF NOT EXISTS products (
	product_id    TEXT PRIMARY KEY,
	product_name  TEXT,
	category      TEXT,
	unit_cost     NUMERIC,
	tax_rate      NUMERIC,
	case_size     INTEGER,
	reorder_level INTEGER,
	mrp           NUMERIC
);
CREATE TABLE IF NOT EXISTS machines (
	machine_id TEXT PRIMARY KEY,
	location   TEXT,
	status     TEXT
);
CREATE TABLE IF NOT EXISTS current_stock (
	machine_id    TEXT NOT NULL,
	product_id    TEXT NOT NULL,
	current_stock NUMERIC NOT NULL DEFAULT 0,
	PRIMARY KEY (machine_id, product_id)
);
CREATE TABLE IF NOT EXISTS vendor_purchases (
	id             BIGSERIAL PRIMARY KEY,
	po_number      TEXT,
	date           TEXT,
	vendor_id      TEXT,
	product_id     TEXT,
	cases          NUMERIC,
	total_cost     NUMERIC,
	payment_status TEXT
);
CREATE TABLE IF NOT EXISTS sales_log (
	id            BIGSERIAL PRIMARY KEY,
	date          TEXT,
	machine_id    TEXT,
	product_id    TEXT,
	qty_sold      NUMERIC,
	selling_price NUMERIC
);
CREATE TABLE IF NOT EXISTS refill_log (
	id          BIGSERIAL PRIMARY KEY,
	date        TEXT,
	refiller_id TEXT,
	machine_id  TEXT,
	product_id  TEXT,
	qty         NUMERIC
);
CREATE TABLE IF NOT EXISTS vendors (
	vendor_id    TEXT,
	vendor_name  TEXT,
	product_id   TEXT,
	product_name TEXT
);
`

const undefinedTable = "42P01"

// Source reads the dataset from postgres tables and applies commands transactionally
type Source struct {
	db  *DB
	now func() time.Time
	loc *time.Location
}

// SourceOption configures a Source
type SourceOption func(*Source)

// WithClock sets the clock used to date log rows
func WithClock(now func() time.Time, loc *time.Location) SourceOption {
	return func(s *Source) {
		if now != nil {
			s.now = now
		}
		if loc != nil {
			s.loc = loc
		}
	}
}

func NewSource(db *DB, opts ...SourceOption) *Source {
	s := &Source{db: db, now: time.Now, loc: time.Local}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Source) Kind() string { return "postgres" }

// Pull reads every table as loosely typed rows. A missing table gives an empty group.
func (s *Source) Pull(ctx context.Context) (*domain.RawDataset, error) {
	ds := &domain.RawDataset{}
	for _, kind := range domain.AllKinds {
		records, err := s.pullTable(ctx, TableFor[kind])
		if err != nil {
			return nil, err
		}
		ds.SetRecords(kind, records)
	}
	return ds, nil
}

func (s *Source) pullTable(ctx context.Context, table string) ([]domain.RawRecord, error) {
	records := []domain.RawRecord{}

	rows, err := s.db.QueryxContext(ctx, "SELECT * FROM "+table)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == undefinedTable {
			log.Debug().Str("table", table).Msg("postgres: table missing, treating as empty")
			return records, nil
		}
		return nil, fmt.Errorf("error querying %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		rec := map[string]interface{}{}
		if err := rows.MapScan(rec); err != nil {
			return nil, fmt.Errorf("error scanning %s: %w", table, err)
		}
		for k, v := range rec {
			// NUMERIC columns arrive as text bytes
			if b, ok := v.([]byte); ok {
				rec[k] = string(b)
			}
		}
		records = append(records, domain.RawRecord(rec))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", table, err)
	}
	return records, nil
}

func (s *Source) Sell(ctx context.Context, cmd domain.SellCommand) error {
	day := s.today()
	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var current float64
		err := tx.QueryRowContext(ctx,
			`SELECT current_stock FROM current_stock WHERE machine_id = $1 AND product_id = $2 FOR UPDATE`,
			cmd.MachineID, cmd.ProductID,
		).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return upstream.ErrStockRowNotFound
		}
		if err != nil {
			return fmt.Errorf("error locking stock row: %w", err)
		}
		if current < float64(cmd.Quantity) {
			return upstream.ErrInsufficientStock
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE current_stock SET current_stock = current_stock - $1 WHERE machine_id = $2 AND product_id = $3`,
			cmd.Quantity, cmd.MachineID, cmd.ProductID,
		); err != nil {
			return fmt.Errorf("error updating stock: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sales_log (date, machine_id, product_id, qty_sold, selling_price) VALUES ($1, $2, $3, $4, $5)`,
			day, cmd.MachineID, cmd.ProductID, cmd.Quantity, cmd.Price,
		); err != nil {
			return fmt.Errorf("error logging sale: %w", err)
		}
		return nil
	})
}

func (s *Source) Refill(ctx context.Context, cmd domain.RefillCommand) error {
	day := s.today()
	refillerID := cmd.RefillerID
	if refillerID == "" {
		refillerID = domain.DefaultRefillerID
	}

	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE current_stock SET current_stock = current_stock + $1 WHERE machine_id = $2 AND product_id = $3`,
			cmd.Quantity, cmd.MachineID, cmd.ProductID,
		)
		if err != nil {
			return fmt.Errorf("error updating stock: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("error reading affected rows: %w", err)
		}
		if n == 0 {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO current_stock (machine_id, product_id, current_stock) VALUES ($1, $2, $3)`,
				cmd.MachineID, cmd.ProductID, cmd.Quantity,
			); err != nil {
				return fmt.Errorf("error inserting stock row: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO refill_log (date, refiller_id, machine_id, product_id, qty) VALUES ($1, $2, $3, $4, $5)`,
			day, refillerID, cmd.MachineID, cmd.ProductID, cmd.Quantity,
		); err != nil {
			return fmt.Errorf("error logging refill: %w", err)
		}
		return nil
	})
}

func (s *Source) today() string {
	return s.now().In(s.loc).Format("2006-01-02")
}
