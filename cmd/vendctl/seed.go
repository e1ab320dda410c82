package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/vendbees/backend-go/internal/domain"
	"github.com/andresuchdata/vendbees/backend-go/internal/normalize"
	"github.com/andresuchdata/vendbees/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/vendbees/backend-go/internal/upstream"
)

func runSeed(c *cli.Context) error {
	raw, err := upstream.NewWorkbookSource(upstream.NewFileBlob(c.String("workbook"))).Pull(c.Context)
	if err != nil {
		return err
	}
	collections, report := normalize.New().Normalize(*raw)
	if dropped := report.TotalDropped(); dropped > 0 {
		log.Warn().Interface("dropped", report.Dropped).Msg("seed: malformed rows skipped")
	}

	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(c.Context); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	counts, err := seedCollections(c.Context, db, collections, c.Bool("truncate"))
	if err != nil {
		return err
	}
	for _, kind := range domain.AllKinds {
		fmt.Fprintf(c.App.Writer, "%-10s %d\n", kind, counts[kind])
	}
	return nil
}

// seedCollections creates the schema and inserts every normalized row in one transaction
func seedCollections(ctx context.Context, db *sql.DB, c domain.Collections, truncate bool) (map[domain.EntityKind]int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, postgres.Schema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if truncate {
		tables := make([]string, 0, len(domain.AllKinds))
		for _, kind := range domain.AllKinds {
			tables = append(tables, postgres.TableFor[kind])
		}
		if _, err := tx.ExecContext(ctx, "TRUNCATE "+strings.Join(tables, ", ")); err != nil {
			return nil, fmt.Errorf("failed to truncate tables: %w", err)
		}
	}

	counts := make(map[domain.EntityKind]int, len(domain.AllKinds))
	insert := func(kind domain.EntityKind, query string, args ...any) error {
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", postgres.TableFor[kind], err)
		}
		counts[kind]++
		return nil
	}

	for _, p := range c.Products {
		if err := insert(domain.KindProducts, `
			INSERT INTO products (product_id, product_name, category, unit_cost, tax_rate, case_size, reorder_level, mrp)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (product_id) DO UPDATE SET
				product_name = EXCLUDED.product_name,
				category = EXCLUDED.category,
				unit_cost = EXCLUDED.unit_cost,
				tax_rate = EXCLUDED.tax_rate,
				case_size = EXCLUDED.case_size,
				reorder_level = EXCLUDED.reorder_level,
				mrp = EXCLUDED.mrp`,
			p.ID, p.Name, p.Category, p.UnitCost, p.TaxRate, int(p.CaseSize), int(p.ReorderLevel), p.MRP); err != nil {
			return nil, err
		}
	}
	for _, m := range c.Machines {
		if err := insert(domain.KindMachines, `
			INSERT INTO machines (machine_id, location, status) VALUES ($1, $2, $3)
			ON CONFLICT (machine_id) DO UPDATE SET location = EXCLUDED.location, status = EXCLUDED.status`,
			m.ID, m.Location, string(m.Status)); err != nil {
			return nil, err
		}
	}
	for _, s := range c.Stock {
		if err := insert(domain.KindStock, `
			INSERT INTO current_stock (machine_id, product_id, current_stock) VALUES ($1, $2, $3)
			ON CONFLICT (machine_id, product_id) DO UPDATE SET current_stock = EXCLUDED.current_stock`,
			s.MachineID, s.ProductID, s.Quantity); err != nil {
			return nil, err
		}
	}
	for _, po := range c.Purchases {
		if err := insert(domain.KindPurchases, `
			INSERT INTO vendor_purchases (po_number, date, vendor_id, product_id, cases, total_cost, payment_status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			po.PONumber, po.Date, po.VendorID, po.ProductID, po.Cases, po.TotalCost, string(po.Status)); err != nil {
			return nil, err
		}
	}
	for _, s := range c.Sales {
		if err := insert(domain.KindSales, `
			INSERT INTO sales_log (date, machine_id, product_id, qty_sold, selling_price) VALUES ($1, $2, $3, $4, $5)`,
			s.Date, s.MachineID, s.ProductID, s.Quantity, s.SellingPrice); err != nil {
			return nil, err
		}
	}
	for _, r := range c.Refills {
		if err := insert(domain.KindRefills, `
			INSERT INTO refill_log (date, refiller_id, machine_id, product_id, qty) VALUES ($1, $2, $3, $4, $5)`,
			r.Date, r.RefillerID, r.MachineID, r.ProductID, r.Quantity); err != nil {
			return nil, err
		}
	}
	for _, v := range c.Vendors {
		if err := insert(domain.KindVendors, `
			INSERT INTO vendors (vendor_id, vendor_name, product_id, product_name) VALUES ($1, $2, $3, $4)`,
			v.VendorID, v.Name, v.ProductID, v.ProductName); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return counts, nil
}
