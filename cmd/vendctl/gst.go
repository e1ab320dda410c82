package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/vendbees/backend-go/internal/analytics"
	"github.com/andresuchdata/vendbees/backend-go/internal/domain"
	"github.com/andresuchdata/vendbees/backend-go/internal/normalize"
	"github.com/andresuchdata/vendbees/backend-go/internal/upstream"
)

type gstRow struct {
	ProductID string
	Raw       string
	Rate      float64
	Bucket    string
}

func runGST(c *cli.Context) error {
	rows, err := gstRows(c.Context, c.String("workbook"))
	if err != nil {
		return err
	}
	printGST(c.App.Writer, rows)
	return nil
}

// gstRows lists the tax rate of every product as found in the sheet, as normalized, and the
// dashboard bucket it falls in ("-" when none matches)
func gstRows(ctx context.Context, path string) ([]gstRow, error) {
	raw, err := upstream.NewWorkbookSource(upstream.NewFileBlob(path)).Pull(ctx)
	if err != nil {
		return nil, err
	}

	n := normalize.New()
	buckets := analytics.DefaultBuckets().List()
	out := make([]gstRow, 0, len(raw.Products))
	for _, rec := range raw.Products {
		p, ok := n.Product(rec)
		if !ok {
			continue
		}
		out = append(out, gstRow{
			ProductID: p.ID,
			Raw:       p.RawTaxRate,
			Rate:      p.TaxRate,
			Bucket:    bucketFor(buckets, p),
		})
	}
	return out, nil
}

func bucketFor(buckets []analytics.TaxBucket, p domain.Product) string {
	for _, b := range buckets {
		if b.All {
			continue
		}
		if b.Matches(p.TaxRate) {
			return b.Label
		}
	}
	return "-"
}

func printGST(w io.Writer, rows []gstRow) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT\tRAW\tRATE\tBUCKET")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%q\t%.4f\t%s\n", r.ProductID, r.Raw, r.Rate, r.Bucket)
	}
	tw.Flush()
}
