package main

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"
	"github.com/xuri/excelize/v2"
)

type sheetSummary struct {
	Name    string
	Columns []string
	Rows    int
}

func runInspect(c *cli.Context) error {
	sheets, err := inspectWorkbook(c.String("workbook"))
	if err != nil {
		return err
	}
	printSheets(c.App.Writer, sheets)
	return nil
}

// inspectWorkbook reads the header row and data row count of every sheet, in workbook order
func inspectWorkbook(path string) ([]sheetSummary, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var out []sheetSummary
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
		}
		s := sheetSummary{Name: name}
		if len(rows) > 0 {
			s.Columns = rows[0]
			s.Rows = len(rows) - 1
		}
		out = append(out, s)
	}
	return out, nil
}

func printSheets(w io.Writer, sheets []sheetSummary) {
	for _, s := range sheets {
		fmt.Fprintf(w, "%s (%d rows)\n", s.Name, s.Rows)
		for _, col := range s.Columns {
			// Trailing spaces in headers are significant to the alias lookup
			fmt.Fprintf(w, "  - %q\n", col)
		}
		if len(s.Columns) == 0 {
			fmt.Fprintln(w, "  (no header row)")
		}
	}
}
