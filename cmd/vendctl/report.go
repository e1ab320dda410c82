package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/vendbees/backend-go/internal/analytics"
	"github.com/andresuchdata/vendbees/backend-go/internal/config"
	"github.com/andresuchdata/vendbees/backend-go/internal/domain"
	"github.com/andresuchdata/vendbees/backend-go/internal/normalize"
	"github.com/andresuchdata/vendbees/backend-go/internal/pipeline"
	"github.com/andresuchdata/vendbees/backend-go/internal/repository"
	"github.com/andresuchdata/vendbees/backend-go/internal/upstream"
	"github.com/andresuchdata/vendbees/backend-go/internal/upstream/backends"
)

type fleetReport struct {
	Source   string                 `json:"source"`
	PulledAt time.Time              `json:"pulled_at"`
	Filter   domain.DashboardFilter `json:"filter"`
	Metrics  domain.MetricsSnapshot `json:"metrics"`
	Restock  domain.RestockReport   `json:"restock"`
	Records  normalize.Report       `json:"records"`
}

func runReport(c *cli.Context) error {
	cfg := config.Load()
	loc, err := cfg.Sync.Location()
	if err != nil {
		return err
	}

	var source upstream.Source
	if path := c.String("workbook"); path != "" {
		source = upstream.NewWorkbookSource(upstream.NewFileBlob(path), upstream.WithWorkbookClock(time.Now, loc))
	} else if source, err = backends.Open(c.Context, cfg, loc); err != nil {
		return err
	}

	filter := domain.DashboardFilter{
		MachineID: c.String("machine"),
		TaxBucket: c.String("tax-bucket"),
	}
	report, err := buildReport(c.Context, source, analytics.NewEngine(analytics.WithLocation(loc)), filter)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// buildReport runs a single pull through a controller and computes the metrics of the result
func buildReport(ctx context.Context, source upstream.Source, engine *analytics.Engine, filter domain.DashboardFilter) (*fleetReport, error) {
	ctrl := pipeline.NewController(source, repository.NewReconciliationStore(), pipeline.DefaultConfig())

	var records normalize.Report
	ctrl.OnRefresh(func(o pipeline.RefreshOutcome) {
		records = o.Report
	})
	if err := ctrl.Refresh(ctx); err != nil {
		return nil, err
	}

	snap := ctrl.Store().Current()
	summary, err := engine.Summary(snap, filter)
	if err != nil {
		return nil, err
	}

	return &fleetReport{
		Source:   snap.Source,
		PulledAt: snap.PulledAt,
		Filter:   filter,
		Metrics:  summary,
		Restock:  engine.LowStock(snap, filter.MachineID),
		Records:  records,
	}, nil
}
