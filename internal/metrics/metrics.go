package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andresuchdata/vendbees/backend-go/internal/domain"
	"github.com/andresuchdata/vendbees/backend-go/internal/pipeline"
	"github.com/andresuchdata/vendbees/backend-go/internal/upstream"
)

type Registry struct {
	reg               *prometheus.Registry
	Refreshes         *prometheus.CounterVec
	RefreshLatencySec prometheus.Histogram
	SnapshotVersion   prometheus.Gauge
	UpstreamConnected prometheus.Gauge
	Dropped           *prometheus.CounterVec
	Commands          *prometheus.CounterVec

	// figures of the latest snapshot, unfiltered
	StockValue prometheus.Gauge
	StockUnits prometheus.Gauge
	OutOfStock prometheus.Gauge
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	refreshes := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "vend_refresh_total"}, []string{"result"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "vend_refresh_latency_seconds",
		Buckets: prometheus.DefBuckets,
	})
	version := prometheus.NewGauge(prometheus.GaugeOpts{Name: "vend_snapshot_version"})
	connected := prometheus.NewGauge(prometheus.GaugeOpts{Name: "vend_upstream_connected"})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "vend_records_dropped_total"}, []string{"kind"})
	commands := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "vend_commands_total"}, []string{"command", "result"})
	stockValue := prometheus.NewGauge(prometheus.GaugeOpts{Name: "vend_stock_value"})
	stockUnits := prometheus.NewGauge(prometheus.GaugeOpts{Name: "vend_stock_units"})
	outOfStock := prometheus.NewGauge(prometheus.GaugeOpts{Name: "vend_out_of_stock_positions"})

	r.MustRegister(refreshes, latency, version, connected, dropped, commands, stockValue, stockUnits, outOfStock)
	return &Registry{
		reg:               r,
		Refreshes:         refreshes,
		RefreshLatencySec: latency,
		SnapshotVersion:   version,
		UpstreamConnected: connected,
		Dropped:           dropped,
		Commands:          commands,
		StockValue:        stockValue,
		StockUnits:        stockUnits,
		OutOfStock:        outOfStock,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// ObserveRefresh records one pull attempt. It is meant to be registered with
// Controller.OnRefresh.
func (r *Registry) ObserveRefresh(o pipeline.RefreshOutcome) {
	r.RefreshLatencySec.Observe(o.Duration.Seconds())
	if o.Err != nil {
		r.Refreshes.WithLabelValues("error").Inc()
		r.UpstreamConnected.Set(0)
		return
	}

	r.Refreshes.WithLabelValues("ok").Inc()
	r.UpstreamConnected.Set(1)
	for kind, n := range o.Report.Dropped {
		if n > 0 {
			r.Dropped.WithLabelValues(string(kind)).Add(float64(n))
		}
	}
	if o.Snapshot != nil {
		r.SnapshotVersion.Set(float64(o.Snapshot.Version))
	}
}

// ObserveSummary publishes the unfiltered headline figures
func (r *Registry) ObserveSummary(m domain.MetricsSnapshot) {
	r.StockValue.Set(m.TotalStockValue)
	r.StockUnits.Set(m.TotalUnits)
	r.OutOfStock.Set(float64(m.OutOfStockCount))
}

// ObserveCommand counts a sell/refill by outcome
func (r *Registry) ObserveCommand(command string, err error) {
	r.Commands.WithLabelValues(command, commandResult(err)).Inc()
}

func commandResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, pipeline.ErrInvalidCommand):
		return "invalid"
	case errors.Is(err, upstream.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, upstream.ErrStockRowNotFound):
		return "not_found"
	}
	return "error"
}
