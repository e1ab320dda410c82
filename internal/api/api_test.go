package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/vendbees/backend-go/internal/analytics"
	"github.com/andresuchdata/vendbees/backend-go/internal/domain"
	"github.com/andresuchdata/vendbees/backend-go/internal/metrics"
	"github.com/andresuchdata/vendbees/backend-go/internal/pipeline"
	"github.com/andresuchdata/vendbees/backend-go/internal/repository"
	"github.com/andresuchdata/vendbees/backend-go/internal/service"
	"github.com/andresuchdata/vendbees/backend-go/internal/upstream"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// sheetSource keeps stock in memory and applies the upstream sell/refill rules
type sheetSource struct {
	mu    sync.Mutex
	stock map[[2]string]float64
}

func (s *sheetSource) Kind() string { return "memory" }

func (s *sheetSource) Pull(context.Context) (*domain.RawDataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds := &domain.RawDataset{
		Products: []domain.RawRecord{
			{"PRODUCT_ID": "P1", "PRODUCT_NAME": "Cola", "CATEGORY": "Beverages", "PO": 100.0, "GST": 18.0, "Reorder_Level": 20.0},
			{"PRODUCT_ID": "P2", "PRODUCT_NAME": "Chips", "CATEGORY": "Snacks", "PO": 50.0, "GST": "5%", "Reorder_Level": 6.0},
		},
		Machines: []domain.RawRecord{
			{"Machine_ID": "M1", "Location": "Lobby", "Status": "Active"},
		},
	}
	for _, key := range [][2]string{{"M1", "P1"}, {"M1", "P2"}} {
		if qty, ok := s.stock[key]; ok {
			ds.Stock = append(ds.Stock, domain.RawRecord{"Machine_ID": key[0], "Product_ID": key[1], "Current_Stock": qty})
		}
	}
	return ds, nil
}

func (s *sheetSource) Sell(_ context.Context, cmd domain.SellCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]string{cmd.MachineID, cmd.ProductID}
	qty, ok := s.stock[key]
	if !ok {
		return upstream.ErrStockRowNotFound
	}
	if qty < float64(cmd.Quantity) {
		return upstream.ErrInsufficientStock
	}
	s.stock[key] = qty - float64(cmd.Quantity)
	return nil
}

func (s *sheetSource) Refill(_ context.Context, cmd domain.RefillCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[[2]string{cmd.MachineID, cmd.ProductID}] += float64(cmd.Quantity)
	return nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	src := &sheetSource{stock: map[[2]string]float64{{"M1", "P1"}: 12, {"M1", "P2"}: 3}}
	store := repository.NewReconciliationStore()
	ctrl := pipeline.NewController(src, store, pipeline.DefaultConfig())

	reg := metrics.NewRegistry()
	ctrl.OnRefresh(reg.ObserveRefresh)
	require.NoError(t, ctrl.Refresh(context.Background()))

	engine := analytics.NewEngine(
		analytics.WithClock(func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) }),
		analytics.WithLocation(time.UTC),
	)
	return NewRouter(&Services{
		DashboardService: service.NewDashboardService(store, engine, nil),
		InventoryService: service.NewInventoryService(store),
		Commander:        ctrl,
		Metrics:          reg,
	}, RouterConfig{AllowedOrigins: []string{"*"}, CommandRPS: 100, CommandBurst: 100})
}

func request(r http.Handler, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestDashboardEndpoints(t *testing.T) {
	r := newTestRouter(t)

	rec := request(r, http.MethodGet, "/api/v1/dashboard", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	d := decode[domain.Dashboard](t, rec)
	assert.Equal(t, 1350.0, d.Metrics.TotalStockValue)
	assert.Equal(t, 15.0, d.Metrics.TotalUnits)
	assert.Equal(t, 1, d.Metrics.ActiveMachines)
	assert.Equal(t, uint64(1), d.SnapshotVersion)
	assert.Len(t, d.Trend.Value, analytics.DefaultTrendDays)

	rec = request(r, http.MethodGet, "/api/v1/dashboard/metrics?gst=GST%20%40%2018%25", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	m := decode[domain.MetricsSnapshot](t, rec)
	assert.Equal(t, 1200.0, m.TaxFilteredStockValue)
	assert.Zero(t, m.TaxPayable, "no sales recorded")

	rec = request(r, http.MethodGet, "/api/v1/dashboard/trend?days=3&machine=M1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[domain.Trend](t, rec).Value, 3)

	rec = request(r, http.MethodGet, "/api/v1/dashboard/restock", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[domain.RestockReport](t, rec)
	assert.Equal(t, 1, report.CriticalCount)
	assert.Equal(t, 1, report.LowCount)
	require.Len(t, report.Alerts, 2)
	assert.Equal(t, analytics.NoVendor, report.Alerts[0].Vendor)

	rec = request(r, http.MethodGet, "/api/v1/tax-buckets", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "GST @ 18%")
}

func TestDashboardRejectsBadFilters(t *testing.T) {
	r := newTestRouter(t)

	assert.Equal(t, http.StatusBadRequest, request(r, http.MethodGet, "/api/v1/dashboard?tax_bucket=luxury", nil, nil).Code)
	assert.Equal(t, http.StatusBadRequest, request(r, http.MethodGet, "/api/v1/dashboard?days=abc", nil, nil).Code)
	assert.Equal(t, http.StatusBadRequest, request(r, http.MethodGet, "/api/v1/dashboard/trend?days=0", nil, nil).Code)
}

func TestSellRefreshesDashboard(t *testing.T) {
	r := newTestRouter(t)

	rec := request(r, http.MethodPost, "/api/v1/sell",
		map[string]any{"machineId": "M1", "productId": "P1", "qty": 2, "price": 150},
		map[string]string{"X-Request-ID": "req-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[domain.CommandResult](t, rec)
	assert.True(t, res.Success)
	assert.Equal(t, "req-1", res.CommandID)
	assert.Equal(t, uint64(2), res.SnapshotVersion)

	d := decode[domain.Dashboard](t, request(r, http.MethodGet, "/api/v1/dashboard", nil, nil))
	assert.Equal(t, 1150.0, d.Metrics.TotalStockValue)
}

func TestCommandRejections(t *testing.T) {
	r := newTestRouter(t)

	rec := request(r, http.MethodPost, "/api/v1/sell", map[string]any{"machineId": "M1", "productId": "P2", "qty": 10}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	res := decode[domain.CommandResult](t, rec)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "insufficient stock")

	rec = request(r, http.MethodPost, "/api/v1/sell", map[string]any{"machineId": "M9", "productId": "P1", "qty": 1}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = request(r, http.MethodPost, "/api/v1/sell", map[string]any{"productId": "P1", "qty": 1}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = request(r, http.MethodPost, "/api/v1/refill", "{", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	d := decode[domain.Dashboard](t, request(r, http.MethodGet, "/api/v1/dashboard", nil, nil))
	assert.Equal(t, 1350.0, d.Metrics.TotalStockValue, "rejected commands leave stock untouched")
}

func TestRefillAndInventory(t *testing.T) {
	r := newTestRouter(t)

	rec := request(r, http.MethodPost, "/api/v1/refill", map[string]any{"machineId": "M1", "productId": "P2", "qty": 7}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = request(r, http.MethodGet, "/api/v1/machines/M1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[service.MachineDetail](t, rec)
	require.Len(t, detail.Stock, 2)
	assert.Equal(t, 10.0, detail.Stock[1].Quantity)
	assert.Equal(t, domain.StockSafe, detail.Stock[1].Status)
	assert.Equal(t, 7, detail.FillLevel)

	assert.Equal(t, http.StatusNotFound, request(r, http.MethodGet, "/api/v1/machines/M9", nil, nil).Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/api/v1/products", nil, nil).Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/api/v1/purchases?status=pending", nil, nil).Code)
}

func TestStatusHealthAndMetrics(t *testing.T) {
	r := newTestRouter(t)

	rec := request(r, http.MethodGet, "/api/v1/status", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[pipeline.Status](t, rec)
	assert.True(t, status.Connected)
	assert.Equal(t, "memory", status.Source)

	rec = request(r, http.MethodPost, "/api/v1/sync/refresh", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(2), decode[pipeline.Status](t, rec).SnapshotVersion)

	rec = request(r, http.MethodGet, "/api/v1/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"connected":true`)

	request(r, http.MethodPost, "/api/v1/sell", map[string]any{"machineId": "M1", "productId": "P1", "qty": 1}, nil)
	rec = request(r, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `vend_commands_total{command="sell",result="ok"} 1`)
	assert.Contains(t, rec.Body.String(), `vend_refresh_total{result="ok"}`)
}

func TestCommandRateLimit(t *testing.T) {
	src := &sheetSource{stock: map[[2]string]float64{{"M1", "P1"}: 100}}
	store := repository.NewReconciliationStore()
	ctrl := pipeline.NewController(src, store, pipeline.DefaultConfig())
	r := NewRouter(&Services{Commander: ctrl}, RouterConfig{CommandRPS: 0.001, CommandBurst: 1})

	body := map[string]any{"machineId": "M1", "productId": "P1", "qty": 1}
	assert.Equal(t, http.StatusOK, request(r, http.MethodPost, "/api/v1/sell", body, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, request(r, http.MethodPost, "/api/v1/sell", body, nil).Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/api/v1/status", nil, nil).Code, "reads are not limited")
}
