package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/vendbees/backend-go/internal/analytics"
	"github.com/andresuchdata/vendbees/backend-go/internal/domain"
	"github.com/andresuchdata/vendbees/backend-go/internal/service"
)

type DashboardHandler struct {
	service *service.DashboardService
}

func NewDashboardHandler(service *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// parseFilter reads machine, tax_bucket (alias gst) and days from the query.
// Malformed days are reported as an invalid filter.
func parseFilter(c *gin.Context) (domain.DashboardFilter, error) {
	filter := domain.DashboardFilter{
		MachineID: strings.TrimSpace(c.Query("machine")),
		TaxBucket: strings.TrimSpace(c.Query("tax_bucket")),
	}
	if filter.TaxBucket == "" {
		filter.TaxBucket = strings.TrimSpace(c.Query("gst"))
	}

	if raw := strings.TrimSpace(c.Query("days")); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days <= 0 {
			return filter, service.ErrInvalidFilter
		}
		filter.Days = days
	}
	return filter, nil
}

func filterError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, analytics.ErrUnknownTaxBucket), errors.Is(err, service.ErrInvalidFilter):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		errorResponse(c, http.StatusInternalServerError, err.Error())
	}
}

func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		filterError(c, err)
		return
	}

	dashboard, err := h.service.GetDashboard(c.Request.Context(), filter)
	if err != nil {
		filterError(c, err)
		return
	}

	c.JSON(http.StatusOK, dashboard)
}

func (h *DashboardHandler) GetMetrics(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		filterError(c, err)
		return
	}

	metrics, err := h.service.GetMetrics(c.Request.Context(), filter)
	if err != nil {
		filterError(c, err)
		return
	}

	c.JSON(http.StatusOK, metrics)
}

func (h *DashboardHandler) GetTrend(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		filterError(c, err)
		return
	}

	trend, err := h.service.GetTrend(c.Request.Context(), filter.Days, filter.MachineID)
	if err != nil {
		filterError(c, err)
		return
	}

	c.JSON(http.StatusOK, trend)
}

func (h *DashboardHandler) GetRestock(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.GetRestock(c.Request.Context(), c.Query("machine")))
}

func (h *DashboardHandler) GetTaxBuckets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.service.TaxBuckets()})
}
