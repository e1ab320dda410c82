package upstream

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/vendbees/backend-go/internal/analytics"
	"github.com/andresuchdata/vendbees/backend-go/internal/domain"
	"github.com/andresuchdata/vendbees/backend-go/internal/normalize"
)

// Handler exposes a Source over HTTP in the wire format HTTPSource consumes
type Handler struct {
	source     Source
	engine     *analytics.Engine
	normalizer *normalize.Normalizer
}

func NewHandler(source Source, engine *analytics.Engine) *Handler {
	return &Handler{
		source:     source,
		engine:     engine,
		normalizer: normalize.New(),
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc(dashboardPath, h.Dashboard).Methods("GET")
	router.HandleFunc(sellPath, h.Sell).Methods("POST")
	router.HandleFunc(refillPath, h.Refill).Methods("POST")
	router.HandleFunc("/api/health", h.Health).Methods("GET")
}

// Dashboard returns every record group plus a few headline metrics
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ds, err := h.source.Pull(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("sheetd: pull failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	collections, _ := h.normalizer.Normalize(*ds)
	snap := domain.NewSnapshot(collections, domain.SnapshotMeta{Source: h.source.Kind()})
	m, _ := h.engine.Summary(snap, domain.DashboardFilter{})

	ds.Metrics = map[string]any{
		"totalStockValue": m.TotalStockValue,
		"totalUnits":      m.TotalUnits,
		"activeMachines":  m.ActiveMachines,
		"outOfStock":      m.OutOfStockCount,
	}
	writeJSON(w, http.StatusOK, ds)
}

func (h *Handler) Sell(w http.ResponseWriter, r *http.Request) {
	var cmd domain.SellCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	cmd.CommandID = requestID(r, cmd.CommandID)
	if msg := checkTarget(cmd.MachineID, cmd.ProductID, cmd.Quantity); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	if err := h.source.Sell(r.Context(), cmd); err != nil {
		h.commandError(w, "sell", cmd.CommandID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Sale recorded", "command_id": cmd.CommandID})
}

func (h *Handler) Refill(w http.ResponseWriter, r *http.Request) {
	var cmd domain.RefillCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	cmd.CommandID = requestID(r, cmd.CommandID)
	if msg := checkTarget(cmd.MachineID, cmd.ProductID, cmd.Quantity); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}
	if cmd.RefillerID == "" {
		cmd.RefillerID = domain.DefaultRefillerID
	}

	if err := h.source.Refill(r.Context(), cmd); err != nil {
		h.commandError(w, "refill", cmd.CommandID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Refill recorded", "command_id": cmd.CommandID})
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "source": h.source.Kind()})
}

func (h *Handler) commandError(w http.ResponseWriter, name, commandID string, err error) {
	switch {
	case errors.Is(err, ErrStockRowNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Item not found"})
	case errors.Is(err, ErrInsufficientStock):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Insufficient stock"})
	case errors.Is(err, ErrReadOnly):
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": err.Error()})
	default:
		log.Error().Err(err).Str("command", name).Str("command_id", commandID).Msg("sheetd: command failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func requestID(r *http.Request, fromBody string) string {
	if id := strings.TrimSpace(r.Header.Get("X-Request-ID")); id != "" {
		return id
	}
	if fromBody != "" {
		return fromBody
	}
	return uuid.NewString()
}

func checkTarget(machineID, productID string, qty int) string {
	switch {
	case strings.TrimSpace(machineID) == "" || strings.TrimSpace(productID) == "":
		return "machineId and productId are required"
	case qty <= 0:
		return "qty must be positive"
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("sheetd: failed to encode response")
	}
}
