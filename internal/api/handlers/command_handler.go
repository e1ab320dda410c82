package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/vendbees/backend-go/internal/domain"
	"github.com/andresuchdata/vendbees/backend-go/internal/pipeline"
	"github.com/andresuchdata/vendbees/backend-go/internal/upstream"
)

// Commander is the part of the sync controller the API drives
type Commander interface {
	Sell(ctx context.Context, cmd domain.SellCommand) (domain.CommandResult, error)
	Refill(ctx context.Context, cmd domain.RefillCommand) (domain.CommandResult, error)
	Refresh(ctx context.Context) error
	Status() pipeline.Status
}

// CommandObserver is told about every finished command
type CommandObserver func(command string, err error)

type CommandHandler struct {
	commander Commander
	observe   CommandObserver
}

func NewCommandHandler(commander Commander, observe CommandObserver) *CommandHandler {
	if observe == nil {
		observe = func(string, error) {}
	}
	return &CommandHandler{commander: commander, observe: observe}
}

func (h *CommandHandler) Sell(c *gin.Context) {
	var cmd domain.SellCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if cmd.CommandID == "" {
		cmd.CommandID = c.GetString("request_id")
	}

	result, err := h.commander.Sell(c.Request.Context(), cmd)
	h.observe("sell", err)
	c.JSON(commandStatus(err), result)
}

func (h *CommandHandler) Refill(c *gin.Context) {
	var cmd domain.RefillCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if cmd.CommandID == "" {
		cmd.CommandID = c.GetString("request_id")
	}

	result, err := h.commander.Refill(c.Request.Context(), cmd)
	h.observe("refill", err)
	c.JSON(commandStatus(err), result)
}

// Refresh forces a pull now and reports the resulting status
func (h *CommandHandler) Refresh(c *gin.Context) {
	if err := h.commander.Refresh(c.Request.Context()); err != nil {
		log.Warn().Err(err).Msg("api: forced refresh failed")
		c.JSON(http.StatusBadGateway, h.commander.Status())
		return
	}
	c.JSON(http.StatusOK, h.commander.Status())
}

func (h *CommandHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.commander.Status())
}

func (h *CommandHandler) Health(c *gin.Context) {
	status := h.commander.Status()
	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"connected":        status.Connected,
		"snapshot_version": status.SnapshotVersion,
	})
}

func commandStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, pipeline.ErrInvalidCommand):
		return http.StatusBadRequest
	case errors.Is(err, upstream.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, upstream.ErrStockRowNotFound):
		return http.StatusNotFound
	case errors.Is(err, upstream.ErrReadOnly):
		return http.StatusMethodNotAllowed
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}
