package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/vendbees/backend-go/internal/service"
)

type InventoryHandler struct {
	service *service.InventoryService
}

func NewInventoryHandler(service *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{service: service}
}

func (h *InventoryHandler) GetProducts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.service.Products()})
}

func (h *InventoryHandler) GetMachines(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.service.Machines()})
}

func (h *InventoryHandler) GetMachine(c *gin.Context) {
	detail, err := h.service.Machine(c.Param("id"))
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "machine not found"})
		return
	}
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, detail)
}

func (h *InventoryHandler) GetPurchases(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.service.Purchases(c.Query("status"))})
}

func (h *InventoryHandler) GetVendors(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.service.Vendors()})
}
