package handlers

import (
	"net/http"

	"github.com/andresuchdata/freshstock/backend-go/internal/service"
	"github.com/gin-gonic/gin"
)

type StockHealthHandler struct {
	service *service.StockHealthService
}

func NewStockHealthHandler(service *service.StockHealthService) *StockHealthHandler {
	return &StockHealthHandler{service: service}
}

// GetOverview returns the status of every product stocked at a store.
func (h *StockHealthHandler) GetOverview(c *gin.Context) {
	storeID, ok := parseIDParam(c, "store")
	if !ok {
		return
	}

	items, err := h.service.GetStockOverview(c.Request.Context(), storeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"store_id": storeID, "items": items})
}

func (h *StockHealthHandler) GetVelocity(c *gin.Context) {
	storeID, ok := parseIDParam(c, "store")
	if !ok {
		return
	}
	productID, ok := parseIDParam(c, "product")
	if !ok {
		return
	}

	v, err := h.service.GetVelocity(c.Request.Context(), storeID, productID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, v)
}

func (h *StockHealthHandler) GetAlerts(c *gin.Context) {
	storeID, ok := parseOptionalIDQuery(c, "store_id")
	if !ok {
		return
	}

	alerts, err := h.service.GetAlerts(c.Request.Context(), storeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, alerts)
}
