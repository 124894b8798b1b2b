package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
	"github.com/andresuchdata/freshstock/backend-go/internal/fifo"
	"github.com/andresuchdata/freshstock/backend-go/internal/service"
	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	service *service.InventoryService
}

func NewInventoryHandler(service *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{service: service}
}

type saleRequest struct {
	StoreID int64           `json:"store_id" binding:"required"`
	Items   []fifo.SaleItem `json:"items" binding:"required"`
	SoldAt  *time.Time      `json:"sold_at"`
}

// CreateSale sells several products in one FIFO transaction.
func (h *InventoryHandler) CreateSale(c *gin.Context) {
	var req saleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.service.Sell(c.Request.Context(), fifo.SaleRequest{
		StoreID: req.StoreID,
		Items:   req.Items,
		SoldAt:  req.SoldAt,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

type allocateRequest struct {
	StoreID   int64 `json:"store_id" binding:"required"`
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity"`
}

func (h *InventoryHandler) Allocate(c *gin.Context) {
	var req allocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.service.Allocate(c.Request.Context(), req.StoreID, req.ProductID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *InventoryHandler) CheckFIFO(c *gin.Context) {
	var ids [3]int64
	for i, name := range []string{"store_id", "product_id", "batch_id"} {
		id, err := strconv.ParseInt(c.Query(name), 10, 64)
		if err != nil || id <= 0 {
			badRequest(c, "invalid "+name)
			return
		}
		ids[i] = id
	}

	check, err := h.service.CheckFIFOViolation(c.Request.Context(), ids[0], ids[1], ids[2])
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, check)
}

func (h *InventoryHandler) GetStoreStock(c *gin.Context) {
	storeID, ok := parseIDParam(c, "store")
	if !ok {
		return
	}

	rows, err := h.service.StoreStock(c.Request.Context(), storeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, rows)
}

func (h *InventoryHandler) GetProductBatches(c *gin.Context) {
	storeID, ok := parseIDParam(c, "store")
	if !ok {
		return
	}
	productID, ok := parseIDParam(c, "product")
	if !ok {
		return
	}

	rows, err := h.service.Candidates(c.Request.Context(), storeID, productID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, rows)
}

type stockEntryRequest struct {
	StoreID      int64 `json:"store_id" binding:"required"`
	BatchID      int64 `json:"batch_id" binding:"required"`
	Quantity     int   `json:"quantity"`
	ReorderLevel *int  `json:"reorder_level"`
}

func (h *InventoryHandler) CreateStockEntry(c *gin.Context) {
	var req stockEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	entry, err := h.service.CreateStockEntry(c.Request.Context(), service.StockEntryInput{
		StoreID:      req.StoreID,
		BatchID:      req.BatchID,
		Quantity:     req.Quantity,
		ReorderLevel: req.ReorderLevel,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

type reorderLevelRequest struct {
	ReorderLevel *int `json:"reorder_level" binding:"required"`
}

func (h *InventoryHandler) UpdateStockEntry(c *gin.Context) {
	storeID, ok := parseIDParam(c, "store")
	if !ok {
		return
	}
	batchID, ok := parseIDParam(c, "batch")
	if !ok {
		return
	}

	var req reorderLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	entry, err := h.service.UpdateReorderLevel(c.Request.Context(), storeID, batchID, *req.ReorderLevel)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

type movementRequest struct {
	BatchID     int64           `json:"batch_id" binding:"required"`
	Quantity    int             `json:"quantity"`
	Origin      domain.Endpoint `json:"origin"`
	Destination domain.Endpoint `json:"destination"`
}

func (h *InventoryHandler) CreateMovement(c *gin.Context) {
	var req movementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if domain.KindOf(err) != "" {
			respondError(c, err)
			return
		}
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	movement, err := h.service.Move(c.Request.Context(), domain.StockMovement{
		BatchID:     req.BatchID,
		Quantity:    req.Quantity,
		Origin:      req.Origin,
		Destination: req.Destination,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, movement)
}

func (h *InventoryHandler) ListMovements(c *gin.Context) {
	productID, ok := parseIDParam(c, "product")
	if !ok {
		return
	}

	movements, err := h.service.ListMovements(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, movements)
}

type batchRequest struct {
	ProductID      int64   `json:"product_id" binding:"required"`
	Code           string  `json:"batch_code" binding:"required"`
	ExpirationDate *string `json:"expiration_date"`
}

func (h *InventoryHandler) CreateBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	exp, ok := parseOptionalDate(c, req.ExpirationDate)
	if !ok {
		return
	}

	batch, err := h.service.CreateBatch(c.Request.Context(), service.BatchInput{
		ProductID:      req.ProductID,
		Code:           req.Code,
		ExpirationDate: exp,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, batch)
}

type batchPatchRequest struct {
	Code            *string `json:"batch_code"`
	ExpirationDate  *string `json:"expiration_date"`
	ClearExpiration bool    `json:"clear_expiration"`
}

func (h *InventoryHandler) UpdateBatch(c *gin.Context) {
	batchID, ok := parseIDParam(c, "batch")
	if !ok {
		return
	}

	var req batchPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	exp, ok := parseOptionalDate(c, req.ExpirationDate)
	if !ok {
		return
	}

	batch, err := h.service.UpdateBatch(c.Request.Context(), batchID, service.BatchUpdate{
		Code:            req.Code,
		ExpirationDate:  exp,
		ClearExpiration: req.ClearExpiration,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, batch)
}

func (h *InventoryHandler) DeleteBatch(c *gin.Context) {
	batchID, ok := parseIDParam(c, "batch")
	if !ok {
		return
	}

	if err := h.service.DeleteBatch(c.Request.Context(), batchID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *InventoryHandler) GetBatch(c *gin.Context) {
	batchID, ok := parseIDParam(c, "batch")
	if !ok {
		return
	}

	batch, err := h.service.GetBatch(c.Request.Context(), batchID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, batch)
}

func (h *InventoryHandler) ListBatches(c *gin.Context) {
	productID, ok := parseOptionalIDQuery(c, "product_id")
	if !ok {
		return
	}

	batches, err := h.service.ListBatches(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, batches)
}
