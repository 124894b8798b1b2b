package handlers

import (
	"net/http"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
	"github.com/andresuchdata/freshstock/backend-go/internal/replenishment"
	"github.com/andresuchdata/freshstock/backend-go/internal/service"
	"github.com/gin-gonic/gin"
)

type ReplenishmentHandler struct {
	service *service.ReplenishmentService
	now     func() time.Time
}

func NewReplenishmentHandler(service *service.ReplenishmentService) *ReplenishmentHandler {
	return &ReplenishmentHandler{service: service, now: time.Now}
}

func (h *ReplenishmentHandler) today() time.Time {
	return domain.DateOf(h.now(), time.UTC)
}

func (h *ReplenishmentHandler) Preview(c *gin.Context) {
	storeID, ok := parseIDParam(c, "store")
	if !ok {
		return
	}
	date, ok := parseDateQuery(c, "date", h.today())
	if !ok {
		return
	}

	items, err := h.service.Preview(c.Request.Context(), storeID, date)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"store_id":  storeID,
		"list_date": date.Format(domain.DateLayout),
		"items":     items,
	})
}

// GenerateList persists the list for a store and date. A second call for the
// same day is rejected with 409.
func (h *ReplenishmentHandler) GenerateList(c *gin.Context) {
	storeID, ok := parseIDParam(c, "store")
	if !ok {
		return
	}
	date, ok := parseDateQuery(c, "date", h.today())
	if !ok {
		return
	}

	list, err := h.service.GenerateReplenishmentList(c.Request.Context(), storeID, date)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, list)
}

func (h *ReplenishmentHandler) ListLists(c *gin.Context) {
	storeID, ok := parseOptionalIDQuery(c, "store_id")
	if !ok {
		return
	}
	filter := domain.ListFilter{StoreID: storeID}

	if raw := c.Query("date"); raw != "" {
		d, err := domain.ParseDate(raw)
		if err != nil {
			respondError(c, err)
			return
		}
		filter.ListDate = &d
	}
	if raw := c.Query("status"); raw != "" {
		status, ok := domain.ParseListStatus(raw)
		if !ok {
			badRequest(c, "invalid status "+raw)
			return
		}
		filter.Status = status
	}

	lists, err := h.service.ListLists(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, lists)
}

func (h *ReplenishmentHandler) GetList(c *gin.Context) {
	listID, ok := parseIDParam(c, "list")
	if !ok {
		return
	}

	list, err := h.service.GetList(c.Request.Context(), listID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

type listPatchRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
}

func (h *ReplenishmentHandler) UpdateList(c *gin.Context) {
	listID, ok := parseIDParam(c, "list")
	if !ok {
		return
	}

	var req listPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	list, err := h.service.SetStatus(c.Request.Context(), listID, req.Status, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *ReplenishmentHandler) DeleteList(c *gin.Context) {
	listID, ok := parseIDParam(c, "list")
	if !ok {
		return
	}

	if err := h.service.DeleteList(c.Request.Context(), listID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ReplenishmentHandler) AddItem(c *gin.Context) {
	listID, ok := parseIDParam(c, "list")
	if !ok {
		return
	}

	var req replenishment.NewItem
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	item, err := h.service.AddItem(c.Request.Context(), listID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

// OverrideItem replaces the quantity, reason, priority or notes of one item.
func (h *ReplenishmentHandler) OverrideItem(c *gin.Context) {
	listID, ok := parseIDParam(c, "list")
	if !ok {
		return
	}
	productID, ok := parseIDParam(c, "product")
	if !ok {
		return
	}

	var patch replenishment.ItemPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	item, err := h.service.OverrideItem(c.Request.Context(), listID, productID, patch)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *ReplenishmentHandler) RemoveItem(c *gin.Context) {
	listID, ok := parseIDParam(c, "list")
	if !ok {
		return
	}
	productID, ok := parseIDParam(c, "product")
	if !ok {
		return
	}

	if err := h.service.RemoveItem(c.Request.Context(), listID, productID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type frequencyRequest struct {
	StoreID               int64   `json:"store_id" binding:"required"`
	ProductID             int64   `json:"product_id" binding:"required"`
	FrequencyDays         int     `json:"replenishment_frequency"`
	LastReplenishmentDate *string `json:"last_replenishment_date"`
}

func (h *ReplenishmentHandler) UpsertFrequency(c *gin.Context) {
	var req frequencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	last, ok := parseOptionalDate(c, req.LastReplenishmentDate)
	if !ok {
		return
	}

	freq, err := h.service.UpsertFrequency(c.Request.Context(), replenishment.FrequencyInput{
		StoreID:               req.StoreID,
		ProductID:             req.ProductID,
		FrequencyDays:         req.FrequencyDays,
		LastReplenishmentDate: last,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, freq)
}

func (h *ReplenishmentHandler) ListFrequencies(c *gin.Context) {
	storeID, ok := parseOptionalIDQuery(c, "store_id")
	if !ok {
		return
	}
	productID, ok := parseOptionalIDQuery(c, "product_id")
	if !ok {
		return
	}

	freqs, err := h.service.ListFrequencies(c.Request.Context(), storeID, productID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, freqs)
}

func (h *ReplenishmentHandler) GetFrequency(c *gin.Context) {
	storeID, ok := parseIDParam(c, "store")
	if !ok {
		return
	}
	productID, ok := parseIDParam(c, "product")
	if !ok {
		return
	}

	freq, err := h.service.GetFrequency(c.Request.Context(), storeID, productID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, freq)
}

func (h *ReplenishmentHandler) DeleteFrequency(c *gin.Context) {
	storeID, ok := parseIDParam(c, "store")
	if !ok {
		return
	}
	productID, ok := parseIDParam(c, "product")
	if !ok {
		return
	}

	if err := h.service.DeleteFrequency(c.Request.Context(), storeID, productID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type deliveryRequest struct {
	BatchID  int64   `json:"batch_id" binding:"required"`
	Quantity int     `json:"quantity"`
	Date     *string `json:"date"`
}

func (h *ReplenishmentHandler) RecordReplenishment(c *gin.Context) {
	storeID, ok := parseIDParam(c, "store")
	if !ok {
		return
	}
	productID, ok := parseIDParam(c, "product")
	if !ok {
		return
	}

	var req deliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	date, ok := parseOptionalDate(c, req.Date)
	if !ok {
		return
	}

	entry, err := h.service.RecordReplenishment(c.Request.Context(), replenishment.Delivery{
		StoreID:   storeID,
		ProductID: productID,
		BatchID:   req.BatchID,
		Quantity:  req.Quantity,
		Date:      date,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

func (h *ReplenishmentHandler) ListLogs(c *gin.Context) {
	storeID, ok := parseIDParam(c, "store")
	if !ok {
		return
	}
	productID, ok := parseIDParam(c, "product")
	if !ok {
		return
	}

	logs, err := h.service.ListLogs(c.Request.Context(), storeID, productID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, logs)
}
