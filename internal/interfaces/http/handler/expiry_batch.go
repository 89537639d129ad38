package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	appinv "github.com/erp/backoffice/internal/application/inventory"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

const defaultExpiringDays = 30

// ExpiryBatchHandler handles expiry ledger endpoints
type ExpiryBatchHandler struct {
	BaseHandler
	ledger *appinv.ExpiryLedgerService
}

// NewExpiryBatchHandler creates a new ExpiryBatchHandler
func NewExpiryBatchHandler(ledger *appinv.ExpiryLedgerService) *ExpiryBatchHandler {
	return &ExpiryBatchHandler{ledger: ledger}
}

// Create handles POST /expiry-batches: record an expiry batch.
// Rejects a repeated batch number for the SKU (DUPLICATE_BATCH) and a blank
// batch number once the SKU has batches (BATCH_NUMBER_REQUIRED).
func (h *ExpiryBatchHandler) Create(c *gin.Context) {
	var req appinv.AddExpiryBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindError(c, err)
		return
	}

	batch, err := h.ledger.Add(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, batch)
}

// List returns batches with live catalog names and stock
func (h *ExpiryBatchHandler) List(c *gin.Context) {
	var filter appinv.ExpiryBatchListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.HandleBindError(c, err)
		return
	}

	details, total, err := h.ledger.ListWithDetails(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	page, pageSize := filter.Page, filter.PageSize
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	h.SuccessWithMeta(c, details, total, page, pageSize)
}

// Expiring lists batches expiring within ?days=N (default 30), soonest first
func (h *ExpiryBatchHandler) Expiring(c *gin.Context) {
	days := defaultExpiringDays
	if raw := strings.TrimSpace(c.Query("days")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "days must be a whole number")
			return
		}
		days = n
	}

	details, err := h.ledger.Expiring(c.Request.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, details)
}

// GetByID returns a single batch
func (h *ExpiryBatchHandler) GetByID(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	batch, err := h.ledger.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batch)
}

// Update patches a batch
func (h *ExpiryBatchHandler) Update(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req appinv.UpdateExpiryBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindError(c, err)
		return
	}

	batch, err := h.ledger.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batch)
}

// Delete removes a batch
func (h *ExpiryBatchHandler) Delete(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.ledger.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// BatchesBySKU lists the ledger of one SKU
func (h *ExpiryBatchHandler) BatchesBySKU(c *gin.Context) {
	batches, err := h.ledger.ListBySKU(c.Request.Context(), c.Param("sku"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batches)
}

// Summary reports batch numbers, total quantity and the stock check of one SKU
func (h *ExpiryBatchHandler) Summary(c *gin.Context) {
	summary, err := h.ledger.Summary(c.Request.Context(), c.Param("sku"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// StockCheck compares one SKU's ledger total with its stock quantity
func (h *ExpiryBatchHandler) StockCheck(c *gin.Context) {
	result, err := h.ledger.StockCheck(c.Request.Context(), c.Param("sku"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RegisterRoutes registers expiry ledger routes
func (h *ExpiryBatchHandler) RegisterRoutes(rg *gin.RouterGroup) {
	batches := rg.Group("/expiry-batches")
	{
		batches.POST("", h.Create)
		batches.GET("", h.List)
		batches.GET("/expiring", h.Expiring)
		batches.GET("/:id", h.GetByID)
		batches.PUT("/:id", h.Update)
		batches.DELETE("/:id", h.Delete)
	}

	skus := rg.Group("/skus/:sku")
	{
		skus.GET("/batches", h.BatchesBySKU)
		skus.GET("/batch-summary", h.Summary)
		skus.GET("/stock-check", h.StockCheck)
	}
}
