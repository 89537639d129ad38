package handler

import (
	"net/http"
	"strings"

	tradeapp "github.com/erp/backoffice/internal/application/trade"
	csvimport "github.com/erp/backoffice/internal/infrastructure/import"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// PurchaseOrderHandler handles purchase order endpoints
type PurchaseOrderHandler struct {
	BaseHandler
	orderService   *tradeapp.PurchaseOrderService
	template       *csvimport.PurchaseOrderItemTemplate
	maxUploadBytes int64
}

// NewPurchaseOrderHandler creates a new PurchaseOrderHandler
func NewPurchaseOrderHandler(orderService *tradeapp.PurchaseOrderService, template *csvimport.PurchaseOrderItemTemplate, maxUploadBytes int64) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{
		orderService:   orderService,
		template:       template,
		maxUploadBytes: maxUploadBytes,
	}
}

// Create handles POST /purchase-orders: create a purchase order.
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	var req tradeapp.CreatePurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindError(c, err)
		return
	}

	result, err := h.orderService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// GetByID returns an order with its items
func (h *PurchaseOrderHandler) GetByID(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetWithItems(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// List handles GET /purchase-orders: list purchase orders.
func (h *PurchaseOrderHandler) List(c *gin.Context) {
	var filter tradeapp.PurchaseOrderListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.HandleBindError(c, err)
		return
	}

	orders, total, err := h.orderService.List(c.Request.Context(), filter)
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
	h.SuccessWithMeta(c, orders, total, page, pageSize)
}

// Update handles PUT /purchase-orders/:id: update a purchase order.
// Patches header fields, replaces items and moves the status. The response
// lists every ledger and stock side effect.
func (h *PurchaseOrderHandler) Update(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req tradeapp.UpdatePurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindError(c, err)
		return
	}

	result, err := h.orderService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Delete removes an order and its items. Ledger entries and stock stay.
func (h *PurchaseOrderHandler) Delete(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.orderService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ItemTemplate serves the blank item sheet as CSV or XLSX
func (h *PurchaseOrderHandler) ItemTemplate(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", "csv"))
	body, contentType, err := h.template.TemplateBytes(format)
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "format must be csv or xlsx")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="purchase-order-items.`+format+`"`)
	c.Data(http.StatusOK, contentType, body)
}

// ParseItems reads an uploaded item sheet into item inputs without saving
// anything, so the client can review them before creating the order.
func (h *PurchaseOrderHandler) ParseItems(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.BadRequest(c, "file is required")
		return
	}
	defer file.Close()

	if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "file exceeds the maximum upload size")
		return
	}

	result, err := h.template.Parse(file)
	if err != nil {
		if csvimport.IsFileError(err) {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, err.Error())
			return
		}
		h.HandleError(c, err)
		return
	}
	h.Success(c, toParsedItemsResponse(result))
}

// ParsedItemsResponse is the result of reading an item sheet
type ParsedItemsResponse struct {
	Items       []tradeapp.PurchaseOrderItemInput `json:"items"`
	Errors      []csvimport.RowError              `json:"errors"`
	TotalErrors int                               `json:"total_errors"`
	Truncated   bool                              `json:"truncated"`
}

func toParsedItemsResponse(result *csvimport.PurchaseOrderItemParseResult) ParsedItemsResponse {
	items := make([]tradeapp.PurchaseOrderItemInput, 0, len(result.Items))
	for _, row := range result.Items {
		items = append(items, tradeapp.PurchaseOrderItemInput{
			SKU:         row.SKU,
			ProductName: row.ProductName,
			Quantity:    row.Quantity,
			UnitPrice:   row.UnitPrice,
			BatchNumber: row.BatchNumber,
			ExpiryDate:  row.ExpiryDate,
			Notes:       row.Notes,
		})
	}
	errs := result.Errors
	if errs == nil {
		errs = []csvimport.RowError{}
	}
	return ParsedItemsResponse{
		Items:       items,
		Errors:      errs,
		TotalErrors: result.TotalErrors,
		Truncated:   result.Truncated,
	}
}

// RegisterRoutes registers purchase order routes
func (h *PurchaseOrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/purchase-orders")
	{
		orders.POST("", h.Create)
		orders.GET("", h.List)
		orders.GET("/item-template", h.ItemTemplate)
		orders.POST("/items/parse", h.ParseItems)
		orders.GET("/:id", h.GetByID)
		orders.PUT("/:id", h.Update)
		orders.DELETE("/:id", h.Delete)
	}
}
