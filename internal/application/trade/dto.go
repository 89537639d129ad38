package trade

import (
	"time"

	"github.com/erp/backoffice/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrderItemInput is one line of a create or update request
type PurchaseOrderItemInput struct {
	SKU              string          `json:"sku" binding:"required,max=100"`
	ProductName      string          `json:"product_name" binding:"required,max=255"`
	Quantity         int             `json:"quantity" binding:"required,gt=0"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	QuantityReceived *int            `json:"quantity_received" binding:"omitempty,gte=0"`
	BatchNumber      string          `json:"batch_number" binding:"max=100"`
	ExpiryDate       *time.Time      `json:"expiry_date"`
	Notes            string          `json:"notes" binding:"max=1000"`
}

// CreatePurchaseOrderRequest represents a request to create a purchase order
type CreatePurchaseOrderRequest struct {
	OrderDate       time.Time                `json:"order_date"`
	SupplierID      *uuid.UUID               `json:"supplier_id"`
	SupplierName    string                   `json:"supplier_name" binding:"required,min=1,max=200"`
	ReferenceNumber string                   `json:"reference_number" binding:"max=100"`
	PaymentMethod   string                   `json:"payment_method" binding:"max=50"`
	Status          string                   `json:"status" binding:"omitempty,po_status"`
	Notes           string                   `json:"notes" binding:"max=2000"`
	ExpiryDate      *time.Time               `json:"expiry_date"`
	Items           []PurchaseOrderItemInput `json:"items" binding:"dive"`
}

// UpdatePurchaseOrderRequest patches a purchase order. Nil fields are left alone;
// a non-nil Items replaces the whole item set.
type UpdatePurchaseOrderRequest struct {
	OrderDate       *time.Time                `json:"order_date"`
	SupplierID      *uuid.UUID                `json:"supplier_id"`
	SupplierName    *string                   `json:"supplier_name" binding:"omitempty,min=1,max=200"`
	ReferenceNumber *string                   `json:"reference_number" binding:"omitempty,max=100"`
	PaymentMethod   *string                   `json:"payment_method" binding:"omitempty,max=50"`
	Status          *string                   `json:"status" binding:"omitempty,po_status"`
	Notes           *string                   `json:"notes" binding:"omitempty,max=2000"`
	ExpiryDate      *time.Time                `json:"expiry_date"`
	Items           *[]PurchaseOrderItemInput `json:"items" binding:"omitempty,dive"`
}

// PurchaseOrderListFilter represents filter options for purchase order list
type PurchaseOrderListFilter struct {
	Search     string     `form:"search"`
	SupplierID *uuid.UUID `form:"supplier_id"`
	Status     string     `form:"status" binding:"omitempty,po_status"`
	StartDate  *time.Time `form:"start_date" time_format:"2006-01-02"`
	EndDate    *time.Time `form:"end_date" time_format:"2006-01-02"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string     `form:"order_by"`
	OrderDir   string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// PurchaseOrderResponse represents a purchase order in API responses
type PurchaseOrderResponse struct {
	ID              uuid.UUID                   `json:"id"`
	OrderDate       time.Time                   `json:"order_date"`
	SupplierID      *uuid.UUID                  `json:"supplier_id,omitempty"`
	SupplierName    string                      `json:"supplier_name"`
	ReferenceNumber string                      `json:"reference_number"`
	TotalAmount     decimal.Decimal             `json:"total_amount"`
	PaymentMethod   string                      `json:"payment_method"`
	Status          string                      `json:"status"`
	Notes           string                      `json:"notes"`
	ExpiryDate      *time.Time                  `json:"expiry_date,omitempty"`
	Items           []PurchaseOrderItemResponse `json:"items"`
	ItemCount       int                         `json:"item_count"`
	TotalQuantity   int                         `json:"total_quantity"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
	Version         int                         `json:"version"`
}

// PurchaseOrderListItem represents a purchase order in list responses (no items)
type PurchaseOrderListItem struct {
	ID              uuid.UUID       `json:"id"`
	OrderDate       time.Time       `json:"order_date"`
	SupplierID      *uuid.UUID      `json:"supplier_id,omitempty"`
	SupplierName    string          `json:"supplier_name"`
	ReferenceNumber string          `json:"reference_number"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PaymentMethod   string          `json:"payment_method"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// PurchaseOrderItemResponse represents a purchase order item in API responses
type PurchaseOrderItemResponse struct {
	ID               uuid.UUID       `json:"id"`
	Line             int             `json:"line"`
	SKU              string          `json:"sku"`
	ProductName      string          `json:"product_name"`
	Quantity         int             `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	QuantityReceived *int            `json:"quantity_received,omitempty"`
	BatchNumber      string          `json:"batch_number,omitempty"`
	ExpiryDate       *time.Time      `json:"expiry_date,omitempty"`
	Notes            string          `json:"notes,omitempty"`
}

// SideEffectAction names what a per-item side effect tried to do
type SideEffectAction string

const (
	ActionExpiryCreated   SideEffectAction = "expiry_created"
	ActionExpiryUpdated   SideEffectAction = "expiry_updated"
	ActionStockReconciled SideEffectAction = "stock_reconciled"
)

// SideEffectStatus is the outcome of one side effect
type SideEffectStatus string

const (
	SideEffectApplied SideEffectStatus = "applied"
	SideEffectSkipped SideEffectStatus = "skipped"
	SideEffectFailed  SideEffectStatus = "failed"
)

// ItemOutcome records one per-item side effect of a create or update
type ItemOutcome struct {
	Line        int              `json:"line"`
	SKU         string           `json:"sku"`
	BatchNumber string           `json:"batch_number,omitempty"`
	Action      SideEffectAction `json:"action"`
	Status      SideEffectStatus `json:"status"`
	Message     string           `json:"message,omitempty"`
}

// SideEffectReport collects the side effects that ran after the order was saved.
// The order itself is committed regardless of what is in here.
type SideEffectReport struct {
	Outcomes []ItemOutcome `json:"outcomes"`
	Applied  int           `json:"applied"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Warnings []string      `json:"warnings"`
}

func newSideEffectReport() SideEffectReport {
	return SideEffectReport{Outcomes: []ItemOutcome{}, Warnings: []string{}}
}

func (r *SideEffectReport) add(o ItemOutcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Status {
	case SideEffectApplied:
		r.Applied++
	case SideEffectSkipped:
		r.Skipped++
		if o.Message != "" {
			r.Warnings = append(r.Warnings, o.Message)
		}
	case SideEffectFailed:
		r.Failed++
	}
}

// CreatePurchaseOrderResult is the saved order plus its side effects
type CreatePurchaseOrderResult struct {
	Order       PurchaseOrderResponse `json:"order"`
	SideEffects SideEffectReport      `json:"side_effects"`
}

// UpdatePurchaseOrderResult is the updated order plus its side effects
type UpdatePurchaseOrderResult struct {
	Order       PurchaseOrderResponse `json:"order"`
	SideEffects SideEffectReport      `json:"side_effects"`
}

// ToPurchaseOrderResponse converts domain PurchaseOrder to response DTO
func ToPurchaseOrderResponse(order *trade.PurchaseOrder) PurchaseOrderResponse {
	items := make([]PurchaseOrderItemResponse, len(order.Items))
	for i := range order.Items {
		items[i] = ToPurchaseOrderItemResponse(&order.Items[i])
	}
	return PurchaseOrderResponse{
		ID:              order.ID,
		OrderDate:       order.OrderDate,
		SupplierID:      order.SupplierID,
		SupplierName:    order.SupplierName,
		ReferenceNumber: order.ReferenceNumber,
		TotalAmount:     order.TotalAmount,
		PaymentMethod:   order.PaymentMethod,
		Status:          order.Status.String(),
		Notes:           order.Notes,
		ExpiryDate:      order.ExpiryDate,
		Items:           items,
		ItemCount:       order.ItemCount(),
		TotalQuantity:   order.TotalQuantity(),
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
		Version:         order.Version,
	}
}

// ToPurchaseOrderItemResponse converts a domain item to its response DTO
func ToPurchaseOrderItemResponse(item *trade.PurchaseOrderItem) PurchaseOrderItemResponse {
	return PurchaseOrderItemResponse{
		ID:               item.ID,
		Line:             item.LineNo,
		SKU:              item.SKU,
		ProductName:      item.ProductName,
		Quantity:         item.Quantity,
		UnitPrice:        item.UnitPrice,
		TotalPrice:       item.TotalPrice,
		QuantityReceived: item.QuantityReceived,
		BatchNumber:      item.BatchNumber,
		ExpiryDate:       item.ExpiryDate,
		Notes:            item.Notes,
	}
}

// ToPurchaseOrderListItems converts orders to list rows
func ToPurchaseOrderListItems(orders []trade.PurchaseOrder) []PurchaseOrderListItem {
	rows := make([]PurchaseOrderListItem, len(orders))
	for i := range orders {
		o := &orders[i]
		rows[i] = PurchaseOrderListItem{
			ID:              o.ID,
			OrderDate:       o.OrderDate,
			SupplierID:      o.SupplierID,
			SupplierName:    o.SupplierName,
			ReferenceNumber: o.ReferenceNumber,
			TotalAmount:     o.TotalAmount,
			PaymentMethod:   o.PaymentMethod,
			Status:          o.Status.String(),
			CreatedAt:       o.CreatedAt,
			UpdatedAt:       o.UpdatedAt,
		}
	}
	return rows
}
