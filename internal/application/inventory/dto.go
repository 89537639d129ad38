package inventory

import (
	"time"

	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/google/uuid"
)

// AddExpiryBatchRequest records a new expiry batch.
// Product identity, name and stock snapshot are resolved from the catalog when omitted.
type AddExpiryBatchRequest struct {
	SKU           string    `json:"sku" binding:"required,max=100"`
	ExpiryDate    time.Time `json:"expiry_date" binding:"required"`
	BatchNumber   string    `json:"batch_number" binding:"max=100"`
	Quantity      int       `json:"quantity" binding:"required,min=1"`
	Notes         string    `json:"notes" binding:"max=2000"`
	ProductID     *int64    `json:"product_id"`
	VariationID   *int64    `json:"variation_id"`
	ProductName   string    `json:"product_name"`
	StockQuantity *int      `json:"stock_quantity"`
}

// UpdateExpiryBatchRequest patches an expiry batch. Nil fields are left unchanged.
type UpdateExpiryBatchRequest struct {
	ExpiryDate  *time.Time `json:"expiry_date"`
	BatchNumber *string    `json:"batch_number" binding:"omitempty,max=100"`
	Quantity    *int       `json:"quantity" binding:"omitempty,min=1"`
	Notes       *string    `json:"notes" binding:"omitempty,max=2000"`
}

// ExpiryBatchResponse represents an expiry batch in API responses
type ExpiryBatchResponse struct {
	ID            uuid.UUID `json:"id"`
	ProductID     int64     `json:"product_id"`
	VariationID   *int64    `json:"variation_id,omitempty"`
	SKU           string    `json:"sku"`
	ProductName   string    `json:"product_name"`
	ExpiryDate    time.Time `json:"expiry_date"`
	BatchNumber   string    `json:"batch_number"`
	Quantity      int       `json:"quantity"`
	StockQuantity int       `json:"stock_quantity"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ExpiryBatchDetail is a batch enriched with live catalog and stock data
type ExpiryBatchDetail struct {
	ExpiryBatchResponse
	CatalogName     string `json:"catalog_name"`
	CurrentStock    int    `json:"current_stock"`
	DaysUntilExpiry int    `json:"days_until_expiry"`
	IsExpired       bool   `json:"is_expired"`
}

// ExpiryBatchListFilter represents filter options for the batch listing
type ExpiryBatchListFilter struct {
	Search             string `form:"search"`
	SKU                string `form:"sku"`
	ExpiringWithinDays *int   `form:"expiring_within_days" binding:"omitempty,min=0"`
	Page               int    `form:"page" binding:"omitempty,min=1"`
	PageSize           int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy            string `form:"order_by"`
	OrderDir           string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// StockCheckResult reports whether a SKU's batch quantities exceed its stock
type StockCheckResult struct {
	SKU            string `json:"sku"`
	LedgerQuantity int    `json:"ledger_quantity"`
	StockQuantity  int    `json:"stock_quantity"`
	Exceeded       bool   `json:"exceeded"`
	Message        string `json:"message,omitempty"`
}

// BatchSummaryResponse summarizes the ledger of one SKU
type BatchSummaryResponse struct {
	SKU           string           `json:"sku"`
	HasBatches    bool             `json:"has_batches"`
	TotalQuantity int              `json:"total_quantity"`
	BatchNumbers  []string         `json:"batch_numbers"`
	StockCheck    StockCheckResult `json:"stock_check"`
}

// SyncItemBatchRequest mirrors one purchase order item into the ledger
type SyncItemBatchRequest struct {
	SKU         string
	ProductName string
	BatchNumber string
	ExpiryDate  time.Time
	Quantity    int
	Notes       string
	// Matched is set when the item existed with the same SKU and batch before an update
	Matched bool
}

// BatchSyncAction tells what SyncItemBatch did
type BatchSyncAction string

const (
	BatchSyncCreated BatchSyncAction = "created"
	BatchSyncUpdated BatchSyncAction = "updated"
)

// ItemBatchResult is the outcome of SyncItemBatch
type ItemBatchResult struct {
	Action  BatchSyncAction
	BatchID uuid.UUID
}

// ToExpiryBatchResponse converts a domain batch to a response
func ToExpiryBatchResponse(b *inventory.ExpiryBatch) ExpiryBatchResponse {
	return ExpiryBatchResponse{
		ID:            b.ID,
		ProductID:     b.ProductID,
		VariationID:   b.VariationID,
		SKU:           b.SKU,
		ProductName:   b.ProductName,
		ExpiryDate:    b.ExpiryDate,
		BatchNumber:   b.BatchNumber,
		Quantity:      b.Quantity,
		StockQuantity: b.StockQuantity,
		Notes:         b.Notes,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

// ToExpiryBatchResponses converts a slice of batches
func ToExpiryBatchResponses(batches []inventory.ExpiryBatch) []ExpiryBatchResponse {
	responses := make([]ExpiryBatchResponse, len(batches))
	for i := range batches {
		responses[i] = ToExpiryBatchResponse(&batches[i])
	}
	return responses
}

func toStockCheckResult(check inventory.StockCheck) StockCheckResult {
	return StockCheckResult{
		SKU:            check.SKU,
		LedgerQuantity: check.LedgerQuantity,
		StockQuantity:  check.StockQuantity,
		Exceeded:       check.Exceeded(),
		Message:        check.Warning(),
	}
}
