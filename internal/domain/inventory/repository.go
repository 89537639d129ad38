package inventory

import (
	"context"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// ExpiryBatchFilter narrows an expiry batch listing
type ExpiryBatchFilter struct {
	shared.Filter
	SKU            string
	ExpiringBefore *time.Time
}

// ExpiryBatchRepository defines persistence for the expiry batch ledger
type ExpiryBatchRepository interface {
	// FindByID finds a batch by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*ExpiryBatch, error)

	// FindBySKU returns every batch recorded for a SKU, soonest expiry first
	FindBySKU(ctx context.Context, sku string) ([]ExpiryBatch, error)

	// FindBySKUAndBatch finds the batch with the given batch number for a SKU
	FindBySKUAndBatch(ctx context.Context, sku, batchNumber string) (*ExpiryBatch, error)

	// FindAll lists batches matching the filter
	FindAll(ctx context.Context, filter ExpiryBatchFilter) ([]ExpiryBatch, error)

	// Count counts batches matching the filter
	Count(ctx context.Context, filter ExpiryBatchFilter) (int64, error)

	// SumQuantityBySKU sums the quantity of all batches for a SKU
	SumQuantityBySKU(ctx context.Context, sku string) (int, error)

	// ExistsBySKU reports whether the SKU has at least one batch
	ExistsBySKU(ctx context.Context, sku string) (bool, error)

	// Save creates or updates a batch
	Save(ctx context.Context, batch *ExpiryBatch) error

	// Delete deletes a batch
	Delete(ctx context.Context, id uuid.UUID) error
}

// InventoryRecordRepository defines persistence for stock records
type InventoryRecordRepository interface {
	// FindBySKU finds the stock record for a SKU
	FindBySKU(ctx context.Context, sku string) (*InventoryRecord, error)

	// FindByProduct finds the stock record for a product or variation
	FindByProduct(ctx context.Context, productID int64, variationID *int64) (*InventoryRecord, error)

	// Save creates or updates a stock record
	Save(ctx context.Context, record *InventoryRecord) error
}
