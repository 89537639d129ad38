package trade

import (
	"context"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// PurchaseOrderFilter narrows a purchase order listing
type PurchaseOrderFilter struct {
	shared.Filter
	Status     *PurchaseOrderStatus
	SupplierID *uuid.UUID
	StartDate  *time.Time
	EndDate    *time.Time
}

// PurchaseOrderRepository defines the interface for purchase order persistence
type PurchaseOrderRepository interface {
	// FindByID finds a purchase order by ID, without items
	FindByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)

	// FindByIDWithItems finds a purchase order by ID and loads its items
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)

	// FindAll lists purchase orders matching the filter
	FindAll(ctx context.Context, filter PurchaseOrderFilter) ([]PurchaseOrder, error)

	// Count counts purchase orders matching the filter
	Count(ctx context.Context, filter PurchaseOrderFilter) (int64, error)

	// Save creates or updates a purchase order header
	Save(ctx context.Context, order *PurchaseOrder) error

	// SaveWithItems persists the header and replaces the stored item set
	SaveWithItems(ctx context.Context, order *PurchaseOrder) error

	// Delete deletes a purchase order and its items
	Delete(ctx context.Context, id uuid.UUID) error
}
