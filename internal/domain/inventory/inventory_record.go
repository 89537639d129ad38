package inventory

import (
	"fmt"
	"strings"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InventoryRecord holds the stock quantity of one product or variation.
// There is at most one record per (ProductID, VariationID).
type InventoryRecord struct {
	shared.BaseEntity
	ProductID     int64
	VariationID   *int64
	SKU           string
	CostPrice     decimal.Decimal
	SupplierPrice *decimal.Decimal
	SupplierName  string
	StockQuantity int
}

// NewInventoryRecord creates a stock record seeded with an initial quantity
func NewInventoryRecord(productID int64, variationID *int64, sku string, costPrice decimal.Decimal, quantity int) (*InventoryRecord, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, shared.NewDomainError(shared.CodeValidation, "SKU is required")
	}
	if productID <= 0 {
		return nil, shared.NewDomainError(shared.CodeValidation, fmt.Sprintf("SKU %s is not linked to a product", sku))
	}
	if quantity < 0 {
		return nil, shared.NewDomainError(shared.CodeValidation, fmt.Sprintf("Initial stock for SKU %s cannot be negative", sku))
	}

	return &InventoryRecord{
		BaseEntity:    shared.NewBaseEntity(),
		ProductID:     productID,
		VariationID:   variationID,
		SKU:           sku,
		CostPrice:     costPrice,
		StockQuantity: quantity,
	}, nil
}

// IncreaseStock adds received units to the stock quantity
func (r *InventoryRecord) IncreaseStock(quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError(shared.CodeValidation, fmt.Sprintf("Received quantity for SKU %s must be positive", r.SKU))
	}
	r.StockQuantity += quantity
	r.Touch()
	return nil
}

// AssignSupplier records the supplier name when none is set yet
func (r *InventoryRecord) AssignSupplier(name string) {
	name = strings.TrimSpace(name)
	if name == "" || r.SupplierName != "" {
		return
	}
	r.SupplierName = name
	r.Touch()
}
