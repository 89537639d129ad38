package models

import (
	"time"

	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// ExpiryBatchModel is the persistence model for the ExpiryBatch entity.
// The unique index on (sku, batch_number) backs the per-SKU batch rules at commit time.
type ExpiryBatchModel struct {
	BaseModel
	ProductID     int64     `gorm:"not null;index"`
	VariationID   int64     `gorm:"not null;default:0"`
	SKU           string    `gorm:"column:sku;type:varchar(100);not null;uniqueIndex:idx_expiry_batches_sku_batch,priority:1"`
	ProductName   string    `gorm:"type:varchar(255)"`
	ExpiryDate    time.Time `gorm:"type:date;not null;index"`
	BatchNumber   string    `gorm:"type:varchar(100);not null;default:'';uniqueIndex:idx_expiry_batches_sku_batch,priority:2"`
	Quantity      int       `gorm:"not null"`
	StockQuantity int       `gorm:"not null;default:0"`
	Notes         string    `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (ExpiryBatchModel) TableName() string {
	return "expiry_batches"
}

// ToDomain converts the persistence model to a domain ExpiryBatch entity.
func (m *ExpiryBatchModel) ToDomain() *inventory.ExpiryBatch {
	return &inventory.ExpiryBatch{
		BaseEntity:    m.BaseModel.ToDomain(),
		ProductID:     m.ProductID,
		VariationID:   variationPtr(m.VariationID),
		SKU:           m.SKU,
		ProductName:   m.ProductName,
		ExpiryDate:    inventory.DateOnly(m.ExpiryDate),
		BatchNumber:   m.BatchNumber,
		Quantity:      m.Quantity,
		StockQuantity: m.StockQuantity,
		Notes:         m.Notes,
	}
}

// ExpiryBatchModelFromDomain creates a new persistence model from a domain ExpiryBatch entity.
func ExpiryBatchModelFromDomain(b *inventory.ExpiryBatch) *ExpiryBatchModel {
	m := &ExpiryBatchModel{
		ProductID:     b.ProductID,
		VariationID:   variationValue(b.VariationID),
		SKU:           b.SKU,
		ProductName:   b.ProductName,
		ExpiryDate:    inventory.DateOnly(b.ExpiryDate),
		BatchNumber:   b.BatchNumber,
		Quantity:      b.Quantity,
		StockQuantity: b.StockQuantity,
		Notes:         b.Notes,
	}
	m.FromDomainBaseEntity(b.BaseEntity)
	return m
}

// InventoryRecordModel is the persistence model for the InventoryRecord entity.
type InventoryRecordModel struct {
	BaseModel
	ProductID     int64            `gorm:"not null;uniqueIndex:idx_inventory_records_product,priority:1"`
	VariationID   int64            `gorm:"not null;default:0;uniqueIndex:idx_inventory_records_product,priority:2"`
	SKU           string           `gorm:"column:sku;type:varchar(100);not null;index"`
	CostPrice     decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	SupplierPrice *decimal.Decimal `gorm:"type:decimal(18,4)"`
	SupplierName  string           `gorm:"type:varchar(200)"`
	StockQuantity int              `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (InventoryRecordModel) TableName() string {
	return "inventory_records"
}

// ToDomain converts the persistence model to a domain InventoryRecord entity.
func (m *InventoryRecordModel) ToDomain() *inventory.InventoryRecord {
	return &inventory.InventoryRecord{
		BaseEntity:    m.BaseModel.ToDomain(),
		ProductID:     m.ProductID,
		VariationID:   variationPtr(m.VariationID),
		SKU:           m.SKU,
		CostPrice:     m.CostPrice,
		SupplierPrice: m.SupplierPrice,
		SupplierName:  m.SupplierName,
		StockQuantity: m.StockQuantity,
	}
}

// InventoryRecordModelFromDomain creates a new persistence model from a domain InventoryRecord entity.
func InventoryRecordModelFromDomain(r *inventory.InventoryRecord) *InventoryRecordModel {
	m := &InventoryRecordModel{
		ProductID:     r.ProductID,
		VariationID:   variationValue(r.VariationID),
		SKU:           r.SKU,
		CostPrice:     r.CostPrice,
		SupplierPrice: r.SupplierPrice,
		SupplierName:  r.SupplierName,
		StockQuantity: r.StockQuantity,
	}
	m.FromDomainBaseEntity(r.BaseEntity)
	return m
}
