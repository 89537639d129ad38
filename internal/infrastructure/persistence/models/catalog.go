package models

import (
	"time"

	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// CatalogProductModel mirrors a storefront product. Rows are written by the sync job.
type CatalogProductModel struct {
	ID            int64            `gorm:"primaryKey;autoIncrement:false"`
	SKU           string           `gorm:"column:sku;type:varchar(100);index"`
	Name          string           `gorm:"type:varchar(255);not null"`
	CostPrice     *decimal.Decimal `gorm:"type:decimal(18,4)"`
	StockQuantity *int
	SyncedAt      time.Time
}

// TableName returns the table name for GORM
func (CatalogProductModel) TableName() string {
	return "catalog_products"
}

// ToEntry converts the product row to a catalog entry
func (m *CatalogProductModel) ToEntry() *catalog.Entry {
	return &catalog.Entry{
		ID:            m.ID,
		SKU:           m.SKU,
		Name:          m.Name,
		CostPrice:     m.CostPrice,
		StockQuantity: m.StockQuantity,
	}
}

// CatalogVariationModel mirrors a storefront product variation.
type CatalogVariationModel struct {
	ID            int64            `gorm:"primaryKey;autoIncrement:false"`
	ParentID      int64            `gorm:"not null;index"`
	SKU           string           `gorm:"column:sku;type:varchar(100);index"`
	Name          string           `gorm:"type:varchar(255);not null"`
	CostPrice     *decimal.Decimal `gorm:"type:decimal(18,4)"`
	StockQuantity *int
	SyncedAt      time.Time
}

// TableName returns the table name for GORM
func (CatalogVariationModel) TableName() string {
	return "catalog_variations"
}

// ToEntry converts the variation row to a catalog entry; parentName may be empty
func (m *CatalogVariationModel) ToEntry(parentName string) *catalog.Entry {
	parentID := m.ParentID
	return &catalog.Entry{
		ID:            m.ID,
		ParentID:      &parentID,
		SKU:           m.SKU,
		Name:          m.Name,
		ParentName:    parentName,
		CostPrice:     m.CostPrice,
		StockQuantity: m.StockQuantity,
	}
}
