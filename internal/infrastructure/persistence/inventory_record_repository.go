package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormInventoryRecordRepository implements InventoryRecordRepository using GORM
type GormInventoryRecordRepository struct {
	db *gorm.DB
}

// NewGormInventoryRecordRepository creates a new GormInventoryRecordRepository
func NewGormInventoryRecordRepository(db *gorm.DB) *GormInventoryRecordRepository {
	return &GormInventoryRecordRepository{db: db}
}

// FindBySKU finds the stock record for a SKU
func (r *GormInventoryRecordRepository) FindBySKU(ctx context.Context, sku string) (*inventory.InventoryRecord, error) {
	var model models.InventoryRecordModel
	if err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByProduct finds the stock record for a product, or one of its variations
func (r *GormInventoryRecordRepository) FindByProduct(ctx context.Context, productID int64, variationID *int64) (*inventory.InventoryRecord, error) {
	var model models.InventoryRecordModel
	variation := int64(0)
	if variationID != nil {
		variation = *variationID
	}
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND variation_id = ?", productID, variation).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a stock record
func (r *GormInventoryRecordRepository) Save(ctx context.Context, record *inventory.InventoryRecord) error {
	model := models.InventoryRecordModelFromDomain(record)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainError(shared.CodeConflict,
				fmt.Sprintf("Stock record for SKU %s was created by another operation", record.SKU))
		}
		return err
	}
	return nil
}

// Ensure GormInventoryRecordRepository implements InventoryRecordRepository
var _ inventory.InventoryRecordRepository = (*GormInventoryRecordRepository)(nil)
