package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormExpiryBatchRepository implements ExpiryBatchRepository using GORM
type GormExpiryBatchRepository struct {
	db *gorm.DB
}

// NewGormExpiryBatchRepository creates a new GormExpiryBatchRepository
func NewGormExpiryBatchRepository(db *gorm.DB) *GormExpiryBatchRepository {
	return &GormExpiryBatchRepository{db: db}
}

// FindByID finds a batch by its ID
func (r *GormExpiryBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.ExpiryBatch, error) {
	var model models.ExpiryBatchModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySKU returns all batches for a SKU, soonest expiry first
func (r *GormExpiryBatchRepository) FindBySKU(ctx context.Context, sku string) ([]inventory.ExpiryBatch, error) {
	var batchModels []models.ExpiryBatchModel
	if err := r.db.WithContext(ctx).
		Where("sku = ?", sku).
		Order("expiry_date ASC, batch_number ASC").
		Find(&batchModels).Error; err != nil {
		return nil, err
	}
	return toExpiryBatches(batchModels), nil
}

// FindBySKUAndBatch finds the batch with the given number for a SKU
func (r *GormExpiryBatchRepository) FindBySKUAndBatch(ctx context.Context, sku, batchNumber string) (*inventory.ExpiryBatch, error) {
	var model models.ExpiryBatchModel
	if err := r.db.WithContext(ctx).
		Where("sku = ? AND batch_number = ?", sku, batchNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists batches matching the filter
func (r *GormExpiryBatchRepository) FindAll(ctx context.Context, filter inventory.ExpiryBatchFilter) ([]inventory.ExpiryBatch, error) {
	var batchModels []models.ExpiryBatchModel

	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.ExpiryBatchModel{}), filter)
	query = query.Order(orderClause(filter.OrderBy, filter.OrderDir, ExpiryBatchSortFields, "expiry_date"))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	if err := query.Find(&batchModels).Error; err != nil {
		return nil, err
	}
	return toExpiryBatches(batchModels), nil
}

// Count counts batches matching the filter
func (r *GormExpiryBatchRepository) Count(ctx context.Context, filter inventory.ExpiryBatchFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.ExpiryBatchModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SumQuantityBySKU sums the quantity of every batch for a SKU
func (r *GormExpiryBatchRepository) SumQuantityBySKU(ctx context.Context, sku string) (int, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.ExpiryBatchModel{}).
		Where("sku = ?", sku).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return int(total), nil
}

// ExistsBySKU reports whether a SKU has at least one batch
func (r *GormExpiryBatchRepository) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ExpiryBatchModel{}).
		Where("sku = ?", sku).
		Limit(1).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a batch. A (sku, batch_number) collision that slipped
// past the ledger's checks surfaces as a CONFLICT domain error.
func (r *GormExpiryBatchRepository) Save(ctx context.Context, batch *inventory.ExpiryBatch) error {
	model := models.ExpiryBatchModelFromDomain(batch)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if isUniqueViolation(err) {
			return inventory.NewBatchConflictError(batch.SKU, batch.BatchNumber)
		}
		return err
	}
	return nil
}

// Delete deletes a batch
func (r *GormExpiryBatchRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ExpiryBatchModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormExpiryBatchRepository) applyFilter(query *gorm.DB, filter inventory.ExpiryBatchFilter) *gorm.DB {
	if filter.SKU != "" {
		query = query.Where("sku = ?", filter.SKU)
	}
	if filter.ExpiringBefore != nil {
		query = query.Where("expiry_date <= ?", inventory.DateOnly(*filter.ExpiringBefore))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(sku) LIKE ? OR LOWER(product_name) LIKE ? OR LOWER(batch_number) LIKE ?", like, like, like)
	}
	return query
}

func toExpiryBatches(batchModels []models.ExpiryBatchModel) []inventory.ExpiryBatch {
	batches := make([]inventory.ExpiryBatch, len(batchModels))
	for i := range batchModels {
		batches[i] = *batchModels[i].ToDomain()
	}
	return batches
}

// Ensure GormExpiryBatchRepository implements ExpiryBatchRepository
var _ inventory.ExpiryBatchRepository = (*GormExpiryBatchRepository)(nil)
