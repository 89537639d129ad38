package persistence

import (
	"context"
	"errors"

	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCatalogRepository reads the synced product catalog
type GormCatalogRepository struct {
	db *gorm.DB
}

// NewGormCatalogRepository creates a new GormCatalogRepository
func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: db}
}

// FindBySKU resolves a SKU against products first, then variations
func (r *GormCatalogRepository) FindBySKU(ctx context.Context, sku string) (*catalog.Entry, error) {
	db := r.db.WithContext(ctx)

	var product models.CatalogProductModel
	err := db.Where("sku = ?", sku).First(&product).Error
	if err == nil {
		return product.ToEntry(), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var variation models.CatalogVariationModel
	if err := db.Where("sku = ?", sku).First(&variation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	parentName, err := r.productName(ctx, variation.ParentID)
	if err != nil {
		return nil, err
	}
	return variation.ToEntry(parentName), nil
}

// FindByRefs resolves product and variation references in two queries.
// References that do not resolve are absent from the result.
func (r *GormCatalogRepository) FindByRefs(ctx context.Context, refs []catalog.Ref) (map[catalog.Ref]*catalog.Entry, error) {
	result := make(map[catalog.Ref]*catalog.Entry, len(refs))
	if len(refs) == 0 {
		return result, nil
	}

	productIDs := make([]int64, 0, len(refs))
	variationIDs := make([]int64, 0, len(refs))
	for _, ref := range refs {
		if ref.VariationID == 0 {
			productIDs = append(productIDs, ref.ProductID)
		} else {
			variationIDs = append(variationIDs, ref.VariationID)
			productIDs = append(productIDs, ref.ProductID)
		}
	}

	db := r.db.WithContext(ctx)
	var products []models.CatalogProductModel
	if err := db.Where("id IN ?", productIDs).Find(&products).Error; err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(products))
	for i := range products {
		names[products[i].ID] = products[i].Name
		result[catalog.Ref{ProductID: products[i].ID}] = products[i].ToEntry()
	}

	if len(variationIDs) > 0 {
		var variations []models.CatalogVariationModel
		if err := db.Where("id IN ?", variationIDs).Find(&variations).Error; err != nil {
			return nil, err
		}
		for i := range variations {
			v := &variations[i]
			result[catalog.Ref{ProductID: v.ParentID, VariationID: v.ID}] = v.ToEntry(names[v.ParentID])
		}
	}

	// Only the requested references are returned
	requested := make(map[catalog.Ref]*catalog.Entry, len(refs))
	for _, ref := range refs {
		if e, ok := result[ref]; ok {
			requested[ref] = e
		}
	}
	return requested, nil
}

func (r *GormCatalogRepository) productName(ctx context.Context, id int64) (string, error) {
	var product models.CatalogProductModel
	err := r.db.WithContext(ctx).Select("id", "name").First(&product, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	return product.Name, err
}

// Ensure GormCatalogRepository implements catalog.Repository
var _ catalog.Repository = (*GormCatalogRepository)(nil)
