// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Structure:
//   - base.go: shared persistence fields (BaseModel, AggregateModel)
//   - trade.go: purchase orders and their items
//   - inventory.go: expiry batches and stock records
//   - catalog.go: read-only product and variation tables synced from the storefront
//   - idempotency.go: processed keys for receipt deduplication
package models

// All returns every model managed by this service, in dependency order.
// Used by AutoMigrate in tests and by the embedded SQLite bootstrap.
func All() []interface{} {
	return []interface{}{
		&CatalogProductModel{},
		&CatalogVariationModel{},
		&PurchaseOrderModel{},
		&PurchaseOrderItemModel{},
		&ExpiryBatchModel{},
		&InventoryRecordModel{},
		&ProcessedKeyModel{},
	}
}
