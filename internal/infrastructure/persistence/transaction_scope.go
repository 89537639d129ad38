package persistence

import (
	"context"

	appinv "github.com/erp/backoffice/internal/application/inventory"
	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/inventory"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction. The transaction is rolled
// back when fn returns an error and committed otherwise.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// ExpiryBatchRepo returns the expiry ledger repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ExpiryBatchRepo() inventory.ExpiryBatchRepository {
	return NewGormExpiryBatchRepository(r.tx)
}

// InventoryRecordRepo returns the stock record repository scoped to the current transaction.
func (r *gormTransactionalRepositories) InventoryRecordRepo() inventory.InventoryRecordRepository {
	return NewGormInventoryRecordRepository(r.tx)
}

// CatalogRepo returns the catalog reader scoped to the current transaction.
func (r *gormTransactionalRepositories) CatalogRepo() catalog.Repository {
	return NewGormCatalogRepository(r.tx)
}

var (
	_ appinv.TransactionScope          = (*GormTransactionScope)(nil)
	_ appinv.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
