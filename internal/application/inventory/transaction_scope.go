package inventory

import (
	"context"

	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/inventory"
)

// TransactionScope runs ledger and stock changes atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the repositories bound to one transaction.
// All repositories returned share the same underlying database transaction.
type TransactionalRepositories interface {
	// ExpiryBatchRepo returns the expiry ledger repository scoped to the current transaction
	ExpiryBatchRepo() inventory.ExpiryBatchRepository
	// InventoryRecordRepo returns the stock record repository scoped to the current transaction
	InventoryRecordRepo() inventory.InventoryRecordRepository
	// CatalogRepo returns the catalog reader scoped to the current transaction
	CatalogRepo() catalog.Repository
}

// NoOpTransactionScope runs the function directly against the given
// repositories. Used in tests with in-memory fakes.
type NoOpTransactionScope struct {
	repos TransactionalRepositories
}

// NewNoOpTransactionScope creates a scope that does not open a transaction
func NewNoOpTransactionScope(repos TransactionalRepositories) *NoOpTransactionScope {
	return &NoOpTransactionScope{repos: repos}
}

// Execute runs fn with the wrapped repositories
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s.repos)
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
