package inventory_test

import (
	"testing"

	appinv "github.com/erp/backoffice/internal/application/inventory"
	"github.com/erp/backoffice/internal/infrastructure/persistence"
	"github.com/erp/backoffice/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db         *gorm.DB
	ledger     *appinv.ExpiryLedgerService
	reconciler *appinv.Reconciler
	records    *persistence.GormInventoryRecordRepository
	batches    *persistence.GormExpiryBatchRepository
	receipts   *persistence.GormIdempotencyStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)

	batches := persistence.NewGormExpiryBatchRepository(db)
	records := persistence.NewGormInventoryRecordRepository(db)
	scope := persistence.NewGormTransactionScope(db)
	receipts := persistence.NewGormIdempotencyStore(db)

	reconciler := appinv.NewReconciler(scope, zap.NewNop())
	reconciler.SetIdempotencyStore(receipts, 0)

	return &fixture{
		db:         db,
		ledger:     appinv.NewExpiryLedgerService(batches, records, persistence.NewGormCatalogRepository(db), scope, zap.NewNop()),
		reconciler: reconciler,
		records:    records,
		batches:    batches,
		receipts:   receipts,
	}
}
