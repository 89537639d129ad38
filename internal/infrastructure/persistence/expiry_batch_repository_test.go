package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBatch(t *testing.T, sku, batchNumber string, expiry time.Time, quantity int) *inventory.ExpiryBatch {
	t.Helper()
	batch, err := inventory.NewExpiryBatch(inventory.NewExpiryBatchParams{
		ProductID:   1,
		SKU:         sku,
		ProductName: "Product " + sku,
		ExpiryDate:  expiry,
		BatchNumber: batchNumber,
		Quantity:    quantity,
	})
	require.NoError(t, err)
	return batch
}

func TestGormExpiryBatchRepository_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewGormExpiryBatchRepository(testutil.NewSQLiteDB(t))

	late := newBatch(t, "MILK", "B2", testutil.Date(2024, time.July, 1), 3)
	early := newBatch(t, "MILK", "B1", testutil.Date(2024, time.May, 1), 5)
	other := newBatch(t, "EGGS", "", testutil.Date(2024, time.June, 1), 12)
	for _, b := range []*inventory.ExpiryBatch{late, early, other} {
		require.NoError(t, repo.Save(ctx, b))
	}

	found, err := repo.FindByID(ctx, early.ID)
	require.NoError(t, err)
	assert.Equal(t, "B1", found.BatchNumber)
	assert.Equal(t, testutil.Date(2024, time.May, 1), found.ExpiryDate.UTC())
	assert.Nil(t, found.VariationID)

	batches, err := repo.FindBySKU(ctx, "MILK")
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, "B1", batches[0].BatchNumber, "soonest expiry first")
	assert.Equal(t, "B2", batches[1].BatchNumber)

	byNumber, err := repo.FindBySKUAndBatch(ctx, "MILK", "B2")
	require.NoError(t, err)
	assert.Equal(t, late.ID, byNumber.ID)

	_, err = repo.FindBySKUAndBatch(ctx, "MILK", "B9")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	unnumbered, err := repo.FindBySKUAndBatch(ctx, "EGGS", "")
	require.NoError(t, err)
	assert.Equal(t, other.ID, unnumbered.ID)

	t.Run("update in place", func(t *testing.T) {
		found.Quantity = 9
		require.NoError(t, repo.Save(ctx, found))

		reloaded, err := repo.FindByID(ctx, early.ID)
		require.NoError(t, err)
		assert.Equal(t, 9, reloaded.Quantity)
	})
}

func TestGormExpiryBatchRepository_Aggregates(t *testing.T) {
	ctx := context.Background()
	repo := NewGormExpiryBatchRepository(testutil.NewSQLiteDB(t))

	require.NoError(t, repo.Save(ctx, newBatch(t, "MILK", "B1", testutil.Date(2024, time.May, 1), 5)))
	require.NoError(t, repo.Save(ctx, newBatch(t, "MILK", "B2", testutil.Date(2024, time.June, 1), 3)))

	total, err := repo.SumQuantityBySKU(ctx, "MILK")
	require.NoError(t, err)
	assert.Equal(t, 8, total)

	total, err = repo.SumQuantityBySKU(ctx, "NONE")
	require.NoError(t, err)
	assert.Zero(t, total)

	exists, err := repo.ExistsBySKU(ctx, "MILK")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsBySKU(ctx, "NONE")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGormExpiryBatchRepository_UniqueBatchNumber(t *testing.T) {
	ctx := context.Background()
	repo := NewGormExpiryBatchRepository(testutil.NewSQLiteDB(t))

	require.NoError(t, repo.Save(ctx, newBatch(t, "MILK", "B1", testutil.Date(2024, time.May, 1), 5)))

	err := repo.Save(ctx, newBatch(t, "MILK", "B1", testutil.Date(2024, time.June, 1), 2))
	require.Error(t, err)
	assert.True(t, shared.HasCode(err, shared.CodeConflict))

	// Same number under another SKU is fine
	require.NoError(t, repo.Save(ctx, newBatch(t, "EGGS", "B1", testutil.Date(2024, time.June, 1), 2)))
}

func TestGormExpiryBatchRepository_FindAll(t *testing.T) {
	ctx := context.Background()
	repo := NewGormExpiryBatchRepository(testutil.NewSQLiteDB(t))

	require.NoError(t, repo.Save(ctx, newBatch(t, "MILK", "B1", testutil.Date(2024, time.May, 1), 5)))
	require.NoError(t, repo.Save(ctx, newBatch(t, "MILK", "B2", testutil.Date(2024, time.July, 1), 3)))
	require.NoError(t, repo.Save(ctx, newBatch(t, "EGGS", "LOT-7", testutil.Date(2024, time.June, 1), 12)))

	t.Run("expiry date ascending by default", func(t *testing.T) {
		batches, err := repo.FindAll(ctx, inventory.ExpiryBatchFilter{Filter: shared.Filter{OrderDir: "asc"}})
		require.NoError(t, err)
		require.Len(t, batches, 3)
		assert.Equal(t, "B1", batches[0].BatchNumber)
		assert.Equal(t, "LOT-7", batches[1].BatchNumber)
	})

	t.Run("expiring before", func(t *testing.T) {
		cutoff := testutil.Date(2024, time.June, 1)
		filter := inventory.ExpiryBatchFilter{ExpiringBefore: &cutoff}
		batches, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Len(t, batches, 2)

		count, err := repo.Count(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("sku and search", func(t *testing.T) {
		batches, err := repo.FindAll(ctx, inventory.ExpiryBatchFilter{SKU: "MILK"})
		require.NoError(t, err)
		assert.Len(t, batches, 2)

		batches, err = repo.FindAll(ctx, inventory.ExpiryBatchFilter{Filter: shared.Filter{Search: "lot"}})
		require.NoError(t, err)
		require.Len(t, batches, 1)
		assert.Equal(t, "EGGS", batches[0].SKU)
	})

	t.Run("pagination", func(t *testing.T) {
		batches, err := repo.FindAll(ctx, inventory.ExpiryBatchFilter{Filter: shared.Filter{Page: 2, PageSize: 2, OrderDir: "asc"}})
		require.NoError(t, err)
		require.Len(t, batches, 1)
		assert.Equal(t, "B2", batches[0].BatchNumber)
	})
}

func TestGormExpiryBatchRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewGormExpiryBatchRepository(testutil.NewSQLiteDB(t))

	batch := newBatch(t, "MILK", "B1", testutil.Date(2024, time.May, 1), 5)
	require.NoError(t, repo.Save(ctx, batch))
	require.NoError(t, repo.Delete(ctx, batch.ID))

	_, err := repo.FindByID(ctx, batch.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, batch.ID), shared.ErrNotFound)
}

func TestGormExpiryBatchRepository_StorageErrors(t *testing.T) {
	ctx := context.Background()
	mockDB := testutil.NewMockDB(t)
	repo := NewGormExpiryBatchRepository(mockDB.DB)
	dbErr := errors.New("database is down")

	t.Run("sum propagates driver error", func(t *testing.T) {
		mockDB.Mock.ExpectQuery(`SELECT COALESCE\(SUM\(quantity\), 0\) FROM "expiry_batches" WHERE sku = \$1`).
			WithArgs("MILK").
			WillReturnError(dbErr)

		_, err := repo.SumQuantityBySKU(ctx, "MILK")
		assert.ErrorIs(t, err, dbErr)
	})

	t.Run("delete of missing row", func(t *testing.T) {
		id := uuid.New()
		mockDB.Mock.ExpectExec(`DELETE FROM "expiry_batches" WHERE id = \$1`).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Delete(ctx, id), shared.ErrNotFound)
	})

	t.Run("delete propagates driver error", func(t *testing.T) {
		id := uuid.New()
		mockDB.Mock.ExpectExec(`DELETE FROM "expiry_batches" WHERE id = \$1`).
			WithArgs(id).
			WillReturnError(dbErr)

		err := repo.Delete(ctx, id)
		assert.ErrorIs(t, err, dbErr)
		assert.False(t, errors.Is(err, shared.ErrNotFound))
	})

	mockDB.ExpectationsWereMet(t)
}
