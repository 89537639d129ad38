package inventory

import (
	"testing"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExpiryBatch(t *testing.T) {
	t.Run("normalizes fields", func(t *testing.T) {
		b, err := NewExpiryBatch(NewExpiryBatchParams{
			ProductID:   10,
			SKU:         " MILK-1L ",
			ProductName: "Milk",
			ExpiryDate:  time.Date(2025, 2, 3, 17, 45, 0, 0, time.UTC),
			BatchNumber: " L42 ",
			Quantity:    6,
		})
		require.NoError(t, err)
		assert.Equal(t, "MILK-1L", b.SKU)
		assert.Equal(t, "L42", b.BatchNumber)
		assert.Equal(t, time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC), b.ExpiryDate)
	})

	t.Run("validation", func(t *testing.T) {
		base := NewExpiryBatchParams{ProductID: 1, SKU: "A", ExpiryDate: time.Now(), Quantity: 1}

		p := base
		p.Quantity = 0
		_, err := NewExpiryBatch(p)
		assert.True(t, shared.HasCode(err, shared.CodeValidation))

		p = base
		p.ExpiryDate = time.Time{}
		_, err = NewExpiryBatch(p)
		assert.Error(t, err)

		p = base
		p.ProductID = 0
		_, err = NewExpiryBatch(p)
		assert.Error(t, err)
	})
}

func TestExpiryBatch_ExpiryHelpers(t *testing.T) {
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	b := batch(t, "X", "B1", 1)
	require.NoError(t, b.UpdateExpiryDate(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)))

	assert.False(t, b.IsExpired(now))
	assert.Equal(t, 5, b.DaysUntilExpiry(now))
	assert.True(t, b.WillExpireWithin(7*24*time.Hour, now))
	assert.False(t, b.WillExpireWithin(24*time.Hour, now))
	assert.True(t, b.IsExpired(now.AddDate(0, 0, 6)))
}

func TestInventoryRecord(t *testing.T) {
	r, err := NewInventoryRecord(3, nil, "A", decimal.RequireFromString("1.20"), 20)
	require.NoError(t, err)
	assert.Equal(t, 20, r.StockQuantity)

	require.NoError(t, r.IncreaseStock(5))
	assert.Equal(t, 25, r.StockQuantity)
	assert.Error(t, r.IncreaseStock(0))

	r.AssignSupplier("Fresh Farms")
	r.AssignSupplier("Other")
	assert.Equal(t, "Fresh Farms", r.SupplierName)
}
