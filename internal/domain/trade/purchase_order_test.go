package trade

import (
	"strconv"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(t *testing.T) *PurchaseOrder {
	t.Helper()
	order, err := NewPurchaseOrder("Fresh Farms", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return order
}

func TestPurchaseOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to PurchaseOrderStatus
		allowed  bool
	}{
		{PurchaseOrderStatusOrdered, PurchaseOrderStatusPartiallyReceived, true},
		{PurchaseOrderStatusOrdered, PurchaseOrderStatusReceived, true},
		{PurchaseOrderStatusPartiallyReceived, PurchaseOrderStatusReceived, true},
		{PurchaseOrderStatusPartiallyReceived, PurchaseOrderStatusOrdered, false},
		{PurchaseOrderStatusReceived, PurchaseOrderStatusOrdered, false},
		{PurchaseOrderStatusReceived, PurchaseOrderStatusPartiallyReceived, false},
		{PurchaseOrderStatusOrdered, PurchaseOrderStatus("shipped"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestParsePurchaseOrderStatus(t *testing.T) {
	status, err := ParsePurchaseOrderStatus(" received ")
	require.NoError(t, err)
	assert.Equal(t, PurchaseOrderStatusReceived, status)

	_, err = ParsePurchaseOrderStatus("RECEIVED")
	assert.True(t, shared.HasCode(err, shared.CodeInvalidInput))
}

func TestNewPurchaseOrderItem(t *testing.T) {
	t.Run("computes total price", func(t *testing.T) {
		item, err := NewPurchaseOrderItem(newTestOrder(t).ID, "A", "Apples", 5, decimal.RequireFromString("2.00"))
		require.NoError(t, err)
		assert.True(t, item.TotalPrice.Equal(decimal.RequireFromString("10.00")))
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		_, err := NewPurchaseOrderItem(newTestOrder(t).ID, "", "Apples", 5, decimal.NewFromInt(1))
		assert.Error(t, err)
		_, err = NewPurchaseOrderItem(newTestOrder(t).ID, "A", "Apples", 0, decimal.NewFromInt(1))
		assert.Error(t, err)
		_, err = NewPurchaseOrderItem(newTestOrder(t).ID, "A", "Apples", 1, decimal.NewFromInt(-1))
		assert.Error(t, err)
	})
}

func TestPurchaseOrderItem_SetQuantityReceived(t *testing.T) {
	item, err := NewPurchaseOrderItem(newTestOrder(t).ID, "A", "Apples", 7, decimal.RequireFromString("1.25"))
	require.NoError(t, err)

	require.NoError(t, item.SetQuantityReceived(5))
	assert.Equal(t, 5, item.ReceivedOrZero())
	assert.Error(t, item.SetQuantityReceived(8))
	assert.Error(t, item.SetQuantityReceived(-1))
}

// newItems builds items from (sku, quantity, unit price) triples
func newItems(t *testing.T, order *PurchaseOrder, specs ...string) []PurchaseOrderItem {
	t.Helper()
	items := make([]PurchaseOrderItem, 0, len(specs)/3)
	for i := 0; i+2 < len(specs); i += 3 {
		qty, err := strconv.Atoi(specs[i+1])
		require.NoError(t, err)
		item, err := NewPurchaseOrderItem(order.ID, specs[i], specs[i]+" product", qty, decimal.RequireFromString(specs[i+2]))
		require.NoError(t, err)
		items = append(items, *item)
	}
	return items
}

func TestPurchaseOrder_ReplaceItems(t *testing.T) {
	order := newTestOrder(t)

	require.NoError(t, order.ReplaceItems(newItems(t, order, "A", "2", "10.00", "B", "1", "20.00")))
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("40.00")), order.TotalAmount.String())

	require.NoError(t, order.ReplaceItems(newItems(t, order, "A", "3", "10.00", "B", "2", "20.00")))
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("70.00")), order.TotalAmount.String())
	assert.Equal(t, 2, order.ItemCount())
	assert.Equal(t, 5, order.TotalQuantity())

	for idx, item := range order.Items {
		assert.Equal(t, order.ID, item.PurchaseOrderID)
		assert.Equal(t, idx+1, item.LineNo)
		assert.True(t, item.TotalPrice.Equal(decimal.NewFromInt(int64(item.Quantity)).Mul(item.UnitPrice)))
	}
}

func TestPurchaseOrder_ItemsByLine(t *testing.T) {
	order := newTestOrder(t)
	require.NoError(t, order.ReplaceItems(newItems(t, order, "MILK", "5", "1.00", "MILK", "7", "1.00")))

	byLine := order.ItemsByLine()
	require.Len(t, byLine, 2)
	assert.Equal(t, 5, byLine[1].Quantity)
	assert.Equal(t, 7, byLine[2].Quantity)

	// lines sharing a SKU and batch collapse under ItemsByKey
	assert.Len(t, order.ItemsByKey(), 1)
}

func TestPurchaseOrder_TransitionTo(t *testing.T) {
	t.Run("forward transitions", func(t *testing.T) {
		order := newTestOrder(t)
		change, err := order.TransitionTo(PurchaseOrderStatusPartiallyReceived)
		require.NoError(t, err)
		assert.True(t, change.BringsStockIn())

		change, err = order.TransitionTo(PurchaseOrderStatusReceived)
		require.NoError(t, err)
		assert.Equal(t, PurchaseOrderStatusPartiallyReceived, change.From)
		assert.Equal(t, PurchaseOrderStatusReceived, order.Status)
	})

	t.Run("backward transition rejected", func(t *testing.T) {
		order := newTestOrder(t)
		_, err := order.TransitionTo(PurchaseOrderStatusReceived)
		require.NoError(t, err)

		_, err = order.TransitionTo(PurchaseOrderStatusOrdered)
		assert.True(t, shared.HasCode(err, shared.CodeInvalidTransition))
		assert.Equal(t, PurchaseOrderStatusReceived, order.Status)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		order := newTestOrder(t)
		change, err := order.TransitionTo(PurchaseOrderStatusOrdered)
		require.NoError(t, err)
		assert.False(t, change.Changed())
		assert.False(t, change.BringsStockIn())
	})

	t.Run("items locked after receipt", func(t *testing.T) {
		order := newTestOrder(t)
		_, err := order.TransitionTo(PurchaseOrderStatusReceived)
		require.NoError(t, err)
		err = order.ReplaceItems(newItems(t, order, "A", "1", "1"))
		assert.True(t, shared.HasCode(err, shared.CodeInvalidState))
	})
}

func TestStatusChange_ReceiptQuantity(t *testing.T) {
	item := PurchaseOrderItem{SKU: "A", Quantity: 20}
	received := 8
	item.QuantityReceived = &received

	tests := []struct {
		name     string
		change   StatusChange
		previous int
		want     int
	}{
		{"partial uses received quantity", StatusChange{PurchaseOrderStatusOrdered, PurchaseOrderStatusPartiallyReceived}, 0, 8},
		{"full receipt uses quantity", StatusChange{PurchaseOrderStatusOrdered, PurchaseOrderStatusReceived}, 0, 20},
		{"completion receives the remainder", StatusChange{PurchaseOrderStatusPartiallyReceived, PurchaseOrderStatusReceived}, 8, 12},
		{"no change receives nothing", StatusChange{PurchaseOrderStatusOrdered, PurchaseOrderStatusOrdered}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.change.ReceiptQuantity(item, tt.previous))
		})
	}
}
