package handler_test

import (
	"net/http"
	"strings"
	"testing"

	apptrade "github.com/erp/backoffice/internal/application/trade"
	"github.com/erp/backoffice/internal/interfaces/http/handler"
	"github.com/erp/backoffice/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurchaseOrderHandler_CreateAndGet(t *testing.T) {
	f := newAPI(t, nil)

	w := f.do(t, http.MethodPost, "/api/v1/purchase-orders", orderBody(""))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var created apptrade.CreatePurchaseOrderResult
	decodeData(t, w, &created)
	assert.Equal(t, "ordered", created.Order.Status)
	assert.True(t, decimal.RequireFromString("40").Equal(created.Order.TotalAmount))
	assert.Equal(t, 2, created.Order.ItemCount)

	w = f.do(t, http.MethodGet, "/api/v1/purchase-orders/"+created.Order.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var fetched apptrade.PurchaseOrderResponse
	decodeData(t, w, &fetched)
	assert.Equal(t, created.Order.ID, fetched.ID)
	assert.Len(t, fetched.Items, 2)
}

func TestPurchaseOrderHandler_RejectsBadInput(t *testing.T) {
	f := newAPI(t, nil)

	t.Run("unknown status", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/v1/purchase-orders", orderBody("shipped"))
		env := requireErrorCode(t, w, http.StatusBadRequest, "VALIDATION_ERROR")
		require.NotEmpty(t, env.Error.Details)
		assert.Equal(t, "status", env.Error.Details[0].Field)
	})

	t.Run("missing supplier", func(t *testing.T) {
		body := orderBody("")
		delete(body, "supplier_name")
		w := f.do(t, http.MethodPost, "/api/v1/purchase-orders", body)
		requireErrorCode(t, w, http.StatusBadRequest, "VALIDATION_ERROR")
	})

	t.Run("malformed json", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/v1/purchase-orders", "not an object")
		requireErrorCode(t, w, http.StatusBadRequest, "INVALID_JSON")
	})

	t.Run("malformed id", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/v1/purchase-orders/not-a-uuid", nil)
		requireErrorCode(t, w, http.StatusBadRequest, "INVALID_INPUT")
	})

	t.Run("unknown id", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/v1/purchase-orders/"+uuid.New().String(), nil)
		requireErrorCode(t, w, http.StatusNotFound, "NOT_FOUND")
	})
}

func TestPurchaseOrderHandler_ReceiveThenMoveBack(t *testing.T) {
	f := newAPI(t, nil)
	testutil.SeedProduct(t, f.db, testutil.Product{ID: 1, SKU: "A", Name: "Apples", Stock: testutil.IntPtr(5)})

	w := f.do(t, http.MethodPost, "/api/v1/purchase-orders", orderBody(""))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created apptrade.CreatePurchaseOrderResult
	decodeData(t, w, &created)
	path := "/api/v1/purchase-orders/" + created.Order.ID.String()

	w = f.do(t, http.MethodPut, path, map[string]any{"status": "received"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated apptrade.UpdatePurchaseOrderResult
	decodeData(t, w, &updated)
	assert.Equal(t, "received", updated.Order.Status)
	assert.Equal(t, 1, updated.SideEffects.Applied)
	assert.Equal(t, 1, updated.SideEffects.Skipped)
	assert.NotEmpty(t, updated.SideEffects.Warnings)

	w = f.do(t, http.MethodPut, path, map[string]any{"status": "ordered"})
	requireErrorCode(t, w, http.StatusUnprocessableEntity, "INVALID_TRANSITION")

	w = f.do(t, http.MethodPut, path, map[string]any{
		"items": []map[string]any{{"sku": "A", "product_name": "Apples", "quantity": 1, "unit_price": "1.00"}},
	})
	requireErrorCode(t, w, http.StatusUnprocessableEntity, "INVALID_STATE")
}

func TestPurchaseOrderHandler_ListAndDelete(t *testing.T) {
	f := newAPI(t, nil)

	for i := 0; i < 3; i++ {
		w := f.do(t, http.MethodPost, "/api/v1/purchase-orders", orderBody(""))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := f.do(t, http.MethodGet, "/api/v1/purchase-orders?page_size=2", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env := decode(t, w)
	require.NotNil(t, env.Meta)
	assert.EqualValues(t, 3, env.Meta.Total)
	assert.Equal(t, 2, env.Meta.TotalPages)

	var items []apptrade.PurchaseOrderListItem
	decodeData(t, w, &items)
	require.Len(t, items, 2)

	w = f.do(t, http.MethodDelete, "/api/v1/purchase-orders/"+items[0].ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/purchase-orders?status=bogus", nil)
	requireErrorCode(t, w, http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestPurchaseOrderHandler_ItemTemplate(t *testing.T) {
	f := newAPI(t, nil)

	w := f.do(t, http.MethodGet, "/api/v1/purchase-orders/item-template", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "purchase-order-items.csv")
	assert.True(t, strings.HasPrefix(w.Body.String(), "sku,product_name,quantity,unit_price"))

	w = f.do(t, http.MethodGet, "/api/v1/purchase-orders/item-template?format=xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	assert.Equal(t, "PK", w.Body.String()[:2])

	w = f.do(t, http.MethodGet, "/api/v1/purchase-orders/item-template?format=pdf", nil)
	requireErrorCode(t, w, http.StatusBadRequest, "INVALID_INPUT")
}

func TestPurchaseOrderHandler_ParseItems(t *testing.T) {
	f := newAPI(t, nil)

	csv := "sku,product_name,quantity,unit_price,batch_number,expiry_date,notes\n" +
		"A,Apples,10,2.50,B1,31/12/2026,\n" +
		"B,Bananas,zero,1.00,,,\n"
	w := f.upload(t, "/api/v1/purchase-orders/items/parse", "items.csv", csv)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var parsed handler.ParsedItemsResponse
	decodeData(t, w, &parsed)
	require.Len(t, parsed.Items, 1)
	assert.Equal(t, "A", parsed.Items[0].SKU)
	assert.Equal(t, 10, parsed.Items[0].Quantity)
	assert.True(t, decimal.RequireFromString("2.50").Equal(parsed.Items[0].UnitPrice))
	require.NotNil(t, parsed.Items[0].ExpiryDate)
	assert.Equal(t, 2026, parsed.Items[0].ExpiryDate.Year())
	require.Len(t, parsed.Errors, 1)
	assert.Equal(t, 3, parsed.Errors[0].Row)

	w = f.upload(t, "/api/v1/purchase-orders/items/parse", "items.csv", "")
	requireErrorCode(t, w, http.StatusBadRequest, "INVALID_INPUT")
}
