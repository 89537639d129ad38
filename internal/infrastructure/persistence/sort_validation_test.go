package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	assert.Equal(t, "ASC", ValidateSortOrder(" asc "))
	assert.Equal(t, "DESC", ValidateSortOrder("desc"))
	assert.Equal(t, "DESC", ValidateSortOrder("; DROP TABLE"))
	assert.Equal(t, "DESC", ValidateSortOrder(""))
}

func TestValidateSortField(t *testing.T) {
	assert.Equal(t, "expiry_date", ValidateSortField("expiry_date", ExpiryBatchSortFields, "created_at"))
	assert.Equal(t, "created_at", ValidateSortField("password", ExpiryBatchSortFields, "created_at"))
	assert.Equal(t, "order_date", ValidateSortField("", PurchaseOrderSortFields, "order_date"))
	assert.Equal(t, "total_amount DESC", orderClause("total_amount", "", PurchaseOrderSortFields, "order_date"))
}
