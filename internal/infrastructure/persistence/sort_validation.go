package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// orderClause builds a whitelisted ORDER BY clause
func orderClause(field, dir string, allowed map[string]bool, defaultField string) string {
	return ValidateSortField(field, allowed, defaultField) + " " + ValidateSortOrder(dir)
}

// PurchaseOrderSortFields contains allowed sort fields for purchase orders
var PurchaseOrderSortFields = map[string]bool{
	"created_at":       true,
	"updated_at":       true,
	"order_date":       true,
	"supplier_name":    true,
	"reference_number": true,
	"status":           true,
	"total_amount":     true,
}

// ExpiryBatchSortFields contains allowed sort fields for the expiry ledger
var ExpiryBatchSortFields = map[string]bool{
	"created_at":   true,
	"updated_at":   true,
	"sku":          true,
	"product_name": true,
	"batch_number": true,
	"expiry_date":  true,
	"quantity":     true,
}
