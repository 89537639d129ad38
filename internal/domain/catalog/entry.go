// Package catalog describes the product and variation catalog that is synced
// from the storefront. The back office only reads it.
package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// Entry is a product or variation resolved from a SKU
type Entry struct {
	ID            int64
	ParentID      *int64 // Set for variations
	SKU           string
	Name          string
	ParentName    string
	CostPrice     *decimal.Decimal
	StockQuantity *int
}

// IsVariation reports whether the entry is a product variation
func (e *Entry) IsVariation() bool {
	return e.ParentID != nil
}

// ProductID returns the owning product ID
func (e *Entry) ProductID() int64 {
	if e.ParentID != nil {
		return *e.ParentID
	}
	return e.ID
}

// VariationID returns the variation ID, or nil for simple products
func (e *Entry) VariationID() *int64 {
	if e.ParentID == nil {
		return nil
	}
	id := e.ID
	return &id
}

// DisplayName returns the name shown to users, prefixed by the parent for variations
func (e *Entry) DisplayName() string {
	if e.ParentName != "" && e.ParentName != e.Name {
		return e.ParentName + " - " + e.Name
	}
	return e.Name
}

// CostOrZero returns the cost price, or zero when the catalog has none
func (e *Entry) CostOrZero() decimal.Decimal {
	if e.CostPrice == nil {
		return decimal.Zero
	}
	return *e.CostPrice
}

// Ref identifies a catalog product or variation. VariationID is zero for simple products.
type Ref struct {
	ProductID   int64
	VariationID int64
}

// NewRef builds a Ref from a product ID and an optional variation ID
func NewRef(productID int64, variationID *int64) Ref {
	ref := Ref{ProductID: productID}
	if variationID != nil {
		ref.VariationID = *variationID
	}
	return ref
}

// Ref returns the entry's catalog reference
func (e *Entry) Ref() Ref {
	return NewRef(e.ProductID(), e.VariationID())
}

// Repository resolves SKUs and IDs against the catalog
type Repository interface {
	// FindBySKU resolves a SKU, products first then variations.
	// Returns shared.ErrNotFound when neither matches.
	FindBySKU(ctx context.Context, sku string) (*Entry, error)

	// FindByRefs resolves several product/variation references at once
	FindByRefs(ctx context.Context, refs []Ref) (map[Ref]*Entry, error)
}
