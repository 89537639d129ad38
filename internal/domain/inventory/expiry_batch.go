package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
)

// ExpiryBatch is one batch of a SKU sharing a single expiry date and batch number.
// It is tracked independently of the purchase order that may have spawned it.
type ExpiryBatch struct {
	shared.BaseEntity
	ProductID     int64
	VariationID   *int64
	SKU           string
	ProductName   string // Denormalized at creation
	ExpiryDate    time.Time
	BatchNumber   string // Empty only when the batch is the SKU's sole record
	Quantity      int
	StockQuantity int // Stock snapshot taken when the batch was recorded
	Notes         string
}

// NewExpiryBatchParams carries the fields needed to record a batch
type NewExpiryBatchParams struct {
	ProductID     int64
	VariationID   *int64
	SKU           string
	ProductName   string
	ExpiryDate    time.Time
	BatchNumber   string
	Quantity      int
	StockQuantity int
	Notes         string
}

// NewExpiryBatch creates a new expiry batch
func NewExpiryBatch(p NewExpiryBatchParams) (*ExpiryBatch, error) {
	sku := strings.TrimSpace(p.SKU)
	if sku == "" {
		return nil, shared.NewDomainError(shared.CodeValidation, "SKU is required")
	}
	if p.ProductID <= 0 {
		return nil, shared.NewDomainError(shared.CodeValidation, fmt.Sprintf("SKU %s is not linked to a product", sku))
	}
	if p.ExpiryDate.IsZero() {
		return nil, shared.NewDomainError(shared.CodeValidation, fmt.Sprintf("Expiry date is required for SKU %s", sku))
	}
	if p.Quantity <= 0 {
		return nil, shared.NewDomainError(shared.CodeValidation, fmt.Sprintf("Quantity must be a positive integer for SKU %s", sku))
	}

	return &ExpiryBatch{
		BaseEntity:    shared.NewBaseEntity(),
		ProductID:     p.ProductID,
		VariationID:   p.VariationID,
		SKU:           sku,
		ProductName:   strings.TrimSpace(p.ProductName),
		ExpiryDate:    DateOnly(p.ExpiryDate),
		BatchNumber:   strings.TrimSpace(p.BatchNumber),
		Quantity:      p.Quantity,
		StockQuantity: p.StockQuantity,
		Notes:         p.Notes,
	}, nil
}

// UpdateQuantity changes the batch quantity
func (b *ExpiryBatch) UpdateQuantity(quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError(shared.CodeValidation, fmt.Sprintf("Quantity must be a positive integer for SKU %s", b.SKU))
	}
	b.Quantity = quantity
	b.Touch()
	return nil
}

// UpdateExpiryDate changes the expiry date
func (b *ExpiryBatch) UpdateExpiryDate(date time.Time) error {
	if date.IsZero() {
		return shared.NewDomainError(shared.CodeValidation, fmt.Sprintf("Expiry date is required for SKU %s", b.SKU))
	}
	b.ExpiryDate = DateOnly(date)
	b.Touch()
	return nil
}

// SetBatchNumber changes the batch number. Uniqueness is checked by CheckBatchNumber.
func (b *ExpiryBatch) SetBatchNumber(batchNumber string) {
	b.BatchNumber = strings.TrimSpace(batchNumber)
	b.Touch()
}

// SetNotes sets the batch notes
func (b *ExpiryBatch) SetNotes(notes string) {
	b.Notes = notes
	b.Touch()
}

// IsExpired returns true if the batch expired before now
func (b *ExpiryBatch) IsExpired(now time.Time) bool {
	return b.ExpiryDate.Before(DateOnly(now))
}

// WillExpireWithin returns true if the batch expires within the given duration
func (b *ExpiryBatch) WillExpireWithin(d time.Duration, now time.Time) bool {
	return !b.ExpiryDate.After(now.Add(d))
}

// DaysUntilExpiry returns the number of whole days until expiry, negative once expired
func (b *ExpiryBatch) DaysUntilExpiry(now time.Time) int {
	return int(b.ExpiryDate.Sub(DateOnly(now)).Hours() / 24)
}

// DateOnly truncates t to midnight UTC of its calendar day
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
