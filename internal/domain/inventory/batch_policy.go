package inventory

import (
	"fmt"
	"strings"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// CheckBatchNumber enforces batch-number rules for one SKU.
//
// A batch number must be unique among the SKU's batches. An empty batch number
// is only allowed when the batch is the SKU's sole record, so an empty candidate
// fails once other batches exist, and any new batch fails while an unnumbered
// batch is still on file. excludeID skips the batch being updated.
func CheckBatchNumber(sku string, existing []ExpiryBatch, candidate string, excludeID uuid.UUID) error {
	candidate = strings.TrimSpace(candidate)

	others := 0
	unnumbered := false
	for _, b := range existing {
		if excludeID != uuid.Nil && b.ID == excludeID {
			continue
		}
		others++
		if b.BatchNumber == "" {
			unnumbered = true
			continue
		}
		if candidate != "" && b.BatchNumber == candidate {
			return NewDuplicateBatchError(sku, candidate)
		}
	}

	if others == 0 {
		return nil
	}
	if candidate == "" {
		return shared.NewDomainError(shared.CodeBatchNumberRequired,
			fmt.Sprintf("Batch number is required for SKU %s because it already has %d batch(es)", sku, others))
	}
	if unnumbered {
		return shared.NewDomainError(shared.CodeBatchNumberRequired,
			fmt.Sprintf("SKU %s has a batch without a batch number; assign one before adding batch %s", sku, candidate))
	}
	return nil
}

// NewDuplicateBatchError builds the error returned when a batch number is already in use
func NewDuplicateBatchError(sku, batchNumber string) *shared.DomainError {
	return shared.NewDomainError(shared.CodeDuplicateBatch,
		fmt.Sprintf("Batch number %s already exists for SKU %s", batchNumber, sku))
}

// NewBatchConflictError builds the error returned when a collision is only detected at commit time
func NewBatchConflictError(sku, batchNumber string) *shared.DomainError {
	return shared.NewDomainError(shared.CodeConflict,
		fmt.Sprintf("Batch number %q for SKU %s was recorded by another operation", batchNumber, sku))
}

// BatchNumbers lists the non-empty batch numbers, skipping excludeID
func BatchNumbers(batches []ExpiryBatch, excludeID uuid.UUID) []string {
	numbers := make([]string, 0, len(batches))
	for _, b := range batches {
		if excludeID != uuid.Nil && b.ID == excludeID {
			continue
		}
		if b.BatchNumber != "" {
			numbers = append(numbers, b.BatchNumber)
		}
	}
	return numbers
}

// TotalQuantity sums the quantity of the given batches
func TotalQuantity(batches []ExpiryBatch) int {
	total := 0
	for _, b := range batches {
		total += b.Quantity
	}
	return total
}

// StockCheck compares the batch quantities recorded for a SKU with its stock.
// Exceeding stock is reported, never blocked.
type StockCheck struct {
	SKU              string `json:"sku"`
	LedgerQuantity   int    `json:"ledger_quantity"`
	IncomingQuantity int    `json:"incoming_quantity"`
	StockQuantity    int    `json:"stock_quantity"`
}

// Total returns ledger plus incoming quantity
func (c StockCheck) Total() int {
	return c.LedgerQuantity + c.IncomingQuantity
}

// Exceeded reports whether batch quantities exceed stock
func (c StockCheck) Exceeded() bool {
	return c.Total() > c.StockQuantity
}

// Warning returns a human readable warning, or "" when stock is not exceeded
func (c StockCheck) Warning() string {
	if !c.Exceeded() {
		return ""
	}
	if c.IncomingQuantity == 0 {
		return fmt.Sprintf("SKU %s: batch quantities total %d, which exceeds stock quantity %d",
			c.SKU, c.LedgerQuantity, c.StockQuantity)
	}
	return fmt.Sprintf("SKU %s: existing batch quantity %d plus imported quantity %d exceeds stock quantity %d",
		c.SKU, c.LedgerQuantity, c.IncomingQuantity, c.StockQuantity)
}
