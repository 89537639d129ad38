// Package importapp validates and commits bulk expiry batch imports.
package importapp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	appinv "github.com/erp/backoffice/internal/application/inventory"
	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/erp/backoffice/internal/domain/shared"
	csvimport "github.com/erp/backoffice/internal/infrastructure/import"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BatchImportRow is one raw row of an expiry batch import
type BatchImportRow = csvimport.BatchRow

// ValidRecord is a row that passed validation, with its SKU resolved
type ValidRecord struct {
	Row           int       `json:"row"`
	SKU           string    `json:"sku"`
	ProductID     int64     `json:"product_id"`
	VariationID   *int64    `json:"variation_id,omitempty"`
	ProductName   string    `json:"product_name"`
	ExpiryDate    time.Time `json:"expiry_date"`
	Quantity      int       `json:"quantity"`
	BatchNumber   string    `json:"batch_number"`
	Notes         string    `json:"notes,omitempty"`
	StockQuantity int       `json:"stock_quantity"`
}

// BatchValidationResult is the outcome of validating an import
type BatchValidationResult struct {
	ValidRecords []ValidRecord        `json:"valid_records"`
	Errors       []csvimport.RowError `json:"errors"`
	Warnings     []string             `json:"warnings"`
}

// HasErrors reports whether any row was rejected
func (r *BatchValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// skuState is everything the validator reads for one SKU
type skuState struct {
	entry    *catalog.Entry
	existing []inventory.ExpiryBatch
	stock    int
	// pending holds earlier accepted rows as unsaved batches so the ledger
	// rules see them alongside the stored ones
	pending []inventory.ExpiryBatch
	slotOf  map[uuid.UUID]int
}

// acceptedRow is a row that passed its own checks; a later duplicate may
// still withdraw it
type acceptedRow struct {
	record    ValidRecord
	withdrawn bool
}

// BatchImportValidator checks import rows against the catalog and the ledger.
// It never writes.
type BatchImportValidator struct {
	catalogRepo catalog.Repository
	batchRepo   inventory.ExpiryBatchRepository
	recordRepo  inventory.InventoryRecordRepository
	logger      *zap.Logger
}

// NewBatchImportValidator creates a new BatchImportValidator
func NewBatchImportValidator(
	catalogRepo catalog.Repository,
	batchRepo inventory.ExpiryBatchRepository,
	recordRepo inventory.InventoryRecordRepository,
	logger *zap.Logger,
) *BatchImportValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchImportValidator{
		catalogRepo: catalogRepo,
		batchRepo:   batchRepo,
		recordRepo:  recordRepo,
		logger:      logger,
	}
}

// Validate checks every row in order. The checks for a row stop at its first failure.
// A row whose batch number repeats an earlier accepted row is rejected and the
// earlier row is withdrawn, so neither is imported. Rows without a row number
// are numbered by position, starting at 1.
func (v *BatchImportValidator) Validate(ctx context.Context, rows []BatchImportRow) (*BatchValidationResult, error) {
	rows = NumberRows(rows)

	ctx, span := telemetry.StartServiceSpan(ctx, "batch_import", "validate",
		telemetry.WithAttribute(telemetry.SpanAttrRowCount, len(rows)),
	)
	defer span.End()

	result := &BatchValidationResult{
		ValidRecords: []ValidRecord{},
		Errors:       []csvimport.RowError{},
		Warnings:     []string{},
	}
	states := make(map[string]*skuState)
	var skuOrder []string
	var accepted []acceptedRow

	for _, row := range rows {
		sku := strings.TrimSpace(row.SKU)
		if sku == "" {
			result.Errors = append(result.Errors, csvimport.NewRowError(row.Row, csvimport.ColSKU,
				csvimport.ErrCodeRequiredField, "SKU is required"))
			continue
		}

		state, ok := states[sku]
		if !ok {
			var err error
			state, err = v.load(ctx, sku)
			if err != nil {
				telemetry.RecordError(span, err)
				return nil, err
			}
			states[sku] = state
			skuOrder = append(skuOrder, sku)
		}
		if state.entry == nil {
			result.Errors = append(result.Errors, csvimport.NewRowErrorWithValue(row.Row, csvimport.ColSKU,
				csvimport.ErrCodeSKUNotFound, fmt.Sprintf("SKU %s was not found in the catalog", sku), sku))
			continue
		}

		expiry, err := csvimport.ParseDate(row.ExpiryDate)
		if err != nil {
			result.Errors = append(result.Errors, csvimport.NewRowErrorWithValue(row.Row, csvimport.ColExpiryDate,
				csvimport.ErrCodeInvalidDate, "Expiry date must be a valid date such as 31/12/2025", row.ExpiryDate))
			continue
		}

		quantity, err := strconv.Atoi(strings.TrimSpace(row.Quantity))
		if err != nil || quantity <= 0 {
			result.Errors = append(result.Errors, csvimport.NewRowErrorWithValue(row.Row, csvimport.ColQuantity,
				csvimport.ErrCodeInvalidQty, "Quantity must be a positive whole number", row.Quantity))
			continue
		}

		batchNumber := strings.TrimSpace(row.BatchNumber)
		known := make([]inventory.ExpiryBatch, 0, len(state.existing)+len(state.pending))
		known = append(known, state.existing...)
		known = append(known, state.pending...)
		if err := inventory.CheckBatchNumber(sku, known, batchNumber, uuid.Nil); err != nil {
			var domainErr *shared.DomainError
			if !errors.As(err, &domainErr) {
				return nil, err
			}
			result.Errors = append(result.Errors, csvimport.NewRowErrorWithValue(row.Row, csvimport.ColBatchNumber,
				domainErr.Code, domainErr.Message, batchNumber))

			if domainErr.Code == shared.CodeDuplicateBatch {
				if slot, ok := state.pendingSlot(batchNumber); ok && !accepted[slot].withdrawn {
					accepted[slot].withdrawn = true
					result.Warnings = append(result.Warnings, fmt.Sprintf(
						"Row %d withdrawn: batch %s for SKU %s is repeated on row %d",
						accepted[slot].record.Row, batchNumber, sku, row.Row))
				}
			}
			continue
		}

		record := ValidRecord{
			Row:           row.Row,
			SKU:           sku,
			ProductID:     state.entry.ProductID(),
			VariationID:   state.entry.VariationID(),
			ProductName:   state.entry.DisplayName(),
			ExpiryDate:    expiry,
			Quantity:      quantity,
			BatchNumber:   batchNumber,
			Notes:         strings.TrimSpace(row.Notes),
			StockQuantity: state.stock,
		}
		state.accept(record, len(accepted))
		accepted = append(accepted, acceptedRow{record: record})
	}

	incoming := make(map[string]int)
	for _, a := range accepted {
		if a.withdrawn {
			continue
		}
		result.ValidRecords = append(result.ValidRecords, a.record)
		incoming[a.record.SKU] += a.record.Quantity
	}

	for _, sku := range skuOrder {
		qty, ok := incoming[sku]
		if !ok {
			continue
		}
		state := states[sku]
		check := inventory.StockCheck{
			SKU:              sku,
			LedgerQuantity:   inventory.TotalQuantity(state.existing),
			IncomingQuantity: qty,
			StockQuantity:    state.stock,
		}
		if warning := check.Warning(); warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
	}

	telemetry.SetAttributes(span,
		"import.valid_rows", len(result.ValidRecords),
		"import.error_rows", len(result.Errors),
	)
	telemetry.SetOK(span)
	return result, nil
}

// load reads the catalog entry, ledger batches and stock of one SKU
func (v *BatchImportValidator) load(ctx context.Context, sku string) (*skuState, error) {
	state := &skuState{slotOf: make(map[uuid.UUID]int)}

	entry, err := v.catalogRepo.FindBySKU(ctx, sku)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("resolve sku %s: %w", sku, err)
	}
	if entry == nil || err != nil {
		return state, nil
	}
	state.entry = entry

	state.existing, err = v.batchRepo.FindBySKU(ctx, sku)
	if err != nil {
		return nil, fmt.Errorf("load batches for sku %s: %w", sku, err)
	}
	state.stock, err = appinv.StockQuantity(ctx, v.recordRepo, entry, sku)
	if err != nil {
		return nil, err
	}
	return state, nil
}

// accept records an accepted row held at slot of the accepted list
func (s *skuState) accept(record ValidRecord, slot int) {
	id := uuid.New()
	s.pending = append(s.pending, inventory.ExpiryBatch{
		BaseEntity:  shared.BaseEntity{ID: id},
		SKU:         record.SKU,
		BatchNumber: record.BatchNumber,
		Quantity:    record.Quantity,
		ExpiryDate:  record.ExpiryDate,
	})
	s.slotOf[id] = slot
}

// pendingSlot returns the accepted-list slot of the row that first took
// batchNumber in this import
func (s *skuState) pendingSlot(batchNumber string) (int, bool) {
	for _, b := range s.pending {
		if b.BatchNumber == batchNumber {
			return s.slotOf[b.ID], true
		}
	}
	return 0, false
}

// NumberRows returns rows with every missing row number set to the row's
// 1-based position. Rows that already carry a number keep it.
func NumberRows(rows []BatchImportRow) []BatchImportRow {
	numbered := make([]BatchImportRow, len(rows))
	copy(numbered, rows)
	for i := range numbered {
		if numbered[i].Row == 0 {
			numbered[i].Row = i + 1
		}
	}
	return numbered
}
