package importapp

import (
	"context"
	"fmt"
	"io"

	appinv "github.com/erp/backoffice/internal/application/inventory"
	"github.com/erp/backoffice/internal/domain/shared"
	csvimport "github.com/erp/backoffice/internal/infrastructure/import"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// BatchImportResult reports a committed import
type BatchImportResult struct {
	TotalRows    int                  `json:"total_rows"`
	ImportedRows int                  `json:"imported_rows"`
	SkippedRows  int                  `json:"skipped_rows"`
	Errors       []csvimport.RowError `json:"errors"`
	Warnings     []string             `json:"warnings"`
}

// BatchImportService commits validated import rows to the expiry ledger
type BatchImportService struct {
	validator *BatchImportValidator
	ledger    *appinv.ExpiryLedgerService
	txScope   appinv.TransactionScope
	metrics   *telemetry.ReceivingMetrics
	maxRows   int
	logger    *zap.Logger
}

// NewBatchImportService creates a new BatchImportService
func NewBatchImportService(
	validator *BatchImportValidator,
	ledger *appinv.ExpiryLedgerService,
	txScope appinv.TransactionScope,
	maxRows int,
	logger *zap.Logger,
) *BatchImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchImportService{
		validator: validator,
		ledger:    ledger,
		txScope:   txScope,
		maxRows:   maxRows,
		logger:    logger,
	}
}

// SetMetrics attaches import counters
func (s *BatchImportService) SetMetrics(m *telemetry.ReceivingMetrics) {
	s.metrics = m
}

// ParseCSV decodes an import file with the SKU, Expiry Date, Quantity, Batch Number, Notes columns
func (s *BatchImportService) ParseCSV(r io.Reader) ([]BatchImportRow, error) {
	rows, err := csvimport.DecodeBatchRows(r, s.maxRows)
	if err != nil {
		if csvimport.IsFileError(err) {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, err.Error())
		}
		return nil, fmt.Errorf("decode import file: %w", err)
	}
	return rows, nil
}

// Validate checks rows without writing anything
func (s *BatchImportService) Validate(ctx context.Context, rows []BatchImportRow) (*BatchValidationResult, error) {
	if err := s.checkRowLimit(rows); err != nil {
		return nil, err
	}
	return s.validator.Validate(ctx, rows)
}

// checkRowLimit applies import.max_rows to rows from any source
func (s *BatchImportService) checkRowLimit(rows []BatchImportRow) error {
	if s.maxRows > 0 && len(rows) > s.maxRows {
		return shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Import has %d rows; at most %d are allowed", len(rows), s.maxRows))
	}
	return nil
}

// Commit validates rows and records the valid ones in a single transaction.
// Rows whose batch was taken between validation and commit are reported as
// CONFLICT errors and skipped. A collision caught by the database unique index
// rolls the whole commit back.
func (s *BatchImportService) Commit(ctx context.Context, rows []BatchImportRow) (*BatchImportResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "batch_import", "commit",
		telemetry.WithAttribute(telemetry.SpanAttrRowCount, len(rows)),
	)
	defer span.End()

	if err := s.checkRowLimit(rows); err != nil {
		return nil, err
	}
	validation, err := s.validator.Validate(ctx, rows)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &BatchImportResult{
		TotalRows: len(rows),
		Errors:    validation.Errors,
		Warnings:  validation.Warnings,
	}
	if len(validation.ValidRecords) == 0 {
		result.SkippedRows = len(rows)
		s.record(ctx, result)
		return result, nil
	}

	var conflicts []csvimport.RowError
	imported := 0
	var rolledBack *csvimport.RowError
	err = s.txScope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		conflicts = conflicts[:0]
		imported = 0
		for _, record := range validation.ValidRecords {
			_, err := s.ledger.AddInTransaction(ctx, repos, toAddRequest(record))
			if err == nil {
				imported++
				continue
			}
			switch {
			case shared.HasCode(err, shared.CodeDuplicateBatch), shared.HasCode(err, shared.CodeBatchNumberRequired):
				conflicts = append(conflicts, csvimport.NewRowErrorWithValue(record.Row, csvimport.ColBatchNumber,
					csvimport.ErrCodeConflict, err.Error(), record.BatchNumber))
			case shared.HasCode(err, shared.CodeConflict):
				rowErr := csvimport.NewRowErrorWithValue(record.Row, csvimport.ColBatchNumber,
					csvimport.ErrCodeConflict, err.Error(), record.BatchNumber)
				rolledBack = &rowErr
				return err
			default:
				return fmt.Errorf("import row %d: %w", record.Row, err)
			}
		}
		return nil
	})

	if err != nil {
		if rolledBack == nil {
			telemetry.RecordError(span, err)
			s.logger.Error("Batch import commit failed", zap.Error(err))
			return nil, err
		}
		s.logger.Warn("Batch import rolled back on conflict",
			zap.Int("row", rolledBack.Row),
			zap.String("batch_number", rolledBack.Value),
		)
		result.Errors = append(result.Errors, *rolledBack)
		result.SkippedRows = len(rows)
		s.record(ctx, result)
		return result, nil
	}

	result.Errors = append(result.Errors, conflicts...)
	result.ImportedRows = imported
	result.SkippedRows = len(rows) - imported

	s.logger.Info("Batch import committed",
		zap.Int("total_rows", result.TotalRows),
		zap.Int("imported_rows", result.ImportedRows),
		zap.Int("skipped_rows", result.SkippedRows),
	)
	s.record(ctx, result)
	telemetry.SetOK(span)
	return result, nil
}

func (s *BatchImportService) record(ctx context.Context, result *BatchImportResult) {
	s.metrics.RecordImport(ctx, result.ImportedRows, result.SkippedRows)
}

func toAddRequest(record ValidRecord) appinv.AddExpiryBatchRequest {
	productID := record.ProductID
	stock := record.StockQuantity
	return appinv.AddExpiryBatchRequest{
		SKU:           record.SKU,
		ExpiryDate:    record.ExpiryDate,
		BatchNumber:   record.BatchNumber,
		Quantity:      record.Quantity,
		Notes:         record.Notes,
		ProductID:     &productID,
		VariationID:   record.VariationID,
		ProductName:   record.ProductName,
		StockQuantity: &stock,
	}
}
