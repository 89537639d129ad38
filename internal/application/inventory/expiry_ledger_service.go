package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExpiryLedgerService maintains the batch-level expiry ledger
type ExpiryLedgerService struct {
	batchRepo   inventory.ExpiryBatchRepository
	recordRepo  inventory.InventoryRecordRepository
	catalogRepo catalog.Repository
	txScope     TransactionScope
	logger      *zap.Logger
	now         func() time.Time
}

// NewExpiryLedgerService creates a new ExpiryLedgerService
func NewExpiryLedgerService(
	batchRepo inventory.ExpiryBatchRepository,
	recordRepo inventory.InventoryRecordRepository,
	catalogRepo catalog.Repository,
	txScope TransactionScope,
	logger *zap.Logger,
) *ExpiryLedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpiryLedgerService{
		batchRepo:   batchRepo,
		recordRepo:  recordRepo,
		catalogRepo: catalogRepo,
		txScope:     txScope,
		logger:      logger,
		now:         time.Now,
	}
}

// Add records a new expiry batch after checking the SKU's batch-number rules
func (s *ExpiryLedgerService) Add(ctx context.Context, req AddExpiryBatchRequest) (*ExpiryBatchResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "expiry_batch", "add",
		telemetry.WithAttribute(telemetry.SpanAttrSKU, req.SKU),
		telemetry.WithAttribute(telemetry.SpanAttrBatchNumber, req.BatchNumber),
	)
	defer span.End()

	var batch *inventory.ExpiryBatch
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		batch, err = s.AddInTransaction(ctx, repos, req)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Expiry batch recorded",
		zap.String("sku", batch.SKU),
		zap.String("batch_number", batch.BatchNumber),
		zap.Int("quantity", batch.Quantity),
	)
	response := ToExpiryBatchResponse(batch)
	return &response, nil
}

// AddInTransaction records a batch using repositories bound to an open transaction.
// Callers that commit several batches at once share one transaction through it.
func (s *ExpiryLedgerService) AddInTransaction(ctx context.Context, repos TransactionalRepositories, req AddExpiryBatchRequest) (*inventory.ExpiryBatch, error) {
	sku := strings.TrimSpace(req.SKU)
	if sku == "" {
		return nil, shared.NewDomainError(shared.CodeValidation, "SKU is required")
	}

	params := inventory.NewExpiryBatchParams{
		SKU:         sku,
		ExpiryDate:  req.ExpiryDate,
		BatchNumber: req.BatchNumber,
		Quantity:    req.Quantity,
		Notes:       req.Notes,
		ProductName: req.ProductName,
	}

	var entry *catalog.Entry
	if req.ProductID == nil || req.ProductName == "" || req.StockQuantity == nil {
		var err error
		entry, err = repos.CatalogRepo().FindBySKU(ctx, sku)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("resolve sku %s: %w", sku, err)
		}
	}

	switch {
	case req.ProductID != nil:
		params.ProductID = *req.ProductID
		params.VariationID = req.VariationID
	case entry != nil:
		params.ProductID = entry.ProductID()
		params.VariationID = entry.VariationID()
	default:
		return nil, shared.NewDomainError(shared.CodeValidation,
			fmt.Sprintf("SKU %s was not found in the catalog", sku))
	}
	if params.ProductName == "" && entry != nil {
		params.ProductName = entry.DisplayName()
	}

	if req.StockQuantity != nil {
		params.StockQuantity = *req.StockQuantity
	} else {
		stock, err := StockQuantity(ctx, repos.InventoryRecordRepo(), entry, sku)
		if err != nil {
			return nil, err
		}
		params.StockQuantity = stock
	}

	existing, err := repos.ExpiryBatchRepo().FindBySKU(ctx, sku)
	if err != nil {
		return nil, fmt.Errorf("load batches for sku %s: %w", sku, err)
	}
	if err := inventory.CheckBatchNumber(sku, existing, req.BatchNumber, uuid.Nil); err != nil {
		return nil, err
	}

	batch, err := inventory.NewExpiryBatch(params)
	if err != nil {
		return nil, err
	}
	if err := repos.ExpiryBatchRepo().Save(ctx, batch); err != nil {
		return nil, err
	}
	return batch, nil
}

// Update patches an expiry batch. A changed batch number is checked against the SKU's other batches.
func (s *ExpiryLedgerService) Update(ctx context.Context, id uuid.UUID, req UpdateExpiryBatchRequest) (*ExpiryBatchResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "expiry_batch", "update")
	defer span.End()

	var batch *inventory.ExpiryBatch
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		batch, err = repos.ExpiryBatchRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}

		if req.BatchNumber != nil && strings.TrimSpace(*req.BatchNumber) != batch.BatchNumber {
			existing, err := repos.ExpiryBatchRepo().FindBySKU(ctx, batch.SKU)
			if err != nil {
				return fmt.Errorf("load batches for sku %s: %w", batch.SKU, err)
			}
			if err := inventory.CheckBatchNumber(batch.SKU, existing, *req.BatchNumber, batch.ID); err != nil {
				return err
			}
			batch.SetBatchNumber(*req.BatchNumber)
		}
		if req.Quantity != nil {
			if err := batch.UpdateQuantity(*req.Quantity); err != nil {
				return err
			}
		}
		if req.ExpiryDate != nil {
			if err := batch.UpdateExpiryDate(*req.ExpiryDate); err != nil {
				return err
			}
		}
		if req.Notes != nil {
			batch.SetNotes(*req.Notes)
		}
		return repos.ExpiryBatchRepo().Save(ctx, batch)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	response := ToExpiryBatchResponse(batch)
	return &response, nil
}

// Delete removes an expiry batch
func (s *ExpiryLedgerService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.batchRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Expiry batch deleted", zap.String("batch_id", id.String()))
	return nil
}

// GetByID returns one expiry batch
func (s *ExpiryLedgerService) GetByID(ctx context.Context, id uuid.UUID) (*ExpiryBatchResponse, error) {
	batch, err := s.batchRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToExpiryBatchResponse(batch)
	return &response, nil
}

// ListBySKU returns the SKU's batches, soonest expiry first
func (s *ExpiryLedgerService) ListBySKU(ctx context.Context, sku string) ([]ExpiryBatchResponse, error) {
	batches, err := s.batchRepo.FindBySKU(ctx, strings.TrimSpace(sku))
	if err != nil {
		return nil, err
	}
	return ToExpiryBatchResponses(batches), nil
}

// TotalQuantityBySKU sums the quantity recorded across the SKU's batches
func (s *ExpiryLedgerService) TotalQuantityBySKU(ctx context.Context, sku string) (int, error) {
	return s.batchRepo.SumQuantityBySKU(ctx, strings.TrimSpace(sku))
}

// BatchNumbersBySKU lists the SKU's batch numbers, optionally skipping one batch
func (s *ExpiryLedgerService) BatchNumbersBySKU(ctx context.Context, sku string, excludeID *uuid.UUID) ([]string, error) {
	batches, err := s.batchRepo.FindBySKU(ctx, strings.TrimSpace(sku))
	if err != nil {
		return nil, err
	}
	exclude := uuid.Nil
	if excludeID != nil {
		exclude = *excludeID
	}
	return inventory.BatchNumbers(batches, exclude), nil
}

// HasExistingBatches reports whether the SKU already has ledger records
func (s *ExpiryLedgerService) HasExistingBatches(ctx context.Context, sku string) (bool, error) {
	return s.batchRepo.ExistsBySKU(ctx, strings.TrimSpace(sku))
}

// ListWithDetails lists batches enriched with the live catalog name and current stock
func (s *ExpiryLedgerService) ListWithDetails(ctx context.Context, filter ExpiryBatchListFilter) ([]ExpiryBatchDetail, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "expiry_date"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "asc"
	}

	domainFilter := inventory.ExpiryBatchFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
			Search:   filter.Search,
		},
		SKU: strings.TrimSpace(filter.SKU),
	}
	if filter.ExpiringWithinDays != nil {
		before := s.now().UTC().AddDate(0, 0, *filter.ExpiringWithinDays)
		domainFilter.ExpiringBefore = &before
	}

	batches, err := s.batchRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.batchRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	details, err := s.enrich(ctx, batches)
	if err != nil {
		return nil, 0, err
	}
	return details, total, nil
}

// Expiring returns batches expiring within the given window, soonest first
func (s *ExpiryLedgerService) Expiring(ctx context.Context, within time.Duration) ([]ExpiryBatchDetail, error) {
	if within < 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Expiry window cannot be negative")
	}
	before := s.now().UTC().Add(within)
	batches, err := s.batchRepo.FindAll(ctx, inventory.ExpiryBatchFilter{
		Filter:         shared.Filter{OrderBy: "expiry_date", OrderDir: "asc"},
		ExpiringBefore: &before,
	})
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, batches)
}

// StockCheck compares the SKU's ledger total with its stock quantity
func (s *ExpiryLedgerService) StockCheck(ctx context.Context, sku string) (*StockCheckResult, error) {
	sku = strings.TrimSpace(sku)
	total, err := s.batchRepo.SumQuantityBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}

	entry, err := s.catalogRepo.FindBySKU(ctx, sku)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	stock, err := StockQuantity(ctx, s.recordRepo, entry, sku)
	if err != nil {
		return nil, err
	}

	result := toStockCheckResult(inventory.StockCheck{SKU: sku, LedgerQuantity: total, StockQuantity: stock})
	return &result, nil
}

// Summary returns the ledger summary shown next to a SKU
func (s *ExpiryLedgerService) Summary(ctx context.Context, sku string) (*BatchSummaryResponse, error) {
	sku = strings.TrimSpace(sku)
	batches, err := s.batchRepo.FindBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	check, err := s.StockCheck(ctx, sku)
	if err != nil {
		return nil, err
	}
	return &BatchSummaryResponse{
		SKU:           sku,
		HasBatches:    len(batches) > 0,
		TotalQuantity: inventory.TotalQuantity(batches),
		BatchNumbers:  inventory.BatchNumbers(batches, uuid.Nil),
		StockCheck:    *check,
	}, nil
}

// SyncItemBatch mirrors a purchase order item into the ledger. A matched item
// updates its existing batch in place; anything else records a new batch.
func (s *ExpiryLedgerService) SyncItemBatch(ctx context.Context, req SyncItemBatchRequest) (ItemBatchResult, error) {
	var result ItemBatchResult
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if req.Matched {
			batch, err := repos.ExpiryBatchRepo().FindBySKUAndBatch(ctx, req.SKU, req.BatchNumber)
			switch {
			case err == nil:
				if err := batch.UpdateQuantity(req.Quantity); err != nil {
					return err
				}
				if err := batch.UpdateExpiryDate(req.ExpiryDate); err != nil {
					return err
				}
				if err := repos.ExpiryBatchRepo().Save(ctx, batch); err != nil {
					return err
				}
				result = ItemBatchResult{Action: BatchSyncUpdated, BatchID: batch.ID}
				return nil
			case !errors.Is(err, shared.ErrNotFound):
				return err
			}
		}

		batch, err := s.AddInTransaction(ctx, repos, AddExpiryBatchRequest{
			SKU:         req.SKU,
			ExpiryDate:  req.ExpiryDate,
			BatchNumber: req.BatchNumber,
			Quantity:    req.Quantity,
			Notes:       req.Notes,
			ProductName: req.ProductName,
		})
		if err != nil {
			return err
		}
		result = ItemBatchResult{Action: BatchSyncCreated, BatchID: batch.ID}
		return nil
	})
	return result, err
}

func (s *ExpiryLedgerService) enrich(ctx context.Context, batches []inventory.ExpiryBatch) ([]ExpiryBatchDetail, error) {
	refs := make([]catalog.Ref, 0, len(batches))
	seen := make(map[catalog.Ref]bool, len(batches))
	for _, b := range batches {
		ref := catalog.NewRef(b.ProductID, b.VariationID)
		if !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}

	entries, err := s.catalogRepo.FindByRefs(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("load catalog entries: %w", err)
	}

	stockBySKU := make(map[string]int)
	now := s.now()
	details := make([]ExpiryBatchDetail, len(batches))
	for i := range batches {
		b := &batches[i]
		entry := entries[catalog.NewRef(b.ProductID, b.VariationID)]

		stock, ok := stockBySKU[b.SKU]
		if !ok {
			stock, err = StockQuantity(ctx, s.recordRepo, entry, b.SKU)
			if err != nil {
				return nil, err
			}
			stockBySKU[b.SKU] = stock
		}

		detail := ExpiryBatchDetail{
			ExpiryBatchResponse: ToExpiryBatchResponse(b),
			CatalogName:         b.ProductName,
			CurrentStock:        stock,
			DaysUntilExpiry:     b.DaysUntilExpiry(now),
			IsExpired:           b.IsExpired(now),
		}
		if entry != nil {
			detail.CatalogName = entry.DisplayName()
		}
		details[i] = detail
	}
	return details, nil
}

// StockQuantity resolves a SKU's stock: the inventory record first, then the
// catalog's own stock figure, then zero.
func StockQuantity(ctx context.Context, records inventory.InventoryRecordRepository, entry *catalog.Entry, sku string) (int, error) {
	record, err := records.FindBySKU(ctx, sku)
	if err == nil {
		return record.StockQuantity, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return 0, fmt.Errorf("load stock for sku %s: %w", sku, err)
	}
	if entry != nil && entry.StockQuantity != nil {
		return *entry.StockQuantity, nil
	}
	return 0, nil
}
