package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ReconcileOutcome describes what a reconciliation did
type ReconcileOutcome string

const (
	ReconcileUpdated          ReconcileOutcome = "updated"
	ReconcileCreated          ReconcileOutcome = "created"
	ReconcileUnresolved       ReconcileOutcome = "unresolved"
	ReconcileDuplicateReceipt ReconcileOutcome = "duplicate_receipt"
	ReconcileNothingToReceive ReconcileOutcome = "nothing_to_receive"
)

// Applied reports whether stock was changed
func (o ReconcileOutcome) Applied() bool {
	return o == ReconcileUpdated || o == ReconcileCreated
}

// ReconcileRequest brings received units of a SKU into stock.
// A non-empty ReceiptKey makes the call apply at most once.
type ReconcileRequest struct {
	SKU          string
	Quantity     int
	SupplierName string
	ReceiptKey   string
}

// ReconcileResult is the detailed outcome of a reconciliation
type ReconcileResult struct {
	Outcome       ReconcileOutcome
	StockQuantity int
}

// Reconciler adjusts stock records when purchased goods arrive
type Reconciler struct {
	txScope     TransactionScope
	idempotency shared.IdempotencyStore
	receiptTTL  time.Duration
	logger      *zap.Logger
	metrics     *telemetry.ReceivingMetrics
}

// NewReconciler creates a new Reconciler
func NewReconciler(txScope TransactionScope, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{txScope: txScope, logger: logger}
}

// SetIdempotencyStore enables receipt keys. A zero ttl keeps keys forever.
func (r *Reconciler) SetIdempotencyStore(store shared.IdempotencyStore, ttl time.Duration) {
	r.idempotency = store
	r.receiptTTL = ttl
}

// SetMetrics sets the receiving metrics collector
func (r *Reconciler) SetMetrics(m *telemetry.ReceivingMetrics) {
	r.metrics = m
}

// Reconcile applies a receipt and reports whether stock changed.
// Only storage failures are returned as errors.
func (r *Reconciler) Reconcile(ctx context.Context, req ReconcileRequest) (bool, error) {
	result, err := r.ReconcileDetailed(ctx, req)
	if err != nil {
		return false, err
	}
	return result.Outcome.Applied(), nil
}

// ReconcileDetailed applies a receipt. An existing stock record is increased;
// otherwise a SKU known to the catalog gets a new record seeded with the
// quantity; an unknown SKU changes nothing.
func (r *Reconciler) ReconcileDetailed(ctx context.Context, req ReconcileRequest) (ReconcileResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "reconcile",
		telemetry.WithAttribute(telemetry.SpanAttrSKU, req.SKU),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, req.Quantity),
	)
	defer span.End()

	sku := strings.TrimSpace(req.SKU)
	if sku == "" || req.Quantity <= 0 {
		return r.finish(ctx, span, ReconcileResult{Outcome: ReconcileNothingToReceive}, 0), nil
	}

	guarded := req.ReceiptKey != "" && r.idempotency != nil
	if guarded {
		fresh, err := r.idempotency.MarkProcessed(ctx, req.ReceiptKey, r.receiptTTL)
		if err != nil {
			telemetry.RecordError(span, err)
			return ReconcileResult{}, fmt.Errorf("mark receipt %s: %w", req.ReceiptKey, err)
		}
		if !fresh {
			r.logger.Info("Receipt already reconciled, skipping",
				zap.String("receipt_key", req.ReceiptKey),
				zap.String("sku", sku),
			)
			return r.finish(ctx, span, ReconcileResult{Outcome: ReconcileDuplicateReceipt}, 0), nil
		}
	}

	var result ReconcileResult
	err := r.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		result, err = r.apply(ctx, repos, sku, req)
		return err
	})
	if err != nil || !result.Outcome.Applied() {
		if guarded {
			if forgetErr := r.idempotency.Forget(ctx, req.ReceiptKey); forgetErr != nil {
				r.logger.Warn("Failed to release receipt key",
					zap.String("receipt_key", req.ReceiptKey),
					zap.Error(forgetErr),
				)
			}
		}
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return ReconcileResult{}, err
	}

	units := 0
	if result.Outcome.Applied() {
		units = req.Quantity
		r.logger.Info("Stock reconciled",
			zap.String("sku", sku),
			zap.Int("received", req.Quantity),
			zap.Int("stock_quantity", result.StockQuantity),
			zap.String("outcome", string(result.Outcome)),
		)
	} else {
		r.logger.Warn("SKU not found in stock records or catalog, stock not updated", zap.String("sku", sku))
	}
	return r.finish(ctx, span, result, units), nil
}

func (r *Reconciler) apply(ctx context.Context, repos TransactionalRepositories, sku string, req ReconcileRequest) (ReconcileResult, error) {
	records := repos.InventoryRecordRepo()

	record, err := records.FindBySKU(ctx, sku)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return ReconcileResult{}, fmt.Errorf("load stock record for sku %s: %w", sku, err)
	}
	if record != nil {
		return r.increase(ctx, records, record, req, ReconcileUpdated)
	}

	entry, err := repos.CatalogRepo().FindBySKU(ctx, sku)
	if errors.Is(err, shared.ErrNotFound) {
		return ReconcileResult{Outcome: ReconcileUnresolved}, nil
	}
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("resolve sku %s: %w", sku, err)
	}

	// The record may exist under the product while carrying a different SKU.
	record, err = records.FindByProduct(ctx, entry.ProductID(), entry.VariationID())
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return ReconcileResult{}, fmt.Errorf("load stock record for sku %s: %w", sku, err)
	}
	if record != nil {
		return r.increase(ctx, records, record, req, ReconcileUpdated)
	}

	record, err = inventory.NewInventoryRecord(entry.ProductID(), entry.VariationID(), sku, entry.CostOrZero(), req.Quantity)
	if err != nil {
		return ReconcileResult{}, err
	}
	record.AssignSupplier(req.SupplierName)
	if err := records.Save(ctx, record); err != nil {
		return ReconcileResult{}, err
	}
	return ReconcileResult{Outcome: ReconcileCreated, StockQuantity: record.StockQuantity}, nil
}

func (r *Reconciler) increase(ctx context.Context, records inventory.InventoryRecordRepository, record *inventory.InventoryRecord, req ReconcileRequest, outcome ReconcileOutcome) (ReconcileResult, error) {
	if err := record.IncreaseStock(req.Quantity); err != nil {
		return ReconcileResult{}, err
	}
	record.AssignSupplier(req.SupplierName)
	if err := records.Save(ctx, record); err != nil {
		return ReconcileResult{}, err
	}
	return ReconcileResult{Outcome: outcome, StockQuantity: record.StockQuantity}, nil
}

func (r *Reconciler) finish(ctx context.Context, span trace.Span, result ReconcileResult, units int) ReconcileResult {
	telemetry.SetAttributes(span, telemetry.SpanAttrOutcome, string(result.Outcome))
	r.metrics.RecordReconciliation(ctx, string(result.Outcome), units)
	return result
}
