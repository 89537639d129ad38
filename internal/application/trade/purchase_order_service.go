package trade

import (
	"context"
	"fmt"
	"strings"

	appinv "github.com/erp/backoffice/internal/application/inventory"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/trade"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExpiryLedger mirrors order items into the expiry batch ledger
type ExpiryLedger interface {
	SyncItemBatch(ctx context.Context, req appinv.SyncItemBatchRequest) (appinv.ItemBatchResult, error)
}

// StockReconciler brings received goods into stock
type StockReconciler interface {
	ReconcileDetailed(ctx context.Context, req appinv.ReconcileRequest) (appinv.ReconcileResult, error)
}

// PurchaseOrderService handles purchase order business operations.
// The order header and items are written atomically; ledger and stock updates
// run afterwards, item by item, and are reported rather than rolled back.
type PurchaseOrderService struct {
	orderRepo  trade.PurchaseOrderRepository
	ledger     ExpiryLedger
	reconciler StockReconciler
	metrics    *telemetry.ReceivingMetrics
	logger     *zap.Logger
}

// NewPurchaseOrderService creates a new PurchaseOrderService
func NewPurchaseOrderService(
	orderRepo trade.PurchaseOrderRepository,
	ledger ExpiryLedger,
	reconciler StockReconciler,
	logger *zap.Logger,
) *PurchaseOrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PurchaseOrderService{
		orderRepo:  orderRepo,
		ledger:     ledger,
		reconciler: reconciler,
		logger:     logger,
	}
}

// SetMetrics sets the receiving metrics collector
func (s *PurchaseOrderService) SetMetrics(m *telemetry.ReceivingMetrics) {
	s.metrics = m
}

// Create creates a purchase order with its items. Items carrying both a batch
// number and an expiry date get a ledger record. An initial status other than
// ordered is applied as a transition, so its goods are received into stock.
func (s *PurchaseOrderService) Create(ctx context.Context, req CreatePurchaseOrderRequest) (*CreatePurchaseOrderResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "purchase_order", "create",
		telemetry.WithAttribute(telemetry.SpanAttrItemCount, len(req.Items)),
	)
	defer span.End()

	order, err := trade.NewPurchaseOrder(req.SupplierName, req.OrderDate)
	if err != nil {
		return nil, err
	}
	if req.SupplierID != nil {
		if err := order.SetSupplier(req.SupplierID, req.SupplierName); err != nil {
			return nil, err
		}
	}
	order.SetReferenceNumber(req.ReferenceNumber)
	order.SetPaymentMethod(req.PaymentMethod)
	order.SetNotes(req.Notes)
	order.SetExpiryDate(req.ExpiryDate)

	items, err := buildItems(order.ID, req.Items)
	if err != nil {
		return nil, err
	}
	if err := order.ReplaceItems(items); err != nil {
		return nil, err
	}

	change := trade.StatusChange{From: order.Status, To: order.Status}
	if req.Status != "" {
		target, err := trade.ParsePurchaseOrderStatus(req.Status)
		if err != nil {
			return nil, err
		}
		if change, err = order.TransitionTo(target); err != nil {
			return nil, err
		}
	}

	if err := s.orderRepo.SaveWithItems(ctx, order); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("save purchase order: %w", err)
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrOrderID, order.ID.String())

	s.logger.Info("Purchase order created",
		zap.String("order_id", order.ID.String()),
		zap.String("supplier", order.SupplierName),
		zap.Int("items", order.ItemCount()),
		zap.String("total_amount", order.TotalAmount.StringFixed(2)),
	)

	report := newSideEffectReport()
	s.syncLedger(ctx, order, nil, &report)
	if change.BringsStockIn() {
		s.receive(ctx, order, change, nil, &report)
	}

	return &CreatePurchaseOrderResult{
		Order:       ToPurchaseOrderResponse(order),
		SideEffects: report,
	}, nil
}

// Update patches a purchase order. A supplied item list replaces every item
// (only while the stored order is still ordered) and is then mirrored into the
// ledger, updating the batches of items whose (sku, batch) pair survived.
// A status change follows the order state machine and receives goods into stock.
func (s *PurchaseOrderService) Update(ctx context.Context, id uuid.UUID, req UpdatePurchaseOrderRequest) (*UpdatePurchaseOrderResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "purchase_order", "update",
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, id.String()),
	)
	defer span.End()

	order, err := s.orderRepo.FindByIDWithItems(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := order.ItemsByKey()
	previousLines := order.ItemsByLine()

	if err := applyHeaderPatch(order, req); err != nil {
		return nil, err
	}

	itemsReplaced := req.Items != nil
	if itemsReplaced {
		items, err := buildItems(order.ID, *req.Items)
		if err != nil {
			return nil, err
		}
		if err := order.ReplaceItems(items); err != nil {
			return nil, err
		}
	}

	change := trade.StatusChange{From: order.Status, To: order.Status}
	if req.Status != nil {
		target, err := trade.ParsePurchaseOrderStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		if change, err = order.TransitionTo(target); err != nil {
			return nil, err
		}
		telemetry.SetAttributes(span, telemetry.SpanAttrOrderStatus, target.String())
	}

	if itemsReplaced {
		err = s.orderRepo.SaveWithItems(ctx, order)
	} else {
		err = s.orderRepo.Save(ctx, order)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("save purchase order: %w", err)
	}

	s.logger.Info("Purchase order updated",
		zap.String("order_id", order.ID.String()),
		zap.Bool("items_replaced", itemsReplaced),
		zap.String("status_from", change.From.String()),
		zap.String("status_to", change.To.String()),
	)

	report := newSideEffectReport()
	if itemsReplaced {
		s.syncLedger(ctx, order, previous, &report)
	}
	if change.BringsStockIn() {
		s.receive(ctx, order, change, previousLines, &report)
	}

	return &UpdatePurchaseOrderResult{
		Order:       ToPurchaseOrderResponse(order),
		SideEffects: report,
	}, nil
}

// GetWithItems retrieves a purchase order and its items
func (s *PurchaseOrderService) GetWithItems(ctx context.Context, id uuid.UUID) (*PurchaseOrderResponse, error) {
	order, err := s.orderRepo.FindByIDWithItems(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// Delete deletes a purchase order and its items. Ledger batches recorded
// for its items are kept.
func (s *PurchaseOrderService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.orderRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Purchase order deleted", zap.String("order_id", id.String()))
	return nil
}

// List lists purchase orders with filtering and pagination
func (s *PurchaseOrderService) List(ctx context.Context, filter PurchaseOrderListFilter) ([]PurchaseOrderListItem, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "order_date"
		if filter.OrderDir == "" {
			filter.OrderDir = "desc"
		}
	}

	domainFilter := trade.PurchaseOrderFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
			Search:   strings.TrimSpace(filter.Search),
		},
		SupplierID: filter.SupplierID,
		StartDate:  filter.StartDate,
		EndDate:    filter.EndDate,
	}
	if filter.Status != "" {
		status, err := trade.ParsePurchaseOrderStatus(filter.Status)
		if err != nil {
			return nil, 0, err
		}
		domainFilter.Status = &status
	}

	orders, err := s.orderRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.orderRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToPurchaseOrderListItems(orders), total, nil
}

// syncLedger records or updates the ledger batch of every batch-tracked item.
// previous holds the items before an update, nil on create.
func (s *PurchaseOrderService) syncLedger(ctx context.Context, order *trade.PurchaseOrder, previous map[trade.ItemKey]trade.PurchaseOrderItem, report *SideEffectReport) {
	for _, item := range order.Items {
		if !item.HasExpiryBatch() {
			continue
		}
		_, matched := previous[item.Key()]

		result, err := s.ledger.SyncItemBatch(ctx, appinv.SyncItemBatchRequest{
			SKU:         item.SKU,
			ProductName: item.ProductName,
			BatchNumber: item.BatchNumber,
			ExpiryDate:  *item.ExpiryDate,
			Quantity:    item.Quantity,
			Notes:       item.Notes,
			Matched:     matched,
		})

		action := ActionExpiryCreated
		if matched {
			action = ActionExpiryUpdated
		}
		if err != nil {
			s.logger.Warn("Failed to record expiry batch for order item",
				zap.String("order_id", order.ID.String()),
				zap.String("sku", item.SKU),
				zap.String("batch_number", item.BatchNumber),
				zap.Error(err),
			)
			s.addOutcome(ctx, report, ItemOutcome{
				Line: item.LineNo, SKU: item.SKU, BatchNumber: item.BatchNumber, Action: action,
				Status: SideEffectFailed, Message: err.Error(),
			})
			continue
		}

		if result.Action == appinv.BatchSyncUpdated {
			action = ActionExpiryUpdated
		} else {
			action = ActionExpiryCreated
		}
		s.addOutcome(ctx, report, ItemOutcome{
			Line: item.LineNo, SKU: item.SKU, BatchNumber: item.BatchNumber, Action: action, Status: SideEffectApplied,
		})
	}
}

// receive reconciles stock for every item the status change brings in.
// previous holds the stored items by line number, nil on create.
func (s *PurchaseOrderService) receive(ctx context.Context, order *trade.PurchaseOrder, change trade.StatusChange, previous map[int]trade.PurchaseOrderItem, report *SideEffectReport) {
	for _, item := range order.Items {
		prevReceived := 0
		if prev, ok := previous[item.LineNo]; ok {
			prevReceived = prev.ReceivedOrZero()
		}
		quantity := change.ReceiptQuantity(item, prevReceived)

		result, err := s.reconciler.ReconcileDetailed(ctx, appinv.ReconcileRequest{
			SKU:          item.SKU,
			Quantity:     quantity,
			SupplierName: order.SupplierName,
			ReceiptKey:   ReceiptKey(order.ID, item, change.To),
		})
		outcome := ItemOutcome{Line: item.LineNo, SKU: item.SKU, BatchNumber: item.BatchNumber, Action: ActionStockReconciled}
		switch {
		case err != nil:
			s.logger.Error("Failed to reconcile stock for order item",
				zap.String("order_id", order.ID.String()),
				zap.String("sku", item.SKU),
				zap.Int("quantity", quantity),
				zap.Error(err),
			)
			outcome.Status = SideEffectFailed
			outcome.Message = err.Error()
		case result.Outcome.Applied():
			outcome.Status = SideEffectApplied
			outcome.Message = fmt.Sprintf("Received %d, stock now %d", quantity, result.StockQuantity)
		case result.Outcome == appinv.ReconcileUnresolved:
			outcome.Status = SideEffectSkipped
			outcome.Message = fmt.Sprintf("SKU %s not found in stock records or catalog; stock not updated", item.SKU)
		case result.Outcome == appinv.ReconcileDuplicateReceipt:
			outcome.Status = SideEffectSkipped
			outcome.Message = fmt.Sprintf("Line %d (SKU %s) was already received for this order", item.LineNo, item.SKU)
		default:
			outcome.Status = SideEffectSkipped
		}
		s.addOutcome(ctx, report, outcome)
	}
}

func (s *PurchaseOrderService) addOutcome(ctx context.Context, report *SideEffectReport, o ItemOutcome) {
	report.add(o)
	s.metrics.RecordSideEffect(ctx, string(o.Action), string(o.Status))
}

// ReceiptKey identifies one line receipt so a retried update cannot count it
// twice. Lines sharing a SKU and batch still get distinct keys.
func ReceiptKey(orderID uuid.UUID, item trade.PurchaseOrderItem, target trade.PurchaseOrderStatus) string {
	return fmt.Sprintf("po:%s:%d:%s:%s:%s", orderID, item.LineNo, item.SKU, item.BatchNumber, target)
}

func buildItems(orderID uuid.UUID, inputs []PurchaseOrderItemInput) ([]trade.PurchaseOrderItem, error) {
	items := make([]trade.PurchaseOrderItem, 0, len(inputs))
	for _, in := range inputs {
		item, err := trade.NewPurchaseOrderItem(orderID, in.SKU, in.ProductName, in.Quantity, in.UnitPrice)
		if err != nil {
			return nil, err
		}
		if in.QuantityReceived != nil {
			if err := item.SetQuantityReceived(*in.QuantityReceived); err != nil {
				return nil, err
			}
		}
		item.SetBatch(in.BatchNumber, in.ExpiryDate)
		item.Notes = in.Notes
		items = append(items, *item)
	}
	return items, nil
}

func applyHeaderPatch(order *trade.PurchaseOrder, req UpdatePurchaseOrderRequest) error {
	if req.SupplierName != nil || req.SupplierID != nil {
		name := order.SupplierName
		if req.SupplierName != nil {
			name = *req.SupplierName
		}
		supplierID := order.SupplierID
		if req.SupplierID != nil {
			supplierID = req.SupplierID
		}
		if err := order.SetSupplier(supplierID, name); err != nil {
			return err
		}
	}
	if req.OrderDate != nil {
		if err := order.SetOrderDate(*req.OrderDate); err != nil {
			return err
		}
	}
	if req.ReferenceNumber != nil {
		order.SetReferenceNumber(*req.ReferenceNumber)
	}
	if req.PaymentMethod != nil {
		order.SetPaymentMethod(*req.PaymentMethod)
	}
	if req.Notes != nil {
		order.SetNotes(*req.Notes)
	}
	if req.ExpiryDate != nil {
		order.SetExpiryDate(req.ExpiryDate)
	}
	return nil
}
