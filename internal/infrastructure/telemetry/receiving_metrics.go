package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics constructor gets no meter.
var ErrMeterNil = errors.New("telemetry: meter is nil")

var (
	attrOutcome = attribute.Key("outcome")
	attrAction  = attribute.Key("action")
	attrStatus  = attribute.Key("status")
)

// ReceivingMetrics counts what purchase receipts and batch imports did to
// stock and the expiry ledger. A nil *ReceivingMetrics records nothing.
type ReceivingMetrics struct {
	reconciliations metric.Int64Counter
	unitsReceived   metric.Int64Counter
	sideEffects     metric.Int64Counter
	importedRows    metric.Int64Counter
	skippedRows     metric.Int64Counter
	importSize      metric.Int64Histogram
}

// NewReceivingMetrics registers the receiving instruments on meter.
func NewReceivingMetrics(meter metric.Meter) (*ReceivingMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &ReceivingMetrics{}
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.reconciliations, "backoffice.reconciliations", "Stock reconciliations by outcome", "{call}"},
		{&m.unitsReceived, "backoffice.units_received", "Units added to stock by reconciliation", "{unit}"},
		{&m.sideEffects, "backoffice.order_side_effects", "Per-item purchase order side effects", "{item}"},
		{&m.importedRows, "backoffice.import.imported_rows", "Expiry batch rows committed by bulk import", "{row}"},
		{&m.skippedRows, "backoffice.import.skipped_rows", "Expiry batch rows rejected by bulk import", "{row}"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("failed to create counter %s: %w", c.name, err)
		}
		*c.dst = counter
	}

	size, err := meter.Int64Histogram("backoffice.import.batch_size",
		metric.WithDescription("Rows submitted per bulk import"),
		metric.WithUnit("{row}"),
		metric.WithExplicitBucketBoundaries(10, 50, 100, 500, 1000, 5000))
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram backoffice.import.batch_size: %w", err)
	}
	m.importSize = size
	return m, nil
}

// RecordReconciliation counts one reconciliation and, when applied, its units.
func (m *ReceivingMetrics) RecordReconciliation(ctx context.Context, outcome string, units int) {
	if m == nil {
		return
	}
	m.reconciliations.Add(ctx, 1, metric.WithAttributes(attrOutcome.String(outcome)))
	if units > 0 {
		m.unitsReceived.Add(ctx, int64(units))
	}
}

// RecordSideEffect counts one per-item side effect of an order write.
func (m *ReceivingMetrics) RecordSideEffect(ctx context.Context, action, status string) {
	if m == nil {
		return
	}
	m.sideEffects.Add(ctx, 1, metric.WithAttributes(attrAction.String(action), attrStatus.String(status)))
}

// RecordImport records the outcome of one bulk import commit.
func (m *ReceivingMetrics) RecordImport(ctx context.Context, imported, skipped int) {
	if m == nil {
		return
	}
	m.importSize.Record(ctx, int64(imported+skipped))
	m.importedRows.Add(ctx, int64(imported))
	m.skippedRows.Add(ctx, int64(skipped))
}
