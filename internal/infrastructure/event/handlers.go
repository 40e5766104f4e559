package event

import (
	"context"

	"github.com/invoiceflow/backend/internal/domain/inventory"
	"github.com/invoiceflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AuditLogHandler records every domain event to the structured log. It is a
// wildcard subscriber and the default audit trail for the pipeline.
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates a new AuditLogHandler
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditLogHandler{logger: logger}
}

// Handle logs the event
func (h *AuditLogHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.logger.Info("domain event",
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	)
	return nil
}

// EventTypes returns an empty slice: the handler receives all events
func (h *AuditLogHandler) EventTypes() []string {
	return nil
}

// PriceAlertHandler watches repricing events and warns when an item's unit
// price moves more than the configured fraction in a single invoice.
type PriceAlertHandler struct {
	logger    *zap.Logger
	threshold decimal.Decimal
}

// NewPriceAlertHandler creates a PriceAlertHandler. threshold is the
// fractional price move that triggers an alert, e.g. 0.10 for 10%.
func NewPriceAlertHandler(logger *zap.Logger, threshold float64) *PriceAlertHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriceAlertHandler{
		logger:    logger,
		threshold: decimal.NewFromFloat(threshold),
	}
}

// Handle inspects a price-recorded event and logs a warning on a large move
func (h *PriceAlertHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	priced, ok := event.(*inventory.ItemPriceRecordedEvent)
	if !ok {
		return nil
	}
	if priced.OldPrice == nil || priced.OldPrice.IsZero() {
		return nil
	}

	change := priced.NewPrice.Sub(*priced.OldPrice).Div(*priced.OldPrice)
	if change.Abs().LessThan(h.threshold) {
		return nil
	}

	h.logger.Warn("item price moved beyond threshold",
		zap.String("item_id", priced.ItemID.String()),
		zap.String("source_invoice_id", priced.SourceInvoiceID.String()),
		zap.String("old_price", priced.OldPrice.String()),
		zap.String("new_price", priced.NewPrice.String()),
		zap.String("change", change.String()),
	)
	return nil
}

// EventTypes limits the handler to repricing events
func (h *PriceAlertHandler) EventTypes() []string {
	return []string{inventory.EventTypeItemPriceRecorded}
}

var (
	_ shared.EventHandler = (*AuditLogHandler)(nil)
	_ shared.EventHandler = (*PriceAlertHandler)(nil)
)
