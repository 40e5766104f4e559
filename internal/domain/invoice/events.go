package invoice

import (
	"github.com/google/uuid"
	"github.com/invoiceflow/backend/internal/domain/shared"
	"github.com/invoiceflow/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Event type names for the invoice context
const (
	EventTypeInvoiceCreated         = "InvoiceCreated"
	EventTypeInvoiceStatusChanged   = "InvoiceStatusChanged"
	EventTypeInvoicePaymentRecorded = "InvoicePaymentRecorded"
	EventTypeInvoiceExported        = "InvoiceExported"
	EventTypeLineMatched            = "InvoiceLineMatched"
	EventTypeLineConfirmed          = "InvoiceLineConfirmed"
)

// InvoiceCreatedEvent is raised when a new invoice enters the system
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID `json:"invoice_id"`
	VendorID      uuid.UUID `json:"vendor_id"`
	InvoiceNumber string    `json:"invoice_number"`
}

// EventType returns the event type name
func (e *InvoiceCreatedEvent) EventType() string {
	return EventTypeInvoiceCreated
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(invoiceID, vendorID uuid.UUID, invoiceNumber string) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, "Invoice", invoiceID),
		InvoiceID:       invoiceID,
		VendorID:        vendorID,
		InvoiceNumber:   invoiceNumber,
	}
}

// InvoiceStatusChangedEvent is raised on every lifecycle transition
type InvoiceStatusChangedEvent struct {
	shared.BaseDomainEvent
	InvoiceID  uuid.UUID `json:"invoice_id"`
	FromStatus Status    `json:"from_status"`
	ToStatus   Status    `json:"to_status"`
}

// EventType returns the event type name
func (e *InvoiceStatusChangedEvent) EventType() string {
	return EventTypeInvoiceStatusChanged
}

// NewInvoiceStatusChangedEvent creates a new InvoiceStatusChangedEvent
func NewInvoiceStatusChangedEvent(invoiceID uuid.UUID, from, to Status) *InvoiceStatusChangedEvent {
	return &InvoiceStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceStatusChanged, "Invoice", invoiceID),
		InvoiceID:       invoiceID,
		FromStatus:      from,
		ToStatus:        to,
	}
}

// InvoicePaymentRecordedEvent is raised when a payment is applied
type InvoicePaymentRecordedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID         `json:"invoice_id"`
	Amount        valueobject.Money `json:"amount"`
	PaymentStatus PaymentStatus     `json:"payment_status"`
}

// EventType returns the event type name
func (e *InvoicePaymentRecordedEvent) EventType() string {
	return EventTypeInvoicePaymentRecorded
}

// NewInvoicePaymentRecordedEvent creates a new InvoicePaymentRecordedEvent
func NewInvoicePaymentRecordedEvent(invoiceID uuid.UUID, amount valueobject.Money, status PaymentStatus) *InvoicePaymentRecordedEvent {
	return &InvoicePaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePaymentRecorded, "Invoice", invoiceID),
		InvoiceID:       invoiceID,
		Amount:          amount,
		PaymentStatus:   status,
	}
}

// InvoiceExportedEvent is raised when the invoice reaches the accounting system
type InvoiceExportedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID `json:"invoice_id"`
	VendorID      uuid.UUID `json:"vendor_id"`
	InvoiceNumber string    `json:"invoice_number"`
}

// EventType returns the event type name
func (e *InvoiceExportedEvent) EventType() string {
	return EventTypeInvoiceExported
}

// NewInvoiceExportedEvent creates a new InvoiceExportedEvent
func NewInvoiceExportedEvent(invoiceID, vendorID uuid.UUID, invoiceNumber string) *InvoiceExportedEvent {
	return &InvoiceExportedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceExported, "Invoice", invoiceID),
		InvoiceID:       invoiceID,
		VendorID:        vendorID,
		InvoiceNumber:   invoiceNumber,
	}
}

// LineMatchedEvent is raised when a line is linked to an inventory item
type LineMatchedEvent struct {
	shared.BaseDomainEvent
	LineID          uuid.UUID   `json:"line_id"`
	InvoiceID       uuid.UUID   `json:"invoice_id"`
	InventoryItemID uuid.UUID   `json:"inventory_item_id"`
	MatchStatus     MatchStatus `json:"match_status"`
	Confidence      float64     `json:"confidence"`
}

// EventType returns the event type name
func (e *LineMatchedEvent) EventType() string {
	return EventTypeLineMatched
}

// NewLineMatchedEvent creates a new LineMatchedEvent
func NewLineMatchedEvent(lineID, invoiceID, inventoryItemID uuid.UUID, status MatchStatus, confidence float64) *LineMatchedEvent {
	return &LineMatchedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLineMatched, "LineItem", lineID),
		LineID:          lineID,
		InvoiceID:       invoiceID,
		InventoryItemID: inventoryItemID,
		MatchStatus:     status,
		Confidence:      confidence,
	}
}

// LineConfirmedEvent is raised when a reviewer finalizes a line match
type LineConfirmedEvent struct {
	shared.BaseDomainEvent
	LineID          uuid.UUID        `json:"line_id"`
	InvoiceID       uuid.UUID        `json:"invoice_id"`
	InventoryItemID uuid.UUID        `json:"inventory_item_id"`
	NewPrice        decimal.Decimal  `json:"new_price"`
	PreviousPrice   *decimal.Decimal `json:"previous_price,omitempty"`
}

// EventType returns the event type name
func (e *LineConfirmedEvent) EventType() string {
	return EventTypeLineConfirmed
}

// NewLineConfirmedEvent creates a new LineConfirmedEvent
func NewLineConfirmedEvent(lineID, invoiceID, inventoryItemID uuid.UUID, newPrice decimal.Decimal, previousPrice *decimal.Decimal) *LineConfirmedEvent {
	return &LineConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLineConfirmed, "LineItem", lineID),
		LineID:          lineID,
		InvoiceID:       invoiceID,
		InventoryItemID: inventoryItemID,
		NewPrice:        newPrice,
		PreviousPrice:   previousPrice,
	}
}
