package inventory

import (
	"github.com/google/uuid"
	"github.com/invoiceflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event type names for the inventory context
const (
	EventTypeItemCreated       = "InventoryItemCreated"
	EventTypeItemPriceRecorded = "InventoryItemPriceRecorded"
	EventTypeStockReceived     = "InventoryStockReceived"
	EventTypeStockAdjusted     = "InventoryStockAdjusted"
)

// ItemCreatedEvent is raised when a new product enters the inventory
type ItemCreatedEvent struct {
	shared.BaseDomainEvent
	ItemID   uuid.UUID `json:"item_id"`
	Name     string    `json:"name"`
	BaseUnit string    `json:"base_unit"`
}

// EventType returns the event type name
func (e *ItemCreatedEvent) EventType() string {
	return EventTypeItemCreated
}

// NewItemCreatedEvent creates a new ItemCreatedEvent
func NewItemCreatedEvent(item *InventoryItem) *ItemCreatedEvent {
	return &ItemCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeItemCreated, "InventoryItem", item.ID),
		ItemID:          item.ID,
		Name:            item.Name,
		BaseUnit:        item.BaseUnit.String(),
	}
}

// ItemPriceRecordedEvent is raised when a confirmed invoice reprices an item
type ItemPriceRecordedEvent struct {
	shared.BaseDomainEvent
	ItemID          uuid.UUID        `json:"item_id"`
	OldPrice        *decimal.Decimal `json:"old_price,omitempty"`
	NewPrice        decimal.Decimal  `json:"new_price"`
	SourceInvoiceID uuid.UUID        `json:"source_invoice_id"`
}

// EventType returns the event type name
func (e *ItemPriceRecordedEvent) EventType() string {
	return EventTypeItemPriceRecorded
}

// NewItemPriceRecordedEvent creates a new ItemPriceRecordedEvent
func NewItemPriceRecordedEvent(item *InventoryItem, oldPrice *decimal.Decimal, newPrice decimal.Decimal, sourceInvoiceID uuid.UUID) *ItemPriceRecordedEvent {
	return &ItemPriceRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeItemPriceRecorded, "InventoryItem", item.ID),
		ItemID:          item.ID,
		OldPrice:        oldPrice,
		NewPrice:        newPrice,
		SourceInvoiceID: sourceInvoiceID,
	}
}

// StockReceivedEvent is raised when delivered quantity is added
type StockReceivedEvent struct {
	shared.BaseDomainEvent
	ItemID          uuid.UUID       `json:"item_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	NewStockLevel   decimal.Decimal `json:"new_stock_level"`
	SourceInvoiceID uuid.UUID       `json:"source_invoice_id"`
}

// EventType returns the event type name
func (e *StockReceivedEvent) EventType() string {
	return EventTypeStockReceived
}

// NewStockReceivedEvent creates a new StockReceivedEvent
func NewStockReceivedEvent(item *InventoryItem, quantity decimal.Decimal, sourceInvoiceID uuid.UUID) *StockReceivedEvent {
	return &StockReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockReceived, "InventoryItem", item.ID),
		ItemID:          item.ID,
		Quantity:        quantity,
		NewStockLevel:   item.StockLevel,
		SourceInvoiceID: sourceInvoiceID,
	}
}

// StockAdjustedEvent is raised when a count overrides the running stock level
type StockAdjustedEvent struct {
	shared.BaseDomainEvent
	ItemID      uuid.UUID       `json:"item_id"`
	OldQuantity decimal.Decimal `json:"old_quantity"`
	NewQuantity decimal.Decimal `json:"new_quantity"`
	Reason      string          `json:"reason"`
}

// EventType returns the event type name
func (e *StockAdjustedEvent) EventType() string {
	return EventTypeStockAdjusted
}

// NewStockAdjustedEvent creates a new StockAdjustedEvent
func NewStockAdjustedEvent(item *InventoryItem, oldQuantity, newQuantity decimal.Decimal, reason string) *StockAdjustedEvent {
	return &StockAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockAdjusted, "InventoryItem", item.ID),
		ItemID:          item.ID,
		OldQuantity:     oldQuantity,
		NewQuantity:     newQuantity,
		Reason:          reason,
	}
}
