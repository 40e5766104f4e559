package inventory

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/invoiceflow/backend/internal/domain/shared"
	"github.com/invoiceflow/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// InventoryItem is one purchasable product tracked by the kitchen. Prices
// are kept per canonical base unit (gram, milliliter, or discrete unit) so
// invoices priced by the pound and by the kilo land on the same axis.
type InventoryItem struct {
	shared.BaseAggregateRoot
	Name           string               `json:"name" gorm:"type:varchar(255);not null"`
	NormalizedName string               `json:"normalized_name" gorm:"type:varchar(255);not null;index"`
	SKU            string               `json:"sku" gorm:"type:varchar(100);index"`
	Category       string               `json:"category" gorm:"type:varchar(100)"`
	VendorID       *uuid.UUID           `json:"vendor_id,omitempty" gorm:"type:uuid;index"`
	BaseUnit       valueobject.BaseUnit `json:"base_unit" gorm:"type:varchar(10);not null"`

	// Stock in base units
	StockLevel decimal.Decimal `json:"stock_level" gorm:"type:decimal(18,4);not null;default:0"`
	MinStock   decimal.Decimal `json:"min_stock" gorm:"type:decimal(18,4);not null;default:0"`

	// Current and previous price per base unit
	CurrentPrice    *decimal.Decimal `json:"current_price,omitempty" gorm:"type:decimal(18,8)"`
	PreviousPrice   *decimal.Decimal `json:"previous_price,omitempty" gorm:"type:decimal(18,8)"`
	LastPricedAt    *time.Time       `json:"last_priced_at,omitempty"`
	LastPriceSource *uuid.UUID       `json:"last_price_source,omitempty" gorm:"type:uuid"`

	IsActive bool `json:"is_active" gorm:"not null;default:true"`

	PriceHistory []PriceHistoryEntry `json:"price_history,omitempty" gorm:"-"`
}

// PriceHistoryEntry is one observed price for an item, always traceable to
// the invoice line that produced it.
type PriceHistoryEntry struct {
	ID              uuid.UUID            `json:"id" gorm:"type:uuid;primaryKey"`
	InventoryItemID uuid.UUID            `json:"inventory_item_id" gorm:"type:uuid;not null;index"`
	Price           decimal.Decimal      `json:"price" gorm:"type:decimal(18,8);not null"`
	BaseUnit        valueobject.BaseUnit `json:"base_unit" gorm:"type:varchar(10);not null"`
	SourceInvoiceID uuid.UUID            `json:"source_invoice_id" gorm:"type:uuid;not null;index"`
	RecordedAt      time.Time            `json:"recorded_at" gorm:"not null"`
}

// TableName returns the database table name
func (PriceHistoryEntry) TableName() string {
	return "inventory_price_history"
}

// NewInventoryItem creates an item with no stock and no price yet
func NewInventoryItem(name string, baseUnit valueobject.BaseUnit) (*InventoryItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "item name cannot be empty")
	}
	if !baseUnit.IsValid() {
		return nil, shared.NewDomainError("INVALID_BASE_UNIT", "unrecognized base unit")
	}

	item := &InventoryItem{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		NormalizedName:    NormalizeName(name),
		BaseUnit:          baseUnit,
		StockLevel:        decimal.Zero,
		MinStock:          decimal.Zero,
		IsActive:          true,
	}
	item.AddDomainEvent(NewItemCreatedEvent(item))
	return item, nil
}

// NormalizeName collapses an item name for case- and whitespace-insensitive
// matching against extracted invoice descriptions.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToUpper(name)), " ")
}

// SetSKU records the vendor's product code
func (i *InventoryItem) SetSKU(sku string) {
	i.SKU = strings.TrimSpace(sku)
	i.touch()
}

// SetCategory files the item under a reporting category
func (i *InventoryItem) SetCategory(category string) {
	i.Category = category
	i.touch()
}

// SetPrimaryVendor records the vendor this item is usually bought from
func (i *InventoryItem) SetPrimaryVendor(vendorID uuid.UUID) error {
	if vendorID == uuid.Nil {
		return shared.NewDomainError("INVALID_VENDOR_ID", "vendor ID cannot be empty")
	}
	i.VendorID = &vendorID
	i.touch()
	return nil
}

// RecordPrice applies a newly confirmed invoice price. The old current price
// rolls into PreviousPrice and an audit entry is appended; the unit must
// agree with the item's base unit so the price axis stays consistent.
func (i *InventoryItem) RecordPrice(price decimal.Decimal, baseUnit valueobject.BaseUnit, sourceInvoiceID uuid.UUID) error {
	if !price.IsPositive() {
		return shared.NewDomainError("INVALID_PRICE", "price must be positive")
	}
	if baseUnit != i.BaseUnit {
		return shared.NewDomainError("UNIT_MISMATCH",
			"price is per "+baseUnit.String()+" but item is tracked per "+i.BaseUnit.String())
	}
	if sourceInvoiceID == uuid.Nil {
		return shared.NewDomainError("INVALID_SOURCE", "price must reference its source invoice")
	}

	oldPrice := i.CurrentPrice
	now := time.Now()

	i.PreviousPrice = oldPrice
	i.CurrentPrice = &price
	i.LastPricedAt = &now
	i.LastPriceSource = &sourceInvoiceID
	i.PriceHistory = append(i.PriceHistory, PriceHistoryEntry{
		ID:              uuid.New(),
		InventoryItemID: i.ID,
		Price:           price,
		BaseUnit:        baseUnit,
		SourceInvoiceID: sourceInvoiceID,
		RecordedAt:      now,
	})
	i.touch()
	i.AddDomainEvent(NewItemPriceRecordedEvent(i, oldPrice, price, sourceInvoiceID))
	return nil
}

// ReceiveStock adds delivered quantity in base units
func (i *InventoryItem) ReceiveStock(quantity decimal.Decimal, sourceInvoiceID uuid.UUID) error {
	if !quantity.IsPositive() {
		return shared.NewDomainError("INVALID_QUANTITY", "received quantity must be positive")
	}
	i.StockLevel = i.StockLevel.Add(quantity)
	i.touch()
	i.AddDomainEvent(NewStockReceivedEvent(i, quantity, sourceInvoiceID))
	return nil
}

// AdjustStock sets the stock to a counted quantity, recording the reason
func (i *InventoryItem) AdjustStock(actual decimal.Decimal, reason string) error {
	if actual.IsNegative() {
		return shared.NewDomainError("INVALID_QUANTITY", "counted quantity cannot be negative")
	}
	if strings.TrimSpace(reason) == "" {
		return shared.NewDomainError("INVALID_REASON", "adjustment reason is required")
	}

	old := i.StockLevel
	i.StockLevel = actual
	i.touch()
	i.AddDomainEvent(NewStockAdjustedEvent(i, old, actual, reason))
	return nil
}

// SetMinStock sets the low-stock alert threshold in base units
func (i *InventoryItem) SetMinStock(quantity decimal.Decimal) error {
	if quantity.IsNegative() {
		return shared.NewDomainError("INVALID_QUANTITY", "minimum stock cannot be negative")
	}
	i.MinStock = quantity
	i.touch()
	return nil
}

// IsBelowMinimum reports whether the stock has dropped under the threshold
func (i *InventoryItem) IsBelowMinimum() bool {
	return i.MinStock.IsPositive() && i.StockLevel.LessThan(i.MinStock)
}

// PriceChange returns the relative move from previous to current price;
// ok is false until two prices have been seen.
func (i *InventoryItem) PriceChange() (decimal.Decimal, bool) {
	if i.CurrentPrice == nil || i.PreviousPrice == nil || !i.PreviousPrice.IsPositive() {
		return decimal.Zero, false
	}
	return i.CurrentPrice.Sub(*i.PreviousPrice).Div(*i.PreviousPrice), true
}

// Deactivate hides the item from matching without losing its history
func (i *InventoryItem) Deactivate() {
	i.IsActive = false
	i.touch()
}

// Reactivate puts the item back into matching
func (i *InventoryItem) Reactivate() {
	i.IsActive = true
	i.touch()
}

// Rename changes the display name and refreshes the matching key
func (i *InventoryItem) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "item name cannot be empty")
	}
	i.Name = name
	i.NormalizedName = NormalizeName(name)
	i.touch()
	return nil
}

func (i *InventoryItem) touch() {
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
}

// TableName returns the database table name
func (InventoryItem) TableName() string {
	return "inventory_items"
}
