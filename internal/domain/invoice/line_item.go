package invoice

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/invoiceflow/backend/internal/domain/shared"
	"github.com/invoiceflow/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// MatchStatus tracks a line's progress through inventory reconciliation
type MatchStatus string

const (
	MatchStatusUnmatched     MatchStatus = "UNMATCHED"
	MatchStatusAutoMatched   MatchStatus = "AUTO_MATCHED"
	MatchStatusManualMatched MatchStatus = "MANUAL_MATCHED"
	MatchStatusNewItem       MatchStatus = "NEW_ITEM"
	MatchStatusConfirmed     MatchStatus = "CONFIRMED"
	MatchStatusRejected      MatchStatus = "REJECTED"
	MatchStatusSkipped       MatchStatus = "SKIPPED"
)

// IsValid checks if the match status is recognized
func (s MatchStatus) IsValid() bool {
	switch s {
	case MatchStatusUnmatched, MatchStatusAutoMatched, MatchStatusManualMatched,
		MatchStatusNewItem, MatchStatusConfirmed, MatchStatusRejected, MatchStatusSkipped:
		return true
	}
	return false
}

// String returns the string representation of the match status
func (s MatchStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status accepts no further transitions.
// Skipped is terminal too, but can be explicitly reopened.
func (s MatchStatus) IsTerminal() bool {
	return s == MatchStatusConfirmed
}

// LineType routes a line to the systems that care about it
type LineType string

const (
	LineTypeProduct LineType = "PRODUCT"
	LineTypeDeposit LineType = "DEPOSIT"
	LineTypeCredit  LineType = "CREDIT"
	LineTypeFee     LineType = "FEE"
)

// defaultPriceChangeThreshold flags confirmations whose unit price moved
// more than 10% against the inventory item's previous price. Deployments
// override it through the reconciliation config.
var defaultPriceChangeThreshold = decimal.NewFromFloat(0.10)

// LineItem is one reconciled row of a vendor invoice. The raw extracted
// strings are kept verbatim next to the parsed figures so a reviewer can
// always see what the vendor actually printed.
type LineItem struct {
	shared.BaseAggregateRoot
	InvoiceID  uuid.UUID `json:"invoice_id" gorm:"type:uuid;not null;index"`
	LineNumber int       `json:"line_number" gorm:"not null"`

	// Raw extracted values, never mutated after creation
	RawDescription string `json:"raw_description" gorm:"type:text;not null"`
	RawQuantity    string `json:"raw_quantity"`
	RawUnit        string `json:"raw_unit"`
	RawUnitPrice   string `json:"raw_unit_price"`
	RawTotal       string `json:"raw_total"`
	RawPackSize    string `json:"raw_pack_size"`
	SKU            string `json:"sku"`

	// Parsed figures
	Quantity   decimal.Decimal  `json:"quantity" gorm:"type:decimal(15,4)"`
	Unit       string           `json:"unit"`
	Weight     *decimal.Decimal `json:"weight,omitempty" gorm:"type:decimal(15,4)"`
	WeightUnit string           `json:"weight_unit"`
	UnitPrice  decimal.Decimal  `json:"unit_price" gorm:"type:decimal(15,4)"`
	TotalPrice decimal.Decimal  `json:"total_price" gorm:"type:decimal(15,4)"`

	// Detection outcome and normalized price
	PricingModel   PricingModel         `json:"pricing_model" gorm:"type:varchar(20)"`
	BaseUnit       valueobject.BaseUnit `json:"base_unit" gorm:"type:varchar(10)"`
	TotalBaseUnits decimal.Decimal      `json:"total_base_units" gorm:"type:decimal(18,4)"`
	PricePerG      *decimal.Decimal     `json:"price_per_g,omitempty" gorm:"type:decimal(18,8)"`
	PricePerML     *decimal.Decimal     `json:"price_per_ml,omitempty" gorm:"type:decimal(18,8)"`
	PricePerUnit   *decimal.Decimal     `json:"price_per_unit,omitempty" gorm:"type:decimal(18,8)"`

	// Matching
	MatchStatus      MatchStatus `json:"match_status" gorm:"type:varchar(20);not null;index"`
	MatchConfidence  float64     `json:"match_confidence"`
	InventoryItemID  *uuid.UUID  `json:"inventory_item_id,omitempty" gorm:"type:uuid"`
	AddedToInventory bool        `json:"added_to_inventory"`

	// Price movement recorded at confirmation
	PreviousPrice *decimal.Decimal `json:"previous_price,omitempty" gorm:"type:decimal(18,8)"`
	NewPrice      *decimal.Decimal `json:"new_price,omitempty" gorm:"type:decimal(18,8)"`

	// Review flags
	IsDiscrepancy    bool   `json:"is_discrepancy"`
	DiscrepancyNotes string `json:"discrepancy_notes" gorm:"type:text"`
	NeedsReview      bool   `json:"needs_review"`

	// Routing
	LineType      LineType `json:"line_type" gorm:"type:varchar(20);not null"`
	ForInventory  bool     `json:"for_inventory"`
	ForAccounting bool     `json:"for_accounting"`
}

// NewLineItem creates an unmatched line from its raw extracted values
func NewLineItem(invoiceID uuid.UUID, lineNumber int, rawDescription string) (*LineItem, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE_ID", "invoice ID cannot be empty")
	}
	if strings.TrimSpace(rawDescription) == "" {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "line description cannot be empty")
	}

	line := &LineItem{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceID:         invoiceID,
		LineNumber:        lineNumber,
		RawDescription:    rawDescription,
		MatchStatus:       MatchStatusUnmatched,
		LineType:          LineTypeProduct,
		ForInventory:      true,
		ForAccounting:     true,
	}
	return line, nil
}

// SetFigures records the parsed numeric columns
func (l *LineItem) SetFigures(quantity decimal.Decimal, unit string, weight *decimal.Decimal, weightUnit string, unitPrice, totalPrice decimal.Decimal) {
	l.Quantity = quantity
	l.Unit = valueobject.NormalizeUnit(unit)
	l.Weight = weight
	l.WeightUnit = valueobject.NormalizeUnit(weightUnit)
	l.UnitPrice = unitPrice
	l.TotalPrice = totalPrice
	l.touch()
}

// SetLineType routes the line. Deposit and credit lines stay on the invoice
// for accounting but never touch inventory.
func (l *LineItem) SetLineType(t LineType) {
	l.LineType = t
	switch t {
	case LineTypeDeposit, LineTypeCredit, LineTypeFee:
		l.ForInventory = false
	default:
		l.ForInventory = true
	}
	l.touch()
}

// Figures returns the parsed columns in the shape the detector consumes
func (l *LineItem) Figures() LineFigures {
	return LineFigures{
		Quantity:   l.Quantity,
		Weight:     l.Weight,
		WeightUnit: l.WeightUnit,
		Unit:       l.Unit,
		UnitPrice:  l.UnitPrice,
		TotalPrice: l.TotalPrice,
	}
}

// ApplyDetection copies a detection result onto the line
func (l *LineItem) ApplyDetection(r DetectionResult) {
	l.PricingModel = r.Model
	l.BaseUnit = r.BaseUnit
	l.TotalBaseUnits = r.TotalBaseUnits
	l.PricePerG = r.PricePerG
	l.PricePerML = r.PricePerML
	l.PricePerUnit = r.PricePerUnit
	if r.IsDiscrepancy {
		l.flagDiscrepancy(r.Note)
	}
	l.touch()
}

// FlagForReview marks the line for human attention without blocking it
func (l *LineItem) FlagForReview(note string) {
	l.NeedsReview = true
	l.appendNote(note)
	l.touch()
}

// MatchAuto links the line to an inventory item found by similarity search
func (l *LineItem) MatchAuto(inventoryItemID uuid.UUID, confidence float64) error {
	if err := l.requireStatus("auto-match", MatchStatusUnmatched); err != nil {
		return err
	}
	if inventoryItemID == uuid.Nil {
		return shared.NewDomainError("INVALID_INVENTORY_ITEM", "inventory item ID cannot be empty")
	}
	l.MatchStatus = MatchStatusAutoMatched
	l.InventoryItemID = &inventoryItemID
	l.MatchConfidence = confidence
	l.touch()
	l.AddDomainEvent(NewLineMatchedEvent(l.ID, l.InvoiceID, inventoryItemID, MatchStatusAutoMatched, confidence))
	return nil
}

// MatchManual links the line to an inventory item a reviewer picked
func (l *LineItem) MatchManual(inventoryItemID uuid.UUID) error {
	if err := l.requireStatus("manual-match", MatchStatusUnmatched); err != nil {
		return err
	}
	if inventoryItemID == uuid.Nil {
		return shared.NewDomainError("INVALID_INVENTORY_ITEM", "inventory item ID cannot be empty")
	}
	l.MatchStatus = MatchStatusManualMatched
	l.InventoryItemID = &inventoryItemID
	l.MatchConfidence = 1.0
	l.touch()
	l.AddDomainEvent(NewLineMatchedEvent(l.ID, l.InvoiceID, inventoryItemID, MatchStatusManualMatched, 1.0))
	return nil
}

// MarkNewItem flags the line as a product the inventory has never seen.
// The inventory record is created at confirmation, not here. Deposit,
// credit, and fee lines never enter the inventory, so they cannot
// introduce new items either.
func (l *LineItem) MarkNewItem() error {
	if err := l.requireStatus("mark as new item", MatchStatusUnmatched); err != nil {
		return err
	}
	if !l.ForInventory {
		return shared.NewDomainError("NOT_INVENTORY_LINE",
			"only inventory lines can introduce new items")
	}
	l.MatchStatus = MatchStatusNewItem
	l.InventoryItemID = nil
	l.touch()
	return nil
}

// AttachInventoryItem links a freshly created inventory record to a new-item
// line. Matched lines already carry their link from the match call.
func (l *LineItem) AttachInventoryItem(inventoryItemID uuid.UUID) error {
	if err := l.requireStatus("attach inventory item", MatchStatusNewItem); err != nil {
		return err
	}
	if inventoryItemID == uuid.Nil {
		return shared.NewDomainError("INVALID_INVENTORY_ITEM", "inventory item ID cannot be empty")
	}
	l.InventoryItemID = &inventoryItemID
	l.touch()
	return nil
}

// Confirm finalizes the match. previousPrice is the inventory item's unit
// price before this invoice; a move beyond priceChangeThreshold flags a
// discrepancy but never blocks the confirmation. A non-positive threshold
// falls back to the 10% default.
func (l *LineItem) Confirm(previousPrice *decimal.Decimal, priceChangeThreshold decimal.Decimal) error {
	if err := l.requireStatus("confirm", MatchStatusAutoMatched, MatchStatusManualMatched, MatchStatusNewItem); err != nil {
		return err
	}
	if l.InventoryItemID == nil {
		return shared.NewInvariantViolation("confirmed line has inventory item",
			fmt.Sprintf("line %s reached confirmation without an inventory item", l.ID))
	}

	newPrice := l.normalizedPrice()
	l.PreviousPrice = previousPrice
	l.NewPrice = &newPrice

	threshold := priceChangeThreshold
	if !threshold.IsPositive() {
		threshold = defaultPriceChangeThreshold
	}
	if previousPrice != nil && previousPrice.IsPositive() {
		delta := newPrice.Sub(*previousPrice).Abs().Div(*previousPrice)
		if delta.GreaterThan(threshold) {
			l.flagDiscrepancy(fmt.Sprintf("unit price moved %s%% against previous %s",
				delta.Mul(decimal.NewFromInt(100)).Round(1), previousPrice))
		}
	}

	l.MatchStatus = MatchStatusConfirmed
	l.AddedToInventory = l.ForInventory
	l.touch()
	l.AddDomainEvent(NewLineConfirmedEvent(l.ID, l.InvoiceID, *l.InventoryItemID, newPrice, previousPrice))
	return nil
}

// Reject discards a proposed match and clears the inventory link so a stale
// reference can never leak into a later confirmation.
func (l *LineItem) Reject() error {
	if err := l.requireStatus("reject", MatchStatusAutoMatched, MatchStatusManualMatched); err != nil {
		return err
	}
	l.MatchStatus = MatchStatusRejected
	l.InventoryItemID = nil
	l.MatchConfidence = 0
	l.touch()
	return nil
}

// Skip shelves the line without resolving it
func (l *LineItem) Skip() error {
	if l.MatchStatus == MatchStatusConfirmed {
		return shared.NewDomainError("INVALID_STATUS_TRANSITION", "cannot skip a confirmed line")
	}
	if l.MatchStatus == MatchStatusSkipped {
		return shared.NewDomainError("INVALID_STATUS_TRANSITION", "line is already skipped")
	}
	l.MatchStatus = MatchStatusSkipped
	l.touch()
	return nil
}

// Reopen pulls a skipped line back to unmatched for another pass
func (l *LineItem) Reopen() error {
	if err := l.requireStatus("reopen", MatchStatusSkipped); err != nil {
		return err
	}
	l.MatchStatus = MatchStatusUnmatched
	l.InventoryItemID = nil
	l.MatchConfidence = 0
	l.touch()
	return nil
}

// normalizedPrice returns the price in base units when known, else the raw
// unit price.
func (l *LineItem) normalizedPrice() decimal.Decimal {
	switch {
	case l.PricePerG != nil:
		return *l.PricePerG
	case l.PricePerML != nil:
		return *l.PricePerML
	case l.PricePerUnit != nil:
		return *l.PricePerUnit
	}
	return l.UnitPrice
}

func (l *LineItem) flagDiscrepancy(note string) {
	l.IsDiscrepancy = true
	l.appendNote(note)
}

func (l *LineItem) appendNote(note string) {
	if note == "" {
		return
	}
	if l.DiscrepancyNotes != "" {
		l.DiscrepancyNotes += "; "
	}
	l.DiscrepancyNotes += note
}

func (l *LineItem) requireStatus(action string, allowed ...MatchStatus) error {
	for _, s := range allowed {
		if l.MatchStatus == s {
			return nil
		}
	}
	return shared.NewDomainError("INVALID_STATUS_TRANSITION",
		fmt.Sprintf("cannot %s a line in status %s", action, l.MatchStatus))
}

func (l *LineItem) touch() {
	l.UpdatedAt = time.Now()
	l.IncrementVersion()
}

// TableName returns the database table name
func (LineItem) TableName() string {
	return "invoice_line_items"
}
