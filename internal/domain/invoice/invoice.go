package invoice

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/invoiceflow/backend/internal/domain/shared"
	"github.com/invoiceflow/backend/internal/domain/shared/valueobject"
)

// Status is the processing lifecycle of an invoice, from upload through
// export to the accounting system.
type Status string

const (
	StatusDraft      Status = "DRAFT"
	StatusPending    Status = "PENDING"
	StatusExtracting Status = "EXTRACTING"
	StatusExtracted  Status = "EXTRACTED"
	StatusReviewed   Status = "REVIEWED"
	StatusProcessed  Status = "PROCESSED"
	StatusSentToQB   Status = "SENT_TO_QB"
	StatusError      Status = "ERROR"
	StatusArchived   Status = "ARCHIVED"
)

// IsValid checks if the status is recognized
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusExtracting, StatusExtracted,
		StatusReviewed, StatusProcessed, StatusSentToQB, StatusError, StatusArchived:
		return true
	}
	return false
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether the invoice can never leave this status
func (s Status) IsTerminal() bool {
	return s == StatusArchived
}

// statusTransitions is the forward path of the pipeline. Error is reachable
// from every in-flight step and retries back to pending; archive is allowed
// once an invoice has been reviewed or later.
var statusTransitions = map[Status][]Status{
	StatusDraft:      {StatusPending, StatusError},
	StatusPending:    {StatusExtracting, StatusError},
	StatusExtracting: {StatusExtracted, StatusError},
	StatusExtracted:  {StatusReviewed, StatusError},
	StatusReviewed:   {StatusProcessed, StatusArchived, StatusError},
	StatusProcessed:  {StatusSentToQB, StatusArchived, StatusError},
	StatusSentToQB:   {StatusArchived},
	StatusError:      {StatusPending, StatusArchived},
	StatusArchived:   {},
}

// CanTransitionTo checks whether the lifecycle permits moving to target
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range statusTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// PaymentStatus is derived from the amounts alone and never set directly
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "UNPAID"
	PaymentStatusPartial PaymentStatus = "PARTIAL"
	PaymentStatusPaid    PaymentStatus = "PAID"
)

// String returns the string representation of the payment status
func (s PaymentStatus) String() string {
	return string(s)
}

// derivePaymentStatus is the single source of truth for payment status
func derivePaymentStatus(amountPaid, total valueobject.Money) PaymentStatus {
	switch {
	case amountPaid.IsZero():
		return PaymentStatusUnpaid
	case !amountPaid.LessThan(total):
		return PaymentStatusPaid
	}
	return PaymentStatusPartial
}

// PaymentRecord is one payment applied against an invoice
type PaymentRecord struct {
	ID        uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	InvoiceID uuid.UUID         `json:"invoice_id" gorm:"type:uuid;not null;index"`
	Amount    valueobject.Money `json:"amount" gorm:"type:decimal(15,2);not null"`
	Method    string            `json:"method" gorm:"type:varchar(50)"`
	Reference string            `json:"reference" gorm:"type:varchar(100)"`
	PaidAt    time.Time         `json:"paid_at" gorm:"not null"`
	Note      string            `json:"note" gorm:"type:text"`
	CreatedAt time.Time         `json:"created_at"`
}

// TableName returns the database table name
func (PaymentRecord) TableName() string {
	return "invoice_payments"
}

// Invoice is one vendor invoice moving through extraction, review, and
// export. Its processing status and its payment position are independent
// axes; paying an invoice never advances the pipeline.
type Invoice struct {
	shared.BaseAggregateRoot
	VendorID      uuid.UUID  `json:"vendor_id" gorm:"type:uuid;not null;index"`
	VendorName    string     `json:"vendor_name" gorm:"type:varchar(255);not null"`
	InvoiceNumber string     `json:"invoice_number" gorm:"type:varchar(100);not null;index"`
	InvoiceDate   time.Time  `json:"invoice_date" gorm:"not null"`
	DueDate       *time.Time `json:"due_date,omitempty"`

	Status       Status `json:"status" gorm:"type:varchar(20);not null;index"`
	ErrorMessage string `json:"error_message" gorm:"type:text"`

	Subtotal   valueobject.Money `json:"subtotal" gorm:"type:decimal(15,2)"`
	TaxAmount  valueobject.Money `json:"tax_amount" gorm:"type:decimal(15,2)"`
	Total      valueobject.Money `json:"total" gorm:"type:decimal(15,2)"`
	AmountPaid valueobject.Money `json:"amount_paid" gorm:"type:decimal(15,2)"`

	PaymentStatus PaymentStatus `json:"payment_status" gorm:"type:varchar(20);not null"`

	// Orthogonal flags; none of them affects Status or PaymentStatus
	IsOverdue  bool `json:"is_overdue"`
	IsDisputed bool `json:"is_disputed"`
	IsVoided   bool `json:"is_voided"`

	SourceFile string `json:"source_file" gorm:"type:varchar(512)"`

	Lines    []*LineItem      `json:"lines,omitempty" gorm:"-"`
	Payments []*PaymentRecord `json:"payments,omitempty" gorm:"-"`
}

// NewInvoice creates a draft invoice for a vendor
func NewInvoice(vendorID uuid.UUID, vendorName, invoiceNumber string, invoiceDate time.Time) (*Invoice, error) {
	if vendorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VENDOR_ID", "vendor ID cannot be empty")
	}
	if strings.TrimSpace(vendorName) == "" {
		return nil, shared.NewDomainError("INVALID_VENDOR_NAME", "vendor name cannot be empty")
	}
	if strings.TrimSpace(invoiceNumber) == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "invoice number cannot be empty")
	}

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		VendorID:          vendorID,
		VendorName:        strings.TrimSpace(vendorName),
		InvoiceNumber:     strings.TrimSpace(invoiceNumber),
		InvoiceDate:       invoiceDate,
		Status:            StatusDraft,
		Subtotal:          valueobject.ZeroUSD(),
		TaxAmount:         valueobject.ZeroUSD(),
		Total:             valueobject.ZeroUSD(),
		AmountPaid:        valueobject.ZeroUSD(),
		PaymentStatus:     PaymentStatusUnpaid,
	}
	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv.ID, vendorID, inv.InvoiceNumber))
	return inv, nil
}

// SetTotals records the invoice money columns and re-derives payment status
func (i *Invoice) SetTotals(subtotal, tax, total valueobject.Money) error {
	if total.IsNegative() {
		return shared.NewDomainError("INVALID_TOTAL", "invoice total cannot be negative")
	}
	i.Subtotal = subtotal
	i.TaxAmount = tax
	i.Total = total
	i.PaymentStatus = derivePaymentStatus(i.AmountPaid, i.Total)
	i.touch()
	return nil
}

// SetSourceFile records where the uploaded document lives
func (i *Invoice) SetSourceFile(path string) {
	i.SourceFile = path
	i.touch()
}

// Submit queues a draft for extraction
func (i *Invoice) Submit() error {
	return i.transitionTo(StatusPending)
}

// StartExtraction marks the invoice as being read by the extractor
func (i *Invoice) StartExtraction() error {
	return i.transitionTo(StatusExtracting)
}

// CompleteExtraction records that line items were produced
func (i *Invoice) CompleteExtraction() error {
	return i.transitionTo(StatusExtracted)
}

// MarkReviewed records that a human finished the review pass
func (i *Invoice) MarkReviewed() error {
	return i.transitionTo(StatusReviewed)
}

// MarkProcessed records that inventory updates were applied
func (i *Invoice) MarkProcessed() error {
	return i.transitionTo(StatusProcessed)
}

// MarkSentToQB records the export to the accounting system
func (i *Invoice) MarkSentToQB() error {
	if err := i.transitionTo(StatusSentToQB); err != nil {
		return err
	}
	i.AddDomainEvent(NewInvoiceExportedEvent(i.ID, i.VendorID, i.InvoiceNumber))
	return nil
}

// MarkError parks the invoice with a reason; a retry goes back to pending
func (i *Invoice) MarkError(message string) error {
	if err := i.transitionTo(StatusError); err != nil {
		return err
	}
	i.ErrorMessage = message
	return nil
}

// Retry requeues an errored invoice
func (i *Invoice) Retry() error {
	if i.Status != StatusError {
		return shared.NewDomainError("INVALID_STATUS_TRANSITION", "only errored invoices can be retried")
	}
	if err := i.transitionTo(StatusPending); err != nil {
		return err
	}
	i.ErrorMessage = ""
	return nil
}

// Archive closes out the invoice; no further transitions are possible
func (i *Invoice) Archive() error {
	return i.transitionTo(StatusArchived)
}

func (i *Invoice) transitionTo(target Status) error {
	if !i.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATUS_TRANSITION",
			fmt.Sprintf("cannot transition invoice from %s to %s", i.Status, target))
	}
	from := i.Status
	i.Status = target
	i.touch()
	i.AddDomainEvent(NewInvoiceStatusChangedEvent(i.ID, from, target))
	return nil
}

// RecordPayment applies a payment and re-derives the payment status
func (i *Invoice) RecordPayment(amount valueobject.Money, method, reference string, paidAt time.Time) error {
	if i.IsVoided {
		return shared.NewDomainError("INVOICE_VOIDED", "cannot record a payment on a voided invoice")
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_PAYMENT_AMOUNT", "payment amount must be positive")
	}

	paid, err := i.AmountPaid.Add(amount)
	if err != nil {
		return err
	}
	i.AmountPaid = paid
	i.PaymentStatus = derivePaymentStatus(i.AmountPaid, i.Total)

	record := &PaymentRecord{
		ID:        uuid.New(),
		InvoiceID: i.ID,
		Amount:    amount,
		Method:    method,
		Reference: reference,
		PaidAt:    paidAt,
		CreatedAt: time.Now(),
	}
	i.Payments = append(i.Payments, record)
	i.touch()
	i.AddDomainEvent(NewInvoicePaymentRecordedEvent(i.ID, amount, i.PaymentStatus))
	return nil
}

// OutstandingAmount returns what is still owed, floored at zero
func (i *Invoice) OutstandingAmount() valueobject.Money {
	remaining, err := i.Total.Sub(i.AmountPaid)
	if err != nil || remaining.IsNegative() {
		return valueobject.Zero(i.Total.Currency())
	}
	return remaining
}

// MarkOverdue flags the invoice past due; purely informational
func (i *Invoice) MarkOverdue() {
	i.IsOverdue = true
	i.touch()
}

// RefreshOverdue recomputes the overdue flag from the due date
func (i *Invoice) RefreshOverdue(now time.Time) {
	i.IsOverdue = i.DueDate != nil && now.After(*i.DueDate) && i.PaymentStatus != PaymentStatusPaid
	i.touch()
}

// Dispute flags the invoice as contested with the vendor
func (i *Invoice) Dispute() {
	i.IsDisputed = true
	i.touch()
}

// ResolveDispute clears the dispute flag
func (i *Invoice) ResolveDispute() {
	i.IsDisputed = false
	i.touch()
}

// Void cancels the invoice commercially. The flag is orthogonal to Status;
// a voided invoice keeps its place in the pipeline for audit.
func (i *Invoice) Void() error {
	if i.PaymentStatus == PaymentStatusPaid {
		return shared.NewDomainError("INVOICE_PAID", "cannot void a fully paid invoice")
	}
	i.IsVoided = true
	i.touch()
	return nil
}

// SetDueDate records when payment is expected
func (i *Invoice) SetDueDate(due time.Time) {
	i.DueDate = &due
	i.touch()
}

// HasUnresolvedLines reports whether any line still needs attention
func (i *Invoice) HasUnresolvedLines() bool {
	for _, line := range i.Lines {
		switch line.MatchStatus {
		case MatchStatusConfirmed, MatchStatusSkipped, MatchStatusRejected:
		default:
			return true
		}
	}
	return false
}

// DiscrepancyCount returns how many lines carry a discrepancy flag
func (i *Invoice) DiscrepancyCount() int {
	n := 0
	for _, line := range i.Lines {
		if line.IsDiscrepancy {
			n++
		}
	}
	return n
}

func (i *Invoice) touch() {
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
}

// TableName returns the database table name
func (Invoice) TableName() string {
	return "invoices"
}
