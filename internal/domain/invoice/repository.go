package invoice

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for invoice persistence
type Repository interface {
	// FindByID finds an invoice by its ID, without lines
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByIDWithLines finds an invoice with its line items loaded
	FindByIDWithLines(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByStatus lists invoices in a given lifecycle status
	FindByStatus(ctx context.Context, status Status, limit, offset int) ([]*Invoice, error)

	// FindByVendorID lists invoices for a vendor, most recent first
	FindByVendorID(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]*Invoice, error)

	// FindByInvoiceNumber finds invoices matching the number
	// case-insensitively, across all vendors
	FindByInvoiceNumber(ctx context.Context, invoiceNumber string) ([]*Invoice, error)

	// FindByDateRange lists invoices whose invoice date falls in [from, to]
	FindByDateRange(ctx context.Context, from, to time.Time, limit, offset int) ([]*Invoice, error)

	// FindOverdueCandidates lists unpaid invoices whose due date has passed
	FindOverdueCandidates(ctx context.Context, asOf time.Time) ([]*Invoice, error)

	// Save creates or updates an invoice and its payment records
	Save(ctx context.Context, inv *Invoice) error

	// Delete removes an invoice and cascades to its lines
	Delete(ctx context.Context, id uuid.UUID) error

	// CountByStatus returns how many invoices sit in each status
	CountByStatus(ctx context.Context) (map[Status]int64, error)
}

// LineItemRepository defines the interface for line item persistence
type LineItemRepository interface {
	// FindByID finds a line by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*LineItem, error)

	// FindByInvoiceID lists an invoice's lines in line-number order
	FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]*LineItem, error)

	// FindByMatchStatus lists lines in a given match status across invoices
	FindByMatchStatus(ctx context.Context, status MatchStatus, limit, offset int) ([]*LineItem, error)

	// FindUnresolved lists an invoice's lines that still block review
	FindUnresolved(ctx context.Context, invoiceID uuid.UUID) ([]*LineItem, error)

	// Save creates or updates a single line
	Save(ctx context.Context, line *LineItem) error

	// SaveAll persists a batch of lines for one invoice
	SaveAll(ctx context.Context, lines []*LineItem) error
}
