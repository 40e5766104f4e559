package invoice

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/invoiceflow/backend/internal/domain/invoice"
	"github.com/invoiceflow/backend/internal/domain/shared"
	"github.com/invoiceflow/backend/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// InvoiceService handles invoice lifecycle and payment operations
type InvoiceService struct {
	invoiceRepo    invoice.Repository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(invoiceRepo invoice.Repository, eventPublisher shared.EventPublisher, logger *zap.Logger) *InvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		invoiceRepo:    invoiceRepo,
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

// GetByID retrieves an invoice with its lines
func (s *InvoiceService) GetByID(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	return s.invoiceRepo.FindByIDWithLines(ctx, id)
}

// ListByStatus lists invoices in a lifecycle status
func (s *InvoiceService) ListByStatus(ctx context.Context, status invoice.Status, limit, offset int) ([]*invoice.Invoice, error) {
	if !status.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", "unrecognized invoice status")
	}
	return s.invoiceRepo.FindByStatus(ctx, status, limit, offset)
}

// ListByVendor lists a vendor's invoices, most recent first
func (s *InvoiceService) ListByVendor(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]*invoice.Invoice, error) {
	return s.invoiceRepo.FindByVendorID(ctx, vendorID, limit, offset)
}

// ListByDateRange lists invoices dated within [from, to]
func (s *InvoiceService) ListByDateRange(ctx context.Context, from, to time.Time, limit, offset int) ([]*invoice.Invoice, error) {
	if to.Before(from) {
		return nil, shared.NewDomainError("INVALID_RANGE", "date range end precedes start")
	}
	return s.invoiceRepo.FindByDateRange(ctx, from, to, limit, offset)
}

// StatusCounts returns the pipeline totals for the dashboard
func (s *InvoiceService) StatusCounts(ctx context.Context) (map[invoice.Status]int64, error) {
	return s.invoiceRepo.CountByStatus(ctx)
}

// MarkReviewed closes the review pass. All lines must be resolved first:
// an invoice with open lines cannot move forward.
func (s *InvoiceService) MarkReviewed(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	inv, err := s.invoiceRepo.FindByIDWithLines(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.HasUnresolvedLines() {
		return nil, shared.NewDomainError("UNRESOLVED_LINES",
			"cannot mark an invoice reviewed while lines are still open")
	}
	return s.transition(ctx, inv, inv.MarkReviewed)
}

// MarkProcessed records that inventory effects were applied
func (s *InvoiceService) MarkProcessed(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	return s.loadAndTransition(ctx, id, func(inv *invoice.Invoice) error { return inv.MarkProcessed() })
}

// MarkSentToQB records the export to the accounting system
func (s *InvoiceService) MarkSentToQB(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	return s.loadAndTransition(ctx, id, func(inv *invoice.Invoice) error { return inv.MarkSentToQB() })
}

// MarkError parks an invoice with a reason
func (s *InvoiceService) MarkError(ctx context.Context, id uuid.UUID, message string) (*invoice.Invoice, error) {
	return s.loadAndTransition(ctx, id, func(inv *invoice.Invoice) error { return inv.MarkError(message) })
}

// Retry requeues an errored invoice
func (s *InvoiceService) Retry(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	return s.loadAndTransition(ctx, id, func(inv *invoice.Invoice) error { return inv.Retry() })
}

// Archive closes out an invoice
func (s *InvoiceService) Archive(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	return s.loadAndTransition(ctx, id, func(inv *invoice.Invoice) error { return inv.Archive() })
}

// RecordPayment applies a payment against an invoice
func (s *InvoiceService) RecordPayment(ctx context.Context, id uuid.UUID, amount valueobject.Money, method, reference string, paidAt time.Time) (*invoice.Invoice, error) {
	return s.loadAndTransition(ctx, id, func(inv *invoice.Invoice) error {
		return inv.RecordPayment(amount, method, reference, paidAt)
	})
}

// Dispute flags an invoice as contested
func (s *InvoiceService) Dispute(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	return s.loadAndTransition(ctx, id, func(inv *invoice.Invoice) error {
		inv.Dispute()
		return nil
	})
}

// ResolveDispute clears the dispute flag
func (s *InvoiceService) ResolveDispute(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	return s.loadAndTransition(ctx, id, func(inv *invoice.Invoice) error {
		inv.ResolveDispute()
		return nil
	})
}

// Void cancels an invoice commercially
func (s *InvoiceService) Void(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	return s.loadAndTransition(ctx, id, func(inv *invoice.Invoice) error { return inv.Void() })
}

// SetDueDate records when payment is expected
func (s *InvoiceService) SetDueDate(ctx context.Context, id uuid.UUID, due time.Time) (*invoice.Invoice, error) {
	return s.loadAndTransition(ctx, id, func(inv *invoice.Invoice) error {
		inv.SetDueDate(due)
		return nil
	})
}

// Delete removes an invoice and all of its lines and payment records
func (s *InvoiceService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.invoiceRepo.FindByID(ctx, id); err != nil {
		return err
	}
	if err := s.invoiceRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("invoice deleted", zap.String("invoice_id", id.String()))
	return nil
}

// RefreshOverdueFlags sweeps unpaid invoices past their due date and marks
// them overdue; meant to run on a schedule.
func (s *InvoiceService) RefreshOverdueFlags(ctx context.Context) (int, error) {
	now := time.Now()
	candidates, err := s.invoiceRepo.FindOverdueCandidates(ctx, now)
	if err != nil {
		return 0, err
	}

	flagged := 0
	for _, inv := range candidates {
		if inv.IsOverdue {
			continue
		}
		inv.RefreshOverdue(now)
		if !inv.IsOverdue {
			continue
		}
		if err := s.invoiceRepo.Save(ctx, inv); err != nil {
			s.logger.Error("failed to persist overdue flag",
				zap.String("invoice_id", inv.ID.String()), zap.Error(err))
			continue
		}
		flagged++
	}

	if flagged > 0 {
		s.logger.Info("overdue sweep complete", zap.Int("flagged", flagged))
	}
	return flagged, nil
}

func (s *InvoiceService) loadAndTransition(ctx context.Context, id uuid.UUID, mutate func(*invoice.Invoice) error) (*invoice.Invoice, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, inv, func() error { return mutate(inv) })
}

func (s *InvoiceService) transition(ctx context.Context, inv *invoice.Invoice, mutate func() error) (*invoice.Invoice, error) {
	if err := mutate(); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Save(ctx, inv); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, inv)
	return inv, nil
}

func (s *InvoiceService) publishEvents(ctx context.Context, inv *invoice.Invoice) {
	if s.eventPublisher == nil {
		return
	}
	events := inv.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
	inv.ClearDomainEvents()
}
