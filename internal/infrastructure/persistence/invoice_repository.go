package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/invoiceflow/backend/internal/domain/invoice"
	"github.com/invoiceflow/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements invoice.Repository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by its ID, without lines
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	if err := conn(ctx, r.db).First(&inv, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// FindByIDWithLines finds an invoice with its lines and payment records.
// Lines and payments are not GORM associations, so they are loaded with
// explicit child queries.
func (r *GormInvoiceRepository) FindByIDWithLines(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	inv, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := conn(ctx, r.db).
		Where("invoice_id = ?", id).
		Order("line_number ASC").
		Find(&inv.Lines).Error; err != nil {
		return nil, err
	}

	if err := conn(ctx, r.db).
		Where("invoice_id = ?", id).
		Order("paid_at ASC").
		Find(&inv.Payments).Error; err != nil {
		return nil, err
	}

	return inv, nil
}

// FindByStatus lists invoices in a given lifecycle status, newest first
func (r *GormInvoiceRepository) FindByStatus(ctx context.Context, status invoice.Status, limit, offset int) ([]*invoice.Invoice, error) {
	var invoices []*invoice.Invoice
	if err := conn(ctx, r.db).
		Where("status = ?", status).
		Order("invoice_date DESC, created_at DESC").
		Limit(limit).Offset(offset).
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// FindByVendorID lists invoices for a vendor, most recent first
func (r *GormInvoiceRepository) FindByVendorID(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]*invoice.Invoice, error) {
	var invoices []*invoice.Invoice
	if err := conn(ctx, r.db).
		Where("vendor_id = ?", vendorID).
		Order("invoice_date DESC, created_at DESC").
		Limit(limit).Offset(offset).
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// FindByInvoiceNumber finds invoices matching the number case-insensitively
func (r *GormInvoiceRepository) FindByInvoiceNumber(ctx context.Context, invoiceNumber string) ([]*invoice.Invoice, error) {
	var invoices []*invoice.Invoice
	if err := conn(ctx, r.db).
		Where("LOWER(invoice_number) = LOWER(?)", invoiceNumber).
		Order("invoice_date DESC").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// FindByDateRange lists invoices whose invoice date falls in [from, to]
func (r *GormInvoiceRepository) FindByDateRange(ctx context.Context, from, to time.Time, limit, offset int) ([]*invoice.Invoice, error) {
	var invoices []*invoice.Invoice
	if err := conn(ctx, r.db).
		Where("invoice_date >= ? AND invoice_date <= ?", from, to).
		Order("invoice_date DESC, created_at DESC").
		Limit(limit).Offset(offset).
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// FindOverdueCandidates lists unpaid invoices past their due date that are
// not yet flagged. Voided and archived invoices never become overdue.
func (r *GormInvoiceRepository) FindOverdueCandidates(ctx context.Context, asOf time.Time) ([]*invoice.Invoice, error) {
	var invoices []*invoice.Invoice
	if err := conn(ctx, r.db).
		Where("due_date IS NOT NULL AND due_date < ?", asOf).
		Where("payment_status <> ?", invoice.PaymentStatusPaid).
		Where("is_voided = ?", false).
		Where("status <> ?", invoice.StatusArchived).
		Where("is_overdue = ?", false).
		Order("due_date ASC").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// Save creates or updates an invoice and its payment records.
// Payment records are append-only; existing rows are upserted unchanged.
func (r *GormInvoiceRepository) Save(ctx context.Context, inv *invoice.Invoice) error {
	if err := conn(ctx, r.db).Save(inv).Error; err != nil {
		return err
	}
	for _, payment := range inv.Payments {
		if err := conn(ctx, r.db).Save(payment).Error; err != nil {
			return err
		}
	}
	return nil
}

// Delete removes an invoice and cascades to its lines and payments
func (r *GormInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := conn(ctx, r.db).Delete(&invoice.LineItem{}, "invoice_id = ?", id).Error; err != nil {
		return err
	}
	if err := conn(ctx, r.db).Delete(&invoice.PaymentRecord{}, "invoice_id = ?", id).Error; err != nil {
		return err
	}
	result := conn(ctx, r.db).Delete(&invoice.Invoice{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountByStatus returns how many invoices sit in each status
func (r *GormInvoiceRepository) CountByStatus(ctx context.Context) (map[invoice.Status]int64, error) {
	var rows []struct {
		Status invoice.Status
		Count  int64
	}
	if err := conn(ctx, r.db).
		Model(&invoice.Invoice{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[invoice.Status]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// Ensure GormInvoiceRepository implements invoice.Repository
var _ invoice.Repository = (*GormInvoiceRepository)(nil)
