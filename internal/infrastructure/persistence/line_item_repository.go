package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/invoiceflow/backend/internal/domain/invoice"
	"github.com/invoiceflow/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormLineItemRepository implements invoice.LineItemRepository using GORM
type GormLineItemRepository struct {
	db *gorm.DB
}

// NewGormLineItemRepository creates a new GormLineItemRepository
func NewGormLineItemRepository(db *gorm.DB) *GormLineItemRepository {
	return &GormLineItemRepository{db: db}
}

// FindByID finds a line by its ID
func (r *GormLineItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoice.LineItem, error) {
	var line invoice.LineItem
	if err := conn(ctx, r.db).First(&line, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &line, nil
}

// FindByInvoiceID lists an invoice's lines in line-number order
func (r *GormLineItemRepository) FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]*invoice.LineItem, error) {
	var lines []*invoice.LineItem
	if err := conn(ctx, r.db).
		Where("invoice_id = ?", invoiceID).
		Order("line_number ASC").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// FindByMatchStatus lists lines in a given match status across invoices
func (r *GormLineItemRepository) FindByMatchStatus(ctx context.Context, status invoice.MatchStatus, limit, offset int) ([]*invoice.LineItem, error) {
	var lines []*invoice.LineItem
	if err := conn(ctx, r.db).
		Where("match_status = ?", status).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// FindUnresolved lists an invoice's lines that still block review
func (r *GormLineItemRepository) FindUnresolved(ctx context.Context, invoiceID uuid.UUID) ([]*invoice.LineItem, error) {
	resolved := []invoice.MatchStatus{
		invoice.MatchStatusConfirmed,
		invoice.MatchStatusSkipped,
		invoice.MatchStatusRejected,
	}
	var lines []*invoice.LineItem
	if err := conn(ctx, r.db).
		Where("invoice_id = ? AND match_status NOT IN ?", invoiceID, resolved).
		Order("line_number ASC").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// Save creates or updates a single line
func (r *GormLineItemRepository) Save(ctx context.Context, line *invoice.LineItem) error {
	return conn(ctx, r.db).Save(line).Error
}

// SaveAll persists a batch of lines for one invoice
func (r *GormLineItemRepository) SaveAll(ctx context.Context, lines []*invoice.LineItem) error {
	if len(lines) == 0 {
		return nil
	}
	return conn(ctx, r.db).Save(lines).Error
}

// Ensure GormLineItemRepository implements invoice.LineItemRepository
var _ invoice.LineItemRepository = (*GormLineItemRepository)(nil)
