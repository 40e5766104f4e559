package invoice

import (
	"context"
	"strings"

	"github.com/invoiceflow/backend/internal/domain/invoice"
	"go.uber.org/zap"
)

// DuplicateCheckResult is returned to the caller as a warning, never an
// error: a reprinted invoice and a true duplicate look identical until a
// human decides.
type DuplicateCheckResult struct {
	IsDuplicate bool               `json:"is_duplicate"`
	Matches     []*invoice.Invoice `json:"matches,omitempty"`
}

// DuplicateChecker detects re-submitted invoices before ingestion commits
type DuplicateChecker struct {
	invoiceRepo invoice.Repository
	logger      *zap.Logger
}

// NewDuplicateChecker creates a new DuplicateChecker
func NewDuplicateChecker(invoiceRepo invoice.Repository, logger *zap.Logger) *DuplicateChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DuplicateChecker{invoiceRepo: invoiceRepo, logger: logger}
}

// Check looks for an existing invoice with the same number from the same
// vendor. The number lookup is case-insensitive in the repository; the
// vendor filter is case-insensitive here so "Sysco" and "SYSCO" collide.
func (c *DuplicateChecker) Check(ctx context.Context, vendorName, invoiceNumber string) (*DuplicateCheckResult, error) {
	invoiceNumber = strings.TrimSpace(invoiceNumber)
	if invoiceNumber == "" {
		return &DuplicateCheckResult{}, nil
	}

	candidates, err := c.invoiceRepo.FindByInvoiceNumber(ctx, invoiceNumber)
	if err != nil {
		return nil, err
	}

	wantVendor := strings.ToLower(strings.TrimSpace(vendorName))
	matches := make([]*invoice.Invoice, 0, len(candidates))
	for _, candidate := range candidates {
		if strings.ToLower(strings.TrimSpace(candidate.VendorName)) == wantVendor {
			matches = append(matches, candidate)
		}
	}

	if len(matches) > 0 {
		c.logger.Warn("duplicate invoice detected",
			zap.String("vendor_name", vendorName),
			zap.String("invoice_number", invoiceNumber),
			zap.Int("matches", len(matches)))
	}

	return &DuplicateCheckResult{
		IsDuplicate: len(matches) > 0,
		Matches:     matches,
	}, nil
}
