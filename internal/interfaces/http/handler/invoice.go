package handler

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/gin-gonic/gin"
	invoiceapp "github.com/invoiceflow/backend/internal/application/invoice"
	"github.com/invoiceflow/backend/internal/domain/invoice"
	"github.com/invoiceflow/backend/internal/domain/shared/valueobject"
	"github.com/invoiceflow/backend/internal/interfaces/http/dto"
	"github.com/invoiceflow/backend/internal/interfaces/http/middleware"
)

// InvoiceHandler handles invoice lifecycle API endpoints
type InvoiceHandler struct {
	BaseHandler
	ingestService    *invoiceapp.IngestService
	invoiceService   *invoiceapp.InvoiceService
	duplicateChecker *invoiceapp.DuplicateChecker
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(ingestService *invoiceapp.IngestService, invoiceService *invoiceapp.InvoiceService, duplicateChecker *invoiceapp.DuplicateChecker) *InvoiceHandler {
	return &InvoiceHandler{
		ingestService:    ingestService,
		invoiceService:   invoiceService,
		duplicateChecker: duplicateChecker,
	}
}

// Ingest accepts an uploaded invoice document (multipart field "document")
// and runs the extraction pipeline. A duplicate is reported as a warning on
// the result, never as a failure.
func (h *InvoiceHandler) Ingest(c *gin.Context) {
	fileHeader, err := c.FormFile("document")
	if err != nil {
		h.BadRequest(c, "A document file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.BadRequest(c, "Unable to read uploaded document")
		return
	}
	defer file.Close()

	document, err := io.ReadAll(file)
	if err != nil {
		h.BadRequest(c, "Unable to read uploaded document")
		return
	}

	result, err := h.ingestService.Ingest(c.Request.Context(), invoiceapp.IngestCommand{
		Document:       document,
		ContentType:    fileHeader.Header.Get("Content-Type"),
		SourceFile:     fileHeader.Filename,
		VendorNameHint: c.PostForm("vendor_name"),
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// GetByID retrieves an invoice with its lines and payments
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	inv, err := h.invoiceService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, inv)
}

// ListByStatus lists invoices in a lifecycle status
func (h *InvoiceHandler) ListByStatus(c *gin.Context) {
	status := invoice.Status(c.Query("status"))
	if status == "" {
		h.BadRequest(c, "A status query parameter is required")
		return
	}

	var list dto.ListRequest
	if err := c.ShouldBindQuery(&list); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	list.Normalize()

	invoices, err := h.invoiceService.ListByStatus(c.Request.Context(), status, list.PageSize, list.Offset())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, invoices)
}

// ListByVendor lists a vendor's invoices, most recent first
func (h *InvoiceHandler) ListByVendor(c *gin.Context) {
	vendorID, err := parseUUIDParam(c, "vendorId")
	if err != nil {
		h.BadRequest(c, "Invalid vendor ID format")
		return
	}

	var list dto.ListRequest
	if err := c.ShouldBindQuery(&list); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	list.Normalize()

	invoices, err := h.invoiceService.ListByVendor(c.Request.Context(), vendorID, list.PageSize, list.Offset())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, invoices)
}

// ListByDateRange lists invoices dated within an inclusive range.
// Dates use the 2006-01-02 layout.
func (h *InvoiceHandler) ListByDateRange(c *gin.Context) {
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		h.BadRequest(c, "A from date in YYYY-MM-DD format is required")
		return
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		h.BadRequest(c, "A to date in YYYY-MM-DD format is required")
		return
	}

	var list dto.ListRequest
	if err := c.ShouldBindQuery(&list); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	list.Normalize()

	invoices, err := h.invoiceService.ListByDateRange(c.Request.Context(), from, to, list.PageSize, list.Offset())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, invoices)
}

// StatusCounts returns the pipeline totals for the dashboard
func (h *InvoiceHandler) StatusCounts(c *gin.Context) {
	counts, err := h.invoiceService.StatusCounts(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, counts)
}

// CheckDuplicate reports whether an invoice number was already ingested
// for a vendor. Informational only.
func (h *InvoiceHandler) CheckDuplicate(c *gin.Context) {
	vendorName := c.Query("vendor_name")
	invoiceNumber := c.Query("invoice_number")
	if vendorName == "" || invoiceNumber == "" {
		h.BadRequest(c, "vendor_name and invoice_number query parameters are required")
		return
	}

	result, err := h.duplicateChecker.Check(c.Request.Context(), vendorName, invoiceNumber)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Delete removes an invoice together with its lines and payments
func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	if err := h.invoiceService.Delete(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// MarkReviewed closes the review pass on an invoice
func (h *InvoiceHandler) MarkReviewed(c *gin.Context) {
	h.transition(c, h.invoiceService.MarkReviewed)
}

// MarkProcessed records that inventory effects were applied
func (h *InvoiceHandler) MarkProcessed(c *gin.Context) {
	h.transition(c, h.invoiceService.MarkProcessed)
}

// MarkSentToQB records the export to the accounting system
func (h *InvoiceHandler) MarkSentToQB(c *gin.Context) {
	h.transition(c, h.invoiceService.MarkSentToQB)
}

// MarkErrorRequest carries the failure reason for parking an invoice
type MarkErrorRequest struct {
	Message string `json:"message" binding:"required,min=1,max=1000"`
}

// MarkError parks an invoice with a reason
func (h *InvoiceHandler) MarkError(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req MarkErrorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	inv, err := h.invoiceService.MarkError(c.Request.Context(), id, req.Message)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, inv)
}

// Retry requeues an errored invoice
func (h *InvoiceHandler) Retry(c *gin.Context) {
	h.transition(c, h.invoiceService.Retry)
}

// Archive closes out an invoice
func (h *InvoiceHandler) Archive(c *gin.Context) {
	h.transition(c, h.invoiceService.Archive)
}

// Dispute flags an invoice as contested
func (h *InvoiceHandler) Dispute(c *gin.Context) {
	h.transition(c, h.invoiceService.Dispute)
}

// ResolveDispute clears the dispute flag
func (h *InvoiceHandler) ResolveDispute(c *gin.Context) {
	h.transition(c, h.invoiceService.ResolveDispute)
}

// Void cancels an invoice commercially
func (h *InvoiceHandler) Void(c *gin.Context) {
	h.transition(c, h.invoiceService.Void)
}

// RecordPaymentRequest represents a payment against an invoice
type RecordPaymentRequest struct {
	Amount    string    `json:"amount" binding:"required"`
	Method    string    `json:"method" binding:"required,max=50"`
	Reference string    `json:"reference" binding:"max=100"`
	PaidAt    time.Time `json:"paid_at" binding:"required"`
}

// RecordPayment applies a payment against an invoice
func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	amount, err := valueobject.NewMoneyFromString(req.Amount, valueobject.DefaultCurrency)
	if err != nil {
		h.BadRequest(c, "Invalid payment amount")
		return
	}

	inv, err := h.invoiceService.RecordPayment(c.Request.Context(), id, amount, req.Method, req.Reference, req.PaidAt)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, inv)
}

// SetDueDateRequest carries the expected payment date
type SetDueDateRequest struct {
	DueDate time.Time `json:"due_date" binding:"required"`
}

// SetDueDate records when payment is expected
func (h *InvoiceHandler) SetDueDate(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req SetDueDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	inv, err := h.invoiceService.SetDueDate(c.Request.Context(), id, req.DueDate)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, inv)
}

// RefreshOverdue sweeps unpaid invoices past their due date
func (h *InvoiceHandler) RefreshOverdue(c *gin.Context) {
	flagged, err := h.invoiceService.RefreshOverdueFlags(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, gin.H{"flagged": flagged})
}

// transition applies a plain id-only lifecycle operation
func (h *InvoiceHandler) transition(c *gin.Context, op func(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error)) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	inv, err := op(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, inv)
}
