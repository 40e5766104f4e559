package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	invoiceapp "github.com/invoiceflow/backend/internal/application/invoice"
	"github.com/invoiceflow/backend/internal/domain/invoice"
	"github.com/invoiceflow/backend/internal/interfaces/http/dto"
	"github.com/invoiceflow/backend/internal/interfaces/http/middleware"
)

// LineHandler handles line item matching API endpoints
type LineHandler struct {
	BaseHandler
	matchingService *invoiceapp.MatchingService
	lineItems       invoice.LineItemRepository
}

// NewLineHandler creates a new LineHandler
func NewLineHandler(matchingService *invoiceapp.MatchingService, lineItems invoice.LineItemRepository) *LineHandler {
	return &LineHandler{
		matchingService: matchingService,
		lineItems:       lineItems,
	}
}

// ListByMatchStatus lists lines across invoices in a match status,
// typically the unmatched review queue
func (h *LineHandler) ListByMatchStatus(c *gin.Context) {
	status := invoice.MatchStatus(c.Query("match_status"))
	if !status.IsValid() {
		h.BadRequest(c, "A valid match_status query parameter is required")
		return
	}

	var list dto.ListRequest
	if err := c.ShouldBindQuery(&list); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	list.Normalize()

	lines, err := h.lineItems.FindByMatchStatus(c.Request.Context(), status, list.PageSize, list.Offset())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, lines)
}

// ListByInvoice lists all lines of one invoice in line-number order
func (h *LineHandler) ListByInvoice(c *gin.Context) {
	invoiceID, err := parseUUIDParam(c, "invoiceId")
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	lines, err := h.lineItems.FindByInvoiceID(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, lines)
}

// ListUnresolved lists lines of an invoice that still block review
func (h *LineHandler) ListUnresolved(c *gin.Context) {
	invoiceID, err := parseUUIDParam(c, "invoiceId")
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	lines, err := h.lineItems.FindUnresolved(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, lines)
}

// Candidates returns ranked inventory match candidates for a line
func (h *LineHandler) Candidates(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid line ID format")
		return
	}

	var list dto.ListRequest
	if err := c.ShouldBindQuery(&list); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	list.Normalize()

	candidates, err := h.matchingService.FindCandidates(c.Request.Context(), id, list.PageSize)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, candidates)
}

// AutoMatch attempts an automatic match for an unmatched line
func (h *LineHandler) AutoMatch(c *gin.Context) {
	h.lineOp(c, h.matchingService.AutoMatchLine)
}

// MatchManualRequest selects the inventory item for a manual match
type MatchManualRequest struct {
	InventoryItemID uuid.UUID `json:"inventory_item_id" binding:"required"`
}

// MatchManual links a line to an inventory item chosen by the reviewer
func (h *LineHandler) MatchManual(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid line ID format")
		return
	}

	var req MatchManualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	line, err := h.matchingService.MatchManual(c.Request.Context(), id, req.InventoryItemID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, line)
}

// MarkNewItem flags a line as a product not yet in inventory
func (h *LineHandler) MarkNewItem(c *gin.Context) {
	h.lineOp(c, h.matchingService.MarkNewItem)
}

// RejectMatch undoes a proposed match and returns the line to unmatched
func (h *LineHandler) RejectMatch(c *gin.Context) {
	h.lineOp(c, h.matchingService.RejectMatch)
}

// Skip excludes a line from reconciliation
func (h *LineHandler) Skip(c *gin.Context) {
	h.lineOp(c, h.matchingService.SkipLine)
}

// Reopen returns a non-confirmed line to the unmatched state
func (h *LineHandler) Reopen(c *gin.Context) {
	h.lineOp(c, h.matchingService.ReopenLine)
}

// Confirm finalizes a line's match
func (h *LineHandler) Confirm(c *gin.Context) {
	h.lineOp(c, h.matchingService.ConfirmLine)
}

func (h *LineHandler) lineOp(c *gin.Context, op func(ctx context.Context, lineID uuid.UUID) (*invoice.LineItem, error)) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid line ID format")
		return
	}

	line, err := op(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, line)
}
