package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	inventoryapp "github.com/invoiceflow/backend/internal/application/inventory"
	"github.com/invoiceflow/backend/internal/domain/inventory"
	"github.com/invoiceflow/backend/internal/domain/shared/valueobject"
	"github.com/invoiceflow/backend/internal/interfaces/http/dto"
	"github.com/invoiceflow/backend/internal/interfaces/http/middleware"
)

// InventoryHandler handles inventory item API endpoints
type InventoryHandler struct {
	BaseHandler
	inventoryService *inventoryapp.InventoryService
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(inventoryService *inventoryapp.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

// CreateItemRequest represents a new inventory item
type CreateItemRequest struct {
	Name     string           `json:"name" binding:"required,min=1,max=255"`
	BaseUnit string           `json:"base_unit" binding:"required,min=1,max=20"`
	SKU      string           `json:"sku" binding:"max=100"`
	Category string           `json:"category" binding:"max=100"`
	VendorID *uuid.UUID       `json:"vendor_id"`
	MinStock *decimal.Decimal `json:"min_stock"`
}

// Create registers a new inventory item
func (h *InventoryHandler) Create(c *gin.Context) {
	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	item, err := h.inventoryService.Create(c.Request.Context(), inventoryapp.CreateItemCommand{
		Name:     req.Name,
		BaseUnit: valueobject.BaseUnit(req.BaseUnit),
		SKU:      req.SKU,
		Category: req.Category,
		VendorID: req.VendorID,
		MinStock: req.MinStock,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, item)
}

// GetByID retrieves an inventory item
func (h *InventoryHandler) GetByID(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	item, err := h.inventoryService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, item)
}

// Search finds active items whose normalized name contains the fragment
func (h *InventoryHandler) Search(c *gin.Context) {
	fragment := c.Query("q")
	if fragment == "" {
		h.BadRequest(c, "A q query parameter is required")
		return
	}

	var list dto.ListRequest
	if err := c.ShouldBindQuery(&list); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	list.Normalize()

	items, err := h.inventoryService.Search(c.Request.Context(), fragment, list.PageSize)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, items)
}

// ListByVendor lists items sourced from a vendor
func (h *InventoryHandler) ListByVendor(c *gin.Context) {
	vendorID, err := parseUUIDParam(c, "vendorId")
	if err != nil {
		h.BadRequest(c, "Invalid vendor ID format")
		return
	}

	items, err := h.inventoryService.ListByVendor(c.Request.Context(), vendorID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, items)
}

// ListBelowMinimum lists items whose stock fell under their reorder floor
func (h *InventoryHandler) ListBelowMinimum(c *gin.Context) {
	items, err := h.inventoryService.ListBelowMinimum(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, items)
}

// PriceHistory returns an item's recorded prices, newest first
func (h *InventoryHandler) PriceHistory(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	var list dto.ListRequest
	if err := c.ShouldBindQuery(&list); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	list.Normalize()

	history, err := h.inventoryService.PriceHistory(c.Request.Context(), id, list.PageSize)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, history)
}

// ReceiveStockRequest represents goods received against an invoice
type ReceiveStockRequest struct {
	Quantity        decimal.Decimal `json:"quantity" binding:"required"`
	SourceInvoiceID uuid.UUID       `json:"source_invoice_id" binding:"required"`
}

// ReceiveStock adds received quantity to an item's stock level
func (h *InventoryHandler) ReceiveStock(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	var req ReceiveStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	item, err := h.inventoryService.ReceiveStock(c.Request.Context(), id, req.Quantity, req.SourceInvoiceID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, item)
}

// AdjustStockRequest corrects an item's stock level after a count
type AdjustStockRequest struct {
	Actual decimal.Decimal `json:"actual" binding:"required"`
	Reason string          `json:"reason" binding:"required,min=1,max=255"`
}

// AdjustStock sets an item's stock to a counted quantity
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	var req AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	item, err := h.inventoryService.AdjustStock(c.Request.Context(), id, req.Actual, req.Reason)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, item)
}

// SetMinStockRequest sets the reorder floor
type SetMinStockRequest struct {
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
}

// SetMinStock sets an item's reorder floor
func (h *InventoryHandler) SetMinStock(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	var req SetMinStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	item, err := h.inventoryService.SetMinStock(c.Request.Context(), id, req.Quantity)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, item)
}

// RenameRequest changes an item's display name
type RenameRequest struct {
	Name string `json:"name" binding:"required,min=1,max=255"`
}

// Rename changes an item's display name and normalized key
func (h *InventoryHandler) Rename(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	var req RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	item, err := h.inventoryService.Rename(c.Request.Context(), id, req.Name)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, item)
}

// Deactivate hides an item from matching and search
func (h *InventoryHandler) Deactivate(c *gin.Context) {
	h.itemOp(c, h.inventoryService.Deactivate)
}

// Reactivate restores a deactivated item
func (h *InventoryHandler) Reactivate(c *gin.Context) {
	h.itemOp(c, h.inventoryService.Reactivate)
}

func (h *InventoryHandler) itemOp(c *gin.Context, op func(ctx context.Context, itemID uuid.UUID) (*inventory.InventoryItem, error)) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	item, err := op(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, item)
}
