package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	vendorapp "github.com/invoiceflow/backend/internal/application/vendor"
	"github.com/invoiceflow/backend/internal/domain/vendor"
	"github.com/invoiceflow/backend/internal/interfaces/http/middleware"
)

// VendorHandler handles parsing profile and classification workflow endpoints
type VendorHandler struct {
	BaseHandler
	profileService  *vendorapp.ProfileService
	workflowService *vendorapp.WorkflowService
}

// NewVendorHandler creates a new VendorHandler
func NewVendorHandler(profileService *vendorapp.ProfileService, workflowService *vendorapp.WorkflowService) *VendorHandler {
	return &VendorHandler{
		profileService:  profileService,
		workflowService: workflowService,
	}
}

// GetProfile retrieves a vendor's parsing profile
func (h *VendorHandler) GetProfile(c *gin.Context) {
	vendorID, err := parseUUIDParam(c, "vendorId")
	if err != nil {
		h.BadRequest(c, "Invalid vendor ID format")
		return
	}

	profile, err := h.profileService.GetByVendorID(c.Request.Context(), vendorID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, profile)
}

// ResetProfile discards a vendor's learned profile
func (h *VendorHandler) ResetProfile(c *gin.Context) {
	vendorID, err := parseUUIDParam(c, "vendorId")
	if err != nil {
		h.BadRequest(c, "Invalid vendor ID format")
		return
	}

	if err := h.profileService.Reset(c.Request.Context(), vendorID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// GetOrCreateProfileRequest identifies a vendor by display name
type GetOrCreateProfileRequest struct {
	VendorName string `json:"vendor_name" binding:"required,min=1,max=255"`
}

// GetOrCreateProfile looks up a profile by vendor name, creating an
// empty one on first contact
func (h *VendorHandler) GetOrCreateProfile(c *gin.Context) {
	var req GetOrCreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	profile, err := h.profileService.GetOrCreate(c.Request.Context(), req.VendorName)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, profile)
}

// Hints renders the accumulated extraction hints for a vendor as prompt text
func (h *VendorHandler) Hints(c *gin.Context) {
	vendorName := c.Query("vendor_name")
	if vendorName == "" {
		h.BadRequest(c, "A vendor_name query parameter is required")
		return
	}

	hints, err := h.profileService.HintsFor(c.Request.Context(), vendorName)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, gin.H{"vendor_name": vendorName, "hints": hints})
}

// ColumnCorrectionRequest records a reviewer overriding an AI column guess
type ColumnCorrectionRequest struct {
	Index         int                  `json:"index" binding:"min=0"`
	AIDetected    vendor.SemanticField `json:"ai_detected" binding:"required"`
	UserCorrected vendor.SemanticField `json:"user_corrected" binding:"required"`
	SampleValue   string               `json:"sample_value" binding:"max=500"`
}

// RecordColumnCorrection stores a column classification correction on the profile
func (h *VendorHandler) RecordColumnCorrection(c *gin.Context) {
	vendorID, err := parseUUIDParam(c, "vendorId")
	if err != nil {
		h.BadRequest(c, "Invalid vendor ID format")
		return
	}

	var req ColumnCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	profile, err := h.profileService.RecordColumnCorrection(c.Request.Context(), vendorID, req.Index, req.AIDetected, req.UserCorrected, req.SampleValue)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, profile)
}

// ItemCorrectionRequest records corrected weight or quantity for an item key
type ItemCorrectionRequest struct {
	ItemKey  string           `json:"item_key" binding:"required,min=1,max=255"`
	Weight   *decimal.Decimal `json:"weight"`
	Quantity *decimal.Decimal `json:"quantity"`
}

// RecordItemCorrection stores a per-item extraction correction on the profile
func (h *VendorHandler) RecordItemCorrection(c *gin.Context) {
	vendorID, err := parseUUIDParam(c, "vendorId")
	if err != nil {
		h.BadRequest(c, "Invalid vendor ID format")
		return
	}

	var req ItemCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	profile, err := h.profileService.RecordItemCorrection(c.Request.Context(), vendorID, req.ItemKey, req.Weight, req.Quantity)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, profile)
}

// SetWeightUnitRequest sets the unit a vendor quotes weights in
type SetWeightUnitRequest struct {
	Unit string `json:"unit" binding:"required,min=1,max=10"`
}

// SetWeightUnit records the vendor's weight unit on the profile
func (h *VendorHandler) SetWeightUnit(c *gin.Context) {
	vendorID, err := parseUUIDParam(c, "vendorId")
	if err != nil {
		h.BadRequest(c, "Invalid vendor ID format")
		return
	}

	var req SetWeightUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	profile, err := h.profileService.SetWeightUnit(c.Request.Context(), vendorID, req.Unit)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, profile)
}

// SetQuirksRequest replaces the vendor's quirk set
type SetQuirksRequest struct {
	Quirks []vendor.Quirk `json:"quirks" binding:"required"`
}

// SetQuirks replaces the quirk set on the profile
func (h *VendorHandler) SetQuirks(c *gin.Context) {
	vendorID, err := parseUUIDParam(c, "vendorId")
	if err != nil {
		h.BadRequest(c, "Invalid vendor ID format")
		return
	}

	var req SetQuirksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	profile, err := h.profileService.SetQuirks(c.Request.Context(), vendorID, vendor.NewQuirkSet(req.Quirks...))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, profile)
}

// StartWorkflowRequest seeds a classification workflow with the AI's
// initial column guesses
type StartWorkflowRequest struct {
	VendorID uuid.UUID                 `json:"vendor_id" binding:"required"`
	Columns  []vendor.ColumnAssignment `json:"columns" binding:"required,min=1"`
}

// StartWorkflow opens an interactive classification session
func (h *VendorHandler) StartWorkflow(c *gin.Context) {
	var req StartWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	session, err := h.workflowService.Start(c.Request.Context(), req.VendorID, req.Columns)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, session)
}

// ConfirmVendorNameRequest confirms or corrects the detected vendor name
type ConfirmVendorNameRequest struct {
	Name string `json:"name" binding:"required,min=1,max=255"`
}

// ConfirmVendorName records the confirmed vendor name on the session
func (h *VendorHandler) ConfirmVendorName(c *gin.Context) {
	sessionID, err := parseUUIDParam(c, "sessionId")
	if err != nil {
		h.BadRequest(c, "Invalid session ID format")
		return
	}

	var req ConfirmVendorNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	session, err := h.workflowService.ConfirmVendorName(sessionID, req.Name)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, session)
}

// SetWorkflowQuirks records the quirk answers gathered during the session
func (h *VendorHandler) SetWorkflowQuirks(c *gin.Context) {
	sessionID, err := parseUUIDParam(c, "sessionId")
	if err != nil {
		h.BadRequest(c, "Invalid session ID format")
		return
	}

	var req SetQuirksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	session, err := h.workflowService.SetQuirks(sessionID, vendor.NewQuirkSet(req.Quirks...))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, session)
}

// AssignColumnRequest maps a column position to a semantic field
type AssignColumnRequest struct {
	Position int                  `json:"position" binding:"min=0"`
	Field    vendor.SemanticField `json:"field" binding:"required"`
}

// AssignColumn confirms or corrects one column's semantic field
func (h *VendorHandler) AssignColumn(c *gin.Context) {
	sessionID, err := parseUUIDParam(c, "sessionId")
	if err != nil {
		h.BadRequest(c, "Invalid session ID format")
		return
	}

	var req AssignColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	session, err := h.workflowService.AssignColumn(sessionID, req.Position, req.Field)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, session)
}

// ReorderColumnsRequest moves a column to the front of the assignment order
type ReorderColumnsRequest struct {
	Position int `json:"position" binding:"min=0"`
}

// ReorderColumns marks a column as moved by the reviewer
func (h *VendorHandler) ReorderColumns(c *gin.Context) {
	sessionID, err := parseUUIDParam(c, "sessionId")
	if err != nil {
		h.BadRequest(c, "Invalid session ID format")
		return
	}

	var req ReorderColumnsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	session, err := h.workflowService.ReorderColumns(sessionID, req.Position)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, session)
}

// FinishColumnAssignment closes the column assignment phase
func (h *VendorHandler) FinishColumnAssignment(c *gin.Context) {
	sessionID, err := parseUUIDParam(c, "sessionId")
	if err != nil {
		h.BadRequest(c, "Invalid session ID format")
		return
	}

	session, err := h.workflowService.FinishColumnAssignment(sessionID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, session)
}

// SampleResultRequest records whether a sample line parsed correctly
type SampleResultRequest struct {
	Correct bool `json:"correct"`
}

// RecordSampleResult records the verdict on one sample line
func (h *VendorHandler) RecordSampleResult(c *gin.Context) {
	sessionID, err := parseUUIDParam(c, "sessionId")
	if err != nil {
		h.BadRequest(c, "Invalid session ID format")
		return
	}

	var req SampleResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	session, err := h.workflowService.RecordSampleResult(sessionID, req.Correct)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, session)
}

// RecordWorkflowItemCorrection stores an item-level correction made mid-session
func (h *VendorHandler) RecordWorkflowItemCorrection(c *gin.Context) {
	sessionID, err := parseUUIDParam(c, "sessionId")
	if err != nil {
		h.BadRequest(c, "Invalid session ID format")
		return
	}

	var req ItemCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	session, err := h.workflowService.RecordItemCorrection(sessionID, req.ItemKey, req.Weight, req.Quantity)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, session)
}

// CompleteWorkflow folds the session's findings into the vendor's profile
func (h *VendorHandler) CompleteWorkflow(c *gin.Context) {
	sessionID, err := parseUUIDParam(c, "sessionId")
	if err != nil {
		h.BadRequest(c, "Invalid session ID format")
		return
	}

	profile, err := h.workflowService.Complete(c.Request.Context(), sessionID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, profile)
}

// AbandonWorkflow discards a session without touching the profile
func (h *VendorHandler) AbandonWorkflow(c *gin.Context) {
	sessionID, err := parseUUIDParam(c, "sessionId")
	if err != nil {
		h.BadRequest(c, "Invalid session ID format")
		return
	}

	h.workflowService.Abandon(sessionID)
	h.NoContent(c)
}
