package invoice

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/invoiceflow/backend/internal/domain/extraction"
	"github.com/invoiceflow/backend/internal/domain/invoice"
	"github.com/invoiceflow/backend/internal/domain/shared"
	"github.com/invoiceflow/backend/internal/domain/shared/valueobject"
	"github.com/invoiceflow/backend/internal/domain/vendor"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// dateLayouts are tried in order when parsing the extracted invoice date
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"02-Jan-2006",
}

// IngestCommand carries one uploaded document through the pipeline
type IngestCommand struct {
	Document    []byte
	ContentType string
	SourceFile  string
	// VendorNameHint lets the caller preload extraction hints when the
	// vendor is known up front; empty means extract blind.
	VendorNameHint string
}

// IngestResult is everything the review screen needs after ingestion
type IngestResult struct {
	Invoice   *invoice.Invoice       `json:"invoice"`
	Lines     []*invoice.LineItem    `json:"lines"`
	Profile   *vendor.ParsingProfile `json:"profile"`
	Duplicate *DuplicateCheckResult  `json:"duplicate,omitempty"`
	Warnings  []string               `json:"warnings,omitempty"`
}

// IngestService turns uploaded documents into invoices with classified,
// detection-annotated line items.
type IngestService struct {
	extractor        extraction.Extractor
	hintProvider     extraction.HintProvider
	profileRepo      vendor.ParsingProfileRepository
	invoiceRepo      invoice.Repository
	lineRepo         invoice.LineItemRepository
	duplicateChecker *DuplicateChecker
	txManager        shared.TransactionManager
	eventPublisher   shared.EventPublisher
	detectorConfig   invoice.DetectorConfig
	logger           *zap.Logger
}

// IngestServiceConfig holds configuration for the ingest service
type IngestServiceConfig struct {
	Extractor        extraction.Extractor
	HintProvider     extraction.HintProvider
	ProfileRepo      vendor.ParsingProfileRepository
	InvoiceRepo      invoice.Repository
	LineRepo         invoice.LineItemRepository
	DuplicateChecker *DuplicateChecker
	TxManager        shared.TransactionManager
	EventPublisher   shared.EventPublisher
	DetectorConfig   invoice.DetectorConfig
	Logger           *zap.Logger
}

// NewIngestService creates a new IngestService
func NewIngestService(config IngestServiceConfig) *IngestService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestService{
		extractor:        config.Extractor,
		hintProvider:     config.HintProvider,
		profileRepo:      config.ProfileRepo,
		invoiceRepo:      config.InvoiceRepo,
		lineRepo:         config.LineRepo,
		duplicateChecker: config.DuplicateChecker,
		txManager:        config.TxManager,
		eventPublisher:   config.EventPublisher,
		detectorConfig:   config.DetectorConfig,
		logger:           logger,
	}
}

// Ingest runs the full pipeline for one document: extract, resolve the
// vendor profile, duplicate-check, classify every line, and persist the
// invoice atomically. A detected duplicate is reported as a warning on the
// result, never as an error.
func (s *IngestService) Ingest(ctx context.Context, cmd IngestCommand) (*IngestResult, error) {
	hints := s.lookupHints(ctx, cmd.VendorNameHint)

	extracted, err := s.extractor.Extract(ctx, cmd.Document, cmd.ContentType, hints)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(extracted.Vendor.Name) == "" {
		return nil, shared.NewDomainError("VENDOR_NOT_DETECTED", "extractor could not read a vendor name")
	}

	profile, err := s.resolveProfile(ctx, extracted.Vendor.Name)
	if err != nil {
		return nil, err
	}

	dup, err := s.duplicateChecker.Check(ctx, extracted.Vendor.Name, extracted.Vendor.InvoiceNumber)
	if err != nil {
		return nil, err
	}

	inv, err := s.buildInvoice(profile, extracted, cmd.SourceFile)
	if err != nil {
		return nil, err
	}

	lines, warnings := s.buildLines(inv.ID, profile, extracted)
	inv.Lines = lines
	warnings = append(warnings, extracted.Warnings...)

	cleanRun := true
	for _, line := range lines {
		if line.IsDiscrepancy || line.NeedsReview {
			cleanRun = false
			break
		}
	}
	profile.MarkUsed(cleanRun)

	err = s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.invoiceRepo.Save(ctx, inv); err != nil {
			return err
		}
		if err := s.lineRepo.SaveAll(ctx, lines); err != nil {
			return err
		}
		return s.profileRepo.Save(ctx, profile)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, inv)
	for _, line := range lines {
		s.publishEvents(ctx, line)
	}
	s.publishEvents(ctx, profile)

	s.logger.Info("invoice ingested",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("vendor_name", inv.VendorName),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.Int("lines", len(lines)),
		zap.Int("discrepancies", inv.DiscrepancyCount()),
		zap.Bool("duplicate", dup.IsDuplicate))

	return &IngestResult{
		Invoice:   inv,
		Lines:     lines,
		Profile:   profile,
		Duplicate: dup,
		Warnings:  warnings,
	}, nil
}

func (s *IngestService) lookupHints(ctx context.Context, vendorName string) string {
	if s.hintProvider == nil || vendorName == "" {
		return ""
	}
	hints, err := s.hintProvider.HintsFor(ctx, vendorName)
	if err != nil {
		s.logger.Warn("hint lookup failed, extracting blind",
			zap.String("vendor_name", vendorName), zap.Error(err))
		return ""
	}
	return hints
}

// resolveProfile finds the vendor's profile or creates one on first sight
func (s *IngestService) resolveProfile(ctx context.Context, vendorName string) (*vendor.ParsingProfile, error) {
	profile, err := s.profileRepo.FindByVendorName(ctx, vendorName)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	return vendor.NewParsingProfile(uuid.New(), strings.TrimSpace(vendorName))
}

// buildInvoice creates the invoice and walks it to extracted, the state the
// review screen picks it up in.
func (s *IngestService) buildInvoice(profile *vendor.ParsingProfile, extracted *extraction.Result, sourceFile string) (*invoice.Invoice, error) {
	invoiceDate := parseDate(extracted.Vendor.InvoiceDate)

	inv, err := invoice.NewInvoice(profile.VendorID, extracted.Vendor.Name, extracted.Vendor.InvoiceNumber, invoiceDate)
	if err != nil {
		return nil, err
	}
	inv.SetSourceFile(sourceFile)

	subtotal := parseMoney(extracted.Vendor.Subtotal)
	tax := parseMoney(extracted.Vendor.TaxAmount)
	total := parseMoney(extracted.Vendor.Total)
	if err := inv.SetTotals(subtotal, tax, total); err != nil {
		return nil, err
	}

	for _, step := range []func() error{inv.Submit, inv.StartExtraction, inv.CompleteExtraction} {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return inv, nil
}

// buildLines classifies every candidate line; a line that cannot be built
// becomes a warning rather than failing the whole invoice.
func (s *IngestService) buildLines(invoiceID uuid.UUID, profile *vendor.ParsingProfile, extracted *extraction.Result) ([]*invoice.LineItem, []string) {
	lines := make([]*invoice.LineItem, 0, len(extracted.Lines))
	var warnings []string

	for _, candidate := range extracted.Lines {
		line, err := s.buildLine(invoiceID, profile, candidate)
		if err != nil {
			warnings = append(warnings, "line "+candidate.RawDescription+" dropped: "+err.Error())
			s.logger.Warn("candidate line dropped",
				zap.Int("line_number", candidate.LineNumber), zap.Error(err))
			continue
		}
		lines = append(lines, line)
	}
	return lines, warnings
}

func (s *IngestService) buildLine(invoiceID uuid.UUID, profile *vendor.ParsingProfile, candidate extraction.CandidateLine) (*invoice.LineItem, error) {
	raw := resolveColumns(profile, candidate)

	line, err := invoice.NewLineItem(invoiceID, candidate.LineNumber, raw.description)
	if err != nil {
		return nil, err
	}
	line.RawQuantity = raw.quantity
	line.RawUnit = raw.unit
	line.RawUnitPrice = raw.unitPrice
	line.RawTotal = raw.total
	line.RawPackSize = raw.packSize
	line.SKU = raw.sku

	quantity := parseDecimal(raw.quantity)
	unitPrice := parseDecimal(raw.unitPrice)
	total := parseDecimal(raw.total)

	weight, weightUnit := s.resolveWeight(profile, raw, line)

	// A remembered per-item correction overrides what the extractor read
	// for this exact recurring item.
	if fix, ok := profile.ItemCorrectionFor(vendor.ItemKey(raw.description)); ok {
		if fix.CorrectedWeight != nil {
			weight = fix.CorrectedWeight
			weightUnit = profile.WeightUnit
		}
		if fix.CorrectedQuantity != nil {
			quantity = *fix.CorrectedQuantity
		}
	}

	line.SetFigures(quantity, raw.unit, weight, weightUnit, unitPrice, total)

	if raw.unit == "" && profile.Quirks.BlankUnitColumn() {
		line.FlagForReview("unit column blank for this vendor")
	} else if raw.unit != "" && !valueobject.IsKnownUnit(raw.unit) {
		line.FlagForReview("unrecognized unit " + valueobject.NormalizeUnit(raw.unit))
	}

	s.classifyLineType(profile, line)

	result := invoice.DetectPricingModel(line.Figures(), s.detectorConfig)
	line.ApplyDetection(result)

	bias, _ := profile.ConfidenceAdjustment.Float64()
	line.MatchConfidence = clamp01(result.Confidence + bias)

	return line, nil
}

// resolveWeight pulls a weight out of the weight column or the pack-size
// notation, flagging what it cannot resolve.
func (s *IngestService) resolveWeight(profile *vendor.ParsingProfile, raw rawColumns, line *invoice.LineItem) (*decimal.Decimal, string) {
	if raw.weight != "" {
		w := parseDecimal(raw.weight)
		if w.IsPositive() {
			unit := profile.WeightUnit
			if unit == "" {
				unit = "LB"
			}
			return &w, unit
		}
	}

	if raw.packSize == "" || !profile.PackageFormat.Enabled {
		return nil, ""
	}

	format := valueobject.ParsePackFormat(raw.packSize)
	if format.NeedsReview {
		line.FlagForReview("pack format unresolved: " + raw.packSize)
		return nil, ""
	}
	if format.Kind == valueobject.PackFormatPackWeight {
		total, err := format.TotalWeight()
		if err == nil {
			v := total.BaseValue()
			return &v, valueobject.BaseUnitGram.String()
		}
	}
	return nil, ""
}

// classifyLineType routes deposits and credits away from inventory
func (s *IngestService) classifyLineType(profile *vendor.ParsingProfile, line *invoice.LineItem) {
	desc := strings.ToUpper(line.RawDescription)
	switch {
	case profile.Quirks.HasDepositLines() && (strings.Contains(desc, "DEPOSIT") || strings.Contains(desc, "CONSIGNE")):
		line.SetLineType(invoice.LineTypeDeposit)
	case line.TotalPrice.IsNegative():
		line.SetLineType(invoice.LineTypeCredit)
	}
}

// rawColumns is the line after profile-driven column resolution
type rawColumns struct {
	description string
	sku         string
	quantity    string
	unit        string
	weight      string
	unitPrice   string
	total       string
	packSize    string
}

// resolveColumns prefers the vendor profile's learned column layout and
// falls back to the extractor's own field guesses.
func resolveColumns(profile *vendor.ParsingProfile, candidate extraction.CandidateLine) rawColumns {
	pick := func(field vendor.SemanticField, fallback string) string {
		if mapping, ok := profile.ColumnFor(field); ok && mapping.Index < len(candidate.Columns) {
			if v := strings.TrimSpace(candidate.Columns[mapping.Index]); v != "" {
				return v
			}
		}
		return strings.TrimSpace(fallback)
	}

	return rawColumns{
		description: pick(vendor.FieldDescription, candidate.RawDescription),
		sku:         pick(vendor.FieldSKU, candidate.RawSKU),
		quantity:    pick(vendor.FieldQuantity, candidate.RawQuantity),
		unit:        pick(vendor.FieldUnit, candidate.RawUnit),
		weight:      pick(vendor.FieldWeight, candidate.RawWeight),
		unitPrice:   pick(vendor.FieldUnitPrice, candidate.RawUnitPrice),
		total:       pick(vendor.FieldTotalPrice, candidate.RawTotal),
		packSize:    pick(vendor.FieldPackSize, candidate.RawPackSize),
	}
}

func (s *IngestService) publishEvents(ctx context.Context, aggregate shared.AggregateRoot) {
	if s.eventPublisher == nil {
		return
	}
	events := aggregate.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
	aggregate.ClearDomainEvents()
}

// parseDecimal reads a vendor-printed number, tolerating currency symbols,
// thousands separators, and surrounding noise.
func parseDecimal(raw string) decimal.Decimal {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return decimal.Zero
	}
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		cleaned = "-" + strings.Trim(cleaned, "()")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseMoney(raw string) valueobject.Money {
	return valueobject.NewMoneyUSD(parseDecimal(raw))
}

func parseDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Now()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
