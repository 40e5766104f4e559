package invoice

import (
	"fmt"

	"github.com/invoiceflow/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// PricingModel says what drives a line's economics: weight, discrete count,
// or nothing we could verify. It is always detected per line by arithmetic;
// vendor-level pricing settings are informational only and never override it.
type PricingModel string

const (
	PricingModelWeight       PricingModel = "WEIGHT"
	PricingModelQuantity     PricingModel = "QUANTITY"
	PricingModelUndetermined PricingModel = "UNDETERMINED"
)

// IsValid checks if the pricing model is recognized
func (m PricingModel) IsValid() bool {
	switch m {
	case PricingModelWeight, PricingModelQuantity, PricingModelUndetermined:
		return true
	}
	return false
}

// String returns the string representation of the pricing model
func (m PricingModel) String() string {
	return string(m)
}

// DetectorConfig holds the arithmetic-match tolerances. The source material
// left these unspecified; both are explicit and configurable here rather than
// buried at call sites.
type DetectorConfig struct {
	// RelativeTolerance is the allowed relative error against the line
	// total (default 1%).
	RelativeTolerance decimal.Decimal
	// AbsoluteTolerance is the minimum absolute slack in currency units,
	// so near-zero totals don't demand impossible precision (default 0.01).
	AbsoluteTolerance decimal.Decimal
}

// DefaultDetectorConfig returns the documented default tolerances
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		RelativeTolerance: decimal.NewFromFloat(0.01),
		AbsoluteTolerance: decimal.NewFromFloat(0.01),
	}
}

// LineFigures is the untrusted vendor arithmetic for one line
type LineFigures struct {
	Quantity   decimal.Decimal
	Weight     *decimal.Decimal
	WeightUnit string // unit the weight is expressed in (e.g. "KG"), required when Weight is set
	Unit       string // unit of the quantity column, may be empty or unknown
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
}

// DetectionResult is the outcome of classifying one line
type DetectionResult struct {
	Model         PricingModel
	IsDiscrepancy bool
	Note          string
	// Confidence in [0,1] from arithmetic closeness alone; callers bias it
	// with the vendor profile's confidence adjustment.
	Confidence float64

	// Normalized price, populated when the model was determined
	BaseUnit       valueobject.BaseUnit
	TotalBaseUnits decimal.Decimal
	PricePerG      *decimal.Decimal
	PricePerML     *decimal.Decimal
	PricePerUnit   *decimal.Decimal
}

// DetectPricingModel classifies a line by pure arithmetic verification: it
// recomputes the total from quantity and, if present, from weight, and keeps
// whichever reproduces the vendor's total within tolerance. When neither does,
// the line is left undetermined and flagged - never silently forced.
//
// Pure and side-effect-free; safe to run in parallel across all lines.
func DetectPricingModel(f LineFigures, cfg DetectorConfig) DetectionResult {
	candidateQty := f.Quantity.Mul(f.UnitPrice)
	qtyMatches := f.Quantity.IsPositive() && withinTolerance(candidateQty, f.TotalPrice, cfg)

	var weightMatches bool
	var candidateWeight decimal.Decimal
	if f.Weight != nil && f.Weight.IsPositive() {
		candidateWeight = f.Weight.Mul(f.UnitPrice)
		weightMatches = withinTolerance(candidateWeight, f.TotalPrice, cfg)
	}

	switch {
	case weightMatches && !qtyMatches:
		return buildWeightResult(f, candidateWeight)
	case qtyMatches:
		// Covers weight absent, weight not matching, and the degenerate
		// case where both formulas agree (quantity equals weight).
		return buildQuantityResult(f, candidateQty)
	}

	note := fmt.Sprintf(
		"neither quantity nor weight reproduces the line total: qty %s x %s = %s, total %s",
		f.Quantity, f.UnitPrice, candidateQty, f.TotalPrice)
	if f.Weight != nil {
		note = fmt.Sprintf(
			"neither quantity nor weight reproduces the line total: qty %s x %s = %s, weight %s x %s = %s, total %s",
			f.Quantity, f.UnitPrice, candidateQty, f.Weight, f.UnitPrice, candidateWeight, f.TotalPrice)
	}

	return DetectionResult{
		Model:         PricingModelUndetermined,
		IsDiscrepancy: true,
		Note:          note,
	}
}

// withinTolerance reports whether candidate reproduces total within the
// configured slack: |candidate - total| <= max(abs, rel * |total|).
func withinTolerance(candidate, total decimal.Decimal, cfg DetectorConfig) bool {
	slack := cfg.RelativeTolerance.Mul(total.Abs())
	if slack.LessThan(cfg.AbsoluteTolerance) {
		slack = cfg.AbsoluteTolerance
	}
	return candidate.Sub(total).Abs().LessThanOrEqual(slack)
}

// closeness converts the residual error into a confidence in [0,1]
func closeness(candidate, total decimal.Decimal) float64 {
	if total.IsZero() {
		return 0
	}
	relErr, _ := candidate.Sub(total).Abs().Div(total.Abs()).Float64()
	c := 1 - relErr*10 // 1% residual error costs 0.1 confidence
	if c < 0 {
		c = 0
	}
	return c
}

func buildWeightResult(f LineFigures, candidate decimal.Decimal) DetectionResult {
	result := DetectionResult{
		Model:      PricingModelWeight,
		Confidence: closeness(candidate, f.TotalPrice),
	}

	m, err := valueobject.Convert(*f.Weight, f.WeightUnit)
	if err != nil || m.BaseUnit() != valueobject.BaseUnitGram {
		// Weight arithmetic worked but the unit is unusable; keep the
		// classification, surface the normalization gap for review.
		result.IsDiscrepancy = true
		result.Note = fmt.Sprintf("weight-priced line has no usable weight unit (%q)", f.WeightUnit)
		return result
	}

	perG := f.TotalPrice.Div(m.BaseValue())
	result.BaseUnit = valueobject.BaseUnitGram
	result.TotalBaseUnits = m.BaseValue()
	result.PricePerG = &perG
	return result
}

func buildQuantityResult(f LineFigures, candidate decimal.Decimal) DetectionResult {
	result := DetectionResult{
		Model:      PricingModelQuantity,
		Confidence: closeness(candidate, f.TotalPrice),
	}

	// A known mass or volume unit on the quantity column normalizes to
	// grams or milliliters; anything else prices per discrete unit.
	if f.Unit != "" && valueobject.IsKnownUnit(f.Unit) {
		m, err := valueobject.Convert(f.Quantity, f.Unit)
		if err == nil {
			switch m.BaseUnit() {
			case valueobject.BaseUnitGram:
				perG := f.TotalPrice.Div(m.BaseValue())
				result.BaseUnit = valueobject.BaseUnitGram
				result.TotalBaseUnits = m.BaseValue()
				result.PricePerG = &perG
				return result
			case valueobject.BaseUnitMilliliter:
				perML := f.TotalPrice.Div(m.BaseValue())
				result.BaseUnit = valueobject.BaseUnitMilliliter
				result.TotalBaseUnits = m.BaseValue()
				result.PricePerML = &perML
				return result
			}
		}
	}

	perUnit := f.TotalPrice.Div(f.Quantity)
	result.BaseUnit = valueobject.BaseUnitCount
	result.TotalBaseUnits = f.Quantity
	result.PricePerUnit = &perUnit
	return result
}
