package valueobject

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// BaseUnit is the canonical unit all quantities are normalized to before
// price comparison: grams for mass, milliliters for volume, count for
// discrete goods.
type BaseUnit string

const (
	BaseUnitGram       BaseUnit = "G"
	BaseUnitMilliliter BaseUnit = "ML"
	BaseUnitCount      BaseUnit = "UNIT"
)

// IsValid checks if the base unit is one of the canonical units
func (b BaseUnit) IsValid() bool {
	switch b {
	case BaseUnitGram, BaseUnitMilliliter, BaseUnitCount:
		return true
	}
	return false
}

// String returns the string representation of the base unit
func (b BaseUnit) String() string {
	return string(b)
}

// UnknownUnitError is returned when a unit token is not in the conversion table.
// Vendors invent unit spellings constantly; an unknown token is surfaced for
// human review instead of being guessed at.
type UnknownUnitError struct {
	Unit string
}

// Error implements the error interface
func (e *UnknownUnitError) Error() string {
	return fmt.Sprintf("unknown unit: %q", e.Unit)
}

// unitFactor describes one recognized unit: its base unit and the number of
// base units in 1 of it.
type unitFactor struct {
	base   BaseUnit
	factor decimal.Decimal
}

// conversionTable maps normalized unit tokens to their canonical factor.
// Mass factors are in grams, volume factors in milliliters.
var conversionTable = map[string]unitFactor{
	// mass
	"G":     {BaseUnitGram, decimal.NewFromInt(1)},
	"GR":    {BaseUnitGram, decimal.NewFromInt(1)},
	"GRAM":  {BaseUnitGram, decimal.NewFromInt(1)},
	"KG":    {BaseUnitGram, decimal.NewFromInt(1000)},
	"KILO":  {BaseUnitGram, decimal.NewFromInt(1000)},
	"OZ":    {BaseUnitGram, decimal.NewFromFloat(28.35)},
	"LB":    {BaseUnitGram, decimal.NewFromFloat(453.6)},
	"LBS":   {BaseUnitGram, decimal.NewFromFloat(453.6)},
	"POUND": {BaseUnitGram, decimal.NewFromFloat(453.6)},

	// volume
	"ML": {BaseUnitMilliliter, decimal.NewFromInt(1)},
	"CL": {BaseUnitMilliliter, decimal.NewFromInt(10)},
	"L":  {BaseUnitMilliliter, decimal.NewFromInt(1000)},
	"LT": {BaseUnitMilliliter, decimal.NewFromInt(1000)},

	// discrete
	"UNIT": {BaseUnitCount, decimal.NewFromInt(1)},
	"UN":   {BaseUnitCount, decimal.NewFromInt(1)},
	"EA":   {BaseUnitCount, decimal.NewFromInt(1)},
	"EACH": {BaseUnitCount, decimal.NewFromInt(1)},
	"PC":   {BaseUnitCount, decimal.NewFromInt(1)},
	"PCS":  {BaseUnitCount, decimal.NewFromInt(1)},
	"CT":   {BaseUnitCount, decimal.NewFromInt(1)},
}

// NormalizeUnit trims, uppercases and strips trailing dots from a unit token
func NormalizeUnit(unit string) string {
	return strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(unit)), ".")
}

// IsKnownUnit reports whether the unit token is in the conversion table
func IsKnownUnit(unit string) bool {
	_, ok := conversionTable[NormalizeUnit(unit)]
	return ok
}

// Measurement is a quantity normalized to its canonical base unit.
// It is immutable.
type Measurement struct {
	baseValue decimal.Decimal
	baseUnit  BaseUnit
}

// Convert normalizes a value expressed in the given unit to its canonical
// base unit. Returns UnknownUnitError for unrecognized units.
func Convert(value decimal.Decimal, unit string) (Measurement, error) {
	f, ok := conversionTable[NormalizeUnit(unit)]
	if !ok {
		return Measurement{}, &UnknownUnitError{Unit: unit}
	}
	return Measurement{
		baseValue: value.Mul(f.factor),
		baseUnit:  f.base,
	}, nil
}

// NewMeasurement creates a measurement already expressed in a base unit
func NewMeasurement(baseValue decimal.Decimal, baseUnit BaseUnit) (Measurement, error) {
	if !baseUnit.IsValid() {
		return Measurement{}, &UnknownUnitError{Unit: string(baseUnit)}
	}
	return Measurement{baseValue: baseValue, baseUnit: baseUnit}, nil
}

// BaseValue returns the quantity in base units
func (m Measurement) BaseValue() decimal.Decimal {
	return m.baseValue
}

// BaseUnit returns the canonical base unit
func (m Measurement) BaseUnit() BaseUnit {
	return m.baseUnit
}

// IsZero returns true for the zero measurement
func (m Measurement) IsZero() bool {
	return m.baseUnit == "" && m.baseValue.IsZero()
}

// ConvertTo expresses the measurement in another unit of the same dimension.
// Returns UnknownUnitError for unrecognized units and an error when the unit
// belongs to a different dimension.
func (m Measurement) ConvertTo(unit string) (decimal.Decimal, error) {
	f, ok := conversionTable[NormalizeUnit(unit)]
	if !ok {
		return decimal.Zero, &UnknownUnitError{Unit: unit}
	}
	if f.base != m.baseUnit {
		return decimal.Zero, fmt.Errorf("cannot convert %s to %s: dimension mismatch", m.baseUnit, NormalizeUnit(unit))
	}
	return m.baseValue.Div(f.factor), nil
}

// String returns a string representation of the measurement
func (m Measurement) String() string {
	return fmt.Sprintf("%s %s", m.baseValue.String(), m.baseUnit)
}
