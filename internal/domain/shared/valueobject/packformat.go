package valueobject

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// PackFormatKind classifies a vendor pack/container notation
type PackFormatKind string

const (
	// PackFormatPackWeight is a distributor pack: count of packs times a
	// unit weight, e.g. "4/5LB" = 4 packs of 5 lb.
	PackFormatPackWeight PackFormatKind = "PACK_WEIGHT"
	// PackFormatNestedUnits is a nested container count, e.g. "10/100" =
	// 10 boxes of 100 inner units.
	PackFormatNestedUnits PackFormatKind = "NESTED_UNITS"
	// PackFormatRollCount is a roll notation, e.g. "6/RL" = 6 rolls.
	PackFormatRollCount PackFormatKind = "ROLL_COUNT"
	// PackFormatUnresolved marks a notation that must not be guessed at,
	// e.g. a bare "Caisse 24" with no unit suffix. Flagged for human review.
	PackFormatUnresolved PackFormatKind = "UNRESOLVED"
)

// IsValid checks if the kind is a recognized pack format kind
func (k PackFormatKind) IsValid() bool {
	switch k {
	case PackFormatPackWeight, PackFormatNestedUnits, PackFormatRollCount, PackFormatUnresolved:
		return true
	}
	return false
}

// String returns the string representation of the kind
func (k PackFormatKind) String() string {
	return string(k)
}

// PackFormat is the typed result of parsing a vendor pack/container notation
type PackFormat struct {
	Kind        PackFormatKind  `json:"kind"`
	Raw         string          `json:"raw"`
	PackCount   int             `json:"pack_count,omitempty"`  // PACK_WEIGHT
	UnitWeight  decimal.Decimal `json:"unit_weight,omitempty"` // PACK_WEIGHT
	WeightUnit  string          `json:"weight_unit,omitempty"` // PACK_WEIGHT
	Outer       int             `json:"outer,omitempty"`       // NESTED_UNITS
	Inner       int             `json:"inner,omitempty"`       // NESTED_UNITS
	Count       int             `json:"count,omitempty"`       // ROLL_COUNT
	NeedsReview bool            `json:"needs_review,omitempty"`
}

// TotalWeight returns the total measurement for a pack-weight notation
// (packCount * unitWeight, normalized to grams).
func (p PackFormat) TotalWeight() (Measurement, error) {
	if p.Kind != PackFormatPackWeight {
		return Measurement{}, &UnknownUnitError{Unit: p.Raw}
	}
	return Convert(p.UnitWeight.Mul(decimal.NewFromInt(int64(p.PackCount))), p.WeightUnit)
}

// TotalUnits returns the total discrete unit count for nested and roll notations
func (p PackFormat) TotalUnits() int {
	switch p.Kind {
	case PackFormatNestedUnits:
		return p.Outer * p.Inner
	case PackFormatRollCount:
		return p.Count
	}
	return 0
}

// packRule is one entry in the notation grammar: a pattern and a builder for
// its typed result. Rules are tried in order; the first match wins.
type packRule struct {
	pattern *regexp.Regexp
	build   func(raw string, groups []string) PackFormat
}

var packRules = []packRule{
	// "4/5LB", "2/2.5KG" - pack count / unit weight with unit suffix
	{
		pattern: regexp.MustCompile(`^(\d+)\s*/\s*(\d+(?:\.\d+)?)\s*(LB|LBS|KG|G|OZ)$`),
		build: func(raw string, g []string) PackFormat {
			count, _ := decimal.NewFromString(g[1])
			weight, _ := decimal.NewFromString(g[2])
			return PackFormat{
				Kind:       PackFormatPackWeight,
				Raw:        raw,
				PackCount:  int(count.IntPart()),
				UnitWeight: weight,
				WeightUnit: g[3],
			}
		},
	},
	// "6/RL" - roll count
	{
		pattern: regexp.MustCompile(`^(\d+)\s*/\s*RL$`),
		build: func(raw string, g []string) PackFormat {
			count, _ := decimal.NewFromString(g[1])
			return PackFormat{
				Kind:  PackFormatRollCount,
				Raw:   raw,
				Count: int(count.IntPart()),
			}
		},
	},
	// "10/100" - nested container counts, no unit suffix
	{
		pattern: regexp.MustCompile(`^(\d+)\s*/\s*(\d+)$`),
		build: func(raw string, g []string) PackFormat {
			outer, _ := decimal.NewFromString(g[1])
			inner, _ := decimal.NewFromString(g[2])
			return PackFormat{
				Kind:  PackFormatNestedUnits,
				Raw:   raw,
				Outer: int(outer.IntPart()),
				Inner: int(inner.IntPart()),
			}
		},
	},
}

// ParsePackFormat parses a vendor pack/container notation into a typed result.
// Bare numeric package values with no unit suffix ("Caisse 24", "24") are
// never resolved automatically; they come back UNRESOLVED with NeedsReview set
// so a human can decide what the vendor meant.
func ParsePackFormat(raw string) PackFormat {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	for _, rule := range packRules {
		if groups := rule.pattern.FindStringSubmatch(normalized); groups != nil {
			return rule.build(raw, groups)
		}
	}
	return PackFormat{
		Kind:        PackFormatUnresolved,
		Raw:         raw,
		NeedsReview: true,
	}
}
