package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	apperr "apparel-pricing/internal/errors"
)

// RoundingRule is the closed set of per-product-line rounding strategies
type RoundingRule int

const (
	// TwoDecimalNoRounding rounds to the cent only
	TwoDecimalNoRounding RoundingRule = iota
	// CeilDollar always rounds up to the next whole dollar
	CeilDollar
	// RoundHalfDollarUp always rounds up to the next $0.50
	RoundHalfDollarUp
	// RoundNearestHalfDollar rounds to the nearest $0.50, halves away from zero
	RoundNearestHalfDollar
	// RoundNearestDollar rounds to the nearest whole dollar, halves away from zero
	RoundNearestDollar
)

var roundingNames = map[RoundingRule]string{
	TwoDecimalNoRounding:   "TwoDecimalNoRounding",
	CeilDollar:             "CeilDollar",
	RoundHalfDollarUp:      "RoundHalfDollarUp",
	RoundNearestHalfDollar: "RoundNearestHalfDollar",
	RoundNearestDollar:     "RoundNearestDollar",
}

// Names the pricing backend has used for the same rules over time.
var roundingAliases = map[string]RoundingRule{
	"halfdollarup":             RoundHalfDollarUp,
	"halfdollarceil_final":     RoundHalfDollarUp,
	"halfdollarup_final":       RoundHalfDollarUp,
	"halfdollarupalways_final": RoundHalfDollarUp,
	"roundtonearesthalfdollar": RoundNearestHalfDollar,
	"roundtonearestdollar":     RoundNearestDollar,
}

var (
	two = decimal.NewFromInt(2)
)

// String returns the canonical rule name
func (r RoundingRule) String() string {
	if name, ok := roundingNames[r]; ok {
		return name
	}
	return "unknown"
}

// ParseRoundingRule resolves a rule name. An empty name is the default
// TwoDecimalNoRounding; an unrecognised name is a configuration error.
func ParseRoundingRule(name string) (RoundingRule, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return TwoDecimalNoRounding, nil
	}
	for rule, canonical := range roundingNames {
		if strings.EqualFold(trimmed, canonical) {
			return rule, nil
		}
	}
	if rule, ok := roundingAliases[strings.ToLower(trimmed)]; ok {
		return rule, nil
	}
	return 0, apperr.Configf("unknown rounding rule %q", name)
}

// MarshalText implements encoding.TextMarshaler
func (r RoundingRule) MarshalText() ([]byte, error) {
	if _, ok := roundingNames[r]; !ok {
		return nil, apperr.Configf("unknown rounding rule %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (r *RoundingRule) UnmarshalText(text []byte) error {
	rule, err := ParseRoundingRule(string(text))
	if err != nil {
		return err
	}
	*r = rule
	return nil
}

// Apply rounds a price with the rule. Every rule is idempotent.
func (r RoundingRule) Apply(price decimal.Decimal) (decimal.Decimal, error) {
	switch r {
	case TwoDecimalNoRounding:
		return price.Round(2), nil
	case CeilDollar:
		return price.Ceil(), nil
	case RoundHalfDollarUp:
		return price.Mul(two).Ceil().Div(two), nil
	case RoundNearestHalfDollar:
		return price.Mul(two).Round(0).Div(two), nil
	case RoundNearestDollar:
		return price.Round(0), nil
	default:
		return decimal.Zero, apperr.Configf("unknown rounding rule %d", int(r))
	}
}
