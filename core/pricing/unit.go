package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	apperr "apparel-pricing/internal/errors"
)

// Engine prices orders for one product line. It holds only immutable
// configuration; every call recomputes from its inputs.
type Engine struct {
	line ProductLine
}

// NewEngine creates an engine for a product line after validating its configuration
func NewEngine(line ProductLine) (*Engine, error) {
	if err := line.Validate(); err != nil {
		return nil, err
	}
	return &Engine{line: line}, nil
}

// Line returns the product line configuration
func (e *Engine) Line() ProductLine {
	return e.line
}

// Validate checks the static parts of a product line
func (l ProductLine) Validate() error {
	if l.Name == "" {
		return apperr.Config("product line has no name")
	}
	if err := l.Tiers.Validate(); err != nil {
		return apperr.Wrapf(apperr.TypeConfig, err, "product line %q", l.Name)
	}
	if len(l.Profile) == 0 {
		return apperr.Configf("product line %q has an empty price profile", l.Name)
	}
	if _, err := l.Rounding.Apply(decimal.Zero); err != nil {
		return err
	}
	if err := l.Primary.validate("primary"); err != nil {
		return apperr.Wrapf(apperr.TypeConfig, err, "product line %q", l.Name)
	}
	if err := l.Additional.validate("additional"); err != nil {
		return apperr.Wrapf(apperr.TypeConfig, err, "product line %q", l.Name)
	}
	if l.LTM.Threshold < 0 || l.LTM.Fee.IsNegative() {
		return apperr.Configf("product line %q has a negative LTM setting", l.Name)
	}
	if l.DigitizingFee.IsNegative() {
		return apperr.Configf("product line %q has a negative digitizing fee", l.Name)
	}
	if l.SetupPerColor.IsNegative() {
		return apperr.Configf("product line %q has a negative setup fee per color", l.Name)
	}
	return nil
}

func (r DecorationRates) validate(role string) error {
	switch r.Basis {
	case BasisFlat, "":
		return nil
	case BasisStitches:
		if r.Increment <= 0 {
			return apperr.Configf("%s stitch rates need a positive increment", role)
		}
	case BasisColors:
	default:
		return apperr.Configf("%s decoration has unknown count basis %q", role, r.Basis)
	}
	if r.Baseline < 0 || r.Rate.IsNegative() {
		return apperr.Configf("%s decoration rates must not be negative", role)
	}
	return nil
}

// GroupFor maps a size label to its profile size group. Sizes are normalised
// first (XXL -> 2XL). Unknown sizes are input errors when a mapping exists.
func (l ProductLine) GroupFor(size string) (string, error) {
	normalized := NormalizeSize(size)
	if normalized == "" {
		return "", apperr.Input("empty size label")
	}
	if len(l.SizeGroups) == 0 {
		if _, ok := l.Profile[normalized]; ok {
			return normalized, nil
		}
		return "", apperr.Inputf("unknown size %q", size)
	}
	if group, ok := l.SizeGroups[normalized]; ok {
		return group, nil
	}
	return "", apperr.Inputf("unknown size %q", size)
}

// Lookup returns the profile price for a cell, failing rather than defaulting to zero
func (p PriceProfile) Lookup(sizeGroup, tierLabel string) (decimal.Decimal, error) {
	row, ok := p[sizeGroup]
	if !ok {
		return decimal.Zero, apperr.PriceNotFound(sizeGroup, tierLabel)
	}
	price, ok := row[tierLabel]
	if !ok {
		return decimal.Zero, apperr.PriceNotFound(sizeGroup, tierLabel)
	}
	return price, nil
}

// CountAdjustment is the price change for a decoration's stitch or color
// count relative to the rates' baseline. Stitches charge per started
// increment; colors charge per extra color. Below-baseline counts only earn a
// credit (whole increments) when AllowCredit is set.
func CountAdjustment(rates DecorationRates, d DecorationSpec) (decimal.Decimal, error) {
	switch rates.Basis {
	case BasisFlat, "":
		return decimal.Zero, nil
	case BasisStitches:
		if d.StitchCount < 0 {
			return decimal.Zero, apperr.Inputf("stitch count must not be negative, got %d", d.StitchCount)
		}
		if rates.Increment <= 0 {
			return decimal.Zero, apperr.Config("stitch rates need a positive increment")
		}
		return stepAdjustment(d.StitchCount-rates.Baseline, rates.Increment, rates), nil
	case BasisColors:
		if d.ColorCount < 0 {
			return decimal.Zero, apperr.Inputf("color count must not be negative, got %d", d.ColorCount)
		}
		return stepAdjustment(d.ColorCount-rates.Baseline, 1, rates), nil
	default:
		return decimal.Zero, apperr.Configf("unknown count basis %q", rates.Basis)
	}
}

func stepAdjustment(delta, increment int, rates DecorationRates) decimal.Decimal {
	switch {
	case delta > 0:
		steps := (delta + increment - 1) / increment
		return rates.Rate.Mul(decimal.NewFromInt(int64(steps)))
	case delta < 0 && rates.AllowCredit:
		steps := -delta / increment
		return rates.Rate.Mul(decimal.NewFromInt(int64(steps))).Neg()
	default:
		return decimal.Zero
	}
}

// AdditionalPrice prices one non-primary decoration per unit: the logo base
// price for the tier plus its count surcharge. No rounding is applied.
func (e *Engine) AdditionalPrice(tier Tier, d DecorationSpec) (AdditionalCharge, error) {
	rates := e.line.Additional

	base := rates.FlatPrice
	if len(rates.TierPrices) > 0 {
		price, ok := rates.TierPrices[tier.Label]
		if !ok {
			return AdditionalCharge{}, apperr.PriceNotFound("additional:"+string(d.Location), tier.Label)
		}
		base = price
	}

	surcharge, err := CountAdjustment(rates.DecorationRates, d)
	if err != nil {
		return AdditionalCharge{}, err
	}

	unit := base.Add(surcharge)
	if unit.IsNegative() {
		unit = decimal.Zero
	}

	return AdditionalCharge{
		DecorationID: d.ID,
		Location:     d.Location,
		BasePrice:    base,
		Surcharge:    surcharge,
		UnitPrice:    unit,
	}, nil
}

// PriceUnit computes the decorated unit price for one size group at a tier.
//
// The tier price comes from the profile and is never replaced by zero or the
// base cost. The primary decoration's count adjustment is added, the sum is
// rounded with the product line's rule, and a size upcharge, if any, is added
// and the result rounded again. Additional decorations are priced separately.
func (e *Engine) PriceUnit(baseCost decimal.Decimal, tier Tier, decorations []DecorationSpec, sizeGroup string) (UnitPrice, error) {
	if baseCost.IsNegative() {
		return UnitPrice{}, apperr.Inputf("base cost must not be negative, got %s", baseCost)
	}

	tierPrice, err := e.line.Profile.Lookup(sizeGroup, tier.Label)
	if err != nil {
		return UnitPrice{}, err
	}

	primary, additional, err := splitDecorations(decorations)
	if err != nil {
		return UnitPrice{}, err
	}

	adjustment := decimal.Zero
	if primary != nil {
		adjustment, err = CountAdjustment(e.line.Primary, *primary)
		if err != nil {
			return UnitPrice{}, err
		}
	}

	price, err := e.line.Rounding.Apply(tierPrice.Add(adjustment))
	if err != nil {
		return UnitPrice{}, err
	}

	upcharge := e.line.SizeUpcharges[sizeGroup]
	if !upcharge.IsZero() {
		price, err = e.line.Rounding.Apply(price.Add(upcharge))
		if err != nil {
			return UnitPrice{}, err
		}
	}

	if price.IsNegative() {
		return UnitPrice{}, apperr.Configf("unit price for %s at tier %s is negative", sizeGroup, tier.Label)
	}

	result := UnitPrice{
		BaseCost:   baseCost,
		TierPrice:  tierPrice,
		Adjustment: adjustment,
		Upcharge:   upcharge,
		Price:      price,
	}

	for _, d := range additional {
		charge, err := e.AdditionalPrice(tier, d)
		if err != nil {
			return UnitPrice{}, err
		}
		result.Additional = append(result.Additional, charge)
	}

	return result, nil
}

// splitDecorations separates the primary decoration from the rest. At most one
// decoration may be primary; a list without one has no primary adjustment.
func splitDecorations(decorations []DecorationSpec) (*DecorationSpec, []DecorationSpec, error) {
	var (
		primary    *DecorationSpec
		additional []DecorationSpec
	)
	for i := range decorations {
		d := decorations[i]
		if d.IsPrimary {
			if primary != nil {
				return nil, nil, apperr.Inputf("more than one primary decoration (%s, %s)", describe(*primary), describe(d))
			}
			primary = &d
			continue
		}
		additional = append(additional, d)
	}
	return primary, additional, nil
}

func describe(d DecorationSpec) string {
	if d.ID != "" {
		return d.ID
	}
	return fmt.Sprintf("location %s", d.Location)
}
