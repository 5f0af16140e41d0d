package pricing

import (
	"github.com/shopspring/decimal"

	apperr "apparel-pricing/internal/errors"
)

// ProfileTier carries the cost inputs for one tier of a derived profile
type ProfileTier struct {
	Tier Tier
	// MarginDenominator divides the garment cost, e.g. 0.6 for a 40% margin
	MarginDenominator decimal.Decimal
	// DecorationCost is the decoration price added after the margin
	DecorationCost decimal.Decimal
}

// ProfileInput describes how to derive a price profile from garment costs
type ProfileInput struct {
	// GarmentCost is the standard garment cost, usually the S size case price
	GarmentCost decimal.Decimal
	Tiers       []ProfileTier
	// SizeGroups are the profile rows; every group gets the standard price
	// and size differences are carried as upcharges on the product line
	SizeGroups []string
}

// BuildProfile derives the price profile as
// garmentCost / marginDenominator + decorationCost, to the cent.
// A tier with a zero margin denominator cannot be priced and fails the
// whole profile instead of leaving empty cells.
func BuildProfile(in ProfileInput) (PriceProfile, TierTable, error) {
	if in.GarmentCost.IsNegative() {
		return nil, nil, apperr.Configf("garment cost must not be negative, got %s", in.GarmentCost)
	}
	if len(in.Tiers) == 0 {
		return nil, nil, apperr.Config("profile has no tiers")
	}
	if len(in.SizeGroups) == 0 {
		return nil, nil, apperr.Config("profile has no size groups")
	}

	table := make(TierTable, 0, len(in.Tiers))
	profile := make(PriceProfile, len(in.SizeGroups))

	for _, pt := range in.Tiers {
		if !pt.MarginDenominator.IsPositive() {
			return nil, nil, apperr.Configf("tier %q has no usable margin denominator (%s)", pt.Tier.Label, pt.MarginDenominator).
				WithContext("tier", pt.Tier.Label)
		}
		if pt.DecorationCost.IsNegative() {
			return nil, nil, apperr.Configf("tier %q has a negative decoration cost", pt.Tier.Label)
		}

		price := in.GarmentCost.Div(pt.MarginDenominator).Add(pt.DecorationCost).Round(2)
		for _, group := range in.SizeGroups {
			profile.Set(group, pt.Tier.Label, price)
		}
		table = append(table, pt.Tier)
	}

	if err := table.Validate(); err != nil {
		return nil, nil, err
	}

	return profile, table, nil
}

// RelativeUpcharges rebases absolute size add-ons on a base size so the base
// size carries no upcharge. Zero results are dropped.
func RelativeUpcharges(addOns map[string]decimal.Decimal, baseSize string) map[string]decimal.Decimal {
	base := addOns[baseSize]
	out := make(map[string]decimal.Decimal)
	for size, amount := range addOns {
		rel := amount.Sub(base)
		if rel.IsZero() {
			continue
		}
		out[NormalizeSize(size)] = rel
	}
	return out
}
