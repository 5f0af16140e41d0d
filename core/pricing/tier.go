package pricing

import (
	"sort"

	apperr "apparel-pricing/internal/errors"
)

// Validate checks that the table partitions the quantities from its lowest
// tier upward: non-empty, starting at 0 or 1, no overlaps, no gaps, and only
// the last tier unbounded.
func (t TierTable) Validate() error {
	if len(t) == 0 {
		return apperr.Config("tier table is empty")
	}

	sorted := t.sorted()
	seen := make(map[string]bool, len(sorted))

	if first := sorted[0].MinQty; first != 0 && first != 1 {
		return apperr.Configf("tier %q starts at %d; tiers must start at 0 or 1", sorted[0].Label, first)
	}

	for i, tier := range sorted {
		if tier.Label == "" {
			return apperr.Configf("tier starting at %d has no label", tier.MinQty)
		}
		if seen[tier.Label] {
			return apperr.Configf("duplicate tier label %q", tier.Label)
		}
		seen[tier.Label] = true

		if tier.MinQty < 0 {
			return apperr.Configf("tier %q has negative minimum %d", tier.Label, tier.MinQty)
		}
		if !tier.Unbounded() && tier.MaxQty < tier.MinQty {
			return apperr.Configf("tier %q has maximum %d below minimum %d", tier.Label, tier.MaxQty, tier.MinQty)
		}

		if i == len(sorted)-1 {
			break
		}
		next := sorted[i+1]
		if tier.Unbounded() {
			return apperr.Configf("tier %q is unbounded but is followed by tier %q", tier.Label, next.Label)
		}
		switch {
		case next.MinQty <= tier.MaxQty:
			return apperr.Configf("tiers %q and %q overlap at quantity %d", tier.Label, next.Label, next.MinQty).
				WithContext("quantity", next.MinQty)
		case next.MinQty > tier.MaxQty+1:
			return apperr.Configf("no tier covers quantities %d-%d", tier.MaxQty+1, next.MinQty-1)
		}
	}

	return nil
}

// Lowest returns the tier with the smallest minimum quantity
func (t TierTable) Lowest() (Tier, error) {
	if len(t) == 0 {
		return Tier{}, apperr.Config("tier table is empty")
	}
	return t.sorted()[0], nil
}

// Find returns the tier with the given label
func (t TierTable) Find(label string) (Tier, bool) {
	for _, tier := range t {
		if tier.Label == label {
			return tier, true
		}
	}
	return Tier{}, false
}

func (t TierTable) sorted() TierTable {
	sorted := make(TierTable, len(t))
	copy(sorted, t)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinQty < sorted[j].MinQty
	})
	return sorted
}

// ResolveTier picks the single tier whose range contains quantity.
// Quantity 0 resolves to the lowest tier for preview display; it is not billable.
// A malformed table (empty, overlapping, gapped) is a configuration error.
func ResolveTier(quantity int, table TierTable) (Tier, error) {
	if quantity < 0 {
		return Tier{}, apperr.Inputf("quantity must not be negative, got %d", quantity)
	}
	if err := table.Validate(); err != nil {
		return Tier{}, err
	}

	if quantity == 0 {
		return table.Lowest()
	}

	var (
		match Tier
		found int
	)
	for _, tier := range table {
		if tier.Contains(quantity) {
			match = tier
			found++
		}
	}

	switch found {
	case 1:
		return match, nil
	case 0:
		return Tier{}, apperr.Configf("no tier covers quantity %d", quantity)
	default:
		return Tier{}, apperr.Configf("%d tiers claim quantity %d", found, quantity)
	}
}
