package pricing

import (
	"github.com/shopspring/decimal"

	apperr "apparel-pricing/internal/errors"
)

// ComputeLTM returns the less-than-minimum fee for an order quantity.
// At or above threshold the fee is zero. Below it the whole flat fee is
// charged; PerUnit is informational, rounded to the cent. The caller adds
// Total to an order exactly once.
func ComputeLTM(totalQuantity, threshold int, flatFee decimal.Decimal) (LTMFee, error) {
	if totalQuantity < 0 {
		return LTMFee{}, apperr.Inputf("quantity must not be negative, got %d", totalQuantity)
	}
	if totalQuantity == 0 {
		return LTMFee{}, apperr.Input("cannot compute an LTM fee for zero items")
	}
	if flatFee.IsNegative() {
		return LTMFee{}, apperr.Configf("LTM fee must not be negative, got %s", flatFee)
	}

	if totalQuantity >= threshold {
		return LTMFee{Total: decimal.Zero, PerUnit: decimal.Zero}, nil
	}

	return LTMFee{
		Total:   flatFee,
		PerUnit: flatFee.DivRound(decimal.NewFromInt(int64(totalQuantity)), 2),
	}, nil
}
