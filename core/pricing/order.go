package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	apperr "apparel-pricing/internal/errors"
)

// PriceOrder prices every line item of an order.
//
// The tier is resolved once from the combined quantity of all lines. Each
// size with a positive quantity is priced with PriceUnit using its line's
// decorations, or the order-level decorations when the line has none.
// Additional decorations are billed as their own lines, digitizing is charged
// once per distinct decoration, screen setup is charged per color of each
// distinct decoration, and the LTM fee is added to the grand total
// once. Any pricing failure fails the whole order; there are no partial results.
// An order with zero units resolves the lowest tier and prices to zero.
func (e *Engine) PriceOrder(req OrderRequest) (*PricingResult, error) {
	if len(req.Items) == 0 {
		return nil, apperr.Input("order has no line items")
	}

	total := 0
	for i, item := range req.Items {
		for size, qty := range item.Sizes {
			if qty < 0 {
				return nil, apperr.Inputf("line %d size %s: quantity must not be negative, got %d", i+1, size, qty)
			}
			total += qty
		}
	}

	tier, err := ResolveTier(total, e.line.Tiers)
	if err != nil {
		return nil, err
	}

	result := &PricingResult{
		ProductLine:               e.line.Name,
		TierLabel:                 tier.Label,
		TotalQuantity:             total,
		AdditionalDecorationTotal: decimal.Zero,
		LTMFeeTotal:               decimal.Zero,
		LTMFeePerUnit:             decimal.Zero,
		SetupFeesTotal:            decimal.Zero,
		Subtotal:                  decimal.Zero,
	}

	charges := make(map[string]*DecorationCharge)
	var chargeOrder []string
	digitized := make(map[string]bool)
	screens := make(map[string]int)

	for i, item := range req.Items {
		decorations, shared := item.Decorations, false
		if len(decorations) == 0 {
			decorations, shared = req.Decorations, true
		}
		additionalKeys := make([]string, 0, len(decorations))
		for j, d := range decorations {
			if !d.IsPrimary {
				additionalKeys = append(additionalKeys, decorationKey(d, i, j, shared))
			}
		}

		line := LinePricing{
			StyleNumber:      item.StyleNumber,
			Color:            item.Color,
			Quantity:         item.Sizes.Total(),
			PerSizeUnitPrice: make(map[string]decimal.Decimal),
			Subtotal:         decimal.Zero,
			AdditionalTotal:  decimal.Zero,
		}

		sizes := make([]string, 0, len(item.Sizes))
		for size := range item.Sizes {
			sizes = append(sizes, size)
		}
		SortSizes(sizes)

		for _, size := range sizes {
			qty := item.Sizes[size]
			if qty == 0 {
				continue
			}
			group, err := e.line.GroupFor(size)
			if err != nil {
				return nil, apperr.Wrapf(apperr.TypeOf(err), err, "line %d (%s %s)", i+1, item.StyleNumber, item.Color)
			}

			unit, err := e.PriceUnit(item.BaseUnitCost, tier, decorations, group)
			if err != nil {
				return nil, apperr.Wrapf(apperr.TypeOf(err), err, "line %d (%s %s) size %s", i+1, item.StyleNumber, item.Color, size)
			}

			quantity := decimal.NewFromInt(int64(qty))
			sizeTotal := unit.Price.Mul(quantity)
			line.Sizes = append(line.Sizes, SizeLine{
				Size:      size,
				SizeGroup: group,
				Quantity:  qty,
				UnitPrice: unit.Price,
				Total:     sizeTotal,
			})
			line.PerSizeUnitPrice[size] = unit.Price
			line.Subtotal = line.Subtotal.Add(sizeTotal)

			for k, a := range unit.Additional {
				key := additionalKeys[k]
				amount := a.UnitPrice.Mul(quantity)
				line.AdditionalTotal = line.AdditionalTotal.Add(amount)

				charge, ok := charges[key]
				if !ok {
					charge = &DecorationCharge{
						DecorationID: a.DecorationID,
						Location:     a.Location,
						UnitPrice:    a.UnitPrice,
						Total:        decimal.Zero,
					}
					charges[key] = charge
					chargeOrder = append(chargeOrder, key)
				}
				charge.Quantity += qty
				charge.Total = charge.Total.Add(amount)
			}
		}

		if line.Quantity > 0 {
			for j, d := range decorations {
				key := decorationKey(d, i, j, shared)
				if d.NeedsDigitizing {
					digitized[key] = true
				}
				if d.ColorCount > screens[key] {
					screens[key] = d.ColorCount
				}
			}
		}

		result.Subtotal = result.Subtotal.Add(line.Subtotal)
		result.AdditionalDecorationTotal = result.AdditionalDecorationTotal.Add(line.AdditionalTotal)
		result.Lines = append(result.Lines, line)
	}

	for _, key := range chargeOrder {
		result.AdditionalDecorations = append(result.AdditionalDecorations, *charges[key])
	}

	result.DigitizingCount = len(digitized)
	result.SetupFeesTotal = e.line.DigitizingFee.Mul(decimal.NewFromInt(int64(len(digitized))))
	if e.line.SetupPerColor.IsPositive() {
		for _, colors := range screens {
			result.ScreenCount += colors
		}
		result.SetupFeesTotal = result.SetupFeesTotal.Add(e.line.SetupPerColor.Mul(decimal.NewFromInt(int64(result.ScreenCount))))
	}

	if total > 0 && e.line.LTM.Enabled() {
		ltm, err := ComputeLTM(total, e.line.LTM.Threshold, e.line.LTM.Fee)
		if err != nil {
			return nil, err
		}
		result.LTMFeeTotal = ltm.Total
		result.LTMFeePerUnit = ltm.PerUnit
	}

	result.GrandTotal = result.Subtotal.
		Add(result.AdditionalDecorationTotal).
		Add(result.SetupFeesTotal).
		Add(result.LTMFeeTotal)

	return result, nil
}

// decorationKey identifies a decoration for once-only charges. Explicit IDs win;
// otherwise order-level decorations are keyed by position in the order list and
// line decorations by line and position.
func decorationKey(d DecorationSpec, line, index int, shared bool) string {
	switch {
	case d.ID != "":
		return "id:" + d.ID
	case shared:
		return fmt.Sprintf("order:%d", index)
	default:
		return fmt.Sprintf("line:%d:%d", line, index)
	}
}
