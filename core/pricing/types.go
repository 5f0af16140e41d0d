// Package pricing is the decorated-unit-price engine.
// Every function here is a pure computation over its inputs: no I/O, no logging,
// no cached state. Callers fetch tier tables and profiles first, then price.
package pricing

import (
	"github.com/shopspring/decimal"
)

// Method identifies a decoration method / product line family
type Method string

const (
	MethodEmbroidery    Method = "embroidery"
	MethodCapEmbroidery Method = "cap_embroidery"
	MethodScreenPrint   Method = "screen_print"
	MethodDTG           Method = "dtg"
	MethodLaser         Method = "laser"
)

// Location is where a decoration is applied
type Location string

const (
	LocationLeftChest   Location = "left_chest"
	LocationRightChest  Location = "right_chest"
	LocationFullFront   Location = "full_front"
	LocationFullBack    Location = "full_back"
	LocationLeftSleeve  Location = "left_sleeve"
	LocationRightSleeve Location = "right_sleeve"
	LocationCapFront    Location = "cap_front"
	LocationCapBack     Location = "cap_back"
	LocationCapSide     Location = "cap_side"
	LocationSecondSide  Location = "second_side"
)

// CountBasis says which count on a DecorationSpec drives surcharges
type CountBasis string

const (
	BasisStitches CountBasis = "stitches"
	BasisColors   CountBasis = "colors"
	BasisFlat     CountBasis = "flat"
)

// Tier is a quantity range mapped to a discounted unit price
type Tier struct {
	Label  string `json:"label"`
	MinQty int    `json:"min_qty"`
	// MaxQty is the inclusive upper bound; 0 means unbounded
	MaxQty int `json:"max_qty,omitempty"`
}

// Unbounded reports whether the tier has no upper limit
func (t Tier) Unbounded() bool {
	return t.MaxQty == 0
}

// Contains reports whether quantity falls inside the tier
func (t Tier) Contains(quantity int) bool {
	if quantity < t.MinQty {
		return false
	}
	return t.Unbounded() || quantity <= t.MaxQty
}

// TierTable is the ordered set of tiers for a product line
type TierTable []Tier

// PriceProfile maps size group -> tier label -> unit price
type PriceProfile map[string]map[string]decimal.Decimal

// Set stores a price cell
func (p PriceProfile) Set(sizeGroup, tierLabel string, price decimal.Decimal) {
	row, ok := p[sizeGroup]
	if !ok {
		row = make(map[string]decimal.Decimal)
		p[sizeGroup] = row
	}
	row[tierLabel] = price
}

// DecorationSpec is one logo/print configuration
type DecorationSpec struct {
	// ID identifies the decoration across line items; digitizing is charged once per ID.
	ID              string   `json:"id,omitempty"`
	Location        Location `json:"location"`
	StitchCount     int      `json:"stitch_count,omitempty"`
	ColorCount      int      `json:"color_count,omitempty"`
	IsPrimary       bool     `json:"is_primary"`
	NeedsDigitizing bool     `json:"needs_digitizing,omitempty"`
}

// SizeBreakdown maps a size label to its requested quantity
type SizeBreakdown map[string]int

// Total sums the breakdown
func (s SizeBreakdown) Total() int {
	total := 0
	for _, qty := range s {
		total += qty
	}
	return total
}

// QuoteLineItem is one style/color line of an order. The engine never mutates it.
type QuoteLineItem struct {
	StyleNumber  string           `json:"style_number"`
	Color        string           `json:"color"`
	Sizes        SizeBreakdown    `json:"sizes"`
	Decorations  []DecorationSpec `json:"decorations,omitempty"`
	BaseUnitCost decimal.Decimal  `json:"base_unit_cost"`
}

// DecorationRates configures the count-based adjustment of a decoration
type DecorationRates struct {
	Basis CountBasis `json:"basis"`
	// Baseline is the stitch count (or number of colors) included in the price
	Baseline int `json:"baseline"`
	// Increment is the stitch block a rate applies to, e.g. 1000
	Increment int `json:"increment,omitempty"`
	// Rate is charged per increment (stitches) or per extra color (colors)
	Rate decimal.Decimal `json:"rate"`
	// AllowCredit lowers the price for counts under the baseline
	AllowCredit bool `json:"allow_credit,omitempty"`
}

// AdditionalRates prices non-primary decorations
type AdditionalRates struct {
	DecorationRates
	// TierPrices is the per-tier logo base price; takes precedence over FlatPrice
	TierPrices map[string]decimal.Decimal `json:"tier_prices,omitempty"`
	// FlatPrice applies at every tier when TierPrices is empty
	FlatPrice decimal.Decimal `json:"flat_price"`
}

// LTMConfig configures the less-than-minimum fee
type LTMConfig struct {
	Threshold int             `json:"threshold"`
	Fee       decimal.Decimal `json:"fee"`
}

// Enabled reports whether an LTM fee can ever apply
func (c LTMConfig) Enabled() bool {
	return c.Threshold > 0 && c.Fee.IsPositive()
}

// ProductLine bundles everything product-specific the engine needs
type ProductLine struct {
	Name   string `json:"name"`
	Method Method `json:"method"`
	// QuotePrefix is prepended to saved quote IDs, e.g. "EMB"
	QuotePrefix string       `json:"quote_prefix,omitempty"`
	Tiers       TierTable    `json:"tiers"`
	Profile     PriceProfile `json:"profile"`
	// SizeGroups maps a size label to its profile bucket; sizes map to themselves when empty
	SizeGroups map[string]string `json:"size_groups,omitempty"`
	// SizeUpcharges is keyed by size group
	SizeUpcharges map[string]decimal.Decimal `json:"size_upcharges,omitempty"`
	Rounding      RoundingRule               `json:"rounding"`
	Primary       DecorationRates            `json:"primary"`
	Additional    AdditionalRates            `json:"additional"`
	LTM           LTMConfig                  `json:"ltm"`
	// DigitizingFee is the one-time setup fee per decoration needing digitizing
	DigitizingFee decimal.Decimal `json:"digitizing_fee"`
	// SetupPerColor is the one-time screen fee per color of each distinct decoration
	SetupPerColor decimal.Decimal `json:"setup_per_color"`
}

// AdditionalCharge is the per-unit price of one non-primary decoration
type AdditionalCharge struct {
	DecorationID string          `json:"decoration_id"`
	Location     Location        `json:"location"`
	BasePrice    decimal.Decimal `json:"base_price"`
	Surcharge    decimal.Decimal `json:"surcharge"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
}

// UnitPrice is the priced breakdown of one decorated unit
type UnitPrice struct {
	BaseCost   decimal.Decimal `json:"base_cost"`
	TierPrice  decimal.Decimal `json:"tier_price"`
	Adjustment decimal.Decimal `json:"adjustment"`
	Upcharge   decimal.Decimal `json:"upcharge"`
	// Price is the final rounded unit price of the garment with its primary decoration
	Price decimal.Decimal `json:"price"`
	// Additional lists non-primary decorations; they are never folded into Price
	Additional []AdditionalCharge `json:"additional,omitempty"`
}

// AdditionalPerUnit sums the per-unit price of all additional decorations
func (u UnitPrice) AdditionalPerUnit() decimal.Decimal {
	total := decimal.Zero
	for _, a := range u.Additional {
		total = total.Add(a.UnitPrice)
	}
	return total
}

// LTMFee is the less-than-minimum charge for an order
type LTMFee struct {
	Total   decimal.Decimal `json:"total"`
	PerUnit decimal.Decimal `json:"per_unit"`
}

// OrderRequest is the input to PriceOrder
type OrderRequest struct {
	Items []QuoteLineItem `json:"items"`
	// Decorations apply to every line item that carries none of its own
	Decorations []DecorationSpec `json:"decorations,omitempty"`
}

// SizeLine is one priced size of a line item
type SizeLine struct {
	Size      string          `json:"size"`
	SizeGroup string          `json:"size_group"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}

// LinePricing is the priced form of one QuoteLineItem
type LinePricing struct {
	StyleNumber      string                     `json:"style_number"`
	Color            string                     `json:"color"`
	Quantity         int                        `json:"quantity"`
	Sizes            []SizeLine                 `json:"sizes"`
	PerSizeUnitPrice map[string]decimal.Decimal `json:"per_size_unit_price"`
	Subtotal         decimal.Decimal            `json:"subtotal"`
	AdditionalTotal  decimal.Decimal            `json:"additional_total"`
}

// DecorationCharge is an order-level line for one additional decoration
type DecorationCharge struct {
	DecorationID string          `json:"decoration_id"`
	Location     Location        `json:"location"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"quantity"`
	Total        decimal.Decimal `json:"total"`
}

// PricingResult is the derived, immutable output of PriceOrder
type PricingResult struct {
	ProductLine               string             `json:"product_line"`
	TierLabel                 string             `json:"tier_label"`
	TotalQuantity             int                `json:"total_quantity"`
	Lines                     []LinePricing      `json:"lines"`
	AdditionalDecorations     []DecorationCharge `json:"additional_decorations,omitempty"`
	AdditionalDecorationTotal decimal.Decimal    `json:"additional_decoration_total"`
	LTMFeeTotal               decimal.Decimal    `json:"ltm_fee_total"`
	LTMFeePerUnit             decimal.Decimal    `json:"ltm_fee_per_unit"`
	DigitizingCount           int                `json:"digitizing_count"`
	ScreenCount               int                `json:"screen_count,omitempty"`
	SetupFeesTotal            decimal.Decimal    `json:"setup_fees_total"`
	Subtotal                  decimal.Decimal    `json:"subtotal"`
	GrandTotal                decimal.Decimal    `json:"grand_total"`
}
