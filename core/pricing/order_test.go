package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "apparel-pricing/internal/errors"
)

func TestPriceOrderSmallEmbroideryOrderAddsLTMOnce(t *testing.T) {
	engine := newEngine(t, embroideryLine())

	result, err := engine.PriceOrder(OrderRequest{
		Items: []QuoteLineItem{{
			StyleNumber:  "PC54",
			Color:        "Navy",
			Sizes:        SizeBreakdown{"S": 5, "M": 5, "L": 5, "XL": 5},
			Decorations:  []DecorationSpec{frontLogo(8000)},
			BaseUnitCost: dec("4.00"),
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "1-23", result.TierLabel)
	assert.Equal(t, 20, result.TotalQuantity)
	assertMoney(t, "240.00", result.Subtotal)
	assertMoney(t, "50.00", result.LTMFeeTotal)
	assertMoney(t, "2.50", result.LTMFeePerUnit)
	assertMoney(t, "0", result.AdditionalDecorationTotal)
	assertMoney(t, "290.00", result.GrandTotal)

	require.Len(t, result.Lines, 1)
	line := result.Lines[0]
	assert.Equal(t, 20, line.Quantity)
	for _, size := range []string{"S", "M", "L", "XL"} {
		assertMoney(t, "12.00", line.PerSizeUnitPrice[size], size)
	}
	assert.Equal(t, []string{"S", "M", "L", "XL"}, []string{
		line.Sizes[0].Size, line.Sizes[1].Size, line.Sizes[2].Size, line.Sizes[3].Size,
	})
}

func TestPriceOrderLaserTumblers(t *testing.T) {
	engine := newEngine(t, laserLine())

	result, err := engine.PriceOrder(OrderRequest{
		Items: []QuoteLineItem{{
			StyleNumber: "16OZ-TUMBLER",
			Color:       "Black",
			Sizes:       SizeBreakdown{"OSFA": 100},
			Decorations: []DecorationSpec{
				{ID: "front", Location: LocationFullFront, IsPrimary: true, NeedsDigitizing: true},
				{ID: "back", Location: LocationSecondSide},
			},
			BaseUnitCost: dec("6.10"),
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "100-199", result.TierLabel)
	assertMoney(t, "1553.00", result.Subtotal)
	assertMoney(t, "316.00", result.AdditionalDecorationTotal)
	assertMoney(t, "75.00", result.SetupFeesTotal)
	assert.Equal(t, 1, result.DigitizingCount)
	assertMoney(t, "0", result.LTMFeeTotal)
	assertMoney(t, "1944.00", result.GrandTotal)

	require.Len(t, result.AdditionalDecorations, 1)
	charge := result.AdditionalDecorations[0]
	assert.Equal(t, "back", charge.DecorationID)
	assert.Equal(t, 100, charge.Quantity)
	assertMoney(t, "3.16", charge.UnitPrice)
	assertMoney(t, "316.00", charge.Total)
}

func TestPriceOrderAdditionalLogosAreNotDoubleCounted(t *testing.T) {
	engine := newEngine(t, embroideryLine())
	tier, _ := engine.Line().Tiers.Find("48-71")

	leftSleeve := DecorationSpec{ID: "ls", Location: LocationLeftSleeve, StitchCount: 8000}
	rightSleeve := DecorationSpec{ID: "rs", Location: LocationRightSleeve, StitchCount: 10000}

	order := func(decorations ...DecorationSpec) *PricingResult {
		result, err := engine.PriceOrder(OrderRequest{
			Items: []QuoteLineItem{{
				StyleNumber:  "PC54",
				Color:        "Red",
				Sizes:        SizeBreakdown{"M": 30, "2XL": 18},
				Decorations:  append([]DecorationSpec{frontLogo(8000)}, decorations...),
				BaseUnitCost: dec("4.00"),
			}},
		})
		require.NoError(t, err)
		return result
	}

	both := order(leftSleeve, rightSleeve)
	onlyLeft := order(leftSleeve)

	left, err := engine.AdditionalPrice(tier, leftSleeve)
	require.NoError(t, err)
	right, err := engine.AdditionalPrice(tier, rightSleeve)
	require.NoError(t, err)

	// 48 units * (5.00 + 7.50)
	assertMoney(t, "600.00", both.AdditionalDecorationTotal)
	assertMoney(t, left.UnitPrice.Add(right.UnitPrice).Mul(dec("48")).String(), both.AdditionalDecorationTotal)

	diff := both.AdditionalDecorationTotal.Sub(onlyLeft.AdditionalDecorationTotal)
	assertMoney(t, right.UnitPrice.Mul(dec("48")).String(), diff)
	assert.True(t, both.Subtotal.Equal(onlyLeft.Subtotal))
	assert.True(t, both.GrandTotal.Sub(onlyLeft.GrandTotal).Equal(diff))

	// primary price ignores the sleeves: 10.00 for M, 10.00 + 2.00 for 2XL
	assertMoney(t, "10.00", both.Lines[0].PerSizeUnitPrice["M"])
	assertMoney(t, "12.00", both.Lines[0].PerSizeUnitPrice["2XL"])
	assertMoney(t, "516.00", both.Subtotal)
}

func TestPriceOrderMissingCellFailsWholeOrder(t *testing.T) {
	line := embroideryLine()
	delete(line.Profile["3XL"], "1-23")
	engine := newEngine(t, line)

	result, err := engine.PriceOrder(OrderRequest{
		Items: []QuoteLineItem{{
			StyleNumber:  "PC54",
			Color:        "Navy",
			Sizes:        SizeBreakdown{"M": 10, "3XL": 2},
			Decorations:  []DecorationSpec{frontLogo(8000)},
			BaseUnitCost: dec("4.00"),
		}},
	})
	requireErrorType(t, err, apperr.TypePriceNotFound)
	assert.Nil(t, result)
}

func TestPriceOrderCombinedQuantityPicksTier(t *testing.T) {
	engine := newEngine(t, embroideryLine())

	result, err := engine.PriceOrder(OrderRequest{
		Items: []QuoteLineItem{
			{StyleNumber: "PC54", Color: "Navy", Sizes: SizeBreakdown{"M": 15}, BaseUnitCost: dec("4.00")},
			{StyleNumber: "PC61", Color: "White", Sizes: SizeBreakdown{"L": 15}, BaseUnitCost: dec("5.00")},
		},
		Decorations: []DecorationSpec{{ID: "logo", Location: LocationLeftChest, StitchCount: 8000, IsPrimary: true, NeedsDigitizing: true}},
	})
	require.NoError(t, err)

	assert.Equal(t, "24-47", result.TierLabel)
	assert.Equal(t, 30, result.TotalQuantity)
	assertMoney(t, "330.00", result.Subtotal)
	assertMoney(t, "0", result.LTMFeeTotal)
	assert.Equal(t, 1, result.DigitizingCount)
	assertMoney(t, "100.00", result.SetupFeesTotal)
	assertMoney(t, "430.00", result.GrandTotal)
	require.Len(t, result.Lines, 2)
	assertMoney(t, "165.00", result.Lines[1].Subtotal)
}

func TestPriceOrderDigitizingPerDistinctDecoration(t *testing.T) {
	engine := newEngine(t, embroideryLine())

	result, err := engine.PriceOrder(OrderRequest{
		Items: []QuoteLineItem{
			{
				StyleNumber: "PC54", Color: "Navy", Sizes: SizeBreakdown{"M": 12},
				Decorations: []DecorationSpec{
					{ID: "logo", Location: LocationLeftChest, StitchCount: 8000, IsPrimary: true, NeedsDigitizing: true},
					{Location: LocationFullBack, StitchCount: 8000, NeedsDigitizing: true},
				},
			},
			{
				StyleNumber: "C112", Color: "Black", Sizes: SizeBreakdown{"OSFA": 0, "M": 12},
				Decorations: []DecorationSpec{
					{ID: "logo", Location: LocationLeftChest, StitchCount: 8000, IsPrimary: true, NeedsDigitizing: true},
				},
			},
		},
	})
	require.Error(t, err, "OSFA is not a shirt size")
	requireErrorType(t, err, apperr.TypeInput)

	result, err = engine.PriceOrder(OrderRequest{
		Items: []QuoteLineItem{
			{
				StyleNumber: "PC54", Color: "Navy", Sizes: SizeBreakdown{"M": 12},
				Decorations: []DecorationSpec{
					{ID: "logo", Location: LocationLeftChest, StitchCount: 8000, IsPrimary: true, NeedsDigitizing: true},
					{Location: LocationFullBack, StitchCount: 8000, NeedsDigitizing: true},
				},
			},
			{
				StyleNumber: "PC61", Color: "Black", Sizes: SizeBreakdown{"M": 12},
				Decorations: []DecorationSpec{
					{ID: "logo", Location: LocationLeftChest, StitchCount: 8000, IsPrimary: true, NeedsDigitizing: true},
				},
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.DigitizingCount)
	assertMoney(t, "200.00", result.SetupFeesTotal)
}

func TestPriceOrderZeroQuantityPreview(t *testing.T) {
	engine := newEngine(t, embroideryLine())

	result, err := engine.PriceOrder(OrderRequest{
		Items: []QuoteLineItem{{StyleNumber: "PC54", Color: "Navy", Sizes: SizeBreakdown{"M": 0}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "1-23", result.TierLabel)
	assert.Equal(t, 0, result.TotalQuantity)
	assertMoney(t, "0", result.LTMFeeTotal)
	assertMoney(t, "0", result.GrandTotal)
	assert.Empty(t, result.Lines[0].Sizes)
}

func TestPriceOrderRejectsBadInput(t *testing.T) {
	engine := newEngine(t, embroideryLine())

	_, err := engine.PriceOrder(OrderRequest{})
	requireErrorType(t, err, apperr.TypeInput)

	_, err = engine.PriceOrder(OrderRequest{
		Items: []QuoteLineItem{{StyleNumber: "PC54", Sizes: SizeBreakdown{"M": 10, "L": -2}}},
	})
	requireErrorType(t, err, apperr.TypeInput)

	_, err = engine.PriceOrder(OrderRequest{
		Items: []QuoteLineItem{{StyleNumber: "PC54", Sizes: SizeBreakdown{"XXS": 10}}},
	})
	requireErrorType(t, err, apperr.TypeInput)
}

func TestPriceOrderDoesNotMutateInput(t *testing.T) {
	engine := newEngine(t, embroideryLine())
	item := QuoteLineItem{
		StyleNumber:  "PC54",
		Color:        "Navy",
		Sizes:        SizeBreakdown{"XXL": 4, "M": 20},
		Decorations:  []DecorationSpec{frontLogo(9500)},
		BaseUnitCost: dec("4.00"),
	}

	first, err := engine.PriceOrder(OrderRequest{Items: []QuoteLineItem{item}})
	require.NoError(t, err)
	second, err := engine.PriceOrder(OrderRequest{Items: []QuoteLineItem{item}})
	require.NoError(t, err)

	assert.Equal(t, SizeBreakdown{"XXL": 4, "M": 20}, item.Sizes)
	assert.True(t, first.GrandTotal.Equal(second.GrandTotal))
	// 11 + 2 stitch blocks = 13.00; XXL adds 2.00
	assertMoney(t, "13.00", first.Lines[0].PerSizeUnitPrice["M"])
	assertMoney(t, "15.00", first.Lines[0].PerSizeUnitPrice["XXL"])
}

func TestPriceOrderScreenSetupPerColor(t *testing.T) {
	engine := newEngine(t, screenPrintLine())

	result, err := engine.PriceOrder(OrderRequest{
		Items: []QuoteLineItem{{
			StyleNumber: "PC61",
			Color:       "Black",
			Sizes:       SizeBreakdown{"M": 48},
			Decorations: []DecorationSpec{
				{ID: "front", Location: LocationFullFront, ColorCount: 3, IsPrimary: true},
				{ID: "back", Location: LocationFullBack, ColorCount: 2},
			},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "37-72", result.TierLabel)
	assertMoney(t, "13.00", result.Lines[0].PerSizeUnitPrice["M"])
	assertMoney(t, "624.00", result.Subtotal)
	assertMoney(t, "180.00", result.AdditionalDecorationTotal)
	assert.Equal(t, 5, result.ScreenCount)
	assert.Equal(t, 0, result.DigitizingCount)
	assertMoney(t, "150.00", result.SetupFeesTotal)
	assertMoney(t, "0", result.LTMFeeTotal)
	assertMoney(t, "954.00", result.GrandTotal)
}

func TestPriceOrderScreenSetupOncePerDecoration(t *testing.T) {
	engine := newEngine(t, screenPrintLine())
	front := DecorationSpec{ID: "front", Location: LocationFullFront, ColorCount: 3, IsPrimary: true}

	result, err := engine.PriceOrder(OrderRequest{
		Items: []QuoteLineItem{
			{StyleNumber: "PC61", Color: "Black", Sizes: SizeBreakdown{"M": 20}},
			{StyleNumber: "PC61", Color: "White", Sizes: SizeBreakdown{"L": 20}},
		},
		Decorations: []DecorationSpec{front},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.ScreenCount)
	assertMoney(t, "90.00", result.SetupFeesTotal)
}

func TestPriceOrderSkipsZeroQuantityUnknownSize(t *testing.T) {
	engine := newEngine(t, screenPrintLine())

	result, err := engine.PriceOrder(OrderRequest{
		Items: []QuoteLineItem{{
			StyleNumber: "PC61",
			Color:       "Black",
			Sizes:       SizeBreakdown{"M": 40, "YXS": 0},
			Decorations: []DecorationSpec{{ID: "front", Location: LocationFullFront, ColorCount: 1, IsPrimary: true}},
		}},
	})
	require.NoError(t, err)

	require.Len(t, result.Lines[0].Sizes, 1)
	assert.Equal(t, "M", result.Lines[0].Sizes[0].Size)

	_, err = engine.PriceOrder(OrderRequest{
		Items: []QuoteLineItem{{
			StyleNumber: "PC61",
			Sizes:       SizeBreakdown{"YXS": 2},
			Decorations: []DecorationSpec{{ID: "front", Location: LocationFullFront, ColorCount: 1, IsPrimary: true}},
		}},
	})
	assert.Equal(t, apperr.TypeInput, apperr.TypeOf(err))
}
