package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "apparel-pricing/internal/errors"
)

func TestBuildProfile(t *testing.T) {
	profile, table, err := BuildProfile(ProfileInput{
		GarmentCost: dec("6.00"),
		Tiers: []ProfileTier{
			{Tier: Tier{Label: "1-23", MinQty: 1, MaxQty: 23}, MarginDenominator: dec("0.6"), DecorationCost: dec("3.50")},
			{Tier: Tier{Label: "24-47", MinQty: 24, MaxQty: 47}, MarginDenominator: dec("0.6"), DecorationCost: dec("3.00")},
			{Tier: Tier{Label: "48+", MinQty: 48}, MarginDenominator: dec("0.57"), DecorationCost: dec("2.75")},
		},
		SizeGroups: []string{"S", "M", "2XL"},
	})
	require.NoError(t, err)
	require.Len(t, table, 3)

	price, err := profile.Lookup("M", "1-23")
	require.NoError(t, err)
	assertMoney(t, "13.50", price)

	price, err = profile.Lookup("2XL", "24-47")
	require.NoError(t, err)
	assertMoney(t, "13.00", price)

	// 6 / 0.57 = 10.526..., + 2.75 = 13.28
	price, err = profile.Lookup("S", "48+")
	require.NoError(t, err)
	assertMoney(t, "13.28", price)
}

func TestBuildProfileRejectsUnusableTiers(t *testing.T) {
	base := func() ProfileInput {
		return ProfileInput{
			GarmentCost: dec("6.00"),
			Tiers: []ProfileTier{
				{Tier: Tier{Label: "1-23", MinQty: 1, MaxQty: 23}, MarginDenominator: dec("0.6"), DecorationCost: dec("3.50")},
				{Tier: Tier{Label: "24+", MinQty: 24}, MarginDenominator: dec("0.6"), DecorationCost: dec("3.00")},
			},
			SizeGroups: []string{"S"},
		}
	}

	tests := []struct {
		name   string
		mutate func(in *ProfileInput)
	}{
		{"zero margin", func(in *ProfileInput) { in.Tiers[1].MarginDenominator = decimal.Zero }},
		{"negative decoration cost", func(in *ProfileInput) { in.Tiers[0].DecorationCost = dec("-1") }},
		{"negative garment cost", func(in *ProfileInput) { in.GarmentCost = dec("-6") }},
		{"no tiers", func(in *ProfileInput) { in.Tiers = nil }},
		{"no sizes", func(in *ProfileInput) { in.SizeGroups = nil }},
		{"gapped tiers", func(in *ProfileInput) { in.Tiers[1].Tier.MinQty = 30 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base()
			tt.mutate(&in)
			_, _, err := BuildProfile(in)
			requireErrorType(t, err, apperr.TypeConfig)
		})
	}
}

func TestRelativeUpcharges(t *testing.T) {
	standard := RelativeUpcharges(map[string]decimal.Decimal{
		"S":   decimal.Zero,
		"M":   decimal.Zero,
		"XXL": dec("2.00"),
		"3XL": dec("3.00"),
	}, "S")
	assert.Len(t, standard, 2)
	assertMoney(t, "2.00", standard["2XL"])
	assertMoney(t, "3.00", standard["3XL"])

	tall := RelativeUpcharges(map[string]decimal.Decimal{
		"LT":   dec("1.00"),
		"XLT":  dec("1.00"),
		"2XLT": dec("3.00"),
	}, "LT")
	assert.Len(t, tall, 1)
	assertMoney(t, "2.00", tall["2XLT"])
}
