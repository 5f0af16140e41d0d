package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apparel-pricing/core/pricing"
	apperr "apparel-pricing/internal/errors"
)

const shirtsHCL = `
product_line "shirts" {
  method         = "embroidery"
  quote_prefix   = "EMB"
  rounding       = "HalfDollarUp"
  digitizing_fee = 100
  styles         = ["PC54"]

  tier "1-23" {
    min = 1
    max = 23
  }
  tier "24+" {
    min = 24
  }

  size_groups = {
    S     = "S-XL"
    M     = "S-XL"
    xxl   = "2XL"
  }

  size_upcharges = {
    "2XL" = 2
  }

  prices = {
    "S-XL" = { "1-23" = 12, "24+" = 10.75 }
    "2XL"  = { "1-23" = 12, "24+" = 10.75 }
  }

  primary {
    basis     = "stitches"
    baseline  = 8000
    increment = 1000
    rate      = 1.25
  }

  additional {
    basis      = "flat"
    flat_price = 5.5
  }

  ltm {
    threshold = 24
    fee       = 50
  }
}
`

func TestParseHCL(t *testing.T) {
	entries, err := NewLoader().Parse([]byte(shirtsHCL), "shirts.hcl")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	line := entry.Line
	assert.Equal(t, "shirts", line.Name)
	assert.Equal(t, pricing.MethodEmbroidery, line.Method)
	assert.Equal(t, "EMB", line.QuotePrefix)
	assert.Equal(t, pricing.RoundHalfDollarUp, line.Rounding)
	assert.Equal(t, []string{"PC54"}, entry.Styles)
	assert.Equal(t, "shirts.hcl", entry.Source)

	require.Len(t, line.Tiers, 2)
	assert.Equal(t, pricing.Tier{Label: "24+", MinQty: 24}, line.Tiers[1])

	price, err := line.Profile.Lookup("S-XL", "24+")
	require.NoError(t, err)
	assert.Equal(t, "10.75", price.String())

	assert.Equal(t, "2XL", line.SizeGroups["2XL"], "size keys are normalised")
	assert.Equal(t, "2", line.SizeUpcharges["2XL"].String())
	assert.Equal(t, "1.25", line.Primary.Rate.String())
	assert.Equal(t, 8000, line.Primary.Baseline)
	assert.Equal(t, "5.5", line.Additional.FlatPrice.String())
	assert.Equal(t, 24, line.LTM.Threshold)
	assert.Equal(t, "50", line.LTM.Fee.String())
	assert.Equal(t, "100", line.DigitizingFee.String())

	require.NoError(t, line.Validate())
}

func TestParseHCLJSON(t *testing.T) {
	src := `{
  "product_line": {
    "tumblers": {
      "method": "laser",
      "tier": {
        "1-23": {"min": 1, "max": 23},
        "24+": {"min": 24}
      },
      "prices": {"OSFA": {"1-23": 18.5, "24+": 16.78}},
      "additional": {"basis": "flat", "flat_price": 3.16}
    }
  }
}`
	entries, err := NewLoader().Parse([]byte(src), "tumblers.hcl.json")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	line := entries[0].Line
	assert.Equal(t, pricing.MethodLaser, line.Method)
	assert.Equal(t, pricing.TwoDecimalNoRounding, line.Rounding)
	assert.Len(t, line.Tiers, 2)
	assert.Equal(t, "3.16", line.Additional.FlatPrice.String())
}

func TestParseErrorsAreConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax", `product_line "x" {`},
		{"missing prices", `product_line "x" {
  method = "embroidery"
}`},
		{"unknown rounding", `product_line "x" {
  method   = "embroidery"
  rounding = "Banker"
  prices   = {}
}`},
		{"bad amount", `product_line "x" {
  method = "embroidery"
  prices = { M = { "1+" = "twelve" } }
}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader().Parse([]byte(tt.src), "bad.hcl")
			require.Error(t, err)
			assert.Equal(t, apperr.TypeConfig, apperr.TypeOf(err), "error: %v", err)
		})
	}
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shirts.hcl"), []byte(shirtsHCL), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("not a catalog"), 0644))

	cat, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"shirts"}, cat.Names())

	engine, err := cat.Engine("shirts")
	require.NoError(t, err)
	assert.Equal(t, "shirts", engine.Line().Name)

	_, err = cat.Line("hats")
	assert.Equal(t, apperr.TypeNotFound, apperr.TypeOf(err))

	entry, ok := cat.Find("pc54", pricing.MethodEmbroidery)
	require.True(t, ok)
	assert.Equal(t, "shirts", entry.Line.Name)

	_, ok = cat.Find("PC54", pricing.MethodLaser)
	assert.False(t, ok)

	stats := cat.Stats()
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.WithLTM)
}

func TestLoadRejectsInvalidLines(t *testing.T) {
	dir := t.TempDir()
	gapped := `product_line "gapped" {
  method = "embroidery"
  tier "1-23" {
    min = 1
    max = 23
  }
  tier "48+" {
    min = 48
  }
  prices = { M = { "1-23" = 12, "48+" = 10 } }
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gapped.hcl"), []byte(gapped), 0644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Equal(t, apperr.TypeConfig, apperr.TypeOf(err))

	_, err = Load(filepath.Join(dir, "missing.hcl"))
	assert.Equal(t, apperr.TypeConfig, apperr.TypeOf(err))
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	entries, err := NewLoader().Parse([]byte(shirtsHCL), "a.hcl")
	require.NoError(t, err)

	cat := NewCatalog()
	require.NoError(t, cat.Register(entries[0]))

	err = cat.Register(entries[0])
	require.Error(t, err)
	assert.Equal(t, apperr.TypeConfig, apperr.TypeOf(err))
}

func TestRepositoryCatalogLoads(t *testing.T) {
	cat, err := Load(filepath.Join("..", "..", "catalog.hcl"))
	require.NoError(t, err)
	assert.Equal(t, []string{"cap_embroidery", "dtg", "embroidery", "laser_tumbler", "screen_print"}, cat.Names())
}

func TestRepositoryScreenPrintChargesSetupPerColor(t *testing.T) {
	cat, err := Load(filepath.Join("..", "..", "catalog.hcl"))
	require.NoError(t, err)

	line, err := cat.Line("screen_print")
	require.NoError(t, err)
	assert.Equal(t, "30", line.SetupPerColor.String())

	engine, err := cat.Engine("screen_print")
	require.NoError(t, err)
	result, err := engine.PriceOrder(pricing.OrderRequest{
		Items: []pricing.QuoteLineItem{{
			StyleNumber: "PC61",
			Color:       "Black",
			Sizes:       pricing.SizeBreakdown{"M": 48},
		}},
		Decorations: []pricing.DecorationSpec{
			{ID: "front", Location: pricing.LocationFullFront, ColorCount: 3, IsPrimary: true},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "90", result.SetupFeesTotal.String())
	assert.Equal(t, "714", result.GrandTotal.String())
}
