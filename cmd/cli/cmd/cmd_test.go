package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apparel-pricing/core/pricing"
	"apparel-pricing/core/quote"
	apperr "apparel-pricing/internal/errors"
)

var repoCatalog = filepath.Join("..", "..", "..", "catalog.hcl")

const orderJSON = `{
  "items": [{"style_number": "PC54", "color": "Navy", "sizes": {"S": 10, "M": 10}}],
  "decorations": [{"id": "logo", "location": "left_chest", "stitch_count": 8000, "is_primary": true}]
}`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(orderJSON))
	rootCmd.SetArgs(append([]string{"--catalog", repoCatalog, "--no-color"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func writeOrder(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "order.json")
	require.NoError(t, os.WriteFile(path, []byte(orderJSON), 0644))
	return path
}

func TestPriceCommand(t *testing.T) {
	t.Setenv("PRICING_API_BASE_URL", "")

	out, err := run(t, "price", "--line", "embroidery", "--order", writeOrder(t), "--format", "json")
	require.NoError(t, err)

	var result pricing.PricingResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 20, result.TotalQuantity)
	assert.True(t, decimal.NewFromInt(290).Equal(result.GrandTotal), "got %s", result.GrandTotal)

	out, err = run(t, "price", "--line", "embroidery", "--order", "-", "--format", "cli")
	require.NoError(t, err)
	assert.Contains(t, out, "$290.00")
	assert.Contains(t, out, "Less than minimum")

	_, err = run(t, "price", "--line", "embroidery", "--order", "-", "--format", "yaml")
	assert.Equal(t, apperr.TypeInput, apperr.TypeOf(err))

	_, err = run(t, "price", "--line", "nope", "--order", "-", "--format", "cli")
	assert.Equal(t, apperr.TypeNotFound, apperr.TypeOf(err))
}

func TestTiersAndLinesCommands(t *testing.T) {
	t.Setenv("PRICING_API_BASE_URL", "")

	out, err := run(t, "tiers", "--line", "embroidery", "--format", "cli")
	require.NoError(t, err)
	assert.Contains(t, out, "Tiers: embroidery")
	assert.Contains(t, out, "72+")

	out, err = run(t, "lines")
	require.NoError(t, err)
	for _, name := range []string{"cap_embroidery", "dtg", "embroidery", "laser_tumbler", "screen_print"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "$50.00 under 24")
}

func TestQuoteCommands(t *testing.T) {
	t.Setenv("PRICING_API_BASE_URL", "")
	db := filepath.Join(t.TempDir(), "quotes.db")

	out, err := run(t, "quote", "save", "--db", db, "--line", "embroidery", "--order", writeOrder(t),
		"--customer", "Acme Rowing", "--email", "orders@acme.test")
	require.NoError(t, err)
	id := quote.FormatID("EMB", time.Now().UTC(), 1)
	assert.Contains(t, out, "Saved quote "+id)
	assert.Contains(t, out, "$290.00")

	out, err = run(t, "quote", "list", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "Acme Rowing")
	assert.Contains(t, out, "open")

	out, err = run(t, "quote", "show", id, "--db", db, "--format", "cli")
	require.NoError(t, err)
	assert.Contains(t, out, "Quote "+id)
	assert.Contains(t, out, "Acme Rowing <orders@acme.test>")
	assert.Contains(t, out, "$290.00")

	_, err = run(t, "quote", "show", "EMB0101-99", "--db", db, "--format", "cli")
	assert.Equal(t, apperr.TypeNotFound, apperr.TypeOf(err))
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "apparel-pricing version "+Version+"\n", out)
}

func TestVerboseShowsDebugOutput(t *testing.T) {
	t.Setenv("PRICING_API_BASE_URL", "")
	t.Cleanup(func() { verbose = false })

	out, err := run(t, "lines")
	require.NoError(t, err)
	assert.NotContains(t, out, "catalog: "+repoCatalog)

	out, err = run(t, "--verbose", "lines")
	require.NoError(t, err)
	assert.Contains(t, out, "catalog: "+repoCatalog)
}
