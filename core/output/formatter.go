// Package output provides output formatting for priced orders.
// This package produces human and machine-readable outputs.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"apparel-pricing/core/pricing"
	"apparel-pricing/core/ui"
	apperr "apparel-pricing/internal/errors"
)

// Format represents output format type
type Format string

const (
	// FormatCLI is a human-readable CLI table
	FormatCLI Format = "cli"

	// FormatJSON is machine-readable JSON
	FormatJSON Format = "json"
)

// Formatter produces output in a specific format
type Formatter interface {
	// Format returns the format type
	Format() Format

	// Render produces output for a priced order
	Render(w io.Writer, result *pricing.PricingResult) error

	// RenderTiers produces output for a tier table
	RenderTiers(w io.Writer, productLine string, tiers pricing.TierTable) error
}

// Registry manages formatter registration
type Registry struct {
	formatters map[Format]Formatter
}

// NewRegistry returns a registry holding the CLI and JSON formatters
func NewRegistry(noColor bool) *Registry {
	r := &Registry{formatters: make(map[Format]Formatter)}
	r.Register(&CLIFormatter{NoColor: noColor})
	r.Register(&JSONFormatter{Indent: true})
	return r
}

// Register adds a formatter, replacing any with the same format
func (r *Registry) Register(f Formatter) {
	r.formatters[f.Format()] = f
}

// Get returns the formatter for a format name
func (r *Registry) Get(name string) (Formatter, error) {
	f, ok := r.formatters[Format(strings.ToLower(strings.TrimSpace(name)))]
	if !ok {
		return nil, apperr.Inputf("unknown output format %q (want one of %s)", name, strings.Join(r.names(), ", "))
	}
	return f, nil
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.formatters))
	for f := range r.formatters {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return names
}

// Money renders an amount as dollars and cents
func Money(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// JSONFormatter renders results as JSON
type JSONFormatter struct {
	Indent bool
}

// Format returns FormatJSON
func (f *JSONFormatter) Format() Format { return FormatJSON }

// Render writes the result as JSON
func (f *JSONFormatter) Render(w io.Writer, result *pricing.PricingResult) error {
	return f.encode(w, result)
}

// RenderTiers writes the tier table as JSON
func (f *JSONFormatter) RenderTiers(w io.Writer, productLine string, tiers pricing.TierTable) error {
	return f.encode(w, map[string]interface{}{
		"product_line": productLine,
		"tiers":        tiers,
	})
}

func (f *JSONFormatter) encode(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	if f.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// CLIFormatter renders results as terminal tables
type CLIFormatter struct {
	NoColor bool
}

// Format returns FormatCLI
func (f *CLIFormatter) Format() Format { return FormatCLI }

// Render writes one table per line item, the additional logos and the totals
func (f *CLIFormatter) Render(w io.Writer, result *pricing.PricingResult) error {
	if result == nil {
		return apperr.Input("nothing to render")
	}
	uw := ui.NewWriter(w, f.NoColor)

	uw.Header("Line Items")
	for _, line := range result.Lines {
		uw.SubHeader(strings.TrimSpace(fmt.Sprintf("%s %s", line.StyleNumber, line.Color)))
		table := uw.NewTable("Size", "Group", "Qty", "Unit", "Total").AlignRight(2, 3, 4)
		for _, s := range line.Sizes {
			table.AddRow(s.Size, s.SizeGroup, fmt.Sprintf("%d", s.Quantity), Money(s.UnitPrice), Money(s.Total))
		}
		table.AddRow("", "", fmt.Sprintf("%d", line.Quantity), "", Money(line.Subtotal))
		table.Render()
		uw.Println("")
	}

	if len(result.AdditionalDecorations) > 0 {
		uw.SubHeader("Additional logos")
		table := uw.NewTable("Location", "Qty", "Unit", "Total").AlignRight(1, 2, 3)
		for _, d := range result.AdditionalDecorations {
			table.AddRow(string(d.Location), fmt.Sprintf("%d", d.Quantity), Money(d.UnitPrice), Money(d.Total))
		}
		table.Render()
	}

	summary := uw.NewQuoteSummary()
	summary.ProductLine = result.ProductLine
	summary.Tier = result.TierLabel
	summary.Quantity = result.TotalQuantity
	summary.Subtotal = Money(result.Subtotal)
	summary.Additional = Money(result.AdditionalDecorationTotal)
	summary.SetupFees = Money(result.SetupFeesTotal)
	summary.LTMFee = Money(result.LTMFeeTotal)
	summary.LTMPerUnit = Money(result.LTMFeePerUnit)
	summary.GrandTotal = Money(result.GrandTotal)
	summary.HasAdditional = result.AdditionalDecorationTotal.IsPositive()
	summary.HasSetup = result.SetupFeesTotal.IsPositive()
	summary.HasLTM = result.LTMFeeTotal.IsPositive()
	summary.Render()
	return nil
}

// RenderTiers writes the tier table
func (f *CLIFormatter) RenderTiers(w io.Writer, productLine string, tiers pricing.TierTable) error {
	uw := ui.NewWriter(w, f.NoColor)
	uw.Header("Tiers: " + productLine)
	table := uw.NewTable("Tier", "Min", "Max").AlignRight(1, 2)
	for _, t := range tiers {
		upper := "∞"
		if !t.Unbounded() {
			upper = fmt.Sprintf("%d", t.MaxQty)
		}
		table.AddRow(t.Label, fmt.Sprintf("%d", t.MinQty), upper)
	}
	table.Render()
	return nil
}
