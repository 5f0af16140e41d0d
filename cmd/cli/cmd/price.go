package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"apparel-pricing/core/catalog"
	"apparel-pricing/core/output"
	"apparel-pricing/core/pricing"
	"apparel-pricing/core/provider"
	"apparel-pricing/internal/config"
	apperr "apparel-pricing/internal/errors"
)

// target selects the product line to price with
type target struct {
	line   string
	method string
	style  string
	color  string
}

func (t *target) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&t.line, "line", "l", "", "catalog product line, e.g. embroidery")
	cmd.Flags().StringVarP(&t.method, "method", "m", "", "decoration method when pricing by style (embroidery, cap_embroidery, ...)")
	cmd.Flags().StringVarP(&t.style, "style", "s", "", "style number when pricing by style, e.g. PC54")
	cmd.Flags().StringVar(&t.color, "color", "", "garment color when pricing by style")
}

var (
	priceTarget target
	priceOrder  string
	priceFormat string
	tiersLine   string
)

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Price an order",
	Long: `Price an order read from a JSON file ("-" for stdin).

The order holds line items with size breakdowns and the decorations to apply:

  {
    "items": [{"style_number": "PC54", "color": "Navy", "sizes": {"S": 10, "M": 10}}],
    "decorations": [{"id": "logo", "location": "left_chest", "stitch_count": 8000, "is_primary": true}]
  }

Pick the pricing with --line (catalog), or --method and --style (pricing backend,
falling back to the catalog).`,
	RunE: runPrice,
}

var tiersCmd = &cobra.Command{
	Use:   "tiers",
	Short: "Show the quantity tiers of a product line",
	RunE:  runTiers,
}

var linesCmd = &cobra.Command{
	Use:   "lines",
	Short: "List catalog product lines",
	RunE:  runLines,
}

func init() {
	priceTarget.register(priceCmd)
	priceCmd.Flags().StringVarP(&priceOrder, "order", "o", "", "order JSON file, or - for stdin [REQUIRED]")
	priceCmd.Flags().StringVarP(&priceFormat, "format", "f", "cli", "output format (cli, json)")
	_ = priceCmd.MarkFlagRequired("order")

	tiersCmd.Flags().StringVarP(&tiersLine, "line", "l", "", "product line or method [REQUIRED]")
	tiersCmd.Flags().StringVarP(&priceFormat, "format", "f", "cli", "output format (cli, json)")
	_ = tiersCmd.MarkFlagRequired("line")
}

func runPrice(cmd *cobra.Command, args []string) error {
	formatter, err := output.NewRegistry(noColor).Get(priceFormat)
	if err != nil {
		return err
	}
	order, err := readOrder(cmd.InOrStdin(), priceOrder)
	if err != nil {
		return err
	}

	cat, source, err := openSources()
	if err != nil {
		return err
	}
	engine, err := resolveEngine(cmd, cat, source, priceTarget)
	if err != nil {
		return err
	}

	result, err := engine.PriceOrder(*order)
	if err != nil {
		return err
	}
	newWriter(cmd.ErrOrStderr()).Debug("priced %s via %s: %d pieces at tier %s",
		result.ProductLine, source.Name(), result.TotalQuantity, result.TierLabel)
	return formatter.Render(cmd.OutOrStdout(), result)
}

func runTiers(cmd *cobra.Command, args []string) error {
	formatter, err := output.NewRegistry(noColor).Get(priceFormat)
	if err != nil {
		return err
	}
	_, source, err := openSources()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	tiers, err := source.FetchTiers(ctx, tiersLine)
	if err != nil {
		return err
	}
	return formatter.RenderTiers(cmd.OutOrStdout(), tiersLine, tiers)
}

func runLines(cmd *cobra.Command, args []string) error {
	path := config.Get().Catalog.Path
	cat, err := catalog.Load(path)
	if err != nil {
		return err
	}

	w := newWriter(cmd.OutOrStdout())
	w.Debug("catalog: %s", path)
	w.Header("Product Lines")
	table := w.NewTable("Name", "Method", "Prefix", "Tiers", "LTM")
	for _, name := range cat.Names() {
		entry, _ := cat.Get(name)
		ltm := "-"
		if entry.Line.LTM.Enabled() {
			ltm = fmt.Sprintf("%s under %d", output.Money(entry.Line.LTM.Fee), entry.Line.LTM.Threshold)
		}
		table.AddRow(name, string(entry.Line.Method), entry.Line.QuotePrefix, fmt.Sprintf("%d", len(entry.Line.Tiers)), ltm)
	}
	table.Render()

	stats := cat.Stats()
	w.Println("")
	w.Info("%d product lines, %d with a less-than-minimum fee", stats.Total, stats.WithLTM)
	return nil
}

// openSources loads the catalog and builds the configured provider stack
func openSources() (*catalog.Catalog, provider.Source, error) {
	cfg := config.Get()
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, nil, err
	}
	source, err := provider.FromConfig(cfg.Provider, cat, nil)
	if err != nil {
		return nil, nil, err
	}
	return cat, source, nil
}

// resolveEngine builds the engine for a catalog line, or for a style fetched from the source
func resolveEngine(cmd *cobra.Command, cat *catalog.Catalog, source provider.Source, t target) (*pricing.Engine, error) {
	if t.line != "" {
		return cat.Engine(t.line)
	}
	if t.method == "" || t.style == "" {
		return nil, apperr.Input("pass --line, or --method with --style")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	spinner := newWriter(cmd.ErrOrStderr()).NewSpinner(fmt.Sprintf("Fetching %s pricing for %s", t.method, t.style))
	spinner.Start()
	line, err := source.FetchProfile(ctx, provider.ProfileKey{
		StyleNumber: t.style,
		Color:       t.color,
		Method:      pricing.Method(t.method),
	})
	spinner.Stop(err == nil)
	if err != nil {
		return nil, err
	}
	return pricing.NewEngine(*line)
}

// readOrder decodes an order from a file, or from stdin for "-"
func readOrder(stdin io.Reader, path string) (*pricing.OrderRequest, error) {
	var r io.Reader
	if path == "-" {
		r = stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, apperr.Wrap(apperr.TypeInput, "cannot open order file", err).WithContext("path", path)
		}
		defer f.Close()
		r = f
	}

	var order pricing.OrderRequest
	if err := json.NewDecoder(r).Decode(&order); err != nil {
		return nil, apperr.Wrap(apperr.TypeInput, "invalid order JSON", err).WithContext("path", path)
	}
	return &order, nil
}
