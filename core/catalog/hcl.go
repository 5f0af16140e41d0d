package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"apparel-pricing/core/pricing"
	apperr "apparel-pricing/internal/errors"
	"apparel-pricing/internal/logging"
)

// File schema. Money is decoded as strings so HCL numbers keep their exact
// decimal text; gohcl converts number literals to strings for us.
type fileSchema struct {
	Lines []lineSchema `hcl:"product_line,block"`
}

type lineSchema struct {
	Name          string                       `hcl:"name,label"`
	Method        string                       `hcl:"method"`
	QuotePrefix   string                       `hcl:"quote_prefix,optional"`
	Rounding      string                       `hcl:"rounding,optional"`
	Styles        []string                     `hcl:"styles,optional"`
	SizeGroups    map[string]string            `hcl:"size_groups,optional"`
	SizeUpcharges map[string]string            `hcl:"size_upcharges,optional"`
	Prices        map[string]map[string]string `hcl:"prices"`
	DigitizingFee string                       `hcl:"digitizing_fee,optional"`
	SetupPerColor string                       `hcl:"setup_per_color,optional"`
	Tiers         []tierSchema                 `hcl:"tier,block"`
	Primary       *ratesSchema                 `hcl:"primary,block"`
	Additional    *additionalSchema            `hcl:"additional,block"`
	LTM           *ltmSchema                   `hcl:"ltm,block"`
}

type tierSchema struct {
	Label string `hcl:"label,label"`
	Min   int    `hcl:"min"`
	Max   int    `hcl:"max,optional"`
}

type ratesSchema struct {
	Basis       string `hcl:"basis,optional"`
	Baseline    int    `hcl:"baseline,optional"`
	Increment   int    `hcl:"increment,optional"`
	Rate        string `hcl:"rate,optional"`
	AllowCredit bool   `hcl:"allow_credit,optional"`
}

type additionalSchema struct {
	Basis       string            `hcl:"basis,optional"`
	Baseline    int               `hcl:"baseline,optional"`
	Increment   int               `hcl:"increment,optional"`
	Rate        string            `hcl:"rate,optional"`
	AllowCredit bool              `hcl:"allow_credit,optional"`
	TierPrices  map[string]string `hcl:"tier_prices,optional"`
	FlatPrice   string            `hcl:"flat_price,optional"`
}

type ltmSchema struct {
	Threshold int    `hcl:"threshold"`
	Fee       string `hcl:"fee"`
}

// Loader reads product-line catalogs written in HCL or HCL's JSON syntax
type Loader struct {
	parser *hclparse.Parser
}

// NewLoader creates a new catalog loader
func NewLoader() *Loader {
	return &Loader{
		parser: hclparse.NewParser(),
	}
}

// Load reads a catalog from a file, or from every catalog file in a directory
func Load(path string) (*Catalog, error) {
	files, err := catalogFiles(path)
	if err != nil {
		return nil, err
	}

	loader := NewLoader()
	cat := NewCatalog()
	for _, file := range files {
		entries, err := loader.LoadFile(file)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if err := cat.Register(entry); err != nil {
				return nil, apperr.Wrapf(apperr.TypeConfig, err, "%s", file)
			}
		}
	}

	if cat.Len() == 0 {
		return nil, apperr.Configf("no product lines found in %s", path)
	}

	logging.Info("catalog loaded",
		zap.String("path", path),
		zap.Int("files", len(files)),
		zap.Int("product_lines", cat.Len()))

	return cat, nil
}

func catalogFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.TypeConfig, "cannot read catalog", err).WithContext("path", path)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isCatalogFile(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.TypeConfig, "cannot walk catalog directory", err).WithContext("path", path)
	}
	sort.Strings(files)
	return files, nil
}

func isCatalogFile(path string) bool {
	return strings.HasSuffix(path, ".hcl") || strings.HasSuffix(path, ".hcl.json")
}

// LoadFile parses one catalog file
func (l *Loader) LoadFile(path string) ([]Entry, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.TypeConfig, "cannot read catalog file", err).WithContext("path", path)
	}
	return l.Parse(src, path)
}

// Parse decodes catalog source. Files ending in .json use HCL's JSON syntax.
func (l *Loader) Parse(src []byte, filename string) ([]Entry, error) {
	var (
		file  *hcl.File
		diags hcl.Diagnostics
	)
	if strings.HasSuffix(filename, ".json") {
		file, diags = l.parser.ParseJSON(src, filename)
	} else {
		file, diags = l.parser.ParseHCL(src, filename)
	}
	if diags.HasErrors() {
		return nil, diagnosticsError(filename, diags)
	}

	var schema fileSchema
	if diags := gohcl.DecodeBody(file.Body, nil, &schema); diags.HasErrors() {
		return nil, diagnosticsError(filename, diags)
	}

	entries := make([]Entry, 0, len(schema.Lines))
	for _, ls := range schema.Lines {
		line, err := ls.productLine()
		if err != nil {
			return nil, apperr.Wrapf(apperr.TypeConfig, err, "%s: product line %q", filename, ls.Name)
		}
		entries = append(entries, Entry{Line: line, Styles: ls.Styles, Source: filename})
	}
	return entries, nil
}

func diagnosticsError(filename string, diags hcl.Diagnostics) error {
	var msgs []string
	for _, diag := range diags {
		if diag.Severity != hcl.DiagError {
			continue
		}
		line := 0
		if diag.Subject != nil {
			line = diag.Subject.Start.Line
		}
		msgs = append(msgs, fmt.Sprintf("%s:%d: %s: %s", filename, line, diag.Summary, diag.Detail))
	}
	return apperr.Newf(apperr.TypeConfig, "invalid catalog: %s", strings.Join(msgs, "; ")).
		WithContext("file", filename)
}

func (ls lineSchema) productLine() (pricing.ProductLine, error) {
	rounding, err := pricing.ParseRoundingRule(ls.Rounding)
	if err != nil {
		return pricing.ProductLine{}, err
	}

	line := pricing.ProductLine{
		Name:        ls.Name,
		Method:      pricing.Method(ls.Method),
		QuotePrefix: ls.QuotePrefix,
		Rounding:    rounding,
		Profile:     make(pricing.PriceProfile),
	}

	for _, ts := range ls.Tiers {
		line.Tiers = append(line.Tiers, pricing.Tier{Label: ts.Label, MinQty: ts.Min, MaxQty: ts.Max})
	}

	for group, row := range ls.Prices {
		for tier, raw := range row {
			price, err := parseMoney(fmt.Sprintf("prices[%s][%s]", group, tier), raw)
			if err != nil {
				return pricing.ProductLine{}, err
			}
			line.Profile.Set(group, tier, price)
		}
	}

	if len(ls.SizeGroups) > 0 {
		line.SizeGroups = make(map[string]string, len(ls.SizeGroups))
		for size, group := range ls.SizeGroups {
			line.SizeGroups[pricing.NormalizeSize(size)] = group
		}
	}

	if len(ls.SizeUpcharges) > 0 {
		line.SizeUpcharges = make(map[string]decimal.Decimal, len(ls.SizeUpcharges))
		for group, raw := range ls.SizeUpcharges {
			amount, err := parseMoney("size_upcharges["+group+"]", raw)
			if err != nil {
				return pricing.ProductLine{}, err
			}
			line.SizeUpcharges[group] = amount
		}
	}

	if line.DigitizingFee, err = parseMoney("digitizing_fee", ls.DigitizingFee); err != nil {
		return pricing.ProductLine{}, err
	}
	if line.SetupPerColor, err = parseMoney("setup_per_color", ls.SetupPerColor); err != nil {
		return pricing.ProductLine{}, err
	}

	if ls.Primary != nil {
		if line.Primary, err = ls.Primary.rates("primary"); err != nil {
			return pricing.ProductLine{}, err
		}
	}

	if ls.Additional != nil {
		if line.Additional, err = ls.Additional.rates(); err != nil {
			return pricing.ProductLine{}, err
		}
	}

	if ls.LTM != nil {
		fee, err := parseMoney("ltm.fee", ls.LTM.Fee)
		if err != nil {
			return pricing.ProductLine{}, err
		}
		line.LTM = pricing.LTMConfig{Threshold: ls.LTM.Threshold, Fee: fee}
	}

	return line, nil
}

func (rs ratesSchema) rates(block string) (pricing.DecorationRates, error) {
	rate, err := parseMoney(block+".rate", rs.Rate)
	if err != nil {
		return pricing.DecorationRates{}, err
	}
	return pricing.DecorationRates{
		Basis:       pricing.CountBasis(rs.Basis),
		Baseline:    rs.Baseline,
		Increment:   rs.Increment,
		Rate:        rate,
		AllowCredit: rs.AllowCredit,
	}, nil
}

func (as additionalSchema) rates() (pricing.AdditionalRates, error) {
	base, err := ratesSchema{
		Basis:       as.Basis,
		Baseline:    as.Baseline,
		Increment:   as.Increment,
		Rate:        as.Rate,
		AllowCredit: as.AllowCredit,
	}.rates("additional")
	if err != nil {
		return pricing.AdditionalRates{}, err
	}

	out := pricing.AdditionalRates{DecorationRates: base}
	if out.FlatPrice, err = parseMoney("additional.flat_price", as.FlatPrice); err != nil {
		return pricing.AdditionalRates{}, err
	}
	if len(as.TierPrices) > 0 {
		out.TierPrices = make(map[string]decimal.Decimal, len(as.TierPrices))
		for tier, raw := range as.TierPrices {
			price, err := parseMoney("additional.tier_prices["+tier+"]", raw)
			if err != nil {
				return pricing.AdditionalRates{}, err
			}
			out.TierPrices[tier] = price
		}
	}
	return out, nil
}

// parseMoney reads a decimal amount; an absent value is zero
func parseMoney(field, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperr.Wrapf(apperr.TypeConfig, err, "%s: %q is not an amount", field, raw)
	}
	return d, nil
}
