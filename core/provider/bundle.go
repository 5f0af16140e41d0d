package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"apparel-pricing/core/pricing"
	apperr "apparel-pricing/internal/errors"
	"apparel-pricing/internal/logging"
	"apparel-pricing/internal/metrics"
)

// Backend quantities at or above this are "no upper limit"
const unboundedMaxQuantity = 99999

// bundleMethod maps a decoration method to the backend's bundle codes
type bundleMethod struct {
	code           string
	additionalCode string
	prefix         string
	stitched       bool
	baseStitches   int
	stitchRate     decimal.Decimal
}

var bundleMethods = map[pricing.Method]bundleMethod{
	pricing.MethodEmbroidery: {
		code: "EMB", additionalCode: "EMB-AL", prefix: "EMB",
		stitched: true, baseStitches: 8000, stitchRate: decimal.RequireFromString("1.25"),
	},
	pricing.MethodCapEmbroidery: {
		code: "CAP", additionalCode: "CAP-AL", prefix: "CAP",
		stitched: true, baseStitches: 5000, stitchRate: decimal.RequireFromString("1.00"),
	},
	pricing.MethodScreenPrint: {code: "ScreenPrint", prefix: "SP"},
	pricing.MethodDTG:         {code: "DTG", prefix: "DTG"},
}

// Wire format of GET /api/pricing-bundle
type bundle struct {
	Tiers  []bundleTier               `json:"tiersR"`
	Rules  bundleRules                `json:"rulesR"`
	Costs  []bundleCost               `json:"allEmbroideryCostsR"`
	Sizes  []bundleSize               `json:"sizes"`
	AddOns map[string]decimal.Decimal `json:"sellingPriceDisplayAddOns"`
}

type bundleTier struct {
	TierLabel         string          `json:"TierLabel"`
	MinQuantity       int             `json:"MinQuantity"`
	MaxQuantity       int             `json:"MaxQuantity"`
	MarginDenominator decimal.Decimal `json:"MarginDenominator"`
	LTMFee            decimal.Decimal `json:"LTM_Fee"`
}

type bundleRules struct {
	RoundingMethod string `json:"RoundingMethod"`
}

type bundleCost struct {
	TierLabel            string          `json:"TierLabel"`
	ItemType             string          `json:"ItemType"`
	EmbroideryCost       decimal.Decimal `json:"EmbroideryCost"`
	StitchCount          int             `json:"StitchCount"`
	BaseStitchCount      int             `json:"BaseStitchCount"`
	StitchIncrement      int             `json:"StitchIncrement"`
	AdditionalStitchRate decimal.Decimal `json:"AdditionalStitchRate"`
	DigitizingFee        decimal.Decimal `json:"DigitizingFee"`
}

type bundleSize struct {
	Size         string          `json:"size"`
	Price        decimal.Decimal `json:"price"`
	MaxCasePrice decimal.Decimal `json:"maxCasePrice"`
	SortOrder    int             `json:"sortOrder"`
}

// BundleConfig configures the HTTP pricing-bundle source
type BundleConfig struct {
	BaseURL string
	Timeout time.Duration
	Breaker BreakerConfig
}

// BundleSource fetches pricing bundles from the pricing backend
type BundleSource struct {
	baseURL string
	client  *http.Client
	breaker *Breaker
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewBundleSource creates a source for the backend at cfg.BaseURL
func NewBundleSource(cfg BundleConfig, m *metrics.Metrics) (*BundleSource, error) {
	if cfg.BaseURL == "" {
		return nil, apperr.Config("pricing backend base URL is empty")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, apperr.Wrap(apperr.TypeConfig, "invalid pricing backend URL", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker = DefaultBreakerConfig("pricing-bundle")
	}

	return &BundleSource{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: NewBreaker(cfg.Breaker, m),
		metrics: m,
		logger:  logging.Named("bundle"),
	}, nil
}

// Name returns the source name
func (s *BundleSource) Name() string {
	return "bundle"
}

// Breaker exposes the circuit breaker, mainly for health reporting
func (s *BundleSource) Breaker() *Breaker {
	return s.breaker
}

// FetchTiers returns the tier table for a method name, e.g. "embroidery"
func (s *BundleSource) FetchTiers(ctx context.Context, productLine string) (pricing.TierTable, error) {
	method, ok := bundleMethods[pricing.Method(productLine)]
	if !ok {
		return nil, apperr.NotFound("pricing bundle method", productLine)
	}
	b, err := s.fetch(ctx, method.code, "")
	if err != nil {
		return nil, err
	}
	tiers := b.tierTable()
	if err := tiers.Validate(); err != nil {
		return nil, err
	}
	return tiers, nil
}

// FetchProfile fetches the style's bundle and converts it to a product line
func (s *BundleSource) FetchProfile(ctx context.Context, key ProfileKey) (*pricing.ProductLine, error) {
	method, ok := bundleMethods[key.Method]
	if !ok {
		return nil, apperr.NotFound("pricing bundle method", string(key.Method))
	}
	if strings.TrimSpace(key.StyleNumber) == "" {
		return nil, apperr.Input("style number is required")
	}

	primary, err := s.fetch(ctx, method.code, key.StyleNumber)
	if err != nil {
		return nil, err
	}

	var additional *bundle
	if method.additionalCode != "" {
		if additional, err = s.fetch(ctx, method.additionalCode, ""); err != nil {
			return nil, err
		}
	}

	line, err := convertBundle(key, method, primary, additional)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("pricing bundle converted",
		zap.String("style", key.StyleNumber),
		zap.String("method", string(key.Method)),
		zap.Int("tiers", len(line.Tiers)),
		zap.Int("size_groups", len(line.Profile)))
	return line, nil
}

func (s *BundleSource) fetch(ctx context.Context, code, styleNumber string) (*bundle, error) {
	query := url.Values{}
	query.Set("method", code)
	if styleNumber != "" {
		query.Set("styleNumber", styleNumber)
	}
	endpoint := s.baseURL + "/api/pricing-bundle?" + query.Encode()

	v, err := s.breaker.Execute(func() (interface{}, error) {
		return s.get(ctx, endpoint)
	})
	if err != nil {
		s.metrics.ObserveFetch(s.Name(), "error")
		s.logger.Warn("pricing bundle fetch failed", zap.String("method", code), zap.String("style", styleNumber), zap.Error(err))
		return nil, err
	}
	s.metrics.ObserveFetch(s.Name(), "ok")
	return v.(*bundle), nil
}

func (s *BundleSource) get(ctx context.Context, endpoint string) (*bundle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperr.Internal("failed to build bundle request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, apperr.Unavailable("pricing backend unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperr.NotFound("pricing bundle", endpoint)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperr.Newf(apperr.TypeSourceUnavailable, "pricing backend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))).
			WithContext("status", resp.StatusCode)
	}

	var b bundle
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		return nil, apperr.Unavailable("malformed pricing bundle", err)
	}
	return &b, nil
}

func (b *bundle) tierTable() pricing.TierTable {
	tiers := make(pricing.TierTable, 0, len(b.Tiers))
	for _, t := range b.Tiers {
		maxQty := t.MaxQuantity
		if maxQty >= unboundedMaxQuantity {
			maxQty = 0
		}
		tiers = append(tiers, pricing.Tier{Label: t.TierLabel, MinQty: t.MinQuantity, MaxQty: maxQty})
	}
	return tiers
}

// ltm derives the LTM setting: the fee is the largest tier fee and the
// threshold is the first quantity whose tier carries no fee.
func (b *bundle) ltm() pricing.LTMConfig {
	tiers := append([]bundleTier(nil), b.Tiers...)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MinQuantity < tiers[j].MinQuantity })

	var cfg pricing.LTMConfig
	for _, t := range tiers {
		if t.LTMFee.GreaterThan(cfg.Fee) {
			cfg.Fee = t.LTMFee
		}
	}
	if cfg.Fee.IsZero() {
		return pricing.LTMConfig{}
	}
	for _, t := range tiers {
		if t.LTMFee.IsZero() {
			cfg.Threshold = t.MinQuantity
			break
		}
	}
	return cfg
}

func (b *bundle) costFor(tierLabel string) (bundleCost, bool) {
	for _, c := range b.Costs {
		if c.TierLabel == tierLabel {
			return c, true
		}
	}
	return bundleCost{}, false
}

// standardSize is S when offered, otherwise the first size in sort order
func (b *bundle) standardSize() (bundleSize, error) {
	if len(b.Sizes) == 0 {
		return bundleSize{}, apperr.Config("pricing bundle lists no sizes")
	}
	sizes := append([]bundleSize(nil), b.Sizes...)
	sort.SliceStable(sizes, func(i, j int) bool { return sizes[i].SortOrder < sizes[j].SortOrder })
	for _, s := range sizes {
		if strings.EqualFold(s.Size, "S") {
			return s, nil
		}
	}
	return sizes[0], nil
}

func convertBundle(key ProfileKey, method bundleMethod, primary, additional *bundle) (*pricing.ProductLine, error) {
	standard, err := primary.standardSize()
	if err != nil {
		return nil, err
	}
	garmentCost := standard.Price
	if garmentCost.IsZero() {
		garmentCost = standard.MaxCasePrice
	}

	tiers := primary.tierTable()
	in := pricing.ProfileInput{GarmentCost: garmentCost}
	for i, t := range primary.Tiers {
		cost, ok := primary.costFor(t.TierLabel)
		if !ok {
			return nil, apperr.Configf("pricing bundle has no decoration cost for tier %q", t.TierLabel)
		}
		in.Tiers = append(in.Tiers, pricing.ProfileTier{
			Tier:              tiers[i],
			MarginDenominator: t.MarginDenominator,
			DecorationCost:    cost.EmbroideryCost,
		})
	}
	for _, s := range primary.Sizes {
		in.SizeGroups = append(in.SizeGroups, pricing.NormalizeSize(s.Size))
	}

	profile, table, err := pricing.BuildProfile(in)
	if err != nil {
		return nil, err
	}

	rounding := pricing.RoundHalfDollarUp
	if primary.Rules.RoundingMethod != "" {
		if rounding, err = pricing.ParseRoundingRule(primary.Rules.RoundingMethod); err != nil {
			return nil, err
		}
	}

	line := &pricing.ProductLine{
		Name:          fmt.Sprintf("%s:%s", key.Method, strings.ToUpper(key.StyleNumber)),
		Method:        key.Method,
		QuotePrefix:   method.prefix,
		Tiers:         table,
		Profile:       profile,
		SizeUpcharges: pricing.RelativeUpcharges(primary.AddOns, pricing.NormalizeSize(standard.Size)),
		Rounding:      rounding,
		LTM:           primary.ltm(),
		Primary:       pricing.DecorationRates{Basis: pricing.BasisFlat},
		Additional:    pricing.AdditionalRates{DecorationRates: pricing.DecorationRates{Basis: pricing.BasisFlat}},
	}

	if method.stitched && len(primary.Costs) > 0 {
		line.Primary = stitchRates(primary.Costs[0], method)
		line.DigitizingFee = primary.Costs[0].DigitizingFee
		if line.DigitizingFee.IsZero() {
			line.DigitizingFee = decimal.NewFromInt(100)
		}
	}

	if additional != nil && len(additional.Costs) > 0 {
		line.Additional = pricing.AdditionalRates{
			DecorationRates: stitchRates(additional.Costs[0], method),
			TierPrices:      make(map[string]decimal.Decimal, len(additional.Costs)),
		}
		for _, c := range additional.Costs {
			line.Additional.TierPrices[c.TierLabel] = c.EmbroideryCost
		}
	}

	if err := line.Validate(); err != nil {
		return nil, err
	}
	return line, nil
}

func stitchRates(c bundleCost, method bundleMethod) pricing.DecorationRates {
	rates := pricing.DecorationRates{
		Basis:     pricing.BasisStitches,
		Baseline:  c.BaseStitchCount,
		Increment: c.StitchIncrement,
		Rate:      c.AdditionalStitchRate,
	}
	if rates.Baseline == 0 {
		rates.Baseline = c.StitchCount
	}
	if rates.Baseline == 0 {
		rates.Baseline = method.baseStitches
	}
	if rates.Increment == 0 {
		rates.Increment = 1000
	}
	if rates.Rate.IsZero() {
		rates.Rate = method.stitchRate
	}
	return rates
}
