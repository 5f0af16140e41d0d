package provider

import (
	"context"

	"go.uber.org/zap"

	"apparel-pricing/core/catalog"
	"apparel-pricing/core/pricing"
	"apparel-pricing/internal/config"
	apperr "apparel-pricing/internal/errors"
	"apparel-pricing/internal/logging"
	"apparel-pricing/internal/metrics"
)

// Fallback asks the primary source first and the secondary only when the
// primary does not know the key. Outages are reported, not papered over.
type Fallback struct {
	primary   Source
	secondary Source
	logger    *zap.Logger
}

// NewFallback chains two sources
func NewFallback(primary, secondary Source) *Fallback {
	return &Fallback{primary: primary, secondary: secondary, logger: logging.Named("provider")}
}

// Name returns "primary+secondary"
func (f *Fallback) Name() string {
	return f.primary.Name() + "+" + f.secondary.Name()
}

// FetchTiers implements TierTableProvider
func (f *Fallback) FetchTiers(ctx context.Context, productLine string) (pricing.TierTable, error) {
	tiers, err := f.primary.FetchTiers(ctx, productLine)
	if apperr.IsType(err, apperr.TypeNotFound) {
		f.logger.Debug("tiers not in primary source",
			zap.String("product_line", productLine),
			zap.String("source", f.secondary.Name()))
		return f.secondary.FetchTiers(ctx, productLine)
	}
	return tiers, err
}

// FetchProfile implements PriceProfileProvider
func (f *Fallback) FetchProfile(ctx context.Context, key ProfileKey) (*pricing.ProductLine, error) {
	line, err := f.primary.FetchProfile(ctx, key)
	if apperr.IsType(err, apperr.TypeNotFound) {
		f.logger.Debug("profile not in primary source",
			zap.String("key", key.String()),
			zap.String("source", f.secondary.Name()))
		return f.secondary.FetchProfile(ctx, key)
	}
	return line, err
}

// FromConfig builds the source stack for a catalog: the catalog alone when no
// backend is configured, otherwise a cached backend falling back to the catalog.
func FromConfig(cfg config.ProviderConfig, cat *catalog.Catalog, m *metrics.Metrics) (Source, error) {
	local := NewCatalogSource(cat)
	if cfg.BaseURL == "" {
		return local, nil
	}

	breaker := DefaultBreakerConfig("pricing-bundle")
	if cfg.BreakerFailures > 0 {
		breaker.FailureThreshold = cfg.BreakerFailures
	}
	if cfg.BreakerCooldown() > 0 {
		breaker.Timeout = cfg.BreakerCooldown()
	}

	remote, err := NewBundleSource(BundleConfig{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout(),
		Breaker: breaker,
	}, m)
	if err != nil {
		return nil, err
	}

	policy := DefaultCachePolicy()
	if cfg.CacheTTL() > 0 {
		policy.TTL = cfg.CacheTTL()
	}
	return NewFallback(NewCache(remote, policy, m), local), nil
}
