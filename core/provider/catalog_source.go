package provider

import (
	"context"

	"apparel-pricing/core/catalog"
	"apparel-pricing/core/pricing"
	apperr "apparel-pricing/internal/errors"
)

// CatalogSource serves pricing data from a loaded catalog
type CatalogSource struct {
	catalog *catalog.Catalog
}

// NewCatalogSource creates a source over a catalog
func NewCatalogSource(cat *catalog.Catalog) *CatalogSource {
	return &CatalogSource{catalog: cat}
}

// Name returns the source name
func (s *CatalogSource) Name() string {
	return "catalog"
}

// FetchTiers returns the tier table of a named product line
func (s *CatalogSource) FetchTiers(ctx context.Context, productLine string) (pricing.TierTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Unavailable("tier lookup cancelled", err)
	}
	line, err := s.catalog.Line(productLine)
	if err != nil {
		return nil, err
	}
	tiers := make(pricing.TierTable, len(line.Tiers))
	copy(tiers, line.Tiers)
	return tiers, nil
}

// FetchProfile returns the product line that serves the style and method
func (s *CatalogSource) FetchProfile(ctx context.Context, key ProfileKey) (*pricing.ProductLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Unavailable("profile lookup cancelled", err)
	}
	entry, ok := s.catalog.Find(key.StyleNumber, key.Method)
	if !ok {
		return nil, apperr.NotFound("price profile", key.String())
	}
	line := entry.Line
	return &line, nil
}
