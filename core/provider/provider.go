// Package provider supplies tier tables and price profiles to the engine.
// Sources may be slow or remote; the engine itself never calls them.
package provider

import (
	"context"
	"strings"

	"apparel-pricing/core/pricing"
)

// ProfileKey identifies the pricing data for one garment and method
type ProfileKey struct {
	StyleNumber string         `json:"style_number"`
	Color       string         `json:"color,omitempty"`
	Method      pricing.Method `json:"method"`
}

// String returns a stable cache key
func (k ProfileKey) String() string {
	return strings.ToUpper(k.StyleNumber) + "|" + strings.ToUpper(k.Color) + "|" + string(k.Method)
}

// TierTableProvider returns the tier table for a product line
type TierTableProvider interface {
	FetchTiers(ctx context.Context, productLine string) (pricing.TierTable, error)
}

// PriceProfileProvider returns a ready-to-price product line for a garment
type PriceProfileProvider interface {
	FetchProfile(ctx context.Context, key ProfileKey) (*pricing.ProductLine, error)
}

// Source is a named provider of both tier tables and profiles
type Source interface {
	TierTableProvider
	PriceProfileProvider
	Name() string
}
