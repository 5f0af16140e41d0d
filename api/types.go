// Package api - API types for order pricing and saved quotes
// These types define the request/response contract of the HTTP API.
package api

import (
	"time"

	"apparel-pricing/core/pricing"
	"apparel-pricing/core/quote"
)

// PriceRequest is the input to POST /price.
// Either ProductLine names a catalog line, or Method with StyleNumber
// asks the profile provider for a style-specific line.
type PriceRequest struct {
	ProductLine string         `json:"product_line,omitempty"`
	Method      pricing.Method `json:"method,omitempty"`
	StyleNumber string         `json:"style_number,omitempty"`
	Color       string         `json:"color,omitempty"`

	Order pricing.OrderRequest `json:"order"`
}

// PriceResponse is the output of POST /price
type PriceResponse struct {
	RequestID string                 `json:"request_id"`
	Result    *pricing.PricingResult `json:"result"`
}

// SaveQuoteRequest is the input to POST /quotes
type SaveQuoteRequest struct {
	PriceRequest

	// Prefix defaults to the product line's quote prefix
	Prefix   string         `json:"prefix,omitempty"`
	Customer quote.Customer `json:"customer"`
	Notes    string         `json:"notes,omitempty"`
}

// QuoteResponse is a saved quote with its current status
type QuoteResponse struct {
	Quote  *quote.Record `json:"quote"`
	Status quote.Status  `json:"status"`
}

// ProductLineSummary describes one catalog line
type ProductLineSummary struct {
	Name        string         `json:"name"`
	Method      pricing.Method `json:"method"`
	QuotePrefix string         `json:"quote_prefix,omitempty"`
	Tiers       []string       `json:"tiers"`
	Styles      []string       `json:"styles,omitempty"`
	HasLTM      bool           `json:"has_ltm"`
}

// TiersResponse is the output of GET /product-lines/{name}/tiers
type TiersResponse struct {
	ProductLine string            `json:"product_line"`
	Source      string            `json:"source"`
	Tiers       pricing.TierTable `json:"tiers"`
}

// HealthResponse is the output of GET /health
type HealthResponse struct {
	Status       string    `json:"status"`
	Version      string    `json:"version"`
	ProductLines int       `json:"product_lines"`
	QuoteStore   bool      `json:"quote_store"`
	Time         time.Time `json:"time"`
}

// ErrorResponse wraps an ErrorDetail
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes an error
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
