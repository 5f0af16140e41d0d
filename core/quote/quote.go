// Package quote - Saved quotes
// A quote record freezes a priced order with its customer and expiry.
// IDs are PREFIXMMDD-SEQ, e.g. EMB0314-3, with a per-day sequence.
package quote

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"apparel-pricing/core/pricing"
	apperr "apparel-pricing/internal/errors"
)

// Validity is how long a saved quote stays honourable
const Validity = 30 * 24 * time.Hour

// Status of a saved quote
type Status string

const (
	StatusOpen    Status = "open"
	StatusExpired Status = "expired"
)

var idPattern = regexp.MustCompile(`^([A-Z]+)(\d{4})-(\d+)$`)

// Customer is who the quote is for
type Customer struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Company string `json:"company,omitempty"`
}

// Item is one priced line of a saved quote
type Item struct {
	LineNumber  int                        `json:"line_number"`
	StyleNumber string                     `json:"style_number"`
	Color       string                     `json:"color"`
	Quantity    int                        `json:"quantity"`
	Sizes       map[string]int             `json:"sizes"`
	UnitPrices  map[string]decimal.Decimal `json:"unit_prices"`
	Subtotal    decimal.Decimal            `json:"subtotal"`
}

// Record is a saved quote
type Record struct {
	ID          string                 `json:"id"`
	Prefix      string                 `json:"prefix"`
	SessionID   string                 `json:"session_id"`
	Customer    Customer               `json:"customer"`
	ProductLine string                 `json:"product_line"`
	Notes       string                 `json:"notes,omitempty"`
	Result      *pricing.PricingResult `json:"result"`
	CreatedAt   time.Time              `json:"created_at"`
	ExpiresAt   time.Time              `json:"expires_at"`
}

// New builds an unsaved record; the store assigns the ID
func New(prefix string, customer Customer, result *pricing.PricingResult, now time.Time) (*Record, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if !isPrefix(prefix) {
		return nil, apperr.Inputf("quote prefix must be letters only, got %q", prefix)
	}
	if result == nil {
		return nil, apperr.Input("quote has no pricing result")
	}
	if result.TotalQuantity == 0 {
		return nil, apperr.Input("cannot save a quote for zero items")
	}
	if strings.TrimSpace(customer.Name) == "" {
		return nil, apperr.Input("customer name is required")
	}

	return &Record{
		Prefix:      prefix,
		SessionID:   uuid.NewString(),
		Customer:    customer,
		ProductLine: result.ProductLine,
		Result:      result,
		CreatedAt:   now.UTC(),
		ExpiresAt:   now.UTC().Add(Validity),
	}, nil
}

// Status reports whether the quote can still be honoured at now
func (r *Record) Status(now time.Time) Status {
	if !now.Before(r.ExpiresAt) {
		return StatusExpired
	}
	return StatusOpen
}

// Items flattens the priced lines
func (r *Record) Items() []Item {
	if r.Result == nil {
		return nil
	}
	items := make([]Item, 0, len(r.Result.Lines))
	for i, line := range r.Result.Lines {
		sizes := make(map[string]int, len(line.Sizes))
		for _, s := range line.Sizes {
			sizes[s.Size] = s.Quantity
		}
		items = append(items, Item{
			LineNumber:  i + 1,
			StyleNumber: line.StyleNumber,
			Color:       line.Color,
			Quantity:    line.Quantity,
			Sizes:       sizes,
			UnitPrices:  line.PerSizeUnitPrice,
			Subtotal:    line.Subtotal,
		})
	}
	return items
}

// FormatID builds a quote ID from its parts
func FormatID(prefix string, day time.Time, seq int) string {
	return fmt.Sprintf("%s%s-%d", prefix, day.Format("0102"), seq)
}

// ParseID splits a quote ID into prefix, MMDD and sequence
func ParseID(id string) (prefix, monthDay string, seq int, err error) {
	m := idPattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(id)))
	if m == nil {
		return "", "", 0, apperr.Inputf("malformed quote ID %q", id)
	}
	seq, err = strconv.Atoi(m[3])
	if err != nil || seq < 1 {
		return "", "", 0, apperr.Inputf("malformed quote ID %q", id)
	}
	return m[1], m[2], seq, nil
}

func isPrefix(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
