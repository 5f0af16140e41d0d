package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apparel-pricing/core/pricing"
	"apparel-pricing/core/quote"
	apperr "apparel-pricing/internal/errors"
	"apparel-pricing/internal/metrics"
)

func openTestStore(t *testing.T) (*Store, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	s, err := Open(filepath.Join(t.TempDir(), "data", "quotes.db"), m)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, m
}

func pricedOrder() *pricing.PricingResult {
	return &pricing.PricingResult{
		ProductLine:   "embroidery",
		TierLabel:     "1-23",
		TotalQuantity: 20,
		Lines: []pricing.LinePricing{{
			StyleNumber: "PC54",
			Color:       "Navy",
			Quantity:    20,
			Sizes: []pricing.SizeLine{
				{Size: "S", SizeGroup: "S-XL", Quantity: 10, UnitPrice: decimal.NewFromInt(12), Total: decimal.NewFromInt(120)},
				{Size: "M", SizeGroup: "S-XL", Quantity: 10, UnitPrice: decimal.NewFromInt(12), Total: decimal.NewFromInt(120)},
			},
			PerSizeUnitPrice: map[string]decimal.Decimal{"S": decimal.NewFromInt(12), "M": decimal.NewFromInt(12)},
			Subtotal:         decimal.NewFromInt(240),
		}},
		Subtotal:    decimal.NewFromInt(240),
		LTMFeeTotal: decimal.NewFromInt(50),
		GrandTotal:  decimal.NewFromInt(290),
	}
}

func newRecord(t *testing.T, at time.Time) *quote.Record {
	t.Helper()
	rec, err := quote.New("EMB", quote.Customer{Name: "Acme Rowing", Email: "orders@acme.test"}, pricedOrder(), at)
	require.NoError(t, err)
	return rec
}

func TestSaveAndGet(t *testing.T) {
	s, m := openTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

	rec := newRecord(t, at)
	rec.Notes = "rush"
	id, err := s.Save(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, "EMB0314-1", id)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.QuotesSaved.WithLabelValues("EMB")))

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, rec.SessionID, got.SessionID)
	assert.Equal(t, "Acme Rowing", got.Customer.Name)
	assert.Equal(t, "orders@acme.test", got.Customer.Email)
	assert.Equal(t, "rush", got.Notes)
	assert.True(t, at.Equal(got.CreatedAt))
	assert.True(t, rec.ExpiresAt.Equal(got.ExpiresAt))
	assert.True(t, decimal.NewFromInt(290).Equal(got.Result.GrandTotal))
	assert.True(t, decimal.NewFromInt(50).Equal(got.Result.LTMFeeTotal))
	require.Len(t, got.Result.Lines, 1)
	assert.Len(t, got.Result.Lines[0].Sizes, 2)

	items, err := s.Items(ctx, id)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, map[string]int{"S": 10, "M": 10}, items[0].Sizes)
	assert.True(t, decimal.NewFromInt(12).Equal(items[0].UnitPrices["M"]))
	assert.True(t, decimal.NewFromInt(240).Equal(items[0].Subtotal))
}

func TestSaveSequencesPerDay(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := s.Save(ctx, newRecord(t, day.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	assert.Equal(t, []string{"EMB0314-1", "EMB0314-2", "EMB0314-3"}, ids)

	next, err := s.Save(ctx, newRecord(t, day.Add(24*time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "EMB0315-1", next)

	other, err := quote.New("lsr", quote.Customer{Name: "Trail Co"}, pricedOrder(), day)
	require.NoError(t, err)
	id, err := s.Save(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, "LSR0314-1", id)

	list, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "EMB0315-1", list[0].ID)
	assert.True(t, decimal.NewFromInt(290).Equal(list[0].GrandTotal))
}

func TestSaveRejectsSavedRecord(t *testing.T) {
	s, _ := openTestStore(t)
	rec := newRecord(t, time.Now())
	_, err := s.Save(context.Background(), rec)
	require.NoError(t, err)

	_, err = s.Save(context.Background(), rec)
	assert.Equal(t, apperr.TypeInput, apperr.TypeOf(err))

	_, err = s.Save(context.Background(), nil)
	assert.Equal(t, apperr.TypeInput, apperr.TypeOf(err))
}

func TestGetUnknown(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "EMB0101-9")
	assert.Equal(t, apperr.TypeNotFound, apperr.TypeOf(err))

	_, err = s.Items(ctx, "EMB0101-9")
	assert.Equal(t, apperr.TypeNotFound, apperr.TypeOf(err))

	_, err = s.Get(ctx, "not-an-id")
	assert.Equal(t, apperr.TypeInput, apperr.TypeOf(err))
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quotes.db")
	s, err := Open(path, nil)
	require.NoError(t, err)
	_, err = s.Save(context.Background(), newRecord(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, nil)
	require.NoError(t, err)
	defer s.Close()

	id, err := s.Save(context.Background(), newRecord(t, time.Date(2026, 5, 1, 1, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, "EMB0501-2", id)
}
