package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordingMethods(t *testing.T) {
	m := New()

	m.ObserveRequest("/price", "200", 12*time.Millisecond)
	m.ObservePricing("embroidery", "ok", 20, 290)
	m.ObservePricing("embroidery", "price_not_found", 0, 0)
	m.ObserveCache("hit")
	m.ObserveCache("miss")
	m.ObserveCache("miss")
	m.ObserveFetch("bundle", "error")
	m.SetBreakerState("pricing-bundle", 2)
	m.ObserveQuoteSaved("EMB")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("/price", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Pricings.WithLabelValues("embroidery", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BreakerState.WithLabelValues("pricing-bundle")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QuotesSaved.WithLabelValues("EMB")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("/health", "200", time.Millisecond)
		m.ObservePricing("x", "ok", 1, 1)
		m.ObserveCache("hit")
		m.ObserveFetch("catalog", "ok")
		m.SetBreakerState("x", 0)
		m.ObserveQuoteSaved("EMB")
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveCache("hit")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "apparel_pricing_provider_cache_lookups_total"))
}
