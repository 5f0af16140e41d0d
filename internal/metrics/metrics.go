// Package metrics holds the Prometheus collectors for the pricing service.
// All recording methods are safe to call on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "apparel_pricing"

// Metrics is the set of collectors registered on one registry
type Metrics struct {
	registry *prometheus.Registry

	Requests        *prometheus.CounterVec
	LatencyMS       *prometheus.HistogramVec
	Pricings        *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec
	SourceFetches   *prometheus.CounterVec
	BreakerState    *prometheus.GaugeVec
	QuotesSaved     *prometheus.CounterVec
	OrderQuantity   *prometheus.HistogramVec
	OrderGrandTotal *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry, with Go and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}, []string{"route"}),
		Pricings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "orders_priced_total",
			Help:      "Orders priced, by product line and outcome.",
		}, []string{"product_line", "outcome"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "cache_lookups_total",
			Help:      "Provider cache lookups by result (hit, miss, expired, stale).",
		}, []string{"result"}),
		SourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "source_fetches_total",
			Help:      "Fetches from pricing sources by source and outcome.",
		}, []string{"source", "outcome"}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open).",
		}, []string{"name"}),
		QuotesSaved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "quotes_saved_total",
			Help:      "Quotes persisted, by quote prefix.",
		}, []string{"prefix"}),
		OrderQuantity: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "order_quantity",
			Help:      "Total pieces per priced order.",
			Buckets:   []float64{12, 24, 48, 72, 144, 288, 576, 1000, 5000},
		}, []string{"product_line"}),
		OrderGrandTotal: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "order_grand_total_dollars",
			Help:      "Grand total per priced order in dollars.",
			Buckets:   prometheus.ExponentialBuckets(50, 2, 10),
		}, []string{"product_line"}),
	}

	reg.MustRegister(
		m.Requests, m.LatencyMS, m.Pricings, m.CacheLookups, m.SourceFetches,
		m.BreakerState, m.QuotesSaved, m.OrderQuantity, m.OrderGrandTotal,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one HTTP request
func (m *Metrics) ObserveRequest(route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(route, status).Inc()
	m.LatencyMS.WithLabelValues(route).Observe(float64(elapsed.Milliseconds()))
}

// ObservePricing records a pricing outcome; quantity and total are only
// recorded for successful orders.
func (m *Metrics) ObservePricing(productLine, outcome string, quantity int, grandTotal float64) {
	if m == nil {
		return
	}
	m.Pricings.WithLabelValues(productLine, outcome).Inc()
	if outcome == "ok" {
		m.OrderQuantity.WithLabelValues(productLine).Observe(float64(quantity))
		m.OrderGrandTotal.WithLabelValues(productLine).Observe(grandTotal)
	}
}

// ObserveCache records a cache lookup result
func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveFetch records a source fetch outcome
func (m *Metrics) ObserveFetch(source, outcome string) {
	if m == nil {
		return
	}
	m.SourceFetches.WithLabelValues(source, outcome).Inc()
}

// SetBreakerState records a circuit breaker state
func (m *Metrics) SetBreakerState(name string, state float64) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(name).Set(state)
}

// ObserveQuoteSaved counts a persisted quote
func (m *Metrics) ObserveQuoteSaved(prefix string) {
	if m == nil {
		return
	}
	m.QuotesSaved.WithLabelValues(prefix).Inc()
}
