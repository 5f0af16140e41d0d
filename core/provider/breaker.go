package provider

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	apperr "apparel-pricing/internal/errors"
	"apparel-pricing/internal/logging"
	"apparel-pricing/internal/metrics"
)

// BreakerConfig holds configuration for a circuit breaker
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32        // requests allowed while half-open
	Interval         time.Duration // closed-state window for clearing counts; 0 never clears
	Timeout          time.Duration // how long the breaker stays open
	FailureThreshold uint32        // consecutive failures that trip the breaker
}

// DefaultBreakerConfig returns the defaults used for the pricing backend
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// Breaker wraps gobreaker with logging and metrics
type Breaker struct {
	cb      *gobreaker.CircuitBreaker
	name    string
	metrics *metrics.Metrics
}

// NewBreaker creates a new circuit breaker
func NewBreaker(cfg BreakerConfig, m *metrics.Metrics) *Breaker {
	logger := logging.Named("breaker")
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 1
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			m.SetBreakerState(name, float64(to))
		},
		// Input and lookup misses are answers, not backend faults.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			switch apperr.TypeOf(err) {
			case apperr.TypeNotFound, apperr.TypeInput:
				return true
			}
			return errors.Is(err, context.Canceled)
		},
	}

	m.SetBreakerState(cfg.Name, float64(gobreaker.StateClosed))
	return &Breaker{
		cb:      gobreaker.NewCircuitBreaker(settings),
		name:    cfg.Name,
		metrics: m,
	}
}

// Execute runs fn through the breaker. An open breaker fails fast with a
// SOURCE_UNAVAILABLE error.
func (b *Breaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(fn)

	switch {
	case errors.Is(err, gobreaker.ErrOpenState):
		logging.Warn("circuit breaker is open", zap.String("name", b.name))
		return nil, apperr.Unavailable("pricing source temporarily unavailable: circuit open for "+b.name, err)
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, apperr.Unavailable("pricing source temporarily unavailable: too many requests for "+b.name, err)
	}

	return result, err
}

// State returns the current state of the circuit breaker
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Name returns the circuit breaker name
func (b *Breaker) Name() string {
	return b.name
}
