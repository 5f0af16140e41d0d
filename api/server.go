// Package api - Thin HTTP layer over the pricing engine
// The API is ONLY responsible for: request decoding, engine orchestration, response serialization.
// The API NEVER performs pricing logic.
package api

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"apparel-pricing/core/catalog"
	"apparel-pricing/core/provider"
	"apparel-pricing/core/quote"
	apperr "apparel-pricing/internal/errors"
	"apparel-pricing/internal/logging"
	"apparel-pricing/internal/metrics"
	"apparel-pricing/internal/store"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// QuoteStore persists saved quotes
type QuoteStore interface {
	Save(ctx context.Context, rec *quote.Record) (string, error)
	Get(ctx context.Context, id string) (*quote.Record, error)
	List(ctx context.Context, limit int) ([]store.Summary, error)
}

// Options configures a Server
type Options struct {
	Version string
	Catalog *catalog.Catalog
	// Source serves tier tables and style profiles; defaults to the catalog
	Source  provider.Source
	Quotes  QuoteStore
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Server is the API server
type Server struct {
	router  chi.Router
	catalog *catalog.Catalog
	source  provider.Source
	quotes  QuoteStore
	metrics *metrics.Metrics
	version string
	now     func() time.Time
	logger  *zap.Logger

	mu   sync.Mutex
	http *http.Server
}

// NewServer creates a new API server
func NewServer(opts Options) (*Server, error) {
	if opts.Catalog == nil {
		return nil, apperr.Config("api server requires a catalog")
	}
	if opts.Source == nil {
		opts.Source = provider.NewCatalogSource(opts.Catalog)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		router:  chi.NewRouter(),
		catalog: opts.Catalog,
		source:  opts.Source,
		quotes:  opts.Quotes,
		metrics: opts.Metrics,
		version: opts.Version,
		now:     opts.Now,
		logger:  logging.Named("api"),
	}

	s.registerRoutes()
	return s, nil
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(requestID)
	s.router.Use(s.instrument)

	// Core endpoints
	s.router.Post("/price", s.handlePrice)
	s.router.Post("/quotes", s.handleSaveQuote)
	s.router.Get("/quotes", s.handleListQuotes)
	s.router.Get("/quotes/{id}", s.handleGetQuote)

	// Supporting endpoints
	s.router.Get("/product-lines", s.handleProductLines)
	s.router.Get("/product-lines/{name}/tiers", s.handleTiers)
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/version", s.handleVersion)
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe starts the server and blocks until it stops
func (s *Server) ListenAndServe(addr string) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.http = hs
	s.mu.Unlock()

	s.logger.Info("listening", zap.String("addr", addr))
	if err := hs.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops a server started with ListenAndServe
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	hs := s.http
	s.mu.Unlock()
	if hs == nil {
		return nil
	}
	return hs.Shutdown(ctx)
}

type requestIDKey struct{}

const requestIDHeader = "X-Request-ID"

// requestID tags each request with an ID, honouring one sent by the caller
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// instrument records request metrics by route pattern and logs each request
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		s.metrics.ObserveRequest(route, strconv.Itoa(status), elapsed)
		s.logger.Debug("request",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed))
	})
}
