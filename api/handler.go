package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"apparel-pricing/core/pricing"
	"apparel-pricing/core/provider"
	"apparel-pricing/core/quote"
	apperr "apparel-pricing/internal/errors"
)

// handlePrice handles POST /price
func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	var req PriceRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, _, err := s.price(r.Context(), &req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, &PriceResponse{
		RequestID: requestIDFrom(r.Context()),
		Result:    result,
	}, http.StatusOK)
}

// handleSaveQuote handles POST /quotes
func (s *Server) handleSaveQuote(w http.ResponseWriter, r *http.Request) {
	if s.quotes == nil {
		s.writeError(w, r, apperr.Unavailable("quote storage is not configured", nil))
		return
	}

	var req SaveQuoteRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, line, err := s.price(r.Context(), &req.PriceRequest)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	prefix := req.Prefix
	if prefix == "" {
		prefix = line.QuotePrefix
	}
	if prefix == "" {
		s.writeError(w, r, apperr.Inputf("product line %q has no quote prefix; pass one", line.Name))
		return
	}

	rec, err := quote.New(prefix, req.Customer, result, s.now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rec.Notes = req.Notes

	if _, err := s.quotes.Save(r.Context(), rec); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/quotes/"+rec.ID)
	s.writeJSON(w, &QuoteResponse{Quote: rec, Status: rec.Status(s.now())}, http.StatusCreated)
}

// handleGetQuote handles GET /quotes/{id}
func (s *Server) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	if s.quotes == nil {
		s.writeError(w, r, apperr.Unavailable("quote storage is not configured", nil))
		return
	}

	rec, err := s.quotes.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, &QuoteResponse{Quote: rec, Status: rec.Status(s.now())}, http.StatusOK)
}

// handleListQuotes handles GET /quotes
func (s *Server) handleListQuotes(w http.ResponseWriter, r *http.Request) {
	if s.quotes == nil {
		s.writeError(w, r, apperr.Unavailable("quote storage is not configured", nil))
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, r, apperr.Inputf("invalid limit %q", v))
			return
		}
		limit = n
	}

	quotes, err := s.quotes.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{
		"quotes": quotes,
		"count":  len(quotes),
	}, http.StatusOK)
}

// handleProductLines handles GET /product-lines
func (s *Server) handleProductLines(w http.ResponseWriter, r *http.Request) {
	lines := make([]ProductLineSummary, 0, s.catalog.Len())
	for _, name := range s.catalog.Names() {
		entry, _ := s.catalog.Get(name)
		labels := make([]string, 0, len(entry.Line.Tiers))
		for _, t := range entry.Line.Tiers {
			labels = append(labels, t.Label)
		}
		lines = append(lines, ProductLineSummary{
			Name:        name,
			Method:      entry.Line.Method,
			QuotePrefix: entry.Line.QuotePrefix,
			Tiers:       labels,
			Styles:      entry.Styles,
			HasLTM:      entry.Line.LTM.Enabled(),
		})
	}
	s.writeJSON(w, map[string]interface{}{
		"product_lines": lines,
		"count":         len(lines),
	}, http.StatusOK)
}

// handleTiers handles GET /product-lines/{name}/tiers
func (s *Server) handleTiers(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	tiers, err := s.source.FetchTiers(r.Context(), name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, &TiersResponse{ProductLine: name, Source: s.source.Name(), Tiers: tiers}, http.StatusOK)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, &HealthResponse{
		Status:       "healthy",
		Version:      s.version,
		ProductLines: s.catalog.Len(),
		QuoteStore:   s.quotes != nil,
		Time:         s.now().UTC().Truncate(time.Second),
	}, http.StatusOK)
}

// handleVersion handles GET /version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{
		"version":     s.version,
		"engine":      "apparel-pricing",
		"api_version": "v1",
	}, http.StatusOK)
}

// price resolves the product line for a request and prices its order
func (s *Server) price(ctx context.Context, req *PriceRequest) (*pricing.PricingResult, pricing.ProductLine, error) {
	engine, err := s.engineFor(ctx, req)
	if err != nil {
		return nil, pricing.ProductLine{}, err
	}
	line := engine.Line()

	result, err := engine.PriceOrder(req.Order)
	if err != nil {
		s.metrics.ObservePricing(line.Name, string(apperr.TypeOf(err)), 0, 0)
		return nil, line, err
	}

	grand, _ := result.GrandTotal.Float64()
	s.metrics.ObservePricing(line.Name, "ok", result.TotalQuantity, grand)
	s.logger.Info("order priced",
		zap.String("request_id", requestIDFrom(ctx)),
		zap.String("product_line", line.Name),
		zap.String("tier", result.TierLabel),
		zap.Int("quantity", result.TotalQuantity),
		zap.String("grand_total", result.GrandTotal.StringFixed(2)))
	return result, line, nil
}

func (s *Server) engineFor(ctx context.Context, req *PriceRequest) (*pricing.Engine, error) {
	if req.ProductLine != "" {
		return s.catalog.Engine(req.ProductLine)
	}
	if req.Method == "" || req.StyleNumber == "" {
		return nil, apperr.Input("product_line, or method with style_number, is required")
	}

	line, err := s.source.FetchProfile(ctx, provider.ProfileKey{
		StyleNumber: req.StyleNumber,
		Color:       req.Color,
		Method:      req.Method,
	})
	if err != nil {
		return nil, err
	}
	return pricing.NewEngine(*line)
}

// decode reads a JSON body; on failure it writes the error and returns false
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, r, apperr.Wrap(apperr.TypeInput, "invalid JSON body", err))
		return false
	}
	return true
}

// statusFor maps an error to its HTTP status and public code
func statusFor(err error) (int, string) {
	switch t := apperr.TypeOf(err); t {
	case apperr.TypeInput:
		return http.StatusBadRequest, string(t)
	case apperr.TypeConfig, apperr.TypePriceNotFound:
		return http.StatusUnprocessableEntity, "PRICING_UNAVAILABLE"
	case apperr.TypeSourceUnavailable:
		return http.StatusServiceUnavailable, string(t)
	case apperr.TypeNotFound:
		return http.StatusNotFound, string(t)
	default:
		return http.StatusInternalServerError, string(apperr.TypeInternal)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	detail := ErrorDetail{
		Code:      code,
		Message:   err.Error(),
		RequestID: requestIDFrom(r.Context()),
	}
	switch {
	case code == "PRICING_UNAVAILABLE":
		detail.Message = "Call for quote"
		detail.Detail = err.Error()
	case status == http.StatusInternalServerError:
		detail.Message = "internal error"
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", detail.RequestID),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	} else {
		s.logger.Warn("request rejected",
			zap.String("request_id", detail.RequestID),
			zap.String("path", r.URL.Path),
			zap.String("code", code),
			zap.Error(err))
	}
	s.writeJSON(w, &ErrorResponse{Error: detail}, status)
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("write response", zap.Error(err))
	}
}
