package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/clarafin/clara/internal/quotes"
)

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	quote := s.cascade.ResolveQuote(r.Context(), symbol)
	s.writeJSON(w, http.StatusOK, quote)
}

type batchQuotesRequest struct {
	Symbols []string `json:"symbols"`
}

func (s *Server) handleBatchQuotes(w http.ResponseWriter, r *http.Request) {
	var req batchQuotesRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if len(req.Symbols) == 0 {
		s.writeError(w, http.StatusBadRequest, "symbols is required")
		return
	}

	qts := s.cascade.ResolveQuoteBatch(r.Context(), req.Symbols)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"quotes": qts,
		"count":  len(qts),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	days := queryInt(r, "days", 90)
	if days < 1 {
		s.writeError(w, http.StatusBadRequest, "days must be positive")
		return
	}

	bars := s.cascade.ResolveHistory(r.Context(), symbol, days)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"days":   days,
		"bars":   bars,
	})
}

func (s *Server) handleIndicators(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	days := queryInt(r, "days", 180)

	bars := s.cascade.ResolveHistory(r.Context(), symbol, days)
	indicators := quotes.ComputeIndicators(bars)
	if indicators == nil {
		s.writeError(w, http.StatusUnprocessableEntity, "not enough history to compute indicators")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":     symbol,
		"bars":       len(bars),
		"indicators": indicators,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	matches := quotes.Search(query, queryInt(r, "limit", 10))
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"query":   query,
		"matches": matches,
		"count":   len(matches),
	})
}

func (s *Server) handleSourceStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"sources": s.cascade.Status(),
	})
}

func (s *Server) handleRateStatus(w http.ResponseWriter, r *http.Request) {
	if s.alphaVantage == nil {
		s.writeError(w, http.StatusNotFound, "alphavantage client not configured")
		return
	}
	s.writeJSON(w, http.StatusOK, s.alphaVantage.Status())
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
