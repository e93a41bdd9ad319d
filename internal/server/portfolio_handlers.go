package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clarafin/clara/internal/domain"
)

func (s *Server) handlePortfolioList(w http.ResponseWriter, r *http.Request) {
	positions, err := s.portfolio.List()
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"positions": positions,
		"count":     len(positions),
	})
}

type addPositionRequest struct {
	Symbol  string  `json:"symbol"`
	Shares  float64 `json:"shares"`
	AvgCost float64 `json:"avg_cost"`
	Note    string  `json:"note"`
}

func (s *Server) handlePortfolioAdd(w http.ResponseWriter, r *http.Request) {
	var req addPositionRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	pos, merged, err := s.portfolio.Add(req.Symbol, req.Shares, req.AvgCost, req.Note)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	status := http.StatusCreated
	if merged {
		status = http.StatusOK
	}
	s.writeJSON(w, status, map[string]interface{}{
		"position": pos,
		"merged":   merged,
	})
}

func (s *Server) handlePortfolioGet(w http.ResponseWriter, r *http.Request) {
	pos, err := s.portfolio.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, pos)
}

type updatePositionRequest struct {
	Shares  *float64 `json:"shares,omitempty"`
	AvgCost *float64 `json:"avg_cost,omitempty"`
	Note    *string  `json:"note,omitempty"`
}

func (s *Server) handlePortfolioUpdate(w http.ResponseWriter, r *http.Request) {
	var req updatePositionRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	pos, err := s.portfolio.UpdateFields(chi.URLParam(r, "id"), req.Shares, req.AvgCost, req.Note)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, pos)
}

func (s *Server) handlePortfolioDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.portfolio.Remove(chi.URLParam(r, "id")); err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handlePortfolioClear(w http.ResponseWriter, r *http.Request) {
	removed, err := s.portfolio.RemoveAll()
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "cleared",
		"removed": removed,
	})
}

func (s *Server) handlePortfolioEnriched(w http.ResponseWriter, r *http.Request) {
	enriched, err := s.enricher.EnrichedPositions(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"positions": enriched,
		"count":     len(enriched),
	})
}

func (s *Server) handlePortfolioSummary(w http.ResponseWriter, r *http.Request) {
	enriched, summary, err := s.enricher.Summary(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"summary":   summary,
		"positions": enriched,
	})
}

// serviceError maps domain sentinel errors to HTTP status codes.
func (s *Server) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrEmptyPortfolio):
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.log.Error().Err(err).Msg("Request failed")
		s.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
