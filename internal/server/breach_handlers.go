package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clarafin/clara/internal/breach"
	"github.com/clarafin/clara/internal/domain"
)

const defaultPortfolioID = "default"

// portfolioID reads the portfolio id from the query string, falling back to
// the single-portfolio default.
func portfolioID(r *http.Request) string {
	if id := r.URL.Query().Get("portfolio_id"); id != "" {
		return id
	}
	return defaultPortfolioID
}

type breachConfigureRequest struct {
	PortfolioID         string                   `json:"portfolio_id"`
	Thresholds          []domain.BreachThreshold `json:"thresholds"`
	NotificationEnabled bool                     `json:"notification_enabled"`
	NotificationEmails  []string                 `json:"notification_emails"`
}

func (s *Server) handleBreachConfigure(w http.ResponseWriter, r *http.Request) {
	var req breachConfigureRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.PortfolioID == "" {
		req.PortfolioID = defaultPortfolioID
	}
	if len(req.Thresholds) == 0 {
		s.writeError(w, http.StatusBadRequest, "thresholds is required")
		return
	}
	for _, t := range req.Thresholds {
		if t.Metric == "" || t.Threshold <= 0 {
			s.writeError(w, http.StatusBadRequest, "each threshold needs a metric and a positive threshold")
			return
		}
	}

	cfg := s.breachMonitor.Configure(req.PortfolioID, req.Thresholds, req.NotificationEnabled, req.NotificationEmails)
	s.writeJSON(w, http.StatusOK, cfg)
}

type breachThresholdRequest struct {
	PortfolioID string  `json:"portfolio_id"`
	Metric      string  `json:"metric"`
	Threshold   float64 `json:"threshold"`
	Enabled     bool    `json:"enabled"`
}

func (s *Server) handleBreachThreshold(w http.ResponseWriter, r *http.Request) {
	var req breachThresholdRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.PortfolioID == "" {
		req.PortfolioID = defaultPortfolioID
	}
	if req.Metric == "" || req.Threshold <= 0 {
		s.writeError(w, http.StatusBadRequest, "metric and a positive threshold are required")
		return
	}

	if err := s.breachMonitor.UpdateThreshold(req.PortfolioID, req.Metric, req.Threshold, req.Enabled); err != nil {
		s.serviceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.breachMonitor.GetConfig(req.PortfolioID))
}

func (s *Server) handleBreachCheck(w http.ResponseWriter, r *http.Request) {
	id := portfolioID(r)

	enriched, summary, err := s.enricher.Summary(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}

	result := s.calculator.ComputeMultiVaR(r.Context(), enriched, nil, nil)
	snapshot := breach.MetricSnapshot{
		TotalValue:       summary.TotalValue,
		TotalGainLossPct: summary.TotalGainLossPct,
	}
	for _, vr := range result.Results {
		switch {
		case vr.ConfidenceLevel == 0.95 && vr.TimeHorizon == 1:
			snapshot.VaR95 = vr.VaRAmount
			snapshot.ES95 = vr.ESAmount
		case vr.ConfidenceLevel == 0.99 && vr.TimeHorizon == 1:
			snapshot.VaR99 = vr.VaRAmount
			snapshot.ES99 = vr.ESAmount
		case vr.ConfidenceLevel == 0.95 && vr.TimeHorizon == 10:
			snapshot.VaR10D95 = vr.VaRAmount
		case vr.ConfidenceLevel == 0.99 && vr.TimeHorizon == 10:
			snapshot.VaR10D99 = vr.VaRAmount
		}
	}

	breaches := s.breachMonitor.CheckBreaches(id, snapshot)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"portfolio_id": id,
		"breaches":     breaches,
		"count":        len(breaches),
	})
}

func (s *Server) handleBreachHistory(w http.ResponseWriter, r *http.Request) {
	id := portfolioID(r)
	days := queryInt(r, "days", 30)
	metric := r.URL.Query().Get("metric")
	s.writeJSON(w, http.StatusOK, s.breachMonitor.History(id, days, metric))
}

func (s *Server) handleBreachCurrent(w http.ResponseWriter, r *http.Request) {
	id := portfolioID(r)
	current := s.breachMonitor.Current(id)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"portfolio_id": id,
		"breaches":     current,
		"count":        len(current),
	})
}

func (s *Server) handleBreachAcknowledge(w http.ResponseWriter, r *http.Request) {
	id := portfolioID(r)
	breachID := chi.URLParam(r, "id")
	if !s.breachMonitor.Acknowledge(id, breachID) {
		s.writeError(w, http.StatusNotFound, "breach not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "acknowledged"})
}

func (s *Server) handleBreachClear(w http.ResponseWriter, r *http.Request) {
	id := portfolioID(r)
	removed := s.breachMonitor.ClearHistory(id)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"portfolio_id": id,
		"removed":      removed,
	})
}
