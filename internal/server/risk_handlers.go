package server

import (
	"net/http"
	"sort"

	"github.com/clarafin/clara/internal/advisory"
	"github.com/clarafin/clara/internal/domain"
	"github.com/clarafin/clara/internal/risk"
)

type multiVaRRequest struct {
	ConfidenceLevels  []float64 `json:"confidence_levels,omitempty"`
	TimeHorizons      []int     `json:"time_horizons,omitempty"`
	Distribution      string    `json:"distribution,omitempty"`
	UseAdvisor        bool      `json:"use_advisor,omitempty"`
	HistoricalReturns []float64 `json:"historical_returns,omitempty"`
}

func (s *Server) handleMultiVaR(w http.ResponseWriter, r *http.Request) {
	var cfg *risk.CalcConfig
	var historical []float64

	if r.Method == http.MethodPost {
		var req multiVaRRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		cfg = &risk.CalcConfig{
			ConfidenceLevels: req.ConfidenceLevels,
			TimeHorizons:     req.TimeHorizons,
			Distribution:     domain.DistributionType(req.Distribution),
			UseAdvisor:       req.UseAdvisor,
		}
		historical = req.HistoricalReturns
	} else if s.cfg.DistributionModel != "" && s.cfg.DistributionModel != "auto" {
		cfg = &risk.CalcConfig{Distribution: domain.DistributionType(s.cfg.DistributionModel)}
	}

	enriched, err := s.enricher.EnrichedPositions(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}

	result := s.calculator.ComputeMultiVaR(r.Context(), enriched, cfg, historical)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRiskContributors(w http.ResponseWriter, r *http.Request) {
	enriched, err := s.enricher.EnrichedPositions(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	contributors := risk.ComputeRiskContributors(enriched)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"contributors": contributors,
		"count":        len(contributors),
	})
}

func (s *Server) handleMonteCarlo(w http.ResponseWriter, r *http.Request) {
	paths := queryInt(r, "paths", s.cfg.MonteCarloPaths)
	if paths < 100 || paths > 1_000_000 {
		s.writeError(w, http.StatusBadRequest, "paths must be between 100 and 1000000")
		return
	}

	enriched, err := s.enricher.EnrichedPositions(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}

	result := s.calculator.RunMonteCarlo(enriched, paths)
	s.writeJSON(w, http.StatusOK, result)
}

type sensitivityRequest struct {
	Factors         []string `json:"factors,omitempty"`
	ConfidenceLevel float64  `json:"confidence_level,omitempty"`
	Perturbation    float64  `json:"perturbation,omitempty"`
}

func (s *Server) handleSensitivity(w http.ResponseWriter, r *http.Request) {
	var req sensitivityRequest
	if r.Method == http.MethodPost {
		if !s.decodeJSON(w, r, &req) {
			return
		}
	}

	enriched, err := s.enricher.EnrichedPositions(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}

	tornado := s.calculator.RunSensitivityAnalysis(r.Context(), enriched, req.Factors, req.ConfidenceLevel, req.Perturbation)
	s.writeJSON(w, http.StatusOK, tornado)
}

func (s *Server) handleAdvisoryAnalysis(w http.ResponseWriter, r *http.Request) {
	enriched, summary, err := s.enricher.Summary(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	if len(enriched) == 0 {
		s.writeError(w, http.StatusUnprocessableEntity, domain.ErrEmptyPortfolio.Error())
		return
	}

	payload := advisory.PortfolioPayload{
		TotalValue:       summary.TotalValue,
		TotalGainLossPct: summary.TotalGainLossPct,
		PortfolioBeta:    summary.PortfolioBeta,
		VaR1D95:          summary.VaR1D95,
		PositionsCount:   summary.PositionsCount,
		TopHoldings:      topHoldings(enriched, 5),
	}

	result := s.advisory.AnalyzePortfolio(r.Context(), payload)
	s.writeJSON(w, http.StatusOK, result)
}

// topHoldings returns the n largest positions by portfolio weight.
func topHoldings(positions []domain.EnrichedPosition, n int) []advisory.Holding {
	sorted := make([]domain.EnrichedPosition, len(positions))
	copy(sorted, positions)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Weight > sorted[j].Weight
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	holdings := make([]advisory.Holding, len(sorted))
	for i, p := range sorted {
		holdings[i] = advisory.Holding{Symbol: p.Symbol, WeightPct: p.Weight}
	}
	return holdings
}
