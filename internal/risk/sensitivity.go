package risk

import (
	"context"
	"math"
	"sort"

	"github.com/clarafin/clara/internal/domain"
)

// DefaultSensitivityFactors is the standard one-factor-at-a-time sweep.
var DefaultSensitivityFactors = []string{
	"equity_vol",
	"beta",
	"correlation",
	"concentration",
	"rates",
}

// DefaultPerturbation is the standard perturbation range (±20%).
const DefaultPerturbation = 0.20

// FactorDescription returns a human-readable description of a risk factor.
func FactorDescription(factorName string) string {
	descriptions := map[string]string{
		"equity_vol":    "Equity market volatility",
		"beta":          "Systematic risk (beta)",
		"correlation":   "Inter-asset correlation",
		"concentration": "Position concentration",
		"rates":         "Interest rate sensitivity",
		"credit_spread": "Credit spread widening",
		"fx":            "Foreign exchange rates",
		"commodity":     "Commodity prices",
	}
	if d, ok := descriptions[factorName]; ok {
		return d
	}
	return factorName
}

// perturbPositions returns a copy of the portfolio with one risk factor
// shifted by the given fraction. Unknown factors return an unchanged copy.
func perturbPositions(positions []domain.EnrichedPosition, factorName string, perturbation float64) []domain.EnrichedPosition {
	perturbed := make([]domain.EnrichedPosition, len(positions))
	for i, pos := range positions {
		p := pos
		switch factorName {
		case "equity_vol", "beta":
			p.Beta = pos.Beta * (1 + perturbation)
		case "correlation":
			p.Beta = pos.Beta * (1 + perturbation*0.5)
		case "concentration":
			p.MarketValue = pos.MarketValue * (1 + perturbation)
		case "rates":
			// Rate moves hit rate-sensitive sectors harder.
			if pos.Sector == "Financials" || pos.Sector == "Real Estate" {
				p.Beta = pos.Beta * (1 + perturbation*1.5)
			} else {
				p.Beta = pos.Beta * (1 + perturbation*0.5)
			}
		}
		perturbed[i] = p
	}
	return perturbed
}

// varAt extracts the 1-day VaR at a confidence level from a multi-VaR result.
func varAt(result domain.MultiVaRResult, confidenceLevel float64) float64 {
	for _, r := range result.Results {
		if r.ConfidenceLevel == confidenceLevel && r.TimeHorizon == 1 {
			return r.VaRAmount
		}
	}
	return 0
}

// AnalyzeFactorSensitivity measures how the 1-day VaR moves when a single
// factor is perturbed down and up by the given range.
func (c *Calculator) AnalyzeFactorSensitivity(ctx context.Context, positions []domain.EnrichedPosition, factorName string, confidenceLevel, perturbation float64) domain.SensitivityResult {
	baseVaR := varAt(c.ComputeMultiVaR(ctx, positions, nil, nil), confidenceLevel)

	low := perturbPositions(positions, factorName, -perturbation)
	lowVaR := varAt(c.ComputeMultiVaR(ctx, low, nil, nil), confidenceLevel)

	high := perturbPositions(positions, factorName, perturbation)
	highVaR := varAt(c.ComputeMultiVaR(ctx, high, nil, nil), confidenceLevel)

	impactRange := highVaR - lowVaR
	impactPct := 0.0
	if baseVaR > 0 {
		impactPct = impactRange / baseVaR * 100
	}

	return domain.SensitivityResult{
		FactorName:  factorName,
		BaseVaR:     baseVaR,
		LowVaR:      lowVaR,
		HighVaR:     highVaR,
		ImpactRange: math.Abs(impactRange),
		ImpactPct:   math.Abs(impactPct),
	}
}

// RunSensitivityAnalysis sweeps every factor and returns the tornado data
// sorted descending by impact. A nil factor list uses the default sweep.
func (c *Calculator) RunSensitivityAnalysis(ctx context.Context, positions []domain.EnrichedPosition, factors []string, confidenceLevel, perturbation float64) domain.TornadoData {
	if len(factors) == 0 {
		factors = DefaultSensitivityFactors
	}
	if confidenceLevel == 0 {
		confidenceLevel = 0.95
	}
	if perturbation == 0 {
		perturbation = DefaultPerturbation
	}

	baseVaR := varAt(c.ComputeMultiVaR(ctx, positions, nil, nil), confidenceLevel)

	results := make([]domain.SensitivityResult, 0, len(factors))
	for _, factorName := range factors {
		c.log.Debug().Str("factor", factorName).Msg("Analyzing factor sensitivity")
		results = append(results, c.AnalyzeFactorSensitivity(ctx, positions, factorName, confidenceLevel, perturbation))
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].ImpactRange > results[j].ImpactRange
	})

	return domain.TornadoData{
		PortfolioID:    "default",
		Factors:        results,
		BaseVaR:        baseVaR,
		SortedByImpact: true,
	}
}
