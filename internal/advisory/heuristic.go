package advisory

import (
	"fmt"

	"github.com/clarafin/clara/internal/domain"
)

// heuristicPortfolioAnalysis is the deterministic fallback analysis used
// when no model is configured or the model call fails.
func heuristicPortfolioAnalysis(payload PortfolioPayload) domain.AdvisoryResult {
	concentration := 0.0
	for i, h := range payload.TopHoldings {
		if i >= 3 {
			break
		}
		concentration += h.WeightPct
	}

	var keyRisks, actions []string
	assumptions := []string{
		"Analysis uses provided portfolio snapshot and heuristic fallback logic.",
		"Market liquidity and transaction costs are not explicitly modeled.",
	}
	missing := []string{
		"Correlation matrix and factor exposures",
		"Options greeks / hedge ratios",
		"Historical drawdown and realized volatility window",
	}

	if concentration >= 55 {
		keyRisks = append(keyRisks, fmt.Sprintf("Top-3 holdings concentration is elevated at %.1f%%.", concentration))
		actions = append(actions, "Reduce concentration by trimming largest positions or adding diversifiers.")
	}

	if payload.PortfolioBeta > 1.25 {
		keyRisks = append(keyRisks, fmt.Sprintf("Portfolio beta is high at %.2f, amplifying market downside.", payload.PortfolioBeta))
		actions = append(actions, "Add defensive or low-beta hedges to reduce directional risk.")
	} else if payload.PortfolioBeta < 0.85 {
		keyRisks = append(keyRisks, fmt.Sprintf("Portfolio beta is defensive at %.2f, which may cap upside in rallies.", payload.PortfolioBeta))
	}

	if payload.TotalGainLossPct < -8 {
		keyRisks = append(keyRisks, fmt.Sprintf("Unrealized performance is weak at %.2f%%, suggesting drawdown pressure.", payload.TotalGainLossPct))
		actions = append(actions, "Reassess stop-loss levels and position-level thesis for laggards.")
	} else if payload.TotalGainLossPct > 20 {
		keyRisks = append(keyRisks, fmt.Sprintf("Strong gains (%.2f%%) increase profit-protection importance.", payload.TotalGainLossPct))
		actions = append(actions, "Harvest partial gains and raise trailing stops on extended winners.")
	}

	if len(keyRisks) == 0 {
		keyRisks = append(keyRisks, "Risk posture appears balanced under current snapshot, but scenario stress remains necessary.")
	}
	if len(actions) == 0 {
		actions = append(actions, "Run stress scenarios and validate tail-risk limits before changing allocations.")
	}

	posture := "moderate"
	if payload.PortfolioBeta > 1.25 || concentration >= 55 {
		posture = "elevated"
	}
	summary := fmt.Sprintf(
		"Portfolio snapshot ($%.0f) suggests %s risk. Focus on concentration control, downside protection, and stress-test validation.",
		payload.TotalValue, posture,
	)

	return domain.AdvisoryResult{
		Summary:            summary,
		Confidence:         0.62,
		KeyRisks:           truncate(keyRisks, 5),
		RecommendedActions: truncate(actions, 5),
		Assumptions:        assumptions,
		MissingData:        missing,
		NeedsReview:        true,
		Provider:           "fallback",
	}
}

func truncate(xs []string, limit int) []string {
	if len(xs) > limit {
		return xs[:limit]
	}
	return xs
}
