package risk

import (
	"sort"

	"github.com/clarafin/clara/internal/domain"
)

// ComputeRiskContributors ranks positions by marginal VaR contribution,
// largest first. An empty or zero-value portfolio yields an empty slice.
func ComputeRiskContributors(positions []domain.EnrichedPosition) []domain.RiskContributor {
	var totalValue float64
	for _, p := range positions {
		totalValue += p.MarketValue
	}
	if totalValue == 0 {
		return []domain.RiskContributor{}
	}

	contribs := make([]domain.RiskContributor, 0, len(positions))
	var totalMVaR float64
	for _, p := range positions {
		mVaR := round2(p.MarketValue * baseDailyVol * p.Beta * 1.645)
		totalMVaR += mVaR
		contribs = append(contribs, domain.RiskContributor{
			Symbol:       p.Symbol,
			Company:      p.Company,
			MarginalVaR:  mVaR,
			ComponentVaR: mVaR,
			Beta:         p.Beta,
		})
	}
	if totalMVaR == 0 {
		totalMVaR = 1
	}
	for i := range contribs {
		contribs[i].PctOfTotal = round1(contribs[i].MarginalVaR / totalMVaR * 100)
	}

	sort.Slice(contribs, func(i, j int) bool {
		return contribs[i].MarginalVaR > contribs[j].MarginalVaR
	})
	return contribs
}
