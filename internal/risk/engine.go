package risk

import (
	"github.com/clarafin/clara/internal/domain"
)

// annualized 20% volatility expressed per trading day
const baseDailyVol = 0.0126

// EnrichPosition joins a stored position with a live quote and computes the
// derived analytics. totalPortfolioValue of zero leaves the weight at zero.
func EnrichPosition(pos domain.Position, quote *domain.Quote, totalPortfolioValue float64) domain.EnrichedPosition {
	meta := domain.MetaFor(pos.Symbol)

	price := pos.AvgCost
	change, changePct := 0.0, 0.0
	beta := meta.Beta
	sector := meta.Sector
	company := meta.Name
	var weekHigh, weekLow, peRatio, analystTarget float64
	dataSource := "simulated"

	if quote != nil {
		if quote.Price > 0 {
			price = quote.Price
		}
		change = quote.Change
		changePct = quote.ChangePct
		if quote.Beta > 0 {
			beta = quote.Beta
		}
		if quote.Sector != "" {
			sector = quote.Sector
		}
		if quote.Company != "" {
			company = quote.Company
		}
		weekHigh = quote.WeekHigh52
		weekLow = quote.WeekLow52
		peRatio = quote.PERatio
		analystTarget = quote.AnalystTarget
		if quote.DataSource != "" {
			dataSource = quote.DataSource
		}
	}

	marketValue := round2(pos.Shares * price)
	costBasis := round2(pos.Shares * pos.AvgCost)
	gainLoss := round2(marketValue - costBasis)
	gainLossPct := 0.0
	if costBasis != 0 {
		gainLossPct = round2(gainLoss / costBasis * 100)
	}
	dayGainLoss := round2(pos.Shares * change)

	targets := ComputePriceTargets(price, pos.AvgCost, beta, analystTarget)

	weight := 0.0
	if totalPortfolioValue > 0 {
		weight = round2(marketValue / totalPortfolioValue * 100)
	}

	return domain.EnrichedPosition{
		ID:            pos.ID,
		Symbol:        pos.Symbol,
		Company:       company,
		Shares:        pos.Shares,
		AvgCost:       pos.AvgCost,
		Note:          pos.Note,
		Sector:        sector,
		CurrentPrice:  price,
		Change:        change,
		ChangePct:     changePct,
		MarketValue:   marketValue,
		CostBasis:     costBasis,
		GainLoss:      gainLoss,
		GainLossPct:   gainLossPct,
		DayGainLoss:   dayGainLoss,
		PriceTargets:  targets,
		Beta:          beta,
		RiskLevel:     RiskLevelFor(beta),
		Action:        ActionLabel(gainLossPct, beta, price, targets.SellTarget, targets.StopLoss),
		WeekHigh52:    weekHigh,
		WeekLow52:     weekLow,
		PERatio:       peRatio,
		AnalystTarget: analystTarget,
		Weight:        weight,
		DataSource:    dataSource,
	}
}

// ComputeSummary aggregates portfolio-level metrics across positions.
// An empty portfolio yields an all-zero summary.
func ComputeSummary(positions []domain.EnrichedPosition) domain.PortfolioSummary {
	if len(positions) == 0 {
		return domain.PortfolioSummary{}
	}

	var totalValue, costBasis, dayGain float64
	for _, p := range positions {
		totalValue += p.MarketValue
		costBasis += p.CostBasis
		dayGain += p.DayGainLoss
	}
	gainLoss := totalValue - costBasis
	gainLossPct := 0.0
	if costBasis != 0 {
		gainLossPct = gainLoss / costBasis * 100
	}

	portfolioBeta := 1.0
	if totalValue > 0 {
		var weighted float64
		for _, p := range positions {
			weighted += p.Beta * p.MarketValue
		}
		portfolioBeta = weighted / totalValue
	}

	// Quick parametric 1-day 95% VaR for the dashboard header.
	dailyVol := 0.012 * portfolioBeta
	var1d95 := round2(totalValue * dailyVol * 1.645)
	es95 := round2(var1d95 * 1.25)

	return domain.PortfolioSummary{
		TotalValue:        round2(totalValue),
		CostBasis:         round2(costBasis),
		TotalGainLoss:     round2(gainLoss),
		TotalGainLossPct:  round2(gainLossPct),
		DayGainLoss:       round2(dayGain),
		PortfolioBeta:     round3(portfolioBeta),
		PositionsCount:    len(positions),
		VaR1D95:           var1d95,
		ExpectedShortfall: es95,
	}
}

// portfolioStats returns (total value, weighted beta, daily volatility).
// Empty portfolios get neutral defaults so downstream math stays finite.
func portfolioStats(positions []domain.EnrichedPosition) (float64, float64, float64) {
	var totalValue float64
	for _, p := range positions {
		totalValue += p.MarketValue
	}
	if totalValue == 0 {
		return 0, 1.0, baseDailyVol
	}
	var weighted float64
	for _, p := range positions {
		weighted += p.Beta * p.MarketValue
	}
	beta := weighted / totalValue
	return totalValue, beta, baseDailyVol * beta
}
