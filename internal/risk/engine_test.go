package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clarafin/clara/internal/domain"
)

func TestComputePriceTargets(t *testing.T) {
	targets := ComputePriceTargets(100, 90, 1.0, 0)
	assert.Equal(t, 120.0, targets.SellTarget)          // 100 * (1 + 0.15 + 0.05)
	assert.Equal(t, 90.0, targets.StopLoss)             // 100 * 0.90
	assert.Equal(t, 88.0, targets.TrailingStop)         // max(90*0.97=87.3, 100*0.88=88)
	assert.Equal(t, 140.0, targets.BullTarget)          // 100 * (1 + 0.30 + 0.10)
	assert.Equal(t, 107.0, targets.ConservativeTarget)  // 100 * 1.07
}

func TestStopLossFlooredAtBreakEven(t *testing.T) {
	// Position bought at 200 trading at 100: raw stop would be 90, but the
	// floor is 85% of break-even.
	targets := ComputePriceTargets(100, 200, 1.0, 0)
	assert.Equal(t, 170.0, targets.StopLoss)
}

func TestAnalystTargetOverridesSellTarget(t *testing.T) {
	targets := ComputePriceTargets(100, 90, 1.0, 150)
	assert.Equal(t, 150.0, targets.SellTarget)

	// Analyst target below the current price is ignored.
	targets = ComputePriceTargets(100, 90, 1.0, 95)
	assert.Equal(t, 120.0, targets.SellTarget)
}

func TestBetaClampedInTargets(t *testing.T) {
	a := ComputePriceTargets(100, 90, 0, 0)
	b := ComputePriceTargets(100, 90, 0.1, 0)
	assert.Equal(t, b, a)
}

func TestRiskLevelFor(t *testing.T) {
	assert.Equal(t, domain.RiskLow, RiskLevelFor(0.5))
	assert.Equal(t, domain.RiskMedium, RiskLevelFor(1.0))
	assert.Equal(t, domain.RiskHigh, RiskLevelFor(1.5))
	assert.Equal(t, domain.RiskVeryHigh, RiskLevelFor(2.0))
}

func TestActionLabelPriority(t *testing.T) {
	// Price over sell target wins regardless of P&L.
	assert.Equal(t, "Sell", ActionLabel(50, 1.0, 130, 120, 90))
	// Price under stop loss comes next.
	assert.Equal(t, "Reduce", ActionLabel(-20, 1.0, 85, 120, 90))
	assert.Equal(t, "Take Partial Profits", ActionLabel(35, 1.0, 110, 120, 90))
	assert.Equal(t, "Review / Reduce", ActionLabel(-20, 1.0, 95, 120, 90))
	assert.Equal(t, "Reduce", ActionLabel(25, 1.9, 110, 120, 90))
	assert.Equal(t, "Hold", ActionLabel(18, 1.0, 110, 120, 90))
	assert.Equal(t, "Strong Hold", ActionLabel(5, 1.0, 100, 120, 90))
}

func TestEnrichPosition(t *testing.T) {
	pos := domain.Position{ID: "p1", Symbol: "AAPL", Shares: 10, AvgCost: 200}
	quote := &domain.Quote{
		Symbol: "AAPL", Company: "Apple Inc.", Sector: "Technology",
		Price: 250, Change: 2.5, ChangePct: 1.01, Beta: 1.25,
		DataSource: "alphavantage",
	}

	p := EnrichPosition(pos, quote, 10000)
	assert.Equal(t, 2500.0, p.MarketValue)
	assert.Equal(t, 2000.0, p.CostBasis)
	assert.Equal(t, 500.0, p.GainLoss)
	assert.Equal(t, 25.0, p.GainLossPct)
	assert.Equal(t, 25.0, p.DayGainLoss)
	assert.Equal(t, 25.0, p.Weight)
	assert.Equal(t, domain.RiskHigh, p.RiskLevel)
	assert.Equal(t, "alphavantage", p.DataSource)
	assert.Greater(t, p.SellTarget, p.CurrentPrice)
	assert.Less(t, p.StopLoss, p.CurrentPrice)
}

func TestEnrichPositionWithoutQuote(t *testing.T) {
	pos := domain.Position{ID: "p1", Symbol: "AAPL", Shares: 10, AvgCost: 200}
	p := EnrichPosition(pos, nil, 0)
	// Falls back to cost basis pricing and reference metadata.
	assert.Equal(t, 200.0, p.CurrentPrice)
	assert.Equal(t, 0.0, p.GainLoss)
	assert.Equal(t, "Apple Inc.", p.Company)
	assert.Equal(t, "simulated", p.DataSource)
	assert.Equal(t, 0.0, p.Weight)
}

func TestComputeSummary(t *testing.T) {
	positions := []domain.EnrichedPosition{
		{MarketValue: 6000, CostBasis: 5000, DayGainLoss: 100, Beta: 1.5},
		{MarketValue: 4000, CostBasis: 4000, DayGainLoss: -50, Beta: 0.5},
	}

	s := ComputeSummary(positions)
	assert.Equal(t, 10000.0, s.TotalValue)
	assert.Equal(t, 9000.0, s.CostBasis)
	assert.Equal(t, 1000.0, s.TotalGainLoss)
	assert.InDelta(t, 11.11, s.TotalGainLossPct, 0.01)
	assert.Equal(t, 50.0, s.DayGainLoss)
	// Value-weighted beta: (1.5*6000 + 0.5*4000) / 10000 = 1.1
	assert.Equal(t, 1.1, s.PortfolioBeta)
	assert.Equal(t, 2, s.PositionsCount)
	// 10000 * 0.012 * 1.1 * 1.645
	assert.InDelta(t, 217.14, s.VaR1D95, 0.01)
	assert.InDelta(t, s.VaR1D95*1.25, s.ExpectedShortfall, 0.01)
}

func TestComputeSummaryEmptyPortfolio(t *testing.T) {
	s := ComputeSummary(nil)
	assert.Equal(t, domain.PortfolioSummary{}, s)
}

func TestComputeRiskContributors(t *testing.T) {
	positions := []domain.EnrichedPosition{
		{Symbol: "LOW", Company: "Low Beta", MarketValue: 5000, Beta: 0.5},
		{Symbol: "HIGH", Company: "High Beta", MarketValue: 5000, Beta: 2.0},
	}

	contribs := ComputeRiskContributors(positions)
	require.Len(t, contribs, 2)
	assert.Equal(t, "HIGH", contribs[0].Symbol)
	assert.Greater(t, contribs[0].MarginalVaR, contribs[1].MarginalVaR)

	var pctSum float64
	for _, c := range contribs {
		pctSum += c.PctOfTotal
	}
	assert.InDelta(t, 100.0, pctSum, 0.5)
}

func TestComputeRiskContributorsEmpty(t *testing.T) {
	assert.Empty(t, ComputeRiskContributors(nil))
}
