// Package risk implements the pure portfolio analytics engine: price
// targets, position enrichment, VaR/ES across distributions, Monte Carlo
// simulation and factor sensitivity. Everything here is deterministic given
// its inputs (the Monte Carlo source is injected).
package risk

import (
	"math"

	"github.com/clarafin/clara/internal/domain"
)

// ComputePriceTargets derives the full target set for a position.
//
//	sell target   : analyst target when above current, else current * (1 + 0.15 + beta*0.05)
//	stop loss     : current * (1 - 0.08 - beta*0.02), floored at 85% of break-even
//	trailing stop : max(avg_cost * 0.97, current * 0.88)
//	bull target   : current * (1 + 0.30 + beta*0.10)
//	conservative  : current * 1.07
func ComputePriceTargets(currentPrice, avgCost, beta, analystTarget float64) domain.PriceTargets {
	beta = math.Max(0.1, beta)

	sellTarget := round2(currentPrice * (1 + 0.15 + beta*0.05))
	if analystTarget > currentPrice {
		sellTarget = analystTarget
	}

	stopLoss := currentPrice * (1 - 0.08 - beta*0.02)
	// Hard floor: never below 85% of break-even.
	stopLoss = math.Max(stopLoss, avgCost*0.85)

	return domain.PriceTargets{
		SellTarget:         sellTarget,
		StopLoss:           round2(stopLoss),
		TrailingStop:       round2(math.Max(avgCost*0.97, currentPrice*0.88)),
		BullTarget:         round2(currentPrice * (1 + 0.30 + beta*0.10)),
		ConservativeTarget: round2(currentPrice * 1.07),
	}
}

// RiskLevelFor classifies a position by beta.
func RiskLevelFor(beta float64) domain.RiskLevel {
	switch {
	case beta < 0.8:
		return domain.RiskLow
	case beta < 1.2:
		return domain.RiskMedium
	case beta < 1.7:
		return domain.RiskHigh
	default:
		return domain.RiskVeryHigh
	}
}

// ActionLabel picks a suggested action from price position and P&L.
// Rules are ordered by priority; the first match wins.
func ActionLabel(gainLossPct, beta, price, sellTarget, stopLoss float64) string {
	switch {
	case price >= sellTarget:
		return "Sell"
	case price <= stopLoss:
		return "Reduce"
	case gainLossPct > 30:
		return "Take Partial Profits"
	case gainLossPct < -15:
		return "Review / Reduce"
	case beta > 1.8 && gainLossPct > 20:
		return "Reduce"
	case gainLossPct > 15:
		return "Hold"
	default:
		return "Strong Hold"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
