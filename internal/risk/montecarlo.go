package risk

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/clarafin/clara/internal/domain"
)

const histogramBuckets = 30

// RunMonteCarlo simulates nPaths one-day P&L draws for the portfolio and
// summarizes the resulting loss distribution. The calculator's random
// source is used so a seeded calculator yields reproducible results.
func (c *Calculator) RunMonteCarlo(positions []domain.EnrichedPosition, nPaths int) domain.MonteCarloResult {
	totalValue, _, dailyVol := portfolioStats(positions)

	pnl := make([]float64, nPaths)
	for i := range pnl {
		pnl[i] = totalValue * c.rng.NormFloat64() * dailyVol
	}
	sort.Float64s(pnl)

	varIdx95 := int(float64(nPaths) * 0.05)
	varIdx99 := int(float64(nPaths) * 0.01)
	var95 := -pnl[varIdx95]
	var99 := -pnl[varIdx99]

	es95 := var95
	if varIdx95 > 0 {
		var tailSum float64
		for _, x := range pnl[:varIdx95] {
			tailSum += x
		}
		es95 = -tailSum / float64(varIdx95)
	}

	mean := stat.Mean(pnl, nil)
	var sumSq float64
	for _, x := range pnl {
		sumSq += (x - mean) * (x - mean)
	}
	stdDev := math.Sqrt(sumSq / float64(nPaths))

	return domain.MonteCarloResult{
		Paths:             nPaths,
		MeanReturn:        round2(mean),
		StdDev:            round2(stdDev),
		VaR95:             round2(var95),
		VaR99:             round2(var99),
		ExpectedShortfall: round2(es95),
		MaxLoss:           round2(-pnl[0]),
		MaxGain:           round2(pnl[nPaths-1]),
		Histogram:         buildHistogram(pnl),
		Convergence:       buildConvergence(pnl),
	}
}

// buildHistogram buckets the sorted P&L sample into fixed-width bins.
func buildHistogram(sortedPnL []float64) []domain.HistogramBucket {
	minPnL := sortedPnL[0]
	maxPnL := sortedPnL[len(sortedPnL)-1]
	width := (maxPnL - minPnL) / histogramBuckets
	if width == 0 {
		width = 1
	}

	histogram := make([]domain.HistogramBucket, 0, histogramBuckets)
	for i := 0; i < histogramBuckets; i++ {
		lo := minPnL + float64(i)*width
		hi := lo + width
		count := 0
		for _, x := range sortedPnL {
			if x >= lo && x < hi {
				count++
			}
		}
		histogram = append(histogram, domain.HistogramBucket{
			Bucket: math.Round((lo + hi) / 2),
			Count:  count,
		})
	}
	return histogram
}

// buildConvergence samples the VaR95 estimate at growing path-count
// prefixes, showing how the estimate stabilizes.
func buildConvergence(sortedPnL []float64) []domain.ConvergencePoint {
	nPaths := len(sortedPnL)
	step := nPaths / 20
	if step < 1 {
		step = 1
	}

	start := 100
	if nPaths < start {
		start = nPaths
	}

	var points []domain.ConvergencePoint
	for n := start; n <= nPaths; n += step {
		sub := sortedPnL[:n]
		subVaR := -sub[int(float64(n)*0.05)]
		points = append(points, domain.ConvergencePoint{
			Paths: n,
			VaR95: math.Round(subVaR),
		})
	}
	return points
}
