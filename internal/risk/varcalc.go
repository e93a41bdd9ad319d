package risk

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/clarafin/clara/internal/domain"
)

// studentTDF is the degrees of freedom used for the fat-tailed model.
const studentTDF = 5

// DistributionAdvisor recommends a distribution for a return sample.
// Implementations may call out to an external model; the calculator falls
// back to rule-based selection when the advisor fails.
type DistributionAdvisor interface {
	RecommendDistribution(ctx context.Context, returns []float64, tests domain.StatisticalTests) (*domain.DistributionChoice, error)
}

// CalcConfig controls a multi-VaR computation.
type CalcConfig struct {
	ConfidenceLevels []float64
	TimeHorizons     []int
	Distribution     domain.DistributionType // empty or "auto" selects from the data
	UseAdvisor       bool
}

// Calculator computes VaR and Expected Shortfall across distributions,
// confidence levels and time horizons.
type Calculator struct {
	defaults CalcConfig
	advisor  DistributionAdvisor
	rng      *rand.Rand
	log      zerolog.Logger
}

// NewCalculator creates a VaR calculator. advisor may be nil. A non-zero
// seed makes simulated return generation deterministic.
func NewCalculator(confidenceLevels []float64, timeHorizons []int, advisor DistributionAdvisor, seed int64, log zerolog.Logger) *Calculator {
	if len(confidenceLevels) == 0 {
		confidenceLevels = []float64{0.90, 0.95, 0.99}
	}
	if len(timeHorizons) == 0 {
		timeHorizons = []int{1, 10}
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Calculator{
		defaults: CalcConfig{ConfidenceLevels: confidenceLevels, TimeHorizons: timeHorizons},
		advisor:  advisor,
		rng:      rand.New(rand.NewSource(seed)),
		log:      log.With().Str("component", "var_calculator").Logger(),
	}
}

// RunStatisticalTests computes distribution-fit diagnostics on a return
// sample: Jarque-Bera normality, a normal quantile correlation check, and
// the higher moments.
func (c *Calculator) RunStatisticalTests(returns []float64) domain.StatisticalTests {
	if len(returns) < 20 {
		return domain.StatisticalTests{
			SampleSize:     len(returns),
			SufficientData: false,
		}
	}

	n := float64(len(returns))
	skew := stat.Skew(returns, nil)
	exKurt := stat.ExKurtosis(returns, nil)

	// Jarque-Bera statistic is asymptotically chi-squared with 2 dof.
	jb := n / 6 * (skew*skew + exKurt*exKurt/4)
	jbPValue := 1 - distuv.ChiSquared{K: 2}.CDF(jb)

	quantileCorr := normalQuantileCorrelation(returns)

	isNormal := jbPValue > 0.05 && quantileCorr > 0.98
	hasFatTails := exKurt > 1.0
	isSkewed := math.Abs(skew) > 0.5

	return domain.StatisticalTests{
		SampleSize:      len(returns),
		SufficientData:  true,
		NormalityPValue: jbPValue,
		QuantileCorr:    quantileCorr,
		Kurtosis:        exKurt,
		Skewness:        skew,
		IsNormal:        isNormal,
		HasFatTails:     hasFatTails,
		IsSkewed:        isSkewed,
		Mean:            stat.Mean(returns, nil),
		Std:             stat.StdDev(returns, nil),
	}
}

// normalQuantileCorrelation correlates the sorted sample against standard
// normal quantiles. Values near 1 indicate a good normal fit.
func normalQuantileCorrelation(returns []float64) float64 {
	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)

	norm := distuv.UnitNormal
	theoretical := make([]float64, len(sorted))
	for i := range sorted {
		theoretical[i] = norm.Quantile((float64(i) + 0.5) / float64(len(sorted)))
	}
	return stat.Correlation(sorted, theoretical, nil)
}

// SelectDistribution picks the best-fitting distribution for the sample.
// The advisor is consulted first when enabled; rule-based selection from
// the statistical tests is the fallback.
func (c *Calculator) SelectDistribution(ctx context.Context, returns []float64, useAdvisor bool) (domain.DistributionType, *domain.DistributionChoice) {
	tests := c.RunStatisticalTests(returns)
	if !tests.SufficientData {
		return domain.DistNormal, &domain.DistributionChoice{
			Distribution: domain.DistNormal,
			Rationale:    "Insufficient data for distribution fitting",
			Confidence:   0.5,
			Provider:     "rule_based",
		}
	}

	var ruleBased domain.DistributionType
	var rationale string
	switch {
	case tests.IsNormal && !tests.HasFatTails:
		ruleBased, rationale = domain.DistNormal, "Rule-based selection: normal"
	case tests.HasFatTails:
		ruleBased, rationale = domain.DistStudentT, "Rule-based selection: fat-tailed"
	case tests.IsSkewed && tests.Skewness > 0:
		ruleBased, rationale = domain.DistLogNormal, "Rule-based selection: skewed"
	default:
		ruleBased, rationale = domain.DistNormal, "Rule-based selection: normal"
	}

	if useAdvisor && c.advisor != nil {
		rec, err := c.advisor.RecommendDistribution(ctx, returns, tests)
		if err == nil && rec != nil {
			return rec.Distribution, rec
		}
		if err != nil {
			c.log.Warn().Err(err).Msg("Distribution advisor failed, using rule-based selection")
		}
	}

	return ruleBased, &domain.DistributionChoice{
		Distribution: ruleBased,
		Rationale:    rationale,
		Confidence:   0.7,
		Provider:     "rule_based",
	}
}

// VaRQuantile returns the loss quantile multiplier for a confidence level
// under the given distribution. Normal and Student-t quantiles are negative
// in the left tail.
func VaRQuantile(confidenceLevel float64, dist domain.DistributionType) float64 {
	alpha := 1 - confidenceLevel

	switch dist {
	case domain.DistStudentT:
		t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: studentTDF}
		return t.Quantile(alpha)
	case domain.DistLogNormal:
		// Normal approximation widened for the log-normal's heavier tail.
		return distuv.UnitNormal.Quantile(alpha) * 1.1
	case domain.DistExponential:
		return distuv.Exponential{Rate: 1}.Quantile(alpha)
	default:
		return distuv.UnitNormal.Quantile(alpha)
	}
}

// ExpectedShortfall converts a VaR figure into the expected loss beyond it.
func ExpectedShortfall(varAmount, confidenceLevel float64, dist domain.DistributionType) float64 {
	alpha := 1 - confidenceLevel

	switch dist {
	case domain.DistNormal:
		z := distuv.UnitNormal.Quantile(alpha)
		phi := distuv.UnitNormal.Prob(z)
		return math.Abs(varAmount * (phi / alpha) / math.Abs(z))
	case domain.DistStudentT:
		return math.Abs(varAmount * 1.2)
	default:
		return math.Abs(varAmount * 1.25)
	}
}

// ComputeMultiVaR computes VaR/ES for every configured confidence level and
// time horizon. historicalReturns is optional and enables distribution
// fitting; cfg may be nil to use the calculator defaults.
func (c *Calculator) ComputeMultiVaR(ctx context.Context, positions []domain.EnrichedPosition, cfg *CalcConfig, historicalReturns []float64) domain.MultiVaRResult {
	config := c.defaults
	if cfg != nil {
		if len(cfg.ConfidenceLevels) > 0 {
			config.ConfidenceLevels = cfg.ConfidenceLevels
		}
		if len(cfg.TimeHorizons) > 0 {
			config.TimeHorizons = cfg.TimeHorizons
		}
		config.Distribution = cfg.Distribution
		config.UseAdvisor = cfg.UseAdvisor
	}

	totalValue, _, dailyVol := portfolioStats(positions)
	if totalValue == 0 {
		return domain.MultiVaRResult{
			PortfolioID:     "empty",
			CalculationTime: time.Now().UTC(),
			Results:         []domain.VaRResult{},
		}
	}

	distribution := config.Distribution
	var choice *domain.DistributionChoice
	if len(historicalReturns) > 0 && (distribution == "" || distribution == "auto" || config.UseAdvisor) {
		distribution, choice = c.SelectDistribution(ctx, historicalReturns, config.UseAdvisor)
	}
	if distribution == "" || distribution == "auto" {
		distribution = domain.DistNormal
	}

	var tests *domain.StatisticalTests
	if len(historicalReturns) > 0 {
		t := c.RunStatisticalTests(historicalReturns)
		tests = &t
	}

	results := make([]domain.VaRResult, 0, len(config.ConfidenceLevels)*len(config.TimeHorizons))
	for _, confidence := range config.ConfidenceLevels {
		for _, horizon := range config.TimeHorizons {
			quantile := VaRQuantile(confidence, distribution)
			var1d := math.Abs(totalValue * dailyVol * quantile)
			varAmount := var1d * math.Sqrt(float64(horizon))
			esAmount := ExpectedShortfall(varAmount, confidence, distribution)

			results = append(results, domain.VaRResult{
				ConfidenceLevel:  confidence,
				TimeHorizon:      horizon,
				VaRAmount:        round2(varAmount),
				ESAmount:         round2(esAmount),
				DistributionUsed: distribution,
				Percentile:       round2((1 - confidence) * 100),
			})
		}
	}

	return domain.MultiVaRResult{
		PortfolioID:        "default",
		CalculationTime:    time.Now().UTC(),
		Results:            results,
		DistributionChoice: choice,
		StatisticalTests:   tests,
	}
}

// GenerateSimulatedReturns produces a daily return sample for the portfolio.
// Most draws are normal at the portfolio volatility; a 5% minority draws at
// triple volatility to inject realistic fat tails.
func (c *Calculator) GenerateSimulatedReturns(positions []domain.EnrichedPosition, nSamples int) []float64 {
	_, _, dailyVol := portfolioStats(positions)

	returns := make([]float64, nSamples)
	for i := range returns {
		if c.rng.Float64() < 0.95 {
			returns[i] = c.rng.NormFloat64() * dailyVol
		} else {
			returns[i] = c.rng.NormFloat64() * dailyVol * 3
		}
	}
	return returns
}
