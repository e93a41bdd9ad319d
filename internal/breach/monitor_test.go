package breach

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clarafin/clara/internal/domain"
)

func newTestMonitor() *Monitor {
	return NewMonitor(zerolog.Nop())
}

func defaultThresholds() []domain.BreachThreshold {
	return []domain.BreachThreshold{
		{Metric: "var_95", Threshold: 100, Enabled: true},
		{Metric: "es_95", Threshold: 150, Enabled: true},
		{Metric: "drawdown", Threshold: 10, Enabled: true},
	}
}

func TestSeverityBands(t *testing.T) {
	assert.Equal(t, domain.BreachLow, Severity(109, 100))
	assert.Equal(t, domain.BreachMedium, Severity(124, 100))
	assert.Equal(t, domain.BreachHigh, Severity(149, 100))
	assert.Equal(t, domain.BreachCritical, Severity(151, 100))
}

func TestSeverityExactBoundaries(t *testing.T) {
	// Landing exactly on a band edge stays in the lower band, and decimal
	// thresholds must not drift past the edge in float arithmetic.
	assert.Equal(t, domain.BreachLow, Severity(110, 100))
	assert.Equal(t, domain.BreachMedium, Severity(125, 100))
	assert.Equal(t, domain.BreachHigh, Severity(150, 100))
	assert.Equal(t, domain.BreachLow, Severity(1.10, 1.0))
}

func TestCheckBreachesDetects(t *testing.T) {
	m := newTestMonitor()
	m.Configure("p1", defaultThresholds(), false, nil)

	breaches := m.CheckBreaches("p1", MetricSnapshot{VaR95: 110, ES95: 120})
	require.Len(t, breaches, 1)
	assert.Equal(t, "var_95", breaches[0].Metric)
	assert.Equal(t, 110.0, breaches[0].ActualValue)
	assert.Equal(t, 100.0, breaches[0].Threshold)
	assert.Equal(t, domain.BreachLow, breaches[0].Severity)
	assert.Len(t, breaches[0].BreachID, 16)
	assert.False(t, breaches[0].Acknowledged)
}

func TestCheckBreachesCleanPortfolio(t *testing.T) {
	m := newTestMonitor()
	m.Configure("p1", defaultThresholds(), false, nil)

	breaches := m.CheckBreaches("p1", MetricSnapshot{VaR95: 99, ES95: 150})
	assert.Empty(t, breaches)
	assert.Empty(t, m.Current("p1"))
}

func TestCheckBreachesUnconfiguredPortfolio(t *testing.T) {
	m := newTestMonitor()
	assert.Empty(t, m.CheckBreaches("missing", MetricSnapshot{VaR95: 500}))
}

func TestDrawdownOnlyWhenNegative(t *testing.T) {
	m := newTestMonitor()
	m.Configure("p1", defaultThresholds(), false, nil)

	breaches := m.CheckBreaches("p1", MetricSnapshot{TotalGainLossPct: 15})
	assert.Empty(t, breaches)

	breaches = m.CheckBreaches("p1", MetricSnapshot{TotalGainLossPct: -12})
	require.Len(t, breaches, 1)
	assert.Equal(t, "drawdown", breaches[0].Metric)
	assert.Equal(t, 12.0, breaches[0].ActualValue)
}

func TestDisabledThresholdSkipped(t *testing.T) {
	m := newTestMonitor()
	m.Configure("p1", []domain.BreachThreshold{
		{Metric: "var_95", Threshold: 100, Enabled: false},
	}, false, nil)

	assert.Empty(t, m.CheckBreaches("p1", MetricSnapshot{VaR95: 500}))
}

func TestUpdateThreshold(t *testing.T) {
	m := newTestMonitor()
	m.Configure("p1", defaultThresholds(), false, nil)

	err := m.UpdateThreshold("p1", "var_95", 50, true)
	require.NoError(t, err)

	breaches := m.CheckBreaches("p1", MetricSnapshot{VaR95: 80})
	require.Len(t, breaches, 1)
	assert.Equal(t, 50.0, breaches[0].Threshold)
	assert.Equal(t, domain.BreachCritical, breaches[0].Severity)
}

func TestUpdateThresholdAddsNewMetric(t *testing.T) {
	m := newTestMonitor()
	m.Configure("p1", defaultThresholds(), false, nil)

	err := m.UpdateThreshold("p1", "total_value", 1000000, true)
	require.NoError(t, err)

	cfg := m.GetConfig("p1")
	require.NotNil(t, cfg)
	assert.Len(t, cfg.Thresholds, 4)
}

func TestUpdateThresholdUnknownPortfolio(t *testing.T) {
	m := newTestMonitor()
	err := m.UpdateThreshold("missing", "var_95", 100, true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHistoryFilters(t *testing.T) {
	m := newTestMonitor()
	m.Configure("p1", defaultThresholds(), false, nil)

	m.CheckBreaches("p1", MetricSnapshot{VaR95: 120})
	m.CheckBreaches("p1", MetricSnapshot{VaR95: 130, ES95: 200})

	all := m.History("p1", 30, "")
	assert.Equal(t, 3, all.TotalBreaches)
	assert.Equal(t, "p1", all.PortfolioID)
	require.NotEmpty(t, all.DateRange["start"])
	require.NotEmpty(t, all.DateRange["end"])

	varOnly := m.History("p1", 30, "var_95")
	assert.Equal(t, 2, varOnly.TotalBreaches)
	for _, b := range varOnly.Breaches {
		assert.Equal(t, "var_95", b.Metric)
	}
}

func TestHistoryCutoff(t *testing.T) {
	m := newTestMonitor()
	m.Configure("p1", defaultThresholds(), false, nil)
	m.CheckBreaches("p1", MetricSnapshot{VaR95: 120})

	// Age the recorded breach past the window.
	m.mu.Lock()
	m.history["p1"][0].Timestamp = time.Now().UTC().AddDate(0, 0, -10)
	m.mu.Unlock()

	assert.Equal(t, 0, m.History("p1", 7, "").TotalBreaches)
	assert.Equal(t, 1, m.History("p1", 30, "").TotalBreaches)
}

func TestCurrentExcludesAcknowledgedAndStale(t *testing.T) {
	m := newTestMonitor()
	m.Configure("p1", defaultThresholds(), false, nil)

	m.CheckBreaches("p1", MetricSnapshot{VaR95: 120})
	m.CheckBreaches("p1", MetricSnapshot{ES95: 200})

	current := m.Current("p1")
	require.Len(t, current, 2)

	ok := m.Acknowledge("p1", current[0].BreachID)
	assert.True(t, ok)
	assert.Len(t, m.Current("p1"), 1)

	// Stale breaches fall out of the 24h window.
	m.mu.Lock()
	for i := range m.history["p1"] {
		m.history["p1"][i].Timestamp = time.Now().UTC().Add(-25 * time.Hour)
	}
	m.mu.Unlock()
	assert.Empty(t, m.Current("p1"))
}

func TestAcknowledgeUnknownBreach(t *testing.T) {
	m := newTestMonitor()
	m.Configure("p1", defaultThresholds(), false, nil)
	assert.False(t, m.Acknowledge("p1", "nope"))
}

func TestClearHistory(t *testing.T) {
	m := newTestMonitor()
	m.Configure("p1", defaultThresholds(), false, nil)
	m.CheckBreaches("p1", MetricSnapshot{VaR95: 120, ES95: 200})

	removed := m.ClearHistory("p1")
	assert.Equal(t, 2, removed)
	assert.Equal(t, 0, m.History("p1", 30, "").TotalBreaches)
}

func TestReconfigurePreservesHistory(t *testing.T) {
	m := newTestMonitor()
	m.Configure("p1", defaultThresholds(), false, nil)
	m.CheckBreaches("p1", MetricSnapshot{VaR95: 120})

	m.Configure("p1", []domain.BreachThreshold{
		{Metric: "var_95", Threshold: 200, Enabled: true},
	}, true, []string{"ops@example.com"})

	assert.Equal(t, 1, m.History("p1", 30, "").TotalBreaches)
	cfg := m.GetConfig("p1")
	require.NotNil(t, cfg)
	assert.True(t, cfg.NotificationEnabled)
	assert.Len(t, cfg.Thresholds, 1)
}
