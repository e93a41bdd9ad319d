// Package breach tracks risk limit breaches against configured thresholds.
package breach

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clarafin/clara/internal/domain"
)

// MetricSnapshot carries the risk figures a breach check runs against.
type MetricSnapshot struct {
	VaR95            float64
	VaR99            float64
	VaR10D95         float64
	VaR10D99         float64
	ES95             float64
	ES99             float64
	TotalValue       float64
	TotalGainLossPct float64
}

// Config is the breach monitoring setup for one portfolio. Notification
// settings are stored and echoed back through the API; breach events are
// surfaced via history and logs only, with no email dispatch yet.
type Config struct {
	PortfolioID         string                   `json:"portfolio_id"`
	Thresholds          []domain.BreachThreshold `json:"thresholds"`
	NotificationEnabled bool                     `json:"notification_enabled"`
	NotificationEmails  []string                 `json:"notification_emails"`
}

// Monitor detects and records threshold breaches per portfolio.
type Monitor struct {
	mu        sync.Mutex
	configs   map[string]*Config
	history   map[string][]domain.BreachEvent
	lastCheck map[string]time.Time
	log       zerolog.Logger
}

// NewMonitor creates a breach monitor.
func NewMonitor(log zerolog.Logger) *Monitor {
	return &Monitor{
		configs:   make(map[string]*Config),
		history:   make(map[string][]domain.BreachEvent),
		lastCheck: make(map[string]time.Time),
		log:       log.With().Str("component", "breach_monitor").Logger(),
	}
}

// Configure sets up monitoring for a portfolio, replacing any existing
// thresholds. History is preserved.
func (m *Monitor) Configure(portfolioID string, thresholds []domain.BreachThreshold, notificationEnabled bool, emails []string) Config {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := &Config{
		PortfolioID:         portfolioID,
		Thresholds:          thresholds,
		NotificationEnabled: notificationEnabled,
		NotificationEmails:  emails,
	}
	m.configs[portfolioID] = cfg
	if _, ok := m.history[portfolioID]; !ok {
		m.history[portfolioID] = []domain.BreachEvent{}
	}

	m.log.Info().
		Str("portfolio_id", portfolioID).
		Int("thresholds", len(thresholds)).
		Msg("Configured breach monitoring")
	return *cfg
}

// GetConfig returns the configuration for a portfolio, or nil.
func (m *Monitor) GetConfig(portfolioID string) *Config {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, ok := m.configs[portfolioID]
	if !ok {
		return nil
	}
	out := *cfg
	return &out
}

// UpdateThreshold changes one threshold, adding it when absent.
func (m *Monitor) UpdateThreshold(portfolioID, metric string, threshold float64, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, ok := m.configs[portfolioID]
	if !ok {
		return fmt.Errorf("no breach configuration for portfolio %s: %w", portfolioID, domain.ErrNotFound)
	}

	for i := range cfg.Thresholds {
		if cfg.Thresholds[i].Metric == metric {
			cfg.Thresholds[i].Threshold = threshold
			cfg.Thresholds[i].Enabled = enabled
			m.log.Info().Str("metric", metric).Float64("threshold", threshold).Msg("Updated breach threshold")
			return nil
		}
	}

	cfg.Thresholds = append(cfg.Thresholds, domain.BreachThreshold{
		Metric:    metric,
		Threshold: threshold,
		Enabled:   enabled,
	})
	m.log.Info().Str("metric", metric).Float64("threshold", threshold).Msg("Added breach threshold")
	return nil
}

// CheckBreaches evaluates every enabled threshold against the snapshot and
// records any breaches. Returns the new breach events, empty when clean.
func (m *Monitor) CheckBreaches(portfolioID string, snapshot MetricSnapshot) []domain.BreachEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, ok := m.configs[portfolioID]
	if !ok {
		m.log.Warn().Str("portfolio_id", portfolioID).Msg("No breach monitoring configured")
		return []domain.BreachEvent{}
	}

	now := time.Now().UTC()
	metrics := extractMetrics(snapshot)

	breaches := []domain.BreachEvent{}
	for _, threshold := range cfg.Thresholds {
		if !threshold.Enabled {
			continue
		}
		value, ok := metrics[threshold.Metric]
		if !ok {
			m.log.Warn().Str("metric", threshold.Metric).Msg("Metric not present in snapshot")
			continue
		}
		if value <= threshold.Threshold {
			continue
		}

		breach := domain.BreachEvent{
			BreachID:    breachID(portfolioID, threshold.Metric, now),
			PortfolioID: portfolioID,
			Timestamp:   now,
			Metric:      threshold.Metric,
			Threshold:   threshold.Threshold,
			ActualValue: value,
			Severity:    Severity(value, threshold.Threshold),
		}
		breaches = append(breaches, breach)
		m.history[portfolioID] = append(m.history[portfolioID], breach)

		m.log.Warn().
			Str("metric", threshold.Metric).
			Float64("value", value).
			Float64("threshold", threshold.Threshold).
			Str("severity", string(breach.Severity)).
			Msg("Breach detected")
	}

	m.lastCheck[portfolioID] = now
	return breaches
}

// extractMetrics flattens a snapshot into the named metric space the
// thresholds are written against. Drawdown only exists when the portfolio
// is underwater.
func extractMetrics(s MetricSnapshot) map[string]float64 {
	metrics := map[string]float64{
		"var_95":      s.VaR95,
		"var_99":      s.VaR99,
		"var_10d_95":  s.VaR10D95,
		"var_10d_99":  s.VaR10D99,
		"es_95":       s.ES95,
		"es_99":       s.ES99,
		"total_value": s.TotalValue,
	}
	if s.TotalGainLossPct < 0 {
		metrics["drawdown"] = math.Abs(s.TotalGainLossPct)
	}
	return metrics
}

// Severity grades a breach by how far the threshold was exceeded: up to
// 10% excess is low, up to 25% medium, up to 50% high, beyond that
// critical. Comparing against the scaled threshold directly keeps decimal
// band edges exact (110 vs 100 is low, not just past it), where computing
// an excess percentage first would drift in float arithmetic.
func Severity(actualValue, threshold float64) domain.BreachSeverity {
	switch {
	case actualValue <= threshold*1.10:
		return domain.BreachLow
	case actualValue <= threshold*1.25:
		return domain.BreachMedium
	case actualValue <= threshold*1.50:
		return domain.BreachHigh
	default:
		return domain.BreachCritical
	}
}

func breachID(portfolioID, metric string, t time.Time) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%s_%s", portfolioID, metric, t.Format(time.RFC3339Nano))))
	return hex.EncodeToString(sum[:])[:16]
}

// History returns the breaches from the last `days` days, newest first,
// optionally filtered by metric.
func (m *Monitor) History(portfolioID string, days int, metric string) domain.BreachHistory {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	var recent []domain.BreachEvent
	for _, b := range m.history[portfolioID] {
		if b.Timestamp.Before(cutoff) {
			continue
		}
		if metric != "" && b.Metric != metric {
			continue
		}
		recent = append(recent, b)
	}

	sort.Slice(recent, func(i, j int) bool {
		return recent[i].Timestamp.After(recent[j].Timestamp)
	})

	today := time.Now().UTC().Format("2006-01-02")
	dateRange := map[string]string{"start": today, "end": today}
	if len(recent) > 0 {
		dateRange["start"] = recent[len(recent)-1].Timestamp.Format("2006-01-02")
		dateRange["end"] = recent[0].Timestamp.Format("2006-01-02")
	}

	return domain.BreachHistory{
		PortfolioID:   portfolioID,
		TotalBreaches: len(recent),
		Breaches:      recent,
		DateRange:     dateRange,
	}
}

// Current returns unacknowledged breaches from the last 24 hours, newest
// first.
func (m *Monitor) Current(portfolioID string) []domain.BreachEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	var current []domain.BreachEvent
	for _, b := range m.history[portfolioID] {
		if b.Timestamp.Before(cutoff) || b.Acknowledged {
			continue
		}
		current = append(current, b)
	}
	sort.Slice(current, func(i, j int) bool {
		return current[i].Timestamp.After(current[j].Timestamp)
	})
	return current
}

// Acknowledge marks a breach as reviewed. Returns false for unknown ids.
func (m *Monitor) Acknowledge(portfolioID, breachID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	events := m.history[portfolioID]
	for i := range events {
		if events[i].BreachID == breachID {
			events[i].Acknowledged = true
			m.log.Info().Str("breach_id", breachID).Msg("Breach acknowledged")
			return true
		}
	}
	m.log.Warn().Str("breach_id", breachID).Msg("Breach not found")
	return false
}

// ClearHistory removes all breach events for a portfolio and returns the
// count removed.
func (m *Monitor) ClearHistory(portfolioID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := len(m.history[portfolioID])
	m.history[portfolioID] = []domain.BreachEvent{}
	m.log.Info().Str("portfolio_id", portfolioID).Int("removed", count).Msg("Cleared breach history")
	return count
}
