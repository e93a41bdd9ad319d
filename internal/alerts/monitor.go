// Package alerts runs the background monitor that checks portfolio
// positions against their price targets and fires deduplicated alerts.
package alerts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/clarafin/clara/internal/domain"
	"github.com/clarafin/clara/internal/notify"
)

const (
	maxInAppAlerts = 200
	maxEmailLogs   = 500
)

// PortfolioSource provides the enriched positions to monitor.
type PortfolioSource interface {
	EnrichedPositions(ctx context.Context) ([]domain.EnrichedPosition, error)
}

// EmailSender delivers alert emails. Satisfied by notify.Dispatcher.
type EmailSender interface {
	SendAlertEmail(ctx context.Context, email notify.AlertEmail) domain.EmailLogEntry
}

type cooldownKey struct {
	symbol    string
	alertType domain.AlertType
}

// Monitor polls positions against their targets on an interval and fires
// in-app and email alerts with a per-symbol, per-type cooldown.
type Monitor struct {
	source           PortfolioSource
	sender           EmailSender
	dailySummaryHour int
	log              zerolog.Logger

	mu          sync.Mutex
	config      domain.AlertConfig
	inAppAlerts []domain.InAppAlert
	emailLogs   []domain.EmailLogEntry
	cooldowns   map[cooldownKey]time.Time
	status      string
	startTime   time.Time
	alertsToday int
	alertsDate  string
	holdings    int

	cron *cron.Cron
	stop chan struct{}
	done chan struct{}
}

// NewMonitor creates an alert monitor with the given initial configuration.
func NewMonitor(source PortfolioSource, sender EmailSender, config domain.AlertConfig, dailySummaryHour int, log zerolog.Logger) *Monitor {
	return &Monitor{
		source:           source,
		sender:           sender,
		config:           config,
		dailySummaryHour: dailySummaryHour,
		log:              log.With().Str("component", "alert_monitor").Logger(),
		cooldowns:        make(map[cooldownKey]time.Time),
		status:           "idle",
		startTime:        time.Now(),
		stop:             make(chan struct{}),
		done:             make(chan struct{}),
	}
}

// Run starts the polling loop and the daily summary schedule. Blocks until
// the context is cancelled or Stop is called.
func (m *Monitor) Run(ctx context.Context) {
	defer close(m.done)

	m.mu.Lock()
	interval := m.config.CheckInterval
	enabled := m.config.Enabled
	m.mu.Unlock()
	if interval <= 0 {
		interval = 30 * time.Second
	}
	m.updateLoopStatus(enabled)

	m.cron = cron.New()
	spec := fmt.Sprintf("0 %d * * *", m.dailySummaryHour)
	if _, err := m.cron.AddFunc(spec, func() { m.sendDailySummary(ctx) }); err != nil {
		m.log.Error().Err(err).Str("spec", spec).Msg("Failed to schedule daily summary")
	}
	m.cron.Start()
	defer m.cron.Stop()

	m.log.Info().Dur("interval", interval).Msg("Alert monitor started")

	// A timer reset after each cycle completes, so the loop always sleeps
	// the full interval between cycles no matter how long a check takes.
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			m.setStatus("stopped")
			m.log.Info().Msg("Alert monitor stopped")
			return
		case <-m.stop:
			m.setStatus("stopped")
			m.log.Info().Msg("Alert monitor stopped")
			return
		case <-timer.C:
			m.mu.Lock()
			enabled := m.config.Enabled
			if m.config.CheckInterval > 0 {
				interval = m.config.CheckInterval
			}
			m.mu.Unlock()

			if enabled {
				if err := m.CheckOnce(ctx); err != nil {
					m.log.Error().Err(err).Msg("Alert check failed")
				}
			}
			m.updateLoopStatus(enabled)
			timer.Reset(interval)
		}
	}
}

// updateLoopStatus derives the externally visible state: running while
// enabled with at least one holding, paused otherwise.
func (m *Monitor) updateLoopStatus(enabled bool) {
	m.mu.Lock()
	if enabled && m.holdings > 0 {
		m.status = "running"
	} else {
		m.status = "paused"
	}
	m.mu.Unlock()
}

// Stop terminates the loop. Safe to call once.
func (m *Monitor) Stop() {
	close(m.stop)
	<-m.done
}

func (m *Monitor) setStatus(status string) {
	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
}

// CheckOnce fetches positions and evaluates every target threshold.
func (m *Monitor) CheckOnce(ctx context.Context) error {
	positions, err := m.source.EnrichedPositions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load positions: %w", err)
	}

	m.mu.Lock()
	m.holdings = len(positions)
	cfg := m.config
	m.mu.Unlock()

	if len(positions) == 0 {
		return nil
	}

	var totalValue float64
	for _, p := range positions {
		totalValue += p.MarketValue
	}

	for _, p := range positions {
		price := p.CurrentPrice
		if cfg.AlertOnSellTarget && p.SellTarget > 0 && price >= p.SellTarget {
			m.fireAlert(ctx, domain.AlertSellTargetHit, p, p.SellTarget, totalValue)
		}
		if cfg.AlertOnStopLoss && p.StopLoss > 0 && price <= p.StopLoss {
			m.fireAlert(ctx, domain.AlertStopLossHit, p, p.StopLoss, totalValue)
		}
		if cfg.AlertOnTrailingStop && p.TrailingStop > 0 && price <= p.TrailingStop {
			m.fireAlert(ctx, domain.AlertTrailingStopHit, p, p.TrailingStop, totalValue)
		}
		if cfg.AlertOnBullTarget && p.BullTarget > 0 && price >= p.BullTarget {
			m.fireAlert(ctx, domain.AlertBullTargetHit, p, p.BullTarget, totalValue)
		}
	}
	return nil
}

// fireAlert records the in-app alert and sends the email, respecting the
// cooldown. The cooldown is claimed before any I/O so concurrent checks
// cannot double-send.
func (m *Monitor) fireAlert(ctx context.Context, alertType domain.AlertType, p domain.EnrichedPosition, triggerPrice, totalValue float64) {
	m.mu.Lock()
	key := cooldownKey{symbol: p.Symbol, alertType: alertType}
	if last, ok := m.cooldowns[key]; ok && time.Since(last) <= m.config.Cooldown {
		m.mu.Unlock()
		return
	}
	m.cooldowns[key] = time.Now()

	alert := domain.InAppAlert{
		ID:           uuid.New().String(),
		Timestamp:    time.Now().UTC(),
		AlertType:    alertType,
		Symbol:       p.Symbol,
		Company:      p.Company,
		Message:      alertMessage(alertType, p.Symbol, triggerPrice),
		TriggerPrice: triggerPrice,
		CurrentPrice: p.CurrentPrice,
		Severity:     alertSeverity(alertType),
	}
	m.inAppAlerts = append([]domain.InAppAlert{alert}, m.inAppAlerts...)
	if len(m.inAppAlerts) > maxInAppAlerts {
		m.inAppAlerts = m.inAppAlerts[:maxInAppAlerts]
	}
	m.bumpAlertsTodayLocked()

	emailEnabled := m.config.Enabled && m.config.UserEmail != ""
	userEmail := m.config.UserEmail
	m.mu.Unlock()

	m.log.Info().
		Str("symbol", p.Symbol).
		Str("alert_type", string(alertType)).
		Float64("trigger_price", triggerPrice).
		Msg("Alert fired")

	if !emailEnabled {
		return
	}

	entry := m.sender.SendAlertEmail(ctx, notify.AlertEmail{
		ToEmail:        userEmail,
		AlertType:      alertType,
		Symbol:         p.Symbol,
		Company:        p.Company,
		TriggerPrice:   triggerPrice,
		CurrentPrice:   p.CurrentPrice,
		AvgCost:        p.AvgCost,
		Shares:         p.Shares,
		GainLoss:       p.GainLoss,
		GainLossPct:    p.GainLossPct,
		PortfolioValue: totalValue,
		ActionMessage:  alert.Message,
	})

	m.mu.Lock()
	m.emailLogs = append([]domain.EmailLogEntry{entry}, m.emailLogs...)
	if len(m.emailLogs) > maxEmailLogs {
		m.emailLogs = m.emailLogs[:maxEmailLogs]
	}
	for i := range m.inAppAlerts {
		if m.inAppAlerts[i].ID == alert.ID {
			m.inAppAlerts[i].EmailSent = entry.Sent
			break
		}
	}
	m.mu.Unlock()
}

// bumpAlertsTodayLocked increments the daily counter, resetting it when
// the UTC date rolls over. Caller holds the lock.
func (m *Monitor) bumpAlertsTodayLocked() {
	today := time.Now().UTC().Format("2006-01-02")
	if m.alertsDate != today {
		m.alertsDate = today
		m.alertsToday = 0
	}
	m.alertsToday++
}

// sendDailySummary fires the scheduled daily summary alert.
func (m *Monitor) sendDailySummary(ctx context.Context) {
	positions, err := m.source.EnrichedPositions(ctx)
	if err != nil {
		m.log.Error().Err(err).Msg("Daily summary position fetch failed")
		return
	}
	if len(positions) == 0 {
		return
	}
	var totalValue float64
	for _, p := range positions {
		totalValue += p.MarketValue
	}
	// Summaries are keyed on an empty symbol so they cool down as a group.
	m.fireAlert(ctx, domain.AlertDailySummary, domain.EnrichedPosition{
		Company: "Portfolio",
	}, 0, totalValue)
}

// Status returns a snapshot of the monitor state.
func (m *Monitor) Status() domain.MonitorStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	today := time.Now().UTC().Format("2006-01-02")
	alertsToday := m.alertsToday
	if m.alertsDate != today {
		alertsToday = 0
	}

	unacked := 0
	for _, a := range m.inAppAlerts {
		if !a.Acknowledged {
			unacked++
		}
	}
	return domain.MonitorStatus{
		Status:         m.status,
		UptimeSeconds:  float64(int(time.Since(m.startTime).Seconds()*10)) / 10,
		AlertsToday:    alertsToday,
		Unacknowledged: unacked,
		Holdings:       m.holdings,
	}
}

// Config returns the current configuration.
func (m *Monitor) Config() domain.AlertConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg := m.config
	cfg.CheckIntervalSeconds = int(cfg.CheckInterval / time.Second)
	cfg.CooldownHours = cfg.Cooldown.Hours()
	return cfg
}

// UpdateConfig applies a partial update. Nil fields keep their values.
func (m *Monitor) UpdateConfig(patch domain.AlertConfigPatch) domain.AlertConfig {
	m.mu.Lock()
	if patch.Enabled != nil {
		m.config.Enabled = *patch.Enabled
	}
	if patch.CheckIntervalSeconds != nil && *patch.CheckIntervalSeconds >= 1 {
		m.config.CheckInterval = time.Duration(*patch.CheckIntervalSeconds) * time.Second
	}
	if patch.AlertOnSellTarget != nil {
		m.config.AlertOnSellTarget = *patch.AlertOnSellTarget
	}
	if patch.AlertOnStopLoss != nil {
		m.config.AlertOnStopLoss = *patch.AlertOnStopLoss
	}
	if patch.AlertOnTrailingStop != nil {
		m.config.AlertOnTrailingStop = *patch.AlertOnTrailingStop
	}
	if patch.AlertOnBullTarget != nil {
		m.config.AlertOnBullTarget = *patch.AlertOnBullTarget
	}
	if patch.CooldownHours != nil && *patch.CooldownHours > 0 {
		m.config.Cooldown = time.Duration(*patch.CooldownHours * float64(time.Hour))
	}
	if patch.UserEmail != nil {
		m.config.UserEmail = *patch.UserEmail
	}
	if patch.EmailProvider != nil {
		m.config.EmailProvider = *patch.EmailProvider
	}
	m.mu.Unlock()

	m.log.Info().Interface("patch", patch).Msg("Alert config updated")
	return m.Config()
}

// Alerts returns the in-app alerts, newest first. unackedOnly filters to
// unacknowledged alerts.
func (m *Monitor) Alerts(unackedOnly bool) []domain.InAppAlert {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.InAppAlert, 0, len(m.inAppAlerts))
	for _, a := range m.inAppAlerts {
		if unackedOnly && a.Acknowledged {
			continue
		}
		out = append(out, a)
	}
	return out
}

// EmailLogs returns the email audit log, newest first, capped at limit
// (or all when limit <= 0).
func (m *Monitor) EmailLogs(limit int) []domain.EmailLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	logs := m.emailLogs
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	out := make([]domain.EmailLogEntry, len(logs))
	copy(out, logs)
	return out
}

// Acknowledge marks an alert as seen. Returns false for unknown ids.
func (m *Monitor) Acknowledge(alertID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.inAppAlerts {
		if m.inAppAlerts[i].ID == alertID {
			m.inAppAlerts[i].Acknowledged = true
			return true
		}
	}
	return false
}

// ClearAlerts removes every in-app alert.
func (m *Monitor) ClearAlerts() {
	m.mu.Lock()
	m.inAppAlerts = nil
	m.mu.Unlock()
}

// ResetCooldown clears the cooldown for a symbol and alert type so the
// next check can fire immediately.
func (m *Monitor) ResetCooldown(symbol string, alertType domain.AlertType) {
	m.mu.Lock()
	delete(m.cooldowns, cooldownKey{symbol: symbol, alertType: alertType})
	m.mu.Unlock()
	m.log.Info().Str("symbol", symbol).Str("alert_type", string(alertType)).Msg("Cooldown reset")
}

// SendTestAlert fires an alert for a held symbol regardless of cooldown.
// Returns the created alert, or nil when the symbol is not held.
func (m *Monitor) SendTestAlert(ctx context.Context, symbol string, alertType domain.AlertType) *domain.InAppAlert {
	positions, err := m.source.EnrichedPositions(ctx)
	if err != nil {
		m.log.Error().Err(err).Msg("Test alert position fetch failed")
		return nil
	}

	var target *domain.EnrichedPosition
	var totalValue float64
	for i, p := range positions {
		totalValue += p.MarketValue
		if p.Symbol == symbol {
			target = &positions[i]
		}
	}
	if target == nil {
		return nil
	}

	m.ResetCooldown(symbol, alertType)
	m.fireAlert(ctx, alertType, *target, target.SellTarget, totalValue)

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.inAppAlerts) == 0 {
		return nil
	}
	alert := m.inAppAlerts[0]
	return &alert
}

func alertSeverity(alertType domain.AlertType) domain.AlertSeverity {
	switch alertType {
	case domain.AlertStopLossHit:
		return domain.SeverityCritical
	case domain.AlertTrailingStopHit:
		return domain.SeverityWarning
	case domain.AlertSellTargetHit, domain.AlertBullTargetHit:
		return domain.SeveritySuccess
	default:
		return domain.SeverityInfo
	}
}

func alertMessage(alertType domain.AlertType, symbol string, price float64) string {
	p := fmt.Sprintf("$%.2f", price)
	switch alertType {
	case domain.AlertSellTargetHit:
		return fmt.Sprintf("%s reached its sell target at %s. Consider taking profits.", symbol, p)
	case domain.AlertStopLossHit:
		return fmt.Sprintf("%s breached stop loss at %s. Review immediately.", symbol, p)
	case domain.AlertTrailingStopHit:
		return fmt.Sprintf("%s hit trailing stop at %s. Consider reducing exposure.", symbol, p)
	case domain.AlertBullTargetHit:
		return fmt.Sprintf("%s reached bull case target at %s. Excellent — take profits?", symbol, p)
	case domain.AlertDailySummary:
		return "Daily portfolio summary generated."
	default:
		return fmt.Sprintf("%s price alert at %s", symbol, p)
	}
}
