package alerts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clarafin/clara/internal/domain"
	"github.com/clarafin/clara/internal/notify"
)

type fakeSource struct {
	positions []domain.EnrichedPosition
	err       error
}

func (f *fakeSource) EnrichedPositions(ctx context.Context) ([]domain.EnrichedPosition, error) {
	return f.positions, f.err
}

type fakeSender struct {
	sent []notify.AlertEmail
}

func (f *fakeSender) SendAlertEmail(ctx context.Context, email notify.AlertEmail) domain.EmailLogEntry {
	f.sent = append(f.sent, email)
	return domain.EmailLogEntry{
		ID:           "log-1",
		Timestamp:    time.Now().UTC(),
		AlertType:    email.AlertType,
		Symbol:       email.Symbol,
		ToEmail:      email.ToEmail,
		Sent:         true,
		ProviderUsed: "sendgrid",
	}
}

func defaultConfig() domain.AlertConfig {
	return domain.AlertConfig{
		Enabled:             true,
		CheckInterval:       30 * time.Second,
		AlertOnSellTarget:   true,
		AlertOnStopLoss:     true,
		AlertOnTrailingStop: true,
		AlertOnBullTarget:   true,
		Cooldown:            4 * time.Hour,
		UserEmail:           "user@example.com",
	}
}

func position(symbol string, price, sellTarget, stopLoss float64) domain.EnrichedPosition {
	return domain.EnrichedPosition{
		ID:           "p-" + symbol,
		Symbol:       symbol,
		Company:      symbol + " Inc.",
		Shares:       10,
		AvgCost:      100,
		CurrentPrice: price,
		MarketValue:  price * 10,
		PriceTargets: domain.PriceTargets{
			SellTarget:   sellTarget,
			StopLoss:     stopLoss,
			TrailingStop: stopLoss - 5,
			BullTarget:   sellTarget * 1.2,
		},
	}
}

func newTestMonitor(source PortfolioSource, sender EmailSender) *Monitor {
	return NewMonitor(source, sender, defaultConfig(), 21, zerolog.Nop())
}

func TestSellTargetFiresAlertAndEmail(t *testing.T) {
	source := &fakeSource{positions: []domain.EnrichedPosition{
		position("AAPL", 130, 120, 90),
	}}
	sender := &fakeSender{}
	m := newTestMonitor(source, sender)

	require.NoError(t, m.CheckOnce(context.Background()))

	alerts := m.Alerts(false)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.AlertSellTargetHit, alerts[0].AlertType)
	assert.Equal(t, domain.SeveritySuccess, alerts[0].Severity)
	assert.Equal(t, 120.0, alerts[0].TriggerPrice)
	assert.Equal(t, 130.0, alerts[0].CurrentPrice)
	assert.True(t, alerts[0].EmailSent)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "user@example.com", sender.sent[0].ToEmail)

	logs := m.EmailLogs(0)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Sent)
}

func TestStopLossSeverityCritical(t *testing.T) {
	source := &fakeSource{positions: []domain.EnrichedPosition{
		position("NVDA", 85, 150, 90),
	}}
	m := newTestMonitor(source, &fakeSender{})

	require.NoError(t, m.CheckOnce(context.Background()))

	alerts := m.Alerts(false)
	// Price 85 breaches both stop loss (90) and trailing stop (85).
	require.Len(t, alerts, 2)
	for _, a := range alerts {
		if a.AlertType == domain.AlertStopLossHit {
			assert.Equal(t, domain.SeverityCritical, a.Severity)
			assert.Contains(t, a.Message, "Review immediately")
		}
	}
}

func TestCooldownSuppressesRepeatAlerts(t *testing.T) {
	source := &fakeSource{positions: []domain.EnrichedPosition{
		position("AAPL", 130, 120, 90),
	}}
	sender := &fakeSender{}
	m := newTestMonitor(source, sender)

	require.NoError(t, m.CheckOnce(context.Background()))
	require.NoError(t, m.CheckOnce(context.Background()))
	require.NoError(t, m.CheckOnce(context.Background()))

	assert.Len(t, m.Alerts(false), 1)
	assert.Len(t, sender.sent, 1)
}

func TestResetCooldownAllowsRefire(t *testing.T) {
	source := &fakeSource{positions: []domain.EnrichedPosition{
		position("AAPL", 130, 120, 90),
	}}
	m := newTestMonitor(source, &fakeSender{})

	require.NoError(t, m.CheckOnce(context.Background()))
	m.ResetCooldown("AAPL", domain.AlertSellTargetHit)
	require.NoError(t, m.CheckOnce(context.Background()))

	assert.Len(t, m.Alerts(false), 2)
}

func TestCooldownIsPerSymbolAndType(t *testing.T) {
	source := &fakeSource{positions: []domain.EnrichedPosition{
		position("AAPL", 130, 120, 90),
		position("NVDA", 200, 180, 90),
	}}
	m := newTestMonitor(source, &fakeSender{})

	require.NoError(t, m.CheckOnce(context.Background()))
	// Both symbols fire independently despite the shared alert type.
	assert.Len(t, m.Alerts(false), 2)
}

func TestDisabledRuleDoesNotFire(t *testing.T) {
	source := &fakeSource{positions: []domain.EnrichedPosition{
		position("AAPL", 130, 120, 90),
	}}
	m := newTestMonitor(source, &fakeSender{})

	off := false
	m.UpdateConfig(domain.AlertConfigPatch{AlertOnSellTarget: &off})
	require.NoError(t, m.CheckOnce(context.Background()))

	assert.Empty(t, m.Alerts(false))
}

func TestNoEmailWithoutUserAddress(t *testing.T) {
	source := &fakeSource{positions: []domain.EnrichedPosition{
		position("AAPL", 130, 120, 90),
	}}
	sender := &fakeSender{}
	m := newTestMonitor(source, sender)

	empty := ""
	m.UpdateConfig(domain.AlertConfigPatch{UserEmail: &empty})
	require.NoError(t, m.CheckOnce(context.Background()))

	// In-app alert still recorded; no email is attempted.
	assert.Len(t, m.Alerts(false), 1)
	assert.Empty(t, sender.sent)
}

func TestAcknowledge(t *testing.T) {
	source := &fakeSource{positions: []domain.EnrichedPosition{
		position("AAPL", 130, 120, 90),
	}}
	m := newTestMonitor(source, &fakeSender{})
	require.NoError(t, m.CheckOnce(context.Background()))

	alerts := m.Alerts(false)
	require.Len(t, alerts, 1)

	assert.True(t, m.Acknowledge(alerts[0].ID))
	assert.False(t, m.Acknowledge("no-such-id"))

	assert.Empty(t, m.Alerts(true))
	assert.Len(t, m.Alerts(false), 1)

	status := m.Status()
	assert.Equal(t, 0, status.Unacknowledged)
	assert.Equal(t, 1, status.AlertsToday)
}

func TestClearAlerts(t *testing.T) {
	source := &fakeSource{positions: []domain.EnrichedPosition{
		position("AAPL", 130, 120, 90),
	}}
	m := newTestMonitor(source, &fakeSender{})
	require.NoError(t, m.CheckOnce(context.Background()))

	m.ClearAlerts()
	assert.Empty(t, m.Alerts(false))
}

func TestUpdateConfigPartialPatch(t *testing.T) {
	m := newTestMonitor(&fakeSource{}, &fakeSender{})

	interval := 60
	cooldown := 2.0
	cfg := m.UpdateConfig(domain.AlertConfigPatch{
		CheckIntervalSeconds: &interval,
		CooldownHours:        &cooldown,
	})

	assert.Equal(t, 60, cfg.CheckIntervalSeconds)
	assert.Equal(t, 2.0, cfg.CooldownHours)
	// Untouched fields keep their values.
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "user@example.com", cfg.UserEmail)
}

func TestSendTestAlert(t *testing.T) {
	source := &fakeSource{positions: []domain.EnrichedPosition{
		position("AAPL", 100, 120, 90),
	}}
	m := newTestMonitor(source, &fakeSender{})

	alert := m.SendTestAlert(context.Background(), "AAPL", domain.AlertSellTargetHit)
	require.NotNil(t, alert)
	assert.Equal(t, "AAPL", alert.Symbol)
	assert.Equal(t, domain.AlertSellTargetHit, alert.AlertType)

	// Unknown symbols are not in the registry.
	assert.Nil(t, m.SendTestAlert(context.Background(), "ZZZZ", domain.AlertSellTargetHit))
}

func TestRunLoopStops(t *testing.T) {
	m := NewMonitor(&fakeSource{}, &fakeSender{}, domain.AlertConfig{
		Enabled:       true,
		CheckInterval: 10 * time.Millisecond,
		Cooldown:      time.Hour,
	}, 21, zerolog.Nop())

	go m.Run(context.Background())
	time.Sleep(50 * time.Millisecond)
	m.Stop()

	assert.Equal(t, "stopped", m.Status().Status)
}

// pacingSource records when each check starts and simulates a slow
// portfolio fetch.
type pacingSource struct {
	mu    sync.Mutex
	delay time.Duration
	calls []time.Time
}

func (p *pacingSource) EnrichedPositions(ctx context.Context) ([]domain.EnrichedPosition, error) {
	p.mu.Lock()
	p.calls = append(p.calls, time.Now())
	p.mu.Unlock()
	time.Sleep(p.delay)
	return []domain.EnrichedPosition{position("AAPL", 100, 120, 90)}, nil
}

func TestRunWaitsFullIntervalBetweenChecks(t *testing.T) {
	source := &pacingSource{delay: 50 * time.Millisecond}
	m := NewMonitor(source, &fakeSender{}, domain.AlertConfig{
		Enabled:       true,
		CheckInterval: 10 * time.Millisecond,
		Cooldown:      time.Hour,
	}, 21, zerolog.Nop())

	go m.Run(context.Background())
	time.Sleep(200 * time.Millisecond)
	m.Stop()

	source.mu.Lock()
	calls := append([]time.Time(nil), source.calls...)
	source.mu.Unlock()

	require.GreaterOrEqual(t, len(calls), 2)
	for i := 1; i < len(calls); i++ {
		// A slow check must not eat into the pause before the next one:
		// each gap covers the check duration plus a full interval.
		assert.GreaterOrEqual(t, calls[i].Sub(calls[i-1]), 55*time.Millisecond)
	}
}

func TestStatusPausedWithoutHoldings(t *testing.T) {
	m := NewMonitor(&fakeSource{}, &fakeSender{}, domain.AlertConfig{
		Enabled:       true,
		CheckInterval: 10 * time.Millisecond,
		Cooldown:      time.Hour,
	}, 21, zerolog.Nop())

	go m.Run(context.Background())
	time.Sleep(80 * time.Millisecond)

	// Enabled but watching an empty portfolio: paused, not running.
	assert.Equal(t, "paused", m.Status().Status)
	m.Stop()
}

func TestStatusReportsHoldings(t *testing.T) {
	source := &fakeSource{positions: []domain.EnrichedPosition{
		position("AAPL", 100, 120, 90),
		position("NVDA", 100, 120, 90),
	}}
	m := newTestMonitor(source, &fakeSender{})
	require.NoError(t, m.CheckOnce(context.Background()))

	status := m.Status()
	assert.Equal(t, 2, status.Holdings)
	assert.GreaterOrEqual(t, status.UptimeSeconds, 0.0)
}
