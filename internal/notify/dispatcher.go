// Package notify sends alert emails through SendGrid with SMTP fallback.
// A dispatch always yields an audit log entry; delivery failures never
// propagate as errors past this boundary.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/smtp"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clarafin/clara/internal/domain"
)

// Config holds the email provider settings.
type Config struct {
	SendGridAPIKey string
	FromEmail      string
	FromName       string
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	SMTPUseTLS     bool
	SendGridURL    string // defaults to the public API endpoint
}

// AlertEmail is everything needed to render and address one alert email.
type AlertEmail struct {
	ToEmail        string
	AlertType      domain.AlertType
	Symbol         string
	Company        string
	TriggerPrice   float64
	CurrentPrice   float64
	AvgCost        float64
	Shares         float64
	GainLoss       float64
	GainLossPct    float64
	PortfolioValue float64
	ActionMessage  string
}

// smtpSender abstracts the SMTP send for testing.
type smtpSender func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Dispatcher sends alert emails via the best available provider.
type Dispatcher struct {
	cfg      Config
	client   *http.Client
	sendSMTP smtpSender
	log      zerolog.Logger
}

// NewDispatcher creates an email dispatcher.
func NewDispatcher(cfg Config, log zerolog.Logger) *Dispatcher {
	if cfg.SendGridURL == "" {
		cfg.SendGridURL = "https://api.sendgrid.com/v3/mail/send"
	}
	return &Dispatcher{
		cfg:      cfg,
		client:   &http.Client{Timeout: 10 * time.Second},
		sendSMTP: smtp.SendMail,
		log:      log.With().Str("component", "notify").Logger(),
	}
}

// sendGridConfigured reports whether the SendGrid key looks real.
func (d *Dispatcher) sendGridConfigured() bool {
	return d.cfg.SendGridAPIKey != "" && d.cfg.SendGridAPIKey != "your_sendgrid_key_here"
}

// smtpConfigured reports whether SMTP credentials look real.
func (d *Dispatcher) smtpConfigured() bool {
	return d.cfg.SMTPUsername != "" && d.cfg.SMTPPassword != "" &&
		d.cfg.SMTPUsername != "your_email@gmail.com"
}

// Configured reports whether any delivery provider is usable.
func (d *Dispatcher) Configured() bool {
	return d.sendGridConfigured() || d.smtpConfigured()
}

// SendAlertEmail renders and sends one alert email. SendGrid is tried
// first, then SMTP. The returned log entry records the outcome either way.
func (d *Dispatcher) SendAlertEmail(ctx context.Context, email AlertEmail) domain.EmailLogEntry {
	subject := alertSubject(email.AlertType, email.Symbol)
	html, err := renderAlertHTML(email)
	if err != nil {
		// Template data problems should never drop an alert on the floor.
		d.log.Error().Err(err).Str("symbol", email.Symbol).Msg("Failed to render email body")
		html = fmt.Sprintf("<p>%s: %s at $%.2f</p>", subject, email.Symbol, email.CurrentPrice)
	}

	sent := false
	errMsg := ""
	providerUsed := "none"

	if d.sendGridConfigured() {
		providerUsed = "sendgrid"
		sent, errMsg = d.sendViaSendGrid(ctx, email.ToEmail, subject, html)
	}
	if !sent && d.smtpConfigured() {
		providerUsed = "smtp"
		sent, errMsg = d.sendViaSMTP(email.ToEmail, subject, html)
	}

	if !sent {
		if errMsg == "" {
			errMsg = "No email provider configured. Add SENDGRID_API_KEY or SMTP credentials to .env"
		}
		d.log.Warn().
			Str("symbol", email.Symbol).
			Str("alert_type", string(email.AlertType)).
			Str("error", errMsg).
			Msg("Email not sent")
	} else {
		d.log.Info().
			Str("symbol", email.Symbol).
			Str("provider", providerUsed).
			Str("to", email.ToEmail).
			Msg("Alert email sent")
	}

	return domain.EmailLogEntry{
		ID:           uuid.New().String(),
		Timestamp:    time.Now().UTC(),
		AlertType:    email.AlertType,
		Symbol:       email.Symbol,
		ToEmail:      email.ToEmail,
		TriggerPrice: email.TriggerPrice,
		CurrentPrice: email.CurrentPrice,
		Sent:         sent,
		Error:        errMsg,
		ProviderUsed: providerUsed,
	}
}

func (d *Dispatcher) sendViaSendGrid(ctx context.Context, toEmail, subject, html string) (bool, string) {
	payload := map[string]interface{}{
		"personalizations": []map[string]interface{}{
			{"to": []map[string]string{{"email": toEmail}}},
		},
		"from": map[string]string{
			"email": d.cfg.FromEmail,
			"name":  d.cfg.FromName,
		},
		"subject": subject,
		"content": []map[string]string{
			{"type": "text/html", "value": html},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Sprintf("SendGrid payload error: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.SendGridURL, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Sprintf("SendGrid request error: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.cfg.SendGridAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return false, fmt.Sprintf("SendGrid exception: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusAccepted {
		return true, ""
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
	return false, fmt.Sprintf("SendGrid HTTP %d: %s", resp.StatusCode, respBody)
}

func (d *Dispatcher) sendViaSMTP(toEmail, subject, html string) (bool, string) {
	from := d.cfg.SMTPUsername
	msg := fmt.Sprintf(
		"From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		d.cfg.FromName, from, toEmail, subject, html,
	)

	addr := fmt.Sprintf("%s:%d", d.cfg.SMTPHost, d.cfg.SMTPPort)
	auth := smtp.PlainAuth("", d.cfg.SMTPUsername, d.cfg.SMTPPassword, d.cfg.SMTPHost)
	if err := d.sendSMTP(addr, auth, from, []string{toEmail}, []byte(msg)); err != nil {
		return false, fmt.Sprintf("SMTP error: %v", err)
	}
	return true, ""
}

func alertSubject(alertType domain.AlertType, symbol string) string {
	switch alertType {
	case domain.AlertSellTargetHit:
		return fmt.Sprintf("🎯 CLARA Alert: %s Reached Sell Target", symbol)
	case domain.AlertStopLossHit:
		return fmt.Sprintf("🛑 CLARA CRITICAL: %s Stop Loss Triggered", symbol)
	case domain.AlertTrailingStopHit:
		return fmt.Sprintf("⚠️ CLARA Alert: %s Trailing Stop Hit", symbol)
	case domain.AlertBullTargetHit:
		return fmt.Sprintf("🚀 CLARA Alert: %s Bull Target Reached", symbol)
	case domain.AlertDailySummary:
		return "📊 CLARA Daily Portfolio Summary"
	default:
		return fmt.Sprintf("CLARA Alert: %s", symbol)
	}
}
