package notify

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/clarafin/clara/internal/domain"
)

// alertColor maps alert types to the accent color of the email theme.
func alertColor(alertType domain.AlertType) string {
	switch alertType {
	case domain.AlertSellTargetHit:
		return "#f59e0b"
	case domain.AlertStopLossHit:
		return "#ef4444"
	case domain.AlertTrailingStopHit:
		return "#f97316"
	case domain.AlertBullTargetHit:
		return "#10b981"
	case domain.AlertDailySummary:
		return "#3b82f6"
	default:
		return "#6366f1"
	}
}

func alertTypeLabel(alertType domain.AlertType) string {
	switch alertType {
	case domain.AlertSellTargetHit:
		return "Sell Target Reached"
	case domain.AlertStopLossHit:
		return "Stop Loss Triggered"
	case domain.AlertTrailingStopHit:
		return "Trailing Stop Hit"
	case domain.AlertBullTargetHit:
		return "Bull Target Reached"
	case domain.AlertDailySummary:
		return "Daily Summary"
	default:
		return "Price Alert"
	}
}

var alertTemplate = template.Must(template.New("alert").Parse(strings.TrimSpace(`
<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>CLARA Alert</title>
</head>
<body style="margin:0;padding:0;background:#0f172a;font-family:'Segoe UI',Arial,sans-serif;">
  <table width="100%" cellpadding="0" cellspacing="0" style="background:#0f172a;padding:30px 0;">
    <tr>
      <td align="center">
        <table width="600" cellpadding="0" cellspacing="0" style="background:#1e293b;border-radius:16px;overflow:hidden;border:1px solid #334155;">
          <tr>
            <td style="background:{{.Color}};padding:24px 32px;">
              <p style="margin:0;color:rgba(255,255,255,0.8);font-size:12px;letter-spacing:2px;text-transform:uppercase;">CLARA — Clairvoyant Loss Avoidance &amp; Risk Advisor</p>
              <h1 style="margin:8px 0 0;color:#ffffff;font-size:22px;font-weight:700;">{{.TypeLabel}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding:24px 32px 0;background:#0f172a;">
              <table width="100%" cellpadding="0" cellspacing="0" style="background:#1e293b;border-radius:12px;padding:20px;border:1px solid {{.Color}}33;">
                <tr>
                  <td>
                    <p style="margin:0;color:#94a3b8;font-size:12px;text-transform:uppercase;letter-spacing:1px;">Position</p>
                    <h2 style="margin:4px 0;color:#f1f5f9;font-size:28px;font-weight:800;">{{.Symbol}}</h2>
                    <p style="margin:0;color:#64748b;font-size:14px;">{{.Company}}</p>
                  </td>
                  <td align="right">
                    <p style="margin:0;color:#94a3b8;font-size:12px;text-transform:uppercase;letter-spacing:1px;">Current Price</p>
                    <h2 style="margin:4px 0;color:#f1f5f9;font-size:28px;font-weight:800;">{{.CurrentPrice}}</h2>
                    <p style="margin:0;color:{{.Color}};font-size:13px;font-weight:600;">Trigger: {{.TriggerPrice}}</p>
                  </td>
                </tr>
              </table>
            </td>
          </tr>
          <tr>
            <td style="padding:16px 32px 0;background:#0f172a;">
              <table width="100%" cellpadding="0" cellspacing="0">
                <tr>
                  <td width="50%" style="padding-right:8px;">
                    <div style="background:#1e293b;border-radius:10px;padding:16px;border:1px solid #334155;">
                      <p style="margin:0;color:#64748b;font-size:11px;text-transform:uppercase;letter-spacing:1px;">Shares Held</p>
                      <p style="margin:4px 0 0;color:#f1f5f9;font-size:20px;font-weight:700;">{{.Shares}}</p>
                    </div>
                  </td>
                  <td width="50%" style="padding-left:8px;">
                    <div style="background:#1e293b;border-radius:10px;padding:16px;border:1px solid #334155;">
                      <p style="margin:0;color:#64748b;font-size:11px;text-transform:uppercase;letter-spacing:1px;">Avg Cost</p>
                      <p style="margin:4px 0 0;color:#f1f5f9;font-size:20px;font-weight:700;">{{.AvgCost}}</p>
                    </div>
                  </td>
                </tr>
                <tr>
                  <td width="50%" style="padding-right:8px;padding-top:12px;">
                    <div style="background:#1e293b;border-radius:10px;padding:16px;border:1px solid #334155;">
                      <p style="margin:0;color:#64748b;font-size:11px;text-transform:uppercase;letter-spacing:1px;">Market Value</p>
                      <p style="margin:4px 0 0;color:#f1f5f9;font-size:20px;font-weight:700;">{{.MarketValue}}</p>
                    </div>
                  </td>
                  <td width="50%" style="padding-left:8px;padding-top:12px;">
                    <div style="background:#1e293b;border-radius:10px;padding:16px;border:1px solid #334155;">
                      <p style="margin:0;color:#64748b;font-size:11px;text-transform:uppercase;letter-spacing:1px;">Unrealized P&amp;L</p>
                      <p style="margin:4px 0 0;color:{{.GainColor}};font-size:20px;font-weight:700;">{{.GainLoss}}</p>
                    </div>
                  </td>
                </tr>
              </table>
            </td>
          </tr>
          <tr>
            <td style="padding:16px 32px 0;background:#0f172a;">
              <div style="background:{{.Color}}1a;border-radius:10px;padding:20px;border:1px solid {{.Color}}44;">
                <p style="margin:0;color:{{.Color}};font-size:12px;text-transform:uppercase;letter-spacing:1px;font-weight:600;">CLARA Recommendation</p>
                <p style="margin:8px 0 0;color:#f1f5f9;font-size:15px;line-height:1.6;">{{.ActionMessage}}</p>
              </div>
            </td>
          </tr>
          <tr>
            <td style="padding:16px 32px 0;background:#0f172a;">
              <div style="background:#1e293b;border-radius:10px;padding:16px;border:1px solid #334155;text-align:center;">
                <p style="margin:0;color:#64748b;font-size:11px;text-transform:uppercase;letter-spacing:1px;">Total Portfolio Value</p>
                <p style="margin:4px 0 0;color:#f1f5f9;font-size:22px;font-weight:700;">{{.PortfolioValue}}</p>
              </div>
            </td>
          </tr>
          <tr>
            <td style="padding:24px 32px;background:#0f172a;text-align:center;">
              <p style="margin:0;color:#475569;font-size:12px;">Generated by CLARA Alert Agent • {{.Timestamp}}</p>
              <p style="margin:8px 0 0;color:#475569;font-size:11px;">This is an automated alert. Not financial advice. Past performance is not indicative of future results.</p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>
`)))

type alertTemplateData struct {
	Color          template.CSS
	GainColor      template.CSS
	TypeLabel      string
	Symbol         string
	Company        string
	CurrentPrice   string
	TriggerPrice   string
	Shares         string
	AvgCost        string
	MarketValue    string
	GainLoss       string
	PortfolioValue string
	ActionMessage  string
	Timestamp      string
}

// renderAlertHTML fills the dark-themed alert template.
func renderAlertHTML(email AlertEmail) (string, error) {
	gainColor := "#10b981"
	gainSign := "+"
	if email.GainLoss < 0 {
		gainColor = "#ef4444"
		gainSign = ""
	}

	data := alertTemplateData{
		Color:          template.CSS(alertColor(email.AlertType)),
		GainColor:      template.CSS(gainColor),
		TypeLabel:      alertTypeLabel(email.AlertType),
		Symbol:         email.Symbol,
		Company:        email.Company,
		CurrentPrice:   fmt.Sprintf("$%.2f", email.CurrentPrice),
		TriggerPrice:   fmt.Sprintf("$%.2f", email.TriggerPrice),
		Shares:         fmt.Sprintf("%.4f", email.Shares),
		AvgCost:        fmt.Sprintf("$%.2f", email.AvgCost),
		MarketValue:    fmt.Sprintf("$%.2f", email.Shares*email.CurrentPrice),
		GainLoss:       fmt.Sprintf("%s$%.2f (%s%.1f%%)", gainSign, email.GainLoss, gainSign, email.GainLossPct),
		PortfolioValue: fmt.Sprintf("$%.2f", email.PortfolioValue),
		ActionMessage:  email.ActionMessage,
		Timestamp:      time.Now().UTC().Format("January 02, 2006 at 15:04 UTC"),
	}

	var sb strings.Builder
	if err := alertTemplate.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}
