// Package domain contains the core types shared across the risk service.
// The domain layer is pure: no infrastructure dependencies.
package domain

import "time"

// RiskLevel classifies a position by its beta.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskVeryHigh RiskLevel = "Very High"
)

// DistributionType identifies the probability distribution used for VaR/ES.
type DistributionType string

const (
	DistNormal      DistributionType = "normal"
	DistStudentT    DistributionType = "student_t"
	DistLogNormal   DistributionType = "lognormal"
	DistExponential DistributionType = "exponential"
)

// AlertType identifies which price target was crossed.
type AlertType string

const (
	AlertSellTargetHit   AlertType = "sell_target_hit"
	AlertStopLossHit     AlertType = "stop_loss_hit"
	AlertTrailingStopHit AlertType = "trailing_stop_hit"
	AlertBullTargetHit   AlertType = "bull_target_hit"
	AlertDailySummary    AlertType = "daily_summary"
)

// AlertSeverity classifies an in-app alert for display purposes.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
	SeveritySuccess  AlertSeverity = "success"
)

// Position is a raw portfolio position as stored.
type Position struct {
	ID      string  `json:"id"`
	Symbol  string  `json:"symbol"`
	Shares  float64 `json:"shares"`
	AvgCost float64 `json:"avg_cost"`
	Note    string  `json:"note,omitempty"`
	Sector  string  `json:"sector,omitempty"`
}

// Quote is a point-in-time market quote for a symbol.
// Lifetime is a single fetch cycle; quotes are never persisted.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Company       string    `json:"company"`
	Sector        string    `json:"sector"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePct     float64   `json:"change_pct"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Volume        int64     `json:"volume"`
	PrevClose     float64   `json:"prev_close"`
	PERatio       float64   `json:"pe_ratio,omitempty"`
	Beta          float64   `json:"beta"`
	WeekHigh52    float64   `json:"week_high_52,omitempty"`
	WeekLow52     float64   `json:"week_low_52,omitempty"`
	AnalystTarget float64   `json:"analyst_target,omitempty"`
	LastUpdated   time.Time `json:"last_updated"`
	DataSource    string    `json:"data_source"`
}

// Bar is a single OHLCV history bar.
type Bar struct {
	Date   string  `json:"date"` // YYYY-MM-DD
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// PriceTargets holds the computed target set for a position.
type PriceTargets struct {
	SellTarget         float64 `json:"sell_target"`
	StopLoss           float64 `json:"stop_loss"`
	TrailingStop       float64 `json:"trailing_stop"`
	BullTarget         float64 `json:"bull_target"`
	ConservativeTarget float64 `json:"conservative_target"`
}

// EnrichedPosition is a Position joined with a live quote and computed
// analytics. Derived and ephemeral: recomputed on every request.
type EnrichedPosition struct {
	ID            string    `json:"id"`
	Symbol        string    `json:"symbol"`
	Company       string    `json:"company"`
	Shares        float64   `json:"shares"`
	AvgCost       float64   `json:"avg_cost"`
	Note          string    `json:"note,omitempty"`
	Sector        string    `json:"sector"`
	CurrentPrice  float64   `json:"current_price"`
	Change        float64   `json:"change"`
	ChangePct     float64   `json:"change_pct"`
	MarketValue   float64   `json:"market_value"`
	CostBasis     float64   `json:"cost_basis"`
	GainLoss      float64   `json:"gain_loss"`
	GainLossPct   float64   `json:"gain_loss_pct"`
	DayGainLoss   float64   `json:"day_gain_loss"`
	PriceTargets
	Beta          float64   `json:"beta"`
	RiskLevel     RiskLevel `json:"risk_level"`
	Action        string    `json:"action"`
	WeekHigh52    float64   `json:"week_high_52,omitempty"`
	WeekLow52     float64   `json:"week_low_52,omitempty"`
	PERatio       float64   `json:"pe_ratio,omitempty"`
	AnalystTarget float64   `json:"analyst_target,omitempty"`
	Weight        float64   `json:"weight"`
	DataSource    string    `json:"data_source"`
}

// PortfolioSummary aggregates portfolio-level metrics.
type PortfolioSummary struct {
	TotalValue        float64 `json:"total_value"`
	CostBasis         float64 `json:"cost_basis"`
	TotalGainLoss     float64 `json:"total_gain_loss"`
	TotalGainLossPct  float64 `json:"total_gain_loss_pct"`
	DayGainLoss       float64 `json:"day_gain_loss"`
	PortfolioBeta     float64 `json:"portfolio_beta"`
	PositionsCount    int     `json:"positions_count"`
	VaR1D95           float64 `json:"var_1d_95"`
	ExpectedShortfall float64 `json:"expected_shortfall"`
}

// VaRResult is a single VaR/ES figure for one confidence level and horizon.
type VaRResult struct {
	ConfidenceLevel  float64          `json:"confidence_level"`
	TimeHorizon      int              `json:"time_horizon"`
	VaRAmount        float64          `json:"var_amount"`
	ESAmount         float64          `json:"es_amount"`
	DistributionUsed DistributionType `json:"distribution_used"`
	Percentile       float64          `json:"percentile"`
}

// StatisticalTests summarizes distribution-fit diagnostics on a return sample.
type StatisticalTests struct {
	SampleSize      int     `json:"sample_size"`
	SufficientData  bool    `json:"sufficient_data"`
	NormalityPValue float64 `json:"normality_pvalue"`
	QuantileCorr    float64 `json:"quantile_corr"`
	Kurtosis        float64 `json:"kurtosis"`
	Skewness        float64 `json:"skewness"`
	IsNormal        bool    `json:"is_normal"`
	HasFatTails     bool    `json:"has_fat_tails"`
	IsSkewed        bool    `json:"is_skewed"`
	Mean            float64 `json:"mean"`
	Std             float64 `json:"std"`
}

// DistributionChoice records which distribution was selected and why.
type DistributionChoice struct {
	Distribution DistributionType `json:"distribution"`
	Rationale    string           `json:"rationale"`
	Confidence   float64          `json:"confidence"`
	Provider     string           `json:"provider"` // rule_based | advisory | fallback
}

// MultiVaRResult carries VaR/ES across confidence levels and horizons.
type MultiVaRResult struct {
	PortfolioID        string              `json:"portfolio_id"`
	CalculationTime    time.Time           `json:"calculation_time"`
	Results            []VaRResult         `json:"results"`
	DistributionChoice *DistributionChoice `json:"distribution_recommendation,omitempty"`
	StatisticalTests   *StatisticalTests   `json:"statistical_tests,omitempty"`
}

// HistogramBucket is one bucket of the Monte Carlo loss distribution.
type HistogramBucket struct {
	Bucket float64 `json:"bucket"` // bucket midpoint
	Count  int     `json:"count"`
}

// ConvergencePoint samples the VaR95 estimate at a path-count prefix.
type ConvergencePoint struct {
	Paths int     `json:"paths"`
	VaR95 float64 `json:"var_95"`
}

// MonteCarloResult holds the simulated one-day loss distribution.
type MonteCarloResult struct {
	Paths             int                `json:"paths"`
	MeanReturn        float64            `json:"mean_return"`
	StdDev            float64            `json:"std_dev"`
	VaR95             float64            `json:"var_95"`
	VaR99             float64            `json:"var_99"`
	ExpectedShortfall float64            `json:"expected_shortfall"`
	MaxLoss           float64            `json:"max_loss"`
	MaxGain           float64            `json:"max_gain"`
	Histogram         []HistogramBucket  `json:"histogram"`
	Convergence       []ConvergencePoint `json:"convergence"`
}

// RiskContributor ranks a position by marginal VaR contribution.
type RiskContributor struct {
	Symbol       string  `json:"symbol"`
	Company      string  `json:"company"`
	MarginalVaR  float64 `json:"marginal_var"`
	ComponentVaR float64 `json:"component_var"`
	PctOfTotal   float64 `json:"pct_of_total"`
	Beta         float64 `json:"beta"`
}

// SensitivityResult is the VaR impact of perturbing one risk factor.
type SensitivityResult struct {
	FactorName  string  `json:"factor_name"`
	BaseVaR     float64 `json:"base_var"`
	LowVaR      float64 `json:"low_var"`
	HighVaR     float64 `json:"high_var"`
	ImpactRange float64 `json:"impact_range"`
	ImpactPct   float64 `json:"impact_pct"`
}

// TornadoData is the full one-factor-at-a-time sensitivity sweep,
// sorted descending by impact range.
type TornadoData struct {
	PortfolioID    string              `json:"portfolio_id"`
	Factors        []SensitivityResult `json:"factors"`
	BaseVaR        float64             `json:"base_var"`
	SortedByImpact bool                `json:"sorted_by_impact"`
}

// AlertConfig is the mutable alert monitor configuration.
type AlertConfig struct {
	Enabled              bool          `json:"enabled"`
	CheckInterval        time.Duration `json:"-"`
	CheckIntervalSeconds int           `json:"check_interval_seconds"`
	AlertOnSellTarget    bool          `json:"alert_on_sell_target"`
	AlertOnStopLoss      bool          `json:"alert_on_stop_loss"`
	AlertOnTrailingStop  bool          `json:"alert_on_trailing_stop"`
	AlertOnBullTarget    bool          `json:"alert_on_bull_target"`
	Cooldown             time.Duration `json:"-"`
	CooldownHours        float64       `json:"cooldown_hours"`
	UserEmail            string        `json:"user_email"`
	EmailProvider        string        `json:"email_provider"` // auto | sendgrid | smtp
}

// AlertConfigPatch carries partial updates to the alert configuration.
// Only non-nil fields overwrite.
type AlertConfigPatch struct {
	Enabled              *bool    `json:"enabled,omitempty"`
	CheckIntervalSeconds *int     `json:"check_interval_seconds,omitempty"`
	AlertOnSellTarget    *bool    `json:"alert_on_sell_target,omitempty"`
	AlertOnStopLoss      *bool    `json:"alert_on_stop_loss,omitempty"`
	AlertOnTrailingStop  *bool    `json:"alert_on_trailing_stop,omitempty"`
	AlertOnBullTarget    *bool    `json:"alert_on_bull_target,omitempty"`
	CooldownHours        *float64 `json:"cooldown_hours,omitempty"`
	UserEmail            *string  `json:"user_email,omitempty"`
	EmailProvider        *string  `json:"email_provider,omitempty"`
}

// InAppAlert is an alert surfaced in the application.
type InAppAlert struct {
	ID           string        `json:"id"`
	Timestamp    time.Time     `json:"timestamp"`
	AlertType    AlertType     `json:"alert_type"`
	Symbol       string        `json:"symbol"`
	Company      string        `json:"company"`
	Message      string        `json:"message"`
	TriggerPrice float64       `json:"trigger_price"`
	CurrentPrice float64       `json:"current_price"`
	Severity     AlertSeverity `json:"severity"`
	Acknowledged bool          `json:"acknowledged"`
	EmailSent    bool          `json:"email_sent"`
}

// EmailLogEntry is an append-only audit record of a notification attempt.
type EmailLogEntry struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	AlertType    AlertType `json:"alert_type"`
	Symbol       string    `json:"symbol"`
	ToEmail      string    `json:"to_email"`
	TriggerPrice float64   `json:"trigger_price"`
	CurrentPrice float64   `json:"current_price"`
	Sent         bool      `json:"sent"`
	Error        string    `json:"error,omitempty"`
	ProviderUsed string    `json:"provider_used"`
}

// MonitorStatus is a snapshot of the alert monitor state.
type MonitorStatus struct {
	Status         string  `json:"status"` // idle | running | paused | stopped
	UptimeSeconds  float64 `json:"uptime_seconds"`
	AlertsToday    int     `json:"alerts_today"`
	Unacknowledged int     `json:"unacknowledged"`
	Holdings       int     `json:"holdings"`
}

// BreachThreshold is a configurable limit on a summary metric.
type BreachThreshold struct {
	Metric    string  `json:"metric"`
	Threshold float64 `json:"threshold"`
	Enabled   bool    `json:"enabled"`
}

// BreachSeverity classifies a breach by how far the threshold was exceeded.
type BreachSeverity string

const (
	BreachLow      BreachSeverity = "low"
	BreachMedium   BreachSeverity = "medium"
	BreachHigh     BreachSeverity = "high"
	BreachCritical BreachSeverity = "critical"
)

// BreachEvent records a single threshold breach.
type BreachEvent struct {
	BreachID     string         `json:"breach_id"`
	PortfolioID  string         `json:"portfolio_id"`
	Timestamp    time.Time      `json:"timestamp"`
	Metric       string         `json:"metric"`
	Threshold    float64        `json:"threshold"`
	ActualValue  float64        `json:"actual_value"`
	Severity     BreachSeverity `json:"severity"`
	Acknowledged bool           `json:"acknowledged"`
}

// BreachHistory is a filtered view over a portfolio's breach events.
type BreachHistory struct {
	PortfolioID   string            `json:"portfolio_id"`
	TotalBreaches int               `json:"total_breaches"`
	Breaches      []BreachEvent     `json:"breaches"`
	DateRange     map[string]string `json:"date_range"`
}

// AdvisoryResult is the normalized output of the advisory capability.
type AdvisoryResult struct {
	Summary            string   `json:"summary"`
	Confidence         float64  `json:"confidence"`
	KeyRisks           []string `json:"key_risks"`
	RecommendedActions []string `json:"recommended_actions"`
	Assumptions        []string `json:"assumptions"`
	MissingData        []string `json:"missing_data"`
	NeedsReview        bool     `json:"needs_review"`
	Provider           string   `json:"provider"` // gemini | fallback
}
