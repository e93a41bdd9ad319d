package advisory

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/clarafin/clara/internal/domain"
)

// Config holds the advisory provider settings.
type Config struct {
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string // overridable for tests
	Timeout       time.Duration
}

// Holding is one portfolio weight entry in an advisory payload.
type Holding struct {
	Symbol    string  `json:"symbol"`
	WeightPct float64 `json:"weight_pct"`
}

// PortfolioPayload is the snapshot handed to the advisory model.
type PortfolioPayload struct {
	TotalValue       float64   `json:"total_value"`
	TotalGainLossPct float64   `json:"total_gain_loss_pct"`
	PortfolioBeta    float64   `json:"portfolio_beta"`
	VaR1D95          float64   `json:"var_1d_95"`
	PositionsCount   int       `json:"positions_count"`
	TopHoldings      []Holding `json:"top_holdings"`
}

// Service produces advisory analyses. Gemini is consulted when configured;
// the deterministic heuristic answers otherwise or on any model failure.
type Service struct {
	gemini *geminiClient
	log    zerolog.Logger
}

// NewService creates an advisory service.
func NewService(cfg Config, log zerolog.Logger) *Service {
	l := log.With().Str("component", "advisory").Logger()
	return &Service{
		gemini: newGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL, cfg.Timeout, l),
		log:    l,
	}
}

// Enabled reports whether the model-backed path is available.
func (s *Service) Enabled() bool {
	return s.gemini.enabled()
}

// AnalyzePortfolio returns a normalized risk analysis of the portfolio
// snapshot. Never returns an error: the heuristic fallback always answers.
func (s *Service) AnalyzePortfolio(ctx context.Context, payload PortfolioPayload) domain.AdvisoryResult {
	if s.gemini.enabled() {
		raw, err := s.gemini.generateJSON(ctx, portfolioPrompt(payload))
		if err == nil {
			return normalizeResult(raw, "gemini")
		}
		s.log.Warn().Err(err).Msg("Gemini analysis failed, using heuristic fallback")
	}
	return heuristicPortfolioAnalysis(payload)
}

// RecommendDistribution asks the model which distribution fits a return
// sample. Errors propagate so the VaR calculator can fall back to its
// rule-based selection.
func (s *Service) RecommendDistribution(ctx context.Context, returns []float64, tests domain.StatisticalTests) (*domain.DistributionChoice, error) {
	raw, err := s.gemini.generateJSON(ctx, distributionPrompt(tests))
	if err != nil {
		return nil, err
	}

	distName, _ := raw["distribution"].(string)
	dist := domain.DistributionType(distName)
	switch dist {
	case domain.DistNormal, domain.DistStudentT, domain.DistLogNormal, domain.DistExponential:
	default:
		dist = domain.DistNormal
	}

	rationale, _ := raw["rationale"].(string)
	if rationale == "" {
		rationale = "Model recommendation"
	}

	return &domain.DistributionChoice{
		Distribution: dist,
		Rationale:    rationale,
		Confidence:   clampConfidence(raw["confidence"]),
		Provider:     "advisory",
	}, nil
}

func portfolioPrompt(payload PortfolioPayload) string {
	body, _ := json.Marshal(payload)
	return "You are a senior portfolio risk analyst. Analyze the portfolio payload and return JSON only. " +
		"Do not include markdown. Keep concise and evidence-based.\n\n" +
		"Return exactly this schema:\n" +
		"{\n" +
		"  \"summary\": string,\n" +
		"  \"confidence\": number,\n" +
		"  \"key_risks\": string[],\n" +
		"  \"recommended_actions\": string[],\n" +
		"  \"assumptions\": string[],\n" +
		"  \"missing_data\": string[],\n" +
		"  \"needs_review\": boolean\n" +
		"}\n\n" +
		"Rules:\n" +
		"- Mention concentration, beta exposure, and downside risk if relevant.\n" +
		"- Keep confidence conservative if data is incomplete.\n" +
		"- No investment guarantees.\n\n" +
		"Portfolio payload:\n" + string(body)
}

func distributionPrompt(tests domain.StatisticalTests) string {
	body, _ := json.Marshal(tests)
	return "You are a quantitative risk analyst. Given these statistical test results on a daily " +
		"return sample, pick the best-fitting distribution for VaR estimation and return JSON only.\n\n" +
		"Return exactly this schema:\n" +
		"{\n" +
		"  \"distribution\": \"normal\" | \"student_t\" | \"lognormal\" | \"exponential\",\n" +
		"  \"rationale\": string,\n" +
		"  \"confidence\": number\n" +
		"}\n\n" +
		"Statistical tests:\n" + string(body)
}

// normalizeResult coerces a raw model response into an AdvisoryResult,
// clamping confidence and truncating lists.
func normalizeResult(raw map[string]interface{}, provider string) domain.AdvisoryResult {
	confidence := clampConfidence(raw["confidence"])

	summary, _ := raw["summary"].(string)
	if summary == "" {
		summary = "AI summary unavailable."
	}

	needsReview := confidence < 0.65
	if v, ok := raw["needs_review"].(bool); ok {
		needsReview = v
	}

	return domain.AdvisoryResult{
		Summary:            summary,
		Confidence:         confidence,
		KeyRisks:           stringList(raw["key_risks"], 5),
		RecommendedActions: stringList(raw["recommended_actions"], 5),
		Assumptions:        stringList(raw["assumptions"], 5),
		MissingData:        stringList(raw["missing_data"], 5),
		NeedsReview:        needsReview,
		Provider:           provider,
	}
}

func clampConfidence(v interface{}) float64 {
	confidence := 0.6
	if f, ok := v.(float64); ok {
		confidence = f
	}
	confidence = math.Max(0, math.Min(1, confidence))
	return math.Round(confidence*100) / 100
}

func stringList(v interface{}, limit int) []string {
	items, ok := v.([]interface{})
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if len(out) >= limit {
			break
		}
		out = append(out, fmt.Sprintf("%v", item))
	}
	return out
}
