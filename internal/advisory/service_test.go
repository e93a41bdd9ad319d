package advisory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clarafin/clara/internal/domain"
)

func geminiStub(t *testing.T, modelText string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "key=test-key")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":` + modelText + `}]}}]}`))
	}))
}

func newTestService(baseURL, apiKey string) *Service {
	return NewService(Config{
		GeminiAPIKey:  apiKey,
		GeminiModel:   "gemini-2.0-flash",
		GeminiBaseURL: baseURL,
		Timeout:       5 * time.Second,
	}, zerolog.Nop())
}

func TestAnalyzePortfolioViaGemini(t *testing.T) {
	srv := geminiStub(t, `"{\"summary\":\"Concentrated tech book.\",\"confidence\":0.8,\"key_risks\":[\"NVDA weight\"],\"recommended_actions\":[\"Trim NVDA\"],\"assumptions\":[],\"missing_data\":[],\"needs_review\":false}"`)
	defer srv.Close()

	s := newTestService(srv.URL, "test-key")
	result := s.AnalyzePortfolio(context.Background(), PortfolioPayload{TotalValue: 100000})

	assert.Equal(t, "gemini", result.Provider)
	assert.Equal(t, "Concentrated tech book.", result.Summary)
	assert.Equal(t, 0.8, result.Confidence)
	assert.Equal(t, []string{"NVDA weight"}, result.KeyRisks)
	assert.False(t, result.NeedsReview)
}

func TestAnalyzePortfolioFallsBackOnModelError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := newTestService(srv.URL, "test-key")
	result := s.AnalyzePortfolio(context.Background(), PortfolioPayload{
		TotalValue:    100000,
		PortfolioBeta: 1.5,
	})

	assert.Equal(t, "fallback", result.Provider)
	assert.True(t, result.NeedsReview)
	assert.NotEmpty(t, result.KeyRisks)
}

func TestAnalyzePortfolioWithoutKeyUsesHeuristic(t *testing.T) {
	s := newTestService("", "your_gemini_key_here")
	result := s.AnalyzePortfolio(context.Background(), PortfolioPayload{
		TotalValue:       50000,
		TotalGainLossPct: -12,
		PortfolioBeta:    1.0,
		TopHoldings: []Holding{
			{Symbol: "NVDA", WeightPct: 30},
			{Symbol: "AAPL", WeightPct: 20},
			{Symbol: "MSFT", WeightPct: 10},
		},
	})

	assert.Equal(t, "fallback", result.Provider)
	assert.Equal(t, 0.62, result.Confidence)
	// 60% top-3 concentration plus drawdown both flagged.
	require.Len(t, result.KeyRisks, 2)
	assert.Contains(t, result.KeyRisks[0], "concentration")
	assert.Contains(t, result.KeyRisks[1], "drawdown")
}

func TestHeuristicBalancedPortfolio(t *testing.T) {
	result := heuristicPortfolioAnalysis(PortfolioPayload{
		TotalValue:       10000,
		TotalGainLossPct: 5,
		PortfolioBeta:    1.0,
	})
	require.Len(t, result.KeyRisks, 1)
	assert.Contains(t, result.KeyRisks[0], "balanced")
	assert.Contains(t, result.Summary, "moderate risk")
}

func TestRecommendDistribution(t *testing.T) {
	srv := geminiStub(t, `"{\"distribution\":\"student_t\",\"rationale\":\"Excess kurtosis of 4.2 indicates fat tails.\",\"confidence\":0.85}"`)
	defer srv.Close()

	s := newTestService(srv.URL, "test-key")
	choice, err := s.RecommendDistribution(context.Background(), nil, domain.StatisticalTests{Kurtosis: 4.2})
	require.NoError(t, err)
	assert.Equal(t, domain.DistStudentT, choice.Distribution)
	assert.Equal(t, 0.85, choice.Confidence)
	assert.Equal(t, "advisory", choice.Provider)
}

func TestRecommendDistributionUnknownNameDefaultsToNormal(t *testing.T) {
	srv := geminiStub(t, `"{\"distribution\":\"cauchy\",\"confidence\":2.5}"`)
	defer srv.Close()

	s := newTestService(srv.URL, "test-key")
	choice, err := s.RecommendDistribution(context.Background(), nil, domain.StatisticalTests{})
	require.NoError(t, err)
	assert.Equal(t, domain.DistNormal, choice.Distribution)
	// Confidence is clamped into [0, 1].
	assert.Equal(t, 1.0, choice.Confidence)
}

func TestRecommendDistributionErrorPropagates(t *testing.T) {
	s := newTestService("", "")
	_, err := s.RecommendDistribution(context.Background(), nil, domain.StatisticalTests{})
	assert.Error(t, err)
}

func TestParseJSONTextWithProse(t *testing.T) {
	parsed, err := parseJSONText("Here is the analysis:\n```json\n{\"summary\": \"ok\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "ok", parsed["summary"])

	_, err = parseJSONText("no json here")
	assert.Error(t, err)
}
