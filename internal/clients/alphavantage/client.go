// Package alphavantage provides a quote and daily history client for the
// Alpha Vantage REST API, with a daily request budget and a circuit breaker.
package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/clarafin/clara/internal/domain"
)

// ErrQuotaExceeded is returned once the daily request budget is spent or the
// API replies with a throttling note instead of data.
var ErrQuotaExceeded = errors.New("alphavantage daily quota exceeded")

// Client for the Alpha Vantage API.
type Client struct {
	apiKey     string
	baseURL    string
	dailyLimit int
	client     *http.Client
	breaker    *gobreaker.CircuitBreaker
	log        zerolog.Logger

	mu        sync.Mutex
	quotaDate string
	quotaUsed int
}

// RateStatus reports the remaining daily request budget.
type RateStatus struct {
	Limit     int    `json:"limit"`
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
	ResetDate string `json:"reset_date"`
}

// NewClient creates a new Alpha Vantage client.
func NewClient(apiKey, baseURL string, dailyLimit int, log zerolog.Logger) *Client {
	l := log.With().Str("client", "alphavantage").Logger()
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "alphavantage",
		MaxRequests: 1,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn().Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state change")
		},
	})
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		dailyLimit: dailyLimit,
		client:     &http.Client{Timeout: 10 * time.Second},
		breaker:    breaker,
		log:        l,
	}
}

// Name identifies the provider within the quote cascade.
func (c *Client) Name() string { return "alphavantage" }

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != "" && !strings.HasPrefix(c.apiKey, "your_")
}

// Status returns the current daily budget usage.
func (c *Client) Status() RateStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollQuotaLocked()
	return RateStatus{
		Limit:     c.dailyLimit,
		Used:      c.quotaUsed,
		Remaining: c.dailyLimit - c.quotaUsed,
		ResetDate: c.quotaDate,
	}
}

// rollQuotaLocked resets the counter when the UTC date changes.
func (c *Client) rollQuotaLocked() {
	today := time.Now().UTC().Format("2006-01-02")
	if c.quotaDate != today {
		c.quotaDate = today
		c.quotaUsed = 0
	}
}

// reserve consumes one request from the daily budget.
func (c *Client) reserve() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollQuotaLocked()
	if c.quotaUsed >= c.dailyLimit {
		return ErrQuotaExceeded
	}
	c.quotaUsed++
	return nil
}

func (c *Client) get(ctx context.Context, params url.Values, out interface{}) error {
	if !c.Configured() {
		return errors.New("alphavantage API key not configured")
	}
	if err := c.reserve(); err != nil {
		return err
	}
	params.Set("apikey", c.apiKey)
	reqURL := c.baseURL + "?" + params.Encode()

	_, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		return nil, nil
	})
	return err
}

type globalQuoteResponse struct {
	GlobalQuote map[string]string `json:"Global Quote"`
	Note        string            `json:"Note"`
	Information string            `json:"Information"`
}

// FetchQuote fetches a real-time quote via the GLOBAL_QUOTE function.
func (c *Client) FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	params := url.Values{}
	params.Set("function", "GLOBAL_QUOTE")
	params.Set("symbol", symbol)

	var result globalQuoteResponse
	if err := c.get(ctx, params, &result); err != nil {
		return nil, err
	}
	// Throttle notes come back as 200s with an explanatory message.
	if result.Note != "" || result.Information != "" {
		c.log.Warn().Str("symbol", symbol).Msg("API returned throttle note instead of quote")
		return nil, ErrQuotaExceeded
	}
	gq := result.GlobalQuote
	if len(gq) == 0 || gq["05. price"] == "" {
		return nil, fmt.Errorf("no quote data for %s", symbol)
	}

	price := parseFloat(gq["05. price"])
	if price <= 0 {
		return nil, fmt.Errorf("invalid price for %s", symbol)
	}
	meta := domain.MetaFor(symbol)
	q := &domain.Quote{
		Symbol:      strings.ToUpper(symbol),
		Company:     meta.Name,
		Sector:      meta.Sector,
		Price:       price,
		Change:      parseFloat(gq["09. change"]),
		ChangePct:   parseFloat(strings.TrimSuffix(gq["10. change percent"], "%")),
		Open:        parseFloat(gq["02. open"]),
		High:        parseFloat(gq["03. high"]),
		Low:         parseFloat(gq["04. low"]),
		Volume:      parseInt(gq["06. volume"]),
		PrevClose:   parseFloat(gq["08. previous close"]),
		Beta:        meta.Beta,
		LastUpdated: time.Now().UTC(),
		DataSource:  "alphavantage",
	}
	c.log.Debug().Str("symbol", q.Symbol).Float64("price", q.Price).Msg("Fetched quote")
	return q, nil
}

type dailySeriesResponse struct {
	Series      map[string]map[string]string `json:"Time Series (Daily)"`
	Note        string                       `json:"Note"`
	Information string                       `json:"Information"`
}

// FetchHistory fetches up to `days` of daily bars, oldest first.
func (c *Client) FetchHistory(ctx context.Context, symbol string, days int) ([]domain.Bar, error) {
	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY")
	params.Set("symbol", symbol)
	if days > 100 {
		params.Set("outputsize", "full")
	}

	var result dailySeriesResponse
	if err := c.get(ctx, params, &result); err != nil {
		return nil, err
	}
	if result.Note != "" || result.Information != "" {
		c.log.Warn().Str("symbol", symbol).Msg("API returned throttle note instead of history")
		return nil, ErrQuotaExceeded
	}
	if len(result.Series) == 0 {
		return nil, fmt.Errorf("no history data for %s", symbol)
	}

	dates := make([]string, 0, len(result.Series))
	for d := range result.Series {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	if len(dates) > days {
		dates = dates[len(dates)-days:]
	}

	bars := make([]domain.Bar, 0, len(dates))
	for _, d := range dates {
		row := result.Series[d]
		bars = append(bars, domain.Bar{
			Date:   d,
			Open:   parseFloat(row["1. open"]),
			High:   parseFloat(row["2. high"]),
			Low:    parseFloat(row["3. low"]),
			Close:  parseFloat(row["4. close"]),
			Volume: parseInt(row["5. volume"]),
		})
	}
	c.log.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("Fetched history")
	return bars, nil
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v
}

func parseInt(s string) int64 {
	v, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return v
}
