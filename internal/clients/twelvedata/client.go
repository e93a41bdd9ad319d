// Package twelvedata provides a quote client for the Twelve Data REST API.
package twelvedata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/clarafin/clara/internal/domain"
)

// Client for the Twelve Data API.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

// NewClient creates a new Twelve Data client.
func NewClient(apiKey string, log zerolog.Logger) *Client {
	l := log.With().Str("client", "twelvedata").Logger()
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "twelvedata",
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
		apiKey:  apiKey,
		baseURL: "https://api.twelvedata.com",
		client:  &http.Client{Timeout: 10 * time.Second},
		breaker: breaker,
		log:     l,
	}
}

// Name identifies the provider within the quote cascade.
func (c *Client) Name() string { return "twelvedata" }

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != "" && !strings.HasPrefix(c.apiKey, "your_")
}

type quoteResponse struct {
	Symbol        string `json:"symbol"`
	Open          string `json:"open"`
	High          string `json:"high"`
	Low           string `json:"low"`
	Close         string `json:"close"`
	Volume        string `json:"volume"`
	PreviousClose string `json:"previous_close"`
	Change        string `json:"change"`
	PercentChange string `json:"percent_change"`

	// Error envelope: failures come back as 200s with a status field.
	Status  string `json:"status"`
	Message string `json:"message"`
}

// FetchQuote fetches a real-time quote for a symbol.
func (c *Client) FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	if !c.Configured() {
		return nil, errors.New("twelvedata API key not configured")
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("apikey", c.apiKey)
	reqURL := c.baseURL + "/quote?" + params.Encode()

	out, err := c.breaker.Execute(func() (interface{}, error) {
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
		var result quoteResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		return &result, nil
	})
	if err != nil {
		return nil, err
	}

	result := out.(*quoteResponse)
	if result.Status == "error" {
		return nil, fmt.Errorf("API error: %s", result.Message)
	}
	price := parseFloat(result.Close)
	if price <= 0 {
		return nil, fmt.Errorf("invalid price for %s", symbol)
	}

	meta := domain.MetaFor(symbol)
	q := &domain.Quote{
		Symbol:      strings.ToUpper(symbol),
		Company:     meta.Name,
		Sector:      meta.Sector,
		Price:       price,
		Change:      parseFloat(result.Change),
		ChangePct:   parseFloat(result.PercentChange),
		Open:        parseFloat(result.Open),
		High:        parseFloat(result.High),
		Low:         parseFloat(result.Low),
		Volume:      parseInt(result.Volume),
		PrevClose:   parseFloat(result.PreviousClose),
		Beta:        meta.Beta,
		LastUpdated: time.Now().UTC(),
		DataSource:  "twelvedata",
	}
	c.log.Debug().Str("symbol", q.Symbol).Float64("price", q.Price).Msg("Fetched quote")
	return q, nil
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v
}

func parseInt(s string) int64 {
	v, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return v
}
