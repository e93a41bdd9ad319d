// Package yahoofinance provides a keyless quote and history client backed by
// the Yahoo Finance chart API.
package yahoofinance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/clarafin/clara/internal/domain"
)

// Client for the Yahoo Finance chart endpoint. No API key is required, so a
// local rate limiter keeps request cadence polite.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

// NewClient creates a new Yahoo Finance client.
func NewClient(log zerolog.Logger) *Client {
	l := log.With().Str("client", "yahoofinance").Logger()
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "yahoofinance",
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
		baseURL: "https://query1.finance.yahoo.com/v8/finance/chart",
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 2),
		breaker: breaker,
		log:     l,
	}
}

// Name identifies the provider within the quote cascade.
func (c *Client) Name() string { return "yahoofinance" }

// Configured always reports true since no API key is needed.
func (c *Client) Configured() bool { return true }

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice  float64 `json:"regularMarketPrice"`
				ChartPreviousClose  float64 `json:"chartPreviousClose"`
				RegularMarketVolume int64   `json:"regularMarketVolume"`
				FiftyTwoWeekHigh    float64 `json:"fiftyTwoWeekHigh"`
				FiftyTwoWeekLow     float64 `json:"fiftyTwoWeekLow"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (c *Client) fetchChart(ctx context.Context, symbol, interval, rng string) (*chartResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	reqURL := fmt.Sprintf("%s/%s?interval=%s&range=%s", c.baseURL, symbol, interval, rng)

	out, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; clara/1.0)")
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
		}
		var result chartResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		return &result, nil
	})
	if err != nil {
		return nil, err
	}
	result := out.(*chartResponse)
	if result.Chart.Error != nil {
		return nil, fmt.Errorf("API error: %s", result.Chart.Error.Description)
	}
	if len(result.Chart.Result) == 0 {
		return nil, fmt.Errorf("no chart data for %s", symbol)
	}
	return result, nil
}

// FetchQuote fetches the latest regular-market quote for a symbol.
func (c *Client) FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	result, err := c.fetchChart(ctx, symbol, "1d", "1d")
	if err != nil {
		return nil, err
	}
	r := result.Chart.Result[0]
	price := r.Meta.RegularMarketPrice
	if price <= 0 {
		return nil, fmt.Errorf("invalid price for %s", symbol)
	}
	prevClose := r.Meta.ChartPreviousClose

	var open, high, low float64
	if len(r.Indicators.Quote) > 0 {
		q := r.Indicators.Quote[0]
		if len(q.Open) > 0 {
			open = q.Open[0]
		}
		for _, h := range q.High {
			if h > high {
				high = h
			}
		}
		low = price
		for _, l := range q.Low {
			if l > 0 && l < low {
				low = l
			}
		}
	}

	var change, changePct float64
	if prevClose > 0 {
		change = price - prevClose
		changePct = change / prevClose * 100
	}

	meta := domain.MetaFor(symbol)
	q := &domain.Quote{
		Symbol:      strings.ToUpper(symbol),
		Company:     meta.Name,
		Sector:      meta.Sector,
		Price:       price,
		Change:      change,
		ChangePct:   changePct,
		Open:        open,
		High:        high,
		Low:         low,
		Volume:      r.Meta.RegularMarketVolume,
		PrevClose:   prevClose,
		Beta:        meta.Beta,
		WeekHigh52:  r.Meta.FiftyTwoWeekHigh,
		WeekLow52:   r.Meta.FiftyTwoWeekLow,
		LastUpdated: time.Now().UTC(),
		DataSource:  "yahoofinance",
	}
	c.log.Debug().Str("symbol", q.Symbol).Float64("price", q.Price).Msg("Fetched quote")
	return q, nil
}

// FetchHistory fetches up to `days` of daily bars, oldest first.
func (c *Client) FetchHistory(ctx context.Context, symbol string, days int) ([]domain.Bar, error) {
	rng := "3mo"
	switch {
	case days > 250:
		rng = "2y"
	case days > 120:
		rng = "1y"
	case days > 60:
		rng = "6mo"
	}

	result, err := c.fetchChart(ctx, symbol, "1d", rng)
	if err != nil {
		return nil, err
	}
	r := result.Chart.Result[0]
	if len(r.Indicators.Quote) == 0 || len(r.Timestamp) == 0 {
		return nil, fmt.Errorf("no history data for %s", symbol)
	}
	q := r.Indicators.Quote[0]

	bars := make([]domain.Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if i >= len(q.Close) || q.Close[i] <= 0 {
			continue
		}
		bar := domain.Bar{
			Date:  time.Unix(ts, 0).UTC().Format("2006-01-02"),
			Close: q.Close[i],
		}
		if i < len(q.Open) {
			bar.Open = q.Open[i]
		}
		if i < len(q.High) {
			bar.High = q.High[i]
		}
		if i < len(q.Low) {
			bar.Low = q.Low[i]
		}
		if i < len(q.Volume) {
			bar.Volume = q.Volume[i]
		}
		bars = append(bars, bar)
	}
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no usable bars for %s", symbol)
	}
	c.log.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("Fetched history")
	return bars, nil
}
