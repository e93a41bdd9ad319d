// Package quotes resolves market data through a prioritized provider
// cascade, falling back to a local simulator so callers always get a quote.
package quotes

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clarafin/clara/internal/domain"
)

// QuoteProvider is a live market data source for spot quotes.
type QuoteProvider interface {
	Name() string
	Configured() bool
	FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error)
}

// HistoryProvider is a live market data source for daily bars.
type HistoryProvider interface {
	Name() string
	Configured() bool
	FetchHistory(ctx context.Context, symbol string, days int) ([]domain.Bar, error)
}

// SourceStatus describes the health of one provider in the cascade.
type SourceStatus struct {
	Name       string    `json:"name"`
	Configured bool      `json:"configured"`
	Priority   int       `json:"priority"`
	LastError  string    `json:"last_error,omitempty"`
	LastUsed   time.Time `json:"last_used,omitempty"`
}

// Cascade tries providers in priority order and falls back to simulation.
// Quote resolution never returns an error.
type Cascade struct {
	providers []QuoteProvider
	histories []HistoryProvider
	simulator *Simulator
	log       zerolog.Logger

	mu        sync.Mutex
	lastError map[string]string
	lastUsed  map[string]time.Time
}

// NewCascade creates a cascade over the given providers, in priority order.
func NewCascade(providers []QuoteProvider, histories []HistoryProvider, sim *Simulator, log zerolog.Logger) *Cascade {
	return &Cascade{
		providers: providers,
		histories: histories,
		simulator: sim,
		log:       log.With().Str("component", "quotes").Logger(),
		lastError: make(map[string]string),
		lastUsed:  make(map[string]time.Time),
	}
}

// ResolveQuote returns a quote for the symbol. Live providers are tried in
// priority order; when all fail the simulator answers.
func (c *Cascade) ResolveQuote(ctx context.Context, symbol string) *domain.Quote {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	for _, p := range c.providers {
		if !p.Configured() {
			continue
		}
		q, err := p.FetchQuote(ctx, symbol)
		if err != nil {
			c.recordError(p.Name(), err)
			c.log.Debug().Err(err).Str("provider", p.Name()).Str("symbol", symbol).Msg("Provider failed, trying next")
			continue
		}
		c.recordSuccess(p.Name())
		return q
	}

	c.log.Debug().Str("symbol", symbol).Msg("All live providers failed, using simulated quote")
	q := c.simulator.Quote(symbol)
	c.recordSuccess("simulated")
	return q
}

// ResolveQuoteBatch resolves every symbol concurrently. The result always
// contains one quote per requested symbol, in request order.
func (c *Cascade) ResolveQuoteBatch(ctx context.Context, symbols []string) []*domain.Quote {
	results := make([]*domain.Quote, len(symbols))
	var wg sync.WaitGroup
	for i, symbol := range symbols {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			results[i] = c.ResolveQuote(ctx, symbol)
		}(i, symbol)
	}
	wg.Wait()
	return results
}

// ResolveHistory returns `days` of daily bars for the symbol, oldest first.
// Falls back to a simulated series when no live provider can answer.
func (c *Cascade) ResolveHistory(ctx context.Context, symbol string, days int) []domain.Bar {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	for _, p := range c.histories {
		if !p.Configured() {
			continue
		}
		bars, err := p.FetchHistory(ctx, symbol, days)
		if err != nil {
			c.recordError(p.Name(), err)
			c.log.Debug().Err(err).Str("provider", p.Name()).Str("symbol", symbol).Msg("History provider failed, trying next")
			continue
		}
		c.recordSuccess(p.Name())
		return bars
	}

	c.log.Debug().Str("symbol", symbol).Msg("All live providers failed, using simulated history")
	return c.simulator.History(symbol, days)
}

// Status reports the cascade ordering and per-provider health.
func (c *Cascade) Status() []SourceStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	statuses := make([]SourceStatus, 0, len(c.providers)+1)
	for i, p := range c.providers {
		statuses = append(statuses, SourceStatus{
			Name:       p.Name(),
			Configured: p.Configured(),
			Priority:   i + 1,
			LastError:  c.lastError[p.Name()],
			LastUsed:   c.lastUsed[p.Name()],
		})
	}
	statuses = append(statuses, SourceStatus{
		Name:       "simulated",
		Configured: true,
		Priority:   len(c.providers) + 1,
		LastUsed:   c.lastUsed["simulated"],
	})
	return statuses
}

func (c *Cascade) recordError(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastError[name] = err.Error()
}

func (c *Cascade) recordSuccess(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.lastError, name)
	c.lastUsed[name] = time.Now().UTC()
}
