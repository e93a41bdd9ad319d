package quotes

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clarafin/clara/internal/domain"
)

type fakeProvider struct {
	name       string
	configured bool
	quote      *domain.Quote
	err        error
	calls      int
}

func (f *fakeProvider) Name() string     { return f.name }
func (f *fakeProvider) Configured() bool { return f.configured }

func (f *fakeProvider) FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	q := *f.quote
	q.Symbol = symbol
	return &q, nil
}

func newTestCascade(providers ...QuoteProvider) *Cascade {
	return NewCascade(providers, nil, NewSimulator(42), zerolog.Nop())
}

func TestResolveQuoteUsesFirstHealthyProvider(t *testing.T) {
	primary := &fakeProvider{name: "primary", configured: true, quote: &domain.Quote{Price: 100, DataSource: "primary"}}
	secondary := &fakeProvider{name: "secondary", configured: true, quote: &domain.Quote{Price: 99, DataSource: "secondary"}}

	c := newTestCascade(primary, secondary)
	q := c.ResolveQuote(context.Background(), "AAPL")
	assert.Equal(t, "primary", q.DataSource)
	assert.Equal(t, 0, secondary.calls)
}

func TestResolveQuoteFallsThroughOnError(t *testing.T) {
	primary := &fakeProvider{name: "primary", configured: true, err: errors.New("quota exceeded")}
	secondary := &fakeProvider{name: "secondary", configured: true, quote: &domain.Quote{Price: 99, DataSource: "secondary"}}

	c := newTestCascade(primary, secondary)
	q := c.ResolveQuote(context.Background(), "AAPL")
	assert.Equal(t, "secondary", q.DataSource)
	assert.Equal(t, 1, primary.calls)
}

func TestResolveQuoteSkipsUnconfiguredProviders(t *testing.T) {
	unconfigured := &fakeProvider{name: "primary", configured: false}
	secondary := &fakeProvider{name: "secondary", configured: true, quote: &domain.Quote{Price: 99, DataSource: "secondary"}}

	c := newTestCascade(unconfigured, secondary)
	q := c.ResolveQuote(context.Background(), "AAPL")
	assert.Equal(t, "secondary", q.DataSource)
	assert.Equal(t, 0, unconfigured.calls)
}

func TestResolveQuoteNeverFails(t *testing.T) {
	broken := &fakeProvider{name: "primary", configured: true, err: errors.New("down")}

	c := newTestCascade(broken)
	q := c.ResolveQuote(context.Background(), "AAPL")
	require.NotNil(t, q)
	assert.Equal(t, "simulated", q.DataSource)
	assert.Greater(t, q.Price, 0.0)
}

func TestResolveQuoteBatchCompletesForEverySymbol(t *testing.T) {
	broken := &fakeProvider{name: "primary", configured: true, err: errors.New("down")}
	c := newTestCascade(broken)

	symbols := []string{"AAPL", "ZZZZINVALID"}
	results := c.ResolveQuoteBatch(context.Background(), symbols)
	require.Len(t, results, 2)
	for i, q := range results {
		require.NotNil(t, q)
		assert.Equal(t, symbols[i], q.Symbol)
		assert.Greater(t, q.Price, 0.0)
	}
	// Unknown symbols get the fallback metadata.
	assert.Equal(t, "Unknown", results[1].Sector)
}

func TestResolveHistoryFallsBackToSimulation(t *testing.T) {
	c := newTestCascade()
	bars := c.ResolveHistory(context.Background(), "NVDA", 100)
	require.NotEmpty(t, bars)
	for _, b := range bars {
		assert.Greater(t, b.Close, 0.0)
		assert.GreaterOrEqual(t, b.High, b.Low)
	}
	// Series is stable across calls for the same symbol.
	again := c.ResolveHistory(context.Background(), "NVDA", 100)
	assert.Equal(t, bars, again)
}

func TestStatusReportsCascadeOrder(t *testing.T) {
	primary := &fakeProvider{name: "primary", configured: true, err: errors.New("down")}
	secondary := &fakeProvider{name: "secondary", configured: false}
	c := newTestCascade(primary, secondary)

	c.ResolveQuote(context.Background(), "AAPL")

	statuses := c.Status()
	require.Len(t, statuses, 3)
	assert.Equal(t, "primary", statuses[0].Name)
	assert.Equal(t, 1, statuses[0].Priority)
	assert.Equal(t, "down", statuses[0].LastError)
	assert.False(t, statuses[1].Configured)
	assert.Equal(t, "simulated", statuses[2].Name)
	assert.False(t, statuses[2].LastUsed.IsZero())
}

func TestSimulatorWalkIsMeanReverting(t *testing.T) {
	sim := NewSimulator(7)
	var last float64
	for i := 0; i < 500; i++ {
		q := sim.Quote("AAPL")
		require.Greater(t, q.Price, 0.0)
		last = q.Price
	}
	base := domain.MetaFor("AAPL").Base
	// After many steps the walk should still be in the base price's orbit.
	assert.Greater(t, last, base*0.3)
	assert.Less(t, last, base*3.0)
}

func TestComputeIndicators(t *testing.T) {
	sim := NewSimulator(1)
	bars := sim.History("MSFT", 120)
	ind := ComputeIndicators(bars)
	require.NotNil(t, ind)
	assert.Greater(t, ind.RSI14, 0.0)
	assert.LessOrEqual(t, ind.RSI14, 100.0)
	assert.Greater(t, ind.SMA20, 0.0)
	assert.InDelta(t, ind.MACD-ind.MACDSignal, ind.MACDHist, 1e-9)

	assert.Nil(t, ComputeIndicators(bars[:20]))
}

func TestSearchByPrefixAndName(t *testing.T) {
	matches := Search("AA", 10)
	require.NotEmpty(t, matches)
	assert.Equal(t, "AAPL", matches[0].Symbol)

	matches = Search("bank", 10)
	require.Len(t, matches, 1)
	assert.Equal(t, "BAC", matches[0].Symbol)

	// Ticker-prefix hits rank ahead of name-substring hits.
	matches = Search("V", 10)
	require.NotEmpty(t, matches)
	assert.Equal(t, "V", matches[0].Symbol)

	assert.Empty(t, Search("", 10))
	assert.Empty(t, Search("zzzznotasymbol", 10))
}

func TestSearchLimit(t *testing.T) {
	matches := Search("a", 3)
	assert.LessOrEqual(t, len(matches), 3)
}
