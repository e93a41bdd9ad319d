package quotes

import (
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/clarafin/clara/internal/domain"
)

// Simulator generates plausible quotes when every live provider is down.
// Each symbol carries a persistent mean-reverting random walk anchored to
// its reference base price, so repeated calls drift instead of jumping.
type Simulator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	prices map[string]float64
}

// NewSimulator creates a simulator. A non-zero seed makes the walk
// deterministic, otherwise the current time is used.
func NewSimulator(seed int64) *Simulator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulator{
		rng:    rand.New(rand.NewSource(seed)),
		prices: make(map[string]float64),
	}
}

// step advances the walk for a symbol and returns (price, prevPrice).
func (s *Simulator) step(symbol string) (float64, float64) {
	meta := domain.MetaFor(symbol)
	prev, ok := s.prices[symbol]
	if !ok {
		// First observation starts within 10% of the reference price.
		prev = meta.Base * (0.95 + 0.10*s.rng.Float64())
	}

	// Daily-scale noise scaled by the symbol's beta, plus a gentle pull
	// back toward the base price.
	noise := s.rng.NormFloat64() * 0.015 * meta.Beta
	reversion := 0.05 * (meta.Base - prev) / meta.Base
	price := prev * (1 + noise + reversion)
	if price < 0.01 {
		price = 0.01
	}
	price = math.Round(price*100) / 100

	s.prices[symbol] = price
	return price, prev
}

// Quote produces a simulated quote for a symbol.
func (s *Simulator) Quote(symbol string) *domain.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()

	symbol = strings.ToUpper(symbol)
	price, prev := s.step(symbol)
	meta := domain.MetaFor(symbol)

	change := price - prev
	changePct := 0.0
	if prev > 0 {
		changePct = change / prev * 100
	}

	spread := price * 0.01 * (0.5 + s.rng.Float64())
	return &domain.Quote{
		Symbol:      symbol,
		Company:     meta.Name,
		Sector:      meta.Sector,
		Price:       price,
		Change:      round2(change),
		ChangePct:   round2(changePct),
		Open:        round2(prev),
		High:        round2(math.Max(price, prev) + spread/2),
		Low:         round2(math.Min(price, prev) - spread/2),
		Volume:      int64(1_000_000 + s.rng.Intn(50_000_000)),
		PrevClose:   round2(prev),
		Beta:        meta.Beta,
		LastUpdated: time.Now().UTC(),
		DataSource:  "simulated",
	}
}

// History produces `days` of simulated daily bars, oldest first. The series
// is derived from a symbol-seeded walk so it is stable across calls.
func (s *Simulator) History(symbol string, days int) []domain.Bar {
	symbol = strings.ToUpper(symbol)
	meta := domain.MetaFor(symbol)

	h := fnv.New64a()
	h.Write([]byte(symbol))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	bars := make([]domain.Bar, 0, days)
	price := meta.Base * 0.85
	day := time.Now().UTC().AddDate(0, 0, -days)
	for i := 0; i < days; i++ {
		day = day.AddDate(0, 0, 1)
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		open := price
		noise := rng.NormFloat64() * 0.015 * meta.Beta
		reversion := 0.05 * (meta.Base - price) / meta.Base
		price = price * (1 + noise + reversion)
		if price < 0.01 {
			price = 0.01
		}
		spread := price * 0.01 * (0.5 + rng.Float64())
		bars = append(bars, domain.Bar{
			Date:   day.Format("2006-01-02"),
			Open:   round2(open),
			High:   round2(math.Max(open, price) + spread/2),
			Low:    round2(math.Min(open, price) - spread/2),
			Close:  round2(price),
			Volume: int64(1_000_000 + rng.Intn(50_000_000)),
		})
	}
	return bars
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
