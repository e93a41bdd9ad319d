package portfolio

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/clarafin/clara/internal/domain"
	"github.com/clarafin/clara/internal/quotes"
	"github.com/clarafin/clara/internal/risk"
)

// Enricher joins stored positions with live quotes and computed risk
// analytics. Enriched views are recomputed on every call and never cached.
type Enricher struct {
	service *Service
	cascade *quotes.Cascade
	log     zerolog.Logger
}

// NewEnricher creates an enricher over a portfolio service and quote cascade.
func NewEnricher(service *Service, cascade *quotes.Cascade, log zerolog.Logger) *Enricher {
	return &Enricher{
		service: service,
		cascade: cascade,
		log:     log.With().Str("component", "enricher").Logger(),
	}
}

// EnrichedPositions returns every position joined with its current quote,
// price targets and risk metrics.
func (e *Enricher) EnrichedPositions(ctx context.Context) ([]domain.EnrichedPosition, error) {
	positions, err := e.service.List()
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 {
		return []domain.EnrichedPosition{}, nil
	}

	symbols := make([]string, len(positions))
	for i, p := range positions {
		symbols[i] = p.Symbol
	}
	qts := e.cascade.ResolveQuoteBatch(ctx, symbols)

	// Two passes: total value first, then per-position weights.
	totalValue := 0.0
	for i, p := range positions {
		if qts[i] != nil {
			totalValue += p.Shares * qts[i].Price
		} else {
			totalValue += p.Shares * p.AvgCost
		}
	}

	enriched := make([]domain.EnrichedPosition, len(positions))
	for i, p := range positions {
		enriched[i] = risk.EnrichPosition(p, qts[i], totalValue)
	}
	return enriched, nil
}

// Summary returns the enriched positions together with the portfolio-level
// aggregate.
func (e *Enricher) Summary(ctx context.Context) ([]domain.EnrichedPosition, domain.PortfolioSummary, error) {
	enriched, err := e.EnrichedPositions(ctx)
	if err != nil {
		return nil, domain.PortfolioSummary{}, err
	}
	return enriched, risk.ComputeSummary(enriched), nil
}
