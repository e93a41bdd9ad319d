package portfolio

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clarafin/clara/internal/domain"
)

// Store is the persistence surface the service depends on.
type Store interface {
	GetAll() ([]domain.Position, error)
	Get(id string) (*domain.Position, error)
	GetBySymbol(symbol string) (*domain.Position, error)
	Insert(p domain.Position) error
	Update(p domain.Position) error
	Delete(id string) error
	Clear() (int, error)
	Count() (int, error)
}

// Service implements position lifecycle logic on top of a Store.
// Adding a symbol that already exists merges the lots DCA-style.
type Service struct {
	store        Store
	maxPositions int
	log          zerolog.Logger
}

// NewService creates a position service.
func NewService(store Store, maxPositions int, log zerolog.Logger) *Service {
	return &Service{
		store:        store,
		maxPositions: maxPositions,
		log:          log.With().Str("component", "portfolio").Logger(),
	}
}

// List returns all positions.
func (s *Service) List() ([]domain.Position, error) {
	return s.store.GetAll()
}

// Get returns a position by id.
func (s *Service) Get(id string) (*domain.Position, error) {
	return s.store.Get(id)
}

// GetBySymbol returns a position by ticker symbol.
func (s *Service) GetBySymbol(symbol string) (*domain.Position, error) {
	return s.store.GetBySymbol(normalizeSymbol(symbol))
}

// Add stores a new position, or merges into an existing one for the same
// symbol using a weighted average cost basis.
func (s *Service) Add(symbol string, shares, avgCost float64, note string) (*domain.Position, bool, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, false, fmt.Errorf("%w: symbol is required", domain.ErrInvalidInput)
	}
	if shares <= 0 {
		return nil, false, fmt.Errorf("%w: shares must be positive", domain.ErrInvalidInput)
	}
	if avgCost <= 0 {
		return nil, false, fmt.Errorf("%w: avg_cost must be positive", domain.ErrInvalidInput)
	}

	existing, err := s.store.GetBySymbol(symbol)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	if existing != nil {
		totalShares := existing.Shares + shares
		totalCost := existing.Shares*existing.AvgCost + shares*avgCost
		existing.Shares = round6(totalShares)
		existing.AvgCost = round4(totalCost / totalShares)
		if note != "" {
			existing.Note = note
		}
		if err := s.store.Update(*existing); err != nil {
			return nil, false, err
		}
		s.log.Info().
			Str("symbol", symbol).
			Float64("shares", existing.Shares).
			Float64("avg_cost", existing.AvgCost).
			Msg("Merged lot into existing position")
		return existing, true, nil
	}

	count, err := s.store.Count()
	if err != nil {
		return nil, false, err
	}
	if s.maxPositions > 0 && count >= s.maxPositions {
		return nil, false, fmt.Errorf("%w: portfolio is at the maximum of %d positions", domain.ErrInvalidInput, s.maxPositions)
	}

	p := domain.Position{
		ID:      uuid.New().String(),
		Symbol:  symbol,
		Shares:  round6(shares),
		AvgCost: round4(avgCost),
		Note:    note,
		Sector:  domain.MetaFor(symbol).Sector,
	}
	if err := s.store.Insert(p); err != nil {
		return nil, false, err
	}
	s.log.Info().Str("symbol", symbol).Float64("shares", p.Shares).Msg("Added position")
	return &p, false, nil
}

// UpdateFields applies a partial update to a position. Nil fields are left
// untouched.
func (s *Service) UpdateFields(id string, shares, avgCost *float64, note *string) (*domain.Position, error) {
	p, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if shares != nil {
		if *shares <= 0 {
			return nil, fmt.Errorf("%w: shares must be positive", domain.ErrInvalidInput)
		}
		p.Shares = round6(*shares)
	}
	if avgCost != nil {
		if *avgCost <= 0 {
			return nil, fmt.Errorf("%w: avg_cost must be positive", domain.ErrInvalidInput)
		}
		p.AvgCost = round4(*avgCost)
	}
	if note != nil {
		p.Note = *note
	}
	if err := s.store.Update(*p); err != nil {
		return nil, err
	}
	return p, nil
}

// Remove deletes a position by id.
func (s *Service) Remove(id string) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.log.Info().Str("id", id).Msg("Removed position")
	return nil
}

// RemoveAll clears the portfolio and returns the number of removed positions.
func (s *Service) RemoveAll() (int, error) {
	n, err := s.store.Clear()
	if err != nil {
		return 0, err
	}
	s.log.Info().Int("removed", n).Msg("Cleared portfolio")
	return n, nil
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
