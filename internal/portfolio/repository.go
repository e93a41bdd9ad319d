// Package portfolio owns the persistent position store.
package portfolio

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/clarafin/clara/internal/domain"
)

// Repository handles position database operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new position repository and ensures the schema exists.
func NewRepository(db *sql.DB, log zerolog.Logger) (*Repository, error) {
	r := &Repository{
		db:  db,
		log: log.With().Str("repo", "position").Logger(),
	}
	if err := r.ensureSchema(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repository) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS positions (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL UNIQUE,
		shares REAL NOT NULL CHECK (shares > 0),
		avg_cost REAL NOT NULL CHECK (avg_cost > 0),
		note TEXT NOT NULL DEFAULT '',
		sector TEXT NOT NULL DEFAULT ''
	)`
	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create positions table: %w", err)
	}
	return nil
}

// GetAll returns all positions ordered by symbol.
func (r *Repository) GetAll() ([]domain.Position, error) {
	rows, err := r.db.Query(`SELECT id, symbol, shares, avg_cost, note, sector FROM positions ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		var p domain.Position
		if err := rows.Scan(&p.ID, &p.Symbol, &p.Shares, &p.AvgCost, &p.Note, &p.Sector); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}
	return positions, nil
}

// Get returns a single position by id.
func (r *Repository) Get(id string) (*domain.Position, error) {
	var p domain.Position
	err := r.db.QueryRow(
		`SELECT id, symbol, shares, avg_cost, note, sector FROM positions WHERE id = ?`, id,
	).Scan(&p.ID, &p.Symbol, &p.Shares, &p.AvgCost, &p.Note, &p.Sector)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position %s: %w", id, err)
	}
	return &p, nil
}

// GetBySymbol returns a position by symbol, or domain.ErrNotFound.
func (r *Repository) GetBySymbol(symbol string) (*domain.Position, error) {
	var p domain.Position
	err := r.db.QueryRow(
		`SELECT id, symbol, shares, avg_cost, note, sector FROM positions WHERE symbol = ?`, symbol,
	).Scan(&p.ID, &p.Symbol, &p.Shares, &p.AvgCost, &p.Note, &p.Sector)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position for %s: %w", symbol, err)
	}
	return &p, nil
}

// Insert stores a new position.
func (r *Repository) Insert(p domain.Position) error {
	_, err := r.db.Exec(
		`INSERT INTO positions (id, symbol, shares, avg_cost, note, sector) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Symbol, p.Shares, p.AvgCost, p.Note, p.Sector,
	)
	if err != nil {
		return fmt.Errorf("failed to insert position %s: %w", p.Symbol, err)
	}
	return nil
}

// Update overwrites an existing position.
func (r *Repository) Update(p domain.Position) error {
	res, err := r.db.Exec(
		`UPDATE positions SET symbol = ?, shares = ?, avg_cost = ?, note = ?, sector = ? WHERE id = ?`,
		p.Symbol, p.Shares, p.AvgCost, p.Note, p.Sector, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update position %s: %w", p.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a position by id.
func (r *Repository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM positions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete position %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Clear removes every position. Returns the number removed.
func (r *Repository) Clear() (int, error) {
	res, err := r.db.Exec(`DELETE FROM positions`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear positions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return int(n), nil
}

// Count returns the number of stored positions.
func (r *Repository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM positions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count positions: %w", err)
	}
	return n, nil
}
