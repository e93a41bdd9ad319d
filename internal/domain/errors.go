package domain

import "errors"

// Sentinel errors surfaced across service boundaries. Provider- and IO-level
// failures are absorbed at the quote cascade boundary and never use these.
var (
	// ErrNotFound indicates an unknown position, alert, or breach id.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientData indicates a statistical routine was given too few
	// observations to produce a meaningful result.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrEmptyPortfolio indicates an operation that requires at least one
	// position was called on an empty portfolio.
	ErrEmptyPortfolio = errors.New("empty portfolio")

	// ErrInvalidInput indicates a business-rule violation in caller input.
	ErrInvalidInput = errors.New("invalid input")
)
