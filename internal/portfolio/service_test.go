package portfolio

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/clarafin/clara/internal/domain"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := NewRepository(db, zerolog.Nop())
	require.NoError(t, err)
	return NewService(repo, 100, zerolog.Nop())
}

func TestAddPosition(t *testing.T) {
	svc := newTestService(t)

	p, merged, err := svc.Add("aapl", 10, 150.25, "core holding")
	require.NoError(t, err)
	assert.False(t, merged)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "AAPL", p.Symbol)
	assert.Equal(t, 10.0, p.Shares)
	assert.Equal(t, 150.25, p.AvgCost)
	assert.Equal(t, "Technology", p.Sector)
}

func TestAddPositionValidation(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.Add("", 10, 100, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, _, err = svc.Add("AAPL", 0, 100, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, _, err = svc.Add("AAPL", 10, -1, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAddMergesExistingLot(t *testing.T) {
	svc := newTestService(t)

	first, _, err := svc.Add("NVDA", 10, 100, "")
	require.NoError(t, err)

	p, merged, err := svc.Add("NVDA", 10, 80, "")
	require.NoError(t, err)
	assert.True(t, merged)
	assert.Equal(t, first.ID, p.ID)
	assert.Equal(t, 20.0, p.Shares)
	assert.Equal(t, 90.0, p.AvgCost)

	all, err := svc.List()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMergeWeightsUnevenLots(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.Add("MSFT", 3, 300, "")
	require.NoError(t, err)

	p, merged, err := svc.Add("MSFT", 1, 400, "")
	require.NoError(t, err)
	assert.True(t, merged)
	assert.Equal(t, 4.0, p.Shares)
	assert.Equal(t, 325.0, p.AvgCost)
}

func TestUpdateFields(t *testing.T) {
	svc := newTestService(t)

	p, _, err := svc.Add("AMZN", 5, 120, "old note")
	require.NoError(t, err)

	shares := 8.0
	note := "topped up"
	updated, err := svc.UpdateFields(p.ID, &shares, nil, &note)
	require.NoError(t, err)
	assert.Equal(t, 8.0, updated.Shares)
	assert.Equal(t, 120.0, updated.AvgCost)
	assert.Equal(t, "topped up", updated.Note)
}

func TestUpdateUnknownID(t *testing.T) {
	svc := newTestService(t)

	shares := 5.0
	_, err := svc.UpdateFields("no-such-id", &shares, nil, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRemovePosition(t *testing.T) {
	svc := newTestService(t)

	p, _, err := svc.Add("TSLA", 2, 200, "")
	require.NoError(t, err)

	require.NoError(t, svc.Remove(p.ID))
	_, err = svc.Get(p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = svc.Remove(p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRemoveAll(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.Add("AAPL", 1, 100, "")
	require.NoError(t, err)
	_, _, err = svc.Add("NVDA", 1, 100, "")
	require.NoError(t, err)

	n, err := svc.RemoveAll()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := svc.List()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMaxPositionsEnforced(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := NewRepository(db, zerolog.Nop())
	require.NoError(t, err)
	svc := NewService(repo, 2, zerolog.Nop())

	_, _, err = svc.Add("AAPL", 1, 100, "")
	require.NoError(t, err)
	_, _, err = svc.Add("NVDA", 1, 100, "")
	require.NoError(t, err)

	_, _, err = svc.Add("MSFT", 1, 100, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// Merging into an existing symbol is still allowed at the cap.
	_, merged, err := svc.Add("AAPL", 1, 100, "")
	require.NoError(t, err)
	assert.True(t, merged)
}
