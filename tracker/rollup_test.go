package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gymtrack/occupancy-data/store"
	"github.com/gymtrack/occupancy-data/timeslot"
)

// wednesday noon; the most recent past monday is 2026/08/31
var rollupNow = time.Date(2026, 9, 2, 12, 0, 0, 0, time.UTC)

func newTestReconstructor(t *testing.T, db *store.DB, weeks int) *Reconstructor {
	t.Helper()
	r := NewReconstructor(db, QueryOptions{LookbackWeeks: weeks})
	r.clock = func() time.Time { return rollupNow }
	return r
}

func seedHistory(t *testing.T, db *store.DB, entries map[string]float64) {
	t.Helper()
	ctx := context.Background()
	for ts, value := range entries {
		require.NoError(t, db.AppendHistory(ctx, ts, value))
	}
}

func TestRollup(t *testing.T) {
	require := require.New(t)
	db := openTestStore(t)

	seedHistory(t, db, map[string]float64{
		"2026/08/31 09:00": 10, // last monday
		"2026/08/24 09:00": 20, // monday before that
		"2026/08/24 09:15": 7,
		"2026/08/17 09:00": 99, // outside a 2-week lookback
		"2026/09/01 09:00": 55, // tuesday, never part of a monday rollup
	})

	r := newTestReconstructor(t, db, 2)
	points, err := r.Rollup(context.Background(), "monday", 2)
	require.NoError(err)
	require.Equal([]Point{
		{Timestamp: "monday 09:00", Value: 15},
		{Timestamp: "monday 09:15", Value: 7},
	}, points)

	// widening the window folds the older occurrence in
	points, err = r.Rollup(context.Background(), "monday", 3)
	require.NoError(err)
	require.Equal([]Point{
		{Timestamp: "monday 09:00", Value: 43},
		{Timestamp: "monday 09:15", Value: 7},
	}, points)
}

func TestRollupEmptyCases(t *testing.T) {
	require := require.New(t)
	db := openTestStore(t)
	r := newTestReconstructor(t, db, 4)

	points, err := r.Rollup(context.Background(), "monday", 0)
	require.NoError(err)
	require.Equal([]Point{}, points)

	points, err = r.Rollup(context.Background(), "friday", 4)
	require.NoError(err)
	require.Equal([]Point{}, points)

	_, err = r.Rollup(context.Background(), "notaday", 4)
	require.ErrorIs(err, timeslot.ErrInvalidWeekday)
}

func TestToday(t *testing.T) {
	require := require.New(t)
	db := openTestStore(t)

	seedHistory(t, db, map[string]float64{
		"2026/09/02 09:00": 5,
		"2026/09/02 09:15": 7,
		"2026/09/02 09:30": 9,
		"2026/09/01 09:00": 55,
	})

	r := newTestReconstructor(t, db, 4)
	points, err := r.Today(context.Background())
	require.NoError(err)
	require.Equal([]Point{
		{Timestamp: "2026/09/02 09:00", Value: 5},
		{Timestamp: "2026/09/02 09:15", Value: 7},
		{Timestamp: "2026/09/02 09:30", Value: 9},
	}, points)
}

func TestQuery(t *testing.T) {
	require := require.New(t)
	db := openTestStore(t)

	seedHistory(t, db, map[string]float64{
		"2026/08/31 09:00": 10,
		"2026/09/02 10:00": 3,
	})

	r := newTestReconstructor(t, db, 4)
	ctx := context.Background()

	points, err := r.Query(ctx, "monday")
	require.NoError(err)
	require.Equal([]Point{{Timestamp: "monday 09:00", Value: 10}}, points)

	points, err = r.Query(ctx, "today")
	require.NoError(err)
	require.Equal([]Point{{Timestamp: "2026/09/02 10:00", Value: 3}}, points)

	// unknown selectors are filtered to an empty sequence, not an error
	for _, selector := range []string{"notaday", "Monday", "live2", ""} {
		points, err = r.Query(ctx, selector)
		require.NoError(err)
		require.Equal([]Point{}, points)
	}
}
