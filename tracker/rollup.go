package tracker

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gymtrack/occupancy-data/stats"
	"github.com/gymtrack/occupancy-data/store"
	"github.com/gymtrack/occupancy-data/timeslot"
)

type QueryOptions struct {
	// Resolution used to re-bucket history entries. Must match the poller's.
	Resolution time.Duration
	// LookbackWeeks is how many past occurrences of a weekday a rollup
	// aggregates over.
	LookbackWeeks int
}

// A Reconstructor serves the read queries. Weekday rollups are rebuilt from
// the raw history on every call rather than read from the persisted stats
// table, so the lookback window is always honored.
type Reconstructor struct {
	store *store.DB
	opts  QueryOptions
	clock func() time.Time
}

// A Point is one labeled value in a query response. For weekday rollups the
// label is a recurring slot key; for "today" it is the full sample timestamp.
type Point struct {
	Timestamp string  `json:"timestamp"`
	Value     float64 `json:"value"`
}

func NewReconstructor(db *store.DB, opts QueryOptions) *Reconstructor {
	if opts.Resolution <= 0 {
		opts.Resolution = timeslot.DefaultResolution
	}
	if opts.LookbackWeeks <= 0 {
		opts.LookbackWeeks = 4
	}
	return &Reconstructor{
		store: db,
		opts:  opts,
		clock: time.Now,
	}
}

// Rollup reconstructs the average occupancy per weekly slot for one weekday
// over the last weeksBack occurrences, walking backward in 7-day steps from
// the most recent past occurrence. Every history entry found is re-bucketed
// by its slot and folded with the same running-average rule the poller uses.
// Returns slots ascending by time-of-day; weeksBack <= 0 or an empty range
// yields an empty sequence.
func (r *Reconstructor) Rollup(ctx context.Context, weekdayName string, weeksBack int) ([]Point, error) {
	weekday, err := timeslot.ParseWeekday(weekdayName)
	if err != nil {
		return nil, err
	}
	points := []Point{}
	if weeksBack <= 0 {
		return points, nil
	}

	anchor := timeslot.LastOccurrence(weekday, r.clock())
	averages := stats.RunningAverages{}
	for i := 0; i < weeksBack; i++ {
		day := timeslot.Day(anchor.AddDate(0, 0, -7*i))
		entries, err := r.store.HistoryByDayPrefix(ctx, string(day))
		if err != nil {
			return nil, fmt.Errorf("reading history day=%q: %w", day, err)
		}
		for _, entry := range entries {
			ts, err := time.ParseInLocation(timeslot.TimestampLayout, entry.Timestamp, time.UTC)
			if err != nil {
				return nil, fmt.Errorf("malformed history timestamp %q: %w", entry.Timestamp, err)
			}
			slot := timeslot.Slot(ts, r.opts.Resolution)
			averages.Observe(string(slot), entry.Value)
		}
	}

	// all keys share the weekday prefix, so plain string order is
	// time-of-day order
	keys := make([]string, 0, len(averages))
	for key := range averages {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		points = append(points, Point{Timestamp: key, Value: averages[key].Average})
	}
	return points, nil
}

// Today returns the raw, unaggregated samples recorded on the current UTC
// date, ascending by timestamp.
func (r *Reconstructor) Today(ctx context.Context) ([]Point, error) {
	day := timeslot.Day(r.clock())
	entries, err := r.store.HistoryByDayPrefix(ctx, string(day))
	if err != nil {
		return nil, fmt.Errorf("reading history day=%q: %w", day, err)
	}
	points := []Point{}
	for _, entry := range entries {
		points = append(points, Point{Timestamp: entry.Timestamp, Value: entry.Value})
	}
	return points, nil
}

// Query dispatches a day selector: "today" returns raw samples for the
// current date, a weekday name returns its rollup over the configured
// lookback window, and anything else returns an empty sequence.
func (r *Reconstructor) Query(ctx context.Context, selector string) ([]Point, error) {
	if selector == "today" {
		return r.Today(ctx)
	}
	if _, err := timeslot.ParseWeekday(selector); err != nil {
		return []Point{}, nil
	}
	return r.Rollup(ctx, selector, r.opts.LookbackWeeks)
}
