// Package store persists occupancy aggregates and raw sample history in a
// local SQLite database.
//
// Two tables are kept: stats, the per-slot running averages updated in place
// on every poll, and history, an append-only log of raw timestamped samples.
// Weekday rollups are always reconstructed from history; stats is retained as
// a direct read path of the live averages.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/golang/glog"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/gymtrack/occupancy-data/stats"
)

var (
	// ErrDuplicateTimestamp is returned by AppendHistory when an entry
	// already exists for the resolved timestamp. Duplicates are rejected
	// rather than overwritten: each history row is exactly one sample, and
	// silently replacing one would skew reconstructed counts.
	ErrDuplicateTimestamp = errors.New("duplicate history timestamp")
)

type Options struct {
	// Path of the SQLite database file. ":memory:" gives a throwaway store.
	Path string
}

// A HistoryEntry is one raw sample as persisted, keyed by its formatted
// timestamp.
type HistoryEntry struct {
	Timestamp string  `json:"timestamp"`
	Value     float64 `json:"value"`
}

// A SlotAggregate is one row of the stats table.
type SlotAggregate struct {
	SlotKey string `json:"timestamp"`
	stats.Aggregate
}

type DB struct {
	db *sql.DB
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS stats (
		slot_key TEXT PRIMARY KEY,
		value REAL NOT NULL,
		weight INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS history (
		timestamp TEXT PRIMARY KEY,
		value REAL NOT NULL
	)`,
}

// Open opens or creates the database and ensures the schema exists.
func Open(opts Options) (*DB, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("error opening sqlite database: %w", err)
	}
	// single writer, avoids SQLITE_BUSY on concurrent reads during a poll
	db.SetMaxOpenConns(1)
	for _, q := range schema {
		if _, err := db.Exec(q); err != nil {
			db.Close()
			return nil, fmt.Errorf("error creating schema: %w", err)
		}
	}
	return &DB{db}, nil
}

func (s *DB) Close() error {
	return s.db.Close()
}

// GetAggregate returns the running average stored for a slot. A slot with no
// samples yet comes back as the zero Aggregate, which folds as a first sample.
func (s *DB) GetAggregate(ctx context.Context, slotKey string) (stats.Aggregate, error) {
	query, args, err := squirrel.Select("value", "weight").
		From("stats").
		Where(squirrel.Eq{"slot_key": slotKey}).
		ToSql()
	if err != nil {
		return stats.Aggregate{}, fmt.Errorf("error building stats query: %w", err)
	}
	var agg stats.Aggregate
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&agg.Average, &agg.Count)
	if errors.Is(err, sql.ErrNoRows) {
		return stats.Aggregate{}, nil
	} else if err != nil {
		return stats.Aggregate{}, fmt.Errorf("error reading stats row: %w", err)
	}
	return agg, nil
}

// UpsertAggregate stores the running average for a slot, inserting or
// overwriting the whole row in a single statement so readers never observe a
// partially updated record.
func (s *DB) UpsertAggregate(ctx context.Context, slotKey string, agg stats.Aggregate) error {
	query, args, err := squirrel.Insert("stats").
		Columns("slot_key", "value", "weight").
		Values(slotKey, agg.Average, agg.Count).
		Suffix("ON CONFLICT(slot_key) DO UPDATE SET value = excluded.value, weight = excluded.weight").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building stats upsert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("error upserting stats row: %w", err)
	}
	return nil
}

// AppendHistory inserts one raw sample. Fails with ErrDuplicateTimestamp if a
// sample was already recorded for the same resolved timestamp.
func (s *DB) AppendHistory(ctx context.Context, timestamp string, value float64) error {
	query, args, err := squirrel.Insert("history").
		Columns("timestamp", "value").
		Values(timestamp, value).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building history insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return fmt.Errorf("%w: %s", ErrDuplicateTimestamp, timestamp)
		}
		return fmt.Errorf("error appending history row: %w", err)
	}
	return nil
}

// HistoryByDayPrefix returns every raw sample whose timestamp starts with the
// given day key, ascending by timestamp.
func (s *DB) HistoryByDayPrefix(ctx context.Context, day string) ([]HistoryEntry, error) {
	query, args, err := squirrel.Select("timestamp", "value").
		From("history").
		Where(squirrel.Like{"timestamp": day + "%"}).
		OrderBy("timestamp ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building history query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying history: %w", err)
	}
	defer rows.Close()

	entries := []HistoryEntry{}
	for rows.Next() {
		var entry HistoryEntry
		if err := rows.Scan(&entry.Timestamp, &entry.Value); err != nil {
			return nil, fmt.Errorf("error scanning history row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history rows: %w", err)
	}
	if glog.V(7) {
		glog.Infof("History query done. day=%q, entries=%d", day, len(entries))
	}
	return entries, nil
}

// AggregatesBySlotPrefix returns stored running averages whose slot key
// starts with the given prefix (typically a weekday name), ascending by slot
// key. Within one weekday that coincides with time-of-day order.
func (s *DB) AggregatesBySlotPrefix(ctx context.Context, prefix string) ([]SlotAggregate, error) {
	query, args, err := squirrel.Select("slot_key", "value", "weight").
		From("stats").
		Where(squirrel.Like{"slot_key": prefix + "%"}).
		OrderBy("slot_key ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building stats query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying stats: %w", err)
	}
	defer rows.Close()

	aggs := []SlotAggregate{}
	for rows.Next() {
		var agg SlotAggregate
		if err := rows.Scan(&agg.SlotKey, &agg.Average, &agg.Count); err != nil {
			return nil, fmt.Errorf("error scanning stats row: %w", err)
		}
		aggs = append(aggs, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stats rows: %w", err)
	}
	return aggs, nil
}
