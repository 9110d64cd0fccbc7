// Package tracker contains the occupancy tracking pipeline: the background
// poller that feeds the store and the reconstructor serving read queries.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/gymtrack/occupancy-data/metrics"
	"github.com/gymtrack/occupancy-data/sensor"
	"github.com/gymtrack/occupancy-data/store"
	"github.com/gymtrack/occupancy-data/timeslot"
)

type PollerOptions struct {
	// Interval between poll cycles.
	Interval time.Duration
	// Resolution used for slot keys and history timestamps.
	Resolution time.Duration
}

// A Poller periodically fetches one value from the sensor and folds it into
// the store. It owns a single timer: at most one cycle is in flight at a
// time, and a cycle overrunning the interval just delays the next tick.
type Poller struct {
	opts   PollerOptions
	sensor sensor.Reader
	store  *store.DB
	clock  func() time.Time

	mu          sync.RWMutex
	startedAt   time.Time
	lastSuccess time.Time
}

func NewPoller(opts PollerOptions, reader sensor.Reader, db *store.DB) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = 15 * time.Minute
	}
	if opts.Resolution <= 0 {
		opts.Resolution = timeslot.DefaultResolution
	}
	return &Poller{
		opts:   opts,
		sensor: reader,
		store:  db,
		clock:  time.Now,
	}
}

// Start launches the polling loop. It returns immediately; the loop stops
// when ctx is cancelled. Cycle failures are logged and swallowed, the next
// scheduled tick is the retry.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	p.startedAt = p.clock()
	p.mu.Unlock()

	ticker := time.NewTicker(p.opts.Interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				glog.Info("Poller stopped")
				return
			case <-ticker.C:
				if err := p.runCycle(ctx); err != nil {
					glog.Errorf("Poll cycle failed. err=%q", err)
				}
			}
		}
	}()
}

// runCycle executes one fetch-and-persist cycle. Writes only happen after a
// successful fetch, so an abandoned in-flight fetch cannot corrupt the store.
func (p *Poller) runCycle(ctx context.Context) error {
	now := p.clock().UTC()

	start := time.Now()
	value, err := p.sensor.Fetch(ctx)
	metrics.UpstreamRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PollCycles.WithLabelValues("upstream_error").Inc()
		return fmt.Errorf("upstream fetch: %w", err)
	}
	metrics.LastSampleValue.Set(value)

	slot := timeslot.Slot(now, p.opts.Resolution)
	agg, err := p.store.GetAggregate(ctx, string(slot))
	if err != nil {
		metrics.PollCycles.WithLabelValues("storage_error").Inc()
		return fmt.Errorf("reading aggregate slot=%q: %w", slot, err)
	}
	if err := p.store.UpsertAggregate(ctx, string(slot), agg.Fold(value)); err != nil {
		metrics.PollCycles.WithLabelValues("storage_error").Inc()
		return fmt.Errorf("upserting aggregate slot=%q: %w", slot, err)
	}

	// The aggregate upsert and the history append are independent writes. A
	// rejected append does not roll back the aggregate update.
	timestamp := timeslot.Timestamp(now, p.opts.Resolution)
	if err := p.store.AppendHistory(ctx, timestamp, value); err != nil {
		if errors.Is(err, store.ErrDuplicateTimestamp) {
			metrics.PollCycles.WithLabelValues("duplicate_timestamp").Inc()
		} else {
			metrics.PollCycles.WithLabelValues("storage_error").Inc()
		}
		return fmt.Errorf("appending history: %w", err)
	}

	metrics.PollCycles.WithLabelValues("success").Inc()
	p.mu.Lock()
	p.lastSuccess = now
	p.mu.Unlock()
	if glog.V(3) {
		glog.Infof("Poll cycle done. slot=%q, timestamp=%q, value=%v", slot, timestamp, value)
	}
	return nil
}

// IsHealthy reports whether the poller has completed a successful cycle
// recently. Before the first cycle completes there is a startup grace of two
// intervals.
func (p *Poller) IsHealthy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	tolerance := 2 * p.opts.Interval
	if p.lastSuccess.IsZero() {
		return p.startedAt.IsZero() || p.clock().Sub(p.startedAt) < tolerance
	}
	return p.clock().Sub(p.lastSuccess) < tolerance
}
