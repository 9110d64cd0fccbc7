// Package stats implements the incremental running-average rule shared by the
// background poller and the on-demand weekly rollups.
package stats

// An Aggregate is a running average over some number of samples. The zero
// value means "no samples yet" and is valid to fold into.
type Aggregate struct {
	Average float64 `json:"value"`
	Count   int64   `json:"weight"`
}

// Fold returns the aggregate updated with one more sample, using the
// count-weighted mean formula. The final average after folding a set of
// samples equals their arithmetic mean regardless of fold order; only
// intermediate states depend on ordering.
func (a Aggregate) Fold(value float64) Aggregate {
	if a.Count == 0 {
		return Aggregate{Average: value, Count: 1}
	}
	count := a.Count + 1
	return Aggregate{
		Average: (a.Average*float64(a.Count) + value) / float64(count),
		Count:   count,
	}
}

// RunningAverages accumulates independent running averages keyed by an opaque
// bucket key. Used by rollup reconstruction, where the key is a weekly slot.
type RunningAverages map[string]Aggregate

func (r RunningAverages) Observe(key string, value float64) {
	r[key] = r[key].Fold(value)
}
