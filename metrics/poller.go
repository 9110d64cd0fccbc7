package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PollCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: FQName("poll_cycles_total"),
			Help: "Number of completed poll cycles by outcome",
		},
		[]string{"outcome"},
	)
	LastSampleValue = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: FQName("last_sample_value"),
			Help: "Most recently fetched raw sensor value",
		},
	)
	UpstreamRequestDuration = promauto.NewSummary(
		prometheus.SummaryOpts{
			Name: FQName("upstream_request_duration_sec"),
			Help: "Duration of upstream sensor fetches in seconds",
		},
	)
)
