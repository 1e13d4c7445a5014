package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the Prometheus collectors of the discovery engine.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	SourceFetchesTotal *prometheus.CounterVec
	CandidatesTotal    *prometheus.CounterVec
	RunsTotal          *prometheus.CounterVec
	RunDuration        prometheus.Histogram
	ChangesTotal       *prometheus.CounterVec
	RunInProgress      prometheus.Gauge
}

// NewMetrics registers the collectors once per process.
//
// Metrics:
//   - grantbot_source_fetches_total{outcome} - ok or the fetch error kind
//   - grantbot_candidates_total{stage} - found, relevant, new
//   - grantbot_runs_total{state} - finished runs by terminal state
//   - grantbot_run_duration_seconds - wall time of discovery runs
//   - grantbot_changes_total{field} - change records by field
//   - grantbot_run_in_progress - 1 while a discovery run is active
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			SourceFetchesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "grantbot_source_fetches_total",
					Help: "Total number of source crawls by outcome",
				},
				[]string{"outcome"},
			),
			CandidatesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "grantbot_candidates_total",
					Help: "Total number of candidates by pipeline stage",
				},
				[]string{"stage"},
			),
			RunsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "grantbot_runs_total",
					Help: "Total number of discovery runs by final state",
				},
				[]string{"state"},
			),
			RunDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "grantbot_run_duration_seconds",
					Help:    "Duration of discovery runs in seconds",
					Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1h
				},
			),
			ChangesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "grantbot_changes_total",
					Help: "Total number of change records by field",
				},
				[]string{"field"},
			),
			RunInProgress: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "grantbot_run_in_progress",
					Help: "Whether a discovery run is currently active",
				},
			),
		}
	})
	return globalMetrics
}

func (m *Metrics) SourceFetched(outcome string) {
	if m == nil {
		return
	}
	m.SourceFetchesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Candidates(stage string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CandidatesTotal.WithLabelValues(stage).Add(float64(n))
}

func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.RunInProgress.Set(1)
}

func (m *Metrics) RunFinished(state string, d time.Duration) {
	if m == nil {
		return
	}
	m.RunInProgress.Set(0)
	m.RunsTotal.WithLabelValues(state).Inc()
	m.RunDuration.Observe(d.Seconds())
}

func (m *Metrics) Change(field string) {
	if m == nil {
		return
	}
	m.ChangesTotal.WithLabelValues(field).Inc()
}
