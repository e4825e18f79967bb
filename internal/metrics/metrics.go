// Package metrics exposes monitoring activity as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rewired-gh/statwatch/internal/models"
	"github.com/rewired-gh/statwatch/internal/monitor"
)

const metricPrefix = "statwatch_"

// Recorder bundles the metrics of one process. It is a monitor sink and
// wraps sources so fetches are measured too.
type Recorder struct {
	registry *prometheus.Registry

	ConditionValue   *prometheus.GaugeVec
	ConditionUpdates *prometheus.CounterVec
	Outcomes         *prometheus.CounterVec
	ActiveFixtures   prometheus.Gauge
	Fetches          *prometheus.CounterVec
	FetchErrors      *prometheus.CounterVec
	FetchDuration    prometheus.Histogram

	mu     sync.Mutex
	active map[models.FixtureID]bool
}

// New constructs a recorder on its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		ConditionValue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "condition_value",
				Help: "Last observed value of a monitored statistic",
			},
			[]string{"fixture", "team", "statistic"},
		),
		ConditionUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "condition_updates_total",
				Help: "Condition observations by fixture and met state",
			},
			[]string{"fixture", "met"},
		),
		Outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "fixture_outcomes_total",
				Help: "Fixtures that stopped, by outcome",
			},
			[]string{"outcome"},
		),
		ActiveFixtures: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "active_fixtures",
			Help: "Fixtures observed at least once and not yet stopped",
		}),
		Fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "fetches_total",
				Help: "Statistics fetches by fixture",
			},
			[]string{"fixture"},
		),
		FetchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "fetch_errors_total",
				Help: "Failed statistics fetches by fixture",
			},
			[]string{"fixture"},
		),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricPrefix + "fetch_duration_seconds",
			Help:    "Statistics fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		active: make(map[models.FixtureID]bool),
	}

	r.registry.MustRegister(
		r.ConditionValue,
		r.ConditionUpdates,
		r.Outcomes,
		r.ActiveFixtures,
		r.Fetches,
		r.FetchErrors,
		r.FetchDuration,
		collectors.NewGoCollector(),
	)
	return r
}

// Registry returns the registry the metrics live on.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ConditionUpdate records the latest value of a condition.
func (r *Recorder) ConditionUpdate(ev models.ConditionEvent) {
	fixture := ev.Fixture.String()
	if ev.Current != nil {
		r.ConditionValue.WithLabelValues(fixture, ev.Team, ev.Statistic).Set(*ev.Current)
	}
	met := "false"
	if ev.Met {
		met = "true"
	}
	r.ConditionUpdates.WithLabelValues(fixture, met).Inc()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, seen := r.active[ev.Fixture]; !seen {
		r.active[ev.Fixture] = true
		r.ActiveFixtures.Inc()
	}
}

// FixtureOutcome counts a stopped fixture.
func (r *Recorder) FixtureOutcome(ev models.OutcomeEvent) {
	r.Outcomes.WithLabelValues(string(ev.Outcome)).Inc()

	r.mu.Lock()
	defer r.mu.Unlock()
	if active, seen := r.active[ev.Fixture]; seen && active {
		r.ActiveFixtures.Dec()
	}
	r.active[ev.Fixture] = false
}

// InstrumentSource wraps src so every fetch is counted and timed.
func (r *Recorder) InstrumentSource(src monitor.Source) monitor.Source {
	return monitor.SourceFunc(func(ctx context.Context, fixture models.FixtureID) (models.StatSnapshot, error) {
		label := fixture.String()
		start := time.Now()
		snap, err := src.Fetch(ctx, fixture)
		r.FetchDuration.Observe(time.Since(start).Seconds())
		r.Fetches.WithLabelValues(label).Inc()
		if err != nil {
			r.FetchErrors.WithLabelValues(label).Inc()
		}
		return snap, err
	})
}
