package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rewired-gh/statwatch/internal/logger"
	"github.com/rewired-gh/statwatch/internal/models"
)

// DefaultCeiling is the match minute at which a fixture is considered over.
const DefaultCeiling = 90

// ErrInvalidOptions marks monitoring options rejected before a run starts.
var ErrInvalidOptions = errors.New("invalid monitor options")

// Options configures the poll loop shared by every fixture in a run.
type Options struct {
	// PollInterval is the minimum time between two fetches of one fixture.
	PollInterval time.Duration
	// Ceiling is the match minute that ends monitoring. Zero means DefaultCeiling.
	Ceiling int
	// FetchTimeout is the deadline set on the context of one fetch. It only
	// bounds sources that honour ctx. Zero means no deadline beyond the
	// source's own.
	FetchTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Ceiling == 0 {
		o.Ceiling = DefaultCeiling
	}
	return o
}

// Validate checks that the options can drive a poll loop
func (o Options) Validate() error {
	if o.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive, got %v", ErrInvalidOptions, o.PollInterval)
	}
	if o.Ceiling < 0 {
		return fmt.Errorf("%w: ceiling must not be negative, got %d", ErrInvalidOptions, o.Ceiling)
	}
	if o.FetchTimeout < 0 {
		return fmt.Errorf("%w: fetch timeout must not be negative, got %v", ErrInvalidOptions, o.FetchTimeout)
	}
	return nil
}

// FixtureMonitor drives the poll/evaluate/report cycle of one fixture until it
// reaches a terminal outcome. Polls of one fixture are strictly sequential.
type FixtureMonitor struct {
	group  models.FixtureGroup
	source Source
	sink   Sink
	table  *StateTable
	opts   Options
}

// NewFixtureMonitor registers the group in table and returns its monitor.
func NewFixtureMonitor(group models.FixtureGroup, source Source, sink Sink, table *StateTable, opts Options) (*FixtureMonitor, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if source == nil {
		return nil, errors.New("monitor: source is required")
	}
	if sink == nil {
		sink = NopSink{}
	}
	if err := table.Register(group); err != nil {
		return nil, err
	}
	return &FixtureMonitor{
		group:  group,
		source: source,
		sink:   sink,
		table:  table,
		opts:   opts,
	}, nil
}

// Fixture returns the monitored fixture id.
func (m *FixtureMonitor) Fixture() models.FixtureID {
	return m.group.Fixture
}

// Run polls until the fixture is ALERTED, FINISHED or CANCELLED and returns
// that outcome. Cancelling ctx stops the loop before the next fetch or during
// the wait between fetches.
func (m *FixtureMonitor) Run(ctx context.Context) models.Outcome {
	id := m.group.Fixture
	logger.Info("Monitoring fixture %s (%d conditions, interval %v, ceiling %d')",
		id, len(m.group.Conditions), m.opts.PollInterval, m.opts.Ceiling)

	lastElapsed := 0
	for {
		if ctx.Err() != nil {
			return m.finish(models.OutcomeCancelled, m.lastMinute())
		}

		snap, err := m.fetch(ctx)
		now := time.Now()
		if err != nil {
			if ctx.Err() != nil {
				return m.finish(models.OutcomeCancelled, m.lastMinute())
			}
			logger.Warn("Fetch failed for fixture %s, retrying in %v: %v", id, m.opts.PollInterval, err)
			m.table.RecordFetchError(id, now)
			if !m.wait(ctx) {
				return m.finish(models.OutcomeCancelled, m.lastMinute())
			}
			continue
		}

		if snap.Elapsed < lastElapsed {
			snap.Elapsed = lastElapsed
		}
		lastElapsed = snap.Elapsed

		allMet, results := Evaluate(snap, m.group.Conditions)
		state, err := m.table.Observe(id, results, snap.Elapsed, now)
		if err != nil {
			// Only reachable if the table was swapped under us.
			logger.Error("Recording poll for fixture %s failed: %v", id, err)
			return m.finish(models.OutcomeCancelled, m.lastMinute())
		}
		m.report(state, snap.Elapsed, now)

		logger.Debug("Fixture %s at %d': %d/%d conditions met", id, snap.Elapsed, state.MetCount(), len(state.Conditions))

		if allMet {
			return m.finish(models.OutcomeAlerted, models.Minute(snap.Elapsed))
		}
		if snap.Elapsed >= m.opts.Ceiling {
			return m.finish(models.OutcomeFinished, models.Minute(snap.Elapsed))
		}
		if !m.wait(ctx) {
			return m.finish(models.OutcomeCancelled, m.lastMinute())
		}
	}
}

// fetch calls the source under the per-fetch timeout and checks that the
// snapshot belongs to this fixture.
func (m *FixtureMonitor) fetch(ctx context.Context) (models.StatSnapshot, error) {
	if m.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.FetchTimeout)
		defer cancel()
	}

	snap, err := m.source.Fetch(ctx, m.group.Fixture)
	if err != nil {
		return models.StatSnapshot{}, err
	}
	if snap.Fixture == 0 {
		snap.Fixture = m.group.Fixture
	}
	if snap.Fixture != m.group.Fixture {
		return models.StatSnapshot{}, fmt.Errorf("source returned fixture %s for %s", snap.Fixture, m.group.Fixture)
	}
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = time.Now()
	}
	return snap, nil
}

// wait sleeps for the poll interval. It returns false when ctx is cancelled first.
func (m *FixtureMonitor) wait(ctx context.Context) bool {
	timer := time.NewTimer(m.opts.PollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (m *FixtureMonitor) report(state models.FixtureState, elapsed int, at time.Time) {
	for _, cs := range state.Conditions {
		m.sink.ConditionUpdate(models.ConditionEvent{
			Fixture:    state.Fixture,
			Statistic:  cs.Statistic,
			Team:       cs.Team,
			Current:    cs.Current,
			Target:     cs.Target,
			Met:        cs.Met,
			MetAt:      cs.MetAt,
			Elapsed:    elapsed,
			ObservedAt: at,
		})
	}
}

// lastMinute returns the last observed match minute, or nil before any successful poll.
func (m *FixtureMonitor) lastMinute() *int {
	st, ok := m.table.Get(m.group.Fixture)
	if !ok || st.Polls-st.FetchErrors == 0 {
		return nil
	}
	return models.Minute(st.Elapsed)
}

func (m *FixtureMonitor) finish(outcome models.Outcome, minute *int) models.Outcome {
	id := m.group.Fixture
	state, err := m.table.Finalize(id, outcome, minute)
	if err != nil {
		logger.Error("Finalizing fixture %s failed: %v", id, err)
		return outcome
	}

	switch state.Outcome {
	case models.OutcomeAlerted:
		logger.Info("ALERT: all %d conditions met for fixture %s at %d'", len(state.Conditions), id, derefMinute(minute))
	case models.OutcomeFinished:
		logger.Info("Fixture %s finished at %d' with %d/%d conditions met", id, state.Elapsed, state.MetCount(), len(state.Conditions))
	default:
		logger.Info("Monitoring of fixture %s cancelled", id)
	}

	m.sink.FixtureOutcome(models.OutcomeEvent{
		Fixture:     id,
		Outcome:     state.Outcome,
		Conditions:  state.Conditions,
		OutcomeTime: minute,
		At:          time.Now(),
	})
	return state.Outcome
}

func derefMinute(m *int) int {
	if m == nil {
		return 0
	}
	return *m
}
