package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rewired-gh/statwatch/internal/logger"
	"github.com/rewired-gh/statwatch/internal/models"
)

// ErrAlreadyStarted is returned when Run is called twice on one Coordinator.
var ErrAlreadyStarted = errors.New("monitoring run already started")

// Coordinator owns one monitoring run: it launches a FixtureMonitor per
// fixture, shares a single cancellation signal between them and waits until
// all of them have reached a terminal outcome.
type Coordinator struct {
	source Source
	sink   Sink
	opts   Options
	table  *StateTable

	started  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
}

// NewCoordinator creates a coordinator for a single run.
func NewCoordinator(source Source, sink Sink, opts Options) (*Coordinator, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if source == nil {
		return nil, errors.New("coordinator: source is required")
	}
	if sink == nil {
		sink = NopSink{}
	}
	return &Coordinator{
		source: source,
		sink:   sink,
		opts:   opts,
		table:  NewStateTable(),
		stop:   make(chan struct{}),
	}, nil
}

// States exposes the run's observation table to presentation layers.
func (c *Coordinator) States() *StateTable {
	return c.table
}

// Stop signals every monitor to finish as CANCELLED. It is safe to call from
// any goroutine, more than once, and before Run.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		logger.Info("Stop requested, cancelling active fixtures")
		close(c.stop)
	})
}

// Run validates and groups conditions, monitors every fixture concurrently and
// returns once all of them are terminal. Configuration errors are returned
// before any monitor starts. Cancelling ctx has the same effect as Stop.
func (c *Coordinator) Run(ctx context.Context, conditions []models.Condition) (models.RunSummary, error) {
	groups, err := models.GroupConditions(conditions)
	if err != nil {
		return models.RunSummary{}, fmt.Errorf("invalid configuration: %w", err)
	}
	if !c.started.CompareAndSwap(false, true) {
		return models.RunSummary{}, ErrAlreadyStarted
	}

	monitors := make([]*FixtureMonitor, 0, len(groups))
	for _, g := range groups {
		m, err := NewFixtureMonitor(g, c.source, c.sink, c.table, c.opts)
		if err != nil {
			return models.RunSummary{}, fmt.Errorf("fixture %s: %w", g.Fixture, err)
		}
		monitors = append(monitors, m)
	}

	summary := models.RunSummary{
		SessionID: uuid.New().String(),
		StartedAt: time.Now(),
	}
	logger.Info("Starting run %s: %d conditions across %d fixtures", summary.SessionID, len(conditions), len(groups))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	select {
	case <-c.stop:
		cancel()
	default:
	}
	go func() {
		select {
		case <-c.stop:
			cancel()
		case <-runCtx.Done():
		}
	}()

	outcomes := make([]models.Outcome, len(monitors))
	var wg sync.WaitGroup
	for i, m := range monitors {
		wg.Add(1)
		go func(i int, m *FixtureMonitor) {
			defer wg.Done()
			outcomes[i] = m.Run(runCtx)
			logger.Debug("Monitor for fixture %s exited with %s", m.Fixture(), outcomes[i])
		}(i, m)
	}
	wg.Wait()

	for _, o := range outcomes {
		switch o {
		case models.OutcomeAlerted:
			summary.Alerted++
		case models.OutcomeFinished:
			summary.FinishedUnmet++
		case models.OutcomeCancelled:
			summary.Cancelled++
		}
	}
	summary.Fixtures = c.table.All()
	summary.EndedAt = time.Now()

	logger.Info("Run %s complete in %v: %d alerted, %d finished unmet, %d cancelled",
		summary.SessionID, summary.EndedAt.Sub(summary.StartedAt).Round(time.Millisecond),
		summary.Alerted, summary.FinishedUnmet, summary.Cancelled)
	return summary, nil
}
