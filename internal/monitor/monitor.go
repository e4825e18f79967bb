// Package monitor runs the concurrent multi-fixture condition-monitoring engine.
//
// A Coordinator groups user conditions by fixture and launches one
// FixtureMonitor goroutine per fixture. Each FixtureMonitor repeatedly:
//
//	fetch snapshot (Source) -> Evaluate -> record in StateTable -> report (Sink)
//
// and stops when every condition is met in the same snapshot (ALERTED), when
// the match minute reaches the ceiling (FINISHED), or when the run is stopped
// (CANCELLED). Fetch failures never abort a monitor; they count as a poll with
// no data.
package monitor

import (
	"context"

	"github.com/rewired-gh/statwatch/internal/models"
)

// Source returns the current statistics of a fixture. Implementations must
// honour ctx so a hung fetch cannot outlive the per-fetch timeout.
type Source interface {
	Fetch(ctx context.Context, fixture models.FixtureID) (models.StatSnapshot, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, fixture models.FixtureID) (models.StatSnapshot, error)

// Fetch calls f.
func (f SourceFunc) Fetch(ctx context.Context, fixture models.FixtureID) (models.StatSnapshot, error) {
	return f(ctx, fixture)
}

// Sink consumes observation events. Calls come from several monitor
// goroutines concurrently and must return quickly.
type Sink interface {
	ConditionUpdate(ev models.ConditionEvent)
	FixtureOutcome(ev models.OutcomeEvent)
}

// Sinks fans every event out to each sink in order.
type Sinks []Sink

func (s Sinks) ConditionUpdate(ev models.ConditionEvent) {
	for _, sink := range s {
		sink.ConditionUpdate(ev)
	}
}

func (s Sinks) FixtureOutcome(ev models.OutcomeEvent) {
	for _, sink := range s {
		sink.FixtureOutcome(ev)
	}
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) ConditionUpdate(models.ConditionEvent) {}
func (NopSink) FixtureOutcome(models.OutcomeEvent)    {}
