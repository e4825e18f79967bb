package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rewired-gh/statwatch/internal/models"
)

// step is one scripted fetch result.
type step struct {
	elapsed int
	values  map[string]map[string]float64 // team -> stat -> value
	err     error
}

// scriptedSource replays steps per fixture and repeats the last one.
type scriptedSource struct {
	mu    sync.Mutex
	steps map[models.FixtureID][]step
	calls map[models.FixtureID]int
	times map[models.FixtureID][]time.Time
}

func newScriptedSource() *scriptedSource {
	return &scriptedSource{
		steps: make(map[models.FixtureID][]step),
		calls: make(map[models.FixtureID]int),
		times: make(map[models.FixtureID][]time.Time),
	}
}

func (s *scriptedSource) script(id models.FixtureID, steps ...step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps[id] = steps
}

func (s *scriptedSource) Fetch(ctx context.Context, id models.FixtureID) (models.StatSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	steps := s.steps[id]
	n := s.calls[id]
	s.calls[id] = n + 1
	s.times[id] = append(s.times[id], time.Now())
	if len(steps) == 0 {
		return models.StatSnapshot{Fixture: id}, nil
	}
	if n >= len(steps) {
		n = len(steps) - 1
	}
	st := steps[n]
	if st.err != nil {
		return models.StatSnapshot{}, st.err
	}
	snap := models.StatSnapshot{Fixture: id, Elapsed: st.elapsed}
	for team, stats := range st.values {
		for stat, v := range stats {
			snap.Set(team, stat, models.Float(v))
		}
	}
	return snap, nil
}

func (s *scriptedSource) callCount(id models.FixtureID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[id]
}

// recordingSink stores every event it receives.
type recordingSink struct {
	mu         sync.Mutex
	conditions []models.ConditionEvent
	outcomes   []models.OutcomeEvent
}

func (r *recordingSink) ConditionUpdate(ev models.ConditionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conditions = append(r.conditions, ev)
}

func (r *recordingSink) FixtureOutcome(ev models.OutcomeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, ev)
}

func (r *recordingSink) outcomeEvents() []models.OutcomeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.OutcomeEvent(nil), r.outcomes...)
}

func (r *recordingSink) conditionEvents() []models.ConditionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ConditionEvent(nil), r.conditions...)
}

func homeCorners(v float64) map[string]map[string]float64 {
	return map[string]map[string]float64{"Home Team": {"Corners": v}}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(d time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}
