package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/rewired-gh/statwatch/internal/models"
)

// StateTable is the shared observation state of one monitoring run, keyed by
// fixture. It is the only mutable structure shared between monitors; every
// method takes the lock for a single update and hands out copies.
type StateTable struct {
	mu     sync.Mutex
	states map[models.FixtureID]*models.FixtureState
	order  []models.FixtureID
}

// NewStateTable creates an empty table.
func NewStateTable() *StateTable {
	return &StateTable{
		states: make(map[models.FixtureID]*models.FixtureState),
	}
}

// Register creates the ACTIVE entry for a fixture group.
func (t *StateTable) Register(group models.FixtureGroup) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.states[group.Fixture]; exists {
		return fmt.Errorf("fixture %s already registered", group.Fixture)
	}
	st := &models.FixtureState{
		Fixture:    group.Fixture,
		Conditions: make([]models.ConditionState, len(group.Conditions)),
		Outcome:    models.OutcomeActive,
	}
	for i, c := range group.Conditions {
		st.Conditions[i] = models.ConditionState{Condition: c}
	}
	t.states[group.Fixture] = st
	t.order = append(t.order, group.Fixture)
	return nil
}

// Observe records one evaluated poll. Results must be in the fixture's
// condition order. A condition already met stays met with its original
// minute. Observations on a terminal fixture are ignored.
func (t *StateTable) Observe(fixture models.FixtureID, results []models.ConditionResult, elapsed int, at time.Time) (models.FixtureState, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[fixture]
	if !ok {
		return models.FixtureState{}, fmt.Errorf("fixture %s not registered", fixture)
	}
	if st.Outcome.Terminal() {
		return st.Clone(), nil
	}
	if len(results) != len(st.Conditions) {
		return models.FixtureState{}, fmt.Errorf("fixture %s: got %d results for %d conditions", fixture, len(results), len(st.Conditions))
	}

	for i, res := range results {
		cs := &st.Conditions[i]
		cs.Current = res.Current
		if res.Met && !cs.Met {
			cs.Met = true
			cs.MetAt = models.Minute(elapsed)
		}
	}
	if elapsed > st.Elapsed {
		st.Elapsed = elapsed
	}
	st.Polls++
	st.LastObserved = at
	return st.Clone(), nil
}

// RecordFetchError counts a failed poll.
func (t *StateTable) RecordFetchError(fixture models.FixtureID, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if st, ok := t.states[fixture]; ok && !st.Outcome.Terminal() {
		st.Polls++
		st.FetchErrors++
		st.LastObserved = at
	}
}

// Finalize moves a fixture into a terminal outcome. The first terminal
// outcome wins; later calls return the stored state unchanged.
func (t *StateTable) Finalize(fixture models.FixtureID, outcome models.Outcome, minute *int) (models.FixtureState, error) {
	if !outcome.Terminal() {
		return models.FixtureState{}, fmt.Errorf("outcome %s is not terminal", outcome)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[fixture]
	if !ok {
		return models.FixtureState{}, fmt.Errorf("fixture %s not registered", fixture)
	}
	if st.Outcome.Terminal() {
		return st.Clone(), nil
	}

	st.Outcome = outcome
	switch outcome {
	case models.OutcomeAlerted:
		st.AlertTriggered = true
		if minute != nil {
			st.AlertTime = models.Minute(*minute)
		}
	case models.OutcomeFinished:
		st.Finished = true
	}
	return st.Clone(), nil
}

// Get returns a copy of one fixture's state.
func (t *StateTable) Get(fixture models.FixtureID) (models.FixtureState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[fixture]
	if !ok {
		return models.FixtureState{}, false
	}
	return st.Clone(), true
}

// All returns copies of every fixture state in registration order.
func (t *StateTable) All() []models.FixtureState {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]models.FixtureState, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.states[id].Clone())
	}
	return out
}
